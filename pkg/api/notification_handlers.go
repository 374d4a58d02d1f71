package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/layr-ng/layr-api/pkg/apierrors"
	"github.com/layr-ng/layr-api/pkg/httputil"
	"github.com/layr-ng/layr-api/pkg/middleware"
	"github.com/layr-ng/layr-api/pkg/notifications"
)

// NotificationHandlers serves in-app notification routes.
type NotificationHandlers struct {
	notifications *notifications.Service
}

// NewNotificationHandlers creates the notification handlers.
func NewNotificationHandlers(notificationSvc *notifications.Service) *NotificationHandlers {
	return &NotificationHandlers{notifications: notificationSvc}
}

// RegisterRoutes registers the /notifications family.
func (h *NotificationHandlers) RegisterRoutes(router *mux.Router, session *middleware.Session) {
	r := router.PathPrefix("/notifications").Subrouter()
	r.Use(session.RequireUser)

	r.HandleFunc("", h.list).Methods("GET")
	r.HandleFunc("/unread_count", h.unreadCount).Methods("GET")
	r.HandleFunc("/{notification_id}", h.updateStatus).Methods("PATCH")
}

func (h *NotificationHandlers) list(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r)
	p := middleware.PaginationFromContext(r)

	rows, err := h.notifications.ListForUser(r.Context(), actor.ID, r.URL.Query().Get("status"), p)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "", httputil.Page{Rows: rows, Pagination: &p})
}

func (h *NotificationHandlers) unreadCount(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r)

	count, err := h.notifications.UnreadCount(r.Context(), actor.ID)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "", map[string]int{"unread_count": count})
}

type updateNotificationRequest struct {
	Status string `json:"status"`
}

func (h *NotificationHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	var input updateNotificationRequest
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.WriteAPIError(w, apierrors.Validation(err.Error()))
		return
	}

	if err := h.notifications.MarkStatus(r.Context(), mux.Vars(r)["notification_id"], input.Status); err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "Notification updated", nil)
}
