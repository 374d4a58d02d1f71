package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/layr-ng/layr-api/pkg/apierrors"
	"github.com/layr-ng/layr-api/pkg/diagrams"
	"github.com/layr-ng/layr-api/pkg/httputil"
	"github.com/layr-ng/layr-api/pkg/middleware"
	"github.com/layr-ng/layr-api/pkg/subscriptions"
	"github.com/layr-ng/layr-api/pkg/teams"
	"github.com/layr-ng/layr-api/pkg/users"
)

// AdminHandlers serves the admin console: platform-wide listings and
// discount code management.
type AdminHandlers struct {
	users         *users.Service
	diagrams      *diagrams.Service
	teams         *teams.Service
	subscriptions *subscriptions.Service
}

// NewAdminHandlers creates the admin console handlers.
func NewAdminHandlers(userSvc *users.Service, diagramSvc *diagrams.Service, teamSvc *teams.Service, subscriptionSvc *subscriptions.Service) *AdminHandlers {
	return &AdminHandlers{
		users:         userSvc,
		diagrams:      diagramSvc,
		teams:         teamSvc,
		subscriptions: subscriptionSvc,
	}
}

// RegisterRoutes registers the admin console under /admins.
func (h *AdminHandlers) RegisterRoutes(router *mux.Router, session *middleware.Session) {
	r := router.PathPrefix("/admins").Subrouter()
	r.Use(session.RequireAdmin)

	r.HandleFunc("/user", h.listUsers).Methods("GET")
	r.HandleFunc("/diagram", h.listDiagrams).Methods("GET")
	r.HandleFunc("/team", h.listTeams).Methods("GET")
	r.HandleFunc("/subscription", h.listSubscriptions).Methods("GET")
	r.HandleFunc("/subscription_discount", h.listDiscounts).Methods("GET")
	r.HandleFunc("/subscription_discount", h.createDiscount).Methods("POST")
}

func (h *AdminHandlers) listUsers(w http.ResponseWriter, r *http.Request) {
	p := middleware.PaginationFromContext(r)
	rows, err := h.users.ListUsers(r.Context(), p)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "", httputil.Page{Rows: rows, Pagination: &p})
}

func (h *AdminHandlers) listDiagrams(w http.ResponseWriter, r *http.Request) {
	p := middleware.PaginationFromContext(r)
	rows, err := h.diagrams.ListAll(r.Context(), p)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "", httputil.Page{Rows: rows, Pagination: &p})
}

func (h *AdminHandlers) listTeams(w http.ResponseWriter, r *http.Request) {
	p := middleware.PaginationFromContext(r)
	rows, err := h.teams.ListAll(r.Context(), p)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "", httputil.Page{Rows: rows, Pagination: &p})
}

func (h *AdminHandlers) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	p := middleware.PaginationFromContext(r)
	rows, err := h.subscriptions.ListAll(r.Context(), p)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "", httputil.Page{Rows: rows, Pagination: &p})
}

func (h *AdminHandlers) listDiscounts(w http.ResponseWriter, r *http.Request) {
	p := middleware.PaginationFromContext(r)
	rows, err := h.subscriptions.ListDiscounts(r.Context(), p)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "", httputil.Page{Rows: rows, Pagination: &p})
}

func (h *AdminHandlers) createDiscount(w http.ResponseWriter, r *http.Request) {
	var input subscriptions.DiscountInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.WriteAPIError(w, apierrors.Validation(err.Error()))
		return
	}

	discount, err := h.subscriptions.CreateDiscount(r.Context(), input)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteCreated(w, "Discount code created", discount)
}
