package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/layr-ng/layr-api/pkg/apierrors"
	"github.com/layr-ng/layr-api/pkg/httputil"
	"github.com/layr-ng/layr-api/pkg/middleware"
	"github.com/layr-ng/layr-api/pkg/subscriptions"
)

// SubscriptionHandlers serves subscription and payment verification routes.
type SubscriptionHandlers struct {
	subscriptions *subscriptions.Service
}

// NewSubscriptionHandlers creates the subscription handlers.
func NewSubscriptionHandlers(subscriptionSvc *subscriptions.Service) *SubscriptionHandlers {
	return &SubscriptionHandlers{subscriptions: subscriptionSvc}
}

// RegisterRoutes registers the authenticated /subscriptions routes. Pricing
// and discount lookup are public and registered by the server directly.
func (h *SubscriptionHandlers) RegisterRoutes(router *mux.Router, session *middleware.Session) {
	r := router.PathPrefix("/subscriptions").Subrouter()
	r.Use(session.RequireUser)

	r.HandleFunc("/new", h.create).Methods("POST")
	r.HandleFunc("/active", h.listActive).Methods("GET")
	r.HandleFunc("/verify_payment", h.verifyPayment).Methods("POST")
}

func (h *SubscriptionHandlers) getPricing(w http.ResponseWriter, r *http.Request) {
	httputil.WriteOK(w, "", h.subscriptions.Pricing())
}

func (h *SubscriptionHandlers) getDiscount(w http.ResponseWriter, r *http.Request) {
	discount, err := h.subscriptions.GetDiscount(r.Context(), mux.Vars(r)["discount_code"])
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "", discount)
}

func (h *SubscriptionHandlers) create(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r)

	var input subscriptions.CreateInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.WriteAPIError(w, apierrors.Validation(err.Error()))
		return
	}

	result, err := h.subscriptions.Create(r.Context(), actor.ID, input)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteCreated(w, "Subscription created", result)
}

func (h *SubscriptionHandlers) listActive(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r)
	p := middleware.PaginationFromContext(r)

	rows, err := h.subscriptions.ListActive(r.Context(), actor.ID, p)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "", httputil.Page{Rows: rows, Pagination: &p})
}

func (h *SubscriptionHandlers) verifyPayment(w http.ResponseWriter, r *http.Request) {
	txRef := r.URL.Query().Get("transaction_ref")
	if txRef == "" {
		httputil.WriteAPIError(w, apierrors.Validation("Transaction reference is required"))
		return
	}

	status, message, err := h.subscriptions.VerifyPayment(r.Context(), txRef)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, message, map[string]string{"payment_status": status})
}
