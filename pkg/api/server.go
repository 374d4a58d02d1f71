// Package api wires the HTTP surface: the router, the middleware chain and
// the per-family handlers.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/layr-ng/layr-api/pkg/access"
	"github.com/layr-ng/layr-api/pkg/auth"
	"github.com/layr-ng/layr-api/pkg/diagrams"
	"github.com/layr-ng/layr-api/pkg/middleware"
	"github.com/layr-ng/layr-api/pkg/notifications"
	"github.com/layr-ng/layr-api/pkg/observability"
	"github.com/layr-ng/layr-api/pkg/plan"
	"github.com/layr-ng/layr-api/pkg/sequence"
	"github.com/layr-ng/layr-api/pkg/subscriptions"
	"github.com/layr-ng/layr-api/pkg/teams"
	"github.com/layr-ng/layr-api/pkg/users"
)

// Dependencies collects everything the server needs. RateLimit may be nil,
// in which case no rate limiting is applied.
type Dependencies struct {
	Logger  *observability.Logger
	Tokens  *auth.TokenManager
	Session *middleware.Session

	Users         *users.Service
	Diagrams      *diagrams.Service
	Teams         *teams.Service
	Subscriptions *subscriptions.Service
	Notifications *notifications.Service
	Sequence      *sequence.Service

	Access *access.Checker
	Gate   *plan.Gate

	RateLimit mux.MiddlewareFunc
}

// Server is the API server.
type Server struct {
	router *mux.Router
	logger *observability.Logger

	session *middleware.Session
	access  *access.Checker
	gate    *plan.Gate

	auth          *AuthHandlers
	diagrams      *DiagramHandlers
	teams         *TeamHandlers
	subscriptions *SubscriptionHandlers
	notifications *NotificationHandlers
	admin         *AdminHandlers
}

// NewServer creates the API server and registers all routes.
func NewServer(deps Dependencies) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		logger:  deps.Logger,
		session: deps.Session,
		access:  deps.Access,
		gate:    deps.Gate,

		auth:          NewAuthHandlers(deps.Users, deps.Tokens),
		diagrams:      NewDiagramHandlers(deps.Diagrams, deps.Sequence, deps.Users),
		teams:         NewTeamHandlers(deps.Teams),
		subscriptions: NewSubscriptionHandlers(deps.Subscriptions),
		notifications: NewNotificationHandlers(deps.Notifications),
		admin:         NewAdminHandlers(deps.Users, deps.Diagrams, deps.Teams, deps.Subscriptions),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RequestLogger(deps.Logger))
	if deps.RateLimit != nil {
		s.router.Use(deps.RateLimit)
	}
	s.router.Use(middleware.Pagination)

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router

	// Unauthenticated routes.
	r.HandleFunc("/diagrams/public", s.diagrams.getSamples).Methods("GET")
	r.HandleFunc("/diagrams/share/view", s.diagrams.getPublicDiagram).Methods("GET")
	r.HandleFunc("/subscriptions/pricing", s.subscriptions.getPricing).Methods("POST")
	r.HandleFunc("/subscriptions/discount/{discount_code}", s.subscriptions.getDiscount).Methods("GET")

	s.auth.RegisterRoutes(r, s.session)

	// Diagram routes. Routes naming a diagram pass through the access
	// checker; creation and public sharing pass through the plan gate.
	diagramRoutes := r.PathPrefix("/diagrams").Subrouter()
	diagramRoutes.Use(s.session.RequireUser)
	diagramRoutes.Handle("", s.withQuota(middleware.DiagramQuota(s.gate), s.diagrams.create)).Methods("POST")
	diagramRoutes.HandleFunc("", s.diagrams.listAll).Methods("GET")
	diagramRoutes.HandleFunc("/owned", s.diagrams.listOwned).Methods("GET")
	diagramRoutes.HandleFunc("/shared", s.diagrams.listShared).Methods("GET")

	guarded := diagramRoutes.PathPrefix("/{diagram_id}").Subrouter()
	guarded.Use(middleware.DiagramAccess(s.access))
	guarded.HandleFunc("", s.diagrams.get).Methods("GET")
	guarded.HandleFunc("", s.diagrams.update).Methods("PATCH")
	guarded.HandleFunc("", s.diagrams.delete).Methods("DELETE")
	guarded.HandleFunc("/sequence", s.diagrams.updateSequence).Methods("PATCH")
	guarded.HandleFunc("/sequence/prompt", s.diagrams.promptSequence).Methods("POST")
	guarded.HandleFunc("/sequence/prompt", s.diagrams.listPrompts).Methods("GET")
	guarded.HandleFunc("/sequence/history", s.diagrams.listSequenceHistory).Methods("GET")
	guarded.Handle("/visibility/public", s.withQuota(middleware.ShareQuota(s.gate), s.diagrams.makePublic)).Methods("PATCH")
	guarded.HandleFunc("/visibility/hidden", s.diagrams.makeHidden).Methods("PATCH")
	guarded.HandleFunc("/thumbnail", s.diagrams.saveThumbnail).Methods("PATCH")
	guarded.HandleFunc("/group", s.diagrams.addToGroup).Methods("POST")
	guarded.HandleFunc("/participant", s.diagrams.listParticipants).Methods("GET")
	guarded.HandleFunc("/participant/{user_id}", s.diagrams.addParticipant).Methods("POST")
	guarded.HandleFunc("/participant/{user_id}", s.diagrams.removeParticipant).Methods("DELETE")

	// Group routes are scoped to the caller, no shared access model.
	groupRoutes := r.PathPrefix("/groups").Subrouter()
	groupRoutes.Use(s.session.RequireUser)
	groupRoutes.HandleFunc("", s.diagrams.createGroup).Methods("POST")
	groupRoutes.HandleFunc("", s.diagrams.listGroups).Methods("GET")
	groupRoutes.HandleFunc("/{group_id}", s.diagrams.getGroup).Methods("GET")
	groupRoutes.HandleFunc("/{group_id}", s.diagrams.updateGroup).Methods("PATCH")
	groupRoutes.HandleFunc("/{group_id}", s.diagrams.deleteGroup).Methods("DELETE")
	groupRoutes.HandleFunc("/{group_id}/diagram", s.diagrams.listGroupDiagrams).Methods("GET")

	s.teams.RegisterRoutes(r, s.session, s.gate)
	s.subscriptions.RegisterRoutes(r, s.session)
	s.notifications.RegisterRoutes(r, s.session)
	s.admin.RegisterRoutes(r, s.session)
}

func (s *Server) withQuota(quota mux.MiddlewareFunc, h http.HandlerFunc) http.Handler {
	return quota(h)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
