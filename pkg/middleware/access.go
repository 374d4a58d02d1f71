package middleware

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/layr-ng/layr-api/pkg/access"
	"github.com/layr-ng/layr-api/pkg/apierrors"
	"github.com/layr-ng/layr-api/pkg/httputil"
	"github.com/layr-ng/layr-api/pkg/plan"
	"github.com/layr-ng/layr-api/pkg/teams"
)

// DiagramAccess authorizes diagram routes through the access checker. The
// HTTP method decides the required access class.
func DiagramAccess(checker *access.Checker) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r)
			if !ok {
				httputil.WriteAPIError(w, apierrors.Unauthorized("Authentication required"))
				return
			}
			diagramID := mux.Vars(r)["diagram_id"]
			if diagramID == "" {
				httputil.WriteAPIError(w, apierrors.Validation("Diagram ID is required"))
				return
			}

			if _, err := checker.Decide(r.Context(), actor.ID, diagramID, access.ClassForMethod(r.Method)); err != nil {
				httputil.WriteAPIError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// TeamGuard admits only active, accepted members of the team named in the
// route, optionally restricted to the given roles.
func TeamGuard(svc *teams.Service, allowedRoles ...string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r)
			if !ok {
				httputil.WriteAPIError(w, apierrors.Unauthorized("Authentication required"))
				return
			}
			teamID := mux.Vars(r)["team_id"]
			if teamID == "" {
				httputil.WriteAPIError(w, apierrors.Validation("Team ID is required"))
				return
			}

			if _, err := svc.Authorize(r.Context(), teamID, actor.ID, allowedRoles...); err != nil {
				httputil.WriteAPIError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// DiagramQuota blocks diagram creation once the free plan cap is reached.
func DiagramQuota(gate *plan.Gate) mux.MiddlewareFunc {
	return planGate(func(r *http.Request, g *plan.Gate, userID string) error {
		return g.CheckDiagramCreation(r.Context(), userID)
	}, gate)
}

// ShareQuota blocks making diagrams public once the free plan cap is reached.
func ShareQuota(gate *plan.Gate) mux.MiddlewareFunc {
	return planGate(func(r *http.Request, g *plan.Gate, userID string) error {
		return g.CheckPublicShare(r.Context(), userID)
	}, gate)
}

// RequireSubscription admits only users with an active paid subscription.
func RequireSubscription(gate *plan.Gate) mux.MiddlewareFunc {
	return planGate(func(r *http.Request, g *plan.Gate, userID string) error {
		return g.RequireActiveSubscription(r.Context(), userID)
	}, gate)
}

func planGate(check func(*http.Request, *plan.Gate, string) error, gate *plan.Gate) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r)
			if !ok {
				httputil.WriteAPIError(w, apierrors.Unauthorized("Authentication required"))
				return
			}
			if err := check(r, gate, actor.ID); err != nil {
				httputil.WriteAPIError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
