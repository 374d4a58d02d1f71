package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/layr-ng/layr-api/pkg/apierrors"
	"github.com/layr-ng/layr-api/pkg/httputil"
	"github.com/layr-ng/layr-api/pkg/middleware"
	"github.com/layr-ng/layr-api/pkg/plan"
	"github.com/layr-ng/layr-api/pkg/teams"
)

// TeamHandlers serves team, membership and team diagram routes.
type TeamHandlers struct {
	teams *teams.Service
}

// NewTeamHandlers creates the team handlers.
func NewTeamHandlers(teamSvc *teams.Service) *TeamHandlers {
	return &TeamHandlers{teams: teamSvc}
}

// RegisterRoutes registers the /teams family. Every route requires an active
// paid subscription; management routes additionally pass the team guard.
func (h *TeamHandlers) RegisterRoutes(router *mux.Router, session *middleware.Session, gate *plan.Gate) {
	r := router.PathPrefix("/teams").Subrouter()
	r.Use(session.RequireUser)
	r.Use(middleware.RequireSubscription(gate))

	r.HandleFunc("/invitation/status", h.handleInvitation).Methods("POST")
	r.HandleFunc("", h.create).Methods("POST")
	r.HandleFunc("", h.listForUser).Methods("GET")

	manage := func(handler http.HandlerFunc, roles ...string) http.Handler {
		return middleware.TeamGuard(h.teams, roles...)(handler)
	}

	r.Handle("/{team_id}", manage(h.get)).Methods("GET")
	r.Handle("/{team_id}", manage(h.update, teams.RoleOwner, teams.RoleAdmin)).Methods("PATCH")
	r.Handle("/{team_id}", manage(h.delete, teams.RoleOwner)).Methods("DELETE")
	r.Handle("/{team_id}/member", manage(h.sendInvite, teams.RoleOwner, teams.RoleAdmin)).Methods("POST")
	r.HandleFunc("/{team_id}/member", h.leave).Methods("DELETE")
	r.Handle("/{team_id}/member/{user_id}", manage(h.removeMember, teams.RoleOwner, teams.RoleAdmin)).Methods("DELETE")
	r.Handle("/{team_id}/member/{user_id}/role", manage(h.sendInvite, teams.RoleOwner, teams.RoleAdmin)).Methods("PUT")
	r.Handle("/{team_id}/diagram", manage(h.addDiagrams, teams.RoleOwner, teams.RoleAdmin)).Methods("POST")
	r.Handle("/{team_id}/diagram/{diagram_id}", manage(h.removeDiagram, teams.RoleOwner, teams.RoleAdmin)).Methods("DELETE")
}

type createTeamRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

func (h *TeamHandlers) create(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r)

	var input createTeamRequest
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.WriteAPIError(w, apierrors.Validation(err.Error()))
		return
	}

	team, err := h.teams.Create(r.Context(), actor.ID, input.Title, input.Description)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteCreated(w, "Team created", team)
}

func (h *TeamHandlers) listForUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r)
	p := middleware.PaginationFromContext(r)

	rows, err := h.teams.ListForUser(r.Context(), actor.ID, p)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "", httputil.Page{Rows: rows, Pagination: &p})
}

func (h *TeamHandlers) get(w http.ResponseWriter, r *http.Request) {
	team, err := h.teams.Get(r.Context(), mux.Vars(r)["team_id"])
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "", team)
}

func (h *TeamHandlers) update(w http.ResponseWriter, r *http.Request) {
	var input teams.UpdateInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.WriteAPIError(w, apierrors.Validation(err.Error()))
		return
	}

	if err := h.teams.Update(r.Context(), mux.Vars(r)["team_id"], input); err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "Team updated", input)
}

func (h *TeamHandlers) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.teams.Delete(r.Context(), mux.Vars(r)["team_id"]); err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "Team deleted", nil)
}

type inviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (h *TeamHandlers) sendInvite(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r)

	var input inviteRequest
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.WriteAPIError(w, apierrors.Validation(err.Error()))
		return
	}

	if err := h.teams.SendInvite(r.Context(), mux.Vars(r)["team_id"], actor.ID, input.Email, input.Role); err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "An invitation mail has been sent to member.", nil)
}

type invitationStatusRequest struct {
	SID    string `json:"sId"`
	Status string `json:"status"`
}

func (h *TeamHandlers) handleInvitation(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r)

	var input invitationStatusRequest
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.WriteAPIError(w, apierrors.Validation(err.Error()))
		return
	}

	data, teamID, err := h.teams.HandleInvitation(r.Context(), actor.ID, input.SID, input.Status)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}

	switch input.Status {
	case teams.InviteActionVerify:
		httputil.WriteOK(w, "", data)
	case teams.InviteActionAccept:
		httputil.WriteOK(w, "", map[string]string{"team_id": teamID})
	default:
		httputil.WriteOK(w, "", nil)
	}
}

func (h *TeamHandlers) leave(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r)
	if err := h.teams.Leave(r.Context(), mux.Vars(r)["team_id"], actor.ID); err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "You are no longer a member of the team.", nil)
}

func (h *TeamHandlers) removeMember(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.teams.RemoveMember(r.Context(), vars["team_id"], vars["user_id"]); err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "The user has been successfully removed from the team.", nil)
}

type addTeamDiagramsRequest struct {
	DiagramIDs []string `json:"diagram_ids"`
}

func (h *TeamHandlers) addDiagrams(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r)

	var input addTeamDiagramsRequest
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.WriteAPIError(w, apierrors.Validation(err.Error()))
		return
	}

	if err := h.teams.AddDiagrams(r.Context(), mux.Vars(r)["team_id"], actor.ID, input.DiagramIDs); err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteCreated(w, "Diagrams added to team", nil)
}

func (h *TeamHandlers) removeDiagram(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.teams.RemoveDiagram(r.Context(), vars["team_id"], vars["diagram_id"]); err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "Diagram removed from team", nil)
}
