package api

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/layr-ng/layr-api/pkg/apierrors"
	"github.com/layr-ng/layr-api/pkg/diagrams"
	"github.com/layr-ng/layr-api/pkg/httputil"
	"github.com/layr-ng/layr-api/pkg/middleware"
	"github.com/layr-ng/layr-api/pkg/sequence"
	"github.com/layr-ng/layr-api/pkg/users"
)

const maxThumbnailBytes = 5 << 20

// DiagramHandlers serves diagram, participant, group and sequence routes.
type DiagramHandlers struct {
	diagrams *diagrams.Service
	sequence *sequence.Service
	users    *users.Service
}

// NewDiagramHandlers creates the diagram handlers.
func NewDiagramHandlers(diagramSvc *diagrams.Service, sequenceSvc *sequence.Service, userSvc *users.Service) *DiagramHandlers {
	return &DiagramHandlers{diagrams: diagramSvc, sequence: sequenceSvc, users: userSvc}
}

func (h *DiagramHandlers) getSamples(w http.ResponseWriter, r *http.Request) {
	httputil.WriteOK(w, "", diagrams.SampleDiagrams)
}

func (h *DiagramHandlers) getPublicDiagram(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		httputil.WriteAPIError(w, apierrors.Validation("Diagram ID is required"))
		return
	}

	diagram, err := h.diagrams.GetPublic(r.Context(), id)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "", diagram)
}

func (h *DiagramHandlers) create(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r)
	diagram, err := h.diagrams.Create(r.Context(), actor.ID)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteCreated(w, "Diagram created", diagram)
}

func (h *DiagramHandlers) listAll(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, diagrams.FilterAll)
}

func (h *DiagramHandlers) listOwned(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, diagrams.FilterOwned)
}

func (h *DiagramHandlers) listShared(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, diagrams.FilterShared)
}

func (h *DiagramHandlers) list(w http.ResponseWriter, r *http.Request, filter diagrams.ParticipantFilter) {
	actor, _ := middleware.ActorFromContext(r)
	p := middleware.PaginationFromContext(r)

	rows, err := h.diagrams.List(r.Context(), actor.ID, filter, p)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "", httputil.Page{Rows: rows, Pagination: &p})
}

func (h *DiagramHandlers) get(w http.ResponseWriter, r *http.Request) {
	diagram, err := h.diagrams.Get(r.Context(), mux.Vars(r)["diagram_id"])
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "", diagram)
}

func (h *DiagramHandlers) update(w http.ResponseWriter, r *http.Request) {
	var input diagrams.UpdateInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.WriteAPIError(w, apierrors.Validation(err.Error()))
		return
	}

	if err := h.diagrams.Update(r.Context(), mux.Vars(r)["diagram_id"], input); err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "Diagram updated", input)
}

func (h *DiagramHandlers) delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r)
	if err := h.diagrams.Delete(r.Context(), mux.Vars(r)["diagram_id"], actor.ID); err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "Diagram deleted", nil)
}

type updateSequenceRequest struct {
	Sequence string `json:"sequence"`
}

func (h *DiagramHandlers) updateSequence(w http.ResponseWriter, r *http.Request) {
	var input updateSequenceRequest
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.WriteAPIError(w, apierrors.Validation(err.Error()))
		return
	}

	if err := h.diagrams.UpdateSequence(r.Context(), mux.Vars(r)["diagram_id"], input.Sequence); err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "Sequence updated", nil)
}

type promptSequenceRequest struct {
	Prompt          string                    `json:"prompt"`
	PreviousPrompts []sequence.PreviousPrompt `json:"previous_prompts,omitempty"`
}

func (h *DiagramHandlers) promptSequence(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r)

	var input promptSequenceRequest
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.WriteAPIError(w, apierrors.Validation(err.Error()))
		return
	}

	result, err := h.sequence.Prompt(r.Context(), mux.Vars(r)["diagram_id"], actor.ID, input.Prompt, input.PreviousPrompts)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "", result)
}

func (h *DiagramHandlers) listPrompts(w http.ResponseWriter, r *http.Request) {
	p := middleware.PaginationFromContext(r)
	rows, err := h.sequence.ListPrompts(r.Context(), mux.Vars(r)["diagram_id"], p)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "", httputil.Page{Rows: rows, Pagination: &p})
}

func (h *DiagramHandlers) listSequenceHistory(w http.ResponseWriter, r *http.Request) {
	p := middleware.PaginationFromContext(r)
	rows, err := h.sequence.ListHistory(r.Context(), mux.Vars(r)["diagram_id"], p)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "", httputil.Page{Rows: rows, Pagination: &p})
}

func (h *DiagramHandlers) makePublic(w http.ResponseWriter, r *http.Request) {
	h.setVisibility(w, r, diagrams.VisibilityPublic)
}

func (h *DiagramHandlers) makeHidden(w http.ResponseWriter, r *http.Request) {
	h.setVisibility(w, r, diagrams.VisibilityHidden)
}

func (h *DiagramHandlers) setVisibility(w http.ResponseWriter, r *http.Request, visibility string) {
	if err := h.diagrams.SetVisibility(r.Context(), mux.Vars(r)["diagram_id"], visibility); err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "Visibility updated", map[string]string{"visibility": visibility})
}

func (h *DiagramHandlers) saveThumbnail(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxThumbnailBytes)
	content, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteAPIError(w, apierrors.Validation("Image too large"))
		return
	}

	contentType := r.Header.Get("Content-Type")
	if err := h.diagrams.SaveThumbnail(r.Context(), mux.Vars(r)["diagram_id"], content, contentType); err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "Thumbnail updated successfully", nil)
}

type addToGroupRequest struct {
	Group string `json:"group"`
}

func (h *DiagramHandlers) addToGroup(w http.ResponseWriter, r *http.Request) {
	var input addToGroupRequest
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.WriteAPIError(w, apierrors.Validation(err.Error()))
		return
	}
	if input.Group == "" {
		httputil.WriteAPIError(w, apierrors.Validation("Group ID is required"))
		return
	}

	if err := h.diagrams.AddDiagramToGroup(r.Context(), mux.Vars(r)["diagram_id"], input.Group); err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "Diagram added to group", nil)
}

func (h *DiagramHandlers) listParticipants(w http.ResponseWriter, r *http.Request) {
	p := middleware.PaginationFromContext(r)
	rows, err := h.diagrams.ListParticipants(r.Context(), mux.Vars(r)["diagram_id"], p)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "", httputil.Page{Rows: rows, Pagination: &p})
}

func (h *DiagramHandlers) addParticipant(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r)
	vars := mux.Vars(r)

	caller, err := h.users.GetUser(r.Context(), actor.ID)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	diagram, err := h.diagrams.Get(r.Context(), vars["diagram_id"])
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}

	if err := h.diagrams.AddParticipant(r.Context(), vars["diagram_id"], vars["user_id"], caller.FullName, diagram.Title); err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteCreated(w, "Participant added", nil)
}

func (h *DiagramHandlers) removeParticipant(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r)
	vars := mux.Vars(r)

	if err := h.diagrams.RemoveParticipant(r.Context(), vars["diagram_id"], vars["user_id"], actor.ID); err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "Participant removed", nil)
}

func (h *DiagramHandlers) createGroup(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r)

	var input diagrams.GroupInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.WriteAPIError(w, apierrors.Validation(err.Error()))
		return
	}

	group, err := h.diagrams.CreateGroup(r.Context(), actor.ID, input)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteCreated(w, "Group created", group)
}

func (h *DiagramHandlers) getGroup(w http.ResponseWriter, r *http.Request) {
	group, err := h.diagrams.GetGroup(r.Context(), mux.Vars(r)["group_id"])
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "", group)
}

func (h *DiagramHandlers) listGroups(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r)
	p := middleware.PaginationFromContext(r)

	rows, err := h.diagrams.ListGroups(r.Context(), actor.ID, p)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "", httputil.Page{Rows: rows, Pagination: &p})
}

func (h *DiagramHandlers) updateGroup(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r)

	var input diagrams.GroupInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.WriteAPIError(w, apierrors.Validation(err.Error()))
		return
	}

	if err := h.diagrams.UpdateGroup(r.Context(), mux.Vars(r)["group_id"], actor.ID, input); err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "Group updated", input)
}

func (h *DiagramHandlers) deleteGroup(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r)
	if err := h.diagrams.DeleteGroup(r.Context(), mux.Vars(r)["group_id"], actor.ID); err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "Group deleted", nil)
}

func (h *DiagramHandlers) listGroupDiagrams(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r)
	rows, err := h.diagrams.ListGroupDiagrams(r.Context(), mux.Vars(r)["group_id"], actor.ID)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "", rows)
}
