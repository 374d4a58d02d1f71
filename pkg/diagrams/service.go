package diagrams

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/layr-ng/layr-api/pkg/apierrors"
	"github.com/layr-ng/layr-api/pkg/httputil"
	"github.com/layr-ng/layr-api/pkg/notifications"
	"github.com/layr-ng/layr-api/pkg/observability"
)

const (
	publicCacheSize = 1024
	publicCacheTTL  = 30 * time.Second
)

// ThumbnailStore uploads diagram thumbnails to object storage.
type ThumbnailStore interface {
	PutThumbnail(ctx context.Context, diagramID string, content []byte, contentType string) (string, error)
	DeleteThumbnail(ctx context.Context, diagramID string) error
}

// Service implements diagram operations.
type Service struct {
	store      Store
	thumbnails ThumbnailStore
	logger     *observability.Logger
	metrics    *observability.Metrics

	// publicCache serves the unauthenticated share endpoint. Entries
	// expire quickly and are dropped eagerly when a diagram is hidden,
	// updated or deleted.
	publicCache *expirable.LRU[string, *PublicDiagram]
}

// NewService creates the diagrams service. Thumbnails and metrics may be nil.
func NewService(store Store, thumbnails ThumbnailStore, logger *observability.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		store:       store,
		thumbnails:  thumbnails,
		logger:      logger,
		metrics:     metrics,
		publicCache: expirable.NewLRU[string, *PublicDiagram](publicCacheSize, nil, publicCacheTTL),
	}
}

// Create inserts a blank diagram with the caller as creator participant. The
// diagram row and the admin participant row commit together.
func (s *Service) Create(ctx context.Context, creatorID string) (*Diagram, error) {
	diagram := &Diagram{
		ID:         uuid.NewString(),
		Title:      "Untitled diagram",
		Sequence:   "",
		Visibility: VisibilityHidden,
		CreatorID:  creatorID,
	}
	if err := s.store.CreateWithCreator(ctx, diagram); err != nil {
		s.logger.WithError(err).Error("diagram creation failed")
		return nil, apierrors.Internal("Error", err)
	}
	return diagram, nil
}

// Get returns a diagram with creator and participants.
func (s *Service) Get(ctx context.Context, id string) (*Diagram, error) {
	diagram, err := s.store.GetByID(ctx, id)
	if err == ErrNotFound {
		return nil, apierrors.NotFound("Diagram not found")
	}
	if err != nil {
		return nil, apierrors.Internal("Failed to load diagram", err)
	}
	return diagram, nil
}

// GetPublic serves the unauthenticated share endpoint through the cache.
func (s *Service) GetPublic(ctx context.Context, id string) (*PublicDiagram, error) {
	if cached, ok := s.publicCache.Get(id); ok {
		return cached, nil
	}

	diagram, err := s.store.GetPublicByID(ctx, id)
	if err == ErrNotFound {
		return nil, apierrors.NotFound("This diagram is no longer available. It may have expired, been deleted, or is no longer shared publicly.")
	}
	if err != nil {
		return nil, apierrors.Internal("Failed to load diagram", err)
	}

	s.publicCache.Add(id, diagram)
	return diagram, nil
}

// List returns the caller's diagrams scoped by relationship.
func (s *Service) List(ctx context.Context, userID string, filter ParticipantFilter, p httputil.Pagination) ([]Diagram, error) {
	rows, err := s.store.ListForParticipant(ctx, userID, filter, p)
	if err != nil {
		return nil, apierrors.Internal("Failed to list diagrams", err)
	}
	return rows, nil
}

// ListAll returns every diagram, for the admin console.
func (s *Service) ListAll(ctx context.Context, p httputil.Pagination) ([]Diagram, error) {
	rows, err := s.store.ListAll(ctx, p)
	if err != nil {
		return nil, apierrors.Internal("Failed to list diagrams", err)
	}
	return rows, nil
}

// Update applies a partial diagram update.
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) error {
	if input.Visibility != nil && *input.Visibility != VisibilityPublic && *input.Visibility != VisibilityHidden {
		return apierrors.Validation("Invalid visibility")
	}
	if err := s.store.Update(ctx, id, input); err != nil {
		return apierrors.Internal("Failed to update diagram", err)
	}
	s.publicCache.Remove(id)
	return nil
}

// UpdateSequence replaces the diagram's sequence text.
func (s *Service) UpdateSequence(ctx context.Context, id, sequence string) error {
	err := s.store.UpdateSequence(ctx, id, sequence)
	if err == ErrNotFound {
		return apierrors.NotFound("Diagram not found")
	}
	if err != nil {
		return apierrors.Internal("Failed to update sequence", err)
	}
	s.publicCache.Remove(id)
	return nil
}

// SetVisibility flips a diagram between public and hidden. The plan gate
// must be consulted before making a diagram public.
func (s *Service) SetVisibility(ctx context.Context, id, visibility string) error {
	if visibility != VisibilityPublic && visibility != VisibilityHidden {
		return apierrors.Validation("Invalid visibility")
	}
	if err := s.store.SetVisibility(ctx, id, visibility); err != nil {
		return apierrors.Internal("Failed to update visibility", err)
	}
	s.publicCache.Remove(id)
	return nil
}

// Delete removes a diagram. Only the creator's own diagrams match.
func (s *Service) Delete(ctx context.Context, id, creatorID string) error {
	if err := s.store.DeleteOwned(ctx, id, creatorID); err != nil {
		return apierrors.Internal("Failed to delete diagram", err)
	}
	s.publicCache.Remove(id)
	return nil
}

// AddParticipant shares a diagram with a user as editor and notifies them.
// addedByName and diagramTitle feed the notification text.
func (s *Service) AddParticipant(ctx context.Context, diagramID, userID, addedByName, diagramTitle string) error {
	count, err := s.store.CountParticipant(ctx, diagramID, userID)
	if err != nil {
		return apierrors.Internal("Failed to add participant", err)
	}
	if count > 0 {
		return apierrors.Validation("User is already a participant")
	}

	participant := &Participant{UserID: userID, Role: RoleEditor}
	notification := &notifications.Notification{
		UserID: userID,
		Type:   "diagram.participant.new",
		Title:  fmt.Sprintf("%s added you to a diagram - %s", addedByName, diagramTitle),
	}
	if err := s.store.AddParticipantWithNotification(ctx, participant, diagramID, notification); err != nil {
		s.logger.WithError(err).Error("participant add failed")
		return apierrors.Internal("Error", err)
	}
	return nil
}

// RemoveParticipant removes a user from a diagram. Only the creator may
// remove participants, and the creator can never be removed.
func (s *Service) RemoveParticipant(ctx context.Context, diagramID, userID, callerID string) error {
	diagram, err := s.store.GetByID(ctx, diagramID)
	if err == ErrNotFound {
		return apierrors.NotFound("Diagram not found")
	}
	if err != nil {
		return apierrors.Internal("Failed to remove participant", err)
	}

	if diagram.CreatorID != callerID {
		return apierrors.Forbidden("Only the person who created this diagram can remove participants. If you believe you should be allowed to do this, please contact support, we’re here to help.")
	}
	if userID == diagram.CreatorID {
		return apierrors.Forbidden("Oops! You can’t delete the person who created this diagram. If you need help changing ownership, please contact our support team, we’re here to help!")
	}

	if err := s.store.RemoveParticipant(ctx, diagramID, userID); err != nil {
		return apierrors.Internal("Failed to remove participant", err)
	}
	return nil
}

// ListParticipants returns a page of a diagram's participants.
func (s *Service) ListParticipants(ctx context.Context, diagramID string, p httputil.Pagination) ([]Participant, error) {
	rows, err := s.store.ListParticipants(ctx, diagramID, p)
	if err != nil {
		return nil, apierrors.Internal("Failed to list participants", err)
	}
	return rows, nil
}

// SaveThumbnail uploads the image and records it on the diagram.
func (s *Service) SaveThumbnail(ctx context.Context, diagramID string, content []byte, contentType string) error {
	if len(content) == 0 {
		return apierrors.Validation("No image uploaded")
	}
	if s.thumbnails == nil {
		return apierrors.Internal("Thumbnail storage is not configured", nil)
	}

	key, err := s.thumbnails.PutThumbnail(ctx, diagramID, content, contentType)
	if err != nil {
		return apierrors.Internal("Failed to store thumbnail", err)
	}
	if err := s.store.SetThumbnail(ctx, diagramID, key); err != nil {
		return apierrors.Internal("Failed to update thumbnail", err)
	}
	return nil
}

// CreateGroup creates a diagram folder.
func (s *Service) CreateGroup(ctx context.Context, creatorID string, input GroupInput) (*Group, error) {
	if input.Title == "" {
		return nil, apierrors.Validation("Title is required")
	}
	group := &Group{
		ID:          uuid.NewString(),
		Title:       input.Title,
		Description: input.Description,
		CreatorID:   creatorID,
	}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		return nil, apierrors.Internal("Failed to create group", err)
	}
	return group, nil
}

// GetGroup returns a single group.
func (s *Service) GetGroup(ctx context.Context, id string) (*Group, error) {
	group, err := s.store.GetGroup(ctx, id)
	if err == ErrNotFound {
		return nil, apierrors.NotFound("Group not found")
	}
	if err != nil {
		return nil, apierrors.Internal("Failed to load group", err)
	}
	return group, nil
}

// ListGroups returns the caller's groups.
func (s *Service) ListGroups(ctx context.Context, creatorID string, p httputil.Pagination) ([]Group, error) {
	rows, err := s.store.ListGroups(ctx, creatorID, p)
	if err != nil {
		return nil, apierrors.Internal("Failed to list groups", err)
	}
	return rows, nil
}

// UpdateGroup updates a group the caller owns.
func (s *Service) UpdateGroup(ctx context.Context, id, creatorID string, input GroupInput) error {
	if err := s.store.UpdateGroup(ctx, id, creatorID, input); err != nil {
		return apierrors.Internal("Failed to update group", err)
	}
	return nil
}

// DeleteGroup removes a group and detaches its diagrams atomically.
func (s *Service) DeleteGroup(ctx context.Context, id, creatorID string) error {
	if _, err := s.store.GetGroup(ctx, id); err == ErrNotFound {
		return apierrors.NotFound("Group not found")
	} else if err != nil {
		return apierrors.Internal("Could not complete request", err)
	}

	if err := s.store.DeleteGroupAndUnlink(ctx, id, creatorID); err != nil {
		return apierrors.Internal("Could not complete request", err)
	}
	return nil
}

// AddDiagramToGroup assigns a diagram to a group.
func (s *Service) AddDiagramToGroup(ctx context.Context, diagramID, groupID string) error {
	if err := s.store.AssignGroup(ctx, diagramID, &groupID); err != nil {
		return apierrors.Internal("Failed to add diagram to group", err)
	}
	return nil
}

// ListGroupDiagrams returns the diagrams in a group the caller owns.
func (s *Service) ListGroupDiagrams(ctx context.Context, groupID, creatorID string) ([]Diagram, error) {
	rows, err := s.store.ListGroupDiagrams(ctx, groupID, creatorID)
	if err != nil {
		return nil, apierrors.Internal("Failed to list group diagrams", err)
	}
	return rows, nil
}
