package diagrams

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layr-ng/layr-api/pkg/apierrors"
	"github.com/layr-ng/layr-api/pkg/notifications"
	"github.com/layr-ng/layr-api/pkg/observability"
)

type fakeStore struct {
	Store

	diagram          *Diagram
	public           *PublicDiagram
	publicLookups    int
	participantCount int
	added            []*Participant
	removed          []string
}

func (f *fakeStore) GetByID(ctx context.Context, id string) (*Diagram, error) {
	if f.diagram == nil {
		return nil, ErrNotFound
	}
	return f.diagram, nil
}

func (f *fakeStore) GetPublicByID(ctx context.Context, id string) (*PublicDiagram, error) {
	f.publicLookups++
	if f.public == nil {
		return nil, ErrNotFound
	}
	return f.public, nil
}

func (f *fakeStore) CountParticipant(ctx context.Context, diagramID, userID string) (int, error) {
	return f.participantCount, nil
}

func (f *fakeStore) AddParticipantWithNotification(ctx context.Context, p *Participant, diagramID string, n *notifications.Notification) error {
	f.added = append(f.added, p)
	return nil
}

func (f *fakeStore) RemoveParticipant(ctx context.Context, diagramID, userID string) error {
	f.removed = append(f.removed, userID)
	return nil
}

func (f *fakeStore) SetVisibility(ctx context.Context, id, visibility string) error {
	return nil
}

func newTestService(store Store) *Service {
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	return NewService(store, nil, logger, nil)
}

func TestAddParticipantRejectsDuplicate(t *testing.T) {
	store := &fakeStore{participantCount: 1}
	svc := newTestService(store)

	err := svc.AddParticipant(context.Background(), "diagram-1", "user-2", "Ada", "My diagram")
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeValidation))
	assert.Contains(t, err.Error(), "User is already a participant")
	assert.Empty(t, store.added)
}

func TestAddParticipantDefaultsToEditor(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store)

	require.NoError(t, svc.AddParticipant(context.Background(), "diagram-1", "user-2", "Ada", "My diagram"))
	require.Len(t, store.added, 1)
	assert.Equal(t, RoleEditor, store.added[0].Role)
	assert.False(t, store.added[0].IsCreator)
}

func TestRemoveParticipantRequiresCreator(t *testing.T) {
	store := &fakeStore{diagram: &Diagram{ID: "diagram-1", CreatorID: "user-1"}}
	svc := newTestService(store)

	err := svc.RemoveParticipant(context.Background(), "diagram-1", "user-2", "user-9")
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeForbidden))
	assert.Empty(t, store.removed)
}

func TestRemoveParticipantNeverRemovesCreator(t *testing.T) {
	store := &fakeStore{diagram: &Diagram{ID: "diagram-1", CreatorID: "user-1"}}
	svc := newTestService(store)

	err := svc.RemoveParticipant(context.Background(), "diagram-1", "user-1", "user-1")
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeForbidden))
	assert.Empty(t, store.removed)
}

func TestRemoveParticipantByCreator(t *testing.T) {
	store := &fakeStore{diagram: &Diagram{ID: "diagram-1", CreatorID: "user-1"}}
	svc := newTestService(store)

	require.NoError(t, svc.RemoveParticipant(context.Background(), "diagram-1", "user-2", "user-1"))
	assert.Equal(t, []string{"user-2"}, store.removed)
}

func TestGetPublicCachesLookups(t *testing.T) {
	store := &fakeStore{public: &PublicDiagram{ID: "diagram-1", Visibility: VisibilityPublic}}
	svc := newTestService(store)

	for i := 0; i < 3; i++ {
		_, err := svc.GetPublic(context.Background(), "diagram-1")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, store.publicLookups)
}

func TestGetPublicCacheInvalidatedOnHide(t *testing.T) {
	store := &fakeStore{public: &PublicDiagram{ID: "diagram-1", Visibility: VisibilityPublic}}
	svc := newTestService(store)

	_, err := svc.GetPublic(context.Background(), "diagram-1")
	require.NoError(t, err)

	require.NoError(t, svc.SetVisibility(context.Background(), "diagram-1", VisibilityHidden))

	_, err = svc.GetPublic(context.Background(), "diagram-1")
	require.NoError(t, err)
	assert.Equal(t, 2, store.publicLookups)
}

func TestGetPublicMissingDiagram(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store)

	_, err := svc.GetPublic(context.Background(), "gone")
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeNotFound))
	assert.Contains(t, err.Error(), "no longer available")
}

func TestSetVisibilityValidation(t *testing.T) {
	svc := newTestService(&fakeStore{})
	err := svc.SetVisibility(context.Background(), "diagram-1", "secret")
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeValidation))
}
