package access

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layr-ng/layr-api/pkg/apierrors"
	"github.com/layr-ng/layr-api/pkg/observability"
)

// fakeStore returns canned rows for a single diagram.
type fakeStore struct {
	creatorID       string
	diagramExists   bool
	teamRole        string
	hasTeamRole     bool
	participantRole string
	hasParticipant  bool

	creatorErr     error
	teamErr        error
	participantErr error
}

func (s *fakeStore) DiagramCreator(ctx context.Context, diagramID string) (string, bool, error) {
	return s.creatorID, s.diagramExists, s.creatorErr
}

func (s *fakeStore) TeamRole(ctx context.Context, diagramID, userID string) (string, bool, error) {
	return s.teamRole, s.hasTeamRole, s.teamErr
}

func (s *fakeStore) ParticipantRole(ctx context.Context, diagramID, userID string) (string, bool, error) {
	return s.participantRole, s.hasParticipant, s.participantErr
}

func newTestChecker(store Store) *Checker {
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	return NewChecker(store, logger, nil)
}

func TestCreatorAlwaysAllowed(t *testing.T) {
	// The creator passes every method class even when a team membership
	// would deny the same request.
	store := &fakeStore{
		creatorID:     "user-1",
		diagramExists: true,
		teamRole:      TeamRoleViewer,
		hasTeamRole:   true,
	}
	checker := newTestChecker(store)

	for _, class := range []MethodClass{ClassRead, ClassWrite, ClassAdmin} {
		decision, err := checker.Decide(context.Background(), "user-1", "diagram-1", class)
		require.NoError(t, err, "class %s", class)
		assert.True(t, decision.Allowed)
		assert.Equal(t, RuleCreator, decision.Rule)
	}
}

func TestDiagramNotFound(t *testing.T) {
	checker := newTestChecker(&fakeStore{diagramExists: false})

	_, err := checker.Decide(context.Background(), "user-1", "missing", ClassRead)
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeNotFound))
	assert.Contains(t, err.Error(), "Diagram not found")
}

func TestTeamMembershipDecides(t *testing.T) {
	tests := []struct {
		name    string
		role    string
		class   MethodClass
		allowed bool
		message string
	}{
		{name: "viewer can read", role: TeamRoleViewer, class: ClassRead, allowed: true},
		{name: "viewer cannot write", role: TeamRoleViewer, class: ClassWrite, message: "Write access required for team diagram"},
		{name: "editor can write", role: TeamRoleEditor, class: ClassWrite, allowed: true},
		{name: "editor cannot delete", role: TeamRoleEditor, class: ClassAdmin, message: "Owner privileges required for team diagram"},
		{name: "admin cannot delete", role: TeamRoleAdmin, class: ClassAdmin, message: "Owner privileges required for team diagram"},
		{name: "owner can delete", role: TeamRoleOwner, class: ClassAdmin, allowed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{
				creatorID:     "someone-else",
				diagramExists: true,
				teamRole:      tt.role,
				hasTeamRole:   true,
			}
			checker := newTestChecker(store)

			decision, err := checker.Decide(context.Background(), "user-1", "diagram-1", tt.class)
			if tt.allowed {
				require.NoError(t, err)
				assert.True(t, decision.Allowed)
				assert.Equal(t, RuleTeam, decision.Rule)
			} else {
				require.Error(t, err)
				assert.True(t, apierrors.IsCode(err, apierrors.CodeForbidden))
				assert.Contains(t, err.Error(), tt.message)
			}
		})
	}
}

func TestTeamMembershipShadowsParticipantRow(t *testing.T) {
	// The actor is a direct participant admin, but the diagram is shared
	// with a team where they are only a viewer. The team tier terminates
	// resolution, so the write is denied despite the stronger direct row.
	store := &fakeStore{
		creatorID:       "someone-else",
		diagramExists:   true,
		teamRole:        TeamRoleViewer,
		hasTeamRole:     true,
		participantRole: ParticipantAdmin,
		hasParticipant:  true,
	}
	checker := newTestChecker(store)

	_, err := checker.Decide(context.Background(), "user-1", "diagram-1", ClassWrite)
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeForbidden))
	assert.Contains(t, err.Error(), "Write access required for team diagram")
}

func TestParticipantRoles(t *testing.T) {
	tests := []struct {
		name    string
		role    string
		class   MethodClass
		allowed bool
		message string
	}{
		{name: "viewer can read", role: ParticipantViewer, class: ClassRead, allowed: true},
		{name: "viewer cannot write", role: ParticipantViewer, class: ClassWrite, message: "Write access required"},
		{name: "editor can write", role: ParticipantEditor, class: ClassWrite, allowed: true},
		{name: "editor cannot delete", role: ParticipantEditor, class: ClassAdmin, message: "Admin privileges required"},
		{name: "admin can delete", role: ParticipantAdmin, class: ClassAdmin, allowed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{
				creatorID:       "someone-else",
				diagramExists:   true,
				participantRole: tt.role,
				hasParticipant:  true,
			}
			checker := newTestChecker(store)

			decision, err := checker.Decide(context.Background(), "user-1", "diagram-1", tt.class)
			if tt.allowed {
				require.NoError(t, err)
				assert.True(t, decision.Allowed)
				assert.Equal(t, RuleParticipant, decision.Rule)
			} else {
				require.Error(t, err)
				assert.True(t, apierrors.IsCode(err, apierrors.CodeForbidden))
				assert.Contains(t, err.Error(), tt.message)
			}
		})
	}
}

func TestNoRelationshipIsForbidden(t *testing.T) {
	store := &fakeStore{
		creatorID:     "someone-else",
		diagramExists: true,
	}
	checker := newTestChecker(store)

	for _, class := range []MethodClass{ClassRead, ClassWrite, ClassAdmin} {
		_, err := checker.Decide(context.Background(), "user-1", "diagram-1", class)
		require.Error(t, err, "class %s", class)
		assert.True(t, apierrors.IsCode(err, apierrors.CodeForbidden))
		assert.Contains(t, err.Error(), "No access to this diagram")
	}
}

func TestLookupFailureIsInternal(t *testing.T) {
	dbErr := errors.New("connection reset")

	stores := []*fakeStore{
		{creatorErr: dbErr},
		{creatorID: "someone-else", diagramExists: true, teamErr: dbErr},
		{creatorID: "someone-else", diagramExists: true, participantErr: dbErr},
	}

	for i, store := range stores {
		checker := newTestChecker(store)
		_, err := checker.Decide(context.Background(), "user-1", "diagram-1", ClassRead)
		require.Error(t, err, "store %d", i)
		assert.True(t, apierrors.IsCode(err, apierrors.CodeInternal))
		assert.Contains(t, err.Error(), "Authorization check failed")
	}
}

func TestClassForMethod(t *testing.T) {
	assert.Equal(t, ClassRead, ClassForMethod(http.MethodGet))
	assert.Equal(t, ClassRead, ClassForMethod(http.MethodHead))
	assert.Equal(t, ClassWrite, ClassForMethod(http.MethodPost))
	assert.Equal(t, ClassWrite, ClassForMethod(http.MethodPut))
	assert.Equal(t, ClassWrite, ClassForMethod(http.MethodPatch))
	assert.Equal(t, ClassAdmin, ClassForMethod(http.MethodDelete))
}
