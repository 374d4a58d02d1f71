package teams

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layr-ng/layr-api/pkg/apierrors"
	"github.com/layr-ng/layr-api/pkg/auth"
	"github.com/layr-ng/layr-api/pkg/email"
	"github.com/layr-ng/layr-api/pkg/observability"
	"github.com/layr-ng/layr-api/pkg/users"
)

type fakeStore struct {
	Store

	creatorID string
	member    *Member
	team      *Team

	created       []*Member
	roleUpdates   []string
	removed       []string
	invitations   []string
	existingCount int
	addedDiagrams []string
}

func (f *fakeStore) GetCreatorID(ctx context.Context, teamID string) (string, error) {
	if f.creatorID == "" {
		return "", ErrNotFound
	}
	return f.creatorID, nil
}

func (f *fakeStore) GetByID(ctx context.Context, id string) (*Team, error) {
	if f.team == nil {
		return nil, ErrNotFound
	}
	return f.team, nil
}

func (f *fakeStore) GetMember(ctx context.Context, teamID, userID string) (*Member, error) {
	if f.member == nil {
		return nil, ErrNotFound
	}
	return f.member, nil
}

func (f *fakeStore) GetActiveMember(ctx context.Context, teamID, userID string) (*Member, error) {
	if f.member == nil ||
		f.member.InvitationStatus != InvitationAccepted ||
		f.member.MembershipStatus != MembershipActive {
		return nil, ErrNotFound
	}
	return f.member, nil
}

func (f *fakeStore) CreateMember(ctx context.Context, member *Member) error {
	f.created = append(f.created, member)
	return nil
}

func (f *fakeStore) UpdateMemberRole(ctx context.Context, teamID, userID, role string) error {
	f.roleUpdates = append(f.roleUpdates, role)
	return nil
}

func (f *fakeStore) UpdateInvitation(ctx context.Context, teamID, userID, invitationStatus, membershipStatus string, dateJoined *time.Time) error {
	f.invitations = append(f.invitations, invitationStatus+"/"+membershipStatus)
	return nil
}

func (f *fakeStore) RemoveMember(ctx context.Context, teamID, userID string) error {
	f.removed = append(f.removed, userID)
	return nil
}

func (f *fakeStore) CountExistingDiagrams(ctx context.Context, teamID string, diagramIDs []string) (int, error) {
	return f.existingCount, nil
}

func (f *fakeStore) AddDiagrams(ctx context.Context, teamID, authorID string, diagramIDs []string) error {
	f.addedDiagrams = append(f.addedDiagrams, diagramIDs...)
	return nil
}

type fakeDirectory struct {
	byEmail map[string]*users.User
	byID    map[string]*users.User
}

func (f *fakeDirectory) GetUserByEmail(ctx context.Context, email string) (*users.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, users.ErrNotFound
}

func (f *fakeDirectory) GetUserByID(ctx context.Context, id string) (*users.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, users.ErrNotFound
}

type capturingSender struct {
	messages []email.Message
}

func (c *capturingSender) Send(ctx context.Context, msg email.Message) error {
	c.messages = append(c.messages, msg)
	return nil
}

func newTestService(t *testing.T, store Store, dir UserDirectory, sender email.Sender) (*Service, *auth.TokenManager) {
	t.Helper()
	tokens, err := auth.NewTokenManager(auth.Options{
		SessionSecret:    "session-secret",
		TeamInviteSecret: "invite-secret",
	})
	require.NoError(t, err)
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	return NewService(store, dir, tokens, sender, logger, "https://app.example.com"), tokens
}

func inviteDirectory() *fakeDirectory {
	invitee := &users.User{ID: "user-2", Email: "ada@example.com", FullName: "Ada"}
	inviter := &users.User{ID: "user-1", FullName: "Grace"}
	return &fakeDirectory{
		byEmail: map[string]*users.User{"ada@example.com": invitee},
		byID:    map[string]*users.User{"user-1": inviter, "user-2": invitee},
	}
}

func TestSendInviteCreatesPendingMemberAndMails(t *testing.T) {
	store := &fakeStore{team: &Team{ID: "team-1", Title: "Design"}}
	sender := &capturingSender{}
	svc, _ := newTestService(t, store, inviteDirectory(), sender)

	err := svc.SendInvite(context.Background(), "team-1", "user-1", " Ada@Example.com ", RoleEditor)
	require.NoError(t, err)

	require.Len(t, store.created, 1)
	member := store.created[0]
	assert.Equal(t, "user-2", member.UserID)
	assert.Equal(t, RoleEditor, member.Role)
	assert.Equal(t, InvitationInvited, member.InvitationStatus)
	assert.Equal(t, MembershipInactive, member.MembershipStatus)
	assert.NotNil(t, member.DateInvited)

	require.Len(t, sender.messages, 1)
	assert.Equal(t, "ada@example.com", sender.messages[0].To)
	assert.Contains(t, sender.messages[0].HTML, "accept_invite/teams/")
}

func TestSendInviteRequiresRegisteredUser(t *testing.T) {
	store := &fakeStore{team: &Team{ID: "team-1", Title: "Design"}}
	svc, _ := newTestService(t, store, &fakeDirectory{}, &capturingSender{})

	err := svc.SendInvite(context.Background(), "team-1", "user-1", "nobody@example.com", RoleEditor)
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeValidation))
	assert.Contains(t, err.Error(), "User must be signed up")
}

func TestSendInviteRejectsBlockedMember(t *testing.T) {
	store := &fakeStore{
		team:   &Team{ID: "team-1", Title: "Design"},
		member: &Member{UserID: "user-2", MembershipStatus: MembershipBlocked},
	}
	svc, _ := newTestService(t, store, inviteDirectory(), &capturingSender{})

	err := svc.SendInvite(context.Background(), "team-1", "user-1", "ada@example.com", RoleEditor)
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeConflict))
	assert.Contains(t, err.Error(), "previously blocked")
}

func TestSendInviteRejectsExistingActiveMember(t *testing.T) {
	joined := time.Now()
	store := &fakeStore{
		team: &Team{ID: "team-1", Title: "Design"},
		member: &Member{
			UserID:           "user-2",
			Role:             RoleEditor,
			InvitationStatus: InvitationAccepted,
			MembershipStatus: MembershipActive,
			DateJoined:       &joined,
		},
	}
	svc, _ := newTestService(t, store, inviteDirectory(), &capturingSender{})

	err := svc.SendInvite(context.Background(), "team-1", "user-1", "ada@example.com", RoleEditor)
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeConflict))
	assert.Contains(t, err.Error(), "already a member")
}

func TestSendInviteRefreshesRoleOnPendingInvite(t *testing.T) {
	store := &fakeStore{
		team: &Team{ID: "team-1", Title: "Design"},
		member: &Member{
			UserID:           "user-2",
			Role:             RoleViewer,
			InvitationStatus: InvitationInvited,
			MembershipStatus: MembershipInactive,
		},
	}
	sender := &capturingSender{}
	svc, _ := newTestService(t, store, inviteDirectory(), sender)

	require.NoError(t, svc.SendInvite(context.Background(), "team-1", "user-1", "ada@example.com", RoleAdmin))
	assert.Equal(t, []string{RoleAdmin}, store.roleUpdates)
	assert.Empty(t, store.created)
	assert.Len(t, sender.messages, 1)
}

func TestHandleInvitationAccept(t *testing.T) {
	store := &fakeStore{
		team:   &Team{ID: "team-1", Title: "Design"},
		member: &Member{UserID: "user-2", AuthorID: "user-1", Role: RoleEditor, InvitationStatus: InvitationInvited},
	}
	svc, tokens := newTestService(t, store, inviteDirectory(), &capturingSender{})

	token, err := tokens.SignTeamInvite("team-1", "user-2")
	require.NoError(t, err)

	_, teamID, err := svc.HandleInvitation(context.Background(), "user-2", token, InviteActionAccept)
	require.NoError(t, err)
	assert.Equal(t, "team-1", teamID)
	assert.Equal(t, []string{"accepted/active"}, store.invitations)
}

func TestHandleInvitationDeclineRemovesRow(t *testing.T) {
	store := &fakeStore{
		team:   &Team{ID: "team-1", Title: "Design"},
		member: &Member{UserID: "user-2", AuthorID: "user-1", InvitationStatus: InvitationInvited},
	}
	svc, tokens := newTestService(t, store, inviteDirectory(), &capturingSender{})

	token, err := tokens.SignTeamInvite("team-1", "user-2")
	require.NoError(t, err)

	_, _, err = svc.HandleInvitation(context.Background(), "user-2", token, InviteActionDecline)
	require.NoError(t, err)
	assert.Equal(t, []string{"user-2"}, store.removed)
	assert.Empty(t, store.invitations)
}

func TestHandleInvitationVerifyReturnsLandingData(t *testing.T) {
	store := &fakeStore{
		team:   &Team{ID: "team-1", Title: "Design"},
		member: &Member{UserID: "user-2", AuthorID: "user-1", Role: RoleEditor, InvitationStatus: InvitationInvited},
	}
	svc, tokens := newTestService(t, store, inviteDirectory(), &capturingSender{})

	token, err := tokens.SignTeamInvite("team-1", "user-2")
	require.NoError(t, err)

	data, _, err := svc.HandleInvitation(context.Background(), "user-2", token, InviteActionVerify)
	require.NoError(t, err)
	assert.Equal(t, "Design", data.TeamName)
	assert.Equal(t, "Grace", data.InviterName)
	assert.Equal(t, RoleEditor, data.Role)
	assert.True(t, data.IsValid)
}

func TestHandleInvitationRejectsWrongUser(t *testing.T) {
	store := &fakeStore{
		member: &Member{UserID: "user-2", InvitationStatus: InvitationInvited},
	}
	svc, tokens := newTestService(t, store, inviteDirectory(), &capturingSender{})

	token, err := tokens.SignTeamInvite("team-1", "user-2")
	require.NoError(t, err)

	_, _, err = svc.HandleInvitation(context.Background(), "user-9", token, InviteActionAccept)
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeUnauthorized))
	assert.Contains(t, err.Error(), "not authorized to view, accept or decline")
}

func TestHandleInvitationRejectsGarbageToken(t *testing.T) {
	svc, _ := newTestService(t, &fakeStore{}, inviteDirectory(), &capturingSender{})

	_, _, err := svc.HandleInvitation(context.Background(), "user-2", "not-a-token", InviteActionAccept)
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeUnauthorized))
}

func TestHandleInvitationAlreadyAccepted(t *testing.T) {
	store := &fakeStore{
		member: &Member{UserID: "user-2", InvitationStatus: InvitationAccepted},
	}
	svc, tokens := newTestService(t, store, inviteDirectory(), &capturingSender{})

	token, err := tokens.SignTeamInvite("team-1", "user-2")
	require.NoError(t, err)

	_, _, err = svc.HandleInvitation(context.Background(), "user-2", token, InviteActionAccept)
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeConflict))
}

func TestLeaveBlocksCreator(t *testing.T) {
	store := &fakeStore{
		creatorID: "user-1",
		member:    &Member{UserID: "user-1", Role: RoleOwner},
	}
	svc, _ := newTestService(t, store, inviteDirectory(), &capturingSender{})

	err := svc.Leave(context.Background(), "team-1", "user-1")
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeForbidden))
	assert.Contains(t, err.Error(), "Team creator cannot be removed")
	assert.Empty(t, store.removed)
}

func TestLeaveRemovesMembership(t *testing.T) {
	store := &fakeStore{
		creatorID: "user-1",
		member:    &Member{UserID: "user-2", Role: RoleEditor},
	}
	svc, _ := newTestService(t, store, inviteDirectory(), &capturingSender{})

	require.NoError(t, svc.Leave(context.Background(), "team-1", "user-2"))
	assert.Equal(t, []string{"user-2"}, store.removed)
}

func TestLeaveWithoutMembership(t *testing.T) {
	store := &fakeStore{creatorID: "user-1"}
	svc, _ := newTestService(t, store, inviteDirectory(), &capturingSender{})

	err := svc.Leave(context.Background(), "team-1", "user-2")
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeValidation))
	assert.Contains(t, err.Error(), "not a member of this team or already left")
}

func TestRemoveMemberBlocksCreator(t *testing.T) {
	store := &fakeStore{creatorID: "user-1"}
	svc, _ := newTestService(t, store, inviteDirectory(), &capturingSender{})

	err := svc.RemoveMember(context.Background(), "team-1", "user-1")
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeForbidden))
	assert.Empty(t, store.removed)
}

func TestAuthorizeRequiresActiveMembership(t *testing.T) {
	store := &fakeStore{
		creatorID: "user-1",
		member:    &Member{UserID: "user-2", Role: RoleEditor, InvitationStatus: InvitationInvited, MembershipStatus: MembershipInactive},
	}
	svc, _ := newTestService(t, store, inviteDirectory(), &capturingSender{})

	_, err := svc.Authorize(context.Background(), "team-1", "user-2")
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeForbidden))
	assert.Contains(t, err.Error(), "not a member of this team")
}

func TestAuthorizeRoleRestriction(t *testing.T) {
	store := &fakeStore{
		creatorID: "user-1",
		member: &Member{
			UserID:           "user-2",
			Role:             RoleViewer,
			InvitationStatus: InvitationAccepted,
			MembershipStatus: MembershipActive,
		},
	}
	svc, _ := newTestService(t, store, inviteDirectory(), &capturingSender{})

	_, err := svc.Authorize(context.Background(), "team-1", "user-2", RoleOwner, RoleAdmin)
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeForbidden))
	assert.Contains(t, err.Error(), "Insufficient team privileges")

	member, err := svc.Authorize(context.Background(), "team-1", "user-2", RoleViewer, RoleEditor)
	require.NoError(t, err)
	assert.Equal(t, RoleViewer, member.Role)
}

func TestAuthorizeMissingTeam(t *testing.T) {
	svc, _ := newTestService(t, &fakeStore{}, inviteDirectory(), &capturingSender{})

	_, err := svc.Authorize(context.Background(), "team-9", "user-2")
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeNotFound))
}

func TestAddDiagramsRejectsDuplicates(t *testing.T) {
	store := &fakeStore{existingCount: 1}
	svc, _ := newTestService(t, store, inviteDirectory(), &capturingSender{})

	err := svc.AddDiagrams(context.Background(), "team-1", "user-1", []string{"d1", "d2"})
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeConflict))
	assert.Contains(t, err.Error(), "already added to team")
	assert.Empty(t, store.addedDiagrams)
}

func TestAddDiagramsBatch(t *testing.T) {
	store := &fakeStore{}
	svc, _ := newTestService(t, store, inviteDirectory(), &capturingSender{})

	require.NoError(t, svc.AddDiagrams(context.Background(), "team-1", "user-1", []string{"d1", "d2"}))
	assert.Equal(t, []string{"d1", "d2"}, store.addedDiagrams)
}

func TestSendInviteNormalizesEmail(t *testing.T) {
	store := &fakeStore{team: &Team{ID: "team-1", Title: "Design"}}
	sender := &capturingSender{}
	svc, _ := newTestService(t, store, inviteDirectory(), sender)

	require.NoError(t, svc.SendInvite(context.Background(), "team-1", "user-1", "ADA@EXAMPLE.COM", RoleViewer))
	require.Len(t, sender.messages, 1)
	assert.True(t, strings.HasPrefix(sender.messages[0].To, "ada@"))
}
