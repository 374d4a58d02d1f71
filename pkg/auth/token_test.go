package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layr-ng/layr-api/pkg/apierrors"
)

func newTestManager(t *testing.T) *TokenManager {
	t.Helper()
	tm, err := NewTokenManager(Options{
		SessionSecret:    "session-secret",
		TeamInviteSecret: "invite-secret",
	})
	require.NoError(t, err)
	return tm
}

func TestSessionRoundTrip(t *testing.T) {
	tm := newTestManager(t)

	token, err := tm.SignSession(Actor{ID: "user-1", Kind: ActorUser})
	require.NoError(t, err)

	actor, err := tm.VerifySession(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", actor.ID)
	assert.Equal(t, ActorUser, actor.Kind)
}

func TestSessionAdminKind(t *testing.T) {
	tm := newTestManager(t)

	token, err := tm.SignSession(Actor{ID: "admin-1", Kind: ActorAdmin})
	require.NoError(t, err)

	actor, err := tm.VerifySession(token)
	require.NoError(t, err)
	assert.Equal(t, ActorAdmin, actor.Kind)
}

func TestSessionRejectsGarbage(t *testing.T) {
	tm := newTestManager(t)

	_, err := tm.VerifySession("not-a-token")
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeUnauthorized))
}

func TestSessionRejectsWrongSecret(t *testing.T) {
	tm := newTestManager(t)
	other, err := NewTokenManager(Options{
		SessionSecret:    "different-secret",
		TeamInviteSecret: "invite-secret",
	})
	require.NoError(t, err)

	token, err := other.SignSession(Actor{ID: "user-1", Kind: ActorUser})
	require.NoError(t, err)

	_, err = tm.VerifySession(token)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeUnauthorized))
}

func TestSessionRejectsExpired(t *testing.T) {
	tm, err := NewTokenManager(Options{
		SessionSecret:    "session-secret",
		TeamInviteSecret: "invite-secret",
		SessionTTL:       -time.Minute,
	})
	require.NoError(t, err)

	token, err := tm.SignSession(Actor{ID: "user-1", Kind: ActorUser})
	require.NoError(t, err)

	_, err = tm.VerifySession(token)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeUnauthorized))
}

func TestPurposesAreNotInterchangeable(t *testing.T) {
	tm := newTestManager(t)

	reset, err := tm.SignPasswordReset("user-1")
	require.NoError(t, err)

	// A reset token must never pass as a session.
	_, err = tm.VerifySession(reset)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeUnauthorized))

	// And a session token must never pass as a reset token.
	session, err := tm.SignSession(Actor{ID: "user-1", Kind: ActorUser})
	require.NoError(t, err)
	_, err = tm.VerifyPasswordReset(session)
	assert.Error(t, err)
}

func TestTeamInviteRoundTrip(t *testing.T) {
	tm := newTestManager(t)

	token, err := tm.SignTeamInvite("team-9", "user-4")
	require.NoError(t, err)

	teamID, userID, err := tm.VerifyTeamInvite(token)
	require.NoError(t, err)
	assert.Equal(t, "team-9", teamID)
	assert.Equal(t, "user-4", userID)
}

func TestTeamInviteUsesSeparateSecret(t *testing.T) {
	tm := newTestManager(t)

	// An invite token signed with the session secret must not verify.
	session, err := tm.SignSession(Actor{ID: "user-1", Kind: ActorUser})
	require.NoError(t, err)

	_, _, err = tm.VerifyTeamInvite(session)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeUnauthorized))
}

func TestPasswordResetRoundTrip(t *testing.T) {
	tm := newTestManager(t)

	token, err := tm.SignPasswordReset("user@example.com")
	require.NoError(t, err)

	email, err := tm.VerifyPasswordReset(token)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", email)
}

func TestSessionCookie(t *testing.T) {
	tm := newTestManager(t)

	cookie := tm.SessionCookie("abc")
	assert.Equal(t, "sTk", cookie.Name)
	assert.Equal(t, "abc", cookie.Value)
	assert.True(t, cookie.HttpOnly)

	cleared := tm.ClearSessionCookie()
	assert.Equal(t, "sTk", cleared.Name)
	assert.Equal(t, -1, cleared.MaxAge)
}
