// Package auth issues and verifies the JWT tokens the API uses for sessions,
// password resets and team invitations. All tokens are HMAC-signed.
package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/layr-ng/layr-api/pkg/apierrors"
)

// ActorKind distinguishes regular users from platform administrators.
type ActorKind string

const (
	ActorUser  ActorKind = "user"
	ActorAdmin ActorKind = "admin"
)

// Actor is the authenticated principal attached to a request context.
type Actor struct {
	ID   string
	Kind ActorKind
}

// Token purposes. A token minted for one purpose never verifies as another.
const (
	PurposeSession       = "session"
	PurposePasswordReset = "password_reset"
	PurposeTeamInvite    = "team_invite"
)

// Claims is the JWT claim set shared by all token purposes.
type Claims struct {
	Kind    string `json:"kind,omitempty"`
	Purpose string `json:"purpose"`

	// Session-only fields, informational. They record where the session was
	// opened but are not checked on verification.
	IP         string `json:"ip,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
	AuthMethod string `json:"auth_method,omitempty"`

	// Invite-only field.
	TeamID string `json:"team_id,omitempty"`

	jwt.RegisteredClaims
}

// SessionClient records the client a session was opened from.
type SessionClient struct {
	IP        string
	UserAgent string
}

// TokenManager signs and verifies tokens. Session and reset tokens share the
// auth secret; team invitations use a separate secret so a leaked invite link
// can never be replayed as a session.
type TokenManager struct {
	sessionSecret []byte
	inviteSecret  []byte
	sessionTTL    time.Duration
	resetTTL      time.Duration
	inviteTTL     time.Duration

	cookieName   string
	cookieSecure bool
}

// Options configures a TokenManager.
type Options struct {
	SessionSecret    string
	TeamInviteSecret string
	SessionTTL       time.Duration
	ResetTokenTTL    time.Duration
	InviteTokenTTL   time.Duration
	CookieName       string
	CookieSecure     bool
}

// NewTokenManager creates a token manager from the given options.
func NewTokenManager(opts Options) (*TokenManager, error) {
	if opts.SessionSecret == "" {
		return nil, fmt.Errorf("session secret is required")
	}
	if opts.TeamInviteSecret == "" {
		return nil, fmt.Errorf("team invite secret is required")
	}
	tm := &TokenManager{
		sessionSecret: []byte(opts.SessionSecret),
		inviteSecret:  []byte(opts.TeamInviteSecret),
		sessionTTL:    opts.SessionTTL,
		resetTTL:      opts.ResetTokenTTL,
		inviteTTL:     opts.InviteTokenTTL,
		cookieName:    opts.CookieName,
		cookieSecure:  opts.CookieSecure,
	}
	if tm.sessionTTL == 0 {
		tm.sessionTTL = 24 * time.Hour
	}
	if tm.resetTTL == 0 {
		tm.resetTTL = 15 * time.Minute
	}
	if tm.inviteTTL == 0 {
		tm.inviteTTL = 7 * 24 * time.Hour
	}
	if tm.cookieName == "" {
		tm.cookieName = "sTk"
	}
	return tm, nil
}

// SignSession mints a session token for the given actor.
func (tm *TokenManager) SignSession(actor Actor) (string, error) {
	return tm.SignSessionFor(actor, SessionClient{})
}

// SignSessionFor mints a session token stamped with the opening client.
func (tm *TokenManager) SignSessionFor(actor Actor, client SessionClient) (string, error) {
	now := time.Now()
	claims := Claims{
		Kind:       string(actor.Kind),
		Purpose:    PurposeSession,
		IP:         client.IP,
		UserAgent:  client.UserAgent,
		AuthMethod: "credentials",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.sessionTTL)),
		},
	}
	return tm.sign(claims, tm.sessionSecret)
}

// SignPasswordReset mints a short-lived reset token bound to the account
// email.
func (tm *TokenManager) SignPasswordReset(email string) (string, error) {
	now := time.Now()
	claims := Claims{
		Purpose: PurposePasswordReset,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.resetTTL)),
		},
	}
	return tm.sign(claims, tm.sessionSecret)
}

// SignTeamInvite mints an invitation token binding a team to the invited user.
func (tm *TokenManager) SignTeamInvite(teamID, userID string) (string, error) {
	now := time.Now()
	claims := Claims{
		Purpose: PurposeTeamInvite,
		TeamID:  teamID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.inviteTTL)),
		},
	}
	return tm.sign(claims, tm.inviteSecret)
}

// VerifySession verifies a session token and returns the actor it names.
// Every failure mode maps to the same unauthenticated error so callers
// cannot distinguish a missing token from a forged or expired one.
func (tm *TokenManager) VerifySession(token string) (Actor, error) {
	claims, err := tm.verify(token, tm.sessionSecret)
	if err != nil || claims.Purpose != PurposeSession || claims.Subject == "" {
		return Actor{}, apierrors.Unauthorized("Authentication required")
	}
	kind := ActorKind(claims.Kind)
	if kind != ActorUser && kind != ActorAdmin {
		return Actor{}, apierrors.Unauthorized("Authentication required")
	}
	return Actor{ID: claims.Subject, Kind: kind}, nil
}

// VerifyPasswordReset verifies a reset token and returns the email it was
// minted for.
func (tm *TokenManager) VerifyPasswordReset(token string) (string, error) {
	claims, err := tm.verify(token, tm.sessionSecret)
	if err != nil || claims.Purpose != PurposePasswordReset || claims.Subject == "" {
		return "", apierrors.Unauthorized("Invalid or expired reset token")
	}
	return claims.Subject, nil
}

// VerifyTeamInvite verifies an invitation token and returns the team id and
// the invited user id it was minted for.
func (tm *TokenManager) VerifyTeamInvite(token string) (teamID, userID string, err error) {
	claims, err := tm.verify(token, tm.inviteSecret)
	if err != nil || claims.Purpose != PurposeTeamInvite || claims.TeamID == "" || claims.Subject == "" {
		return "", "", apierrors.Unauthorized("Invalid or expired invitation token.")
	}
	return claims.TeamID, claims.Subject, nil
}

func (tm *TokenManager) sign(claims Claims, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (tm *TokenManager) verify(tokenStr string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}
	return claims, nil
}

// SessionCookie builds the session cookie carrying a signed token.
func (tm *TokenManager) SessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     tm.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(tm.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   tm.cookieSecure,
		SameSite: http.SameSiteNoneMode,
	}
}

// ClearSessionCookie builds an expired cookie that removes the session.
func (tm *TokenManager) ClearSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     tm.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   tm.cookieSecure,
		SameSite: http.SameSiteNoneMode,
	}
}

// TokenFromRequest extracts the session token from the request cookie.
func (tm *TokenManager) TokenFromRequest(r *http.Request) (string, error) {
	cookie, err := r.Cookie(tm.cookieName)
	if err != nil || cookie.Value == "" {
		return "", apierrors.Unauthorized("Authentication required")
	}
	return cookie.Value, nil
}
