// Package teams implements shared workspaces: team lifecycle, invitation
// flow, membership management and the diagrams a team collects.
package teams

import (
	"errors"
	"time"

	"github.com/layr-ng/layr-api/pkg/users"
)

// ErrNotFound is returned when a team, member or invitation does not exist.
var ErrNotFound = errors.New("teams: not found")

// Team member roles.
const (
	RoleViewer = "viewer"
	RoleEditor = "editor"
	RoleAdmin  = "admin"
	RoleOwner  = "owner"
)

// Invitation statuses.
const (
	InvitationInvited  = "invited"
	InvitationAccepted = "accepted"
	InvitationDeclined = "declined"
)

// Membership statuses.
const (
	MembershipActive   = "active"
	MembershipBlocked  = "blocked"
	MembershipInactive = "inactive"
	MembershipLeft     = "left"
)

// Team is a shared workspace owned by its creator.
type Team struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CreatorID   string    `json:"creator_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Creator *users.PublicUser `json:"creator,omitempty"`

	// Populated on list and detail views.
	TotalDiagrams int           `json:"total_diagrams"`
	TotalMembers  int           `json:"total_members"`
	Members       []Member      `json:"members,omitempty"`
	Diagrams      []TeamDiagram `json:"diagrams,omitempty"`
}

// Member is a user's membership row on a team. AuthorID names who sent the
// invitation; it is empty for the owner row created with the team.
type Member struct {
	ID               string     `json:"id"`
	TeamID           string     `json:"team_id"`
	UserID           string     `json:"user_id"`
	AuthorID         string     `json:"author_id,omitempty"`
	Role             string     `json:"role"`
	InvitationStatus string     `json:"invitation_status"`
	MembershipStatus string     `json:"membership_status"`
	DateInvited      *time.Time `json:"date_invited,omitempty"`
	DateJoined       *time.Time `json:"date_joined,omitempty"`

	User *users.PublicUser `json:"user,omitempty"`
}

// DiagramRef is the reduced diagram shape embedded in team views.
type DiagramRef struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Visibility   string    `json:"visibility"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Creator *users.PublicUser `json:"creator,omitempty"`
}

// TeamDiagram links a diagram into a team.
type TeamDiagram struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"team_id"`
	DiagramID string    `json:"diagram_id"`
	DateAdded time.Time `json:"date_added"`

	Diagram *DiagramRef       `json:"diagram,omitempty"`
	Author  *users.PublicUser `json:"author,omitempty"`
}

// UpdateInput carries a partial team update. Nil fields are left unchanged.
type UpdateInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// InvitationData is what the client renders on the invitation landing page.
type InvitationData struct {
	TeamName      string `json:"teamName"`
	InviterName   string `json:"inviterName"`
	InviterAvatar string `json:"inviterAvatar,omitempty"`
	Role          string `json:"role"`
	IsValid       bool   `json:"isValid"`
}

// Invitation actions accepted by HandleInvitation.
const (
	InviteActionAccept  = "accept"
	InviteActionDecline = "decline"
	InviteActionVerify  = "verify"
)

// ValidRole reports whether role is an assignable member role.
func ValidRole(role string) bool {
	switch role {
	case RoleViewer, RoleEditor, RoleAdmin, RoleOwner:
		return true
	}
	return false
}
