// Package diagrams implements diagram CRUD, participant management, groups,
// public sharing and thumbnails.
package diagrams

import (
	"encoding/json"
	"time"

	"github.com/layr-ng/layr-api/pkg/users"
)

// Diagram visibility values.
const (
	VisibilityPublic = "public"
	VisibilityHidden = "hidden"
)

// Participant roles.
const (
	RoleViewer = "viewer"
	RoleEditor = "editor"
	RoleAdmin  = "admin"
)

// Diagram is a sequence diagram document.
type Diagram struct {
	ID                 string            `json:"id"`
	Title              string            `json:"title"`
	Description        string            `json:"description,omitempty"`
	Sequence           string            `json:"sequence"`
	Tags               []string          `json:"tags,omitempty"`
	Visibility         string            `json:"visibility"`
	ThumbnailURL       string            `json:"thumbnail_url,omitempty"`
	ThumbnailUpdatedAt *time.Time        `json:"thumbnail_updated_at,omitempty"`
	GroupID            string            `json:"group_id,omitempty"`
	CreatorID          string            `json:"creator_id,omitempty"`
	Metadata           json.RawMessage   `json:"metadata,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
	Creator            *users.PublicUser `json:"creator,omitempty"`
	Participants       []Participant     `json:"participants,omitempty"`
}

// PublicDiagram is the reduced shape served on the public share endpoint.
// Creator and group references are stripped.
type PublicDiagram struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Sequence   string    `json:"sequence"`
	Visibility string    `json:"visibility"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Participant links a user to a diagram with a role.
type Participant struct {
	UserID    string            `json:"user_id"`
	Role      string            `json:"role"`
	IsCreator bool              `json:"is_creator"`
	Info      *users.PublicUser `json:"info,omitempty"`
}

// Group is a user-owned folder of diagrams.
type Group struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CreatorID   string    `json:"creator_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UpdateInput is a partial diagram update. Nil fields are left unchanged.
type UpdateInput struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Visibility  *string `json:"visibility,omitempty"`
}

// GroupInput creates or updates a group.
type GroupInput struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}
