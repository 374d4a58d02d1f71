// Package users manages user and admin accounts: registration, credential
// checks and password resets.
package users

import "time"

// Account statuses.
const (
	StatusActive  = "active"
	StatusBlocked = "blocked"
)

// User is a registered account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Picture      string    `json:"picture,omitempty"`
	Status       string    `json:"status"`
	AuthStrategy string    `json:"-"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PublicUser is the reduced shape exposed to other users, for example in
// participant listings and email search.
type PublicUser struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Picture  string `json:"picture,omitempty"`
}

// Admin is a platform administrator account. Admins live in their own table
// and never appear in user-facing flows.
type Admin struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Picture      string    `json:"picture,omitempty"`
	Status       string    `json:"status"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// RegisterInput is the payload for creating an account.
type RegisterInput struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

// UpdateInput is the payload for profile updates.
type UpdateInput struct {
	FullName *string `json:"full_name,omitempty"`
	Picture  *string `json:"picture,omitempty"`
}
