// Package contextkeys provides centralized context key definitions.
//
// All context keys used across the application must be defined here. This
// prevents typos and makes key usage discoverable.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// ActorKey contains *auth.Actor
	// Set by: middleware.SessionMiddleware (pkg/middleware/session.go)
	// Required by: all authenticated endpoints, access middleware
	ActorKey Key = "actor"

	// PaginationKey contains *httputil.Pagination
	// Set by: middleware.Pagination
	PaginationKey Key = "pagination"

	// RequestIDKey contains the request ID string (UUID)
	// Set by: middleware.RequestID
	RequestIDKey Key = "request_id"
)

// WithValue stores a value under a Key.
func WithValue(ctx context.Context, key Key, value interface{}) context.Context {
	return context.WithValue(ctx, key, value)
}

// Value retrieves a value stored under a Key, or nil.
func Value(ctx context.Context, key Key) interface{} {
	return ctx.Value(key)
}
