// Package notifications stores per-user in-app notifications.
package notifications

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/layr-ng/layr-api/pkg/apierrors"
	"github.com/layr-ng/layr-api/pkg/httputil"
)

// Notification statuses.
const (
	StatusUnread   = "unread"
	StatusRead     = "read"
	StatusArchived = "archived"
)

// Notification types.
const (
	TypeDiagramShared = "diagram_shared"
	TypeTeamInvite    = "team_invite"
	TypeTeamUpdate    = "team_update"
	TypeSubscription  = "subscription"
)

// Notification is a single in-app notification.
type Notification struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Metadata  json.RawMessage `json:"metadata"`
	Status    string          `json:"status"`
	ReadAt    *time.Time      `json:"read_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Store persists notifications.
type Store interface {
	Create(ctx context.Context, n *Notification) error
	// CreateTx writes a notification inside a caller-owned transaction so
	// it commits or rolls back with the triggering change.
	CreateTx(ctx context.Context, tx *sql.Tx, n *Notification) error
	ListForUser(ctx context.Context, userID, status string, p httputil.Pagination) ([]Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

// PostgresStore implements Store against PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const insertSQL = `
	INSERT INTO notifications (id, user_id, type, title, metadata, status)
	VALUES ($1, $2, $3, $4, $5, $6)`

func (s *PostgresStore) Create(ctx context.Context, n *Notification) error {
	prepare(n)
	_, err := s.db.ExecContext(ctx, insertSQL,
		n.ID, n.UserID, n.Type, n.Title, n.Metadata, n.Status)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateTx(ctx context.Context, tx *sql.Tx, n *Notification) error {
	prepare(n)
	_, err := tx.ExecContext(ctx, insertSQL,
		n.ID, n.UserID, n.Type, n.Title, n.Metadata, n.Status)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func prepare(n *Notification) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Status == "" {
		n.Status = StatusUnread
	}
	if len(n.Metadata) == 0 {
		n.Metadata = json.RawMessage("{}")
	}
}

func (s *PostgresStore) ListForUser(ctx context.Context, userID, status string, p httputil.Pagination) ([]Notification, error) {
	query := `
		SELECT id, user_id, type, title, metadata, status, read_at, created_at
		FROM notifications
		WHERE user_id = $1`
	args := []interface{}{userID}
	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
	}
	query += fmt.Sprintf(" ORDER BY updated_at DESC LIMIT %d OFFSET %d", p.PageSize, p.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	result := make([]Notification, 0)
	for rows.Next() {
		var n Notification
		var readAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Metadata, &n.Status, &readAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if readAt.Valid {
			n.ReadAt = &readAt.Time
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (s *PostgresStore) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND status = $2`,
		userID, StatusUnread,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id, status string) error {
	var readAt interface{}
	if status == StatusRead {
		readAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE notifications
		SET status = $2, read_at = COALESCE($3, read_at), updated_at = NOW()
		WHERE id = $1`,
		id, status, readAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	return nil
}

// Service wraps the store with validation.
type Service struct {
	store Store
}

// NewService creates the notifications service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// ListForUser returns a page of the user's notifications, optionally
// filtered by status.
func (s *Service) ListForUser(ctx context.Context, userID, status string, p httputil.Pagination) ([]Notification, error) {
	if status != "" && status != StatusUnread && status != StatusRead {
		return nil, apierrors.Validation("Invalid notification status to get")
	}
	rows, err := s.store.ListForUser(ctx, userID, status, p)
	if err != nil {
		return nil, apierrors.Internal("Failed to list notifications", err)
	}
	return rows, nil
}

// UnreadCount returns how many unread notifications the user has.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return 0, apierrors.Internal("Failed to count notifications", err)
	}
	return count, nil
}

// MarkStatus updates a notification's status.
func (s *Service) MarkStatus(ctx context.Context, id, status string) error {
	if status != StatusUnread && status != StatusRead && status != StatusArchived {
		return apierrors.Validation("Invalid notification status")
	}
	if err := s.store.UpdateStatus(ctx, id, status); err != nil {
		return apierrors.Internal("Failed to update notification", err)
	}
	return nil
}
