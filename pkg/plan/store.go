package plan

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore implements Store against PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CountActiveSubscriptions counts subscriptions that are paid and not yet
// expired.
func (s *PostgresStore) CountActiveSubscriptions(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM subscriptions
		WHERE user_id = $1 AND payment_status = 'successful' AND end_date > NOW()`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active subscriptions: %w", err)
	}
	return count, nil
}

// CountDiagrams counts diagrams created by the user.
func (s *PostgresStore) CountDiagrams(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM diagrams WHERE creator_id = $1",
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count diagrams: %w", err)
	}
	return count, nil
}

// CountPublicDiagrams counts public diagrams created by the user.
func (s *PostgresStore) CountPublicDiagrams(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM diagrams WHERE creator_id = $1 AND visibility = 'public'",
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count public diagrams: %w", err)
	}
	return count, nil
}
