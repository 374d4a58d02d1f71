package access

import (
	"context"
	"database/sql"
	"fmt"
)

// Store provides the lookups the checker needs. Implementations must report
// a missing row through the found flag rather than an error.
type Store interface {
	// DiagramCreator returns the creator id of a diagram.
	DiagramCreator(ctx context.Context, diagramID string) (creatorID string, found bool, err error)

	// TeamRole returns the actor's role on the first team the diagram is
	// shared with that the actor belongs to.
	TeamRole(ctx context.Context, diagramID, userID string) (role string, found bool, err error)

	// ParticipantRole returns the actor's direct participant role on the
	// diagram.
	ParticipantRole(ctx context.Context, diagramID, userID string) (role string, found bool, err error)
}

// PostgresStore implements Store against PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// DiagramCreator returns the creator id of a diagram.
func (s *PostgresStore) DiagramCreator(ctx context.Context, diagramID string) (string, bool, error) {
	var creatorID string
	err := s.db.QueryRowContext(ctx,
		"SELECT creator_id FROM diagrams WHERE id = $1",
		diagramID,
	).Scan(&creatorID)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query diagram creator: %w", err)
	}
	return creatorID, true, nil
}

// TeamRole returns the actor's membership role on the first team the diagram
// is shared with. The join is ordered so repeated checks for the same
// diagram and actor always resolve the same membership row.
func (s *PostgresStore) TeamRole(ctx context.Context, diagramID, userID string) (string, bool, error) {
	var role string
	err := s.db.QueryRowContext(ctx, `
		SELECT tm.role
		FROM team_diagrams td
		JOIN team_members tm ON tm.team_id = td.team_id
		WHERE td.diagram_id = $1 AND tm.user_id = $2
		ORDER BY td.created_at, tm.created_at
		LIMIT 1`,
		diagramID, userID,
	).Scan(&role)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query team role: %w", err)
	}
	return role, true, nil
}

// ParticipantRole returns the actor's direct participant role on the diagram.
func (s *PostgresStore) ParticipantRole(ctx context.Context, diagramID, userID string) (string, bool, error) {
	var role string
	err := s.db.QueryRowContext(ctx,
		"SELECT role FROM diagram_participants WHERE diagram_id = $1 AND user_id = $2",
		diagramID, userID,
	).Scan(&role)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query participant role: %w", err)
	}
	return role, true, nil
}
