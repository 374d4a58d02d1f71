package sequence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/layr-ng/layr-api/pkg/httputil"
)

// PromptRecord is a stored assistant exchange for a diagram.
type PromptRecord struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	DiagramID     string    `json:"diagram_id"`
	Prompt        string    `json:"prompt"`
	ModelResponse string    `json:"model_response"`
	NewSequence   string    `json:"new_sequence"`
	CreatedAt     time.Time `json:"created_at"`
}

// HistoryRecord is a stored sequence revision.
type HistoryRecord struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	DiagramID      string    `json:"diagram_id"`
	FormerSequence string    `json:"former_sequence"`
	NewSequence    string    `json:"new_sequence"`
	Prompt         string    `json:"prompt"`
	ModelResponse  string    `json:"model_response"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store persists assistant exchanges and sequence revisions.
type Store interface {
	CreatePrompt(ctx context.Context, record *PromptRecord) error
	ListPrompts(ctx context.Context, diagramID string, p httputil.Pagination) ([]PromptRecord, error)
	CreateHistory(ctx context.Context, record *HistoryRecord) error
	ListHistory(ctx context.Context, diagramID string, p httputil.Pagination) ([]HistoryRecord, error)
}

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgresStore.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreatePrompt(ctx context.Context, record *PromptRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO diagram_prompts (id, user_id, diagram_id, prompt, model_response, new_sequence)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		record.ID, record.UserID, record.DiagramID, record.Prompt, record.ModelResponse, record.NewSequence,
	)
	if err != nil {
		return fmt.Errorf("failed to insert prompt record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListPrompts(ctx context.Context, diagramID string, p httputil.Pagination) ([]PromptRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, diagram_id, COALESCE(prompt, ''), COALESCE(model_response, ''), COALESCE(new_sequence, ''), created_at
		FROM diagram_prompts
		WHERE diagram_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		diagramID, p.PageSize, p.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}
	defer rows.Close()

	records := []PromptRecord{}
	for rows.Next() {
		record := PromptRecord{}
		if err := rows.Scan(
			&record.ID, &record.UserID, &record.DiagramID,
			&record.Prompt, &record.ModelResponse, &record.NewSequence, &record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan prompt record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *PostgresStore) CreateHistory(ctx context.Context, record *HistoryRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sequence_histories (id, user_id, diagram_id, former_sequence, new_sequence, prompt, model_response)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		record.ID, record.UserID, record.DiagramID,
		record.FormerSequence, record.NewSequence, record.Prompt, record.ModelResponse,
	)
	if err != nil {
		return fmt.Errorf("failed to insert history record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListHistory(ctx context.Context, diagramID string, p httputil.Pagination) ([]HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, diagram_id, COALESCE(former_sequence, ''), COALESCE(new_sequence, ''),
		       COALESCE(prompt, ''), COALESCE(model_response, ''), created_at
		FROM sequence_histories
		WHERE diagram_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		diagramID, p.PageSize, p.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	records := []HistoryRecord{}
	for rows.Next() {
		record := HistoryRecord{}
		if err := rows.Scan(
			&record.ID, &record.UserID, &record.DiagramID,
			&record.FormerSequence, &record.NewSequence,
			&record.Prompt, &record.ModelResponse, &record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
