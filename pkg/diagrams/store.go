package diagrams

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/layr-ng/layr-api/pkg/httputil"
	"github.com/layr-ng/layr-api/pkg/notifications"
	"github.com/layr-ng/layr-api/pkg/users"
)

// ErrNotFound is returned by lookups when no row matches.
var ErrNotFound = sql.ErrNoRows

// Store persists diagrams, participants and groups.
type Store interface {
	CreateWithCreator(ctx context.Context, diagram *Diagram) error
	GetByID(ctx context.Context, id string) (*Diagram, error)
	GetPublicByID(ctx context.Context, id string) (*PublicDiagram, error)
	ListForParticipant(ctx context.Context, userID string, filter ParticipantFilter, p httputil.Pagination) ([]Diagram, error)
	Update(ctx context.Context, id string, input UpdateInput) error
	UpdateSequence(ctx context.Context, id, sequence string) error
	SetVisibility(ctx context.Context, id, visibility string) error
	SetThumbnail(ctx context.Context, id, thumbnailURL string) error
	DeleteOwned(ctx context.Context, id, creatorID string) error
	ListAll(ctx context.Context, p httputil.Pagination) ([]Diagram, error)

	CountParticipant(ctx context.Context, diagramID, userID string) (int, error)
	AddParticipantWithNotification(ctx context.Context, participant *Participant, diagramID string, n *notifications.Notification) error
	RemoveParticipant(ctx context.Context, diagramID, userID string) error
	ListParticipants(ctx context.Context, diagramID string, p httputil.Pagination) ([]Participant, error)

	CreateGroup(ctx context.Context, group *Group) error
	GetGroup(ctx context.Context, id string) (*Group, error)
	ListGroups(ctx context.Context, creatorID string, p httputil.Pagination) ([]Group, error)
	UpdateGroup(ctx context.Context, id, creatorID string, input GroupInput) error
	DeleteGroupAndUnlink(ctx context.Context, id, creatorID string) error
	AssignGroup(ctx context.Context, diagramID string, groupID *string) error
	ListGroupDiagrams(ctx context.Context, groupID, creatorID string) ([]Diagram, error)
}

// ParticipantFilter scopes diagram listings by the caller's relationship.
type ParticipantFilter int

const (
	FilterAll ParticipantFilter = iota
	FilterOwned
	FilterShared
)

// PostgresStore implements Store against PostgreSQL.
type PostgresStore struct {
	db            *sql.DB
	notifications notifications.Store
}

// NewPostgresStore creates a new store. The notifications store is used for
// transactional participant notifications.
func NewPostgresStore(db *sql.DB, notificationStore notifications.Store) *PostgresStore {
	return &PostgresStore{db: db, notifications: notificationStore}
}

// CreateWithCreator inserts the diagram and its creator participant row in
// one transaction. Either both exist afterwards or neither does.
func (s *PostgresStore) CreateWithCreator(ctx context.Context, diagram *Diagram) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO diagrams (id, title, sequence, visibility, creator_id)
		VALUES ($1, $2, $3, $4, $5)`,
		diagram.ID, diagram.Title, diagram.Sequence, diagram.Visibility, diagram.CreatorID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert diagram: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO diagram_participants (id, diagram_id, user_id, role, is_creator)
		VALUES ($1, $2, $3, $4, TRUE)`,
		uuid.NewString(), diagram.ID, diagram.CreatorID, RoleAdmin,
	)
	if err != nil {
		return fmt.Errorf("failed to insert creator participant: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit diagram creation: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*Diagram, error) {
	d := &Diagram{}
	var description, thumbnailURL, groupID sql.NullString
	var thumbnailUpdatedAt sql.NullTime
	var creator users.PublicUser
	var creatorPicture sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT d.id, d.title, d.description, d.sequence, d.tags, d.visibility,
		       d.thumbnail_url, d.thumbnail_updated_at, d.group_id, d.creator_id,
		       d.metadata, d.created_at, d.updated_at,
		       u.id, u.full_name, u.picture
		FROM diagrams d
		JOIN users u ON u.id = d.creator_id
		WHERE d.id = $1`,
		id,
	).Scan(
		&d.ID, &d.Title, &description, &d.Sequence, pq.Array(&d.Tags), &d.Visibility,
		&thumbnailURL, &thumbnailUpdatedAt, &groupID, &d.CreatorID,
		&d.Metadata, &d.CreatedAt, &d.UpdatedAt,
		&creator.ID, &creator.FullName, &creatorPicture,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get diagram: %w", err)
	}

	d.Description = description.String
	d.ThumbnailURL = thumbnailURL.String
	d.GroupID = groupID.String
	if thumbnailUpdatedAt.Valid {
		d.ThumbnailUpdatedAt = &thumbnailUpdatedAt.Time
	}
	creator.Picture = creatorPicture.String
	d.Creator = &creator

	participants, err := s.ListParticipants(ctx, id, httputil.Pagination{PageSize: 100})
	if err != nil {
		return nil, err
	}
	d.Participants = participants
	return d, nil
}

func (s *PostgresStore) GetPublicByID(ctx context.Context, id string) (*PublicDiagram, error) {
	d := &PublicDiagram{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, sequence, visibility, updated_at
		FROM diagrams
		WHERE id = $1 AND visibility = 'public'`,
		id,
	).Scan(&d.ID, &d.Title, &d.Sequence, &d.Visibility, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get public diagram: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) ListForParticipant(ctx context.Context, userID string, filter ParticipantFilter, p httputil.Pagination) ([]Diagram, error) {
	cond := ""
	switch filter {
	case FilterOwned:
		cond = " AND dp.is_creator = TRUE"
	case FilterShared:
		cond = " AND dp.is_creator = FALSE"
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.title, d.description, d.sequence, d.tags, d.visibility,
		       d.thumbnail_url, d.thumbnail_updated_at, d.group_id, d.creator_id,
		       d.created_at, d.updated_at,
		       u.id, u.full_name, u.picture
		FROM diagrams d
		JOIN diagram_participants dp ON dp.diagram_id = d.id
		JOIN users u ON u.id = d.creator_id
		WHERE dp.user_id = $1`+cond+`
		ORDER BY d.updated_at DESC
		LIMIT $2 OFFSET $3`,
		userID, p.PageSize, p.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list diagrams: %w", err)
	}
	defer rows.Close()

	return scanDiagramRows(rows)
}

func (s *PostgresStore) ListAll(ctx context.Context, p httputil.Pagination) ([]Diagram, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.title, d.description, d.sequence, d.tags, d.visibility,
		       d.thumbnail_url, d.thumbnail_updated_at, d.group_id, d.creator_id,
		       d.created_at, d.updated_at,
		       u.id, u.full_name, u.picture
		FROM diagrams d
		JOIN users u ON u.id = d.creator_id
		ORDER BY d.updated_at DESC
		LIMIT $1 OFFSET $2`,
		p.PageSize, p.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list diagrams: %w", err)
	}
	defer rows.Close()

	return scanDiagramRows(rows)
}

func scanDiagramRows(rows *sql.Rows) ([]Diagram, error) {
	result := make([]Diagram, 0)
	for rows.Next() {
		var d Diagram
		var description, thumbnailURL, groupID sql.NullString
		var thumbnailUpdatedAt sql.NullTime
		var creator users.PublicUser
		var creatorPicture sql.NullString

		if err := rows.Scan(
			&d.ID, &d.Title, &description, &d.Sequence, pq.Array(&d.Tags), &d.Visibility,
			&thumbnailURL, &thumbnailUpdatedAt, &groupID, &d.CreatorID,
			&d.CreatedAt, &d.UpdatedAt,
			&creator.ID, &creator.FullName, &creatorPicture,
		); err != nil {
			return nil, fmt.Errorf("failed to scan diagram: %w", err)
		}
		d.Description = description.String
		d.ThumbnailURL = thumbnailURL.String
		d.GroupID = groupID.String
		if thumbnailUpdatedAt.Valid {
			d.ThumbnailUpdatedAt = &thumbnailUpdatedAt.Time
		}
		creator.Picture = creatorPicture.String
		d.Creator = &creator
		result = append(result, d)
	}
	return result, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, id string, input UpdateInput) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE diagrams
		SET title = COALESCE($2, title),
		    description = COALESCE($3, description),
		    visibility = COALESCE($4, visibility),
		    updated_at = NOW()
		WHERE id = $1`,
		id, input.Title, input.Description, input.Visibility,
	)
	if err != nil {
		return fmt.Errorf("failed to update diagram: %w", err)
	}
	return nil
}

// GetSequence returns just the diagram's sequence text. The AI assistant
// reads through this to avoid loading participants.
func (s *PostgresStore) GetSequence(ctx context.Context, id string) (string, error) {
	var sequence string
	err := s.db.QueryRowContext(ctx,
		"SELECT sequence FROM diagrams WHERE id = $1", id,
	).Scan(&sequence)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load sequence: %w", err)
	}
	return sequence, nil
}

func (s *PostgresStore) UpdateSequence(ctx context.Context, id, sequence string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE diagrams SET sequence = $2, updated_at = NOW() WHERE id = $1",
		id, sequence,
	)
	if err != nil {
		return fmt.Errorf("failed to update sequence: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetVisibility(ctx context.Context, id, visibility string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE diagrams SET visibility = $2, updated_at = NOW() WHERE id = $1",
		id, visibility,
	)
	if err != nil {
		return fmt.Errorf("failed to set visibility: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetThumbnail(ctx context.Context, id, thumbnailURL string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE diagrams
		SET thumbnail_url = $2, thumbnail_updated_at = $3, updated_at = NOW()
		WHERE id = $1`,
		id, thumbnailURL, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to set thumbnail: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteOwned(ctx context.Context, id, creatorID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM diagrams WHERE id = $1 AND creator_id = $2",
		id, creatorID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete diagram: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountParticipant(ctx context.Context, diagramID, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM diagram_participants WHERE diagram_id = $1 AND user_id = $2",
		diagramID, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}
	return count, nil
}

// AddParticipantWithNotification inserts the participant row and the
// notification for the added user in one transaction.
func (s *PostgresStore) AddParticipantWithNotification(ctx context.Context, participant *Participant, diagramID string, n *notifications.Notification) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO diagram_participants (id, diagram_id, user_id, role, is_creator)
		VALUES ($1, $2, $3, $4, FALSE)`,
		uuid.NewString(), diagramID, participant.UserID, participant.Role,
	)
	if err != nil {
		return fmt.Errorf("failed to insert participant: %w", err)
	}

	if err := s.notifications.CreateTx(ctx, tx, n); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit participant add: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveParticipant(ctx context.Context, diagramID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM diagram_participants WHERE diagram_id = $1 AND user_id = $2",
		diagramID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListParticipants(ctx context.Context, diagramID string, p httputil.Pagination) ([]Participant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT dp.user_id, dp.role, dp.is_creator, u.id, u.full_name, u.picture
		FROM diagram_participants dp
		JOIN users u ON u.id = dp.user_id
		WHERE dp.diagram_id = $1
		ORDER BY dp.created_at
		LIMIT $2 OFFSET $3`,
		diagramID, p.PageSize, p.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	result := make([]Participant, 0)
	for rows.Next() {
		var part Participant
		var info users.PublicUser
		var picture sql.NullString
		if err := rows.Scan(&part.UserID, &part.Role, &part.IsCreator, &info.ID, &info.FullName, &picture); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		info.Picture = picture.String
		part.Info = &info
		result = append(result, part)
	}
	return result, rows.Err()
}

func (s *PostgresStore) CreateGroup(ctx context.Context, group *Group) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO groups (id, title, description, creator_id)
		VALUES ($1, $2, $3, $4)`,
		group.ID, group.Title, group.Description, group.CreatorID,
	)
	if err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetGroup(ctx context.Context, id string) (*Group, error) {
	g := &Group{}
	var description sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, creator_id, created_at, updated_at
		FROM groups WHERE id = $1`,
		id,
	).Scan(&g.ID, &g.Title, &description, &g.CreatorID, &g.CreatedAt, &g.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	g.Description = description.String
	return g, nil
}

func (s *PostgresStore) ListGroups(ctx context.Context, creatorID string, p httputil.Pagination) ([]Group, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, creator_id, created_at, updated_at
		FROM groups
		WHERE creator_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		creatorID, p.PageSize, p.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	result := make([]Group, 0)
	for rows.Next() {
		var g Group
		var description sql.NullString
		if err := rows.Scan(&g.ID, &g.Title, &description, &g.CreatorID, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		g.Description = description.String
		result = append(result, g)
	}
	return result, rows.Err()
}

func (s *PostgresStore) UpdateGroup(ctx context.Context, id, creatorID string, input GroupInput) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE groups
		SET title = COALESCE(NULLIF($3, ''), title),
		    description = COALESCE(NULLIF($4, ''), description),
		    updated_at = NOW()
		WHERE id = $1 AND creator_id = $2`,
		id, creatorID, input.Title, input.Description,
	)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	return nil
}

// DeleteGroupAndUnlink detaches diagrams from the group and removes it in
// one transaction.
func (s *PostgresStore) DeleteGroupAndUnlink(ctx context.Context, id, creatorID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"UPDATE diagrams SET group_id = NULL WHERE group_id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to unlink diagrams: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"DELETE FROM groups WHERE id = $1 AND creator_id = $2", id, creatorID)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit group delete: %w", err)
	}
	return nil
}

func (s *PostgresStore) AssignGroup(ctx context.Context, diagramID string, groupID *string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE diagrams SET group_id = $2, updated_at = NOW() WHERE id = $1",
		diagramID, groupID,
	)
	if err != nil {
		return fmt.Errorf("failed to assign group: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListGroupDiagrams(ctx context.Context, groupID, creatorID string) ([]Diagram, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.title, d.description, d.sequence, d.tags, d.visibility,
		       d.thumbnail_url, d.thumbnail_updated_at, d.group_id, d.creator_id,
		       d.created_at, d.updated_at,
		       u.id, u.full_name, u.picture
		FROM diagrams d
		JOIN groups g ON g.id = d.group_id
		JOIN users u ON u.id = d.creator_id
		WHERE d.group_id = $1 AND g.creator_id = $2
		ORDER BY d.updated_at DESC`,
		groupID, creatorID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list group diagrams: %w", err)
	}
	defer rows.Close()

	return scanDiagramRows(rows)
}
