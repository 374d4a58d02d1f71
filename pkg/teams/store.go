package teams

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/layr-ng/layr-api/pkg/httputil"
	"github.com/layr-ng/layr-api/pkg/users"
)

// Store is the persistence interface for teams.
type Store interface {
	CreateWithOwner(ctx context.Context, team *Team) error
	GetByID(ctx context.Context, id string) (*Team, error)
	GetCreatorID(ctx context.Context, teamID string) (string, error)
	ListForUser(ctx context.Context, userID string, p httputil.Pagination) ([]Team, error)
	ListAll(ctx context.Context, p httputil.Pagination) ([]Team, error)
	Update(ctx context.Context, id string, input UpdateInput) error
	DeleteCascade(ctx context.Context, id string) error

	GetMember(ctx context.Context, teamID, userID string) (*Member, error)
	GetActiveMember(ctx context.Context, teamID, userID string) (*Member, error)
	CreateMember(ctx context.Context, member *Member) error
	UpdateMemberRole(ctx context.Context, teamID, userID, role string) error
	UpdateInvitation(ctx context.Context, teamID, userID, invitationStatus, membershipStatus string, dateJoined *time.Time) error
	RemoveMember(ctx context.Context, teamID, userID string) error
	ListMembers(ctx context.Context, teamID string) ([]Member, error)
	PurgeDeclinedInvites(ctx context.Context, olderThan time.Duration) (int64, error)

	CountExistingDiagrams(ctx context.Context, teamID string, diagramIDs []string) (int, error)
	AddDiagrams(ctx context.Context, teamID, authorID string, diagramIDs []string) error
	RemoveDiagram(ctx context.Context, teamID, diagramID string) error
	ListDiagrams(ctx context.Context, teamID string) ([]TeamDiagram, error)
}

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgresStore.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateWithOwner inserts the team and its owner membership row in one
// transaction. The owner joins immediately, no invitation round trip.
func (s *PostgresStore) CreateWithOwner(ctx context.Context, team *Team) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO teams (id, title, description, creator_id)
		VALUES ($1, $2, $3, $4)`,
		team.ID, team.Title, team.Description, team.CreatorID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert team: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO team_members (id, team_id, user_id, role, invitation_status, membership_status, date_joined)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		uuid.NewString(), team.ID, team.CreatorID, RoleOwner, InvitationAccepted, MembershipActive,
	)
	if err != nil {
		return fmt.Errorf("failed to insert owner membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*Team, error) {
	team := &Team{Creator: &users.PublicUser{}}
	var description, picture sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT t.id, t.title, t.description, t.creator_id, t.created_at, t.updated_at,
		       u.id, u.full_name, u.picture,
		       (SELECT COUNT(*) FROM team_diagrams td WHERE td.team_id = t.id),
		       (SELECT COUNT(*) FROM team_members tm WHERE tm.team_id = t.id)
		FROM teams t
		JOIN users u ON u.id = t.creator_id
		WHERE t.id = $1`,
		id,
	).Scan(
		&team.ID, &team.Title, &description, &team.CreatorID, &team.CreatedAt, &team.UpdatedAt,
		&team.Creator.ID, &team.Creator.FullName, &picture,
		&team.TotalDiagrams, &team.TotalMembers,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load team: %w", err)
	}
	team.Description = description.String
	team.Creator.Picture = picture.String
	return team, nil
}

func (s *PostgresStore) GetCreatorID(ctx context.Context, teamID string) (string, error) {
	var creatorID string
	err := s.db.QueryRowContext(ctx,
		"SELECT creator_id FROM teams WHERE id = $1", teamID,
	).Scan(&creatorID)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load team creator: %w", err)
	}
	return creatorID, nil
}

// ListForUser returns the teams the user actively belongs to, newest activity
// first, with creator and member/diagram counts attached.
func (s *PostgresStore) ListForUser(ctx context.Context, userID string, p httputil.Pagination) ([]Team, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.title, t.description, t.creator_id, t.created_at, t.updated_at,
		       u.id, u.full_name, u.picture,
		       (SELECT COUNT(*) FROM team_diagrams td WHERE td.team_id = t.id),
		       (SELECT COUNT(*) FROM team_members m2 WHERE m2.team_id = t.id)
		FROM teams t
		JOIN team_members tm ON tm.team_id = t.id
		JOIN users u ON u.id = t.creator_id
		WHERE tm.user_id = $1
		  AND tm.invitation_status = 'accepted'
		  AND tm.membership_status = 'active'
		ORDER BY t.updated_at DESC
		LIMIT $2 OFFSET $3`,
		userID, p.PageSize, p.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()
	return scanTeams(rows)
}

// ListAll returns every team, for the admin console.
func (s *PostgresStore) ListAll(ctx context.Context, p httputil.Pagination) ([]Team, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.title, t.description, t.creator_id, t.created_at, t.updated_at,
		       u.id, u.full_name, u.picture,
		       (SELECT COUNT(*) FROM team_diagrams td WHERE td.team_id = t.id),
		       (SELECT COUNT(*) FROM team_members m2 WHERE m2.team_id = t.id)
		FROM teams t
		JOIN users u ON u.id = t.creator_id
		ORDER BY t.updated_at DESC
		LIMIT $1 OFFSET $2`,
		p.PageSize, p.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()
	return scanTeams(rows)
}

func scanTeams(rows *sql.Rows) ([]Team, error) {
	teams := []Team{}
	for rows.Next() {
		team := Team{Creator: &users.PublicUser{}}
		var description, picture sql.NullString
		if err := rows.Scan(
			&team.ID, &team.Title, &description, &team.CreatorID, &team.CreatedAt, &team.UpdatedAt,
			&team.Creator.ID, &team.Creator.FullName, &picture,
			&team.TotalDiagrams, &team.TotalMembers,
		); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		team.Description = description.String
		team.Creator.Picture = picture.String
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, id string, input UpdateInput) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE teams
		SET title = COALESCE($2, title),
		    description = COALESCE($3, description),
		    updated_at = NOW()
		WHERE id = $1`,
		id, input.Title, input.Description,
	)
	if err != nil {
		return fmt.Errorf("failed to update team: %w", err)
	}
	return nil
}

// DeleteCascade removes the team with its memberships and diagram links in a
// single transaction.
func (s *PostgresStore) DeleteCascade(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM team_diagrams WHERE team_id = $1", id); err != nil {
		return fmt.Errorf("failed to delete team diagrams: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM team_members WHERE team_id = $1", id); err != nil {
		return fmt.Errorf("failed to delete team members: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM teams WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetMember(ctx context.Context, teamID, userID string) (*Member, error) {
	return s.getMember(ctx, `
		SELECT id, team_id, user_id, author_id, role, invitation_status, membership_status, date_invited, date_joined
		FROM team_members
		WHERE team_id = $1 AND user_id = $2`,
		teamID, userID,
	)
}

// GetActiveMember matches only members who accepted their invitation and are
// still active. Team routes authorize against this lookup.
func (s *PostgresStore) GetActiveMember(ctx context.Context, teamID, userID string) (*Member, error) {
	return s.getMember(ctx, `
		SELECT id, team_id, user_id, author_id, role, invitation_status, membership_status, date_invited, date_joined
		FROM team_members
		WHERE team_id = $1 AND user_id = $2
		  AND invitation_status = 'accepted'
		  AND membership_status = 'active'`,
		teamID, userID,
	)
}

func (s *PostgresStore) getMember(ctx context.Context, query, teamID, userID string) (*Member, error) {
	member := &Member{}
	var authorID sql.NullString
	err := s.db.QueryRowContext(ctx, query, teamID, userID).Scan(
		&member.ID, &member.TeamID, &member.UserID, &authorID,
		&member.Role, &member.InvitationStatus, &member.MembershipStatus,
		&member.DateInvited, &member.DateJoined,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load team member: %w", err)
	}
	member.AuthorID = authorID.String
	return member, nil
}

func (s *PostgresStore) CreateMember(ctx context.Context, member *Member) error {
	if member.ID == "" {
		member.ID = uuid.NewString()
	}
	var authorID interface{}
	if member.AuthorID != "" {
		authorID = member.AuthorID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO team_members (id, team_id, user_id, author_id, role, invitation_status, membership_status, date_invited)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		member.ID, member.TeamID, member.UserID, authorID,
		member.Role, member.InvitationStatus, member.MembershipStatus, member.DateInvited,
	)
	if err != nil {
		return fmt.Errorf("failed to insert team member: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateMemberRole(ctx context.Context, teamID, userID, role string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE team_members SET role = $3, updated_at = NOW()
		WHERE team_id = $1 AND user_id = $2`,
		teamID, userID, role,
	)
	if err != nil {
		return fmt.Errorf("failed to update member role: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateInvitation(ctx context.Context, teamID, userID, invitationStatus, membershipStatus string, dateJoined *time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE team_members
		SET invitation_status = $3, membership_status = $4, date_joined = $5, updated_at = NOW()
		WHERE team_id = $1 AND user_id = $2`,
		teamID, userID, invitationStatus, membershipStatus, dateJoined,
	)
	if err != nil {
		return fmt.Errorf("failed to update invitation: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveMember(ctx context.Context, teamID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM team_members WHERE team_id = $1 AND user_id = $2",
		teamID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove team member: %w", err)
	}
	return nil
}

// ListMembers returns the team's active, accepted members with user info.
func (s *PostgresStore) ListMembers(ctx context.Context, teamID string) ([]Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tm.id, tm.team_id, tm.user_id, tm.author_id, tm.role,
		       tm.invitation_status, tm.membership_status, tm.date_invited, tm.date_joined,
		       u.id, u.full_name, u.picture
		FROM team_members tm
		JOIN users u ON u.id = tm.user_id
		WHERE tm.team_id = $1
		  AND tm.invitation_status = 'accepted'
		  AND tm.membership_status = 'active'
		ORDER BY tm.created_at`,
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	defer rows.Close()

	members := []Member{}
	for rows.Next() {
		member := Member{User: &users.PublicUser{}}
		var authorID, picture sql.NullString
		if err := rows.Scan(
			&member.ID, &member.TeamID, &member.UserID, &authorID, &member.Role,
			&member.InvitationStatus, &member.MembershipStatus, &member.DateInvited, &member.DateJoined,
			&member.User.ID, &member.User.FullName, &picture,
		); err != nil {
			return nil, fmt.Errorf("failed to scan team member: %w", err)
		}
		member.AuthorID = authorID.String
		member.User.Picture = picture.String
		members = append(members, member)
	}
	return members, rows.Err()
}

// PurgeDeclinedInvites deletes membership rows whose invitation was declined
// longer than olderThan ago. Run periodically.
func (s *PostgresStore) PurgeDeclinedInvites(ctx context.Context, olderThan time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM team_members
		WHERE invitation_status = 'declined'
		  AND updated_at < NOW() - $1 * INTERVAL '1 second'`,
		int64(olderThan.Seconds()),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge declined invites: %w", err)
	}
	return res.RowsAffected()
}

func (s *PostgresStore) CountExistingDiagrams(ctx context.Context, teamID string, diagramIDs []string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM team_diagrams
		WHERE team_id = $1 AND diagram_id = ANY($2)`,
		teamID, pq.Array(diagramIDs),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count team diagrams: %w", err)
	}
	return count, nil
}

// AddDiagrams links the diagrams into the team in one transaction.
func (s *PostgresStore) AddDiagrams(ctx context.Context, teamID, authorID string, diagramIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, diagramID := range diagramIDs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO team_diagrams (id, team_id, diagram_id, author_id)
			VALUES ($1, $2, $3, $4)`,
			uuid.NewString(), teamID, diagramID, authorID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert team diagram: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveDiagram(ctx context.Context, teamID, diagramID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM team_diagrams WHERE team_id = $1 AND diagram_id = $2",
		teamID, diagramID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove team diagram: %w", err)
	}
	return nil
}

// ListDiagrams returns the team's diagrams with their creators and the member
// who added each one.
func (s *PostgresStore) ListDiagrams(ctx context.Context, teamID string) ([]TeamDiagram, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT td.id, td.team_id, td.diagram_id, td.created_at,
		       d.title, d.visibility, d.thumbnail_url, d.created_at, d.updated_at,
		       c.id, c.full_name, c.picture,
		       a.id, a.full_name, a.picture
		FROM team_diagrams td
		JOIN diagrams d ON d.id = td.diagram_id
		JOIN users c ON c.id = d.creator_id
		JOIN users a ON a.id = td.author_id
		WHERE td.team_id = $1
		ORDER BY td.created_at DESC`,
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list team diagrams: %w", err)
	}
	defer rows.Close()

	links := []TeamDiagram{}
	for rows.Next() {
		link := TeamDiagram{
			Diagram: &DiagramRef{Creator: &users.PublicUser{}},
			Author:  &users.PublicUser{},
		}
		var thumbnail, creatorPicture, authorPicture sql.NullString
		if err := rows.Scan(
			&link.ID, &link.TeamID, &link.DiagramID, &link.DateAdded,
			&link.Diagram.Title, &link.Diagram.Visibility, &thumbnail,
			&link.Diagram.CreatedAt, &link.Diagram.UpdatedAt,
			&link.Diagram.Creator.ID, &link.Diagram.Creator.FullName, &creatorPicture,
			&link.Author.ID, &link.Author.FullName, &authorPicture,
		); err != nil {
			return nil, fmt.Errorf("failed to scan team diagram: %w", err)
		}
		link.Diagram.ID = link.DiagramID
		link.Diagram.ThumbnailURL = thumbnail.String
		link.Diagram.Creator.Picture = creatorPicture.String
		link.Author.Picture = authorPicture.String
		links = append(links, link)
	}
	return links, rows.Err()
}
