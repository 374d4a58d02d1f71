package users

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/layr-ng/layr-api/pkg/httputil"
)

// ErrNotFound is returned by lookups when no row matches.
var ErrNotFound = sql.ErrNoRows

// Store persists users and admins.
type Store interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	CountByEmail(ctx context.Context, email string) (int, error)
	UpdateUser(ctx context.Context, id string, input UpdateInput) error
	UpdatePassword(ctx context.Context, email, passwordHash string) error
	SearchByEmail(ctx context.Context, email string, p httputil.Pagination) ([]PublicUser, error)
	ListUsers(ctx context.Context, p httputil.Pagination) ([]User, error)

	CreateAdmin(ctx context.Context, admin *Admin) error
	GetAdminByEmail(ctx context.Context, email string) (*Admin, error)
	CountAdminsByEmail(ctx context.Context, email string) (int, error)
	UpdateAdminPassword(ctx context.Context, email, passwordHash string) error
	GetAdminByID(ctx context.Context, id string) (*Admin, error)
}

// PostgresStore implements Store against PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateUser(ctx context.Context, user *User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, full_name, password, status, auth_strategy)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Email, user.FullName, user.PasswordHash, user.Status, user.AuthStrategy,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	user := &User{}
	var picture sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, full_name, picture, status, created_at, updated_at
		FROM users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.Email, &user.FullName, &picture, &user.Status, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.Picture = picture.String
	return user, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	user := &User{}
	var picture sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, full_name, picture, status, password, created_at, updated_at
		FROM users WHERE email = $1`,
		email,
	).Scan(&user.ID, &user.Email, &user.FullName, &picture, &user.Status, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	user.Picture = picture.String
	return user, nil
}

func (s *PostgresStore) CountByEmail(ctx context.Context, email string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE email = $1", email,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count users by email: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) UpdateUser(ctx context.Context, id string, input UpdateInput) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET full_name = COALESCE($2, full_name),
		    picture = COALESCE($3, picture),
		    updated_at = NOW()
		WHERE id = $1`,
		id, input.FullName, input.Picture,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET password = $2, updated_at = NOW() WHERE email = $1",
		email, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

func (s *PostgresStore) SearchByEmail(ctx context.Context, email string, p httputil.Pagination) ([]PublicUser, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, full_name, picture
		FROM users WHERE email = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3`,
		email, p.PageSize, p.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	result := make([]PublicUser, 0)
	for rows.Next() {
		var u PublicUser
		var picture sql.NullString
		if err := rows.Scan(&u.ID, &u.FullName, &picture); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.Picture = picture.String
		result = append(result, u)
	}
	return result, rows.Err()
}

func (s *PostgresStore) ListUsers(ctx context.Context, p httputil.Pagination) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, full_name, picture, status, created_at, updated_at
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`,
		p.PageSize, p.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	result := make([]User, 0)
	for rows.Next() {
		var u User
		var picture sql.NullString
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &picture, &u.Status, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.Picture = picture.String
		result = append(result, u)
	}
	return result, rows.Err()
}

func (s *PostgresStore) CreateAdmin(ctx context.Context, admin *Admin) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admins (id, email, full_name, password, status)
		VALUES ($1, $2, $3, $4, $5)`,
		admin.ID, admin.Email, admin.FullName, admin.PasswordHash, admin.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAdminByEmail(ctx context.Context, email string) (*Admin, error) {
	admin := &Admin{}
	var picture sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, full_name, picture, status, password, created_at
		FROM admins WHERE email = $1`,
		email,
	).Scan(&admin.ID, &admin.Email, &admin.FullName, &picture, &admin.Status, &admin.PasswordHash, &admin.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin by email: %w", err)
	}
	admin.Picture = picture.String
	return admin, nil
}

func (s *PostgresStore) CountAdminsByEmail(ctx context.Context, email string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM admins WHERE email = $1", email,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count admins by email: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) UpdateAdminPassword(ctx context.Context, email, passwordHash string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE admins SET password = $2, updated_at = NOW() WHERE email = $1",
		email, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("failed to update admin password: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAdminByID(ctx context.Context, id string) (*Admin, error) {
	admin := &Admin{}
	var picture sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, full_name, picture, status, created_at
		FROM admins WHERE id = $1`,
		id,
	).Scan(&admin.ID, &admin.Email, &admin.FullName, &picture, &admin.Status, &admin.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	admin.Picture = picture.String
	return admin, nil
}
