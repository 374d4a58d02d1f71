package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/layr-ng/layr-api/pkg/observability"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all schema migrations in order
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users and admins tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id UUID PRIMARY KEY,
					email VARCHAR(255) NOT NULL UNIQUE,
					full_name VARCHAR(255) NOT NULL,
					password VARCHAR(255) NOT NULL,
					picture TEXT,
					status VARCHAR(20) NOT NULL DEFAULT 'active',
					auth_strategy VARCHAR(20) NOT NULL DEFAULT 'local',
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_users_email ON users(email);

				CREATE TABLE IF NOT EXISTS admins (
					id UUID PRIMARY KEY,
					email VARCHAR(255) NOT NULL UNIQUE,
					full_name VARCHAR(255) NOT NULL,
					password VARCHAR(255) NOT NULL,
					picture TEXT,
					status VARCHAR(20) NOT NULL DEFAULT 'active',
					auth_strategy VARCHAR(20) NOT NULL DEFAULT 'local',
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`,
		},
		{
			Version:     2,
			Description: "Create groups, diagrams and participants tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS groups (
					id UUID PRIMARY KEY,
					title VARCHAR(255) NOT NULL,
					description TEXT,
					creator_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_groups_creator_id ON groups(creator_id);

				CREATE TABLE IF NOT EXISTS diagrams (
					id UUID PRIMARY KEY,
					title VARCHAR(255) NOT NULL,
					description TEXT,
					sequence JSONB NOT NULL DEFAULT '[]',
					tags TEXT[],
					visibility VARCHAR(20) NOT NULL DEFAULT 'hidden',
					thumbnail_url TEXT,
					thumbnail_updated_at TIMESTAMPTZ,
					group_id UUID REFERENCES groups(id) ON DELETE SET NULL,
					creator_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					metadata JSONB NOT NULL DEFAULT '{}',
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					CONSTRAINT diagrams_visibility_check CHECK (visibility IN ('public', 'hidden'))
				);

				CREATE INDEX idx_diagrams_creator_id ON diagrams(creator_id);
				CREATE INDEX idx_diagrams_group_id ON diagrams(group_id);
				CREATE INDEX idx_diagrams_visibility ON diagrams(visibility);

				CREATE TABLE IF NOT EXISTS diagram_participants (
					id UUID PRIMARY KEY,
					diagram_id UUID NOT NULL REFERENCES diagrams(id) ON DELETE CASCADE,
					user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					role VARCHAR(20) NOT NULL,
					is_creator BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE(diagram_id, user_id),
					CONSTRAINT diagram_participants_role_check CHECK (role IN ('viewer', 'editor', 'admin'))
				);

				CREATE INDEX idx_diagram_participants_diagram_id ON diagram_participants(diagram_id);
				CREATE INDEX idx_diagram_participants_user_id ON diagram_participants(user_id);
			`,
		},
		{
			Version:     3,
			Description: "Create sequence history and prompt tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS sequence_histories (
					id UUID PRIMARY KEY,
					user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					diagram_id UUID NOT NULL REFERENCES diagrams(id) ON DELETE CASCADE,
					former_sequence TEXT,
					new_sequence TEXT,
					prompt TEXT,
					model_response TEXT,
					summary JSONB,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_sequence_histories_diagram_id ON sequence_histories(diagram_id);

				CREATE TABLE IF NOT EXISTS diagram_prompts (
					id UUID PRIMARY KEY,
					user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					diagram_id UUID NOT NULL REFERENCES diagrams(id) ON DELETE CASCADE,
					new_sequence TEXT,
					prompt TEXT,
					model_response TEXT,
					summary JSONB,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_diagram_prompts_diagram_id ON diagram_prompts(diagram_id);
			`,
		},
		{
			Version:     4,
			Description: "Create teams, team_members and team_diagrams tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS teams (
					id UUID PRIMARY KEY,
					title VARCHAR(255) NOT NULL,
					description TEXT,
					creator_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_teams_creator_id ON teams(creator_id);

				CREATE TABLE IF NOT EXISTS team_members (
					id UUID PRIMARY KEY,
					team_id UUID NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
					user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					author_id UUID REFERENCES users(id) ON DELETE SET NULL,
					role VARCHAR(20) NOT NULL,
					invitation_status VARCHAR(20) NOT NULL DEFAULT 'invited',
					membership_status VARCHAR(20) NOT NULL DEFAULT 'active',
					date_invited TIMESTAMPTZ,
					date_joined TIMESTAMPTZ,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE(team_id, user_id),
					CONSTRAINT team_members_role_check CHECK (role IN ('viewer', 'editor', 'admin', 'owner')),
					CONSTRAINT team_members_invitation_check CHECK (invitation_status IN ('invited', 'accepted', 'declined')),
					CONSTRAINT team_members_membership_check CHECK (membership_status IN ('active', 'blocked', 'inactive', 'left'))
				);

				CREATE INDEX idx_team_members_team_id ON team_members(team_id);
				CREATE INDEX idx_team_members_user_id ON team_members(user_id);

				CREATE TABLE IF NOT EXISTS team_diagrams (
					id UUID PRIMARY KEY,
					team_id UUID NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
					diagram_id UUID NOT NULL REFERENCES diagrams(id) ON DELETE CASCADE,
					author_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE(team_id, diagram_id)
				);

				CREATE INDEX idx_team_diagrams_team_id ON team_diagrams(team_id);
				CREATE INDEX idx_team_diagrams_diagram_id ON team_diagrams(diagram_id);
			`,
		},
		{
			Version:     5,
			Description: "Create subscriptions and subscription_discounts tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS subscription_discounts (
					id UUID PRIMARY KEY,
					code VARCHAR(64) NOT NULL UNIQUE,
					discount_percentage INT NOT NULL,
					max_redemptions INT,
					times_redeemed INT NOT NULL DEFAULT 0,
					expiration_date TIMESTAMPTZ,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					CONSTRAINT discounts_percentage_check CHECK (discount_percentage BETWEEN 1 AND 100)
				);

				CREATE TABLE IF NOT EXISTS subscriptions (
					id UUID PRIMARY KEY,
					user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					plan VARCHAR(20) NOT NULL,
					billing_cycle VARCHAR(20) NOT NULL,
					billing_currency VARCHAR(10) NOT NULL DEFAULT 'usd',
					amount NUMERIC(10,2) NOT NULL,
					final_amount NUMERIC(10,2) NOT NULL,
					is_trial BOOLEAN NOT NULL DEFAULT FALSE,
					trial_end_date TIMESTAMPTZ,
					is_discount_applied BOOLEAN NOT NULL DEFAULT FALSE,
					discount_type VARCHAR(20),
					discount_value NUMERIC(10,2),
					discount_id UUID REFERENCES subscription_discounts(id) ON DELETE SET NULL,
					payment_gateway VARCHAR(20) NOT NULL DEFAULT 'flutterwave',
					payment_status VARCHAR(20) NOT NULL DEFAULT 'pending',
					tx_ref VARCHAR(255) NOT NULL UNIQUE,
					start_date TIMESTAMPTZ NOT NULL,
					end_date TIMESTAMPTZ NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					CONSTRAINT subscriptions_plan_check CHECK (plan IN ('pro', 'team')),
					CONSTRAINT subscriptions_cycle_check CHECK (billing_cycle IN ('weekly', 'monthly'))
				);

				CREATE INDEX idx_subscriptions_user_id ON subscriptions(user_id);
				CREATE INDEX idx_subscriptions_end_date ON subscriptions(end_date);
			`,
		},
		{
			Version:     6,
			Description: "Create notifications table",
			SQL: `
				CREATE TABLE IF NOT EXISTS notifications (
					id UUID PRIMARY KEY,
					user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					type VARCHAR(50) NOT NULL,
					title VARCHAR(100) NOT NULL,
					metadata JSONB NOT NULL DEFAULT '{}',
					status VARCHAR(20) NOT NULL DEFAULT 'unread',
					read_at TIMESTAMPTZ,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					CONSTRAINT notifications_status_check CHECK (status IN ('unread', 'read', 'archived'))
				);

				CREATE INDEX idx_notifications_user_id ON notifications(user_id);
				CREATE INDEX idx_notifications_status ON notifications(user_id, status);
			`,
		},
	}
}

// RunMigrations executes all pending migrations
func RunMigrations(ctx context.Context, db *sql.DB, logger *observability.Logger) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}

	appliedVersions := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		appliedVersions[version] = true
	}
	rows.Close()

	for _, migration := range GetMigrations() {
		if appliedVersions[migration.Version] {
			continue
		}

		logger.WithField("version", migration.Version).
			Infof("Running migration: %s", migration.Description)

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
