package access

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagramCreatorFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT creator_id FROM diagrams").
		WithArgs("diagram-1").
		WillReturnRows(sqlmock.NewRows([]string{"creator_id"}).AddRow("user-1"))

	store := NewPostgresStore(db)
	creatorID, found, err := store.DiagramCreator(context.Background(), "diagram-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "user-1", creatorID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDiagramCreatorMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT creator_id FROM diagrams").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"creator_id"}))

	store := NewPostgresStore(db)
	_, found, err := store.DiagramCreator(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamRoleJoinsMembership(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM team_diagrams td").
		WithArgs("diagram-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("editor"))

	store := NewPostgresStore(db)
	role, found, err := store.TeamRole(context.Background(), "diagram-1", "user-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "editor", role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamRoleNoMembership(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM team_diagrams td").
		WithArgs("diagram-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"role"}))

	store := NewPostgresStore(db)
	_, found, err := store.TeamRole(context.Background(), "diagram-1", "user-1")
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParticipantRole(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT role FROM diagram_participants").
		WithArgs("diagram-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("admin"))

	store := NewPostgresStore(db)
	role, found, err := store.ParticipantRole(context.Background(), "diagram-1", "user-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "admin", role)
	assert.NoError(t, mock.ExpectationsWereMet())
}
