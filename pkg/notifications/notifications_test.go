package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layr-ng/layr-api/pkg/apierrors"
	"github.com/layr-ng/layr-api/pkg/httputil"
)

func newTestStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func TestCreateDefaultsStatusAndID(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(sqlmock.AnyArg(), "user-1", TypeDiagramShared, "Ada added you to a diagram", []byte("{}"), StatusUnread).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n := &Notification{
		UserID: "user-1",
		Type:   TypeDiagramShared,
		Title:  "Ada added you to a diagram",
	}
	require.NoError(t, store.Create(context.Background(), n))
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, StatusUnread, n.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTxUsesCallerTransaction(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO notifications").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := store.db.Begin()
	require.NoError(t, err)
	require.NoError(t, store.CreateTx(context.Background(), tx, &Notification{
		UserID: "user-1",
		Type:   TypeTeamInvite,
		Title:  "You were invited to a team",
	}))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListForUserFiltersByStatus(t *testing.T) {
	store, mock := newTestStore(t)

	rows := sqlmock.NewRows([]string{"id", "user_id", "type", "title", "metadata", "status", "read_at", "created_at"}).
		AddRow("n-1", "user-1", TypeDiagramShared, "Ada added you to a diagram", []byte("{}"), StatusUnread, nil, time.Now())
	mock.ExpectQuery("SELECT id, user_id, type, title, metadata, status, read_at, created_at").
		WithArgs("user-1", StatusUnread).
		WillReturnRows(rows)

	result, err := store.ListForUser(context.Background(), "user-1", StatusUnread,
		httputil.Pagination{Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "n-1", result[0].ID)
	assert.Nil(t, result[0].ReadAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountUnread(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("user-1", StatusUnread).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := store.CountUnread(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusSetsReadAt(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectExec("UPDATE notifications").
		WithArgs("n-1", StatusRead, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.UpdateStatus(context.Background(), "n-1", StatusRead))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceRejectsInvalidListStatus(t *testing.T) {
	svc := NewService(nil)

	_, err := svc.ListForUser(context.Background(), "user-1", "bogus", httputil.Pagination{Page: 1, PageSize: 20})
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeValidation))
	assert.Contains(t, err.Error(), "Invalid notification status to get")
}

func TestServiceRejectsInvalidMarkStatus(t *testing.T) {
	svc := NewService(nil)

	err := svc.MarkStatus(context.Background(), "n-1", "bogus")
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeValidation))
}
