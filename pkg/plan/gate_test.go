package plan

import (
	"context"
	"errors"
	"io"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layr-ng/layr-api/pkg/apierrors"
	"github.com/layr-ng/layr-api/pkg/observability"
)

type fakeCounts struct {
	activeSubs     int
	diagrams       int
	publicDiagrams int
	err            error
}

func (f *fakeCounts) CountActiveSubscriptions(ctx context.Context, userID string) (int, error) {
	return f.activeSubs, f.err
}

func (f *fakeCounts) CountDiagrams(ctx context.Context, userID string) (int, error) {
	return f.diagrams, f.err
}

func (f *fakeCounts) CountPublicDiagrams(ctx context.Context, userID string) (int, error) {
	return f.publicDiagrams, f.err
}

func newTestGate(store Store) *Gate {
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	return NewGate(store, logger, nil)
}

func TestDiagramCreationUnderCap(t *testing.T) {
	gate := newTestGate(&fakeCounts{diagrams: 2})
	assert.NoError(t, gate.CheckDiagramCreation(context.Background(), "user-1"))
}

func TestDiagramCreationAtCap(t *testing.T) {
	gate := newTestGate(&fakeCounts{diagrams: 3})

	err := gate.CheckDiagramCreation(context.Background(), "user-1")
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.CodePlanLimitExceeded))
}

func TestActiveSubscriptionBypassesCap(t *testing.T) {
	// A subscriber at the cap is never counted.
	gate := newTestGate(&fakeCounts{activeSubs: 1, diagrams: 3, publicDiagrams: 1})

	assert.NoError(t, gate.CheckDiagramCreation(context.Background(), "user-1"))
	assert.NoError(t, gate.CheckPublicShare(context.Background(), "user-1"))
}

func TestPublicShareAtCap(t *testing.T) {
	gate := newTestGate(&fakeCounts{publicDiagrams: 1})

	err := gate.CheckPublicShare(context.Background(), "user-1")
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.CodePlanLimitExceeded))
}

func TestPublicShareUnderCap(t *testing.T) {
	gate := newTestGate(&fakeCounts{publicDiagrams: 0})
	assert.NoError(t, gate.CheckPublicShare(context.Background(), "user-1"))
}

func TestRequireActiveSubscription(t *testing.T) {
	gate := newTestGate(&fakeCounts{activeSubs: 0})

	err := gate.RequireActiveSubscription(context.Background(), "user-1")
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeNoSubscription))

	gate = newTestGate(&fakeCounts{activeSubs: 1})
	assert.NoError(t, gate.RequireActiveSubscription(context.Background(), "user-1"))
}

func TestCountFailureIsInternal(t *testing.T) {
	gate := newTestGate(&fakeCounts{err: errors.New("connection reset")})

	err := gate.CheckDiagramCreation(context.Background(), "user-1")
	require.Error(t, err)
	assert.True(t, apierrors.IsCode(err, apierrors.CodeInternal))
}

func TestPostgresStoreCounts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStore(db)

	mock.ExpectQuery("FROM subscriptions").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	count, err := store.CountActiveSubscriptions(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	mock.ExpectQuery("FROM diagrams").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	count, err = store.CountDiagrams(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	mock.ExpectQuery("visibility = 'public'").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	count, err = store.CountPublicDiagrams(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	assert.NoError(t, mock.ExpectationsWereMet())
}
