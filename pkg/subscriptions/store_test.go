package subscriptions

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSubscription() *Subscription {
	now := time.Now()
	return &Subscription{
		ID:              "sub-1",
		UserID:          "user-1",
		Plan:            PlanPro,
		BillingCycle:    CycleMonthly,
		BillingCurrency: "usd",
		Amount:          7,
		FinalAmount:     7,
		PaymentGateway:  "flutterwave",
		PaymentStatus:   PaymentPending,
		TxRef:           "tx-1",
		StartDate:       now,
		EndDate:         now.AddDate(0, 1, 0),
	}
}

func TestCreateWithDiscountRedeemsAtomically(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO subscriptions").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE subscription_discounts").
		WithArgs("disc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	store := NewPostgresStore(db)
	err = store.CreateWithDiscount(context.Background(), testSubscription(), "disc-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithDiscountRollsBackOnRedemptionFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO subscriptions").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE subscription_discounts").
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	store := NewPostgresStore(db)
	err = store.CreateWithDiscount(context.Background(), testSubscription(), "disc-1")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithoutDiscountSkipsRedemption(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO subscriptions").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	store := NewPostgresStore(db)
	require.NoError(t, store.CreateWithDiscount(context.Background(), testSubscription(), ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByTxRefMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, user_id, plan").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	store := NewPostgresStore(db)
	_, err = store.GetByTxRef(context.Background(), "missing")
	assert.Equal(t, ErrNotFound, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpireOverdue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE subscriptions SET payment_status = 'failed'").
		WillReturnResult(sqlmock.NewResult(0, 3))

	store := NewPostgresStore(db)
	n, err := store.ExpireOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
