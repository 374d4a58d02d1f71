package subscriptions

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/layr-ng/layr-api/pkg/httputil"
)

// Store is the persistence interface for subscriptions and discounts.
type Store interface {
	CreateWithDiscount(ctx context.Context, sub *Subscription, discountID string) error
	GetByTxRef(ctx context.Context, txRef string) (*Subscription, error)
	UpdatePaymentStatus(ctx context.Context, txRef, status string) error
	ListActiveForUser(ctx context.Context, userID string, p httputil.Pagination) ([]Subscription, error)
	ListAll(ctx context.Context, p httputil.Pagination) ([]Subscription, error)
	CountForUser(ctx context.Context, userID string) (int, error)
	CountActiveForUser(ctx context.Context, userID string) (int, error)
	ExpireOverdue(ctx context.Context) (int64, error)

	GetDiscountByCode(ctx context.Context, code string) (*Discount, error)
	CreateDiscount(ctx context.Context, discount *Discount) error
	ListDiscounts(ctx context.Context, p httputil.Pagination) ([]Discount, error)
}

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgresStore.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateWithDiscount inserts the subscription and, when a discount was
// applied, bumps its redemption counter in the same transaction.
func (s *PostgresStore) CreateWithDiscount(ctx context.Context, sub *Subscription, discountID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var discountRef interface{}
	if discountID != "" {
		discountRef = discountID
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO subscriptions (
			id, user_id, plan, billing_cycle, billing_currency,
			amount, final_amount, is_trial, is_discount_applied,
			discount_value, discount_id, payment_gateway, payment_status,
			tx_ref, start_date, end_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		sub.ID, sub.UserID, sub.Plan, sub.BillingCycle, sub.BillingCurrency,
		sub.Amount, sub.FinalAmount, sub.IsTrial, sub.IsDiscountApplied,
		sub.DiscountValue, discountRef, sub.PaymentGateway, sub.PaymentStatus,
		sub.TxRef, sub.StartDate, sub.EndDate,
	)
	if err != nil {
		return fmt.Errorf("failed to insert subscription: %w", err)
	}

	if discountID != "" {
		_, err = tx.ExecContext(ctx, `
			UPDATE subscription_discounts
			SET times_redeemed = times_redeemed + 1, updated_at = NOW()
			WHERE id = $1`,
			discountID,
		)
		if err != nil {
			return fmt.Errorf("failed to record discount redemption: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByTxRef(ctx context.Context, txRef string) (*Subscription, error) {
	sub := &Subscription{}
	var discountID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, plan, billing_cycle, billing_currency,
		       amount, final_amount, is_trial, trial_end_date, is_discount_applied,
		       COALESCE(discount_value, 0), discount_id, payment_gateway, payment_status,
		       tx_ref, start_date, end_date, created_at
		FROM subscriptions
		WHERE tx_ref = $1`,
		txRef,
	).Scan(
		&sub.ID, &sub.UserID, &sub.Plan, &sub.BillingCycle, &sub.BillingCurrency,
		&sub.Amount, &sub.FinalAmount, &sub.IsTrial, &sub.TrialEndDate, &sub.IsDiscountApplied,
		&sub.DiscountValue, &discountID, &sub.PaymentGateway, &sub.PaymentStatus,
		&sub.TxRef, &sub.StartDate, &sub.EndDate, &sub.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	sub.DiscountID = discountID.String
	return sub, nil
}

func (s *PostgresStore) UpdatePaymentStatus(ctx context.Context, txRef, status string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE subscriptions SET payment_status = $2, updated_at = NOW()
		WHERE tx_ref = $1`,
		txRef, status,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	return nil
}

// ListActiveForUser returns subscriptions that are paid and not yet expired.
func (s *PostgresStore) ListActiveForUser(ctx context.Context, userID string, p httputil.Pagination) ([]Subscription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, plan, billing_cycle, billing_currency,
		       amount, final_amount, is_trial, trial_end_date, is_discount_applied,
		       COALESCE(discount_value, 0), discount_id, payment_gateway, payment_status,
		       tx_ref, start_date, end_date, created_at
		FROM subscriptions
		WHERE user_id = $1 AND payment_status = 'successful' AND end_date > NOW()
		ORDER BY end_date DESC
		LIMIT $2 OFFSET $3`,
		userID, p.PageSize, p.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()
	return scanSubscriptions(rows)
}

// ListAll returns every subscription, for the admin console.
func (s *PostgresStore) ListAll(ctx context.Context, p httputil.Pagination) ([]Subscription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, plan, billing_cycle, billing_currency,
		       amount, final_amount, is_trial, trial_end_date, is_discount_applied,
		       COALESCE(discount_value, 0), discount_id, payment_gateway, payment_status,
		       tx_ref, start_date, end_date, created_at
		FROM subscriptions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`,
		p.PageSize, p.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()
	return scanSubscriptions(rows)
}

func scanSubscriptions(rows *sql.Rows) ([]Subscription, error) {
	subs := []Subscription{}
	for rows.Next() {
		sub := Subscription{}
		var discountID sql.NullString
		if err := rows.Scan(
			&sub.ID, &sub.UserID, &sub.Plan, &sub.BillingCycle, &sub.BillingCurrency,
			&sub.Amount, &sub.FinalAmount, &sub.IsTrial, &sub.TrialEndDate, &sub.IsDiscountApplied,
			&sub.DiscountValue, &discountID, &sub.PaymentGateway, &sub.PaymentStatus,
			&sub.TxRef, &sub.StartDate, &sub.EndDate, &sub.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		sub.DiscountID = discountID.String
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *PostgresStore) CountForUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM subscriptions WHERE user_id = $1", userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) CountActiveForUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM subscriptions
		WHERE user_id = $1 AND payment_status = 'successful' AND end_date > NOW()`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active subscriptions: %w", err)
	}
	return count, nil
}

// ExpireOverdue marks pending subscriptions whose period already ended as
// failed. Run periodically.
func (s *PostgresStore) ExpireOverdue(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE subscriptions SET payment_status = 'failed', updated_at = NOW()
		WHERE payment_status = 'pending' AND end_date < NOW()`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire subscriptions: %w", err)
	}
	return res.RowsAffected()
}

func (s *PostgresStore) GetDiscountByCode(ctx context.Context, code string) (*Discount, error) {
	discount := &Discount{}
	var maxRedemptions sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, code, discount_percentage, max_redemptions, times_redeemed, expiration_date, created_at
		FROM subscription_discounts
		WHERE code = $1`,
		code,
	).Scan(
		&discount.ID, &discount.Code, &discount.DiscountPercentage,
		&maxRedemptions, &discount.TimesRedeemed, &discount.ExpirationDate, &discount.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load discount: %w", err)
	}
	discount.MaxRedemptions = int(maxRedemptions.Int64)
	return discount, nil
}

func (s *PostgresStore) CreateDiscount(ctx context.Context, discount *Discount) error {
	var maxRedemptions interface{}
	if discount.MaxRedemptions > 0 {
		maxRedemptions = discount.MaxRedemptions
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscription_discounts (id, code, discount_percentage, max_redemptions, expiration_date)
		VALUES ($1, $2, $3, $4, $5)`,
		discount.ID, discount.Code, discount.DiscountPercentage, maxRedemptions, discount.ExpirationDate,
	)
	if err != nil {
		return fmt.Errorf("failed to insert discount: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListDiscounts(ctx context.Context, p httputil.Pagination) ([]Discount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, discount_percentage, max_redemptions, times_redeemed, expiration_date, created_at
		FROM subscription_discounts
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`,
		p.PageSize, p.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list discounts: %w", err)
	}
	defer rows.Close()

	discounts := []Discount{}
	for rows.Next() {
		discount := Discount{}
		var maxRedemptions sql.NullInt64
		if err := rows.Scan(
			&discount.ID, &discount.Code, &discount.DiscountPercentage,
			&maxRedemptions, &discount.TimesRedeemed, &discount.ExpirationDate, &discount.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan discount: %w", err)
		}
		discount.MaxRedemptions = int(maxRedemptions.Int64)
		discounts = append(discounts, discount)
	}
	return discounts, rows.Err()
}
