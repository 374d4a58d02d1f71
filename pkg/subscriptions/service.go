package subscriptions

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/layr-ng/layr-api/pkg/apierrors"
	"github.com/layr-ng/layr-api/pkg/config"
	"github.com/layr-ng/layr-api/pkg/httputil"
	"github.com/layr-ng/layr-api/pkg/observability"
	"github.com/layr-ng/layr-api/pkg/users"
)

// UserDirectory resolves the subscriber for the payment summary.
type UserDirectory interface {
	GetUserByID(ctx context.Context, id string) (*users.User, error)
}

// Service implements subscription operations.
type Service struct {
	store   Store
	gateway Gateway
	userDir UserDirectory
	pricing config.PricingTable
	logger  *observability.Logger
}

// NewService creates the subscriptions service.
func NewService(store Store, gateway Gateway, userDir UserDirectory, pricing config.PricingTable, logger *observability.Logger) *Service {
	return &Service{
		store:   store,
		gateway: gateway,
		userDir: userDir,
		pricing: pricing,
		logger:  logger,
	}
}

// Pricing returns the plan price table.
func (s *Service) Pricing() config.PricingTable {
	return s.pricing
}

// CalculateAmount prices a plan and cycle with an optional percentage
// discount applied.
func (s *Service) CalculateAmount(plan, cycle string, discountPercentage int) AmountSummary {
	var amount float64
	switch plan {
	case PlanPro:
		if cycle == CycleMonthly {
			amount = float64(s.pricing.Pro.Monthly)
		} else {
			amount = float64(s.pricing.Pro.Weekly)
		}
	case PlanTeam:
		if cycle == CycleMonthly {
			amount = float64(s.pricing.Team.Monthly)
		} else {
			amount = float64(s.pricing.Team.Weekly)
		}
	}

	var discountValue float64
	if discountPercentage > 0 {
		discountValue = amount * float64(discountPercentage) / 100
	}
	return AmountSummary{
		Amount:        amount,
		DiscountValue: discountValue,
		FinalAmount:   amount - discountValue,
	}
}

// Create opens a pending subscription for the user. At most one active
// subscription per account. The discount redemption is recorded in the same
// transaction as the subscription row.
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (*CreateResult, error) {
	if !ValidPlan(input.Plan) {
		return nil, apierrors.Validation("Invalid subscription plan")
	}
	if !ValidCycle(input.BillingCycle) {
		return nil, apierrors.Validation("Invalid billing cycle")
	}

	active, err := s.store.CountActiveForUser(ctx, userID)
	if err != nil {
		return nil, apierrors.Internal("Failed to create subscription", err)
	}
	if active > 0 {
		return nil, apierrors.Conflict("An active subscription already exist for this account")
	}

	summary := s.CalculateAmount(input.Plan, input.BillingCycle, 0)
	var discount *Discount
	if input.DiscountCode != "" {
		discount, err = s.validateDiscount(ctx, input.DiscountCode)
		if err != nil {
			return nil, err
		}
		summary = s.CalculateAmount(input.Plan, input.BillingCycle, discount.DiscountPercentage)
	}

	user, err := s.userDir.GetUserByID(ctx, userID)
	if err != nil {
		return nil, apierrors.Internal("Failed to create subscription", err)
	}

	now := time.Now()
	sub := &Subscription{
		ID:              uuid.NewString(),
		UserID:          userID,
		Plan:            input.Plan,
		BillingCycle:    input.BillingCycle,
		BillingCurrency: "usd",
		Amount:          summary.Amount,
		FinalAmount:     summary.FinalAmount,
		DiscountValue:   summary.DiscountValue,
		PaymentGateway:  "flutterwave",
		PaymentStatus:   PaymentPending,
		TxRef:           uuid.NewString(),
		StartDate:       now,
		EndDate:         subscriptionEndDate(now, input.BillingCycle),
	}

	var discountID string
	if discount != nil {
		discountID = discount.ID
		sub.DiscountID = discount.ID
	}
	if err := s.store.CreateWithDiscount(ctx, sub, discountID); err != nil {
		s.logger.WithError(err).Error("subscription creation failed")
		return nil, apierrors.Internal("Failed to create subscription", err)
	}

	return &CreateResult{
		UserEmail:    user.Email,
		UserFullName: user.FullName,
		Plan:         sub.Plan,
		BillingCycle: sub.BillingCycle,
		Summary:      summary,
		TxRef:        sub.TxRef,
	}, nil
}

// VerifyPayment checks the transaction with the gateway and records the
// reported status. Returns the status and a user-facing message.
func (s *Service) VerifyPayment(ctx context.Context, txRef string) (status, message string, err error) {
	if _, err := s.store.GetByTxRef(ctx, txRef); err == ErrNotFound {
		return "", "", apierrors.Validation("Could not validate subscription payment")
	} else if err != nil {
		return "", "", apierrors.Internal("Failed to verify payment", err)
	}

	tx, err := s.gateway.VerifyByReference(ctx, txRef)
	if err != nil {
		s.logger.WithError(err).Warn("gateway verification failed")
		return "", "", apierrors.Validation("Could not validate subscription payment ref")
	}

	if err := s.store.UpdatePaymentStatus(ctx, txRef, tx.Status); err != nil {
		return "", "", apierrors.Internal("Failed to verify payment", err)
	}
	return tx.Status, PaymentMessage(tx.Status), nil
}

// ListActive returns the user's active subscriptions.
func (s *Service) ListActive(ctx context.Context, userID string, p httputil.Pagination) ([]Subscription, error) {
	rows, err := s.store.ListActiveForUser(ctx, userID, p)
	if err != nil {
		return nil, apierrors.Internal("Failed to list subscriptions", err)
	}
	return rows, nil
}

// ListAll returns every subscription, for the admin console.
func (s *Service) ListAll(ctx context.Context, p httputil.Pagination) ([]Subscription, error) {
	rows, err := s.store.ListAll(ctx, p)
	if err != nil {
		return nil, apierrors.Internal("Failed to list subscriptions", err)
	}
	return rows, nil
}

// GetDiscount validates a discount code for checkout display.
func (s *Service) GetDiscount(ctx context.Context, code string) (*Discount, error) {
	return s.validateDiscount(ctx, code)
}

func (s *Service) validateDiscount(ctx context.Context, code string) (*Discount, error) {
	discount, err := s.store.GetDiscountByCode(ctx, code)
	if err == ErrNotFound {
		return nil, apierrors.Validation("Discount code expired or is invalid")
	}
	if err != nil {
		return nil, apierrors.Internal("Failed to validate discount", err)
	}
	if discount.ExpirationDate != nil && discount.ExpirationDate.Before(time.Now()) {
		return nil, apierrors.Validation("Discount code expired")
	}
	if discount.MaxRedemptions > 0 && discount.TimesRedeemed >= discount.MaxRedemptions {
		return nil, apierrors.Validation("Discount code has reached its usage limit")
	}
	return discount, nil
}

// CreateDiscount mints a new discount code for the admin console.
func (s *Service) CreateDiscount(ctx context.Context, input DiscountInput) (*Discount, error) {
	if input.DiscountPercentage < 1 || input.DiscountPercentage > 100 {
		return nil, apierrors.Validation("Discount percentage must be between 1 and 100")
	}

	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return nil, apierrors.Internal("Failed to create discount", err)
	}
	discount := &Discount{
		ID:                 uuid.NewString(),
		Code:               base64.StdEncoding.EncodeToString(buf),
		DiscountPercentage: input.DiscountPercentage,
		MaxRedemptions:     input.MaxRedemptions,
		ExpirationDate:     input.ExpirationDate,
	}
	if err := s.store.CreateDiscount(ctx, discount); err != nil {
		return nil, apierrors.Internal("Failed to create discount", err)
	}
	return discount, nil
}

// ListDiscounts returns discount codes for the admin console.
func (s *Service) ListDiscounts(ctx context.Context, p httputil.Pagination) ([]Discount, error) {
	rows, err := s.store.ListDiscounts(ctx, p)
	if err != nil {
		return nil, apierrors.Internal("Failed to list discounts", err)
	}
	return rows, nil
}

// ExpireOverdue fails pending subscriptions whose period has already ended.
func (s *Service) ExpireOverdue(ctx context.Context) error {
	n, err := s.store.ExpireOverdue(ctx)
	if err != nil {
		return fmt.Errorf("failed to expire subscriptions: %w", err)
	}
	if n > 0 {
		s.logger.WithField("count", n).Info("expired overdue pending subscriptions")
	}
	return nil
}

func subscriptionEndDate(start time.Time, cycle string) time.Time {
	if cycle == CycleWeekly {
		return start.AddDate(0, 0, 7)
	}
	return start.AddDate(0, 1, 0)
}

// PaymentMessage maps a gateway payment status to the message shown to the
// subscriber.
func PaymentMessage(status string) string {
	switch status {
	case "successful":
		return "🎉 Payment successful! Your premium access is now unlocked"
	case "failed":
		return "❌ Payment failed. Please try again or use a different payment method"
	case "pending":
		return "⏳ Payment processing... Your subscription will activate once confirmed"
	case "reversed":
		return "↩️ Payment reversed. Please contact support if this is unexpected"
	case "timeout":
		return "⏰ Payment timed out. Please try again"
	case "cancelled":
		return "🚫 Payment cancelled. No charges were made to your account"
	case "queued":
		return "📥 Payment queued. Processing may take a few moments"
	case "incomplete":
		return "⚠️ Payment incomplete. Please finish the payment process"
	default:
		return "Payment status unknown"
	}
}
