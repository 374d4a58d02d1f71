// Package subscriptions implements paid plans: pricing, discount codes,
// subscription creation and payment verification against the gateway.
package subscriptions

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a subscription or discount does not exist.
var ErrNotFound = errors.New("subscriptions: not found")

// Plans.
const (
	PlanPro  = "pro"
	PlanTeam = "team"
)

// Billing cycles.
const (
	CycleWeekly  = "weekly"
	CycleMonthly = "monthly"
)

// Payment statuses the API acts on. The gateway may report further statuses
// which are stored verbatim.
const (
	PaymentPending    = "pending"
	PaymentSuccessful = "successful"
	PaymentFailed     = "failed"
)

// Subscription is a purchased plan period.
type Subscription struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	Plan              string     `json:"plan"`
	BillingCycle      string     `json:"billing_cycle"`
	BillingCurrency   string     `json:"billing_currency"`
	Amount            float64    `json:"amount"`
	FinalAmount       float64    `json:"final_amount"`
	IsTrial           bool       `json:"is_trial"`
	TrialEndDate      *time.Time `json:"trial_end_date,omitempty"`
	IsDiscountApplied bool       `json:"is_discount_applied"`
	DiscountValue     float64    `json:"discount_value"`
	DiscountID        string     `json:"discount_id,omitempty"`
	PaymentGateway    string     `json:"payment_gateway"`
	PaymentStatus     string     `json:"payment_status"`
	TxRef             string     `json:"payment_transaction_ref"`
	StartDate         time.Time  `json:"start_date"`
	EndDate           time.Time  `json:"end_date"`
	CreatedAt         time.Time  `json:"created_at"`
}

// Discount is a redeemable discount code.
type Discount struct {
	ID                 string     `json:"id"`
	Code               string     `json:"code"`
	DiscountPercentage int        `json:"discount_percentage"`
	MaxRedemptions     int        `json:"max_redemptions,omitempty"`
	TimesRedeemed      int        `json:"times_redeemed"`
	ExpirationDate     *time.Time `json:"expiration_date,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// CreateInput is the payload for starting a subscription.
type CreateInput struct {
	Plan         string `json:"plan"`
	BillingCycle string `json:"billing_cycle"`
	DiscountCode string `json:"discount_code,omitempty"`
}

// DiscountInput is the admin payload for minting a discount code.
type DiscountInput struct {
	DiscountPercentage int        `json:"discount_percentage"`
	MaxRedemptions     int        `json:"max_redemptions,omitempty"`
	ExpirationDate     *time.Time `json:"expiration_date,omitempty"`
}

// AmountSummary is the priced breakdown of a subscription before payment.
type AmountSummary struct {
	Amount        float64 `json:"amount"`
	DiscountValue float64 `json:"discount_value"`
	FinalAmount   float64 `json:"final_amount"`
}

// CreateResult is returned after a subscription row is created, pending
// payment.
type CreateResult struct {
	UserEmail    string        `json:"-"`
	UserFullName string        `json:"-"`
	Plan         string        `json:"plan"`
	BillingCycle string        `json:"billing_cycle"`
	Summary      AmountSummary `json:"summary"`
	TxRef        string        `json:"payment_transaction_ref"`
}

// ValidPlan reports whether plan names a purchasable plan.
func ValidPlan(plan string) bool {
	return plan == PlanPro || plan == PlanTeam
}

// ValidCycle reports whether cycle names a billing cycle.
func ValidCycle(cycle string) bool {
	return cycle == CycleWeekly || cycle == CycleMonthly
}
