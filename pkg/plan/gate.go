// Package plan enforces free-plan quotas. Any active paid subscription
// bypasses every quota without counting rows; only unsubscribed users are
// measured against the caps.
package plan

import (
	"context"

	"github.com/layr-ng/layr-api/pkg/apierrors"
	"github.com/layr-ng/layr-api/pkg/observability"
)

// Free plan caps.
const (
	FreeDiagramLimit       = 3
	FreePublicDiagramLimit = 1
)

// Store provides the counts the gate needs.
type Store interface {
	// CountActiveSubscriptions counts paid subscriptions that have not
	// expired.
	CountActiveSubscriptions(ctx context.Context, userID string) (int, error)

	// CountDiagrams counts diagrams created by the user.
	CountDiagrams(ctx context.Context, userID string) (int, error)

	// CountPublicDiagrams counts public diagrams created by the user.
	CountPublicDiagrams(ctx context.Context, userID string) (int, error)
}

// Gate checks free-plan quotas before a gated operation proceeds.
//
// The count-then-act window is not closed here. Two concurrent creations can
// both observe a count below the cap; the cap is advisory, not a hard
// database constraint.
type Gate struct {
	store   Store
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewGate creates a plan gate. The metrics argument may be nil.
func NewGate(store Store, logger *observability.Logger, metrics *observability.Metrics) *Gate {
	return &Gate{
		store:   store,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckDiagramCreation denies unsubscribed users at the diagram cap.
func (g *Gate) CheckDiagramCreation(ctx context.Context, userID string) error {
	subscribed, err := g.hasActiveSubscription(ctx, userID)
	if err != nil {
		return err
	}
	if subscribed {
		return nil
	}

	count, err := g.store.CountDiagrams(ctx, userID)
	if err != nil {
		g.logger.WithError(err).Error("diagram count failed")
		return apierrors.Internal("Authorization check failed", err)
	}

	if count == FreeDiagramLimit {
		g.denied("diagrams")
		return apierrors.PlanLimit("You’ve reached the 3-diagram limit on the Free Plan. Upgrade to Pro for unlimited diagrams.")
	}
	return nil
}

// CheckPublicShare denies unsubscribed users at the public diagram cap.
func (g *Gate) CheckPublicShare(ctx context.Context, userID string) error {
	subscribed, err := g.hasActiveSubscription(ctx, userID)
	if err != nil {
		return err
	}
	if subscribed {
		return nil
	}

	count, err := g.store.CountPublicDiagrams(ctx, userID)
	if err != nil {
		g.logger.WithError(err).Error("public diagram count failed")
		return apierrors.Internal("Authorization check failed", err)
	}

	if count == FreePublicDiagramLimit {
		g.denied("public_links")
		return apierrors.PlanLimit("Free Plan limit reached: you can only make up to 1 diagrams public for sharing. Upgrade to Pro to unlock unlimited shareable links.")
	}
	return nil
}

// RequireActiveSubscription rejects users without an active paid
// subscription.
func (g *Gate) RequireActiveSubscription(ctx context.Context, userID string) error {
	subscribed, err := g.hasActiveSubscription(ctx, userID)
	if err != nil {
		return err
	}
	if !subscribed {
		return apierrors.New(apierrors.CodeNoSubscription,
			"Looks like you don’t have an active subscription yet. Subscribe now to unlock your account.")
	}
	return nil
}

func (g *Gate) hasActiveSubscription(ctx context.Context, userID string) (bool, error) {
	count, err := g.store.CountActiveSubscriptions(ctx, userID)
	if err != nil {
		g.logger.WithError(err).Error("subscription count failed")
		return false, apierrors.Internal("Authorization check failed", err)
	}
	return count > 0, nil
}

func (g *Gate) denied(quota string) {
	if g.metrics != nil {
		g.metrics.PlanDenialsTotal.WithLabelValues(quota).Inc()
	}
}
