package access

import (
	"context"
	"time"

	"github.com/layr-ng/layr-api/pkg/apierrors"
	"github.com/layr-ng/layr-api/pkg/observability"
)

// Checker resolves whether an actor may perform a method class against a
// diagram.
type Checker struct {
	store   Store
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewChecker creates a checker. The metrics argument may be nil.
func NewChecker(store Store, logger *observability.Logger, metrics *observability.Metrics) *Checker {
	return &Checker{
		store:   store,
		logger:  logger,
		metrics: metrics,
	}
}

// Decide authorizes userID against diagramID for the given method class.
// On success it returns the decision with the rule that granted access; on
// denial it returns an API error whose message names the missing privilege.
//
// Tier order is fixed. The creator is allowed unconditionally. If the
// diagram is shared with a team the actor belongs to, the team role decides
// and direct participant rows are ignored, even when they would grant more.
func (c *Checker) Decide(ctx context.Context, userID, diagramID string, class MethodClass) (Decision, error) {
	start := time.Now()
	decision, err := c.decide(ctx, userID, diagramID, class)
	c.observe(decision, err, time.Since(start))
	return decision, err
}

func (c *Checker) decide(ctx context.Context, userID, diagramID string, class MethodClass) (Decision, error) {
	creatorID, found, err := c.store.DiagramCreator(ctx, diagramID)
	if err != nil {
		return c.fail(err, "diagram lookup failed")
	}
	if !found {
		return Decision{Rule: RuleNone}, apierrors.NotFound("Diagram not found")
	}
	if creatorID == userID {
		return Decision{Allowed: true, Rule: RuleCreator}, nil
	}

	teamRole, found, err := c.store.TeamRole(ctx, diagramID, userID)
	if err != nil {
		return c.fail(err, "team role lookup failed")
	}
	if found {
		// A team membership settles the decision. Direct participant
		// rows are not consulted as a fallback.
		switch class {
		case ClassAdmin:
			if teamRole != TeamRoleOwner {
				return Decision{Rule: RuleTeam}, apierrors.Forbidden("Owner privileges required for team diagram")
			}
		case ClassWrite:
			if teamRole == TeamRoleViewer {
				return Decision{Rule: RuleTeam}, apierrors.Forbidden("Write access required for team diagram")
			}
		}
		return Decision{Allowed: true, Rule: RuleTeam}, nil
	}

	participantRole, found, err := c.store.ParticipantRole(ctx, diagramID, userID)
	if err != nil {
		return c.fail(err, "participant role lookup failed")
	}
	if !found {
		return Decision{Rule: RuleNone}, apierrors.Forbidden("No access to this diagram")
	}

	switch class {
	case ClassAdmin:
		if participantRole != ParticipantAdmin {
			return Decision{Rule: RuleParticipant}, apierrors.Forbidden("Admin privileges required")
		}
	case ClassWrite:
		if participantRole == ParticipantViewer {
			return Decision{Rule: RuleParticipant}, apierrors.Forbidden("Write access required")
		}
	}
	return Decision{Allowed: true, Rule: RuleParticipant}, nil
}

func (c *Checker) fail(err error, msg string) (Decision, error) {
	c.logger.WithError(err).Error(msg)
	return Decision{Rule: RuleNone}, apierrors.Internal("Authorization check failed", err)
}

func (c *Checker) observe(decision Decision, err error, elapsed time.Duration) {
	if c.metrics == nil {
		return
	}
	outcome := "allow"
	if err != nil {
		outcome = "deny"
		if apierrors.IsCode(err, apierrors.CodeInternal) {
			outcome = "error"
		}
	}
	c.metrics.ObserveAccessDecision(outcome, string(decision.Rule), elapsed)
}
