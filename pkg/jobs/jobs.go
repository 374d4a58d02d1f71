// Package jobs runs the API's periodic maintenance work on a cron schedule.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/layr-ng/layr-api/pkg/observability"
)

// SubscriptionSweeper fails pending subscriptions that can no longer complete.
type SubscriptionSweeper interface {
	ExpireOverdue(ctx context.Context) error
}

// InvitePurger removes stale declined team invitations.
type InvitePurger interface {
	PurgeDeclinedInvites(ctx context.Context, olderThan time.Duration) (int64, error)
}

const declinedInviteRetention = 30 * 24 * time.Hour

// Scheduler owns the cron runner and its registered jobs.
type Scheduler struct {
	cron          *cron.Cron
	subscriptions SubscriptionSweeper
	invites       InvitePurger
	logger        *observability.Logger
	jobTimeout    time.Duration
}

// NewScheduler creates the scheduler. Either dependency may be nil to skip
// its job.
func NewScheduler(subscriptions SubscriptionSweeper, invites InvitePurger, logger *observability.Logger) *Scheduler {
	return &Scheduler{
		cron:          cron.New(),
		subscriptions: subscriptions,
		invites:       invites,
		logger:        logger,
		jobTimeout:    time.Minute,
	}
}

// Start registers the jobs and begins the schedule.
func (s *Scheduler) Start() error {
	if s.subscriptions != nil {
		// Hourly: pending payments whose period already ended will never
		// complete.
		if _, err := s.cron.AddFunc("@hourly", s.expireSubscriptions); err != nil {
			return err
		}
	}
	if s.invites != nil {
		if _, err := s.cron.AddFunc("@daily", s.purgeDeclinedInvites); err != nil {
			return err
		}
	}
	s.cron.Start()
	s.logger.Info("job scheduler started")
	return nil
}

// Stop halts the schedule and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("job scheduler stopped")
}

func (s *Scheduler) expireSubscriptions() {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	if err := s.subscriptions.ExpireOverdue(ctx); err != nil {
		s.logger.WithError(err).Error("subscription expiry sweep failed")
	}
}

func (s *Scheduler) purgeDeclinedInvites() {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	n, err := s.invites.PurgeDeclinedInvites(ctx, declinedInviteRetention)
	if err != nil {
		s.logger.WithError(err).Error("declined invite purge failed")
		return
	}
	if n > 0 {
		s.logger.WithField("count", n).Info("purged declined team invites")
	}
}
