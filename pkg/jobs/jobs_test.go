package jobs

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layr-ng/layr-api/pkg/observability"
)

type fakeSweeper struct {
	calls int
	err   error
}

func (f *fakeSweeper) ExpireOverdue(ctx context.Context) error {
	f.calls++
	return f.err
}

type fakePurger struct {
	calls     int
	olderThan time.Duration
	purged    int64
	err       error
}

func (f *fakePurger) PurgeDeclinedInvites(ctx context.Context, olderThan time.Duration) (int64, error) {
	f.calls++
	f.olderThan = olderThan
	return f.purged, f.err
}

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

func TestSchedulerStartStop(t *testing.T) {
	s := NewScheduler(&fakeSweeper{}, &fakePurger{}, testLogger())
	require.NoError(t, s.Start())
	s.Stop()
}

func TestSchedulerSkipsNilJobs(t *testing.T) {
	s := NewScheduler(nil, nil, testLogger())
	require.NoError(t, s.Start())
	assert.Empty(t, s.cron.Entries())
	s.Stop()
}

func TestExpireSubscriptionsInvokesSweeper(t *testing.T) {
	sweeper := &fakeSweeper{}
	s := NewScheduler(sweeper, nil, testLogger())

	s.expireSubscriptions()
	assert.Equal(t, 1, sweeper.calls)
}

func TestExpireSubscriptionsSwallowsErrors(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("db down")}
	s := NewScheduler(sweeper, nil, testLogger())

	s.expireSubscriptions()
	assert.Equal(t, 1, sweeper.calls)
}

func TestPurgeDeclinedInvitesUsesRetentionWindow(t *testing.T) {
	purger := &fakePurger{purged: 4}
	s := NewScheduler(nil, purger, testLogger())

	s.purgeDeclinedInvites()
	assert.Equal(t, 1, purger.calls)
	assert.Equal(t, 30*24*time.Hour, purger.olderThan)
}

func TestPurgeDeclinedInvitesSwallowsErrors(t *testing.T) {
	purger := &fakePurger{err: errors.New("db down")}
	s := NewScheduler(nil, purger, testLogger())

	s.purgeDeclinedInvites()
	assert.Equal(t, 1, purger.calls)
}
