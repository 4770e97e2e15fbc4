package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusSyncer_TickWithoutLeader(t *testing.T) {
	clock := clockwork.NewFakeClockAt(kickoff)
	var seen time.Time
	repo := &mockMatchRepo{syncStatusesFn: func(_ context.Context, now time.Time) (int64, error) {
		seen = now
		return 2, nil
	}}

	s := NewStatusSyncer(repo, nil, clock, time.Minute)
	s.tick(context.Background())

	assert.True(t, seen.Equal(kickoff))
}

func TestStatusSyncer_FollowerSkipsSync(t *testing.T) {
	var calls atomic.Int32
	repo := &mockMatchRepo{syncStatusesFn: func(context.Context, time.Time) (int64, error) {
		calls.Add(1)
		return 0, nil
	}}
	leader := &mockLeadership{acquire: false}

	s := NewStatusSyncer(repo, leader, clockwork.NewFakeClock(), time.Minute)
	s.tick(context.Background())
	s.tick(context.Background())

	assert.Equal(t, int32(0), calls.Load())
	acquires, renews, _ := leader.counts()
	assert.Equal(t, 2, acquires)
	assert.Equal(t, 0, renews)
}

func TestStatusSyncer_LeaderRenewsThenReacquiresAfterLoss(t *testing.T) {
	var calls atomic.Int32
	repo := &mockMatchRepo{syncStatusesFn: func(context.Context, time.Time) (int64, error) {
		calls.Add(1)
		return 0, nil
	}}
	leader := &mockLeadership{acquire: true}

	s := NewStatusSyncer(repo, leader, clockwork.NewFakeClock(), time.Minute)
	s.tick(context.Background())
	s.tick(context.Background())

	acquires, renews, _ := leader.counts()
	assert.Equal(t, 1, acquires)
	assert.Equal(t, 1, renews)
	assert.Equal(t, int32(2), calls.Load())

	leader.mu.Lock()
	leader.renewErr = errors.New("leader lock lost")
	leader.acquire = false
	leader.mu.Unlock()

	s.tick(context.Background())
	assert.Equal(t, int32(2), calls.Load(), "lost leadership must stop syncing")
	assert.False(t, s.leading)
}

func TestStatusSyncer_ElectionErrorSkipsSync(t *testing.T) {
	var calls atomic.Int32
	repo := &mockMatchRepo{syncStatusesFn: func(context.Context, time.Time) (int64, error) {
		calls.Add(1)
		return 0, nil
	}}
	leader := &mockLeadership{acquireErr: errors.New("redis down")}

	s := NewStatusSyncer(repo, leader, clockwork.NewFakeClock(), time.Minute)
	s.tick(context.Background())

	assert.Equal(t, int32(0), calls.Load())
}

func TestStatusSyncer_RunTicksAndReleasesOnCancel(t *testing.T) {
	clock := clockwork.NewFakeClock()
	synced := make(chan struct{}, 4)
	repo := &mockMatchRepo{syncStatusesFn: func(context.Context, time.Time) (int64, error) {
		synced <- struct{}{}
		return 1, nil
	}}
	leader := &mockLeadership{acquire: true}
	s := NewStatusSyncer(repo, leader, clock, 30*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
	clock.Advance(30 * time.Second)

	select {
	case <-synced:
	case <-time.After(2 * time.Second):
		t.Fatal("sync did not run after tick")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	_, _, releases := leader.counts()
	assert.Equal(t, 1, releases)
}
