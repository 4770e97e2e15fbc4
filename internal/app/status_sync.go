package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/matchfeed/internal/domain"
	"github.com/pscheid92/matchfeed/internal/platform/correlation"
)

// Leadership gates work that must run on a single instance.
type Leadership interface {
	TryAcquire(ctx context.Context) (bool, error)
	Renew(ctx context.Context) error
	Release(ctx context.Context) error
}

// StatusSyncer periodically moves stored match statuses along the
// scheduled -> live -> finished window as time passes.
type StatusSyncer struct {
	matches  domain.MatchRepository
	leader   Leadership
	clock    clockwork.Clock
	interval time.Duration

	leading bool
}

// NewStatusSyncer creates the sync job. leader may be nil, in which case every
// instance syncs on each tick.
func NewStatusSyncer(matches domain.MatchRepository, leader Leadership, clock clockwork.Clock, interval time.Duration) *StatusSyncer {
	return &StatusSyncer{
		matches:  matches,
		leader:   leader,
		clock:    clock,
		interval: interval,
	}
}

// Run blocks until ctx is cancelled.
func (s *StatusSyncer) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.resign()
			return
		case <-ticker.Chan():
			s.tick(ctx)
		}
	}
}

func (s *StatusSyncer) tick(ctx context.Context) {
	tickCtx := correlation.WithID(ctx, correlation.NewID())

	if !s.holdsLeadership(tickCtx) {
		return
	}

	n, err := s.matches.SyncStatuses(tickCtx, s.clock.Now())
	if err != nil {
		slog.WarnContext(tickCtx, "Status sync failed", "error", err)
		return
	}
	if n > 0 {
		slog.InfoContext(tickCtx, "Match statuses synced", "updated", n)
	}
}

func (s *StatusSyncer) holdsLeadership(ctx context.Context) bool {
	if s.leader == nil {
		return true
	}

	if s.leading {
		err := s.leader.Renew(ctx)
		if err == nil {
			return true
		}
		slog.WarnContext(ctx, "Status sync leadership lost", "error", err)
		s.leading = false
	}

	acquired, err := s.leader.TryAcquire(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Status sync leader election failed", "error", err)
		return false
	}
	if acquired {
		slog.InfoContext(ctx, "Acquired status sync leadership")
	}
	s.leading = acquired
	return acquired
}

func (s *StatusSyncer) resign() {
	if s.leader == nil || !s.leading {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.leader.Release(ctx); err != nil {
		slog.Warn("Failed to release status sync leadership", "error", err)
	}
	s.leading = false
}
