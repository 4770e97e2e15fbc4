package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const statusSyncLeaderKey = "matchfeed:status-sync:leader"

var releaseLeaderScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LeaderElector implements Redis-based leader election using SET NX with a TTL.
// Used so that only one instance runs the status sync at a time.
type LeaderElector struct {
	rdb        *goredis.Client
	instanceID string
	lockKey    string
	lockTTL    time.Duration
}

// NewLeaderElector creates a leader election coordinator.
// instanceID must be unique per process.
func NewLeaderElector(rdb *goredis.Client, instanceID string, ttl time.Duration) *LeaderElector {
	return &LeaderElector{
		rdb:        rdb,
		instanceID: instanceID,
		lockKey:    statusSyncLeaderKey,
		lockTTL:    ttl,
	}
}

// TryAcquire reports whether this instance holds leadership after the call.
func (l *LeaderElector) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, l.lockKey, l.instanceID, l.lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire leader lock: %w", err)
	}
	return ok, nil
}

// Renew extends the lease. It fails if another instance holds the lock.
func (l *LeaderElector) Renew(ctx context.Context) error {
	current, err := l.rdb.Get(ctx, l.lockKey).Result()
	if errors.Is(err, goredis.Nil) {
		return errors.New("leader lock lost")
	}
	if err != nil {
		return fmt.Errorf("failed to check leader: %w", err)
	}
	if current != l.instanceID {
		return fmt.Errorf("leader lock held by %s", current)
	}

	ok, err := l.rdb.Expire(ctx, l.lockKey, l.lockTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to renew leader lock: %w", err)
	}
	if !ok {
		return errors.New("leader lock lost during renewal")
	}
	return nil
}

// Release gives up leadership if this instance still holds it.
func (l *LeaderElector) Release(ctx context.Context) error {
	return releaseLeaderScript.Run(ctx, l.rdb, []string{l.lockKey}, l.instanceID).Err()
}
