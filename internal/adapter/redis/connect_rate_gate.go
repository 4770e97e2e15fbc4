package redis

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/matchfeed/internal/admission"
	goredis "github.com/redis/go-redis/v9"
)

const connectRateTimeout = 2 * time.Second

// connectTokenBucketScript refills the bucket for the time elapsed since the last
// call, then tries to take one token. The bucket expires once it would be full again.
// ARGV: [1]=capacity, [2]=tokens per minute, [3]=now_ms
// Returns 1 if a token was taken, 0 otherwise.
var connectTokenBucketScript = goredis.NewScript(`
local capacity = tonumber(ARGV[1])
local per_ms = tonumber(ARGV[2]) / 60000.0
local now = tonumber(ARGV[3])

local bucket = redis.call('HMGET', KEYS[1], 'tokens', 'last_refill')
local tokens = tonumber(bucket[1])
local last_refill = tonumber(bucket[2])
if tokens == nil or last_refill == nil then
  tokens = capacity
  last_refill = now
end

local elapsed = math.max(0, now - last_refill)
tokens = math.min(capacity, tokens + elapsed * per_ms)

local allowed = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
end

redis.call('HSET', KEYS[1], 'tokens', tostring(tokens), 'last_refill', tostring(now))
redis.call('PEXPIRE', KEYS[1], math.ceil(capacity / per_ms) + 1000)
return allowed
`)

// ConnectRateGate is an admission gate limiting WebSocket connection attempts per
// client IP with a token bucket kept in Redis. Any Redis failure yields
// admission.Error so the hub refuses the connection.
type ConnectRateGate struct {
	rdb        *goredis.Client
	clock      clockwork.Clock
	capacity   int
	perMinute  int
	trustProxy bool
}

var _ admission.Gate = (*ConnectRateGate)(nil)

// NewConnectRateGate allows capacity immediate connects per IP, refilled at perMinute.
func NewConnectRateGate(rdb *goredis.Client, clock clockwork.Clock, capacity, perMinute int, trustProxy bool) *ConnectRateGate {
	return &ConnectRateGate{
		rdb:        rdb,
		clock:      clock,
		capacity:   capacity,
		perMinute:  perMinute,
		trustProxy: trustProxy,
	}
}

func connectRateKey(ip string) string {
	return "rate_limit:ws_connect:" + ip
}

// Allow takes one token from ip's bucket.
func (g *ConnectRateGate) Allow(ctx context.Context, ip string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, connectRateTimeout)
	defer cancel()

	allowed, err := connectTokenBucketScript.Run(ctx, g.rdb, []string{connectRateKey(ip)},
		g.capacity,
		g.perMinute,
		g.clock.Now().UnixMilli(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("connect rate check failed: %w", err)
	}
	return allowed == 1, nil
}

func (g *ConnectRateGate) Decide(ctx context.Context, r *http.Request) (admission.Decision, error) {
	ip := admission.ClientIP(r, g.trustProxy)
	allowed, err := g.Allow(ctx, ip)
	if err != nil {
		return admission.Error, err
	}
	if !allowed {
		slog.InfoContext(ctx, "Connect rate limit exceeded", "ip", ip)
		return admission.RateLimited, nil
	}
	return admission.Allow, nil
}
