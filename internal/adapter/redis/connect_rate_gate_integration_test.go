package redis

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/matchfeed/internal/admission"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectRateGate_Integration_InitialBurst(t *testing.T) {
	client := setupTestClient(t)
	gate := NewConnectRateGate(client, clockwork.NewFakeClock(), 5, 60, false)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, err := gate.Allow(ctx, "203.0.113.1")
		require.NoError(t, err)
		assert.True(t, allowed, "connect %d should be allowed (burst)", i+1)
	}

	allowed, err := gate.Allow(ctx, "203.0.113.1")
	require.NoError(t, err)
	assert.False(t, allowed, "bucket exhausted")
}

func TestConnectRateGate_Integration_Refill(t *testing.T) {
	client := setupTestClient(t)
	clock := clockwork.NewFakeClock()
	gate := NewConnectRateGate(client, clock, 5, 60, false)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := gate.Allow(ctx, "203.0.113.2")
		require.NoError(t, err)
	}
	allowed, err := gate.Allow(ctx, "203.0.113.2")
	require.NoError(t, err)
	require.False(t, allowed)

	// 60 per minute refills one token per second.
	clock.Advance(2 * time.Second)

	for i := 0; i < 2; i++ {
		allowed, err := gate.Allow(ctx, "203.0.113.2")
		require.NoError(t, err)
		assert.True(t, allowed, "refilled token %d", i+1)
	}
	allowed, err = gate.Allow(ctx, "203.0.113.2")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestConnectRateGate_Integration_IndependentIPs(t *testing.T) {
	client := setupTestClient(t)
	gate := NewConnectRateGate(client, clockwork.NewFakeClock(), 1, 60, false)
	ctx := context.Background()

	allowed, err := gate.Allow(ctx, "198.51.100.1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = gate.Allow(ctx, "198.51.100.2")
	require.NoError(t, err)
	assert.True(t, allowed, "other IPs have their own bucket")
}

func TestConnectRateGate_Integration_KeyExpires(t *testing.T) {
	client := setupTestClient(t)
	gate := NewConnectRateGate(client, clockwork.NewFakeClock(), 10, 60, false)
	ctx := context.Background()

	_, err := gate.Allow(ctx, "198.51.100.3")
	require.NoError(t, err)

	ttl, err := client.PTTL(ctx, connectRateKey("198.51.100.3")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, 11*time.Second)
}

func TestConnectRateGate_Integration_Decide(t *testing.T) {
	client := setupTestClient(t)
	gate := NewConnectRateGate(client, clockwork.NewFakeClock(), 1, 60, true)
	ctx := context.Background()

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("X-Forwarded-For", "192.0.2.44")

	decision, err := gate.Decide(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, admission.Allow, decision)

	decision, err = gate.Decide(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, admission.RateLimited, decision)

	exists, err := client.Exists(ctx, connectRateKey("192.0.2.44")).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists, "bucket is keyed by the forwarded client address")
}
