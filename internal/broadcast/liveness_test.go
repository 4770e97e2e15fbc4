package broadcast

import (
	"context"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLivenessMonitor_SweepProbesAliveClients(t *testing.T) {
	r := NewRegistry()
	c, conn := newTestClient(t, 4)
	r.Register(c)
	m := NewLivenessMonitor(r, clockwork.NewFakeClock(), 30*time.Second, nil)

	probed, evicted := m.sweep()
	assert.Equal(t, 1, probed)
	assert.Equal(t, 0, evicted)
	assert.False(t, c.alive.Load(), "flag is cleared until a pong arrives")
	assert.Equal(t, websocket.PingMessage, conn.waitFrame(t))
}

func TestLivenessMonitor_AnsweredProbeSurvives(t *testing.T) {
	r := NewRegistry()
	c, conn := newTestClient(t, 4)
	r.Register(c)
	m := NewLivenessMonitor(r, clockwork.NewFakeClock(), 30*time.Second, nil)

	for round := 0; round < 3; round++ {
		_, evicted := m.sweep()
		require.Equal(t, 0, evicted, "round %d", round)
		conn.waitFrame(t)
		conn.receivePong()
	}

	assert.True(t, r.Contains(c))
	assert.False(t, conn.isClosed())
}

func TestLivenessMonitor_TwoMissedProbesEvict(t *testing.T) {
	r := NewRegistry()
	c, conn := newTestClient(t, 4)
	r.Register(c)
	r.Subscribe(c, 42)

	var evictedClients []*Client
	m := NewLivenessMonitor(r, clockwork.NewFakeClock(), 30*time.Second, func(c *Client) {
		evictedClients = append(evictedClients, c)
	})

	_, evicted := m.sweep()
	require.Equal(t, 0, evicted)

	_, evicted = m.sweep()
	assert.Equal(t, 1, evicted)
	assert.Equal(t, []*Client{c}, evictedClients)
	assert.False(t, r.Contains(c))
	assert.Empty(t, r.Topics(), "evicted client leaves its topics")
	assert.True(t, conn.isClosed(), "evicted client is terminated")
	assert.False(t, c.Open())
}

func TestLivenessMonitor_EvictionCountedWhenCloseUnregisters(t *testing.T) {
	r := NewRegistry()
	c, conn := newTestClient(t, 4)
	r.Register(c)

	// Mirrors the accept handler: a closed transport ends the read loop,
	// which unregisters the client on its way out.
	readLoopDone := make(chan struct{})
	go func() {
		defer close(readLoopDone)
		<-conn.closedCh
		r.Unregister(c)
	}()

	var openAtEviction bool
	evictions := 0
	m := NewLivenessMonitor(r, clockwork.NewFakeClock(), 30*time.Second, func(evicted *Client) {
		evictions++
		openAtEviction = !conn.isClosed()
	})

	m.sweep()
	_, evicted := m.sweep()
	<-readLoopDone

	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, evictions)
	assert.True(t, openAtEviction, "client is unregistered before its transport closes")
	assert.False(t, r.Contains(c))
	assert.True(t, conn.isClosed())
}

func TestLivenessMonitor_MissedThenAnsweredSurvives(t *testing.T) {
	r := NewRegistry()
	c, conn := newTestClient(t, 4)
	r.Register(c)
	m := NewLivenessMonitor(r, clockwork.NewFakeClock(), 30*time.Second, nil)

	m.sweep()
	conn.waitFrame(t)
	conn.receivePong()

	_, evicted := m.sweep()
	assert.Equal(t, 0, evicted)
	assert.True(t, r.Contains(c))
}

func TestLivenessMonitor_RunUsesClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	r := NewRegistry()
	c, conn := newTestClient(t, 4)
	r.Register(c)
	m := NewLivenessMonitor(r, clock, 30*time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Run(ctx)
	}()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))

	clock.Advance(29 * time.Second)
	assert.Equal(t, 0, conn.pingCount(), "no probe before a full interval")

	clock.Advance(time.Second)
	assert.Equal(t, websocket.PingMessage, conn.waitFrame(t))

	clock.Advance(30 * time.Second)
	assert.Eventually(t, func() bool { return !r.Contains(c) }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop after cancel")
	}
}
