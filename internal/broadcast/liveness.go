package broadcast

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// LivenessMonitor pings every registered client once per interval. A client
// whose previous ping went unanswered is terminated and unregistered, so a
// dead transport survives at most one full interval after its last pong.
type LivenessMonitor struct {
	registry *Registry
	clock    clockwork.Clock
	interval time.Duration
	onEvict  func(*Client)
}

func NewLivenessMonitor(registry *Registry, clock clockwork.Clock, interval time.Duration, onEvict func(*Client)) *LivenessMonitor {
	return &LivenessMonitor{
		registry: registry,
		clock:    clock,
		interval: interval,
		onEvict:  onEvict,
	}
}

// Run sweeps until ctx is canceled.
func (m *LivenessMonitor) Run(ctx context.Context) {
	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if ctx.Err() != nil {
				return
			}
			m.sweep()
		}
	}
}

func (m *LivenessMonitor) sweep() (probed, evicted int) {
	for _, c := range m.registry.AllConnections() {
		if !c.alive.CompareAndSwap(true, false) {
			// Must unregister before Terminate wakes the read loop's disconnect.
			if m.registry.Unregister(c) {
				evicted++
				if m.onEvict != nil {
					m.onEvict(c)
				}
			}
			c.Terminate()
			continue
		}
		c.probe()
		probed++
	}
	return probed, evicted
}
