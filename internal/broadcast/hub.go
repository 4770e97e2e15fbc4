package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/matchfeed/internal/adapter/metrics"
	"github.com/pscheid92/matchfeed/internal/admission"
	"github.com/pscheid92/matchfeed/internal/domain"
	"github.com/pscheid92/matchfeed/internal/platform/correlation"
)

const shutdownReason = "server shutting down"

type Config struct {
	Path              string
	MaxMessageBytes   int64
	HeartbeatInterval time.Duration
	SendBuffer        int
}

func DefaultConfig() Config {
	return Config{
		Path:              "/ws",
		MaxMessageBytes:   1 << 20,
		HeartbeatInterval: 30 * time.Second,
		SendBuffer:        16,
	}
}

type Stats struct {
	Connections int `json:"connections"`
	Topics      int `json:"topics"`
}

// Hub accepts WebSocket connections on a single path and fans match events
// out to them. It implements domain.MatchEventPublisher.
type Hub struct {
	cfg      Config
	gate     admission.Gate
	metrics  *metrics.HubMetrics
	registry *Registry
	router   *Router
	monitor  *LivenessMonitor
	upgrader websocket.Upgrader

	mu            sync.RWMutex
	started       bool
	stopping      bool
	cancelMonitor context.CancelFunc
	monitorDone   chan struct{}

	// conns tracks in-flight accept handlers, from admission to unregister.
	conns sync.WaitGroup
}

var _ domain.MatchEventPublisher = (*Hub)(nil)

// NewHub wires a hub. gate may be nil, in which case every request is admitted.
func NewHub(cfg Config, gate admission.Gate, clock clockwork.Clock, m *metrics.HubMetrics) *Hub {
	h := &Hub{
		cfg:      cfg,
		gate:     gate,
		metrics:  m,
		registry: NewRegistry(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin policy belongs to the admission gate.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	h.registry.observe = h.observe
	h.router = NewRouter(h.registry, m, h.evictSlow)
	h.monitor = NewLivenessMonitor(h.registry, clock, cfg.HeartbeatInterval, h.evictDead)
	return h
}

func (h *Hub) Registry() *Registry { return h.registry }

// Start launches the liveness monitor and begins accepting connections.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.started || h.stopping {
		return
	}
	h.started = true

	ctx, cancel := context.WithCancel(context.Background())
	h.cancelMonitor = cancel
	h.monitorDone = make(chan struct{})
	go func() {
		defer close(h.monitorDone)
		h.monitor.Run(ctx)
	}()

	slog.Info("Hub started", "path", h.cfg.Path, "heartbeat_interval", h.cfg.HeartbeatInterval)
}

// Stop refuses new connections, stops the liveness monitor and closes every
// client with a normal-closure frame. It returns once all accept handlers have
// finished or ctx expires.
func (h *Hub) Stop(ctx context.Context) error {
	h.mu.Lock()
	if h.stopping {
		h.mu.Unlock()
		return nil
	}
	h.stopping = true
	cancel, monitorDone := h.cancelMonitor, h.monitorDone
	h.mu.Unlock()

	if cancel != nil {
		cancel()
		select {
		case <-monitorDone:
		case <-ctx.Done():
			return fmt.Errorf("waiting for liveness monitor: %w", ctx.Err())
		}
	}

	clients := h.registry.AllConnections()
	slog.Info("Hub shutting down", "connections", len(clients))

	var wg sync.WaitGroup
	for _, c := range clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.CloseGracefully(shutdownReason)
		}()
	}
	wg.Wait()

	done := make(chan struct{})
	go func() {
		h.conns.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Hub shutdown complete", "disconnected_clients", len(clients))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for connections to drain: %w", ctx.Err())
	}
}

// Intercept routes requests for the hub path to the hub and everything else to next.
func (h *Hub) Intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != h.cfg.Path {
			next.ServeHTTP(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// ServeHTTP runs admission, upgrades the connection and serves it until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.beginAccept() {
		http.Error(w, shutdownReason, http.StatusServiceUnavailable)
		return
	}
	defer h.conns.Done()

	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, "websocket upgrade required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	decision, err := admission.Evaluate(ctx, h.gate, r)
	h.metrics.AdmissionDecisions.WithLabelValues(decision.String()).Inc()
	if decision != admission.Allow {
		if err != nil {
			slog.ErrorContext(ctx, "Admission gate failed", "remote_addr", r.RemoteAddr, "error", err)
		}
		status := decision.HTTPStatus()
		http.Error(w, http.StatusText(status), status)
		return
	}
	defer admission.Release(h.gate, r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		slog.WarnContext(ctx, "WebSocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	id := uuid.NewString()
	connCtx := correlation.WithID(context.WithoutCancel(ctx), id)
	client := newClient(connCtx, id, conn, h.cfg.SendBuffer, h.cfg.MaxMessageBytes, h.writeFailed)

	if !h.register(client) {
		client.CloseGracefully(shutdownReason)
		return
	}
	defer h.disconnect(client)

	slog.DebugContext(connCtx, "Client connected", "remote_addr", r.RemoteAddr)
	h.router.send(connCtx, client, Welcome())
	h.readLoop(connCtx, client)
}

func (h *Hub) readLoop(ctx context.Context, c *Client) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				slog.DebugContext(ctx, "Client read failed", "error", err)
			}
			return
		}
		h.router.HandleInbound(ctx, c, data)
	}
}

// BroadcastMatchCreated sends match_created to every connection. It never
// blocks on a client and never panics into the caller.
func (h *Hub) BroadcastMatchCreated(match domain.Match) {
	if !h.accepting() {
		return
	}
	defer h.recoverBroadcast(EventMatchCreated)

	n := h.router.BroadcastMatchCreated(context.Background(), match)
	slog.Debug("Broadcast match created", "match_id", match.ID, "recipients", n)
}

// BroadcastCommentary sends a commentary event to the subscribers of matchID.
func (h *Hub) BroadcastCommentary(matchID int64, entry domain.Commentary) {
	if !h.accepting() {
		return
	}
	defer h.recoverBroadcast(EventCommentary)

	n := h.router.BroadcastCommentary(context.Background(), matchID, entry)
	slog.Debug("Broadcast commentary", "match_id", matchID, "recipients", n)
}

func (h *Hub) Stats() Stats {
	connections, topics := h.registry.Counts()
	return Stats{Connections: connections, Topics: topics}
}

func (h *Hub) recoverBroadcast(eventType EventType) {
	if r := recover(); r != nil {
		slog.Error("Broadcast panic recovered", "type", string(eventType), "panic", r)
	}
}

func (h *Hub) beginAccept() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.started || h.stopping {
		return false
	}
	h.conns.Add(1)
	return true
}

func (h *Hub) accepting() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.started && !h.stopping
}

// register holds the read lock so Stop cannot miss a client registered
// concurrently with shutdown.
func (h *Hub) register(c *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.stopping {
		return false
	}
	return h.registry.Register(c)
}

func (h *Hub) disconnect(c *Client) {
	h.registry.Unregister(c)
	c.Terminate()
	slog.DebugContext(c.Context(), "Client disconnected")
}

func (h *Hub) evictSlow(c *Client) {
	h.registry.Unregister(c)
	c.Terminate()
}

func (h *Hub) evictDead(c *Client) {
	h.metrics.LivenessEvictions.Inc()
	slog.InfoContext(c.Context(), "Terminating unresponsive client")
}

func (h *Hub) writeFailed(c *Client, err error) {
	h.metrics.DeliveryFailures.Inc()
	slog.WarnContext(c.Context(), "WebSocket write failed", "error", err)
	h.registry.Unregister(c)
	c.Terminate()
}

func (h *Hub) observe(connections, topics int) {
	h.metrics.ActiveConnections.Set(float64(connections))
	h.metrics.ActiveTopics.Set(float64(topics))
}
