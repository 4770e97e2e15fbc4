package broadcast

import (
	"context"
	"log/slog"

	"github.com/pscheid92/matchfeed/internal/adapter/metrics"
	"github.com/pscheid92/matchfeed/internal/domain"
)

const malformedMessageText = "Invalid JSON"

// Router applies inbound control frames to the Registry and fans outbound
// events to the matching clients.
type Router struct {
	registry *Registry
	metrics  *metrics.HubMetrics
	// evictSlow is called for clients whose send queue is full.
	evictSlow func(*Client)
}

func NewRouter(registry *Registry, m *metrics.HubMetrics, evictSlow func(*Client)) *Router {
	return &Router{registry: registry, metrics: m, evictSlow: evictSlow}
}

// HandleInbound processes one frame received from c. Frames from the same client
// are handled in arrival order because the read loop calls this synchronously.
func (r *Router) HandleInbound(ctx context.Context, c *Client, data []byte) {
	msg, err := parseInbound(data)
	if err != nil {
		r.metrics.InboundMessages.WithLabelValues("malformed").Inc()
		slog.DebugContext(ctx, "Malformed inbound frame", "bytes", len(data))
		r.send(ctx, c, ErrorEvent(malformedMessageText))
		return
	}

	switch m := msg.(type) {
	case subscribeRequest:
		if !r.registry.Subscribe(c, m.matchID) {
			return
		}
		r.metrics.InboundMessages.WithLabelValues("subscribe").Inc()
		r.send(ctx, c, Subscribed(m.matchID))
	case unsubscribeRequest:
		r.registry.Unsubscribe(c, m.matchID)
		r.metrics.InboundMessages.WithLabelValues("unsubscribe").Inc()
		r.send(ctx, c, Unsubscribed(m.matchID))
	case ignoredMessage:
		r.metrics.InboundMessages.WithLabelValues("ignored").Inc()
		slog.DebugContext(ctx, "Ignoring inbound frame", "reason", m.reason)
	default:
		slog.WarnContext(ctx, "Unhandled inbound message", "message", m)
	}
}

// BroadcastMatchCreated announces match to every registered client.
func (r *Router) BroadcastMatchCreated(ctx context.Context, match domain.Match) int {
	return r.deliver(ctx, r.registry.AllConnections(), MatchCreated(match))
}

// BroadcastCommentary delivers entry to the subscribers of matchID only.
// A topic without subscribers is a no-op.
func (r *Router) BroadcastCommentary(ctx context.Context, matchID int64, entry domain.Commentary) int {
	subscribers := r.registry.SubscribersOf(matchID)
	if len(subscribers) == 0 {
		return 0
	}
	return r.deliver(ctx, subscribers, CommentaryAdded(entry))
}

// deliver encodes ev once and queues it on each client independently.
// Returns the number of clients the event was queued for.
func (r *Router) deliver(ctx context.Context, clients []*Client, ev Event) int {
	data, err := ev.encode()
	if err != nil {
		slog.ErrorContext(ctx, "Failed to encode event", "type", string(ev.Type), "error", err)
		return 0
	}

	delivered := 0
	for _, c := range clients {
		if r.enqueue(c, ev.Type, data) {
			delivered++
		}
	}
	return delivered
}

func (r *Router) send(ctx context.Context, c *Client, ev Event) {
	data, err := ev.encode()
	if err != nil {
		slog.ErrorContext(ctx, "Failed to encode event", "type", string(ev.Type), "error", err)
		return
	}
	r.enqueue(c, ev.Type, data)
}

func (r *Router) enqueue(c *Client, eventType EventType, data []byte) bool {
	switch c.enqueue(data) {
	case sendQueued:
		r.metrics.EventsDelivered.WithLabelValues(string(eventType)).Inc()
		return true
	case sendSkipped:
		r.metrics.DeliveriesSkipped.Inc()
	case sendQueueFull:
		slog.WarnContext(c.Context(), "Disconnecting slow client", "event_type", string(eventType))
		r.metrics.SlowClientEvictions.Inc()
		if r.evictSlow != nil {
			r.evictSlow(c)
		}
	}
	return false
}
