package metrics

import "github.com/prometheus/client_golang/prometheus"

// HubMetrics holds Prometheus metrics for the real-time fan-out hub.
type HubMetrics struct {
	ActiveConnections   prometheus.Gauge
	ActiveTopics        prometheus.Gauge
	EventsDelivered     *prometheus.CounterVec
	DeliveriesSkipped   prometheus.Counter
	DeliveryFailures    prometheus.Counter
	SlowClientEvictions prometheus.Counter
	LivenessEvictions   prometheus.Counter
	InboundMessages     *prometheus.CounterVec
	AdmissionDecisions  *prometheus.CounterVec
}

// NewHubMetrics creates and registers hub metrics on the given registry.
func NewHubMetrics(reg prometheus.Registerer) *HubMetrics {
	m := &HubMetrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "active_connections",
			Help:      "Number of registered WebSocket connections.",
		}),
		ActiveTopics: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "active_topics",
			Help:      "Number of match topics with at least one subscriber.",
		}),
		EventsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "events_delivered_total",
			Help:      "Total number of events queued for delivery, by event type.",
		}, []string{"type"}),
		DeliveriesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "deliveries_skipped_total",
			Help:      "Total number of deliveries skipped because the connection was no longer open.",
		}),
		DeliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "delivery_failures_total",
			Help:      "Total number of transport write failures.",
		}),
		SlowClientEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "slow_client_evictions_total",
			Help:      "Total number of connections evicted because their send queue was full.",
		}),
		LivenessEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "liveness_evictions_total",
			Help:      "Total number of connections terminated for missing a liveness probe.",
		}),
		InboundMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "inbound_messages_total",
			Help:      "Total number of inbound frames, by routing result.",
		}, []string{"result"}),
		AdmissionDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "admission_decisions_total",
			Help:      "Total number of admission decisions, by outcome.",
		}, []string{"decision"}),
	}

	reg.MustRegister(
		m.ActiveConnections,
		m.ActiveTopics,
		m.EventsDelivered,
		m.DeliveriesSkipped,
		m.DeliveryFailures,
		m.SlowClientEvictions,
		m.LivenessEvictions,
		m.InboundMessages,
		m.AdmissionDecisions,
	)
	return m
}
