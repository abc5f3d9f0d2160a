package metrics

import "github.com/prometheus/client_golang/prometheus"

// EventMetrics counts realtime pushes and payment webhook outcomes.
type EventMetrics struct {
	realtimePublished *prometheus.CounterVec
	realtimeDropped   *prometheus.CounterVec
	webhookEvents     *prometheus.CounterVec
}

// NewEventMetrics registers the realtime/webhook counters on the
// provided registerer.
func NewEventMetrics(reg prometheus.Registerer) *EventMetrics {
	if reg == nil {
		return &EventMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gigflow",
		Name:      "realtime_events_published",
		Help:      "Realtime events pushed to user channels.",
	}, []string{"kind"})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gigflow",
		Name:      "realtime_events_dropped",
		Help:      "Realtime events that failed to publish.",
	}, []string{"kind"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gigflow",
		Name:      "payment_webhook_events",
		Help:      "Payment webhook events by type and outcome.",
	}, []string{"type", "outcome"})
	reg.MustRegister(published, dropped, webhooks)
	return &EventMetrics{
		realtimePublished: published,
		realtimeDropped:   dropped,
		webhookEvents:     webhooks,
	}
}

// IncRealtimePublished counts a successful fan-out of the given kind.
func (e *EventMetrics) IncRealtimePublished(kind string) {
	if e == nil || e.realtimePublished == nil {
		return
	}
	e.realtimePublished.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncRealtimeDropped counts a failed fan-out of the given kind.
func (e *EventMetrics) IncRealtimeDropped(kind string) {
	if e == nil || e.realtimeDropped == nil {
		return
	}
	e.realtimeDropped.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncWebhookEvent counts a processed webhook event by outcome
// (applied, duplicate, ignored, failed).
func (e *EventMetrics) IncWebhookEvent(eventType, outcome string) {
	if e == nil || e.webhookEvents == nil {
		return
	}
	e.webhookEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}
