package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhooksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hookrelay_webhooks_received_total",
		Help: "Total number of inbound webhooks by verification result.",
	}, []string{"result"})

	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hookrelay_upstream_requests_total",
		Help: "Total number of Hookdeck API calls by operation and outcome.",
	}, []string{"op", "outcome"})

	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hookrelay_upstream_duration_seconds",
		Help:    "Duration of Hookdeck API calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	EventsAugmented = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hookrelay_events_augmented_total",
		Help: "Total number of event summaries replaced with full records.",
	})
)

// Result labels for WebhooksReceived.
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
	ResultTooLarge = "too_large"
)
