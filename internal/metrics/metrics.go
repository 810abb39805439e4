package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesTotal counts consumed claim messages by dispatch outcome.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assignment_messages_total",
			Help: "Total number of claim messages handled by the dispatcher.",
		},
		[]string{"outcome"},
	)

	// AssignmentsCreated counts persisted assignments by status (pending/assigned).
	AssignmentsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assignment_created_total",
			Help: "Total number of assignments written.",
		},
		[]string{"status"},
	)

	// RuleEvaluations counts individual rule evaluations.
	RuleEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assignment_rule_evaluations_total",
			Help: "Total number of rule evaluations by rule type and result.",
		},
		[]string{"rule_type", "applied"},
	)

	ProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assignment_processing_duration_seconds",
			Help:    "Time spent handling a single claim message.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

var registerStatusOnce sync.Once

// RegisterConsumerStatus exposes the queue consumer's connection state as gauges.
// Only the first call registers; later calls are ignored.
func RegisterConsumerStatus(isConnected func() bool, reconnectAttempts func() int) {
	registerStatusOnce.Do(func() {
		promauto.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "assignment_consumer_connected",
				Help: "1 if the assignment queue consumer is connected, 0 otherwise.",
			},
			func() float64 {
				if isConnected() {
					return 1
				}
				return 0
			},
		)
		promauto.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "assignment_consumer_reconnect_attempts",
				Help: "Reconnect attempts made since the consumer last connected.",
			},
			func() float64 { return float64(reconnectAttempts()) },
		)
	})
}

// ObserveDuration records the time elapsed since start.
func ObserveDuration(start time.Time) {
	ProcessingDuration.Observe(time.Since(start).Seconds())
}
