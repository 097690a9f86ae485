package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mikey/llm-mailbot/internal/core"
)

// Chat metrics
var (
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailbot_commands_total",
			Help: "Total number of chat commands handled",
		},
		[]string{"command"},
	)

	RejectedInitiatorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailbot_rejected_initiators_total",
			Help: "Total number of messages from initiators not on the allow-list",
		},
	)

	DraftsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailbot_drafts_total",
			Help: "Total number of draft lifecycle events",
		},
		[]string{"event"},
	)
)

// Backend metrics
var (
	BackendCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailbot_backend_calls_total",
			Help: "Total number of calls to the classification and generation backend",
		},
		[]string{"operation", "status"},
	)

	BackendCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailbot_backend_call_duration_seconds",
			Help:    "Duration of backend calls in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)
)

// Reconciliation metrics
var (
	ReconcileMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailbot_reconcile_messages_total",
			Help: "Total number of messages examined by reconciliation, by outcome",
		},
		[]string{"outcome"},
	)

	ReconcileRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailbot_reconcile_runs_total",
			Help: "Total number of reconciliation runs",
		},
		[]string{"trigger"},
	)
)

// ObserveReconcile records the outcome of one reconciliation batch
func ObserveReconcile(trigger string, report *core.ReconcileReport) {
	ReconcileRunsTotal.WithLabelValues(trigger).Inc()
	if report == nil {
		return
	}
	ReconcileMessagesTotal.WithLabelValues("moved").Add(float64(report.Moved))
	ReconcileMessagesTotal.WithLabelValues("unchanged").Add(float64(report.Unchanged))
	ReconcileMessagesTotal.WithLabelValues("error").Add(float64(report.Errors))
}
