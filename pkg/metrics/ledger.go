package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics records outcomes and timings for ledger commits.
type LedgerMetrics struct {
	duration  *prometheus.HistogramVec
	success   *prometheus.CounterVec
	failure   *prometheus.CounterVec
	conflicts *prometheus.CounterVec
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_commit_duration_seconds",
		Help:    "Duration of ledger commits in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_commit_success",
		Help: "Committed ledger operations.",
	}, []string{"operation"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_commit_failure",
		Help: "Rejected or failed ledger operations.",
	}, []string{"operation", "code"})
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_commit_conflicts",
		Help: "Commit attempts retried after a concurrency conflict.",
	}, []string{"operation"})
	reg.MustRegister(duration, success, failure, conflicts)
	return &LedgerMetrics{
		duration:  duration,
		success:   success,
		failure:   failure,
		conflicts: conflicts,
	}
}

// ObserveDuration records the commit duration for the named operation.
func (l *LedgerMetrics) ObserveDuration(operation string, duration time.Duration) {
	if l == nil || l.duration == nil {
		return
	}
	l.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named operation.
func (l *LedgerMetrics) IncSuccess(operation string) {
	if l == nil || l.success == nil {
		return
	}
	l.success.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncFailure increments the failure counter for the named operation and error code.
func (l *LedgerMetrics) IncFailure(operation, code string) {
	if l == nil || l.failure == nil {
		return
	}
	l.failure.WithLabelValues(normalizeLabel(operation), normalizeLabel(code)).Inc()
}

// IncConflict increments the retry counter for the named operation.
func (l *LedgerMetrics) IncConflict(operation string) {
	if l == nil || l.conflicts == nil {
		return
	}
	l.conflicts.WithLabelValues(normalizeLabel(operation)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
