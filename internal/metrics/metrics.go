package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Sync results used as the "result" label.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	sourceSyncTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scirius_source_sync_total",
		Help: "Total number of source refreshes by result",
	}, []string{"result"})
	sourceSyncDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scirius_source_sync_duration_seconds",
		Help:    "Duration of successful source refreshes",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})
	rulesImportedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scirius_rules_imported_total",
		Help: "Total number of rules written by source refreshes",
	}, []string{"change"})
	rulesetExportsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scirius_ruleset_exports_total",
		Help: "Total number of generated ruleset exports",
	})
)

// Register registers Prometheus collectors. Call once at startup.
func Register(registry *prometheus.Registry) {
	registry.MustRegister(sourceSyncTotal, sourceSyncDuration, rulesImportedTotal, rulesetExportsTotal)
}

// ObserveSync records one refresh outcome.
func ObserveSync(err error, seconds float64) {
	if err != nil {
		sourceSyncTotal.WithLabelValues(ResultFailure).Inc()
		return
	}
	sourceSyncTotal.WithLabelValues(ResultSuccess).Inc()
	sourceSyncDuration.Observe(seconds)
}

// AddImportedRules counts rules created and updated by a merge.
func AddImportedRules(added, updated int) {
	rulesImportedTotal.WithLabelValues("added").Add(float64(added))
	rulesImportedTotal.WithLabelValues("updated").Add(float64(updated))
}

// IncRulesetExport increments the export counter.
func IncRulesetExport() { rulesetExportsTotal.Inc() }
