package observability

import (
	"time"

	"github.com/boddenberg/statement-recon-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Cache names used as metric labels.
const CacheStatements = "statements"

// Metrics holds all Prometheus metrics for the reconciler.
type Metrics struct {
	// Registry owns these metrics and backs the /metrics endpoint.
	Registry *prometheus.Registry

	operationDuration *prometheus.HistogramVec
	externalErrors    *prometheus.CounterVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
	runsTotal         *prometheus.CounterVec
	checkFailures     *prometheus.CounterVec
	transactions      *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it, so it can be called more than once in tests.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "recon_operation_duration_seconds",
				Help:    "Duration of reconciliation operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recon_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recon_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recon_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recon_runs_total",
				Help: "Reconciliation runs by outcome.",
			},
			[]string{"status"},
		),
		checkFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recon_check_failures_total",
				Help: "Metric comparisons that disagreed, by metric.",
			},
			[]string{"metric"},
		),
		transactions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recon_transactions_compared_total",
				Help: "Transactions that reached the comparator, by source.",
			},
			[]string{"source"},
		),
	}
}

// RecordDuration records the duration of an operation.
func (m *Metrics) RecordDuration(operation string, d time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordComparison counts one finished comparison.
func (m *Metrics) RecordComparison(c *domain.Comparison) {
	v := c.Verdict
	if v.AllMatch {
		m.runsTotal.WithLabelValues(domain.RunStatusMatched).Inc()
	} else {
		m.runsTotal.WithLabelValues(domain.RunStatusMismatched).Inc()
	}

	failed := map[string]bool{
		"total_credit":           !v.Checks.TotalCredit,
		"total_debit":            !v.Checks.TotalDebit,
		"avg_monthly_credit_l6m": !v.Checks.AvgMonthlyCreditL6M,
		"avg_eod_l6m":            !v.Checks.AvgEODL6M,
	}
	for metric, f := range failed {
		if f {
			m.checkFailures.WithLabelValues(metric).Inc()
		}
	}

	m.transactions.WithLabelValues("source_a").Add(float64(len(c.SourceA)))
	m.transactions.WithLabelValues("source_b").Add(float64(len(c.SourceB)))
}

// IncrFailedRun counts a reconciliation that produced no verdict.
func (m *Metrics) IncrFailedRun() {
	m.runsTotal.WithLabelValues(domain.RunStatusFailed).Inc()
}

// Snapshot returns the counters behind GET /v1/metrics/reconciliation.
func (m *Metrics) Snapshot() *domain.ReconciliationSnapshot {
	matched := getCounterValue(m.runsTotal, domain.RunStatusMatched)
	mismatched := getCounterValue(m.runsTotal, domain.RunStatusMismatched)
	failed := getCounterValue(m.runsTotal, domain.RunStatusFailed)
	hits := getCounterValue(m.cacheHits, CacheStatements)
	misses := getCounterValue(m.cacheMisses, CacheStatements)

	total := matched + mismatched + failed
	matchRate := float64(0)
	if total > 0 {
		matchRate = matched / total
	}
	cacheHitRate := float64(0)
	if hits+misses > 0 {
		cacheHitRate = hits / (hits + misses)
	}

	return &domain.ReconciliationSnapshot{
		TotalRuns:      int64(total),
		Matched:        int64(matched),
		Mismatched:     int64(mismatched),
		Failed:         int64(failed),
		MatchRate:      matchRate,
		CacheHitRate:   cacheHitRate,
		ExternalErrors: int64(sumCounter(m.externalErrors)),
	}
}

// getCounterValue extracts the current value of a CounterVec for one label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// sumCounter adds up every label combination of a CounterVec.
func sumCounter(cv *prometheus.CounterVec) float64 {
	ch := make(chan prometheus.Metric, 16)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()

	total := float64(0)
	for metric := range ch {
		m := &dto.Metric{}
		if err := metric.Write(m); err == nil && m.Counter != nil {
			total += m.Counter.GetValue()
		}
	}
	return total
}
