package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	candidates    *prometheus.CounterVec
	selections    *prometheus.CounterVec
	skipped       *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	qualityScore  *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
	backtestRuns  *prometheus.CounterVec
	backtestQueue prometheus.Gauge
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		candidates: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigforge_candidates_total",
				Help: "Candidate signals produced per symbol and direction",
			},
			[]string{"symbol", "direction"},
		),
		selections: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigforge_selections_total",
				Help: "Selection records persisted per period",
			},
			[]string{"period"},
		),
		skipped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigforge_symbols_skipped_total",
				Help: "Symbols skipped during an evaluation cycle",
			},
			[]string{"reason"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigforge_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		qualityScore: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sigforge_last_quality_score",
				Help: "Quality score of the last candidate per symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sigforge_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		backtestRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigforge_backtest_runs_total",
				Help: "Backtest runs by terminal status",
			},
			[]string{"status"},
		),
		backtestQueue: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "sigforge_backtest_queue_depth",
				Help: "Backtest jobs currently queued or running",
			},
		),
	}
}

// RecordCandidate records a produced candidate signal.
func (r *Recorder) RecordCandidate(symbol, direction string) {
	r.candidates.WithLabelValues(symbol, direction).Inc()
}

// RecordSelection records a persisted selection record.
func (r *Recorder) RecordSelection(period string) {
	r.selections.WithLabelValues(period).Inc()
}

// RecordSkip records a symbol skipped during evaluation.
func (r *Recorder) RecordSkip(reason string) {
	r.skipped.WithLabelValues(reason).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordQualityScore records the composite score of the latest candidate.
func (r *Recorder) RecordQualityScore(symbol string, score float64) {
	r.qualityScore.WithLabelValues(symbol).Set(score)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordBacktestRun records a backtest run reaching a terminal status.
func (r *Recorder) RecordBacktestRun(status string) {
	r.backtestRuns.WithLabelValues(status).Inc()
}

// SetBacktestQueueDepth tracks outstanding backtest jobs.
func (r *Recorder) SetBacktestQueueDepth(n int) {
	r.backtestQueue.Set(float64(n))
}
