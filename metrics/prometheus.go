package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics implements the Metrics interface using Prometheus.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	// Block metrics
	blockHeight       prometheus.Gauge
	blocksVerified    prometheus.Counter
	blocksValidated   prometheus.Counter
	blocksRejected    *prometheus.CounterVec
	blockApplyLatency prometheus.Histogram
	blockSize         prometheus.Gauge

	// Transaction metrics
	txsApplied  *prometheus.CounterVec
	txsRejected *prometheus.CounterVec

	// Evaluation metrics
	methodsEvaluated prometheus.Counter
	evalFailures     *prometheus.CounterVec
	deltasEmitted    prometheus.Counter
	evalLatency      prometheus.Histogram

	// World metrics
	worldAccounts  prometheus.Gauge
	worldAssets    prometheus.Gauge
	worldContracts prometheus.Gauge

	// State store metrics
	stateStoreVersion prometheus.Gauge
	stateStoreCommits prometheus.Counter
	stateStoreLatency *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance.
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	m := &PrometheusMetrics{
		registry: registry,

		// Block metrics
		blockHeight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "block_height",
				Help:      "Height of the last validated block",
			},
		),
		blocksVerified: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "blocks_verified_total",
				Help:      "Total number of blocks that passed verification",
			},
		),
		blocksValidated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "blocks_validated_total",
				Help:      "Total number of blocks applied to the world state",
			},
		),
		blocksRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "blocks_rejected_total",
				Help:      "Total number of rejected blocks",
			},
			[]string{"reason"},
		),
		blockApplyLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "block_apply_latency_seconds",
				Help:      "Time to apply a block's transactions",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
		),
		blockSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "block_size_bytes",
				Help:      "Size of the latest block in bytes",
			},
		),

		// Transaction metrics
		txsApplied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "txs_applied_total",
				Help:      "Total number of transactions applied, by header kind",
			},
			[]string{"kind"},
		),
		txsRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "txs_rejected_total",
				Help:      "Total number of invalid transactions, by header kind and cause",
			},
			[]string{"kind", "cause"},
		),

		// Evaluation metrics
		methodsEvaluated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "methods_evaluated_total",
				Help:      "Total number of contract method evaluations",
			},
		),
		evalFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "eval_failures_total",
				Help:      "Total number of evaluation failures, by kind",
			},
			[]string{"kind"},
		),
		deltasEmitted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deltas_emitted_total",
				Help:      "Total number of deltas emitted by evaluations",
			},
		),
		evalLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "eval_latency_seconds",
				Help:      "Time to evaluate a contract method",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
		),

		// World metrics
		worldAccounts: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "world_accounts",
				Help:      "Number of accounts in the world state",
			},
		),
		worldAssets: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "world_assets",
				Help:      "Number of assets in the world state",
			},
		),
		worldContracts: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "world_contracts",
				Help:      "Number of contracts in the world state",
			},
		),

		// State store metrics
		stateStoreVersion: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "statestore_version",
				Help:      "Latest committed state store version",
			},
		),
		stateStoreCommits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "statestore_commits_total",
				Help:      "Total number of state store commits",
			},
		),
		stateStoreLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "statestore_latency_seconds",
				Help:      "State store operation latency",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
			[]string{"op"},
		),
	}

	m.register()
	return m
}

func (m *PrometheusMetrics) register() {
	m.registry.MustRegister(
		// Block metrics
		m.blockHeight,
		m.blocksVerified,
		m.blocksValidated,
		m.blocksRejected,
		m.blockApplyLatency,
		m.blockSize,

		// Transaction metrics
		m.txsApplied,
		m.txsRejected,

		// Evaluation metrics
		m.methodsEvaluated,
		m.evalFailures,
		m.deltasEmitted,
		m.evalLatency,

		// World metrics
		m.worldAccounts,
		m.worldAssets,
		m.worldContracts,

		// State store metrics
		m.stateStoreVersion,
		m.stateStoreCommits,
		m.stateStoreLatency,
	)
}

// Block metrics implementation

func (m *PrometheusMetrics) SetBlockHeight(height int64) {
	m.blockHeight.Set(float64(height))
}

func (m *PrometheusMetrics) IncBlocksVerified() {
	m.blocksVerified.Inc()
}

func (m *PrometheusMetrics) IncBlocksValidated() {
	m.blocksValidated.Inc()
}

func (m *PrometheusMetrics) IncBlocksRejected(reason string) {
	m.blocksRejected.WithLabelValues(reason).Inc()
}

func (m *PrometheusMetrics) ObserveBlockApplyLatency(latency time.Duration) {
	m.blockApplyLatency.Observe(latency.Seconds())
}

func (m *PrometheusMetrics) SetBlockSize(size int) {
	m.blockSize.Set(float64(size))
}

// Transaction metrics implementation

func (m *PrometheusMetrics) IncTxsApplied(kind string) {
	m.txsApplied.WithLabelValues(kind).Inc()
}

func (m *PrometheusMetrics) IncTxsRejected(kind, cause string) {
	m.txsRejected.WithLabelValues(kind, cause).Inc()
}

// Evaluation metrics implementation

func (m *PrometheusMetrics) IncMethodsEvaluated() {
	m.methodsEvaluated.Inc()
}

func (m *PrometheusMetrics) IncEvalFailures(kind string) {
	m.evalFailures.WithLabelValues(kind).Inc()
}

func (m *PrometheusMetrics) IncDeltasEmitted(count int) {
	m.deltasEmitted.Add(float64(count))
}

func (m *PrometheusMetrics) ObserveEvalLatency(latency time.Duration) {
	m.evalLatency.Observe(latency.Seconds())
}

// World metrics implementation

func (m *PrometheusMetrics) SetWorldAccounts(count int) {
	m.worldAccounts.Set(float64(count))
}

func (m *PrometheusMetrics) SetWorldAssets(count int) {
	m.worldAssets.Set(float64(count))
}

func (m *PrometheusMetrics) SetWorldContracts(count int) {
	m.worldContracts.Set(float64(count))
}

// State store metrics implementation

func (m *PrometheusMetrics) SetStateStoreVersion(version int64) {
	m.stateStoreVersion.Set(float64(version))
}

func (m *PrometheusMetrics) IncStateStoreCommits() {
	m.stateStoreCommits.Inc()
}

func (m *PrometheusMetrics) ObserveStateStoreLatency(op string, latency time.Duration) {
	m.stateStoreLatency.WithLabelValues(op).Observe(latency.Seconds())
}

// Handler returns an HTTP handler for serving metrics.
func (m *PrometheusMetrics) Handler() any {
	return m.HTTPHandler()
}

// HTTPHandler returns a typed HTTP handler for serving metrics.
func (m *PrometheusMetrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
