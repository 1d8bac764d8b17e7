// Package metrics exposes analysis telemetry through Prometheus.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/aristath/riskpulse/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "riskpulse"

// AdhocAssetLabel replaces the asset_id label of assets that are not tracked.
const AdhocAssetLabel = "adhoc"

// Recorder records fetch, asset and batch outcomes.
type Recorder struct {
	registry *prometheus.Registry

	fetchDuration *prometheus.HistogramVec
	fetchErrors   *prometheus.CounterVec
	assetsTotal   *prometheus.CounterVec
	assetMetric   *prometheus.GaugeVec
	batchDuration prometheus.Histogram
	batchesTotal  *prometheus.CounterVec

	mu      sync.RWMutex
	tracked map[string]struct{}
}

// New creates a recorder registered on registry. A nil registry gets a fresh
// one with the Go and process collectors.
func New(registry *prometheus.Registry) *Recorder {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		tracked:  make(map[string]struct{}),
		fetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "price_fetch_duration_seconds",
				Help:      "Duration of historical price fetches in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"asset_id"},
		),
		fetchErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "price_fetch_errors_total",
				Help:      "Total number of failed price fetches",
			},
			[]string{"asset_id", "kind"},
		),
		assetsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "assets_analyzed_total",
				Help:      "Total number of analyzed assets by outcome",
			},
			[]string{"status", "kind"},
		),
		assetMetric: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "asset_risk_metric",
				Help:      "Last computed risk metric per asset",
			},
			[]string{"asset_id", "metric"},
		),
		batchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "batch_duration_seconds",
				Help:      "Duration of portfolio analysis runs in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		batchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batches_total",
				Help:      "Total number of portfolio analysis runs",
			},
			[]string{"success"},
		),
	}
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// TrackAssets allows the given asset IDs as asset_id label values. Any other
// asset is counted under AdhocAssetLabel and gets no per-asset gauges, which
// keeps request-supplied IDs from creating new series.
func (r *Recorder) TrackAssets(assetIDs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range assetIDs {
		if id != "" {
			r.tracked[id] = struct{}{}
		}
	}
}

func (r *Recorder) isTracked(assetID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tracked[assetID]
	return ok
}

func (r *Recorder) assetLabel(assetID string) string {
	if r.isTracked(assetID) {
		return assetID
	}
	return AdhocAssetLabel
}

// ObserveFetch records one price fetch.
func (r *Recorder) ObserveFetch(assetID string, duration time.Duration, err error) {
	label := r.assetLabel(assetID)
	r.fetchDuration.WithLabelValues(label).Observe(duration.Seconds())
	if err != nil {
		r.fetchErrors.WithLabelValues(label, string(domain.KindOf(err))).Inc()
	}
}

// RecordReport counts the asset outcome and publishes its defined metrics.
func (r *Recorder) RecordReport(report domain.RiskReport) {
	r.assetsTotal.WithLabelValues(string(report.Status), string(report.ErrorKind)).Inc()
	if !report.OK() || !r.isTracked(report.AssetID) {
		return
	}

	values := map[string]*float64{
		domain.MetricVolatility:             report.Volatility,
		domain.MetricSharpeRatio:            report.SharpeRatio,
		domain.MetricSortinoRatio:           report.SortinoRatio,
		domain.MetricValueAtRisk:            report.ValueAtRisk,
		domain.MetricConditionalValueAtRisk: report.ConditionalValueAtRisk,
		domain.MetricMaxDrawdown:            report.MaxDrawdown,
		domain.MetricBeta:                   report.Beta,
	}
	for name, v := range values {
		if v == nil {
			r.assetMetric.DeleteLabelValues(report.AssetID, name)
			continue
		}
		r.assetMetric.WithLabelValues(report.AssetID, name).Set(*v)
	}
}

// ObserveBatch records one completed run.
func (r *Recorder) ObserveBatch(duration time.Duration, result domain.BatchResult) {
	r.batchDuration.Observe(duration.Seconds())
	if result.Success {
		r.batchesTotal.WithLabelValues("true").Inc()
	} else {
		r.batchesTotal.WithLabelValues("false").Inc()
	}
}
