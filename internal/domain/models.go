// Package domain provides core domain models and types.
package domain

import (
	"sort"
	"time"
)

// PricePoint is a single observed price.
type PricePoint struct {
	Timestamp int64   `json:"timestamp"` // Unix seconds
	Price     float64 `json:"price"`
}

// PriceSeries is a price history ordered ascending by timestamp.
// Empty and single-point series are valid.
type PriceSeries []PricePoint

// Prices returns the price column of the series.
func (s PriceSeries) Prices() []float64 {
	prices := make([]float64, len(s))
	for i, p := range s {
		prices[i] = p.Price
	}
	return prices
}

// IsSorted reports whether timestamps are non-decreasing.
func (s PriceSeries) IsSorted() bool {
	return sort.SliceIsSorted(s, func(i, j int) bool { return s[i].Timestamp < s[j].Timestamp })
}

// Sorted returns an ascending copy of the series. Points sharing a timestamp keep their order.
func (s PriceSeries) Sorted() PriceSeries {
	sorted := make(PriceSeries, len(s))
	copy(sorted, s)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })
	return sorted
}

// ReportStatus tells whether an asset was analyzed.
type ReportStatus string

const (
	StatusOK     ReportStatus = "ok"
	StatusFailed ReportStatus = "failed"
)

// Metric names used as keys in RiskReport.MetricErrors.
const (
	MetricVolatility             = "volatility"
	MetricSharpeRatio            = "sharpe_ratio"
	MetricSortinoRatio           = "sortino_ratio"
	MetricValueAtRisk            = "value_at_risk"
	MetricConditionalValueAtRisk = "conditional_value_at_risk"
	MetricMaxDrawdown            = "max_drawdown"
	MetricBeta                   = "beta"
)

// RiskReport is the analysis result for one asset.
//
// Metric fields are nil when the metric is undefined for the observed data;
// MetricErrors then holds the reason under the metric's name. A failed report
// carries ErrorKind and Error and no metrics at all.
type RiskReport struct {
	AssetID           string       `json:"asset_id"`
	Status            ReportStatus `json:"status"`
	AllocationPercent float64      `json:"allocation_percent"`
	LookbackDays      int          `json:"lookback_days"`
	VaRConfidence     float64      `json:"var_confidence"`
	CVaRConfidence    float64      `json:"cvar_confidence"`
	PricePoints       int          `json:"price_points"`
	Returns           int          `json:"returns"`

	Volatility             *float64 `json:"volatility"`
	SharpeRatio            *float64 `json:"sharpe_ratio"`
	SortinoRatio           *float64 `json:"sortino_ratio"`
	ValueAtRisk            *float64 `json:"value_at_risk"`
	ConditionalValueAtRisk *float64 `json:"conditional_value_at_risk"`
	MaxDrawdown            *float64 `json:"max_drawdown"`
	Beta                   *float64 `json:"beta,omitempty"`
	BenchmarkAssetID       string   `json:"benchmark_asset_id,omitempty"`

	MetricErrors map[string]string `json:"metric_errors,omitempty"`
	Narrative    string            `json:"narrative,omitempty"`

	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// OK reports whether the asset was analyzed successfully.
func (r RiskReport) OK() bool {
	return r.Status == StatusOK
}

// NewFailedReport builds the report slot for an asset that could not be analyzed.
func NewFailedReport(cfg AssetConfig, err error) RiskReport {
	return RiskReport{
		AssetID:           cfg.AssetID,
		Status:            StatusFailed,
		AllocationPercent: cfg.AllocationPercent,
		LookbackDays:      cfg.LookbackDays,
		VaRConfidence:     cfg.VaRConfidence,
		CVaRConfidence:    cfg.CVaRConfidence,
		ErrorKind:         KindOf(err),
		Error:             err.Error(),
	}
}

// BatchResult is the envelope returned for a batch of assets.
// Success is true only when every asset was analyzed.
type BatchResult struct {
	RunID       string       `json:"run_id"`
	Success     bool         `json:"success"`
	Succeeded   int          `json:"succeeded"`
	Failed      int          `json:"failed"`
	GeneratedAt time.Time    `json:"generated_at"`
	Data        []RiskReport `json:"data"`
}

// NewBatchResult wraps reports in an envelope and counts outcomes.
func NewBatchResult(runID string, reports []RiskReport, generatedAt time.Time) BatchResult {
	result := BatchResult{
		RunID:       runID,
		GeneratedAt: generatedAt,
		Data:        reports,
	}
	if result.Data == nil {
		result.Data = []RiskReport{}
	}
	for _, r := range reports {
		if r.OK() {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}
	result.Success = result.Failed == 0
	return result
}
