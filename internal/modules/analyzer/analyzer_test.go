package analyzer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/riskpulse/internal/domain"
	"github.com/aristath/riskpulse/internal/modules/narrative"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const day = int64(86400)

// fakeSource serves canned series and errors per asset.
type fakeSource struct {
	mu     sync.Mutex
	series map[string]domain.PriceSeries
	errs   map[string]error
	calls  map[string]int
	days   map[string]int // last requested lookback
	block  bool           // wait for ctx to end before returning

	inFlight    int32
	maxInFlight int32
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		series: make(map[string]domain.PriceSeries),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
		days:   make(map[string]int),
	}
}

func (f *fakeSource) FetchHistoricalPrices(ctx context.Context, assetID string, lookbackDays int) (domain.PriceSeries, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		cur := atomic.LoadInt32(&f.maxInFlight)
		if n <= cur || atomic.CompareAndSwapInt32(&f.maxInFlight, cur, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls[assetID]++
	f.days[assetID] = lookbackDays
	series, err, block := f.series[assetID], f.errs[assetID], f.block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	time.Sleep(5 * time.Millisecond)
	return series, err
}

func (f *fakeSource) callCount(assetID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[assetID]
}

func daily(prices ...float64) domain.PriceSeries {
	series := make(domain.PriceSeries, len(prices))
	for i, p := range prices {
		series[i] = domain.PricePoint{Timestamp: 1_700_006_400 + int64(i)*day, Price: p}
	}
	return series
}

func asset(id string) domain.AssetConfig {
	return domain.AssetConfig{AssetID: id, AllocationPercent: 20, LookbackDays: 30, VaRConfidence: 0.95, CVaRConfidence: 0.95}
}

func newTestAnalyzer(source domain.PriceSource, cfg Config) *Analyzer {
	return New(source, narrative.NewRenderer(narrative.DefaultThresholds()), nil, cfg, zerolog.Nop())
}

func TestAnalyze_PartialFailureKeepsOrder(t *testing.T) {
	source := newFakeSource()
	source.series["bitcoin"] = daily(100, 110, 99, 105, 120)
	source.errs["ethereum"] = errors.New("connection reset")
	source.series["litecoin"] = daily(50, 51, 49, 52, 48)

	a := newTestAnalyzer(source, DefaultConfig())
	reports := a.Analyze(context.Background(), []domain.AssetConfig{asset("bitcoin"), asset("ethereum"), asset("litecoin")})

	require.Len(t, reports, 3)
	assert.Equal(t, "bitcoin", reports[0].AssetID)
	assert.Equal(t, "ethereum", reports[1].AssetID)
	assert.Equal(t, "litecoin", reports[2].AssetID)

	assert.True(t, reports[0].OK())
	assert.True(t, reports[2].OK())

	failed := reports[1]
	assert.Equal(t, domain.StatusFailed, failed.Status)
	assert.Equal(t, domain.KindSourceUnavailable, failed.ErrorKind)
	assert.Contains(t, failed.Error, "connection reset")
	assert.Nil(t, failed.Volatility)
	assert.Empty(t, failed.Narrative)
}

func TestAnalyze_RejectedConfigFailsInItsSlot(t *testing.T) {
	source := newFakeSource()
	source.series["bitcoin"] = daily(100, 110, 99, 105, 120)
	source.series["ethereum"] = daily(10, 11, 12, 11)
	source.series["litecoin"] = daily(50, 51, 49, 52, 48)

	bad, resolveErr := domain.AssetSpec{AssetID: "ethereum", VaRConfidence: new(float64)}.Resolve()
	require.Error(t, resolveErr)
	bad.ConfigErr = resolveErr

	reports := newTestAnalyzer(source, DefaultConfig()).Analyze(context.Background(), []domain.AssetConfig{asset("bitcoin"), bad, asset("litecoin")})

	require.Len(t, reports, 3)
	assert.True(t, reports[0].OK())
	assert.True(t, reports[2].OK())
	assert.Equal(t, domain.StatusFailed, reports[1].Status)
	assert.Equal(t, domain.KindInvalidConfiguration, reports[1].ErrorKind)
	assert.Equal(t, "ethereum: validate: "+resolveErr.Error(), reports[1].Error)
	assert.Zero(t, source.callCount("ethereum"), "rejected configs are never fetched")
}

func TestAnalyze_BenchmarkLookbackIgnoresRejectedConfigs(t *testing.T) {
	source := newFakeSource()
	source.series["bitcoin"] = daily(100, 110, 99, 105, 120)
	source.series["ethereum"] = daily(10, 11, 12, 11)

	bad, err := domain.AssetSpec{AssetID: "solana", LookbackDays: func() *int { v := 5000; return &v }(), AllocationPercent: 500}.Resolve()
	require.Error(t, err)
	bad.ConfigErr = err

	cfg := DefaultConfig()
	cfg.BenchmarkAssetID = "bitcoin"
	newTestAnalyzer(source, cfg).Analyze(context.Background(), []domain.AssetConfig{asset("ethereum"), bad})

	source.mu.Lock()
	defer source.mu.Unlock()
	assert.Equal(t, 30, source.days["bitcoin"])
}

func TestAnalyze_Idempotent(t *testing.T) {
	source := newFakeSource()
	source.series["bitcoin"] = daily(100, 110, 99, 105, 120, 90, 95)
	source.series["ethereum"] = daily(10, 10.5, 10.2, 9.8, 11)

	a := newTestAnalyzer(source, DefaultConfig())
	assets := []domain.AssetConfig{asset("bitcoin"), asset("ethereum")}

	first := a.Analyze(context.Background(), assets)
	second := a.Analyze(context.Background(), assets)
	assert.Equal(t, first, second)
}

func TestAnalyze_ComputesMetrics(t *testing.T) {
	source := newFakeSource()
	source.series["bitcoin"] = daily(100, 120, 90, 95, 130, 80)

	cfg := asset("bitcoin")
	cfg.AllocationPercent = 50
	report := newTestAnalyzer(source, DefaultConfig()).AnalyzeAsset(context.Background(), cfg)

	require.True(t, report.OK(), report.Error)
	assert.Equal(t, 6, report.PricePoints)
	assert.Equal(t, 5, report.Returns)
	require.NotNil(t, report.MaxDrawdown)
	assert.InDelta(t, 50.0/130.0, *report.MaxDrawdown, 1e-9)
	require.NotNil(t, report.Volatility)
	require.NotNil(t, report.SharpeRatio)
	require.NotNil(t, report.SortinoRatio)
	require.NotNil(t, report.ValueAtRisk)
	// 5 returns at 0.95: floor(0.25) = 0, tail empty
	assert.Nil(t, report.ConditionalValueAtRisk)
	assert.Contains(t, report.MetricErrors[domain.MetricConditionalValueAtRisk], "undefined metric")
	assert.Nil(t, report.Beta)

	assert.Contains(t, report.Narrative, "Risk Analysis for BITCOIN")
	assert.Contains(t, report.Narrative, "🚨 **CVaR (95%)**: n/a (")
}

func TestAnalyze_ConstantPrices(t *testing.T) {
	source := newFakeSource()
	source.series["stablecoin"] = daily(1, 1, 1, 1)

	report := newTestAnalyzer(source, DefaultConfig()).AnalyzeAsset(context.Background(), asset("stablecoin"))

	require.True(t, report.OK())
	require.NotNil(t, report.Volatility)
	assert.Equal(t, 0.0, *report.Volatility)
	assert.Nil(t, report.SharpeRatio)
	assert.Nil(t, report.SortinoRatio)
	assert.Contains(t, report.MetricErrors, domain.MetricSharpeRatio)
	assert.Contains(t, report.MetricErrors, domain.MetricSortinoRatio)
	require.NotNil(t, report.MaxDrawdown)
	assert.Equal(t, 0.0, *report.MaxDrawdown)
}

func TestAnalyze_AssetLevelFailures(t *testing.T) {
	tests := []struct {
		name     string
		series   domain.PriceSeries
		err      error
		asset    func(domain.AssetConfig) domain.AssetConfig
		wantKind domain.ErrorKind
		fetched  bool
	}{
		{name: "empty series", series: domain.PriceSeries{}, wantKind: domain.KindInsufficientData, fetched: true},
		{name: "single price", series: daily(100), wantKind: domain.KindInsufficientData, fetched: true},
		{name: "zero price", series: daily(100, 0, 50), wantKind: domain.KindUndefinedMetric, fetched: true},
		{name: "negative price", series: daily(100, -5, 50), wantKind: domain.KindInvalidInput, fetched: true},
		{name: "wrapped source error", err: fmt.Errorf("%w: 503", domain.ErrSourceUnavailable), wantKind: domain.KindSourceUnavailable, fetched: true},
		{
			name:     "zero var confidence",
			series:   daily(1, 2, 3),
			asset:    func(c domain.AssetConfig) domain.AssetConfig { c.VaRConfidence = 0; return c },
			wantKind: domain.KindInvalidConfiguration,
		},
		{
			name:     "negative allocation",
			series:   daily(1, 2, 3),
			asset:    func(c domain.AssetConfig) domain.AssetConfig { c.AllocationPercent = -10; return c },
			wantKind: domain.KindInvalidConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := newFakeSource()
			source.series["coin"] = tt.series
			if tt.err != nil {
				source.errs["coin"] = tt.err
			}
			cfg := asset("coin")
			if tt.asset != nil {
				cfg = tt.asset(cfg)
			}

			report := newTestAnalyzer(source, DefaultConfig()).AnalyzeAsset(context.Background(), cfg)

			assert.Equal(t, domain.StatusFailed, report.Status)
			assert.Equal(t, tt.wantKind, report.ErrorKind)
			assert.NotEmpty(t, report.Error)
			assert.Nil(t, report.Volatility)
			assert.Nil(t, report.MaxDrawdown)
			if tt.fetched {
				assert.Equal(t, 1, source.callCount("coin"))
			} else {
				assert.Equal(t, 0, source.callCount("coin"))
			}
		})
	}
}

func TestAnalyze_UnsortedSeriesIsSorted(t *testing.T) {
	source := newFakeSource()
	sorted := daily(100, 120, 90, 95, 130, 80)
	source.series["coin"] = domain.PriceSeries{sorted[3], sorted[0], sorted[5], sorted[1], sorted[4], sorted[2]}

	report := newTestAnalyzer(source, DefaultConfig()).AnalyzeAsset(context.Background(), asset("coin"))
	require.True(t, report.OK())
	assert.InDelta(t, 50.0/130.0, *report.MaxDrawdown, 1e-9)
}

func TestAnalyze_CancelledBeforeStart(t *testing.T) {
	source := newFakeSource()
	source.series["bitcoin"] = daily(1, 2, 3)
	source.series["ethereum"] = daily(1, 2, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reports := newTestAnalyzer(source, DefaultConfig()).Analyze(ctx, []domain.AssetConfig{asset("bitcoin"), asset("ethereum")})

	require.Len(t, reports, 2)
	for _, r := range reports {
		assert.Equal(t, domain.StatusFailed, r.Status)
		assert.Equal(t, domain.KindCancelled, r.ErrorKind)
		assert.Nil(t, r.Volatility)
	}
	assert.Equal(t, 0, source.callCount("bitcoin"))
}

func TestAnalyze_CancelledDuringFetch(t *testing.T) {
	source := newFakeSource()
	source.block = true

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	report := newTestAnalyzer(source, DefaultConfig()).AnalyzeAsset(ctx, asset("bitcoin"))

	assert.Equal(t, domain.KindCancelled, report.ErrorKind)
	assert.Equal(t, 1, source.callCount("bitcoin"))
}

func TestAnalyze_FetchTimeout(t *testing.T) {
	source := newFakeSource()
	source.block = true

	cfg := DefaultConfig()
	cfg.FetchTimeout = 10 * time.Millisecond
	report := newTestAnalyzer(source, cfg).AnalyzeAsset(context.Background(), asset("bitcoin"))

	assert.Equal(t, domain.StatusFailed, report.Status)
	assert.Equal(t, domain.KindSourceUnavailable, report.ErrorKind)
	assert.Contains(t, report.Error, context.DeadlineExceeded.Error())
}

func TestAnalyze_BoundedConcurrency(t *testing.T) {
	source := newFakeSource()
	assets := make([]domain.AssetConfig, 10)
	for i := range assets {
		id := fmt.Sprintf("coin-%d", i)
		source.series[id] = daily(1, 2, 3)
		assets[i] = asset(id)
	}

	cfg := DefaultConfig()
	cfg.Concurrency = 2
	reports := newTestAnalyzer(source, cfg).Analyze(context.Background(), assets)

	require.Len(t, reports, 10)
	for i, r := range reports {
		assert.Equal(t, assets[i].AssetID, r.AssetID)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&source.maxInFlight), int32(2))
}

func TestAnalyze_Sequential(t *testing.T) {
	source := newFakeSource()
	source.series["a"] = daily(1, 2, 3)
	source.series["b"] = daily(3, 2, 1)

	cfg := DefaultConfig()
	cfg.Concurrency = 1
	reports := newTestAnalyzer(source, cfg).Analyze(context.Background(), []domain.AssetConfig{asset("a"), asset("b")})

	require.Len(t, reports, 2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&source.maxInFlight))
}

func TestAnalyze_Empty(t *testing.T) {
	reports := newTestAnalyzer(newFakeSource(), DefaultConfig()).Analyze(context.Background(), nil)
	assert.NotNil(t, reports)
	assert.Empty(t, reports)
}

func TestAnalyze_Beta(t *testing.T) {
	benchPrices := []float64{100, 110, 99, 105, 102, 108}
	assetPrices := []float64{100}
	for i := 1; i < len(benchPrices); i++ {
		r := (benchPrices[i] - benchPrices[i-1]) / benchPrices[i-1]
		assetPrices = append(assetPrices, assetPrices[i-1]*(1+2*r))
	}

	source := newFakeSource()
	source.series["bitcoin"] = daily(benchPrices...)
	source.series["ethereum"] = daily(assetPrices...)

	cfg := DefaultConfig()
	cfg.BenchmarkAssetID = "bitcoin"
	reports := newTestAnalyzer(source, cfg).Analyze(context.Background(), []domain.AssetConfig{asset("bitcoin"), asset("ethereum")})

	require.Len(t, reports, 2)
	require.NotNil(t, reports[0].Beta)
	assert.InDelta(t, 1.0, *reports[0].Beta, 1e-9)
	require.NotNil(t, reports[1].Beta)
	assert.InDelta(t, 2.0, *reports[1].Beta, 1e-9)
	assert.Equal(t, "bitcoin", reports[1].BenchmarkAssetID)
	assert.Contains(t, reports[1].Narrative, "Beta vs BITCOIN")
	// fetched once for the benchmark, once as an asset
	assert.Equal(t, 2, source.callCount("bitcoin"))
}

func TestAnalyze_BenchmarkUnavailable(t *testing.T) {
	source := newFakeSource()
	source.errs["bitcoin"] = errors.New("down")
	source.series["ethereum"] = daily(10, 11, 12, 11)

	cfg := DefaultConfig()
	cfg.BenchmarkAssetID = "bitcoin"
	report := newTestAnalyzer(source, cfg).AnalyzeAsset(context.Background(), asset("ethereum"))

	require.True(t, report.OK())
	assert.Nil(t, report.Beta)
	assert.Contains(t, report.MetricErrors[domain.MetricBeta], "benchmark unavailable")
}

type fakeRecorder struct {
	mu      sync.Mutex
	fetches int
	reports []domain.RiskReport
	batches []domain.BatchResult
}

func (r *fakeRecorder) ObserveFetch(string, time.Duration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetches++
}

func (r *fakeRecorder) RecordReport(report domain.RiskReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
}

func (r *fakeRecorder) ObserveBatch(_ time.Duration, result domain.BatchResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, result)
}

func TestRun_Envelope(t *testing.T) {
	source := newFakeSource()
	source.series["bitcoin"] = daily(100, 101, 102)
	source.errs["ethereum"] = errors.New("timeout")

	rec := &fakeRecorder{}
	a := New(source, nil, rec, DefaultConfig(), zerolog.Nop())
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return fixed }

	result := a.Run(context.Background(), []domain.AssetConfig{asset("bitcoin"), asset("ethereum")})

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, fixed, result.GeneratedAt)
	_, err := uuid.Parse(result.RunID)
	assert.NoError(t, err)
	assert.Empty(t, result.Data[0].Narrative)

	assert.Equal(t, 2, rec.fetches)
	assert.Len(t, rec.reports, 2)
	require.Len(t, rec.batches, 1)
	assert.Equal(t, result.RunID, rec.batches[0].RunID)

	second := a.Run(context.Background(), []domain.AssetConfig{asset("bitcoin")})
	assert.True(t, second.Success)
	assert.NotEqual(t, result.RunID, second.RunID)
}

func TestNew_AppliesDefaults(t *testing.T) {
	a := New(newFakeSource(), nil, nil, Config{}, zerolog.Nop())
	cfg := a.Config()
	assert.Equal(t, DefaultConcurrency, cfg.Concurrency)
	assert.Equal(t, DefaultFetchTimeout, cfg.FetchTimeout)
	assert.Equal(t, int64(DefaultAlignmentBucketSeconds), cfg.AlignmentBucketSeconds)
}
