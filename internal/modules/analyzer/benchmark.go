package analyzer

import (
	"context"
	"fmt"

	"github.com/aristath/riskpulse/internal/domain"
	"github.com/aristath/riskpulse/pkg/formulas"
	"github.com/rs/zerolog"
)

// benchmark holds the reference series for beta, fetched once per batch.
type benchmark struct {
	assetID string
	series  domain.PriceSeries
	err     error
}

// loadBenchmark fetches the benchmark over the longest lookback in the batch.
// It returns nil when beta is disabled.
func (a *Analyzer) loadBenchmark(ctx context.Context, assets []domain.AssetConfig, log zerolog.Logger) *benchmark {
	if a.cfg.BenchmarkAssetID == "" {
		return nil
	}

	lookback := 0
	for _, asset := range assets {
		if asset.Validate() != nil {
			continue
		}
		if asset.LookbackDays > lookback {
			lookback = asset.LookbackDays
		}
	}
	if lookback <= 0 {
		lookback = domain.DefaultLookbackDays
	}

	bench := &benchmark{assetID: a.cfg.BenchmarkAssetID}
	series, err := a.fetch(ctx, a.cfg.BenchmarkAssetID, lookback)
	if err != nil {
		log.Warn().Err(err).Str("benchmark", a.cfg.BenchmarkAssetID).Msg("Benchmark unavailable, beta will be undefined")
		bench.err = err
		return bench
	}
	if !series.IsSorted() {
		series = series.Sorted()
	}
	bench.series = series
	return bench
}

// fill sets report.Beta, or records why it is undefined.
func (b *benchmark) fill(report *domain.RiskReport, series domain.PriceSeries, bucketSeconds int64) {
	report.BenchmarkAssetID = b.assetID

	beta, err := b.beta(series, bucketSeconds)
	if err != nil {
		if report.MetricErrors == nil {
			report.MetricErrors = make(map[string]string)
		}
		report.MetricErrors[domain.MetricBeta] = err.Error()
		return
	}
	report.Beta = &beta
}

func (b *benchmark) beta(series domain.PriceSeries, bucketSeconds int64) (float64, error) {
	if b.err != nil {
		return 0, fmt.Errorf("benchmark unavailable: %w", b.err)
	}

	assetPrices, benchPrices := alignByBucket(series, b.series, bucketSeconds)
	assetReturns, err := formulas.CalculateDailyReturns(assetPrices)
	if err != nil {
		return 0, err
	}
	benchReturns, err := formulas.CalculateDailyReturns(benchPrices)
	if err != nil {
		return 0, err
	}
	return formulas.Beta(assetReturns, benchReturns)
}

// alignByBucket pairs prices whose timestamps fall into the same bucket.
// Within a bucket the latest observation of each series wins. The result is
// ordered by bucket and both slices have the same length.
func alignByBucket(asset, bench domain.PriceSeries, bucketSeconds int64) ([]float64, []float64) {
	if bucketSeconds <= 0 {
		bucketSeconds = DefaultAlignmentBucketSeconds
	}

	benchByBucket := make(map[int64]float64, len(bench))
	for _, p := range bench {
		benchByBucket[bucketOf(p.Timestamp, bucketSeconds)] = p.Price
	}

	var assetPrices, benchPrices []float64
	lastBucket := int64(0)
	for _, p := range asset {
		bucket := bucketOf(p.Timestamp, bucketSeconds)
		benchPrice, ok := benchByBucket[bucket]
		if !ok {
			continue
		}
		if len(assetPrices) > 0 && bucket == lastBucket {
			assetPrices[len(assetPrices)-1] = p.Price
			continue
		}
		assetPrices = append(assetPrices, p.Price)
		benchPrices = append(benchPrices, benchPrice)
		lastBucket = bucket
	}
	return assetPrices, benchPrices
}

// bucketOf floors ts to a multiple of size, also for negative timestamps.
func bucketOf(ts, size int64) int64 {
	b := ts / size
	if ts%size != 0 && ts < 0 {
		b--
	}
	return b
}
