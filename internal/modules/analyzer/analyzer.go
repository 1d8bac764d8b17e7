// Package analyzer runs the per-asset risk pipeline over a portfolio:
// fetch prices, derive returns, compute metrics, render the narrative.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/riskpulse/internal/domain"
	"github.com/aristath/riskpulse/pkg/formulas"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	DefaultConcurrency            = 4
	DefaultFetchTimeout           = 15 * time.Second
	DefaultAlignmentBucketSeconds = 3600
)

// Config controls how a batch is processed.
type Config struct {
	Concurrency            int           // worker count; 1 processes assets sequentially
	FetchTimeout           time.Duration // per-fetch deadline
	RiskFreeRate           float64       // annual
	BenchmarkAssetID       string        // enables beta when set
	AlignmentBucketSeconds int64         // timestamp bucket used to pair asset and benchmark prices
}

// DefaultConfig returns the standard analyzer settings.
func DefaultConfig() Config {
	return Config{
		Concurrency:            DefaultConcurrency,
		FetchTimeout:           DefaultFetchTimeout,
		RiskFreeRate:           formulas.DefaultAnnualRiskFreeRate,
		AlignmentBucketSeconds: DefaultAlignmentBucketSeconds,
	}
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
	if c.AlignmentBucketSeconds <= 0 {
		c.AlignmentBucketSeconds = DefaultAlignmentBucketSeconds
	}
	return c
}

// Recorder receives pipeline telemetry.
type Recorder interface {
	ObserveFetch(assetID string, duration time.Duration, err error)
	RecordReport(report domain.RiskReport)
	ObserveBatch(duration time.Duration, result domain.BatchResult)
}

type nopRecorder struct{}

func (nopRecorder) ObserveFetch(string, time.Duration, error) {}
func (nopRecorder) RecordReport(domain.RiskReport) {}
func (nopRecorder) ObserveBatch(time.Duration, domain.BatchResult) {}

// Analyzer computes risk reports for portfolios.
// It holds no per-batch state and is safe for concurrent use.
type Analyzer struct {
	source   domain.PriceSource
	renderer domain.NarrativeRenderer
	recorder Recorder
	cfg      Config
	log      zerolog.Logger
	now      func() time.Time
}

// New creates an analyzer. renderer and recorder may be nil.
func New(source domain.PriceSource, renderer domain.NarrativeRenderer, recorder Recorder, cfg Config, log zerolog.Logger) *Analyzer {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Analyzer{
		source:   source,
		renderer: renderer,
		recorder: recorder,
		cfg:      cfg.withDefaults(),
		log:      log.With().Str("component", "analyzer").Logger(),
		now:      time.Now,
	}
}

// Config returns the effective settings.
func (a *Analyzer) Config() Config {
	return a.cfg
}

// Run analyzes the portfolio and wraps the reports in a batch envelope.
func (a *Analyzer) Run(ctx context.Context, assets []domain.AssetConfig) domain.BatchResult {
	runID := uuid.NewString()
	start := time.Now()

	log := a.log.With().Str("run_id", runID).Logger()
	log.Info().Int("assets", len(assets)).Msg("Starting portfolio analysis")

	reports := a.analyze(ctx, assets, log)
	result := domain.NewBatchResult(runID, reports, a.now().UTC())
	duration := time.Since(start)
	a.recorder.ObserveBatch(duration, result)

	log.Info().
		Bool("success", result.Success).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Dur("duration", duration).
		Msg("Portfolio analysis completed")

	return result
}

// Analyze returns one report per asset, in input order. A failing asset
// produces a failed report in its own slot and never affects the others.
func (a *Analyzer) Analyze(ctx context.Context, assets []domain.AssetConfig) []domain.RiskReport {
	return a.analyze(ctx, assets, a.log)
}

// AnalyzeAsset runs the pipeline for a single asset.
func (a *Analyzer) AnalyzeAsset(ctx context.Context, asset domain.AssetConfig) domain.RiskReport {
	return a.analyze(ctx, []domain.AssetConfig{asset}, a.log)[0]
}

func (a *Analyzer) analyze(ctx context.Context, assets []domain.AssetConfig, log zerolog.Logger) []domain.RiskReport {
	if len(assets) == 0 {
		return []domain.RiskReport{}
	}

	bench := a.loadBenchmark(ctx, assets, log)
	return newWorkerPool(a.cfg.Concurrency).run(assets, func(asset domain.AssetConfig) domain.RiskReport {
		report := a.analyzeAsset(ctx, asset, bench, log)
		a.recorder.RecordReport(report)
		return report
	})
}

func (a *Analyzer) analyzeAsset(ctx context.Context, asset domain.AssetConfig, bench *benchmark, log zerolog.Logger) domain.RiskReport {
	log = log.With().Str("asset_id", asset.AssetID).Logger()

	fail := func(stage string, err error) domain.RiskReport {
		report := domain.NewFailedReport(asset, &domain.AssetError{AssetID: asset.AssetID, Stage: stage, Err: err})
		log.Warn().Err(err).Str("stage", stage).Str("kind", string(report.ErrorKind)).Msg("Asset analysis failed")
		return report
	}

	if err := asset.Validate(); err != nil {
		return fail("validate", err)
	}
	if err := ctx.Err(); err != nil {
		return fail("fetch", fmt.Errorf("%w: %w", domain.ErrCancelled, err))
	}

	series, err := a.fetch(ctx, asset.AssetID, asset.LookbackDays)
	if err != nil {
		return fail("fetch", err)
	}
	if !series.IsSorted() {
		series = series.Sorted()
	}
	if len(series) < 2 {
		return fail("fetch", fmt.Errorf("%w: need at least 2 prices, got %d", formulas.ErrInsufficientData, len(series)))
	}

	report, err := computeReport(asset, series, a.cfg.RiskFreeRate)
	if err != nil {
		return fail("returns", err)
	}

	if bench != nil {
		bench.fill(&report, series, a.cfg.AlignmentBucketSeconds)
	}
	if a.renderer != nil {
		report.Narrative = a.renderer.Render(report)
	}

	log.Debug().
		Int("price_points", report.PricePoints).
		Int("undefined_metrics", len(report.MetricErrors)).
		Msg("Asset analyzed")

	return report
}

// fetch retrieves prices under the per-fetch timeout. Failures caused by the
// caller's context are reported as cancellations.
func (a *Analyzer) fetch(ctx context.Context, assetID string, lookbackDays int) (domain.PriceSeries, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, a.cfg.FetchTimeout)
	defer cancel()

	start := time.Now()
	series, err := a.source.FetchHistoricalPrices(fetchCtx, assetID, lookbackDays)
	a.recorder.ObserveFetch(assetID, time.Since(start), err)

	switch {
	case err == nil:
		return series, nil
	case ctx.Err() != nil:
		return nil, fmt.Errorf("%w: %w", domain.ErrCancelled, ctx.Err())
	case errors.Is(err, domain.ErrSourceUnavailable), errors.Is(err, domain.ErrInvalidConfiguration):
		return nil, err
	default:
		return nil, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}
}
