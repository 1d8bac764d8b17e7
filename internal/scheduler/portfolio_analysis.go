package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/riskpulse/internal/domain"
	"github.com/rs/zerolog"
)

// ErrJobRunning is returned when a run is requested while the previous one is still active.
var ErrJobRunning = errors.New("job already running")

// BatchRunner runs the risk pipeline over a portfolio.
type BatchRunner interface {
	Run(ctx context.Context, assets []domain.AssetConfig) domain.BatchResult
}

// PortfolioAnalysisJob analyzes the configured portfolio and keeps the latest result.
type PortfolioAnalysisJob struct {
	runner    BatchRunner
	portfolio func() ([]domain.AssetConfig, error)
	timeout   time.Duration
	log       zerolog.Logger
	baseCtx   context.Context

	running sync.Mutex
	mu      sync.RWMutex
	last    *domain.BatchResult
}

// NewPortfolioAnalysisJob creates the job. timeout bounds one run; zero means no bound.
func NewPortfolioAnalysisJob(runner BatchRunner, portfolio func() ([]domain.AssetConfig, error), timeout time.Duration) *PortfolioAnalysisJob {
	return &PortfolioAnalysisJob{
		runner:    runner,
		portfolio: portfolio,
		timeout:   timeout,
		log:       zerolog.Nop(),
		baseCtx:   context.Background(),
	}
}

// SetContext sets the parent context of every run. Cancelling it aborts the
// run in progress.
func (j *PortfolioAnalysisJob) SetContext(ctx context.Context) {
	j.baseCtx = ctx
}

// SetLogger sets the logger for the job
func (j *PortfolioAnalysisJob) SetLogger(log zerolog.Logger) {
	j.log = log.With().Str("job", j.Name()).Logger()
}

// Name returns the job name
func (j *PortfolioAnalysisJob) Name() string {
	return "portfolio_analysis"
}

// Run executes one analysis. Overlapping runs are rejected with ErrJobRunning.
// A batch with failed assets is reported as an error after the result is stored.
func (j *PortfolioAnalysisJob) Run() error {
	if !j.running.TryLock() {
		return ErrJobRunning
	}
	defer j.running.Unlock()

	assets, err := j.portfolio()
	if err != nil {
		return fmt.Errorf("failed to load portfolio: %w", err)
	}

	ctx := j.baseCtx
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	result := j.runner.Run(ctx, assets)

	j.mu.Lock()
	j.last = &result
	j.mu.Unlock()

	for _, report := range result.Data {
		if !report.OK() {
			j.log.Warn().
				Str("run_id", result.RunID).
				Str("asset_id", report.AssetID).
				Str("kind", string(report.ErrorKind)).
				Str("error", report.Error).
				Msg("Asset analysis failed")
			continue
		}

		event := j.log.Info().Str("run_id", result.RunID).Str("asset_id", report.AssetID)
		if report.Volatility != nil {
			event = event.Float64("volatility", *report.Volatility)
		}
		if report.MaxDrawdown != nil {
			event = event.Float64("max_drawdown", *report.MaxDrawdown)
		}
		event.Msg("Asset risk updated")
	}

	if !result.Success {
		return fmt.Errorf("%d of %d assets failed", result.Failed, len(result.Data))
	}
	return nil
}

// LastResult returns the most recent batch, or false before the first run.
func (j *PortfolioAnalysisJob) LastResult() (domain.BatchResult, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.last == nil {
		return domain.BatchResult{}, false
	}
	return *j.last, true
}
