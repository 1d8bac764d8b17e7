package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aristath/riskpulse/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	result      domain.BatchResult
	assets      []domain.AssetConfig
	release     chan struct{}
	started     chan struct{}
	hadDeadline bool
	ctxErr      error
}

func (r *stubRunner) Run(ctx context.Context, assets []domain.AssetConfig) domain.BatchResult {
	r.assets = assets
	_, r.hadDeadline = ctx.Deadline()
	r.ctxErr = ctx.Err()
	if r.started != nil {
		close(r.started)
	}
	if r.release != nil {
		<-r.release
	}
	return r.result
}

func portfolio() ([]domain.AssetConfig, error) {
	return []domain.AssetConfig{{AssetID: "bitcoin"}, {AssetID: "ethereum"}}, nil
}

func f(v float64) *float64 { return &v }

func TestPortfolioAnalysisJob_Run(t *testing.T) {
	runner := &stubRunner{result: domain.NewBatchResult("run-1", []domain.RiskReport{
		{AssetID: "bitcoin", Status: domain.StatusOK, Volatility: f(0.03)},
		{AssetID: "ethereum", Status: domain.StatusOK},
	}, time.Now())}

	job := NewPortfolioAnalysisJob(runner, portfolio, time.Minute)
	job.SetLogger(zerolog.Nop())

	_, ok := job.LastResult()
	assert.False(t, ok)

	require.NoError(t, job.Run())
	assert.Len(t, runner.assets, 2)
	assert.True(t, runner.hadDeadline)

	last, ok := job.LastResult()
	require.True(t, ok)
	assert.Equal(t, "run-1", last.RunID)
	assert.Equal(t, "portfolio_analysis", job.Name())
}

func TestPortfolioAnalysisJob_PartialFailure(t *testing.T) {
	runner := &stubRunner{result: domain.NewBatchResult("run-2", []domain.RiskReport{
		{AssetID: "bitcoin", Status: domain.StatusOK},
		{AssetID: "ethereum", Status: domain.StatusFailed, ErrorKind: domain.KindSourceUnavailable, Error: "down"},
	}, time.Now())}

	job := NewPortfolioAnalysisJob(runner, portfolio, 0)
	err := job.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 assets failed")
	assert.False(t, runner.hadDeadline)

	last, ok := job.LastResult()
	require.True(t, ok)
	assert.False(t, last.Success)
}

func TestPortfolioAnalysisJob_PortfolioError(t *testing.T) {
	job := NewPortfolioAnalysisJob(&stubRunner{}, func() ([]domain.AssetConfig, error) {
		return nil, errors.New("missing file")
	}, 0)

	err := job.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing file")
}

func TestPortfolioAnalysisJob_RejectsOverlap(t *testing.T) {
	runner := &stubRunner{
		result:  domain.NewBatchResult("run-3", nil, time.Now()),
		release: make(chan struct{}),
		started: make(chan struct{}),
	}
	job := NewPortfolioAnalysisJob(runner, portfolio, 0)

	done := make(chan error, 1)
	go func() { done <- job.Run() }()
	<-runner.started

	assert.ErrorIs(t, job.Run(), ErrJobRunning)

	close(runner.release)
	assert.NoError(t, <-done)
}

func TestPortfolioAnalysisJob_CancelledParentContext(t *testing.T) {
	runner := &stubRunner{result: domain.NewBatchResult("run-4", nil, time.Now())}
	job := NewPortfolioAnalysisJob(runner, portfolio, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	job.SetContext(ctx)
	require.NoError(t, job.Run())
	assert.NoError(t, runner.ctxErr)

	cancel()
	require.NoError(t, job.Run())
	assert.ErrorIs(t, runner.ctxErr, context.Canceled)
	assert.True(t, runner.hadDeadline, "the run timeout still applies under the parent")
}
