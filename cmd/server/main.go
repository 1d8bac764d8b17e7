// Package main is the entry point for the riskpulse HTTP service.
// It serves portfolio risk reports over HTTP and optionally recomputes the
// configured portfolio on a cron schedule.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/riskpulse/internal/clients/coingecko"
	"github.com/aristath/riskpulse/internal/config"
	"github.com/aristath/riskpulse/internal/domain"
	"github.com/aristath/riskpulse/internal/metrics"
	"github.com/aristath/riskpulse/internal/modules/analyzer"
	"github.com/aristath/riskpulse/internal/modules/narrative"
	"github.com/aristath/riskpulse/internal/scheduler"
	"github.com/aristath/riskpulse/internal/server"
	"github.com/aristath/riskpulse/pkg/logger"
)

// analysisJobTimeout bounds one scheduled run of the whole portfolio.
const analysisJobTimeout = 5 * time.Minute

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})
	logger.SetGlobalLogger(log)

	version := getEnv("VERSION", "dev")
	log.Info().Str("version", version).Msg("Starting riskpulse")

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	recorder := metrics.New(nil)
	recorder.TrackAssets(cfg.BenchmarkAssetID)

	// Only configured assets get their own metric series
	portfolio := func() ([]domain.AssetConfig, error) {
		assets, err := cfg.Portfolio()
		if err != nil {
			return nil, err
		}
		for _, asset := range assets {
			recorder.TrackAssets(asset.AssetID)
		}
		return assets, nil
	}

	// Fail fast on a broken portfolio file
	assets, err := portfolio()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load portfolio")
	}
	if err := config.InvalidAssets(assets); err != nil {
		log.Warn().Err(err).Msg("Portfolio has invalid assets; they will be reported as failed")
	}

	source := coingecko.NewClient(cfg.CoinGeckoAPIKey, log).
		WithBaseURL(cfg.CoinGeckoBaseURL).
		WithVsCurrency(cfg.CoinGeckoVsCurrency)
	renderer := narrative.NewRenderer(narrative.DefaultThresholds())
	riskAnalyzer := analyzer.New(source, renderer, recorder, cfg.AnalyzerConfig(), log)

	analysisJob := scheduler.NewPortfolioAnalysisJob(riskAnalyzer, portfolio, analysisJobTimeout)
	analysisJob.SetLogger(log)
	analysisJob.SetContext(rootCtx)

	sched := scheduler.New(log)
	if cfg.AnalysisSchedule != "" {
		if err := sched.AddJob(cfg.AnalysisSchedule, analysisJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to register analysis job")
		}
	} else {
		sched.Register(analysisJob)
	}

	srv := server.New(server.Config{
		Log:       log,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		Version:   version,
		Analyzer:  riskAnalyzer,
		Portfolio: portfolio,
		Metrics:   recorder.Handler(),
		Jobs:      sched,
	})

	sched.Start()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Abort a running analysis so Stop does not wait out the job timeout
	cancelRoot()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
