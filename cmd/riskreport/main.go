// Package main runs a one-shot risk analysis of the configured portfolio and
// prints the result. It exits non-zero when any asset could not be analyzed.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aristath/riskpulse/internal/clients/coingecko"
	"github.com/aristath/riskpulse/internal/config"
	"github.com/aristath/riskpulse/internal/modules/analyzer"
	"github.com/aristath/riskpulse/internal/modules/narrative"
	"github.com/aristath/riskpulse/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Error().Err(err).Msg("Failed to load configuration")
		return 2
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})

	assets, err := cfg.Portfolio()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load portfolio")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source := coingecko.NewClient(cfg.CoinGeckoAPIKey, log).
		WithBaseURL(cfg.CoinGeckoBaseURL).
		WithVsCurrency(cfg.CoinGeckoVsCurrency)
	renderer := narrative.NewRenderer(narrative.DefaultThresholds())
	result := analyzer.New(source, renderer, nil, cfg.AnalyzerConfig(), log).Run(ctx, assets)

	if err := writeReport(os.Stdout, cfg.ReportFormat, result); err != nil {
		log.Error().Err(err).Msg("Failed to write report")
		return 2
	}

	if !result.Success {
		return 1
	}
	return 0
}
