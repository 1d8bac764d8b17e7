package domain

import "context"

// PriceSource provides historical prices for an asset.
//
// Implementations return an error wrapping ErrSourceUnavailable when the data
// cannot be retrieved, and an empty series (nil error) when the source has no
// data for the asset or window.
type PriceSource interface {
	FetchHistoricalPrices(ctx context.Context, assetID string, lookbackDays int) (PriceSeries, error)
}

// NarrativeRenderer turns a computed report into prose.
// It must not be called for failed reports.
type NarrativeRenderer interface {
	Render(report RiskReport) string
}
