package narrative

// Thresholds holds the band boundaries used to describe metrics.
// Volatility, drawdown and allocation bounds are exclusive upper limits;
// ratio bounds are exclusive lower limits.
type Thresholds struct {
	LowVolatility      float64 // below: low volatility
	ModerateVolatility float64 // below: moderate volatility, otherwise high

	GoodRatio       float64 // above: good Sharpe / strong Sortino
	AcceptableRatio float64 // above: acceptable, otherwise poor

	ControlledDrawdown float64 // below: controlled losses
	ModerateDrawdown   float64 // below: moderate drawdowns, otherwise high
	HedgingDrawdown    float64 // above: suggest hedging

	ConcentratedAllocation float64 // above: concentrated position
}

// DefaultThresholds returns the standard bands.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LowVolatility:          0.5,
		ModerateVolatility:     1.0,
		GoodRatio:              1.0,
		AcceptableRatio:        0,
		ControlledDrawdown:     0.2,
		ModerateDrawdown:       0.4,
		HedgingDrawdown:        0.3,
		ConcentratedAllocation: 50,
	}
}

// RiskTier is the overall classification of an asset.
type RiskTier string

const (
	TierLow      RiskTier = "low"
	TierModerate RiskTier = "moderate"
	TierHigh     RiskTier = "high"
	TierUnknown  RiskTier = "unknown"
)

// Classify returns the overall tier. Unknown when volatility or drawdown is undefined.
func (t Thresholds) Classify(volatility, maxDrawdown *float64) RiskTier {
	if volatility == nil || maxDrawdown == nil {
		return TierUnknown
	}
	switch {
	case *volatility < t.LowVolatility && *maxDrawdown < t.ControlledDrawdown:
		return TierLow
	case *volatility < t.ModerateVolatility && *maxDrawdown < t.ModerateDrawdown:
		return TierModerate
	default:
		return TierHigh
	}
}
