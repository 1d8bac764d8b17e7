package formulas

import (
	"fmt"
)

const (
	// TradingDaysPerYear converts annual rates to daily ones.
	TradingDaysPerYear = 252

	// DefaultAnnualRiskFreeRate is the annual risk-free rate used when none is configured.
	DefaultAnnualRiskFreeRate = 0.01
)

// DailyRiskFreeRate converts an annual risk-free rate to its per-trading-day equivalent.
func DailyRiskFreeRate(annualRate float64) float64 {
	return annualRate / TradingDaysPerYear
}

// SharpeRatio calculates the daily Sharpe Ratio
//
// Sharpe Ratio Formula:
//
//	Sharpe = (Mean Daily Return - Annual Risk-free Rate / 252) / Volatility
//
// The ratio is not annualized so it stays comparable with the daily volatility
// reported next to it.
//
// Args:
//
//	returns: Daily returns
//	annualRiskFreeRate: Risk-free rate (annual, as decimal, e.g., 0.01 for 1%)
//
// Errors:
//
//	ErrInsufficientData with fewer than 2 returns, ErrUndefinedMetric when volatility is zero
//	(at or below 1e-12, the rounding residue of identical returns)
func SharpeRatio(returns []float64, annualRiskFreeRate float64) (float64, error) {
	volatility, err := Volatility(returns)
	if err != nil {
		return 0, err
	}
	if volatility <= degenerateDeviation {
		return 0, fmt.Errorf("%w: sharpe ratio with zero volatility", ErrUndefinedMetric)
	}

	return (Mean(returns) - DailyRiskFreeRate(annualRiskFreeRate)) / volatility, nil
}

// SortinoRatio calculates the Sortino Ratio (downside deviation version of Sharpe)
// Only negative returns contribute to the denominator.
//
// Sortino Formula:
//
//	Sortino = (Mean Daily Return - Annual Risk-free Rate / 252) / Downside Deviation
//	Downside Deviation = sample standard deviation of the negative returns
//
// Errors:
//
//	ErrInsufficientData for an empty series or a single negative return,
//	ErrUndefinedMetric when there are no negative returns or they are all equal
//	(downside deviation at or below 1e-12)
func SortinoRatio(returns []float64, annualRiskFreeRate float64) (float64, error) {
	if len(returns) == 0 {
		return 0, fmt.Errorf("%w: sortino ratio needs returns", ErrInsufficientData)
	}

	downsideDeviation, err := DownsideDeviation(returns)
	if err != nil {
		return 0, err
	}
	if downsideDeviation <= degenerateDeviation {
		return 0, fmt.Errorf("%w: sortino ratio with zero downside deviation", ErrUndefinedMetric)
	}

	return (Mean(returns) - DailyRiskFreeRate(annualRiskFreeRate)) / downsideDeviation, nil
}
