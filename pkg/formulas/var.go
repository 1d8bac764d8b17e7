package formulas

import (
	"fmt"
	"math"
	"sort"
)

// DefaultConfidence is the confidence level used for VaR and CVaR when none is configured.
const DefaultConfidence = 0.95

// ValueAtRiskIndex returns the historical-simulation quantile index for n sorted returns.
//
// Formula:
//
//	k = floor((1 - confidence) * n), clamped to [0, n-1]
//
// Flooring keeps the tail conservative: it holds at most as many observations as
// the exact quantile would.
func ValueAtRiskIndex(n int, confidence float64) (int, error) {
	if !(confidence > 0 && confidence < 1) {
		return 0, fmt.Errorf("%w: confidence must be in (0, 1), got %v", ErrInvalidInput, confidence)
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: no returns", ErrInsufficientData)
	}

	k := int(math.Floor((1 - confidence) * float64(n)))
	if k < 0 {
		k = 0
	}
	if k > n-1 {
		k = n - 1
	}
	return k, nil
}

// ValueAtRisk calculates historical Value at Risk at the given confidence level.
// It is the k-th worst daily return (see ValueAtRiskIndex), so losses are negative.
func ValueAtRisk(returns []float64, confidence float64) (float64, error) {
	k, err := ValueAtRiskIndex(len(returns), confidence)
	if err != nil {
		return 0, err
	}
	return sortedCopy(returns)[k], nil
}

// ConditionalValueAtRisk calculates Conditional Value at Risk (CVaR).
// CVaR is the mean of the returns strictly worse than the VaR cutoff, i.e. sorted[0:k].
//
// When k is zero the tail is empty and the metric is undefined (ErrUndefinedMetric);
// with the default 95% confidence that happens for fewer than 20 returns.
func ConditionalValueAtRisk(returns []float64, confidence float64) (float64, error) {
	k, err := ValueAtRiskIndex(len(returns), confidence)
	if err != nil {
		return 0, err
	}
	if k == 0 {
		return 0, fmt.Errorf("%w: empty tail at confidence %v with %d returns", ErrUndefinedMetric, confidence, len(returns))
	}

	return Mean(sortedCopy(returns)[:k]), nil
}

// sortedCopy sorts returns in ascending order (worst first) without touching the input.
func sortedCopy(returns []float64) []float64 {
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)
	return sorted
}
