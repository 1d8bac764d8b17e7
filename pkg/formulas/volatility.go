package formulas

import "fmt"

// Volatility is the sample standard deviation of daily returns (not annualized).
// At least two returns are required.
func Volatility(returns []float64) (float64, error) {
	if len(returns) < 2 {
		return 0, fmt.Errorf("%w: volatility needs at least 2 returns, got %d", ErrInsufficientData, len(returns))
	}
	return StdDev(returns), nil
}

// DownsideReturns returns the strictly negative returns, in their original order.
func DownsideReturns(returns []float64) []float64 {
	downside := make([]float64, 0, len(returns))
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	return downside
}

// DownsideDeviation is the sample standard deviation of the negative returns only.
//
// No negative returns means there is no downside to measure (ErrUndefinedMetric);
// a single negative return has no sample variance (ErrInsufficientData).
func DownsideDeviation(returns []float64) (float64, error) {
	downside := DownsideReturns(returns)
	switch len(downside) {
	case 0:
		return 0, fmt.Errorf("%w: no negative returns", ErrUndefinedMetric)
	case 1:
		return 0, fmt.Errorf("%w: downside deviation needs at least 2 negative returns, got 1", ErrInsufficientData)
	}
	return StdDev(downside), nil
}
