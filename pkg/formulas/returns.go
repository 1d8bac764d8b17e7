package formulas

import (
	"fmt"
	"math"
)

// CalculateDailyReturns converts prices to simple daily returns.
//
// Formula:
//
//	Returns[i] = (Price[i+1] - Price[i]) / Price[i]
//
// A series with fewer than two prices has no returns and yields an empty slice.
// The input slice is never modified.
//
// Errors:
//   - ErrInvalidInput when a price is negative, NaN or infinite
//   - ErrUndefinedMetric when a base price is exactly zero
func CalculateDailyReturns(prices []float64) ([]float64, error) {
	if len(prices) < 2 {
		return []float64{}, nil
	}

	for i, p := range prices {
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
			return nil, fmt.Errorf("%w: price at index %d is %v", ErrInvalidInput, i, p)
		}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			return nil, fmt.Errorf("%w: zero price at index %d", ErrUndefinedMetric, i-1)
		}
		returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
	}

	return returns, nil
}
