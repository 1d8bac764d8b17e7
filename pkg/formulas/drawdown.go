package formulas

import (
	"fmt"
	"math"
)

// MaxDrawdown calculates the maximum drawdown from a price series
//
// Drawdown Formula:
//
//	Drawdown = (Peak Value - Current Value) / Peak Value
//	Max Drawdown = Maximum of all drawdowns
//
// The peak is tracked in a single left-to-right scan, so a later low is only
// compared with the highest price seen before it.
//
// Returns:
//
//	Maximum drawdown as positive fraction (0.25 = 25% loss from peak)
func MaxDrawdown(prices []float64) (float64, error) {
	if len(prices) == 0 {
		return 0, fmt.Errorf("%w: max drawdown needs at least 1 price", ErrInsufficientData)
	}

	maxDrawdown := 0.0
	peak := prices[0]

	for i, price := range prices {
		if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
			return 0, fmt.Errorf("%w: price at index %d is %v", ErrInvalidInput, i, price)
		}

		if price > peak {
			peak = price
		}
		if peak == 0 {
			return 0, fmt.Errorf("%w: zero peak price at index %d", ErrUndefinedMetric, i)
		}

		drawdown := (peak - price) / peak
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}

	return maxDrawdown, nil
}
