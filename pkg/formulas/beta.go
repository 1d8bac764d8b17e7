package formulas

import "fmt"

// Beta calculates the sensitivity of an asset's returns to a market's returns.
//
// Formula:
//
//	Beta = Cov(asset, market) / Var(market)
//
// Both series must be index-aligned (pairwise contemporaneous returns) and of the
// same length. A length mismatch is a caller error and is never truncated away.
// A market whose standard deviation is at or below 1e-12 counts as constant and
// makes beta undefined.
func Beta(assetReturns, marketReturns []float64) (float64, error) {
	if len(assetReturns) != len(marketReturns) {
		return 0, fmt.Errorf("%w: return series lengths differ (%d vs %d)", ErrInvalidInput, len(assetReturns), len(marketReturns))
	}
	if len(marketReturns) < 2 {
		return 0, fmt.Errorf("%w: beta needs at least 2 aligned returns, got %d", ErrInsufficientData, len(marketReturns))
	}

	marketVariance := Variance(marketReturns)
	if marketVariance <= degenerateDeviation*degenerateDeviation {
		return 0, fmt.Errorf("%w: market returns have zero variance", ErrUndefinedMetric)
	}

	return Covariance(assetReturns, marketReturns) / marketVariance, nil
}
