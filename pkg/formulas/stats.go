package formulas

import (
	"gonum.org/v1/gonum/stat"
)

// All dispersion helpers use the sample (n-1) convention, which is what gonum's
// stat package computes for unweighted input. Volatility, downside deviation and
// beta share it so the ratios built from them stay comparable.

// degenerateDeviation is the dispersion at or below which a series is treated
// as constant. Identical returns can leave a rounding residue near 1e-17 instead
// of an exact zero; real daily volatility, stablecoins included, is far above it.
const degenerateDeviation = 1e-12

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the sample variance of a slice of float64 values
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.Variance(data, nil)
}

// Covariance calculates the sample covariance between two equally long datasets
func Covariance(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	return stat.Covariance(x, y, nil)
}
