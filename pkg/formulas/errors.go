package formulas

import "errors"

var (
	// ErrInsufficientData means the series is too short for the requested metric.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrUndefinedMetric means the metric has no defined value for the input,
	// typically a zero denominator or an empty tail.
	ErrUndefinedMetric = errors.New("undefined metric")

	// ErrInvalidInput means a parameter is out of range or the series is malformed.
	ErrInvalidInput = errors.New("invalid input")
)
