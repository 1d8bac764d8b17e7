package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/aristath/riskpulse/pkg/formulas"
)

var (
	// ErrSourceUnavailable wraps any failure to obtain prices from the PriceSource.
	ErrSourceUnavailable = errors.New("price source unavailable")

	// ErrInvalidConfiguration wraps rejected asset or process configuration.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrCancelled marks an asset abandoned because the batch was cancelled.
	ErrCancelled = errors.New("analysis cancelled")
)

// ErrorKind classifies why an asset or a metric could not be produced.
type ErrorKind string

const (
	KindSourceUnavailable    ErrorKind = "source_unavailable"
	KindInsufficientData     ErrorKind = "insufficient_data"
	KindUndefinedMetric      ErrorKind = "undefined_metric"
	KindInvalidConfiguration ErrorKind = "invalid_configuration"
	KindInvalidInput         ErrorKind = "invalid_input"
	KindCancelled            ErrorKind = "cancelled"
	KindInternal             ErrorKind = "internal"
)

// KindOf maps an error chain to its kind. It returns "" for a nil error.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, ErrInvalidConfiguration):
		return KindInvalidConfiguration
	case errors.Is(err, ErrSourceUnavailable):
		return KindSourceUnavailable
	case errors.Is(err, formulas.ErrInsufficientData):
		return KindInsufficientData
	case errors.Is(err, formulas.ErrUndefinedMetric):
		return KindUndefinedMetric
	case errors.Is(err, formulas.ErrInvalidInput):
		return KindInvalidInput
	default:
		return KindInternal
	}
}

// AssetError ties a pipeline failure to the asset it happened on.
type AssetError struct {
	AssetID string
	Stage   string
	Err     error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.AssetID, e.Stage, e.Err)
}

func (e *AssetError) Unwrap() error {
	return e.Err
}
