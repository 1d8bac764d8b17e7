package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultLookbackDays = 30
	DefaultConfidence   = 0.95
)

var validate = validator.New()

// AssetConfig describes one asset to analyze. It is read-only input to the analyzer.
type AssetConfig struct {
	AssetID           string  `json:"asset_id" validate:"required"`
	AllocationPercent float64 `json:"allocation_percent" validate:"gte=0,lte=100"`
	LookbackDays      int     `json:"lookback_days" validate:"gt=0"`
	VaRConfidence     float64 `json:"var_confidence" validate:"gt=0,lt=1"`
	CVaRConfidence    float64 `json:"cvar_confidence" validate:"gt=0,lt=1"`

	// ConfigErr is the error from resolving the spec this config came from.
	// A set ConfigErr makes Validate fail with it, so the asset is reported
	// as failed in its own slot instead of aborting the whole portfolio.
	ConfigErr error `json:"-" yaml:"-" validate:"-"`
}

// Validate checks ranges and returns an error wrapping ErrInvalidConfiguration.
func (c AssetConfig) Validate() error {
	if c.ConfigErr != nil {
		return c.ConfigErr
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfiguration, describeValidation(c.AssetID, err))
	}
	return nil
}

// AssetSpec is the file and request form of AssetConfig. Optional fields are
// pointers so that an explicit zero stays distinguishable from an omitted value:
// only omitted fields receive defaults, and a zero confidence is rejected.
type AssetSpec struct {
	AssetID           string   `json:"asset_id" yaml:"asset_id"`
	AllocationPercent float64  `json:"allocation_percent" yaml:"allocation_percent"`
	LookbackDays      *int     `json:"lookback_days,omitempty" yaml:"lookback_days" default:"30"`
	VaRConfidence     *float64 `json:"var_confidence,omitempty" yaml:"var_confidence" default:"0.95"`
	CVaRConfidence    *float64 `json:"cvar_confidence,omitempty" yaml:"cvar_confidence" default:"0.95"`
}

// Resolve fills omitted fields with defaults and validates the result.
// The receiver is not modified. On failure the partially resolved config is
// returned alongside the error; callers that keep it must set ConfigErr.
func (s AssetSpec) Resolve() (AssetConfig, error) {
	spec := s
	if err := defaults.Set(&spec); err != nil {
		return AssetConfig{AssetID: s.AssetID}, fmt.Errorf("%w: apply defaults: %v", ErrInvalidConfiguration, err)
	}

	cfg := AssetConfig{
		AssetID:           strings.TrimSpace(spec.AssetID),
		AllocationPercent: spec.AllocationPercent,
		LookbackDays:      *spec.LookbackDays,
		VaRConfidence:     *spec.VaRConfidence,
		CVaRConfidence:    *spec.CVaRConfidence,
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func describeValidation(assetID string, err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "gt", "gte", "lt", "lte":
			msgs = append(msgs, fmt.Sprintf("%s must be %s %s, got %v", fe.Field(), comparisonWords[fe.Tag()], fe.Param(), fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed validation: %s", fe.Field(), fe.Tag()))
		}
	}

	if assetID == "" {
		return strings.Join(msgs, "; ")
	}
	return assetID + ": " + strings.Join(msgs, "; ")
}

var comparisonWords = map[string]string{
	"gt":  "greater than",
	"gte": "greater than or equal to",
	"lt":  "less than",
	"lte": "less than or equal to",
}
