package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aristath/riskpulse/internal/domain"
	"gopkg.in/yaml.v3"
)

// PortfolioFile is the on-disk portfolio definition.
type PortfolioFile struct {
	Assets []domain.AssetSpec `yaml:"assets"`
}

func intPtr(v int) *int { return &v }
func floatPtr(v float64) *float64 { return &v }

// DefaultPortfolio returns the built-in three-asset portfolio.
func DefaultPortfolio() []domain.AssetSpec {
	return []domain.AssetSpec{
		{AssetID: "bitcoin", AllocationPercent: 50, LookbackDays: intPtr(10)},
		{AssetID: "ethereum", AllocationPercent: 30, VaRConfidence: floatPtr(0.99)},
		{AssetID: "litecoin", AllocationPercent: 20, CVaRConfidence: floatPtr(0.80)},
	}
}

// Portfolio returns the configured assets: the YAML file when ASSETS_FILE is
// set, the built-in portfolio otherwise. Only an unreadable or malformed file
// is an error; invalid entries are kept with ConfigErr set.
func (c *Config) Portfolio() ([]domain.AssetConfig, error) {
	if c.AssetsFile == "" {
		return ResolveAssets(DefaultPortfolio()), nil
	}
	return LoadAssets(c.AssetsFile)
}

// LoadAssets reads and resolves a YAML portfolio file.
func LoadAssets(path string) ([]domain.AssetConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read assets file: %w", err)
	}
	assets, err := ParseAssets(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return assets, nil
}

// ParseAssets decodes a YAML portfolio. Unknown keys are rejected.
func ParseAssets(data []byte) ([]domain.AssetConfig, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file PortfolioFile
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: failed to parse assets: %v", domain.ErrInvalidConfiguration, err)
	}
	if len(file.Assets) == 0 {
		return nil, fmt.Errorf("%w: no assets defined", domain.ErrInvalidConfiguration)
	}
	return ResolveAssets(file.Assets), nil
}

// ResolveAssets applies defaults and validates every spec, one config per spec
// in order. A spec that fails keeps its slot with ConfigErr set.
func ResolveAssets(specs []domain.AssetSpec) []domain.AssetConfig {
	assets := make([]domain.AssetConfig, len(specs))
	for i, spec := range specs {
		asset, err := spec.Resolve()
		if err != nil {
			asset.ConfigErr = err
		}
		assets[i] = asset
	}
	return assets
}

// InvalidAssets returns the resolve errors of a portfolio, prefixed by position.
func InvalidAssets(assets []domain.AssetConfig) error {
	var errs []error
	for i, asset := range assets {
		if asset.ConfigErr != nil {
			errs = append(errs, fmt.Errorf("asset %d: %w", i, asset.ConfigErr))
		}
	}
	return errors.Join(errs...)
}
