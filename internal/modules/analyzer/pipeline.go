package analyzer

import (
	"github.com/aristath/riskpulse/internal/domain"
	"github.com/aristath/riskpulse/pkg/formulas"
)

// computeReport derives every metric for a sorted series of at least two prices.
// Only a returns failure is fatal; metric failures leave the field nil and
// record the reason in MetricErrors.
func computeReport(asset domain.AssetConfig, series domain.PriceSeries, riskFreeRate float64) (domain.RiskReport, error) {
	prices := series.Prices()
	returns, err := formulas.CalculateDailyReturns(prices)
	if err != nil {
		return domain.RiskReport{}, err
	}

	report := domain.RiskReport{
		AssetID:           asset.AssetID,
		Status:            domain.StatusOK,
		AllocationPercent: asset.AllocationPercent,
		LookbackDays:      asset.LookbackDays,
		VaRConfidence:     asset.VaRConfidence,
		CVaRConfidence:    asset.CVaRConfidence,
		PricePoints:       len(prices),
		Returns:           len(returns),
	}

	set := func(name string, dst **float64, v float64, err error) {
		if err != nil {
			if report.MetricErrors == nil {
				report.MetricErrors = make(map[string]string)
			}
			report.MetricErrors[name] = err.Error()
			return
		}
		*dst = &v
	}

	v, err := formulas.Volatility(returns)
	set(domain.MetricVolatility, &report.Volatility, v, err)

	v, err = formulas.SharpeRatio(returns, riskFreeRate)
	set(domain.MetricSharpeRatio, &report.SharpeRatio, v, err)

	v, err = formulas.SortinoRatio(returns, riskFreeRate)
	set(domain.MetricSortinoRatio, &report.SortinoRatio, v, err)

	v, err = formulas.ValueAtRisk(returns, asset.VaRConfidence)
	set(domain.MetricValueAtRisk, &report.ValueAtRisk, v, err)

	v, err = formulas.ConditionalValueAtRisk(returns, asset.CVaRConfidence)
	set(domain.MetricConditionalValueAtRisk, &report.ConditionalValueAtRisk, v, err)

	v, err = formulas.MaxDrawdown(prices)
	set(domain.MetricMaxDrawdown, &report.MaxDrawdown, v, err)

	return report, nil
}
