// Package narrative renders risk reports as human-readable summaries.
package narrative

import (
	"fmt"
	"strings"

	"github.com/aristath/riskpulse/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Renderer produces the markdown-flavoured risk summary for one asset.
type Renderer struct {
	thresholds Thresholds
}

var _ domain.NarrativeRenderer = (*Renderer)(nil)

// NewRenderer creates a renderer with the given bands.
func NewRenderer(thresholds Thresholds) *Renderer {
	return &Renderer{thresholds: thresholds}
}

// Thresholds returns the bands in use.
func (r *Renderer) Thresholds() Thresholds {
	return r.thresholds
}

// Render builds the summary. Undefined metrics are shown as "n/a" with their
// reason and are left out of banding and suggestions.
func (r *Renderer) Render(report domain.RiskReport) string {
	t := r.thresholds
	var b strings.Builder

	fmt.Fprintf(&b, "🔍 **Risk Analysis for %s**\n\n", strings.ToUpper(report.AssetID))

	b.WriteString("📉 **Volatility**: ")
	r.writeMetric(&b, report, domain.MetricVolatility, report.Volatility, formatPercent, func(v float64) string {
		switch {
		case v < t.LowVolatility:
			return "Low volatility, relatively stable asset."
		case v < t.ModerateVolatility:
			return "Moderate volatility, some price fluctuations."
		default:
			return "High volatility, significant price swings."
		}
	})

	b.WriteString("📊 **Sharpe Ratio**: ")
	r.writeMetric(&b, report, domain.MetricSharpeRatio, report.SharpeRatio, formatRatio, func(v float64) string {
		switch {
		case v > t.GoodRatio:
			return "Good risk-adjusted returns."
		case v > t.AcceptableRatio:
			return "Acceptable returns for the risk taken."
		default:
			return "Poor risk-adjusted returns, consider reducing exposure."
		}
	})

	b.WriteString("📈 **Sortino Ratio**: ")
	r.writeMetric(&b, report, domain.MetricSortinoRatio, report.SortinoRatio, formatRatio, func(v float64) string {
		switch {
		case v > t.GoodRatio:
			return "Strong return relative to downside risk."
		case v > t.AcceptableRatio:
			return "Moderate downside risk, but returns are still acceptable."
		default:
			return "High downside risk, returns do not justify the risk."
		}
	})

	fmt.Fprintf(&b, "⚠️ **VaR (%s%%)**: ", formatConfidence(report.VaRConfidence))
	r.writeMetric(&b, report, domain.MetricValueAtRisk, report.ValueAtRisk, formatPercent, func(float64) string {
		return "In a bad market, you might lose this much in a single day."
	})

	fmt.Fprintf(&b, "🚨 **CVaR (%s%%)**: ", formatConfidence(report.CVaRConfidence))
	r.writeMetric(&b, report, domain.MetricConditionalValueAtRisk, report.ConditionalValueAtRisk, formatPercent, func(float64) string {
		return "Potential losses in extreme downturns."
	})

	b.WriteString("📉 **Max Drawdown**: ")
	r.writeMetric(&b, report, domain.MetricMaxDrawdown, report.MaxDrawdown, formatPercent, func(v float64) string {
		switch {
		case v < t.ControlledDrawdown:
			return "Controlled historical losses."
		case v < t.ModerateDrawdown:
			return "Moderate drawdowns, should be watched."
		default:
			return "High drawdowns, significant past losses."
		}
	})

	if report.Beta != nil || report.MetricErrors[domain.MetricBeta] != "" {
		fmt.Fprintf(&b, "🔗 **Beta vs %s**: ", strings.ToUpper(report.BenchmarkAssetID))
		r.writeMetric(&b, report, domain.MetricBeta, report.Beta, formatRatio, func(v float64) string {
			switch {
			case v > 1:
				return "Amplifies benchmark moves."
			case v >= 0:
				return "Moves less than the benchmark."
			default:
				return "Tends to move against the benchmark."
			}
		})
	}

	fmt.Fprintf(&b, "💰 **Allocation**: %s%% - ", decimal.NewFromFloat(report.AllocationPercent).StringFixed(2))
	if report.AllocationPercent > t.ConcentratedAllocation {
		b.WriteString("High allocation; ensure this aligns with risk tolerance.\n")
	} else {
		b.WriteString("Diversified allocation.\n")
	}

	b.WriteString("\n🧐 **Overall Risk Level:** ")
	switch t.Classify(report.Volatility, report.MaxDrawdown) {
	case TierLow:
		b.WriteString("🟢 Low Risk - Suitable for conservative investors.\n")
	case TierModerate:
		b.WriteString("🟡 Moderate Risk - Balanced approach needed.\n")
	case TierHigh:
		b.WriteString("🔴 High Risk - Expect significant fluctuations and potential losses.\n")
	default:
		b.WriteString("⚪ Unknown - Not enough data to classify.\n")
	}

	b.WriteString("\n🔹 **Suggestions:**\n")
	for _, s := range r.Suggestions(report) {
		fmt.Fprintf(&b, "  - %s\n", s)
	}

	return b.String()
}

// Suggestions returns the follow-up actions triggered by the report.
func (r *Renderer) Suggestions(report domain.RiskReport) []string {
	t := r.thresholds
	var out []string
	if report.SharpeRatio != nil && *report.SharpeRatio < 0 {
		out = append(out, "Consider reducing exposure or diversifying into lower-risk assets.")
	}
	if report.SortinoRatio != nil && *report.SortinoRatio < 0 {
		out = append(out, "Focus on assets with better downside protection.")
	}
	if report.MaxDrawdown != nil && *report.MaxDrawdown > t.HedgingDrawdown {
		out = append(out, "Review risk tolerance and consider hedging strategies.")
	}
	if report.AllocationPercent > t.ConcentratedAllocation {
		out = append(out, "Rebalance portfolio if overexposed to a single asset.")
	}
	return out
}

func (r *Renderer) writeMetric(b *strings.Builder, report domain.RiskReport, name string, value *float64, format func(float64) string, describe func(float64) string) {
	if value == nil {
		reason := report.MetricErrors[name]
		if reason == "" {
			reason = "undefined"
		}
		fmt.Fprintf(b, "n/a (%s)\n", reason)
		return
	}
	fmt.Fprintf(b, "%s - %s\n", format(*value), describe(*value))
}

// formatPercent renders a fraction as a two-decimal percentage.
func formatPercent(v float64) string {
	return decimal.NewFromFloat(v).Mul(hundred).StringFixed(2) + "%"
}

func formatRatio(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// formatConfidence renders 0.95 as "95" and 0.975 as "97.5".
func formatConfidence(c float64) string {
	return decimal.NewFromFloat(c).Mul(hundred).String()
}
