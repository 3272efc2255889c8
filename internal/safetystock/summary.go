package safetystock

import (
	"fmt"
	"strings"
)

// VariabilityPattern classifies demand by its coefficient of variation.
type VariabilityPattern string

const (
	PatternLow      VariabilityPattern = "Low variability (stable demand)"
	PatternModerate VariabilityPattern = "Moderate variability"
	PatternHigh     VariabilityPattern = "High variability (unpredictable)"
)

// Pattern returns the variability class of the statistics.
func (s DemandStatistics) Pattern() VariabilityPattern {
	switch {
	case s.CoefficientOfVariationPercent < LowVariabilityCV:
		return PatternLow
	case s.CoefficientOfVariationPercent < HighVariabilityCV:
		return PatternModerate
	default:
		return PatternHigh
	}
}

// FormatDemandSummary renders statistics for display next to a rule.
func FormatDemandSummary(stats DemandStatistics, daysBack int, suggested Method) string {
	if stats.SampleCount == 0 {
		return "No historical data found for the selected period"
	}

	var b strings.Builder
	b.WriteString("Demand Analysis Summary\n")
	fmt.Fprintf(&b, "- Period: Last %d days\n", daysBack)
	fmt.Fprintf(&b, "- Data Points: %d days\n", stats.SampleCount)
	fmt.Fprintf(&b, "- Avg Daily Demand: %.2f units/day\n", stats.AverageDailyDemand)
	fmt.Fprintf(&b, "- Std Deviation: %.2f units\n", stats.StandardDeviation)
	fmt.Fprintf(&b, "- Variability (CV%%): %.1f%%\n", stats.CoefficientOfVariationPercent)
	if suggested != "" {
		fmt.Fprintf(&b, "- Suggested Method: %s\n", suggested)
	}
	fmt.Fprintf(&b, "- Pattern: %s", stats.Pattern())
	return b.String()
}

// Summary describes a calculation in one line from its parameter trace.
func Summary(method Method, p Parameters) string {
	switch method {
	case MethodFixed:
		return "Manual input - no calculation performed"
	case MethodDaysOfSupply:
		return fmt.Sprintf("Buffer for %d days at %.2f units/day average demand",
			derefInt(p.SafetyDays), derefFloat(p.AverageDailyDemand))
	case MethodLeadTimeBased:
		return fmt.Sprintf("Statistical calculation for %g%% service level with %d-day lead time (σ=%.2f)",
			derefFloat(p.ServiceLevelPercent), derefInt(p.LeadTimeDays), derefFloat(p.DemandStdDeviation))
	}
	return "Unknown calculation method"
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func derefFloat(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
