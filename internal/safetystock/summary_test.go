package safetystock

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDemandStatistics_Pattern(t *testing.T) {
	assert.Equal(t, PatternLow, DemandStatistics{CoefficientOfVariationPercent: 12}.Pattern())
	assert.Equal(t, PatternModerate, DemandStatistics{CoefficientOfVariationPercent: 20}.Pattern())
	assert.Equal(t, PatternModerate, DemandStatistics{CoefficientOfVariationPercent: 49.9}.Pattern())
	assert.Equal(t, PatternHigh, DemandStatistics{CoefficientOfVariationPercent: 50}.Pattern())
}

func TestFormatDemandSummary(t *testing.T) {
	assert.Equal(t, "No historical data found for the selected period",
		FormatDemandSummary(DemandStatistics{}, 90, ""))

	stats := DemandStatistics{
		AverageDailyDemand:            12.346,
		StandardDeviation:             3.2,
		CoefficientOfVariationPercent: 25.92,
		SampleCount:                   91,
	}
	out := FormatDemandSummary(stats, 90, MethodDaysOfSupply)

	assert.True(t, strings.HasPrefix(out, "Demand Analysis Summary\n"))
	assert.Contains(t, out, "- Period: Last 90 days")
	assert.Contains(t, out, "- Data Points: 91 days")
	assert.Contains(t, out, "- Avg Daily Demand: 12.35 units/day")
	assert.Contains(t, out, "- Std Deviation: 3.20 units")
	assert.Contains(t, out, "- Variability (CV%): 25.9%")
	assert.Contains(t, out, "- Suggested Method: DAYS_OF_SUPPLY")
	assert.True(t, strings.HasSuffix(out, "- Pattern: Moderate variability"))

	assert.NotContains(t, FormatDemandSummary(stats, 90, ""), "Suggested Method")
}

func TestSummary(t *testing.T) {
	days, lt := 14, 7
	avg, sl, std := 10.0, 95.0, 3.5

	assert.Equal(t, "Manual input - no calculation performed", Summary(MethodFixed, Parameters{}))
	assert.Equal(t, "Buffer for 14 days at 10.00 units/day average demand",
		Summary(MethodDaysOfSupply, Parameters{SafetyDays: &days, AverageDailyDemand: &avg}))
	assert.Equal(t, "Statistical calculation for 95% service level with 7-day lead time (σ=3.50)",
		Summary(MethodLeadTimeBased, Parameters{LeadTimeDays: &lt, ServiceLevelPercent: &sl, DemandStdDeviation: &std}))
	assert.Equal(t, "Unknown calculation method", Summary("OTHER", Parameters{}))
}
