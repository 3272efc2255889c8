package safetystock

import "github.com/rs/zerolog/log"

// Thresholds of the method recommendation table.
const (
	MinRecommendationSamples = 30
	HighCriticalitySamples   = 90
	HighVariabilitySamples   = 60
	LowVariabilityCV         = 20.0
	HighVariabilityCV        = 50.0
	LongLeadTimeDays         = 14
)

// RecommendMethod suggests a calculation method for a demand profile. It is
// advisory and never consulted by Engine.Calculate.
func RecommendMethod(cvPercent float64, leadTimeDays, sampleCount int, criticality Criticality) Method {
	if sampleCount < MinRecommendationSamples {
		log.Info().Int("data_points", sampleCount).Msg("recommending FIXED due to limited data")
		return MethodFixed
	}

	if criticality == CriticalityHigh {
		if sampleCount >= HighCriticalitySamples {
			return MethodLeadTimeBased
		}
		return MethodDaysOfSupply
	}

	switch {
	case cvPercent < LowVariabilityCV:
		return MethodDaysOfSupply
	case cvPercent < HighVariabilityCV:
		if leadTimeDays > LongLeadTimeDays {
			return MethodLeadTimeBased
		}
		return MethodDaysOfSupply
	default:
		if sampleCount >= HighVariabilitySamples {
			return MethodLeadTimeBased
		}
		return MethodDaysOfSupply
	}
}
