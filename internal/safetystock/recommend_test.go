package safetystock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecommendMethod(t *testing.T) {
	tests := []struct {
		name        string
		cv          float64
		leadTime    int
		samples     int
		criticality Criticality
		want        Method
	}{
		{"limited data wins over everything", 60, 7, 10, CriticalityMedium, MethodFixed},
		{"limited data with high criticality", 5, 30, 29, CriticalityHigh, MethodFixed},
		{"high criticality long history", 10, 7, 100, CriticalityHigh, MethodLeadTimeBased},
		{"high criticality short history", 80, 30, 45, CriticalityHigh, MethodDaysOfSupply},
		{"high criticality at threshold", 10, 7, 90, CriticalityHigh, MethodLeadTimeBased},
		{"stable demand", 10, 30, 100, CriticalityMedium, MethodDaysOfSupply},
		{"moderate demand long lead time", 35, 21, 100, CriticalityMedium, MethodLeadTimeBased},
		{"moderate demand short lead time", 35, 7, 100, CriticalityLow, MethodDaysOfSupply},
		{"moderate demand lead time at 14", 35, 14, 100, CriticalityMedium, MethodDaysOfSupply},
		{"cv at low boundary is moderate", 20, 21, 40, CriticalityMedium, MethodLeadTimeBased},
		{"volatile demand enough history", 60, 7, 70, CriticalityMedium, MethodLeadTimeBased},
		{"volatile demand short history", 60, 7, 40, CriticalityMedium, MethodDaysOfSupply},
		{"cv at high boundary is volatile", 50, 30, 59, CriticalityLow, MethodDaysOfSupply},
		{"exactly 30 points is enough", 10, 7, 30, CriticalityMedium, MethodDaysOfSupply},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RecommendMethod(tt.cv, tt.leadTime, tt.samples, tt.criticality))
		})
	}
}

func TestParseCriticality(t *testing.T) {
	assert.Equal(t, CriticalityHigh, ParseCriticality("high"))
	assert.Equal(t, CriticalityLow, ParseCriticality(" LOW "))
	assert.Equal(t, CriticalityMedium, ParseCriticality(""))
	assert.Equal(t, CriticalityMedium, ParseCriticality("urgent"))
}
