package safetystock

import (
	"math"

	"github.com/rs/zerolog/log"
)

const (
	MinServiceLevel = 50.0
	MaxServiceLevel = 99.9
)

// ZScoreEntry maps a service level percentage to its one-sided standard-normal quantile.
type ZScoreEntry struct {
	ServiceLevel float64 `json:"service_level"`
	ZScore       float64 `json:"z_score"`
}

// zScoreTable is ordered by ascending service level.
var zScoreTable = [...]ZScoreEntry{
	{90.0, 1.28},
	{91.0, 1.34},
	{92.0, 1.41},
	{93.0, 1.48},
	{94.0, 1.56},
	{95.0, 1.65},
	{96.0, 1.75},
	{97.0, 1.88},
	{98.0, 2.05},
	{99.0, 2.33},
	{99.5, 2.58},
	{99.9, 3.09},
}

// ZScoreTable returns a copy of the built-in service level table.
func ZScoreTable() []ZScoreEntry {
	return append([]ZScoreEntry(nil), zScoreTable[:]...)
}

// LookupZScore returns the table entry for serviceLevel, or the entry with the
// nearest service level when there is no exact match. Equidistant levels
// resolve to the lower one. exact is false when an approximation was used.
func LookupZScore(serviceLevel float64) (entry ZScoreEntry, exact bool) {
	best := zScoreTable[0]
	bestDiff := math.Abs(best.ServiceLevel - serviceLevel)
	for _, e := range zScoreTable {
		if e.ServiceLevel == serviceLevel {
			return e, true
		}
		if d := math.Abs(e.ServiceLevel - serviceLevel); d < bestDiff {
			best, bestDiff = e, d
		}
	}
	return best, false
}

// ZScore returns the Z-score for a service level percentage, logging when the
// level is not in the table and the nearest one is used.
func ZScore(serviceLevel float64) float64 {
	entry, exact := LookupZScore(serviceLevel)
	if !exact {
		log.Warn().
			Float64("service_level", serviceLevel).
			Float64("used_level", entry.ServiceLevel).
			Msg("service level not in z-score table, using closest")
	}
	return entry.ZScore
}
