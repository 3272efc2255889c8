package safetystock

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	// outlierMinPoints is the series length above which IQR filtering applies.
	outlierMinPoints = 10
	iqrMultiplier    = 1.5
	dayKeyLayout     = "2006-01-02"
)

// ComputeDemandStatistics summarizes samples over the daysBack-day window ending today.
func ComputeDemandStatistics(samples []DemandSample, daysBack int, excludeOutliers bool) DemandStatistics {
	return ComputeDemandStatisticsAt(time.Now(), samples, daysBack, excludeOutliers)
}

// ComputeDemandStatisticsAt summarizes samples over the calendar days
// [asOf-daysBack, asOf] in asOf's location.
//
// Days without a sample count as zero demand. Samples outside the window are
// ignored and samples sharing a day are summed. The standard deviation is the
// sample (n-1) deviation; a single retained day has a deviation of 0.
func ComputeDemandStatisticsAt(asOf time.Time, samples []DemandSample, daysBack int, excludeOutliers bool) DemandStatistics {
	if len(samples) == 0 || daysBack <= 0 {
		return DemandStatistics{}
	}
	if daysBack > MaxHistoricalDays {
		daysBack = MaxHistoricalDays
	}

	series, matched := zeroFill(asOf, samples, daysBack)
	if matched == 0 {
		return DemandStatistics{}
	}

	if excludeOutliers && len(series) > outlierMinPoints {
		before := len(series)
		series = removeOutliers(series)
		if removed := before - len(series); removed > 0 {
			log.Debug().Int("removed", removed).Int("days", before).Msg("demand: removed outliers")
		}
	}

	return aggregate(series)
}

// zeroFill returns daysBack+1 daily quantities ordered oldest first, and the
// number of input samples that fell inside the window.
func zeroFill(asOf time.Time, samples []DemandSample, daysBack int) ([]float64, int) {
	loc := asOf.Location()
	end := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, loc)
	start := end.AddDate(0, 0, -daysBack)

	byDay := make(map[string]float64, len(samples))
	matched := 0
	for _, s := range samples {
		d := s.Date.In(loc)
		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
		if day.Before(start) || day.After(end) {
			continue
		}
		byDay[day.Format(dayKeyLayout)] += math.Max(0, s.Quantity)
		matched++
	}

	series := make([]float64, 0, daysBack+1)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		series = append(series, byDay[day.Format(dayKeyLayout)])
	}
	return series, matched
}

// removeOutliers drops values outside [max(0, Q1-1.5*IQR), Q3+1.5*IQR].
func removeOutliers(series []float64) []float64 {
	sorted := append([]float64(nil), series...)
	sort.Float64s(sorted)

	q1 := quantile(sorted, 0.25)
	q3 := quantile(sorted, 0.75)
	iqr := q3 - q1
	lower := math.Max(0, q1-iqrMultiplier*iqr)
	upper := q3 + iqrMultiplier*iqr

	kept := make([]float64, 0, len(series))
	for _, v := range series {
		if v >= lower && v <= upper {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return series
	}
	return kept
}

// quantile uses linear interpolation at position q*(n-1) over sorted values.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func aggregate(series []float64) DemandStatistics {
	n := len(series)
	if n == 0 {
		return DemandStatistics{}
	}

	mean, stdDev := stat.MeanStdDev(series, nil)
	if n == 1 {
		stdDev = 0
	}

	cv := 0.0
	if mean > 0 {
		cv = stdDev / mean * 100
	}

	return DemandStatistics{
		AverageDailyDemand:            mean,
		StandardDeviation:             stdDev,
		MinimumDailyDemand:            floats.Min(series),
		MaximumDailyDemand:            floats.Max(series),
		CoefficientOfVariationPercent: cv,
		SampleCount:                   n,
	}
}
