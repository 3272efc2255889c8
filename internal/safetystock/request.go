package safetystock

import (
	"fmt"
	"math"
)

// Request is a method-specific calculation request. The set of
// implementations is closed: FixedRequest, DaysOfSupplyRequest and
// LeadTimeRequest.
type Request interface {
	Method() Method
	validate() error
}

// FixedRequest passes a manually chosen quantity through unchanged.
type FixedRequest struct {
	SafetyStockQuantity *float64
}

// DaysOfSupplyRequest computes SS = safety_days × average daily demand.
//
// A nil AverageDailyDemand is derived from history when Scope is set and
// defaults to 0 otherwise. An explicit 0 is used as given.
type DaysOfSupplyRequest struct {
	SafetyDays         int
	AverageDailyDemand *float64
	Scope              *DemandScope
	HistoricalDays     int
}

// LeadTimeRequest computes SS = Z(service level) × √lead_time × σ(demand).
//
// Missing demand figures are derived together from a single history lookup
// when Scope is set.
type LeadTimeRequest struct {
	LeadTimeDays        int
	ServiceLevelPercent float64
	DemandStdDeviation  *float64
	AverageDailyDemand  *float64
	Scope               *DemandScope
	HistoricalDays      int
}

func (FixedRequest) Method() Method        { return MethodFixed }
func (DaysOfSupplyRequest) Method() Method { return MethodDaysOfSupply }
func (LeadTimeRequest) Method() Method     { return MethodLeadTimeBased }

func (r FixedRequest) validate() error {
	if r.SafetyStockQuantity == nil {
		return missing(ParamSafetyStockQty)
	}
	return checkNonNegative(ParamSafetyStockQty, *r.SafetyStockQuantity)
}

func (r DaysOfSupplyRequest) validate() error {
	if r.SafetyDays <= 0 {
		return invalid(ParamSafetyDays, "must be a positive integer")
	}
	if r.AverageDailyDemand != nil {
		if err := checkNonNegative(ParamAvgDailyDemand, *r.AverageDailyDemand); err != nil {
			return err
		}
	}
	return checkHistoricalDays(r.HistoricalDays)
}

func (r LeadTimeRequest) validate() error {
	if r.LeadTimeDays <= 0 {
		return invalid(ParamLeadTimeDays, "must be greater than 0")
	}
	if math.IsNaN(r.ServiceLevelPercent) || r.ServiceLevelPercent < MinServiceLevel || r.ServiceLevelPercent > MaxServiceLevel {
		return invalid(ParamServiceLevel, "must be between 50 and 99.9")
	}
	if r.DemandStdDeviation != nil {
		if err := checkNonNegative(ParamDemandStdDev, *r.DemandStdDeviation); err != nil {
			return err
		}
	}
	if r.AverageDailyDemand != nil {
		if err := checkNonNegative(ParamAvgDailyDemand, *r.AverageDailyDemand); err != nil {
			return err
		}
	}
	return checkHistoricalDays(r.HistoricalDays)
}

func checkNonNegative(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalid(field, "must be a finite number")
	}
	if v < 0 {
		return invalid(field, "cannot be negative")
	}
	return nil
}

func checkHistoricalDays(days int) error {
	return ValidateLookback(ParamHistoricalDays, days)
}

// ValidateLookback rejects negative lookbacks and lookbacks longer than
// MaxHistoricalDays. Zero means the default lookback.
func ValidateLookback(field string, days int) error {
	if days < 0 {
		return invalid(field, "must be a positive integer")
	}
	if days > MaxHistoricalDays {
		return invalid(field, fmt.Sprintf("must be at most %d days", MaxHistoricalDays))
	}
	return nil
}
