package safetystock

import (
	"fmt"
	"strings"
	"time"
)

// Method identifies a safety stock calculation method
type Method string

const (
	MethodFixed         Method = "FIXED"
	MethodDaysOfSupply  Method = "DAYS_OF_SUPPLY"
	MethodLeadTimeBased Method = "LEAD_TIME_BASED"
)

// Methods lists the supported calculation methods in display order.
func Methods() []Method {
	return []Method{MethodFixed, MethodDaysOfSupply, MethodLeadTimeBased}
}

// ParseMethod returns the Method for a name (case-insensitive).
func ParseMethod(name string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(name)))
	switch m {
	case MethodFixed, MethodDaysOfSupply, MethodLeadTimeBased:
		return m, nil
	}
	return "", fmt.Errorf("%w: %s. Use FIXED, DAYS_OF_SUPPLY, or LEAD_TIME_BASED", ErrUnknownMethod, name)
}

// Criticality is the business criticality of a product, used by RecommendMethod.
type Criticality string

const (
	CriticalityHigh   Criticality = "HIGH"
	CriticalityMedium Criticality = "MEDIUM"
	CriticalityLow    Criticality = "LOW"
)

// ParseCriticality normalizes a criticality label. Empty or unknown values map to MEDIUM.
func ParseCriticality(label string) Criticality {
	switch c := Criticality(strings.ToUpper(strings.TrimSpace(label))); c {
	case CriticalityHigh, CriticalityMedium, CriticalityLow:
		return c
	}
	return CriticalityMedium
}

// DemandSample is the total quantity demanded on one calendar day for a scope.
type DemandSample struct {
	Date     time.Time `json:"date" db:"demand_date"`
	Quantity float64   `json:"quantity" db:"daily_quantity"`
}

// DemandScope identifies whose demand history to analyze.
// CustomerID is nil for entity-wide demand.
type DemandScope struct {
	ProductID  int64  `json:"product_id"`
	EntityID   int64  `json:"entity_id"`
	CustomerID *int64 `json:"customer_id,omitempty"`
}

// Valid reports whether the scope carries enough context to fetch history.
func (s DemandScope) Valid() bool {
	return s.ProductID > 0 && s.EntityID > 0
}

// DemandStatistics summarizes daily demand over a zero-filled trailing window.
type DemandStatistics struct {
	AverageDailyDemand            float64 `json:"avg_daily_demand"`
	StandardDeviation             float64 `json:"std_deviation"`
	MinimumDailyDemand            float64 `json:"min_daily_demand"`
	MaximumDailyDemand            float64 `json:"max_daily_demand"`
	CoefficientOfVariationPercent float64 `json:"cv_percent"`
	SampleCount                   int     `json:"data_points"`
}

// DemandSource records where a demand figure used in a calculation came from.
type DemandSource string

const (
	DemandSourceExplicit    DemandSource = "explicit"
	DemandSourceHistory     DemandSource = "history"
	DemandSourceDefaultZero DemandSource = "default_zero"
)

// Parameters is the resolved input trace of a calculation. Fields that do not
// apply to the method are nil.
type Parameters struct {
	SafetyStockQuantity *float64 `json:"safety_stock_qty,omitempty"`

	SafetyDays          *int     `json:"safety_days,omitempty"`
	LeadTimeDays        *int     `json:"lead_time_days,omitempty"`
	ServiceLevelPercent *float64 `json:"service_level_percent,omitempty"`
	ZScore              *float64 `json:"z_score,omitempty"`
	ZScoreServiceLevel  *float64 `json:"z_score_service_level,omitempty"`

	DemandStdDeviation *float64 `json:"demand_std_deviation,omitempty"`
	AverageDailyDemand *float64 `json:"avg_daily_demand,omitempty"`

	AverageDemandSource DemandSource      `json:"avg_daily_demand_source,omitempty"`
	StdDeviationSource  DemandSource      `json:"demand_std_deviation_source,omitempty"`
	HistoricalDays      int               `json:"historical_days,omitempty"`
	DemandStatistics    *DemandStatistics `json:"demand_statistics,omitempty"`
}

// Result is the outcome of a calculation: either a success carrying the
// quantity and its explanation, or an error variant with Error set.
type Result struct {
	Method              Method     `json:"method"`
	SafetyStockQuantity float64    `json:"safety_stock_qty"`
	ReorderPoint        *float64   `json:"reorder_point,omitempty"`
	FormulaDescription  string     `json:"formula_used,omitempty"`
	CalculationNotes    string     `json:"calculation_notes,omitempty"`
	Parameters          Parameters `json:"parameters"`
	ComputedAt          time.Time  `json:"calculated_at"`

	Error string `json:"error,omitempty"`
	Err   error  `json:"-"`
}

// OK reports whether the result is a success.
func (r Result) OK() bool {
	return r.Err == nil && r.Error == ""
}

func errorResult(method Method, err error, at time.Time) Result {
	return Result{
		Method:     method,
		ComputedAt: at,
		Error:      err.Error(),
		Err:        err,
	}
}
