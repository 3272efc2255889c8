package domain

import (
	"time"

	"github.com/hongquyngo/safety-stock/internal/safetystock"
)

// DemandAnalysis is the demand statistics for a scope together with the
// derived pattern and method suggestion.
type DemandAnalysis struct {
	Scope            safetystock.DemandScope        `json:"scope"`
	Statistics       safetystock.DemandStatistics   `json:"statistics"`
	DaysAnalyzed     int                            `json:"days_analyzed"`
	CustomerSpecific bool                           `json:"customer_specific"`
	Pattern          safetystock.VariabilityPattern `json:"pattern"`
	SuggestedMethod  safetystock.Method             `json:"suggested_method"`
	Summary          string                         `json:"summary"`
	FetchedAt        time.Time                      `json:"fetched_at"`
}

// Recommendation is the advisory method choice for a scope.
type Recommendation struct {
	Scope       safetystock.DemandScope      `json:"scope"`
	Method      safetystock.Method           `json:"method"`
	Criticality safetystock.Criticality      `json:"criticality"`
	LeadTime    LeadTimeEstimate             `json:"lead_time"`
	Statistics  safetystock.DemandStatistics `json:"statistics"`
	DaysBack    int                          `json:"days_back"`
}

// RecalculationOutcome is the result of recalculating one rule.
type RecalculationOutcome struct {
	RuleID      int64              `json:"rule_id"`
	ProductID   int64              `json:"product_id"`
	EntityID    int64              `json:"entity_id"`
	CustomerID  *int64             `json:"customer_id,omitempty"`
	Method      safetystock.Method `json:"method"`
	OldQuantity float64            `json:"old_safety_stock_qty"`
	NewQuantity float64            `json:"new_safety_stock_qty"`
	Reorder     *float64           `json:"reorder_point,omitempty"`
	Formula     string             `json:"formula_used,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// OK reports whether the rule was recalculated.
func (o RecalculationOutcome) OK() bool { return o.Error == "" }

// RecalculationRun reports a batch recalculation.
type RecalculationRun struct {
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
	Requested  int                    `json:"requested"`
	Succeeded  int                    `json:"succeeded"`
	Failed     int                    `json:"failed"`
	Outcomes   []RecalculationOutcome `json:"outcomes"`
	ReportKey  string                 `json:"report_key,omitempty"`
}
