// internal/domain/safety_stock.go
package domain

import (
	"strings"
	"time"
)

// RuleStatus is derived from the effective window and the active flag.
type RuleStatus string

const (
	RuleStatusActive   RuleStatus = "Active"
	RuleStatusFuture   RuleStatus = "Future"
	RuleStatusExpired  RuleStatus = "Expired"
	RuleStatusInactive RuleStatus = "Inactive"
)

const (
	RuleTypeCustomer = "Customer Specific"
	RuleTypeGeneral  = "General Rule"
)

// Rule is a safety stock level for a product at an entity, optionally
// narrowed to one customer.
type Rule struct {
	ID           int64   `json:"id" db:"id"`
	ProductID    int64   `json:"product_id" db:"product_id"`
	PTCode       string  `json:"pt_code" db:"pt_code"`
	ProductName  string  `json:"product_name" db:"product_name"`
	EntityID     int64   `json:"entity_id" db:"entity_id"`
	EntityName   string  `json:"entity_name" db:"entity_name"`
	CustomerID   *int64  `json:"customer_id,omitempty" db:"customer_id"`
	CustomerName *string `json:"customer_name,omitempty" db:"customer_name"`

	SafetyStockQty float64  `json:"safety_stock_qty" db:"safety_stock_qty"`
	MinStockQty    *float64 `json:"min_stock_qty,omitempty" db:"min_stock_qty"`
	MaxStockQty    *float64 `json:"max_stock_qty,omitempty" db:"max_stock_qty"`
	ReorderPoint   *float64 `json:"reorder_point,omitempty" db:"reorder_point"`
	ReorderQty     *float64 `json:"reorder_qty,omitempty" db:"reorder_qty"`

	EffectiveFrom time.Time  `json:"effective_from" db:"effective_from"`
	EffectiveTo   *time.Time `json:"effective_to,omitempty" db:"effective_to"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	PriorityLevel int        `json:"priority_level" db:"priority_level"`
	BusinessNotes *string    `json:"business_notes,omitempty" db:"business_notes"`

	RuleType string     `json:"rule_type" db:"rule_type"`
	Status   RuleStatus `json:"status" db:"status"`

	CreatedBy string    `json:"created_by" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_date"`
	UpdatedBy string    `json:"updated_by" db:"updated_by"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_date"`

	Parameters *CalculationParameters `json:"parameters,omitempty" db:"-"`
}

// RuleUpdate is a partial rule edit. Nil fields keep the stored value.
type RuleUpdate struct {
	ProductID  *int64 `json:"product_id"`
	EntityID   *int64 `json:"entity_id"`
	CustomerID *int64 `json:"customer_id"`

	SafetyStockQty *float64 `json:"safety_stock_qty"`
	MinStockQty    *float64 `json:"min_stock_qty"`
	MaxStockQty    *float64 `json:"max_stock_qty"`
	ReorderPoint   *float64 `json:"reorder_point"`
	ReorderQty     *float64 `json:"reorder_qty"`

	EffectiveFrom *time.Time `json:"effective_from"`
	EffectiveTo   *time.Time `json:"effective_to"`
	IsActive      *bool      `json:"is_active"`
	PriorityLevel *int       `json:"priority_level"`
	BusinessNotes *string    `json:"business_notes"`

	Parameters *CalculationParameters `json:"parameters"`
}

// Apply copies the set fields of u onto rule.
func (u RuleUpdate) Apply(rule *Rule) {
	if u.ProductID != nil {
		rule.ProductID = *u.ProductID
	}
	if u.EntityID != nil {
		rule.EntityID = *u.EntityID
	}
	if u.CustomerID != nil {
		rule.CustomerID = u.CustomerID
	}
	if u.SafetyStockQty != nil {
		rule.SafetyStockQty = *u.SafetyStockQty
	}
	if u.MinStockQty != nil {
		rule.MinStockQty = u.MinStockQty
	}
	if u.MaxStockQty != nil {
		rule.MaxStockQty = u.MaxStockQty
	}
	if u.ReorderPoint != nil {
		rule.ReorderPoint = u.ReorderPoint
	}
	if u.ReorderQty != nil {
		rule.ReorderQty = u.ReorderQty
	}
	if u.EffectiveFrom != nil {
		rule.EffectiveFrom = *u.EffectiveFrom
	}
	if u.EffectiveTo != nil {
		rule.EffectiveTo = u.EffectiveTo
	}
	if u.IsActive != nil {
		rule.IsActive = *u.IsActive
	}
	if u.PriorityLevel != nil {
		rule.PriorityLevel = *u.PriorityLevel
	}
	if u.BusinessNotes != nil {
		rule.BusinessNotes = u.BusinessNotes
	}
	if u.Parameters != nil {
		rule.Parameters = u.Parameters
	}
}

// CalculationParameters are the stored inputs and trace of the last
// calculation behind a rule.
type CalculationParameters struct {
	RuleID              int64      `json:"safety_stock_level_id" db:"safety_stock_level_id"`
	CalculationMethod   string     `json:"calculation_method" db:"calculation_method"`
	LeadTimeDays        *int       `json:"lead_time_days,omitempty" db:"lead_time_days"`
	SafetyDays          *int       `json:"safety_days,omitempty" db:"safety_days"`
	ServiceLevelPercent *float64   `json:"service_level_percent,omitempty" db:"service_level_percent"`
	DemandStdDeviation  *float64   `json:"demand_std_deviation,omitempty" db:"demand_std_deviation"`
	AverageDailyDemand  *float64   `json:"avg_daily_demand,omitempty" db:"avg_daily_demand"`
	HistoricalDays      *int       `json:"historical_days,omitempty" db:"historical_days"`
	FormulaUsed         *string    `json:"formula_used,omitempty" db:"formula_used"`
	LastCalculatedAt    *time.Time `json:"last_calculated_date,omitempty" db:"last_calculated_date"`
}

// RuleFilter narrows ListRules.
type RuleFilter struct {
	EntityID        *int64
	CustomerID      *int64
	GeneralOnly     bool
	ProductSearch   string
	Status          string
	IncludeInactive bool
}

// NormalizedStatus returns the status filter in lower case, defaulting to "active".
func (f RuleFilter) NormalizedStatus() string {
	switch s := strings.ToLower(strings.TrimSpace(f.Status)); s {
	case "active", "expired", "future", "all":
		return s
	}
	return "active"
}

const (
	ReviewTypePeriodic      = "PERIODIC"
	ReviewTypeRecalculation = "RECALCULATION"

	ActionRecalculated = "RECALCULATED"
)

// Review is one entry in a rule's review history.
type Review struct {
	ID                   int64     `json:"id" db:"id"`
	RuleID               int64     `json:"safety_stock_level_id" db:"safety_stock_level_id"`
	ReviewDate           time.Time `json:"review_date" db:"review_date"`
	ReviewType           string    `json:"review_type" db:"review_type"`
	OldSafetyStockQty    *float64  `json:"old_safety_stock_qty,omitempty" db:"old_safety_stock_qty"`
	NewSafetyStockQty    *float64  `json:"new_safety_stock_qty,omitempty" db:"new_safety_stock_qty"`
	ChangePercentage     *float64  `json:"change_percentage,omitempty" db:"change_percentage"`
	AverageDailyDemand   *float64  `json:"avg_daily_demand,omitempty" db:"avg_daily_demand"`
	StockoutIncidents    *int      `json:"stockout_incidents,omitempty" db:"stockout_incidents"`
	ServiceLevelAchieved *float64  `json:"service_level_achieved,omitempty" db:"service_level_achieved"`
	ActionTaken          string    `json:"action_taken" db:"action_taken"`
	ActionReason         *string   `json:"action_reason,omitempty" db:"action_reason"`
	ReviewNotes          *string   `json:"review_notes,omitempty" db:"review_notes"`
	ReviewedBy           string    `json:"reviewed_by" db:"reviewed_by"`
	CreatedAt            time.Time `json:"created_at" db:"created_date"`
}

// ChangePercent returns the relative change between two quantities, or nil
// when the old quantity is zero or either side is missing.
func ChangePercent(oldQty, newQty *float64) *float64 {
	if oldQty == nil || newQty == nil || *oldQty == 0 {
		return nil
	}
	pct := (*newQty - *oldQty) / *oldQty * 100
	return &pct
}

// LeadTimeEstimate summarizes order-to-delivery durations.
type LeadTimeEstimate struct {
	AverageDays float64 `json:"avg_lead_time_days" db:"avg_days"`
	MinDays     int     `json:"min_lead_time_days" db:"min_days"`
	MaxDays     int     `json:"max_lead_time_days" db:"max_days"`
	SampleSize  int     `json:"sample_size" db:"sample_size"`
	FromHistory bool    `json:"from_history" db:"-"`
	Basis       string  `json:"basis" db:"-"`
}
