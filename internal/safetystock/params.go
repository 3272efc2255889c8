package safetystock

import (
	"math"

	"github.com/spf13/cast"
)

// Parameter names accepted by RequestFromParams. They match the columns of
// the parameter table so a stored row can be replayed as a request.
const (
	ParamSafetyStockQty = "safety_stock_qty"
	ParamSafetyDays     = "safety_days"
	ParamAvgDailyDemand = "avg_daily_demand"
	ParamLeadTimeDays   = "lead_time_days"
	ParamServiceLevel   = "service_level_percent"
	ParamDemandStdDev   = "demand_std_deviation"
	ParamProductID      = "product_id"
	ParamEntityID       = "entity_id"
	ParamCustomerID     = "customer_id"
	ParamHistoricalDays = "historical_days"
)

var paramAliases = map[string][]string{
	ParamSafetyStockQty: {"safety_stock_quantity"},
	ParamAvgDailyDemand: {"average_daily_demand"},
}

// Params is an untyped parameter map as received from JSON or a CLI.
type Params map[string]any

// RequestFromParams builds a typed Request for method from p. A key holding
// nil counts as absent.
func RequestFromParams(method string, p Params) (Request, error) {
	m, err := ParseMethod(method)
	if err != nil {
		return nil, err
	}

	switch m {
	case MethodFixed:
		qty, err := p.float(ParamSafetyStockQty)
		if err != nil {
			return nil, err
		}
		if qty == nil {
			return nil, missing(ParamSafetyStockQty)
		}
		return FixedRequest{SafetyStockQuantity: qty}, nil

	case MethodDaysOfSupply:
		days, err := p.int(ParamSafetyDays)
		if err != nil {
			return nil, err
		}
		if days == nil {
			return nil, missing(ParamSafetyDays)
		}
		avg, err := p.float(ParamAvgDailyDemand)
		if err != nil {
			return nil, err
		}
		scope, hist, err := p.history()
		if err != nil {
			return nil, err
		}
		return DaysOfSupplyRequest{
			SafetyDays:         *days,
			AverageDailyDemand: avg,
			Scope:              scope,
			HistoricalDays:     hist,
		}, nil

	case MethodLeadTimeBased:
		lt, err := p.int(ParamLeadTimeDays)
		if err != nil {
			return nil, err
		}
		if lt == nil {
			return nil, missing(ParamLeadTimeDays)
		}
		sl, err := p.float(ParamServiceLevel)
		if err != nil {
			return nil, err
		}
		if sl == nil {
			return nil, missing(ParamServiceLevel)
		}
		std, err := p.float(ParamDemandStdDev)
		if err != nil {
			return nil, err
		}
		avg, err := p.float(ParamAvgDailyDemand)
		if err != nil {
			return nil, err
		}
		scope, hist, err := p.history()
		if err != nil {
			return nil, err
		}
		return LeadTimeRequest{
			LeadTimeDays:        *lt,
			ServiceLevelPercent: *sl,
			DemandStdDeviation:  std,
			AverageDailyDemand:  avg,
			Scope:               scope,
			HistoricalDays:      hist,
		}, nil
	}

	return nil, ErrUnknownMethod
}

func (p Params) lookup(field string) (any, bool) {
	if v, ok := p[field]; ok && v != nil {
		return v, true
	}
	for _, alias := range paramAliases[field] {
		if v, ok := p[alias]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func (p Params) float(field string) (*float64, error) {
	v, ok := p.lookup(field)
	if !ok {
		return nil, nil
	}
	if _, isBool := v.(bool); isBool {
		return nil, invalid(field, "must be a number")
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return nil, invalid(field, "must be a number")
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, invalid(field, "must be a finite number")
	}
	return &f, nil
}

func (p Params) int(field string) (*int, error) {
	f, err := p.float(field)
	if err != nil || f == nil {
		return nil, err
	}
	if *f != math.Trunc(*f) {
		return nil, invalid(field, "must be a whole number")
	}
	if *f > math.MaxInt32 || *f < math.MinInt32 {
		return nil, invalid(field, "is out of range")
	}
	i := int(*f)
	return &i, nil
}

func (p Params) id(field string) (*int64, error) {
	i, err := p.int(field)
	if err != nil || i == nil {
		return nil, err
	}
	if *i <= 0 {
		return nil, invalid(field, "must be a positive id")
	}
	id := int64(*i)
	return &id, nil
}

// history returns the demand scope (nil unless both product and entity are
// given) and the requested lookback.
func (p Params) history() (*DemandScope, int, error) {
	product, err := p.id(ParamProductID)
	if err != nil {
		return nil, 0, err
	}
	entity, err := p.id(ParamEntityID)
	if err != nil {
		return nil, 0, err
	}
	customer, err := p.id(ParamCustomerID)
	if err != nil {
		return nil, 0, err
	}
	days, err := p.int(ParamHistoricalDays)
	if err != nil {
		return nil, 0, err
	}

	hist := 0
	if days != nil {
		hist = *days
	}

	if product == nil || entity == nil {
		return nil, hist, nil
	}
	return &DemandScope{ProductID: *product, EntityID: *entity, CustomerID: customer}, hist, nil
}
