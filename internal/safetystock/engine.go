package safetystock

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultHistoricalDays is the lookback used to derive demand when a request
// does not specify one.
const DefaultHistoricalDays = 90

// MaxHistoricalDays caps every demand lookback.
const MaxHistoricalDays = 3650

// DemandFetcher returns the recorded daily demand for a scope over the last
// daysBack days. An empty result is not an error.
type DemandFetcher interface {
	FetchDemandSamples(ctx context.Context, scope DemandScope, daysBack int) ([]DemandSample, error)
}

// DemandFetcherFunc adapts a function to DemandFetcher.
type DemandFetcherFunc func(ctx context.Context, scope DemandScope, daysBack int) ([]DemandSample, error)

func (f DemandFetcherFunc) FetchDemandSamples(ctx context.Context, scope DemandScope, daysBack int) ([]DemandSample, error) {
	return f(ctx, scope, daysBack)
}

// Engine routes calculation requests to their formula. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	fetcher         DemandFetcher
	now             func() time.Time
	historicalDays  int
	excludeOutliers bool
}

type Option func(*Engine)

// WithClock overrides the time source used for timestamps and demand windows.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithHistoricalDays sets the default lookback for demand derivation.
func WithHistoricalDays(days int) Option {
	return func(e *Engine) {
		if days > 0 && days <= MaxHistoricalDays {
			e.historicalDays = days
		}
	}
}

// WithOutlierExclusion toggles IQR outlier removal on derived demand.
func WithOutlierExclusion(enabled bool) Option {
	return func(e *Engine) { e.excludeOutliers = enabled }
}

// NewEngine creates an Engine. fetcher may be nil, in which case requests that
// need history fall back to zero demand.
func NewEngine(fetcher DemandFetcher, opts ...Option) *Engine {
	e := &Engine{
		fetcher:         fetcher,
		now:             time.Now,
		historicalDays:  DefaultHistoricalDays,
		excludeOutliers: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CalculateParams builds a request from an untyped parameter map and calculates it.
func (e *Engine) CalculateParams(ctx context.Context, method string, params Params) Result {
	req, err := RequestFromParams(method, params)
	if err != nil {
		return errorResult(Method(strings.ToUpper(strings.TrimSpace(method))), err, e.now())
	}
	return e.Calculate(ctx, req)
}

// Calculate computes the safety stock for req. Failures, including panics in
// the demand fetcher, are returned as an error Result and never propagate.
func (e *Engine) Calculate(ctx context.Context, req Request) (result Result) {
	var method Method
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("method", string(method)).Msg("safety stock calculation panicked")
			result = errorResult(method, fmt.Errorf("%w: %v", ErrInternal, r), e.now())
		}
	}()

	req = deref(req)
	if req == nil {
		return errorResult("", missing("method"), e.now())
	}
	method = req.Method()

	if err := req.validate(); err != nil {
		return errorResult(method, err, e.now())
	}

	var err error
	switch r := req.(type) {
	case FixedRequest:
		result = e.fixed(r)
	case DaysOfSupplyRequest:
		result, err = e.daysOfSupply(ctx, r)
	case LeadTimeRequest:
		result, err = e.leadTimeBased(ctx, r)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
	if err != nil {
		log.Error().Err(err).Str("method", string(method)).Msg("safety stock calculation failed")
		return errorResult(method, err, e.now())
	}

	result.ComputedAt = e.now()
	return result
}

func (e *Engine) fixed(r FixedRequest) Result {
	qty := *r.SafetyStockQuantity
	return Result{
		Method:              MethodFixed,
		SafetyStockQuantity: qty,
		FormulaDescription:  "Manual Input",
		CalculationNotes:    "Safety stock quantity was manually specified",
		Parameters:          Parameters{SafetyStockQuantity: &qty},
	}
}

func (e *Engine) daysOfSupply(ctx context.Context, r DaysOfSupplyRequest) (Result, error) {
	demand, err := e.resolveDemand(ctx, r.AverageDailyDemand, nil, false, r.Scope, r.HistoricalDays)
	if err != nil {
		return Result{}, err
	}

	days := r.SafetyDays
	avg := demand.avg
	qty := roundTo(float64(days)*avg, 2)

	return Result{
		Method:              MethodDaysOfSupply,
		SafetyStockQuantity: qty,
		FormulaDescription:  fmt.Sprintf("SS = %d days × %.2f units/day", days, avg),
		CalculationNotes:    fmt.Sprintf("Maintains %d days of average demand as buffer", days),
		Parameters: Parameters{
			SafetyStockQuantity: &qty,
			SafetyDays:          &days,
			AverageDailyDemand:  &avg,
			AverageDemandSource: demand.avgSource,
			HistoricalDays:      demand.historicalDays,
			DemandStatistics:    demand.stats,
		},
	}, nil
}

func (e *Engine) leadTimeBased(ctx context.Context, r LeadTimeRequest) (Result, error) {
	demand, err := e.resolveDemand(ctx, r.AverageDailyDemand, r.DemandStdDeviation, true, r.Scope, r.HistoricalDays)
	if err != nil {
		return Result{}, err
	}

	lt := r.LeadTimeDays
	sl := r.ServiceLevelPercent
	entry, _ := LookupZScore(sl)
	z := ZScore(sl)
	std := demand.std
	avg := demand.avg

	qty := roundTo(z*math.Sqrt(float64(lt))*std, 2)

	res := Result{
		Method:              MethodLeadTimeBased,
		SafetyStockQuantity: qty,
		FormulaDescription:  fmt.Sprintf("SS = %.2f × √%d × %.2f", z, lt, std),
		CalculationNotes:    fmt.Sprintf("Statistical SS for %g%% service level over %d days lead time", sl, lt),
		Parameters: Parameters{
			SafetyStockQuantity: &qty,
			LeadTimeDays:        &lt,
			ServiceLevelPercent: &sl,
			ZScore:              &z,
			ZScoreServiceLevel:  &entry.ServiceLevel,
			DemandStdDeviation:  &std,
			AverageDailyDemand:  &avg,
			AverageDemandSource: demand.avgSource,
			StdDeviationSource:  demand.stdSource,
			HistoricalDays:      demand.historicalDays,
			DemandStatistics:    demand.stats,
		},
	}

	if demand.avgSource != DemandSourceDefaultZero {
		rop := roundTo(avg*float64(lt)+qty, 2)
		res.ReorderPoint = &rop
	}

	return res, nil
}

// deref unwraps pointer requests. A nil pointer yields a nil Request.
func deref(req Request) Request {
	switch r := req.(type) {
	case *FixedRequest:
		if r == nil {
			return nil
		}
		return *r
	case *DaysOfSupplyRequest:
		if r == nil {
			return nil
		}
		return *r
	case *LeadTimeRequest:
		if r == nil {
			return nil
		}
		return *r
	}
	return req
}

type resolvedDemand struct {
	avg, std       float64
	avgSource      DemandSource
	stdSource      DemandSource
	stats          *DemandStatistics
	historicalDays int
}

// resolveDemand fills the optional demand inputs. Explicit values win; any
// missing value is taken from one history lookup when a scope is available,
// otherwise it defaults to zero.
func (e *Engine) resolveDemand(ctx context.Context, avg, std *float64, wantStd bool, scope *DemandScope, historicalDays int) (resolvedDemand, error) {
	d := resolvedDemand{
		avgSource: DemandSourceDefaultZero,
		stdSource: DemandSourceDefaultZero,
	}
	if !wantStd {
		d.stdSource = ""
	}
	if avg != nil {
		d.avg, d.avgSource = *avg, DemandSourceExplicit
	}
	if wantStd && std != nil {
		d.std, d.stdSource = *std, DemandSourceExplicit
	}

	needAvg := avg == nil
	needStd := wantStd && std == nil
	if !needAvg && !needStd {
		return d, nil
	}
	if scope == nil || !scope.Valid() || e.fetcher == nil {
		return d, nil
	}

	days := historicalDays
	if days <= 0 {
		days = e.historicalDays
	}

	samples, err := e.fetcher.FetchDemandSamples(ctx, *scope, days)
	if err != nil {
		return d, fmt.Errorf("%w: %w", ErrDemandLookup, err)
	}

	stats := ComputeDemandStatisticsAt(e.now(), samples, days, e.excludeOutliers)
	d.stats = &stats
	d.historicalDays = days
	// History-derived figures enter the formula at two decimals, as shown in it.
	if needAvg {
		d.avg, d.avgSource = roundTo(stats.AverageDailyDemand, 2), DemandSourceHistory
	}
	if needStd {
		d.std, d.stdSource = roundTo(stats.StandardDeviation, 2), DemandSourceHistory
	}

	log.Debug().
		Int64("product_id", scope.ProductID).
		Int64("entity_id", scope.EntityID).
		Int("days_back", days).
		Int("data_points", stats.SampleCount).
		Msg("derived demand from history")

	return d, nil
}

// roundTo rounds v to the given number of decimal places.
func roundTo(v float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(v)
	}
	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}
