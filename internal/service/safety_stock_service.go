// internal/service/safety_stock_service.go
package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/hongquyngo/safety-stock/internal/cache"
	"github.com/hongquyngo/safety-stock/internal/config"
	"github.com/hongquyngo/safety-stock/internal/domain"
	"github.com/hongquyngo/safety-stock/internal/repository"
	"github.com/hongquyngo/safety-stock/internal/safetystock"
	"github.com/hongquyngo/safety-stock/internal/storage"
	"github.com/rs/zerolog/log"
)

var ErrInvalidScope = errors.New("product_id and entity_id are required")

type SafetyStockService struct {
	demand  repository.DemandRepository
	rules   repository.SafetyStockRepository
	cache   cache.DemandCache
	cfg     config.CalculationConfig
	reports *storage.ReportWriter
	now     func() time.Time
	engine  *safetystock.Engine
}

type Option func(*SafetyStockService)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *SafetyStockService) { s.now = now }
}

// WithReportWriter enables report uploads for recalculation runs.
func WithReportWriter(w *storage.ReportWriter) Option {
	return func(s *SafetyStockService) { s.reports = w }
}

func NewSafetyStockService(
	demand repository.DemandRepository,
	rules repository.SafetyStockRepository,
	cacheImpl cache.DemandCache,
	cfg config.CalculationConfig,
	opts ...Option,
) *SafetyStockService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopDemandCache()
	}
	if cfg.HistoricalDays <= 0 {
		cfg.HistoricalDays = safetystock.DefaultHistoricalDays
	}
	if cfg.DefaultLeadTimeDays <= 0 {
		cfg.DefaultLeadTimeDays = 7
	}
	if cfg.RecalcConcurrency <= 0 {
		cfg.RecalcConcurrency = 1
	}

	s := &SafetyStockService{
		demand: demand,
		rules:  rules,
		cache:  cacheImpl,
		cfg:    cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	var fetcher safetystock.DemandFetcher
	if demand != nil {
		fetcher = safetystock.DemandFetcherFunc(s.fetchSamples)
	}
	s.engine = safetystock.NewEngine(fetcher,
		safetystock.WithClock(s.now),
		safetystock.WithHistoricalDays(cfg.HistoricalDays),
		safetystock.WithOutlierExclusion(cfg.ExcludeOutliers),
	)
	return s
}

// Calculate runs the engine on an untyped parameter map.
func (s *SafetyStockService) Calculate(ctx context.Context, method string, params safetystock.Params) safetystock.Result {
	return s.engine.CalculateParams(ctx, method, params)
}

// CalculateRequest runs the engine on a typed request.
func (s *SafetyStockService) CalculateRequest(ctx context.Context, req safetystock.Request) safetystock.Result {
	return s.engine.Calculate(ctx, req)
}

// fetchSamples reads demand through the cache.
func (s *SafetyStockService) fetchSamples(ctx context.Context, scope safetystock.DemandScope, daysBack int) ([]safetystock.DemandSample, error) {
	asOf := s.now()
	if samples, ok, err := s.cache.GetSamples(ctx, scope, daysBack, asOf); err == nil && ok {
		return samples, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("safety stock: cache get demand samples failed")
	}

	samples, err := s.demand.FetchDemandSamples(ctx, scope, daysBack)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetSamples(ctx, scope, daysBack, asOf, samples); err != nil {
		log.Warn().Err(err).Msg("safety stock: cache set demand samples failed")
	}

	return samples, nil
}

// DemandStatistics analyzes the demand history of a scope. daysBack <= 0 uses
// the configured default; a nil excludeOutliers uses the configured default.
func (s *SafetyStockService) DemandStatistics(ctx context.Context, scope safetystock.DemandScope, daysBack int, excludeOutliers *bool) (*domain.DemandAnalysis, error) {
	if !scope.Valid() {
		return nil, ErrInvalidScope
	}
	if daysBack <= 0 {
		daysBack = s.cfg.HistoricalDays
	}
	if err := safetystock.ValidateLookback("days_back", daysBack); err != nil {
		return nil, err
	}
	exclude := s.cfg.ExcludeOutliers
	if excludeOutliers != nil {
		exclude = *excludeOutliers
	}

	samples, err := s.fetchSamples(ctx, scope, daysBack)
	if err != nil {
		return nil, err
	}

	now := s.now()
	stats := safetystock.ComputeDemandStatisticsAt(now, samples, daysBack, exclude)

	analysis := &domain.DemandAnalysis{
		Scope:            scope,
		Statistics:       stats,
		DaysAnalyzed:     daysBack,
		CustomerSpecific: scope.CustomerID != nil,
		FetchedAt:        now,
	}
	if stats.SampleCount > 0 {
		analysis.Pattern = stats.Pattern()
		analysis.SuggestedMethod = safetystock.RecommendMethod(
			stats.CoefficientOfVariationPercent, s.cfg.DefaultLeadTimeDays, stats.SampleCount, safetystock.CriticalityMedium)
	}
	analysis.Summary = safetystock.FormatDemandSummary(stats, daysBack, analysis.SuggestedMethod)

	return analysis, nil
}

// LeadTimeEstimate returns the historical order-to-delivery time, or the
// configured default when there is no usable history.
func (s *SafetyStockService) LeadTimeEstimate(ctx context.Context, scope safetystock.DemandScope) (domain.LeadTimeEstimate, error) {
	if !scope.Valid() {
		return domain.LeadTimeEstimate{}, ErrInvalidScope
	}

	fallback := domain.LeadTimeEstimate{
		AverageDays: float64(s.cfg.DefaultLeadTimeDays),
		Basis:       "Default value - no historical data available",
	}
	if s.demand == nil {
		return fallback, nil
	}

	est, err := s.demand.EstimateLeadTime(ctx, scope)
	if err != nil {
		log.Warn().Err(err).Int64("product_id", scope.ProductID).Msg("safety stock: lead time estimate failed, using default")
		return fallback, nil
	}
	if est.SampleSize == 0 || est.AverageDays <= 0 {
		return fallback, nil
	}

	est.AverageDays = math.Round(est.AverageDays)
	est.FromHistory = true
	est.Basis = "OC to Delivery"
	return est, nil
}

// Recommend suggests a calculation method for a scope. leadTimeDays <= 0 is
// estimated from delivery history.
func (s *SafetyStockService) Recommend(ctx context.Context, scope safetystock.DemandScope, criticality string, leadTimeDays, daysBack int) (*domain.Recommendation, error) {
	analysis, err := s.DemandStatistics(ctx, scope, daysBack, nil)
	if err != nil {
		return nil, err
	}

	leadTime := domain.LeadTimeEstimate{AverageDays: float64(leadTimeDays), Basis: "Provided"}
	if leadTimeDays <= 0 {
		if leadTime, err = s.LeadTimeEstimate(ctx, scope); err != nil {
			return nil, err
		}
	}

	crit := safetystock.ParseCriticality(criticality)
	stats := analysis.Statistics
	method := safetystock.RecommendMethod(
		stats.CoefficientOfVariationPercent, int(leadTime.AverageDays), stats.SampleCount, crit)

	return &domain.Recommendation{
		Scope:       scope,
		Method:      method,
		Criticality: crit,
		LeadTime:    leadTime,
		Statistics:  stats,
		DaysBack:    analysis.DaysAnalyzed,
	}, nil
}
