// internal/service/safety_stock_recalculation.go
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hongquyngo/safety-stock/internal/domain"
	"github.com/hongquyngo/safety-stock/internal/safetystock"
	"github.com/hongquyngo/safety-stock/internal/storage"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ErrNoParameters is returned when a rule has nothing to recalculate from.
var ErrNoParameters = errors.New("rule has no calculation parameters")

// ErrReportsDisabled is returned by UploadReport when no report storage is configured.
var ErrReportsDisabled = errors.New("report storage is not configured")

// Recalculate re-runs a rule's stored method against current demand history,
// updates the rule and records a review.
func (s *SafetyStockService) Recalculate(ctx context.Context, ruleID int64, user string) (*domain.RecalculationOutcome, error) {
	rule, err := s.rules.GetRule(ctx, ruleID)
	if err != nil {
		return nil, err
	}

	return s.recalculateRule(ctx, rule, user)
}

func (s *SafetyStockService) recalculateRule(ctx context.Context, rule *domain.Rule, user string) (*domain.RecalculationOutcome, error) {
	outcome := &domain.RecalculationOutcome{
		RuleID:      rule.ID,
		ProductID:   rule.ProductID,
		EntityID:    rule.EntityID,
		CustomerID:  rule.CustomerID,
		OldQuantity: rule.SafetyStockQty,
	}
	if rule.Parameters == nil {
		outcome.Error = ErrNoParameters.Error()
		return outcome, ErrNoParameters
	}
	outcome.Method = safetystock.Method(rule.Parameters.CalculationMethod)

	result := s.engine.CalculateParams(ctx, rule.Parameters.CalculationMethod, recalculationParams(rule))
	if !result.OK() {
		outcome.Error = result.Error
		return outcome, result.Err
	}

	oldQty := rule.SafetyStockQty
	newQty := result.SafetyStockQuantity
	calculatedAt := result.ComputedAt

	params := *rule.Parameters
	params.CalculationMethod = string(result.Method)
	params.FormulaUsed = &result.FormulaDescription
	params.LastCalculatedAt = &calculatedAt
	if avg := result.Parameters.AverageDailyDemand; avg != nil {
		params.AverageDailyDemand = avg
	}
	if std := result.Parameters.DemandStdDeviation; std != nil {
		params.DemandStdDeviation = std
	}
	if result.Parameters.HistoricalDays > 0 {
		hist := result.Parameters.HistoricalDays
		params.HistoricalDays = &hist
	}

	rule.SafetyStockQty = newQty
	if result.ReorderPoint != nil {
		rule.ReorderPoint = result.ReorderPoint
	}
	rule.Parameters = &params
	rule.UpdatedBy = user

	if err := s.rules.UpdateRule(ctx, rule); err != nil {
		outcome.Error = err.Error()
		return outcome, fmt.Errorf("save recalculated rule %d: %w", rule.ID, err)
	}

	outcome.Method = result.Method
	outcome.NewQuantity = newQty
	outcome.Reorder = result.ReorderPoint
	outcome.Formula = result.FormulaDescription

	reason := result.FormulaDescription
	review := &domain.Review{
		RuleID:             rule.ID,
		ReviewDate:         truncateDay(calculatedAt),
		ReviewType:         domain.ReviewTypeRecalculation,
		OldSafetyStockQty:  &oldQty,
		NewSafetyStockQty:  &newQty,
		AverageDailyDemand: params.AverageDailyDemand,
		ActionTaken:        domain.ActionRecalculated,
		ActionReason:       &reason,
		ReviewedBy:         user,
	}
	if _, err := s.rules.CreateReview(ctx, review); err != nil {
		log.Warn().Err(err).Int64("rule_id", rule.ID).Msg("safety stock: recalculation review not recorded")
	}

	log.Info().
		Int64("rule_id", rule.ID).
		Str("method", string(result.Method)).
		Float64("old_qty", oldQty).
		Float64("new_qty", newQty).
		Msg("recalculated safety stock rule")

	return outcome, nil
}

// recalculationParams rebuilds engine input from a rule's stored parameters.
// Stored demand figures are left out so they are re-derived from history.
func recalculationParams(rule *domain.Rule) safetystock.Params {
	p := rule.Parameters
	params := safetystock.Params{
		safetystock.ParamProductID: rule.ProductID,
		safetystock.ParamEntityID:  rule.EntityID,
	}
	if rule.CustomerID != nil {
		params[safetystock.ParamCustomerID] = *rule.CustomerID
	}

	switch safetystock.Method(p.CalculationMethod) {
	case safetystock.MethodFixed:
		params[safetystock.ParamSafetyStockQty] = rule.SafetyStockQty
	case safetystock.MethodDaysOfSupply:
		if p.SafetyDays != nil {
			params[safetystock.ParamSafetyDays] = *p.SafetyDays
		}
	case safetystock.MethodLeadTimeBased:
		if p.LeadTimeDays != nil {
			params[safetystock.ParamLeadTimeDays] = *p.LeadTimeDays
		}
		if p.ServiceLevelPercent != nil {
			params[safetystock.ParamServiceLevel] = *p.ServiceLevelPercent
		}
	}
	if p.HistoricalDays != nil {
		params[safetystock.ParamHistoricalDays] = *p.HistoricalDays
	}
	return params
}

// RecalculateAll recalculates every rule matching filter with bounded
// concurrency. Per-rule failures are recorded in the run, not returned.
func (s *SafetyStockService) RecalculateAll(ctx context.Context, filter domain.RuleFilter, user string) (*domain.RecalculationRun, error) {
	run := &domain.RecalculationRun{StartedAt: s.now()}

	// Batch runs read history fresh.
	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("safety stock: demand cache invalidation failed")
	}

	rules, err := s.rules.ListRules(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list rules for recalculation: %w", err)
	}
	run.Requested = len(rules)
	run.Outcomes = make([]domain.RecalculationOutcome, len(rules))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.RecalcConcurrency)

	for i := range rules {
		i := i
		rule := rules[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcome, err := s.recalculateRule(gctx, &rule, user)
			if err != nil {
				log.Warn().Err(err).Int64("rule_id", rule.ID).Msg("safety stock: recalculation failed")
			}

			mu.Lock()
			run.Outcomes[i] = *outcome
			if outcome.OK() {
				run.Succeeded++
			} else {
				run.Failed++
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	run.FinishedAt = s.now()
	log.Info().
		Int("requested", run.Requested).
		Int("succeeded", run.Succeeded).
		Int("failed", run.Failed).
		Dur("elapsed", run.FinishedAt.Sub(run.StartedAt)).
		Msg("safety stock recalculation finished")

	return run, nil
}

// ReportsEnabled reports whether UploadReport can store runs.
func (s *SafetyStockService) ReportsEnabled() bool {
	return s.reports != nil
}

// UploadReport stores run as a CSV report and sets run.ReportKey.
func (s *SafetyStockService) UploadReport(ctx context.Context, run *domain.RecalculationRun) (string, error) {
	if s.reports == nil {
		return "", ErrReportsDisabled
	}
	key, err := s.reports.Write(ctx, run)
	if err != nil {
		return "", fmt.Errorf("upload recalculation report: %w", err)
	}
	run.ReportKey = key
	return key, nil
}

// ListReports returns the uploaded recalculation reports, newest first.
func (s *SafetyStockService) ListReports(ctx context.Context) ([]storage.ObjectInfo, error) {
	if s.reports == nil {
		return nil, ErrReportsDisabled
	}
	reports, err := s.reports.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recalculation reports: %w", err)
	}
	return reports, nil
}
