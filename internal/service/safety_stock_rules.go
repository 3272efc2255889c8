// internal/service/safety_stock_rules.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hongquyngo/safety-stock/internal/domain"
	"github.com/hongquyngo/safety-stock/internal/safetystock"
	"github.com/rs/zerolog/log"
)

const defaultPriorityLevel = 100

func (s *SafetyStockService) ListRules(ctx context.Context, filter domain.RuleFilter) ([]domain.Rule, error) {
	rules, err := s.rules.ListRules(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list safety stock rules: %w", err)
	}
	return rules, nil
}

func (s *SafetyStockService) GetRule(ctx context.Context, id int64) (*domain.Rule, error) {
	return s.rules.GetRule(ctx, id)
}

// CreateRule stores a new rule. EffectiveFrom defaults to today and
// PriorityLevel to 100.
func (s *SafetyStockService) CreateRule(ctx context.Context, rule *domain.Rule, user string) (*domain.Rule, error) {
	if err := validateRule(rule); err != nil {
		return nil, err
	}
	if rule.EffectiveFrom.IsZero() {
		rule.EffectiveFrom = truncateDay(s.now())
	}
	if rule.PriorityLevel == 0 {
		rule.PriorityLevel = defaultPriorityLevel
	}
	if err := validateParameters(rule.Parameters); err != nil {
		return nil, err
	}
	rule.IsActive = true
	rule.CreatedBy = user
	rule.UpdatedBy = user

	id, err := s.rules.CreateRule(ctx, rule)
	if err != nil {
		return nil, fmt.Errorf("create safety stock rule: %w", err)
	}

	log.Info().Int64("rule_id", id).Int64("product_id", rule.ProductID).Str("user", user).Msg("created safety stock rule")
	return s.rules.GetRule(ctx, id)
}

// UpdateRule merges update onto the stored rule. Fields left out of update
// keep their stored values.
func (s *SafetyStockService) UpdateRule(ctx context.Context, id int64, update domain.RuleUpdate, user string) (*domain.Rule, error) {
	rule, err := s.rules.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}

	update.Apply(rule)
	if err := validateRule(rule); err != nil {
		return nil, err
	}
	if err := validateParameters(rule.Parameters); err != nil {
		return nil, err
	}

	rule.ID = id
	rule.UpdatedBy = user
	if err := s.rules.UpdateRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("update safety stock rule %d: %w", id, err)
	}
	return s.rules.GetRule(ctx, id)
}

func (s *SafetyStockService) DeleteRule(ctx context.Context, id int64, user string) error {
	if err := s.rules.DeleteRule(ctx, id, user); err != nil {
		return err
	}
	log.Info().Int64("rule_id", id).Str("user", user).Msg("deleted safety stock rule")
	return nil
}

// SetParameters replaces the stored calculation inputs of a rule.
func (s *SafetyStockService) SetParameters(ctx context.Context, id int64, params domain.CalculationParameters) (*domain.Rule, error) {
	if err := validateParameters(&params); err != nil {
		return nil, err
	}
	if _, err := s.rules.GetRule(ctx, id); err != nil {
		return nil, err
	}
	params.RuleID = id
	if err := s.rules.SaveParameters(ctx, id, params); err != nil {
		return nil, fmt.Errorf("save parameters for rule %d: %w", id, err)
	}
	return s.rules.GetRule(ctx, id)
}

// AddReview records a review entry against an existing rule.
func (s *SafetyStockService) AddReview(ctx context.Context, ruleID int64, review *domain.Review, user string) (*domain.Review, error) {
	if _, err := s.rules.GetRule(ctx, ruleID); err != nil {
		return nil, err
	}
	if review.ReviewType == "" {
		review.ReviewType = domain.ReviewTypePeriodic
	}
	if review.ActionTaken == "" {
		return nil, &safetystock.ParameterError{Field: "action_taken", Missing: true}
	}
	review.RuleID = ruleID
	review.ReviewedBy = user

	id, err := s.rules.CreateReview(ctx, review)
	if err != nil {
		return nil, fmt.Errorf("create review for rule %d: %w", ruleID, err)
	}
	review.ID = id
	return review, nil
}

func (s *SafetyStockService) ListReviews(ctx context.Context, ruleID int64) ([]domain.Review, error) {
	if _, err := s.rules.GetRule(ctx, ruleID); err != nil {
		return nil, err
	}
	return s.rules.ListReviews(ctx, ruleID)
}

func validateRule(rule *domain.Rule) error {
	if rule == nil {
		return &safetystock.ParameterError{Field: "rule", Missing: true}
	}
	scope := safetystock.DemandScope{ProductID: rule.ProductID, EntityID: rule.EntityID}
	if !scope.Valid() {
		return ErrInvalidScope
	}
	if rule.SafetyStockQty < 0 {
		return &safetystock.ParameterError{Field: safetystock.ParamSafetyStockQty, Reason: "must be non-negative"}
	}
	if rule.EffectiveTo != nil && !rule.EffectiveFrom.IsZero() && rule.EffectiveTo.Before(rule.EffectiveFrom) {
		return &safetystock.ParameterError{Field: "effective_to", Reason: "must not be before effective_from"}
	}
	return nil
}

// validateParameters checks that a stored method name is one the engine knows.
func validateParameters(p *domain.CalculationParameters) error {
	if p == nil {
		return nil
	}
	method, err := safetystock.ParseMethod(p.CalculationMethod)
	if err != nil {
		return err
	}
	p.CalculationMethod = string(method)
	return nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
