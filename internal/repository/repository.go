package repository

import (
	"context"
	"errors"

	"github.com/hongquyngo/safety-stock/internal/domain"
	"github.com/hongquyngo/safety-stock/internal/safetystock"
)

// ErrNotFound is returned when a rule does not exist or was deleted.
var ErrNotFound = errors.New("record not found")

// DemandRepository reads delivered demand history.
type DemandRepository interface {
	FetchDemandSamples(ctx context.Context, scope safetystock.DemandScope, daysBack int) ([]safetystock.DemandSample, error)
	EstimateLeadTime(ctx context.Context, scope safetystock.DemandScope) (domain.LeadTimeEstimate, error)
}

// SafetyStockRepository stores rules, their calculation parameters and review history.
type SafetyStockRepository interface {
	ListRules(ctx context.Context, filter domain.RuleFilter) ([]domain.Rule, error)
	GetRule(ctx context.Context, id int64) (*domain.Rule, error)
	CreateRule(ctx context.Context, rule *domain.Rule) (int64, error)
	UpdateRule(ctx context.Context, rule *domain.Rule) error
	DeleteRule(ctx context.Context, id int64, deletedBy string) error
	SaveParameters(ctx context.Context, ruleID int64, params domain.CalculationParameters) error
	CreateReview(ctx context.Context, review *domain.Review) (int64, error)
	ListReviews(ctx context.Context, ruleID int64) ([]domain.Review, error)
}
