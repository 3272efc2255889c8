package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hongquyngo/safety-stock/internal/domain"
	"github.com/hongquyngo/safety-stock/internal/repository"
	"github.com/jmoiron/sqlx"
)

type SafetyStockRepository struct {
	db *DB
}

func NewSafetyStockRepository(db *DB) *SafetyStockRepository {
	return &SafetyStockRepository{db: db}
}

var _ repository.SafetyStockRepository = (*SafetyStockRepository)(nil)

func ruleSelect() string {
	return fmt.Sprintf(`
		SELECT
			s.id,
			s.product_id,
			COALESCE(p.pt_code, '') AS pt_code,
			COALESCE(p.name, '') AS product_name,
			s.entity_id,
			COALESCE(e.english_name, '') AS entity_name,
			s.customer_id,
			c.english_name AS customer_name,
			s.safety_stock_qty::float8 AS safety_stock_qty,
			s.min_stock_qty::float8 AS min_stock_qty,
			s.max_stock_qty::float8 AS max_stock_qty,
			s.reorder_point::float8 AS reorder_point,
			s.reorder_qty::float8 AS reorder_qty,
			s.effective_from,
			s.effective_to,
			s.is_active,
			s.priority_level,
			s.business_notes,
			%s AS rule_type,
			%s AS status,
			s.created_by,
			s.created_date,
			s.updated_by,
			s.updated_date
		FROM safety_stock_levels s
		LEFT JOIN products p ON s.product_id = p.id
		LEFT JOIN companies e ON s.entity_id = e.id
		LEFT JOIN companies c ON s.customer_id = c.id
	`, buildRuleTypeCase("s"), buildRuleStatusCase("s"))
}

const parameterColumns = `
	safety_stock_level_id,
	calculation_method,
	lead_time_days,
	safety_days,
	service_level_percent::float8 AS service_level_percent,
	demand_std_deviation,
	avg_daily_demand,
	historical_days,
	formula_used,
	last_calculated_date
`

func (r *SafetyStockRepository) ListRules(ctx context.Context, filter domain.RuleFilter) ([]domain.Rule, error) {
	where, args := buildRuleFilterClause(filter, "s", 1)
	query := ruleSelect() + " WHERE " + where + " ORDER BY s.priority_level, p.pt_code, s.id"

	var rules []domain.Rule
	if err := r.db.SelectContext(ctx, &rules, query, args...); err != nil {
		return nil, fmt.Errorf("error listing safety stock rules: %w", err)
	}
	if len(rules) == 0 {
		return rules, nil
	}

	ids := make([]int64, len(rules))
	for i := range rules {
		ids[i] = rules[i].ID
	}
	params, err := r.parametersFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range rules {
		if p, ok := params[rules[i].ID]; ok {
			rules[i].Parameters = &p
		}
	}

	return rules, nil
}

func (r *SafetyStockRepository) parametersFor(ctx context.Context, ruleIDs []int64) (map[int64]domain.CalculationParameters, error) {
	query, args, err := sqlx.In(
		"SELECT "+parameterColumns+" FROM safety_stock_parameters WHERE safety_stock_level_id IN (?)", ruleIDs)
	if err != nil {
		return nil, fmt.Errorf("error building parameter query: %w", err)
	}

	var rows []domain.CalculationParameters
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("error loading calculation parameters: %w", err)
	}

	out := make(map[int64]domain.CalculationParameters, len(rows))
	for _, p := range rows {
		out[p.RuleID] = p
	}
	return out, nil
}

func (r *SafetyStockRepository) GetRule(ctx context.Context, id int64) (*domain.Rule, error) {
	query := ruleSelect() + " WHERE s.id = $1 AND s.delete_flag = FALSE"

	var rule domain.Rule
	if err := r.db.GetContext(ctx, &rule, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("error getting safety stock rule %d: %w", id, err)
	}

	var params domain.CalculationParameters
	err := r.db.GetContext(ctx, &params,
		"SELECT "+parameterColumns+" FROM safety_stock_parameters WHERE safety_stock_level_id = $1", id)
	switch {
	case err == nil:
		rule.Parameters = &params
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("error getting parameters for rule %d: %w", id, err)
	}

	return &rule, nil
}

// CreateRule inserts the rule and, when present, its parameters in one transaction.
func (r *SafetyStockRepository) CreateRule(ctx context.Context, rule *domain.Rule) (int64, error) {
	var id int64
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO safety_stock_levels (
				product_id, entity_id, customer_id,
				safety_stock_qty, min_stock_qty, max_stock_qty,
				reorder_point, reorder_qty,
				effective_from, effective_to, is_active,
				priority_level, business_notes,
				created_by, updated_by
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
			RETURNING id
		`
		if err := tx.QueryRowxContext(ctx, query,
			rule.ProductID, rule.EntityID, rule.CustomerID,
			rule.SafetyStockQty, rule.MinStockQty, rule.MaxStockQty,
			rule.ReorderPoint, rule.ReorderQty,
			rule.EffectiveFrom, rule.EffectiveTo, rule.IsActive,
			rule.PriorityLevel, rule.BusinessNotes,
			rule.CreatedBy,
		).Scan(&id); err != nil {
			return fmt.Errorf("error inserting safety stock rule: %w", err)
		}

		if rule.Parameters != nil {
			return upsertParameters(ctx, tx, id, *rule.Parameters)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	rule.ID = id
	return id, nil
}

func (r *SafetyStockRepository) UpdateRule(ctx context.Context, rule *domain.Rule) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			UPDATE safety_stock_levels SET
				safety_stock_qty = $2,
				min_stock_qty = $3,
				max_stock_qty = $4,
				reorder_point = $5,
				reorder_qty = $6,
				effective_from = $7,
				effective_to = $8,
				is_active = $9,
				priority_level = $10,
				business_notes = $11,
				updated_by = $12,
				updated_date = NOW()
			WHERE id = $1 AND delete_flag = FALSE
		`
		res, err := tx.ExecContext(ctx, query,
			rule.ID,
			rule.SafetyStockQty, rule.MinStockQty, rule.MaxStockQty,
			rule.ReorderPoint, rule.ReorderQty,
			rule.EffectiveFrom, rule.EffectiveTo, rule.IsActive,
			rule.PriorityLevel, rule.BusinessNotes,
			rule.UpdatedBy,
		)
		if err != nil {
			return fmt.Errorf("error updating safety stock rule %d: %w", rule.ID, err)
		}
		if err := expectRow(res); err != nil {
			return err
		}

		if rule.Parameters != nil {
			return upsertParameters(ctx, tx, rule.ID, *rule.Parameters)
		}
		return nil
	})
}

// DeleteRule soft-deletes a rule.
func (r *SafetyStockRepository) DeleteRule(ctx context.Context, id int64, deletedBy string) error {
	query := `
		UPDATE safety_stock_levels
		SET delete_flag = TRUE,
			updated_by = $2,
			updated_date = NOW()
		WHERE id = $1 AND delete_flag = FALSE
	`
	res, err := r.db.ExecContext(ctx, query, id, deletedBy)
	if err != nil {
		return fmt.Errorf("error deleting safety stock rule %d: %w", id, err)
	}
	return expectRow(res)
}

func (r *SafetyStockRepository) SaveParameters(ctx context.Context, ruleID int64, params domain.CalculationParameters) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		return upsertParameters(ctx, tx, ruleID, params)
	})
}

func upsertParameters(ctx context.Context, tx *sqlx.Tx, ruleID int64, p domain.CalculationParameters) error {
	query := `
		INSERT INTO safety_stock_parameters (
			safety_stock_level_id, calculation_method,
			lead_time_days, safety_days,
			service_level_percent, demand_std_deviation, avg_daily_demand,
			historical_days, formula_used, last_calculated_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, NOW()))
		ON CONFLICT (safety_stock_level_id) DO UPDATE SET
			calculation_method = EXCLUDED.calculation_method,
			lead_time_days = EXCLUDED.lead_time_days,
			safety_days = EXCLUDED.safety_days,
			service_level_percent = EXCLUDED.service_level_percent,
			demand_std_deviation = EXCLUDED.demand_std_deviation,
			avg_daily_demand = EXCLUDED.avg_daily_demand,
			historical_days = EXCLUDED.historical_days,
			formula_used = EXCLUDED.formula_used,
			last_calculated_date = EXCLUDED.last_calculated_date
	`
	if _, err := tx.ExecContext(ctx, query,
		ruleID, p.CalculationMethod,
		p.LeadTimeDays, p.SafetyDays,
		p.ServiceLevelPercent, p.DemandStdDeviation, p.AverageDailyDemand,
		p.HistoricalDays, p.FormulaUsed, p.LastCalculatedAt,
	); err != nil {
		return fmt.Errorf("error saving parameters for rule %d: %w", ruleID, err)
	}
	return nil
}

func (r *SafetyStockRepository) CreateReview(ctx context.Context, review *domain.Review) (int64, error) {
	if review.ChangePercentage == nil {
		review.ChangePercentage = domain.ChangePercent(review.OldSafetyStockQty, review.NewSafetyStockQty)
	}
	query := `
		INSERT INTO safety_stock_reviews (
			safety_stock_level_id, review_date, review_type,
			old_safety_stock_qty, new_safety_stock_qty, change_percentage,
			avg_daily_demand, stockout_incidents, service_level_achieved,
			action_taken, action_reason, review_notes, reviewed_by
		) VALUES ($1, COALESCE($2, CURRENT_DATE), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`
	var date interface{}
	if !review.ReviewDate.IsZero() {
		date = review.ReviewDate
	}

	var id int64
	if err := r.db.QueryRowxContext(ctx, query,
		review.RuleID, date, review.ReviewType,
		review.OldSafetyStockQty, review.NewSafetyStockQty, review.ChangePercentage,
		review.AverageDailyDemand, review.StockoutIncidents, review.ServiceLevelAchieved,
		review.ActionTaken, review.ActionReason, review.ReviewNotes, review.ReviewedBy,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("error creating review for rule %d: %w", review.RuleID, err)
	}

	review.ID = id
	return id, nil
}

func (r *SafetyStockRepository) ListReviews(ctx context.Context, ruleID int64) ([]domain.Review, error) {
	query := `
		SELECT
			id,
			safety_stock_level_id,
			review_date,
			review_type,
			old_safety_stock_qty::float8 AS old_safety_stock_qty,
			new_safety_stock_qty::float8 AS new_safety_stock_qty,
			change_percentage,
			avg_daily_demand,
			stockout_incidents,
			service_level_achieved::float8 AS service_level_achieved,
			action_taken,
			action_reason,
			review_notes,
			reviewed_by,
			created_date
		FROM safety_stock_reviews
		WHERE safety_stock_level_id = $1
		ORDER BY review_date DESC, id DESC
	`

	reviews := make([]domain.Review, 0)
	if err := r.db.SelectContext(ctx, &reviews, query, ruleID); err != nil {
		return nil, fmt.Errorf("error listing reviews for rule %d: %w", ruleID, err)
	}
	return reviews, nil
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
