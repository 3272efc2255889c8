package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/hongquyngo/safety-stock/internal/domain"
	"github.com/hongquyngo/safety-stock/internal/repository"
	"github.com/hongquyngo/safety-stock/internal/safetystock"
	"github.com/jmoiron/sqlx"
)

const maxLeadTimeDays = 365

type demandRepository struct {
	db *sqlx.DB
}

func NewDemandRepository(db *sqlx.DB) repository.DemandRepository {
	return &demandRepository{db: db}
}

// FetchDemandSamples sums positive demand per calendar day over the trailing
// window. Days without demand are omitted.
func (r *demandRepository) FetchDemandSamples(ctx context.Context, scope safetystock.DemandScope, daysBack int) ([]safetystock.DemandSample, error) {
	query := `
		SELECT
			etd_date AS demand_date,
			SUM(quantity)::float8 AS daily_quantity
		FROM demand_history
		WHERE product_id = $1
			AND entity_id = $2
			AND delete_flag = FALSE
			AND quantity > 0
			AND etd_date >= CURRENT_DATE - $3::int
	`
	args := []interface{}{scope.ProductID, scope.EntityID, daysBack}
	if scope.CustomerID != nil {
		query += " AND customer_id = $4"
		args = append(args, *scope.CustomerID)
	}
	query += `
		GROUP BY etd_date
		ORDER BY etd_date
	`

	var samples []safetystock.DemandSample
	if err := r.db.SelectContext(ctx, &samples, query, args...); err != nil {
		return nil, fmt.Errorf("error fetching demand samples: %w", err)
	}

	// DATE columns come back as UTC midnight; keep the calendar day in local time.
	for i := range samples {
		y, m, d := samples[i].Date.Date()
		samples[i].Date = time.Date(y, m, d, 0, 0, 0, 0, time.Local)
	}

	return samples, nil
}

// EstimateLeadTime aggregates order-to-delivery days of delivered lines.
// SampleSize is zero when nothing qualifies.
func (r *demandRepository) EstimateLeadTime(ctx context.Context, scope safetystock.DemandScope) (domain.LeadTimeEstimate, error) {
	query := `
		SELECT
			COALESCE(AVG(delivered_date - oc_date), 0)::float8 AS avg_days,
			COALESCE(MIN(delivered_date - oc_date), 0) AS min_days,
			COALESCE(MAX(delivered_date - oc_date), 0) AS max_days,
			COUNT(*) AS sample_size
		FROM demand_history
		WHERE product_id = $1
			AND entity_id = $2
			AND delete_flag = FALSE
			AND shipment_status = 'DELIVERED'
			AND delivered_date IS NOT NULL
			AND oc_date IS NOT NULL
			AND delivered_date - oc_date > 0
			AND delivered_date - oc_date < $3
	`
	args := []interface{}{scope.ProductID, scope.EntityID, maxLeadTimeDays}
	if scope.CustomerID != nil {
		query += " AND customer_id = $4"
		args = append(args, *scope.CustomerID)
	}

	var est domain.LeadTimeEstimate
	if err := r.db.GetContext(ctx, &est, query, args...); err != nil {
		return domain.LeadTimeEstimate{}, fmt.Errorf("error estimating lead time: %w", err)
	}

	return est, nil
}
