package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hongquyngo/safety-stock/internal/cache"
	"github.com/hongquyngo/safety-stock/internal/config"
	"github.com/hongquyngo/safety-stock/internal/domain"
	"github.com/hongquyngo/safety-stock/internal/repository/postgres"
	"github.com/hongquyngo/safety-stock/internal/safetystock"
	"github.com/hongquyngo/safety-stock/internal/service"
	"github.com/hongquyngo/safety-stock/internal/storage"
	"github.com/hongquyngo/safety-stock/pkg/logger"
	"github.com/urfave/cli/v2"
)

// parseParams turns key=value pairs into engine parameters. Numeric values are
// passed as numbers and "null" as an absent value.
func parseParams(pairs []string) (safetystock.Params, error) {
	params := safetystock.Params{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q, expected key=value", pair)
		}
		value = strings.TrimSpace(value)

		switch {
		case value == "" || strings.EqualFold(value, "null"):
			params[key] = nil
		default:
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				params[key] = f
			} else {
				params[key] = value
			}
		}
	}
	return params, nil
}

// newService wires the service onto an open pool. Without a pool the service
// computes from explicit inputs only.
func newService(db *postgres.DB, cfg *config.Config, opts ...service.Option) *service.SafetyStockService {
	if db == nil {
		return service.NewSafetyStockService(nil, nil, cache.NewNoopDemandCache(), cfg.Calculation, opts...)
	}
	return service.NewSafetyStockService(
		postgres.NewDemandRepository(db.DB),
		postgres.NewSafetyStockRepository(db),
		cache.NewNoopDemandCache(),
		cfg.Calculation,
		opts...,
	)
}

func runCalculate(c *cli.Context) error {
	params, err := parseParams(c.StringSlice("param"))
	if err != nil {
		return err
	}

	svc := newService(dbFrom(c), config.Load())
	result := svc.Calculate(c.Context, c.String("method"), params)
	if err := printJSON(c.App.Writer, result); err != nil {
		return err
	}
	if !result.OK() {
		return cli.Exit(result.Error, 1)
	}
	return nil
}

func scopeFrom(c *cli.Context) safetystock.DemandScope {
	scope := safetystock.DemandScope{
		ProductID: c.Int64("product-id"),
		EntityID:  c.Int64("entity-id"),
	}
	if c.IsSet("customer-id") {
		customer := c.Int64("customer-id")
		scope.CustomerID = &customer
	}
	return scope
}

func runStats(c *cli.Context) error {
	svc := newService(dbFrom(c), config.Load())

	var exclude *bool
	if c.Bool("keep-outliers") {
		keep := false
		exclude = &keep
	}

	analysis, err := svc.DemandStatistics(c.Context, scopeFrom(c), c.Int("days-back"), exclude)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, analysis.Summary)
	return nil
}

func runRecommend(c *cli.Context) error {
	method := safetystock.RecommendMethod(
		c.Float64("cv"),
		c.Int("lead-time"),
		c.Int("samples"),
		safetystock.ParseCriticality(c.String("criticality")),
	)
	fmt.Fprintln(c.App.Writer, method)
	return nil
}

func runRecalculate(c *cli.Context) error {
	cfg := config.Load()

	var opts []service.Option
	if c.Bool("upload") {
		ctx, cancel := context.WithTimeout(c.Context, 10*time.Second)
		store, err := storage.NewMinioClient(ctx, cfg.Storage)
		cancel()
		if err != nil {
			return fmt.Errorf("object storage: %w", err)
		}
		opts = append(opts, service.WithReportWriter(storage.NewReportWriter(store, cfg.Storage.Prefix)))
	}

	svc := newService(dbFrom(c), cfg, opts...)

	filter := domain.RuleFilter{Status: "active"}
	if c.IsSet("entity-id") {
		entity := c.Int64("entity-id")
		filter.EntityID = &entity
	}

	run, err := svc.RecalculateAll(c.Context, filter, c.String("user"))
	if err != nil {
		return err
	}

	if c.Bool("upload") {
		key, err := svc.UploadReport(c.Context, run)
		if err != nil {
			return err
		}
		logger.Log.Info().Str("key", key).Msg("report uploaded")
	}

	if err := printJSON(c.App.Writer, run); err != nil {
		return err
	}
	if run.Failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d rules failed", run.Failed, run.Requested), 1)
	}
	return nil
}
