package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hongquyngo/safety-stock/internal/config"
	"github.com/hongquyngo/safety-stock/internal/repository/postgres"
	"github.com/hongquyngo/safety-stock/pkg/logger"
	"github.com/urfave/cli/v2"
)

type ctxKey string

const dbKey ctxKey = "db"

func newDBURLFlag(required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: required,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func scopeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{Name: "product-id", Usage: "Product to analyze"},
		&cli.Int64Flag{Name: "entity-id", Usage: "Selling entity"},
		&cli.Int64Flag{Name: "customer-id", Usage: "Restrict history to one customer"},
	}
}

// initDB opens a pgx-backed pool when --db-url is set.
func initDB(c *cli.Context) error {
	url := c.String("db-url")
	if url == "" {
		return nil
	}

	db, err := postgres.Open(c.Context, "pgx", url)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	c.Context = context.WithValue(c.Context, dbKey, db)
	return nil
}

func closeDB(c *cli.Context) error {
	if db := dbFrom(c); db != nil {
		return db.Close()
	}
	return nil
}

func dbFrom(c *cli.Context) *postgres.DB {
	db, _ := c.Context.Value(dbKey).(*postgres.DB)
	return db
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "safetystock",
		Usage: "Calculate and maintain safety stock levels",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.SetupConsole(os.Stderr, c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "calculate",
				Usage: "Run one safety stock calculation and print the result as JSON",
				Flags: []cli.Flag{
					newDBURLFlag(false),
					&cli.StringFlag{Name: "method", Usage: "FIXED, DAYS_OF_SUPPLY or LEAD_TIME_BASED", Required: true},
					&cli.StringSliceFlag{Name: "param", Aliases: []string{"p"}, Usage: "Calculation parameter as key=value"},
				},
				Before: initDB,
				After:  closeDB,
				Action: runCalculate,
			},
			{
				Name:  "stats",
				Usage: "Print demand statistics for a product at an entity",
				Flags: append([]cli.Flag{
					newDBURLFlag(true),
					&cli.IntFlag{Name: "days-back", Usage: "Lookback window in days"},
					&cli.BoolFlag{Name: "keep-outliers", Usage: "Disable IQR outlier filtering"},
				}, scopeFlags()...),
				Before: initDB,
				After:  closeDB,
				Action: runStats,
			},
			{
				Name:  "recommend",
				Usage: "Suggest a calculation method for a demand profile",
				Flags: []cli.Flag{
					&cli.Float64Flag{Name: "cv", Usage: "Coefficient of variation in percent", Required: true},
					&cli.IntFlag{Name: "lead-time", Usage: "Lead time in days", Value: 7},
					&cli.IntFlag{Name: "samples", Usage: "Number of daily data points", Required: true},
					&cli.StringFlag{Name: "criticality", Usage: "HIGH, MEDIUM or LOW", Value: "MEDIUM"},
				},
				Action: runRecommend,
			},
			{
				Name:  "recalculate",
				Usage: "Recalculate every active rule from current demand history",
				Flags: []cli.Flag{
					newDBURLFlag(true),
					&cli.Int64Flag{Name: "entity-id", Usage: "Only rules of this entity"},
					&cli.BoolFlag{Name: "upload", Usage: "Upload the CSV report to object storage"},
					&cli.StringFlag{Name: "user", Usage: "Recorded as the reviewer", Value: "scheduler"},
				},
				Before: initDB,
				After:  closeDB,
				Action: runRecalculate,
			},
			{
				Name:  "seed-demand",
				Usage: "Load demand history rows from a CSV file",
				Flags: []cli.Flag{
					newDBURLFlag(true),
					&cli.StringFlag{Name: "file", Usage: "CSV file with a header row", Required: true},
				},
				Before: initDB,
				After:  closeDB,
				Action: runSeedDemand,
			},
		},
	}
}

func main() {
	// Defaults for storage and calculation come from the environment.
	config.Load()

	if err := newApp().Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("safetystock failed")
	}
}
