package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hongquyngo/safety-stock/pkg/logger"
	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"
)

// demandColumns are the demand_history columns a seed file may carry.
var demandColumns = []string{
	"product_id", "entity_id", "customer_id", "etd_date", "quantity",
	"oc_date", "delivered_date", "shipment_status",
}

var requiredDemandColumns = []string{"product_id", "entity_id", "etd_date", "quantity"}

// readDemandCSV returns the known columns present in the header and one
// argument row per record. Empty cells become NULL.
func readDemandCSV(r io.Reader) ([]string, [][]interface{}, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range requiredDemandColumns {
		if _, ok := index[col]; !ok {
			return nil, nil, fmt.Errorf("missing required column %q", col)
		}
	}

	var columns []string
	var positions []int
	for _, col := range demandColumns {
		if idx, ok := index[col]; ok {
			columns = append(columns, col)
			positions = append(positions, idx)
		}
	}

	var rows [][]interface{}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read CSV record: %w", err)
		}

		args := make([]interface{}, len(columns))
		for i, idx := range positions {
			if idx >= len(record) {
				return nil, nil, fmt.Errorf("line %d: column %q out of bounds", line, columns[i])
			}
			if v := strings.TrimSpace(record[idx]); v != "" {
				args[i] = v
			}
		}
		rows = append(rows, args)
	}

	return columns, rows, nil
}

func buildDemandInsert(columns []string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO demand_history (%s) VALUES (%s)",
		strings.Join(columns, ", "), strings.Join(placeholders, ", "))
}

func runSeedDemand(c *cli.Context) error {
	db := dbFrom(c)
	if db == nil {
		return fmt.Errorf("database connection not found in context")
	}

	path := c.String("file")
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	columns, rows, err := readDemandCSV(file)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	query := buildDemandInsert(columns)
	err = db.WithTx(c.Context, func(tx *sqlx.Tx) error {
		return insertRows(c.Context, tx, query, rows)
	})
	if err != nil {
		return err
	}

	logger.Log.Info().Str("file", path).Int("rows", len(rows)).Msg("seeded demand history")
	return nil
}

func insertRows(ctx context.Context, tx *sqlx.Tx, query string, rows [][]interface{}) error {
	for i, args := range rows {
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert record %d: %w", i+1, err)
		}
	}
	return nil
}
