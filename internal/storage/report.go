package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path"
	"sort"
	"strconv"
	"time"

	"github.com/hongquyngo/safety-stock/internal/domain"
	"github.com/rs/zerolog/log"
)

var reportHeader = []string{
	"rule_id", "product_id", "entity_id", "customer_id", "method",
	"old_safety_stock_qty", "new_safety_stock_qty", "reorder_point",
	"formula_used", "error",
}

// ReportWriter uploads recalculation runs as CSV files.
type ReportWriter struct {
	store  ObjectStorage
	prefix string
}

func NewReportWriter(store ObjectStorage, prefix string) *ReportWriter {
	return &ReportWriter{store: store, prefix: prefix}
}

// ReportKey returns the object key for a run started at startedAt.
func (w *ReportWriter) ReportKey(startedAt time.Time) string {
	return path.Join(w.prefix, "recalc", startedAt.UTC().Format("20060102T150405Z")+".csv")
}

// Write renders run and uploads it. It returns the object key.
func (w *ReportWriter) Write(ctx context.Context, run *domain.RecalculationRun) (string, error) {
	data, err := RenderRecalculationCSV(run)
	if err != nil {
		return "", err
	}

	key := w.ReportKey(run.StartedAt)
	if err := w.store.UploadObject(ctx, key, data); err != nil {
		return "", err
	}

	log.Info().Str("key", key).Int("rows", len(run.Outcomes)).Msg("uploaded recalculation report")
	return key, nil
}

// List returns the stored recalculation reports, newest first.
func (w *ReportWriter) List(ctx context.Context) ([]ObjectInfo, error) {
	objects, err := w.store.ListObjects(ctx, path.Join(w.prefix, "recalc")+"/")
	if err != nil {
		return nil, err
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key > objects[j].Key })
	return objects, nil
}

// RenderRecalculationCSV writes one row per outcome after a header row.
func RenderRecalculationCSV(run *domain.RecalculationRun) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(reportHeader); err != nil {
		return nil, fmt.Errorf("write report header: %w", err)
	}
	for _, o := range run.Outcomes {
		record := []string{
			strconv.FormatInt(o.RuleID, 10),
			strconv.FormatInt(o.ProductID, 10),
			strconv.FormatInt(o.EntityID, 10),
			formatOptionalInt(o.CustomerID),
			string(o.Method),
			formatQty(o.OldQuantity),
			formatQty(o.NewQuantity),
			formatOptionalQty(o.Reorder),
			o.Formula,
			o.Error,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write report row for rule %d: %w", o.RuleID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush report: %w", err)
	}
	return buf.Bytes(), nil
}

func formatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatOptionalQty(v *float64) string {
	if v == nil {
		return ""
	}
	return formatQty(*v)
}

func formatOptionalInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
