package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hongquyngo/safety-stock/internal/domain"
	"github.com/hongquyngo/safety-stock/internal/safetystock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStorage struct {
	objects map[string][]byte
	err     error
}

func (m *memoryStorage) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	for k, v := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, ObjectInfo{Key: k, Size: int64(len(v))})
		}
	}
	return out, nil
}

func (m *memoryStorage) UploadObject(ctx context.Context, key string, data []byte) error {
	if m.err != nil {
		return m.err
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = data
	return nil
}

func testRun() *domain.RecalculationRun {
	customer := int64(5)
	rop := 39.78
	return &domain.RecalculationRun{
		StartedAt: time.Date(2024, 3, 31, 8, 15, 0, 0, time.UTC),
		Requested: 2,
		Succeeded: 1,
		Failed:    1,
		Outcomes: []domain.RecalculationOutcome{
			{
				RuleID: 1, ProductID: 11, EntityID: 7, CustomerID: &customer,
				Method: safetystock.MethodLeadTimeBased, OldQuantity: 10, NewQuantity: 15.28,
				Reorder: &rop, Formula: "SS = 1.65 × √7 × 3.50",
			},
			{
				RuleID: 2, ProductID: 12, EntityID: 7,
				Method: safetystock.MethodDaysOfSupply, OldQuantity: 4,
				Error: "safety_days must be a positive integer",
			},
		},
	}
}

func TestRenderRecalculationCSV(t *testing.T) {
	data, err := RenderRecalculationCSV(testRun())
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, reportHeader, records[0])
	assert.Equal(t, []string{"1", "11", "7", "5", "LEAD_TIME_BASED", "10.00", "15.28", "39.78", "SS = 1.65 × √7 × 3.50", ""}, records[1])
	assert.Equal(t, []string{"2", "12", "7", "", "DAYS_OF_SUPPLY", "4.00", "0.00", "", "", "safety_days must be a positive integer"}, records[2])
}

func TestReportWriter_Write(t *testing.T) {
	store := &memoryStorage{}
	w := NewReportWriter(store, "reports")

	key, err := w.Write(context.Background(), testRun())
	require.NoError(t, err)

	assert.Equal(t, "reports/recalc/20240331T081500Z.csv", key)
	require.Contains(t, store.objects, key)
	assert.True(t, strings.HasPrefix(string(store.objects[key]), "rule_id,product_id"))

	later := testRun()
	later.StartedAt = later.StartedAt.Add(24 * time.Hour)
	_, err = w.Write(context.Background(), later)
	require.NoError(t, err)
	store.objects["reports/other.txt"] = []byte("x")

	listed, err := w.List(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "reports/recalc/20240401T081500Z.csv", listed[0].Key)
	assert.Equal(t, key, listed[1].Key)
}

func TestReportWriter_UploadError(t *testing.T) {
	w := NewReportWriter(&memoryStorage{err: errors.New("bucket gone")}, "")

	_, err := w.Write(context.Background(), testRun())
	assert.EqualError(t, err, "bucket gone")
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		in         string
		useSSL     bool
		wantHost   string
		wantSecure bool
	}{
		{"https://s3.example.com/", false, "s3.example.com", true},
		{"http://minio:9000", true, "minio:9000", false},
		{"minio:9000", true, "minio:9000", true},
		{"//minio:9000", false, "minio:9000", false},
	}
	for _, tt := range tests {
		host, secure := normalizeEndpoint(tt.in, tt.useSSL)
		assert.Equal(t, tt.wantHost, host, tt.in)
		assert.Equal(t, tt.wantSecure, secure, tt.in)
	}
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/csv", contentType("a/b.CSV"))
	assert.Equal(t, "application/json", contentType("x.json"))
	assert.Equal(t, "application/octet-stream", contentType("blob"))
}
