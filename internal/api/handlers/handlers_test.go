package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hongquyngo/safety-stock/internal/config"
	"github.com/hongquyngo/safety-stock/internal/domain"
	"github.com/hongquyngo/safety-stock/internal/repository"
	"github.com/hongquyngo/safety-stock/internal/safetystock"
	"github.com/hongquyngo/safety-stock/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 31, 15, 30, 0, 0, time.UTC)

type stubDemand struct {
	samples []safetystock.DemandSample
	err     error
}

func (s *stubDemand) FetchDemandSamples(ctx context.Context, scope safetystock.DemandScope, daysBack int) ([]safetystock.DemandSample, error) {
	return s.samples, s.err
}

func (s *stubDemand) EstimateLeadTime(ctx context.Context, scope safetystock.DemandScope) (domain.LeadTimeEstimate, error) {
	return domain.LeadTimeEstimate{}, nil
}

type stubRules struct {
	mu      sync.Mutex
	rules   map[int64]domain.Rule
	reviews []domain.Review
}

func (s *stubRules) ListRules(ctx context.Context, filter domain.RuleFilter) ([]domain.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Rule
	for _, r := range s.rules {
		if filter.EntityID == nil || *filter.EntityID == r.EntityID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubRules) GetRule(ctx context.Context, id int64) (*domain.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rules[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (s *stubRules) CreateRule(ctx context.Context, rule *domain.Rule) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := int64(len(s.rules) + 1)
	r := *rule
	r.ID = id
	s.rules[id] = r
	return id, nil
}

func (s *stubRules) UpdateRule(ctx context.Context, rule *domain.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[rule.ID] = *rule
	return nil
}

func (s *stubRules) DeleteRule(ctx context.Context, id int64, deletedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.rules, id)
	return nil
}

func (s *stubRules) SaveParameters(ctx context.Context, ruleID int64, params domain.CalculationParameters) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.rules[ruleID]
	r.Parameters = &params
	s.rules[ruleID] = r
	return nil
}

func (s *stubRules) CreateReview(ctx context.Context, review *domain.Review) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviews = append(s.reviews, *review)
	return int64(len(s.reviews)), nil
}

func (s *stubRules) ListReviews(ctx context.Context, ruleID int64) ([]domain.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Review
	for _, r := range s.reviews {
		if r.RuleID == ruleID {
			out = append(out, r)
		}
	}
	return out, nil
}

func constantDemand(qty float64) []safetystock.DemandSample {
	samples := make([]safetystock.DemandSample, 0, 91)
	for i := 0; i <= 90; i++ {
		samples = append(samples, safetystock.DemandSample{Date: testNow.AddDate(0, 0, -i), Quantity: qty})
	}
	return samples
}

func setupRouter(demand *stubDemand, rules *stubRules) *gin.Engine {
	gin.SetMode(gin.TestMode)

	svc := service.NewSafetyStockService(demand, rules, nil, config.CalculationConfig{
		HistoricalDays:      90,
		ExcludeOutliers:     true,
		DefaultLeadTimeDays: 7,
		RecalcConcurrency:   2,
	}, service.WithClock(func() time.Time { return testNow }))

	calc := NewSafetyStockHandler(svc)
	ruleHandler := NewRuleHandler(svc)

	r := gin.New()
	g := r.Group("/safety-stock")
	g.POST("/calculate", calc.Calculate)
	g.GET("/z-score", calc.GetZScore)
	g.GET("/demand", calc.GetDemand)
	g.GET("/recommendation", calc.GetRecommendation)
	g.GET("/lead-time", calc.GetLeadTime)
	g.GET("/reports", ruleHandler.ListReports)
	g.GET("/rules", ruleHandler.ListRules)
	g.POST("/rules", ruleHandler.CreateRule)
	g.POST("/rules/recalculate", ruleHandler.RecalculateAll)
	g.GET("/rules/:id", ruleHandler.GetRule)
	g.PUT("/rules/:id", ruleHandler.UpdateRule)
	g.DELETE("/rules/:id", ruleHandler.DeleteRule)
	g.PUT("/rules/:id/parameters", ruleHandler.SetParameters)
	g.POST("/rules/:id/recalculate", ruleHandler.Recalculate)
	g.GET("/rules/:id/reviews", ruleHandler.ListReviews)
	g.POST("/rules/:id/reviews", ruleHandler.AddReview)
	return r
}

func doRequest(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User", "tester")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func newStubRules(rules ...domain.Rule) *stubRules {
	s := &stubRules{rules: map[int64]domain.Rule{}}
	for _, r := range rules {
		s.rules[r.ID] = r
	}
	return s
}

func dosRule(id int64) domain.Rule {
	days := 14
	return domain.Rule{
		ID: id, ProductID: 11, EntityID: 7, SafetyStockQty: 50,
		EffectiveFrom: testNow.AddDate(0, -1, 0), IsActive: true,
		Parameters: &domain.CalculationParameters{
			RuleID: id, CalculationMethod: "DAYS_OF_SUPPLY", SafetyDays: &days,
		},
	}
}

func TestCalculate(t *testing.T) {
	r := setupRouter(&stubDemand{}, newStubRules())

	w := doRequest(t, r, http.MethodPost, "/safety-stock/calculate", map[string]any{
		"method": "LEAD_TIME_BASED",
		"params": map[string]any{
			"lead_time_days": 9, "service_level_percent": 95,
			"demand_std_deviation": 2, "avg_daily_demand": 3,
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "LEAD_TIME_BASED", body["method"])
	assert.Equal(t, 9.9, body["safety_stock_qty"])
	assert.Equal(t, 36.9, body["reorder_point"])
	assert.Equal(t, "SS = 1.65 × √9 × 2.00", body["formula_used"])
}

func TestCalculate_ErrorResult(t *testing.T) {
	r := setupRouter(&stubDemand{}, newStubRules())

	w := doRequest(t, r, http.MethodPost, "/safety-stock/calculate", map[string]any{
		"method": "DAYS_OF_SUPPLY",
		"params": map[string]any{"safety_days": -1},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "safety_days must be a positive integer", decode(t, w)["error"])

	w = doRequest(t, r, http.MethodPost, "/safety-stock/calculate", map[string]any{"method": "BOGUS"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decode(t, w)["error"], "unknown calculation method")
}

func TestCalculate_BadBody(t *testing.T) {
	r := setupRouter(&stubDemand{}, newStubRules())

	req := httptest.NewRequest(http.MethodPost, "/safety-stock/calculate", bytes.NewBufferString("{"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid request body", decode(t, w)["error"])
}

func TestGetZScore(t *testing.T) {
	r := setupRouter(&stubDemand{}, newStubRules())

	w := doRequest(t, r, http.MethodGet, "/safety-stock/z-score?service_level=95.3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, 95.0, body["matched_level"])
	assert.Equal(t, 1.65, body["z_score"])
	assert.Equal(t, false, body["exact"])

	w = doRequest(t, r, http.MethodGet, "/safety-stock/z-score", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["table"], 12)

	w = doRequest(t, r, http.MethodGet, "/safety-stock/z-score?service_level=120", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, r, http.MethodGet, "/safety-stock/z-score?service_level=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetDemand(t *testing.T) {
	r := setupRouter(&stubDemand{samples: constantDemand(10)}, newStubRules())

	w := doRequest(t, r, http.MethodGet, "/safety-stock/demand?product_id=11&entity_id=7&days_back=90&exclude_outliers=false", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	stats := body["statistics"].(map[string]any)
	assert.Equal(t, 10.0, stats["avg_daily_demand"])
	assert.Equal(t, 91.0, stats["data_points"])
	assert.Equal(t, "DAYS_OF_SUPPLY", body["suggested_method"])
}

func TestGetDemand_BadRequests(t *testing.T) {
	r := setupRouter(&stubDemand{}, newStubRules())

	for _, path := range []string{
		"/safety-stock/demand?entity_id=7",
		"/safety-stock/demand?product_id=0&entity_id=7",
		"/safety-stock/demand?product_id=11&entity_id=7&customer_id=x",
		"/safety-stock/demand?product_id=11&entity_id=7&days_back=many",
		"/safety-stock/demand?product_id=11&entity_id=7&exclude_outliers=maybe",
		"/safety-stock/demand?product_id=11&entity_id=7&days_back=3651",
		"/safety-stock/demand?product_id=11&entity_id=7&days_back=10000000000000",
		"/safety-stock/recommendation?product_id=11&entity_id=7&days_back=99999",
	} {
		w := doRequest(t, r, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestGetDemand_RepositoryError(t *testing.T) {
	r := setupRouter(&stubDemand{err: errors.New("db down")}, newStubRules())

	w := doRequest(t, r, http.MethodGet, "/safety-stock/demand?product_id=11&entity_id=7", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "db down", decode(t, w)["details"])
}

func TestGetRecommendationAndLeadTime(t *testing.T) {
	r := setupRouter(&stubDemand{samples: constantDemand(10)}, newStubRules())

	w := doRequest(t, r, http.MethodGet, "/safety-stock/recommendation?product_id=11&entity_id=7&criticality=low&lead_time_days=5", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "DAYS_OF_SUPPLY", body["method"])
	assert.Equal(t, "LOW", body["criticality"])

	w = doRequest(t, r, http.MethodGet, "/safety-stock/lead-time?product_id=11&entity_id=7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, 7.0, body["avg_lead_time_days"])
	assert.Equal(t, false, body["from_history"])
}

func TestRuleCRUD(t *testing.T) {
	rules := newStubRules()
	r := setupRouter(&stubDemand{}, rules)

	w := doRequest(t, r, http.MethodPost, "/safety-stock/rules", map[string]any{
		"product_id": 11, "entity_id": 7, "safety_stock_qty": 25,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, "tester", created["created_by"])
	assert.Equal(t, 100.0, created["priority_level"])

	w = doRequest(t, r, http.MethodGet, "/safety-stock/rules?entity_id=7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, decode(t, w)["total"])

	w = doRequest(t, r, http.MethodPut, "/safety-stock/rules/1", map[string]any{
		"safety_stock_qty": 30,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode(t, w)
	assert.Equal(t, 30.0, updated["safety_stock_qty"])
	assert.Equal(t, 100.0, updated["priority_level"])
	assert.Equal(t, true, updated["is_active"])
	assert.Equal(t, created["effective_from"], updated["effective_from"])

	w = doRequest(t, r, http.MethodPut, "/safety-stock/rules/1", map[string]any{
		"is_active": false,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, false, decode(t, w)["is_active"])

	w = doRequest(t, r, http.MethodPut, "/safety-stock/rules/1/parameters", map[string]any{
		"calculation_method": "fixed",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	params := decode(t, w)["parameters"].(map[string]any)
	assert.Equal(t, "FIXED", params["calculation_method"])

	w = doRequest(t, r, http.MethodDelete, "/safety-stock/rules/1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(t, r, http.MethodGet, "/safety-stock/rules/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, r, http.MethodGet, "/safety-stock/rules/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateRule_Invalid(t *testing.T) {
	r := setupRouter(&stubDemand{}, newStubRules())

	w := doRequest(t, r, http.MethodPost, "/safety-stock/rules", map[string]any{"product_id": 11})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, r, http.MethodPut, "/safety-stock/rules/9/parameters", map[string]any{"calculation_method": "NOPE"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecalculateRule(t *testing.T) {
	rules := newStubRules(dosRule(1))
	r := setupRouter(&stubDemand{samples: constantDemand(10)}, rules)

	w := doRequest(t, r, http.MethodPost, "/safety-stock/rules/1/recalculate", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, 140.0, body["new_safety_stock_qty"])
	assert.Equal(t, 50.0, body["old_safety_stock_qty"])

	w = doRequest(t, r, http.MethodGet, "/safety-stock/rules/1/reviews", nil)
	require.Equal(t, http.StatusOK, w.Code)
	reviews := decode(t, w)["reviews"].([]any)
	require.Len(t, reviews, 1)
	assert.Equal(t, "RECALCULATED", reviews[0].(map[string]any)["action_taken"])
	assert.Equal(t, "tester", reviews[0].(map[string]any)["reviewed_by"])

	w = doRequest(t, r, http.MethodPost, "/safety-stock/rules/2/recalculate", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecalculateRule_InvalidStoredParameters(t *testing.T) {
	rule := dosRule(1)
	zero := 0
	rule.Parameters.SafetyDays = &zero
	r := setupRouter(&stubDemand{}, newStubRules(rule))

	w := doRequest(t, r, http.MethodPost, "/safety-stock/rules/1/recalculate", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "safety_days must be a positive integer", body["details"])
	assert.NotNil(t, body["outcome"])
}

func TestRecalculateAll(t *testing.T) {
	r := setupRouter(&stubDemand{samples: constantDemand(10)}, newStubRules(dosRule(1), dosRule(2)))

	w := doRequest(t, r, http.MethodPost, "/safety-stock/rules/recalculate", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	run := decode(t, w)["run"].(map[string]any)
	assert.Equal(t, 2.0, run["requested"])
	assert.Equal(t, 2.0, run["succeeded"])

	w = doRequest(t, r, http.MethodPost, "/safety-stock/rules/recalculate?upload=true", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = doRequest(t, r, http.MethodGet, "/safety-stock/reports", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReviews(t *testing.T) {
	r := setupRouter(&stubDemand{}, newStubRules(dosRule(1)))

	w := doRequest(t, r, http.MethodPost, "/safety-stock/rules/1/reviews", map[string]any{
		"action_taken": "NO_CHANGE", "review_notes": "stable",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "PERIODIC", decode(t, w)["review_type"])

	w = doRequest(t, r, http.MethodPost, "/safety-stock/rules/1/reviews", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, r, http.MethodGet, "/safety-stock/rules/5/reviews", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(repository.ErrNotFound))
	assert.Equal(t, http.StatusBadRequest, statusFor(service.ErrInvalidScope))
	assert.Equal(t, http.StatusBadRequest, statusFor(safetystock.ErrUnknownMethod))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(service.ErrReportsDisabled))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}
