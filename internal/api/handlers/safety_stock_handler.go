package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hongquyngo/safety-stock/internal/repository"
	"github.com/hongquyngo/safety-stock/internal/safetystock"
	"github.com/hongquyngo/safety-stock/internal/service"
	"github.com/rs/zerolog/log"
)

type SafetyStockHandler struct {
	service *service.SafetyStockService
}

func NewSafetyStockHandler(service *service.SafetyStockService) *SafetyStockHandler {
	return &SafetyStockHandler{service: service}
}

type calculateRequest struct {
	Method string             `json:"method"`
	Params safetystock.Params `json:"params"`
}

// Calculate runs one calculation. Error results are returned with 422.
func (h *SafetyStockHandler) Calculate(c *gin.Context) {
	var req calculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	result := h.service.Calculate(c.Request.Context(), req.Method, req.Params)
	if !result.OK() {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetZScore returns the table entry for service_level, or the whole table
// when no level is given.
func (h *SafetyStockHandler) GetZScore(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("service_level"))
	if raw == "" {
		c.JSON(http.StatusOK, gin.H{"table": safetystock.ZScoreTable()})
		return
	}

	level, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid service_level", "details": err.Error()})
		return
	}
	if level < safetystock.MinServiceLevel || level > safetystock.MaxServiceLevel {
		c.JSON(http.StatusBadRequest, gin.H{"error": "service_level must be between 50 and 99.9"})
		return
	}

	entry, exact := safetystock.LookupZScore(level)
	c.JSON(http.StatusOK, gin.H{
		"service_level": level,
		"matched_level": entry.ServiceLevel,
		"z_score":       entry.ZScore,
		"exact":         exact,
	})
}

func (h *SafetyStockHandler) GetDemand(c *gin.Context) {
	scope, err := parseScope(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scope", "details": err.Error()})
		return
	}
	daysBack, err := queryDaysBack(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid days_back", "details": err.Error()})
		return
	}

	var exclude *bool
	if raw := strings.TrimSpace(c.Query("exclude_outliers")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exclude_outliers", "details": err.Error()})
			return
		}
		exclude = &v
	}

	analysis, err := h.service.DemandStatistics(c.Request.Context(), scope, daysBack, exclude)
	if err != nil {
		respondError(c, "failed to analyze demand", err)
		return
	}

	c.JSON(http.StatusOK, analysis)
}

func (h *SafetyStockHandler) GetRecommendation(c *gin.Context) {
	scope, err := parseScope(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scope", "details": err.Error()})
		return
	}
	leadTime, err := queryInt(c, "lead_time_days")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lead_time_days", "details": err.Error()})
		return
	}
	daysBack, err := queryDaysBack(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid days_back", "details": err.Error()})
		return
	}

	rec, err := h.service.Recommend(c.Request.Context(), scope, c.Query("criticality"), leadTime, daysBack)
	if err != nil {
		respondError(c, "failed to recommend method", err)
		return
	}

	c.JSON(http.StatusOK, rec)
}

func (h *SafetyStockHandler) GetLeadTime(c *gin.Context) {
	scope, err := parseScope(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scope", "details": err.Error()})
		return
	}

	est, err := h.service.LeadTimeEstimate(c.Request.Context(), scope)
	if err != nil {
		respondError(c, "failed to estimate lead time", err)
		return
	}

	c.JSON(http.StatusOK, est)
}

func parseScope(c *gin.Context) (safetystock.DemandScope, error) {
	var scope safetystock.DemandScope

	product, err := strconv.ParseInt(strings.TrimSpace(c.Query("product_id")), 10, 64)
	if err != nil {
		return scope, errors.New("product_id must be an integer")
	}
	entity, err := strconv.ParseInt(strings.TrimSpace(c.Query("entity_id")), 10, 64)
	if err != nil {
		return scope, errors.New("entity_id must be an integer")
	}
	scope.ProductID, scope.EntityID = product, entity

	if raw := strings.TrimSpace(c.Query("customer_id")); raw != "" {
		customer, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return scope, errors.New("customer_id must be an integer")
		}
		scope.CustomerID = &customer
	}

	if !scope.Valid() {
		return scope, service.ErrInvalidScope
	}
	return scope, nil
}

// queryDaysBack reads days_back, bounded by the maximum lookback.
func queryDaysBack(c *gin.Context) (int, error) {
	days, err := queryInt(c, "days_back")
	if err != nil {
		return 0, err
	}
	if err := safetystock.ValidateLookback("days_back", days); err != nil {
		return 0, err
	}
	return days, nil
}

// queryInt returns 0 when the parameter is absent.
func queryInt(c *gin.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidScope),
		errors.Is(err, safetystock.ErrMissingParameter),
		errors.Is(err, safetystock.ErrInvalidParameter),
		errors.Is(err, safetystock.ErrUnknownMethod):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrReportsDisabled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg(message)
	}
	c.JSON(status, gin.H{"error": message, "details": err.Error()})
}
