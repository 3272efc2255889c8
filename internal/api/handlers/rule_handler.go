package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hongquyngo/safety-stock/internal/domain"
	"github.com/hongquyngo/safety-stock/internal/service"
	"github.com/hongquyngo/safety-stock/internal/storage"
	"github.com/rs/zerolog/log"
)

const (
	userHeader  = "X-User"
	defaultUser = "system"
)

type RuleHandler struct {
	service *service.SafetyStockService
}

func NewRuleHandler(service *service.SafetyStockService) *RuleHandler {
	return &RuleHandler{service: service}
}

func (h *RuleHandler) parseFilter(c *gin.Context) domain.RuleFilter {
	filter := domain.RuleFilter{
		ProductSearch: strings.TrimSpace(c.Query("search")),
		Status:        c.Query("status"),
	}

	parseInt64 := func(param string) *int64 {
		value := strings.TrimSpace(c.Query(param))
		if value == "" {
			return nil
		}
		if id, err := strconv.ParseInt(value, 10, 64); err == nil && id > 0 {
			return &id
		}
		return nil
	}

	filter.EntityID = parseInt64("entity_id")
	filter.CustomerID = parseInt64("customer_id")
	filter.GeneralOnly, _ = strconv.ParseBool(c.DefaultQuery("general_only", "false"))
	filter.IncludeInactive, _ = strconv.ParseBool(c.DefaultQuery("include_inactive", "false"))

	return filter
}

func currentUser(c *gin.Context) string {
	if user := strings.TrimSpace(c.GetHeader(userHeader)); user != "" {
		return user
	}
	return defaultUser
}

func ruleID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return 0, false
	}
	return id, true
}

func (h *RuleHandler) ListRules(c *gin.Context) {
	rules, err := h.service.ListRules(c.Request.Context(), h.parseFilter(c))
	if err != nil {
		respondError(c, "failed to fetch rules", err)
		return
	}
	if rules == nil {
		rules = make([]domain.Rule, 0)
	}

	c.JSON(http.StatusOK, gin.H{
		"items": rules,
		"total": len(rules),
	})
}

func (h *RuleHandler) GetRule(c *gin.Context) {
	id, ok := ruleID(c)
	if !ok {
		return
	}

	rule, err := h.service.GetRule(c.Request.Context(), id)
	if err != nil {
		respondError(c, "failed to fetch rule", err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

func (h *RuleHandler) CreateRule(c *gin.Context) {
	var rule domain.Rule
	if err := c.ShouldBindJSON(&rule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	created, err := h.service.CreateRule(c.Request.Context(), &rule, currentUser(c))
	if err != nil {
		respondError(c, "failed to create rule", err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *RuleHandler) UpdateRule(c *gin.Context) {
	id, ok := ruleID(c)
	if !ok {
		return
	}

	var update domain.RuleUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	updated, err := h.service.UpdateRule(c.Request.Context(), id, update, currentUser(c))
	if err != nil {
		respondError(c, "failed to update rule", err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *RuleHandler) DeleteRule(c *gin.Context) {
	id, ok := ruleID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteRule(c.Request.Context(), id, currentUser(c)); err != nil {
		respondError(c, "failed to delete rule", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *RuleHandler) SetParameters(c *gin.Context) {
	id, ok := ruleID(c)
	if !ok {
		return
	}

	var params domain.CalculationParameters
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	rule, err := h.service.SetParameters(c.Request.Context(), id, params)
	if err != nil {
		respondError(c, "failed to save parameters", err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

func (h *RuleHandler) Recalculate(c *gin.Context) {
	id, ok := ruleID(c)
	if !ok {
		return
	}

	outcome, err := h.service.Recalculate(c.Request.Context(), id, currentUser(c))
	if err != nil {
		if outcome != nil {
			c.JSON(statusFor(err), gin.H{"error": "failed to recalculate rule", "details": err.Error(), "outcome": outcome})
			return
		}
		respondError(c, "failed to recalculate rule", err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// RecalculateAll recalculates every rule matching the list filter. With
// upload=true the run is also stored as a CSV report.
func (h *RuleHandler) RecalculateAll(c *gin.Context) {
	upload, _ := strconv.ParseBool(c.DefaultQuery("upload", "false"))
	if upload && !h.service.ReportsEnabled() {
		respondError(c, "report upload unavailable", service.ErrReportsDisabled)
		return
	}

	run, err := h.service.RecalculateAll(c.Request.Context(), h.parseFilter(c), currentUser(c))
	if err != nil {
		respondError(c, "failed to recalculate rules", err)
		return
	}

	if upload {
		if _, err := h.service.UploadReport(c.Request.Context(), run); err != nil {
			log.Warn().Err(err).Msg("recalculation report upload failed")
			c.JSON(http.StatusOK, gin.H{"run": run, "report_error": err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"run": run})
}

// ListReports lists uploaded recalculation reports.
func (h *RuleHandler) ListReports(c *gin.Context) {
	reports, err := h.service.ListReports(c.Request.Context())
	if err != nil {
		respondError(c, "failed to list reports", err)
		return
	}
	if reports == nil {
		reports = make([]storage.ObjectInfo, 0)
	}

	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

func (h *RuleHandler) ListReviews(c *gin.Context) {
	id, ok := ruleID(c)
	if !ok {
		return
	}

	reviews, err := h.service.ListReviews(c.Request.Context(), id)
	if err != nil {
		respondError(c, "failed to fetch reviews", err)
		return
	}
	if reviews == nil {
		reviews = make([]domain.Review, 0)
	}

	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

func (h *RuleHandler) AddReview(c *gin.Context) {
	id, ok := ruleID(c)
	if !ok {
		return
	}

	var review domain.Review
	if err := c.ShouldBindJSON(&review); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	created, err := h.service.AddReview(c.Request.Context(), id, &review, currentUser(c))
	if err != nil {
		respondError(c, "failed to add review", err)
		return
	}

	c.JSON(http.StatusCreated, created)
}
