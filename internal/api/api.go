// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hongquyngo/safety-stock/internal/api/handlers"
	"github.com/hongquyngo/safety-stock/internal/api/middleware"
	"github.com/hongquyngo/safety-stock/internal/service"
)

type Services struct {
	SafetyStockService *service.SafetyStockService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil && services.SafetyStockService != nil {
		calcHandler := handlers.NewSafetyStockHandler(services.SafetyStockService)
		ruleHandler := handlers.NewRuleHandler(services.SafetyStockService)

		ssGroup := apiGroup.Group("/safety-stock")
		{
			ssGroup.POST("/calculate", calcHandler.Calculate)
			ssGroup.GET("/z-score", calcHandler.GetZScore)
			ssGroup.GET("/demand", calcHandler.GetDemand)
			ssGroup.GET("/recommendation", calcHandler.GetRecommendation)
			ssGroup.GET("/lead-time", calcHandler.GetLeadTime)
			ssGroup.GET("/reports", ruleHandler.ListReports)

			rulesGroup := ssGroup.Group("/rules")
			{
				rulesGroup.GET("", ruleHandler.ListRules)
				rulesGroup.POST("", ruleHandler.CreateRule)
				rulesGroup.POST("/recalculate", ruleHandler.RecalculateAll)
				rulesGroup.GET("/:id", ruleHandler.GetRule)
				rulesGroup.PUT("/:id", ruleHandler.UpdateRule)
				rulesGroup.DELETE("/:id", ruleHandler.DeleteRule)
				rulesGroup.PUT("/:id/parameters", ruleHandler.SetParameters)
				rulesGroup.POST("/:id/recalculate", ruleHandler.Recalculate)
				rulesGroup.GET("/:id/reviews", ruleHandler.ListReviews)
				rulesGroup.POST("/:id/reviews", ruleHandler.AddReview)
			}
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
