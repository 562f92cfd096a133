package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quantfeed/dcalab-go/internal/api/handlers"
	"github.com/quantfeed/dcalab-go/internal/database"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Services  Services  `json:"services"`
}

type Services struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

// SetupRoutes registers all HTTP endpoints.
func SetupRoutes(router *gin.Engine, backtest *handlers.BacktestHandler, db *database.PostgresDB, redis *database.RedisClient) {
	// Health check endpoint
	router.GET("/health", healthCheck(db, redis))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		bt := v1.Group("/backtest")
		{
			bt.POST("", backtest.RunBacktest)
			bt.POST("/chart", backtest.RenderBacktestChart)
		}

		portfolio := v1.Group("/portfolio")
		{
			portfolio.POST("/:id", backtest.ImportPortfolio)
			portfolio.DELETE("/:id", backtest.DeletePortfolio)
			portfolio.POST("/:id/backtest", backtest.RunPortfolioBacktest)
		}
	}
}

func healthCheck(db *database.PostgresDB, redis *database.RedisClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := HealthResponse{
			Status:    "ok",
			Timestamp: time.Now(),
			Version:   "1.0.0",
			Services: Services{
				Database: "ok",
				Redis:    "ok",
			},
		}

		if db != nil {
			if err := db.HealthCheck(c.Request.Context()); err != nil {
				response.Status = "degraded"
				response.Services.Database = "unavailable"
			}
		} else {
			response.Services.Database = "not configured"
		}

		if redis != nil {
			if err := redis.HealthCheck(c.Request.Context()); err != nil {
				response.Status = "degraded"
				response.Services.Redis = "unavailable"
			}
		} else {
			response.Services.Redis = "not configured"
		}

		c.JSON(http.StatusOK, response)
	}
}
