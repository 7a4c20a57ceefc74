package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/swasthya-labs/arogya-bot/internal/loaders"
	"github.com/swasthya-labs/arogya-bot/internal/utils"
)

type HealthController struct {
	db *loaders.PostgresClient
}

func NewHealthController(db *loaders.PostgresClient) *HealthController {
	return &HealthController{db: db}
}

// HealthCheck reports application and database health.
// GET /health
func (h *HealthController) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()
	if err := pool.Ping(ctx); err != nil {
		utils.Zlog.Error("Database health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unhealthy",
			"database":  "down",
			"timestamp": time.Now().UTC(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"database":  "up",
		"timestamp": time.Now().UTC(),
	})
}

// Liveness probe.
// GET /health/live
func (h *HealthController) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
	})
}

// Readiness probe.
// GET /health/ready
func (h *HealthController) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()
	if err := pool.Ping(ctx); err != nil {
		utils.Zlog.Error("Readiness check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "not ready",
			"database":  "down",
			"timestamp": time.Now().UTC(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"database":  "up",
		"timestamp": time.Now().UTC(),
	})
}
