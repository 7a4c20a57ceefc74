package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/swasthya-labs/arogya-bot/internal/config"
	"github.com/swasthya-labs/arogya-bot/internal/loaders"
	"github.com/swasthya-labs/arogya-bot/internal/scheduler"
	"github.com/swasthya-labs/arogya-bot/internal/utils"
)

// SetupAPIRoutes configures the operational inspection endpoints.
func SetupAPIRoutes(router *gin.Engine, db *loaders.PostgresClient, cfg *config.Config, sched *scheduler.Scheduler) {
	// Scheduled job timings, for operators checking that alert runs happen.
	router.GET("/jobs", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"timezone": cfg.Timezone,
			"jobs":     sched.Status(),
		})
	})

	// Canonical states list, useful when debugging registration issues.
	router.GET("/states", func(c *gin.Context) {
		states, err := db.ListStates(c.Request.Context())
		if err != nil {
			utils.Zlog.Error("Failed to list states", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list states"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"states": states})
	})

	router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":     cfg.ServiceName,
			"environment": cfg.Environment,
			"timestamp":   time.Now().UTC(),
		})
	})
}

// Setup404Handler configures the 404 handler
func Setup404Handler(router *gin.Engine) {
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not Found",
			"message": "The requested resource was not found",
			"path":    c.Request.URL.Path,
		})
	})
}
