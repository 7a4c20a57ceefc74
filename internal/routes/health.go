package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/swasthya-labs/arogya-bot/internal/controllers"
	"github.com/swasthya-labs/arogya-bot/internal/loaders"
)

// SetupHealthRoutes configures health check endpoints
func SetupHealthRoutes(router *gin.Engine, db *loaders.PostgresClient) {
	healthController := controllers.NewHealthController(db)

	// Root endpoint
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	router.GET("/health", healthController.HealthCheck)
	router.GET("/health/live", healthController.Liveness)
	router.GET("/health/ready", healthController.Readiness)
}
