package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/swasthya-labs/arogya-bot/internal/api/channels/whatsapp"
	"github.com/swasthya-labs/arogya-bot/internal/config"
	"github.com/swasthya-labs/arogya-bot/internal/loaders"
	"github.com/swasthya-labs/arogya-bot/internal/middleware"
	"github.com/swasthya-labs/arogya-bot/internal/scheduler"
)

// SetupRoutes configures all application routes
func SetupRoutes(router *gin.Engine, db *loaders.PostgresClient, cfg *config.Config, handler whatsapp.MessageHandler, sched *scheduler.Scheduler) {
	// Apply global middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())

	// Setup route groups
	SetupHealthRoutes(router, db)
	whatsapp.RegisterRoutes(router, cfg, handler)
	SetupAPIRoutes(router, db, cfg, sched)
	Setup404Handler(router)
}
