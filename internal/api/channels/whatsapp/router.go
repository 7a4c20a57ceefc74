package whatsapp

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/swasthya-labs/arogya-bot/internal/config"
	"github.com/swasthya-labs/arogya-bot/internal/utils"
)

// RegisterRoutes registers the Meta webhook endpoints.
func RegisterRoutes(router *gin.Engine, cfg *config.Config, handler MessageHandler) {
	ctrl := NewController(cfg, handler)

	whatsapp := router.Group("/whatsapp")
	{
		// Meta sends GET for verification, POST for messages
		whatsapp.GET("/webhook", ctrl.VerifyWebhook)
		whatsapp.POST("/webhook", ctrl.Webhook)
	}

	utils.Zlog.Info("WhatsApp routes registered",
		zap.String("verify_endpoint", "/whatsapp/webhook [GET]"),
		zap.String("webhook_endpoint", "/whatsapp/webhook [POST]"))
}
