package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/swasthya-labs/arogya-bot/internal/alerts"
	"github.com/swasthya-labs/arogya-bot/internal/api/channels/whatsapp"
	"github.com/swasthya-labs/arogya-bot/internal/config"
	"github.com/swasthya-labs/arogya-bot/internal/conversation"
	"github.com/swasthya-labs/arogya-bot/internal/i18n"
	"github.com/swasthya-labs/arogya-bot/internal/llm"
	"github.com/swasthya-labs/arogya-bot/internal/loaders"
	"github.com/swasthya-labs/arogya-bot/internal/outbreak"
	"github.com/swasthya-labs/arogya-bot/internal/routes"
	"github.com/swasthya-labs/arogya-bot/internal/scheduler"
	"github.com/swasthya-labs/arogya-bot/internal/session"
	"github.com/swasthya-labs/arogya-bot/internal/utils"
)

const sessionTTL = 24 * time.Hour

func main() {
	err := godotenv.Load()
	if err != nil {
		fmt.Println("Warning: Error loading .env file", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	cleanup := utils.InitLogger(cfg)
	defer cleanup()

	utils.Zlog.Info("Starting application",
		zap.String("service", cfg.ServiceName),
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.ServerPort))

	db, err := loaders.NewPostgresClient(cfg.DatabaseURL, cfg.MaxConns)
	if err != nil {
		utils.Zlog.Error("Failed to create database client", zap.Error(err))
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			utils.Zlog.Error("Error closing database connection", zap.Error(err))
		}
	}()

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureSchema(startupCtx); err != nil {
		cancelStartup()
		utils.Zlog.Error("Failed to ensure database schema", zap.Error(err))
		os.Exit(1)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		utils.Zlog.Warn("Invalid timezone, falling back to UTC",
			zap.String("timezone", cfg.Timezone),
			zap.Error(err))
		loc = time.UTC
	}

	gemini, err := llm.NewMultiKeyClient(startupCtx, cfg.GeminiAPIKeys, cfg.GeminiModel)
	cancelStartup()
	if err != nil {
		utils.Zlog.Error("Failed to create Gemini client", zap.Error(err))
		os.Exit(1)
	}

	translator, err := i18n.New(cfg.DefaultLanguage)
	if err != nil {
		utils.Zlog.Error("Failed to load translations", zap.Error(err))
		os.Exit(1)
	}

	fetcher := outbreak.NewGeminiFetcher(gemini)
	outbreaks := outbreak.NewService(db, fetcher, loc)

	waClient := whatsapp.NewClient(cfg.WhatsAppPhoneID, cfg.WhatsAppToken)
	sessions := session.NewStore(sessionTTL, cfg.DefaultLanguage)
	router := conversation.NewRouter(db, outbreaks, gemini, waClient, sessions, translator)

	dispatcher := alerts.NewDispatcher(db, outbreaks, fetcher, waClient, cfg.AlertSendDelay, cfg.CacheRetentionDays)

	sched := scheduler.New(loc)
	jobs := []struct {
		name string
		spec string
		run  func(context.Context)
	}{
		{"hourly_alerts", "0 * * * *", dispatcher.RunHourlyAlerts},
		{"ai_scan", "0 */6 * * *", dispatcher.RunAIScan},
		{"daily_summary", "0 8 * * *", dispatcher.RunDailySummary},
		{"cleanup", "0 2 * * *", dispatcher.RunCleanup},
	}
	for _, j := range jobs {
		if err := sched.Register(j.name, j.spec, scheduler.FuncJob(j.run)); err != nil {
			utils.Zlog.Error("Failed to register job",
				zap.String("job", j.name),
				zap.Error(err))
			os.Exit(1)
		}
	}
	sched.Start()
	defer sched.Stop()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	routes.SetupRoutes(engine, db, cfg, router, sched)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		utils.Zlog.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.Zlog.Error("Failed to start server", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	utils.Zlog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		utils.Zlog.Error("Server forced to shutdown", zap.Error(err))
		os.Exit(1)
	}

	utils.Zlog.Info("Server exited")
}
