package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DatabaseURL        string
	LogLevel           string
	Debug              bool
	ServiceName        string
	Environment        string
	ServerPort         string
	MaxConns           int
	GeminiAPIKeys      []string
	GeminiModel        string
	WhatsAppToken      string
	WhatsAppPhoneID    string
	WhatsAppVerifyTok  string
	WhatsAppAppSecret  string
	Timezone           string
	DefaultLanguage    string
	CacheRetentionDays int
	AlertSendDelay     time.Duration
}

func LoadConfig() (*Config, error) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	// Comma-separated Gemini API keys
	var geminiAPIKeys []string
	for _, key := range strings.Split(os.Getenv("GEMINI_API_KEYS"), ",") {
		if key = strings.TrimSpace(key); key != "" {
			geminiAPIKeys = append(geminiAPIKeys, key)
		}
	}
	if len(geminiAPIKeys) == 0 {
		return nil, errors.New("GEMINI_API_KEYS is required")
	}

	geminiModel := os.Getenv("GEMINI_MODEL")
	if geminiModel == "" {
		geminiModel = "gemini-2.0-flash-lite"
	}

	whatsappToken := os.Getenv("WHATSAPP_ACCESS_TOKEN")
	if whatsappToken == "" {
		return nil, errors.New("WHATSAPP_ACCESS_TOKEN is required")
	}

	whatsappPhoneID := os.Getenv("WHATSAPP_PHONE_NUMBER_ID")
	if whatsappPhoneID == "" {
		return nil, errors.New("WHATSAPP_PHONE_NUMBER_ID is required")
	}

	verifyToken := os.Getenv("WHATSAPP_VERIFY_TOKEN")
	if verifyToken == "" {
		return nil, errors.New("WHATSAPP_VERIFY_TOKEN is required")
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	serviceName := os.Getenv("SERVICE_NAME")
	if serviceName == "" {
		serviceName = "arogya-bot"
	}

	environment := os.Getenv("ENVIRONMENT")
	if environment == "" {
		environment = "development"
	}

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	timezone := os.Getenv("TIMEZONE")
	if timezone == "" {
		timezone = "Asia/Kolkata"
	}

	defaultLanguage := os.Getenv("DEFAULT_LANGUAGE")
	if defaultLanguage == "" {
		defaultLanguage = "en"
	}

	maxConns := 10 // default value
	if mc := os.Getenv("MAX_DB_CONNS"); mc != "" {
		if parsed, err := strconv.Atoi(mc); err == nil {
			maxConns = parsed
		}
	}

	cacheRetentionDays := 7 // default value
	if rd := os.Getenv("CACHE_RETENTION_DAYS"); rd != "" {
		if parsed, err := strconv.Atoi(rd); err == nil && parsed > 0 {
			cacheRetentionDays = parsed
		}
	}

	alertSendDelay := 500 * time.Millisecond
	if ms := os.Getenv("ALERT_SEND_DELAY_MS"); ms != "" {
		if parsed, err := strconv.Atoi(ms); err == nil && parsed >= 0 {
			alertSendDelay = time.Duration(parsed) * time.Millisecond
		}
	}

	return &Config{
		DatabaseURL:        databaseURL,
		LogLevel:           logLevel,
		Debug:              os.Getenv("DEBUG") == "true",
		ServiceName:        serviceName,
		Environment:        environment,
		ServerPort:         serverPort,
		MaxConns:           maxConns,
		GeminiAPIKeys:      geminiAPIKeys,
		GeminiModel:        geminiModel,
		WhatsAppToken:      whatsappToken,
		WhatsAppPhoneID:    whatsappPhoneID,
		WhatsAppVerifyTok:  verifyToken,
		WhatsAppAppSecret:  os.Getenv("WHATSAPP_APP_SECRET"),
		Timezone:           timezone,
		DefaultLanguage:    defaultLanguage,
		CacheRetentionDays: cacheRetentionDays,
		AlertSendDelay:     alertSendDelay,
	}, nil
}
