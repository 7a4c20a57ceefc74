// utils/logger.go
package utils

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/swasthya-labs/arogya-bot/internal/config"
)

// Zlog is the process-wide logger. It defaults to a no-op logger until
// InitLogger is called so library code can log unconditionally.
var Zlog = zap.NewNop()

func InitLogger(cfg *config.Config) func() {
	logLevel := cfg.LogLevel
	if logLevel == "" {
		logLevel = "info"
	}

	var lvl zapcore.Level
	_ = lvl.Set(logLevel)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	stdoutCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.AddSync(os.Stdout),
		lvl,
	)

	Zlog = zap.New(stdoutCore, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	return func() { _ = Zlog.Sync() }
}
