// ===== internal/log/log.go =====
package log

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the process-wide logger. It discards output until
// InitStdoutLogger is called.
var Logger = zap.NewNop().Sugar()

// InitStdoutLogger initializes the global logger with the specified log level
func InitStdoutLogger(logLevel string) {
	if logLevel == "" {
		logLevel = "info"
	}

	var level zapcore.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn", "warning":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      level == zapcore.DebugLevel,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	Logger = logger.Sugar()
	Logger.Infof("Logger initialized with level: %s", logLevel)
}

// Sync flushes any buffered log entries
func Sync() {
	_ = Logger.Sync()
}
