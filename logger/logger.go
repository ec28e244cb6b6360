package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is the global logger instance
	Logger *zap.Logger
	// Sugar is the sugared logger for easier usage
	Sugar *zap.SugaredLogger
)

// Init initializes the global logger. env selects the encoder ("development"
// gives console output, anything else JSON) and level the minimum level.
func Init(env, level string) {
	isDevelopment := env == "development"

	var config zap.Config
	if isDevelopment {
		// Development: Human-readable console output
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		// Production: JSON output
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		config.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
		config.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
		config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	}

	if lvl, err := zapcore.ParseLevel(strings.ToLower(level)); err == nil {
		config.Level = zap.NewAtomicLevelAt(lvl)
	}

	var err error
	Logger, err = config.Build()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	Sugar = Logger.Sugar()

	format := "json"
	if isDevelopment {
		format = "console"
	}
	Sugar.Infow("Logger initialized",
		"environment", env,
		"format", format,
		"level", config.Level.String(),
	)
}

// Sync flushes any buffered log entries
func Sync() {
	if Logger != nil {
		// Sync on stdout/stderr returns EINVAL on some platforms; nothing to do about it.
		_ = Logger.Sync()
	}
}

// WithFields creates a logger with predefined fields
func WithFields(fields map[string]interface{}) *zap.SugaredLogger {
	if Sugar == nil {
		Init(os.Getenv("ENV"), os.Getenv("LOG_LEVEL"))
	}

	var args []interface{}
	for k, v := range fields {
		args = append(args, k, v)
	}

	return Sugar.With(args...)
}

// WithComponent creates a logger with component field
func WithComponent(component string) *zap.SugaredLogger {
	return WithFields(map[string]interface{}{
		"component": component,
	})
}

// WithRequest creates a logger with HTTP request fields
func WithRequest(method, path, remoteAddr, userAgent string) *zap.SugaredLogger {
	return WithFields(map[string]interface{}{
		"method":      method,
		"path":        path,
		"remote_addr": remoteAddr,
		"user_agent":  userAgent,
	})
}

// WithCrawl creates a logger with crawl-specific fields
func WithCrawl(url string) *zap.SugaredLogger {
	return WithFields(map[string]interface{}{
		"component": "crawler",
		"url":       url,
	})
}

// WithProxy creates a logger with proxy pool fields
func WithProxy(server string) *zap.SugaredLogger {
	return WithFields(map[string]interface{}{
		"component": "proxy",
		"server":    server,
	})
}

// WithJob creates a logger with background job fields
func WithJob(id string) *zap.SugaredLogger {
	return WithFields(map[string]interface{}{
		"component": "jobs",
		"job_id":    id,
	})
}

// WithCache creates a logger with cache-specific fields
func WithCache(operation, key string) *zap.SugaredLogger {
	return WithFields(map[string]interface{}{
		"component":       "cache",
		"cache_operation": operation,
		"key":             key,
	})
}
