package logger

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger wraps zap.Logger to provide our logging interface
type ZapLogger struct {
	*zap.Logger
	sugar *zap.SugaredLogger
}

// NewZapLogger creates a new ZapLogger with the specified configuration
func NewZapLogger(level Level, development bool) (*ZapLogger, error) {
	var config zap.Config

	if development {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	switch level {
	case DebugLevel:
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case InfoLevel:
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case ErrorLevel:
		config.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	zl, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("failed to create zap logger: %w", err)
	}

	return &ZapLogger{
		Logger: zl,
		sugar:  zl.Sugar(),
	}, nil
}

// NewZapLoggerFromEnv creates a logger configured from environment variables
func NewZapLoggerFromEnv() (*ZapLogger, error) {
	levelStr := os.Getenv("BRIDGE_LOG_LEVEL")
	if levelStr == "" {
		levelStr = "info"
	}

	level := LevelFromString(levelStr)
	development := os.Getenv("BRIDGE_LOG_FORMAT") != "json"

	zl, err := NewZapLogger(level, development)
	if err != nil {
		return nil, err
	}

	if os.Getenv("BRIDGE_LOG_CALLER") == "true" {
		zl.Logger = zl.WithOptions(zap.AddCaller())
	}

	stacktraceLevel := os.Getenv("BRIDGE_LOG_STACKTRACE")
	if stacktraceLevel != "" {
		var zapLevel zapcore.Level
		switch strings.ToLower(stacktraceLevel) {
		case "error":
			zapLevel = zap.ErrorLevel
		case "panic":
			zapLevel = zap.PanicLevel
		default:
			zapLevel = zap.FatalLevel
		}
		zl.Logger = zl.WithOptions(zap.AddStacktrace(zapLevel))
	}

	return zl, nil
}

// WithHTTPRequest adds HTTP request context to the logger
func (l *ZapLogger) WithHTTPRequest(r *http.Request) *ZapLogger {
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("remote_addr", r.RemoteAddr),
		zap.Int64("content_length", r.ContentLength),
	}

	if r.URL.RawQuery != "" {
		fields = append(fields, zap.String("query", r.URL.RawQuery))
	}

	if contentType := r.Header.Get("Content-Type"); contentType != "" {
		fields = append(fields, zap.String("content_type", contentType))
	}

	return &ZapLogger{
		Logger: l.With(fields...),
		sugar:  l.Logger.With(fields...).Sugar(),
	}
}

// WithRun adds run and step context to the logger
func (l *ZapLogger) WithRun(runID, step string) *ZapLogger {
	return &ZapLogger{
		Logger: l.With(
			zap.String("run_id", runID),
			zap.String("step", step),
		),
		sugar: l.Logger.With(
			zap.String("run_id", runID),
			zap.String("step", step),
		).Sugar(),
	}
}

// WithDuration adds a duration field to the logger
func (l *ZapLogger) WithDuration(duration time.Duration) *ZapLogger {
	return &ZapLogger{
		Logger: l.With(zap.Duration("duration", duration)),
		sugar:  l.Logger.With(zap.Duration("duration", duration)).Sugar(),
	}
}

// WithField adds a single field and returns a Logger facade
func (l *ZapLogger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithFields adds multiple fields and returns a Logger facade
func (l *ZapLogger) WithFields(fields map[string]interface{}) *Logger {
	zapFields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zapFields = append(zapFields, zap.Any(k, v))
	}
	zl := l.With(zapFields...)
	return &Logger{zap: &ZapLogger{Logger: zl, sugar: zl.Sugar()}}
}

// Debugf logs a formatted debug message
func (l *ZapLogger) Debugf(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Infof logs a formatted info message
func (l *ZapLogger) Infof(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warnf logs a formatted warning message
func (l *ZapLogger) Warnf(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Errorf logs a formatted error message
func (l *ZapLogger) Errorf(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}
