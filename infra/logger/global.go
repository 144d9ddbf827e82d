package logger

import (
	"sync"

	"github.com/mstgnz/unipay/infra/config"
)

const (
	serviceName    = "unipay"
	serviceVersion = "1.0.0"
)

var (
	globalLogger *SystemLogger
	globalMu     sync.RWMutex
	once         sync.Once
)

// InitGlobalLogger initializes the global system logger. sink may be nil.
func InitGlobalLogger(sink Sink) {
	once.Do(func() {
		cfg := SystemLoggerConfig{
			EnableConsole: true,
			MinLevel:      LogLevel(config.GetEnv("LOGGING_LEVEL", string(LevelInfo))),
			Service:       serviceName,
			Version:       serviceVersion,
			Environment:   config.GetEnv("ENVIRONMENT", "development"),
		}

		if cfg.Environment == "development" {
			cfg.MinLevel = LevelDebug
		}
		if _, ok := levelOrder[cfg.MinLevel]; !ok {
			cfg.MinLevel = LevelInfo
		}

		SetGlobalLogger(NewSystemLogger(sink, cfg))
	})
}

// SetGlobalLogger replaces the global logger
func SetGlobalLogger(l *SystemLogger) {
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *SystemLogger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l != nil {
		return l
	}

	// console-only fallback until InitGlobalLogger runs
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = NewSystemLogger(nil, SystemLoggerConfig{
			EnableConsole: true,
			MinLevel:      LevelInfo,
			Service:       serviceName,
			Version:       serviceVersion,
			Environment:   "development",
		})
	}
	return globalLogger
}

// Debug logs a debug message using the global logger
func Debug(message string, ctx ...LogContext) {
	GetGlobalLogger().log(LevelDebug, message, nil, ctx...)
}

// Info logs an info message using the global logger
func Info(message string, ctx ...LogContext) {
	GetGlobalLogger().log(LevelInfo, message, nil, ctx...)
}

// Warn logs a warning message using the global logger
func Warn(message string, ctx ...LogContext) {
	GetGlobalLogger().log(LevelWarn, message, nil, ctx...)
}

// Error logs an error message using the global logger
func Error(message string, err error, ctx ...LogContext) {
	GetGlobalLogger().log(LevelError, message, err, ctx...)
}

// Fatal logs a fatal message using the global logger and exits
func Fatal(message string, err error, ctx ...LogContext) {
	GetGlobalLogger().Fatal(message, err, ctx...)
}

// WithContext creates a context logger from the global logger
func WithContext(ctx LogContext) *ContextLogger {
	return GetGlobalLogger().WithContext(ctx)
}

// WithProvider creates a context logger with provider
func WithProvider(provider string) *ContextLogger {
	return WithContext(LogContext{Provider: provider})
}

// WithServices creates a context logger for a configured services tuple
func WithServices(servicesID, provider string) *ContextLogger {
	return WithContext(LogContext{
		ServicesID: servicesID,
		Provider:   provider,
	})
}
