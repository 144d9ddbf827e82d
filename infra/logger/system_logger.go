package logger

import (
	"context"
	"log"
	"os"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the severity level of a log entry
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
	LevelFatal LogLevel = "fatal"
)

var levelOrder = map[LogLevel]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
	LevelFatal: 4,
}

// SystemLog represents a structured system log entry
type SystemLog struct {
	Timestamp   time.Time      `json:"timestamp"`
	Level       LogLevel       `json:"level"`
	Message     string         `json:"message"`
	Component   string         `json:"component"`
	Function    string         `json:"function"`
	File        string         `json:"file"`
	Line        int            `json:"line"`
	ServicesID  string         `json:"services_id,omitempty"`
	Provider    string         `json:"provider,omitempty"`
	RequestID   string         `json:"request_id,omitempty"`
	Error       string         `json:"error,omitempty"`
	Fields      map[string]any `json:"fields,omitempty"`
	Environment string         `json:"environment"`
	Service     string         `json:"service"`
	Version     string         `json:"version"`
}

// Sink receives system log entries, e.g. the OpenSearch logger
type Sink interface {
	LogSystemEvent(ctx context.Context, log any) error
}

// SystemLogger handles structured logging to the console and an optional sink
type SystemLogger struct {
	console     *zap.Logger
	sink        Sink
	minLevel    LogLevel
	service     string
	version     string
	environment string
}

// SystemLoggerConfig represents configuration for system logger
type SystemLoggerConfig struct {
	EnableConsole bool     `mapstructure:"enable_console"`
	MinLevel      LogLevel `mapstructure:"min_level"`
	Service       string   `mapstructure:"service"`
	Version       string   `mapstructure:"version"`
	Environment   string   `mapstructure:"environment"`
	// Console overrides the zap logger used for console output
	Console *zap.Logger `mapstructure:"-"`
}

// NewSystemLogger creates a new system logger. sink may be nil.
func NewSystemLogger(sink Sink, config SystemLoggerConfig) *SystemLogger {
	if config.MinLevel == "" {
		config.MinLevel = LevelInfo
	}

	console := config.Console
	if console == nil {
		console = zap.NewNop()
		if config.EnableConsole {
			console = newConsoleLogger(config.Environment)
		}
	}

	return &SystemLogger{
		console:     console,
		sink:        sink,
		minLevel:    config.MinLevel,
		service:     config.Service,
		version:     config.Version,
		environment: config.Environment,
	}
}

func newConsoleLogger(environment string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if environment == "development" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true

	l, err := cfg.Build()
	if err != nil {
		log.Printf("Failed to build console logger: %v", err)
		return zap.NewNop()
	}
	return l
}

// LogContext holds contextual information for logging
type LogContext struct {
	ServicesID string
	Provider   string
	RequestID  string
	Fields     map[string]any
}

// Debug logs a debug message
func (sl *SystemLogger) Debug(message string, ctx ...LogContext) {
	sl.log(LevelDebug, message, nil, ctx...)
}

// Info logs an info message
func (sl *SystemLogger) Info(message string, ctx ...LogContext) {
	sl.log(LevelInfo, message, nil, ctx...)
}

// Warn logs a warning message
func (sl *SystemLogger) Warn(message string, ctx ...LogContext) {
	sl.log(LevelWarn, message, nil, ctx...)
}

// Error logs an error message
func (sl *SystemLogger) Error(message string, err error, ctx ...LogContext) {
	sl.log(LevelError, message, err, ctx...)
}

// Fatal logs a fatal message and exits
func (sl *SystemLogger) Fatal(message string, err error, ctx ...LogContext) {
	sl.log(LevelFatal, message, err, ctx...)
	_ = sl.console.Sync()
	os.Exit(1)
}

// Sync flushes buffered console output
func (sl *SystemLogger) Sync() error {
	return sl.console.Sync()
}

func (sl *SystemLogger) log(level LogLevel, message string, err error, ctx ...LogContext) {
	if !sl.shouldLog(level) {
		return
	}

	file, line, function := "unknown", 0, "unknown"
	// caller of the exported level method
	if pc, f, l, ok := runtime.Caller(2); ok {
		file, line = f, l
		if fn := runtime.FuncForPC(pc); fn != nil {
			function = fn.Name()
			if idx := strings.LastIndex(function, "."); idx != -1 {
				function = function[idx+1:]
			}
		}
	}

	entry := SystemLog{
		Timestamp:   time.Now().UTC(),
		Level:       level,
		Message:     message,
		Component:   extractComponent(file),
		Function:    function,
		File:        file,
		Line:        line,
		Environment: sl.environment,
		Service:     sl.service,
		Version:     sl.version,
	}

	if len(ctx) > 0 {
		entry.ServicesID = ctx[0].ServicesID
		entry.Provider = ctx[0].Provider
		entry.RequestID = ctx[0].RequestID
		entry.Fields = ctx[0].Fields
	}
	if err != nil {
		entry.Error = err.Error()
	}

	sl.logToConsole(entry)

	if sl.sink != nil {
		go sl.logToSink(entry)
	}
}

func (sl *SystemLogger) shouldLog(level LogLevel) bool {
	return levelOrder[level] >= levelOrder[sl.minLevel]
}

// extractComponent turns /path/to/unipay/provider/realex/realex.go into
// provider/realex.
func extractComponent(file string) string {
	parts := strings.Split(file, "/")

	for i, part := range parts {
		if part == "unipay" && i+1 < len(parts)-1 {
			if i+2 < len(parts)-1 {
				return parts[i+1] + "/" + parts[i+2]
			}
			return parts[i+1]
		}
	}

	if len(parts) >= 2 {
		return parts[len(parts)-2]
	}

	return "unknown"
}

func (sl *SystemLogger) logToConsole(entry SystemLog) {
	fields := make([]zap.Field, 0, 6+len(entry.Fields))
	fields = append(fields, zap.String("component", entry.Component))
	if entry.ServicesID != "" {
		fields = append(fields, zap.String("services_id", entry.ServicesID))
	}
	if entry.Provider != "" {
		fields = append(fields, zap.String("provider", entry.Provider))
	}
	if entry.RequestID != "" {
		fields = append(fields, zap.String("request_id", entry.RequestID))
	}
	if entry.Error != "" {
		fields = append(fields, zap.String("error", entry.Error))
	}
	for key, value := range entry.Fields {
		fields = append(fields, zap.Any(key, value))
	}

	switch entry.Level {
	case LevelDebug:
		sl.console.Debug(entry.Message, fields...)
	case LevelInfo:
		sl.console.Info(entry.Message, fields...)
	case LevelWarn:
		sl.console.Warn(entry.Message, fields...)
	default:
		sl.console.Error(entry.Message, fields...)
	}
}

func (sl *SystemLogger) logToSink(entry SystemLog) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sl.sink.LogSystemEvent(ctx, entry); err != nil {
		log.Printf("Failed to ship system log: %v", err)
	}
}

// WithContext creates a new logger with context
func (sl *SystemLogger) WithContext(ctx LogContext) *ContextLogger {
	return &ContextLogger{
		systemLogger: sl,
		context:      ctx,
	}
}

// ContextLogger wraps SystemLogger with context
type ContextLogger struct {
	systemLogger *SystemLogger
	context      LogContext
}

// Debug logs a debug message with context
func (cl *ContextLogger) Debug(message string) {
	cl.systemLogger.log(LevelDebug, message, nil, cl.context)
}

// Info logs an info message with context
func (cl *ContextLogger) Info(message string) {
	cl.systemLogger.log(LevelInfo, message, nil, cl.context)
}

// Warn logs a warning message with context
func (cl *ContextLogger) Warn(message string) {
	cl.systemLogger.log(LevelWarn, message, nil, cl.context)
}

// Error logs an error message with context
func (cl *ContextLogger) Error(message string, err error) {
	cl.systemLogger.log(LevelError, message, err, cl.context)
}

// AddField adds a field to the context
func (cl *ContextLogger) AddField(key string, value any) *ContextLogger {
	if cl.context.Fields == nil {
		cl.context.Fields = make(map[string]any)
	}
	cl.context.Fields[key] = value
	return cl
}

// SetServicesID sets the configured services ID in context
func (cl *ContextLogger) SetServicesID(id string) *ContextLogger {
	cl.context.ServicesID = id
	return cl
}

// SetProvider sets the provider in context
func (cl *ContextLogger) SetProvider(provider string) *ContextLogger {
	cl.context.Provider = provider
	return cl
}

// SetRequestID sets the request ID in context
func (cl *ContextLogger) SetRequestID(requestID string) *ContextLogger {
	cl.context.RequestID = requestID
	return cl
}
