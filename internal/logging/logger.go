// Package logging provides config-driven categorized file-based logging for prizedesk.
// Logs are written to .prizedesk/logs/ with separate files per category.
// Logging is controlled by logging.debug_mode in the config - when false, no logs are written.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"prizedesk/internal/config"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot         Category = "boot"         // Boot/initialization
	CategoryAPI          Category = "api"          // Backend REST calls
	CategoryAutosave     Category = "autosave"     // Debounced form saves
	CategoryVerification Category = "verification" // Verification editor lifecycle
	CategoryDashboard    Category = "dashboard"    // Dashboard and published list
	CategoryPending      Category = "pending"      // Pending issues and digests
	CategorySettings     Category = "settings"     // Operator settings
	CategoryUI           Category = "ui"           // Shell navigation and rendering
	CategoryExport       Category = "export"       // CSV/XLSX export
)

// AllCategories lists every category that can produce a log file.
var AllCategories = []Category{
	CategoryBoot,
	CategoryAPI,
	CategoryAutosave,
	CategoryVerification,
	CategoryDashboard,
	CategoryPending,
	CategorySettings,
	CategoryUI,
	CategoryExport,
}

// Logger wraps a zap sugared logger bound to one category file.
// A Logger with a nil sugar is a no-op.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	cfg       config.LoggingConfig
	cfgMu     sync.RWMutex
	level     = zapcore.InfoLevel
)

// Initialize sets up the logging directory from the given logging config.
// Should be called once at startup with the workspace path.
func Initialize(workspace string, lc config.LoggingConfig) error {
	if workspace == "" {
		return fmt.Errorf("workspace path required")
	}

	cfgMu.Lock()
	cfg = lc
	level = parseLevel(lc.Level)
	logsDir = filepath.Join(workspace, config.DefaultDir, "logs")
	cfgMu.Unlock()

	if !lc.DebugMode {
		return nil
	}

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== prizedesk logging initialized ===")
	boot.Info("Workspace: %s", workspace)
	boot.Info("Logs directory: %s", logsDir)
	boot.Info("Log level: %s", level)
	if len(lc.Categories) > 0 {
		enabled := 0
		for cat, on := range lc.Categories {
			if on {
				enabled++
			}
			boot.Debug("Category '%s': %v", cat, on)
		}
		boot.Info("Enabled categories: %d/%d", enabled, len(lc.Categories))
	} else {
		boot.Info("All categories enabled (no category filter)")
	}

	return nil
}

func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// IsDebugMode returns whether debug logging is enabled
func IsDebugMode() bool {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return cfg.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return cfg.IsCategoryEnabled(string(category))
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode is disabled or category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}

	cfgMu.RLock()
	dir, json, lvl := logsDir, cfg.Format == "json", level
	cfgMu.RUnlock()
	if dir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	if l, ok := loggers[category]; ok {
		return l
	}

	// Date prefix keeps rotation trivial
	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(dir, fmt.Sprintf("%s_%s.log", date, category))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	core := zapcore.NewCore(newEncoder(json), zapcore.AddSync(file), lvl)
	l := &Logger{
		category: category,
		file:     file,
		sugar:    zap.New(core).Sugar().With("cat", string(category)),
	}
	loggers[category] = l

	return l
}

func newEncoder(json bool) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.TimeKey = "ts"
	if json {
		return zapcore.NewJSONEncoder(ec)
	}
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(ec)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Errorf(format, args...)
}

// With returns a child logger carrying the given key/value pairs on every entry.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	if l.sugar == nil {
		return l
	}
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// CloseAll flushes and closes all open log files (call at shutdown)
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	for _, l := range loggers {
		if l.sugar != nil {
			_ = l.sugar.Sync()
		}
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// These are no-ops if the category is disabled
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// API logs to the api category
func API(format string, args ...interface{}) {
	Get(CategoryAPI).Info(format, args...)
}

// APIDebug logs debug to the api category
func APIDebug(format string, args ...interface{}) {
	Get(CategoryAPI).Debug(format, args...)
}

// APIError logs an error to the api category
func APIError(format string, args ...interface{}) {
	Get(CategoryAPI).Error(format, args...)
}

// Autosave logs to the autosave category
func Autosave(format string, args ...interface{}) {
	Get(CategoryAutosave).Info(format, args...)
}

// AutosaveDebug logs debug to the autosave category
func AutosaveDebug(format string, args ...interface{}) {
	Get(CategoryAutosave).Debug(format, args...)
}

// Verification logs to the verification category
func Verification(format string, args ...interface{}) {
	Get(CategoryVerification).Info(format, args...)
}

// Dashboard logs to the dashboard category
func Dashboard(format string, args ...interface{}) {
	Get(CategoryDashboard).Info(format, args...)
}

// Pending logs to the pending category
func Pending(format string, args ...interface{}) {
	Get(CategoryPending).Info(format, args...)
}

// UI logs debug to the ui category
func UI(format string, args ...interface{}) {
	Get(CategoryUI).Debug(format, args...)
}

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
