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

// =============================================================================
// AUDIT EVENT TYPES
// =============================================================================

// AuditEventType names a mutation recorded in the audit log.
type AuditEventType string

const (
	AuditRecordCreate   AuditEventType = "record_create"
	AuditRecordUpdate   AuditEventType = "record_update"
	AuditRecordDelete   AuditEventType = "record_delete"
	AuditRecordPublish  AuditEventType = "record_publish"
	AuditKlishaGenerate AuditEventType = "klisha_generate"

	AuditIssueCreate  AuditEventType = "issue_create"
	AuditIssueResolve AuditEventType = "issue_resolve"
	AuditIssueDelete  AuditEventType = "issue_delete"
	AuditDigestSent   AuditEventType = "digest_sent"

	AuditSettingsSave  AuditEventType = "settings_save"
	AuditSettingsReset AuditEventType = "settings_reset"
	AuditExport        AuditEventType = "export"
)

// AuditEvent is one JSON line in the audit log.
type AuditEvent struct {
	EventType AuditEventType
	Target    string // record or issue id, file path
	Success   bool
	Error     string
	Fields    map[string]interface{}
}

// =============================================================================
// AUDIT LOGGER
// =============================================================================

var (
	auditMu     sync.Mutex
	auditFile   *os.File
	auditLogger *zap.Logger
)

// AuditLogger writes mutation events when security logging is switched on.
// It is independent of debug_mode.
type AuditLogger struct {
	operator string
}

// InitAudit opens the audit log under the workspace. Calling it again while
// open is a no-op.
func InitAudit(workspace string) error {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		return nil
	}

	dir := filepath.Join(workspace, config.DefaultDir, "logs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	date := time.Now().Format("2006-01-02")
	path := filepath.Join(dir, fmt.Sprintf("%s_audit.log", date))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = file
	auditLogger = zap.New(zapcore.NewCore(newEncoder(true), zapcore.AddSync(file), zapcore.InfoLevel))

	return nil
}

// CloseAudit closes the audit log file. Subsequent events are dropped until
// InitAudit is called again.
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditLogger != nil {
		_ = auditLogger.Sync()
		auditLogger = nil
	}
	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// AuditEnabled reports whether audit events are currently written.
func AuditEnabled() bool {
	auditMu.Lock()
	defer auditMu.Unlock()
	return auditLogger != nil
}

// Audit returns an audit logger attributed to the given operator (may be empty).
func Audit(operator string) *AuditLogger {
	return &AuditLogger{operator: operator}
}

// Log writes an audit event.
func (a *AuditLogger) Log(event AuditEvent) {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditLogger == nil {
		return
	}

	fields := []zap.Field{
		zap.String("event", string(event.EventType)),
		zap.String("target", event.Target),
		zap.Bool("success", event.Success),
	}
	if a.operator != "" {
		fields = append(fields, zap.String("operator", a.operator))
	}
	if event.Error != "" {
		fields = append(fields, zap.String("error", event.Error))
	}
	for k, v := range event.Fields {
		fields = append(fields, zap.Any(k, v))
	}
	auditLogger.Info("audit", fields...)
}

// Mutation records the outcome of a mutation against target.
func (a *AuditLogger) Mutation(eventType AuditEventType, target string, err error) {
	ev := AuditEvent{EventType: eventType, Target: target, Success: err == nil}
	if err != nil {
		ev.Error = err.Error()
	}
	a.Log(ev)
}
