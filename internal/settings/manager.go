package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"prizedesk/internal/logging"
	"prizedesk/internal/notify"
)

// Messages shown on the settings page.
const (
	MsgSaved        = "تم حفظ الإعدادات بنجاح!"
	MsgSaveFailed   = "فشل في حفظ الإعدادات. يرجى المحاولة مرة أخرى."
	MsgReset        = "تم إعادة ضبط الإعدادات بنجاح!"
	MsgResetFailed  = "فشل في إعادة ضبط الإعدادات."
	MsgLoadFailed   = "فشل في تحميل الإعدادات. يرجى المحاولة مرة أخرى."
	ResetConfirmMsg = "هل أنت متأكد أنك تريد إعادة ضبط جميع الإعدادات إلى القيم الافتراضية؟"
)

// Manager loads and saves settings.yaml.
type Manager struct {
	mu       sync.RWMutex
	path     string
	settings *Settings
	audit    *logging.AuditLogger
}

// NewManager creates a manager for the settings file at path.
func NewManager(path string) *Manager {
	return &Manager{path: path, audit: logging.Audit("")}
}

// Path returns the settings file path.
func (m *Manager) Path() string { return m.path }

// Load reads settings from disk. A missing file yields defaults; a file
// written by an older schema is upgraded and rewritten.
func (m *Manager) Load() error {
	res, err := Migrate(m.path)
	if err != nil {
		return err
	}
	if res.WasMigrated {
		logging.Get(logging.CategorySettings).Info("settings migrated from %q to %q (preserved %v, defaults %v)",
			res.FromVersion, res.ToVersion, res.PreservedData, res.DefaultsApplied)
	}

	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			m.mu.Lock()
			d := Defaults()
			m.settings = &d
			m.mu.Unlock()
			return nil
		}
		return fmt.Errorf("failed to read settings: %w", err)
	}

	s := Defaults()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("failed to parse settings: %w", err)
	}

	m.mu.Lock()
	m.settings = &s
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the current settings.
func (m *Manager) Get() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.settings == nil {
		return Defaults()
	}
	return *m.settings
}

// Save validates s and writes it to disk.
func (m *Manager) Save(s Settings) error {
	s.Version = Version
	if err := s.Validate(); err != nil {
		m.audit.Mutation(logging.AuditSettingsSave, m.path, err)
		return fmt.Errorf("invalid settings: %w", err)
	}
	err := m.write(s)
	m.audit.Mutation(logging.AuditSettingsSave, m.path, err)
	return err
}

// Reset restores and saves the defaults.
func (m *Manager) Reset() (Settings, error) {
	d := Defaults()
	err := m.write(d)
	m.audit.Mutation(logging.AuditSettingsReset, m.path, err)
	return d, err
}

// ToggleTheme flips between light and dark and saves.
func (m *Manager) ToggleTheme() (Theme, error) {
	s := m.Get()
	if s.Theme == ThemeDark {
		s.Theme = ThemeLight
	} else {
		s.Theme = ThemeDark
	}
	return s.Theme, m.Save(s)
}

func (m *Manager) write(s Settings) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	data, err := yaml.Marshal(&s)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}

	m.mu.Lock()
	m.settings = &s
	m.mu.Unlock()
	logging.Get(logging.CategorySettings).Info("settings saved to %s", m.path)
	return nil
}

// Apply pushes the side effects of s into the running process: muting
// non-error notifications on every queue and opening or closing the audit
// log under workspace.
func Apply(s Settings, workspace string, queues ...*notify.Queue) error {
	for _, q := range queues {
		if q != nil {
			q.SetMuted(!s.NotificationsEnabled)
		}
	}
	if !s.SecurityLogging {
		logging.CloseAudit()
		return nil
	}
	return logging.InitAudit(workspace)
}
