package settings

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"prizedesk/internal/validation"
)

// Version is the current schema version of settings.yaml.
const Version = "2"

// Theme is the shell colour scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Language is the interface language.
type Language string

const (
	LanguageArabic  Language = "ar"
	LanguageEnglish Language = "en"
)

// BackupFrequency is how often the backend snapshots its data.
type BackupFrequency string

const (
	BackupDaily   BackupFrequency = "daily"
	BackupWeekly  BackupFrequency = "weekly"
	BackupMonthly BackupFrequency = "monthly"
	BackupNever   BackupFrequency = "never"
)

// BackupFrequencies lists the accepted backup frequencies.
var BackupFrequencies = []BackupFrequency{BackupDaily, BackupWeekly, BackupMonthly, BackupNever}

// Bounds for the numeric settings.
const (
	MinAutosaveMinutes = 1
	MaxAutosaveMinutes = 60
	MinRetentionDays   = 30
	MaxRetentionDays   = 3650
)

// Settings is the operator settings document.
type Settings struct {
	Version string `yaml:"version"`

	SystemName string `yaml:"system_name"`
	AdminEmail string `yaml:"admin_email"`

	// AutosaveMinutes is the interval of the periodic background save.
	AutosaveMinutes int `yaml:"autosave_minutes"`

	// NotificationsEnabled false mutes every notification except errors.
	NotificationsEnabled bool `yaml:"notifications_enabled"`

	// SecurityLogging switches the mutation audit log on.
	SecurityLogging bool `yaml:"security_logging"`

	RetentionDays   int             `yaml:"retention_days"`
	BackupFrequency BackupFrequency `yaml:"backup_frequency"`

	Theme    Theme    `yaml:"theme"`
	Language Language `yaml:"language"`
}

// Defaults returns the factory settings.
func Defaults() Settings {
	return Settings{
		Version:              Version,
		SystemName:           "نظام إدارة الفائزين Inzo",
		AdminEmail:           "admin@inzo.com",
		AutosaveMinutes:      5,
		NotificationsEnabled: true,
		SecurityLogging:      false,
		RetentionDays:        365,
		BackupFrequency:      BackupWeekly,
		Theme:                ThemeLight,
		Language:             LanguageArabic,
	}
}

// Validate reports every invalid field, joined.
func (s Settings) Validate() error {
	var errs []error
	if strings.TrimSpace(s.SystemName) == "" {
		errs = append(errs, errors.New("system_name is required"))
	}
	if r := validation.Email(s.AdminEmail); !r.Valid {
		errs = append(errs, fmt.Errorf("admin_email: %s", r.Message))
	}
	if s.AutosaveMinutes < MinAutosaveMinutes || s.AutosaveMinutes > MaxAutosaveMinutes {
		errs = append(errs, fmt.Errorf("autosave_minutes must be between %d and %d, got %d",
			MinAutosaveMinutes, MaxAutosaveMinutes, s.AutosaveMinutes))
	}
	if s.RetentionDays < MinRetentionDays || s.RetentionDays > MaxRetentionDays {
		errs = append(errs, fmt.Errorf("retention_days must be between %d and %d, got %d",
			MinRetentionDays, MaxRetentionDays, s.RetentionDays))
	}
	if !validBackup(s.BackupFrequency) {
		errs = append(errs, fmt.Errorf("backup_frequency must be one of daily, weekly, monthly, never, got %q", s.BackupFrequency))
	}
	if s.Theme != ThemeLight && s.Theme != ThemeDark {
		errs = append(errs, fmt.Errorf("theme must be light or dark, got %q", s.Theme))
	}
	if s.Language != LanguageArabic && s.Language != LanguageEnglish {
		errs = append(errs, fmt.Errorf("language must be ar or en, got %q", s.Language))
	}
	return errors.Join(errs...)
}

func validBackup(f BackupFrequency) bool {
	for _, b := range BackupFrequencies {
		if f == b {
			return true
		}
	}
	return false
}

// Keys lists the settable keys in display order.
var Keys = []string{
	"system_name", "admin_email", "autosave_minutes", "notifications_enabled",
	"security_logging", "retention_days", "backup_frequency", "theme", "language",
}

// Set assigns a value given as text to the named key. It does not validate
// ranges; call Validate before saving.
func (s *Settings) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "system_name":
		s.SystemName = value
	case "admin_email":
		s.AdminEmail = value
	case "autosave_minutes":
		return setInt(&s.AutosaveMinutes, key, value)
	case "retention_days":
		return setInt(&s.RetentionDays, key, value)
	case "notifications_enabled":
		return setBool(&s.NotificationsEnabled, key, value)
	case "security_logging":
		return setBool(&s.SecurityLogging, key, value)
	case "backup_frequency":
		s.BackupFrequency = BackupFrequency(value)
	case "theme":
		s.Theme = Theme(value)
	case "language":
		s.Language = Language(value)
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

// Get returns the named key formatted as text.
func (s Settings) Get(key string) (string, error) {
	switch key {
	case "system_name":
		return s.SystemName, nil
	case "admin_email":
		return s.AdminEmail, nil
	case "autosave_minutes":
		return strconv.Itoa(s.AutosaveMinutes), nil
	case "retention_days":
		return strconv.Itoa(s.RetentionDays), nil
	case "notifications_enabled":
		return strconv.FormatBool(s.NotificationsEnabled), nil
	case "security_logging":
		return strconv.FormatBool(s.SecurityLogging), nil
	case "backup_frequency":
		return string(s.BackupFrequency), nil
	case "theme":
		return string(s.Theme), nil
	case "language":
		return string(s.Language), nil
	}
	return "", fmt.Errorf("unknown setting %q", key)
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s must be a whole number: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%s must be true or false: %w", key, err)
	}
	*dst = b
	return nil
}
