package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prizedesk/internal/clock"
	"prizedesk/internal/logging"
	"prizedesk/internal/notify"
)

func TestDefaultsAreValid(t *testing.T) {
	d := Defaults()
	require.NoError(t, d.Validate())
	assert.Equal(t, Version, d.Version)
	assert.Equal(t, ThemeLight, d.Theme)
	assert.Equal(t, BackupWeekly, d.BackupFrequency)
	assert.Equal(t, 365, d.RetentionDays)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		want   string
	}{
		{"empty name", func(s *Settings) { s.SystemName = " " }, "system_name"},
		{"bad email", func(s *Settings) { s.AdminEmail = "admin" }, "admin_email"},
		{"autosave too low", func(s *Settings) { s.AutosaveMinutes = 0 }, "autosave_minutes"},
		{"autosave too high", func(s *Settings) { s.AutosaveMinutes = 61 }, "autosave_minutes"},
		{"retention too short", func(s *Settings) { s.RetentionDays = 7 }, "retention_days"},
		{"unknown backup", func(s *Settings) { s.BackupFrequency = "hourly" }, "backup_frequency"},
		{"unknown theme", func(s *Settings) { s.Theme = "blue" }, "theme"},
		{"unknown language", func(s *Settings) { s.Language = "fr" }, "language"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Defaults()
			tt.mutate(&s)
			err := s.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSetGet(t *testing.T) {
	s := Defaults()
	require.NoError(t, s.Set("autosave_minutes", " 10 "))
	require.NoError(t, s.Set("notifications_enabled", "false"))
	require.NoError(t, s.Set("theme", "dark"))
	assert.Error(t, s.Set("retention_days", "forever"))
	assert.Error(t, s.Set("security_logging", "maybe"))
	assert.Error(t, s.Set("colour", "red"))

	for key, want := range map[string]string{
		"autosave_minutes":      "10",
		"notifications_enabled": "false",
		"theme":                 "dark",
		"language":              "ar",
	} {
		got, err := s.Get(key)
		require.NoError(t, err)
		assert.Equal(t, want, got, key)
	}
	_, err := s.Get("colour")
	assert.Error(t, err)

	for _, key := range Keys {
		_, err := s.Get(key)
		assert.NoError(t, err, key)
	}
}

func TestManagerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".prizedesk", "settings.yaml")
	m := NewManager(path)
	require.NoError(t, m.Load())
	assert.Equal(t, Defaults(), m.Get(), "missing file yields defaults")

	s := m.Get()
	s.SystemName = "Inzo"
	s.RetentionDays = 90
	s.BackupFrequency = BackupDaily
	require.NoError(t, m.Save(s))

	m2 := NewManager(path)
	require.NoError(t, m2.Load())
	assert.Equal(t, s, m2.Get())

	bad := s
	bad.AdminEmail = "not an email"
	require.Error(t, m2.Save(bad))
	assert.Equal(t, s, m2.Get(), "failed save keeps the previous settings")
}

func TestToggleThemeAndReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	m := NewManager(path)
	require.NoError(t, m.Load())

	theme, err := m.ToggleTheme()
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, theme)
	theme, err = m.ToggleTheme()
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, theme)

	s := m.Get()
	s.AutosaveMinutes = 30
	require.NoError(t, m.Save(s))
	d, err := m.Reset()
	require.NoError(t, err)
	assert.Equal(t, Defaults(), d)

	m2 := NewManager(path)
	require.NoError(t, m2.Load())
	assert.Equal(t, 5, m2.Get().AutosaveMinutes)
}

func TestMigrateLegacyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	legacy := "system_name: Old Desk\n" +
		"admin_email: ops@inzo.com\n" +
		"auto_save_interval: 15\n" +
		"data_retention_days: 5\n" +
		"theme: dark\n"
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0644))

	res, err := Migrate(path)
	require.NoError(t, err)
	assert.True(t, res.WasMigrated)
	assert.Equal(t, "", res.FromVersion)
	assert.Equal(t, Version, res.ToVersion)
	assert.Contains(t, res.PreservedData, "autosave_minutes")
	assert.Contains(t, res.DefaultsApplied, "retention_days", "out of range value is reset")
	assert.NotContains(t, res.PreservedData, "retention_days")

	m := NewManager(path)
	require.NoError(t, m.Load())
	s := m.Get()
	assert.Equal(t, "Old Desk", s.SystemName)
	assert.Equal(t, 15, s.AutosaveMinutes)
	assert.Equal(t, 365, s.RetentionDays)
	assert.Equal(t, ThemeDark, s.Theme)
	assert.Equal(t, Version, s.Version)

	res, err = Migrate(path)
	require.NoError(t, err)
	assert.False(t, res.WasMigrated, "current files are left alone")
}

func TestMigrateCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("theme: [unterminated"), 0644))

	m := NewManager(path)
	require.NoError(t, m.Load())
	assert.Equal(t, Defaults(), m.Get())
}

func TestApply(t *testing.T) {
	t.Cleanup(logging.CloseAudit)
	q := notify.NewQueue(clock.NewFake(time.Unix(0, 0)), time.Second)

	s := Defaults()
	s.NotificationsEnabled = false
	s.SecurityLogging = true
	workspace := t.TempDir()
	require.NoError(t, Apply(s, workspace, q))
	assert.True(t, logging.AuditEnabled())

	q.Push("hidden", notify.Success)
	q.Push("shown", notify.Error)
	require.Len(t, q.Items(), 1)
	assert.Equal(t, "shown", q.Items()[0].Message)

	require.NoError(t, Apply(Defaults(), workspace, q, nil))
	assert.False(t, logging.AuditEnabled())
	q.Push("visible again", notify.Info)
	assert.Len(t, q.Items(), 2)
}

func TestWatchReloadsExternalChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	watched := NewManager(path)
	require.NoError(t, watched.Load())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := make(chan Settings, 4)
	require.NoError(t, watched.Watch(ctx, func(s Settings) { changes <- s }))

	other := NewManager(path)
	require.NoError(t, other.Load())
	s := other.Get()
	s.Theme = ThemeDark
	s.RetentionDays = 90
	require.NoError(t, other.Save(s))

	select {
	case got := <-changes:
		assert.Equal(t, ThemeDark, got.Theme)
		assert.Equal(t, 90, got.RetentionDays)
	case <-time.After(5 * time.Second):
		t.Fatal("external change was not reloaded")
	}
	assert.Equal(t, ThemeDark, watched.Get().Theme)
}

func TestWatchIgnoresOwnSaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	m := NewManager(path)
	require.NoError(t, m.Load())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := make(chan Settings, 4)
	require.NoError(t, m.Watch(ctx, func(s Settings) { changes <- s }))

	_, err := m.ToggleTheme()
	require.NoError(t, err)

	select {
	case got := <-changes:
		t.Fatalf("own save reported as a change: %+v", got)
	case <-time.After(4 * watchQuiet):
	}
}
