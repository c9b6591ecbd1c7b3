package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// CONFIG TESTS
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "prizedesk" {
		t.Errorf("expected Name=prizedesk, got %s", cfg.Name)
	}
	if cfg.API.BaseURL != "http://localhost:5000/api" {
		t.Errorf("expected default base URL, got %s", cfg.API.BaseURL)
	}
	if cfg.UI.PageSize != 10 {
		t.Errorf("expected PageSize=10, got %d", cfg.UI.PageSize)
	}
	assert.Equal(t, []int{5, 10, 25, 50}, cfg.UI.PageSizes)
	require.NoError(t, cfg.Validate())
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("PRIZEDESK_API_URL", "")
	t.Setenv("REACT_APP_API_URL", "")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.API.BaseURL = "http://backend:5000/api"
	cfg.UI.PageSize = 25
	cfg.Logging.DebugMode = true

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	assert.Equal(t, "http://backend:5000/api", loaded.API.BaseURL)
	assert.Equal(t, 25, loaded.UI.PageSize)
	assert.True(t, loaded.Logging.DebugMode)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("PRIZEDESK_API_URL", "")
	t.Setenv("REACT_APP_API_URL", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().API, cfg.API)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [unterminated"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"https url", func(c *Config) { c.API.BaseURL = "https://prizes.example.com/api" }, false},
		{"bad scheme", func(c *Config) { c.API.BaseURL = "ftp://host/api" }, true},
		{"missing host", func(c *Config) { c.API.BaseURL = "http:///api" }, true},
		{"page size not allowed", func(c *Config) { c.UI.PageSize = 7 }, true},
		{"empty page sizes", func(c *Config) { c.UI.PageSizes = nil }, true},
		{"bad theme", func(c *Config) { c.UI.Theme = "neon" }, true},
		{"light theme", func(c *Config) { c.UI.Theme = "light" }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Helpers(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 15*time.Second, cfg.GetAPITimeout())
	assert.Equal(t, 500*time.Millisecond, cfg.GetAutosaveDebounce())
	assert.Equal(t, 3*time.Second, cfg.UI.GetNotificationTTL())
	assert.Equal(t, time.Second, cfg.UI.GetPublishRedirectDelay())
	assert.Equal(t, 10*time.Minute, cfg.UI.GetDefaultRefresh())
	assert.Equal(t,
		[]time.Duration{5 * time.Minute, 10 * time.Minute, 30 * time.Minute, time.Hour},
		cfg.UI.GetRefreshIntervals())

	// Garbage falls back to defaults
	cfg.API.Timeout = "soon"
	cfg.Autosave.Debounce = "-1s"
	cfg.UI.NotificationTTL = ""
	cfg.UI.RefreshIntervals = []string{"never"}
	assert.Equal(t, 15*time.Second, cfg.GetAPITimeout())
	assert.Equal(t, 500*time.Millisecond, cfg.GetAutosaveDebounce())
	assert.Equal(t, 3*time.Second, cfg.UI.GetNotificationTTL())
	assert.Len(t, cfg.UI.GetRefreshIntervals(), 4)
}

func TestSettingsPath(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, filepath.Join(".prizedesk", "settings.yaml"), cfg.SettingsPath())

	cfg.Settings.Path = ""
	assert.Equal(t, filepath.Join(".prizedesk", "settings.yaml"), cfg.SettingsPath())

	cfg.Settings.Path = "/tmp/ops.yaml"
	assert.Equal(t, "/tmp/ops.yaml", cfg.SettingsPath())
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	lc := LoggingConfig{}
	assert.False(t, lc.IsCategoryEnabled("api"), "production mode disables all categories")

	lc.DebugMode = true
	assert.True(t, lc.IsCategoryEnabled("api"))

	lc.Categories = map[string]bool{"api": false, "autosave": true}
	assert.False(t, lc.IsCategoryEnabled("api"))
	assert.True(t, lc.IsCategoryEnabled("autosave"))
	assert.True(t, lc.IsCategoryEnabled("pending"), "unlisted categories default on")
}
