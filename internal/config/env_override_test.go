package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvOverrides_APIURL(t *testing.T) {
	t.Run("PRIZEDESK_API_URL overrides file value", func(t *testing.T) {
		t.Setenv("REACT_APP_API_URL", "")
		t.Setenv("PRIZEDESK_API_URL", "http://env:5000/api")

		cfg := &Config{API: APIConfig{BaseURL: "http://file:5000/api"}}
		cfg.applyEnvOverrides()

		assert.Equal(t, "http://env:5000/api", cfg.API.BaseURL)
	})

	t.Run("legacy REACT_APP_API_URL is honored", func(t *testing.T) {
		t.Setenv("PRIZEDESK_API_URL", "")
		t.Setenv("REACT_APP_API_URL", "http://legacy:5000/api")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "http://legacy:5000/api", cfg.API.BaseURL)
	})

	t.Run("Precedence: PRIZEDESK wins over legacy", func(t *testing.T) {
		t.Setenv("REACT_APP_API_URL", "http://legacy:5000/api")
		t.Setenv("PRIZEDESK_API_URL", "http://env:5000/api")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "http://env:5000/api", cfg.API.BaseURL)
	})
}

func TestEnvOverrides_ThemeAndDebug(t *testing.T) {
	t.Setenv("PRIZEDESK_THEME", "light")
	t.Setenv("PRIZEDESK_DEBUG", "true")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "light", cfg.UI.Theme)
	assert.True(t, cfg.Logging.DebugMode)

	t.Run("unparseable debug flag is ignored", func(t *testing.T) {
		t.Setenv("PRIZEDESK_DEBUG", "sometimes")
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.False(t, cfg.Logging.DebugMode)
	})
}

func TestLoad_AppliesEnvOverridesWithoutFile(t *testing.T) {
	t.Setenv("REACT_APP_API_URL", "")
	t.Setenv("PRIZEDESK_API_URL", "http://env-only:5000/api")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://env-only:5000/api", cfg.API.BaseURL)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Run("no file is fine", func(t *testing.T) {
		assert.NoError(t, LoadDotEnv())
	})

	t.Run("file populates unset variables", func(t *testing.T) {
		t.Setenv("PRIZEDESK_API_URL", "")
		require.NoError(t, os.Unsetenv("PRIZEDESK_API_URL"))
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PRIZEDESK_API_URL=http://dotenv:5000/api\n"), 0644))

		require.NoError(t, LoadDotEnv())
		assert.Equal(t, "http://dotenv:5000/api", os.Getenv("PRIZEDESK_API_URL"))
	})
}
