package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultDir is the workspace directory holding config, settings and logs.
const DefaultDir = ".prizedesk"

// DefaultAPIURL is the backend base URL used when nothing else is configured.
const DefaultAPIURL = "http://localhost:5000/api"

// Config holds all prizedesk configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Backend REST API
	API APIConfig `yaml:"api"`

	// Terminal UI behavior
	UI UIConfig `yaml:"ui"`

	// Verification form autosave
	Autosave AutosaveConfig `yaml:"autosave"`

	// Operator settings file
	Settings SettingsConfig `yaml:"settings"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig configures the backend client.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// AutosaveConfig configures the debounced autosave of the verification form.
type AutosaveConfig struct {
	Debounce string `yaml:"debounce"`
}

// SettingsConfig points at the operator settings file.
type SettingsConfig struct {
	Path string `yaml:"path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "prizedesk",
		Version: "1.0.0",

		API: APIConfig{
			BaseURL: DefaultAPIURL,
			Timeout: "15s",
		},

		UI: *DefaultUIConfig(),

		Autosave: AutosaveConfig{
			Debounce: "500ms",
		},

		Settings: SettingsConfig{
			Path: filepath.Join(DefaultDir, "settings.yaml"),
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultConfigPath returns the config path inside the current workspace.
func DefaultConfigPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return filepath.Join(DefaultDir, "config.yaml")
	}
	return filepath.Join(cwd, DefaultDir, "config.yaml")
}

// LoadDotEnv loads a .env file from the working directory if one exists.
// Variables already present in the environment win.
func LoadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat .env: %w", err)
	}
	if err := godotenv.Load(); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// REACT_APP_API_URL is read for .env files shared with the web frontend.
	if u := os.Getenv("REACT_APP_API_URL"); u != "" {
		c.API.BaseURL = u
	}
	if u := os.Getenv("PRIZEDESK_API_URL"); u != "" {
		c.API.BaseURL = u
	}

	if theme := os.Getenv("PRIZEDESK_THEME"); theme != "" {
		c.UI.Theme = theme
	}

	if v := os.Getenv("PRIZEDESK_DEBUG"); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = debug
		}
	}
}

// GetAPITimeout returns the per-request API timeout as a duration.
func (c *Config) GetAPITimeout() time.Duration {
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// GetAutosaveDebounce returns the autosave quiet period as a duration.
func (c *Config) GetAutosaveDebounce() time.Duration {
	d, err := time.ParseDuration(c.Autosave.Debounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// SettingsPath returns the operator settings file path.
func (c *Config) SettingsPath() string {
	if c.Settings.Path == "" {
		return filepath.Join(DefaultDir, "settings.yaml")
	}
	return c.Settings.Path
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid api base_url %q: %w", c.API.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid api base_url %q: scheme must be http or https", c.API.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid api base_url %q: missing host", c.API.BaseURL)
	}

	return c.UI.Validate()
}
