package config

import (
	"fmt"
	"slices"
	"time"
)

// UIConfig holds terminal UI configuration.
type UIConfig struct {
	// Theme is "dark", "light" or empty to detect from the terminal.
	Theme string `yaml:"theme"`

	// PageSize is the default number of rows per table page.
	PageSize int `yaml:"page_size"`

	// PageSizes are the sizes the operator can cycle through.
	PageSizes []int `yaml:"page_sizes"`

	// RefreshIntervals are the auto-refresh choices, e.g. "10m".
	RefreshIntervals []string `yaml:"refresh_intervals"`

	// DefaultRefresh is the interval selected when auto-refresh is switched on.
	DefaultRefresh string `yaml:"default_refresh"`

	// NotificationTTL is how long a notification stays on screen.
	NotificationTTL string `yaml:"notification_ttl"`

	// PublishRedirectDelay is the pause before returning to the list after publishing.
	PublishRedirectDelay string `yaml:"publish_redirect_delay"`
}

// DefaultUIConfig returns sensible UI defaults.
func DefaultUIConfig() *UIConfig {
	return &UIConfig{
		PageSize:             10,
		PageSizes:            []int{5, 10, 25, 50},
		RefreshIntervals:     []string{"5m", "10m", "30m", "60m"},
		DefaultRefresh:       "10m",
		NotificationTTL:      "3s",
		PublishRedirectDelay: "1s",
	}
}

// GetNotificationTTL returns the notification lifetime.
func (u *UIConfig) GetNotificationTTL() time.Duration {
	return parseDurationOr(u.NotificationTTL, 3*time.Second)
}

// GetPublishRedirectDelay returns the delay before leaving a published record.
func (u *UIConfig) GetPublishRedirectDelay() time.Duration {
	return parseDurationOr(u.PublishRedirectDelay, time.Second)
}

// GetDefaultRefresh returns the auto-refresh interval used when it is enabled.
func (u *UIConfig) GetDefaultRefresh() time.Duration {
	return parseDurationOr(u.DefaultRefresh, 10*time.Minute)
}

// GetRefreshIntervals returns the parsed refresh choices, skipping invalid entries.
func (u *UIConfig) GetRefreshIntervals() []time.Duration {
	out := make([]time.Duration, 0, len(u.RefreshIntervals))
	for _, s := range u.RefreshIntervals {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		return []time.Duration{5 * time.Minute, 10 * time.Minute, 30 * time.Minute, 60 * time.Minute}
	}
	return out
}

// Validate checks the page size against the allowed sizes.
func (u *UIConfig) Validate() error {
	if len(u.PageSizes) == 0 {
		return fmt.Errorf("ui.page_sizes must not be empty")
	}
	for _, s := range u.PageSizes {
		if s <= 0 {
			return fmt.Errorf("ui.page_sizes contains non-positive size %d", s)
		}
	}
	if !slices.Contains(u.PageSizes, u.PageSize) {
		return fmt.Errorf("ui.page_size %d is not one of %v", u.PageSize, u.PageSizes)
	}
	switch u.Theme {
	case "", "dark", "light":
	default:
		return fmt.Errorf("ui.theme must be dark or light, got %q", u.Theme)
	}
	return nil
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
