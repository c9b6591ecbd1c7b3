package config

// LoggingConfig controls the debug logs written under .prizedesk/logs. The
// audit log is switched by the operator settings instead and ignores this.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level,omitempty"`
	Format string `yaml:"format" json:"format,omitempty"` // "json" or console text

	// DebugMode off means no per-category files at all.
	DebugMode bool `yaml:"debug_mode" json:"debug_mode,omitempty"`

	// Categories switches single logs (api, autosave, verification, ...)
	// off. A category missing from the map is on.
	Categories map[string]bool `yaml:"categories" json:"categories,omitempty"`
}

// IsCategoryEnabled reports whether the named category gets a log file.
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if !c.DebugMode {
		return false
	}
	on, listed := c.Categories[category]
	return on || !listed
}
