package settings

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MigrationResult describes what Migrate did to a settings file.
type MigrationResult struct {
	WasMigrated     bool
	FromVersion     string
	ToVersion       string
	PreservedData   []string // keys carried over
	DefaultsApplied []string // keys reset to defaults
}

// legacyKeys maps keys of the first schema to their current names.
var legacyKeys = map[string]string{
	"auto_save_interval":       "autosave_minutes",
	"security_logging_enabled": "security_logging",
	"data_retention_days":      "retention_days",
}

// Migrate upgrades the settings file at path to the current schema. Valid
// values are kept, unknown or invalid ones fall back to defaults. A missing
// file is left alone.
func Migrate(path string) (*MigrationResult, error) {
	result := &MigrationResult{ToVersion: Version}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		// Unreadable file: start over from defaults.
		result.WasMigrated = true
		result.DefaultsApplied = []string{"all"}
		return result, NewManager(path).write(Defaults())
	}

	version, _ := raw["version"].(string)
	result.FromVersion = version
	if version == Version {
		return result, nil
	}

	for old, cur := range legacyKeys {
		if v, ok := raw[old]; ok {
			if _, exists := raw[cur]; !exists {
				raw[cur] = v
			}
			delete(raw, old)
		}
	}

	s := Defaults()
	defaults := Defaults()
	for _, key := range Keys {
		v, ok := raw[key]
		if !ok {
			result.DefaultsApplied = append(result.DefaultsApplied, key)
			continue
		}
		if err := s.Set(key, fmt.Sprint(v)); err != nil {
			result.DefaultsApplied = append(result.DefaultsApplied, key)
			continue
		}
		result.PreservedData = append(result.PreservedData, key)
	}

	// Keep whatever validates; reset the rest field by field.
	for _, key := range Keys {
		probe := defaults
		val, _ := s.Get(key)
		_ = probe.Set(key, val)
		if probe.Validate() != nil {
			def, _ := defaults.Get(key)
			_ = s.Set(key, def)
			result.PreservedData = remove(result.PreservedData, key)
			result.DefaultsApplied = append(result.DefaultsApplied, key)
		}
	}

	s.Version = Version
	result.WasMigrated = true
	return result, NewManager(path).write(s)
}

func remove(keys []string, key string) []string {
	out := keys[:0]
	for _, k := range keys {
		if k != key {
			out = append(out, k)
		}
	}
	return out
}
