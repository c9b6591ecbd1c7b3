// Package settings holds the operator settings edited on the settings page:
// system identity, autosave cadence, notification and audit switches, data
// retention and backup policy, and display preferences.
//
// Settings are stored as YAML next to the config file and carry a schema
// version so older files are upgraded in place on load.
package settings
