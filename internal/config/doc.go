// Package config loads multiwin configuration.
//
// Settings come from built-in defaults, then an optional TOML or YAML file
// (chosen by extension), then MULTIWIN_* environment variables. The result
// is validated before use. Watch reloads the file when it changes.
package config
