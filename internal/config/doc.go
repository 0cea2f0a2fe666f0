// Package config loads and validates application settings from defaults,
// an optional config.yaml and QUESTBOARD_-prefixed environment variables.
package config
