// Package config loads and validates the monitor's YAML configuration.
// Secrets are never stored in the file itself: credential fields name
// environment variables (`*_env` keys) that are resolved at use time.
// Watch provides hot reload of the file between reporting cycles.
package config
