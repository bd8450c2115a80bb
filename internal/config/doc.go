// Package config loads and validates application settings from environment
// variables prefixed with STUDYKIT_ and an optional config.yaml.
package config
