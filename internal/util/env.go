// Package util provides environment variable helpers shared by the BraveCall binary.
package util

import (
	"log/slog"
	"os"
	"strings"
)

// ParseBoolEnv reads a feature flag from the environment.
// Accepts true/1/yes/on and false/0/no/off (case-insensitive). Unset or invalid values return defaultValue.
func ParseBoolEnv(key string, defaultValue bool) bool {
	val, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(val) == "" {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		slog.Warn("ParseBoolEnv: invalid boolean value, using default", "key", key, "value", val, "default", defaultValue)
		return defaultValue
	}
}

// EnvOrDefault returns the trimmed value of key, or fallback when it is unset or blank.
func EnvOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// FirstNonEmpty returns the first argument that is not blank.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
