// Package env reads process configuration from environment variables.
// It is deliberately narrower than the teacher's viper-backed config
// package: the four pipeline binaries have no file-based hierarchical
// config beyond the WakeDetector's JSON pattern file (see
// internal/wakedetector and internal/configwatch), so a typed
// os.Getenv wrapper with defaults covers every setting spec.md §5/§6
// name.
package env

import (
	"os"
	"strconv"
	"time"
)

// String returns the value of key, or def if unset or empty.
func String(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Int returns the integer value of key, or def if unset, empty, or
// unparseable.
func Int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Float returns the float64 value of key, or def if unset, empty, or
// unparseable.
func Float(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// Bool returns the boolean value of key, or def if unset, empty, or
// unparseable. Accepts strconv.ParseBool's forms ("1", "true", "TRUE", ...).
func Bool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Duration returns the time.Duration value of key (parsed via
// time.ParseDuration, e.g. "60s"), or def if unset, empty, or
// unparseable.
func Duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// Required returns the value of key, or an error if it is unset or empty.
func Required(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", &MissingError{Key: key}
	}
	return v, nil
}

// MissingError reports a required environment variable that was unset.
type MissingError struct {
	Key string
}

func (e *MissingError) Error() string {
	return "env: required variable " + e.Key + " is not set"
}
