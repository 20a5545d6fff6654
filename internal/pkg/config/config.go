// Package config reads typed configuration values.
//
// The application depends on the Config interface; Viper is the only
// implementation. Keys are dotted paths into the YAML document, e.g.
// "modules.otp.ttl_minutes". Every key can be overridden by an environment
// variable with the OTPGATE_ prefix and dots replaced by underscores.
package config

import (
	"io"
	"time"
)

// Config defines the typed getters used across the application.
//
// Missing keys or values that cannot be converted yield the zero value, or the
// registered default when one exists.
type Config interface {
	io.Closer

	// GetSecond reads an integer as a number of seconds.
	GetSecond(key string) time.Duration
	// GetMinute reads an integer as a number of minutes.
	GetMinute(key string) time.Duration

	GetInt(key string) int
	GetInt64(key string) int64
	GetFloat64(key string) float64
	GetBool(key string) bool
	GetString(key string) string

	// GetBinary reads a base64 encoded value.
	GetBinary(key string) []byte

	// GetArray reads either a YAML list or a "a,b,c" string. Blank entries are dropped.
	GetArray(key string) []string

	// GetMap reads a "k:v,k:v" string.
	GetMap(key string) map[string]string
}
