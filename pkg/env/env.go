// Package env reads individual environment variables that must be
// available before the envconfig-managed configuration is loaded,
// such as the log format the bootstrap logger uses.
package env

import (
	"os"
	"strings"
)

// Get returns the trimmed value of key, or fallback when the variable
// is unset or blank.
func Get(key, fallback string) string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	val = strings.TrimSpace(val)
	if val == "" {
		return fallback
	}
	return val
}
