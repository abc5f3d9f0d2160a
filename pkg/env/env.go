// Package env reads process environment variables with defaults, for
// the few knobs resolved before the config layer loads.
package env

import "os"

// Get looks up key in the process environment. Unset or empty
// variables resolve to def.
func Get(key, def string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return def
}
