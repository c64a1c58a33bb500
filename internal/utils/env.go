package utils

import "os"

// GetEnvString returns the value of the environment variable key, or
// defaultVal when it is unset or empty.
func GetEnvString(key string, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}
