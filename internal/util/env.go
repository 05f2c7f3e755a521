package util

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// GetEnv returns the env variable with the given key or the provided default.
func GetEnv(key string, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// GetEnvAsInt returns the env variable parsed as int or the provided default.
func GetEnvAsInt(key string, defaultVal int) int {
	strVal, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	val, err := strconv.Atoi(strVal)
	if err != nil {
		log.Warn().Str("key", key).Str("value", strVal).Msg("Failed to parse env variable as int, using default")
		return defaultVal
	}
	return val
}

// GetEnvAsBool returns the env variable parsed as bool or the provided default.
func GetEnvAsBool(key string, defaultVal bool) bool {
	strVal, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	val, err := strconv.ParseBool(strVal)
	if err != nil {
		log.Warn().Str("key", key).Str("value", strVal).Msg("Failed to parse env variable as bool, using default")
		return defaultVal
	}
	return val
}

// GetEnvAsDuration returns the env variable parsed as time.Duration or the provided default.
func GetEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	strVal, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	val, err := time.ParseDuration(strVal)
	if err != nil {
		log.Warn().Str("key", key).Str("value", strVal).Msg("Failed to parse env variable as duration, using default")
		return defaultVal
	}
	return val
}
