// Package config resolves the tunables of the ULDB storage engine from
// environment variables, following the same load-with-defaults idiom the
// rest of the ULDB ambient stack uses: no flag parsing, no config files,
// just env vars with validated, sensible defaults resolved once when the
// database is opened.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the tunables of the storage engine. A zero Config is never
// used directly; call Load to obtain one with defaults applied and
// validated.
type Config struct {
	// StringBufferInitialCapacity is the size, in bytes, of a freshly
	// created table's string buffer.
	// Environment: ULDB_STRING_BUFFER_INITIAL_CAPACITY
	// Default: 16 (per the fixed on-disk layout in §4.2)
	StringBufferInitialCapacity int

	// StringBufferGrowthFactor is the multiplier applied to the string
	// buffer's capacity each time it must grow to fit a new string.
	// Environment: ULDB_STRING_BUFFER_GROWTH_FACTOR
	// Default: 4. Must be a power of two >= 2.
	StringBufferGrowthFactor int

	// LogLevel is the minimum severity the engine's logger emits.
	// Environment: ULDB_LOG_LEVEL
	// Default: "info"
	LogLevel string
}

// Load resolves a Config from environment variables, applying defaults for
// anything unset and validating the result.
func Load() (Config, error) {
	cfg := Config{
		StringBufferInitialCapacity: getEnvInt("ULDB_STRING_BUFFER_INITIAL_CAPACITY", 16),
		StringBufferGrowthFactor:    getEnvInt("ULDB_STRING_BUFFER_GROWTH_FACTOR", 4),
		LogLevel:                    getEnv("ULDB_LOG_LEVEL", "info"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the engine's built-in defaults, bypassing the environment.
func Default() Config {
	cfg := Config{
		StringBufferInitialCapacity: 16,
		StringBufferGrowthFactor:    4,
		LogLevel:                    "info",
	}
	return cfg
}

// Validate checks that the configuration values satisfy the invariants the
// storage engine relies on (§4.3/§9: growth factor is a power of two >= 2).
func (c Config) Validate() error {
	if c.StringBufferInitialCapacity <= 0 {
		return fmt.Errorf("config: string buffer initial capacity must be positive, got %d", c.StringBufferInitialCapacity)
	}
	if c.StringBufferGrowthFactor < 2 || !isPowerOfTwo(c.StringBufferGrowthFactor) {
		return fmt.Errorf("config: string buffer growth factor must be a power of two >= 2, got %d", c.StringBufferGrowthFactor)
	}
	return nil
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
