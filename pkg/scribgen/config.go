package scribgen

import (
	"errors"
	"os"
	"strings"
	"sync"
)

// Config contains process-wide options for the merge engine.
type Config struct {
	// LogLevel controls the verbosity of logging (debug, info, warn, error, off)
	LogLevel string
	// RemoveEmptyText removes unresolved placeholder tokens during
	// substitution and strips now-empty text nodes and their childless page
	// objects at write time.
	RemoveEmptyText bool
	// ExpandRepeats enables detection and expansion of repeat-designated
	// page objects. An expansion run never proceeds to per-record rendering.
	ExpandRepeats bool
	// SkipLinePrefixes lists serialized-line prefixes that substitution must
	// never touch. Color definitions carry literal values that would be
	// corrupted by token replacement.
	SkipLinePrefixes []string
}

var (
	globalConfig      *Config
	globalConfigMutex sync.RWMutex
	configOnce        sync.Once
)

func init() {
	configOnce.Do(func() {
		globalConfig = ConfigFromEnvironment()
	})
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		LogLevel:         "info",
		RemoveEmptyText:  true,
		ExpandRepeats:    true,
		SkipLinePrefixes: []string{"<COLOR "},
	}
}

// ConfigFromEnvironment creates a configuration from environment variables
func ConfigFromEnvironment() *Config {
	config := DefaultConfig()

	// SCRIBGEN_LOG_LEVEL
	if val := os.Getenv("SCRIBGEN_LOG_LEVEL"); val != "" {
		config.LogLevel = val
	}

	// SCRIBGEN_REMOVE_EMPTY_TEXT
	if val := os.Getenv("SCRIBGEN_REMOVE_EMPTY_TEXT"); val != "" {
		config.RemoveEmptyText = parseBool(val)
	}

	// SCRIBGEN_EXPAND_REPEATS
	if val := os.Getenv("SCRIBGEN_EXPAND_REPEATS"); val != "" {
		config.ExpandRepeats = parseBool(val)
	}

	// SCRIBGEN_SKIP_LINE_PREFIXES (comma separated)
	if val := os.Getenv("SCRIBGEN_SKIP_LINE_PREFIXES"); val != "" {
		config.SkipLinePrefixes = nil
		for _, p := range strings.Split(val, ",") {
			if p != "" {
				config.SkipLinePrefixes = append(config.SkipLinePrefixes, p)
			}
		}
	}

	return config
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"off":   true,
	}

	if !validLogLevels[c.LogLevel] {
		return errors.New("invalid log level: " + c.LogLevel)
	}

	return nil
}

// GetGlobalConfig returns the global configuration
func GetGlobalConfig() *Config {
	globalConfigMutex.RLock()
	defer globalConfigMutex.RUnlock()

	if globalConfig == nil {
		return DefaultConfig()
	}

	// Return a copy to prevent modification
	configCopy := *globalConfig
	return &configCopy
}

// SetGlobalConfig sets the global configuration
func SetGlobalConfig(config *Config) {
	globalConfigMutex.Lock()
	globalConfig = config
	globalConfigMutex.Unlock()

	UpdateLoggerFromConfig()
}

// parseBool parses a boolean value from a string
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
