// Package config loads the settings of the viewer end-to-end suite.
// Everything comes from environment variables with defaults that match a
// local oCIS started with its development certificate.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL       = "https://localhost:9200"
	defaultAdminUser     = "admin"
	defaultAdminPassword = "admin"
	defaultAssetsDir     = "tests/e2e/filesForUpload"
	defaultTimeoutSec    = 60
	defaultMinTimeoutSec = 5
)

// Config holds all suite configuration.
type Config struct {
	// Application under test
	BaseURL       string // BASE_URL_OCIS
	AdminUser     string // ADMIN_USERNAME
	AdminPassword string // ADMIN_PASSWORD
	AssetsDir     string // ASSETS_DIR, local directory holding upload fixtures
	InsecureTLS   bool   // TLS_INSECURE, accept self-signed certificates

	// Browser
	SlowMo     time.Duration // SLOW_MO (milliseconds)
	Timeout    time.Duration // TIMEOUT (seconds), default for every browser action
	MinTimeout time.Duration // MIN_TIMEOUT (seconds), short waits
	Headless   bool          // HEADLESS == "true"

	// Fixture client
	FixtureRPS float64 // FIXTURE_RPS, 0 disables throttling
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// LoadConfig loads configuration from environment variables and validates it.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		BaseURL:       getEnvOrDefault("BASE_URL_OCIS", defaultBaseURL),
		AdminUser:     getEnvOrDefault("ADMIN_USERNAME", defaultAdminUser),
		AdminPassword: getEnvOrDefault("ADMIN_PASSWORD", defaultAdminPassword),
		AssetsDir:     getEnvOrDefault("ASSETS_DIR", defaultAssetsDir),
		InsecureTLS:   parseBoolOrDefault("TLS_INSECURE", true),

		SlowMo:     time.Duration(parseIntOrDefault("SLOW_MO", 0)) * time.Millisecond,
		Timeout:    time.Duration(parseIntOrDefault("TIMEOUT", defaultTimeoutSec)) * time.Second,
		MinTimeout: time.Duration(parseIntOrDefault("MIN_TIMEOUT", defaultMinTimeoutSec)) * time.Second,
		Headless:   strings.TrimSpace(os.Getenv("HEADLESS")) == "true",

		FixtureRPS: parseFloat64OrDefault("FIXTURE_RPS", 0),
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no environment variable is set.
func Default() *Config {
	return &Config{
		BaseURL:       defaultBaseURL,
		AdminUser:     defaultAdminUser,
		AdminPassword: defaultAdminPassword,
		AssetsDir:     defaultAssetsDir,
		InsecureTLS:   true,
		Timeout:       defaultTimeoutSec * time.Second,
		MinTimeout:    defaultMinTimeoutSec * time.Second,
	}
}

// Validate checks that all settings are usable.
func (c *Config) Validate() error {
	var errs []string

	u, err := url.Parse(c.BaseURL)
	switch {
	case c.BaseURL == "":
		errs = append(errs, "BASE_URL_OCIS must not be empty")
	case err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "":
		errs = append(errs, "BASE_URL_OCIS must be an absolute http(s) URL")
	}

	if c.AdminUser == "" {
		errs = append(errs, "ADMIN_USERNAME must not be empty")
	}
	if strings.ContainsAny(c.AdminUser, "/:") {
		errs = append(errs, "ADMIN_USERNAME must not contain '/' or ':'")
	}
	if c.AssetsDir == "" {
		errs = append(errs, "ASSETS_DIR must not be empty")
	}

	if c.SlowMo < 0 {
		errs = append(errs, "SLOW_MO must not be negative")
	}
	if c.Timeout <= 0 {
		errs = append(errs, "TIMEOUT must be positive")
	}
	if c.MinTimeout <= 0 {
		errs = append(errs, "MIN_TIMEOUT must be positive")
	}
	if c.Timeout > 0 && c.MinTimeout > c.Timeout {
		errs = append(errs, "MIN_TIMEOUT must not exceed TIMEOUT")
	}
	if c.FixtureRPS < 0 {
		errs = append(errs, "FIXTURE_RPS must not be negative")
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// TimeoutMS returns Timeout in the float milliseconds Playwright expects.
func (c *Config) TimeoutMS() float64 {
	return float64(c.Timeout.Milliseconds())
}

// MinTimeoutMS returns MinTimeout in float milliseconds.
func (c *Config) MinTimeoutMS() float64 {
	return float64(c.MinTimeout.Milliseconds())
}

// Helper functions for parsing environment variables

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func parseIntOrDefault(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseFloat64OrDefault(key string, defaultValue float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// MustLoadConfig loads configuration and panics if validation fails.
func MustLoadConfig() *Config {
	cfg, err := LoadConfig()
	if err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			panic(fmt.Sprintf("Configuration validation failed:\n  - %s", strings.Join(validationErr.Errors, "\n  - ")))
		}
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}
	return cfg
}
