package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the auth service.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Environment string         `yaml:"environment"`
	Server      ServerConfig   `yaml:"server"`
	Database    DatabaseConfig `yaml:"database"`
	Logging     LoggingConfig  `yaml:"logging"`
	Security    SecurityConfig `yaml:"security"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host     string              `yaml:"host"`
	Port     int                 `yaml:"port"`
	Timeouts ServerTimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig          `yaml:"cors"`
}

// ServerTimeoutConfig contains HTTP timeout settings, in seconds.
type ServerTimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT       JWTConfig       `yaml:"jwt"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// JWTConfig contains JWT token settings.
//
// Access and refresh tokens are signed with independent secrets so a leaked
// access secret cannot be used to mint long-lived refresh tokens.
// TTLs are expressed in minutes.
type JWTConfig struct {
	AccessSecret    string `yaml:"access_secret"`
	RefreshSecret   string `yaml:"refresh_secret"`
	AccessTokenTTL  int    `yaml:"access_token_ttl"`
	RefreshTokenTTL int    `yaml:"refresh_token_ttl"`
}

// RateLimitConfig contains request rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
}

// Default token TTLs in minutes: 15-minute access tokens, 7-day refresh tokens.
const (
	defaultAccessTokenTTL  = 15
	defaultRefreshTokenTTL = 7 * 24 * 60
)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern AUTHCORE_SECTION_KEY. The
// overridable keys are:
//
//	AUTHCORE_ENVIRONMENT
//	AUTHCORE_SERVER_HOST, AUTHCORE_SERVER_PORT
//	AUTHCORE_DATABASE_PATH
//	AUTHCORE_LOGGING_LEVEL, AUTHCORE_LOGGING_FORMAT, AUTHCORE_LOGGING_OUTPUT
//	AUTHCORE_JWT_ACCESS_SECRET, AUTHCORE_JWT_REFRESH_SECRET
//	AUTHCORE_JWT_ACCESS_TOKEN_TTL, AUTHCORE_JWT_REFRESH_TOKEN_TTL
//	AUTHCORE_RATE_LIMIT_ENABLED, AUTHCORE_RATE_LIMIT_REQUESTS_PER_MINUTE
//
// Timeouts and CORS lists are file-only settings.
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: ServerTimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/authcore.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL:  defaultAccessTokenTTL,
				RefreshTokenTTL: defaultRefreshTokenTTL,
			},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 100,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// The supported variables are listed in the Load godoc; unparseable numeric or
// boolean values leave the file value in place.
func applyEnvOverrides(cfg *Config) {
	envString("AUTHCORE_ENVIRONMENT", &cfg.Environment)

	// Server
	envString("AUTHCORE_SERVER_HOST", &cfg.Server.Host)
	envInt("AUTHCORE_SERVER_PORT", &cfg.Server.Port)

	// Database
	envString("AUTHCORE_DATABASE_PATH", &cfg.Database.Path)

	// Logging
	envString("AUTHCORE_LOGGING_LEVEL", &cfg.Logging.Level)
	envString("AUTHCORE_LOGGING_FORMAT", &cfg.Logging.Format)
	envString("AUTHCORE_LOGGING_OUTPUT", &cfg.Logging.Output)

	// Security - JWT secrets (IMPORTANT: always set these in production)
	envString("AUTHCORE_JWT_ACCESS_SECRET", &cfg.Security.JWT.AccessSecret)
	envString("AUTHCORE_JWT_REFRESH_SECRET", &cfg.Security.JWT.RefreshSecret)
	envInt("AUTHCORE_JWT_ACCESS_TOKEN_TTL", &cfg.Security.JWT.AccessTokenTTL)
	envInt("AUTHCORE_JWT_REFRESH_TOKEN_TTL", &cfg.Security.JWT.RefreshTokenTTL)
	envBool("AUTHCORE_RATE_LIMIT_ENABLED", &cfg.Security.RateLimit.Enabled)
	envInt("AUTHCORE_RATE_LIMIT_REQUESTS_PER_MINUTE", &cfg.Security.RateLimit.RequestsPerMinute)
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// IsProduction reports whether the service runs in production mode.
// Error responses omit stack traces in production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// Security validation - both JWT secrets are REQUIRED.
	// Empty or weak secrets would allow attackers to forge tokens.
	const minJWTSecretLength = 32
	switch {
	case c.Security.JWT.AccessSecret == "":
		errs = append(errs, "security.jwt.access_secret is required (set AUTHCORE_JWT_ACCESS_SECRET environment variable)")
	case len(c.Security.JWT.AccessSecret) < minJWTSecretLength:
		errs = append(errs, "security.jwt.access_secret must be at least 32 characters for adequate security")
	}
	switch {
	case c.Security.JWT.RefreshSecret == "":
		errs = append(errs, "security.jwt.refresh_secret is required (set AUTHCORE_JWT_REFRESH_SECRET environment variable)")
	case len(c.Security.JWT.RefreshSecret) < minJWTSecretLength:
		errs = append(errs, "security.jwt.refresh_secret must be at least 32 characters for adequate security")
	}
	if c.Security.JWT.AccessSecret != "" && c.Security.JWT.AccessSecret == c.Security.JWT.RefreshSecret {
		errs = append(errs, "security.jwt.access_secret and refresh_secret must be distinct")
	}

	if c.Security.JWT.AccessTokenTTL <= 0 {
		errs = append(errs, "security.jwt.access_token_ttl must be positive")
	}
	if c.Security.JWT.RefreshTokenTTL <= 0 {
		errs = append(errs, "security.jwt.refresh_token_ttl must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the server read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the server write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the server idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Idle) * time.Second
}

// AccessTokenDuration returns the access token lifetime as a Duration.
func (c *JWTConfig) AccessTokenDuration() time.Duration {
	return time.Duration(c.AccessTokenTTL) * time.Minute
}

// RefreshTokenDuration returns the refresh token lifetime as a Duration.
func (c *JWTConfig) RefreshTokenDuration() time.Duration {
	return time.Duration(c.RefreshTokenTTL) * time.Minute
}
