package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/flexprice/ratelimiter/internal/types"
	"github.com/flexprice/ratelimiter/internal/validator"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Auth       AuthConfig       `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig   `validate:"required"`
	Sentry     SentryConfig     `validate:"required"`
	Cache      CacheConfig      `validate:"required"`
	RateLimit  RateLimitConfig  `validate:"required"`
	Provider   ProviderConfig   `validate:"required"`
}

type CacheConfig struct {
	Enabled            bool `mapstructure:"enabled"`
	ProviderTTLSeconds int  `mapstructure:"provider_ttl_seconds" default:"30"`
}

type DeploymentConfig struct {
	Mode types.RunMode `mapstructure:"mode" validate:"required"`
}

type ServerConfig struct {
	Address string `mapstructure:"address" validate:"required"`
}

type AuthConfig struct {
	APIKey APIKeyConfig `mapstructure:"api_key"`
}

type LoggingConfig struct {
	Level types.LogLevel `mapstructure:"level" validate:"required"`
}

type PostgresConfig struct {
	Host                   string `mapstructure:"host" validate:"required"`
	Port                   int    `mapstructure:"port" validate:"required"`
	User                   string `mapstructure:"user" validate:"required"`
	Password               string `mapstructure:"password" validate:"required"`
	DBName                 string `mapstructure:"dbname" validate:"required"`
	SSLMode                string `mapstructure:"sslmode" validate:"required"`
	MaxOpenConns           int    `mapstructure:"max_open_conns" default:"10"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns" default:"5"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes" default:"60"`
	AutoMigrate            bool   `mapstructure:"auto_migrate" default:"false"`
}

type APIKeyConfig struct {
	Header string                   `mapstructure:"header" validate:"required" default:"x-api-key"`
	Keys   map[string]APIKeyDetails `mapstructure:"keys"` // map of hashed API key to its details
}

type APIKeyDetails struct {
	TenantID string `mapstructure:"tenant_id" json:"tenant_id" validate:"required"`
	UserID   string `mapstructure:"user_id" json:"user_id" validate:"required"`
	Name     string `mapstructure:"name" json:"name" validate:"required"`      // description of what this key is for
	IsActive bool   `mapstructure:"is_active" json:"is_active" default:"true"` // whether this key is active
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate" default:"1.0"`
}

// RateLimitConfig mirrors ratelimit.RateLimitsConfig's on-the-wire shape:
// a required "none" tier plus any number of named entitlement tiers.
// Periods omitted from a tier are unlimited for that tier.
type RateLimitConfig struct {
	Entitlements map[string]RateLimitTierConfig `mapstructure:"entitlements" validate:"required"`
}

type RateLimitTierConfig struct {
	Hourly  *int64 `mapstructure:"hourly"`
	Daily   *int64 `mapstructure:"daily"`
	Monthly *int64 `mapstructure:"monthly"`
}

// ProviderConfig configures the Subscription Provider Adapter. When
// BaseURL is empty the static/config-driven adapter is used instead of
// the HTTP one (§4 of SPEC_FULL.md).
type ProviderConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" default:"5"`
	TestMode       bool   `mapstructure:"test_mode"`
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	// Step 1: Load `.env` if it exists
	_ = godotenv.Load()

	// Step 2: Initialize Viper
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath("./config")

	// Step 3: Set up environment variables support
	v.SetEnvPrefix("RATELIMITER")
	v.AutomaticEnv()

	// Step 4: Environment variable key mapping (e.g., RATELIMITER_POSTGRES_HOST)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Step 5: Read the YAML file
	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Error reading config file: %v\n", err)
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into config struct, %v", err)
	}

	// Step 6: Parse API keys when supplied as a JSON blob (e.g. via env var)
	apiKeysStr := v.GetString("auth.api_key.keys")
	if apiKeysStr != "" {
		var apiKeys map[string]APIKeyDetails
		if err := json.Unmarshal([]byte(apiKeysStr), &apiKeys); err != nil {
			return nil, fmt.Errorf("failed to parse API keys JSON: %v", err)
		}
		cfg.Auth.APIKey.Keys = apiKeys
	}

	if _, ok := cfg.RateLimit.Entitlements["none"]; !ok {
		return nil, fmt.Errorf("rate_limit.entitlements.none is required")
	}

	return &cfg, nil
}

func (c Configuration) Validate() error {
	return validator.ValidateRequest(c)
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or other non-web applications
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		RateLimit: RateLimitConfig{
			Entitlements: map[string]RateLimitTierConfig{
				"none": {},
			},
		},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}
