// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	apiKey := cfg.GetAPIKey(cfg.OpenAI.APIKey, "OPENAI_API_KEY")
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration.
type Config struct {
	OpenAI         OpenAIConfig         `yaml:"openai"`
	Reconciliation ReconciliationConfig `yaml:"reconciliation"`
	Server         ServerConfig         `yaml:"server"`
	Observability  ObservabilityConfig  `yaml:"observability"`
}

// OpenAIConfig holds OpenAI API configuration for the analysis augmenter.
type OpenAIConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// ReconciliationConfig holds matching and classification settings.
// Tolerances are decimal strings so they survive YAML round-trips exactly.
type ReconciliationConfig struct {
	RoundingTolerance string `yaml:"rounding_tolerance"` // at or below: amounts agree
	AmountTolerance   string `yaml:"amount_tolerance"`   // at or below: rounding difference
	AIBatchSize       int    `yaml:"ai_batch_size"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ObservabilityConfig holds observability settings.
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${OPENAI_API_KEY})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() *Config {
	cfg := &Config{
		OpenAI: OpenAIConfig{
			APIKey: os.Getenv("OPENAI_API_KEY"),
			Model:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		},
		Reconciliation: ReconciliationConfig{
			RoundingTolerance: getEnv("RECON_ROUNDING_TOLERANCE", "0.01"),
			AmountTolerance:   getEnv("RECON_AMOUNT_TOLERANCE", "1.00"),
			AIBatchSize:       getEnvInt("RECON_AI_BATCH_SIZE", 100),
		},
		Server: ServerConfig{
			Port: getEnvInt("RECON_API_PORT", 8080),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
		},
	}
	cfg.applyDefaults()
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables.
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from the specified path, falls back to
// environment variables.
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

func (c *Config) applyDefaults() {
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if c.Reconciliation.RoundingTolerance == "" {
		c.Reconciliation.RoundingTolerance = "0.01"
	}
	if c.Reconciliation.AmountTolerance == "" {
		c.Reconciliation.AmountTolerance = "1.00"
	}
	if c.Reconciliation.AIBatchSize <= 0 {
		c.Reconciliation.AIBatchSize = 100
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}
}

// getEnv retrieves an environment variable with a fallback default.
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default.
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

// GetAPIKey retrieves an API key from config first, then tries multiple
// environment variable names in order.
func (c *Config) GetAPIKey(configValue string, envVarNames ...string) string {
	if configValue != "" {
		return configValue
	}
	for _, envVar := range envVarNames {
		if val := os.Getenv(envVar); val != "" {
			return val
		}
	}
	return ""
}
