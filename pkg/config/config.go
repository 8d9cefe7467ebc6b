// Package config loads the application configuration from YAML with
// environment fallbacks for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/formflow-dev/formflow/internal/search"
)

// Config represents the application configuration
type Config struct {
	// Extractor selects the extraction collaborator
	Extractor ExtractorConfig `yaml:"extractor"`

	// Store selects the session store backend
	Store StoreConfig `yaml:"store"`

	// Search configures the optional context augmentation documents
	Search SearchConfig `yaml:"search"`

	// TurnTimeout bounds each collaborator call
	TurnTimeout time.Duration `yaml:"turn_timeout"`

	// MetricsPort is the health/metrics listen port (0 disables the server)
	MetricsPort int `yaml:"metrics_port"`
}

// ExtractorConfig holds extraction collaborator configuration
type ExtractorConfig struct {
	// Provider is "openai" or "gemini"
	Provider string `yaml:"provider"`
	// Model overrides the provider default model
	Model string `yaml:"model"`

	OpenAIKey string `yaml:"openai_key"`
	GeminiKey string `yaml:"gemini_key"`

	// RateLimitRPS caps outbound requests per second (0 disables limiting)
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

// StoreConfig holds session store configuration
type StoreConfig struct {
	// Backend is "memory", "redis", or "firestore"
	Backend string `yaml:"backend"`

	// SessionTTL expires idle sessions (0 keeps them forever)
	SessionTTL time.Duration `yaml:"session_ttl"`
	// SweepSchedule is the cron spec for expiring in-memory sessions
	SweepSchedule string `yaml:"sweep_schedule"`

	Redis     RedisConfig     `yaml:"redis"`
	Firestore FirestoreConfig `yaml:"firestore"`
}

// RedisConfig holds redis connection settings
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
	PoolSize int    `yaml:"pool_size"`
}

// FirestoreConfig holds firestore connection settings
type FirestoreConfig struct {
	Project     string `yaml:"project"`
	Collection  string `yaml:"collection"`
	Credentials string `yaml:"credentials"`
}

// SearchConfig holds context augmentation settings
type SearchConfig struct {
	Enabled   bool              `yaml:"enabled"`
	TopK      int               `yaml:"top_k"`
	Documents []search.Document `yaml:"documents"`
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration usable without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Extractor.Provider == "" {
		c.Extractor.Provider = "openai"
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "memory"
	}
	if c.TurnTimeout == 0 {
		c.TurnTimeout = 60 * time.Second
	}
	if c.Store.Redis.Addr == "" {
		c.Store.Redis.Addr = "localhost:6379"
	}
	if c.Store.Firestore.Collection == "" {
		c.Store.Firestore.Collection = "formflow_sessions"
	}

	// Secrets fall back to the environment so config files stay shareable
	if c.Extractor.OpenAIKey == "" {
		c.Extractor.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Extractor.GeminiKey == "" {
		c.Extractor.GeminiKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.Store.Firestore.Project == "" {
		c.Store.Firestore.Project = os.Getenv("GCP_PROJECT")
	}
	if c.Store.Firestore.Credentials == "" {
		c.Store.Firestore.Credentials = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Extractor.Provider {
	case "openai":
		if c.Extractor.OpenAIKey == "" {
			return fmt.Errorf("openai_key is required for the openai provider")
		}
	case "gemini":
		if c.Extractor.GeminiKey == "" {
			return fmt.Errorf("gemini_key is required for the gemini provider")
		}
	default:
		return fmt.Errorf("unknown extractor provider: %s", c.Extractor.Provider)
	}

	switch c.Store.Backend {
	case "memory", "redis":
	case "firestore":
		if c.Store.Firestore.Project == "" {
			return fmt.Errorf("firestore project is required for the firestore backend")
		}
	default:
		return fmt.Errorf("unknown store backend: %s", c.Store.Backend)
	}

	return nil
}
