// ============================================================================
// Ballsy - Voice Assistant Backend
// ============================================================================
//
// Package:     config
// Description: TOML configuration loading with defaults and env expansion
// License:     MIT
// ============================================================================

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the complete application configuration
type Config struct {
	General   GeneralConfig   `toml:"general"`
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Assistant AssistantConfig `toml:"assistant"`
	Providers ProvidersConfig `toml:"providers"`
	Limits    LimitsConfig    `toml:"limits"`
}

// GeneralConfig holds general application settings
type GeneralConfig struct {
	Name        string `toml:"name"`
	Environment string `toml:"environment"`
	DataDir     string `toml:"data_dir"`
	LogLevel    string `toml:"log_level"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int        `toml:"port"`
	Host         string     `toml:"host"`
	ReadTimeout  Duration   `toml:"read_timeout"`
	WriteTimeout Duration   `toml:"write_timeout"`
	CORS         CORSConfig `toml:"cors"`
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	Enabled        bool     `toml:"enabled"`
	AllowedOrigins []string `toml:"allowed_origins"`
	AllowedMethods []string `toml:"allowed_methods"`
}

// DatabaseConfig holds persistence settings
type DatabaseConfig struct {
	Driver string `toml:"driver"`
	Path   string `toml:"path"`
	DSN    string `toml:"dsn"`
}

// AssistantConfig holds conversation behavior settings
type AssistantConfig struct {
	DefaultProvider    string   `toml:"default_provider"`
	DefaultModel       string   `toml:"default_model"`
	DefaultTemperature float32  `toml:"default_temperature"`
	DefaultMaxTokens   int      `toml:"default_max_tokens"`
	ContextTurns       int      `toml:"context_turns"`
	Timeout            Duration `toml:"timeout"`
	ClearOnStart       bool     `toml:"clear_on_start"`
	SitesDir           string   `toml:"sites_dir"`
}

// ProvidersConfig holds LLM provider configurations
type ProvidersConfig struct {
	Mistral ProviderConfig `toml:"mistral"`
	Gemini  ProviderConfig `toml:"gemini"`
}

// ProviderConfig holds a single provider's configuration
type ProviderConfig struct {
	Enabled bool     `toml:"enabled"`
	BaseURL string   `toml:"base_url"`
	APIKey  string   `toml:"api_key"`
	Model   string   `toml:"model"`
	Timeout Duration `toml:"timeout"`
}

// LimitsConfig holds request and session limits
type LimitsConfig struct {
	MaxCommandLength  int      `toml:"max_command_length"`
	RequestsPerWindow int      `toml:"requests_per_window"`
	RateWindow        Duration `toml:"rate_window"`
	MaxSessions       int      `toml:"max_sessions"`
	SessionTimeout    Duration `toml:"session_timeout"`
	SweepInterval     Duration `toml:"sweep_interval"`
}

// Duration wraps time.Duration for TOML parsing
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText formats the duration as a string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Load loads configuration from a TOML file
func Load(path string) (*Config, error) {
	path = os.ExpandEnv(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.expandEnvVars()

	return &cfg, nil
}

// LoadFromEnv loads configuration from the BALLSY_CONFIG environment variable
// or from the default search paths.
func LoadFromEnv() (*Config, error) {
	path := os.Getenv("BALLSY_CONFIG")
	if path == "" {
		defaultPaths := []string{
			"./configs/config.toml",
			"./config.toml",
			filepath.Join(os.Getenv("HOME"), ".config/ballsy/config.toml"),
		}
		for _, p := range defaultPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path == "" {
		// Run on built-in defaults when no file exists
		cfg := &Config{}
		cfg.applyDefaults()
		cfg.expandEnvVars()
		return cfg, nil
	}

	return Load(path)
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	// General
	if c.General.Name == "" {
		c.General.Name = "Ballsy"
	}
	if c.General.Environment == "" {
		c.General.Environment = "development"
	}
	if c.General.DataDir == "" {
		c.General.DataDir = "./data"
	}
	if c.General.LogLevel == "" {
		c.General.LogLevel = "info"
	}

	// Server
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.ReadTimeout.Duration == 0 {
		c.Server.ReadTimeout.Duration = 30 * time.Second
	}
	if c.Server.WriteTimeout.Duration == 0 {
		c.Server.WriteTimeout.Duration = 120 * time.Second
	}
	if len(c.Server.CORS.AllowedMethods) == 0 {
		c.Server.CORS.AllowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}

	// Database
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = filepath.Join(c.General.DataDir, "ballsy.db")
	}

	// Assistant
	if c.Assistant.DefaultProvider == "" {
		c.Assistant.DefaultProvider = "mistral"
	}
	if c.Assistant.DefaultTemperature == 0 {
		c.Assistant.DefaultTemperature = 0.7
	}
	if c.Assistant.DefaultMaxTokens == 0 {
		c.Assistant.DefaultMaxTokens = 150
	}
	if c.Assistant.ContextTurns == 0 {
		c.Assistant.ContextTurns = 6
	}
	if c.Assistant.Timeout.Duration == 0 {
		c.Assistant.Timeout.Duration = 30 * time.Second
	}

	// Providers
	if c.Providers.Mistral.BaseURL == "" {
		c.Providers.Mistral.BaseURL = "https://api.mistral.ai/v1"
	}
	if c.Providers.Mistral.Model == "" {
		c.Providers.Mistral.Model = "mistral-small-latest"
	}
	if c.Providers.Gemini.BaseURL == "" {
		c.Providers.Gemini.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if c.Providers.Gemini.Model == "" {
		c.Providers.Gemini.Model = "gemini-2.0-flash"
	}

	// Limits
	if c.Limits.MaxCommandLength == 0 {
		c.Limits.MaxCommandLength = 1000
	}
	if c.Limits.RequestsPerWindow == 0 {
		c.Limits.RequestsPerWindow = 30
	}
	if c.Limits.RateWindow.Duration == 0 {
		c.Limits.RateWindow.Duration = 60 * time.Second
	}
	if c.Limits.MaxSessions == 0 {
		c.Limits.MaxSessions = 1000
	}
	if c.Limits.SessionTimeout.Duration == 0 {
		c.Limits.SessionTimeout.Duration = time.Hour
	}
	if c.Limits.SweepInterval.Duration == 0 {
		c.Limits.SweepInterval.Duration = 5 * time.Minute
	}
}

// expandEnvVars expands environment variables in configuration values
func (c *Config) expandEnvVars() {
	c.Providers.Mistral.APIKey = os.ExpandEnv(c.Providers.Mistral.APIKey)
	c.Providers.Gemini.APIKey = os.ExpandEnv(c.Providers.Gemini.APIKey)
	c.General.DataDir = os.ExpandEnv(c.General.DataDir)
	c.Database.Path = os.ExpandEnv(c.Database.Path)
	c.Database.DSN = os.ExpandEnv(c.Database.DSN)

	if c.Providers.Mistral.APIKey == "" {
		c.Providers.Mistral.APIKey = os.Getenv("MISTRAL_API_KEY")
	}
	if c.Providers.Gemini.APIKey == "" {
		c.Providers.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}
}

// ServerAddress returns the listen address for the HTTP server
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
