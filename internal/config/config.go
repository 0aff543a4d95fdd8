// ABOUTME: Configuration loading and parsing for recall
// ABOUTME: Supports YAML files with environment variable expansion and validation

// Package config loads the recall server configuration from YAML. Values in
// the form ${VAR_NAME} are expanded from the environment, so secrets like API
// keys never have to live in the file itself.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete recall configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Reasoning ReasoningConfig `yaml:"reasoning"`
	Search    SearchConfig    `yaml:"search"`
	Auth      AuthConfig      `yaml:"auth"`
	Templates TemplatesConfig `yaml:"templates"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	BaseURL  string `yaml:"base_url"`
}

// DatabaseConfig holds the memory database location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ReasoningConfig holds the chat completions endpoint settings.
type ReasoningConfig struct {
	BaseURL     string   `yaml:"base_url"`
	APIKey      string   `yaml:"api_key"`
	Model       string   `yaml:"model"`
	Models      []string `yaml:"models"`
	Temperature float64  `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`

	Timeout    time.Duration `yaml:"-"`
	TimeoutRaw string        `yaml:"timeout"`
}

// SearchConfig holds web search settings.
type SearchConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Language string `yaml:"language"`
}

// AuthConfig holds login and API token configuration.
type AuthConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
	TokenSecret  string `yaml:"token_secret"`

	TokenTTL    time.Duration `yaml:"-"`
	TokenTTLRaw string        `yaml:"token_ttl"`
}

// TemplatesConfig points at an optional template override file.
type TemplatesConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.parseDurations(); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// DefaultPath returns the standard config location, honoring XDG_CONFIG_HOME.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "recall", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "recall", "config.yaml")
}

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable
// values. Unset variables expand to the empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = ":8080"
	}
	if c.Reasoning.Model == "" {
		c.Reasoning.Model = "gpt-4o-mini"
	}
	if c.Reasoning.MaxTokens == 0 {
		c.Reasoning.MaxTokens = 1024
	}
	if len(c.Reasoning.Models) == 0 {
		c.Reasoning.Models = []string{"gpt-4o-mini", "gpt-4o", "gpt-3.5-turbo"}
	}
	if !slices.Contains(c.Reasoning.Models, c.Reasoning.Model) {
		c.Reasoning.Models = append([]string{c.Reasoning.Model}, c.Reasoning.Models...)
	}
	if c.Search.Language == "" {
		c.Search.Language = "ko"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

func (c *Config) parseDurations() error {
	var err error

	c.Reasoning.Timeout = 60 * time.Second
	if c.Reasoning.TimeoutRaw != "" {
		c.Reasoning.Timeout, err = time.ParseDuration(c.Reasoning.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing reasoning.timeout %q: %w", c.Reasoning.TimeoutRaw, err)
		}
	}

	c.Auth.TokenTTL = 24 * time.Hour
	if c.Auth.TokenTTLRaw != "" {
		c.Auth.TokenTTL, err = time.ParseDuration(c.Auth.TokenTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing auth.token_ttl %q: %w", c.Auth.TokenTTLRaw, err)
		}
	}
	return nil
}

// Validate checks that all required configuration fields are present.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Auth.Username == "" {
		return fmt.Errorf("auth.username is required")
	}
	if c.Auth.PasswordHash == "" {
		return fmt.Errorf("auth.password_hash is required")
	}
	if c.Auth.TokenSecret == "" {
		return fmt.Errorf("auth.token_secret is required")
	}
	if c.Reasoning.BaseURL != "" && c.Reasoning.APIKey == "" {
		return fmt.Errorf("reasoning.api_key is required when reasoning.base_url is set")
	}
	return nil
}
