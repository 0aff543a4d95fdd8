// ABOUTME: Tests for YAML config loading, env expansion, defaults, validation
// ABOUTME: Writes temp config files and checks parsed values

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

const minimalConfig = `
database:
  path: /tmp/recall.db
auth:
  username: admin
  password_hash: "$2a$10$abcdefghijklmnopqrstuv"
  token_secret: test-secret
`

func TestLoad_MinimalConfigGetsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, "gpt-4o-mini", cfg.Reasoning.Model)
	assert.Equal(t, []string{"gpt-4o-mini", "gpt-4o", "gpt-3.5-turbo"}, cfg.Reasoning.Models)
	assert.Equal(t, 1024, cfg.Reasoning.MaxTokens)
	assert.Equal(t, 60*time.Second, cfg.Reasoning.Timeout)
	assert.Equal(t, "ko", cfg.Search.Language)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoad_ConfiguredModelJoinsModelList(t *testing.T) {
	doc := minimalConfig + `
reasoning:
  model: local-llama
`
	cfg, err := Load(writeConfig(t, doc))
	require.NoError(t, err)

	assert.Equal(t, "local-llama", cfg.Reasoning.Model)
	assert.Equal(t, []string{"local-llama", "gpt-4o-mini", "gpt-4o", "gpt-3.5-turbo"}, cfg.Reasoning.Models)
}

func TestLoad_FullConfig(t *testing.T) {
	doc := `
server:
  http_addr: ":9090"
  base_url: "https://recall.example.com"
database:
  path: /data/recall.db
reasoning:
  base_url: "https://api.openai.com/v1"
  api_key: sk-test
  model: gpt-4o
  temperature: 0.7
  max_tokens: 2048
  timeout: 90s
search:
  enabled: true
  language: en
auth:
  username: admin
  password_hash: hash
  token_secret: secret
  token_ttl: 12h
templates:
  path: /etc/recall/templates.toml
logging:
  level: debug
  format: json
`
	cfg, err := Load(writeConfig(t, doc))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.HTTPAddr)
	assert.Equal(t, "gpt-4o", cfg.Reasoning.Model)
	assert.Equal(t, []string{"gpt-4o-mini", "gpt-4o", "gpt-3.5-turbo"}, cfg.Reasoning.Models)
	assert.Equal(t, 90*time.Second, cfg.Reasoning.Timeout)
	assert.True(t, cfg.Search.Enabled)
	assert.Equal(t, "en", cfg.Search.Language)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "/etc/recall/templates.toml", cfg.Templates.Path)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("RECALL_TEST_API_KEY", "sk-from-env")

	doc := minimalConfig + `
reasoning:
  base_url: "https://api.openai.com/v1"
  api_key: "${RECALL_TEST_API_KEY}"
`
	cfg, err := Load(writeConfig(t, doc))
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.Reasoning.APIKey)
}

func TestLoad_UnsetEnvVarBecomesEmpty(t *testing.T) {
	doc := minimalConfig + `
server:
  base_url: "${RECALL_TEST_UNSET_VAR}"
`
	cfg, err := Load(writeConfig(t, doc))
	require.NoError(t, err)
	assert.Empty(t, cfg.Server.BaseURL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "database: [unclosed"))
	require.Error(t, err)
}

func TestLoad_InvalidDuration(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+`
reasoning:
  base_url: "https://x"
  api_key: k
  timeout: soon
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing database path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"missing username", func(c *Config) { c.Auth.Username = "" }, "auth.username"},
		{"missing password hash", func(c *Config) { c.Auth.PasswordHash = "" }, "auth.password_hash"},
		{"missing token secret", func(c *Config) { c.Auth.TokenSecret = "" }, "auth.token_secret"},
		{"reasoning url without key", func(c *Config) {
			c.Reasoning.BaseURL = "https://x"
			c.Reasoning.APIKey = ""
		}, "reasoning.api_key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, minimalConfig))
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDefaultPath_HonorsXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/xdg")
	assert.Equal(t, "/custom/xdg/recall/config.yaml", DefaultPath())
}
