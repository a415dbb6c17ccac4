package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  port: 9090
storage:
  base_dir: /tmp/files
auth:
  tokens:
    - token: abc
      user_name: ana
      role: Admin
    - token: def
      user_name: luis
      role: Externo
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "/tmp/files", cfg.Storage.BaseDir)
	assert.Equal(t, 10<<20, cfg.Storage.MaxUploadBytes)
	require.Len(t, cfg.Auth.Tokens, 2)
	assert.Equal(t, TokenConfig{Token: "def", UserName: "luis", Role: "Externo"}, cfg.Auth.Tokens[1])
	assert.False(t, cfg.Messaging.Enabled)
	assert.Equal(t, "0 0 2 1 * *", cfg.Scheduler.ExportCron)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.Equal(t, 3, cfg.Database.BusyRetries)
	assert.Equal(t, 50*time.Millisecond, cfg.Database.BusyBackoff)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("DATABASE_PATH", "/tmp/other.db")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/other.db", cfg.Database.Path)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func validConfig() *Config {
	return &Config{
		Server:    ServerConfig{Port: 8080},
		Database:  DatabaseConfig{Path: "x.db"},
		Storage:   StorageConfig{BaseDir: "files"},
		Auth:      AuthConfig{Tokens: []TokenConfig{{Token: "a", UserName: "u", Role: "Admin"}}},
		Report:    ReportConfig{OutputDir: "reports"},
		Scheduler: SchedulerConfig{Enabled: true, ExportCron: "0 0 2 1 * *"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"negative busy retries", func(c *Config) { c.Database.BusyRetries = -1 }, "busy retry"},
		{"no tokens", func(c *Config) { c.Auth.Tokens = nil }, "auth.tokens"},
		{"bad role", func(c *Config) { c.Auth.Tokens[0].Role = "root" }, "role"},
		{"duplicate token", func(c *Config) {
			c.Auth.Tokens = append(c.Auth.Tokens, TokenConfig{Token: "a", Role: "Externo"})
		}, "duplicates"},
		{"messaging without url", func(c *Config) { c.Messaging.Enabled = true }, "messaging.url"},
		{"bad cron", func(c *Config) { c.Scheduler.ExportCron = "every day" }, "export_cron"},
		{"scheduler off skips cron", func(c *Config) {
			c.Scheduler.Enabled = false
			c.Scheduler.ExportCron = "nonsense"
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("INVOICE_DESK_TEST_VAR=from-file\n"), 0644))
	t.Setenv("INVOICE_DESK_TEST_VAR", "")
	os.Unsetenv("INVOICE_DESK_TEST_VAR")

	require.NoError(t, LoadEnvFile(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "from-file", os.Getenv("INVOICE_DESK_TEST_VAR"))
}

func TestLoadClient(t *testing.T) {
	t.Setenv("INVOICE_TOKEN", "tok")
	t.Setenv("INVOICE_API_URL", "http://api:9000")
	t.Setenv("INVOICE_YEAR", "2023")

	cfg, err := LoadClient()
	require.NoError(t, err)
	assert.Equal(t, "http://api:9000", cfg.BaseURL)
	assert.Equal(t, "tok", cfg.Token)
	assert.Equal(t, 2023, cfg.Year)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}
