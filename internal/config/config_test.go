package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "switchboard.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(body), 0644))
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `version: "1.0"
manager:
  host: pbx.example.com
  port: 5039
  username: admin
  secret: s3cret
  default_context: from-internal
  dial_timeout: 2s
debug: true
keepalive:
  schedule: "@every 1m"
sinks:
  sqlite:
    path: events.db
  redis:
    url: redis://localhost:6379/1
    session: desk-1
`)

	config, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "1.0", config.Version)
	assert.Equal(t, "pbx.example.com:5039", config.Manager.Addr())
	assert.Equal(t, "admin", config.Manager.Username)
	assert.Equal(t, "from-internal", config.Manager.DefaultContext)
	assert.Equal(t, 2*time.Second, config.Manager.Timeout())
	assert.True(t, config.Debug)
	assert.Equal(t, "@every 1m", config.Keepalive.Schedule)
	assert.Equal(t, "events.db", config.Sinks.SQLite.Path)
	assert.Equal(t, "desk-1", config.Sinks.Redis.Session)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	configPath := writeConfig(t, `version: "1.0"
manager:
  host: 10.0.0.5
keepalive: {}
`)

	config, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, config.Manager.Port)
	assert.Equal(t, DefaultDialplanContext, config.Manager.DefaultContext)
	assert.Equal(t, 5*time.Second, config.Manager.Timeout())
	assert.Equal(t, DefaultKeepaliveSchedule, config.Keepalive.Schedule)
	assert.Nil(t, config.Sinks)
}

func TestLoad_FileNotFound(t *testing.T) {
	config, err := Load("/nonexistent/switchboard.yml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, `version: "1.0"
manager:
  - this is invalid
    yaml syntax
`)

	config, err := Load(configPath)
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestValidate(t *testing.T) {
	valid := func() *SwitchboardConfig {
		return &SwitchboardConfig{Version: "1.0", Manager: ManagerConfig{Host: "localhost"}}
	}

	tests := []struct {
		name    string
		mutate  func(c *SwitchboardConfig)
		wantErr string
	}{
		{"unsupported version", func(c *SwitchboardConfig) { c.Version = "2.0" }, "unsupported version: 2.0"},
		{"missing host", func(c *SwitchboardConfig) { c.Manager.Host = "" }, "manager.host is required"},
		{"port out of range", func(c *SwitchboardConfig) { c.Manager.Port = 70000 }, "manager.port must be between 1 and 65535"},
		{"negative port", func(c *SwitchboardConfig) { c.Manager.Port = -1 }, "manager.port must be between 1 and 65535"},
		{"bad dial timeout", func(c *SwitchboardConfig) { c.Manager.DialTimeout = "soon" }, "manager.dial_timeout \"soon\" is invalid"},
		{"zero dial timeout", func(c *SwitchboardConfig) { c.Manager.DialTimeout = "0s" }, "manager.dial_timeout must be positive"},
		{"bad schedule", func(c *SwitchboardConfig) { c.Keepalive = &KeepaliveConfig{Schedule: "every minute"} }, "keepalive.schedule"},
		{"sqlite without path", func(c *SwitchboardConfig) { c.Sinks = &SinksConfig{SQLite: &SQLiteSinkConfig{}} }, "sinks.sqlite.path is required"},
		{"redis without url", func(c *SwitchboardConfig) { c.Sinks = &SinksConfig{Redis: &RedisSinkConfig{}} }, "sinks.redis.url is required"},
		{"redis bad url", func(c *SwitchboardConfig) { c.Sinks = &SinksConfig{Redis: &RedisSinkConfig{URL: "http://x"}} }, "sinks.redis.url is invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("cron expression accepted", func(t *testing.T) {
		c := valid()
		c.Keepalive = &KeepaliveConfig{Schedule: "*/5 * * * *"}
		assert.NoError(t, c.Validate())
	})
}

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, "127.0.0.1:5038", c.Manager.Addr())
	assert.Equal(t, DefaultDialplanContext, c.Manager.DefaultContext)
	assert.Equal(t, 5*time.Second, c.Manager.Timeout())
}
