package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Defaults applied by Validate.
const (
	DefaultHost              = "127.0.0.1"
	DefaultPort              = 5038
	DefaultDialTimeout       = "5s"
	DefaultDialplanContext   = "default"
	DefaultKeepaliveSchedule = "@every 30s"
)

// SwitchboardConfig represents the top-level switchboard.yml configuration
type SwitchboardConfig struct {
	Version   string           `yaml:"version"`
	Manager   ManagerConfig    `yaml:"manager"`
	Debug     bool             `yaml:"debug,omitempty"`
	Keepalive *KeepaliveConfig `yaml:"keepalive,omitempty"`
	Sinks     *SinksConfig     `yaml:"sinks,omitempty"`
}

// ManagerConfig describes how to reach and authenticate with the switch
type ManagerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port,omitempty"`
	Username       string `yaml:"username,omitempty"`
	Secret         string `yaml:"secret,omitempty"`
	DefaultContext string `yaml:"default_context,omitempty"`
	DialTimeout    string `yaml:"dial_timeout,omitempty"` // Go duration, default 5s
}

// KeepaliveConfig schedules Ping actions on long-lived sessions
type KeepaliveConfig struct {
	Schedule string `yaml:"schedule"` // cron spec or @every descriptor
}

// SinksConfig lists where received records are mirrored
type SinksConfig struct {
	SQLite *SQLiteSinkConfig `yaml:"sqlite,omitempty"`
	Redis  *RedisSinkConfig  `yaml:"redis,omitempty"`
}

// SQLiteSinkConfig stores records in a local database file
type SQLiteSinkConfig struct {
	Path string `yaml:"path"`
}

// RedisSinkConfig mirrors records to a Redis list and Pub/Sub channel
type RedisSinkConfig struct {
	URL     string `yaml:"url"`
	Session string `yaml:"session,omitempty"` // empty = generated per run
}

// Default returns a validated configuration for a local switch.
func Default() *SwitchboardConfig {
	c := &SwitchboardConfig{Version: "1.0", Manager: ManagerConfig{Host: DefaultHost}}
	// Defaults always validate.
	_ = c.Validate()
	return c
}

// Validate performs strict validation on the configuration and fills in defaults
func (c *SwitchboardConfig) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if err := c.Manager.Validate(); err != nil {
		return err
	}

	if c.Keepalive != nil {
		if c.Keepalive.Schedule == "" {
			c.Keepalive.Schedule = DefaultKeepaliveSchedule
		}
		if _, err := cron.ParseStandard(c.Keepalive.Schedule); err != nil {
			return fmt.Errorf("keepalive.schedule %q is invalid: %w", c.Keepalive.Schedule, err)
		}
	}

	if c.Sinks != nil {
		if c.Sinks.SQLite != nil && c.Sinks.SQLite.Path == "" {
			return fmt.Errorf("sinks.sqlite.path is required")
		}
		if c.Sinks.Redis != nil {
			if c.Sinks.Redis.URL == "" {
				return fmt.Errorf("sinks.redis.url is required")
			}
			if _, err := redis.ParseURL(c.Sinks.Redis.URL); err != nil {
				return fmt.Errorf("sinks.redis.url is invalid: %w", err)
			}
		}
	}

	return nil
}

// Validate checks the manager section and applies defaults
func (m *ManagerConfig) Validate() error {
	if m.Host == "" {
		return fmt.Errorf("manager.host is required")
	}

	if m.Port == 0 {
		m.Port = DefaultPort
	}
	if m.Port < 1 || m.Port > 65535 {
		return fmt.Errorf("manager.port must be between 1 and 65535, got %d", m.Port)
	}

	if m.DefaultContext == "" {
		m.DefaultContext = DefaultDialplanContext
	}

	if m.DialTimeout == "" {
		m.DialTimeout = DefaultDialTimeout
	}
	d, err := time.ParseDuration(m.DialTimeout)
	if err != nil {
		return fmt.Errorf("manager.dial_timeout %q is invalid: %w", m.DialTimeout, err)
	}
	if d <= 0 {
		return fmt.Errorf("manager.dial_timeout must be positive, got %s", m.DialTimeout)
	}

	return nil
}

// Addr returns host:port for dialing.
func (m ManagerConfig) Addr() string {
	return net.JoinHostPort(m.Host, strconv.Itoa(m.Port))
}

// Timeout returns the parsed dial timeout. Call after Validate.
func (m ManagerConfig) Timeout() time.Duration {
	d, err := time.ParseDuration(m.DialTimeout)
	if err != nil {
		return 0
	}
	return d
}

// Load reads and validates switchboard.yml from the specified path
func Load(path string) (*SwitchboardConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config SwitchboardConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
