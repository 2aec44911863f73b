// Package config handles chancore configuration loading and validation.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// Config is the root configuration structure for chancore.
type Config struct {
	// Global settings
	Global GlobalConfig `yaml:"global" mapstructure:"global"`

	// Server settings for the chat backend.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Connection settings for the live transport.
	Connection ConnectionConfig `yaml:"connection" mapstructure:"connection"`

	// Cache settings for the message cache reconciler.
	Cache CacheConfig `yaml:"cache" mapstructure:"cache"`

	// Unread settings for the unread tracker.
	Unread UnreadConfig `yaml:"unread" mapstructure:"unread"`

	// Database settings for the local session store.
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// TUI settings
	TUI TUIConfig `yaml:"tui" mapstructure:"tui"`
}

// GlobalConfig contains global chancore settings.
type GlobalConfig struct {
	// DataDir is where chancore stores local state (default: ~/.local/share/chancore).
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	// ConfigDir is where config files are stored (default: ~/.config/chancore).
	ConfigDir string `yaml:"config_dir" mapstructure:"config_dir"`
}

// ServerConfig describes the chat backend endpoints.
type ServerConfig struct {
	// BaseURL is the HTTP base URL of the REST API (e.g. http://localhost:8000).
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// WebSocketURL is the websocket base URL. Derived from BaseURL when empty.
	WebSocketURL string `yaml:"websocket_url" mapstructure:"websocket_url"`

	// RequestTimeout bounds individual REST requests.
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
}

// ConnectionConfig tunes the connection manager.
type ConnectionConfig struct {
	// DialTimeout bounds the websocket handshake.
	DialTimeout time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`

	// RetrySchedule is the ordered backoff table for reconnect attempts.
	// Attempts beyond the table clamp to the last entry. Retries continue
	// until manual close; the schedule only shapes the spacing.
	RetrySchedule []time.Duration `yaml:"retry_schedule" mapstructure:"retry_schedule"`

	// WriteTimeout bounds a single outbound frame write.
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// CacheConfig tunes the message cache reconciler.
type CacheConfig struct {
	// PageSize is how many messages a refresh fetches.
	PageSize int `yaml:"page_size" mapstructure:"page_size"`
}

// UnreadConfig tunes the unread tracker.
type UnreadConfig struct {
	// PollInterval is how often unread counts are polled.
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
}

// DatabaseConfig contains local session store settings.
type DatabaseConfig struct {
	// Path is the SQLite database file path.
	Path string `yaml:"path" mapstructure:"path"`

	// BusyTimeoutMs is the SQLite busy timeout in milliseconds.
	BusyTimeoutMs int `yaml:"busy_timeout_ms" mapstructure:"busy_timeout_ms"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// TUIConfig contains TUI settings.
type TUIConfig struct {
	// ShowTimestamps toggles message timestamps.
	ShowTimestamps bool `yaml:"show_timestamps" mapstructure:"show_timestamps"`

	// Theme selects the color theme.
	Theme string `yaml:"theme" mapstructure:"theme"`
}

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		Global: GlobalConfig{
			DataDir:   filepath.Join(home, ".local", "share", "chancore"),
			ConfigDir: filepath.Join(home, ".config", "chancore"),
		},
		Server: ServerConfig{
			BaseURL:        "http://localhost:8000",
			RequestTimeout: 10 * time.Second,
		},
		Connection: ConnectionConfig{
			DialTimeout: 5 * time.Second,
			RetrySchedule: []time.Duration{
				1 * time.Second,
				2 * time.Second,
				5 * time.Second,
				10 * time.Second,
				30 * time.Second,
			},
			WriteTimeout: 5 * time.Second,
		},
		Cache: CacheConfig{
			PageSize: 50,
		},
		Unread: UnreadConfig{
			PollInterval: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Path:          filepath.Join(home, ".local", "share", "chancore", "session.db"),
			BusyTimeoutMs: 5000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		TUI: TUIConfig{
			ShowTimestamps: true,
			Theme:          "default",
		},
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url is required")
	}
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server.base_url is not a valid URL: %q", c.Server.BaseURL)
	}
	if c.Server.WebSocketURL != "" {
		wu, err := url.Parse(c.Server.WebSocketURL)
		if err != nil || (wu.Scheme != "ws" && wu.Scheme != "wss") {
			return fmt.Errorf("server.websocket_url must be a ws:// or wss:// URL: %q", c.Server.WebSocketURL)
		}
	}
	if len(c.Connection.RetrySchedule) == 0 {
		return fmt.Errorf("connection.retry_schedule must have at least one entry")
	}
	for i, d := range c.Connection.RetrySchedule {
		if d <= 0 {
			return fmt.Errorf("connection.retry_schedule[%d] must be positive", i)
		}
	}
	if c.Cache.PageSize <= 0 {
		return fmt.Errorf("cache.page_size must be positive")
	}
	if c.Unread.PollInterval <= 0 {
		return fmt.Errorf("unread.poll_interval must be positive")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	return nil
}

// ResolveWebSocketURL returns the websocket base URL, deriving it from the
// HTTP base URL when not explicitly configured.
func (c *Config) ResolveWebSocketURL() string {
	if c.Server.WebSocketURL != "" {
		return c.Server.WebSocketURL
	}
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = ""
	return u.String()
}

// EnsureDirectories creates the data and config directories if missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Global.DataDir, c.Global.ConfigDir, filepath.Dir(c.Database.Path)} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
