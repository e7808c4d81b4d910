package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent agentchat configuration stored as
// config.toml in the .agentchat/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version int           `toml:"version"`
	Client  ClientConfig  `toml:"client"`
	History HistoryConfig `toml:"history"`
	Serve   ServeConfig   `toml:"serve"`
	UI      UIConfig      `toml:"ui"`
}

// ClientConfig holds settings for commands that talk to the agent backend.
type ClientConfig struct {
	// BaseURL is the backend origin (scheme + host + port).
	BaseURL string `toml:"base_url,omitempty"`

	// Timeout bounds non-streaming requests, as a Go duration string.
	Timeout string `toml:"timeout,omitempty"`

	// Workspace is the selected workspace ID.
	Workspace string `toml:"workspace,omitempty"`
}

// HistoryConfig holds local transcript history settings.
type HistoryConfig struct {
	Enabled bool `toml:"enabled"`

	// SQLitePath overrides the default <dotdir>/history.db location.
	SQLitePath string `toml:"sqlite_path,omitempty"`
}

// ServeConfig holds settings for the local development backend.
type ServeConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// UIConfig holds terminal rendering settings.
type UIConfig struct {
	// Markdown renders completed replies with glamour in the line chat.
	Markdown bool `toml:"markdown"`
}

// TimeoutDuration parses Client.Timeout.
func (c *ClientConfig) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid client.timeout %q: %w", c.Timeout, err)
	}
	return d, nil
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"client.base_url": {
		get: func(c *Config) string { return c.Client.BaseURL },
		set: func(c *Config, v string) error { c.Client.BaseURL = v; return nil },
	},
	"client.timeout": {
		get: func(c *Config) string { return c.Client.Timeout },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for client.timeout: %w", err)
			}
			c.Client.Timeout = v
			return nil
		},
	},
	"client.workspace": {
		get: func(c *Config) string { return c.Client.Workspace },
		set: func(c *Config, v string) error { c.Client.Workspace = v; return nil },
	},
	"history.enabled": {
		get: func(c *Config) string { return strconv.FormatBool(c.History.Enabled) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for history.enabled: %w", err)
			}
			c.History.Enabled = b
			return nil
		},
	},
	"history.sqlite_path": {
		get: func(c *Config) string { return c.History.SQLitePath },
		set: func(c *Config, v string) error { c.History.SQLitePath = v; return nil },
	},
	"serve.listen": {
		get: func(c *Config) string { return c.Serve.Listen },
		set: func(c *Config, v string) error { c.Serve.Listen = v; return nil },
	},
	"ui.markdown": {
		get: func(c *Config) string { return strconv.FormatBool(c.UI.Markdown) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for ui.markdown: %w", err)
			}
			c.UI.Markdown = b
			return nil
		},
	},
}
