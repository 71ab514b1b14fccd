package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent prems configuration stored as config.toml
// in the .prems/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version int          `toml:"version"`
	Client  ClientConfig `toml:"client"`
	Log     LogConfig    `toml:"log"`
	Record  RecordConfig `toml:"record"`
}

// ClientConfig holds settings for talking to the chat backend.
type ClientConfig struct {
	// APIBaseURL is the API root, scheme + host + path prefix.
	APIBaseURL string `toml:"api_base_url,omitempty"`

	// Timeout bounds a whole chat request. Zero means no timeout.
	Timeout time.Duration `toml:"timeout,omitempty"`

	// FlushTrailing emits a final line the backend did not terminate with a
	// newline instead of dropping it.
	FlushTrailing bool `toml:"flush_trailing,omitempty"`

	// MaxLineSize bounds a single buffered line in bytes. Zero is unlimited.
	MaxLineSize uint `toml:"max_line_size,omitempty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	JSON bool   `toml:"json,omitempty"`
	File string `toml:"file,omitempty"`
}

// RecordConfig holds the optional event recording sinks.
type RecordConfig struct {
	Path         string `toml:"path,omitempty"`
	KafkaBrokers string `toml:"kafka_brokers,omitempty"`
	KafkaTopic   string `toml:"kafka_topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func parseBool(key string, set func(bool)) func(*Config, string) error {
	return func(_ *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		set(b)
		return nil
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"client.api_base_url": {
		get: func(c *Config) string { return c.Client.APIBaseURL },
		set: func(c *Config, v string) error { c.Client.APIBaseURL = v; return nil },
	},
	"client.timeout": {
		get: func(c *Config) string {
			if c.Client.Timeout == 0 {
				return ""
			}
			return c.Client.Timeout.String()
		},
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid value for client.timeout: %w", err)
			}
			c.Client.Timeout = d
			return nil
		},
	},
	"client.flush_trailing": {
		get: func(c *Config) string { return strconv.FormatBool(c.Client.FlushTrailing) },
		set: func(c *Config, v string) error {
			return parseBool("client.flush_trailing", func(b bool) { c.Client.FlushTrailing = b })(c, v)
		},
	},
	"client.max_line_size": {
		get: func(c *Config) string {
			if c.Client.MaxLineSize == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Client.MaxLineSize), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for client.max_line_size: %w", err)
			}
			c.Client.MaxLineSize = uint(n)
			return nil
		},
	},
	"log.json": {
		get: func(c *Config) string { return strconv.FormatBool(c.Log.JSON) },
		set: func(c *Config, v string) error {
			return parseBool("log.json", func(b bool) { c.Log.JSON = b })(c, v)
		},
	},
	"log.file": {
		get: func(c *Config) string { return c.Log.File },
		set: func(c *Config, v string) error { c.Log.File = v; return nil },
	},
	"record.path": {
		get: func(c *Config) string { return c.Record.Path },
		set: func(c *Config, v string) error { c.Record.Path = v; return nil },
	},
	"record.kafka_brokers": {
		get: func(c *Config) string { return c.Record.KafkaBrokers },
		set: func(c *Config, v string) error { c.Record.KafkaBrokers = v; return nil },
	},
	"record.kafka_topic": {
		get: func(c *Config) string { return c.Record.KafkaTopic },
		set: func(c *Config, v string) error { c.Record.KafkaTopic = v; return nil },
	},
}
