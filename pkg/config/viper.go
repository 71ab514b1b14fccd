package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/prems/pkg/dotdir"
)

// EnvPrefix is the prefix of every environment override,
// e.g. PREMS_CLIENT_API_BASE_URL.
const EnvPrefix = "PREMS"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the PREMS_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (PREMS_CLIENT_API_BASE_URL, PREMS_LOG_JSON, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	target, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes a Config from the resolved viper values.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Client: ClientConfig{
			APIBaseURL:    v.GetString("client.api_base_url"),
			Timeout:       v.GetDuration("client.timeout"),
			FlushTrailing: v.GetBool("client.flush_trailing"),
			MaxLineSize:   v.GetUint("client.max_line_size"),
		},
		Log: LogConfig{
			JSON: v.GetBool("log.json"),
			File: v.GetString("log.file"),
		},
		Record: RecordConfig{
			Path:         v.GetString("record.path"),
			KafkaBrokers: v.GetString("record.kafka_brokers"),
			KafkaTopic:   v.GetString("record.kafka_topic"),
		},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Client
	v.SetDefault("client.api_base_url", d.Client.APIBaseURL)
	v.SetDefault("client.timeout", d.Client.Timeout)
	v.SetDefault("client.flush_trailing", d.Client.FlushTrailing)
	v.SetDefault("client.max_line_size", d.Client.MaxLineSize)

	// Log
	v.SetDefault("log.json", d.Log.JSON)
	v.SetDefault("log.file", d.Log.File)

	// Record
	v.SetDefault("record.path", d.Record.Path)
	v.SetDefault("record.kafka_brokers", d.Record.KafkaBrokers)
	v.SetDefault("record.kafka_topic", d.Record.KafkaTopic)
}
