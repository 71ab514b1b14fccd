// Package configcmder provides the config command for managing persistent
// prems configuration stored in the .prems/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent prems configuration.

Configuration is stored as config.toml in the .prems/ directory and provides
default values for command flags. CLI flags and PREMS_* environment variables
take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  client.api_base_url, client.timeout, client.flush_trailing,
  client.max_line_size, log.json, log.file,
  record.path, record.kafka_brokers, record.kafka_topic

Use subcommands to get, set, or list configuration values:
  prems config set <key> <value>    Set a configuration value
  prems config get <key>            Get a configuration value
  prems config list                 List all configuration values

Examples:
  prems config set client.api_base_url http://chat.internal:8000/api
  prems config set record.kafka_brokers localhost:9092
  prems config get client.api_base_url
  prems config list`

const configShortDesc string = "Manage persistent prems configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
