// Package premscmder
package premscmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/prems/cmd/prems/chat"
	configcmder "github.com/papercomputeco/prems/cmd/prems/config"
	healthcmder "github.com/papercomputeco/prems/cmd/prems/health"
	versioncmder "github.com/papercomputeco/prems/cmd/version"
)

const premsLongDesc string = `prems is a terminal client for the PREMS chat backend.

Replies stream back as newline-delimited events and are rendered as they
arrive. Decoded events can optionally be recorded to a JSON lines file or
a Kafka topic.

Commands:
  prems chat       Start an interactive chat session
  prems health     Check that the backend is up
  prems config     Manage persistent configuration`

const premsShortDesc string = "prems - streaming chat client"

func NewPremsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "prems",
		Short:        premsShortDesc,
		Long:         premsLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to the .prems/ config directory")

	// Add subcommands
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(healthcmder.NewHealthCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
