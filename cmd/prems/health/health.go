// Package healthcmder provides the health command which checks that the chat
// backend is reachable.
package healthcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/prems/pkg/chatapi"
	"github.com/papercomputeco/prems/pkg/cliui"
	"github.com/papercomputeco/prems/pkg/config"
	"github.com/papercomputeco/prems/pkg/logger"
)

// defaultHealthTimeout applies when client.timeout is unset.
const defaultHealthTimeout = 10 * time.Second

type healthCommander struct {
	apiBaseURL string
	timeout    time.Duration
	debug      bool

	out    io.Writer
	errOut io.Writer
}

var healthFlags = []string{
	config.FlagAPIBaseURL,
	config.FlagTimeout,
}

const healthLongDesc string = `Check that the chat backend is up.

Calls {api-base-url}/health and prints the JSON it returns.

Examples:
  prems health
  prems health --api-base-url http://localhost:8000/api`

const healthShortDesc string = "Check the chat backend health endpoint"

func NewHealthCmd() *cobra.Command {
	cmder := &healthCommander{}

	cmd := &cobra.Command{
		Use:   "health",
		Short: healthShortDesc,
		Long:  healthLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.ClientFlags, healthFlags)
			cfg := config.FromViper(v)
			cmder.apiBaseURL = cfg.Client.APIBaseURL
			cmder.timeout = cfg.Client.Timeout
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			cmder.out = cmd.OutOrStdout()
			cmder.errOut = cmd.ErrOrStderr()
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.ClientFlags, config.FlagAPIBaseURL, &cmder.apiBaseURL)
	config.AddDurationFlag(cmd, config.ClientFlags, config.FlagTimeout, &cmder.timeout)

	return cmd
}

func (c *healthCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	timeout := c.timeout
	if timeout == 0 {
		timeout = defaultHealthTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := chatapi.NewClient(&chatapi.Config{
		BaseURL: c.apiBaseURL,
		Logger: logger.New(
			logger.WithDebug(c.debug),
			logger.WithPrefix("health"),
			logger.WithWriter(c.errOut),
		),
	})

	var status map[string]any
	fmt.Fprintln(c.out)
	err := cliui.Step(c.out, fmt.Sprintf("Checking %s", client.BaseURL()), func() error {
		var err error
		status, err = client.Health(ctx)
		return err
	})
	if err != nil {
		fmt.Fprintln(c.out)
		return err
	}

	body, err := json.MarshalIndent(status, "  ", "  ")
	if err != nil {
		return fmt.Errorf("encoding health response: %w", err)
	}

	fmt.Fprintf(c.out, "\n  %s\n\n", body)
	return nil
}
