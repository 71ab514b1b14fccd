// Package chatcmder provides the chat command: an interactive REPL against the
// chat backend that renders streamed replies as they arrive.
package chatcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/prems/pkg/chatapi"
	"github.com/papercomputeco/prems/pkg/cliui"
	"github.com/papercomputeco/prems/pkg/config"
	"github.com/papercomputeco/prems/pkg/dotdir"
	"github.com/papercomputeco/prems/pkg/eventstream"
	"github.com/papercomputeco/prems/pkg/eventstream/jsonl"
	"github.com/papercomputeco/prems/pkg/eventstream/kafka"
	"github.com/papercomputeco/prems/pkg/eventstream/nop"
	"github.com/papercomputeco/prems/pkg/eventstream/worker"
	"github.com/papercomputeco/prems/pkg/linestream"
	"github.com/papercomputeco/prems/pkg/logger"
	"github.com/papercomputeco/prems/pkg/transcript"
	"github.com/papercomputeco/prems/pkg/utils"
)

type chatCommander struct {
	apiBaseURL    string
	timeout       time.Duration
	flushTrailing bool
	maxLineSize   uint
	logJSON       bool
	logFile       string
	recordPath    string
	kafkaBrokers  string
	kafkaTopic    string
	markdown      bool
	message       string
	configDir     string
	debug         bool

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	logger *slog.Logger
}

var chatFlags = []string{
	config.FlagAPIBaseURL,
	config.FlagTimeout,
	config.FlagFlushTrailing,
	config.FlagMaxLineSize,
	config.FlagLogJSON,
	config.FlagLogFile,
	config.FlagRecord,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
}

const chatLongDesc string = `Start an interactive chat session with the backend.

Each message is posted to {api-base-url}/chat and the reply is rendered while
it streams. Tool activity is shown inline and backend errors are reported
after the reply.

Decoded events can be recorded with --record (JSON lines file) and/or
--kafka-brokers (Kafka topic). Recording never blocks rendering; events are
dropped if a sink falls behind.

Use --message to send a single message and exit.

Examples:
  prems chat
  prems chat --api-base-url http://localhost:8000/api
  prems chat --message "What is PREMS?" --markdown
  prems chat --record events.jsonl`

const chatShortDesc string = "Interactive chat with the backend"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.ClientFlags, chatFlags)
			cfg := config.FromViper(v)

			cmder.apiBaseURL = cfg.Client.APIBaseURL
			cmder.timeout = cfg.Client.Timeout
			cmder.flushTrailing = cfg.Client.FlushTrailing
			cmder.maxLineSize = cfg.Client.MaxLineSize
			cmder.logJSON = cfg.Log.JSON
			cmder.logFile = cfg.Log.File
			cmder.recordPath = cfg.Record.Path
			cmder.kafkaBrokers = cfg.Record.KafkaBrokers
			cmder.kafkaTopic = cfg.Record.KafkaTopic
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			cmder.errOut = cmd.ErrOrStderr()
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.ClientFlags, config.FlagAPIBaseURL, &cmder.apiBaseURL)
	config.AddDurationFlag(cmd, config.ClientFlags, config.FlagTimeout, &cmder.timeout)
	config.AddBoolFlag(cmd, config.ClientFlags, config.FlagFlushTrailing, &cmder.flushTrailing)
	config.AddUintFlag(cmd, config.ClientFlags, config.FlagMaxLineSize, &cmder.maxLineSize)
	config.AddBoolFlag(cmd, config.ClientFlags, config.FlagLogJSON, &cmder.logJSON)
	config.AddStringFlag(cmd, config.ClientFlags, config.FlagLogFile, &cmder.logFile)
	config.AddStringFlag(cmd, config.ClientFlags, config.FlagRecord, &cmder.recordPath)
	config.AddStringFlag(cmd, config.ClientFlags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddStringFlag(cmd, config.ClientFlags, config.FlagKafkaTopic, &cmder.kafkaTopic)
	cmd.Flags().BoolVar(&cmder.markdown, "markdown", false, "Render finished replies as markdown")
	cmd.Flags().StringVarP(&cmder.message, "message", "m", "", "Send a single message and exit")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	log, closeLog, err := c.newLogger()
	if err != nil {
		return err
	}
	defer closeLog()
	c.logger = log

	publisher, err := c.newPublisher()
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			c.logger.Warn("closing recorder", "error", err)
		}
	}()

	client := chatapi.NewClient(&chatapi.Config{
		BaseURL:       c.apiBaseURL,
		StreamOptions: c.streamOptions(),
		Logger:        c.logger,
	})

	if c.message != "" {
		conv := transcript.NewConversation(transcript.New(), &transcript.ConversationConfig{
			Streamer:  client,
			Publisher: publisher,
			Logger:    c.logger,
		})
		return c.send(ctx, conv, c.message)
	}

	conv := transcript.NewConversation(transcript.New(transcript.WithGreeting("")), &transcript.ConversationConfig{
		Streamer:  client,
		Publisher: publisher,
		Logger:    c.logger,
	})
	return c.repl(ctx, conv, client.BaseURL())
}

func (c *chatCommander) repl(ctx context.Context, conv *transcript.Conversation, baseURL string) error {
	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "  %s %s\n\n",
		cliui.KeyStyle.Render("Backend:"),
		cliui.ValueStyle.Render(baseURL),
	)
	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit."))

	for _, msg := range conv.Transcript().Messages() {
		fmt.Fprintf(c.out, "%s%s\n\n", cliui.AssistantPrompt, msg.Text)
	}

	input := cliui.NewLineReader(c.in, c.out, c.historyFile())
	defer input.Close()

	for {
		line, err := input.ReadLine(cliui.UserPrompt)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, cliui.ErrInputAborted) {
				break
			}
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "/exit" {
			break
		}

		// Send errors are already shown; only cancellation ends the session.
		if err := c.send(ctx, conv, line); err != nil && ctx.Err() != nil {
			break
		}
	}

	fmt.Fprintln(c.out)
	return nil
}

// send posts one message and renders the streamed reply. The returned error
// has already been printed.
func (c *chatCommander) send(ctx context.Context, conv *transcript.Conversation, text string) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.logger.Debug("sending message", "preview", utils.Truncate(text, 40))

	fmt.Fprint(c.out, cliui.AssistantPrompt)
	midLine := false

	err := conv.Send(ctx, text, func(change transcript.Change) {
		switch change.Kind {
		case transcript.ChangeDraft:
			if !c.markdown {
				fmt.Fprint(c.out, change.Delta)
				midLine = change.Delta != "" && !strings.HasSuffix(change.Delta, "\n")
			}
		case transcript.ChangeSystem:
			if midLine {
				fmt.Fprintln(c.out)
				midLine = false
			}
			fmt.Fprintf(c.out, "\n  %s\n", cliui.SystemStyle.Render(change.Message.Text))
		case transcript.ChangeUnhandled, transcript.ChangeError:
		}
	})

	if c.markdown {
		if draft, ok := conv.Transcript().Draft(); ok && draft.Text != "" {
			rendered, rerr := cliui.RenderMarkdown(draft.Text)
			if rerr != nil {
				c.logger.Debug("markdown rendering failed", "error", rerr)
			}
			fmt.Fprint(c.out, rendered)
		}
	}
	fmt.Fprintln(c.out)

	if msg := conv.Transcript().Err(); msg != "" {
		fmt.Fprintf(c.errOut, "  %s %s\n", cliui.FailMark, cliui.ErrorStyle.Render(msg))
	}
	fmt.Fprintln(c.out)

	return err
}

// historyFile keeps REPL history next to config.toml when a .prems/
// directory exists.
func (c *chatCommander) historyFile() string {
	target, err := dotdir.NewManager().Target(c.configDir)
	if err != nil || target == "" {
		return ""
	}
	return filepath.Join(target, "chat_history")
}

func (c *chatCommander) streamOptions() []linestream.Option {
	opts := []linestream.Option{linestream.WithFlushTrailing(c.flushTrailing)}
	if c.maxLineSize > 0 {
		opts = append(opts, linestream.WithMaxLineSize(int(c.maxLineSize)))
	}
	return opts
}

// newLogger writes human readable logs to stderr and, with --log-file, JSON
// logs to the file as well.
func (c *chatCommander) newLogger() (*slog.Logger, func(), error) {
	console := logger.New(
		logger.WithDebug(c.debug),
		logger.WithJSON(c.logJSON),
		logger.WithPretty(cliui.IsTerminal(os.Stderr)),
		logger.WithPrefix("chat"),
		logger.WithWriter(c.errOut),
	)

	if c.logFile == "" {
		return console, func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	file := logger.New(
		logger.WithDebug(true),
		logger.WithJSON(true),
		logger.WithPrefix("chat"),
		logger.WithWriter(f),
	)
	return logger.Multi(console, file), func() { _ = f.Close() }, nil
}

// newPublisher builds the recording sink. Every real sink sits behind a
// worker pool so a slow file or broker never stalls the reply.
func (c *chatCommander) newPublisher() (eventstream.Publisher, error) {
	var sinks []eventstream.Publisher

	if c.recordPath != "" {
		p, err := jsonl.NewFilePublisher(c.recordPath)
		if err != nil {
			return nil, fmt.Errorf("opening record file: %w", err)
		}
		sinks = append(sinks, p)
		c.logger.Debug("recording events to file", "path", c.recordPath)
	}

	if brokers := kafka.ParseBrokers(c.kafkaBrokers); len(brokers) > 0 {
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers:  brokers,
			Topic:    c.kafkaTopic,
			ClientID: "prems",
			Logger:   c.logger,
		})
		if err != nil {
			closeAll(sinks)
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		sinks = append(sinks, p)
		c.logger.Debug("recording events to kafka", "brokers", brokers, "topic", c.kafkaTopic)
	}

	if len(sinks) == 0 {
		return nop.NewPublisher(), nil
	}

	pool, err := worker.NewPool(&worker.Config{
		Publisher: eventstream.Multi(sinks...),
		Logger:    c.logger,
	})
	if err != nil {
		closeAll(sinks)
		return nil, err
	}
	return pool, nil
}

func closeAll(publishers []eventstream.Publisher) {
	for _, p := range publishers {
		_ = p.Close()
	}
}
