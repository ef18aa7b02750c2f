package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/eternalApril/starlight/internal/client"
	"github.com/eternalApril/starlight/internal/config"
	"github.com/eternalApril/starlight/internal/logger"
)

// errReported marks a failure whose message was already printed
var errReported = errors.New("reported")

// Streams are the standard streams the command talks to
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// NewRootCommand builds the starlight-cli command
func NewRootCommand(streams Streams) *cobra.Command {
	var (
		configDir string
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "starlight-cli [flags] [command [args...]]",
		Short: "Command line client for RESP servers",
		Long: `Command line client for RESP servers

Without a command an interactive prompt is started. With a command it is
sent once, the reply is printed and the exit status tells whether it failed.

Usage
	starlight-cli -p 6380 set greeting hello
	starlight-cli -3

`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configDir, cmd.Flags())
			if err != nil {
				return err
			}

			level := cfg.Log.Level
			if verbose {
				level = "debug"
			}
			log := logger.New(logger.Options{
				Name:     "starlight-cli",
				Level:    level,
				Encoding: cfg.Log.Format,
				Output:   streams.Err,
			})

			return run(cmd.Context(), cfg, log, streams, args)
		},
	}

	cmd.SetIn(streams.In)
	cmd.SetOut(streams.Out)
	cmd.SetErr(streams.Err)

	flags := cmd.Flags()
	// command arguments such as -1 must not be taken for flags
	flags.SetInterspersed(false)

	flags.StringP("host", "H", "127.0.0.1", "Server hostname")
	flags.StringP("port", "p", "6379", "Server port")
	flags.BoolP("resp3", "3", false, "Switch to RESP3 right after connecting")
	flags.Duration("timeout", 0, "Deadline for every command, 0 means none")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
	flags.StringVar(&configDir, "config", "", "Directory holding config.yaml")

	return cmd
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger, streams Streams, args []string) (err error) {
	addr := cfg.Address()

	c, err := client.Connect(ctx, addr, client.Options{
		DialTimeout: cfg.Client.DialTimeout,
		Logger:      log.Named("conn"),
	})
	if err != nil {
		fmt.Fprintf(streams.Err, "Could not connect to %s: %v\n", addr, err)
		return errReported
	}

	defer func() {
		// stderr often refuses fsync, only trace what went wrong
		if cerr := multierr.Combine(c.Close(), log.Sync()); cerr != nil {
			log.Debug("shutdown", zap.Errors("errors", multierr.Errors(cerr)))
		}
	}()

	if cfg.Client.RESP3 {
		hctx, cancel := withTimeout(ctx, cfg.Client.Timeout)
		_, err := c.Hello(hctx, 3)
		cancel()
		if err != nil {
			fmt.Fprint(streams.Err, RenderError(err))
			return errReported
		}
	}

	s := &session{client: c, timeout: cfg.Client.Timeout, out: streams.Out}

	if len(args) > 0 {
		if err := s.run(ctx, args, streams.Err); err != nil {
			return errReported
		}
		return nil
	}

	if err := s.repl(ctx, streams.In, addr+"> "); err != nil && !errors.Is(err, context.Canceled) {
		return errReported
	}
	return nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// Main runs the command line with args and returns the process exit status
func Main(ctx context.Context, args []string, streams Streams) int {
	cmd := NewRootCommand(streams)
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(streams.Err, "Error:", err)
		}
		return 1
	}
	return 0
}
