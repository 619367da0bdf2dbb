package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quotedesk/internal/platform/logging"
)

const (
	defaultServer  = "http://localhost:8080"
	defaultTimeout = 10 * time.Second
)

// options are the global flags shared by every command.
type options struct {
	server     string
	timeout    time.Duration
	cookieFile string
	plain      bool
	verbose    bool

	logger *slog.Logger
}

// NewRootCommand builds the quotectl command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "quotectl",
		Short:         "Command line client for the quotedesk server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := "warn"
			if opts.verbose {
				level = "debug"
			}

			opts.logger = logging.NewWithWriter(&logging.Config{Level: level, Format: "pretty", Service: "quotectl"}, cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.server, "server", defaultServer, "quotedesk server URL")
	flags.DurationVar(&opts.timeout, "timeout", defaultTimeout, "timeout of each request")
	flags.StringVar(&opts.cookieFile, "cookie-file", DefaultCookieFile(), "file remembering the visitor session, empty to forget it")
	flags.BoolVar(&opts.plain, "plain", false, "print plain output without a spinner")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log requests to stderr")

	root.AddCommand(
		newQuoteCommand(opts),
		newQuotesCommand(opts),
		newStatusCommand(opts),
		newTransitionCommand(opts, "login", "in", "Log in and wait for the session to settle"),
		newTransitionCommand(opts, "logout", "out", "Log out and wait for the session to settle"),
	)

	return root
}

// Execute runs quotectl and renders a failure on stderr.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(stderr, errorStyle.Render("Error: "+err.Error()))
	}

	return err
}

// withClient runs fn with a client that remembers the visitor cookie
// between invocations.
func (o *options) withClient(ctx context.Context, fn func(ctx context.Context, c *Client) error) error {
	client, err := NewClient(o.server, o.timeout)
	if err != nil {
		return err
	}

	if err := loadCookies(o.cookieFile, client.Jar(), o.server); err != nil {
		o.logger.Warn("ignoring saved session", slog.Any("error", err))
	}

	runErr := fn(ctx, client)

	if err := saveCookies(o.cookieFile, client.Jar(), o.server); err != nil {
		o.logger.Warn("could not save session", slog.Any("error", err))
	}

	return runErr
}
