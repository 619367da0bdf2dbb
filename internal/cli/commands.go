package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quotedesk/internal/adapters/catalog"
	"github.com/jsamuelsen/quotedesk/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotedesk/internal/app"
)

func newQuoteCommand(opts *options) *cobra.Command {
	var (
		offline     bool
		catalogPath string
	)

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Print a random quote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if offline {
				return printOfflineQuote(cmd, opts.logger, catalogPath)
			}

			return opts.withClient(cmd.Context(), func(ctx context.Context, c *Client) error {
				q, err := c.RandomQuote(ctx)
				if err != nil {
					return err
				}

				printQuote(cmd.OutOrStdout(), q.Text, q.Author)

				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "pick from a local catalog instead of the server")
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "YAML catalog for --offline, built-in quotes when empty")

	return cmd
}

func printOfflineQuote(cmd *cobra.Command, logger *slog.Logger, path string) error {
	quotes, err := catalog.Load(path)
	if err != nil {
		return err
	}

	service := app.NewQuoteService(app.QuoteServiceConfig{Catalog: quotes, Logger: logger})
	q, _ := service.Pick(cmd.Context())

	printQuote(cmd.OutOrStdout(), q.Text, q.Author)

	return nil
}

func newQuotesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "quotes",
		Short: "List the server's quote catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withClient(cmd.Context(), func(ctx context.Context, c *Client) error {
				quotes, err := c.Quotes(ctx)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				for _, q := range quotes {
					fmt.Fprintf(out, "%s  %s %s\n",
						indexStyle.Render(fmt.Sprint(q.Index)),
						quoteStyle.Render(q.Text),
						authorStyle.Render("~ "+q.Author),
					)
				}

				return nil
			})
		},
	}
}

func newStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether this client is logged in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withClient(cmd.Context(), func(ctx context.Context, c *Client) error {
				state, err := c.Session(ctx, false)
				if err != nil {
					return err
				}

				printSession(cmd.OutOrStdout(), state)

				return nil
			})
		},
	}
}

func newTransitionCommand(opts *options, use, direction, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withClient(cmd.Context(), func(ctx context.Context, c *Client) error {
				started, err := c.Transition(ctx, direction)
				if err != nil {
					return err
				}

				opts.logger.Debug("transition started", slog.String("direction", direction), slog.String("pending", started.Pending))

				wait := func(ctx context.Context) (handlers.SessionResponse, error) {
					return awaitSettled(ctx, c)
				}

				final, err := opts.runWait(cmd, started, wait)
				if err != nil {
					return err
				}

				printSession(cmd.OutOrStdout(), final)

				return nil
			})
		},
	}
}

// awaitSettled polls with server side waits until the session stops loading.
func awaitSettled(ctx context.Context, c *Client) (handlers.SessionResponse, error) {
	for {
		state, err := c.Session(ctx, true)
		if err != nil || !state.Loading {
			return state, err
		}

		if err := ctx.Err(); err != nil {
			return state, err
		}
	}
}

// runWait waits for the session to settle, with a spinner unless plain.
func (o *options) runWait(cmd *cobra.Command, started handlers.SessionResponse, wait waitFunc) (handlers.SessionResponse, error) {
	if o.plain {
		fmt.Fprintln(cmd.OutOrStdout(), started.Status)
		return wait(cmd.Context())
	}

	program := tea.NewProgram(newWaitModel(cmd.Context(), started, wait),
		tea.WithContext(cmd.Context()),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.ErrOrStderr()),
	)

	result, err := program.Run()
	if err != nil {
		return handlers.SessionResponse{}, fmt.Errorf("running spinner: %w", err)
	}

	m, ok := result.(waitModel)
	if !ok {
		return handlers.SessionResponse{}, fmt.Errorf("unexpected spinner model %T", result)
	}

	if m.err != nil {
		return handlers.SessionResponse{}, m.err
	}

	if m.quitting {
		return m.state, context.Canceled
	}

	return m.state, nil
}

func printQuote(w io.Writer, text, author string) {
	fmt.Fprintf(w, "%s\n%s\n", quoteStyle.Render(text), authorStyle.Render("~ "+author))
}

func printSession(w io.Writer, state handlers.SessionResponse) {
	style := loggedOutStyle
	if state.LoggedIn {
		style = loggedInStyle
	}

	fmt.Fprintln(w, style.Render(state.Status))
}
