// Package app contains application services that orchestrate use cases.
// This is the application layer - it coordinates domain logic and
// infrastructure through ports.
//
// QuoteService and SessionToggle hold the behavior. Desk binds them to a
// visitor, which is what the HTTP adapters call.
package app

import (
	"context"
	"log/slog"

	"github.com/jsamuelsen/quotedesk/internal/domain"
	"github.com/jsamuelsen/quotedesk/internal/platform/logging"
)

// Desk runs quote and session use cases on behalf of one visitor at a time.
type Desk struct {
	quotes   *QuoteService
	visitors *VisitorRegistry
	logger   *slog.Logger
}

// NewDesk creates a desk over the given services.
func NewDesk(quotes *QuoteService, visitors *VisitorRegistry, logger *slog.Logger) *Desk {
	if logger == nil {
		logger = slog.Default()
	}

	return &Desk{
		quotes:   quotes,
		visitors: visitors,
		logger:   logger.With(slog.String("component", "app.Desk")),
	}
}

// Quotes returns the underlying quote service for catalog reads.
func (d *Desk) Quotes() *QuoteService {
	return d.quotes
}

// PickQuote draws a random quote and makes it the visitor's current one.
func (d *Desk) PickQuote(ctx context.Context, visitorID string) (domain.Quote, int, error) {
	v, err := d.visitors.Visitor(visitorID)
	if err != nil {
		return domain.Quote{}, 0, err
	}

	quote, index := d.quotes.Pick(ctx)
	v.SetCurrentQuote(quote, index)

	return quote, index, nil
}

// CurrentQuote returns the visitor's last picked quote and its index.
// Returns domain.ErrNotFound when the visitor has not picked one yet.
func (d *Desk) CurrentQuote(_ context.Context, visitorID string) (domain.Quote, int, error) {
	v, ok, err := d.visitors.Lookup(visitorID)
	if err != nil {
		return domain.Quote{}, 0, err
	}

	if !ok {
		return domain.Quote{}, 0, domain.NewNotFoundError("current quote", "")
	}

	return v.CurrentQuote()
}

// Session returns a snapshot of the visitor's session toggle. Reads do not
// register visitors: an unknown one is reported in the initial state.
func (d *Desk) Session(_ context.Context, visitorID string) (domain.SessionState, error) {
	v, ok, err := d.visitors.Lookup(visitorID)
	if err != nil || !ok {
		return domain.SessionState{}, err
	}

	return v.Toggle.State(), nil
}

// WaitSession blocks until the visitor's pending transition settles or ctx
// is done. On timeout the current, still loading, snapshot is returned
// together with ctx's error.
func (d *Desk) WaitSession(ctx context.Context, visitorID string) (domain.SessionState, error) {
	v, ok, err := d.visitors.Lookup(visitorID)
	if err != nil || !ok {
		return domain.SessionState{}, err
	}

	return v.Toggle.Wait(ctx)
}

// Transition starts a login or logout for the visitor.
func (d *Desk) Transition(ctx context.Context, visitorID, direction string) (domain.SessionState, error) {
	v, err := d.visitors.Visitor(visitorID)
	if err != nil {
		return domain.SessionState{}, err
	}

	state, err := v.Toggle.Transition(ctx, direction)
	if err != nil {
		logging.FromContextOr(ctx, d.logger).DebugContext(ctx, "transition refused",
			slog.String("visitor_id", visitorID),
			slog.Any("error", err),
		)
	}

	return state, err
}

// Toggle flips the visitor's login state.
func (d *Desk) Toggle(ctx context.Context, visitorID string) (domain.SessionState, error) {
	v, err := d.visitors.Visitor(visitorID)
	if err != nil {
		return domain.SessionState{}, err
	}

	return v.Toggle.Toggle(ctx)
}
