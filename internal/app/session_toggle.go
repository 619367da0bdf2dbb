package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jsamuelsen/quotedesk/internal/domain"
	"github.com/jsamuelsen/quotedesk/internal/platform/logging"
	"github.com/jsamuelsen/quotedesk/internal/platform/telemetry"
	"github.com/jsamuelsen/quotedesk/internal/ports"
)

// DefaultTransitionDelay is the simulated network delay of a login or logout.
const DefaultTransitionDelay = 2 * time.Second

// SessionToggle is the mock login/logout state machine.
//
// A transition sets Loading immediately and applies the requested login
// state after the configured delay. A new transition while one is pending
// cancels the pending one and starts over with a full delay.
type SessionToggle struct {
	clock     clockwork.Clock
	delay     time.Duration
	publisher ports.EventPublisher
	logger    *slog.Logger

	mu      sync.Mutex
	state   domain.SessionState
	pending *pendingTransition
	// settled is closed whenever Loading is false.
	settled chan struct{}
	closed  bool
}

// pendingTransition is one scheduled transition and its cancellation token.
type pendingTransition struct {
	direction domain.Direction
	cancel    context.CancelFunc
}

// SessionToggleConfig configures a SessionToggle.
type SessionToggleConfig struct {
	// Delay defaults to DefaultTransitionDelay when zero.
	Delay time.Duration

	// Clock defaults to the real clock.
	Clock clockwork.Clock

	Publisher ports.EventPublisher
	Logger    *slog.Logger
}

// NewSessionToggle creates a toggle in the logged out, not loading state.
func NewSessionToggle(cfg SessionToggleConfig) *SessionToggle {
	delay := cfg.Delay
	if delay == 0 {
		delay = DefaultTransitionDelay
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	settled := make(chan struct{})
	close(settled)

	return &SessionToggle{
		clock:     clock,
		delay:     max(delay, 0),
		publisher: cfg.Publisher,
		logger:    logger.With(slog.String("component", "app.SessionToggle")),
		settled:   settled,
	}
}

// State returns a snapshot of the toggle.
func (t *SessionToggle) State() domain.SessionState {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.state
}

// Transition requests a login ("in") or logout ("out").
//
// The returned snapshot already has Loading set. Any pending transition is
// canceled and replaced. An invalid direction cancels any pending transition
// too, clears Loading, leaves LoggedIn unchanged and returns an
// *domain.InvalidDirectionError.
func (t *SessionToggle) Transition(ctx context.Context, raw string) (domain.SessionState, error) {
	return t.transition(ctx, func(domain.SessionState) string { return raw })
}

// Toggle requests the opposite of the current login state, the way the
// page's single button does. It behaves like Transition otherwise.
func (t *SessionToggle) Toggle(ctx context.Context) (domain.SessionState, error) {
	return t.transition(ctx, func(s domain.SessionState) string { return string(s.NextDirection()) })
}

// transition resolves the raw direction from the current state under the
// lock, so Toggle cannot race with a completing transition.
func (t *SessionToggle) transition(ctx context.Context, choose func(domain.SessionState) string) (domain.SessionState, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "SessionToggle.Transition")
	defer span.End()

	logger := logging.FromContextOr(ctx, t.logger)

	t.mu.Lock()

	if t.closed {
		state := t.state
		t.mu.Unlock()

		return state, domain.NewUnavailableError("session-toggle", "closed")
	}

	raw := choose(t.state)
	direction, parseErr := domain.ParseDirection(raw)
	span.SetAttributes(attribute.String("session.direction", raw))

	superseded := t.cancelPendingLocked()

	if parseErr != nil {
		t.settleLocked()
		state := t.state
		t.mu.Unlock()

		span.RecordError(parseErr)
		span.SetStatus(codes.Error, "invalid direction")

		logger.ErrorContext(ctx, "session transition rejected",
			slog.String("direction", raw),
			slog.Any("error", parseErr),
		)
		t.publishSuperseded(ctx, superseded, state)
		t.publish(ctx, domain.SessionTransition{
			Type:  domain.EventSessionTransitionRejected,
			Raw:   raw,
			State: state,
		})

		return state, parseErr
	}

	// The goroutine outlives the request, so its context is not derived from ctx.
	runCtx, cancel := context.WithCancel(context.Background())
	p := &pendingTransition{direction: direction, cancel: cancel}

	if !t.state.Loading {
		t.settled = make(chan struct{})
	}

	t.state.Loading = true
	t.state.Pending = direction
	t.pending = p
	timer := t.clock.NewTimer(t.delay)
	state := t.state
	t.mu.Unlock()

	go t.await(runCtx, p, timer)

	logger.InfoContext(ctx, "session transition started",
		slog.String("direction", string(direction)),
		slog.Duration("delay", t.delay),
		slog.Bool("replaced_pending", superseded != nil),
	)
	t.publishSuperseded(ctx, superseded, state)
	t.publish(ctx, domain.SessionTransition{
		Type:      domain.EventSessionTransitionStarted,
		Direction: direction,
		Raw:       raw,
		State:     state,
	})

	return state, nil
}

// Wait blocks until no transition is pending or ctx is done, and returns
// the snapshot at that point.
func (t *SessionToggle) Wait(ctx context.Context) (domain.SessionState, error) {
	for {
		t.mu.Lock()
		if !t.state.Loading {
			state := t.state
			t.mu.Unlock()

			return state, nil
		}

		settled := t.settled
		t.mu.Unlock()

		select {
		case <-settled:
		case <-ctx.Done():
			return t.State(), ctx.Err()
		}
	}
}

// Close cancels any pending transition and rejects further ones.
// Close is idempotent.
func (t *SessionToggle) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	t.cancelPendingLocked()
	t.settleLocked()
}

// await runs one pending transition until its timer fires or it is canceled.
func (t *SessionToggle) await(ctx context.Context, p *pendingTransition, timer clockwork.Timer) {
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.Chan():
		t.complete(p)
	}
}

// complete applies p if it is still the pending transition.
func (t *SessionToggle) complete(p *pendingTransition) {
	t.mu.Lock()

	if t.pending != p {
		t.mu.Unlock()
		return
	}

	p.cancel()
	t.pending = nil
	t.state.LoggedIn = p.direction == domain.DirectionIn
	t.settleLocked()
	state := t.state
	t.mu.Unlock()

	ctx := context.Background()

	t.logger.InfoContext(ctx, "session transition completed",
		slog.String("direction", string(p.direction)),
		slog.Bool("logged_in", state.LoggedIn),
	)
	t.publish(ctx, domain.SessionTransition{
		Type:      domain.EventSessionTransitionCompleted,
		Direction: p.direction,
		Raw:       string(p.direction),
		State:     state,
	})
}

// cancelPendingLocked cancels the pending transition, if any, and returns it.
func (t *SessionToggle) cancelPendingLocked() *pendingTransition {
	p := t.pending
	if p == nil {
		return nil
	}

	p.cancel()
	t.pending = nil

	return p
}

// settleLocked clears Loading and wakes waiters.
func (t *SessionToggle) settleLocked() {
	t.state.Loading = false
	t.state.Pending = ""

	select {
	case <-t.settled:
	default:
		close(t.settled)
	}
}

func (t *SessionToggle) publishSuperseded(ctx context.Context, p *pendingTransition, state domain.SessionState) {
	if p == nil {
		return
	}

	t.publish(ctx, domain.SessionTransition{
		Type:      domain.EventSessionTransitionSuperseded,
		Direction: p.direction,
		Raw:       string(p.direction),
		State:     state,
	})
}

func (t *SessionToggle) publish(ctx context.Context, event domain.SessionTransition) {
	if t.publisher == nil {
		return
	}

	if err := t.publisher.Publish(ctx, event); err != nil {
		t.logger.WarnContext(ctx, "failed to publish session event",
			slog.String("event", event.Type),
			slog.Any("error", err),
		)
	}
}
