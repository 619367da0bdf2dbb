package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jsamuelsen/quotedesk/internal/domain"
	"github.com/jsamuelsen/quotedesk/internal/ports"
)

const (
	// DefaultVisitorIdleTTL is how long a visitor may stay idle before eviction.
	DefaultVisitorIdleTTL = 30 * time.Minute

	// DefaultMaxVisitors bounds how many visitors are held at once.
	DefaultMaxVisitors = 10000
)

// errRegistryClosed is reported by the health check after Close.
var errRegistryClosed = errors.New("visitor registry closed")

// Visitor is the per-browser state: its own session toggle and the quote
// it last picked.
type Visitor struct {
	ID     string
	Toggle *SessionToggle

	mu       sync.Mutex
	current  *domain.QuotePicked
	lastSeen time.Time
}

// CurrentQuote returns the quote this visitor last picked and its index.
// Returns domain.ErrNotFound if none was picked yet.
func (v *Visitor) CurrentQuote() (domain.Quote, int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.current == nil {
		return domain.Quote{}, 0, domain.NewNotFoundError("current quote", "")
	}

	return v.current.Quote, v.current.Index, nil
}

// SetCurrentQuote remembers q, found at index, as the visitor's current quote.
func (v *Visitor) SetCurrentQuote(q domain.Quote, index int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.current = &domain.QuotePicked{Index: index, Quote: q}
}

func (v *Visitor) touch(now time.Time) {
	v.mu.Lock()
	v.lastSeen = now
	v.mu.Unlock()
}

func (v *Visitor) idleSince() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.lastSeen
}

// VisitorRegistry owns the state of every known visitor.
type VisitorRegistry struct {
	clock       clockwork.Clock
	idleTTL     time.Duration
	maxVisitors int
	toggle      SessionToggleConfig
	logger      *slog.Logger

	mu       sync.RWMutex
	visitors map[string]*Visitor
	closed   bool
}

// VisitorRegistryConfig configures a VisitorRegistry.
type VisitorRegistryConfig struct {
	// IdleTTL defaults to DefaultVisitorIdleTTL when zero.
	IdleTTL time.Duration

	// MaxVisitors defaults to DefaultMaxVisitors when zero. Once reached,
	// new visitors are refused until idle ones are evicted.
	MaxVisitors int

	// TransitionDelay is passed to every visitor's toggle.
	TransitionDelay time.Duration

	// Clock defaults to the real clock and is shared with every toggle.
	Clock clockwork.Clock

	Publisher ports.EventPublisher
	Logger    *slog.Logger
}

// NewVisitorRegistry creates an empty registry.
func NewVisitorRegistry(cfg VisitorRegistryConfig) *VisitorRegistry {
	idleTTL := cfg.IdleTTL
	if idleTTL <= 0 {
		idleTTL = DefaultVisitorIdleTTL
	}

	maxVisitors := cfg.MaxVisitors
	if maxVisitors <= 0 {
		maxVisitors = DefaultMaxVisitors
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &VisitorRegistry{
		clock:       clock,
		idleTTL:     idleTTL,
		maxVisitors: maxVisitors,
		toggle: SessionToggleConfig{
			Delay:     cfg.TransitionDelay,
			Clock:     clock,
			Publisher: cfg.Publisher,
			Logger:    logger,
		},
		logger:   logger.With(slog.String("component", "app.VisitorRegistry")),
		visitors: make(map[string]*Visitor),
	}
}

// Visitor returns the visitor with the given id, creating it on first use,
// and marks it as seen.
func (r *VisitorRegistry) Visitor(id string) (*Visitor, error) {
	v, ok, err := r.Lookup(id)
	if err != nil || ok {
		return v, err
	}

	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, errRegistryUnavailable()
	}

	if v, ok := r.visitors[id]; ok {
		v.touch(now)
		return v, nil
	}

	if len(r.visitors) >= r.maxVisitors {
		r.logger.Warn("visitor limit reached", slog.Int("max_visitors", r.maxVisitors))
		return nil, domain.NewUnavailableError("visitors", "visitor limit reached")
	}

	v = &Visitor{
		ID:       id,
		Toggle:   NewSessionToggle(r.toggle),
		lastSeen: now,
	}
	r.visitors[id] = v

	r.logger.Debug("visitor registered", slog.String("visitor_id", id))

	return v, nil
}

// Lookup returns the registered visitor with the given id and marks it as
// seen. ok is false when the visitor is unknown; nothing is created.
func (r *VisitorRegistry) Lookup(id string) (v *Visitor, ok bool, err error) {
	if id == "" {
		return nil, false, domain.NewValidationError("visitor_id", "cannot be empty")
	}

	now := r.clock.Now()

	// The touch happens under the read lock so EvictIdle, which holds the
	// write lock, never removes a visitor between lookup and touch.
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, false, errRegistryUnavailable()
	}

	if v, ok = r.visitors[id]; ok {
		v.touch(now)
	}

	return v, ok, nil
}

func errRegistryUnavailable() error {
	return domain.NewUnavailableError("visitors", "registry closed")
}

// Count returns the number of live visitors.
func (r *VisitorRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.visitors)
}

// LoggedIn returns how many live visitors are currently logged in.
func (r *VisitorRegistry) LoggedIn() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, v := range r.visitors {
		if v.Toggle.State().LoggedIn {
			n++
		}
	}

	return n
}

// EvictIdle closes and removes visitors idle for longer than the TTL.
// Visitors with a transition in flight are kept. Returns the number evicted.
func (r *VisitorRegistry) EvictIdle(ctx context.Context) int {
	cutoff := r.clock.Now().Add(-r.idleTTL)

	r.mu.Lock()

	evicted := make([]*Visitor, 0)

	for id, v := range r.visitors {
		if v.idleSince().After(cutoff) || v.Toggle.State().Loading {
			continue
		}

		delete(r.visitors, id)
		evicted = append(evicted, v)
	}

	remaining := len(r.visitors)
	r.mu.Unlock()

	for _, v := range evicted {
		v.Toggle.Close()
	}

	if len(evicted) > 0 {
		r.logger.InfoContext(ctx, "evicted idle visitors",
			slog.Int("evicted", len(evicted)),
			slog.Int("remaining", remaining),
		)
	}

	return len(evicted)
}

// Close closes every toggle and rejects new visitors.
func (r *VisitorRegistry) Close() {
	r.mu.Lock()
	visitors := r.visitors
	r.visitors = make(map[string]*Visitor)
	r.closed = true
	r.mu.Unlock()

	for _, v := range visitors {
		v.Toggle.Close()
	}
}

// Name implements ports.HealthChecker.
func (r *VisitorRegistry) Name() string {
	return "visitors"
}

// Check implements ports.HealthChecker.
func (r *VisitorRegistry) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return errRegistryClosed
	}

	return nil
}
