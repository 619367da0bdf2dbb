package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jsamuelsen/quotedesk/internal/domain"
	"github.com/jsamuelsen/quotedesk/internal/platform/logging"
	"github.com/jsamuelsen/quotedesk/internal/platform/telemetry"
	"github.com/jsamuelsen/quotedesk/internal/ports"
)

// QuoteService picks quotes from the fixed catalog.
type QuoteService struct {
	catalog   *domain.Catalog
	random    ports.RandomSource
	publisher ports.EventPublisher
	logger    *slog.Logger
}

// QuoteServiceConfig contains configuration for the quote service.
type QuoteServiceConfig struct {
	// Catalog is required.
	Catalog *domain.Catalog

	// Random defaults to the runtime's top-level math/rand/v2 source.
	Random ports.RandomSource

	// Publisher is optional.
	Publisher ports.EventPublisher

	Logger *slog.Logger
}

// globalRandom adapts the top-level math/rand/v2 functions to RandomSource.
type globalRandom struct{}

func (globalRandom) IntN(n int) int { return rand.IntN(n) }

// NewQuoteService creates a new quote service with the provided dependencies.
// It panics if no catalog is configured.
func NewQuoteService(cfg QuoteServiceConfig) *QuoteService {
	if cfg.Catalog == nil {
		panic("app: QuoteService requires a catalog")
	}

	random := cfg.Random
	if random == nil {
		random = globalRandom{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &QuoteService{
		catalog:   cfg.Catalog,
		random:    random,
		publisher: cfg.Publisher,
		logger:    logger.With(slog.String("component", "app.QuoteService")),
	}
}

// Pick returns a quote chosen uniformly at random and its catalog index.
// The draw is bounded by the catalog's length, so every quote is reachable
// and no index falls outside the catalog.
func (s *QuoteService) Pick(ctx context.Context) (domain.Quote, int) {
	ctx, span := telemetry.Tracer().Start(ctx, "QuoteService.Pick")
	defer span.End()

	n := s.catalog.Len()
	index := s.random.IntN(n)

	quote, err := s.catalog.At(index)
	if err != nil {
		panic(fmt.Sprintf("app: random source returned %d outside [0, %d)", index, n))
	}

	span.SetAttributes(attribute.Int("quote.index", index))

	logging.FromContextOr(ctx, s.logger).DebugContext(ctx, "picked quote",
		slog.Int("index", index),
		slog.String("author", quote.Author),
	)

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, domain.QuotePicked{Index: index, Quote: quote}); err != nil {
			s.logger.WarnContext(ctx, "failed to publish quote event", slog.Any("error", err))
		}
	}

	return quote, index
}

// Get returns the quote at index.
// Returns domain.ErrNotFound if index is outside the catalog.
func (s *QuoteService) Get(ctx context.Context, index int) (domain.Quote, error) {
	quote, err := s.catalog.At(index)
	if err != nil {
		logging.FromContextOr(ctx, s.logger).DebugContext(ctx, "quote lookup failed",
			slog.Int("index", index),
			slog.Any("error", err),
		)

		return domain.Quote{}, err
	}

	return quote, nil
}

// List returns up to limit quotes starting at offset, plus the catalog size.
func (s *QuoteService) List(_ context.Context, offset, limit int) ([]domain.Quote, int) {
	return s.catalog.Slice(offset, limit), s.catalog.Len()
}

// Len returns the catalog size.
func (s *QuoteService) Len() int {
	return s.catalog.Len()
}

// Name implements ports.HealthChecker.
func (s *QuoteService) Name() string {
	return "catalog"
}

// Check implements ports.HealthChecker.
// The catalog is immutable and non-empty, so this only guards against misuse.
func (s *QuoteService) Check(_ context.Context) error {
	if s.catalog.Len() == 0 {
		return domain.NewUnavailableError("catalog", "no quotes loaded")
	}

	return nil
}
