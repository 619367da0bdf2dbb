// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port Design Principles:
//   - Context as first parameter for anything that may block
//   - Return domain types, never external DTOs or infrastructure types
//   - Keep interfaces small and focused
package ports

import (
	"context"
)

// RandomSource draws uniformly distributed integers.
// *math/rand/v2.Rand satisfies it; tests supply deterministic sources.
type RandomSource interface {
	// IntN returns an integer in [0, n). It panics if n <= 0.
	IntN(n int) int
}

// EventPublisher defines the contract for publishing domain events.
// The production adapter turns events into Prometheus metrics.
type EventPublisher interface {
	// Publish delivers an event. Implementations must not block on slow consumers.
	Publish(ctx context.Context, event Event) error
}

// Event represents a domain event that can be published.
type Event interface {
	// EventType returns the type identifier for routing.
	EventType() string

	// Payload returns the event data.
	Payload() any
}
