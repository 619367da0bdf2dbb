package ports

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrDuplicateChecker is returned when attempting to register a health checker
// with a name that is already registered.
var ErrDuplicateChecker = errors.New("duplicate health checker")

// DefaultCheckTimeout bounds a single health check when the registry is
// created without WithCheckTimeout.
const DefaultCheckTimeout = 2 * time.Second

// HealthChecker is implemented by components that can report their health.
// Components register themselves with the HealthRegistry at startup.
//
// Example implementation:
//
//	func (r *VisitorRegistry) Name() string { return "visitors" }
//
//	func (r *VisitorRegistry) Check(ctx context.Context) error {
//	    if r.closed { return errors.New("registry closed") }
//	    return nil
//	}
type HealthChecker interface {
	// Name returns a unique identifier for this health check.
	// Used in health check responses to identify which component failed.
	Name() string

	// Check performs the health check and returns an error if unhealthy.
	// Implementations should respect context cancellation and deadlines.
	Check(ctx context.Context) error
}

// HealthRegistry aggregates health checks from multiple components.
type HealthRegistry interface {
	// Register adds a health checker to the registry.
	// Returns an error if a checker with the same name is already registered.
	Register(checker HealthChecker) error

	// CheckAll runs all registered health checks and returns aggregated results.
	CheckAll(ctx context.Context) *HealthResult
}

// HealthStatus represents the overall health state.
type HealthStatus string

const (
	// HealthStatusHealthy indicates all checks passed.
	HealthStatusHealthy HealthStatus = "healthy"

	// HealthStatusUnhealthy indicates at least one check failed.
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthResult contains the aggregated health check results.
type HealthResult struct {
	Status    HealthStatus            `json:"status"`
	Checks    map[string]*CheckResult `json:"checks"`
	Timestamp time.Time               `json:"timestamp"`
}

// CheckResult contains the result of a single health check.
type CheckResult struct {
	Status   HealthStatus  `json:"status"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration"`
}

// DefaultHealthRegistry is a thread-safe implementation of HealthRegistry.
type DefaultHealthRegistry struct {
	mu           sync.RWMutex
	checkers     []HealthChecker
	checkTimeout time.Duration
}

// RegistryOption configures a DefaultHealthRegistry.
type RegistryOption func(*DefaultHealthRegistry)

// WithCheckTimeout bounds each individual check. Non-positive values are ignored.
func WithCheckTimeout(d time.Duration) RegistryOption {
	return func(r *DefaultHealthRegistry) {
		if d > 0 {
			r.checkTimeout = d
		}
	}
}

// NewHealthRegistry creates a new health registry.
func NewHealthRegistry(opts ...RegistryOption) *DefaultHealthRegistry {
	r := &DefaultHealthRegistry{
		checkers:     make([]HealthChecker, 0),
		checkTimeout: DefaultCheckTimeout,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds a health checker to the registry.
func (r *DefaultHealthRegistry) Register(checker HealthChecker) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := checker.Name()
	for _, c := range r.checkers {
		if c.Name() == name {
			return fmt.Errorf("%w: %s", ErrDuplicateChecker, name)
		}
	}

	r.checkers = append(r.checkers, checker)

	return nil
}

// CheckAll runs all registered health checks concurrently, each bounded by
// the registry's check timeout.
func (r *DefaultHealthRegistry) CheckAll(ctx context.Context) *HealthResult {
	r.mu.RLock()
	checkers := make([]HealthChecker, len(r.checkers))
	copy(checkers, r.checkers)
	r.mu.RUnlock()

	result := &HealthResult{
		Status:    HealthStatusHealthy,
		Checks:    make(map[string]*CheckResult, len(checkers)),
		Timestamp: time.Now(),
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for _, checker := range checkers {
		wg.Go(func() {
			checkResult := r.run(ctx, checker)

			mu.Lock()
			defer mu.Unlock()

			result.Checks[checker.Name()] = checkResult
			if checkResult.Status == HealthStatusUnhealthy {
				result.Status = HealthStatusUnhealthy
			}
		})
	}

	wg.Wait()

	return result
}

func (r *DefaultHealthRegistry) run(ctx context.Context, checker HealthChecker) *CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, r.checkTimeout)
	defer cancel()

	start := time.Now()
	err := checker.Check(checkCtx)

	checkResult := &CheckResult{
		Status:   HealthStatusHealthy,
		Duration: time.Since(start),
	}

	if err != nil {
		checkResult.Status = HealthStatusUnhealthy
		checkResult.Message = err.Error()
	}

	return checkResult
}
