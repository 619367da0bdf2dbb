package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotedesk/internal/domain"
)

func newRegistry(clock clockwork.Clock) *VisitorRegistry {
	return NewVisitorRegistry(VisitorRegistryConfig{
		IdleTTL:         10 * time.Minute,
		TransitionDelay: testDelay,
		Clock:           clock,
		Logger:          discardLogger(),
	})
}

func TestVisitorRegistry_CreatesOnFirstUse(t *testing.T) {
	registry := newRegistry(clockwork.NewFakeClock())

	first, err := registry.Visitor("v1")
	require.NoError(t, err)

	again, err := registry.Visitor("v1")
	require.NoError(t, err)

	other, err := registry.Visitor("v2")
	require.NoError(t, err)

	assert.Same(t, first, again)
	assert.NotSame(t, first, other)
	assert.Equal(t, 2, registry.Count())
}

func TestVisitorRegistry_EmptyID(t *testing.T) {
	_, err := newRegistry(clockwork.NewFakeClock()).Visitor("")

	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestVisitorRegistry_IsolatesState(t *testing.T) {
	clock := clockwork.NewFakeClock()
	registry := newRegistry(clock)

	a, err := registry.Visitor("a")
	require.NoError(t, err)
	b, err := registry.Visitor("b")
	require.NoError(t, err)

	_, err = a.Toggle.Transition(context.Background(), "in")
	require.NoError(t, err)
	a.SetCurrentQuote(domain.Quote{Author: "x", Text: "y"}, 3)

	assert.True(t, a.Toggle.State().Loading)
	assert.False(t, b.Toggle.State().Loading)

	_, _, err = b.CurrentQuote()
	assert.True(t, domain.IsNotFound(err))

	q, index, err := a.CurrentQuote()
	require.NoError(t, err)
	assert.Equal(t, "y", q.Text)
	assert.Equal(t, 3, index)
}

func TestVisitorRegistry_EvictIdle(t *testing.T) {
	clock := clockwork.NewFakeClock()
	registry := newRegistry(clock)

	idle, err := registry.Visitor("idle")
	require.NoError(t, err)

	busy, err := registry.Visitor("busy")
	require.NoError(t, err)
	_, err = busy.Toggle.Transition(context.Background(), "in")
	require.NoError(t, err)

	clock.Advance(5 * time.Minute)
	_, err = registry.Visitor("fresh")
	require.NoError(t, err)

	clock.Advance(6 * time.Minute)

	// busy's timer fired during the first advance. Wait for it to apply,
	// then touch busy so only idle is past the TTL.
	settle(t, busy.Toggle)
	_, err = registry.Visitor("busy")
	require.NoError(t, err)

	evicted := registry.EvictIdle(context.Background())

	assert.Equal(t, 1, evicted)
	assert.Equal(t, 2, registry.Count())

	_, err = idle.Toggle.Transition(context.Background(), "in")
	assert.True(t, domain.IsUnavailable(err), "evicted toggles are closed")
}

func TestVisitorRegistry_EvictIdleKeepsLoading(t *testing.T) {
	clock := clockwork.NewFakeClock()
	registry := NewVisitorRegistry(VisitorRegistryConfig{
		IdleTTL:         time.Minute,
		TransitionDelay: time.Hour,
		Clock:           clock,
		Logger:          discardLogger(),
	})

	v, err := registry.Visitor("slow")
	require.NoError(t, err)
	_, err = v.Toggle.Transition(context.Background(), "in")
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)

	assert.Zero(t, registry.EvictIdle(context.Background()))
	assert.Equal(t, 1, registry.Count())
}

func TestVisitorRegistry_Close(t *testing.T) {
	registry := newRegistry(clockwork.NewFakeClock())

	v, err := registry.Visitor("v")
	require.NoError(t, err)

	assert.Equal(t, "visitors", registry.Name())
	require.NoError(t, registry.Check(context.Background()))

	registry.Close()

	assert.Zero(t, registry.Count())
	assert.Error(t, registry.Check(context.Background()))

	_, err = registry.Visitor("v")
	assert.True(t, domain.IsUnavailable(err))

	_, err = v.Toggle.Transition(context.Background(), "in")
	assert.True(t, domain.IsUnavailable(err))
}

func TestVisitorRegistry_CheckHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, newRegistry(clockwork.NewFakeClock()).Check(ctx), context.Canceled)
}

func TestVisitorRegistry_LoggedIn(t *testing.T) {
	clock := clockwork.NewFakeClock()
	registry := newRegistry(clock)

	in, err := registry.Visitor("in")
	require.NoError(t, err)
	_, err = registry.Visitor("out")
	require.NoError(t, err)

	_, err = in.Toggle.Transition(context.Background(), "in")
	require.NoError(t, err)
	assert.Zero(t, registry.LoggedIn())

	clock.BlockUntil(1)
	clock.Advance(testDelay)
	settle(t, in.Toggle)

	assert.Equal(t, 1, registry.LoggedIn())
}

func TestVisitorRegistry_Lookup(t *testing.T) {
	registry := newRegistry(clockwork.NewFakeClock())

	_, ok, err := registry.Lookup("v")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, registry.Count(), "lookups never register")

	created, err := registry.Visitor("v")
	require.NoError(t, err)

	found, ok, err := registry.Lookup("v")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Same(t, created, found)

	_, _, err = registry.Lookup("")
	assert.True(t, domain.IsValidation(err))

	registry.Close()

	_, _, err = registry.Lookup("v")
	assert.True(t, domain.IsUnavailable(err))
}

func TestVisitorRegistry_LookupRefreshesIdleVisitor(t *testing.T) {
	clock := clockwork.NewFakeClock()
	registry := newRegistry(clock)

	_, err := registry.Visitor("returning")
	require.NoError(t, err)

	clock.Advance(20 * time.Minute)

	v, err := registry.Visitor("returning")
	require.NoError(t, err)

	assert.Zero(t, registry.EvictIdle(context.Background()))

	_, err = v.Toggle.Transition(context.Background(), "in")
	assert.NoError(t, err)
}

// TestVisitorRegistry_ConcurrentEvictionKeepsReturnedVisitors checks that a
// visitor handed out by the registry is never one that eviction has closed.
func TestVisitorRegistry_ConcurrentEvictionKeepsReturnedVisitors(t *testing.T) {
	for range 50 {
		clock := clockwork.NewFakeClock()
		registry := newRegistry(clock)

		_, err := registry.Visitor("v")
		require.NoError(t, err)

		clock.Advance(20 * time.Minute)

		var wg sync.WaitGroup

		wg.Go(func() {
			for range 20 {
				registry.EvictIdle(context.Background())
			}
		})

		for range 4 {
			wg.Go(func() {
				v, err := registry.Visitor("v")
				if !assert.NoError(t, err) {
					return
				}

				_, err = v.Toggle.Transition(context.Background(), "in")
				assert.NoError(t, err, "returned visitor was evicted")
			})
		}

		wg.Wait()
		registry.Close()
	}
}

func TestVisitorRegistry_MaxVisitors(t *testing.T) {
	clock := clockwork.NewFakeClock()
	registry := NewVisitorRegistry(VisitorRegistryConfig{
		IdleTTL:     time.Minute,
		MaxVisitors: 2,
		Clock:       clock,
		Logger:      discardLogger(),
	})

	_, err := registry.Visitor("a")
	require.NoError(t, err)
	_, err = registry.Visitor("b")
	require.NoError(t, err)

	_, err = registry.Visitor("c")
	assert.True(t, domain.IsUnavailable(err))

	_, err = registry.Visitor("a")
	assert.NoError(t, err, "known visitors are still served when full")

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 2, registry.EvictIdle(context.Background()))

	_, err = registry.Visitor("c")
	assert.NoError(t, err)
}
