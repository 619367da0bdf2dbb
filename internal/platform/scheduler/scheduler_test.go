package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_RunsJobs(t *testing.T) {
	s := New(discardLogger())
	t.Cleanup(s.Stop)

	var runs atomic.Int32

	require.NoError(t, s.Every("count", 20*time.Millisecond, func(ctx context.Context) {
		assert.NoError(t, ctx.Err())
		runs.Add(1)
	}))

	s.Start()

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_WaitsOneIntervalBeforeFirstRun(t *testing.T) {
	s := New(discardLogger())
	t.Cleanup(s.Stop)

	var runs atomic.Int32

	require.NoError(t, s.Every("slow", time.Hour, func(context.Context) { runs.Add(1) }))
	s.Start()

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, runs.Load())
}

func TestScheduler_Every_Errors(t *testing.T) {
	s := New(discardLogger())

	require.Error(t, s.Every("zero", 0, func(context.Context) {}))
	require.NoError(t, s.Every("evict", time.Minute, func(context.Context) {}))

	err := s.Every("evict", time.Minute, func(context.Context) {})
	require.Error(t, err, "tags are unique")
	assert.Contains(t, err.Error(), "evict")

	assert.Equal(t, []string{"evict"}, s.Jobs())
}

func TestScheduler_RecoversPanics(t *testing.T) {
	s := New(discardLogger())
	t.Cleanup(s.Stop)

	var runs atomic.Int32

	require.NoError(t, s.Every("boom", 20*time.Millisecond, func(context.Context) {
		runs.Add(1)
		panic("boom")
	}))

	s.Start()

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_Health(t *testing.T) {
	s := New(discardLogger())

	assert.Equal(t, "scheduler", s.Name())
	require.ErrorIs(t, s.Check(context.Background()), errNotRunning)

	s.Start()
	require.NoError(t, s.Check(context.Background()))

	s.Stop()
	s.Stop()
	assert.ErrorIs(t, s.Check(context.Background()), errNotRunning)
}
