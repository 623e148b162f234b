package workers

import (
	"bytes"
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPoolConfig(t *testing.T) {
	config := DefaultPoolConfig("test-pool", 4)

	assert.Equal(t, "test-pool", config.Name)
	assert.Equal(t, 4, config.Concurrency)
	assert.Equal(t, 0, config.ChunkSize)
	assert.True(t, config.EnableRecovery)

	config = DefaultPoolConfig("test-pool", 0)
	assert.Equal(t, 1, config.Concurrency)
}

func TestNewPool(t *testing.T) {
	pool := NewPool(PoolConfig{Name: "base-pool"})

	assert.NotNil(t, pool)
	assert.Equal(t, "base-pool", pool.Name())
	assert.Equal(t, 1, pool.Config().Concurrency)
}

func TestPool_MapVisitsEveryIndexOnce(t *testing.T) {
	for _, n := range []int{0, 1, 7, 100, 1001} {
		pool := NewPool(DefaultPoolConfig("map", 4))
		seen := make([]int32, n)

		err := pool.Map(context.Background(), n, func(i int) error {
			atomic.AddInt32(&seen[i], 1)
			return nil
		})
		require.NoError(t, err)

		for i, c := range seen {
			assert.Equal(t, int32(1), c, "index %d of %d", i, n)
		}
	}
}

func TestPool_MapRangesAreContiguousAndDisjoint(t *testing.T) {
	pool := NewPool(PoolConfig{Name: "ranges", Concurrency: 3, ChunkSize: 10})

	var mu sync.Mutex
	var got [][2]int
	err := pool.MapRanges(context.Background(), 35, func(_ context.Context, lo, hi int) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, [2]int{lo, hi})
		return nil
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, [][2]int{{0, 10}, {10, 20}, {20, 30}, {30, 35}}, got)
}

func TestPool_MapReturnsFirstError(t *testing.T) {
	pool := NewPool(DefaultPoolConfig("errors", 2))
	boom := errors.New("boom")

	err := pool.Map(context.Background(), 50, func(i int) error {
		if i == 17 {
			return boom
		}
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var werr *WorkerError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, "errors", werr.WorkerName)

	stats := pool.Stats()
	assert.Equal(t, int64(1), stats.Runs)
	assert.Equal(t, int64(1), stats.Failed)
}

func TestPool_MapRecoversPanics(t *testing.T) {
	pool := NewPool(DefaultPoolConfig("panics", 2))

	err := pool.Map(context.Background(), 10, func(i int) error {
		if i == 3 {
			panic("index three")
		}
		return nil
	})

	var perr *WorkerPanicError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Error(), "index three")
}

func TestPool_MapStopsOnCancelledContext(t *testing.T) {
	pool := NewPool(PoolConfig{Name: "cancel", Concurrency: 1, ChunkSize: 100})
	ctx, cancel := context.WithCancel(context.Background())

	var calls int32
	err := pool.Map(ctx, 100, func(i int) error {
		if atomic.AddInt32(&calls, 1) == 5 {
			cancel()
		}
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
}

func TestPool_Stats(t *testing.T) {
	pool := NewPool(PoolConfig{Name: "stats", Concurrency: 2, ChunkSize: 5})

	stats := pool.Stats()
	assert.Equal(t, "stats", stats.Name)
	assert.Equal(t, int64(0), stats.Runs)
	assert.Equal(t, int64(0), stats.Units)

	require.NoError(t, pool.Map(context.Background(), 20, func(int) error { return nil }))
	require.NoError(t, pool.Map(context.Background(), 5, func(int) error { return nil }))

	stats = pool.Stats()
	assert.Equal(t, int64(2), stats.Runs)
	assert.Equal(t, int64(0), stats.Failed)
	assert.Equal(t, int64(5), stats.Units)
	assert.False(t, stats.LastRunTime.IsZero())
}

func TestWorkerError(t *testing.T) {
	inner := errors.New("inner")

	err := NewWorkerError("pool", "range", inner, "")
	assert.Equal(t, "pool:range: inner", err.Error())
	assert.ErrorIs(t, err, inner)

	err = NewWorkerError("pool", "range", nil, "")
	assert.Equal(t, "pool:range: unknown error", err.Error())

	err = NewWorkerError("pool", "range", inner, "custom")
	assert.Equal(t, "custom", err.Error())
}

func TestWorkerPanicError(t *testing.T) {
	assert.Equal(t, "worker panic: text", (&WorkerPanicError{Panic: "text"}).Error())
	assert.Equal(t, "worker panic: err", (&WorkerPanicError{Panic: errors.New("err")}).Error())
	assert.Equal(t, "worker panic: 42", (&WorkerPanicError{Panic: 42}).Error())
}

func TestStdLogger(t *testing.T) {
	var buf bytes.Buffer
	l := &StdLogger{Logger: log.New(&buf, "", 0)}

	l.Info("a %d", 1)
	l.Warn("b")
	l.Error("c")
	l.Debug("d")

	assert.Equal(t, "[INFO] a 1\n[WARN] b\n[ERROR] c\n[DEBUG] d\n", buf.String())
}

func TestPool_LogsFailedRuns(t *testing.T) {
	var buf bytes.Buffer
	config := DefaultPoolConfig("logged", 2)
	config.Logger = &StdLogger{Logger: log.New(&buf, "", 0)}
	pool := NewPool(config)

	require.NoError(t, pool.Map(context.Background(), 4, func(int) error { return nil }))
	assert.Empty(t, buf.String())

	err := pool.Map(context.Background(), 4, func(i int) error {
		if i == 2 {
			return errors.New("bad row")
		}
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, buf.String(), "[WARN] logged: run over 4 indices failed")

	buf.Reset()
	_ = pool.Map(context.Background(), 4, func(i int) error {
		if i == 1 {
			panic("boom")
		}
		return nil
	})
	assert.Contains(t, buf.String(), "[ERROR] logged: recovered panic")
}
