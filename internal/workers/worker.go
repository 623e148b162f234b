package workers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Logger is the logging surface the numeric packages depend on
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// StdLogger adapts *log.Logger to the Logger interface
type StdLogger struct {
	Logger *log.Logger
}

func (l *StdLogger) Info(msg string, args ...interface{}) {
	l.Logger.Printf("[INFO] "+msg, args...)
}

func (l *StdLogger) Error(msg string, args ...interface{}) {
	l.Logger.Printf("[ERROR] "+msg, args...)
}

func (l *StdLogger) Warn(msg string, args ...interface{}) {
	l.Logger.Printf("[WARN] "+msg, args...)
}

func (l *StdLogger) Debug(msg string, args ...interface{}) {
	l.Logger.Printf("[DEBUG] "+msg, args...)
}

// PoolConfig holds configuration for a parallel-map pool
type PoolConfig struct {
	// Name identifies the pool in stats and errors
	Name string

	// Concurrency is the number of index ranges processed at once
	Concurrency int

	// ChunkSize is the number of indices per unit of work. Zero splits the
	// index space into about four units per worker.
	ChunkSize int

	// EnableRecovery turns panics inside work functions into WorkerPanicError
	EnableRecovery bool

	// Logger receives failed runs; nil disables logging
	Logger Logger
}

// DefaultPoolConfig returns a pool configuration with sensible defaults
func DefaultPoolConfig(name string, concurrency int) PoolConfig {
	if concurrency < 1 {
		concurrency = 1
	}
	return PoolConfig{
		Name:           name,
		Concurrency:    concurrency,
		EnableRecovery: true,
	}
}

// PoolStats represents statistics about a pool
type PoolStats struct {
	Name        string        `json:"name"`
	Runs        int64         `json:"runs"`
	Failed      int64         `json:"failed"`
	Units       int64         `json:"units"`
	TotalTime   time.Duration `json:"total_time"`
	AverageTime time.Duration `json:"average_time"`
	LastRunTime time.Time     `json:"last_run_time,omitempty"`
}

// Pool runs embarrassingly parallel work over index ranges [0, n). Units
// never share intermediate state; the only synchronisation is the final gather.
type Pool struct {
	config PoolConfig

	statsMu   sync.RWMutex
	runs      int64
	failed    int64
	units     int64
	totalTime time.Duration
	lastRun   time.Time
}

// NewPool creates a new pool
func NewPool(config PoolConfig) *Pool {
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	return &Pool{config: config}
}

// Name returns the pool's name
func (p *Pool) Name() string {
	return p.config.Name
}

// Config returns the pool configuration
func (p *Pool) Config() PoolConfig {
	return p.config
}

// RangeFunc processes indices in [lo, hi)
type RangeFunc func(ctx context.Context, lo, hi int) error

// Map calls fn for every index in [0, n). The context is checked between
// indices, so a cancelled request stops at the next unit boundary.
func (p *Pool) Map(ctx context.Context, n int, fn func(i int) error) error {
	return p.MapRanges(ctx, n, func(ctx context.Context, lo, hi int) error {
		for i := lo; i < hi; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	})
}

// MapRanges splits [0, n) into contiguous ranges and processes them concurrently.
// The first error cancels the remaining ranges and is returned.
func (p *Pool) MapRanges(ctx context.Context, n int, fn RangeFunc) error {
	start := time.Now()
	if n <= 0 {
		p.record(start, 0, nil)
		return nil
	}

	if p.config.EnableRecovery {
		fn = RecoverableRangeFunc(fn)
	}

	ranges := p.split(n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Concurrency)
	for _, r := range ranges {
		lo, hi := r[0], r[1]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := fn(gctx, lo, hi); err != nil {
				return NewWorkerError(p.config.Name, fmt.Sprintf("range [%d,%d)", lo, hi), err, "")
			}
			return nil
		})
	}
	err := g.Wait()
	p.record(start, len(ranges), err)
	if err != nil && p.config.Logger != nil {
		var panicErr *WorkerPanicError
		if errors.As(err, &panicErr) {
			p.config.Logger.Error("%s: recovered panic over %d indices: %v", p.config.Name, n, err)
		} else if !errors.Is(err, context.Canceled) {
			p.config.Logger.Warn("%s: run over %d indices failed: %v", p.config.Name, n, err)
		}
	}
	return err
}

// split partitions [0, n) into contiguous ranges
func (p *Pool) split(n int) [][2]int {
	size := p.config.ChunkSize
	if size <= 0 {
		units := p.config.Concurrency * 4
		size = (n + units - 1) / units
	}
	if size < 1 {
		size = 1
	}
	ranges := make([][2]int, 0, (n+size-1)/size)
	for lo := 0; lo < n; lo += size {
		hi := lo + size
		if hi > n {
			hi = n
		}
		ranges = append(ranges, [2]int{lo, hi})
	}
	return ranges
}

func (p *Pool) record(start time.Time, units int, err error) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()

	p.runs++
	if err != nil {
		p.failed++
	}
	p.units += int64(units)
	p.totalTime += time.Since(start)
	p.lastRun = time.Now()
}

// Stats returns pool statistics
func (p *Pool) Stats() PoolStats {
	p.statsMu.RLock()
	defer p.statsMu.RUnlock()

	var avg time.Duration
	if p.runs > 0 {
		avg = p.totalTime / time.Duration(p.runs)
	}
	return PoolStats{
		Name:        p.config.Name,
		Runs:        p.runs,
		Failed:      p.failed,
		Units:       p.units,
		TotalTime:   p.totalTime,
		AverageTime: avg,
		LastRunTime: p.lastRun,
	}
}

// RecoverableRangeFunc wraps a range function with panic recovery
func RecoverableRangeFunc(fn RangeFunc) RangeFunc {
	return func(ctx context.Context, lo, hi int) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &WorkerPanicError{
					Panic: r,
				}
			}
		}()
		return fn(ctx, lo, hi)
	}
}

// WorkerError represents a worker-specific error
type WorkerError struct {
	WorkerName string
	Operation  string
	Err        error
	Message    string
}

func (e *WorkerError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	prefix := e.WorkerName + ":" + e.Operation
	if e.Err != nil {
		return prefix + ": " + e.Err.Error()
	}
	return prefix + ": unknown error"
}

func (e *WorkerError) Unwrap() error {
	return e.Err
}

// NewWorkerError creates a new worker error
func NewWorkerError(workerName, operation string, err error, message string) *WorkerError {
	return &WorkerError{
		WorkerName: workerName,
		Operation:  operation,
		Err:        err,
		Message:    message,
	}
}

// WorkerPanicError represents a panic that occurred during a unit of work
type WorkerPanicError struct {
	Panic interface{}
}

func (e *WorkerPanicError) Error() string {
	return "worker panic: " + formatPanic(e.Panic)
}

func formatPanic(p interface{}) string {
	switch v := p.(type) {
	case string:
		return v
	case error:
		return v.Error()
	default:
		return fmt.Sprintf("%v", v)
	}
}
