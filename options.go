package denseengine

import (
	"github.com/corpusindex/denseengine/internal/arena"
)

type options struct {
	logger        *Logger
	acquirer      arena.MemoryAcquirer
	capacity      int
	searchWorkers int
}

// StoreOption configures a Store at construction time.
type StoreOption func(*options)

// WithLogger configures structured logging for store operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) StoreOption {
	return func(o *options) {
		o.logger = logger
	}
}

// WithCapacity sets N_max, the maximum number of entries the store will
// accept. AddDocument beyond this capacity fails with ErrCapacity.
// If unset, defaults to 1,000,000.
func WithCapacity(n int) StoreOption {
	return func(o *options) {
		o.capacity = n
	}
}

// WithMemoryAcquirer wires a resource.Controller (or any MemoryAcquirer)
// into the store's arena, so chunk mapping participates in a
// process-wide memory budget.
func WithMemoryAcquirer(acquirer arena.MemoryAcquirer) StoreOption {
	return func(o *options) {
		o.acquirer = acquirer
	}
}

// WithSearchWorkers sets the number of worker goroutines Search
// partitions the corpus across. If unset or <= 0, defaults to
// runtime.GOMAXPROCS(0).
func WithSearchWorkers(n int) StoreOption {
	return func(o *options) {
		o.searchWorkers = n
	}
}

func applyOptions(optFns []StoreOption) options {
	o := options{
		logger:   NoopLogger(),
		capacity: defaultCapacity,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}
