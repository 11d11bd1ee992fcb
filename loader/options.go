package loader

import (
	"runtime"

	"github.com/corpusindex/denseengine"
	"github.com/corpusindex/denseengine/codec"
	"github.com/corpusindex/denseengine/internal/resource"
)

const (
	defaultQueueCapacity     = 1024
	defaultMmapThresholdByte = 5 * 1024 * 1024
)

type options struct {
	logger             *denseengine.Logger
	queueCapacity      int
	consumerThreads    int
	mmapThresholdBytes int64
	useAdaptiveLoading bool
	resourceController *resource.Controller
	codec              codec.Codec
}

// Option configures a LoadDirectory call.
type Option func(*options)

// WithQueueCapacity sets the bounded work queue's capacity. Defaults to
// 1024. This bounds how many files' worth of work items may sit between
// the producer and the consumer pool, not the bytes they occupy; pair
// with WithResourceController for a byte-denominated bound on the
// standard-IO path.
func WithQueueCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueCapacity = n
		}
	}
}

// WithConsumerThreads sets the number of parsing worker goroutines.
// Defaults to hardware parallelism. LoadDirectory further clamps the
// resolved value down to the number of files discovered in the
// directory, at least 1 — there is no point parking idle consumers on an
// empty queue.
func WithConsumerThreads(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.consumerThreads = n
		}
	}
}

// WithMmapThreshold sets the file-size cutoff below which the adaptive
// producer memory-maps a file rather than reading it into a buffer.
// Defaults to 5 MiB.
func WithMmapThreshold(bytes int64) Option {
	return func(o *options) {
		if bytes > 0 {
			o.mmapThresholdBytes = bytes
		}
	}
}

// WithAdaptiveLoading toggles size-based dispatch between mmap and
// standard I/O. When false, every file is read with standard I/O.
// Defaults to true.
func WithAdaptiveLoading(enabled bool) Option {
	return func(o *options) {
		o.useAdaptiveLoading = enabled
	}
}

// WithResourceController wires an admission controller consulted on two
// paths: the standard-IO producer reserves a byte budget sized to each
// file before reading it and releases it once a consumer has parsed it,
// and each consumer goroutine holds one of the controller's background
// worker slots for its whole lifetime, capping how many run concurrently.
// Unset by default: no admission control is applied.
func WithResourceController(c *resource.Controller) Option {
	return func(o *options) {
		o.resourceController = c
	}
}

// WithLogger wires a *denseengine.Logger into the loader. Pass nil (the
// default) to disable logging.
func WithLogger(l *denseengine.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithCodec sets the Codec each consumer goroutine uses to decode document
// files. Defaults to codec.Default. Passing nil resets to the default.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		o.codec = c
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:             denseengine.NoopLogger(),
		queueCapacity:      defaultQueueCapacity,
		consumerThreads:    runtime.GOMAXPROCS(0),
		mmapThresholdBytes: defaultMmapThresholdByte,
		useAdaptiveLoading: true,
		codec:              codec.Default,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.consumerThreads < 1 {
		o.consumerThreads = 1
	}
	if o.logger == nil {
		o.logger = denseengine.NoopLogger()
	}
	if o.codec == nil {
		o.codec = codec.Default
	}
	return o
}
