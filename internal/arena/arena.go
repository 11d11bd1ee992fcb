package arena

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/corpusindex/denseengine/internal/conv"
	"github.com/corpusindex/denseengine/internal/mmap"
)

// ChunkSize is the fixed size of every arena chunk: 64 MiB.
const ChunkSize = 64 * 1024 * 1024

// MaxAlign is the largest alignment an allocation may request.
const MaxAlign = 4096

// MaxChunks bounds the number of chunks an arena may grow to.
const MaxChunks = 65536

// MemoryAcquirer is an optional admission-control hook consulted before a
// new chunk is mapped. It lets a process embedding many stores cap their
// aggregate off-heap memory.
type MemoryAcquirer interface {
	AcquireMemory(ctx context.Context, amount int64) error
	ReleaseMemory(amount int64)
}

// ErrMaxChunksExceeded is returned when the arena would grow past MaxChunks.
var ErrMaxChunksExceeded = errors.New("arena: max chunks exceeded")

// Stats reports arena memory usage.
type Stats struct {
	ChunksAllocated uint64
	BytesReserved   uint64
	BytesUsed       uint64
	BytesWasted     uint64
	ActiveChunks    uint64
	TotalAllocs     uint64
}

type atomicStats struct {
	ChunksAllocated atomic.Uint64
	BytesReserved   atomic.Uint64
	BytesUsed       atomic.Uint64
	BytesWasted     atomic.Uint64
	ActiveChunks    atomic.Uint64
	TotalAllocs     atomic.Uint64
}

type chunk struct {
	data    []byte
	mapping *mmap.Mapping
	offset  atomic.Int64 // accessed concurrently without locks
}

// Arena is a chunked bump-pointer allocator. Every allocation returned by
// Alloc remains valid, stable, and non-overlapping for the lifetime of the
// arena; nothing is ever moved or freed individually.
type Arena struct {
	chunks  atomic.Pointer[[]*chunk] // append-only; published with release semantics
	current atomic.Pointer[chunk]
	mu      sync.Mutex

	stats    atomicStats
	acquirer MemoryAcquirer
}

// Option configures an Arena at construction time.
type Option func(*Arena)

// WithMemoryAcquirer sets the admission-control hook consulted before
// mapping a new chunk.
func WithMemoryAcquirer(acquirer MemoryAcquirer) Option {
	return func(a *Arena) {
		a.acquirer = acquirer
	}
}

// New creates an Arena with one already-mapped chunk.
func New(opts ...Option) (*Arena, error) {
	a := &Arena{}
	for _, opt := range opts {
		opt(a)
	}

	empty := make([]*chunk, 0, 4)
	a.chunks.Store(&empty)

	if err := a.allocateChunk(context.Background()); err != nil {
		return nil, err
	}
	return a, nil
}

func isPowerOfTwo(v int) bool {
	return v > 0 && v&(v-1) == 0
}

// Alloc reserves size bytes aligned to align inside some chunk.
//
// It returns (nil, false) — never an error — if align is not a power of
// two, align exceeds MaxAlign, or size exceeds the chunk size; these are
// the documented rejection cases, not failures that abort the process. A
// size of 0 with a valid align succeeds and returns an empty, non-nil
// slice. The only error this method returns is ErrMaxChunksExceeded or an
// error from the configured MemoryAcquirer/mmap when a new chunk cannot be
// installed. The arena does not retry or recover from these; it returns
// them to the caller (the store reports them as ErrOutOfMemory).
func (a *Arena) Alloc(size int, align int) ([]byte, bool, error) {
	if align <= 0 || !isPowerOfTwo(align) || align > MaxAlign {
		return nil, false, nil
	}
	if size < 0 || size > ChunkSize {
		return nil, false, nil
	}
	if size == 0 {
		return []byte{}, true, nil
	}

	for {
		curr := a.current.Load()
		if curr == nil {
			return nil, false, fmt.Errorf("arena: closed")
		}

		data, wastedU64, ok := tryAllocInChunk(curr, size, align)
		if ok {
			sizeU64, _ := conv.IntToUint64(size)
			a.stats.BytesUsed.Add(sizeU64)
			a.stats.BytesWasted.Add(wastedU64)
			a.stats.TotalAllocs.Add(1)
			return data, true, nil
		}

		// Current chunk can't satisfy this request (either full, or the
		// alignment padding alone would overflow it). Install a new chunk.
		if a.current.Load() != curr {
			continue // someone else already installed one; retry against it
		}

		a.mu.Lock()
		if a.current.Load() != curr {
			a.mu.Unlock()
			continue
		}
		if err := a.allocateChunkLocked(context.Background()); err != nil {
			a.mu.Unlock()
			return nil, false, err
		}
		a.mu.Unlock()
	}
}

// tryAllocInChunk attempts the CAS bump within a single chunk. It returns
// ok=false (without side effects) if the request — after alignment padding
// — would not fit in the remaining space of this chunk. The wasted return
// is the alignment padding skipped by this bump, converted from the CAS
// loop's int64 offset arithmetic up to the uint64 the stats counters use.
func tryAllocInChunk(c *chunk, size, align int) ([]byte, uint64, bool) {
	mask := int64(align - 1)
	for {
		oldOffset := c.offset.Load()
		alignedStart := (oldOffset + mask) &^ mask
		newOffset := alignedStart + int64(size)

		if newOffset > int64(len(c.data)) {
			return nil, 0, false
		}

		if !c.offset.CompareAndSwap(oldOffset, newOffset) {
			continue
		}

		wastedU64, _ := conv.Int64ToUint64(alignedStart - oldOffset)
		return c.data[alignedStart:newOffset:newOffset], wastedU64, true
	}
}

func (a *Arena) allocateChunk(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.allocateChunkLocked(ctx)
}

func (a *Arena) allocateChunkLocked(ctx context.Context) error {
	existing := *a.chunks.Load()
	if len(existing) >= MaxChunks {
		return ErrMaxChunksExceeded
	}

	if a.acquirer != nil {
		acquireCtx := ctx
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			acquireCtx, cancel = context.WithTimeout(ctx, 100*time.Millisecond)
			defer cancel()
		}
		if err := a.acquirer.AcquireMemory(acquireCtx, ChunkSize); err != nil {
			return err
		}
	}

	mapping, err := mmap.MapAnon(ChunkSize)
	if err != nil {
		if a.acquirer != nil {
			a.acquirer.ReleaseMemory(ChunkSize)
		}
		return fmt.Errorf("arena: failed to map chunk: %w", err)
	}

	nc := &chunk{data: mapping.Bytes(), mapping: mapping}

	grown := make([]*chunk, len(existing), len(existing)+1)
	copy(grown, existing)
	grown = append(grown, nc)
	a.chunks.Store(&grown) // release: publishes the new chunk list

	a.stats.ChunksAllocated.Add(1)
	a.stats.BytesReserved.Add(ChunkSize)
	a.stats.ActiveChunks.Add(1)

	a.current.Store(nc) // release: publishes nc as the new current chunk

	return nil
}

// Stats returns a snapshot of the arena's current memory usage.
func (a *Arena) Stats() Stats {
	return Stats{
		ChunksAllocated: a.stats.ChunksAllocated.Load(),
		BytesReserved:   a.stats.BytesReserved.Load(),
		BytesUsed:       a.stats.BytesUsed.Load(),
		BytesWasted:     a.stats.BytesWasted.Load(),
		ActiveChunks:    a.stats.ActiveChunks.Load(),
		TotalAllocs:     a.stats.TotalAllocs.Load(),
	}
}

// Free unmaps every chunk. The arena must not be used afterwards, and Free
// must not run concurrently with Alloc.
func (a *Arena) Free() {
	a.mu.Lock()
	defer a.mu.Unlock()

	chunks := *a.chunks.Load()
	for _, c := range chunks {
		if c.mapping != nil {
			_ = c.mapping.Close()
		}
	}
	if a.acquirer != nil {
		bytesReserved := a.stats.BytesReserved.Load()
		if bytesReserved > 0 {
			a.acquirer.ReleaseMemory(int64(bytesReserved)) //nolint:gosec // bounded by MaxChunks*ChunkSize
		}
	}

	empty := make([]*chunk, 0)
	a.chunks.Store(&empty)
	a.current.Store(nil)

	a.stats.ActiveChunks.Store(0)
	a.stats.BytesReserved.Store(0)
	a.stats.BytesUsed.Store(0)
	a.stats.BytesWasted.Store(0)
}

func (a *Arena) String() string {
	s := a.Stats()
	var usage float64
	if s.BytesReserved > 0 {
		usage = float64(s.BytesUsed) / float64(s.BytesReserved) * 100
	}
	return fmt.Sprintf(
		"Arena{chunks: %d, reserved: %.2f MiB, used: %.2f MiB, usage: %.1f%%, allocs: %d}",
		s.ActiveChunks,
		float64(s.BytesReserved)/(1024*1024),
		float64(s.BytesUsed)/(1024*1024),
		usage,
		s.TotalAllocs,
	)
}
