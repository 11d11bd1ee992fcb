package denseengine

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"unicode/utf8"
	"unsafe"

	"github.com/corpusindex/denseengine/codec"
	"github.com/corpusindex/denseengine/distance"
	"github.com/corpusindex/denseengine/internal/arena"
)

const defaultCapacity = 1_000_000

// embeddingAlign is the alignment of the embedding region at the front of
// every document slab, chosen to be a cache line so the dot-product
// kernel reads aligned 256/512-bit lanes.
const embeddingAlign = 64

// normalizeEpsilon2 is the squared-norm threshold below which finalize
// leaves an embedding unchanged rather than dividing by a near-zero norm.
const normalizeEpsilon2 = 1e-10

// Store holds the fixed-dimension embedding table and per-document
// string views, and enforces the Loading -> Serving phase machine.
//
// The zero value is not usable; construct with NewStore.
type Store struct {
	dim      int
	capacity int

	arena   *arena.Arena
	entries []atomic.Pointer[entry]

	count     atomic.Int64
	finalized atomic.Bool

	finalizeMu sync.Mutex
	searchMu   sync.Mutex

	logger  *Logger
	workers int
}

// NewStore constructs a Store for dim-dimensional embeddings.
func NewStore(dim int, opts ...StoreOption) (*Store, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("denseengine: dimension must be positive, got %d", dim)
	}

	o := applyOptions(opts)
	if o.capacity <= 0 {
		o.capacity = defaultCapacity
	}

	var arenaOpts []arena.Option
	if o.acquirer != nil {
		arenaOpts = append(arenaOpts, arena.WithMemoryAcquirer(o.acquirer))
	}
	a, err := arena.New(arenaOpts...)
	if err != nil {
		return nil, fmt.Errorf("denseengine: %w", err)
	}

	return &Store{
		dim:      dim,
		capacity: o.capacity,
		arena:    a,
		entries:  make([]atomic.Pointer[entry], o.capacity),
		logger:   o.logger,
		workers:  o.searchWorkers,
	}, nil
}

// Dimension returns the store's fixed embedding dimension D.
func (s *Store) Dimension() int { return s.dim }

// Size returns the number of successfully inserted documents.
func (s *Store) Size() int { return int(s.count.Load()) }

// IsFinalized reports whether the store has transitioned to Serving.
func (s *Store) IsFinalized() bool { return s.finalized.Load() }

// AddDocument inserts one parsed document while the store is in Loading
// phase. It returns the entry's stable index on success.
//
// Validation order matches the documented fail-fast contract: phase,
// then UTF-8 validity of id and text, then dimension, then finiteness of
// the embedding values, then allocation, then capacity.
func (s *Store) AddDocument(ctx context.Context, doc codec.Document) (int, error) {
	if s.finalized.Load() {
		return -1, ErrWrongPhase
	}

	if !utf8.ValidString(doc.ID) || !utf8.ValidString(doc.Text) {
		return -1, ErrMalformedJSON
	}

	if len(doc.Embedding) != s.dim {
		err := newDimensionError(s.dim, len(doc.Embedding))
		s.logger.LogAddDocument(ctx, -1, err)
		return -1, err
	}

	if !allFinite(doc.Embedding) {
		err := fmt.Errorf("%w: embedding contains NaN or Inf", ErrMalformedJSON)
		s.logger.LogAddDocument(ctx, -1, err)
		return -1, err
	}

	idx, err := s.allocateAndPublish(doc)
	s.logger.LogAddDocument(ctx, idx, err)
	return idx, err
}

// allFinite reports whether every value is a finite float32 — neither NaN
// nor ±Inf. A non-finite value would silently poison normalization and
// every subsequent top-k score for the entry that carries it.
func allFinite(values []float32) bool {
	for _, v := range values {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return false
		}
	}
	return true
}

// allocateAndPublish reserves one contiguous arena slab, writes the
// document's embedding/id/text/metadata into it in that order, then
// reserves and publishes an entry slot. The slab is fully written before
// the slot is published, so no reader ever observes a partial entry.
func (s *Store) allocateAndPublish(doc codec.Document) (int, error) {
	idSize := len(doc.ID) + 1
	textSize := len(doc.Text) + 1
	metaSize := len(doc.MetadataJSON) + 1
	embeddingSize := s.dim * 4
	total := embeddingSize + idSize + textSize + metaSize

	slab, ok, err := s.arena.Alloc(total, embeddingAlign)
	if err != nil {
		return -1, fmt.Errorf("%w: %v", ErrOutOfMemory, err)
	}
	if !ok {
		// The only way a 64-byte-aligned request this small is rejected
		// is the slab exceeding the arena's chunk size.
		return -1, ErrCapacity
	}

	embeddingBytes := slab[:embeddingSize]
	embedding := unsafe.Slice((*float32)(unsafe.Pointer(&embeddingBytes[0])), s.dim)
	for i, v := range doc.Embedding {
		embedding[i] = v
	}

	offset := embeddingSize
	idRegion := slab[offset : offset+idSize]
	copy(idRegion, doc.ID)
	idRegion[len(doc.ID)] = 0
	offset += idSize

	textRegion := slab[offset : offset+textSize]
	copy(textRegion, doc.Text)
	textRegion[len(doc.Text)] = 0
	offset += textSize

	metaRegion := slab[offset : offset+metaSize]
	copy(metaRegion, doc.MetadataJSON)
	metaRegion[len(doc.MetadataJSON)] = 0

	e := &entry{
		id:           idRegion[:len(doc.ID)],
		text:         textRegion[:len(doc.Text)],
		metadataJSON: metaRegion[:len(doc.MetadataJSON)],
		embedding:    embedding,
	}

	newCount := s.count.Add(1)
	idx := int(newCount) - 1
	if idx >= s.capacity {
		s.count.Add(-1)
		return -1, ErrCapacity
	}

	s.entries[idx].Store(e)
	return idx, nil
}

// Finalize L2-normalizes every embedding in place and flips the phase to
// Serving. It is idempotent: a second call is a no-op. The caller is
// responsible for ensuring no AddDocument calls are in flight.
func (s *Store) Finalize(ctx context.Context) {
	if s.finalized.Load() {
		s.logger.LogFinalize(ctx, 0, true)
		return
	}

	s.finalizeMu.Lock()
	defer s.finalizeMu.Unlock()
	if s.finalized.Load() {
		s.logger.LogFinalize(ctx, 0, true)
		return
	}

	n := int(s.count.Load())
	normalizeRange(s.entries[:n])

	s.finalized.Store(true)
	s.logger.LogFinalize(ctx, n, false)
}

func normalizeRange(entries []atomic.Pointer[entry]) {
	workers := defaultParallelism()
	if workers > len(entries) {
		workers = len(entries)
	}
	if workers <= 1 {
		normalizeChunk(entries)
		return
	}

	chunkSize := (len(entries) + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < len(entries); start += chunkSize {
		end := min(start+chunkSize, len(entries))
		wg.Add(1)
		go func(chunk []atomic.Pointer[entry]) {
			defer wg.Done()
			normalizeChunk(chunk)
		}(entries[start:end])
	}
	wg.Wait()
}

func normalizeChunk(entries []atomic.Pointer[entry]) {
	for i := range entries {
		e := entries[i].Load()
		if e == nil {
			continue
		}
		// Pre-check against the near-zero epsilon before delegating the
		// actual divide to distance.NormalizeL2InPlace, which only special-
		// cases an exact zero norm; a tiny but nonzero norm would otherwise
		// blow up into a huge, meaningless embedding.
		norm2 := distance.Dot(e.embedding, e.embedding)
		if norm2 <= normalizeEpsilon2 {
			continue
		}
		distance.NormalizeL2InPlace(e.embedding)
	}
}

func defaultParallelism() int {
	return runtime.GOMAXPROCS(0)
}
