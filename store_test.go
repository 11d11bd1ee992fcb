package denseengine_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpusindex/denseengine"
	"github.com/corpusindex/denseengine/codec"
)

func doc(id, text string, embedding []float32) codec.Document {
	return codec.Document{ID: id, Text: text, Embedding: embedding, MetadataJSON: []byte(`{}`)}
}

// S1: tiny deterministic corpus with a known top-2 order.
func TestSearchTinyDeterministic(t *testing.T) {
	ctx := context.Background()
	store, err := denseengine.NewStore(3)
	require.NoError(t, err)

	_, err = store.AddDocument(ctx, doc("a", "a", []float32{1, 0, 0}))
	require.NoError(t, err)
	_, err = store.AddDocument(ctx, doc("b", "b", []float32{0, 1, 0}))
	require.NoError(t, err)
	_, err = store.AddDocument(ctx, doc("c", "c", []float32{1, 1, 0}))
	require.NoError(t, err)

	store.Finalize(ctx)
	require.True(t, store.IsFinalized())
	require.Equal(t, 3, store.Size())

	results, err := store.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, 0, results[0].Index)
	assert.InDelta(t, 1.0, results[0].Score, 1e-4)
	assert.Equal(t, 2, results[1].Index)
	assert.InDelta(t, 0.7071, results[1].Score, 1e-3)
}

// S2: orthogonal query against two orthogonal unit embeddings.
func TestSearchOrthogonality(t *testing.T) {
	ctx := context.Background()
	store, err := denseengine.NewStore(4)
	require.NoError(t, err)

	_, err = store.AddDocument(ctx, doc("x", "x", []float32{1, 0, 0, 0}))
	require.NoError(t, err)
	_, err = store.AddDocument(ctx, doc("y", "y", []float32{0, 0, 0, 1}))
	require.NoError(t, err)
	store.Finalize(ctx)

	results, err := store.Search(ctx, []float32{0, 1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.InDelta(t, 0, r.Score, 1e-4)
	}
}

// S3: dimension rejection — fewer values is WrongDimension, more is Capacity.
func TestAddDocumentDimensionRejection(t *testing.T) {
	ctx := context.Background()
	store, err := denseengine.NewStore(5)
	require.NoError(t, err)

	_, err = store.AddDocument(ctx, doc("short", "short", make([]float32, 4)))
	assert.ErrorIs(t, err, denseengine.ErrWrongDimension)

	_, err = store.AddDocument(ctx, doc("long", "long", make([]float32, 6)))
	assert.ErrorIs(t, err, denseengine.ErrCapacity)

	assert.Equal(t, 0, store.Size())
}

// Non-finite embedding values must be rejected, not silently accepted to
// poison normalization and every subsequent top-k score.
func TestAddDocumentRejectsNonFiniteEmbedding(t *testing.T) {
	ctx := context.Background()
	store, err := denseengine.NewStore(3)
	require.NoError(t, err)

	_, err = store.AddDocument(ctx, doc("nan", "nan", []float32{float32(math.NaN()), 0, 0}))
	assert.ErrorIs(t, err, denseengine.ErrMalformedJSON)

	_, err = store.AddDocument(ctx, doc("inf", "inf", []float32{float32(math.Inf(1)), 0, 0}))
	assert.ErrorIs(t, err, denseengine.ErrMalformedJSON)

	_, err = store.AddDocument(ctx, doc("neginf", "neginf", []float32{0, float32(math.Inf(-1)), 0}))
	assert.ErrorIs(t, err, denseengine.ErrMalformedJSON)

	assert.Equal(t, 0, store.Size())
}

// S4: phase discipline — search before finalize is empty, add after
// finalize is WrongPhase, search after finalize returns results.
func TestPhaseDiscipline(t *testing.T) {
	ctx := context.Background()
	store, err := denseengine.NewStore(3)
	require.NoError(t, err)

	results, err := store.Search(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	_, err = store.AddDocument(ctx, doc("a", "a", []float32{1, 0, 0}))
	require.NoError(t, err)

	results, err = store.Search(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results, "search must stay empty until finalize, even with documents present")

	store.Finalize(ctx)

	_, err = store.AddDocument(ctx, doc("b", "b", []float32{0, 1, 0}))
	assert.ErrorIs(t, err, denseengine.ErrWrongPhase)

	results, err = store.Search(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestShapeInvariant(t *testing.T) {
	ctx := context.Background()
	store, err := denseengine.NewStore(2)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		_, err := store.AddDocument(ctx, doc("x", "x", []float32{1, 0}))
		require.NoError(t, err)
	}
	assert.Equal(t, 50, store.Size())
}

func TestFinalizeIdempotent(t *testing.T) {
	ctx := context.Background()
	store, err := denseengine.NewStore(2)
	require.NoError(t, err)
	_, err = store.AddDocument(ctx, doc("x", "x", []float32{3, 4}))
	require.NoError(t, err)

	store.Finalize(ctx)
	first, err := store.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)

	store.Finalize(ctx)
	second, err := store.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

// Unit-norm post-finalize and self-retrieval.
func TestFinalizeNormalizesAndSelfRetrieves(t *testing.T) {
	ctx := context.Background()
	store, err := denseengine.NewStore(2)
	require.NoError(t, err)

	idx, err := store.AddDocument(ctx, doc("v", "v", []float32{3, 4})) // norm 5
	require.NoError(t, err)
	store.Finalize(ctx)

	results, err := store.Search(ctx, []float32{3.0 / 5, 4.0 / 5}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, idx, results[0].Index)
	assert.InDelta(t, 1.0, results[0].Score, 1e-3)
}

func TestSearchDeterministic(t *testing.T) {
	ctx := context.Background()
	store, err := denseengine.NewStore(16)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		v := make([]float32, 16)
		v[i%16] = float32(i%7 + 1)
		_, err := store.AddDocument(ctx, doc("d", "d", v))
		require.NoError(t, err)
	}
	store.Finalize(ctx)

	query := make([]float32, 16)
	query[0] = 1

	first, err := store.Search(ctx, query, 10)
	require.NoError(t, err)
	second, err := store.Search(ctx, query, 10)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSearchDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	store, err := denseengine.NewStore(4)
	require.NoError(t, err)
	_, err = store.AddDocument(ctx, doc("a", "a", []float32{1, 0, 0, 0}))
	require.NoError(t, err)
	store.Finalize(ctx)

	_, err = store.Search(ctx, []float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, denseengine.ErrWrongDimension)
}

func TestMetadataRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := denseengine.NewStore(2)
	require.NoError(t, err)

	meta := []byte(`{"embedding":[1,0],"source":"corpus","page":3}`)
	d := codec.Document{ID: "m", Text: "meta test", Embedding: []float32{1, 0}, MetadataJSON: meta}
	_, err = store.AddDocument(ctx, d)
	require.NoError(t, err)
	store.Finalize(ctx)

	results, err := store.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.JSONEq(t, string(meta), results[0].MetadataJSON)
}
