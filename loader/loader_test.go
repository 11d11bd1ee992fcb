package loader_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpusindex/denseengine"
	"github.com/corpusindex/denseengine/codec"
	"github.com/corpusindex/denseengine/internal/resource"
	"github.com/corpusindex/denseengine/loader"
	"github.com/corpusindex/denseengine/testutil"
)

func TestLoadDirectoryMixedShapes(t *testing.T) {
	dir := t.TempDir()
	rng := testutil.NewRNG(1)
	const dim = 8

	require.NoError(t, testutil.WriteSingleDocumentFile(
		filepath.Join(dir, "a-single.json"), "single-doc", "lonely document", rng.UnitVector(dim)))

	// File B: a 100-element array, written directly into the same
	// directory so both shapes land alongside each other.
	_, err := testutil.WriteCorpusDir(dir, 1, 100, dim, rng)
	require.NoError(t, err)

	store, err := denseengine.NewStore(dim)
	require.NoError(t, err)

	stats, err := loader.LoadDirectory(context.Background(), store, dir)
	require.NoError(t, err)

	assert.Equal(t, 101, store.Size())
	assert.True(t, store.IsFinalized())
	assert.Equal(t, 101, stats.DocumentsParsed)
	assert.Equal(t, 0, stats.DocumentsFailed)
	assert.Equal(t, 2, stats.FilesSeen)
	assert.Equal(t, 2, stats.FilesSucceeded)
}

func TestLoadDirectoryAdaptiveThresholdBoundary(t *testing.T) {
	dir := t.TempDir()
	const threshold = 5 * 1024 * 1024

	writePaddedFile(t, filepath.Join(dir, "small.json"), threshold-1)
	writePaddedFile(t, filepath.Join(dir, "large.json"), threshold+1)

	store, err := denseengine.NewStore(4)
	require.NoError(t, err)

	stats, err := loader.LoadDirectory(context.Background(), store, dir,
		loader.WithMmapThreshold(threshold))
	require.NoError(t, err)

	assert.Equal(t, 1, stats.FilesMapped)
	assert.Equal(t, 1, stats.FilesStandard)
	// Both files are malformed JSON padding, not valid documents, so every
	// file is counted seen but fails to parse — this test only exercises
	// the mmap/standard dispatch boundary, not document insertion.
	assert.Equal(t, 2, stats.FilesSeen)
	assert.Equal(t, 2, stats.FilesFailed)
}

func TestLoadDirectoryNonexistent(t *testing.T) {
	store, err := denseengine.NewStore(4)
	require.NoError(t, err)

	stats, err := loader.LoadDirectory(context.Background(), store, filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
	assert.True(t, store.IsFinalized(), "store must still be finalized on a catastrophic enumeration error")
	assert.Equal(t, 0, stats.FilesSeen)
}

func TestLoadDirectoryMalformedDocumentSkipped(t *testing.T) {
	dir := t.TempDir()
	rng := testutil.NewRNG(2)
	const dim = 4

	require.NoError(t, testutil.WriteSingleDocumentFile(
		filepath.Join(dir, "good.json"), "ok", "fine", rng.UnitVector(dim)))

	// Wrong-dimension document: valid JSON shape, invalid per the store's
	// declared dimension, so AddDocument rejects it without aborting the
	// file or the run.
	require.NoError(t, testutil.WriteSingleDocumentFile(
		filepath.Join(dir, "wrong-dim.json"), "bad", "wrong dimension", rng.UnitVector(dim+1)))

	store, err := denseengine.NewStore(dim)
	require.NoError(t, err)

	stats, err := loader.LoadDirectory(context.Background(), store, dir)
	require.NoError(t, err)

	assert.Equal(t, 1, store.Size())
	assert.Equal(t, 1, stats.DocumentsParsed)
	assert.Equal(t, 1, stats.DocumentsFailed)
}

// A malformed element inside a multi-document array file must not take its
// well-formed siblings down with it: the siblings still reach the store,
// and only the bad element is counted as failed.
func TestLoadDirectoryArrayWithMalformedSiblingSkipped(t *testing.T) {
	dir := t.TempDir()
	const dim = 2

	data := []byte(`[
		{"id":"a","text":"t1","metadata":{"embedding":[1,0]}},
		{"id":"b","text":"t2","metadata":{"embedding":"not-an-array"}},
		{"id":"c","text":"t3","metadata":{"embedding":[0,1]}}
	]`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mixed.json"), data, 0o644))

	store, err := denseengine.NewStore(dim)
	require.NoError(t, err)

	stats, err := loader.LoadDirectory(context.Background(), store, dir)
	require.NoError(t, err)

	assert.Equal(t, 2, store.Size(), "both well-formed siblings must still be inserted")
	assert.Equal(t, 1, stats.FilesSeen)
	assert.Equal(t, 1, stats.FilesSucceeded)
	assert.Equal(t, 0, stats.FilesFailed)
	assert.Equal(t, 2, stats.DocumentsParsed)
	assert.Equal(t, 1, stats.DocumentsFailed)
}

// A resource controller with fewer background-worker slots than consumer
// goroutines must still let the whole directory load complete: the extra
// consumers simply block on AcquireBackground until a slot frees up.
func TestLoadDirectoryWithResourceController(t *testing.T) {
	dir := t.TempDir()
	rng := testutil.NewRNG(3)
	const dim = 4

	_, err := testutil.WriteCorpusDir(dir, 8, 5, dim, rng)
	require.NoError(t, err)

	store, err := denseengine.NewStore(dim)
	require.NoError(t, err)

	rc := resource.NewController(resource.Config{MaxBackgroundWorkers: 2})

	stats, err := loader.LoadDirectory(context.Background(), store, dir,
		loader.WithConsumerThreads(4),
		loader.WithResourceController(rc),
		loader.WithCodec(codec.JSON{}))
	require.NoError(t, err)

	assert.Equal(t, 40, store.Size())
	assert.Equal(t, 8, stats.FilesSeen)
	assert.Equal(t, 0, stats.DocumentsFailed)
}

func writePaddedFile(t *testing.T, path string, size int) {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = ' '
	}
	require.NoError(t, os.WriteFile(path, data, 0o644))
}
