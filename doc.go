// Package denseengine provides an in-process, read-mostly dense-vector
// similarity engine.
//
// A Store holds a fixed-dimension table of float32 embeddings plus their
// associated id, text, and metadata, backed by a chunked arena allocator
// rather than a general-purpose heap. It moves through two phases:
//
//	Loading -> AddDocument repeatedly, then Finalize once.
//	Serving -> Search repeatedly. No further writes are accepted.
//
// Finalize L2-normalizes every embedding once, up front, so that Search
// can score candidates with a plain dot product instead of repeating a
// norm computation per comparison:
//
//	store, _ := denseengine.NewStore(768, denseengine.WithCapacity(1_000_000))
//	for _, doc := range docs {
//	    store.AddDocument(ctx, doc)
//	}
//	store.Finalize(ctx)
//
//	results, _ := store.Search(ctx, query, 10)
//	for _, r := range results {
//	    fmt.Println(r.ID, r.Score)
//	}
//
// Search runs an exact brute-force scan, not an approximate index: every
// stored embedding is scored against the query. It partitions the scan
// across worker goroutines, each maintaining a bounded min-heap of size
// k, then merges the partial results deterministically — ties broken by
// ascending index, independent of goroutine scheduling order.
//
// The loader subpackage builds on Store to bulk-load a directory of JSON
// document files, choosing between a streaming reader and a memory-mapped
// reader per file based on size.
package denseengine
