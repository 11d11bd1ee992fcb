// Package loader bulk-loads a directory of JSON document files into a
// denseengine.Store, overlapping sequential file I/O with parallel
// parsing.
//
// LoadDirectory enumerates the directory up front; one producer goroutine
// then walks the sorted file list and, per file, chooses
// between reading the whole file into a buffer or memory-mapping it,
// based on file size. consumer_threads goroutines drain a bounded work
// queue, each parsing with its own codec.Codec instance and calling
// Store.AddDocument for every document it decodes. When the producer and
// all consumers have finished, the loader finalizes the store and
// returns a Stats record.
//
//	store, _ := denseengine.NewStore(768)
//	stats, err := loader.LoadDirectory(ctx, store, "./corpus")
//	fmt.Println(stats)
package loader
