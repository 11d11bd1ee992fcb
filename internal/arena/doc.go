// Package arena implements a chunked bump-pointer allocator.
//
// # Concurrency Model
//
// Arena supports concurrent Alloc calls from many goroutines but does not
// support concurrent Free. The typical usage pattern is:
//   - Create one Arena per Store.
//   - Call Alloc from many goroutines during the Loading phase (SAFE).
//   - Call Free once when the store is destroyed (NOT concurrent with Alloc).
//
// # Memory Management
//
// Chunks are fixed at 64 MiB and backed by anonymous memory mappings rather
// than heap slices, so large corpora never pressure the garbage collector.
// Allocation within a chunk is a lock-free CAS loop on the chunk's offset
// counter; installing a new chunk is serialized by a mutex with a
// double-checked fast path.
package arena
