// Package resource implements admission control for the directory loader
// and arena allocator: a global cap on off-heap memory, a cap on concurrent
// background parsing workers, and an optional I/O rate limit.
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────┐
//	│                        Controller                            │
//	├─────────────────┬─────────────────┬─────────────────────────┤
//	│  Memory Limit   │  Worker Slots   │  IO Rate Limiter        │
//	│  (semaphore)    │  (semaphore)    │  (token bucket)         │
//	├─────────────────┼─────────────────┼─────────────────────────┤
//	│  AcquireMemory  │  AcquireBack-   │  AcquireIO              │
//	│  ReleaseMemory  │  ground         │  RateLimitedReader      │
//	│  MemoryUsage    │  Release        │                         │
//	└─────────────────┴─────────────────┴─────────────────────────┘
//
// # Memory Management
//
// The arena allocator consults AcquireMemory before mapping each 64 MiB
// chunk, so a process embedding many stores can cap aggregate off-heap
// memory:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 1 << 30, // 1GB limit
//	})
//
//	if err := rc.AcquireMemory(ctx, 64<<20); err != nil {
//	    // blocked, or ctx canceled
//	}
//	defer rc.ReleaseMemory(64 << 20)
//
// # Background Worker Limits
//
// The directory loader's consumer pool acquires one background slot per
// parsing goroutine:
//
//	rc := resource.NewController(resource.Config{
//	    MaxBackgroundWorkers: 4,
//	})
//
// # IO Rate Limiting
//
// RateLimitedReader throttles the loader's producer goroutine so a large
// directory load does not saturate disk bandwidth:
//
//	reader := resource.NewRateLimitedReader(f, rc, ctx)
//
// # Thread Safety
//
// All Controller methods are safe for concurrent use.
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully as no-ops, so resource
// limiting is entirely optional.
package resource
