// Package simd provides the scalar float32 kernels underlying cosine search
// and embedding normalization.
//
// The dimensions this engine targets (typical RAG embedding sizes, a few
// hundred floats) fall squarely in the range where a tight scalar reduction
// loop auto-vectorizes well under the Go compiler without hand-written
// intrinsics; hand-rolled SIMD only earns its complexity at much larger D.
// Build with -tags noasm for parity with environments that disable asm
// kernels elsewhere in the stack; here it has no effect since there is no
// asm path to disable.
package simd
