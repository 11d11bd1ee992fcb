package denseengine

import (
	"errors"
	"fmt"
)

// Sentinel errors for the taxonomy in the store and loader. Use errors.Is
// to test for a kind; structured errors below carry additional context
// and unwrap to one of these sentinels.
var (
	// ErrWrongPhase is returned when an operation is illegal in the
	// store's current phase (e.g. AddDocument after Finalize).
	ErrWrongPhase = errors.New("denseengine: operation illegal in current phase")

	// ErrWrongDimension is returned when an embedding's length does not
	// equal the store's declared dimension.
	ErrWrongDimension = errors.New("denseengine: embedding dimension mismatch")

	// ErrMalformedJSON is returned when a document's top-level shape or
	// required field types are invalid.
	ErrMalformedJSON = errors.New("denseengine: malformed document json")

	// ErrCapacity is returned when the entry table is full, or a single
	// allocation would exceed the arena's chunk size.
	ErrCapacity = errors.New("denseengine: capacity exceeded")

	// ErrOutOfMemory is returned when an underlying allocation failed.
	ErrOutOfMemory = errors.New("denseengine: out of memory")

	// ErrIO is returned by the directory loader on file open/read/stat/mmap
	// failure.
	ErrIO = errors.New("denseengine: io error")
)

// DimensionError reports a dimension mismatch with the expected and actual
// lengths, distinguishing too-short (WrongDimension) from too-long
// (Capacity) per the store's validation order.
type DimensionError struct {
	Expected int
	Actual   int
	cause    error
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: expected %d values, got %d", e.cause, e.Expected, e.Actual)
}

func (e *DimensionError) Unwrap() error { return e.cause }

func newDimensionError(expected, actual int) error {
	if actual < expected {
		return &DimensionError{Expected: expected, Actual: actual, cause: ErrWrongDimension}
	}
	return &DimensionError{Expected: expected, Actual: actual, cause: ErrCapacity}
}

// DocumentError wraps a loader-level failure with the file and, when
// available, the index of the offending document within that file, so
// callers can locate the precise input at fault.
type DocumentError struct {
	Path  string
	Index int
	cause error
}

func (e *DocumentError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s: document %d: %s", e.Path, e.Index, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.cause)
}

func (e *DocumentError) Unwrap() error { return e.cause }

// NewDocumentError wraps cause with the file path and in-file index of the
// document that caused it, for callers (notably the directory loader) that
// need to report exactly which input was at fault.
func NewDocumentError(path string, index int, cause error) *DocumentError {
	return &DocumentError{Path: path, Index: index, cause: cause}
}
