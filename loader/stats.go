package loader

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Stats summarizes one LoadDirectory run.
type Stats struct {
	FilesSeen      int
	FilesSucceeded int
	FilesFailed    int
	FilesMapped    int
	FilesStandard  int

	DocumentsParsed int
	DocumentsFailed int

	BytesProcessed int64
	Elapsed        time.Duration
}

// DocsPerSecond returns the derived document throughput, or 0 if Elapsed
// is zero.
func (s Stats) DocsPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.DocumentsParsed) / s.Elapsed.Seconds()
}

// MegabytesPerSecond returns the derived byte throughput, or 0 if Elapsed
// is zero.
func (s Stats) MegabytesPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	const mib = 1024 * 1024
	return float64(s.BytesProcessed) / mib / s.Elapsed.Seconds()
}

// String renders a human-readable one-line summary, in the style of the
// benchmark harnesses this package's engine was built alongside.
func (s Stats) String() string {
	return fmt.Sprintf(
		"files=%d/%d (mapped=%d standard=%d failed=%d) docs=%d (failed=%d) bytes=%s elapsed=%s (%.0f docs/s, %.1f MB/s)",
		s.FilesSucceeded, s.FilesSeen, s.FilesMapped, s.FilesStandard, s.FilesFailed,
		s.DocumentsParsed, s.DocumentsFailed,
		humanize.Bytes(uint64(s.BytesProcessed)),
		s.Elapsed,
		s.DocsPerSecond(), s.MegabytesPerSecond(),
	)
}
