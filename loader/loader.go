package loader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/corpusindex/denseengine"
	"github.com/corpusindex/denseengine/codec"
	"github.com/corpusindex/denseengine/internal/mmap"
	"github.com/corpusindex/denseengine/internal/resource"
)

// workItem is one file handed from the producer to a consumer: either an
// owned byte copy (standard I/O) or a live memory mapping, plus enough
// bookkeeping for the consumer to release it afterward.
type workItem struct {
	path        string
	data        []byte
	mapping     *mmap.Mapping
	mapped      bool
	size        int64
	memReserved bool
}

// LoadDirectory enumerates the *.json files in dir (non-recursive, sorted
// lexicographically), decodes them, and inserts every document into
// store, finally calling store.Finalize. It returns statistics about the
// run even when it also returns an error: a catastrophic enumeration
// failure still drains whatever was already queued and finalizes the
// store with it before propagating the error to the caller.
func LoadDirectory(ctx context.Context, store *denseengine.Store, dir string, opts ...Option) (Stats, error) {
	o := applyOptions(opts)
	start := time.Now()

	paths, enumErr := listJSONFiles(dir)
	if enumErr == nil && o.consumerThreads > len(paths) {
		o.consumerThreads = max(len(paths), 1)
	}

	queue := make(chan workItem, o.queueCapacity)

	var (
		filesSeen, filesFailed, filesFailedParse, filesSucceeded atomic.Int64
		filesMapped, filesStandard                               atomic.Int64
		documentsParsed, documentsFailed                         atomic.Int64
		bytesProcessed                                           atomic.Int64
	)

	g := new(errgroup.Group)

	g.Go(func() error {
		defer close(queue)

		if enumErr != nil {
			return fmt.Errorf("loader: enumerate %s: %w", dir, enumErr)
		}
		filesSeen.Add(int64(len(paths)))

		var scratch []byte
		for _, path := range paths {
			item, err := produceWorkItem(ctx, path, o, &scratch)
			if err != nil {
				filesFailed.Add(1)
				o.logger.LogFileLoaded(ctx, path, 0, 0, false, err)
				continue
			}
			if item.mapped {
				filesMapped.Add(1)
			} else {
				filesStandard.Add(1)
			}
			bytesProcessed.Add(item.size)

			select {
			case queue <- item:
			case <-ctx.Done():
				releaseWorkItem(item, o.resourceController)
				return ctx.Err()
			}
		}
		return nil
	})

	for c := 0; c < o.consumerThreads; c++ {
		g.Go(func() error {
			// Each consumer goroutine gets its own Codec value, matching
			// the documented one-decoder-per-goroutine contract. The
			// built-in codecs are stateless, so this costs nothing beyond
			// making the ownership explicit at the call site.
			dec := o.codec

			if err := o.resourceController.AcquireBackground(ctx); err != nil {
				return fmt.Errorf("admission: %w", err)
			}
			defer o.resourceController.ReleaseBackground()

			for item := range queue {
				docs, decodeFailures, err := codec.DocumentsFromJSON(dec, item.data)
				if err != nil {
					filesFailedParse.Add(1)
					o.logger.LogFileLoaded(ctx, item.path, 0, 0, item.mapped, err)
					releaseWorkItem(item, o.resourceController)
					continue
				}

				for _, df := range decodeFailures {
					documentsFailed.Add(1)
					o.logger.WarnContext(ctx, "document rejected",
						"error", denseengine.NewDocumentError(item.path, df.Index, df.Err))
				}

				failed := 0
				for i, doc := range docs {
					if _, err := store.AddDocument(ctx, doc); err != nil {
						failed++
						o.logger.WarnContext(ctx, "document rejected",
							"error", denseengine.NewDocumentError(item.path, i, err))
					}
				}
				documentsParsed.Add(int64(len(docs) - failed))
				documentsFailed.Add(int64(failed))
				filesSucceeded.Add(1)
				o.logger.LogFileLoaded(ctx, item.path, len(docs)-failed, failed+len(decodeFailures), item.mapped, nil)

				releaseWorkItem(item, o.resourceController)
			}
			return nil
		})
	}

	runErr := g.Wait()
	store.Finalize(ctx)

	stats := Stats{
		FilesSeen:       int(filesSeen.Load()),
		FilesSucceeded:  int(filesSucceeded.Load()),
		FilesFailed:     int(filesFailed.Load() + filesFailedParse.Load()),
		FilesMapped:     int(filesMapped.Load()),
		FilesStandard:   int(filesStandard.Load()),
		DocumentsParsed: int(documentsParsed.Load()),
		DocumentsFailed: int(documentsFailed.Load()),
		BytesProcessed:  bytesProcessed.Load(),
		Elapsed:         time.Since(start),
	}
	o.logger.LogDirectoryLoad(ctx, stats.FilesSeen, stats.FilesSucceeded, stats.FilesFailed,
		stats.DocumentsParsed, stats.DocumentsFailed, stats.Elapsed.String())

	if runErr != nil {
		return stats, fmt.Errorf("loader: %w", runErr)
	}
	return stats, nil
}

func listJSONFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if filepath.Ext(e.Name()) != ".json" {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// produceWorkItem reads or maps one file, choosing the method per the
// adaptive-loading policy: memory-map files smaller than the configured
// threshold, read everything else into scratch and hand the consumer an
// owned copy. scratch is reused across standard-IO files within one
// producer, resized only when a larger file demands it.
func produceWorkItem(ctx context.Context, path string, o options, scratch *[]byte) (workItem, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return workItem{}, err
	}
	size := fi.Size()

	useMmap := o.useAdaptiveLoading && size < o.mmapThresholdBytes
	if useMmap {
		m, err := mmap.Open(path)
		if err != nil {
			return workItem{}, err
		}
		return workItem{path: path, data: m.Bytes(), mapping: m, mapped: true, size: int64(m.Size())}, nil
	}

	if o.resourceController != nil {
		if err := o.resourceController.AcquireMemory(ctx, size); err != nil {
			return workItem{}, fmt.Errorf("admission: %w", err)
		}
	}

	if int64(cap(*scratch)) < size {
		*scratch = make([]byte, size)
	}
	buf := (*scratch)[:size]

	f, err := os.Open(path)
	if err != nil {
		if o.resourceController != nil {
			o.resourceController.ReleaseMemory(size)
		}
		return workItem{}, err
	}

	// Wrapping in a RateLimitedReader is a no-op unless the caller
	// configured an IOLimitBytesPerSec on the controller; AcquireIO
	// returns immediately when no limiter is set.
	var src io.Reader = f
	if o.resourceController != nil {
		src = resource.NewRateLimitedReader(f, o.resourceController, ctx)
	}

	_, readErr := io.ReadFull(src, buf)
	f.Close()
	if readErr != nil {
		if o.resourceController != nil {
			o.resourceController.ReleaseMemory(size)
		}
		return workItem{}, readErr
	}

	owned := make([]byte, size)
	copy(owned, buf)

	return workItem{
		path:        path,
		data:        owned,
		size:        size,
		memReserved: o.resourceController != nil,
	}, nil
}

func releaseWorkItem(item workItem, rc *resource.Controller) {
	if item.mapping != nil {
		item.mapping.Close()
		return
	}
	if item.memReserved && rc != nil {
		rc.ReleaseMemory(item.size)
	}
}
