package denseengine

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/corpusindex/denseengine/distance"
	"github.com/corpusindex/denseengine/internal/queue"
)

type searchOptions struct {
	normalizeQuery bool
}

// SearchOption configures a single Search call.
type SearchOption func(*searchOptions)

// WithNormalizeQuery requests that Search L2-normalize the query vector
// before scoring it, rather than trusting the caller to have already
// normalized it. Off by default: the documented contract is that the
// caller (or the surrounding binding) normalizes the query.
func WithNormalizeQuery() SearchOption {
	return func(o *searchOptions) {
		o.normalizeQuery = true
	}
}

func applySearchOptions(opts []SearchOption) searchOptions {
	var o searchOptions
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Search returns the min(k, Size()) entries with the highest cosine score
// against query, sorted by score descending with ties broken by ascending
// index. It returns an empty result (not an error) if the store is not
// yet in Serving phase, if k <= 0, or if the store is empty — matching
// the documented search-guard contract. A dimension mismatch is the one
// condition that IS reported as an error.
func (s *Store) Search(ctx context.Context, query []float32, k int, opts ...SearchOption) ([]SearchResult, error) {
	if len(query) != s.dim {
		return nil, newDimensionError(s.dim, len(query))
	}
	if !s.finalized.Load() {
		return nil, nil
	}
	if k <= 0 {
		return nil, nil
	}

	n := int(s.count.Load())
	if n == 0 {
		return nil, nil
	}

	so := applySearchOptions(opts)
	q := query
	if so.normalizeQuery {
		if normalized, ok := distance.NormalizeL2Copy(query); ok {
			q = normalized
		}
	}

	s.searchMu.Lock()
	defer s.searchMu.Unlock()

	workers := s.workers
	if workers <= 0 {
		workers = defaultParallelism()
	}

	merged := parallelTopK(s.entries[:n], q, k, workers)
	results := s.toSearchResults(merged)

	s.logger.LogSearch(ctx, k, len(results))
	return results, nil
}

// parallelTopK partitions [0, len(entries)) across worker goroutines.
// Each worker maintains a bounded min-heap of size k over its partition;
// the T partial results are then pooled, sorted, and cut to k by
// mergeTopK.
func parallelTopK(entries []atomic.Pointer[entry], query []float32, k, workers int) []queue.PriorityQueueItem {
	n := len(entries)
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}

	partial := make([][]queue.PriorityQueueItem, workers)
	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		if start >= n {
			break
		}
		end := min(start+chunkSize, n)

		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			partial[w] = topKInRange(entries, query, start, end, k)
		}(w, start, end)
	}
	wg.Wait()

	return mergeTopK(partial, k)
}

// topKInRange scans entries[start:end), scoring each against query, and
// keeps the k highest scores via a bounded min-heap: once the heap holds
// k items, a new candidate only replaces the current minimum if it
// strictly beats it. Because indices are visited in ascending order, a
// strict (not >=) comparison keeps an earlier index over a later tied
// one; when a candidate does evict, the highest index among the entries
// tied at the heap minimum is the one dropped, so ties always resolve by
// ascending index.
func topKInRange(entries []atomic.Pointer[entry], query []float32, start, end, k int) []queue.PriorityQueueItem {
	pq := queue.NewMin(k)
	for i := start; i < end; i++ {
		e := entries[i].Load()
		if e == nil {
			continue
		}
		score := distance.Dot(query, e.embedding)
		if pq.Len() < k {
			pq.PushItem(queue.PriorityQueueItem{Node: uint32(i), Distance: score})
			continue
		}
		top, _ := pq.TopItem()
		if score > top.Distance {
			// The heap orders tied minima arbitrarily, so pop them all and
			// put back every one except the highest index.
			var tied []queue.PriorityQueueItem
			for t, ok := pq.TopItem(); ok && t.Distance == top.Distance; t, ok = pq.TopItem() {
				tied = append(tied, t)
				pq.PopItem()
			}
			sort.Slice(tied, func(a, b int) bool { return tied[a].Node < tied[b].Node })
			for _, t := range tied[:len(tied)-1] {
				pq.PushItem(t)
			}
			pq.PushItem(queue.PriorityQueueItem{Node: uint32(i), Distance: score})
		}
	}

	out := make([]queue.PriorityQueueItem, 0, pq.Len())
	for pq.Len() > 0 {
		item, _ := pq.PopItem()
		out = append(out, item)
	}
	return out
}

// mergeTopK folds the T partial top-k lists into one. Each worker's list
// already holds at most k candidates, so the merged pool is bounded by
// T*k — small enough that a single sort-and-truncate is both simpler and
// more obviously correct than a second round of heap eviction: a heap's
// pop order among tied scores is arbitrary, and evicting on that order
// can silently keep a higher index over a lower one. Sorting the whole
// pool once, by the final (score desc, index asc) order, then slicing to
// k sidesteps that entirely.
func mergeTopK(partial [][]queue.PriorityQueueItem, k int) []queue.PriorityQueueItem {
	total := 0
	for _, items := range partial {
		total += len(items)
	}

	pool := make([]queue.PriorityQueueItem, 0, total)
	for _, items := range partial {
		pool = append(pool, items...)
	}

	sort.Slice(pool, func(i, j int) bool {
		if pool[i].Distance != pool[j].Distance {
			return pool[i].Distance > pool[j].Distance
		}
		return pool[i].Node < pool[j].Node
	})

	if len(pool) > k {
		pool = pool[:k]
	}
	return pool
}

func (s *Store) toSearchResults(items []queue.PriorityQueueItem) []SearchResult {
	results := make([]SearchResult, len(items))
	for i, item := range items {
		idx := int(item.Node)
		e := s.entries[idx].Load()
		results[i] = SearchResult{
			Score:        item.Distance,
			Index:        idx,
			ID:           string(e.id),
			Text:         string(e.text),
			MetadataJSON: string(e.metadataJSON),
		}
	}
	return results
}
