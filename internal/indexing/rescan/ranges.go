package rescan

import (
	"sort"

	"github.com/vietddude/gravity-indexer/internal/core/domain"
)

// Partition splits a half-open window into consecutive chunks of at most size.
func Partition(w domain.Window, size uint64) []domain.Window {
	if w.Empty() {
		return nil
	}
	if size == 0 || w.Size() <= size {
		return []domain.Window{w}
	}

	chunks := make([]domain.Window, 0, (w.Size()+size-1)/size)
	for current := w.Start; current < w.End; {
		chunkEnd := min(current+size, w.End)
		chunks = append(chunks, domain.Window{Start: current, End: chunkEnd})
		current = chunkEnd
	}
	return chunks
}

// Touches reports whether two windows overlap or are adjacent.
func Touches(a, b domain.Window) bool {
	return a.Start <= b.End && b.Start <= a.End
}

// Merge merges overlapping and adjacent windows. Empty windows are dropped.
func Merge(windows []domain.Window) []domain.Window {
	ws := make([]domain.Window, 0, len(windows))
	for _, w := range windows {
		if !w.Empty() {
			ws = append(ws, w)
		}
	}
	if len(ws) <= 1 {
		return ws
	}

	// Sort by start
	sort.Slice(ws, func(i, j int) bool {
		return ws[i].Start < ws[j].Start
	})

	merged := []domain.Window{ws[0]}
	for _, current := range ws[1:] {
		last := &merged[len(merged)-1]
		if Touches(*last, current) {
			last.End = max(last.End, current.End)
		} else {
			merged = append(merged, current)
		}
	}
	return merged
}
