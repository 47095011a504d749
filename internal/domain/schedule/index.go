package schedule

import (
	"sort"
	"time"
)

// Index holds the committed intervals of a single resource ordered by start
// time. Committed intervals never overlap, so their end times are ordered
// too; that property is what keeps conflict queries at O(log n + k).
type Index struct {
	intervals []Interval
}

func NewIndex(intervals []Interval) *Index {
	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Window.Start().Before(sorted[j].Window.Start())
	})
	return &Index{intervals: sorted}
}

func (ix *Index) Len() int {
	return len(ix.intervals)
}

func (ix *Index) All() []Interval {
	out := make([]Interval, len(ix.intervals))
	copy(out, ix.intervals)
	return out
}

// Conflicts returns every interval whose buffer-inclusive span overlaps the
// proposed window, in start order.
func (ix *Index) Conflicts(w Window, buffer time.Duration) []Interval {
	// first interval that could still reach the proposed start
	lo := sort.Search(len(ix.intervals), func(i int) bool {
		return ix.intervals[i].Window.End().Add(buffer).After(w.Start())
	})

	var conflicts []Interval
	for i := lo; i < len(ix.intervals); i++ {
		iv := ix.intervals[i]
		if !iv.Window.Start().Before(w.End().Add(buffer)) {
			break
		}
		if w.Overlaps(iv.Window, buffer) {
			conflicts = append(conflicts, iv)
		}
	}
	return conflicts
}

// Insert keeps the start ordering; used when replaying holds onto a loaded index.
func (ix *Index) Insert(iv Interval) {
	pos := sort.Search(len(ix.intervals), func(i int) bool {
		return ix.intervals[i].Window.Start().After(iv.Window.Start())
	})
	ix.intervals = append(ix.intervals, Interval{})
	copy(ix.intervals[pos+1:], ix.intervals[pos:])
	ix.intervals[pos] = iv
}
