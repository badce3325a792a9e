package fetch

import (
	"sort"
	"time"

	"github.com/dnldd/rebound/shared"
)

// TickIndex serves time range queries over ordered ticks.
type TickIndex struct {
	ticks []shared.Tick
}

// NewTickIndex initializes a tick index over the provided ordered ticks.
func NewTickIndex(ticks []shared.Tick) *TickIndex {
	return &TickIndex{ticks: ticks}
}

// Len returns the number of indexed ticks.
func (t *TickIndex) Len() int {
	return len(t.ticks)
}

// Range returns the ordered ticks in [start, end). The returned slice shares the
// index's storage and must not be modified.
func (t *TickIndex) Range(start time.Time, end time.Time) []shared.Tick {
	lo := sort.Search(len(t.ticks), func(i int) bool { return !t.ticks[i].Date.Before(start) })
	hi := sort.Search(len(t.ticks), func(i int) bool { return !t.ticks[i].Date.Before(end) })
	if hi <= lo {
		return nil
	}

	return t.ticks[lo:hi]
}
