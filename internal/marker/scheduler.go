package marker

import (
	"container/heap"
	"sort"

	"github.com/google/uuid"
)

// entry wraps a Marker with a monotonic sequence number so that markers on
// the same tick fire in insertion order.
type entry struct {
	marker Marker
	seq    uint64
}

// markerHeap implements container/heap.Interface as a min-heap ordered by
// tick (ascending), with FIFO tie-breaking on seq.
type markerHeap []entry

func (h markerHeap) Len() int { return len(h) }

func (h markerHeap) Less(i, j int) bool {
	if h[i].marker.Tick != h[j].marker.Tick {
		return h[i].marker.Tick < h[j].marker.Tick
	}
	return h[i].seq < h[j].seq
}

func (h markerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

// Push appends x. Called by container/heap; callers must not invoke this
// directly.
func (h *markerHeap) Push(x any) {
	*h = append(*h, x.(entry))
}

// Pop removes and returns the last element. Called by container/heap;
// callers must not invoke this directly.
func (h *markerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// Scheduler is a tick-ordered queue of position markers. It is not safe for
// concurrent use; the owning mixer serializes access under its own lock.
// All operations are O(log n) per marker touched and never block.
type Scheduler struct {
	h       markerHeap
	nextSeq uint64
}

// NewScheduler returns an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Add inserts a marker, preserving FIFO order among equal ticks.
func (s *Scheduler) Add(m Marker) {
	heap.Push(&s.h, entry{marker: m, seq: s.nextSeq})
	s.nextSeq++
}

// Len reports the number of pending markers.
func (s *Scheduler) Len() int { return len(s.h) }

// ClearPassage removes every marker belonging to passageID. Used on skip and
// seek so stale markers cannot fire.
func (s *Scheduler) ClearPassage(passageID uuid.UUID) {
	kept := s.h[:0]
	for _, e := range s.h {
		if e.marker.PassageID != passageID {
			kept = append(kept, e)
		}
	}
	s.h = kept
	heap.Init(&s.h)
}

// ClearAll removes every pending marker.
func (s *Scheduler) ClearAll() {
	s.h = s.h[:0]
}

// CheckAndEmit pops markers whose tick has been reached or passed, in
// ascending tick order (insertion order among ties), and returns their
// events. Markers belonging to a different passage are discarded silently:
// they are stale leftovers from a passage change and must not fire.
// Each marker is removed exactly once.
func (s *Scheduler) CheckAndEmit(currentTick int64, passageID uuid.UUID) []Event {
	var events []Event
	for len(s.h) > 0 && s.h[0].marker.Tick <= currentTick {
		e := heap.Pop(&s.h).(entry)
		if e.marker.PassageID == passageID {
			events = append(events, e.marker.Event)
		}
	}
	return events
}

// CollectUnreachable drains all remaining markers for passageID regardless of
// tick and returns them sorted ascending by tick. Markers for other passages
// are discarded. Used exclusively during end-of-file handling, where pending
// markers can never fire because no more frames will arrive.
func (s *Scheduler) CollectUnreachable(currentTick int64, passageID uuid.UUID) []Marker {
	var unreachable []Marker
	for len(s.h) > 0 {
		e := heap.Pop(&s.h).(entry)
		if e.marker.PassageID == passageID && e.marker.Tick > currentTick {
			unreachable = append(unreachable, e.marker)
		}
	}
	sort.Slice(unreachable, func(i, j int) bool {
		return unreachable[i].Tick < unreachable[j].Tick
	})
	return unreachable
}
