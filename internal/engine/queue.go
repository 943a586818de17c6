package engine

import "github.com/llehouerou/segue/internal/passage"

// queue is the ordered list of passages to play, with a cursor at the
// current entry. It is not safe for concurrent use; the engine guards it
// with its own lock.
type queue struct {
	entries []passage.Passage
	index   int
}

// Add appends passages to the end of the queue.
func (q *queue) Add(ps ...passage.Passage) {
	q.entries = append(q.entries, ps...)
}

// Clear removes all entries and resets the cursor.
func (q *queue) Clear() {
	q.entries = nil
	q.index = 0
}

// Reset moves the cursor back to the first entry.
func (q *queue) Reset() {
	q.index = 0
}

// Current returns the passage at the cursor, or nil when the queue is
// drained.
func (q *queue) Current() *passage.Passage {
	if q.index < 0 || q.index >= len(q.entries) {
		return nil
	}
	return &q.entries[q.index]
}

// Next returns the passage after the cursor, or nil.
func (q *queue) Next() *passage.Passage {
	if q.index+1 >= len(q.entries) {
		return nil
	}
	return &q.entries[q.index+1]
}

// Advance moves the cursor forward and returns the new current passage, or
// nil when the queue is drained.
func (q *queue) Advance() *passage.Passage {
	if q.index < len(q.entries) {
		q.index++
	}
	return q.Current()
}

// Len returns the number of queued passages.
func (q *queue) Len() int { return len(q.entries) }

// HasNext reports whether a passage follows the current one.
func (q *queue) HasNext() bool { return q.index+1 < len(q.entries) }

// Entries returns a copy of the queue contents.
func (q *queue) Entries() []passage.Passage {
	out := make([]passage.Passage, len(q.entries))
	copy(out, q.entries)
	return out
}
