package marker

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func positionMarker(tick int64, passageID uuid.UUID, ms uint64) Marker {
	return Marker{
		Tick:      tick,
		PassageID: passageID,
		Event:     Event{Kind: PositionUpdate, PositionMS: ms},
	}
}

func TestScheduler_EmitInTickOrder(t *testing.T) {
	pid := uuid.New()
	s := NewScheduler()

	// Insert out of order.
	s.Add(positionMarker(300, pid, 3))
	s.Add(positionMarker(100, pid, 1))
	s.Add(positionMarker(200, pid, 2))

	events := s.CheckAndEmit(300, pid)
	require.Len(t, events, 3)
	assert.Equal(t, uint64(1), events[0].PositionMS)
	assert.Equal(t, uint64(2), events[1].PositionMS)
	assert.Equal(t, uint64(3), events[2].PositionMS)
	assert.Equal(t, 0, s.Len())
}

func TestScheduler_TieBrokenByInsertionOrder(t *testing.T) {
	pid := uuid.New()
	s := NewScheduler()

	for i := uint64(1); i <= 5; i++ {
		s.Add(positionMarker(100, pid, i))
	}

	events := s.CheckAndEmit(100, pid)
	require.Len(t, events, 5)
	for i, ev := range events {
		assert.Equal(t, uint64(i+1), ev.PositionMS, "tie at same tick must emit first-added first")
	}
}

func TestScheduler_NotReachedNotEmitted(t *testing.T) {
	pid := uuid.New()
	s := NewScheduler()
	s.Add(positionMarker(100, pid, 1))

	assert.Empty(t, s.CheckAndEmit(99, pid))
	assert.Equal(t, 1, s.Len())

	// Crossing the tick emits exactly once.
	events := s.CheckAndEmit(100, pid)
	require.Len(t, events, 1)

	// Never re-emitted.
	assert.Empty(t, s.CheckAndEmit(500, pid))
}

func TestScheduler_StaleMarkersDiscardedSilently(t *testing.T) {
	current := uuid.New()
	stale := uuid.New()
	s := NewScheduler()
	s.Add(positionMarker(50, stale, 1))
	s.Add(positionMarker(60, current, 2))

	events := s.CheckAndEmit(100, current)
	require.Len(t, events, 1)
	assert.Equal(t, uint64(2), events[0].PositionMS)
	// The stale marker is gone, not deferred.
	assert.Equal(t, 0, s.Len())
}

func TestScheduler_ClearPassage(t *testing.T) {
	keep := uuid.New()
	drop := uuid.New()
	s := NewScheduler()
	s.Add(positionMarker(10, keep, 1))
	s.Add(positionMarker(20, drop, 2))
	s.Add(positionMarker(30, drop, 3))

	s.ClearPassage(drop)
	assert.Equal(t, 1, s.Len())

	events := s.CheckAndEmit(100, keep)
	require.Len(t, events, 1)
	assert.Equal(t, uint64(1), events[0].PositionMS)
}

func TestScheduler_ClearAll(t *testing.T) {
	pid := uuid.New()
	s := NewScheduler()
	s.Add(positionMarker(10, pid, 1))
	s.Add(positionMarker(20, pid, 2))

	s.ClearAll()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.CheckAndEmit(100, pid))
}

func TestScheduler_CollectUnreachableSortedAscending(t *testing.T) {
	pid := uuid.New()
	other := uuid.New()
	s := NewScheduler()
	s.Add(positionMarker(500, pid, 5))
	s.Add(positionMarker(300, pid, 3))
	s.Add(positionMarker(400, other, 4))
	s.Add(positionMarker(700, pid, 7))

	unreachable := s.CollectUnreachable(200, pid)
	require.Len(t, unreachable, 3)
	assert.Equal(t, int64(300), unreachable[0].Tick)
	assert.Equal(t, int64(500), unreachable[1].Tick)
	assert.Equal(t, int64(700), unreachable[2].Tick)
	// Everything is drained, including the other passage's marker.
	assert.Equal(t, 0, s.Len())
}
