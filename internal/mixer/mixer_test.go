package mixer

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/segue/internal/audio"
	"github.com/llehouerou/segue/internal/fade"
	"github.com/llehouerou/segue/internal/marker"
)

// stubSource serves a fixed frame sequence, optionally marked complete.
type stubSource struct {
	frames   []audio.Frame
	pos      int
	complete bool
}

func (s *stubSource) PopFrame() (audio.Frame, bool) {
	if s.pos >= len(s.frames) {
		return audio.Zero, false
	}
	f := s.frames[s.pos]
	s.pos++
	return f, true
}

func (s *stubSource) IsExhausted() bool {
	return s.complete && s.pos >= len(s.frames)
}

func (s *stubSource) Len() int {
	return len(s.frames) - s.pos
}

// stubSources maps passage IDs to stub buffers.
type stubSources map[uuid.UUID]*stubSource

func (s stubSources) Source(passageID uuid.UUID) Source {
	if src, ok := s[passageID]; ok {
		return src
	}
	return nil
}

func constantFrames(n int, v float32) []audio.Frame {
	frames := make([]audio.Frame, n)
	for i := range frames {
		frames[i] = audio.Frame{L: v, R: v}
	}
	return frames
}

func TestNew_ClampsMasterVolume(t *testing.T) {
	m := New(stubSources{}, 1.5)
	assert.Equal(t, float32(1.0), m.MasterVolume())

	m.SetMasterVolume(-0.5)
	assert.Equal(t, float32(0.0), m.MasterVolume())

	m.SetMasterVolume(0.75)
	assert.Equal(t, float32(0.75), m.MasterVolume())
}

func TestMixSingle_AppliesMasterVolume(t *testing.T) {
	pid := uuid.New()
	sources := stubSources{pid: {frames: constantFrames(16, 0.5)}}
	m := New(sources, 0.5)
	m.SetCurrentPassage(pid, 0)

	out := make([]audio.Frame, 16)
	_, err := m.MixSingle(pid, out)
	require.NoError(t, err)

	for i, f := range out {
		assert.InDelta(t, 0.25, f.L, 1e-6, "frame %d", i)
		assert.InDelta(t, 0.25, f.R, 1e-6, "frame %d", i)
	}
}

func TestMixSingle_MarkerFiresExactlyOnce(t *testing.T) {
	pid := uuid.New()
	sources := stubSources{pid: {frames: constantFrames(400, 0.1)}}
	m := New(sources, 1.0)
	m.SetCurrentPassage(pid, 0)
	m.AddMarker(marker.Marker{
		Tick:      100,
		PassageID: pid,
		Event:     marker.Event{Kind: marker.PositionUpdate, PositionMS: 2},
	})

	// Mixing up to tick 99 produces nothing.
	out := make([]audio.Frame, 99)
	events, err := m.MixSingle(pid, out)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, int64(99), m.CurrentTick())

	// One more frame crosses the tick: exactly one matching event.
	events, err = m.MixSingle(pid, make([]audio.Frame, 1))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, marker.PositionUpdate, events[0].Kind)

	// Never re-emitted.
	events, err = m.MixSingle(pid, make([]audio.Frame, 200))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestMixSingle_EventsInTickOrder(t *testing.T) {
	pid := uuid.New()
	sources := stubSources{pid: {frames: constantFrames(512, 0.1)}}
	m := New(sources, 1.0)
	m.SetCurrentPassage(pid, 0)

	for _, tick := range []int64{300, 100, 200} {
		m.AddMarker(marker.Marker{
			Tick:      tick,
			PassageID: pid,
			Event:     marker.Event{Kind: marker.PositionUpdate, PositionMS: uint64(tick)},
		})
	}

	events, err := m.MixSingle(pid, make([]audio.Frame, 512))
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, uint64(100), events[0].PositionMS)
	assert.Equal(t, uint64(200), events[1].PositionMS)
	assert.Equal(t, uint64(300), events[2].PositionMS)
}

func TestMixCrossfade_SumsPreFadedSamples(t *testing.T) {
	curID, nextID := uuid.New(), uuid.New()
	sources := stubSources{
		curID:  {frames: constantFrames(64, 0.5)},
		nextID: {frames: constantFrames(64, 0.3)},
	}
	m := New(sources, 1.0)
	m.SetCurrentPassage(curID, 0)

	out := make([]audio.Frame, 64)
	_, err := m.MixCrossfade(curID, nextID, out)
	require.NoError(t, err)

	for i, f := range out {
		assert.InDelta(t, 0.8, f.L, 1e-6, "frame %d", i)
		assert.InDelta(t, 0.8, f.R, 1e-6, "frame %d", i)
	}
}

func TestMixCrossfade_ClampsAfterScaling(t *testing.T) {
	curID, nextID := uuid.New(), uuid.New()
	sources := stubSources{
		curID:  {frames: constantFrames(8, 0.9)},
		nextID: {frames: constantFrames(8, 0.9)},
	}
	m := New(sources, 1.0)
	m.SetCurrentPassage(curID, 0)

	out := make([]audio.Frame, 8)
	_, err := m.MixCrossfade(curID, nextID, out)
	require.NoError(t, err)
	for _, f := range out {
		assert.Equal(t, float32(1.0), f.L)
	}
}

func TestMixCrossfade_OneSidedUnderrunConsumesNothing(t *testing.T) {
	curID, nextID := uuid.New(), uuid.New()

	t.Run("incoming dry", func(t *testing.T) {
		cur := &stubSource{frames: constantFrames(10, 0.5)}
		next := &stubSource{}
		m := New(stubSources{curID: cur, nextID: next}, 1.0)
		m.SetCurrentPassage(curID, 0)

		out := make([]audio.Frame, 4)
		for range 3 {
			events, err := m.MixCrossfade(curID, nextID, out)
			require.NoError(t, err)
			assert.Empty(t, events)
			for i, f := range out {
				assert.Equal(t, audio.Zero, f, "frame %d", i)
			}
		}
		// The outgoing stream must not shift while the incoming side
		// catches up.
		assert.Equal(t, 0, cur.pos)
	})

	t.Run("outgoing dry", func(t *testing.T) {
		cur := &stubSource{}
		next := &stubSource{frames: constantFrames(10, 0.3)}
		m := New(stubSources{curID: cur, nextID: next}, 1.0)
		m.SetCurrentPassage(curID, 0)

		out := make([]audio.Frame, 4)
		events, err := m.MixCrossfade(curID, nextID, out)
		require.NoError(t, err)
		assert.Empty(t, events, "underrun without decode complete is not end of stream")
		assert.Equal(t, 0, next.pos)
	})
}

func TestResumeFade_Linear(t *testing.T) {
	pid := uuid.New()
	sources := stubSources{pid: {frames: constantFrames(200, 1.0)}}
	m := New(sources, 1.0)
	m.SetCurrentPassage(pid, 0)
	m.StartResumeFade(100, fade.Linear)
	require.True(t, m.IsResumeFading())

	out := make([]audio.Frame, 100)
	_, err := m.MixSingle(pid, out)
	require.NoError(t, err)

	assert.InDelta(t, 1.0/100.0, out[0].L, 1e-6, "first faded sample")
	assert.InDelta(t, 50.0/100.0, out[49].L, 1e-6, "midpoint")
	assert.InDelta(t, 100.0/100.0, out[99].L, 1e-6, "last faded sample")
	assert.False(t, m.IsResumeFading(), "fade must clear once elapsed")

	// Subsequent frames are unfaded.
	_, err = m.MixSingle(pid, out[:10])
	require.NoError(t, err)
	assert.InDelta(t, 1.0, out[0].L, 1e-6)
}

func TestStartResumeFade_NonPositiveDurationAlreadyComplete(t *testing.T) {
	m := New(stubSources{}, 1.0)
	m.StartResumeFade(0, fade.Linear)
	assert.False(t, m.IsResumeFading())
	m.StartResumeFade(-10, fade.Linear)
	assert.False(t, m.IsResumeFading())
}

func TestMixSingle_EOFBeforeLeadOut(t *testing.T) {
	pid := uuid.New()
	next := uuid.New()
	src := &stubSource{frames: constantFrames(1000, 0.2), complete: true}
	m := New(stubSources{pid: src}, 1.0)
	m.SetCurrentPassage(pid, 0)
	m.AddMarker(marker.Marker{
		Tick:      1200,
		PassageID: pid,
		Event:     marker.Event{Kind: marker.StartCrossfade, NextPassageID: next},
	})

	events, err := m.MixSingle(pid, make([]audio.Frame, 1100))
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, marker.EndOfFileBeforeLeadOut, ev.Kind)
	assert.Equal(t, int64(1200), ev.PlannedCrossfadeTick)
	require.Len(t, ev.Unreachable, 1)
	assert.Equal(t, marker.StartCrossfade, ev.Unreachable[0].Event.Kind)
	assert.Equal(t, 0, m.PendingMarkers())
}

func TestMixSingle_EOFCollectsUnreachableSorted(t *testing.T) {
	pid := uuid.New()
	src := &stubSource{frames: constantFrames(100, 0.2), complete: true}
	m := New(stubSources{pid: src}, 1.0)
	m.SetCurrentPassage(pid, 0)
	m.AddMarker(marker.Marker{Tick: 500, PassageID: pid,
		Event: marker.Event{Kind: marker.PositionUpdate, PositionMS: 5}})
	m.AddMarker(marker.Marker{Tick: 300, PassageID: pid,
		Event: marker.Event{Kind: marker.PassageComplete}})

	events, err := m.MixSingle(pid, make([]audio.Frame, 200))
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, marker.EndOfFile, ev.Kind)
	require.Len(t, ev.Unreachable, 2)
	assert.Equal(t, int64(300), ev.Unreachable[0].Tick)
	assert.Equal(t, int64(500), ev.Unreachable[1].Tick)
}

func TestMixSingle_UnderrunWithoutEOF(t *testing.T) {
	pid := uuid.New()
	// Same shape as the EOF case, but the producer has not finished:
	// silence fill, no end-of-file event.
	src := &stubSource{frames: constantFrames(1000, 0.2), complete: false}
	m := New(stubSources{pid: src}, 1.0)
	m.SetCurrentPassage(pid, 0)
	m.AddMarker(marker.Marker{
		Tick:      1200,
		PassageID: pid,
		Event:     marker.Event{Kind: marker.StartCrossfade, NextPassageID: uuid.New()},
	})

	out := make([]audio.Frame, 1100)
	events, err := m.MixSingle(pid, out)
	require.NoError(t, err)
	assert.Empty(t, events)

	// The shortfall is silence.
	for i := 1000; i < 1100; i++ {
		assert.Equal(t, audio.Zero, out[i], "frame %d", i)
	}
	// The crossfade marker survives for when data arrives.
	assert.Equal(t, 1, m.PendingMarkers())
}

func TestMixSingle_TickAdvancesByRequestedFrames(t *testing.T) {
	pid := uuid.New()
	src := &stubSource{frames: constantFrames(10, 0.2)}
	m := New(stubSources{pid: src}, 1.0)
	m.SetCurrentPassage(pid, 0)

	_, err := m.MixSingle(pid, make([]audio.Frame, 64))
	require.NoError(t, err)

	// Only 10 frames were readable, but scheduled ticks stay meaningful
	// across the underrun.
	assert.Equal(t, int64(64), m.CurrentTick())
	assert.Equal(t, uint64(64), m.FramesWritten())
}

func TestMixSingle_MissingBufferIsError(t *testing.T) {
	m := New(stubSources{}, 1.0)
	pid := uuid.New()
	m.SetCurrentPassage(pid, 0)

	_, err := m.MixSingle(pid, make([]audio.Frame, 8))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestMixCrossfade_MissingNextBufferIsError(t *testing.T) {
	pid := uuid.New()
	m := New(stubSources{pid: {frames: constantFrames(8, 0.1)}}, 1.0)
	m.SetCurrentPassage(pid, 0)

	_, err := m.MixCrossfade(pid, uuid.New(), make([]audio.Frame, 8))
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestPaused_SilenceAndFrozenTick(t *testing.T) {
	pid := uuid.New()
	sources := stubSources{pid: {frames: constantFrames(64, 1.0)}}
	m := New(sources, 1.0)
	m.SetCurrentPassage(pid, 0)
	m.AddMarker(marker.Marker{Tick: 5, PassageID: pid,
		Event: marker.Event{Kind: marker.PositionUpdate}})
	m.SetState(Paused)

	out := make([]audio.Frame, 32)
	events, err := m.MixSingle(pid, out)
	require.NoError(t, err)

	// Tick frozen, no markers fire, no frames consumed.
	assert.Empty(t, events)
	assert.Equal(t, int64(0), m.CurrentTick())
	assert.Equal(t, 1, m.PendingMarkers())
	for _, f := range out {
		assert.Equal(t, float32(0), f.L)
	}
}

func TestPaused_TailDecaysFromLastSample(t *testing.T) {
	pid := uuid.New()
	sources := stubSources{pid: {frames: constantFrames(4, 1.0)}}
	m := New(sources, 1.0)
	m.SetCurrentPassage(pid, 0)

	// Mix some audio so the tail has something to decay from.
	_, err := m.MixSingle(pid, make([]audio.Frame, 4))
	require.NoError(t, err)

	m.SetState(Paused)
	out := make([]audio.Frame, 8)
	_, err = m.MixSingle(pid, out)
	require.NoError(t, err)

	assert.Less(t, out[0].L, float32(1.0))
	assert.Greater(t, out[0].L, float32(0.0))
	for i := 1; i < len(out); i++ {
		assert.LessOrEqual(t, out[i].L, out[i-1].L)
	}
}

func TestSetCurrentPassage_ResetsTickAndResumesPlaying(t *testing.T) {
	first, second := uuid.New(), uuid.New()
	sources := stubSources{
		first:  {frames: constantFrames(128, 0.1)},
		second: {frames: constantFrames(128, 0.1)},
	}
	m := New(sources, 1.0)
	m.SetCurrentPassage(first, 0)

	_, err := m.MixSingle(first, make([]audio.Frame, 100))
	require.NoError(t, err)
	require.Equal(t, int64(100), m.CurrentTick())
	written := m.FramesWritten()

	m.SetState(Paused)
	m.SetCurrentPassage(second, 0)
	assert.Equal(t, Playing, m.State())
	assert.Equal(t, int64(0), m.CurrentTick())
	// frames_written is lifetime-monotonic, never reset.
	assert.Equal(t, written, m.FramesWritten())
}

func TestResumeFade_AppliesDuringCrossfade(t *testing.T) {
	curID, nextID := uuid.New(), uuid.New()
	sources := stubSources{
		curID:  {frames: constantFrames(10, 0.5)},
		nextID: {frames: constantFrames(10, 0.3)},
	}
	m := New(sources, 1.0)
	m.SetCurrentPassage(curID, 0)
	m.StartResumeFade(10, fade.Linear)

	out := make([]audio.Frame, 10)
	_, err := m.MixCrossfade(curID, nextID, out)
	require.NoError(t, err)

	// The fade scales the summed output of both passages.
	assert.InDelta(t, 0.8*0.1, out[0].L, 1e-6)
	assert.InDelta(t, 0.8*1.0, out[9].L, 1e-6)
	assert.False(t, m.IsResumeFading())
}
