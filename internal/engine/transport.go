package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/llehouerou/segue/internal/fade"
	"github.com/llehouerou/segue/internal/mixer"
)

// Play begins playback of the passage at the queue cursor. A paused engine
// resumes with the configured fade; an already playing engine is a no-op.
func (e *Engine) Play() error {
	e.mu.Lock()
	switch e.state {
	case Playing:
		e.mu.Unlock()
		return nil
	case Paused:
		e.mu.Unlock()
		return e.Resume(e.cfg.ResumeFadeMS, fade.Parse(e.cfg.ResumeFadeCurve))
	}

	if !e.startCurrent(0) {
		e.mu.Unlock()
		return fmt.Errorf("play: %w", ErrNoPassage)
	}
	e.setState(Playing)
	cur := e.queue.Current()
	e.mu.Unlock()

	e.broadcastPassage(PassageChange{CurrentID: cur.ID, Title: cur.Title})
	return nil
}

// Pause freezes playback. Mix calls ring the last sample down into silence
// and the tick counter stops advancing; markers cannot fire while paused.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Playing {
		return
	}
	e.mixer.SetState(mixer.Paused)
	e.setState(Paused)
	e.log.Info("paused", "tick", e.mixer.CurrentTick())
}

// Resume restarts a paused engine with a fade-in over fadeMS milliseconds.
// Durations of zero or less resume at full volume immediately.
func (e *Engine) Resume(fadeMS int, curve fade.Curve) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Paused {
		return nil
	}
	fadeSamples := int(e.cfg.TicksFromMS(fadeMS))
	e.mixer.StartResumeFade(fadeSamples, curve)
	e.mixer.SetState(mixer.Playing)
	e.setState(Playing)
	e.log.Info("resumed", "fade_ms", fadeMS, "curve", curve)
	return nil
}

// Stop halts playback, clears all markers and buffers, and rewinds the
// queue cursor to the first entry. Once Stop returns no stale marker can
// fire.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mixer.ClearAllMarkers()
	e.mixer.ClearPassage()
	e.crossfading = false
	e.buffers.Clear()
	e.queue.Reset()
	e.setState(Stopped)
	e.log.Info("stopped")
}

// Seek jumps the current passage to the given position. Seeking is forward
// only: a playout ring cannot replay consumed frames. All markers for the
// passage are replaced; markers at or before the target are discarded, never
// retroactively fired.
func (e *Engine) Seek(position time.Duration) error {
	target := int64(position.Milliseconds()) * int64(e.cfg.SampleRate) / 1000
	return e.SeekTick(target)
}

// SeekTick is Seek with a frame-accurate target tick.
func (e *Engine) SeekTick(target int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.queue.Current()
	if p == nil {
		return fmt.Errorf("seek: %w", ErrNoPassage)
	}
	ring := e.buffers.Get(p.ID)
	if ring == nil {
		return fmt.Errorf("seek: %w", mixer.ErrNoSource)
	}

	current := e.mixer.CurrentTick()
	if target < current {
		return fmt.Errorf("seek to tick %d from %d: %w", target, current, ErrSeekBackward)
	}

	// Skip forward by discarding buffered frames. The buffer may run dry
	// mid-skip; the position then lands wherever the data ended.
	skipped := int64(0)
	for skipped < target-current {
		if _, ok := ring.PopFrame(); !ok {
			e.log.Warn("buffer drained during seek",
				"passage", p.ID, "skipped", skipped, "wanted", target-current)
			break
		}
		skipped++
	}
	newTick := current + skipped

	// Mid-crossfade, the incoming passage advances with the outgoing one or
	// it would lag the new position for the rest of the overlap.
	if e.crossfading {
		e.skipCrossfadeNext(skipped)
	}

	e.mixer.ClearMarkersForPassage(p.ID)
	e.mixer.SetCurrentPassage(p.ID, newTick)
	e.registerMarkers(p, e.queue.Next(), newTick)
	if e.state == Paused {
		// Seeking does not implicitly resume.
		e.mixer.SetState(mixer.Paused)
	}

	positionMS := uint64(newTick * 1000 / int64(e.cfg.SampleRate))
	e.log.Info("seek", "passage", p.ID, "tick", newTick, "position_ms", positionMS)
	e.broadcastPosition(PositionChange{PassageID: p.ID, PositionMS: positionMS})
	return nil
}

// skipCrossfadeNext discards n frames from the incoming passage's ring so it
// stays tick-aligned with the outgoing one after a seek. When the incoming
// ring is missing or runs dry mid-skip, alignment is unrecoverable and the
// overlap is abandoned; the passage change then happens at the outgoing
// passage's completion as usual. Caller holds e.mu.
func (e *Engine) skipCrossfadeNext(n int64) {
	nextRing := e.buffers.Get(e.crossfadeNext)
	aligned := nextRing != nil
	for i := int64(0); aligned && i < n; i++ {
		if _, ok := nextRing.PopFrame(); !ok {
			aligned = false
		}
	}
	if !aligned {
		e.log.Warn("crossfade abandoned during seek", "next", e.crossfadeNext)
		e.crossfading = false
		e.crossfadeNext = uuid.Nil
	}
}

// SetMasterVolume sets the master volume, clamped to [0, 1].
func (e *Engine) SetMasterVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mixer.SetMasterVolume(float32(v))
}

// MasterVolume returns the current master volume.
func (e *Engine) MasterVolume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return float64(e.mixer.MasterVolume())
}
