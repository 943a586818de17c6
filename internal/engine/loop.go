package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/llehouerou/segue/internal/audio"
	"github.com/llehouerou/segue/internal/errmsg"
	"github.com/llehouerou/segue/internal/marker"
)

// Ring fill below which silence is pushed while nothing plays, so the output
// device always has frames to consume.
const idleSilenceFill = 0.10

// run is the batch mixing loop. It inspects the output ring's fill ratio on
// a fixed cadence and mixes graduated batch sizes; see planBatch. The loop
// never blocks on the per-passage buffers: underrun is handled inside the
// mixer as silence fill.
func (e *Engine) run() {
	defer close(e.doneCh)
	e.log.Info("mixing loop started", "check_interval", e.cfg.CheckInterval())

	ticker := time.NewTicker(e.cfg.CheckInterval())
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			e.log.Info("mixing loop stopped")
			return
		default:
		}

		if !e.mixing() {
			// Idle: keep a little silence flowing so the output side
			// never starves between passages.
			if e.out.FillPercent() < idleSilenceFill {
				e.pushSilence(e.cfg.BatchFrames / 4)
			}
			if e.wait(ticker) {
				return
			}
			continue
		}

		plan := planBatch(e.out.FillPercent(), e.cfg.BatchFrames)
		if plan.waitFirst && e.wait(ticker) {
			return
		}
		if plan.frames > 0 {
			e.mixBatch(plan.frames)
		}
		if plan.waitAfter && e.wait(ticker) {
			return
		}
	}
}

// wait blocks for one tick interval; it returns true when the engine is
// closing.
func (e *Engine) wait(ticker *time.Ticker) bool {
	select {
	case <-e.stopCh:
		e.log.Info("mixing loop stopped")
		return true
	case <-ticker.C:
		return false
	}
}

// mixing reports whether a mix call would produce passage audio.
func (e *Engine) mixing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, has := e.mixer.CurrentPassage()
	return has && e.state.IsActive()
}

// mixBatch mixes n frames under the mix lock, dispatches the resulting
// marker events, then pushes the batch to the output ring.
func (e *Engine) mixBatch(n int) {
	if cap(e.scratch) < n {
		e.scratch = make([]audio.Frame, n)
	}
	buf := e.scratch[:n]

	e.mu.Lock()
	currentID, has := e.mixer.CurrentPassage()
	if !has {
		e.mu.Unlock()
		e.pushSilence(n)
		return
	}

	var events []marker.Event
	var err error
	if e.crossfading {
		events, err = e.mixer.MixCrossfade(currentID, e.crossfadeNext, buf)
	} else {
		events, err = e.mixer.MixSingle(currentID, buf)
	}
	if err != nil {
		// Missing buffer: log, emit, and play the batch as silence.
		e.log.Warn("mix failed, substituting silence", "passage", currentID, "err", err)
		e.broadcastError(ErrorEvent{Operation: errmsg.OpMix, PassageID: currentID, Err: err})
		for i := range buf {
			buf[i] = audio.Zero
		}
	}
	e.dispatchEvents(currentID, events)
	e.mu.Unlock()

	for _, f := range buf {
		if !e.out.PushFrame(f) {
			// Output ring full; drop the remainder and let the next
			// iteration top up.
			break
		}
	}
}

// pushSilence writes n zero frames to the output ring.
func (e *Engine) pushSilence(n int) {
	for range n {
		if !e.out.PushFrame(audio.Zero) {
			break
		}
	}
}

// dispatchEvents reacts to the marker events returned by one mix call.
// Events arrive in ascending tick order. Caller holds e.mu.
func (e *Engine) dispatchEvents(currentID uuid.UUID, events []marker.Event) {
	for _, ev := range events {
		switch ev.Kind {
		case marker.PositionUpdate:
			e.broadcastPosition(PositionChange{PassageID: currentID, PositionMS: ev.PositionMS})

		case marker.StartCrossfade:
			e.crossfading = true
			e.crossfadeNext = ev.NextPassageID
			e.crossfadeBegan = e.mixer.CurrentTick()
			e.log.Info("crossfade started",
				"from", currentID, "to", ev.NextPassageID, "tick", e.crossfadeBegan)

		case marker.SongBoundary:
			e.broadcastSong(SongChange{PassageID: currentID, SongID: ev.SongID})

		case marker.PassageComplete:
			e.finishPassage(currentID)

		case marker.EndOfFile:
			e.log.Warn("end of file reached",
				"passage", currentID, "unreachable_markers", len(ev.Unreachable))
			e.finishPassage(currentID)

		case marker.EndOfFileBeforeLeadOut:
			// The stream ran out before its planned lead-out; start the
			// next passage immediately instead of waiting for the
			// crossfade point.
			e.log.Warn("end of file before lead-out",
				"passage", currentID,
				"planned_crossfade_tick", ev.PlannedCrossfadeTick,
				"unreachable_markers", len(ev.Unreachable))
			e.finishPassage(currentID)
		}
	}
}

// finishPassage advances the queue once the current passage has fully
// played (or its stream ended). If the overlap with the next passage has
// already consumed frames during a crossfade, the incoming passage starts
// at the matching tick so its markers line up with what was mixed.
// Caller holds e.mu.
func (e *Engine) finishPassage(finishedID uuid.UUID) {
	startTick := int64(0)
	if e.crossfading {
		startTick = e.mixer.CurrentTick() - e.crossfadeBegan
		if startTick < 0 {
			startTick = 0
		}
	}
	e.crossfading = false
	e.crossfadeNext = uuid.Nil

	// Drop any markers the finished passage left behind, then release its
	// buffer.
	e.mixer.ClearMarkersForPassage(finishedID)
	e.buffers.Release(finishedID)

	next := e.queue.Advance()
	if next == nil {
		e.log.Info("queue drained", "last_passage", finishedID)
		e.mixer.ClearPassage()
		e.mixer.ClearAllMarkers()
		e.setState(Stopped)
		e.broadcastPassage(PassageChange{PreviousID: finishedID})
		return
	}

	// No silence gap: the next passage takes over within the same batch
	// cadence.
	e.startCurrent(startTick)
	e.broadcastPassage(PassageChange{
		PreviousID: finishedID,
		CurrentID:  next.ID,
		Title:      next.Title,
	})
}
