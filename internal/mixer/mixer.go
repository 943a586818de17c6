// Package mixer combines pre-faded passage streams into a single output
// stream and reports position markers as their ticks are reached.
//
// The mixer is the execution layer of the playback engine: it owns the tick
// counter and the marker scheduler, but makes no timing decisions of its own.
// The orchestrator (calculation layer) computes marker ticks from passage
// metadata and reacts to the events the mixer returns.
//
// Samples arriving from buffer sources already carry their passage-level fade
// curves; the mixer applies only master volume and, after a resume from
// pause, a mixer-level fade-in. Re-evaluating passage fades here would
// double-fade.
//
// A Mixer is not safe for concurrent use. The engine serializes all access
// under a single exclusive lock held for the duration of one mix call.
package mixer

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/llehouerou/segue/internal/audio"
	"github.com/llehouerou/segue/internal/fade"
	"github.com/llehouerou/segue/internal/marker"
)

// ErrNoSource is returned when no buffer exists for a requested passage.
// Callers log it and treat the batch as silence.
var ErrNoSource = errors.New("no buffer source for passage")

// Source is one passage's buffer as seen by the mixer: non-blocking reads
// and an explicit end-of-stream signal. An empty buffer whose producer is
// still running reports ok=false from PopFrame but false from IsExhausted;
// the mixer must never infer exhaustion from a single failed pop.
//
// Len reports the frames currently readable. For a single-consumer ring it
// is a lower bound: only the producer side can grow it, so the mixer may
// rely on at least Len frames being poppable.
type Source interface {
	PopFrame() (audio.Frame, bool)
	IsExhausted() bool
	Len() int
}

// SourceProvider resolves a passage ID to its buffer source. It returns nil
// when no buffer exists for the passage.
type SourceProvider interface {
	Source(passageID uuid.UUID) Source
}

// State is the mixer transport state. It is orthogonal to crossfade state,
// which the orchestrator tracks externally.
type State int

const (
	// Playing reads from buffers and advances the tick counter.
	Playing State = iota
	// Paused outputs a decaying tail into silence; the tick is frozen.
	Paused
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Playing:
		return "Playing"
	case Paused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// Pause tail decay: each paused output frame is the previous one scaled by
// pauseDecayFactor, snapped to zero below pauseDecayFloor. This rings the
// last sample down instead of cutting to silence.
const (
	pauseDecayFactor = 0.96875 // 31/32
	pauseDecayFloor  = 0.0001778
)

// resumeFade tracks the mixer-level fade-in after resuming from pause.
// At most one is active; it clears itself once remaining reaches zero.
type resumeFade struct {
	remaining int
	total     int
	curve     fade.Curve
}

// Mixer mixes one or two pre-faded sample streams into an output buffer.
type Mixer struct {
	sources SourceProvider
	sched   *marker.Scheduler

	masterVolume float32
	state        State
	resume       *resumeFade

	// currentTick counts frames mixed since the current passage began.
	// It resets on every passage change and otherwise only moves forward.
	currentTick int64
	// framesWritten counts every output frame for the lifetime of the
	// mixer and is never reset.
	framesWritten uint64

	currentPassage uuid.UUID
	hasPassage     bool

	// Last emitted sample pair, seed for the pause decay tail.
	lastL, lastR float32
}

// New creates a mixer reading from the given source provider.
// masterVolume is clamped to [0, 1].
func New(sources SourceProvider, masterVolume float32) *Mixer {
	return &Mixer{
		sources:      sources,
		sched:        marker.NewScheduler(),
		masterVolume: clampVolume(masterVolume),
		state:        Playing,
	}
}

// SetMasterVolume sets the master volume, clamped to [0, 1].
func (m *Mixer) SetMasterVolume(v float32) {
	m.masterVolume = clampVolume(v)
}

// MasterVolume returns the current master volume.
func (m *Mixer) MasterVolume() float32 { return m.masterVolume }

// SetState switches between Playing and Paused.
func (m *Mixer) SetState(s State) { m.state = s }

// State returns the transport state.
func (m *Mixer) State() State { return m.state }

// StartResumeFade installs a fade-in applied multiplicatively to the entire
// mixed output, after master volume, until durationSamples frames have been
// produced. Durations of zero or less are treated as already complete.
func (m *Mixer) StartResumeFade(durationSamples int, curve fade.Curve) {
	if durationSamples <= 0 {
		m.resume = nil
		return
	}
	m.resume = &resumeFade{
		remaining: durationSamples,
		total:     durationSamples,
		curve:     curve,
	}
}

// IsResumeFading reports whether a resume fade-in is in progress.
func (m *Mixer) IsResumeFading() bool { return m.resume != nil }

// AddMarker schedules a position marker.
func (m *Mixer) AddMarker(mk marker.Marker) { m.sched.Add(mk) }

// ClearMarkersForPassage removes all markers belonging to a passage.
func (m *Mixer) ClearMarkersForPassage(passageID uuid.UUID) {
	m.sched.ClearPassage(passageID)
}

// ClearAllMarkers removes every pending marker.
func (m *Mixer) ClearAllMarkers() { m.sched.ClearAll() }

// PendingMarkers returns the number of scheduled markers.
func (m *Mixer) PendingMarkers() int { return m.sched.Len() }

// SetCurrentPassage switches to a new passage. The tick counter restarts at
// startTick (non-zero when seeking) and the mixer resumes Playing.
func (m *Mixer) SetCurrentPassage(passageID uuid.UUID, startTick int64) {
	m.currentPassage = passageID
	m.hasPassage = true
	m.currentTick = startTick
	m.state = Playing
}

// ClearPassage marks that no passage is active, typically on stop or after
// the queue drains. The mixer pauses so subsequent mix calls produce the
// decay tail instead of errors.
func (m *Mixer) ClearPassage() {
	m.hasPassage = false
	m.state = Paused
}

// CurrentPassage returns the active passage ID, if any.
func (m *Mixer) CurrentPassage() (uuid.UUID, bool) {
	return m.currentPassage, m.hasPassage
}

// CurrentTick returns the frame-accurate position within the current passage.
func (m *Mixer) CurrentTick() int64 { return m.currentTick }

// FramesWritten returns the total frames mixed over the mixer's lifetime.
func (m *Mixer) FramesWritten() uint64 { return m.framesWritten }

func clampVolume(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func sourceErr(passageID uuid.UUID) error {
	return fmt.Errorf("%w: %s", ErrNoSource, passageID)
}
