// Package engine is the playback orchestrator: it owns the passage queue,
// the mixer and the batch-mixing loop that fills the output ring buffer.
//
// The engine is the calculation layer of the player. When a passage starts
// it computes marker ticks from the passage's timing metadata and registers
// them with the mixer; the mixer (execution layer) reports back, through the
// events returned from each mix call, when those ticks are actually reached.
// The two layers share no timing logic beyond the markers themselves.
package engine

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/llehouerou/segue/internal/audio"
	"github.com/llehouerou/segue/internal/buffer"
	"github.com/llehouerou/segue/internal/config"
	"github.com/llehouerou/segue/internal/marker"
	"github.com/llehouerou/segue/internal/mixer"
	"github.com/llehouerou/segue/internal/passage"
)

var (
	// ErrNoPassage is returned by transport operations that need an active
	// passage.
	ErrNoPassage = errors.New("no passage playing")
	// ErrSeekBackward is returned for seeks behind the current position;
	// already-consumed frames cannot be replayed from a playout ring.
	ErrSeekBackward = errors.New("seek backwards not supported")
)

// managerSources adapts the buffer manager to the mixer's source lookup.
type managerSources struct {
	m *buffer.Manager
}

func (s managerSources) Source(passageID uuid.UUID) mixer.Source {
	if ring := s.m.Get(passageID); ring != nil {
		return ring
	}
	return nil
}

// Engine drives playback: transport control on the outside, the batch
// mixing loop on the inside.
type Engine struct {
	cfg *config.Config
	log *slog.Logger

	buffers *buffer.Manager
	out     *buffer.Playout

	// mu is the single exclusive lock over mixer and queue state. The
	// mixing loop holds it for the duration of one mix call; transport
	// calls and diagnostics take it briefly. Once a control call returns,
	// no stale marker can fire.
	mu    sync.Mutex
	mixer *mixer.Mixer
	queue queue
	state State

	// Crossfade state, tracked outside the mixer.
	crossfading    bool
	crossfadeNext  uuid.UUID
	crossfadeBegan int64 // outgoing-passage tick when the overlap started

	subsMu sync.Mutex
	subs   []*Subscription

	// scratch is the mixing loop's reusable batch buffer.
	scratch []audio.Frame

	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	closed  bool
}

// New creates an engine with its own buffer manager, mixer and output ring.
func New(cfg *config.Config) *Engine {
	buffers := buffer.NewManager()
	e := &Engine{
		cfg:     cfg,
		log:     slog.With("component", "engine"),
		buffers: buffers,
		out:     buffer.NewPlayout(uuid.Nil, cfg.OutputRingFrames),
		mixer:   mixer.New(managerSources{m: buffers}, float32(cfg.MasterVolume)),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	e.mixer.ClearPassage()
	return e
}

// Buffers returns the manager producers allocate playout rings from.
func (e *Engine) Buffers() *buffer.Manager { return e.buffers }

// Output returns the mixed output ring consumed by the audio device side.
func (e *Engine) Output() *buffer.Playout { return e.out }

// Config returns the engine configuration.
func (e *Engine) Config() *config.Config { return e.cfg }

// Enqueue appends passages to the play queue.
func (e *Engine) Enqueue(ps ...passage.Passage) {
	e.mu.Lock()
	e.queue.Add(ps...)
	e.mu.Unlock()
}

// ClearQueue removes all queued passages. The current passage keeps playing.
func (e *Engine) ClearQueue() {
	e.mu.Lock()
	e.queue.Clear()
	e.mu.Unlock()
}

// QueueLen returns the number of queued passages.
func (e *Engine) QueueLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Len()
}

// Start launches the batch mixing loop.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.mu.Unlock()
	go e.run()
}

// Close stops the mixing loop and closes all subscriptions. Further calls
// are no-ops.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	started := e.started
	e.mu.Unlock()
	if started {
		close(e.stopCh)
		<-e.doneCh
	}
	e.subsMu.Lock()
	for _, s := range e.subs {
		s.close()
	}
	e.subs = nil
	e.subsMu.Unlock()
}

// Subscribe registers a new event subscription.
func (e *Engine) Subscribe() *Subscription {
	s := newSubscription()
	e.subsMu.Lock()
	e.subs = append(e.subs, s)
	e.subsMu.Unlock()
	return s
}

// State returns the transport state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Status is a point-in-time diagnostics snapshot.
type Status struct {
	State         State
	PassageID     uuid.UUID
	HasPassage    bool
	CurrentTick   int64
	FramesWritten uint64
	Crossfading   bool
	PendingMarks  int
	OutputFill    float64
}

// Status returns a snapshot of engine and mixer state. It takes the mix
// lock briefly, never across a mix call.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, ok := e.mixer.CurrentPassage()
	return Status{
		State:         e.state,
		PassageID:     id,
		HasPassage:    ok,
		CurrentTick:   e.mixer.CurrentTick(),
		FramesWritten: e.mixer.FramesWritten(),
		Crossfading:   e.crossfading,
		PendingMarks:  e.mixer.PendingMarkers(),
		OutputFill:    e.out.FillPercent(),
	}
}

// broadcast helpers fan out to all subscribers without blocking. They are
// called synchronously from the emitting path so subscribers observe events
// in emission order; the per-channel sends drop rather than stall.

func (e *Engine) broadcastState(prev, cur State) {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	for _, s := range e.subs {
		s.sendState(StateChange{Previous: prev, Current: cur})
	}
}

func (e *Engine) broadcastPassage(ev PassageChange) {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	for _, s := range e.subs {
		s.sendPassage(ev)
	}
}

func (e *Engine) broadcastSong(ev SongChange) {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	for _, s := range e.subs {
		s.sendSong(ev)
	}
}

func (e *Engine) broadcastPosition(ev PositionChange) {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	for _, s := range e.subs {
		s.sendPosition(ev)
	}
}

func (e *Engine) broadcastError(ev ErrorEvent) {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	for _, s := range e.subs {
		s.sendError(ev)
	}
}

// setState transitions the transport state and notifies subscribers.
// Caller holds e.mu.
func (e *Engine) setState(s State) {
	if e.state == s {
		return
	}
	prev := e.state
	e.state = s
	e.broadcastState(prev, s)
}

// registerMarkers computes and schedules all markers for a passage starting
// (or resuming, after seek) at fromTick. Markers at or before fromTick are
// not registered: a seek must never retroactively fire them.
// Caller holds e.mu.
func (e *Engine) registerMarkers(p *passage.Passage, next *passage.Passage, fromTick int64) {
	interval := e.cfg.TicksFromMS(e.cfg.PositionIntervalMS)
	for tick := interval; tick < p.DurationTicks; tick += interval {
		if tick <= fromTick {
			continue
		}
		e.mixer.AddMarker(marker.Marker{
			Tick:      tick,
			PassageID: p.ID,
			Event: marker.Event{
				Kind:       marker.PositionUpdate,
				PositionMS: uint64(tick * 1000 / int64(e.cfg.SampleRate)),
			},
		})
	}

	for i := range p.Songs {
		if i == 0 {
			// The first song starts with the passage itself.
			continue
		}
		s := p.Songs[i]
		if s.StartTick <= fromTick || s.StartTick >= p.DurationTicks {
			continue
		}
		id := s.ID
		e.mixer.AddMarker(marker.Marker{
			Tick:      s.StartTick,
			PassageID: p.ID,
			Event:     marker.Event{Kind: marker.SongBoundary, SongID: &id},
		})
	}

	if next != nil {
		crossTick := p.CrossfadeTick(e.cfg.TicksFromMS(e.cfg.CrossfadeMS))
		if crossTick > fromTick && crossTick < p.DurationTicks {
			e.mixer.AddMarker(marker.Marker{
				Tick:      crossTick,
				PassageID: p.ID,
				Event: marker.Event{
					Kind:          marker.StartCrossfade,
					NextPassageID: next.ID,
				},
			})
		}
	}

	if p.DurationTicks > fromTick {
		e.mixer.AddMarker(marker.Marker{
			Tick:      p.DurationTicks,
			PassageID: p.ID,
			Event:     marker.Event{Kind: marker.PassageComplete},
		})
	}
}

// startCurrent begins playback of the passage at the queue cursor.
// Caller holds e.mu.
func (e *Engine) startCurrent(startTick int64) bool {
	p := e.queue.Current()
	if p == nil {
		return false
	}
	e.mixer.SetCurrentPassage(p.ID, startTick)
	e.registerMarkers(p, e.queue.Next(), startTick)
	e.log.Info("passage started",
		"passage", p.ID, "title", p.Title, "start_tick", startTick)
	return true
}
