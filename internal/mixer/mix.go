package mixer

import (
	"github.com/google/uuid"

	"github.com/llehouerou/segue/internal/audio"
	"github.com/llehouerou/segue/internal/marker"
)

// MixSingle mixes up to len(out) frames of one passage into out and returns
// the marker events reached during the batch, in ascending tick order.
//
// The tick counter and frames-written total advance by the number of frames
// requested, not the number actually read, so scheduled ticks stay meaningful
// across an underrun: a transient shortfall is filled with silence and emits
// nothing extra, while a genuine end of stream (buffer empty and producer
// finished) additionally yields an EndOfFile or EndOfFileBeforeLeadOut event
// carrying the markers that can never fire.
func (m *Mixer) MixSingle(passageID uuid.UUID, out []audio.Frame) ([]marker.Event, error) {
	if m.state == Paused {
		m.fillPauseTail(out)
		return nil, nil
	}

	src := m.sources.Source(passageID)
	if src == nil {
		return nil, sourceErr(passageID)
	}

	read := 0
	for read < len(out) {
		f, ok := src.PopFrame()
		if !ok {
			break
		}
		f = f.Scale(m.masterVolume)
		f = m.applyResumeFade(f)
		out[read] = f
		m.lastL, m.lastR = f.L, f.R
		read++
	}
	fillSilence(out[read:])

	m.advance(len(out))

	events := m.sched.CheckAndEmit(m.currentTick, passageID)
	if read < len(out) && src.IsExhausted() {
		events = append(events, m.endOfFileEvent(passageID))
	}
	return events, nil
}

// MixCrossfade mixes the overlap of two passages: each output frame is the
// sum of the corresponding pre-faded frames from both buffers, clamped to
// the valid sample range after master volume. Fade shape is already baked
// into the buffered samples; no curve is evaluated against crossfade time.
//
// Marker bookkeeping follows the outgoing passage: events are checked
// against currentID and end-of-file detection watches the outgoing buffer.
func (m *Mixer) MixCrossfade(currentID, nextID uuid.UUID, out []audio.Frame) ([]marker.Event, error) {
	if m.state == Paused {
		m.fillPauseTail(out)
		return nil, nil
	}

	cur := m.sources.Source(currentID)
	if cur == nil {
		return nil, sourceErr(currentID)
	}
	next := m.sources.Source(nextID)
	if next == nil {
		return nil, sourceErr(nextID)
	}

	// Every mixed frame needs both sides. Popping one ring while the other
	// is dry would discard audio that can never be replayed, so the batch is
	// bounded by both occupancies up front; Len only grows under the
	// producer, making at least that many frames poppable here.
	want := len(out)
	if l := cur.Len(); l < want {
		want = l
	}
	if l := next.Len(); l < want {
		want = l
	}

	read := 0
	for read < want {
		cf, _ := cur.PopFrame()
		nf, _ := next.PopFrame()
		f := cf.Add(nf).Scale(m.masterVolume)
		f = m.applyResumeFade(f)
		f = f.Clamp()
		out[read] = f
		m.lastL, m.lastR = f.L, f.R
		read++
	}
	fillSilence(out[read:])

	m.advance(len(out))

	events := m.sched.CheckAndEmit(m.currentTick, currentID)
	if read < len(out) && cur.IsExhausted() {
		events = append(events, m.endOfFileEvent(currentID))
	}
	return events, nil
}

// advance moves the position counters by the requested batch size.
func (m *Mixer) advance(requested int) {
	m.currentTick += int64(requested)
	m.framesWritten += uint64(requested)
}

// applyResumeFade scales f by the resume fade-in envelope and steps the fade
// forward one frame. The fade clears itself once fully elapsed.
func (m *Mixer) applyResumeFade(f audio.Frame) audio.Frame {
	r := m.resume
	if r == nil {
		return f
	}
	elapsed := r.total - r.remaining
	mult := r.curve.FadeIn(float32(elapsed+1) / float32(r.total))
	f = f.Scale(mult)
	r.remaining--
	if r.remaining <= 0 {
		m.resume = nil
	}
	return f
}

// endOfFileEvent drains the markers that can never fire and wraps them in
// the appropriate end-of-file event. When a planned crossfade is among them,
// the event signals that the next passage should start immediately instead
// of waiting for the lead-out point.
func (m *Mixer) endOfFileEvent(passageID uuid.UUID) marker.Event {
	unreachable := m.sched.CollectUnreachable(m.currentTick, passageID)
	for _, mk := range unreachable {
		if mk.Event.Kind == marker.StartCrossfade {
			return marker.Event{
				Kind:                 marker.EndOfFileBeforeLeadOut,
				PlannedCrossfadeTick: mk.Tick,
				Unreachable:          unreachable,
			}
		}
	}
	return marker.Event{Kind: marker.EndOfFile, Unreachable: unreachable}
}

// fillPauseTail writes the exponential decay tail while paused. Position
// counters do not advance and no markers fire.
func (m *Mixer) fillPauseTail(out []audio.Frame) {
	for i := range out {
		m.lastL *= pauseDecayFactor
		m.lastR *= pauseDecayFactor
		if abs32(m.lastL) < pauseDecayFloor {
			m.lastL = 0
		}
		if abs32(m.lastR) < pauseDecayFloor {
			m.lastR = 0
		}
		out[i] = audio.Frame{L: m.lastL, R: m.lastR}
	}
}

func fillSilence(out []audio.Frame) {
	for i := range out {
		out[i] = audio.Zero
	}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
