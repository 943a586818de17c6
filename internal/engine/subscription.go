package engine

import "log/slog"

const eventBufferSize = 16

// Subscription provides event channels for one subscriber. Sends are
// non-blocking: when a subscriber falls behind, events are dropped and
// logged rather than stalling the mixing loop.
type Subscription struct {
	StateChanged    <-chan StateChange
	PassageChanged  <-chan PassageChange
	SongChanged     <-chan SongChange
	PositionChanged <-chan PositionChange
	Error           <-chan ErrorEvent
	Done            <-chan struct{}

	stateCh    chan StateChange
	passageCh  chan PassageChange
	songCh     chan SongChange
	positionCh chan PositionChange
	errorCh    chan ErrorEvent
	doneCh     chan struct{}
}

func newSubscription() *Subscription {
	s := &Subscription{
		stateCh:    make(chan StateChange, eventBufferSize),
		passageCh:  make(chan PassageChange, eventBufferSize),
		songCh:     make(chan SongChange, eventBufferSize),
		positionCh: make(chan PositionChange, eventBufferSize),
		errorCh:    make(chan ErrorEvent, eventBufferSize),
		doneCh:     make(chan struct{}),
	}
	s.StateChanged = s.stateCh
	s.PassageChanged = s.passageCh
	s.SongChanged = s.songCh
	s.PositionChanged = s.positionCh
	s.Error = s.errorCh
	s.Done = s.doneCh
	return s
}

// close signals the subscriber to stop by closing Done.
func (s *Subscription) close() {
	close(s.doneCh)
}

func (s *Subscription) sendState(e StateChange) {
	select {
	case s.stateCh <- e:
	default:
		slog.Debug("dropping state event, subscriber behind")
	}
}

func (s *Subscription) sendPassage(e PassageChange) {
	select {
	case s.passageCh <- e:
	default:
		slog.Debug("dropping passage event, subscriber behind")
	}
}

func (s *Subscription) sendSong(e SongChange) {
	select {
	case s.songCh <- e:
	default:
		slog.Debug("dropping song event, subscriber behind")
	}
}

func (s *Subscription) sendPosition(e PositionChange) {
	select {
	case s.positionCh <- e:
	default:
		// Position updates are frequent and individually expendable.
	}
}

func (s *Subscription) sendError(e ErrorEvent) {
	select {
	case s.errorCh <- e:
	default:
		slog.Warn("dropping error event, subscriber behind", "op", e.Operation, "err", e.Err)
	}
}
