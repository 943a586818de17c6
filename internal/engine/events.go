package engine

import (
	"github.com/google/uuid"

	"github.com/llehouerou/segue/internal/errmsg"
)

// StateChange is emitted when the engine transport state changes.
type StateChange struct {
	Previous State
	Current  State
}

// PassageChange is emitted when playback moves to a different passage.
//
// Emitted when a passage completes (including end-of-file advancement) and
// when playback starts on a queued passage. Not emitted by pause/stop.
type PassageChange struct {
	PreviousID uuid.UUID
	CurrentID  uuid.UUID
	Title      string
}

// SongChange is emitted when a song boundary inside a multi-track passage is
// crossed. SongID is nil when leaving the last song of the passage.
type SongChange struct {
	PassageID uuid.UUID
	SongID    *uuid.UUID
}

// PositionChange is broadcast on every position update marker and after a
// seek.
type PositionChange struct {
	PassageID  uuid.UUID
	PositionMS uint64
}

// ErrorEvent is emitted when a mix or transport operation fails. The engine
// keeps playing (the affected batch becomes silence); observers decide
// whether to surface the error.
type ErrorEvent struct {
	Operation errmsg.Op
	PassageID uuid.UUID
	Err       error
}
