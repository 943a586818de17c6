// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Initialization
	OpConfigLoad Op = "load configuration"
	OpDeviceOpen Op = "open audio output device"

	// Transport operations
	OpPlay   Op = "start playback"
	OpPause  Op = "pause playback"
	OpResume Op = "resume playback"
	OpStop   Op = "stop playback"
	OpSeek   Op = "seek"

	// Queue operations
	OpQueueAdd   Op = "add passage to queue"
	OpQueueClear Op = "clear queue"

	// Engine operations
	OpMix          Op = "mix audio batch"
	OpVolumeChange Op = "set master volume"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}
