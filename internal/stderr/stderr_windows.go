//go:build windows

// Package stderr provides a no-op implementation for Windows.
// Windows audio backends don't produce the same stderr noise as ALSA.
package stderr

import "os"

// Capture is a no-op on Windows; the logger keeps writing to os.Stderr.
func Capture(func(string)) (*os.File, error) {
	return os.Stderr, nil
}

// Restore is a no-op on Windows.
func Restore() {}
