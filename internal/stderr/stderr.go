//go:build !windows

// Package stderr captures output from C libraries (ALSA via the audio
// backend) that write directly to file descriptor 2, bypassing Go's
// os.Stderr. Without the capture, ALSA configuration warnings interleave
// with structured log lines.
package stderr

import (
	"bufio"
	"os"
	"strings"
	"syscall"
)

var (
	origStderr int
	pipeRead   *os.File
	pipeWrite  *os.File
	started    bool
)

// Capture redirects fd 2 into a pipe and calls onLine for every captured
// line. It returns a file wrapping the original stderr so the logger can
// keep writing to the terminal. Must be called before the audio device is
// opened; the program can continue without capture when it fails.
func Capture(onLine func(line string)) (*os.File, error) {
	if started {
		return os.NewFile(uintptr(origStderr), "stderr"), nil
	}

	r, w, err := os.Pipe()
	if err != nil {
		return os.Stderr, err
	}

	origStderr, err = syscall.Dup(int(os.Stderr.Fd()))
	if err != nil {
		r.Close()
		w.Close()
		return os.Stderr, err
	}

	if err := syscall.Dup2(int(w.Fd()), int(os.Stderr.Fd())); err != nil {
		syscall.Close(origStderr)
		r.Close()
		w.Close()
		return os.Stderr, err
	}

	pipeRead = r
	pipeWrite = w
	started = true

	go func() {
		scanner := bufio.NewScanner(pipeRead)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" && onLine != nil {
				onLine(line)
			}
		}
	}()

	return os.NewFile(uintptr(origStderr), "stderr"), nil
}

// Restore puts the original stderr back on fd 2. Should be called on
// program exit.
func Restore() {
	if !started {
		return
	}

	_ = syscall.Dup2(origStderr, int(os.Stderr.Fd()))
	_ = syscall.Close(origStderr)

	pipeWrite.Close()
	pipeRead.Close()
	started = false
}
