// Command segue demonstrates the playback engine end to end: two synthesized
// passages with pre-rendered fades are decoded into playout rings, crossfaded
// by the engine, and played through the system speaker.
package main

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/llehouerou/segue/internal/audio"
	"github.com/llehouerou/segue/internal/buffer"
	"github.com/llehouerou/segue/internal/config"
	"github.com/llehouerou/segue/internal/engine"
	"github.com/llehouerou/segue/internal/errmsg"
	"github.com/llehouerou/segue/internal/fade"
	"github.com/llehouerou/segue/internal/logger"
	"github.com/llehouerou/segue/internal/output"
	"github.com/llehouerou/segue/internal/passage"
	"github.com/llehouerou/segue/internal/stderr"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "segue: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("%s", errmsg.Format(errmsg.OpConfigLoad, err))
	}

	// ALSA writes its warnings straight to fd 2; route them through slog
	// and keep the logger on the real terminal stderr.
	logOut, captureErr := stderr.Capture(func(line string) {
		slog.Warn("audio backend", "msg", line)
	})
	defer stderr.Restore()
	logger.Setup(logOut, cfg.LogLevel)
	if captureErr != nil {
		slog.Warn("stderr capture unavailable", "err", captureErr)
	}

	eng := engine.New(cfg)
	defer eng.Close()

	crossfadeTicks := cfg.TicksFromMS(cfg.CrossfadeMS)
	first := passage.Passage{
		ID:            uuid.New(),
		Title:         "Tone A (440 Hz)",
		DurationTicks: cfg.TicksFromMS(8000),
	}
	second := passage.Passage{
		ID:            uuid.New(),
		Title:         "Tone B (330 Hz)",
		DurationTicks: cfg.TicksFromMS(8000),
	}
	eng.Enqueue(first, second)

	// synthesize stands in for the decode/fade pipeline: it produces
	// pre-faded frames and marks decode complete, exactly what the engine
	// expects from an upstream producer.
	go synthesize(eng.Buffers(), cfg, first, 440, crossfadeTicks)
	go synthesize(eng.Buffers(), cfg, second, 330, crossfadeTicks)

	sub := eng.Subscribe()
	go logEvents(sub)

	dev, err := output.Open(eng.Output(), cfg.SampleRate)
	if err != nil {
		return fmt.Errorf("%s", errmsg.Format(errmsg.OpDeviceOpen, err))
	}
	defer dev.Close()

	eng.Start()
	if err := eng.Play(); err != nil {
		return err
	}

	// Play until the queue drains.
	for eng.State() != engine.Stopped {
		time.Sleep(200 * time.Millisecond)
	}
	// Let the output ring drain through the speaker.
	time.Sleep(500 * time.Millisecond)
	return nil
}

// synthesize fills a passage's playout ring with a sine tone carrying a
// pre-rendered equal-power fade-in and fade-out over the crossfade overlap.
func synthesize(buffers *buffer.Manager, cfg *config.Config, p passage.Passage, freq float64, fadeTicks int64) {
	ring := buffers.Allocate(p.ID, cfg.PlayoutRingFrames)
	curve := fade.EqualPower

	for i := int64(0); i < p.DurationTicks; i++ {
		t := float64(i) / float64(cfg.SampleRate)
		s := float32(0.4 * math.Sin(2*math.Pi*freq*t))

		// Bake the fades in, the way the upstream fader stage would.
		if i < fadeTicks {
			s *= curve.FadeIn(float32(i) / float32(fadeTicks))
		}
		if rem := p.DurationTicks - i; rem <= fadeTicks {
			s *= curve.FadeOut(1 - float32(rem)/float32(fadeTicks))
		}

		f := audio.Frame{L: s, R: s}
		for !ring.PushFrame(f) {
			if ring.ShouldDecoderPause() {
				time.Sleep(50 * time.Millisecond)
			}
		}
	}
	ring.MarkDecodeComplete()
	slog.Info("synthesis complete", "passage", p.ID, "title", p.Title)
}

func logEvents(sub *engine.Subscription) {
	for {
		select {
		case e := <-sub.StateChanged:
			slog.Info("state changed", "from", e.Previous, "to", e.Current)
		case e := <-sub.PassageChanged:
			slog.Info("passage changed", "passage", e.CurrentID, "title", e.Title)
		case e := <-sub.SongChanged:
			slog.Info("song boundary", "passage", e.PassageID)
		case e := <-sub.PositionChanged:
			slog.Debug("position", "passage", e.PassageID, "ms", e.PositionMS)
		case e := <-sub.Error:
			slog.Error(errmsg.Format(e.Operation, e.Err), "passage", e.PassageID)
		case <-sub.Done:
			return
		}
	}
}
