// Package config loads engine configuration from TOML files.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds the playback engine settings.
type Config struct {
	// SampleRate is the working sample rate in Hz. One tick is one frame
	// at this rate.
	SampleRate int `koanf:"sample_rate"`

	// MasterVolume is the initial master volume (0.0 to 1.0).
	MasterVolume float64 `koanf:"master_volume"`

	// CrossfadeMS is the default crossfade overlap in milliseconds, used
	// when a passage defines no lead-out of its own.
	CrossfadeMS int `koanf:"crossfade_ms"`

	// PositionIntervalMS is how often position update markers are placed.
	// Clamped to 100–5000 ms.
	PositionIntervalMS int `koanf:"position_interval_ms"`

	// BatchFrames is the standard mix batch size in frames.
	BatchFrames int `koanf:"batch_frames"`

	// CheckIntervalMS is the batch loop cadence in milliseconds.
	CheckIntervalMS int `koanf:"check_interval_ms"`

	// OutputRingFrames is the capacity of the mixed output ring buffer.
	OutputRingFrames int `koanf:"output_ring_frames"`

	// PlayoutRingFrames is the capacity of each per-passage ring buffer.
	PlayoutRingFrames int `koanf:"playout_ring_frames"`

	// ResumeFadeMS is the fade-in duration applied after resume from pause.
	ResumeFadeMS int `koanf:"resume_fade_ms"`

	// ResumeFadeCurve names the resume fade shape: "linear", "exponential",
	// "logarithmic", "s-curve" or "equal-power".
	ResumeFadeCurve string `koanf:"resume_fade_curve"`

	// LogLevel is the slog level: "debug", "info", "warn" or "error".
	LogLevel string `koanf:"log_level"`
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		SampleRate:         44100,
		MasterVolume:       1.0,
		CrossfadeMS:        2000,
		PositionIntervalMS: 1000,
		BatchFrames:        512,
		CheckIntervalMS:    10,
		OutputRingFrames:   8192,
		PlayoutRingFrames:  661500, // ~15s at 44.1kHz
		ResumeFadeMS:       500,
		ResumeFadeCurve:    "exponential",
		LogLevel:           "info",
	}
}

// Load reads configuration files in priority order (last wins) on top of the
// defaults. Missing files are skipped silently.
func Load() (*Config, error) {
	k := koanf.New(".")

	for _, path := range configPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}
	cfg.normalize()
	return cfg, nil
}

// normalize clamps values to their supported ranges rather than rejecting
// them.
func (c *Config) normalize() {
	if c.SampleRate <= 0 {
		c.SampleRate = 44100
	}
	if c.MasterVolume < 0 {
		c.MasterVolume = 0
	}
	if c.MasterVolume > 1 {
		c.MasterVolume = 1
	}
	if c.PositionIntervalMS < 100 {
		c.PositionIntervalMS = 100
	}
	if c.PositionIntervalMS > 5000 {
		c.PositionIntervalMS = 5000
	}
	if c.BatchFrames <= 0 {
		c.BatchFrames = 512
	}
	if c.CheckIntervalMS <= 0 {
		c.CheckIntervalMS = 10
	}
	if c.OutputRingFrames < c.BatchFrames*4 {
		c.OutputRingFrames = c.BatchFrames * 4
	}
	if c.PlayoutRingFrames <= 0 {
		c.PlayoutRingFrames = 661500
	}
	if c.CrossfadeMS < 0 {
		c.CrossfadeMS = 0
	}
	if c.ResumeFadeMS < 0 {
		c.ResumeFadeMS = 0
	}
}

// CheckInterval returns the batch loop cadence as a duration.
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalMS) * time.Millisecond
}

// TicksFromMS converts milliseconds to ticks at the working sample rate.
func (c *Config) TicksFromMS(ms int) int64 {
	return int64(ms) * int64(c.SampleRate) / 1000
}

func configPaths() []string {
	paths := []string{}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "segue", "config.toml"))
	}
	// ./config.toml has the highest priority.
	paths = append(paths, "config.toml")
	return paths
}
