// Package fade evaluates the volume envelopes used for resume fade-in and
// for pre-rendering passage fades. The mixer only ever evaluates a curve for
// its own resume fade; passage-level fades are baked into buffered samples
// before they reach it.
package fade

import (
	"math"
	"strings"
)

// Curve selects the shape of a fade envelope.
type Curve int

const (
	// Linear: v(t) = t. Constant rate of change.
	Linear Curve = iota
	// Exponential: v(t) = t². Slow start, fast finish.
	Exponential
	// Logarithmic: v(t) = √t on fade-in, (1-t)² on fade-out.
	Logarithmic
	// SCurve: v(t) = 0.5·(1 - cos(πt)). Smooth at both ends.
	SCurve
	// EqualPower: v(t) = sin(t·π/2). Constant perceived loudness when
	// paired with its own fade-out across a crossfade.
	EqualPower
)

// String returns the curve name as used in configuration files.
func (c Curve) String() string {
	switch c {
	case Linear:
		return "linear"
	case Exponential:
		return "exponential"
	case Logarithmic:
		return "logarithmic"
	case SCurve:
		return "s-curve"
	case EqualPower:
		return "equal-power"
	default:
		return "unknown"
	}
}

// Parse maps a configuration string to a Curve. Unrecognized names fall back
// to Linear.
func Parse(s string) Curve {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exponential":
		return Exponential
	case "logarithmic":
		return Logarithmic
	case "s-curve", "scurve", "cosine":
		return SCurve
	case "equal-power", "equalpower":
		return EqualPower
	default:
		return Linear
	}
}

// FadeIn returns the volume multiplier at normalized position t through a
// fade-in. t is clamped to [0, 1]; the result rises from 0.0 to 1.0.
func (c Curve) FadeIn(t float32) float32 {
	t = clamp01(t)
	switch c {
	case Exponential:
		return t * t
	case Logarithmic:
		return float32(math.Sqrt(float64(t)))
	case SCurve:
		return 0.5 * (1.0 - float32(math.Cos(math.Pi*float64(t))))
	case EqualPower:
		return float32(math.Sin(float64(t) * math.Pi / 2))
	default:
		return t
	}
}

// FadeOut returns the volume multiplier at normalized position t through a
// fade-out. t is clamped to [0, 1]; the result falls from 1.0 to 0.0.
func (c Curve) FadeOut(t float32) float32 {
	t = clamp01(t)
	switch c {
	case Exponential, Logarithmic:
		inv := 1.0 - t
		return inv * inv
	case SCurve:
		return 0.5 * (1.0 + float32(math.Cos(math.Pi*float64(t))))
	case EqualPower:
		return float32(math.Cos(float64(t) * math.Pi / 2))
	default:
		return 1.0 - t
	}
}

// RecommendedPair returns the fade-out curve that balances perceptually with
// this curve used as a fade-in.
func (c Curve) RecommendedPair() Curve {
	switch c {
	case Exponential:
		return Logarithmic
	case Logarithmic:
		return Exponential
	default:
		return c
	}
}

func clamp01(t float32) float32 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
