package engine

// Output ring fill thresholds for the graduated batch strategy.
const (
	fillCritical = 0.25
	fillLow      = 0.50
	fillHigh     = 0.75
)

// batchPlan describes one iteration of the mixing loop for a given output
// ring fill level.
type batchPlan struct {
	// frames to mix this iteration; zero means the ring is full enough.
	frames int
	// waitFirst waits one tick interval before mixing.
	waitFirst bool
	// waitAfter waits one tick interval after mixing. A critical fill
	// skips both waits so the ring refills as fast as possible.
	waitAfter bool
}

// planBatch picks a batch size from the ring fill ratio:
//
//	< 25%   critical: oversized batch, no waiting, underrun imminent
//	25–50%  low:      standard batch, then wait one interval
//	50–75%  optimal:  wait first, then a small top-up
//	> 75%   high:     wait only
//
// The graduation prevents both underrun (too little lookahead) and excess
// latency (over-buffering ahead of the output device).
func planBatch(fill float64, batchFrames int) batchPlan {
	switch {
	case fill < fillCritical:
		return batchPlan{frames: batchFrames * 2}
	case fill < fillLow:
		return batchPlan{frames: batchFrames, waitAfter: true}
	case fill <= fillHigh:
		return batchPlan{frames: batchFrames / 2, waitFirst: true}
	default:
		return batchPlan{waitFirst: true}
	}
}
