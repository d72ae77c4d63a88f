package epicycle

import "math"

// ScaleState carries chart auto-scaling between calls. The zero value means
// no range has been observed yet. Callers own it; nothing here is global.
type ScaleState struct {
	Min, Max    float64
	Initialized bool
}

// SmoothRange folds the extent of values into state and returns the smoothed
// display range together with the next state. alpha in (0,1] is the weight of
// the new extent; an expanding range is adopted immediately so peaks are
// never clipped, a shrinking one decays toward the new extent.
func SmoothRange(state ScaleState, values []float64, alpha float64) (float64, float64, ScaleState) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if !isFinite(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		if !state.Initialized {
			return -1, 1, state
		}
		return state.Min, state.Max, state
	}
	if hi-lo < 1e-12 {
		lo -= 1
		hi += 1
	}
	if alpha <= 0 || alpha > 1 {
		alpha = 1
	}
	if !state.Initialized {
		next := ScaleState{Min: lo, Max: hi, Initialized: true}
		return lo, hi, next
	}

	next := state
	if lo < state.Min {
		next.Min = lo
	} else {
		next.Min = state.Min + alpha*(lo-state.Min)
	}
	if hi > state.Max {
		next.Max = hi
	} else {
		next.Max = state.Max + alpha*(hi-state.Max)
	}
	return next.Min, next.Max, next
}
