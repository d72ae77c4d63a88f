package fitcommon

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// PeakNormalize scales x so its largest magnitude equals peak and returns
// the scaled copy with the applied gain. Silent input is copied unchanged
// with gain 1.
func PeakNormalize(x []float64, peak float64) ([]float64, float64) {
	var m float64
	for _, v := range x {
		m = math.Max(m, math.Abs(v))
	}
	out := make([]float64, len(x))
	if m <= 1e-12 {
		copy(out, x)
		return out, 1
	}
	g := peak / m
	for i, v := range x {
		out[i] = v * g
	}
	return out, g
}

func ParseWorkers(raw string) (int, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return 0, fmt.Errorf("empty value (use integer >= 1 or 'auto')")
	}
	if v == "auto" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%q (use integer >= 1 or 'auto')", raw)
	}
	if n < 1 {
		return 0, fmt.Errorf("%d (must be >= 1 or 'auto')", n)
	}
	return n, nil
}
