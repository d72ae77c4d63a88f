package filter

import (
	"fmt"
	"math"

	dspconv "github.com/cwbudde/algo-dsp/dsp/conv"
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
)

// Branch is a cascade of second-order sections with an input gain.
type Branch struct {
	Sections []biquad.Coefficients
	Gain     float64
}

// Coefficients is a designed filter. The output is the sum of all branch
// outputs; B and A hold the equivalent expanded transfer function with
// A[0] == 1.
type Coefficients struct {
	Spec       Spec
	SampleRate float64
	Branches   []Branch
	B          []float64
	A          []float64
	Warnings   []Warning
}

// Order returns the order of the expanded denominator.
func (c *Coefficients) Order() int {
	if c == nil || len(c.A) == 0 {
		return 0
	}
	return len(c.A) - 1
}

// Design computes the digital filter for spec at sampleRate. Out-of-range
// cutoffs and unknown enum values are corrected and reported as warnings;
// malformed numbers fail with ErrInvalidSpec. A design whose poles are not
// strictly inside the unit circle fails with *UnstableFilterError.
//
// Bandpass cascades a highpass at Cutoff with a lowpass at CutoffHigh.
// Bandstop sums a lowpass at Cutoff and a highpass at CutoffHigh in
// parallel, so the notch is only as deep as both skirts are at the band
// center: a narrow band (CutoffHigh/Cutoff near 1) or a low order yields a
// shallow notch, e.g. about -5 dB for order 4 over 100..150 Hz.
func Design(spec Spec, sampleRate float64) (*Coefficients, error) {
	norm, warnings, err := normalize(spec, sampleRate)
	if err != nil {
		return nil, err
	}

	var branches []Branch
	switch norm.Mode {
	case ModeLowpass, ModeHighpass:
		branches = []Branch{designBranch(norm, norm.Mode, norm.Cutoff, sampleRate)}
	case ModeBandpass:
		hp := designBranch(norm, ModeHighpass, norm.Cutoff, sampleRate)
		lp := designBranch(norm, ModeLowpass, norm.CutoffHigh, sampleRate)
		branches = []Branch{{
			Sections: append(hp.Sections, lp.Sections...),
			Gain:     hp.Gain * lp.Gain,
		}}
	case ModeBandstop:
		branches = []Branch{
			designBranch(norm, ModeLowpass, norm.Cutoff, sampleRate),
			designBranch(norm, ModeHighpass, norm.CutoffHigh, sampleRate),
		}
	}

	c := &Coefficients{
		Spec:       norm,
		SampleRate: sampleRate,
		Branches:   branches,
		Warnings:   warnings,
	}
	c.B, c.A, err = expand(branches)
	if err != nil {
		return nil, err
	}
	if err := checkStable(c); err != nil {
		return nil, err
	}
	return c, nil
}

func designBranch(spec Spec, mode Mode, cutoff, sampleRate float64) Branch {
	proto := prototype(spec.Family, spec.Order, spec.RippleDB, spec.AttenuationDB)
	wo := prewarp(cutoff, sampleRate)
	if spec.Family == FamilyChebyshev2 && spec.Mode.IsBand() {
		// band edges are -3 dB points; move each stopband edge outward
		k := chebyshev2EdgeRatio(spec.Order, spec.AttenuationDB)
		if mode == ModeHighpass {
			wo /= k
		} else {
			wo *= k
		}
	}

	var analog zpk
	if mode == ModeHighpass {
		analog = lowpassToHighpass(proto, wo)
	} else {
		analog = lowpassToLowpass(proto, wo)
	}
	sections, gain := toSections(bilinear(analog, sampleRate))
	return Branch{Sections: sections, Gain: gain}
}

// normalize validates spec and applies defaults, enum fallbacks and cutoff
// clamping.
func normalize(spec Spec, sampleRate float64) (Spec, []Warning, error) {
	if math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) || sampleRate <= 0 {
		return spec, nil, fmt.Errorf("%w: sample rate must be > 0: %v", ErrInvalidSpec, sampleRate)
	}
	if spec.Order < MinOrder || spec.Order > MaxOrder {
		return spec, nil, fmt.Errorf("%w: order must be in [%d,%d]: %d", ErrInvalidSpec, MinOrder, MaxOrder, spec.Order)
	}

	var warnings []Warning
	if !spec.Family.valid() {
		warnings = append(warnings, Warning{Kind: WarnUnknownFamily, Requested: float64(spec.Family)})
		spec.Family = FamilyButterworth
	}
	if !spec.Mode.valid() {
		warnings = append(warnings, Warning{Kind: WarnUnknownMode, Requested: float64(spec.Mode)})
		spec.Mode = ModeLowpass
	}

	if !finite(spec.Cutoff) {
		return spec, nil, fmt.Errorf("%w: cutoff must be finite: %v", ErrInvalidSpec, spec.Cutoff)
	}
	if spec.Mode.IsBand() && !finite(spec.CutoffHigh) {
		return spec, nil, fmt.Errorf("%w: upper cutoff must be finite: %v", ErrInvalidSpec, spec.CutoffHigh)
	}

	switch {
	case spec.RippleDB == 0:
		spec.RippleDB = DefaultRippleDB
	case !finite(spec.RippleDB) || spec.RippleDB < 0:
		return spec, nil, fmt.Errorf("%w: ripple must be > 0 dB: %v", ErrInvalidSpec, spec.RippleDB)
	}
	switch {
	case spec.AttenuationDB == 0:
		spec.AttenuationDB = DefaultAttenuationDB
	case !finite(spec.AttenuationDB) || spec.AttenuationDB < 0:
		return spec, nil, fmt.Errorf("%w: attenuation must be > 0 dB: %v", ErrInvalidSpec, spec.AttenuationDB)
	}

	var w Warning
	var clamped bool
	if spec.Cutoff, w, clamped = clampCutoff(spec.Cutoff, sampleRate); clamped {
		warnings = append(warnings, w)
	}
	if !spec.Mode.IsBand() {
		spec.CutoffHigh = 0
		return spec, warnings, nil
	}
	if spec.CutoffHigh, w, clamped = clampCutoff(spec.CutoffHigh, sampleRate); clamped {
		warnings = append(warnings, w)
	}
	if spec.CutoffHigh < spec.Cutoff {
		spec.Cutoff, spec.CutoffHigh = spec.CutoffHigh, spec.Cutoff
		warnings = append(warnings, Warning{Kind: WarnBandEdgesSwapped, Requested: spec.CutoffHigh, Applied: spec.Cutoff})
	}
	if spec.CutoffHigh-spec.Cutoff < 1e-9*sampleRate {
		center := spec.Cutoff
		spec.Cutoff = center / 1.05
		spec.CutoffHigh = math.Min(center*1.05, maxCutoff(sampleRate))
		warnings = append(warnings, Warning{Kind: WarnBandWidened, Requested: center, Applied: spec.CutoffHigh - spec.Cutoff})
	}
	return spec, warnings, nil
}

func maxCutoff(sampleRate float64) float64 { return 0.49 * sampleRate }
func minCutoff(sampleRate float64) float64 { return 0.001 * sampleRate }

func clampCutoff(f, sampleRate float64) (float64, Warning, bool) {
	switch {
	case f >= sampleRate/2:
		return maxCutoff(sampleRate), Warning{Kind: WarnCutoffClamped, Requested: f, Applied: maxCutoff(sampleRate)}, true
	case f <= 0:
		return minCutoff(sampleRate), Warning{Kind: WarnCutoffClamped, Requested: f, Applied: minCutoff(sampleRate)}, true
	default:
		return f, Warning{}, false
	}
}

// expand multiplies out every branch and sums the branches over a common
// denominator.
func expand(branches []Branch) ([]float64, []float64, error) {
	b, a := []float64{0}, []float64{1}
	for _, br := range branches {
		bb, ba := []float64{br.Gain}, []float64{1}
		for _, s := range br.Sections {
			var err error
			if bb, err = dspconv.Direct(bb, []float64{s.B0, s.B1, s.B2}); err != nil {
				return nil, nil, err
			}
			if ba, err = dspconv.Direct(ba, []float64{1, s.A1, s.A2}); err != nil {
				return nil, nil, err
			}
		}
		// b/a + bb/ba = (b*ba + bb*a) / (a*ba)
		left, err := dspconv.Direct(b, ba)
		if err != nil {
			return nil, nil, err
		}
		right, err := dspconv.Direct(bb, a)
		if err != nil {
			return nil, nil, err
		}
		if a, err = dspconv.Direct(a, ba); err != nil {
			return nil, nil, err
		}
		b = addPoly(left, right)
	}
	return trimPoly(b, 1), trimPoly(a, 1), nil
}

func addPoly(x, y []float64) []float64 {
	if len(y) > len(x) {
		x, y = y, x
	}
	out := append([]float64(nil), x...)
	for i, v := range y {
		out[i] += v
	}
	return out
}

// trimPoly drops trailing zero coefficients, keeping at least keep entries.
func trimPoly(p []float64, keep int) []float64 {
	n := len(p)
	for n > keep && p[n-1] == 0 {
		n--
	}
	return p[:n]
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
