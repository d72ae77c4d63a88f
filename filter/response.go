package filter

import (
	"math"
	"math/cmplx"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

// halfPowerDB is the drop that defines cutoff and bandwidth edges.
var halfPowerDB = 10 * math.Log10(2)

// Response is the transfer function sampled on the unit circle.
// Frequencies are normalized (cycles per sample, 0 to 0.5).
type Response struct {
	Frequencies []float64
	MagnitudeDB []float64
	PhaseRad    []float64
}

// At evaluates the complex transfer function at normalized frequency f.
func (c *Coefficients) At(f float64) complex128 {
	var h complex128
	for _, br := range c.Branches {
		hb := complex(br.Gain, 0)
		for i := range br.Sections {
			hb *= br.Sections[i].Response(f, 1)
		}
		h += hb
	}
	return h
}

// EvaluateResponse returns magnitude and phase at each normalized frequency.
func EvaluateResponse(c *Coefficients, normFreqs []float64) Response {
	r := Response{
		Frequencies: append([]float64(nil), normFreqs...),
		MagnitudeDB: make([]float64, len(normFreqs)),
		PhaseRad:    make([]float64, len(normFreqs)),
	}
	for i, f := range normFreqs {
		h := c.At(f)
		r.MagnitudeDB[i] = dspcore.LinearToDB(cmplx.Abs(h))
		r.PhaseRad[i] = cmplx.Phase(h)
	}
	return r
}

// GroupDelay returns the group delay in samples at each normalized
// frequency, from a central difference of the phase.
func GroupDelay(c *Coefficients, normFreqs []float64) []float64 {
	const df = 1e-6
	out := make([]float64, len(normFreqs))
	for i, f := range normFreqs {
		lo, hi := math.Max(f-df, 0), math.Min(f+df, 0.5)
		if hi <= lo {
			continue
		}
		dphi := cmplx.Phase(c.At(hi) / c.At(lo))
		out[i] = -dphi / (2 * math.Pi * (hi - lo))
	}
	return out
}

// Metrics summarizes a magnitude response. Frequencies are in Hz; fields
// that do not apply to the filter mode are zero.
type Metrics struct {
	ReferenceDB float64
	CutoffHz    float64
	LowerHz     float64
	UpperHz     float64
	BandwidthHz float64
	CenterHz    float64
	Q           float64
}

// AnalyzeResponse samples the magnitude response on points frequencies
// between DC and Nyquist and derives the half-power cutoff, bandwidth,
// center frequency and quality factor.
func AnalyzeResponse(c *Coefficients, points int) Metrics {
	if c == nil || c.SampleRate <= 0 {
		return Metrics{}
	}
	if points < 16 {
		points = 2048
	}
	freqs := make([]float64, points)
	for i := range freqs {
		freqs[i] = 0.5 * float64(i) / float64(points-1)
	}
	mag := EvaluateResponse(c, freqs).MagnitudeDB

	ref := math.Inf(-1)
	peak, notch := 0, 0
	for i, m := range mag {
		if m > ref {
			ref, peak = m, i
		}
		if m < mag[notch] {
			notch = i
		}
	}
	level := ref - halfPowerDB
	hz := func(f float64) float64 { return f * c.SampleRate }

	m := Metrics{ReferenceDB: ref}
	switch c.Spec.Mode {
	case ModeLowpass:
		if f, ok := crossing(freqs, mag, 0, 1, level); ok {
			m.CutoffHz = hz(f)
			m.BandwidthHz = m.CutoffHz
		}
	case ModeHighpass:
		if f, ok := crossing(freqs, mag, points-1, -1, level); ok {
			m.CutoffHz = hz(f)
			m.BandwidthHz = c.SampleRate/2 - m.CutoffHz
		}
	case ModeBandpass:
		lo, okLo := crossing(freqs, mag, peak, -1, level)
		hi, okHi := crossing(freqs, mag, peak, 1, level)
		if okLo && okHi {
			m.LowerHz, m.UpperHz = hz(lo), hz(hi)
			m.CutoffHz = m.LowerHz
			m.BandwidthHz = m.UpperHz - m.LowerHz
			m.CenterHz = math.Sqrt(m.LowerHz * m.UpperHz)
		}
	case ModeBandstop:
		lo, okLo := crossing(freqs, mag, 0, 1, level)
		hi, okHi := crossing(freqs, mag, points-1, -1, level)
		if okLo && okHi && hi > lo {
			m.LowerHz, m.UpperHz = hz(lo), hz(hi)
			m.CutoffHz = m.LowerHz
			m.BandwidthHz = m.UpperHz - m.LowerHz
			m.CenterHz = hz(freqs[notch])
		}
	}
	if m.BandwidthHz > 0 && m.CenterHz > 0 {
		m.Q = m.CenterHz / m.BandwidthHz
	}
	return m
}

// crossing walks from start in direction step and returns the interpolated
// frequency where mag first falls below level.
func crossing(freqs, mag []float64, start, step int, level float64) (float64, bool) {
	for i := start; i+step >= 0 && i+step < len(mag); i += step {
		a, b := mag[i], mag[i+step]
		if a >= level && b < level {
			t := 1.0
			if !math.IsInf(b, -1) && a != b {
				t = (a - level) / (a - b)
			}
			return freqs[i] + t*(freqs[i+step]-freqs[i]), true
		}
	}
	return 0, false
}
