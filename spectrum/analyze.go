package spectrum

import (
	"fmt"
	"math"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
	"github.com/cwbudde/algo-dsp/dsp/window"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Peak is one spectral peak. Phase follows the sine convention: a
// component A·sin(2πft + φ) reports Phase φ in [0, 2π).
type Peak struct {
	Frequency         float64
	Amplitude         float64
	Phase             float64
	RelativeAmplitude float64
	Bin               int
}

// Harmonic is a peak at an integer multiple of the fundamental.
type Harmonic struct {
	Number int
	Peak   Peak
}

// Result is a single-sided spectrum with derived peak data.
type Result struct {
	Frequencies []float64
	Magnitudes  []float64
	Phases      []float64

	// Peaks are ranked by amplitude, largest first.
	Peaks []Peak
	// Fundamental is zero when no fundamental could be identified.
	Fundamental float64
	Harmonics   []Harmonic
	// THD is the harmonic to fundamental energy ratio in percent.
	THD      float64
	DCOffset float64

	BinWidth   float64
	FFTSize    int
	SampleRate float64
	Window     Window
}

// Analyze computes the spectrum of buffer. The mean is reported as DCOffset
// and removed before windowing. An empty buffer yields an empty result and
// a single sample yields only its DCOffset.
func Analyze(buffer []float64, sampleRate float64, opts Options) (*Result, error) {
	if !finite(sampleRate) || sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be > 0: %v", ErrInvalidInput, sampleRate)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	res := &Result{SampleRate: sampleRate, Window: opts.Window}
	if len(buffer) == 0 {
		return res, nil
	}
	for i, v := range buffer {
		if !finite(v) {
			return nil, fmt.Errorf("%w: sample %d is %v", ErrInvalidInput, i, v)
		}
	}

	size := opts.FFTSize
	if size == 0 {
		size = nextPow2(len(buffer))
	}
	x := buffer
	if len(x) > size {
		x = x[len(x)-size:]
	}
	m := len(x)

	res.DCOffset = stat.Mean(x, nil)
	if m < 2 {
		// a single sample carries no spectrum beyond its offset
		return res, nil
	}
	w := window.Generate(opts.Window.dspType(), m, window.WithPeriodic())
	gain := floats.Sum(w) / float64(m)
	if gain <= 0 {
		return nil, fmt.Errorf("%w: window %v has no coherent gain", ErrInvalidInput, opts.Window)
	}

	in := make([]float64, size)
	for i, v := range x {
		in[i] = (v - res.DCOffset) * w[i]
	}
	plan, err := algofft.NewPlanReal64(size)
	if err != nil {
		return nil, fmt.Errorf("fft plan: %w", err)
	}
	spec := make([]complex128, size/2+1)
	plan.Forward(spec, in)

	bins := len(spec)
	res.FFTSize = size
	res.BinWidth = sampleRate / float64(size)
	res.Frequencies = make([]float64, bins)
	res.Magnitudes = make([]float64, bins)
	res.Phases = make([]float64, bins)
	scale := 2 / (float64(m) * gain)
	for k, c := range spec {
		s := scale
		if k == 0 || (k == bins-1 && size%2 == 0) {
			s /= 2
		}
		res.Frequencies[k] = float64(k) * res.BinWidth
		res.Magnitudes[k] = cmplx.Abs(c) * s
		res.Phases[k] = normalizePhase(cmplx.Phase(c) + math.Pi/2)
	}

	res.Peaks = findPeaks(res, opts)
	res.Fundamental, res.Harmonics, res.THD = harmonics(res, opts)
	return res, nil
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// normalizePhase wraps a phase into [0, 2π).
func normalizePhase(p float64) float64 {
	p = math.Mod(p, 2*math.Pi)
	if p < 0 {
		p += 2 * math.Pi
	}
	if p >= 2*math.Pi {
		p = 0
	}
	return p
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
