package spectrum

import (
	"math"
	"sort"
)

// harmonics identifies the fundamental, the peaks at its integer multiples
// and the resulting THD in percent.
func harmonics(res *Result, opts Options) (float64, []Harmonic, float64) {
	f0 := opts.ExpectedFundamental
	if f0 == 0 {
		for _, p := range res.Peaks {
			if f0 == 0 || p.Frequency < f0 {
				f0 = p.Frequency
			}
		}
	}
	if f0 <= 0 {
		return 0, nil, 0
	}

	tol := opts.HarmonicTolerance
	fundAmp := 0.0
	byNumber := map[int]Peak{}
	for _, p := range res.Peaks {
		r := p.Frequency / f0
		n := int(math.Round(r))
		if n < 1 || math.Abs(r-float64(n)) > tol {
			continue
		}
		if n == 1 {
			fundAmp = math.Max(fundAmp, p.Amplitude)
			continue
		}
		if prev, ok := byNumber[n]; !ok || p.Amplitude > prev.Amplitude {
			byNumber[n] = p
		}
	}
	if fundAmp == 0 && res.BinWidth > 0 {
		// no peak at the expected fundamental; read the spectrum there
		k := int(math.Round(f0 / res.BinWidth))
		if k >= 0 && k < len(res.Magnitudes) {
			fundAmp = res.Magnitudes[k]
		}
	}

	hs := make([]Harmonic, 0, len(byNumber))
	energy := 0.0
	for n, p := range byNumber {
		hs = append(hs, Harmonic{Number: n, Peak: p})
		energy += p.Amplitude * p.Amplitude
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i].Number < hs[j].Number })

	thd := 0.0
	if fundAmp > 0 {
		thd = 100 * energy / (fundAmp * fundAmp)
	}
	return f0, hs, thd
}
