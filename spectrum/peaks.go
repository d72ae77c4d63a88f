package spectrum

import (
	"math"
	"sort"
)

// findPeaks returns local maxima that pass the threshold, frequency range
// and separation rules, strongest first.
func findPeaks(res *Result, opts Options) []Peak {
	mag := res.Magnitudes
	if len(mag) < 3 {
		return nil
	}
	maxFreq := opts.MaxFrequency
	if maxFreq == 0 || maxFreq > res.SampleRate/2 {
		maxFreq = res.SampleRate / 2
	}

	largest := 0.0
	for k := 1; k < len(mag); k++ {
		largest = math.Max(largest, mag[k])
	}
	if largest == 0 {
		return nil
	}
	floor := opts.Threshold * largest

	var cands []Peak
	for k := 1; k < len(mag)-1; k++ {
		if !(mag[k] > mag[k-1] && mag[k] >= mag[k+1]) || mag[k] < floor {
			continue
		}
		p := refine(res, k)
		if p.Frequency < opts.MinFrequency || p.Frequency > maxFreq {
			continue
		}
		cands = append(cands, p)
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Amplitude > cands[j].Amplitude })

	limit := opts.MaxPeaks
	if limit == 0 {
		limit = DefaultMaxPeaks
	}
	var peaks []Peak
	for _, c := range cands {
		if len(peaks) == limit {
			break
		}
		if tooClose(c, peaks, opts.MinPeakDistance) {
			continue
		}
		peaks = append(peaks, c)
	}
	if len(peaks) > 0 {
		top := peaks[0].Amplitude
		for i := range peaks {
			peaks[i].RelativeAmplitude = math.Min(peaks[i].Amplitude/top, 1)
		}
	}
	return peaks
}

func tooClose(c Peak, accepted []Peak, dist float64) bool {
	if dist <= 0 {
		return false
	}
	for _, p := range accepted {
		if math.Abs(p.Frequency-c.Frequency) < dist {
			return true
		}
	}
	return false
}

// refine interpolates the peak at bin k with a parabola through the log
// magnitudes of its neighbours.
func refine(res *Result, k int) Peak {
	mag := res.Magnitudes
	p := Peak{
		Frequency: res.Frequencies[k],
		Amplitude: mag[k],
		Phase:     res.Phases[k],
		Bin:       k,
	}
	if mag[k-1] <= 0 || mag[k] <= 0 || mag[k+1] <= 0 {
		return p
	}
	a, b, c := math.Log(mag[k-1]), math.Log(mag[k]), math.Log(mag[k+1])
	den := a - 2*b + c
	if den >= 0 {
		return p
	}
	d := 0.5 * (a - c) / den
	if d < -0.5 || d > 0.5 {
		return p
	}
	p.Frequency = (float64(k) + d) * res.BinWidth
	p.Amplitude = math.Exp(b - 0.25*(a-c)*d)
	return p
}
