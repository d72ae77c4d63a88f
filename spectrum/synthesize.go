package spectrum

import (
	"fmt"
	"math"
	"sort"

	"github.com/cwbudde/algo-epicycle/epicycle"
)

// Synthesize maps the peaks of res to a chain of counter-clockwise
// oscillators, each attached to the tip of the previous one. Peaks below
// MinRelativeAmplitude are dropped and at most MaxRadii are kept.
func Synthesize(res *Result, opts SynthOptions) ([]epicycle.NodeSpec, error) {
	if res == nil {
		return nil, fmt.Errorf("%w: nil result", ErrInvalidInput)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	peaks := make([]Peak, 0, len(res.Peaks))
	for _, p := range res.Peaks {
		if p.RelativeAmplitude >= opts.MinRelativeAmplitude && p.Frequency > 0 {
			peaks = append(peaks, p)
		}
	}
	// keep the strongest MaxRadii before any reordering
	sort.SliceStable(peaks, func(i, j int) bool { return peaks[i].Amplitude > peaks[j].Amplitude })
	if len(peaks) > opts.MaxRadii {
		peaks = peaks[:opts.MaxRadii]
	}
	if opts.SortBy == SortByFrequency {
		sort.SliceStable(peaks, func(i, j int) bool { return peaks[i].Frequency < peaks[j].Frequency })
	}

	f0 := res.Fundamental
	if f0 <= 0 && len(peaks) > 0 {
		f0 = peaks[0].Frequency
	}

	prefix := opts.IDPrefix
	if prefix == "" {
		prefix = "osc"
	}
	specs := make([]epicycle.NodeSpec, len(peaks))
	for i, p := range peaks {
		spec := epicycle.NodeSpec{
			ID:            fmt.Sprintf("%s-%d", prefix, i+1),
			Amplitude:     amplitude(p, opts),
			InitialPhase:  normalizePhase(p.Phase),
			RotationSpeed: speed(p.Frequency, f0, opts),
			Direction:     epicycle.DirectionCounterClockwise,
			Order:         i,
			Active:        true,
		}
		if i > 0 {
			spec.ParentID = specs[i-1].ID
		}
		specs[i] = spec
	}
	return specs, nil
}

// SynthesizeTree is Synthesize followed by epicycle.NewTree.
func SynthesizeTree(res *Result, opts SynthOptions) (*epicycle.Tree, error) {
	specs, err := Synthesize(res, opts)
	if err != nil {
		return nil, err
	}
	return epicycle.NewTree(specs)
}

func amplitude(p Peak, opts SynthOptions) float64 {
	if opts.AmplitudeMode == AmplitudeRaw {
		return p.Amplitude * opts.ScaleFactor
	}
	return p.RelativeAmplitude * opts.MaxLength
}

func speed(freq, f0 float64, opts SynthOptions) float64 {
	if opts.PreserveFrequency {
		return freq
	}
	return math.Min(math.Max(freq/f0, opts.SpeedMin), opts.SpeedMax)
}
