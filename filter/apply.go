package filter

import (
	"fmt"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"

	"github.com/cwbudde/algo-epicycle/epicycle"
)

// Apply runs in through the filter from rest and returns a new slice. The
// input is not modified. Empty input yields an empty result.
func Apply(c *Coefficients, in []float64) ([]float64, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil coefficients", ErrInvalidSpec)
	}
	if len(in) == 0 {
		return []float64{}, nil
	}
	if err := checkStable(c); err != nil {
		return nil, err
	}

	out := make([]float64, len(in))
	buf := make([]float64, len(in))
	for _, br := range c.Branches {
		copy(buf, in)
		chain := biquad.NewChain(br.Sections, biquad.WithGain(br.Gain))
		chain.ProcessBlock(buf)
		for i, v := range buf {
			out[i] += v
		}
	}
	for i, v := range out {
		out[i] = dspcore.FlushDenormals(v)
	}
	return out, nil
}

// ApplyBuffer filters the values of a sample buffer, oldest first, and
// returns a new buffer with the same sample times.
func ApplyBuffer(c *Coefficients, buf *epicycle.SampleBuffer) (*epicycle.SampleBuffer, error) {
	filtered, err := Apply(c, buf.Values())
	if err != nil {
		return nil, err
	}
	return buf.WithValues(filtered)
}
