package analysis

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-epicycle/epicycle"
	"github.com/cwbudde/algo-epicycle/filter"
	"github.com/cwbudde/algo-epicycle/spectrum"
)

// ErrInvalidLoop reports an unusable LoopConfig.
var ErrInvalidLoop = errors.New("analysis: invalid loop config")

// LoopConfig drives RoundTrip.
type LoopConfig struct {
	SampleRate float64
	Samples    int
	Start      float64
	Projection epicycle.Projection

	// Filter is applied to the rendered signal before analysis when set.
	Filter *filter.Spec

	Analysis spectrum.Options
	Synth    spectrum.SynthOptions
}

// DefaultLoopConfig renders 512 samples at 64 Hz and reconstructs with
// absolute frequencies and raw amplitudes, so the rebuilt tree reproduces
// the analyzed signal rather than a normalized drawing.
func DefaultLoopConfig() LoopConfig {
	synth := spectrum.DefaultSynthOptions()
	synth.PreserveFrequency = true
	synth.AmplitudeMode = spectrum.AmplitudeRaw
	return LoopConfig{
		SampleRate: 64,
		Samples:    512,
		Analysis:   spectrum.DefaultOptions(),
		Synth:      synth,
	}
}

// LoopReport holds every intermediate of a round trip.
type LoopReport struct {
	Original []float64
	// Analyzed is the block the analyzer saw, after filtering.
	Analyzed      []float64
	Reconstructed []float64

	Coefficients  *filter.Coefficients
	Spectrum      *spectrum.Result
	Specs         []epicycle.NodeSpec
	Metrics       Metrics
	RelativeError float64
}

// RoundTrip renders tree, optionally filters it, analyzes the spectrum,
// rebuilds an oscillator chain from the peaks, renders that chain over the
// analyzed block and measures how far the two signals are apart.
func RoundTrip(tree *epicycle.Tree, cfg LoopConfig) (*LoopReport, error) {
	if tree == nil {
		return nil, fmt.Errorf("%w: nil tree", ErrInvalidLoop)
	}
	if cfg.Samples <= 0 {
		return nil, fmt.Errorf("%w: samples must be > 0: %d", ErrInvalidLoop, cfg.Samples)
	}

	original, err := epicycle.Render(tree, cfg.Start, cfg.Samples, cfg.SampleRate, cfg.Projection)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	rep := &LoopReport{Original: original}

	signal := original
	if cfg.Filter != nil {
		coeffs, err := filter.Design(*cfg.Filter, cfg.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("design filter: %w", err)
		}
		signal, err = filter.Apply(coeffs, original)
		if err != nil {
			return nil, fmt.Errorf("apply filter: %w", err)
		}
		rep.Coefficients = coeffs
	}

	res, err := spectrum.Analyze(signal, cfg.SampleRate, cfg.Analysis)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	rep.Spectrum = res

	// Analyze keeps the newest FFTSize samples; phases refer to that block.
	block := signal
	if len(block) > res.FFTSize {
		block = block[len(block)-res.FFTSize:]
	}
	rep.Analyzed = block

	specs, err := spectrum.Synthesize(res, cfg.Synth)
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	rep.Specs = specs
	rebuilt, err := epicycle.NewTree(specs)
	if err != nil {
		return nil, fmt.Errorf("rebuild tree: %w", err)
	}
	rep.Reconstructed, err = epicycle.Render(rebuilt, 0, len(block), cfg.SampleRate, epicycle.ProjectionIndividual)
	if err != nil {
		return nil, fmt.Errorf("render reconstruction: %w", err)
	}

	centered := make([]float64, len(block))
	for i, v := range block {
		centered[i] = v - res.DCOffset
	}
	rep.Metrics = Compare(centered, rep.Reconstructed, cfg.SampleRate)
	rep.RelativeError = ReconstructionError(centered, rep.Reconstructed)
	return rep, nil
}
