package preset

import (
	"github.com/cwbudde/algo-epicycle/epicycle"
	"github.com/cwbudde/algo-epicycle/filter"
	"github.com/cwbudde/algo-epicycle/spectrum"
)

// Scene is everything needed to render, filter and analyze one oscillator
// tree outside of an editor.
type Scene struct {
	Name          string
	SampleRate    float64
	GraphDuration float64
	Projection    epicycle.Projection
	Nodes         []epicycle.NodeSpec

	// Filter is nil when the scene is rendered unfiltered.
	Filter   *filter.Spec
	Analysis spectrum.Options
	Synth    spectrum.SynthOptions
}

// DefaultScene is a single 1 Hz oscillator sampled at 64 Hz with an
// eight second graph window.
func DefaultScene() *Scene {
	return &Scene{
		Name:          "default",
		SampleRate:    64,
		GraphDuration: 8,
		Projection:    epicycle.ProjectionIndividual,
		Nodes: []epicycle.NodeSpec{
			{ID: "osc-1", Amplitude: 50, RotationSpeed: 1, Direction: epicycle.DirectionCounterClockwise, Active: true},
		},
		Analysis: spectrum.DefaultOptions(),
		Synth:    spectrum.DefaultSynthOptions(),
	}
}

// Tree builds the oscillator tree of the scene.
func (s *Scene) Tree() (*epicycle.Tree, error) {
	return epicycle.NewTree(s.Nodes)
}

// Samples is the number of samples in one graph window.
func (s *Scene) Samples() int {
	return int(s.GraphDuration*s.SampleRate + 0.5)
}

var (
	projections = map[string]epicycle.Projection{
		"individual": epicycle.ProjectionIndividual,
		"cumulative": epicycle.ProjectionCumulative,
	}
	directions = map[string]epicycle.Direction{
		"auto":             epicycle.DirectionAuto,
		"ccw":              epicycle.DirectionCounterClockwise,
		"counterclockwise": epicycle.DirectionCounterClockwise,
		"cw":               epicycle.DirectionClockwise,
		"clockwise":        epicycle.DirectionClockwise,
	}
	curves = map[string]epicycle.Curve{
		"":            epicycle.CurveLinear,
		"linear":      epicycle.CurveLinear,
		"exponential": epicycle.CurveExponential,
	}
	waveforms = map[string]epicycle.Waveform{
		"":         epicycle.WaveSine,
		"sine":     epicycle.WaveSine,
		"square":   epicycle.WaveSquare,
		"triangle": epicycle.WaveTriangle,
		"sawtooth": epicycle.WaveSawtooth,
	}
	targets = map[string]epicycle.Target{
		"":          epicycle.TargetAmplitude,
		"amplitude": epicycle.TargetAmplitude,
		"frequency": epicycle.TargetFrequency,
		"phase":     epicycle.TargetPhase,
	}
)

// FileFromScene converts s back into its file form with every field set.
func FileFromScene(s *Scene) *File {
	f := &File{
		Name:          s.Name,
		SampleRate:    ptr(s.SampleRate),
		GraphDuration: ptr(s.GraphDuration),
		Projection:    s.Projection.String(),
	}

	for _, n := range s.Nodes {
		o := Oscillator{
			ID:        n.ID,
			Parent:    n.ParentID,
			Amplitude: ptr(n.Amplitude),
			Phase:     n.InitialPhase,
			Speed:     n.RotationSpeed,
			Order:     ptr(n.Order),
			Active:    ptr(n.Active),
		}
		switch n.Direction {
		case epicycle.DirectionCounterClockwise:
			o.Direction = "ccw"
		case epicycle.DirectionClockwise:
			o.Direction = "cw"
		}
		if e := n.Envelope; e != nil {
			o.Envelope = &EnvelopeSetting{
				Enabled: ptr(e.Enabled), Attack: e.Attack, Decay: e.Decay, Sustain: e.Sustain,
				Release: e.Release, Curve: e.Curve.String(), Loop: e.Loop, LoopDuration: e.LoopDuration,
			}
		}
		if w := n.Sweep; w != nil {
			o.Sweep = &SweepSetting{
				Enabled: ptr(w.Enabled), StartFreq: w.StartFreq, EndFreq: w.EndFreq,
				Duration: w.Duration, Loop: w.Loop,
			}
		}
		if l := n.LFO; l != nil {
			o.LFO = &LFOSetting{
				Enabled: ptr(l.Enabled), Waveform: l.Waveform.String(), Rate: l.Rate,
				Depth: l.Depth, PhaseOffset: l.PhaseOffset, Target: l.Target.String(),
			}
		}
		f.Oscillators = append(f.Oscillators, o)
	}

	if fs := s.Filter; fs != nil {
		f.Filter = &FilterSetting{
			Enabled: ptr(true),
			Family:  fs.Family.String(),
			Mode:    fs.Mode.String(),
			Order:   ptr(fs.Order),
			Cutoff:  ptr(fs.Cutoff),
		}
		if fs.Mode.IsBand() {
			f.Filter.CutoffHigh = ptr(fs.CutoffHigh)
		}
		if fs.RippleDB > 0 {
			f.Filter.RippleDB = ptr(fs.RippleDB)
		}
		if fs.AttenuationDB > 0 {
			f.Filter.AttenuationDB = ptr(fs.AttenuationDB)
		}
	}

	a := s.Analysis
	f.FFT = &FFTSetting{
		Size:                ptr(a.FFTSize),
		Window:              a.Window.String(),
		Threshold:           ptr(a.Threshold),
		MinFrequency:        ptr(a.MinFrequency),
		MaxFrequency:        ptr(a.MaxFrequency),
		MinPeakDistance:     ptr(a.MinPeakDistance),
		ExpectedFundamental: ptr(a.ExpectedFundamental),
		HarmonicTolerance:   ptr(a.HarmonicTolerance),
	}
	if a.MaxPeaks > 0 {
		f.FFT.MaxPeaks = ptr(a.MaxPeaks)
	}

	y := s.Synth
	f.Synth = &SynthSetting{
		MaxRadii:             ptr(y.MaxRadii),
		MinRelativeAmplitude: ptr(y.MinRelativeAmplitude),
		SortBy:               "amplitude",
		AmplitudeMode:        "relative",
		MaxLength:            ptr(y.MaxLength),
		ScaleFactor:          ptr(y.ScaleFactor),
		SpeedMin:             ptr(y.SpeedMin),
		SpeedMax:             ptr(y.SpeedMax),
		PreserveFrequency:    ptr(y.PreserveFrequency),
		IDPrefix:             y.IDPrefix,
	}
	if y.SortBy == spectrum.SortByFrequency {
		f.Synth.SortBy = "frequency"
	}
	if y.AmplitudeMode == spectrum.AmplitudeRaw {
		f.Synth.AmplitudeMode = "raw"
	}
	return f
}

func ptr[T any](v T) *T { return &v }
