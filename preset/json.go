package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/cwbudde/algo-epicycle/epicycle"
	"github.com/cwbudde/algo-epicycle/filter"
	"github.com/cwbudde/algo-epicycle/spectrum"
)

// File is the JSON schema for scene presets. Pointer fields are optional
// and leave the default in place when absent.
type File struct {
	Name          string         `json:"name,omitempty"`
	SampleRate    *float64       `json:"sample_rate,omitempty"`
	GraphDuration *float64       `json:"graph_duration,omitempty"`
	Projection    string         `json:"projection,omitempty"`
	Oscillators   []Oscillator   `json:"oscillators,omitempty"`
	Filter        *FilterSetting `json:"filter,omitempty"`
	FFT           *FFTSetting    `json:"fft,omitempty"`
	Synth         *SynthSetting  `json:"synth,omitempty"`
}

// Oscillator is one node entry in a preset file.
type Oscillator struct {
	ID        string   `json:"id"`
	Parent    string   `json:"parent,omitempty"`
	Amplitude *float64 `json:"amplitude,omitempty"`
	Phase     float64  `json:"phase,omitempty"`
	Speed     float64  `json:"speed"`
	Direction string   `json:"direction,omitempty"`
	Order     *int     `json:"order,omitempty"`
	Active    *bool    `json:"active,omitempty"`

	Envelope *EnvelopeSetting `json:"envelope,omitempty"`
	Sweep    *SweepSetting    `json:"sweep,omitempty"`
	LFO      *LFOSetting      `json:"lfo,omitempty"`
}

type EnvelopeSetting struct {
	Enabled      *bool   `json:"enabled,omitempty"`
	Attack       float64 `json:"attack"`
	Decay        float64 `json:"decay"`
	Sustain      float64 `json:"sustain"`
	Release      float64 `json:"release"`
	Curve        string  `json:"curve,omitempty"`
	Loop         bool    `json:"loop,omitempty"`
	LoopDuration float64 `json:"loop_duration,omitempty"`
}

type SweepSetting struct {
	Enabled   *bool   `json:"enabled,omitempty"`
	StartFreq float64 `json:"start_freq"`
	EndFreq   float64 `json:"end_freq"`
	Duration  float64 `json:"duration"`
	Loop      bool    `json:"loop,omitempty"`
}

type LFOSetting struct {
	Enabled     *bool   `json:"enabled,omitempty"`
	Waveform    string  `json:"waveform,omitempty"`
	Rate        float64 `json:"rate"`
	Depth       float64 `json:"depth"`
	PhaseOffset float64 `json:"phase_offset,omitempty"`
	Target      string  `json:"target,omitempty"`
}

// FilterSetting describes the optional output filter. Band modes accept
// either cutoff/cutoff_high or center/bandwidth.
type FilterSetting struct {
	Enabled       *bool    `json:"enabled,omitempty"`
	Family        string   `json:"family,omitempty"`
	Mode          string   `json:"mode,omitempty"`
	Order         *int     `json:"order,omitempty"`
	Cutoff        *float64 `json:"cutoff,omitempty"`
	CutoffHigh    *float64 `json:"cutoff_high,omitempty"`
	Center        *float64 `json:"center,omitempty"`
	Bandwidth     *float64 `json:"bandwidth,omitempty"`
	RippleDB      *float64 `json:"ripple_db,omitempty"`
	AttenuationDB *float64 `json:"attenuation_db,omitempty"`
}

type FFTSetting struct {
	Size                *int     `json:"size,omitempty"`
	Window              string   `json:"window,omitempty"`
	Threshold           *float64 `json:"threshold,omitempty"`
	MinFrequency        *float64 `json:"min_frequency,omitempty"`
	MaxFrequency        *float64 `json:"max_frequency,omitempty"`
	MinPeakDistance     *float64 `json:"min_peak_distance,omitempty"`
	MaxPeaks            *int     `json:"max_peaks,omitempty"`
	ExpectedFundamental *float64 `json:"expected_fundamental,omitempty"`
	HarmonicTolerance   *float64 `json:"harmonic_tolerance,omitempty"`
}

type SynthSetting struct {
	MaxRadii             *int     `json:"max_radii,omitempty"`
	MinRelativeAmplitude *float64 `json:"min_relative_amplitude,omitempty"`
	SortBy               string   `json:"sort_by,omitempty"`
	AmplitudeMode        string   `json:"amplitude_mode,omitempty"`
	MaxLength            *float64 `json:"max_length,omitempty"`
	ScaleFactor          *float64 `json:"scale_factor,omitempty"`
	SpeedMin             *float64 `json:"speed_min,omitempty"`
	SpeedMax             *float64 `json:"speed_max,omitempty"`
	PreserveFrequency    *bool    `json:"preserve_frequency,omitempty"`
	IDPrefix             string   `json:"id_prefix,omitempty"`
}

// LoadJSON loads a scene file and applies it on top of DefaultScene.
func LoadJSON(path string) (*Scene, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := ParseJSON(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseJSON decodes a scene file from memory on top of DefaultScene and
// checks that its oscillators form a valid tree.
func ParseJSON(b []byte) (*Scene, error) {
	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, err
	}

	s := DefaultScene()
	if err := ApplyFile(s, &f); err != nil {
		return nil, err
	}
	if _, err := s.Tree(); err != nil {
		return nil, err
	}
	return s, nil
}

// WriteJSON stores s as an indented scene file.
func WriteJSON(path string, s *Scene) error {
	if s == nil {
		return fmt.Errorf("nil scene")
	}
	b, err := json.MarshalIndent(FileFromScene(s), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

// ApplyFile applies a parsed preset file onto an existing scene.
func ApplyFile(dst *Scene, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination scene")
	}
	if f == nil {
		return nil
	}

	if f.Name != "" {
		dst.Name = strings.TrimSpace(f.Name)
	}
	if f.SampleRate != nil {
		if *f.SampleRate <= 0 {
			return fmt.Errorf("sample_rate must be > 0")
		}
		dst.SampleRate = *f.SampleRate
	}
	if f.GraphDuration != nil {
		if *f.GraphDuration <= 0 {
			return fmt.Errorf("graph_duration must be > 0")
		}
		dst.GraphDuration = *f.GraphDuration
	}
	if f.Projection != "" {
		p, ok := projections[strings.ToLower(f.Projection)]
		if !ok {
			return fmt.Errorf("unknown projection %q", f.Projection)
		}
		dst.Projection = p
	}

	if len(f.Oscillators) > 0 {
		nodes := make([]epicycle.NodeSpec, 0, len(f.Oscillators))
		for i, o := range f.Oscillators {
			n, err := applyOscillator(i, o)
			if err != nil {
				return err
			}
			nodes = append(nodes, n)
		}
		dst.Nodes = nodes
	}

	if err := applyFilter(dst, f.Filter); err != nil {
		return err
	}
	if err := applyFFT(&dst.Analysis, f.FFT); err != nil {
		return err
	}
	return applySynth(&dst.Synth, f.Synth)
}

func applyOscillator(i int, o Oscillator) (epicycle.NodeSpec, error) {
	id := strings.TrimSpace(o.ID)
	if id == "" {
		return epicycle.NodeSpec{}, fmt.Errorf("oscillators[%d].id must not be empty", i)
	}
	n := epicycle.NodeSpec{
		ID:            id,
		ParentID:      strings.TrimSpace(o.Parent),
		Amplitude:     50,
		InitialPhase:  o.Phase,
		RotationSpeed: o.Speed,
		Order:         i,
		Active:        true,
	}
	if o.Amplitude != nil {
		if *o.Amplitude < 0 {
			return n, fmt.Errorf("oscillators[%d].amplitude must be >= 0", i)
		}
		n.Amplitude = *o.Amplitude
	}
	if o.Order != nil {
		n.Order = *o.Order
	}
	if o.Active != nil {
		n.Active = *o.Active
	}
	if o.Direction != "" {
		d, ok := directions[strings.ToLower(o.Direction)]
		if !ok {
			return n, fmt.Errorf("oscillators[%d].direction %q must be cw, ccw or auto", i, o.Direction)
		}
		n.Direction = d
	}

	if e := o.Envelope; e != nil {
		curve, ok := curves[strings.ToLower(e.Curve)]
		if !ok {
			return n, fmt.Errorf("oscillators[%d].envelope.curve %q must be linear or exponential", i, e.Curve)
		}
		n.Envelope = &epicycle.Envelope{
			Enabled:      enabled(e.Enabled),
			Attack:       e.Attack,
			Decay:        e.Decay,
			Sustain:      e.Sustain,
			Release:      e.Release,
			Curve:        curve,
			Loop:         e.Loop,
			LoopDuration: e.LoopDuration,
		}
	}
	if s := o.Sweep; s != nil {
		n.Sweep = &epicycle.Sweep{
			Enabled:   enabled(s.Enabled),
			StartFreq: s.StartFreq,
			EndFreq:   s.EndFreq,
			Duration:  s.Duration,
			Loop:      s.Loop,
		}
	}
	if l := o.LFO; l != nil {
		wave, ok := waveforms[strings.ToLower(l.Waveform)]
		if !ok {
			return n, fmt.Errorf("oscillators[%d].lfo.waveform %q is not supported", i, l.Waveform)
		}
		target, ok := targets[strings.ToLower(l.Target)]
		if !ok {
			return n, fmt.Errorf("oscillators[%d].lfo.target %q is not supported", i, l.Target)
		}
		n.LFO = &epicycle.LFO{
			Enabled:     enabled(l.Enabled),
			Waveform:    wave,
			Rate:        l.Rate,
			Depth:       l.Depth,
			PhaseOffset: l.PhaseOffset,
			Target:      target,
		}
	}
	if err := n.Validate(); err != nil {
		return n, fmt.Errorf("oscillators[%d]: %w", i, err)
	}
	return n, nil
}

func applyFilter(dst *Scene, fs *FilterSetting) error {
	if fs == nil {
		return nil
	}
	if !enabled(fs.Enabled) {
		dst.Filter = nil
		return nil
	}
	spec := filter.Spec{Order: 4}
	if dst.Filter != nil {
		spec = *dst.Filter
	}
	if fs.Family != "" {
		fam, err := filter.ParseFamily(fs.Family)
		if err != nil {
			return fmt.Errorf("filter.family: %w", err)
		}
		spec.Family = fam
	}
	if fs.Mode != "" {
		mode, err := filter.ParseMode(fs.Mode)
		if err != nil {
			return fmt.Errorf("filter.mode: %w", err)
		}
		spec.Mode = mode
	}
	if fs.Order != nil {
		if *fs.Order < filter.MinOrder || *fs.Order > filter.MaxOrder {
			return fmt.Errorf("filter.order must be in [%d,%d]", filter.MinOrder, filter.MaxOrder)
		}
		spec.Order = *fs.Order
	}
	if fs.Cutoff != nil {
		spec.Cutoff = *fs.Cutoff
	}
	if fs.CutoffHigh != nil {
		spec.CutoffHigh = *fs.CutoffHigh
	}
	if fs.Center != nil {
		if fs.Bandwidth == nil || *fs.Bandwidth <= 0 {
			return fmt.Errorf("filter.center needs a bandwidth > 0")
		}
		spec.Cutoff, spec.CutoffHigh = filter.BandFromCenter(*fs.Center, *fs.Bandwidth)
	}
	if fs.RippleDB != nil {
		if *fs.RippleDB <= 0 {
			return fmt.Errorf("filter.ripple_db must be > 0")
		}
		spec.RippleDB = *fs.RippleDB
	}
	if fs.AttenuationDB != nil {
		if *fs.AttenuationDB <= 0 {
			return fmt.Errorf("filter.attenuation_db must be > 0")
		}
		spec.AttenuationDB = *fs.AttenuationDB
	}
	if spec.Cutoff <= 0 {
		return fmt.Errorf("filter.cutoff must be > 0")
	}
	if spec.Mode.IsBand() && spec.CutoffHigh <= 0 {
		return fmt.Errorf("filter.cutoff_high must be > 0 for %s", spec.Mode)
	}
	dst.Filter = &spec
	return nil
}

func applyFFT(dst *spectrum.Options, fs *FFTSetting) error {
	if fs == nil {
		return nil
	}
	if fs.Size != nil {
		n := *fs.Size
		if n < 0 || (n > 0 && n&(n-1) != 0) {
			return fmt.Errorf("fft.size must be a power of two")
		}
		dst.FFTSize = n
	}
	if fs.Window != "" {
		w, err := spectrum.ParseWindow(fs.Window)
		if err != nil {
			return fmt.Errorf("fft.window: %w", err)
		}
		dst.Window = w
	}
	if fs.Threshold != nil {
		if *fs.Threshold < 0 || *fs.Threshold > 1 {
			return fmt.Errorf("fft.threshold must be in [0,1]")
		}
		dst.Threshold = *fs.Threshold
	}
	if fs.MinFrequency != nil {
		dst.MinFrequency = *fs.MinFrequency
	}
	if fs.MaxFrequency != nil {
		dst.MaxFrequency = *fs.MaxFrequency
	}
	if dst.MaxFrequency > 0 && dst.MinFrequency > dst.MaxFrequency {
		return fmt.Errorf("fft.min_frequency must not exceed fft.max_frequency")
	}
	if fs.MinPeakDistance != nil {
		dst.MinPeakDistance = *fs.MinPeakDistance
	}
	if fs.MaxPeaks != nil {
		if *fs.MaxPeaks < 1 {
			return fmt.Errorf("fft.max_peaks must be >= 1")
		}
		dst.MaxPeaks = *fs.MaxPeaks
	}
	if fs.ExpectedFundamental != nil {
		dst.ExpectedFundamental = *fs.ExpectedFundamental
	}
	if fs.HarmonicTolerance != nil {
		dst.HarmonicTolerance = *fs.HarmonicTolerance
	}
	return nil
}

func applySynth(dst *spectrum.SynthOptions, ss *SynthSetting) error {
	if ss == nil {
		return nil
	}
	if ss.MaxRadii != nil {
		if *ss.MaxRadii < 1 {
			return fmt.Errorf("synth.max_radii must be >= 1")
		}
		dst.MaxRadii = *ss.MaxRadii
	}
	if ss.MinRelativeAmplitude != nil {
		dst.MinRelativeAmplitude = *ss.MinRelativeAmplitude
	}
	switch strings.ToLower(ss.SortBy) {
	case "":
	case "amplitude":
		dst.SortBy = spectrum.SortByAmplitude
	case "frequency":
		dst.SortBy = spectrum.SortByFrequency
	default:
		return fmt.Errorf("synth.sort_by %q must be amplitude or frequency", ss.SortBy)
	}
	switch strings.ToLower(ss.AmplitudeMode) {
	case "":
	case "relative":
		dst.AmplitudeMode = spectrum.AmplitudeRelative
	case "raw":
		dst.AmplitudeMode = spectrum.AmplitudeRaw
	default:
		return fmt.Errorf("synth.amplitude_mode %q must be relative or raw", ss.AmplitudeMode)
	}
	if ss.MaxLength != nil {
		dst.MaxLength = *ss.MaxLength
	}
	if ss.ScaleFactor != nil {
		dst.ScaleFactor = *ss.ScaleFactor
	}
	if ss.SpeedMin != nil {
		dst.SpeedMin = *ss.SpeedMin
	}
	if ss.SpeedMax != nil {
		dst.SpeedMax = *ss.SpeedMax
	}
	if dst.SpeedMin <= 0 || dst.SpeedMax < dst.SpeedMin {
		return fmt.Errorf("synth speed range must satisfy 0 < speed_min <= speed_max")
	}
	if ss.PreserveFrequency != nil {
		dst.PreserveFrequency = *ss.PreserveFrequency
	}
	if ss.IDPrefix != "" {
		dst.IDPrefix = ss.IDPrefix
	}
	return nil
}

func enabled(b *bool) bool {
	return b == nil || *b
}
