package spectrum

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-epicycle/epicycle"
)

type tone struct {
	freq, amp, phase float64
}

func synth(n int, sr float64, tones ...tone) []float64 {
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / sr
		for _, tn := range tones {
			out[i] += tn.amp * math.Sin(2*math.Pi*tn.freq*t+tn.phase)
		}
	}
	return out
}

func phaseDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 2*math.Pi)
	return math.Min(d, 2*math.Pi-d)
}

func TestRoundTripTwoOscillators(t *testing.T) {
	tree, err := epicycle.NewTree([]epicycle.NodeSpec{
		{ID: "a", Amplitude: 50, RotationSpeed: 1, Active: true},
		{ID: "b", ParentID: "a", Amplitude: 17, RotationSpeed: 3, Active: true, Order: 1},
	})
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}
	const sr = 64.0
	buf, err := epicycle.Render(tree, 0, 512, sr, epicycle.ProjectionIndividual)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	res, err := Analyze(buf, sr, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Peaks) != 2 {
		t.Fatalf("expected 2 peaks, got %+v", res.Peaks)
	}
	specs, err := Synthesize(res, DefaultSynthOptions())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("expected 2 oscillators, got %d", len(specs))
	}

	want := []float64{1, 3}
	for i, p := range res.Peaks {
		if math.Abs(p.Frequency-want[i]) > res.BinWidth {
			t.Fatalf("peak %d at %v Hz want %v (bin %v)", i, p.Frequency, want[i], res.BinWidth)
		}
	}
	ratio := specs[0].Amplitude / specs[1].Amplitude
	if math.Abs(ratio/(50.0/17.0)-1) > 0.1 {
		t.Fatalf("amplitude ratio %v want ~%v", ratio, 50.0/17.0)
	}
	if specs[0].RotationSpeed != 1 || math.Abs(specs[1].RotationSpeed-3) > 1e-9 {
		t.Fatalf("rotation speeds %v, %v", specs[0].RotationSpeed, specs[1].RotationSpeed)
	}
	if specs[1].ParentID != specs[0].ID || specs[0].ParentID != "" {
		t.Fatalf("chain links %q -> %q", specs[0].ParentID, specs[1].ParentID)
	}
	for _, s := range specs {
		if s.Direction != epicycle.DirectionCounterClockwise {
			t.Fatalf("direction %v", s.Direction)
		}
		if s.InitialPhase < 0 || s.InitialPhase >= 2*math.Pi {
			t.Fatalf("phase %v outside [0,2pi)", s.InitialPhase)
		}
		if phaseDiff(s.InitialPhase, 0) > 1e-6 {
			t.Fatalf("phase %v want 0", s.InitialPhase)
		}
	}
}

func TestAnalyzeOnBinAmplitudeAndPhase(t *testing.T) {
	const sr = 256.0
	buf := synth(1024, sr, tone{10, 2, 0.7}, tone{35, 0.5, 4})
	res, err := Analyze(buf, sr, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.FFTSize != 1024 || res.BinWidth != 0.25 {
		t.Fatalf("fft size %d bin width %v", res.FFTSize, res.BinWidth)
	}
	if len(res.Peaks) != 2 {
		t.Fatalf("peaks=%+v", res.Peaks)
	}
	p := res.Peaks[0]
	if math.Abs(p.Frequency-10) > 1e-9 || math.Abs(p.Amplitude-2) > 1e-9 || phaseDiff(p.Phase, 0.7) > 1e-9 {
		t.Fatalf("first peak %+v", p)
	}
	q := res.Peaks[1]
	if math.Abs(q.Amplitude-0.5) > 1e-9 || phaseDiff(q.Phase, 4) > 1e-9 || math.Abs(q.RelativeAmplitude-0.25) > 1e-9 {
		t.Fatalf("second peak %+v", q)
	}
}

func TestAnalyzeRemovesDCOffset(t *testing.T) {
	const sr = 128.0
	buf := synth(512, sr, tone{8, 1, 0})
	for i := range buf {
		buf[i] += 3.5
	}
	res, err := Analyze(buf, sr, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if math.Abs(res.DCOffset-3.5) > 1e-9 {
		t.Fatalf("dc offset %v", res.DCOffset)
	}
	if res.Magnitudes[0] > 1e-9 {
		t.Fatalf("dc bin %v not removed", res.Magnitudes[0])
	}
	if len(res.Peaks) != 1 || math.Abs(res.Peaks[0].Frequency-8) > 1e-9 {
		t.Fatalf("peaks=%+v", res.Peaks)
	}
}

func TestRefinedFrequencyOffBin(t *testing.T) {
	const sr = 256.0
	buf := synth(1024, sr, tone{10.1, 1, 0})
	res, err := Analyze(buf, sr, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Peaks) == 0 {
		t.Fatalf("no peaks")
	}
	if got := res.Peaks[0].Frequency; math.Abs(got-10.1) > 0.05 {
		t.Fatalf("refined frequency %v want ~10.1", got)
	}
}

func nearHz(got, want float64) bool {
	return math.Abs(got-want) <= 1e-9
}

func TestPeakSelectionRules(t *testing.T) {
	const sr = 256.0
	buf := synth(1024, sr, tone{10, 1, 0}, tone{20, 0.1, 0}, tone{30, 0.06, 0})

	opts := DefaultOptions()
	opts.MaxPeaks = 1
	res, _ := Analyze(buf, sr, opts)
	if len(res.Peaks) != 1 || !nearHz(res.Peaks[0].Frequency, 10) {
		t.Fatalf("max peaks: %+v", res.Peaks)
	}

	opts = DefaultOptions()
	opts.MinFrequency = 15
	res, _ = Analyze(buf, sr, opts)
	if len(res.Peaks) != 2 || !nearHz(res.Peaks[0].Frequency, 20) {
		t.Fatalf("min frequency: %+v", res.Peaks)
	}

	opts = DefaultOptions()
	opts.MinPeakDistance = 15
	res, _ = Analyze(buf, sr, opts)
	if len(res.Peaks) != 2 || !nearHz(res.Peaks[0].Frequency, 10) || !nearHz(res.Peaks[1].Frequency, 30) {
		t.Fatalf("min distance: %+v", res.Peaks)
	}

	opts = DefaultOptions()
	opts.Threshold = 0.08
	res, _ = Analyze(buf, sr, opts)
	if len(res.Peaks) != 2 {
		t.Fatalf("threshold: %+v", res.Peaks)
	}
	for i := 1; i < len(res.Peaks); i++ {
		if res.Peaks[i].Amplitude > res.Peaks[i-1].Amplitude {
			t.Fatalf("peaks not ranked: %+v", res.Peaks)
		}
	}
}

func TestHarmonicsAndTHD(t *testing.T) {
	const sr = 256.0
	buf := synth(1024, sr, tone{10, 1, 0}, tone{20, 0.1, 0.3}, tone{30, 0.06, 1.1})
	res, err := Analyze(buf, sr, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Fundamental != 10 {
		t.Fatalf("fundamental %v", res.Fundamental)
	}
	if len(res.Harmonics) != 2 || res.Harmonics[0].Number != 2 || res.Harmonics[1].Number != 3 {
		t.Fatalf("harmonics %+v", res.Harmonics)
	}
	if want := 100 * (0.1*0.1 + 0.06*0.06); math.Abs(res.THD-want) > 1e-6 {
		t.Fatalf("THD %v want %v", res.THD, want)
	}
}

func TestExpectedFundamentalOverrides(t *testing.T) {
	const sr = 256.0
	buf := synth(1024, sr, tone{20, 1, 0}, tone{40, 0.5, 0})
	opts := DefaultOptions()
	opts.ExpectedFundamental = 20
	res, _ := Analyze(buf, sr, opts)
	if res.Fundamental != 20 || len(res.Harmonics) != 1 || res.Harmonics[0].Number != 2 {
		t.Fatalf("fundamental %v harmonics %+v", res.Fundamental, res.Harmonics)
	}
	if math.Abs(res.THD-25) > 1e-6 {
		t.Fatalf("THD %v want 25", res.THD)
	}
}

func TestAnalyzeEmptyAndInvalid(t *testing.T) {
	res, err := Analyze(nil, 44100, DefaultOptions())
	if err != nil {
		t.Fatalf("empty buffer: %v", err)
	}
	if len(res.Peaks) != 0 || res.Fundamental != 0 || len(res.Magnitudes) != 0 {
		t.Fatalf("empty result not empty: %+v", res)
	}
	if _, err := Analyze([]float64{1, 2}, 0, DefaultOptions()); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("zero rate: %v", err)
	}
	if _, err := Analyze([]float64{1, math.NaN()}, 100, DefaultOptions()); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("nan sample: %v", err)
	}
	opts := DefaultOptions()
	opts.FFTSize = 100
	if _, err := Analyze([]float64{1, 2}, 100, opts); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("fft size: %v", err)
	}
}

func TestAnalyzeSingleSample(t *testing.T) {
	for _, w := range []Window{WindowHann, WindowHamming, WindowBlackman, WindowFlatTop, WindowRectangular} {
		opts := DefaultOptions()
		opts.Window = w
		res, err := Analyze([]float64{0.75}, 100, opts)
		if err != nil {
			t.Fatalf("%v: %v", w, err)
		}
		if res.DCOffset != 0.75 {
			t.Fatalf("%v: DC offset %v want 0.75", w, res.DCOffset)
		}
		if len(res.Peaks) != 0 || res.Fundamental != 0 {
			t.Fatalf("%v: single sample produced peaks %+v", w, res.Peaks)
		}
	}
}

func TestSmallerFFTUsesNewestSamples(t *testing.T) {
	const sr = 64.0
	buf := append(make([]float64, 512), synth(256, sr, tone{4, 1, 0})...)
	opts := DefaultOptions()
	opts.FFTSize = 256
	res, err := Analyze(buf, sr, opts)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Peaks) != 1 || math.Abs(res.Peaks[0].Amplitude-1) > 1e-9 {
		t.Fatalf("peaks=%+v", res.Peaks)
	}
}

func TestSynthesizeOptions(t *testing.T) {
	res := &Result{
		Fundamental: 1,
		Peaks: []Peak{
			{Frequency: 1, Amplitude: 10, RelativeAmplitude: 1, Phase: 1},
			{Frequency: 9, Amplitude: 5, RelativeAmplitude: 0.5},
			{Frequency: 0.02, Amplitude: 2, RelativeAmplitude: 0.2},
			{Frequency: 4, Amplitude: 0.05, RelativeAmplitude: 0.005},
		},
	}

	specs, err := Synthesize(res, DefaultSynthOptions())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(specs) != 3 {
		t.Fatalf("min relative amplitude not applied: %d", len(specs))
	}
	if specs[1].RotationSpeed != 5 || specs[2].RotationSpeed != 0.1 {
		t.Fatalf("speed clamp: %v %v", specs[1].RotationSpeed, specs[2].RotationSpeed)
	}
	if specs[0].Amplitude != 100 || specs[1].Amplitude != 50 {
		t.Fatalf("relative amplitudes %v %v", specs[0].Amplitude, specs[1].Amplitude)
	}

	opts := DefaultSynthOptions()
	opts.MaxRadii = 2
	opts.SortBy = SortByFrequency
	opts.PreserveFrequency = true
	opts.AmplitudeMode = AmplitudeRaw
	opts.ScaleFactor = 2
	specs, err = Synthesize(res, opts)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(specs) != 2 || specs[0].RotationSpeed != 1 || specs[1].RotationSpeed != 9 {
		t.Fatalf("sorted/limited specs %+v", specs)
	}
	if specs[0].Amplitude != 20 || specs[1].Amplitude != 10 {
		t.Fatalf("raw amplitudes %v %v", specs[0].Amplitude, specs[1].Amplitude)
	}

	tree, err := SynthesizeTree(res, opts)
	if err != nil {
		t.Fatalf("SynthesizeTree: %v", err)
	}
	if tree.Len() != 2 || tree.Parent(1) != 0 {
		t.Fatalf("tree shape len=%d parent=%d", tree.Len(), tree.Parent(1))
	}

	opts.MaxRadii = 0
	if _, err := Synthesize(res, opts); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestParseWindow(t *testing.T) {
	if w, err := ParseWindow("Blackman"); err != nil || w != WindowBlackman {
		t.Fatalf("ParseWindow: %v %v", w, err)
	}
	if _, err := ParseWindow("kaiser"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected error for unknown window")
	}
}
