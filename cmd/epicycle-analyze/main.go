package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/cwbudde/algo-epicycle/analysis"
	fitcommon "github.com/cwbudde/algo-epicycle/internal/fitcommon"
	"github.com/cwbudde/algo-epicycle/preset"
	"github.com/cwbudde/algo-epicycle/spectrum"
)

type peakReport struct {
	Frequency         float64 `json:"frequency_hz"`
	Amplitude         float64 `json:"amplitude"`
	Phase             float64 `json:"phase_rad"`
	RelativeAmplitude float64 `json:"relative_amplitude"`
	Harmonic          int     `json:"harmonic,omitempty"`
}

type analyzeReport struct {
	Source      string            `json:"source"`
	SampleRate  float64           `json:"sample_rate"`
	Samples     int               `json:"samples"`
	FFTSize     int               `json:"fft_size"`
	Window      string            `json:"window"`
	BinWidth    float64           `json:"bin_width_hz"`
	DCOffset    float64           `json:"dc_offset"`
	Fundamental float64           `json:"fundamental_hz"`
	THD         float64           `json:"thd_percent"`
	Peaks       []peakReport      `json:"peaks"`
	RoundTrip   *roundTripSummary `json:"round_trip,omitempty"`
}

type roundTripSummary struct {
	Oscillators   int              `json:"oscillators"`
	RelativeError float64          `json:"relative_error"`
	Metrics       analysis.Metrics `json:"metrics"`
}

func main() {
	inputPath := flag.String("input", "", "Input WAV to analyze")
	scenePath := flag.String("scene", "", "Scene JSON to render and analyze (used when -input is empty)")
	outputScene := flag.String("output-scene", "", "Optional path to write the reconstructed scene")
	jsonOut := flag.Bool("json", false, "Print the report as JSON")
	fftSize := flag.Int("fft-size", -1, "FFT size override (power of two, 0 = auto)")
	windowName := flag.String("window", "", "Window override: hann|rectangular|hamming|blackman|flattop")
	threshold := flag.Float64("threshold", -1, "Peak threshold override as fraction of the largest magnitude")
	maxPeaks := flag.Int("max-peaks", -1, "Maximum peaks override")
	fundamental := flag.Float64("fundamental", 0, "Expected fundamental in Hz (0 = detect)")
	radii := flag.Int("radii", 0, "Oscillators to reconstruct (0 uses the scene setting)")
	raw := flag.Bool("raw", false, "Reconstruct with absolute frequencies and measured amplitudes")
	flag.Parse()

	scene, err := loadScene(*scenePath)
	if err != nil {
		die("Error loading scene %q: %v", *scenePath, err)
	}
	if err := applyOverrides(scene, *fftSize, *windowName, *threshold, *maxPeaks, *fundamental, *radii, *raw); err != nil {
		die("%v", err)
	}

	var (
		signal []float64
		source string
		loop   *analysis.LoopReport
	)
	if *inputPath != "" {
		samples, rate, err := fitcommon.ReadWAVMono(*inputPath)
		if err != nil {
			die("Error reading %q: %v", *inputPath, err)
		}
		signal, source = samples, *inputPath
		scene.SampleRate = float64(rate)
	} else {
		tree, err := scene.Tree()
		if err != nil {
			die("Error building tree: %v", err)
		}
		loop, err = analysis.RoundTrip(tree, loopConfig(scene))
		if err != nil {
			die("Error running round trip: %v", err)
		}
		signal, source = loop.Analyzed, scene.Name
	}

	res, err := spectrum.Analyze(signal, scene.SampleRate, scene.Analysis)
	if err != nil {
		die("Error analyzing: %v", err)
	}
	rep := buildReport(source, scene.SampleRate, len(signal), res)
	if loop != nil {
		rep.RoundTrip = &roundTripSummary{Oscillators: len(loop.Specs), RelativeError: loop.RelativeError, Metrics: loop.Metrics}
	}

	if *jsonOut {
		b, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			die("Error encoding report: %v", err)
		}
		fmt.Println(string(b))
	} else {
		printReport(rep)
	}

	if *outputScene != "" {
		nodes, err := spectrum.Synthesize(res, scene.Synth)
		if err != nil {
			die("Error reconstructing: %v", err)
		}
		out := *scene
		out.Name = scene.Name + " (reconstructed)"
		out.Nodes = nodes
		out.Filter = nil
		if err := preset.WriteJSON(*outputScene, &out); err != nil {
			die("Error writing scene: %v", err)
		}
		fmt.Fprintf(os.Stderr, "Wrote %s (%d oscillators)\n", *outputScene, len(nodes))
	}
}

func loadScene(path string) (*preset.Scene, error) {
	if path == "" {
		return preset.DefaultScene(), nil
	}
	return preset.LoadJSON(path)
}

// applyOverrides writes non-default flag values into the scene's analyzer
// and synthesizer settings. Negative numeric flags mean "keep".
func applyOverrides(scene *preset.Scene, fftSize int, windowName string, threshold float64, maxPeaks int, fundamental float64, radii int, raw bool) error {
	a := &scene.Analysis
	if fftSize >= 0 {
		a.FFTSize = fftSize
	}
	if windowName != "" {
		w, err := spectrum.ParseWindow(windowName)
		if err != nil {
			return err
		}
		a.Window = w
	}
	if threshold >= 0 {
		a.Threshold = threshold
	}
	if maxPeaks >= 0 {
		a.MaxPeaks = maxPeaks
	}
	if fundamental > 0 {
		a.ExpectedFundamental = fundamental
	}
	if radii > 0 {
		scene.Synth.MaxRadii = radii
	}
	if raw {
		scene.Synth.PreserveFrequency = true
		scene.Synth.AmplitudeMode = spectrum.AmplitudeRaw
	}
	return nil
}

func loopConfig(scene *preset.Scene) analysis.LoopConfig {
	cfg := analysis.DefaultLoopConfig()
	cfg.SampleRate = scene.SampleRate
	cfg.Samples = max(scene.Samples(), 1)
	cfg.Projection = scene.Projection
	cfg.Filter = scene.Filter
	cfg.Analysis = scene.Analysis
	cfg.Synth = scene.Synth
	cfg.Synth.PreserveFrequency = true
	cfg.Synth.AmplitudeMode = spectrum.AmplitudeRaw
	return cfg
}

func buildReport(source string, sampleRate float64, samples int, res *spectrum.Result) analyzeReport {
	rep := analyzeReport{
		Source:      source,
		SampleRate:  sampleRate,
		Samples:     samples,
		FFTSize:     res.FFTSize,
		Window:      res.Window.String(),
		BinWidth:    res.BinWidth,
		DCOffset:    res.DCOffset,
		Fundamental: res.Fundamental,
		THD:         res.THD,
		Peaks:       make([]peakReport, 0, len(res.Peaks)),
	}
	harmonicOf := make(map[int]int, len(res.Harmonics))
	for _, h := range res.Harmonics {
		harmonicOf[h.Peak.Bin] = h.Number
	}
	for _, p := range res.Peaks {
		n := harmonicOf[p.Bin]
		if res.Fundamental > 0 && math.Abs(p.Frequency-res.Fundamental) <= res.BinWidth {
			n = 1
		}
		rep.Peaks = append(rep.Peaks, peakReport{
			Frequency:         p.Frequency,
			Amplitude:         p.Amplitude,
			Phase:             p.Phase,
			RelativeAmplitude: p.RelativeAmplitude,
			Harmonic:          n,
		})
	}
	return rep
}

func printReport(rep analyzeReport) {
	fmt.Printf("Source: %s\n", rep.Source)
	fmt.Printf("Samples: %d at %.2f Hz, FFT %d (%s), bin width %.4f Hz\n", rep.Samples, rep.SampleRate, rep.FFTSize, rep.Window, rep.BinWidth)
	fmt.Printf("DC offset: %.6g\n", rep.DCOffset)
	if rep.Fundamental > 0 {
		fmt.Printf("Fundamental: %.4f Hz, THD %.3f%%\n", rep.Fundamental, rep.THD)
	} else {
		fmt.Println("Fundamental: none")
	}
	fmt.Printf("Peaks (%d):\n", len(rep.Peaks))
	for i, p := range rep.Peaks {
		h := ""
		if p.Harmonic > 0 {
			h = fmt.Sprintf(" H%d", p.Harmonic)
		}
		fmt.Printf("  %2d  %10.4f Hz  amp %-10.5g rel %6.3f  phase %+.3f%s\n", i+1, p.Frequency, p.Amplitude, p.RelativeAmplitude, p.Phase, h)
	}
	if rt := rep.RoundTrip; rt != nil {
		fmt.Printf("Round trip: %d oscillators, relative error %.3g, similarity %.2f%%, lag %d\n",
			rt.Oscillators, rt.RelativeError, rt.Metrics.Similarity*100, rt.Metrics.LagSamples)
	}
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
