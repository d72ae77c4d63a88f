package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/cwbudde/algo-epicycle/epicycle"
	"github.com/cwbudde/algo-epicycle/filter"
	fitcommon "github.com/cwbudde/algo-epicycle/internal/fitcommon"
	"github.com/cwbudde/algo-epicycle/preset"
)

func main() {
	scenePath := flag.String("scene", "", "Scene JSON file path (empty renders the default scene)")
	output := flag.String("output", "output.wav", "Output WAV file path")
	xyOutput := flag.String("xy", "", "Optional stereo WAV with the tip X/Y trace")
	sampleRate := flag.Float64("sample-rate", 0, "Render sample rate override in Hz")
	duration := flag.Float64("duration", 0, "Duration override in seconds (0 uses the graph duration)")
	start := flag.Float64("start", 0, "Simulation time of the first sample in seconds")
	noFilter := flag.Bool("no-filter", false, "Skip the scene filter")
	peak := flag.Float64("peak", 0.9, "Output peak level after normalization")
	flag.Parse()

	scene, err := loadScene(*scenePath)
	if err != nil {
		die("Error loading scene %q: %v", *scenePath, err)
	}
	if *sampleRate > 0 {
		scene.SampleRate = *sampleRate
	}
	if *duration > 0 {
		scene.GraphDuration = *duration
	}

	tree, err := scene.Tree()
	if err != nil {
		die("Error building tree: %v", err)
	}
	for _, w := range tree.Warnings() {
		fmt.Fprintf(os.Stderr, "warning: %v\n", w)
	}

	n := max(scene.Samples(), 1)
	fmt.Printf("Rendering %q: %d oscillators, %d samples at %.1f Hz (%s)\n", scene.Name, tree.Len(), n, scene.SampleRate, scene.Projection)

	signal, err := epicycle.Render(tree, *start, n, scene.SampleRate, scene.Projection)
	if err != nil {
		die("Error rendering: %v", err)
	}
	if !*noFilter && scene.Filter != nil {
		coeffs, err := filter.Design(*scene.Filter, scene.SampleRate)
		if err != nil {
			die("Error designing filter: %v", err)
		}
		for _, w := range coeffs.Warnings {
			fmt.Fprintf(os.Stderr, "filter warning: %v\n", w)
		}
		if signal, err = filter.Apply(coeffs, signal); err != nil {
			die("Error filtering: %v", err)
		}
		fmt.Printf("Applied %s %s filter (order %d)\n", coeffs.Spec.Family, coeffs.Spec.Mode, coeffs.Order())
	}

	rate := int(math.Round(scene.SampleRate))
	out, gain := fitcommon.PeakNormalize(signal, *peak)
	if err := fitcommon.WriteMonoWAV(*output, out, rate); err != nil {
		die("Error writing WAV file: %v", err)
	}
	fmt.Printf("Successfully wrote %s (%d frames, gain %.4g)\n", *output, len(out), gain)

	if *xyOutput != "" {
		x, y := tipTrace(tree, *start, n, scene.SampleRate, scene.Projection)
		x, y = normalizePair(x, y, *peak)
		if err := fitcommon.WriteStereoWAVLR(*xyOutput, x, y, rate); err != nil {
			die("Error writing XY WAV file: %v", err)
		}
		fmt.Printf("Successfully wrote %s (%d frames)\n", *xyOutput, n)
	}
}

func loadScene(path string) (*preset.Scene, error) {
	if path == "" {
		return preset.DefaultScene(), nil
	}
	return preset.LoadJSON(path)
}

// tipTrace samples the end point of the last chain element.
func tipTrace(tree *epicycle.Tree, start float64, n int, sampleRate float64, proj epicycle.Projection) ([]float64, []float64) {
	x := make([]float64, n)
	y := make([]float64, n)
	for i := range n {
		tip := epicycle.ComputePositionsWith(tree, start+float64(i)/sampleRate, proj).Tip()
		x[i], y[i] = tip.X, tip.Y
	}
	return x, y
}

// normalizePair scales both channels by one gain so the figure keeps its
// aspect ratio.
func normalizePair(x, y []float64, peak float64) ([]float64, []float64) {
	var m float64
	for i := range x {
		m = math.Max(m, math.Max(math.Abs(x[i]), math.Abs(y[i])))
	}
	if m <= 1e-12 {
		return x, y
	}
	g := peak / m
	for i := range x {
		x[i] *= g
		y[i] *= g
	}
	return x, y
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
