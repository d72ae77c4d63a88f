package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/cwbudde/algo-epicycle/epicycle"
	fitcommon "github.com/cwbudde/algo-epicycle/internal/fitcommon"
	"github.com/cwbudde/algo-epicycle/preset"
	"github.com/cwbudde/algo-epicycle/spectrum"
)

func main() {
	referencePath := flag.String("reference", "", "Reference WAV path")
	scenePath := flag.String("scene", "", "Base scene JSON; if empty, the start tree is reconstructed from the reference spectrum")
	outputScene := flag.String("output-scene", "out/fitted.json", "Path to write the fitted scene JSON")
	reportPath := flag.String("report", "", "Optional report JSON path (default: <output-scene>.report.json)")
	optimize := flag.String("optimize", "amplitude,phase", "Comma-separated knob groups to optimize: amplitude, phase, speed")
	speedSpread := flag.Float64("speed-spread", 0.05, "Relative search range around each starting speed")
	sampleRate := flag.Float64("sample-rate", 0, "Analysis sample rate (0 uses the scene's)")
	maxRadii := flag.Int("max-radii", 8, "Oscillators to reconstruct when no -scene is given")
	seed := flag.Int64("seed", 1, "Random seed")
	timeBudget := flag.Float64("time-budget", 30.0, "Optimization time budget in seconds")
	maxEvals := flag.Int("max-evals", 2000, "Maximum objective evaluations")
	reportEvery := flag.Int("report-every", 50, "Print progress every N evaluations")
	topK := flag.Int("top-k", 5, "How many top candidates to keep in report")
	resume := flag.Bool("resume", true, "Resume from previous best_knobs report when available")
	workers := flag.String("workers", "1", "Parallel optimization workers running independent Mayfly rounds (number or 'auto')")

	mayflyVariant := flag.String("mayfly-variant", "desma", "Mayfly variant: ma|desma|olce|eobbma|gsasma|mpma|aoblmoa")
	mayflyPop := flag.Int("mayfly-pop", 10, "Male and female population size per Mayfly run")
	mayflyRoundEvals := flag.Int("mayfly-round-evals", 240, "Target eval budget per Mayfly round")
	flag.Parse()

	if *referencePath == "" {
		die("-reference is required")
	}
	groups, err := parseOptimizeGroups(*optimize)
	if err != nil {
		die("invalid --optimize: %v", err)
	}
	if *outputScene == "" {
		die("output-scene must not be empty")
	}
	if *maxEvals < 1 {
		die("max-evals must be >= 1")
	}
	if *timeBudget <= 0 {
		die("time-budget must be > 0")
	}
	if *reportEvery < 1 {
		*reportEvery = 1
	}
	if *mayflyPop < 2 {
		*mayflyPop = 2
	}
	if *mayflyRoundEvals < *mayflyPop*2 {
		*mayflyRoundEvals = *mayflyPop * 2
	}
	if *topK < 1 {
		*topK = 1
	}
	parsedWorkers, err := parseWorkersFlag(*workers)
	if err != nil {
		die("invalid workers value: %v", err)
	}

	scene := preset.DefaultScene()
	if *scenePath != "" {
		if scene, err = preset.LoadJSON(*scenePath); err != nil {
			die("failed to load scene: %v", err)
		}
	}
	if *sampleRate > 0 {
		scene.SampleRate = *sampleRate
	}

	refRaw, refSR, err := fitcommon.ReadWAVMono(*referencePath)
	if err != nil {
		die("failed to read reference: %v", err)
	}
	ref, err := fitcommon.ResampleIfNeeded(refRaw, refSR, int(math.Round(scene.SampleRate)))
	if err != nil {
		die("failed to resample reference: %v", err)
	}
	if n := scene.Samples(); n > 0 && len(ref) > n {
		ref = ref[:n]
	}

	gain := 1.0
	if *scenePath != "" {
		ref, gain, err = matchReferenceScale(scene, ref)
	} else {
		scene.Nodes, err = reconstructNodes(scene, ref, *maxRadii)
	}
	if err != nil {
		die("failed to prepare start tree: %v", err)
	}

	defs, initCand := initCandidate(scene.Nodes, groups, *speedSpread)
	if *resume {
		resumePath := *reportPath
		if resumePath == "" {
			resumePath = *outputScene + ".report.json"
		}
		if resumed, ok, err := loadCandidateFromReport(resumePath, defs, initCand); err != nil {
			fmt.Fprintf(os.Stderr, "resume skipped (%s): %v\n", resumePath, err)
		} else if ok {
			initCand = resumed
			fmt.Printf("Resumed candidate from %s\n", resumePath)
		}
	}
	fmt.Printf("Fitting %d oscillators (%d knobs) to %d samples at %.1f Hz\n", len(scene.Nodes), len(defs), len(ref), scene.SampleRate)

	cfg := &optimizationConfig{
		reference:        ref,
		sampleRate:       scene.SampleRate,
		projection:       scene.Projection,
		baseNodes:        scene.Nodes,
		defs:             defs,
		initCandidate:    initCand,
		seed:             *seed,
		timeBudget:       *timeBudget,
		maxEvals:         *maxEvals,
		reportEvery:      *reportEvery,
		mayflyVariant:    *mayflyVariant,
		mayflyPop:        *mayflyPop,
		mayflyRoundEvals: *mayflyRoundEvals,
		workers:          parsedWorkers,
		topK:             *topK,
	}
	result, err := runOptimization(cfg)
	if err != nil {
		die("optimization failed: %v", err)
	}

	rep := runReport{
		ReferencePath:  *referencePath,
		ScenePath:      *scenePath,
		SampleRate:     scene.SampleRate,
		Samples:        len(ref),
		ReferenceGain:  gain,
		DurationSec:    result.elapsed,
		Evaluations:    result.evals,
		MayflyVariant:  strings.ToLower(*mayflyVariant),
		BestScore:      result.bestMetrics.Score,
		BestSimilarity: result.bestMetrics.Similarity,
		BestMetrics:    result.bestMetrics,
		TopCandidates:  result.top,
	}
	if err := writeOutputs(scene, result.bestNodes, *outputScene, *reportPath, rep, defs, result.best); err != nil {
		die("failed to write outputs: %v", err)
	}

	fmt.Printf("Done evals=%d elapsed=%.1fs best_score=%.4f best_similarity=%.2f%% variant=%s\n", result.evals, result.elapsed, result.bestMetrics.Score, result.bestMetrics.Similarity*100.0, rep.MayflyVariant)
}

// reconstructNodes builds a start tree from the reference spectrum with
// absolute frequencies and measured amplitudes.
func reconstructNodes(scene *preset.Scene, ref []float64, maxRadii int) ([]epicycle.NodeSpec, error) {
	res, err := spectrum.Analyze(ref, scene.SampleRate, scene.Analysis)
	if err != nil {
		return nil, err
	}
	synth := scene.Synth
	synth.MaxRadii = max(maxRadii, 1)
	synth.PreserveFrequency = true
	synth.AmplitudeMode = spectrum.AmplitudeRaw
	synth.ScaleFactor = 1
	nodes, err := spectrum.Synthesize(res, synth)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, errors.New("no spectral peaks in reference")
	}
	return nodes, nil
}

// matchReferenceScale scales the normalized reference to the peak of the
// scene's own rendering so amplitudes stay in scene units.
func matchReferenceScale(scene *preset.Scene, ref []float64) ([]float64, float64, error) {
	tree, err := scene.Tree()
	if err != nil {
		return nil, 0, err
	}
	rendered, err := epicycle.Render(tree, 0, len(ref), scene.SampleRate, scene.Projection)
	if err != nil {
		return nil, 0, err
	}
	var peak float64
	for _, v := range rendered {
		peak = math.Max(peak, math.Abs(v))
	}
	if peak == 0 {
		return ref, 1, nil
	}
	out, gain := fitcommon.PeakNormalize(ref, peak)
	return out, gain, nil
}

func loadCandidateFromReport(path string, defs []knobDef, fallback candidate) (candidate, bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fallback, false, nil
		}
		return fallback, false, err
	}

	var rep struct {
		BestKnobs map[string]float64 `json:"best_knobs"`
	}
	if err := json.Unmarshal(b, &rep); err != nil {
		return fallback, false, err
	}
	if len(rep.BestKnobs) == 0 {
		return fallback, false, nil
	}

	vals := make([]float64, len(fallback.Vals))
	copy(vals, fallback.Vals)
	updated := false
	for i, d := range defs {
		if v, ok := rep.BestKnobs[d.Name]; ok {
			vals[i] = clamp(v, d.Min, d.Max)
			updated = true
		}
	}
	if !updated {
		return fallback, false, nil
	}
	return candidate{Vals: vals}, true, nil
}
