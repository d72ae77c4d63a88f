package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cwbudde/algo-epicycle/analysis"
	"github.com/cwbudde/algo-epicycle/epicycle"
	"github.com/cwbudde/algo-epicycle/preset"
)

type runReport struct {
	ReferencePath  string             `json:"reference_path"`
	ScenePath      string             `json:"scene_path,omitempty"`
	OutputScene    string             `json:"output_scene"`
	SampleRate     float64            `json:"sample_rate"`
	Samples        int                `json:"samples"`
	ReferenceGain  float64            `json:"reference_gain"`
	DurationSec    float64            `json:"elapsed_seconds"`
	Evaluations    int                `json:"evaluations"`
	MayflyVariant  string             `json:"mayfly_variant"`
	BestScore      float64            `json:"best_score"`
	BestSimilarity float64            `json:"best_similarity"`
	BestMetrics    analysis.Metrics   `json:"best_metrics"`
	BestKnobs      map[string]float64 `json:"best_knobs"`
	TopCandidates  []topCandidate     `json:"top_candidates,omitempty"`
}

// writeOutputs stores the fitted scene and a JSON report next to it unless
// reportPath is set.
func writeOutputs(
	scene *preset.Scene,
	bestNodes []epicycle.NodeSpec,
	outputScene string,
	reportPath string,
	rep runReport,
	defs []knobDef,
	best candidate,
) error {
	fitted := *scene
	fitted.Nodes = bestNodes
	if err := os.MkdirAll(filepath.Dir(outputScene), 0o755); err != nil {
		return err
	}
	if err := preset.WriteJSON(outputScene, &fitted); err != nil {
		return err
	}

	rep.OutputScene = outputScene
	rep.BestKnobs = make(map[string]float64, len(defs))
	for i, d := range defs {
		rep.BestKnobs[d.Name] = best.Vals[i]
	}
	if reportPath == "" {
		reportPath = outputScene + ".report.json"
	}
	return writeJSON(reportPath, rep)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o644)
}
