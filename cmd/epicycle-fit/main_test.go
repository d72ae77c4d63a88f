package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/algo-epicycle/epicycle"
	"github.com/cwbudde/algo-epicycle/preset"
)

func TestParseWorkersFlag(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "1", want: 1},
		{in: "8", want: 8},
		{in: "auto", want: 0},
		{in: "AUTO", want: 0},
		{in: "0", wantErr: true},
		{in: "-2", wantErr: true},
		{in: "abc", wantErr: true},
	}

	for _, tt := range tests {
		got, err := parseWorkersFlag(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("parseWorkersFlag(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseWorkersFlag(%q) unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("parseWorkersFlag(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestLoadCandidateFromReportBestKnobs(t *testing.T) {
	reportPath := filepath.Join(t.TempDir(), "rep.json")
	if err := os.WriteFile(reportPath, []byte(`{"best_knobs":{"a.amplitude":12.5,"a.phase":9}}`), 0o644); err != nil {
		t.Fatalf("write report: %v", err)
	}

	defs := []knobDef{
		{Name: "a.amplitude", Min: 0, Max: 40},
		{Name: "a.phase", Min: 0, Max: 6},
		{Name: "b.amplitude", Min: 0, Max: 10},
	}
	fallback := candidate{Vals: []float64{20, 1, 5}}

	got, ok, err := loadCandidateFromReport(reportPath, defs, fallback)
	if err != nil {
		t.Fatalf("load report: %v", err)
	}
	if !ok {
		t.Fatal("expected resume candidate")
	}
	if got.Vals[0] != 12.5 {
		t.Fatalf("a.amplitude = %v, want 12.5", got.Vals[0])
	}
	if got.Vals[1] != 6 {
		t.Fatalf("a.phase = %v, want 6 (clamped from 9)", got.Vals[1])
	}
	if got.Vals[2] != 5 {
		t.Fatalf("b.amplitude = %v, want fallback 5", got.Vals[2])
	}
}

func TestLoadCandidateFromReportMissingFile(t *testing.T) {
	defs := []knobDef{{Name: "x", Min: 0, Max: 1}}
	fallback := candidate{Vals: []float64{0.5}}

	_, ok, err := loadCandidateFromReport(filepath.Join(t.TempDir(), "missing.json"), defs, fallback)
	if err != nil {
		t.Fatalf("unexpected error for missing file: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing file")
	}
}

func TestReconstructNodesFindsTones(t *testing.T) {
	scene := preset.DefaultScene()
	tree, err := epicycle.NewTree([]epicycle.NodeSpec{
		{ID: "a", Amplitude: 20, RotationSpeed: 2, Active: true},
		{ID: "b", ParentID: "a", Amplitude: 8, RotationSpeed: 6, Active: true, Order: 1},
	})
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}
	ref, err := epicycle.Render(tree, 0, scene.Samples(), scene.SampleRate, scene.Projection)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	nodes, err := reconstructNodes(scene, ref, 4)
	if err != nil {
		t.Fatalf("reconstructNodes: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %+v", nodes)
	}
	if nodes[0].RotationSpeed < 1.8 || nodes[0].RotationSpeed > 2.2 {
		t.Fatalf("strongest node speed %v, want ~2", nodes[0].RotationSpeed)
	}
}

func TestMatchReferenceScale(t *testing.T) {
	scene := preset.DefaultScene()
	ref := []float64{0.5, -0.25, 0.1}
	out, gain, err := matchReferenceScale(scene, ref)
	if err != nil {
		t.Fatalf("matchReferenceScale: %v", err)
	}
	if len(out) != len(ref) || gain <= 0 {
		t.Fatalf("unexpected result: %v gain=%v", out, gain)
	}
	if out[0] <= ref[0] {
		t.Fatalf("reference should scale up toward scene amplitude, got %v", out[0])
	}
}
