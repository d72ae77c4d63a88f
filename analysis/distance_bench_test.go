package analysis

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-epicycle/epicycle"
)

func BenchmarkSpectralRMSEDB(b *testing.B) {
	const n = 4096
	a, c := benchmarkSignals(n)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = spectralRMSEDB(a, c)
	}
}

func BenchmarkEstimateLagFFT(b *testing.B) {
	a, c := benchmarkSignals(16384)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = estimateLag(a, c, 2048)
	}
}

func BenchmarkEstimateLagExhaustive(b *testing.B) {
	a, c := benchmarkSignals(16384)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = estimateLagExhaustive(a, c, 2048)
	}
}

func BenchmarkCompare(b *testing.B) {
	const n = 64 * 60
	ref, cand := benchmarkSignals(n)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Compare(ref, cand, 64)
	}
}

func BenchmarkRoundTrip(b *testing.B) {
	tree, err := epicycle.NewTree([]epicycle.NodeSpec{
		{ID: "a", Amplitude: 50, RotationSpeed: 1, Active: true},
		{ID: "b", ParentID: "a", Amplitude: 17, RotationSpeed: 3, Active: true, Order: 1},
		{ID: "c", ParentID: "b", Amplitude: 6, RotationSpeed: 7, Active: true, Order: 2},
	})
	if err != nil {
		b.Fatal(err)
	}
	cfg := DefaultLoopConfig()
	cfg.Samples = 2048
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := RoundTrip(tree, cfg); err != nil {
			b.Fatal(err)
		}
	}
}

func benchmarkSignals(n int) ([]float64, []float64) {
	a := make([]float64, n)
	c := make([]float64, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n)
		a[i] = 0.7*math.Sin(2*math.Pi*57*t) + 0.25*math.Sin(2*math.Pi*311*t)
		c[i] = 0.68*math.Sin(2*math.Pi*57*t+0.05) + 0.27*math.Sin(2*math.Pi*320*t)
	}
	return a, c
}
