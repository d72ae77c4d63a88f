package filter

import (
	"errors"
	"math"
	"math/cmplx"
	"sort"
	"testing"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design/pass"

	"github.com/cwbudde/algo-epicycle/epicycle"
)

const testRate = 48000.0

func mustDesign(t *testing.T, spec Spec) *Coefficients {
	t.Helper()
	c, err := Design(spec, testRate)
	if err != nil {
		t.Fatalf("Design(%+v): %v", spec, err)
	}
	return c
}

func magnitudeAt(c *Coefficients, hz float64) float64 {
	return cmplx.Abs(c.At(hz / c.SampleRate))
}

func TestButterworthPolesInsideUnitCircle(t *testing.T) {
	for order := MinOrder; order <= MaxOrder; order++ {
		for _, frac := range []float64{0.001, 0.01, 0.05, 0.1, 0.2, 0.3, 0.4, 0.45, 0.49} {
			for _, mode := range []Mode{ModeLowpass, ModeHighpass} {
				c := mustDesign(t, Spec{Family: FamilyButterworth, Mode: mode, Order: order, Cutoff: frac * testRate})
				poles := Poles(c)
				if len(poles) != order {
					t.Fatalf("order %d %v: got %d poles", order, mode, len(poles))
				}
				for _, p := range poles {
					if cmplx.Abs(p) >= 1 {
						t.Fatalf("order %d cutoff %.3f %v: pole %v outside unit circle", order, frac, mode, p)
					}
				}
				if !IsStable(c) {
					t.Fatalf("order %d cutoff %.3f %v: IsStable=false", order, frac, mode)
				}
			}
		}
	}
}

func TestButterworthMatchesRBJCascade(t *testing.T) {
	for _, order := range []int{1, 2, 3, 4, 5, 8} {
		c := mustDesign(t, Spec{Family: FamilyButterworth, Mode: ModeLowpass, Order: order, Cutoff: 2000})
		ref := biquad.NewChain(pass.ButterworthLP(2000, order, testRate))
		for _, hz := range []float64{0, 100, 1000, 2000, 3000, 8000, 20000} {
			got := magnitudeAt(c, hz)
			want := cmplx.Abs(ref.Response(hz, testRate))
			if math.Abs(got-want) > 1e-8 {
				t.Fatalf("order %d at %.0f Hz: |H|=%v want %v", order, hz, got, want)
			}
		}
	}
}

func TestButterworthCutoffIsHalfPower(t *testing.T) {
	for _, mode := range []Mode{ModeLowpass, ModeHighpass} {
		c := mustDesign(t, Spec{Family: FamilyButterworth, Mode: mode, Order: 6, Cutoff: 5000})
		if got := magnitudeAt(c, 5000); math.Abs(got-1/math.Sqrt2) > 1e-9 {
			t.Fatalf("%v: |H(fc)|=%v want 1/sqrt2", mode, got)
		}
		m := AnalyzeResponse(c, 8192)
		if math.Abs(m.CutoffHz-5000) > 20 {
			t.Fatalf("%v: metric cutoff %.2f Hz want ~5000", mode, m.CutoffHz)
		}
	}
}

func TestChebyshev1PassbandRipple(t *testing.T) {
	c := mustDesign(t, Spec{Family: FamilyChebyshev1, Mode: ModeLowpass, Order: 4, Cutoff: 1000, RippleDB: 1})
	for hz := 0.0; hz <= 1000; hz += 25 {
		db := 20 * math.Log10(magnitudeAt(c, hz))
		if db > 1e-9 || db < -1-1e-6 {
			t.Fatalf("passband %.0f Hz: %.6f dB outside [-1, 0]", hz, db)
		}
	}
	if db := 20 * math.Log10(magnitudeAt(c, 1000)); math.Abs(db+1) > 1e-6 {
		t.Fatalf("edge gain %.6f dB want -1", db)
	}
}

func TestChebyshev1DefaultRipple(t *testing.T) {
	c := mustDesign(t, Spec{Family: FamilyChebyshev1, Mode: ModeHighpass, Order: 3, Cutoff: 3000})
	if c.Spec.RippleDB != DefaultRippleDB {
		t.Fatalf("ripple default %v", c.Spec.RippleDB)
	}
	if db := 20 * math.Log10(magnitudeAt(c, 3000)); math.Abs(db+DefaultRippleDB) > 1e-6 {
		t.Fatalf("edge gain %.6f dB want %.2f", db, -DefaultRippleDB)
	}
}

func TestChebyshev2StopbandAttenuation(t *testing.T) {
	c := mustDesign(t, Spec{Family: FamilyChebyshev2, Mode: ModeLowpass, Order: 5, Cutoff: 2000})
	if c.Spec.AttenuationDB != DefaultAttenuationDB {
		t.Fatalf("attenuation default %v", c.Spec.AttenuationDB)
	}
	if got := magnitudeAt(c, 0); math.Abs(got-1) > 1e-9 {
		t.Fatalf("DC gain %v want 1", got)
	}
	for hz := 2000.0; hz < testRate/2; hz += 50 {
		db := 20 * math.Log10(magnitudeAt(c, hz))
		if db > -DefaultAttenuationDB+1e-6 {
			t.Fatalf("stopband %.0f Hz: %.3f dB above -%v", hz, db, DefaultAttenuationDB)
		}
	}
	if len(Zeros(c)) != 5 {
		t.Fatalf("zeros=%d want 5", len(Zeros(c)))
	}
}

func TestZeroInputGivesZeroOutput(t *testing.T) {
	in := make([]float64, 512)
	for _, fam := range []Family{FamilyButterworth, FamilyChebyshev1, FamilyChebyshev2} {
		for _, mode := range []Mode{ModeLowpass, ModeHighpass, ModeBandpass, ModeBandstop} {
			for _, order := range []int{1, 3, 8} {
				c := mustDesign(t, Spec{Family: fam, Mode: mode, Order: order, Cutoff: 800, CutoffHigh: 6000})
				out, err := Apply(c, in)
				if err != nil {
					t.Fatalf("%v %v %d: %v", fam, mode, order, err)
				}
				for i, v := range out {
					if v != 0 {
						t.Fatalf("%v %v %d: out[%d]=%v", fam, mode, order, i, v)
					}
				}
			}
		}
	}
}

func TestDesignGridStableWithPassband(t *testing.T) {
	const rate = 1000.0
	in := make([]float64, 256)
	for _, fam := range []Family{FamilyButterworth, FamilyChebyshev1, FamilyChebyshev2} {
		for _, mode := range []Mode{ModeLowpass, ModeHighpass, ModeBandpass, ModeBandstop} {
			for order := 1; order <= 8; order++ {
				spec := Spec{Family: fam, Mode: mode, Order: order, Cutoff: 50, CutoffHigh: 250}
				if !mode.IsBand() {
					spec.Cutoff = 100
				}
				c, err := Design(spec, rate)
				if err != nil {
					t.Fatalf("%v %v %d: %v", fam, mode, order, err)
				}
				if !IsStable(c) {
					t.Fatalf("%v %v %d: unstable", fam, mode, order)
				}
				if ref := AnalyzeResponse(c, 4096).ReferenceDB; ref < -halfPowerDB {
					t.Fatalf("%v %v %d: passband peak %.2f dB", fam, mode, order, ref)
				}
				out, err := Apply(c, in)
				if err != nil {
					t.Fatalf("%v %v %d: %v", fam, mode, order, err)
				}
				for i, v := range out {
					if v != 0 {
						t.Fatalf("%v %v %d: out[%d]=%v", fam, mode, order, i, v)
					}
				}
			}
		}
	}
}

func TestChebyshev2BandEdgesAreHalfPower(t *testing.T) {
	const rate = 1000.0
	c, err := Design(Spec{Family: FamilyChebyshev2, Mode: ModeBandpass, Order: 4, Cutoff: 100, CutoffHigh: 150}, rate)
	if err != nil {
		t.Fatal(err)
	}
	m := AnalyzeResponse(c, 16384)
	if m.ReferenceDB < -1 {
		t.Fatalf("bandpass peak %.2f dB", m.ReferenceDB)
	}
	if math.Abs(m.LowerHz-100) > 10 || math.Abs(m.UpperHz-150) > 10 || m.Q <= 0 {
		t.Fatalf("band %.1f..%.1f Hz Q=%v", m.LowerHz, m.UpperHz, m.Q)
	}

	c, err = Design(Spec{Family: FamilyChebyshev2, Mode: ModeBandstop, Order: 4, Cutoff: 100, CutoffHigh: 150}, rate)
	if err != nil {
		t.Fatal(err)
	}
	for _, hz := range []float64{20, 400} {
		if db := 20 * math.Log10(magnitudeAt(c, hz)); math.Abs(db) > 0.5 {
			t.Fatalf("bandstop passband %.0f Hz: %.2f dB", hz, db)
		}
	}
}

func TestApplyEmptyAndPure(t *testing.T) {
	c := mustDesign(t, Spec{Order: 2, Cutoff: 1000})
	out, err := Apply(c, nil)
	if err != nil || out == nil || len(out) != 0 {
		t.Fatalf("empty input: out=%v err=%v", out, err)
	}

	in := []float64{1, 0, 0, 0, 0.5, -0.25}
	orig := append([]float64(nil), in...)
	a, _ := Apply(c, in)
	b, _ := Apply(c, in)
	for i := range in {
		if in[i] != orig[i] {
			t.Fatalf("input modified at %d", i)
		}
		if a[i] != b[i] {
			t.Fatalf("Apply not repeatable at %d", i)
		}
	}
}

func TestApplyBufferKeepsSampleTimes(t *testing.T) {
	buf, err := epicycle.NewSampleBuffer(0.25, 64)
	if err != nil {
		t.Fatalf("NewSampleBuffer: %v", err)
	}
	for i := 0; i < 40; i++ {
		buf.Push(epicycle.Sample{Time: float64(i) / 64, Value: 1})
	}
	c, err := Design(Spec{Order: 2, Cutoff: 4}, 64)
	if err != nil {
		t.Fatalf("Design: %v", err)
	}
	out, err := ApplyBuffer(c, buf)
	if err != nil {
		t.Fatalf("ApplyBuffer: %v", err)
	}
	if out.Len() != buf.Len() {
		t.Fatalf("len = %d, want %d", out.Len(), buf.Len())
	}
	want, _ := Apply(c, buf.Values())
	for i := 0; i < out.Len(); i++ {
		if out.At(i).Time != buf.At(i).Time {
			t.Fatalf("time %d = %v, want %v", i, out.At(i).Time, buf.At(i).Time)
		}
		if out.At(i).Value != want[i] {
			t.Fatalf("value %d = %v, want %v", i, out.At(i).Value, want[i])
		}
	}
	if buf.At(0).Value != 1 {
		t.Fatal("source buffer modified")
	}
}

func TestLowpassStepSettlesToUnity(t *testing.T) {
	c := mustDesign(t, Spec{Order: 4, Cutoff: 0.1 * testRate})
	in := make([]float64, 2000)
	for i := range in {
		in[i] = 1
	}
	out, err := Apply(c, in)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := out[len(out)-1]; math.Abs(got-1) > 1e-6 {
		t.Fatalf("step response settles at %v want 1", got)
	}
}

func TestBandpassMetrics(t *testing.T) {
	c := mustDesign(t, Spec{Mode: ModeBandpass, Order: 2, Cutoff: 1000, CutoffHigh: 4000})
	m := AnalyzeResponse(c, 16384)
	if math.Abs(m.LowerHz-1000) > 100 || math.Abs(m.UpperHz-4000) > 400 {
		t.Fatalf("band edges %.1f..%.1f Hz", m.LowerHz, m.UpperHz)
	}
	if math.Abs(m.BandwidthHz-(m.UpperHz-m.LowerHz)) > 1e-9 {
		t.Fatalf("bandwidth %.2f inconsistent", m.BandwidthHz)
	}
	if math.Abs(m.Q-m.CenterHz/m.BandwidthHz) > 1e-12 || m.Q <= 0 {
		t.Fatalf("Q=%v center=%v bw=%v", m.Q, m.CenterHz, m.BandwidthHz)
	}
	if len(c.Branches) != 1 || len(c.Branches[0].Sections) != 2 {
		t.Fatalf("expected one branch of two sections, got %+v", c.Branches)
	}
}

func TestBandstopNotch(t *testing.T) {
	c := mustDesign(t, Spec{Mode: ModeBandstop, Order: 4, Cutoff: 1000, CutoffHigh: 4000})
	if db := 20 * math.Log10(magnitudeAt(c, 2000)); db > -15 {
		t.Fatalf("notch depth %.2f dB", db)
	}
	if got := magnitudeAt(c, 50); math.Abs(got-1) > 0.01 {
		t.Fatalf("low passband gain %v", got)
	}
	if got := magnitudeAt(c, 20000); math.Abs(got-1) > 0.01 {
		t.Fatalf("high passband gain %v", got)
	}
	m := AnalyzeResponse(c, 16384)
	if math.Abs(m.LowerHz-1000) > 100 || math.Abs(m.UpperHz-4000) > 400 {
		t.Fatalf("stop band %.1f..%.1f Hz", m.LowerHz, m.UpperHz)
	}
}

func TestBandstopNotchDepthGrowsWithWidth(t *testing.T) {
	const rate = 1000.0
	depth := func(lo, hi float64) float64 {
		c, err := Design(Spec{Mode: ModeBandstop, Order: 4, Cutoff: lo, CutoffHigh: hi}, rate)
		if err != nil {
			t.Fatal(err)
		}
		return 20 * math.Log10(magnitudeAt(c, math.Sqrt(lo*hi)))
	}
	narrow, wide := depth(100, 150), depth(50, 300)
	if narrow > -1 {
		t.Fatalf("narrow notch %.2f dB", narrow)
	}
	if wide > narrow-10 {
		t.Fatalf("wide notch %.2f dB not deeper than narrow %.2f dB", wide, narrow)
	}
}

func TestExpandedPolynomialMatchesSections(t *testing.T) {
	for _, mode := range []Mode{ModeLowpass, ModeHighpass, ModeBandpass, ModeBandstop} {
		c := mustDesign(t, Spec{Family: FamilyChebyshev1, Mode: mode, Order: 3, Cutoff: 1500, CutoffHigh: 5000})
		if c.A[0] != 1 {
			t.Fatalf("%v: A[0]=%v", mode, c.A[0])
		}
		for _, f := range []float64{0.01, 0.05, 0.12, 0.3} {
			w := 2 * math.Pi * f
			var num, den complex128
			for k, b := range c.B {
				num += complex(b, 0) * cmplx.Exp(complex(0, -w*float64(k)))
			}
			for k, a := range c.A {
				den += complex(a, 0) * cmplx.Exp(complex(0, -w*float64(k)))
			}
			if d := cmplx.Abs(num/den - c.At(f)); d > 1e-8 {
				t.Fatalf("%v at f=%v: polynomial and sections differ by %v", mode, f, d)
			}
		}
		if !IsStablePolynomial(c.A) {
			t.Fatalf("%v: expanded denominator reported unstable", mode)
		}
	}
}

func TestCutoffClampedWithWarning(t *testing.T) {
	c := mustDesign(t, Spec{Order: 2, Cutoff: 30000})
	if c.Spec.Cutoff != 0.49*testRate {
		t.Fatalf("cutoff %v want %v", c.Spec.Cutoff, 0.49*testRate)
	}
	if len(c.Warnings) != 1 || c.Warnings[0].Kind != WarnCutoffClamped {
		t.Fatalf("warnings=%v", c.Warnings)
	}
	c = mustDesign(t, Spec{Order: 2, Cutoff: -5})
	if c.Spec.Cutoff <= 0 || len(c.Warnings) != 1 {
		t.Fatalf("negative cutoff not clamped: %+v %v", c.Spec, c.Warnings)
	}
}

func TestBandEdgesSwapped(t *testing.T) {
	c := mustDesign(t, Spec{Mode: ModeBandpass, Order: 2, Cutoff: 4000, CutoffHigh: 1000})
	if c.Spec.Cutoff != 1000 || c.Spec.CutoffHigh != 4000 {
		t.Fatalf("edges %v..%v", c.Spec.Cutoff, c.Spec.CutoffHigh)
	}
	if len(c.Warnings) != 1 || c.Warnings[0].Kind != WarnBandEdgesSwapped {
		t.Fatalf("warnings=%v", c.Warnings)
	}
}

func TestUnknownFamilyFallsBackToButterworth(t *testing.T) {
	c := mustDesign(t, Spec{Family: Family(42), Order: 3, Cutoff: 1000})
	if c.Spec.Family != FamilyButterworth {
		t.Fatalf("family=%v", c.Spec.Family)
	}
	if len(c.Warnings) != 1 || c.Warnings[0].Kind != WarnUnknownFamily {
		t.Fatalf("warnings=%v", c.Warnings)
	}
	ref := mustDesign(t, Spec{Family: FamilyButterworth, Order: 3, Cutoff: 1000})
	for i := range ref.A {
		if ref.A[i] != c.A[i] {
			t.Fatalf("fallback design differs at A[%d]", i)
		}
	}
}

func TestInvalidSpecFailsFast(t *testing.T) {
	cases := []struct {
		name string
		spec Spec
		rate float64
	}{
		{"order zero", Spec{Order: 0, Cutoff: 1000}, testRate},
		{"order nine", Spec{Order: 9, Cutoff: 1000}, testRate},
		{"negative order", Spec{Order: -2, Cutoff: 1000}, testRate},
		{"nan cutoff", Spec{Order: 2, Cutoff: math.NaN()}, testRate},
		{"inf upper edge", Spec{Mode: ModeBandpass, Order: 2, Cutoff: 100, CutoffHigh: math.Inf(1)}, testRate},
		{"negative ripple", Spec{Family: FamilyChebyshev1, Order: 2, Cutoff: 1000, RippleDB: -1}, testRate},
		{"zero rate", Spec{Order: 2, Cutoff: 1000}, 0},
		{"nan rate", Spec{Order: 2, Cutoff: 1000}, math.NaN()},
	}
	for _, tc := range cases {
		if _, err := Design(tc.spec, tc.rate); !errors.Is(err, ErrInvalidSpec) {
			t.Fatalf("%s: expected ErrInvalidSpec, got %v", tc.name, err)
		}
	}
}

func TestParseNames(t *testing.T) {
	if f, err := ParseFamily("Chebyshev-II"); err != nil || f != FamilyChebyshev2 {
		t.Fatalf("ParseFamily: %v %v", f, err)
	}
	if m, err := ParseMode(" notch "); err != nil || m != ModeBandstop {
		t.Fatalf("ParseMode: %v %v", m, err)
	}
	var ue *UnsupportedFilterError
	if _, err := ParseFamily("elliptic"); !errors.As(err, &ue) || ue.Name != "elliptic" {
		t.Fatalf("expected UnsupportedFilterError, got %v", err)
	}
	if _, err := ParseMode("allpass"); !errors.As(err, &ue) || ue.Kind != "mode" {
		t.Fatalf("expected UnsupportedFilterError, got %v", err)
	}
}

func TestUnstableCoefficientsRejected(t *testing.T) {
	c := &Coefficients{
		SampleRate: testRate,
		Branches:   []Branch{{Sections: []biquad.Coefficients{{B0: 1, A1: -2.1, A2: 1.2}}, Gain: 1}},
	}
	if IsStable(c) {
		t.Fatalf("expected unstable")
	}
	var ue *UnstableFilterError
	if _, err := Apply(c, []float64{1, 0, 0}); !errors.As(err, &ue) {
		t.Fatalf("expected UnstableFilterError, got %v", err)
	}
	if ue.Radius <= 1 {
		t.Fatalf("radius=%v", ue.Radius)
	}
}

func TestPolyRoots(t *testing.T) {
	roots := PolyRoots([]float64{0, 1, -3, 2, 0})
	if len(roots) != 3 {
		t.Fatalf("roots=%v", roots)
	}
	re := make([]float64, len(roots))
	for i, r := range roots {
		if math.Abs(imag(r)) > 1e-9 {
			t.Fatalf("unexpected complex root %v", r)
		}
		re[i] = real(r)
	}
	sort.Float64s(re)
	want := []float64{0, 1, 2}
	for i := range want {
		if math.Abs(re[i]-want[i]) > 1e-9 {
			t.Fatalf("roots=%v want %v", re, want)
		}
	}
	if !IsStablePolynomial([]float64{1, -0.5}) || IsStablePolynomial([]float64{1, -1.5}) {
		t.Fatalf("IsStablePolynomial misclassified first-order cases")
	}
}

func TestGroupDelayOfUnitDelay(t *testing.T) {
	c := &Coefficients{
		SampleRate: testRate,
		Branches:   []Branch{{Sections: []biquad.Coefficients{{B1: 1}}, Gain: 1}},
	}
	for i, gd := range GroupDelay(c, []float64{0.05, 0.2, 0.4}) {
		if math.Abs(gd-1) > 1e-6 {
			t.Fatalf("group delay[%d]=%v want 1", i, gd)
		}
	}
}

func TestBandFromCenter(t *testing.T) {
	lo, hi := BandFromCenter(1000, 200)
	if lo != 900 || hi != 1100 {
		t.Fatalf("band %v..%v", lo, hi)
	}
	if lo, _ := BandFromCenter(100, 400); lo <= 0 {
		t.Fatalf("lower edge %v not positive", lo)
	}
}
