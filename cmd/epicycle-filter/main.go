package main

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"math/cmplx"
	"os"

	"github.com/cwbudde/algo-epicycle/filter"
	fitcommon "github.com/cwbudde/algo-epicycle/internal/fitcommon"
)

type filterFlags struct {
	family     string
	mode       string
	order      int
	cutoff     float64
	cutoffHigh float64
	center     float64
	bandwidth  float64
	ripple     float64
	atten      float64
}

func main() {
	var ff filterFlags
	flag.StringVar(&ff.family, "family", "butterworth", "Filter family: butterworth|chebyshev1|chebyshev2")
	flag.StringVar(&ff.mode, "mode", "lowpass", "Filter mode: lowpass|highpass|bandpass|bandstop")
	flag.IntVar(&ff.order, "order", 4, "Filter order (1-8)")
	flag.Float64Var(&ff.cutoff, "cutoff", 0, "Cutoff in Hz (lower edge for band modes)")
	flag.Float64Var(&ff.cutoffHigh, "high", 0, "Upper band edge in Hz")
	flag.Float64Var(&ff.center, "center", 0, "Band center in Hz (with -bw, replaces -cutoff/-high)")
	flag.Float64Var(&ff.bandwidth, "bw", 0, "Bandwidth in Hz")
	flag.Float64Var(&ff.ripple, "ripple", 0, "Chebyshev I passband ripple in dB (0 = default)")
	flag.Float64Var(&ff.atten, "atten", 0, "Chebyshev II stopband attenuation in dB (0 = default)")
	sampleRate := flag.Float64("sample-rate", 64, "Sample rate in Hz")
	points := flag.Int("points", 2048, "Response points between DC and Nyquist")
	inputPath := flag.String("input", "", "Optional WAV to filter (its sample rate overrides -sample-rate)")
	outputPath := flag.String("output", "filtered.wav", "Output WAV when -input is set")
	flag.Parse()

	var (
		signal []float64
		rate   int
	)
	if *inputPath != "" {
		var err error
		signal, rate, err = fitcommon.ReadWAVMono(*inputPath)
		if err != nil {
			die("Error reading %q: %v", *inputPath, err)
		}
		*sampleRate = float64(rate)
	}

	spec, err := ff.spec()
	if err != nil {
		die("%v", err)
	}
	coeffs, err := filter.Design(spec, *sampleRate)
	var unstable *filter.UnstableFilterError
	if errors.As(err, &unstable) {
		die("Design is unstable, not applying: %v", err)
	}
	if err != nil {
		die("Error designing filter: %v", err)
	}
	printDesign(coeffs, *points)

	if *inputPath != "" {
		out, err := filter.Apply(coeffs, signal)
		if err != nil {
			die("Error filtering: %v", err)
		}
		if err := fitcommon.WriteMonoWAV(*outputPath, out, rate); err != nil {
			die("Error writing WAV file: %v", err)
		}
		fmt.Printf("Successfully wrote %s (%d frames)\n", *outputPath, len(out))
	}
}

// spec converts the flags into a filter spec. A center/bandwidth pair wins
// over explicit band edges.
func (ff filterFlags) spec() (filter.Spec, error) {
	family, err := filter.ParseFamily(ff.family)
	if err != nil {
		return filter.Spec{}, err
	}
	mode, err := filter.ParseMode(ff.mode)
	if err != nil {
		return filter.Spec{}, err
	}
	s := filter.Spec{
		Family:        family,
		Mode:          mode,
		Order:         ff.order,
		Cutoff:        ff.cutoff,
		CutoffHigh:    ff.cutoffHigh,
		RippleDB:      ff.ripple,
		AttenuationDB: ff.atten,
	}
	if mode.IsBand() && ff.center > 0 && ff.bandwidth > 0 {
		s.Cutoff, s.CutoffHigh = filter.BandFromCenter(ff.center, ff.bandwidth)
	}
	if s.Cutoff <= 0 {
		return s, fmt.Errorf("-cutoff (or -center with -bw) is required")
	}
	if mode.IsBand() && s.CutoffHigh <= 0 {
		return s, fmt.Errorf("%s needs -high or -center with -bw", mode)
	}
	return s, nil
}

func printDesign(c *filter.Coefficients, points int) {
	s := c.Spec
	fmt.Printf("%s %s, order %d at %.4g Hz\n", s.Family, s.Mode, s.Order, c.SampleRate)
	if s.Mode.IsBand() {
		fmt.Printf("Edges: %.6g Hz .. %.6g Hz\n", s.Cutoff, s.CutoffHigh)
	} else {
		fmt.Printf("Cutoff: %.6g Hz\n", s.Cutoff)
	}
	for _, w := range c.Warnings {
		fmt.Printf("warning: %v\n", w)
	}

	for bi, br := range c.Branches {
		fmt.Printf("Branch %d: gain %.6g, %d sections\n", bi, br.Gain, len(br.Sections))
		for si, sec := range br.Sections {
			fmt.Printf("  [%d] b=[%.8g %.8g %.8g] a=[1 %.8g %.8g]\n", si, sec.B0, sec.B1, sec.B2, sec.A1, sec.A2)
		}
	}
	fmt.Printf("B: %s\n", formatPoly(c.B))
	fmt.Printf("A: %s\n", formatPoly(c.A))

	fmt.Println("Poles:")
	for _, p := range filter.Poles(c) {
		fmt.Printf("  %s |p|=%.6f\n", formatComplex(p), cmplx.Abs(p))
	}
	fmt.Printf("Stable: %v\n", filter.IsStable(c))

	m := filter.AnalyzeResponse(c, points)
	fmt.Printf("Reference gain: %.3f dB\n", m.ReferenceDB)
	if m.CutoffHz > 0 {
		fmt.Printf("-3 dB cutoff: %.6g Hz\n", m.CutoffHz)
	}
	if m.BandwidthHz > 0 {
		fmt.Printf("Bandwidth: %.6g Hz\n", m.BandwidthHz)
	}
	if m.CenterHz > 0 {
		fmt.Printf("Center: %.6g Hz, Q %.4g\n", m.CenterHz, m.Q)
	}
}

func formatPoly(p []float64) string {
	out := "["
	for i, v := range p {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%.8g", v)
	}
	return out + "]"
}

func formatComplex(z complex128) string {
	im := imag(z)
	sign := "+"
	if math.Signbit(im) {
		sign = "-"
	}
	return fmt.Sprintf("%.6f %s %.6fi", real(z), sign, math.Abs(im))
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
