package filter

import (
	"math"
	"math/cmplx"
	"sort"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
)

const rootPairTol = 1e-9

// prewarp maps a digital cutoff in Hz to the analog angular frequency that
// the bilinear transform sends back to it.
func prewarp(cutoff, sampleRate float64) float64 {
	return 2 * sampleRate * math.Tan(math.Pi*cutoff/sampleRate)
}

func lowpassToLowpass(f zpk, wo float64) zpk {
	out := zpk{
		z: make([]complex128, len(f.z)),
		p: make([]complex128, len(f.p)),
		k: f.k * math.Pow(wo, float64(len(f.p)-len(f.z))),
	}
	w := complex(wo, 0)
	for i, z := range f.z {
		out.z[i] = w * z
	}
	for i, p := range f.p {
		out.p[i] = w * p
	}
	return out
}

func lowpassToHighpass(f zpk, wo float64) zpk {
	degree := len(f.p) - len(f.z)
	w := complex(wo, 0)

	out := zpk{
		z: make([]complex128, 0, len(f.z)+degree),
		p: make([]complex128, len(f.p)),
		k: f.k * real(productNeg(f.z)/productNeg(f.p)),
	}
	for _, z := range f.z {
		out.z = append(out.z, w/z)
	}
	for range degree {
		out.z = append(out.z, 0)
	}
	for i, p := range f.p {
		out.p[i] = w / p
	}
	return out
}

// bilinear maps an analog zpk to the z-plane at sampleRate. Zeros at
// infinity land on z = -1.
func bilinear(f zpk, sampleRate float64) zpk {
	degree := len(f.p) - len(f.z)
	fs2 := complex(2*sampleRate, 0)

	out := zpk{
		z: make([]complex128, 0, len(f.z)+degree),
		p: make([]complex128, len(f.p)),
	}
	num, den := complex(1, 0), complex(1, 0)
	for _, z := range f.z {
		out.z = append(out.z, (fs2+z)/(fs2-z))
		num *= fs2 - z
	}
	for range degree {
		out.z = append(out.z, -1)
	}
	for i, p := range f.p {
		out.p[i] = (fs2 + p) / (fs2 - p)
		den *= fs2 - p
	}
	out.k = f.k * real(num/den)
	return out
}

// toSections pairs conjugate roots into second-order sections. Poles
// farthest from the unit circle come first; the overall gain is returned
// separately so it can be applied once at the chain input.
func toSections(f zpk) ([]biquad.Coefficients, float64) {
	pGroups := groupRoots(f.p)
	zGroups := groupRoots(f.z)

	sort.SliceStable(pGroups, func(i, j int) bool {
		return maxRadius(pGroups[i]) < maxRadius(pGroups[j])
	})

	var zPairs, zSingles [][]complex128
	for _, g := range zGroups {
		if len(g) == 2 {
			zPairs = append(zPairs, g)
		} else {
			zSingles = append(zSingles, g)
		}
	}

	out := make([]biquad.Coefficients, 0, len(pGroups))
	for _, pg := range pGroups {
		var zg []complex128
		if len(pg) == 2 {
			zg, zPairs, zSingles = takeNearest(pg, zPairs, zSingles)
		} else {
			zg, zSingles, zPairs = takeNearest(pg, zSingles, zPairs)
		}
		b1, b2 := quadFromRoots(zg)
		a1, a2 := quadFromRoots(pg)
		if len(zg) == 0 {
			out = append(out, biquad.Coefficients{B0: 1, A1: a1, A2: a2})
			continue
		}
		out = append(out, biquad.Coefficients{B0: 1, B1: b1, B2: b2, A1: a1, A2: a2})
	}
	return out, f.k
}

// takeNearest removes the group in primary closest to the poles in pg,
// falling back to secondary when primary is exhausted.
func takeNearest(pg []complex128, primary, secondary [][]complex128) ([]complex128, [][]complex128, [][]complex128) {
	src := &primary
	if len(primary) == 0 {
		src = &secondary
	}
	if len(*src) == 0 {
		return nil, primary, secondary
	}
	best, bestDist := 0, math.Inf(1)
	for i, g := range *src {
		if d := cmplx.Abs(g[0] - pg[0]); d < bestDist {
			best, bestDist = i, d
		}
	}
	g := (*src)[best]
	*src = append((*src)[:best:best], (*src)[best+1:]...)
	return g, primary, secondary
}

// groupRoots splits roots into conjugate pairs, pairs of real roots and at
// most one leftover real root.
func groupRoots(roots []complex128) [][]complex128 {
	var groups [][]complex128
	var reals []float64
	used := make([]bool, len(roots))
	for i, r := range roots {
		if used[i] {
			continue
		}
		used[i] = true
		if math.Abs(imag(r)) <= rootPairTol*math.Max(1, cmplx.Abs(r)) {
			reals = append(reals, real(r))
			continue
		}
		target := cmplx.Conj(r)
		best, bestDist := -1, math.Inf(1)
		for j := i + 1; j < len(roots); j++ {
			if used[j] {
				continue
			}
			if d := cmplx.Abs(roots[j] - target); d < bestDist {
				best, bestDist = j, d
			}
		}
		if best < 0 {
			reals = append(reals, real(r))
			continue
		}
		used[best] = true
		groups = append(groups, []complex128{r, cmplx.Conj(r)})
	}

	sort.Float64s(reals)
	for i := 0; i+1 < len(reals); i += 2 {
		groups = append(groups, []complex128{complex(reals[i], 0), complex(reals[i+1], 0)})
	}
	if len(reals)%2 == 1 {
		groups = append(groups, []complex128{complex(reals[len(reals)-1], 0)})
	}
	return groups
}

func maxRadius(g []complex128) float64 {
	r := 0.0
	for _, x := range g {
		r = math.Max(r, cmplx.Abs(x))
	}
	return r
}

func quadFromRoots(g []complex128) (float64, float64) {
	switch len(g) {
	case 0:
		return 0, 0
	case 1:
		return -real(g[0]), 0
	default:
		return -real(g[0] + g[1]), real(g[0] * g[1])
	}
}
