package filter

import (
	"math/cmplx"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"gonum.org/v1/gonum/mat"
)

// Poles returns the z-plane poles of every section of every branch.
func Poles(c *Coefficients) []complex128 {
	if c == nil {
		return nil
	}
	var out []complex128
	for _, br := range c.Branches {
		for i := range br.Sections {
			out = append(out, sectionPoles(&br.Sections[i])...)
		}
	}
	return out
}

// Zeros returns the z-plane zeros of the expanded numerator.
func Zeros(c *Coefficients) []complex128 {
	if c == nil {
		return nil
	}
	if len(c.Branches) == 1 {
		var out []complex128
		for i := range c.Branches[0].Sections {
			out = append(out, sectionZeros(&c.Branches[0].Sections[i])...)
		}
		return out
	}
	// parallel branches only have zeros in the combined numerator
	return PolyRoots(c.B)
}

func sectionPoles(s *biquad.Coefficients) []complex128 {
	if s.A2 == 0 {
		if s.A1 == 0 {
			return nil
		}
		return []complex128{complex(-s.A1, 0)}
	}
	p := s.Poles()
	return p[:]
}

func sectionZeros(s *biquad.Coefficients) []complex128 {
	switch {
	case s.B2 != 0 && s.B0 != 0:
		z := s.Zeros()
		return z[:]
	case s.B1 != 0 && s.B0 != 0:
		return []complex128{complex(-s.B1/s.B0, 0)}
	default:
		return nil
	}
}

// IsStable reports whether every pole lies strictly inside the unit circle.
func IsStable(c *Coefficients) bool {
	return checkStable(c) == nil
}

func checkStable(c *Coefficients) error {
	if c == nil {
		return nil
	}
	for _, p := range Poles(c) {
		if r := cmplx.Abs(p); !(r < 1) {
			return &UnstableFilterError{Pole: p, Radius: r}
		}
	}
	return nil
}

// IsStablePolynomial reports whether the feedback polynomial
// a[0] + a[1]z^-1 + ... has all of its roots strictly inside the unit circle.
func IsStablePolynomial(a []float64) bool {
	for _, r := range PolyRoots(a) {
		if !(cmplx.Abs(r) < 1) {
			return false
		}
	}
	return true
}

// PolyRoots returns the roots of p[0]x^n + p[1]x^(n-1) + ... + p[n] as the
// eigenvalues of its companion matrix. Leading zeros are ignored.
func PolyRoots(p []float64) []complex128 {
	for len(p) > 0 && p[0] == 0 {
		p = p[1:]
	}
	var zeros int
	for len(p) > 1 && p[len(p)-1] == 0 {
		p = p[:len(p)-1]
		zeros++
	}
	n := len(p) - 1
	if n < 1 {
		return make([]complex128, zeros)
	}

	roots := make([]complex128, 0, n+zeros)
	if n == 1 {
		roots = append(roots, complex(-p[1]/p[0], 0))
	} else {
		comp := mat.NewDense(n, n, nil)
		for j := 0; j < n; j++ {
			comp.Set(0, j, -p[j+1]/p[0])
		}
		for i := 1; i < n; i++ {
			comp.Set(i, i-1, 1)
		}
		var eig mat.Eigen
		if !eig.Factorize(comp, mat.EigenNone) {
			return nil
		}
		roots = append(roots, eig.Values(nil)...)
	}
	for range zeros {
		roots = append(roots, 0)
	}
	return roots
}
