package filter

import (
	"math"
	"math/cmplx"
)

// zpk is a transfer function in zero/pole/gain form.
type zpk struct {
	z []complex128
	p []complex128
	k float64
}

// prototype returns the normalized analog lowpass prototype for family.
// Butterworth and Chebyshev I are normalized to a 1 rad/s passband edge,
// Chebyshev II to a 1 rad/s stopband edge.
func prototype(family Family, order int, rippleDB, attenuationDB float64) zpk {
	switch family {
	case FamilyChebyshev1:
		return chebyshev1Prototype(order, rippleDB)
	case FamilyChebyshev2:
		return chebyshev2Prototype(order, attenuationDB)
	default:
		return butterworthPrototype(order)
	}
}

// protoAngle is the angle of the i-th pole in the left half plane, measured
// from the imaginary axis.
func protoAngle(order, i int) float64 {
	m := float64(2*i - order + 1)
	return math.Pi * m / float64(2*order)
}

func butterworthPrototype(order int) zpk {
	p := make([]complex128, order)
	for i := range p {
		p[i] = -cmplx.Exp(complex(0, protoAngle(order, i)))
	}
	return zpk{p: p, k: 1}
}

func chebyshev1Prototype(order int, rippleDB float64) zpk {
	eps := math.Sqrt(math.Pow(10, rippleDB/10) - 1)
	mu := math.Asinh(1/eps) / float64(order)

	p := make([]complex128, order)
	for i := range p {
		p[i] = -cmplx.Sinh(complex(mu, protoAngle(order, i)))
	}
	k := real(productNeg(p))
	if order%2 == 0 {
		k /= math.Sqrt(1 + eps*eps)
	}
	return zpk{p: p, k: k}
}

func chebyshev2Prototype(order int, attenuationDB float64) zpk {
	de := 1 / math.Sqrt(math.Pow(10, attenuationDB/10)-1)
	mu := math.Asinh(1/de) / float64(order)

	z := make([]complex128, 0, order)
	for i := 0; i < order; i++ {
		s := math.Sin(protoAngle(order, i))
		// odd orders have one zero at infinity
		if math.Abs(s) < 1e-12 {
			continue
		}
		z = append(z, complex(0, 1/s))
	}

	p := make([]complex128, order)
	sh, ch := math.Sinh(mu), math.Cosh(mu)
	for i := range p {
		b := -cmplx.Exp(complex(0, protoAngle(order, i)))
		p[i] = 1 / complex(sh*real(b), ch*imag(b))
	}
	k := real(productNeg(p) / productNeg(z))
	return zpk{z: z, p: p, k: k}
}

// chebyshev2EdgeRatio is the ratio of the stopband edge to the -3 dB
// frequency of a Chebyshev II lowpass.
func chebyshev2EdgeRatio(order int, attenuationDB float64) float64 {
	de := 1 / math.Sqrt(math.Pow(10, attenuationDB/10)-1)
	return math.Cosh(math.Acosh(1/de) / float64(order))
}

func productNeg(v []complex128) complex128 {
	out := complex(1, 0)
	for _, x := range v {
		out *= -x
	}
	return out
}
