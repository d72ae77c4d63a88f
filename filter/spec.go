// Package filter designs and applies classical IIR filters (Butterworth,
// Chebyshev type I and type II) in lowpass, highpass, bandpass and bandstop
// form, and reports their stability and frequency response.
package filter

import (
	"fmt"
	"strings"
)

// Family selects the analog prototype.
type Family int

const (
	FamilyButterworth Family = iota
	FamilyChebyshev1
	FamilyChebyshev2
)

func (f Family) String() string {
	switch f {
	case FamilyButterworth:
		return "butterworth"
	case FamilyChebyshev1:
		return "chebyshev1"
	case FamilyChebyshev2:
		return "chebyshev2"
	default:
		return fmt.Sprintf("family(%d)", int(f))
	}
}

func (f Family) valid() bool {
	return f >= FamilyButterworth && f <= FamilyChebyshev2
}

// Mode selects the response shape.
type Mode int

const (
	ModeLowpass Mode = iota
	ModeHighpass
	ModeBandpass
	ModeBandstop
)

func (m Mode) String() string {
	switch m {
	case ModeLowpass:
		return "lowpass"
	case ModeHighpass:
		return "highpass"
	case ModeBandpass:
		return "bandpass"
	case ModeBandstop:
		return "bandstop"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func (m Mode) valid() bool {
	return m >= ModeLowpass && m <= ModeBandstop
}

// IsBand reports whether the mode uses both cutoff edges.
func (m Mode) IsBand() bool {
	return m == ModeBandpass || m == ModeBandstop
}

const (
	MinOrder = 1
	MaxOrder = 8

	DefaultRippleDB      = 0.5
	DefaultAttenuationDB = 40.0
)

// Spec describes a filter to design. Cutoff is the single edge for lowpass
// and highpass, and the lower edge for band modes where CutoffHigh is the
// upper edge. For Chebyshev II lowpass and highpass the cutoff is the
// stopband edge; in band modes both edges are -3 dB points.
type Spec struct {
	Family     Family
	Mode       Mode
	Order      int
	Cutoff     float64
	CutoffHigh float64
	// RippleDB is the Chebyshev I passband ripple. Zero selects the default.
	RippleDB float64
	// AttenuationDB is the Chebyshev II stopband attenuation. Zero selects
	// the default.
	AttenuationDB float64
}

// BandFromCenter converts a center frequency and bandwidth into band edges.
func BandFromCenter(center, bandwidth float64) (low, high float64) {
	half := bandwidth / 2
	low = center - half
	high = center + half
	if low <= 0 {
		low = center / 2
	}
	return low, high
}

var familyNames = map[string]Family{
	"butterworth":  FamilyButterworth,
	"butter":       FamilyButterworth,
	"chebyshev1":   FamilyChebyshev1,
	"chebyshev-i":  FamilyChebyshev1,
	"cheby1":       FamilyChebyshev1,
	"chebyshev2":   FamilyChebyshev2,
	"chebyshev-ii": FamilyChebyshev2,
	"cheby2":       FamilyChebyshev2,
}

var modeNames = map[string]Mode{
	"lowpass":  ModeLowpass,
	"lp":       ModeLowpass,
	"highpass": ModeHighpass,
	"hp":       ModeHighpass,
	"bandpass": ModeBandpass,
	"bp":       ModeBandpass,
	"bandstop": ModeBandstop,
	"bs":       ModeBandstop,
	"notch":    ModeBandstop,
}

// ParseFamily maps a family name to its enum value.
func ParseFamily(s string) (Family, error) {
	if f, ok := familyNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return f, nil
	}
	return FamilyButterworth, &UnsupportedFilterError{Kind: "family", Name: s}
}

// ParseMode maps a mode name to its enum value.
func ParseMode(s string) (Mode, error) {
	if m, ok := modeNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return m, nil
	}
	return ModeLowpass, &UnsupportedFilterError{Kind: "mode", Name: s}
}
