// Package spectrum computes windowed magnitude/phase spectra of sampled
// signals, extracts ranked peaks, harmonics and THD, and maps a spectrum
// back into a chain of epicycle oscillators.
package spectrum

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cwbudde/algo-dsp/dsp/window"
)

// ErrInvalidInput reports a malformed buffer, sample rate or option set.
var ErrInvalidInput = errors.New("spectrum: invalid input")

// Window selects the analysis window. The zero value is Hann.
type Window int

const (
	WindowHann Window = iota
	WindowRectangular
	WindowHamming
	WindowBlackman
	WindowFlatTop
)

func (w Window) String() string {
	switch w {
	case WindowHann:
		return "hann"
	case WindowRectangular:
		return "rectangular"
	case WindowHamming:
		return "hamming"
	case WindowBlackman:
		return "blackman"
	case WindowFlatTop:
		return "flattop"
	default:
		return fmt.Sprintf("window(%d)", int(w))
	}
}

func (w Window) dspType() window.Type {
	switch w {
	case WindowRectangular:
		return window.TypeRectangular
	case WindowHamming:
		return window.TypeHamming
	case WindowBlackman:
		return window.TypeBlackman
	case WindowFlatTop:
		return window.TypeFlatTop
	default:
		return window.TypeHann
	}
}

// ParseWindow maps a window name to its enum value.
func ParseWindow(s string) (Window, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "hann", "hanning":
		return WindowHann, nil
	case "rect", "rectangular", "none":
		return WindowRectangular, nil
	case "hamming":
		return WindowHamming, nil
	case "blackman":
		return WindowBlackman, nil
	case "flattop", "flat-top":
		return WindowFlatTop, nil
	default:
		return WindowHann, fmt.Errorf("%w: unknown window %q", ErrInvalidInput, s)
	}
}

const (
	DefaultThreshold         = 0.05
	DefaultMaxPeaks          = 16
	DefaultHarmonicTolerance = 0.05
)

// Options controls Analyze.
type Options struct {
	// FFTSize must be a power of two. Zero selects the next power of two at
	// or above the buffer length; a smaller size analyzes the newest
	// FFTSize samples.
	FFTSize int
	Window  Window
	// Threshold is the minimum peak amplitude as a fraction of the largest
	// spectral magnitude.
	Threshold    float64
	MinFrequency float64
	// MaxFrequency of zero means Nyquist.
	MaxFrequency float64
	// MinPeakDistance is the minimum separation between peaks in Hz.
	MinPeakDistance float64
	MaxPeaks        int
	// ExpectedFundamental overrides fundamental detection when positive.
	ExpectedFundamental float64
	// HarmonicTolerance is the allowed distance of f/f0 from an integer.
	HarmonicTolerance float64
}

// DefaultOptions returns the analyzer defaults.
func DefaultOptions() Options {
	return Options{
		Window:            WindowHann,
		Threshold:         DefaultThreshold,
		MaxPeaks:          DefaultMaxPeaks,
		HarmonicTolerance: DefaultHarmonicTolerance,
	}
}

func (o Options) validate() error {
	switch {
	case o.FFTSize < 0 || (o.FFTSize > 0 && o.FFTSize&(o.FFTSize-1) != 0):
		return fmt.Errorf("%w: fft size must be a power of two: %d", ErrInvalidInput, o.FFTSize)
	case !finite(o.Threshold) || o.Threshold < 0 || o.Threshold > 1:
		return fmt.Errorf("%w: threshold must be in [0,1]: %v", ErrInvalidInput, o.Threshold)
	case !finite(o.MinFrequency) || o.MinFrequency < 0:
		return fmt.Errorf("%w: min frequency must be >= 0: %v", ErrInvalidInput, o.MinFrequency)
	case !finite(o.MaxFrequency) || o.MaxFrequency < 0:
		return fmt.Errorf("%w: max frequency must be >= 0: %v", ErrInvalidInput, o.MaxFrequency)
	case !finite(o.MinPeakDistance) || o.MinPeakDistance < 0:
		return fmt.Errorf("%w: min peak distance must be >= 0: %v", ErrInvalidInput, o.MinPeakDistance)
	case o.MaxPeaks < 0:
		return fmt.Errorf("%w: max peaks must be >= 0: %d", ErrInvalidInput, o.MaxPeaks)
	case !finite(o.ExpectedFundamental) || o.ExpectedFundamental < 0:
		return fmt.Errorf("%w: expected fundamental must be >= 0: %v", ErrInvalidInput, o.ExpectedFundamental)
	case !finite(o.HarmonicTolerance) || o.HarmonicTolerance < 0 || o.HarmonicTolerance >= 0.5:
		return fmt.Errorf("%w: harmonic tolerance must be in [0,0.5): %v", ErrInvalidInput, o.HarmonicTolerance)
	}
	return nil
}

// SortBy orders synthesized oscillators.
type SortBy int

const (
	SortByAmplitude SortBy = iota
	SortByFrequency
)

// AmplitudeMode selects how peak amplitude becomes vector length.
type AmplitudeMode int

const (
	// AmplitudeRelative scales RelativeAmplitude to MaxLength.
	AmplitudeRelative AmplitudeMode = iota
	// AmplitudeRaw multiplies the measured amplitude by ScaleFactor.
	AmplitudeRaw
)

// SynthOptions controls Synthesize.
type SynthOptions struct {
	MaxRadii             int
	MinRelativeAmplitude float64
	SortBy               SortBy
	AmplitudeMode        AmplitudeMode
	MaxLength            float64
	ScaleFactor          float64
	// SpeedMin and SpeedMax bound the rotation speed in multiples of the
	// fundamental. Ignored when PreserveFrequency is set.
	SpeedMin          float64
	SpeedMax          float64
	PreserveFrequency bool
	IDPrefix          string
}

// DefaultSynthOptions returns the synthesizer defaults.
func DefaultSynthOptions() SynthOptions {
	return SynthOptions{
		MaxRadii:             8,
		MinRelativeAmplitude: 0.01,
		SortBy:               SortByAmplitude,
		AmplitudeMode:        AmplitudeRelative,
		MaxLength:            100,
		ScaleFactor:          1,
		SpeedMin:             0.1,
		SpeedMax:             5,
		IDPrefix:             "osc",
	}
}

func (o SynthOptions) validate() error {
	switch {
	case o.MaxRadii < 1:
		return fmt.Errorf("%w: max radii must be >= 1: %d", ErrInvalidInput, o.MaxRadii)
	case !finite(o.MinRelativeAmplitude) || o.MinRelativeAmplitude < 0 || o.MinRelativeAmplitude > 1:
		return fmt.Errorf("%w: min relative amplitude must be in [0,1]: %v", ErrInvalidInput, o.MinRelativeAmplitude)
	case o.AmplitudeMode == AmplitudeRelative && (!finite(o.MaxLength) || o.MaxLength <= 0):
		return fmt.Errorf("%w: max length must be > 0: %v", ErrInvalidInput, o.MaxLength)
	case o.AmplitudeMode == AmplitudeRaw && (!finite(o.ScaleFactor) || o.ScaleFactor <= 0):
		return fmt.Errorf("%w: scale factor must be > 0: %v", ErrInvalidInput, o.ScaleFactor)
	case !o.PreserveFrequency && (!finite(o.SpeedMin) || !finite(o.SpeedMax) || o.SpeedMin <= 0 || o.SpeedMax < o.SpeedMin):
		return fmt.Errorf("%w: speed range must satisfy 0 < min <= max: [%v,%v]", ErrInvalidInput, o.SpeedMin, o.SpeedMax)
	}
	return nil
}
