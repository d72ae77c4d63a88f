package filter

import (
	"errors"
	"fmt"
)

// ErrInvalidSpec reports malformed numeric design input.
var ErrInvalidSpec = errors.New("filter: invalid spec")

// UnstableFilterError is returned when a design or coefficient set has a
// pole on or outside the unit circle.
type UnstableFilterError struct {
	Pole   complex128
	Radius float64
}

func (e *UnstableFilterError) Error() string {
	return fmt.Sprintf("filter: unstable, pole %.6g%+.6gi has radius %.9f", real(e.Pole), imag(e.Pole), e.Radius)
}

// UnsupportedFilterError is returned when a family or mode name is unknown.
type UnsupportedFilterError struct {
	Kind string
	Name string
}

func (e *UnsupportedFilterError) Error() string {
	return fmt.Sprintf("filter: unsupported %s %q", e.Kind, e.Name)
}

// WarningKind classifies recoverable design adjustments.
type WarningKind int

const (
	WarnUnknownFamily WarningKind = iota
	WarnUnknownMode
	WarnCutoffClamped
	WarnBandEdgesSwapped
	WarnBandWidened
)

// Warning records an adjustment Design made to the requested spec.
type Warning struct {
	Kind      WarningKind
	Requested float64
	Applied   float64
}

func (w Warning) String() string {
	switch w.Kind {
	case WarnUnknownFamily:
		return fmt.Sprintf("unknown family %d, using butterworth", int(w.Requested))
	case WarnUnknownMode:
		return fmt.Sprintf("unknown mode %d, using lowpass", int(w.Requested))
	case WarnCutoffClamped:
		return fmt.Sprintf("cutoff %.6g Hz clamped to %.6g Hz", w.Requested, w.Applied)
	case WarnBandEdgesSwapped:
		return fmt.Sprintf("band edges reversed, lower edge is now %.6g Hz", w.Applied)
	case WarnBandWidened:
		return fmt.Sprintf("empty band at %.6g Hz widened to %.6g Hz", w.Requested, w.Applied)
	default:
		return fmt.Sprintf("warning(%d)", int(w.Kind))
	}
}
