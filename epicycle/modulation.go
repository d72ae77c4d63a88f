package epicycle

import (
	"fmt"
	"math"
)

// Curve selects the segment shape of an envelope.
type Curve int

const (
	CurveLinear Curve = iota
	CurveExponential
)

func (c Curve) String() string {
	switch c {
	case CurveLinear:
		return "linear"
	case CurveExponential:
		return "exponential"
	default:
		return fmt.Sprintf("Curve(%d)", int(c))
	}
}

// Envelope is an ADSR amplitude shaper. Durations are in seconds.
type Envelope struct {
	Enabled      bool
	Attack       float64
	Decay        float64
	Sustain      float64
	Release      float64
	Curve        Curve
	Loop         bool
	LoopDuration float64
}

// Validate rejects non-finite or negative durations and an out-of-range sustain level.
func (e *Envelope) Validate() error {
	if !isFinite(e.Attack) || e.Attack < 0 {
		return fmt.Errorf("envelope attack must be >= 0: %v", e.Attack)
	}
	if !isFinite(e.Decay) || e.Decay < 0 {
		return fmt.Errorf("envelope decay must be >= 0: %v", e.Decay)
	}
	if !isFinite(e.Release) || e.Release < 0 {
		return fmt.Errorf("envelope release must be >= 0: %v", e.Release)
	}
	if !isFinite(e.Sustain) || e.Sustain < 0 || e.Sustain > 1 {
		return fmt.Errorf("envelope sustain must be in [0,1]: %v", e.Sustain)
	}
	if e.Curve != CurveLinear && e.Curve != CurveExponential {
		return fmt.Errorf("unknown envelope curve %d", int(e.Curve))
	}
	if e.Loop && (!isFinite(e.LoopDuration) || e.LoopDuration < 0) {
		return fmt.Errorf("envelope loop duration must be >= 0: %v", e.LoopDuration)
	}
	return nil
}

// Value returns the envelope level at time t, always in [0,1].
//
// Without looping the release segment starts right after decay and the value
// stays at zero once attack+decay+release have elapsed. With looping the
// sustain level is held until LoopDuration-Release and t wraps every cycle.
func (e *Envelope) Value(t float64) float64 {
	if t < 0 {
		return 0
	}
	a, d, r := e.Attack, e.Decay, e.Release
	s := clamp01(e.Sustain)

	hold := 0.0
	if e.Loop {
		cycle := math.Max(e.LoopDuration, a+d+r)
		if cycle <= 0 {
			return s
		}
		t = math.Mod(t, cycle)
		hold = cycle - (a + d + r)
	}

	if t < a {
		return clamp01(e.attackLevel(t / a))
	}
	t -= a
	if t < d {
		return clamp01(e.decayLevel(t/d, s))
	}
	t -= d
	if t < hold {
		return s
	}
	t -= hold
	if t < r {
		return clamp01(e.releaseLevel(t/r, s))
	}
	return 0
}

func (e *Envelope) attackLevel(p float64) float64 {
	if e.Curve == CurveExponential {
		return p * p
	}
	return p
}

func (e *Envelope) decayLevel(p, sustain float64) float64 {
	if e.Curve == CurveExponential {
		return 1 - (1-sustain)*math.Sqrt(p)
	}
	return 1 - (1-sustain)*p
}

func (e *Envelope) releaseLevel(p, sustain float64) float64 {
	if e.Curve == CurveExponential {
		q := 1 - p
		return sustain * q * q
	}
	return sustain * (1 - p)
}

// Sweep is a linear frequency ramp from StartFreq to EndFreq over Duration seconds.
type Sweep struct {
	Enabled   bool
	StartFreq float64
	EndFreq   float64
	Duration  float64
	Loop      bool
}

// Validate rejects negative frequencies and a non-positive duration.
func (s *Sweep) Validate() error {
	if !isFinite(s.StartFreq) || s.StartFreq < 0 {
		return fmt.Errorf("sweep start frequency must be >= 0: %v", s.StartFreq)
	}
	if !isFinite(s.EndFreq) || s.EndFreq < 0 {
		return fmt.Errorf("sweep end frequency must be >= 0: %v", s.EndFreq)
	}
	if !isFinite(s.Duration) || s.Duration <= 0 {
		return fmt.Errorf("sweep duration must be > 0: %v", s.Duration)
	}
	return nil
}

// Frequency returns the instantaneous sweep frequency in Hz at time t.
func (s *Sweep) Frequency(t float64) float64 {
	tau, _ := s.localTime(t)
	if !s.Loop && t >= s.Duration {
		return s.EndFreq
	}
	return s.StartFreq + (s.EndFreq-s.StartFreq)*tau/s.Duration
}

// Cycles returns the accumulated phase in cycles at time t, the exact integral
// of Frequency from 0 to t.
func (s *Sweep) Cycles(t float64) float64 {
	f0, f1, T := s.StartFreq, s.EndFreq, s.Duration
	if t <= 0 {
		return f0 * t
	}
	if !s.Loop && t > T {
		return f0*T + (f1-f0)*T/2 + f1*(t-T)
	}
	tau, n := s.localTime(t)
	return float64(n)*(f0+f1)/2*T + f0*tau + (f1-f0)*tau*tau/(2*T)
}

func (s *Sweep) localTime(t float64) (float64, int) {
	if t <= 0 {
		return 0, 0
	}
	if !s.Loop {
		return math.Min(t, s.Duration), 0
	}
	n := math.Floor(t / s.Duration)
	return t - n*s.Duration, int(n)
}

// Waveform selects the LFO shape.
type Waveform int

const (
	WaveSine Waveform = iota
	WaveSquare
	WaveTriangle
	WaveSawtooth
)

func (w Waveform) String() string {
	switch w {
	case WaveSine:
		return "sine"
	case WaveSquare:
		return "square"
	case WaveTriangle:
		return "triangle"
	case WaveSawtooth:
		return "sawtooth"
	default:
		return fmt.Sprintf("Waveform(%d)", int(w))
	}
}

// Target selects which oscillator parameter an LFO modulates.
type Target int

const (
	TargetAmplitude Target = iota
	TargetFrequency
	TargetPhase
)

func (t Target) String() string {
	switch t {
	case TargetAmplitude:
		return "amplitude"
	case TargetFrequency:
		return "frequency"
	case TargetPhase:
		return "phase"
	default:
		return fmt.Sprintf("Target(%d)", int(t))
	}
}

// LFO is a low-frequency modulator producing values in [-Depth, Depth].
type LFO struct {
	Enabled     bool
	Waveform    Waveform
	Rate        float64
	Depth       float64
	PhaseOffset float64
	Target      Target
}

// Validate checks rate, depth and the closed enums.
func (l *LFO) Validate() error {
	if !isFinite(l.Rate) || l.Rate < 0 {
		return fmt.Errorf("lfo rate must be >= 0: %v", l.Rate)
	}
	if !isFinite(l.Depth) || l.Depth < 0 || l.Depth > 1 {
		return fmt.Errorf("lfo depth must be in [0,1]: %v", l.Depth)
	}
	if !isFinite(l.PhaseOffset) {
		return fmt.Errorf("lfo phase offset must be finite")
	}
	switch l.Waveform {
	case WaveSine, WaveSquare, WaveTriangle, WaveSawtooth:
	default:
		return fmt.Errorf("unknown lfo waveform %d", int(l.Waveform))
	}
	switch l.Target {
	case TargetAmplitude, TargetFrequency, TargetPhase:
	default:
		return fmt.Errorf("unknown lfo target %d", int(l.Target))
	}
	return nil
}

// Value returns the scaled modulation value at time t.
func (l *LFO) Value(t float64) float64 {
	theta := l.Rate*t*2*math.Pi + l.PhaseOffset
	var w float64
	switch l.Waveform {
	case WaveSine:
		w = math.Sin(theta)
	case WaveSquare:
		if math.Sin(theta) >= 0 {
			w = 1
		} else {
			w = -1
		}
	case WaveTriangle:
		w = 2 / math.Pi * math.Asin(math.Sin(theta))
	case WaveSawtooth:
		p := theta / (2 * math.Pi)
		w = 2*(p-math.Floor(p)) - 1
	}
	return w * l.Depth
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
