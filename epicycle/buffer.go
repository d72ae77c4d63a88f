package epicycle

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidBuffer = errors.New("epicycle: invalid sample buffer settings")

// Sample is one (time, value) pair.
type Sample struct {
	Time  float64
	Value float64
}

// SampleBuffer is a fixed-capacity ring of samples. Once full, each push
// overwrites the oldest sample.
type SampleBuffer struct {
	samples    []Sample
	writePos   int
	count      int
	sampleRate float64
}

// NewSampleBuffer sizes the ring to hold graphDuration seconds at sampleRate.
func NewSampleBuffer(graphDuration, sampleRate float64) (*SampleBuffer, error) {
	if !isFinite(sampleRate) || sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be > 0: %v", ErrInvalidBuffer, sampleRate)
	}
	if !isFinite(graphDuration) || graphDuration <= 0 {
		return nil, fmt.Errorf("%w: graph duration must be > 0: %v", ErrInvalidBuffer, graphDuration)
	}
	n := graphDuration * sampleRate
	if math.Abs(n-math.Round(n)) < 1e-9 {
		n = math.Round(n)
	}
	size := int(math.Ceil(n))
	if size < 1 {
		size = 1
	}
	return &SampleBuffer{
		samples:    make([]Sample, size),
		sampleRate: sampleRate,
	}, nil
}

// Push appends a sample, rotating out the oldest when full.
func (b *SampleBuffer) Push(s Sample) {
	b.samples[b.writePos] = s
	b.writePos = (b.writePos + 1) % len(b.samples)
	if b.count < len(b.samples) {
		b.count++
	}
}

// Len returns the number of stored samples.
func (b *SampleBuffer) Len() int { return b.count }

// Cap returns the ring capacity.
func (b *SampleBuffer) Cap() int { return len(b.samples) }

// SampleRate returns the conceptual sample rate of the buffer.
func (b *SampleBuffer) SampleRate() float64 { return b.sampleRate }

// At returns the i-th oldest sample.
func (b *SampleBuffer) At(i int) Sample {
	start := (b.writePos - b.count + len(b.samples)) % len(b.samples)
	return b.samples[(start+i)%len(b.samples)]
}

// Snapshot copies the stored samples, oldest first.
func (b *SampleBuffer) Snapshot() []Sample {
	out := make([]Sample, b.count)
	for i := range out {
		out[i] = b.At(i)
	}
	return out
}

// Values copies the stored sample values, oldest first.
func (b *SampleBuffer) Values() []float64 {
	out := make([]float64, b.count)
	for i := range out {
		out[i] = b.At(i).Value
	}
	return out
}

// Last returns the newest sample.
func (b *SampleBuffer) Last() (Sample, bool) {
	if b.count == 0 {
		return Sample{}, false
	}
	return b.At(b.count - 1), true
}

// ValueAt interpolates the stored signal at time t with cubic Lagrange
// interpolation, falling back to linear near the edges. Times outside the
// stored range clamp to the first or last sample.
func (b *SampleBuffer) ValueAt(t float64) float64 {
	if b.count == 0 {
		return 0
	}
	first := b.At(0)
	if b.count == 1 || t <= first.Time {
		return first.Value
	}
	last := b.At(b.count - 1)
	if t >= last.Time {
		return last.Value
	}

	pos := (t - first.Time) * b.sampleRate
	i := int(pos)
	if i >= b.count-1 {
		i = b.count - 2
	}
	frac := pos - float64(i)

	if i >= 1 && i+2 < b.count {
		return lagrangeCubic([4]float64{
			b.At(i - 1).Value,
			b.At(i).Value,
			b.At(i + 1).Value,
			b.At(i + 2).Value,
		}, frac)
	}
	y0 := b.At(i).Value
	return y0 + frac*(b.At(i+1).Value-y0)
}

// WithValues returns a copy of b that keeps the sample times but takes its
// values from vals, oldest first.
func (b *SampleBuffer) WithValues(vals []float64) (*SampleBuffer, error) {
	if len(vals) != b.count {
		return nil, fmt.Errorf("%w: %d values for %d samples", ErrInvalidBuffer, len(vals), b.count)
	}
	out := &SampleBuffer{
		samples:    make([]Sample, len(b.samples)),
		sampleRate: b.sampleRate,
	}
	for i, v := range vals {
		s := b.At(i)
		s.Value = v
		out.Push(s)
	}
	return out, nil
}

// Reset clears the ring.
func (b *SampleBuffer) Reset() {
	for i := range b.samples {
		b.samples[i] = Sample{}
	}
	b.writePos = 0
	b.count = 0
}

// lagrangeCubic interpolates between s[1] and s[2] at fractional position d.
func lagrangeCubic(s [4]float64, d float64) float64 {
	c0 := s[1]
	c1 := s[2] - s[0]/3.0 - s[1]/2.0 - s[3]/6.0
	c2 := s[0]/2.0 - s[1] + s[2]/2.0
	c3 := s[1]/2.0 - s[2]/2.0 + (s[3]-s[0])/6.0
	return c0 + d*(c1+d*(c2+d*c3))
}

// Sampler fills a SampleBuffer from a tree as an external clock advances.
type Sampler struct {
	tree       *Tree
	buffer     *SampleBuffer
	projection Projection

	started bool
	origin  float64
	k       int
}

// NewSampler creates a sampler whose buffer holds graphDuration seconds.
func NewSampler(tree *Tree, graphDuration, sampleRate float64, proj Projection) (*Sampler, error) {
	buf, err := NewSampleBuffer(graphDuration, sampleRate)
	if err != nil {
		return nil, err
	}
	return &Sampler{tree: tree, buffer: buf, projection: proj}, nil
}

// SetTree swaps the tree for subsequent ticks. The buffer is kept.
func (s *Sampler) SetTree(tree *Tree) { s.tree = tree }

// Positions evaluates the sampler's current tree at t with its projection.
func (s *Sampler) Positions(t float64) Frame {
	return ComputePositionsWith(s.tree, t, s.projection)
}

// Buffer exposes the rolling buffer.
func (s *Sampler) Buffer() *SampleBuffer { return s.buffer }

// Tick advances the sampler over [t, t+dt), pushing every sample of the fixed
// grid that falls in the interval, and returns the number written. Moving
// backwards in time or skipping more than one sample restarts the grid at t.
func (s *Sampler) Tick(t, dt float64) int {
	if dt <= 0 || !isFinite(t) || !isFinite(dt) {
		return 0
	}
	step := 1 / s.buffer.sampleRate
	next := s.origin + float64(s.k)*step
	if !s.started || next > t+dt+step || next < t-step {
		s.started = true
		s.origin = t
		s.k = 0
		next = t
	}
	n := 0
	for next < t+dt {
		f := ComputePositionsWith(s.tree, next, s.projection)
		s.buffer.Push(Sample{Time: next, Value: f.Signal})
		n++
		s.k++
		next = s.origin + float64(s.k)*step
	}
	return n
}

// Render samples n values of the tree signal starting at time start.
func Render(tree *Tree, start float64, n int, sampleRate float64, proj Projection) ([]float64, error) {
	if !isFinite(sampleRate) || sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be > 0: %v", ErrInvalidBuffer, sampleRate)
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: negative sample count %d", ErrInvalidBuffer, n)
	}
	out := make([]float64, n)
	for i := range out {
		t := start + float64(i)/sampleRate
		f := ComputePositionsWith(tree, t, proj)
		out[i] = f.Signal
	}
	return out, nil
}
