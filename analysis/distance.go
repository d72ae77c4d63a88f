package analysis

import (
	"math"

	approx "github.com/cwbudde/algo-approx"
	dspconv "github.com/cwbudde/algo-dsp/dsp/conv"
	"github.com/cwbudde/algo-dsp/dsp/window"
	algofft "github.com/cwbudde/algo-fft"
	"gonum.org/v1/gonum/stat"
)

const (
	minAlignedFrames = 32
	maxSpectrumSize  = 4096
	// spectral bins further than this below the strongest bin are clipped
	spectralFloorDB = 100.0
)

// Metrics contains distance and similarity measurements between a
// reference signal and its reconstruction.
type Metrics struct {
	SampleRate float64 `json:"sample_rate"`

	ReferenceFrames int `json:"reference_frames"`
	CandidateFrames int `json:"candidate_frames"`
	AlignedFrames   int `json:"aligned_frames"`
	LagSamples      int `json:"lag_samples"`

	TimeRMSE       float64 `json:"time_rmse"`
	NormalizedRMSE float64 `json:"normalized_rmse"`
	Correlation    float64 `json:"correlation"`
	EnvelopeRMSEDB float64 `json:"envelope_rmse_db"`
	SpectralRMSEDB float64 `json:"spectral_rmse_db"`

	Score      float64 `json:"score"`
	Similarity float64 `json:"similarity"`
}

// Compare aligns candidate to reference by cross-correlation and returns
// objective distance metrics with a combined score in [0,1] (0 = identical).
func Compare(reference []float64, candidate []float64, sampleRate float64) Metrics {
	m := Metrics{
		SampleRate:      sampleRate,
		ReferenceFrames: len(reference),
		CandidateFrames: len(candidate),
	}
	if !isFinite(sampleRate) || sampleRate <= 0 || len(reference) == 0 || len(candidate) == 0 {
		m.Score = 1.0
		m.Similarity = 0.0
		return m
	}

	maxLag := int(sampleRate / 2)
	if q := len(reference) / 4; maxLag > q {
		maxLag = q
	}
	if maxLag > len(candidate)-1 {
		maxLag = len(candidate) - 1
	}
	if maxLag < 0 {
		maxLag = 0
	}
	lag := estimateLag(reference, candidate, maxLag)
	m.LagSamples = lag

	refA, candA := alignByLag(reference, candidate, lag)
	n := min(len(refA), len(candA))
	if n < minAlignedFrames {
		m.Score = 1.0
		m.Similarity = 0.0
		return m
	}
	refA = refA[:n]
	candA = candA[:n]
	m.AlignedFrames = n

	m.TimeRMSE = rmse(refA, candA)
	if r := rms1(refA); r > 1e-12 {
		m.NormalizedRMSE = m.TimeRMSE / r
	} else if m.TimeRMSE > 1e-12 {
		m.NormalizedRMSE = 1
	}
	if c := stat.Correlation(refA, candA, nil); isFinite(c) {
		m.Correlation = c
	}

	frame := max(n/16, 8)
	refEnv := rmsEnvelope(refA, frame, frame/2)
	candEnv := rmsEnvelope(candA, frame, frame/2)
	envN := min(len(refEnv), len(candEnv))
	if envN > 0 {
		envDiff := make([]float64, envN)
		for i := 0; i < envN; i++ {
			envDiff[i] = linToDB(refEnv[i]) - linToDB(candEnv[i])
		}
		m.EnvelopeRMSEDB = rms1(envDiff)
	}

	m.SpectralRMSEDB = spectralRMSEDB(refA, candA)

	timeNorm := clamp01(m.NormalizedRMSE)
	envNorm := clamp01(m.EnvelopeRMSEDB / 30.0)
	specNorm := clamp01(m.SpectralRMSEDB / 30.0)
	m.Score = clamp01(0.45*timeNorm + 0.20*envNorm + 0.35*specNorm)
	m.Similarity = clamp01(float64(approx.FastExp(float32(-4.0 * m.Score))))

	return m
}

// ReconstructionError is the RMS of original-reconstructed relative to the
// RMS of original, over the common length. A silent original gives 0 when
// the reconstruction is silent too and 1 otherwise.
func ReconstructionError(original, reconstructed []float64) float64 {
	n := min(len(original), len(reconstructed))
	if n == 0 {
		return 0
	}
	e := rmse(original[:n], reconstructed[:n])
	r := rms1(original[:n])
	if r <= 1e-12 {
		if e <= 1e-12 {
			return 0
		}
		return 1
	}
	return e / r
}

// estimateLag returns the lag in [-maxLag, maxLag] maximising
// sum(ref[i+lag]*cand[i]), using FFT cross-correlation.
func estimateLag(ref []float64, cand []float64, maxLag int) int {
	if len(ref) == 0 || len(cand) == 0 {
		return 0
	}
	corr, err := dspconv.CorrelateFFT(ref, cand)
	if err != nil {
		return estimateLagExhaustive(ref, cand, maxLag)
	}
	lo := max(dspconv.IndexFromLag(-maxLag, len(cand)), 0)
	hi := min(dspconv.IndexFromLag(maxLag, len(cand)), len(corr)-1)
	if lo > hi {
		return 0
	}
	idx, _ := dspconv.FindPeak(corr[lo : hi+1])
	return dspconv.LagFromIndex(lo+idx, len(cand))
}

func estimateLagExhaustive(ref []float64, cand []float64, maxLag int) int {
	bestLag := 0
	best := math.Inf(-1)
	for lag := -maxLag; lag <= maxLag; lag++ {
		s := dotAtLag(ref, cand, lag)
		if s > best {
			best = s
			bestLag = lag
		}
	}
	return bestLag
}

func dotAtLag(a []float64, b []float64, lag int) float64 {
	var ai, bi int
	if lag >= 0 {
		ai = lag
	} else {
		bi = -lag
	}
	n := min(len(a)-ai, len(b)-bi)
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[ai+i] * b[bi+i]
	}
	return sum
}

func alignByLag(ref []float64, cand []float64, lag int) ([]float64, []float64) {
	if lag >= 0 {
		if lag >= len(ref) {
			return nil, nil
		}
		return ref[lag:], cand
	}
	o := -lag
	if o >= len(cand) {
		return nil, nil
	}
	return ref, cand[o:]
}

func rmse(a []float64, b []float64) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(n))
}

func rms1(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func rmsEnvelope(x []float64, frame int, hop int) []float64 {
	if frame <= 0 || hop <= 0 || len(x) < frame {
		return nil
	}
	n := 1 + (len(x)-frame)/hop
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		start := i * hop
		out[i] = rms1(x[start : start+frame])
	}
	return out
}

// spectralRMSEDB compares Hann-windowed magnitude spectra of the first
// power-of-two block of a and b, ignoring DC.
func spectralRMSEDB(a []float64, b []float64) float64 {
	n := min(len(a), len(b))
	size := 1
	for size*2 <= n && size*2 <= maxSpectrumSize {
		size *= 2
	}
	if size < minAlignedFrames {
		return 0
	}
	plan, err := algofft.NewPlanReal64(size)
	if err != nil {
		return 0
	}
	w := window.Generate(window.TypeHann, size)
	aw := make([]float64, size)
	bw := make([]float64, size)
	for i := 0; i < size; i++ {
		aw[i] = a[i] * w[i]
		bw[i] = b[i] * w[i]
	}
	specA := make([]complex128, size/2+1)
	specB := make([]complex128, size/2+1)
	plan.Forward(specA, aw)
	plan.Forward(specB, bw)

	bins := size / 2
	da := make([]float64, bins)
	db := make([]float64, bins)
	peak := math.Inf(-1)
	for k := 1; k < bins; k++ {
		da[k] = linToDB(math.Hypot(real(specA[k]), imag(specA[k])))
		db[k] = linToDB(math.Hypot(real(specB[k]), imag(specB[k])))
		peak = math.Max(peak, math.Max(da[k], db[k]))
	}
	floor := peak - spectralFloorDB
	var sum float64
	for k := 1; k < bins; k++ {
		d := math.Max(da[k], floor) - math.Max(db[k], floor)
		sum += d * d
	}
	return math.Sqrt(sum / float64(bins-1))
}

func linToDB(x float64) float64 {
	if x < 1e-12 {
		x = 1e-12
	}
	return 20.0 * math.Log10(x)
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
