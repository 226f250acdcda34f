package feature

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"github.com/matzehuels/chromascribe/pkg/geom"
)

// silenceFloor is the smoothed magnitude below which no pitch is reported.
const silenceFloor = 1e-6

// Analyzer extracts loudness and dominant pitch from PCM blocks.
//
// Volume is the RMS of the block times a gain, capped at 1. Pitch is found by
// windowing the block (Blackman), taking its spectrum, smoothing magnitudes
// over time and picking the strongest bin in the lowest quarter of the
// spectrum. The bin frequency divided by the pitch ceiling, capped at 1, is
// the pitch.
//
// An Analyzer keeps smoothing state between calls and is not safe for
// concurrent use.
type Analyzer struct {
	size      int
	smoothing float64
	gain      float64
	ceiling   float64

	fft      *fourier.FFT
	windowed []float64
	coeffs   []complex128
	smoothed []float64
}

// NewAnalyzer returns an analyzer over blocks of size samples.
func NewAnalyzer(size int, smoothing, gain, ceilingHz float64) *Analyzer {
	return &Analyzer{
		size:      size,
		smoothing: smoothing,
		gain:      gain,
		ceiling:   ceilingHz,
		fft:       fourier.NewFFT(size),
		windowed:  make([]float64, size),
		smoothed:  make([]float64, size/2),
	}
}

// Size is the analysis block length in samples.
func (a *Analyzer) Size() int { return a.size }

// Reset forgets the smoothing history.
func (a *Analyzer) Reset() {
	clear(a.smoothed)
}

// Analyze computes the features of the most recent Size samples of block.
// Shorter blocks are zero padded at the front. Samples are in [-1, 1].
func (a *Analyzer) Analyze(block []float64, sampleRate int) AudioFeatures {
	if len(block) > a.size {
		block = block[len(block)-a.size:]
	}
	pad := a.size - len(block)
	clear(a.windowed[:pad])
	copy(a.windowed[pad:], block)

	return AudioFeatures{
		Volume: a.volume(a.windowed),
		Pitch:  a.pitch(sampleRate),
	}
}

func (a *Analyzer) volume(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(len(x)))
	return math.Min(rms*a.gain, 1)
}

// pitch windows a.windowed in place, so it must run after volume.
func (a *Analyzer) pitch(sampleRate int) float64 {
	window.Blackman(a.windowed)
	a.coeffs = a.fft.Coefficients(a.coeffs, a.windowed)

	n := float64(a.size)
	for k := range a.smoothed {
		mag := cmplx.Abs(a.coeffs[k]) / n
		a.smoothed[k] = a.smoothing*a.smoothed[k] + (1-a.smoothing)*mag
	}

	peak, best := 0, 0.0
	// Bin 0 is the DC offset, not a pitch.
	for k := 1; k < len(a.smoothed)/4; k++ {
		if a.smoothed[k] > best {
			peak, best = k, a.smoothed[k]
		}
	}
	if best < silenceFloor || sampleRate <= 0 {
		return 0
	}

	freq := float64(peak) * float64(sampleRate) / n
	return geom.Clamp(freq/a.ceiling, 0, 1)
}
