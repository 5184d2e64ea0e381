package audio

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// Analysis constants. The FFT covers at most the first fftSize samples of a
// window; longer windows keep their temporal features over the full buffer.
const (
	fftSize           = 2048
	cepstralBins      = 13
	rolloffPercentile = 0.85
)

// Features is the compact descriptor derived from one analysis window.
// Frequencies are in Hz, energy is RMS amplitude, rates are fractions in [0,1].
type Features struct {
	Energy           float64   `json:"energy"`
	ZeroCrossingRate float64   `json:"zeroCrossingRate"`
	SpectralCentroid float64   `json:"spectralCentroid"`
	SpectralRolloff  float64   `json:"spectralRolloff"`
	Cepstral         []float64 `json:"cepstral"`
}

// Extract derives features from a single-channel PCM float buffer. It is a
// pure function: no state, no side effects, and silent buffers produce zero
// features rather than NaNs.
func Extract(samples []float64, sampleRate int) (Features, error) {
	if len(samples) == 0 {
		return Features{}, errors.New("no samples provided")
	}
	if sampleRate <= 0 {
		return Features{}, errors.New("invalid sample rate")
	}

	energy := rootMeanSquare(samples)
	zcr := zeroCrossingRate(samples)

	magnitude, freqs := computeSpectrum(samples, sampleRate)
	centroid := spectralCentroid(magnitude, freqs)
	rolloff := spectralRolloff(magnitude, freqs, rolloffPercentile)
	cepstral := cepstralCoefficients(magnitude)

	return Features{
		Energy:           energy,
		ZeroCrossingRate: zcr,
		SpectralCentroid: centroid,
		SpectralRolloff:  rolloff,
		Cepstral:         cepstral,
	}, nil
}

func rootMeanSquare(samples []float64) float64 {
	var sum float64
	for _, v := range samples {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func zeroCrossingRate(samples []float64) float64 {
	if len(samples) <= 1 {
		return 0
	}
	var count float64
	for i := 1; i < len(samples); i++ {
		if (samples[i] >= 0) != (samples[i-1] >= 0) {
			count++
		}
	}
	return count / float64(len(samples))
}

// computeSpectrum returns the magnitude spectrum and per-bin frequencies of a
// Hann-windowed slice of the buffer. Buffers shorter than fftSize are
// zero-padded so bin resolution stays constant.
func computeSpectrum(samples []float64, sampleRate int) ([]float64, []float64) {
	buffer := make([]float64, fftSize)
	copy(buffer, samples)
	applyHannWindow(buffer)

	spectrum := fft.FFTReal(buffer)
	binCount := fftSize / 2
	magnitude := make([]float64, binCount)
	freqs := make([]float64, binCount)
	for i := 0; i < binCount; i++ {
		magnitude[i] = cmplx.Abs(spectrum[i])
		freqs[i] = float64(i) * float64(sampleRate) / float64(fftSize)
	}
	return magnitude, freqs
}

func applyHannWindow(buffer []float64) {
	n := len(buffer)
	if n <= 1 {
		return
	}
	for i := range buffer {
		buffer[i] *= 0.5 * (1 - math.Cos((2*math.Pi*float64(i))/float64(n-1)))
	}
}

func spectralCentroid(magnitude, freqs []float64) float64 {
	var weighted, total float64
	for i := range magnitude {
		weighted += magnitude[i] * freqs[i]
		total += magnitude[i]
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

// spectralRolloff returns the frequency below which the given fraction of
// spectral energy is contained.
func spectralRolloff(magnitude, freqs []float64, threshold float64) float64 {
	var total float64
	for _, mag := range magnitude {
		total += mag * mag
	}
	if total == 0 {
		return 0
	}

	target := threshold * total
	var cumulative float64
	for i, mag := range magnitude {
		cumulative += mag * mag
		if cumulative >= target {
			return freqs[i]
		}
	}
	return freqs[len(freqs)-1]
}

// cepstralCoefficients partitions the spectrum into equal-width bands and sums
// log magnitudes per band. A coarse stand-in for mel-filterbank MFCCs; the
// fixed length keeps downstream consumers stable if the method is upgraded.
func cepstralCoefficients(magnitude []float64) []float64 {
	coeffs := make([]float64, cepstralBins)
	binWidth := len(magnitude) / cepstralBins
	if binWidth == 0 {
		binWidth = 1
	}
	for i := 0; i < cepstralBins; i++ {
		start := i * binWidth
		end := start + binWidth
		if start >= len(magnitude) {
			break
		}
		if end > len(magnitude) {
			end = len(magnitude)
		}
		var sum float64
		for j := start; j < end; j++ {
			sum += math.Log(magnitude[j] + 1e-10)
		}
		coeffs[i] = sum / float64(end-start)
	}
	return coeffs
}
