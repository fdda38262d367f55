package features

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// AnalyticSignal computes the analytic signal of x by the FFT method: negative
// frequencies are zeroed, positive frequencies doubled, DC (and Nyquist for
// even lengths) kept.
func AnalyticSignal(x []float64) []complex128 {
	n := len(x)
	spectrum := fft.FFTReal(x)

	half := n / 2
	for i := 1; i < half; i++ {
		spectrum[i] *= 2
	}
	if n%2 != 0 && half >= 1 {
		spectrum[half] *= 2
	}
	for i := half + 1; i < n; i++ {
		spectrum[i] = 0
	}

	return fft.IFFT(spectrum)
}

// InstantaneousAmplitude returns the envelope |z| of the analytic signal.
func InstantaneousAmplitude(z []complex128) []float64 {
	amp := make([]float64, len(z))
	for i, v := range z {
		amp[i] = cmplx.Abs(v)
	}
	return amp
}

// InstantaneousPhase returns the unwrapped phase of the analytic signal.
func InstantaneousPhase(z []complex128) []float64 {
	phase := make([]float64, len(z))
	for i, v := range z {
		phase[i] = cmplx.Phase(v)
	}
	return unwrap(phase)
}

// InstantaneousFrequency differentiates the unwrapped phase into Hz. The
// result has one sample fewer than the input.
func InstantaneousFrequency(z []complex128, fs float64) []float64 {
	phase := InstantaneousPhase(z)
	freq := make([]float64, len(phase)-1)
	for i := 1; i < len(phase); i++ {
		freq[i-1] = (phase[i] - phase[i-1]) * fs / (2 * math.Pi)
	}
	return freq
}

// AnalyticSummary condenses one epoch channel into its mean instantaneous
// amplitude and mean instantaneous frequency.
func AnalyticSummary(x []float64, fs float64) (meanAmp, meanFreq float64, err error) {
	if len(x) < 2 {
		return 0, 0, fmt.Errorf("signal too short for analytic features: %d samples", len(x))
	}
	z := AnalyticSignal(x)

	amp := InstantaneousAmplitude(z)
	var ampSum float64
	for _, a := range amp {
		ampSum += a
	}
	meanAmp = ampSum / float64(len(amp))

	freq := InstantaneousFrequency(z, fs)
	var freqSum float64
	for _, f := range freq {
		freqSum += f
	}
	meanFreq = freqSum / float64(len(freq))

	return meanAmp, meanFreq, nil
}

// unwrap removes 2π discontinuities from a phase sequence in place.
func unwrap(phase []float64) []float64 {
	for i := 1; i < len(phase); i++ {
		d := phase[i] - phase[i-1]
		for d > math.Pi {
			phase[i] -= 2 * math.Pi
			d = phase[i] - phase[i-1]
		}
		for d < -math.Pi {
			phase[i] += 2 * math.Pi
			d = phase[i] - phase[i-1]
		}
	}
	return phase
}
