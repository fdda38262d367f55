package features

import (
	"fmt"

	"github.com/mjibson/go-dsp/spectral"
	"gonum.org/v1/gonum/floats"
)

// WelchParams tunes the Welch PSD estimate. Zero values take the estimator's
// defaults (256-sample segments, 50% overlap, Hann window).
type WelchParams struct {
	SegmentLength int
	Overlap       int
	Pad           int
}

// PowerSpectrum estimates the power spectral density of x via Welch's method.
func PowerSpectrum(x []float64, fs float64, p WelchParams) (pxx, freqs []float64) {
	opts := &spectral.PwelchOptions{
		NFFT:     p.SegmentLength,
		Pad:      p.Pad,
		Noverlap: p.Overlap,
	}
	return spectral.Pwelch(x, fs, opts)
}

// RelativeBandPower computes, for each band, the fraction of the signal's
// total spectral power falling inside it. The total is integrated over
// (cutoff.Low, cutoff.High] when cutoff is non-zero, otherwise over the full
// estimated spectrum. A signal with zero total power (flat zero input) is an
// arithmetic edge case and returns an error instead of a 0/0 quotient.
func RelativeBandPower(x []float64, fs float64, bands []Band, p WelchParams, cutoff Band) (map[Band]float64, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("empty signal")
	}
	pxx, freqs := PowerSpectrum(x, fs, p)

	limited := cutoff.High > cutoff.Low
	var total float64
	if limited {
		for i, f := range freqs {
			if cutoff.Contains(f) {
				total += pxx[i]
			}
		}
	} else {
		total = floats.Sum(pxx)
	}
	if total <= 0 {
		return nil, fmt.Errorf("zero total spectral power")
	}

	out := make(map[Band]float64, len(bands))
	for _, band := range bands {
		var sum float64
		for i, f := range freqs {
			if band.Contains(f) {
				sum += pxx[i]
			}
		}
		out[band] = sum / total
	}
	return out, nil
}
