package features

import (
	"math"
	"testing"
)

func TestAnalyticSummarySine(t *testing.T) {
	// A unit sine with an integer number of cycles has envelope 1 and
	// instantaneous frequency equal to its oscillation frequency.
	const fs = 250.0
	const freq = 10.0
	x := sine(freq, fs, 1000) // exactly 40 cycles

	meanAmp, meanFreq, err := AnalyticSummary(x, fs)
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(meanAmp-1.0) > 0.02 {
		t.Errorf("mean amplitude = %g, want ~1.0", meanAmp)
	}
	if math.Abs(meanFreq-freq) > 0.2 {
		t.Errorf("mean frequency = %g, want ~%g", meanFreq, freq)
	}
}

func TestAnalyticSummaryScaledAmplitude(t *testing.T) {
	const fs = 250.0
	x := sine(10, fs, 1000)
	for i := range x {
		x[i] *= 3.5
	}

	meanAmp, _, err := AnalyticSummary(x, fs)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(meanAmp-3.5) > 0.07 {
		t.Errorf("mean amplitude = %g, want ~3.5", meanAmp)
	}
}

func TestAnalyticSummaryTooShort(t *testing.T) {
	if _, _, err := AnalyticSummary([]float64{1}, 250); err == nil {
		t.Error("expected error for a one-sample signal")
	}
}

func TestInstantaneousAmplitudeEnvelope(t *testing.T) {
	// Amplitude-modulated carrier: envelope should track the modulation.
	const fs = 250.0
	n := 1000
	x := make([]float64, n)
	for i := range x {
		ti := float64(i) / fs
		envelope := 1 + 0.5*math.Sin(2*math.Pi*0.5*ti)
		x[i] = envelope * math.Sin(2*math.Pi*20*ti)
	}

	amp := InstantaneousAmplitude(AnalyticSignal(x))

	// Compare away from the edges where the FFT method rings.
	for i := 100; i < n-100; i += 50 {
		ti := float64(i) / fs
		want := 1 + 0.5*math.Sin(2*math.Pi*0.5*ti)
		if math.Abs(amp[i]-want) > 0.1 {
			t.Errorf("envelope at sample %d = %g, want ~%g", i, amp[i], want)
		}
	}
}

func TestUnwrap(t *testing.T) {
	// A phase ramp wrapped into (-π, π] should come back continuous.
	n := 100
	wrapped := make([]float64, n)
	for i := range wrapped {
		phase := 0.5 * float64(i)
		wrapped[i] = math.Atan2(math.Sin(phase), math.Cos(phase))
	}

	un := unwrap(wrapped)
	for i := 1; i < n; i++ {
		d := un[i] - un[i-1]
		if math.Abs(d-0.5) > 1e-9 {
			t.Fatalf("unwrapped phase step at %d = %g, want 0.5", i, d)
		}
	}
}
