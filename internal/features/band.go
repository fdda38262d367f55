// Package features derives the per-epoch feature table consumed by downstream
// classifiers: relative spectral power per frequency band, band ratios,
// inter-channel differences, analytic-signal summaries, and per-class
// statistics.
package features

import (
	"fmt"
)

// Band is a half-open frequency interval (Low, High] in Hz.
type Band struct {
	Low  float64
	High float64
}

// Contains reports whether f falls inside the half-open interval.
func (b Band) Contains(f float64) bool {
	return f > b.Low && f <= b.High
}

func (b Band) String() string {
	return fmt.Sprintf("(%g,%g]", b.Low, b.High)
}

// columnName renders the band for flat export headers, e.g. "0.5-4hz".
func (b Band) columnName() string {
	return fmt.Sprintf("%g-%ghz", b.Low, b.High)
}

// PowerKey addresses one relative-power column: a channel crossed with a
// band. Using a comparable struct key instead of pasted strings makes typos a
// compile error rather than a silent missing column.
type PowerKey struct {
	Channel string
	Band    Band
}

// RatioKey addresses one band-ratio column.
type RatioKey struct {
	Channel     string
	Numerator   Band
	Denominator Band
}

// DiffKey addresses one channel-difference column: power in Band on ChannelA
// minus power in the same band on ChannelB.
type DiffKey struct {
	ChannelA string
	ChannelB string
	Band     Band
}

// BandsFromBoundaries turns an ordered boundary list [b0, b1, ..., bn] into
// the bands (b0,b1], (b1,b2], ..., (bn-1,bn].
func BandsFromBoundaries(boundaries []float64) ([]Band, error) {
	if len(boundaries) < 2 {
		return nil, fmt.Errorf("band boundary list needs at least two entries, got %d", len(boundaries))
	}
	bands := make([]Band, len(boundaries)-1)
	for i := 1; i < len(boundaries); i++ {
		if boundaries[i] <= boundaries[i-1] {
			return nil, fmt.Errorf("band boundaries must be strictly ascending: %g followed by %g",
				boundaries[i-1], boundaries[i])
		}
		bands[i-1] = Band{Low: boundaries[i-1], High: boundaries[i]}
	}
	return bands, nil
}

// ResolveBand maps a configured band name to its Band, using the parallel
// names/bands lists.
func ResolveBand(name string, names []string, bands []Band) (Band, error) {
	for i, n := range names {
		if n == name && i < len(bands) {
			return bands[i], nil
		}
	}
	return Band{}, fmt.Errorf("unknown band name %q", name)
}
