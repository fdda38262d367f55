// Package config defines the analysis configuration for the epochlab pipeline.
package config

import (
	"fmt"
	"time"
)

// Ratio policy values for the band-ratio division edge case.
const (
	RatioPolicyReject    = "reject"
	RatioPolicyPropagate = "propagate"
)

// RatioSpec names a pair of frequency bands whose power quotient becomes a
// derived feature, computed per EEG channel.
type RatioSpec struct {
	Numerator   string `yaml:"numerator"`
	Denominator string `yaml:"denominator"`
}

// DiffSpec names the channel pair used for lateralization (spatial difference)
// features.
type DiffSpec struct {
	ChannelA string `yaml:"channel_a"`
	ChannelB string `yaml:"channel_b"`
}

// WelchSettings controls the Welch PSD estimator. Zero values defer to the
// estimator's defaults.
type WelchSettings struct {
	SegmentLength int `yaml:"segment_length,omitempty"`
	Overlap       int `yaml:"overlap,omitempty"`
	Pad           int `yaml:"pad,omitempty"`
}

// Config holds every tunable of the pipeline. The recording loaders, the epoch
// extractor and the feature aggregator all take their parameters from here;
// nothing reads package-level constants.
type Config struct {
	// SampleRate is the recording sample rate in Hz.
	SampleRate float64 `yaml:"sample_rate"`

	// EEGChannels are the channels that contribute spectral features.
	EEGChannels []string `yaml:"eeg_channels"`

	// ArtifactChannels (EOG etc.) are loaded and epoched but excluded from
	// spectral features.
	ArtifactChannels []string `yaml:"artifact_channels,omitempty"`

	// ClassLabels is the closed set of trial labels. Every event label must be
	// one of these, and per-class statistics are computed for each of them.
	ClassLabels []string `yaml:"class_labels"`

	// TrialDuration is the length of each extracted epoch.
	TrialDuration time.Duration `yaml:"trial_duration"`

	// BandBoundaries is the ordered boundary list [b0, b1, ..., bn] defining
	// half-open bands (b0,b1], (b1,b2], ...
	BandBoundaries []float64 `yaml:"band_boundaries"`

	// BandNames optionally names each band, in order. Required when RatioPairs
	// reference bands by name. Length must be len(BandBoundaries)-1 when set.
	BandNames []string `yaml:"band_names,omitempty"`

	// RatioPairs are the derived band-ratio features, applied per EEG channel.
	RatioPairs []RatioSpec `yaml:"ratio_pairs,omitempty"`

	// DiffPair is the channel pair for per-band difference features.
	DiffPair *DiffSpec `yaml:"diff_pair,omitempty"`

	// SpectralCutoff limits the analyzed bandwidth [low, high] Hz for total
	// power. Zero values mean the full estimated spectrum.
	SpectralCutoffLow  float64 `yaml:"spectral_cutoff_low,omitempty"`
	SpectralCutoffHigh float64 `yaml:"spectral_cutoff_high,omitempty"`

	// DenomEpsilon is the near-zero threshold for ratio denominators.
	DenomEpsilon float64 `yaml:"denom_epsilon,omitempty"`

	// RatioPolicy decides what a near-zero denominator does: "reject" fails the
	// aggregation with the offending epoch/channel identified, "propagate"
	// records the IEEE quotient and flags the row.
	RatioPolicy string `yaml:"ratio_policy,omitempty"`

	// AnalyticFeatures enables the analytic-signal (instantaneous amplitude and
	// frequency) feature columns.
	AnalyticFeatures bool `yaml:"analytic_features,omitempty"`

	// Welch tunes the PSD estimator.
	Welch WelchSettings `yaml:"welch,omitempty"`

	// TimeColumn and MarkerColumn locate the time axis and the trial-onset
	// marker in CSV recordings. An empty TimeColumn synthesizes the axis from
	// SampleRate.
	TimeColumn   string `yaml:"time_column,omitempty"`
	MarkerColumn string `yaml:"marker_column,omitempty"`
}

// Default returns the configuration matching the BCI Competition IV 2b
// motor-imagery setup: three EEG channels and three EOG channels sampled at
// 250 Hz, four-second trials, and the classic delta/theta/alpha/beta bands.
func Default() *Config {
	return &Config{
		SampleRate:       250,
		EEGChannels:      []string{"C3", "Cz", "C4"},
		ArtifactChannels: []string{"EOG:ch01", "EOG:ch02", "EOG:ch03"},
		ClassLabels:      []string{"left", "right"},
		TrialDuration:    4 * time.Second,
		BandBoundaries:   []float64{0.5, 4, 7, 12, 30},
		BandNames:        []string{"delta", "theta", "alpha", "beta"},
		RatioPairs: []RatioSpec{
			{Numerator: "theta", Denominator: "beta"},
		},
		DiffPair:     &DiffSpec{ChannelA: "C3", ChannelB: "C4"},
		DenomEpsilon: 1e-12,
		RatioPolicy:  RatioPolicyReject,
		MarkerColumn: "start",
	}
}

// Channels returns all configured channel names, EEG first, in declaration
// order.
func (c *Config) Channels() []string {
	out := make([]string, 0, len(c.EEGChannels)+len(c.ArtifactChannels))
	out = append(out, c.EEGChannels...)
	out = append(out, c.ArtifactChannels...)
	return out
}

// NominalEpochLength returns the expected per-channel sample count of a fully
// covered epoch.
func (c *Config) NominalEpochLength() int {
	return int(c.TrialDuration.Seconds() * c.SampleRate)
}

// Validate checks the configuration and fails fast on the first problem,
// naming the offending field or key.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %g", c.SampleRate)
	}
	if len(c.EEGChannels) == 0 {
		return fmt.Errorf("eeg_channels must name at least one channel")
	}
	seen := make(map[string]bool)
	for _, ch := range c.Channels() {
		if ch == "" {
			return fmt.Errorf("channel names must be non-empty")
		}
		if seen[ch] {
			return fmt.Errorf("duplicate channel name %q", ch)
		}
		seen[ch] = true
	}
	if len(c.ClassLabels) == 0 {
		return fmt.Errorf("class_labels must name at least one label")
	}
	if c.TrialDuration <= 0 {
		return fmt.Errorf("trial_duration must be positive, got %s", c.TrialDuration)
	}
	if len(c.BandBoundaries) < 2 {
		return fmt.Errorf("band_boundaries needs at least two boundaries, got %d", len(c.BandBoundaries))
	}
	for i := 1; i < len(c.BandBoundaries); i++ {
		if c.BandBoundaries[i] <= c.BandBoundaries[i-1] {
			return fmt.Errorf("band_boundaries must be strictly ascending: %g followed by %g",
				c.BandBoundaries[i-1], c.BandBoundaries[i])
		}
	}
	if len(c.BandNames) > 0 && len(c.BandNames) != len(c.BandBoundaries)-1 {
		return fmt.Errorf("band_names has %d entries for %d bands",
			len(c.BandNames), len(c.BandBoundaries)-1)
	}
	for _, rp := range c.RatioPairs {
		if !c.hasBandName(rp.Numerator) {
			return fmt.Errorf("ratio_pairs references unknown band %q", rp.Numerator)
		}
		if !c.hasBandName(rp.Denominator) {
			return fmt.Errorf("ratio_pairs references unknown band %q", rp.Denominator)
		}
	}
	if c.DiffPair != nil {
		if !c.hasEEGChannel(c.DiffPair.ChannelA) {
			return fmt.Errorf("diff_pair references unknown EEG channel %q", c.DiffPair.ChannelA)
		}
		if !c.hasEEGChannel(c.DiffPair.ChannelB) {
			return fmt.Errorf("diff_pair references unknown EEG channel %q", c.DiffPair.ChannelB)
		}
	}
	switch c.RatioPolicy {
	case "", RatioPolicyReject, RatioPolicyPropagate:
	default:
		return fmt.Errorf("ratio_policy must be %q or %q, got %q",
			RatioPolicyReject, RatioPolicyPropagate, c.RatioPolicy)
	}
	if c.DenomEpsilon < 0 {
		return fmt.Errorf("denom_epsilon must not be negative, got %g", c.DenomEpsilon)
	}
	if c.SpectralCutoffHigh != 0 && c.SpectralCutoffHigh <= c.SpectralCutoffLow {
		return fmt.Errorf("spectral_cutoff_high (%g) must exceed spectral_cutoff_low (%g)",
			c.SpectralCutoffHigh, c.SpectralCutoffLow)
	}
	return nil
}

func (c *Config) hasBandName(name string) bool {
	for _, n := range c.BandNames {
		if n == name {
			return true
		}
	}
	return false
}

func (c *Config) hasEEGChannel(name string) bool {
	for _, ch := range c.EEGChannels {
		if ch == name {
			return true
		}
	}
	return false
}
