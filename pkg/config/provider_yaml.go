package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// yamlConfig mirrors Config with YAML-friendly field types. Durations are
// strings ("4s") and get parsed during conversion.
type yamlConfig struct {
	SampleRate         float64       `yaml:"sample_rate"`
	EEGChannels        []string      `yaml:"eeg_channels"`
	ArtifactChannels   []string      `yaml:"artifact_channels"`
	ClassLabels        []string      `yaml:"class_labels"`
	TrialDuration      string        `yaml:"trial_duration"`
	BandBoundaries     []float64     `yaml:"band_boundaries"`
	BandNames          []string      `yaml:"band_names"`
	RatioPairs         []RatioSpec   `yaml:"ratio_pairs"`
	DiffPair           *DiffSpec     `yaml:"diff_pair"`
	SpectralCutoffLow  float64       `yaml:"spectral_cutoff_low"`
	SpectralCutoffHigh float64       `yaml:"spectral_cutoff_high"`
	DenomEpsilon       *float64      `yaml:"denom_epsilon"`
	RatioPolicy        string        `yaml:"ratio_policy"`
	AnalyticFeatures   bool          `yaml:"analytic_features"`
	Welch              WelchSettings `yaml:"welch"`
	TimeColumn         string        `yaml:"time_column"`
	MarkerColumn       string        `yaml:"marker_column"`
}

// Load reads a YAML configuration file, fills unset fields from Default, and
// validates the result.
func Load(filename string) (*Config, error) {
	cfgFile, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(cfgFile, &yc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := Default()
	if yc.SampleRate != 0 {
		cfg.SampleRate = yc.SampleRate
	}
	if yc.EEGChannels != nil {
		cfg.EEGChannels = yc.EEGChannels
		// A custom channel list invalidates the default lateralization pair
		// unless the file restates it.
		cfg.DiffPair = nil
	}
	if yc.ArtifactChannels != nil {
		cfg.ArtifactChannels = yc.ArtifactChannels
	}
	if yc.ClassLabels != nil {
		cfg.ClassLabels = yc.ClassLabels
	}
	if yc.TrialDuration != "" {
		d, err := time.ParseDuration(yc.TrialDuration)
		if err != nil {
			return nil, fmt.Errorf("invalid trial_duration %q: %w", yc.TrialDuration, err)
		}
		cfg.TrialDuration = d
	}
	if yc.BandBoundaries != nil {
		cfg.BandBoundaries = yc.BandBoundaries
		// A custom boundary list invalidates the default names and ratios
		// unless the file restates them.
		cfg.BandNames = yc.BandNames
		cfg.RatioPairs = yc.RatioPairs
	} else {
		if yc.BandNames != nil {
			cfg.BandNames = yc.BandNames
		}
		if yc.RatioPairs != nil {
			cfg.RatioPairs = yc.RatioPairs
		}
	}
	if yc.DiffPair != nil {
		cfg.DiffPair = yc.DiffPair
	}
	cfg.SpectralCutoffLow = yc.SpectralCutoffLow
	cfg.SpectralCutoffHigh = yc.SpectralCutoffHigh
	if yc.DenomEpsilon != nil {
		cfg.DenomEpsilon = *yc.DenomEpsilon
	}
	if yc.RatioPolicy != "" {
		cfg.RatioPolicy = yc.RatioPolicy
	}
	cfg.AnalyticFeatures = yc.AnalyticFeatures
	cfg.Welch = yc.Welch
	if yc.TimeColumn != "" {
		cfg.TimeColumn = yc.TimeColumn
	}
	if yc.MarkerColumn != "" {
		cfg.MarkerColumn = yc.MarkerColumn
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
