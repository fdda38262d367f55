package features

import (
	"fmt"
	"math"

	"github.com/bciworks/epochlab/internal/epoch"
	"github.com/bciworks/epochlab/pkg/config"
	"go.uber.org/zap"
)

// RatioPolicy decides what happens when a band-ratio denominator is zero or
// near zero.
type RatioPolicy int

const (
	// RatioReject fails the aggregation, identifying the offending epoch,
	// channel, and ratio.
	RatioReject RatioPolicy = iota
	// RatioPropagate records the IEEE quotient (±Inf) and flags the row.
	RatioPropagate
)

// RatioPair is a resolved band-ratio specification, applied per EEG channel.
type RatioPair struct {
	Numerator   Band
	Denominator Band
}

// ChannelPair is the resolved lateralization pair.
type ChannelPair struct {
	A string
	B string
}

// Params carries everything the Aggregator needs; build it from a validated
// Config with ParamsFromConfig.
type Params struct {
	SampleRate  float64
	EEGChannels []string
	Bands       []Band
	Ratios      []RatioPair
	Diff        *ChannelPair
	Cutoff      Band
	Welch       WelchParams

	DenomEpsilon float64
	Policy       RatioPolicy

	Analytic bool
}

// ParamsFromConfig resolves a validated configuration into aggregation
// parameters, mapping band names to concrete intervals.
func ParamsFromConfig(cfg *config.Config) (Params, error) {
	bands, err := BandsFromBoundaries(cfg.BandBoundaries)
	if err != nil {
		return Params{}, err
	}

	ratios := make([]RatioPair, 0, len(cfg.RatioPairs))
	for _, rp := range cfg.RatioPairs {
		num, err := ResolveBand(rp.Numerator, cfg.BandNames, bands)
		if err != nil {
			return Params{}, fmt.Errorf("ratio pair: %w", err)
		}
		den, err := ResolveBand(rp.Denominator, cfg.BandNames, bands)
		if err != nil {
			return Params{}, fmt.Errorf("ratio pair: %w", err)
		}
		ratios = append(ratios, RatioPair{Numerator: num, Denominator: den})
	}

	var diff *ChannelPair
	if cfg.DiffPair != nil {
		diff = &ChannelPair{A: cfg.DiffPair.ChannelA, B: cfg.DiffPair.ChannelB}
	}

	policy := RatioReject
	if cfg.RatioPolicy == config.RatioPolicyPropagate {
		policy = RatioPropagate
	}

	eps := cfg.DenomEpsilon
	if eps == 0 {
		eps = 1e-12
	}

	return Params{
		SampleRate:  cfg.SampleRate,
		EEGChannels: cfg.EEGChannels,
		Bands:       bands,
		Ratios:      ratios,
		Diff:        diff,
		Cutoff:      Band{Low: cfg.SpectralCutoffLow, High: cfg.SpectralCutoffHigh},
		Welch: WelchParams{
			SegmentLength: cfg.Welch.SegmentLength,
			Overlap:       cfg.Welch.Overlap,
			Pad:           cfg.Welch.Pad,
		},
		DenomEpsilon: eps,
		Policy:       policy,
		Analytic:     cfg.AnalyticFeatures,
	}, nil
}

// Aggregator turns an epoch collection into the feature table.
type Aggregator struct {
	params Params
	logger *zap.SugaredLogger
}

// NewAggregator creates an Aggregator with the given parameters.
func NewAggregator(params Params, logger *zap.SugaredLogger) *Aggregator {
	return &Aggregator{
		params: params,
		logger: logger,
	}
}

// Aggregate computes one feature row per epoch: relative band power per EEG
// channel, configured band ratios, channel differences, and optional
// analytic-signal summaries. Deterministic for identical inputs. A channel
// named in the parameters but absent from the epoch data is a configuration
// error reported with the channel name; arithmetic edge cases follow the
// configured ratio policy.
func (a *Aggregator) Aggregate(epochs []epoch.Epoch) (*Table, error) {
	if len(a.params.EEGChannels) == 0 {
		return nil, fmt.Errorf("no EEG channels configured")
	}
	if len(a.params.Bands) == 0 {
		return nil, fmt.Errorf("no frequency bands configured")
	}

	table := &Table{}
	for _, ch := range a.params.EEGChannels {
		for _, band := range a.params.Bands {
			table.powerKeys = append(table.powerKeys, PowerKey{Channel: ch, Band: band})
		}
		for _, rp := range a.params.Ratios {
			table.ratioKeys = append(table.ratioKeys, RatioKey{
				Channel:     ch,
				Numerator:   rp.Numerator,
				Denominator: rp.Denominator,
			})
		}
	}
	if a.params.Diff != nil {
		for _, band := range a.params.Bands {
			table.diffKeys = append(table.diffKeys, DiffKey{
				ChannelA: a.params.Diff.A,
				ChannelB: a.params.Diff.B,
				Band:     band,
			})
		}
	}
	if a.params.Analytic {
		table.ampChans = a.params.EEGChannels
		table.freqChans = a.params.EEGChannels
	}

	table.Rows = make([]Row, 0, len(epochs))
	for _, ep := range epochs {
		row, err := a.aggregateEpoch(ep, table)
		if err != nil {
			return nil, err
		}
		table.Rows = append(table.Rows, row)
	}

	if a.logger != nil {
		a.logger.Debugf("aggregated %d epochs into %d feature columns",
			len(table.Rows), len(table.ColumnNames())-1)
	}
	return table, nil
}

func (a *Aggregator) aggregateEpoch(ep epoch.Epoch, table *Table) (Row, error) {
	row := Row{
		EpochIndex: ep.Index,
		Label:      ep.Label,
		Power:      make(map[PowerKey]float64),
		Ratios:     make(map[RatioKey]float64),
		Diffs:      make(map[DiffKey]float64),
	}
	if a.params.Analytic {
		row.MeanAmplitude = make(map[string]float64)
		row.MeanFrequency = make(map[string]float64)
	}

	power := make(map[string]map[Band]float64, len(a.params.EEGChannels))
	for _, ch := range a.params.EEGChannels {
		signal, ok := ep.Samples[ch]
		if !ok {
			return Row{}, fmt.Errorf("epoch %d: configured channel %q not present in epoch data", ep.Index, ch)
		}

		bp, err := RelativeBandPower(signal, a.params.SampleRate, a.params.Bands, a.params.Welch, a.params.Cutoff)
		if err != nil {
			return Row{}, fmt.Errorf("epoch %d channel %q: %w", ep.Index, ch, err)
		}
		power[ch] = bp
		for band, v := range bp {
			row.Power[PowerKey{Channel: ch, Band: band}] = v
		}

		if a.params.Analytic {
			meanAmp, meanFreq, err := AnalyticSummary(signal, a.params.SampleRate)
			if err != nil {
				return Row{}, fmt.Errorf("epoch %d channel %q: %w", ep.Index, ch, err)
			}
			row.MeanAmplitude[ch] = meanAmp
			row.MeanFrequency[ch] = meanFreq
		}
	}

	for _, key := range table.ratioKeys {
		num := power[key.Channel][key.Numerator]
		den := power[key.Channel][key.Denominator]
		if math.Abs(den) <= a.params.DenomEpsilon {
			if a.params.Policy == RatioReject {
				return Row{}, fmt.Errorf("epoch %d channel %q: ratio %s/%s denominator %g is below epsilon %g",
					ep.Index, key.Channel, key.Numerator, key.Denominator, den, a.params.DenomEpsilon)
			}
			row.Ratios[key] = math.Inf(sign(num))
			row.Flagged = true
			continue
		}
		row.Ratios[key] = num / den
	}

	for _, key := range table.diffKeys {
		pa, ok := power[key.ChannelA]
		if !ok {
			return Row{}, fmt.Errorf("epoch %d: difference pair channel %q not among EEG channels", ep.Index, key.ChannelA)
		}
		pb, ok := power[key.ChannelB]
		if !ok {
			return Row{}, fmt.Errorf("epoch %d: difference pair channel %q not among EEG channels", ep.Index, key.ChannelB)
		}
		row.Diffs[key] = pa[key.Band] - pb[key.Band]
	}

	return row, nil
}

func sign(v float64) int {
	if v < 0 {
		return -1
	}
	return 1
}
