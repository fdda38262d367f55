// Package epoch segments continuous recordings into fixed-duration, labeled
// per-trial windows.
package epoch

import (
	"fmt"
	"sort"
	"time"

	"github.com/bciworks/epochlab/internal/recording"
	"go.uber.org/zap"
)

// Epoch is one extracted trial window: the event's label and start time plus
// a fixed-length slice of every configured channel. Immutable once built.
type Epoch struct {
	Index   int
	Label   string
	Start   float64
	Samples map[string][]float64
}

// Params configures extraction. Channels lists every channel to slice into
// each epoch, EEG and artifact channels alike.
type Params struct {
	TrialDuration time.Duration
	Channels      []string
}

// Extractor turns a recording plus its event list into epochs.
type Extractor struct {
	params Params
	logger *zap.SugaredLogger
}

// NewExtractor creates an Extractor with the given parameters.
func NewExtractor(params Params, logger *zap.SugaredLogger) *Extractor {
	return &Extractor{
		params: params,
		logger: logger,
	}
}

// Extract produces exactly one epoch per event, in event order. Each epoch's
// window is the half-open interval (start, start+duration]; samples whose
// timestamps fall inside it are copied per channel. A window running past the
// end of the recording produces a short epoch rather than an error; callers
// detect those with CheckLengths. Events outside the recording range and
// channels missing from the recording fail extraction outright.
func (e *Extractor) Extract(rec *recording.Recording, events []recording.Event) ([]Epoch, error) {
	if e.params.TrialDuration <= 0 {
		return nil, fmt.Errorf("trial duration must be positive, got %s", e.params.TrialDuration)
	}
	if len(e.params.Channels) == 0 {
		return nil, fmt.Errorf("no channels configured for extraction")
	}
	if err := rec.ValidateEvents(events); err != nil {
		return nil, err
	}

	series := make(map[string][]float64, len(e.params.Channels))
	for _, name := range e.params.Channels {
		s, err := rec.Channel(name)
		if err != nil {
			return nil, err
		}
		series[name] = s
	}

	index := rec.Index()
	duration := e.params.TrialDuration.Seconds()
	// Tolerance absorbs float jitter in the time axis without ever spanning a
	// full sample period.
	tol := 0.5 / rec.SampleRate() * 1e-3

	epochs := make([]Epoch, len(events))
	for i, ev := range events {
		lo := sort.SearchFloat64s(index, ev.Time+tol)
		hi := sort.SearchFloat64s(index, ev.Time+duration+tol)

		samples := make(map[string][]float64, len(series))
		for name, s := range series {
			window := make([]float64, hi-lo)
			copy(window, s[lo:hi])
			samples[name] = window
		}

		epochs[i] = Epoch{
			Index:   i,
			Label:   ev.Label,
			Start:   ev.Time,
			Samples: samples,
		}
	}

	if e.logger != nil {
		e.logger.Debugf("extracted %d epochs of %s from %d samples", len(epochs), e.params.TrialDuration, rec.Len())
	}
	return epochs, nil
}

// NominalLength returns the sample count of a fully covered epoch.
func NominalLength(sampleRate float64, trialDuration time.Duration) int {
	return int(trialDuration.Seconds() * sampleRate)
}

// LengthDefect flags an epoch whose channel slice came up short of the
// nominal length, usually because the recording ended mid-trial.
type LengthDefect struct {
	EpochIndex int
	Channel    string
	Got        int
	Want       int
}

func (d LengthDefect) Error() string {
	return fmt.Sprintf("epoch %d channel %q has %d samples, expected %d",
		d.EpochIndex, d.Channel, d.Got, d.Want)
}

// CheckLengths scans every epoch for channel slices shorter (or longer) than
// want and returns one defect per offending (epoch, channel) pair, ordered by
// epoch then channel name. An empty result means all epochs are full length.
func CheckLengths(epochs []Epoch, want int) []LengthDefect {
	var defects []LengthDefect
	for _, ep := range epochs {
		names := make([]string, 0, len(ep.Samples))
		for name := range ep.Samples {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if got := len(ep.Samples[name]); got != want {
				defects = append(defects, LengthDefect{
					EpochIndex: ep.Index,
					Channel:    name,
					Got:        got,
					Want:       want,
				})
			}
		}
	}
	return defects
}
