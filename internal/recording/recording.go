// Package recording models continuous multi-channel recordings and the trial
// events that annotate them.
package recording

import (
	"fmt"
)

// Recording is an immutable set of equal-length channel series sharing one
// monotonic time index in seconds.
type Recording struct {
	sampleRate float64
	names      []string
	channels   map[string][]float64
	index      []float64
}

// Event marks one trial onset: a timestamp in seconds paired with its class
// label. Events replace the positional marker/label pairing of raw datasets
// with an explicit, validated structure.
type Event struct {
	Time  float64
	Label string
}

// UnknownChannelError identifies a channel name that the recording does not
// contain.
type UnknownChannelError struct {
	Name string
}

func (e *UnknownChannelError) Error() string {
	return fmt.Sprintf("unknown channel %q", e.Name)
}

// New builds a Recording from named channel series. All series must have the
// same length. If index is nil a time axis is synthesized from the sample
// rate; otherwise it must match the series length and increase strictly.
func New(sampleRate float64, names []string, channels map[string][]float64, index []float64) (*Recording, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %g", sampleRate)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("recording needs at least one channel")
	}

	n := -1
	for _, name := range names {
		series, ok := channels[name]
		if !ok {
			return nil, &UnknownChannelError{Name: name}
		}
		if n == -1 {
			n = len(series)
		} else if len(series) != n {
			return nil, fmt.Errorf("channel %q has %d samples, expected %d", name, len(series), n)
		}
	}
	if n == 0 {
		return nil, fmt.Errorf("recording has no samples")
	}

	if index == nil {
		index = make([]float64, n)
		for i := range index {
			index[i] = float64(i) / sampleRate
		}
	} else {
		if len(index) != n {
			return nil, fmt.Errorf("time index has %d entries for %d samples", len(index), n)
		}
		for i := 1; i < len(index); i++ {
			if index[i] <= index[i-1] {
				return nil, fmt.Errorf("time index not strictly increasing at sample %d (%g after %g)",
					i, index[i], index[i-1])
			}
		}
	}

	return &Recording{
		sampleRate: sampleRate,
		names:      append([]string(nil), names...),
		channels:   channels,
		index:      index,
	}, nil
}

// SampleRate returns the recording sample rate in Hz.
func (r *Recording) SampleRate() float64 { return r.sampleRate }

// Names returns the channel names in declaration order.
func (r *Recording) Names() []string { return r.names }

// Len returns the per-channel sample count.
func (r *Recording) Len() int { return len(r.index) }

// Index returns the shared time axis in seconds.
func (r *Recording) Index() []float64 { return r.index }

// Duration returns the timestamp of the last sample in seconds.
func (r *Recording) Duration() float64 { return r.index[len(r.index)-1] }

// Channel returns the series for the named channel.
func (r *Recording) Channel(name string) ([]float64, error) {
	series, ok := r.channels[name]
	if !ok {
		return nil, &UnknownChannelError{Name: name}
	}
	return series, nil
}

// PairEvents zips onset timestamps with labels into explicit events. The two
// sequences must have equal length and the timestamps must increase strictly;
// any label outside classLabels is rejected. This is the validation gate that
// replaces the fragile i-th-marker/i-th-label convention.
func PairEvents(times []float64, labels []string, classLabels []string) ([]Event, error) {
	if len(times) != len(labels) {
		return nil, fmt.Errorf("event/label mismatch: %d trial onsets but %d labels", len(times), len(labels))
	}
	allowed := make(map[string]bool, len(classLabels))
	for _, l := range classLabels {
		allowed[l] = true
	}

	events := make([]Event, len(times))
	for i := range times {
		if i > 0 && times[i] <= times[i-1] {
			return nil, fmt.Errorf("event %d timestamp %gs not after event %d timestamp %gs",
				i, times[i], i-1, times[i-1])
		}
		if len(classLabels) > 0 && !allowed[labels[i]] {
			return nil, fmt.Errorf("event %d has unknown label %q", i, labels[i])
		}
		events[i] = Event{Time: times[i], Label: labels[i]}
	}
	return events, nil
}

// ValidateEvents rejects events whose timestamps fall outside the recording's
// time range. An out-of-range event is a data-quality defect in the input and
// fails the whole load rather than being dropped or clamped.
func (r *Recording) ValidateEvents(events []Event) error {
	start := r.index[0]
	end := r.index[len(r.index)-1]
	for i, ev := range events {
		if ev.Time < start || ev.Time > end {
			return fmt.Errorf("event %d (%q) at %gs is outside the recording range [%gs, %gs]",
				i, ev.Label, ev.Time, start, end)
		}
	}
	return nil
}
