package recording

import (
	"fmt"
	"io"
	"os"

	"github.com/OpenPSG/edf"
)

// LoadEDF reads a continuous recording from an EDF/EDF+ file. The reader
// exposes signals by index, so names[i] assigns the channel name of the i-th
// EDF signal; the caller supplies the sample rate it expects the file to
// carry. EDF files hold no trial annotations in this pipeline; events arrive
// through the same label-file path as CSV recordings.
func LoadEDF(r io.ReadSeeker, names []string, sampleRate float64) (*Recording, error) {
	reader, err := edf.Open(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open EDF recording: %w", err)
	}

	channels := make(map[string][]float64, len(names))
	for i, name := range names {
		sig, err := reader.Signal(i)
		if err != nil {
			return nil, fmt.Errorf("EDF recording has no signal %d for channel %q: %w", i, name, err)
		}

		var series []float64
		buf := make([]float64, 4096)
		for {
			n, err := sig.Read(buf)
			if n > 0 {
				series = append(series, buf[:n]...)
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("failed to read EDF signal %q: %w", name, err)
			}
		}
		channels[name] = series
	}

	return New(sampleRate, names, channels, nil)
}

// LoadEDFRecording loads a recording from an EDF file and its events from a
// label file paired with onset timestamps read from a marker channel named in
// opts.MarkerColumn (a square-pulse channel in the EDF signal set).
func LoadEDFRecording(recordingPath, labelsPath string, names []string, opts CSVOptions, classLabels []string) (*Recording, []Event, error) {
	f, err := os.Open(recordingPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open recording: %w", err)
	}
	defer f.Close()

	all := names
	if opts.MarkerColumn != "" {
		all = append(append([]string(nil), names...), opts.MarkerColumn)
	}

	rec, err := LoadEDF(f, all, opts.SampleRate)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load %s: %w", recordingPath, err)
	}

	var onsets []float64
	if opts.MarkerColumn != "" {
		marker, err := rec.Channel(opts.MarkerColumn)
		if err != nil {
			return nil, nil, err
		}
		index := rec.Index()
		for i, v := range marker {
			// Rising edge of the marker pulse is the trial onset.
			if v > 0.5 && (i == 0 || marker[i-1] <= 0.5) {
				onsets = append(onsets, index[i])
			}
		}
		// Re-wrap without the marker channel so it never shows up as data.
		channels := make(map[string][]float64, len(names))
		for _, name := range names {
			series, err := rec.Channel(name)
			if err != nil {
				return nil, nil, err
			}
			channels[name] = series
		}
		rec, err = New(opts.SampleRate, names, channels, nil)
		if err != nil {
			return nil, nil, err
		}
	}

	lf, err := os.Open(labelsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open labels: %w", err)
	}
	defer lf.Close()

	labels, err := LoadLabels(lf)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load %s: %w", labelsPath, err)
	}

	events, err := PairEvents(onsets, labels, classLabels)
	if err != nil {
		return nil, nil, err
	}
	if err := rec.ValidateEvents(events); err != nil {
		return nil, nil, err
	}
	return rec, events, nil
}
