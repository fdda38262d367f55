package recording

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// CSVOptions controls how a continuous CSV recording is interpreted.
type CSVOptions struct {
	// SampleRate in Hz. Required; also used to synthesize the time axis when
	// TimeColumn is empty.
	SampleRate float64

	// TimeColumn names the column carrying timestamps in seconds. Empty means
	// the axis is synthesized from SampleRate.
	TimeColumn string

	// MarkerColumn names the column whose rising edges mark trial onsets.
	// Empty means the file carries no events.
	MarkerColumn string
}

// LoadCSV parses a continuous recording from CSV. The header row names the
// columns; every column that is not the time or marker column becomes a
// channel. Returns the recording and the onset timestamps detected as rising
// edges of the marker column, in order.
func LoadCSV(r io.Reader, opts CSVOptions) (*Recording, []float64, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	timeCol := -1
	markerCol := -1
	var names []string
	colIndex := make(map[int]string)
	for i, name := range header {
		name = strings.TrimSpace(name)
		switch {
		case opts.TimeColumn != "" && name == opts.TimeColumn:
			timeCol = i
		case opts.MarkerColumn != "" && name == opts.MarkerColumn:
			markerCol = i
		default:
			names = append(names, name)
			colIndex[i] = name
		}
	}
	if opts.TimeColumn != "" && timeCol == -1 {
		return nil, nil, fmt.Errorf("time column %q not found in CSV header", opts.TimeColumn)
	}
	if opts.MarkerColumn != "" && markerCol == -1 {
		return nil, nil, fmt.Errorf("marker column %q not found in CSV header", opts.MarkerColumn)
	}
	if len(names) == 0 {
		return nil, nil, fmt.Errorf("CSV has no channel columns")
	}

	channels := make(map[string][]float64, len(names))
	for _, name := range names {
		channels[name] = nil
	}
	var index []float64
	var onsets []float64
	prevMarker := 0.0

	row := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read CSV row %d: %w", row+2, err)
		}

		var t float64
		if timeCol >= 0 {
			t, err = strconv.ParseFloat(strings.TrimSpace(record[timeCol]), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("bad timestamp at row %d: %w", row+2, err)
			}
			index = append(index, t)
		} else {
			t = float64(row) / opts.SampleRate
		}

		if markerCol >= 0 {
			m, err := strconv.ParseFloat(strings.TrimSpace(record[markerCol]), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("bad marker value at row %d: %w", row+2, err)
			}
			// Rising edge of the marker pulse is the trial onset; a marker
			// held high across the cue window is still one trial.
			if m > 0.5 && prevMarker <= 0.5 {
				onsets = append(onsets, t)
			}
			prevMarker = m
		}

		for i, name := range colIndex {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("bad value in channel %q at row %d: %w", name, row+2, err)
			}
			channels[name] = append(channels[name], v)
		}
		row++
	}

	if timeCol == -1 {
		index = nil // synthesized by New
	}

	rec, err := New(opts.SampleRate, names, channels, index)
	if err != nil {
		return nil, nil, err
	}
	return rec, onsets, nil
}

// LoadLabels reads one trial label per line, skipping blank lines.
func LoadLabels(r io.Reader) ([]string, error) {
	var labels []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		labels = append(labels, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	return labels, nil
}

// LoadCSVRecording loads a recording and its events from a CSV file plus a
// label file, validating the pairing and the event range.
func LoadCSVRecording(recordingPath, labelsPath string, opts CSVOptions, classLabels []string) (*Recording, []Event, error) {
	f, err := os.Open(recordingPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open recording: %w", err)
	}
	defer f.Close()

	rec, onsets, err := LoadCSV(f, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load %s: %w", recordingPath, err)
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
