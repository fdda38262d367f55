package features

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Row is one epoch's worth of features plus its class label.
type Row struct {
	EpochIndex int
	Label      string

	Power  map[PowerKey]float64
	Ratios map[RatioKey]float64
	Diffs  map[DiffKey]float64

	// MeanAmplitude and MeanFrequency hold analytic-signal summaries per EEG
	// channel when enabled.
	MeanAmplitude map[string]float64
	MeanFrequency map[string]float64

	// Flagged marks rows that carry a propagated arithmetic edge case (for
	// example an infinite band ratio) so aggregate consumers can exclude them.
	Flagged bool
}

// Table is the flat feature table: one row per epoch, deterministic column
// order for export. Built once by the Aggregator, read-only afterwards.
type Table struct {
	Rows []Row

	powerKeys []PowerKey
	ratioKeys []RatioKey
	diffKeys  []DiffKey
	ampChans  []string
	freqChans []string
}

// PowerKeys returns the power-bin columns in channel-major, band-ascending
// order.
func (t *Table) PowerKeys() []PowerKey { return t.powerKeys }

// RatioKeys returns the band-ratio columns in order.
func (t *Table) RatioKeys() []RatioKey { return t.ratioKeys }

// DiffKeys returns the channel-difference columns in order.
func (t *Table) DiffKeys() []DiffKey { return t.diffKeys }

// AnalyticChannels returns the channels carrying analytic-signal columns, in
// column order; empty when analytic features are disabled.
func (t *Table) AnalyticChannels() []string { return t.ampChans }

// ColumnNames returns every feature column header in export order, label
// column "y" last.
func (t *Table) ColumnNames() []string {
	var names []string
	for _, k := range t.powerKeys {
		names = append(names, fmt.Sprintf("%s_%s", k.Channel, k.Band.columnName()))
	}
	for _, k := range t.ratioKeys {
		names = append(names, fmt.Sprintf("%s_ratio_%s_%s", k.Channel, k.Numerator.columnName(), k.Denominator.columnName()))
	}
	for _, k := range t.diffKeys {
		names = append(names, fmt.Sprintf("diff_%s_%s_%s", k.ChannelA, k.ChannelB, k.Band.columnName()))
	}
	for _, ch := range t.ampChans {
		names = append(names, fmt.Sprintf("%s_mean_amplitude", ch))
	}
	for _, ch := range t.freqChans {
		names = append(names, fmt.Sprintf("%s_mean_frequency", ch))
	}
	names = append(names, "y")
	return names
}

// WriteCSV exports the table for external ML consumers: header row from
// ColumnNames, then one row per epoch in epoch order.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(t.ColumnNames()); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, row := range t.Rows {
		record := make([]string, 0, len(t.powerKeys)+len(t.ratioKeys)+len(t.diffKeys)+len(t.ampChans)+len(t.freqChans)+1)
		for _, k := range t.powerKeys {
			record = append(record, formatValue(row.Power[k]))
		}
		for _, k := range t.ratioKeys {
			record = append(record, formatValue(row.Ratios[k]))
		}
		for _, k := range t.diffKeys {
			record = append(record, formatValue(row.Diffs[k]))
		}
		for _, ch := range t.ampChans {
			record = append(record, formatValue(row.MeanAmplitude[ch]))
		}
		for _, ch := range t.freqChans {
			record = append(record, formatValue(row.MeanFrequency[ch]))
		}
		record = append(record, row.Label)
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row for epoch %d: %w", row.EpochIndex, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
