package features

import (
	"math"
	"testing"
)

func makeTable(powerKey PowerKey, byLabel map[string][]float64) *Table {
	t := &Table{powerKeys: []PowerKey{powerKey}}
	idx := 0
	for _, label := range []string{"left", "right"} {
		for _, v := range byLabel[label] {
			t.Rows = append(t.Rows, Row{
				EpochIndex: idx,
				Label:      label,
				Power:      map[PowerKey]float64{powerKey: v},
			})
			idx++
		}
	}
	return t
}

func TestClassStats(t *testing.T) {
	key := PowerKey{Channel: "C3", Band: Band{Low: 7, High: 12}}
	table := makeTable(key, map[string][]float64{
		"left":  {0.2, 0.4, 0.6},
		"right": {0.1, 0.3},
	})

	stats, err := table.ClassStats([]string{"left", "right"})
	if err != nil {
		t.Fatal(err)
	}

	left := stats[key]["left"]
	if left.Count != 3 {
		t.Errorf("left count = %d, want 3", left.Count)
	}
	if math.Abs(left.Mean-0.4) > 1e-12 {
		t.Errorf("left mean = %g, want 0.4", left.Mean)
	}
	// Population std of {0.2,0.4,0.6} is sqrt(0.08/3); SEM divides by sqrt(3).
	wantSEM := math.Sqrt(0.08/3) / math.Sqrt(3)
	if math.Abs(left.StdErr-wantSEM) > 1e-12 {
		t.Errorf("left SEM = %g, want %g", left.StdErr, wantSEM)
	}

	right := stats[key]["right"]
	if right.Count != 2 || math.Abs(right.Mean-0.2) > 1e-12 {
		t.Errorf("right stats = %+v", right)
	}
}

func TestClassStatsMatchesTwoPass(t *testing.T) {
	// The streaming accumulator and the two-pass gonum computation must agree
	// within floating-point tolerance.
	key := PowerKey{Channel: "Cz", Band: Band{Low: 4, High: 7}}
	values := []float64{0.11, 0.32, 0.27, 0.45, 0.08, 0.39, 0.21}
	table := makeTable(key, map[string][]float64{"left": values, "right": {0.5}})

	stats, err := table.ClassStats([]string{"left", "right"})
	if err != nil {
		t.Fatal(err)
	}

	streaming := stats[key]["left"]
	twoPass := ColumnStats(values, "left")

	if math.Abs(streaming.Mean-twoPass.Mean) > 1e-12 {
		t.Errorf("means disagree: streaming %g, two-pass %g", streaming.Mean, twoPass.Mean)
	}
	if math.Abs(streaming.StdErr-twoPass.StdErr) > 1e-12 {
		t.Errorf("SEMs disagree: streaming %g, two-pass %g", streaming.StdErr, twoPass.StdErr)
	}
}

func TestClassStatsEmptyPartition(t *testing.T) {
	key := PowerKey{Channel: "C3", Band: Band{Low: 7, High: 12}}
	table := makeTable(key, map[string][]float64{"left": {0.2, 0.4}})

	// "right" is configured but has no epochs: SEM would be 0/0.
	if _, err := table.ClassStats([]string{"left", "right"}); err == nil {
		t.Error("expected error for an empty class partition")
	}
}

func TestClassStatsUnknownLabel(t *testing.T) {
	key := PowerKey{Channel: "C3", Band: Band{Low: 7, High: 12}}
	table := makeTable(key, map[string][]float64{"left": {0.2}, "right": {0.3}})

	if _, err := table.ClassStats([]string{"left"}); err == nil {
		t.Error("expected error when a row's label is not a configured class")
	}
}

func TestClassStatsSkipsFlaggedRows(t *testing.T) {
	key := PowerKey{Channel: "C3", Band: Band{Low: 7, High: 12}}
	table := makeTable(key, map[string][]float64{"left": {0.2, 0.4}, "right": {0.3}})
	table.Rows = append(table.Rows, Row{
		EpochIndex: 99,
		Label:      "left",
		Power:      map[PowerKey]float64{key: math.Inf(1)},
		Flagged:    true,
	})

	stats, err := table.ClassStats([]string{"left", "right"})
	if err != nil {
		t.Fatal(err)
	}
	left := stats[key]["left"]
	if left.Count != 2 {
		t.Errorf("flagged row should be excluded: count = %d, want 2", left.Count)
	}
	if math.IsInf(left.Mean, 0) || math.IsNaN(left.Mean) {
		t.Errorf("flagged row leaked into the mean: %g", left.Mean)
	}
}

func TestClassStatsNoClasses(t *testing.T) {
	table := &Table{}
	if _, err := table.ClassStats(nil); err == nil {
		t.Error("expected error for empty class list")
	}
}
