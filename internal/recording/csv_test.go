package recording

import (
	"strings"
	"testing"
)

const sampleCSV = `time,C3,C4,start
0,0.1,0.2,1
0.004,0.3,0.4,0
0.008,0.5,0.6,0
0.012,0.7,0.8,1
0.016,0.9,1.0,0
`

func TestLoadCSV(t *testing.T) {
	rec, onsets, err := LoadCSV(strings.NewReader(sampleCSV), CSVOptions{
		SampleRate:   250,
		TimeColumn:   "time",
		MarkerColumn: "start",
	})
	if err != nil {
		t.Fatal(err)
	}

	if got := rec.Names(); len(got) != 2 || got[0] != "C3" || got[1] != "C4" {
		t.Errorf("expected channels [C3 C4], got %v", got)
	}
	if rec.Len() != 5 {
		t.Errorf("expected 5 samples, got %d", rec.Len())
	}

	c4, err := rec.Channel("C4")
	if err != nil {
		t.Fatal(err)
	}
	if c4[2] != 0.6 {
		t.Errorf("expected C4[2] = 0.6, got %g", c4[2])
	}

	if len(onsets) != 2 || onsets[0] != 0 || onsets[1] != 0.012 {
		t.Errorf("expected onsets [0 0.012], got %v", onsets)
	}
}

func TestLoadCSVSynthesizedTime(t *testing.T) {
	csv := "C3,start\n1,0\n2,1\n3,0\n"
	rec, onsets, err := LoadCSV(strings.NewReader(csv), CSVOptions{
		SampleRate:   250,
		MarkerColumn: "start",
	})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Len() != 3 {
		t.Errorf("expected 3 samples, got %d", rec.Len())
	}
	// Onset at row 1: 1/250 seconds
	if len(onsets) != 1 || onsets[0] != 1.0/250 {
		t.Errorf("expected onset at %g, got %v", 1.0/250, onsets)
	}
}

func TestLoadCSVMarkerHeldHigh(t *testing.T) {
	// Raw exports often hold the marker high for the whole cue window; only
	// the rising edge is a trial onset.
	csv := `time,C3,start
0,0.1,0
0.004,0.2,1
0.008,0.3,1
0.012,0.4,1
0.016,0.5,0
0.020,0.6,1
0.024,0.7,1
`
	_, onsets, err := LoadCSV(strings.NewReader(csv), CSVOptions{
		SampleRate:   250,
		TimeColumn:   "time",
		MarkerColumn: "start",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(onsets) != 2 || onsets[0] != 0.004 || onsets[1] != 0.020 {
		t.Errorf("expected onsets [0.004 0.020], got %v", onsets)
	}
}

func TestLoadCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		opts CSVOptions
	}{
		{
			name: "missing time column",
			csv:  "C3\n1\n",
			opts: CSVOptions{SampleRate: 250, TimeColumn: "time"},
		},
		{
			name: "missing marker column",
			csv:  "C3\n1\n",
			opts: CSVOptions{SampleRate: 250, MarkerColumn: "start"},
		},
		{
			name: "bad numeric value",
			csv:  "C3\n1\nnope\n",
			opts: CSVOptions{SampleRate: 250},
		},
		{
			name: "no channels",
			csv:  "time\n0\n",
			opts: CSVOptions{SampleRate: 250, TimeColumn: "time"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := LoadCSV(strings.NewReader(tt.csv), tt.opts); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoadLabels(t *testing.T) {
	labels, err := LoadLabels(strings.NewReader("left\nright\n\nleft\n"))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"left", "right", "left"}
	if len(labels) != len(want) {
		t.Fatalf("expected %d labels, got %d", len(want), len(labels))
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Errorf("label %d = %q, want %q", i, labels[i], want[i])
		}
	}
}
