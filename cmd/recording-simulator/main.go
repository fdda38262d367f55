// Command recording-simulator generates synthetic motor-imagery recordings
// for end-to-end testing: per-trial sine mixtures with class-dependent
// lateralization, a trial-onset marker, and a matching label file. Output is
// CSV or EDF.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/OpenPSG/edf"
)

// trialEmulator produces one channel's samples for a trial of a given class.
// Motor imagery suppresses the alpha/mu rhythm over the contralateral
// hemisphere; the emulator mimics that by attenuating the 10 Hz component on
// the channel opposite the imagined hand.
type trialEmulator struct {
	sampleRate float64
	rng        *rand.Rand
}

func (t *trialEmulator) sample(channel, label string, ti float64) float64 {
	mu := 1.0
	if (label == "left" && channel == "C4") || (label == "right" && channel == "C3") {
		mu = 0.3
	}
	v := mu * math.Sin(2*math.Pi*10*ti)
	v += 0.5 * math.Sin(2*math.Pi*22*ti)
	v += 0.3 * math.Sin(2*math.Pi*5*ti)
	v += (t.rng.Float64() - 0.5) * 0.2
	if strings.HasPrefix(channel, "EOG") {
		// Slow drift dominates the ocular channels.
		v = 2*math.Sin(2*math.Pi*0.3*ti) + (t.rng.Float64()-0.5)*0.5
	}
	return v
}

func main() {
	var (
		out       = flag.String("out", "recording.csv", "Output recording path")
		labelsOut = flag.String("labels-out", "labels.txt", "Output label file path")
		format    = flag.String("format", "csv", "Output format: csv or edf")
		rate      = flag.Float64("rate", 250, "Sample rate in Hz")
		trials    = flag.Int("trials", 20, "Number of trials")
		trialSec  = flag.Float64("trial-duration", 4, "Trial duration in seconds")
		restSec   = flag.Float64("rest-duration", 2, "Inter-trial rest in seconds")
		seed      = flag.Int64("seed", 0, "Random seed (0 uses the current time)")
	)
	flag.Parse()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	em := &trialEmulator{sampleRate: *rate, rng: rand.New(rand.NewSource(*seed))}

	channels := []string{"C3", "Cz", "C4", "EOG:ch01", "EOG:ch02", "EOG:ch03"}
	classes := []string{"left", "right"}

	trialSamples := int(*trialSec * *rate)
	restSamples := int(*restSec * *rate)
	total := *trials*(trialSamples+restSamples) + restSamples

	// Lay out the session: rest, trial, rest, trial, ...
	labels := make([]string, *trials)
	marker := make([]float64, total)
	onsetSample := make([]int, *trials)
	pos := restSamples
	for i := 0; i < *trials; i++ {
		labels[i] = classes[em.rng.Intn(len(classes))]
		onsetSample[i] = pos
		marker[pos] = 1
		pos += trialSamples + restSamples
	}

	data := make(map[string][]float64, len(channels))
	for _, ch := range channels {
		series := make([]float64, total)
		trial := -1
		for i := 0; i < total; i++ {
			if trial+1 < *trials && i >= onsetSample[trial+1] {
				trial++
			}
			label := ""
			if trial >= 0 && i < onsetSample[trial]+trialSamples {
				label = labels[trial]
			}
			ti := float64(i) / *rate
			if label == "" {
				// Rest: background rhythm only, no lateralization.
				series[i] = em.sample(ch, "rest", ti) * 0.5
			} else {
				series[i] = em.sample(ch, label, ti)
			}
		}
		data[ch] = series
	}

	var err error
	switch *format {
	case "csv":
		err = writeCSV(*out, channels, data, marker, total, *rate)
	case "edf":
		err = writeEDF(*out, channels, data, marker, total, *rate)
	default:
		fmt.Fprintf(os.Stderr, "unknown format %q\n", *format)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error writing recording: %v\n", err)
		os.Exit(1)
	}

	if err := writeLabels(*labelsOut, labels); err != nil {
		fmt.Fprintf(os.Stderr, "error writing labels: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("wrote %d samples (%d trials) to %s, labels to %s\n", total, *trials, *out, *labelsOut)
}

func writeCSV(path string, channels []string, data map[string][]float64, marker []float64, total int, rate float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"time"}, channels...)
	header = append(header, "start")
	if err := w.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for i := 0; i < total; i++ {
		record[0] = strconv.FormatFloat(float64(i)/rate, 'g', -1, 64)
		for j, ch := range channels {
			record[j+1] = strconv.FormatFloat(data[ch][i], 'g', -1, 64)
		}
		record[len(record)-1] = strconv.FormatFloat(marker[i], 'g', -1, 64)
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeEDF(path string, channels []string, data map[string][]float64, marker []float64, total int, rate float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	samplesPerRecord := int(rate)
	names := append(append([]string(nil), channels...), "start")

	signals := make([]edf.SignalHeader, len(names))
	for i, name := range names {
		signals[i] = edf.SignalHeader{
			Label:             name,
			PhysicalDimension: "uV",
			PhysicalMin:       -100,
			PhysicalMax:       100,
			DigitalMin:        -32768,
			DigitalMax:        32767,
			SamplesPerRecord:  samplesPerRecord,
		}
	}

	w, err := edf.Create(f, edf.Header{
		Version:            edf.Version0,
		PatientID:          "synthetic",
		RecordingID:        "epochlab simulator",
		StartTime:          time.Now().UTC(),
		DataRecordDuration: time.Second,
		SignalCount:        len(names),
		Signals:            signals,
	})
	if err != nil {
		return err
	}

	for offset := 0; offset+samplesPerRecord <= total; offset += samplesPerRecord {
		record := make([][]float64, len(names))
		for i, name := range names {
			if name == "start" {
				record[i] = marker[offset : offset+samplesPerRecord]
			} else {
				record[i] = data[name][offset : offset+samplesPerRecord]
			}
		}
		if err := w.WriteRecord(record); err != nil {
			return err
		}
	}

	return w.Close()
}

func writeLabels(path string, labels []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, l := range labels {
		if _, err := fmt.Fprintln(f, l); err != nil {
			return err
		}
	}
	return nil
}
