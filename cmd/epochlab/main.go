// Command epochlab runs the motor-imagery analysis pipeline: it loads a
// continuous EEG/EOG recording with its trial labels, extracts per-trial
// epochs, derives the spectral feature table with per-class statistics,
// stores the results, and optionally serves them over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/bciworks/epochlab/internal/epoch"
	"github.com/bciworks/epochlab/internal/features"
	"github.com/bciworks/epochlab/internal/log"
	"github.com/bciworks/epochlab/internal/recording"
	"github.com/bciworks/epochlab/internal/server"
	"github.com/bciworks/epochlab/internal/storage/sqlite"
	"github.com/bciworks/epochlab/pkg/config"
)

func main() {
	cfgFile := flag.String("config", "config.yaml", "Path to config file (default: ./config.yaml)")
	recordingPath := flag.String("recording", "", "Path to the continuous recording (CSV or EDF)")
	labelsPath := flag.String("labels", "", "Path to the trial label file (one label per line)")
	format := flag.String("format", "csv", "Recording format: csv or edf")
	dbPath := flag.String("db", "epochlab.db", "Path to the results database")
	exportPath := flag.String("export", "", "Optional CSV export path for the feature table")
	listen := flag.String("listen", "", "Serve results on this address (e.g. :8080) after analysis")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	flag.Parse()

	if err := log.Init(*debug); err != nil {
		fmt.Printf("can't initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger := log.GetSugaredLogger()

	filename, _ := filepath.Abs(*cfgFile)
	cfg, err := config.Load(filename)
	if err != nil {
		logger.Errorf("error reading config file. Did you pass the -config flag? Run with -h for help: %v", err)
		os.Exit(1)
	}

	if *recordingPath == "" || *labelsPath == "" {
		logger.Errorf("both -recording and -labels are required")
		os.Exit(1)
	}

	opts := recording.CSVOptions{
		SampleRate:   cfg.SampleRate,
		TimeColumn:   cfg.TimeColumn,
		MarkerColumn: cfg.MarkerColumn,
	}

	var rec *recording.Recording
	var events []recording.Event
	switch *format {
	case "csv":
		rec, events, err = recording.LoadCSVRecording(*recordingPath, *labelsPath, opts, cfg.ClassLabels)
	case "edf":
		rec, events, err = recording.LoadEDFRecording(*recordingPath, *labelsPath, cfg.Channels(), opts, cfg.ClassLabels)
	default:
		logger.Errorf("unknown recording format %q", *format)
		os.Exit(1)
	}
	if err != nil {
		logger.Errorf("failed to load recording: %v", err)
		os.Exit(1)
	}
	logger.Infof("loaded %s: %d channels, %d samples, %d trial events",
		*recordingPath, len(rec.Names()), rec.Len(), len(events))

	extractor := epoch.NewExtractor(epoch.Params{
		TrialDuration: cfg.TrialDuration,
		Channels:      cfg.Channels(),
	}, logger)
	epochs, err := extractor.Extract(rec, events)
	if err != nil {
		logger.Errorf("epoch extraction failed: %v", err)
		os.Exit(1)
	}

	if defects := epoch.CheckLengths(epochs, cfg.NominalEpochLength()); len(defects) > 0 {
		for _, d := range defects {
			logger.Warnf("data-quality defect: %v", d)
		}
		logger.Errorf("%d epochs are short of the nominal %d samples; refusing to aggregate truncated trials",
			len(defects), cfg.NominalEpochLength())
		os.Exit(1)
	}

	params, err := features.ParamsFromConfig(cfg)
	if err != nil {
		logger.Errorf("invalid feature parameters: %v", err)
		os.Exit(1)
	}
	aggregator := features.NewAggregator(params, logger)
	table, err := aggregator.Aggregate(epochs)
	if err != nil {
		logger.Errorf("feature aggregation failed: %v", err)
		os.Exit(1)
	}

	stats, err := table.ClassStats(cfg.ClassLabels)
	if err != nil {
		logger.Errorf("per-class statistics failed: %v", err)
		os.Exit(1)
	}
	logger.Infof("aggregated %d epochs into %d feature columns", len(table.Rows), len(table.ColumnNames())-1)

	if *exportPath != "" {
		f, err := os.Create(*exportPath)
		if err != nil {
			logger.Errorf("failed to create export file: %v", err)
			os.Exit(1)
		}
		if err := table.WriteCSV(f); err != nil {
			f.Close()
			logger.Errorf("failed to export feature table: %v", err)
			os.Exit(1)
		}
		f.Close()
		logger.Infof("exported feature table to %s", *exportPath)
	}

	store, err := sqlite.New(*dbPath, logger)
	if err != nil {
		logger.Errorf("failed to open results database: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runID, err := store.SaveRun(ctx, filepath.Base(*recordingPath), table, stats)
	if err != nil {
		logger.Errorf("failed to store run: %v", err)
		os.Exit(1)
	}
	logger.Infof("analysis complete, run %s", runID)

	if *listen == "" {
		return
	}

	var wg sync.WaitGroup
	ctrl := server.NewController(ctx, &wg, store, *listen, logger)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		logger.Infof("shutdown signal received")
		cancel()
	}()

	if err := ctrl.Start(); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	wg.Wait()
}
