// Command exrec trains the syndrome predictors on every trial file of a data
// directory, scores them with the Steane lookup decoder and writes a
// timestamped JSON report comparing them against the lookup-table baseline.
//
// Usage:
//
//	exrec -params param.json -data Data -reports Reports [-plot rates.png]
//
// Trial files are read in name order. With -continue, a malformed file is
// logged and skipped instead of aborting the run.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/Noofbiz/exrec/datasets"
	"github.com/Noofbiz/exrec/report"
	"github.com/Noofbiz/exrec/trainer"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/gomlx/backends"
	_ "github.com/gomlx/gomlx/backends/default"
	"k8s.io/klog/v2"
)

func main() {
	klog.InitFlags(nil)
	paramsFlag := flag.String("params", "param.json", "parameter file (JSON, or YAML when ending in .yaml/.yml)")
	dataDir := flag.String("data", "Data", "directory holding one trial file per physical error rate")
	reportsDir := flag.String("reports", "Reports", "directory receiving the timestamped JSON report")
	plotPath := flag.String("plot", "", "if set, also plot the logical error rates to this image path")
	keepGoing := flag.Bool("continue", false, "skip trial files that fail instead of aborting the run")
	parallel := flag.Bool("parallel-bases", false, "train the X and Z predictors concurrently (overrides the parameter file)")
	flag.Parse()
	defer klog.Flush()

	start := time.Now()
	params, err := trainer.LoadParams(*paramsFlag)
	if err != nil {
		klog.Exitf("failed to load parameters: %v", err)
	}
	if *parallel {
		params.Run.ParallelBases = true
	}

	paths, err := datasets.FindTrialFiles(*dataDir)
	if err != nil {
		klog.Exitf("failed to find trial files: %v", err)
	}
	klog.Infof("found %d trial files in %s", len(paths), *dataDir)

	backend := backends.MustNew()
	klog.Infof("using backend %s", backend.Name())
	if strings.Contains(backend.Name(), "SimpleGo") {
		klog.Warningf("backend %s cannot train the LSTM predictor; install a PJRT plugin or set %s", backend.Name(), backends.GOMLX_BACKEND)
	}
	t, err := trainer.New(backend, params)
	if err != nil {
		klog.Exitf("failed to create trainer: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	entries, runErr := t.RunAll(ctx, paths, *keepGoing)

	// Whatever was processed is reported, even when the run aborted.
	if len(entries) > 0 || runErr == nil {
		path, err := report.Write(*reportsDir, start, entries)
		if err != nil {
			klog.Exitf("failed to write report: %v", err)
		}
		klog.Infof("wrote %d report entries to %s", len(entries), path)
	}
	if *plotPath != "" && len(entries) > 0 {
		if err := report.PlotRates(entries, *plotPath); err != nil {
			klog.Exitf("failed to generate plot: %v", err)
		}
		klog.Infof("wrote plot to %s", *plotPath)
	}
	if runErr != nil {
		klog.Exitf("run %s aborted after %d of %d files: %v", t.RunID, len(entries), len(paths), runErr)
	}
	klog.Infof("run %s finished %d files in %s (started %s)", t.RunID, len(entries),
		time.Since(start).Round(time.Second), humanize.Time(start))
}
