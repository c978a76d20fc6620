// Copyright 2018 Rob Marissen.
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"maps"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/524D/mzpeaks/internal/border"
	"github.com/524D/mzpeaks/internal/feature"
	"github.com/524D/mzpeaks/internal/roi"
)

// Program name and version
const progName = "mzPeaks"

var progVersion = `Unknown`

// Format of output, if it ever changes we should still be able to parse
// output from old versions
const outputFormatVersion = "1.0"

const (
	infoDefault = iota
	infoSilent
	infoVerbose
)

// Command line parameters
type params struct {
	inFilename           *string
	outFilename          *string  // Filename where JSON features will be written
	csvFilename          *string  // Filename of feature table, empty for none
	threads              *int     // Number of components processed concurrently
	domainThreshold      *float64 // threshold for (1-splitter)*domain
	splitThreshold       *float64 // splitter probability that separates peaks
	peakMinPoints        *float64 // minimum peak width in scans
	overlapThreshold     *float64 // minimum overlap of matching borders
	occupancyThreshold   *float64 // fraction of samples for consensus borders
	correlationThreshold *float64 // minimum base peak correlation for collapsing
	noCollapse           *bool    // Don't collapse features of different similarity groups
	compFilter           *string  // Range of components to process
	minCompIdx           int      // Lowest component index to process
	maxCompIdx           int      // Highest component index to process
	verbosity            int      // Verbosity of progress messages (infoDefault...)
	args                 []string // Additional values passed on the command line
}

// featureList is written as JSON output
type featureList struct {
	MzPeaksVersion string
	Features       []*feature.Feature
}

var ErrRangeSpec = errors.New("invalid range specified")

// Parse string like "-12:6" into 2 values, -12 and 6
// Parameters min and max are the "default" min/max values,
// when a value is not specified (e.g. "-12:"), the default is assigned
func parseIntRange(r string, min int, max int) (int, int, error) {
	re := regexp.MustCompile(`\s*(\-?\d*):(\-?\d*)`)
	m := re.FindStringSubmatch(r)
	minOut := min
	maxOut := max
	if len(m) >= 2 && m[1] != "" {
		minOut, _ = strconv.Atoi(m[1])
		if minOut < min {
			minOut = min
		}
	}
	if len(m) >= 3 && m[2] != "" {
		maxOut, _ = strconv.Atoi(m[2])
		if maxOut > max {
			maxOut = max
		}
	}
	var err error
	if minOut > maxOut {
		err = ErrRangeSpec
		minOut = maxOut
	}
	return minOut, maxOut, err
}

func (par params) borderConfig() border.Config {
	return border.Config{
		DomainThreshold:    *par.domainThreshold,
		SplitThreshold:     *par.splitThreshold,
		PeakMinimumPoints:  *par.peakMinPoints,
		OverlapThreshold:   *par.overlapThreshold,
		OccupancyThreshold: *par.occupancyThreshold,
	}
}

func (par params) featureConfig() feature.Config {
	return feature.Config{CorrelationThreshold: *par.correlationThreshold}
}

// segmentComponent finds the borders of the peaks in every ROI of a
// component. Samples that are not classified as peak get no borders;
// consensus correction fills them in later.
func segmentComponent(in roi.Input, cfg border.Config) border.Borders {
	c := in.Component
	classes := maps.Clone(in.Classes)
	roi.CorrectClassification(classes)

	borders := make(border.Borders, len(c.Samples))
	for k, sample := range c.Samples {
		if class, ok := classes[sample]; ok && class != roi.ClassPeak {
			borders[sample] = nil
			continue
		}
		pred := in.Predictions[sample]
		mask := border.DomainMask(pred.Splitter, pred.Domain, cfg.DomainThreshold)
		borders[sample] = border.Segment(mask, pred.Splitter, c.ROIs[k].I, cfg)
	}
	return borders
}

// processComponent runs segmentation, border correction and feature
// building for one component. Component number idx is used as mzrt group.
func processComponent(idx int, in roi.Input, par params) ([]*feature.Feature, error) {
	cfg := par.borderConfig()
	borders := segmentComponent(in, cfg)
	corrected, err := border.Correct(in.Component, borders, cfg)
	if err != nil {
		return nil, err
	}
	debugLogComponent(idx, in.Component, borders, corrected)
	return feature.Build(in.Component, corrected, idx)
}

// computeFeatures processes all components in the requested range,
// par.threads at a time. Features are returned in component order.
// Components that fail are logged and skipped.
func computeFeatures(inputs []roi.Input, par params) []*feature.Feature {
	threads := *par.threads
	if threads < 1 {
		threads = 1
	}

	type result struct {
		features []*feature.Feature
		err      error
	}
	results := make([]result, len(inputs))
	jobs := make(chan int, threads*2)

	var wg sync.WaitGroup
	wg.Add(threads)
	for w := 0; w < threads; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				f, err := processComponent(i, inputs[i], par)
				results[i] = result{features: f, err: err}
			}
		}()
	}
	for i := range inputs {
		if i >= par.minCompIdx && i <= par.maxCompIdx {
			jobs <- i
		}
	}
	close(jobs)
	wg.Wait()

	var features []*feature.Feature
	for i, r := range results {
		if r.err != nil {
			log.Printf("Component %d: %v", i, r.err)
		}
		features = append(features, r.features...)
	}
	return features
}

func writeFeatures(features []*feature.Feature, par params) error {
	f, err := os.Create(*par.outFilename)
	if err != nil {
		return err
	}
	defer f.Close()
	e := json.NewEncoder(f)
	e.SetIndent(``, `  `) // Make output easier to read for humans
	return e.Encode(featureList{
		MzPeaksVersion: outputFormatVersion,
		Features:       features,
	})
}

// writeFeatureTable writes one row per feature with m/z, retention time
// range and the intensity of the feature in each sample
func writeFeatureTable(features []*feature.Feature, inputs []roi.Input, par params) error {
	var samples []string
	column := make(map[string]int)
	for _, in := range inputs {
		for _, s := range in.Component.Samples {
			if _, ok := column[s]; !ok {
				column[s] = len(samples)
				samples = append(samples, s)
			}
		}
	}

	f, err := os.Create(*par.csvFilename)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(append([]string{`mz`, `rtmin`, `rtmax`}, samples...)); err != nil {
		return err
	}
	for _, feat := range features {
		record := make([]string, 3+len(samples))
		record[0] = strconv.FormatFloat(feat.Mz, 'f', 6, 64)
		record[1] = strconv.FormatFloat(feat.RtMin, 'f', 4, 64)
		record[2] = strconv.FormatFloat(feat.RtMax, 'f', 4, 64)
		for k, s := range feat.Samples {
			record[3+column[s]] = strconv.FormatFloat(feat.Intensities[k], 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// findFeatures glues together all the steps:
// Read components
// Find and correct peak borders, build features
// Collapse features
// Write features
func findFeatures(par params) {
	t := time.Now()
	if par.verbosity == infoVerbose {
		fmt.Fprintf(os.Stderr, "Reading components from %s: ", *par.inFilename)
	}
	inputs, err := roi.ReadFile(*par.inFilename)
	if err != nil {
		log.Fatalf("roi.ReadFile: error return %v", err)
	}

	if par.verbosity == infoVerbose {
		fmt.Fprintf(os.Stderr, "%s\n", time.Since(t))
		t = time.Now()
		fmt.Fprintf(os.Stderr, "Building features: ")
	}
	features := computeFeatures(inputs, par)
	built := len(features)

	if !*par.noCollapse {
		if par.verbosity == infoVerbose {
			fmt.Fprintf(os.Stderr, "%s\n", time.Since(t))
			t = time.Now()
			fmt.Fprintf(os.Stderr, "Collapsing features: ")
		}
		features = feature.Collapse(features, par.featureConfig())
	}

	if par.verbosity == infoVerbose {
		fmt.Fprintf(os.Stderr, "%s\n", time.Since(t))
		t = time.Now()
		fmt.Fprintf(os.Stderr, "Writing features: ")
	}
	err = writeFeatures(features, par)
	if err != nil {
		log.Fatalf("writeFeatures: error return %v", err)
	}
	if *par.csvFilename != `` {
		err = writeFeatureTable(features, inputs, par)
		if err != nil {
			log.Fatalf("writeFeatureTable: error return %v", err)
		}
	}
	if par.verbosity == infoVerbose {
		fmt.Fprintf(os.Stderr, "%s\n", time.Since(t))
	}
	if par.verbosity != infoSilent {
		fmt.Fprintf(os.Stderr, "Components: %d Features: %d Collapsed features: %d\n",
			len(inputs), built, len(features))
	}
}

// sanatizeParams does some checks on parameters, and fills missing
// filenames if possible
func sanatizeParams(par *params) {
	exeName := filepath.Base(os.Args[0])

	if len(par.args) != 1 {
		fmt.Fprintf(os.Stderr, `Last argument must be name of component file.
Type %s --help for usage
`, exeName)
		os.Exit(2)
	}

	in := par.args[0]
	par.inFilename = &in
	var extension = filepath.Ext(in)
	var startName = in[0 : len(in)-len(extension)]

	if *par.outFilename == "" {
		*par.outFilename = startName + "-features.json"
	}

	var err error
	par.minCompIdx, par.maxCompIdx, err = parseIntRange(*par.compFilter,
		0, math.MaxInt32)
	if err != nil {
		fmt.Fprintf(os.Stderr, `Invalid value for parameter 'compfilter'.
	Type %s --help for usage
	`, exeName)
		os.Exit(2)
	}
}

func usage() {
	exeName := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr,
		`USAGE:
  %s [options] <componentfile>

  This program finds peak borders that are consistent across samples
  and builds features from them. The component file contains the ROIs
  of all samples, grouped in components, together with the output of
  the border prediction network for each ROI.
  Files with extension .xml are read as XML, all others as JSON.

OPTIONS:
`, exeName)
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr,
		`
USAGE EXAMPLES:
  %s yeast-components.json
    Build features from yeast-components.json and write them to
    yeast-components-features.json. Default parameters are used.

  %s -csv yeast.csv -minpoints 5 yeast-components.json
    Idem, but accept peaks of 5 scans and write a feature table to yeast.csv.
`, exeName, exeName)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	var par params
	bDef := border.DefaultConfig()
	fDef := feature.DefaultConfig()

	par.outFilename = flag.String("o",
		"",
		"`filename` of JSON feature output")
	par.csvFilename = flag.String("csv",
		"",
		"`filename` of CSV feature table. No table is written if empty.")
	par.threads = flag.Int("threads", 1,
		`number of components processed concurrently`)
	par.domainThreshold = flag.Float64("domain", bDef.DomainThreshold,
		`a point belongs to a peak when (1-splitter)*domain exceeds this value`)
	par.splitThreshold = flag.Float64("split", bDef.SplitThreshold,
		`splitter probability needed to keep adjacent peaks separate`)
	par.peakMinPoints = flag.Float64("minpoints", bDef.PeakMinimumPoints,
		`peaks must be wider than this number of scans`)
	par.overlapThreshold = flag.Float64("overlap", bDef.OverlapThreshold,
		`minimum relative overlap of a border with a consensus border`)
	par.occupancyThreshold = flag.Float64("occupancy", bDef.OccupancyThreshold,
		`a scan is part of a consensus peak when more than this fraction
of the samples in a similarity group covers it`)
	par.correlationThreshold = flag.Float64("corr", fDef.CorrelationThreshold,
		`features of different similarity groups are merged when their
base peaks correlate above this value`)
	par.noCollapse = flag.Bool("nocollapse", false,
		`Don't merge features of different similarity groups`)
	par.compFilter = flag.String("compfilter",
		"",
		"`range`"+` of component indices to process (e.g. 1000:2000).
Default is all components`)
	version := flag.Bool("version", false,
		`Show software version`)
	verbose := flag.Bool("verbose", false,
		`Print more verbose progress information`)
	quiet := flag.Bool("quiet", false,
		`Don't print any output except for errors`)
	flag.Usage = usage
	flag.Parse()
	if *version {
		fmt.Fprintf(os.Stderr, "%s version %s\n", progName, progVersion)
		return
	}
	if *verbose {
		par.verbosity = infoVerbose
	}
	if *quiet {
		par.verbosity = infoSilent
	}
	par.args = flag.Args()

	sanatizeParams(&par)
	findFeatures(par)
}
