// This file contains code to help debugging, and is
// separated in from the rest in order not to litter
// the main code with debugging stuff

package main

import (
	"flag"
	"fmt"
	"math"
	"sync"

	"github.com/524D/mzpeaks/internal/border"
	"github.com/524D/mzpeaks/internal/roi"
)

var debugComps *string // Print debug output for given component range

// Components are processed concurrently, keep their output together
var debugMux sync.Mutex

func init() {
	debugComps = flag.String("debug", "",
		"Print debug output for given component `range` e.g. 3:6")
}

func debugLogComponent(i int, c *roi.Component, borders, corrected border.Borders) {
	if *debugComps == `` {
		return
	}
	debugMin, debugMax, _ := parseIntRange(*debugComps, 0, math.MaxInt32)
	if i < debugMin || i > debugMax {
		return
	}
	debugMux.Lock()
	defer debugMux.Unlock()
	fmt.Printf("Component:%d samples:%d groups:%v\n", i, len(c.Samples), c.Labels())
	for k, sample := range c.Samples {
		r := c.ROIs[k]
		fmt.Printf("%s group:%d scan:%d:%d shift:%d mz:%f\n",
			sample, c.Grouping[k], r.Scan.Begin, r.Scan.End, c.Shifts[k], r.MzMean)
		fmt.Printf("    predicted:")
		for _, b := range borders[sample] {
			fmt.Printf(" %d:%d", b.Begin, b.End)
		}
		fmt.Printf("\n    corrected:")
		for _, b := range corrected[sample] {
			fmt.Printf(" %d:%d", b.Begin, b.End)
		}
		fmt.Printf("\n")
	}
}
