// Command inspect loads trial files and prints what the trainer would see:
// the header, the number of written trials, the fault scale and how many
// trials carry a nontrivial syndrome per basis. Any malformed line fails the
// file, so inspect doubles as a format check.
//
// Usage:
//
//	go run ./cmd/inspect Data/p0.001.txt [more files...]
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/Noofbiz/exrec/datasets"
	"github.com/dustin/go-humanize"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: %s <trial file>...", os.Args[0])
	}
	for _, path := range os.Args[1:] {
		ds, h, err := datasets.Load(path)
		if err != nil {
			log.Fatalf("failed to load trials: %v", err)
		}
		scale, err := datasets.FaultScale(ds.Len(), h)
		if err != nil {
			log.Fatalf("failed to compute fault scale: %v", err)
		}

		fmt.Printf("%s\n", path)
		fmt.Printf("  p=%g  lookup rate=%g +/- %g\n", h.P, h.LuAvg, h.LuStd)
		fmt.Printf("  trials written: %s of %s simulated (fault scale %.4g)\n",
			humanize.Comma(int64(ds.Len())), humanize.Comma(int64(h.DataSize)), scale)
		for _, b := range datasets.Bases {
			nonTrivial := 0
			for i := range ds.Len() {
				if ds.NonTrivial(b, i) {
					nonTrivial++
				}
			}
			fmt.Printf("  %s basis: %s nontrivial syndromes (%.1f%%)\n", b,
				humanize.Comma(int64(nonTrivial)), 100*float64(nonTrivial)/float64(max(ds.Len(), 1)))
		}
		if ds.Len() > 0 {
			p12, p34 := ds.Labels(datasets.X, 0)
			fmt.Printf("  first trial: X input %v labels (%d, %d)\n", ds.Input(datasets.X, 0), p12, p34)
		}
	}
}
