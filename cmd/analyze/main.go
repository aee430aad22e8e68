// Package main recomputes the run summary from an existing bench CSV,
// the offline half of the bench workflow.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/roverbench/slip.report/internal/analysis"
	"github.com/roverbench/slip.report/internal/record"
	"github.com/roverbench/slip.report/internal/units"
)

func main() {
	var (
		filePath  = flag.String("file", "", "bench run CSV to analyze")
		speedUnit = flag.String("units", units.MPS, "speed unit for the summary ("+units.GetValidUnitsString()+")")
		jsonOut   = flag.Bool("json", false, "print the summary as JSON")
	)
	flag.Parse()

	if *filePath == "" {
		log.Fatal("missing -file")
	}
	if !units.IsValid(*speedUnit) {
		log.Fatalf("invalid units %q, valid: %s", *speedUnit, units.GetValidUnitsString())
	}

	f, err := os.Open(*filePath)
	if err != nil {
		log.Fatalf("open run: %v", err)
	}
	defer f.Close()

	meta, cycles, err := record.Read(f)
	if err != nil {
		log.Fatalf("read run: %v", err)
	}

	summary := analysis.Summarize(meta, cycles)
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			log.Fatalf("encode summary: %v", err)
		}
		return
	}
	fmt.Print(summary.Format(*speedUnit))
}
