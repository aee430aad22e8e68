// Package main provides the synthetic wheel-slip bench runner.
// It drives a simulated rover through the estimation pipeline on a
// chosen terrain with injected slip windows, writes per-cycle records
// to CSV, and prints a run summary.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/roverbench/slip.report/internal/analysis"
	"github.com/roverbench/slip.report/internal/config"
	"github.com/roverbench/slip.report/internal/estimator"
	"github.com/roverbench/slip.report/internal/monitoring"
	"github.com/roverbench/slip.report/internal/pipeline"
	"github.com/roverbench/slip.report/internal/record"
	"github.com/roverbench/slip.report/internal/sim"
	"github.com/roverbench/slip.report/internal/slip"
	"github.com/roverbench/slip.report/internal/units"
)

func main() {
	var (
		configPath   = flag.String("config", "", "tuning config JSON (defaults apply when empty)")
		terrainName  = flag.String("terrain", "", "terrain preset (overrides config)")
		duration     = flag.Duration("duration", 30*time.Second, "simulated run length")
		dt           = flag.Duration("dt", 100*time.Millisecond, "cycle interval")
		speed        = flag.Float64("speed", 0.7, "commanded forward velocity (m/s)")
		turnRate     = flag.Float64("turn-rate", 0, "commanded angular velocity (rad/s)")
		seed         = flag.Uint64("seed", 1, "harness random seed")
		slipStart    = flag.Duration("slip-start", 8*time.Second, "first injected slip onset")
		slipDuration = flag.Duration("slip-duration", 4*time.Second, "injected slip window length")
		slipRepeat   = flag.Duration("slip-repeat", 0, "interval between slip onsets (0 = single window)")
		outPath      = flag.String("out", "", "CSV output path (omit to skip the record file)")
		speedUnit    = flag.String("units", units.MPS, "speed unit for the summary ("+units.GetValidUnitsString()+")")
		jsonOut      = flag.Bool("json", false, "print the summary as JSON")
	)
	flag.Parse()

	if !units.IsValid(*speedUnit) {
		log.Fatalf("invalid units %q, valid: %s", *speedUnit, units.GetValidUnitsString())
	}
	if *dt <= 0 || *duration <= 0 {
		log.Fatalf("duration and dt must be positive")
	}

	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		loaded, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		tuning = loaded
	}

	name := tuning.GetTerrain()
	if *terrainName != "" {
		name = *terrainName
	}
	terrain, err := sim.TerrainByName(name)
	if err != nil {
		log.Fatalf("%v", err)
	}

	harness := sim.NewHarness(sim.Config{
		Terrain:     terrain,
		Env:         sim.EnvFactorsFromTuning(tuning),
		NoiseSigma:  sim.DefaultNoiseSigma(),
		NoiseScale:  tuning.GetSimNoiseScale(),
		SlipWindows: slipSchedule(*slipStart, *slipDuration, *slipRepeat, *duration),
		Seed:        *seed,
	})
	channel := pipeline.New(pipeline.ConfigFromTuning(tuning))

	meta := record.Meta{RunID: record.NewRunID(), Terrain: terrain.Name}

	var writer *record.Writer
	if *outPath != "" {
		if dir := filepath.Dir(*outPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				log.Fatalf("create output dir: %v", err)
			}
		}
		f, err := os.Create(*outPath)
		if err != nil {
			log.Fatalf("create output: %v", err)
		}
		defer f.Close()
		writer, err = record.NewWriter(f, meta)
		if err != nil {
			log.Fatalf("write output: %v", err)
		}
	}

	control := estimator.Control{*speed, 0, *turnRate, 0}
	step := dt.Seconds()
	steps := int(duration.Seconds() / step)

	cycles := make([]record.Cycle, 0, steps)
	for i := 0; i < steps; i++ {
		out := harness.Step(control, step)
		res, err := channel.Step(out.Control, out.Measurement, step)
		if err != nil {
			log.Fatalf("cycle %d: %v", i, err)
		}

		var meas estimator.Vec
		copy(meas[:], out.Measurement)
		cycle := record.Cycle{
			Time:         res.Time,
			Truth:        out.Truth,
			Measurement:  meas,
			Estimate:     res.State,
			Innovation:   res.Innovation,
			SlipDetected: res.SlipState == slip.Slipping,
			SlipInjected: out.SlipActive,
		}
		cycles = append(cycles, cycle)

		if writer != nil {
			if err := writer.Write(cycle); err != nil {
				log.Fatalf("write cycle %d: %v", i, err)
			}
		}
		if ep := res.CompletedEpisode; ep != nil {
			monitoring.Logf("slip episode %s: %.2fs -> %.2fs (peak innovation %.3f)",
				ep.ID, ep.EnteredAt, ep.ExitedAt, ep.PeakInnovation)
		}
	}

	if writer != nil {
		if err := writer.Flush(); err != nil {
			log.Fatalf("flush output: %v", err)
		}
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

// slipSchedule expands the slip flags into windows over the run.
func slipSchedule(start, length, repeat, total time.Duration) []sim.SlipWindow {
	if length <= 0 || start >= total {
		return nil
	}
	if repeat <= 0 {
		return []sim.SlipWindow{{Start: start.Seconds(), Duration: length.Seconds()}}
	}
	var windows []sim.SlipWindow
	for t := start; t < total; t += repeat {
		windows = append(windows, sim.SlipWindow{Start: t.Seconds(), Duration: length.Seconds()})
	}
	return windows
}
