// Package analysis computes post-run statistics over bench cycle
// records: estimation error, innovation behaviour, and slip-detection
// quality against the injected ground truth.
package analysis

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/roverbench/slip.report/internal/record"
	"github.com/roverbench/slip.report/internal/units"
)

// Summary holds aggregate metrics for one run.
type Summary struct {
	RunID        string  `json:"run_id"`
	Terrain      string  `json:"terrain"`
	Cycles       int     `json:"cycles"`
	DurationSecs float64 `json:"duration_secs"`

	// Ground-truth motion
	TruthPathMeters float64 `json:"truth_path_meters"`
	MeanSpeedMps    float64 `json:"mean_speed_mps"`

	// Estimation error (posterior vs truth)
	RMSEX       float64 `json:"rmse_x"`
	RMSEY       float64 `json:"rmse_y"`
	RMSEAlt     float64 `json:"rmse_alt"`
	RMSEHeading float64 `json:"rmse_heading"`
	RMSEPitch   float64 `json:"rmse_pitch"`

	// Innovation behaviour
	InnovationMean float64 `json:"innovation_mean"`
	InnovationStd  float64 `json:"innovation_std"`
	InnovationMax  float64 `json:"innovation_max"`

	// Slip detection
	InjectedSlipCycles  int     `json:"injected_slip_cycles"`
	DetectedSlipCycles  int     `json:"detected_slip_cycles"`
	SlipEpisodes        int     `json:"slip_episodes"`
	SlipFrequencyHz     float64 `json:"slip_frequency_hz"`
	MaxSlipDurationSecs float64 `json:"max_slip_duration_secs"`

	// Cycle-level detection quality. The minimum-duration hold keeps
	// episodes open past the injected window, so some trailing false
	// positives are expected by construction.
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`

	// MeanDetectionLatencySecs is the mean time from injected-window
	// onset to the first detected cycle, over windows that were
	// detected at all.
	MeanDetectionLatencySecs float64 `json:"mean_detection_latency_secs"`
	InjectedWindows          int     `json:"injected_windows"`
	DetectedWindows          int     `json:"detected_windows"`
}

// Summarize computes a Summary from a run's metadata and cycles.
func Summarize(meta record.Meta, cycles []record.Cycle) Summary {
	s := Summary{
		RunID:   meta.RunID,
		Terrain: meta.Terrain,
		Cycles:  len(cycles),
	}
	if len(cycles) == 0 {
		return s
	}
	s.DurationSecs = cycles[len(cycles)-1].Time

	// Estimation error and truth path length.
	var sqErr [5]float64
	innovations := make([]float64, len(cycles))
	for i, c := range cycles {
		for j := 0; j < len(sqErr); j++ {
			d := c.Estimate[j] - c.Truth[j]
			sqErr[j] += d * d
		}
		innovations[i] = c.Innovation
		if c.Innovation > s.InnovationMax {
			s.InnovationMax = c.Innovation
		}
		if i > 0 {
			dx := c.Truth[0] - cycles[i-1].Truth[0]
			dy := c.Truth[1] - cycles[i-1].Truth[1]
			s.TruthPathMeters += math.Hypot(dx, dy)
		}
	}
	n := float64(len(cycles))
	s.RMSEX = math.Sqrt(sqErr[0] / n)
	s.RMSEY = math.Sqrt(sqErr[1] / n)
	s.RMSEAlt = math.Sqrt(sqErr[2] / n)
	s.RMSEHeading = math.Sqrt(sqErr[3] / n)
	s.RMSEPitch = math.Sqrt(sqErr[4] / n)

	s.InnovationMean = stat.Mean(innovations, nil)
	if len(innovations) > 1 {
		s.InnovationStd = stat.StdDev(innovations, nil)
	}
	if s.DurationSecs > 0 {
		s.MeanSpeedMps = s.TruthPathMeters / s.DurationSecs
	}

	s.countSlip(cycles)
	s.windowLatency(cycles)
	return s
}

// countSlip fills the per-cycle slip counters, episode counts and the
// precision/recall pair.
func (s *Summary) countSlip(cycles []record.Cycle) {
	var tp, fp, fn int
	prevDetected := false
	runStart := 0.0
	for i, c := range cycles {
		if c.SlipInjected {
			s.InjectedSlipCycles++
		}
		if c.SlipDetected {
			s.DetectedSlipCycles++
		}
		switch {
		case c.SlipDetected && c.SlipInjected:
			tp++
		case c.SlipDetected && !c.SlipInjected:
			fp++
		case !c.SlipDetected && c.SlipInjected:
			fn++
		}

		// Episode edges and max consecutive detected duration.
		if c.SlipDetected && !prevDetected {
			s.SlipEpisodes++
			if i > 0 {
				runStart = cycles[i-1].Time
			} else {
				runStart = 0
			}
		}
		if c.SlipDetected {
			if d := c.Time - runStart; d > s.MaxSlipDurationSecs {
				s.MaxSlipDurationSecs = d
			}
		}
		prevDetected = c.SlipDetected
	}

	if tp+fp > 0 {
		s.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		s.Recall = float64(tp) / float64(tp+fn)
	}
	if s.DurationSecs > 0 {
		s.SlipFrequencyHz = float64(s.SlipEpisodes) / s.DurationSecs
	}
}

// windowLatency computes detection latency per injected window.
func (s *Summary) windowLatency(cycles []record.Cycle) {
	var latencies []float64
	prevInjected := false
	for i, c := range cycles {
		if c.SlipInjected && !prevInjected {
			s.InjectedWindows++
			onset := c.Time
			for j := i; j < len(cycles); j++ {
				if cycles[j].SlipDetected {
					latencies = append(latencies, cycles[j].Time-onset)
					break
				}
			}
		}
		prevInjected = c.SlipInjected
	}
	s.DetectedWindows = len(latencies)
	if len(latencies) > 0 {
		s.MeanDetectionLatencySecs = stat.Mean(latencies, nil)
	}
}

// Format renders the summary as a human-readable report. Speeds are
// converted to the requested unit (see units.ValidUnits); angles are
// reported in degrees.
func (s Summary) Format(speedUnit string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s (terrain %s): %d cycles over %.2fs\n", s.RunID, s.Terrain, s.Cycles, s.DurationSecs)
	fmt.Fprintf(&b, "  truth path %.2fm, mean speed %.2f %s\n",
		s.TruthPathMeters, units.ConvertSpeed(s.MeanSpeedMps, speedUnit), speedUnit)
	fmt.Fprintf(&b, "  RMSE: x %.4fm, y %.4fm, alt %.4fm, heading %.3f°, pitch %.3f°\n",
		s.RMSEX, s.RMSEY, s.RMSEAlt, units.RadToDeg(s.RMSEHeading), units.RadToDeg(s.RMSEPitch))
	fmt.Fprintf(&b, "  innovation: mean %.4f, std %.4f, max %.4f\n",
		s.InnovationMean, s.InnovationStd, s.InnovationMax)
	fmt.Fprintf(&b, "  slip: %d episodes (%.3f/s), max %.2fs, detected %d/%d injected cycles\n",
		s.SlipEpisodes, s.SlipFrequencyHz, s.MaxSlipDurationSecs, s.DetectedSlipCycles, s.InjectedSlipCycles)
	fmt.Fprintf(&b, "  detection: precision %.3f, recall %.3f, %d/%d windows, mean latency %.3fs\n",
		s.Precision, s.Recall, s.DetectedWindows, s.InjectedWindows, s.MeanDetectionLatencySecs)
	return b.String()
}
