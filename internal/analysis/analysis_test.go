package analysis_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roverbench/slip.report/internal/analysis"
	"github.com/roverbench/slip.report/internal/record"
	"github.com/roverbench/slip.report/internal/units"
)

// benchRun builds a hand-checkable 10-cycle run: 1 m/s straight line,
// constant 0.03m x estimation error, one injected slip window covering
// cycles at t=0.5..0.7 and detection lagging it by one cycle.
func benchRun() (record.Meta, []record.Cycle) {
	meta := record.Meta{RunID: "run_test", Terrain: "gravel"}
	cycles := make([]record.Cycle, 10)
	for i := range cycles {
		t := 0.1 * float64(i+1)
		c := &cycles[i]
		c.Time = t
		c.Truth[0] = t
		c.Measurement[0] = t
		c.Estimate[0] = t + 0.03
		c.Innovation = 0.2
		c.SlipInjected = t >= 0.45 && t <= 0.75
		c.SlipDetected = t >= 0.55 && t <= 0.85
	}
	cycles[5].Innovation = 0.7
	return meta, cycles
}

func TestSummarizeMotionAndError(t *testing.T) {
	s := analysis.Summarize(benchRun())

	assert.Equal(t, "run_test", s.RunID)
	assert.Equal(t, "gravel", s.Terrain)
	assert.Equal(t, 10, s.Cycles)
	assert.InDelta(t, 1.0, s.DurationSecs, 1e-12)
	// Path length is summed over inter-cycle deltas, nine of them.
	assert.InDelta(t, 0.9, s.TruthPathMeters, 1e-9)
	assert.InDelta(t, 0.9, s.MeanSpeedMps, 1e-9)

	assert.InDelta(t, 0.03, s.RMSEX, 1e-12)
	assert.Zero(t, s.RMSEY)
	assert.Zero(t, s.RMSEAlt)
	assert.Zero(t, s.RMSEHeading)
	assert.Zero(t, s.RMSEPitch)
}

func TestSummarizeInnovationStats(t *testing.T) {
	s := analysis.Summarize(benchRun())

	// Nine samples at 0.2 plus one at 0.7.
	assert.InDelta(t, 0.25, s.InnovationMean, 1e-12)
	assert.InDelta(t, 0.7, s.InnovationMax, 1e-12)
	assert.Greater(t, s.InnovationStd, 0.0)
}

func TestSummarizeDetectionQuality(t *testing.T) {
	s := analysis.Summarize(benchRun())

	assert.Equal(t, 3, s.InjectedSlipCycles)
	assert.Equal(t, 3, s.DetectedSlipCycles)
	assert.Equal(t, 1, s.SlipEpisodes)
	assert.InDelta(t, 1.0, s.SlipFrequencyHz, 1e-9)

	// Detection overlaps injection at t=0.6 and 0.7 (2 true positives),
	// trails it at t=0.8 (1 false positive) and misses t=0.5 (1 false
	// negative).
	assert.InDelta(t, 2.0/3.0, s.Precision, 1e-12)
	assert.InDelta(t, 2.0/3.0, s.Recall, 1e-12)

	assert.Equal(t, 1, s.InjectedWindows)
	assert.Equal(t, 1, s.DetectedWindows)
	assert.InDelta(t, 0.1, s.MeanDetectionLatencySecs, 1e-9)
}

func TestSummarizeEmptyRun(t *testing.T) {
	s := analysis.Summarize(record.Meta{RunID: "run_empty"}, nil)
	assert.Equal(t, 0, s.Cycles)
	assert.Zero(t, s.DurationSecs)
	assert.Zero(t, s.Precision)
	assert.Zero(t, s.Recall)
}

func TestSummarizeNeverDetectedWindow(t *testing.T) {
	meta, cycles := benchRun()
	for i := range cycles {
		cycles[i].SlipDetected = false
	}
	s := analysis.Summarize(meta, cycles)
	assert.Equal(t, 1, s.InjectedWindows)
	assert.Equal(t, 0, s.DetectedWindows)
	assert.Zero(t, s.MeanDetectionLatencySecs)
	assert.Zero(t, s.Recall)
}

func TestFormat(t *testing.T) {
	s := analysis.Summarize(benchRun())

	out := s.Format(units.KPH)
	assert.Contains(t, out, "run run_test")
	assert.Contains(t, out, "terrain gravel")
	assert.Contains(t, out, "3.24 kph") // 0.9 m/s
	assert.Contains(t, out, "precision 0.667")
}

func TestSummaryJSONKeys(t *testing.T) {
	s := analysis.Summarize(benchRun())
	data, err := json.Marshal(s)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	for _, key := range []string{"run_id", "terrain", "rmse_x", "innovation_mean", "precision", "mean_detection_latency_secs"} {
		assert.Contains(t, m, key)
	}
}
