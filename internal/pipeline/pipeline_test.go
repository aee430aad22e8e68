package pipeline_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roverbench/slip.report/internal/config"
	"github.com/roverbench/slip.report/internal/estimator"
	"github.com/roverbench/slip.report/internal/pipeline"
	"github.com/roverbench/slip.report/internal/slip"
)

func benchConfig() pipeline.Config {
	return pipeline.Config{
		Filter: estimator.Config{
			ProcessNoise:     estimator.Vec{0.01, 0.01, 0.01, 0.005, 0.005},
			MeasurementNoise: estimator.Vec{0.05, 0.05, 0.05, 0.02, 0.02},
			InitialCovScale:  1.0,
		},
		Slip: slip.Config{
			InnovationThreshold: 0.35,
			MinDuration:         600 * time.Millisecond,
		},
	}
}

func TestStraightLineRun(t *testing.T) {
	p := pipeline.New(benchConfig())

	u := estimator.Control{0.5, 0, 0, 0}
	dt := 0.2
	truth := estimator.Vec{}
	var res pipeline.CycleResult
	var err error
	for i := 0; i < 10; i++ {
		truth[estimator.StateX] += u[estimator.ControlForwardVel] * dt
		res, err = p.Step(u, truth[:], dt)
		require.NoError(t, err)
		assert.False(t, res.UpdateSkipped)
		assert.Equal(t, slip.Normal, res.SlipState)
	}

	assert.InDelta(t, 2.0, res.Time, 1e-12)
	assert.InDelta(t, 1.0, res.State[estimator.StateX], 1e-9)
	assert.InDelta(t, 0.0, res.State[estimator.StateY], 1e-9)
	assert.InDelta(t, 0.0, res.Innovation, 1e-9)
}

func TestSlipBiasOpensEpisode(t *testing.T) {
	p := pipeline.New(benchConfig())

	u := estimator.Control{1.0, 0, 0, 0}
	dt := 0.2

	// Warm up on agreeing measurements.
	truth := estimator.Vec{}
	for i := 0; i < 5; i++ {
		truth[estimator.StateX] += u[estimator.ControlForwardVel] * dt
		_, err := p.Step(u, truth[:], dt)
		require.NoError(t, err)
	}

	// Commanded motion continues while the measured position lags well
	// behind: a persistent innovation above the threshold.
	var sawSlipping bool
	var closed *slip.Episode
	for i := 0; i < 20; i++ {
		meas := truth // position stalls at the warm-up point
		res, err := p.Step(u, meas[:], dt)
		require.NoError(t, err)
		if res.SlipState == slip.Slipping {
			sawSlipping = true
		}
		if res.CompletedEpisode != nil {
			closed = res.CompletedEpisode
		}
	}
	assert.True(t, sawSlipping)
	assert.Nil(t, closed, "innovation never dropped, episode must stay open")
	require.NotNil(t, p.Detector().Current())
}

func TestSingularUpdateSkippedKeepsDetectorMoving(t *testing.T) {
	cfg := benchConfig()
	// Zero noise everywhere makes S = P and P collapses to zero after
	// the first update, so the second cycle hits a singular S.
	cfg.Filter.ProcessNoise = estimator.Vec{}
	cfg.Filter.MeasurementNoise = estimator.Vec{}
	p := pipeline.New(cfg)

	u := estimator.Control{0.5, 0, 0, 0}
	dt := 0.1
	meas := []float64{0.05, 0, 0, 0, 0}
	res, err := p.Step(u, meas, dt)
	require.NoError(t, err)
	require.False(t, res.UpdateSkipped)

	meas[0] = 0.10
	res, err = p.Step(u, meas, dt)
	require.NoError(t, err)
	assert.True(t, res.UpdateSkipped)
	assert.InDelta(t, 0.2, res.Time, 1e-12)
	assert.InDelta(t, 0.2, p.Detector().Clock(), 1e-12)
	// Prediction matches the measurement exactly, so the residual fed
	// to the detector is zero.
	assert.InDelta(t, 0.0, res.Innovation, 1e-9)
	assert.Equal(t, slip.Normal, res.SlipState)
}

func TestInvalidDtReturnsError(t *testing.T) {
	p := pipeline.New(benchConfig())
	meas := []float64{0, 0, 0, 0, 0}

	_, err := p.Step(estimator.Control{}, meas, 0)
	require.ErrorIs(t, err, estimator.ErrInvalidInput)
	assert.Zero(t, p.Detector().Clock(), "failed cycle must not advance the detector")
}

func TestInvalidMeasurementReturnsError(t *testing.T) {
	p := pipeline.New(benchConfig())

	_, err := p.Step(estimator.Control{}, []float64{1, 2, 3}, 0.1)
	require.ErrorIs(t, err, estimator.ErrInvalidInput)
	assert.Zero(t, p.Detector().Clock())
}

func TestConfigFromTuning(t *testing.T) {
	cfg := pipeline.ConfigFromTuning(config.MustLoadDefaultConfig())
	assert.Equal(t, 0.35, cfg.Slip.InnovationThreshold)
	assert.Equal(t, 600*time.Millisecond, cfg.Slip.MinDuration)
	assert.Equal(t, 0.01, cfg.Filter.ProcessNoise[estimator.StateX])
	assert.Equal(t, 0.02, cfg.Filter.MeasurementNoise[estimator.StateHeading])
}
