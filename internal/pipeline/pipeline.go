// Package pipeline drives one estimation channel through its fixed
// per-cycle sequence: predict, update, detect. One Pipeline owns one
// filter and one detector; independent rovers get independent
// Pipeline instances, each driven by a single goroutine.
package pipeline

import (
	"errors"
	"math"

	"github.com/roverbench/slip.report/internal/config"
	"github.com/roverbench/slip.report/internal/estimator"
	"github.com/roverbench/slip.report/internal/monitoring"
	"github.com/roverbench/slip.report/internal/slip"
)

// Config aggregates the per-channel configuration.
type Config struct {
	Filter estimator.Config
	Slip   slip.Config
}

// ConfigFromTuning builds a pipeline Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		Filter: estimator.ConfigFromTuning(cfg),
		Slip:   slip.ConfigFromTuning(cfg),
	}
}

// CycleResult is the per-cycle output of the estimation channel.
type CycleResult struct {
	// Time is the channel clock in seconds after this cycle.
	Time float64
	// State is the posterior state estimate (the predicted state when
	// UpdateSkipped is true).
	State estimator.Vec
	// Covariance is the posterior covariance.
	Covariance estimator.Mat
	// Innovation is the innovation magnitude fed to the slip detector.
	Innovation float64
	// SlipState is the detector state after this cycle.
	SlipState slip.State
	// CompletedEpisode is non-nil when this cycle closed a slip
	// episode.
	CompletedEpisode *slip.Episode
	// UpdateSkipped is true when the measurement update was rejected
	// for a singular innovation covariance and the predicted state
	// stands as the working estimate.
	UpdateSkipped bool
}

// Pipeline couples a filter and a slip detector on one channel.
type Pipeline struct {
	filter   *estimator.Filter
	detector *slip.Detector
	clock    float64
}

// New creates a pipeline with a fresh filter and detector.
func New(cfg Config) *Pipeline {
	return &Pipeline{
		filter:   estimator.NewFilter(cfg.Filter),
		detector: slip.NewDetector(cfg.Slip),
	}
}

// Filter exposes the underlying filter for inspection.
func (p *Pipeline) Filter() *estimator.Filter { return p.filter }

// Detector exposes the underlying slip detector for inspection.
func (p *Pipeline) Detector() *slip.Detector { return p.detector }

// Step runs one predict→update→detect cycle. Control and measurement
// must be time-aligned by the caller; the pipeline performs no
// queuing.
//
// A singular innovation covariance is not an error at this level: the
// update is skipped per the engine contract, the predicted state
// stands, and the detector still advances on the residual against the
// prediction. Invalid inputs are returned as errors with no state
// advanced at all.
func (p *Pipeline) Step(u estimator.Control, measurement []float64, dt float64) (CycleResult, error) {
	if err := p.filter.Predict(u, dt); err != nil {
		return CycleResult{}, err
	}

	innovation, err := p.filter.Update(measurement)
	skipped := false
	if err != nil {
		if !errors.Is(err, estimator.ErrSingularInnovation) {
			// Invalid measurement after a committed predict: surface it.
			// The caller skips this cycle; the inflated covariance is the
			// documented cost of a missed update.
			return CycleResult{}, err
		}
		skipped = true
		// H = I, so the residual against the predicted state is the
		// same innovation vector the engine refused to fold in. Using
		// its norm keeps the detector clock and threshold test moving
		// over skipped cycles.
		innovation = residualNorm(p.filter.State(), measurement)
		monitoring.Logf("pipeline: update skipped at t=%.3fs: singular innovation covariance", p.clock+dt)
	}

	p.clock += dt
	state, episode := p.detector.Observe(innovation, dt)

	return CycleResult{
		Time:             p.clock,
		State:            p.filter.State(),
		Covariance:       p.filter.Covariance(),
		Innovation:       innovation,
		SlipState:        state,
		CompletedEpisode: episode,
		UpdateSkipped:    skipped,
	}, nil
}

func residualNorm(x estimator.Vec, measurement []float64) float64 {
	var sum float64
	for i := 0; i < estimator.StateDim; i++ {
		d := measurement[i] - x[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
