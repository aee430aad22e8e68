// Package sim generates ground-truth trajectories with injected slip
// events and terrain-dependent sensor noise. It exists to validate the
// estimator and detector; it is not part of the production estimation
// path.
//
// A Harness is an explicitly constructed object owning its own random
// generator and configuration. There is no process-wide mutable
// simulation state: two harnesses with the same config and seed
// produce identical runs, concurrently or not.
package sim

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/roverbench/slip.report/internal/estimator"
)

// SlipWindow schedules one injected slip event on the harness clock.
type SlipWindow struct {
	Start    float64 // seconds from run start
	Duration float64 // seconds
}

// contains reports whether t falls inside the window.
func (w SlipWindow) contains(t float64) bool {
	return t >= w.Start && t < w.Start+w.Duration
}

// Config holds the harness parameters.
type Config struct {
	Terrain TerrainProfile
	Env     EnvFactors
	// Severity composes terrain and environment into a slip severity.
	// Nil selects MultiplicativeSeverity.
	Severity SeverityFunc
	// NoiseSigma holds the base per-component measurement noise
	// standard deviations, before roughness and NoiseScale.
	NoiseSigma estimator.Vec
	// NoiseScale globally scales measurement noise. Zero produces
	// noise-free measurements regardless of terrain.
	NoiseScale float64
	// SlipWindows are the injected slip events.
	SlipWindows []SlipWindow
	// Seed seeds the harness's own PCG source.
	Seed uint64
	// InitialState is the ground-truth starting state.
	InitialState estimator.Vec
}

// DefaultNoiseSigma returns the base measurement noise used by the
// bench: centimetre-level position jitter and sub-degree angle jitter.
func DefaultNoiseSigma() estimator.Vec {
	return estimator.Vec{0.03, 0.03, 0.02, 0.01, 0.01}
}

// StepOutput is what one harness step hands to the estimation cycle.
type StepOutput struct {
	// Control echoes the commanded control: the estimator predicts
	// with what was commanded, not with what the wheel achieved. That
	// mismatch during a slip window is exactly what the innovation
	// picks up.
	Control estimator.Control
	// Measurement is the noisy full-state observation of the truth.
	Measurement []float64
	// Truth is the ground-truth state after this step.
	Truth estimator.Vec
	// SlipActive reports whether an injected slip window covered this
	// step.
	SlipActive bool
	// Severity is the applied slip severity (0 when not slipping).
	Severity float64
}

// Harness drives the synthetic environment.
type Harness struct {
	cfg      Config
	severity SeverityFunc
	truth    estimator.Vec
	clock    float64
	noise    [estimator.StateDim]distuv.Normal
}

// NewHarness constructs a harness from cfg with its own random source.
func NewHarness(cfg Config) *Harness {
	severity := cfg.Severity
	if severity == nil {
		severity = MultiplicativeSeverity
	}

	h := &Harness{
		cfg:      cfg,
		severity: severity,
		truth:    cfg.InitialState,
	}

	// One shared PCG stream feeds all five component samplers; the
	// harness is single-owner sequential so draw order is stable.
	src := rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)
	for i := 0; i < estimator.StateDim; i++ {
		h.noise[i] = distuv.Normal{
			Mu:    0,
			Sigma: cfg.NoiseSigma[i] * cfg.NoiseScale * cfg.Terrain.Roughness,
			Src:   src,
		}
	}
	return h
}

// Step advances the ground truth by dt seconds under the commanded
// control u and returns the cycle inputs for the estimator. During a
// slip window the wheel loses severity·v of its commanded forward
// velocity while the command itself is reported unchanged.
func (h *Harness) Step(u estimator.Control, dt float64) StepOutput {
	slipActive := false
	for _, w := range h.cfg.SlipWindows {
		if w.contains(h.clock) {
			slipActive = true
			break
		}
	}

	severity := 0.0
	achieved := u
	if slipActive {
		severity = h.severity(h.cfg.Terrain, h.cfg.Env)
		achieved[estimator.ControlForwardVel] *= 1 - severity
	}

	h.truth = estimator.Propagate(h.truth, achieved, dt)
	h.clock += dt

	measurement := make([]float64, estimator.StateDim)
	for i := 0; i < estimator.StateDim; i++ {
		measurement[i] = h.truth[i]
		if h.noise[i].Sigma > 0 {
			measurement[i] += h.noise[i].Rand()
		}
	}

	return StepOutput{
		Control:     u,
		Measurement: measurement,
		Truth:       h.truth,
		SlipActive:  slipActive,
		Severity:    severity,
	}
}

// Truth returns the current ground-truth state.
func (h *Harness) Truth() estimator.Vec { return h.truth }

// Clock returns the harness's elapsed time in seconds.
func (h *Harness) Clock() float64 { return h.clock }
