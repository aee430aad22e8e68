// Package slip detects wheel slip from the filter's innovation
// magnitude. A slip episode begins when the innovation exceeds a
// configured threshold and ends only after the innovation has dropped
// back AND the episode has lasted a configured minimum duration, so
// single-sample noise spikes neither open nor immediately close
// reported episodes.
//
// The detector is a reporting pass: it never feeds back into the
// filter's noise covariances.
package slip

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roverbench/slip.report/internal/config"
)

// State represents the detector state.
type State string

const (
	Normal   State = "normal"   // Innovation within the expected band
	Slipping State = "slipping" // Ongoing slip episode
)

// Config holds the detector parameters, fixed at construction.
type Config struct {
	// InnovationThreshold is the innovation magnitude above which a
	// slip episode opens.
	InnovationThreshold float64
	// MinDuration is the minimum time a slip episode stays open. An
	// episode cannot close before it has lasted this long, even if the
	// innovation drops back immediately.
	MinDuration time.Duration
}

// DefaultConfig returns detector configuration loaded from the
// canonical tuning defaults file (config/tuning.defaults.json).
// Panics if the file cannot be found; intended for tests and binaries
// that have already validated config availability.
func DefaultConfig() Config {
	return ConfigFromTuning(config.MustLoadDefaultConfig())
}

// ConfigFromTuning builds a detector Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		InnovationThreshold: cfg.GetSlipInnovationThreshold(),
		MinDuration:         cfg.GetMinSlipDuration(),
	}
}

// Episode records a single slip event. Timestamps are seconds on the
// detector's own clock, which starts at zero and advances by the dt of
// every observation.
type Episode struct {
	// ID is globally unique so episodes from different runs and
	// channels never collide in downstream reports.
	ID string
	// EnteredAt is the clock value of the observation that opened the
	// episode.
	EnteredAt float64
	// ExitedAt is the clock value of the observation that closed the
	// episode. Only meaningful when Completed is true.
	ExitedAt float64
	// Completed is true once the episode has closed.
	Completed bool
	// PeakInnovation is the largest innovation magnitude observed
	// during the episode.
	PeakInnovation float64
}

// Duration returns the episode length in seconds, using the current
// clock value for an ongoing episode.
func (e Episode) Duration(now float64) float64 {
	if e.Completed {
		return e.ExitedAt - e.EnteredAt
	}
	return now - e.EnteredAt
}

// Detector is the two-state slip state machine. It is mutated once per
// cycle by Observe and is single-owner like the filter it follows.
type Detector struct {
	cfg   Config
	state State
	clock float64

	current   *Episode
	completed []Episode
}

// NewDetector creates a detector in the Normal state with its clock at
// zero.
func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg, state: Normal}
}

// Reset restores the initial detector state and discards all episodes.
// Used between bench runs.
func (d *Detector) Reset() {
	d.state = Normal
	d.clock = 0
	d.current = nil
	d.completed = nil
}

// Observe advances the detector clock by dt seconds and applies one
// innovation sample. It returns the resulting state and, when this
// observation closed an episode, that completed episode.
func (d *Detector) Observe(innovation, dt float64) (State, *Episode) {
	if dt > 0 {
		d.clock += dt
	}

	switch d.state {
	case Normal:
		if innovation > d.cfg.InnovationThreshold {
			d.state = Slipping
			d.current = &Episode{
				ID:             fmt.Sprintf("slip_%s", uuid.NewString()),
				EnteredAt:      d.clock,
				PeakInnovation: innovation,
			}
		}

	case Slipping:
		if innovation > d.current.PeakInnovation {
			d.current.PeakInnovation = innovation
		}
		// Exit requires both: innovation back at or below threshold and
		// the episode older than the minimum duration. The duration gate
		// keeps one-sample recoveries from closing a just-opened episode.
		if innovation <= d.cfg.InnovationThreshold && d.clock-d.current.EnteredAt >= d.cfg.MinDuration.Seconds() {
			d.state = Normal
			d.current.ExitedAt = d.clock
			d.current.Completed = true
			done := *d.current
			d.completed = append(d.completed, done)
			d.current = nil
			return Normal, &done
		}
	}

	return d.state, nil
}

// State returns the current detector state.
func (d *Detector) State() State { return d.state }

// Clock returns the detector's elapsed time in seconds.
func (d *Detector) Clock() float64 { return d.clock }

// Current returns a copy of the ongoing episode, or nil when not
// slipping.
func (d *Detector) Current() *Episode {
	if d.current == nil {
		return nil
	}
	ep := *d.current
	return &ep
}

// Episodes returns all episodes in order: completed ones first, then
// the ongoing one if any. The returned slice is a copy.
func (d *Detector) Episodes() []Episode {
	out := make([]Episode, 0, len(d.completed)+1)
	out = append(out, d.completed...)
	if d.current != nil {
		out = append(out, *d.current)
	}
	return out
}
