package estimator

import (
	"fmt"

	"github.com/roverbench/slip.report/internal/config"
)

// Config holds the filter parameters. All fields are fixed at
// construction; a Filter never re-reads tuning at runtime.
type Config struct {
	// ProcessNoise is the diagonal of Q, the process-noise covariance
	// added at every predict step. Ordered as the state vector.
	ProcessNoise Vec
	// MeasurementNoise is the diagonal of R, the measurement-noise
	// covariance used in the update step. Ordered as the state vector.
	MeasurementNoise Vec
	// InitialCovScale scales the identity to form the initial
	// covariance P₀.
	InitialCovScale float64
	// InitialState is the initial state estimate. Zero by default.
	InitialState Vec
}

// DefaultConfig returns the filter configuration loaded from the
// canonical tuning defaults file (config/tuning.defaults.json).
// Panics if the file cannot be found; intended for tests and binaries
// that have already validated config availability.
func DefaultConfig() Config {
	cfg := config.MustLoadDefaultConfig()
	return ConfigFromTuning(cfg)
}

// ConfigFromTuning builds a filter Config from a loaded TuningConfig.
// Use this in production code where the TuningConfig is already loaded.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		ProcessNoise: Vec{
			cfg.GetProcessNoisePos(),
			cfg.GetProcessNoisePos(),
			cfg.GetProcessNoiseAlt(),
			cfg.GetProcessNoiseHeading(),
			cfg.GetProcessNoisePitch(),
		},
		MeasurementNoise: Vec{
			cfg.GetMeasurementNoisePos(),
			cfg.GetMeasurementNoisePos(),
			cfg.GetMeasurementNoiseAlt(),
			cfg.GetMeasurementNoiseHeading(),
			cfg.GetMeasurementNoisePitch(),
		},
		InitialCovScale: cfg.GetInitialCovScale(),
	}
}

// Filter is an extended Kalman filter over the kinematic process model
// with a direct full-state observation (H = I). It is mutated in place
// by Predict and Update and holds no external resources.
type Filter struct {
	x   Vec
	p   Mat
	cfg Config
}

// NewFilter creates a filter with the configured initial state and
// covariance P₀ = InitialCovScale·I.
func NewFilter(cfg Config) *Filter {
	return &Filter{
		x:   cfg.InitialState,
		p:   scaledIdentity(cfg.InitialCovScale),
		cfg: cfg,
	}
}

// Reset restores the initial state and covariance. Used between bench
// runs so one run's terminal covariance never leaks into the next.
func (f *Filter) Reset() {
	f.x = f.cfg.InitialState
	f.p = scaledIdentity(f.cfg.InitialCovScale)
}

// State returns the current state estimate.
func (f *Filter) State() Vec { return f.x }

// Covariance returns the current covariance estimate.
func (f *Filter) Covariance() Mat { return f.p }

// Predict propagates the state through the process model and inflates
// the covariance: x̂ ← f(x̂, u, dt), P ← F·P·Fᵀ + Q.
//
// Calling Predict twice without an intervening Update is permitted but
// double-inflates the covariance; the caller owns the cycle cadence.
func (f *Filter) Predict(u Control, dt float64) error {
	if dt <= 0 {
		return fmt.Errorf("predict: dt must be positive, got %v: %w", dt, ErrInvalidInput)
	}
	if !isFiniteVec(u[:]) {
		return fmt.Errorf("predict: non-finite control input: %w", ErrInvalidInput)
	}

	jac := TransitionJacobian(f.x, u, dt)
	f.x = Propagate(f.x, u, dt)
	f.p = matAdd(matMulT(matMul(jac, f.p), jac), diagonal(f.cfg.ProcessNoise))
	return nil
}

// Update folds a full-state measurement into the estimate and returns
// the innovation magnitude ‖z − x̂‖₂, the sole input to the slip
// detector.
//
// The covariance update uses the Joseph form
//
//	P ← (I − K)·P·(I − K)ᵀ + K·R·Kᵀ
//
// followed by an explicit symmetrization, so P stays symmetric
// positive-semidefinite under floating-point round-off over long runs.
//
// On any error the filter is left untouched: state and covariance keep
// their pre-call (post-predict) values.
func (f *Filter) Update(measurement []float64) (float64, error) {
	if len(measurement) != StateDim {
		return 0, fmt.Errorf("update: measurement length %d, want %d: %w", len(measurement), StateDim, ErrInvalidInput)
	}
	if !isFiniteVec(measurement) {
		return 0, fmt.Errorf("update: non-finite measurement: %w", ErrInvalidInput)
	}

	var z Vec
	copy(z[:], measurement)

	// Innovation y = z − H·x̂ with H = I.
	var y Vec
	for i := range y {
		y[i] = z[i] - f.x[i]
	}

	// Innovation covariance S = H·P·Hᵀ + R = P + R.
	r := diagonal(f.cfg.MeasurementNoise)
	s := matAdd(f.p, r)

	sInv, _, ok := invert(s)
	if !ok {
		return 0, fmt.Errorf("update: %w", ErrSingularInnovation)
	}

	// Gain K = P·Hᵀ·S⁻¹ = P·S⁻¹.
	k := matMul(f.p, sInv)

	newX := f.x
	kY := matVec(k, y)
	for i := range newX {
		newX[i] += kY[i]
	}

	// Joseph form: (I−K)·P·(I−K)ᵀ + K·R·Kᵀ.
	a := identity()
	for i := range a {
		a[i] -= k[i]
	}
	newP := matAdd(matMulT(matMul(a, f.p), a), matMulT(matMul(k, r), k))

	// Commit only once the whole update has been computed.
	f.x = newX
	f.p = symmetrize(newP)
	return norm(y), nil
}
