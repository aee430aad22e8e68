package estimator

import "errors"

// Sentinel errors returned by Predict and Update. Both are reported
// before any mutation: a failed call leaves state and covariance
// exactly as they were.
var (
	// ErrInvalidInput marks a rejected input: wrong-length measurement,
	// non-positive dt, or non-finite values.
	ErrInvalidInput = errors.New("estimator: invalid input")

	// ErrSingularInnovation marks an update whose innovation covariance
	// was numerically singular. The caller should skip the cycle's
	// update and keep the predicted state as the working estimate.
	ErrSingularInnovation = errors.New("estimator: singular innovation covariance")
)
