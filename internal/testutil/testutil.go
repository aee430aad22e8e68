// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code
// duplication across test files, in particular the covariance
// invariant checks used by the estimator regression tests.
package testutil

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/roverbench/slip.report/internal/estimator"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// RequireSymmetric fails the test unless m equals its own transpose
// within tol.
func RequireSymmetric(t *testing.T, m estimator.Mat, tol float64) {
	t.Helper()
	for i := 0; i < estimator.StateDim; i++ {
		for j := i + 1; j < estimator.StateDim; j++ {
			if diff := math.Abs(m.At(i, j) - m.At(j, i)); diff > tol {
				t.Fatalf("covariance not symmetric: |P[%d,%d]-P[%d,%d]| = %g > %g", i, j, j, i, diff, tol)
			}
		}
	}
}

// RequirePositiveSemidefinite fails the test unless every eigenvalue
// of m is at least -tol.
func RequirePositiveSemidefinite(t *testing.T, m estimator.Mat, tol float64) {
	t.Helper()

	sym := mat.NewSymDense(estimator.StateDim, nil)
	for i := 0; i < estimator.StateDim; i++ {
		for j := i; j < estimator.StateDim; j++ {
			sym.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}

	var es mat.EigenSym
	if !es.Factorize(sym, false) {
		t.Fatal("eigendecomposition failed")
	}
	for _, ev := range es.Values(nil) {
		if ev < -tol {
			t.Fatalf("covariance not positive semidefinite: eigenvalue %g < -%g", ev, tol)
		}
	}
}
