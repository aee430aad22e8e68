package estimator

import "math"

// Dimensions of the estimation problem. Fixed at compile time so the
// state and covariance live in stack-allocated arrays with no dynamic
// indirection.
const (
	// StateDim is the number of state components: x, y, z, heading, pitch.
	StateDim = 5
	// ControlDim is the number of control components: forward velocity,
	// vertical velocity, angular velocity, pitch rate.
	ControlDim = 4
)

// State component indices into Vec.
const (
	StateX = iota
	StateY
	StateZ
	StateHeading
	StatePitch
)

// Control component indices into Control.
const (
	ControlForwardVel = iota
	ControlVerticalVel
	ControlAngularVel
	ControlPitchRate
)

// MinDeterminantThreshold is the minimum absolute determinant accepted
// when inverting the innovation covariance. Below this the matrix is
// treated as singular and the update is rejected.
const MinDeterminantThreshold = 1e-12

// Vec is a fixed-size state (or measurement) vector.
type Vec [StateDim]float64

// Control is a fixed-size control input vector.
type Control [ControlDim]float64

// Mat is a StateDim×StateDim matrix in row-major order, matching the
// layout used throughout the filter arithmetic.
type Mat [StateDim * StateDim]float64

// At returns the element at row i, column j.
func (m Mat) At(i, j int) float64 { return m[i*StateDim+j] }

// Diagonal returns the matrix diagonal.
func (m Mat) Diagonal() Vec {
	var d Vec
	for i := 0; i < StateDim; i++ {
		d[i] = m[i*StateDim+i]
	}
	return d
}

// identity returns the identity matrix.
func identity() Mat {
	var m Mat
	for i := 0; i < StateDim; i++ {
		m[i*StateDim+i] = 1
	}
	return m
}

// scaledIdentity returns s·I.
func scaledIdentity(s float64) Mat {
	var m Mat
	for i := 0; i < StateDim; i++ {
		m[i*StateDim+i] = s
	}
	return m
}

// diagonal builds a matrix with d on the diagonal.
func diagonal(d Vec) Mat {
	var m Mat
	for i := 0; i < StateDim; i++ {
		m[i*StateDim+i] = d[i]
	}
	return m
}

// matMul returns a·b.
func matMul(a, b Mat) Mat {
	var out Mat
	for i := 0; i < StateDim; i++ {
		for j := 0; j < StateDim; j++ {
			var sum float64
			for k := 0; k < StateDim; k++ {
				sum += a[i*StateDim+k] * b[k*StateDim+j]
			}
			out[i*StateDim+j] = sum
		}
	}
	return out
}

// matMulT returns a·bᵀ.
func matMulT(a, b Mat) Mat {
	var out Mat
	for i := 0; i < StateDim; i++ {
		for j := 0; j < StateDim; j++ {
			var sum float64
			for k := 0; k < StateDim; k++ {
				sum += a[i*StateDim+k] * b[j*StateDim+k]
			}
			out[i*StateDim+j] = sum
		}
	}
	return out
}

// matAdd returns a + b.
func matAdd(a, b Mat) Mat {
	var out Mat
	for i := range out {
		out[i] = a[i] + b[i]
	}
	return out
}

// matVec returns m·v.
func matVec(m Mat, v Vec) Vec {
	var out Vec
	for i := 0; i < StateDim; i++ {
		var sum float64
		for k := 0; k < StateDim; k++ {
			sum += m[i*StateDim+k] * v[k]
		}
		out[i] = sum
	}
	return out
}

// symmetrize returns (m + mᵀ)/2. Applied after the covariance update to
// keep round-off from accumulating into asymmetry.
func symmetrize(m Mat) Mat {
	var out Mat
	for i := 0; i < StateDim; i++ {
		for j := 0; j < StateDim; j++ {
			out[i*StateDim+j] = 0.5 * (m[i*StateDim+j] + m[j*StateDim+i])
		}
	}
	return out
}

// invert computes m⁻¹ by Gauss-Jordan elimination with partial
// pivoting. It returns the inverse, the determinant, and false when
// the absolute determinant falls below MinDeterminantThreshold.
func invert(m Mat) (Mat, float64, bool) {
	a := m
	inv := identity()
	det := 1.0

	for col := 0; col < StateDim; col++ {
		// Partial pivot: largest |a[row][col]| at or below the diagonal.
		pivot := col
		for row := col + 1; row < StateDim; row++ {
			if math.Abs(a[row*StateDim+col]) > math.Abs(a[pivot*StateDim+col]) {
				pivot = row
			}
		}
		if pivot != col {
			for j := 0; j < StateDim; j++ {
				a[col*StateDim+j], a[pivot*StateDim+j] = a[pivot*StateDim+j], a[col*StateDim+j]
				inv[col*StateDim+j], inv[pivot*StateDim+j] = inv[pivot*StateDim+j], inv[col*StateDim+j]
			}
			det = -det
		}

		p := a[col*StateDim+col]
		det *= p
		if p == 0 {
			return Mat{}, 0, false
		}

		invP := 1 / p
		for j := 0; j < StateDim; j++ {
			a[col*StateDim+j] *= invP
			inv[col*StateDim+j] *= invP
		}
		for row := 0; row < StateDim; row++ {
			if row == col {
				continue
			}
			f := a[row*StateDim+col]
			if f == 0 {
				continue
			}
			for j := 0; j < StateDim; j++ {
				a[row*StateDim+j] -= f * a[col*StateDim+j]
				inv[row*StateDim+j] -= f * inv[col*StateDim+j]
			}
		}
	}

	if math.Abs(det) < MinDeterminantThreshold {
		return Mat{}, 0, false
	}
	return inv, det, true
}

// norm returns the Euclidean norm of v.
func norm(v Vec) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// isFiniteVec reports whether every element of v is finite.
func isFiniteVec(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
