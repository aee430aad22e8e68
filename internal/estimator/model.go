package estimator

import "math"

// Propagate applies the kinematic process model over one step of dt
// seconds, assuming controls are piecewise-constant within the step:
//
//	x' = x + dt·v·cos(φ)
//	y' = y + dt·v·sin(φ)
//	z' = z + dt·v_z
//	φ' = φ + dt·ω
//	P' = P + dt·Ṗ
//
// Lateral and vertical motion are decoupled from heading except through
// the cos/sin terms above. That is a modelling simplification, not a
// numerical approximation artifact. Heading is left unwrapped; callers
// wrap for display only (units.WrapAngle).
func Propagate(s Vec, u Control, dt float64) Vec {
	v := u[ControlForwardVel]
	phi := s[StateHeading]
	return Vec{
		s[StateX] + dt*v*math.Cos(phi),
		s[StateY] + dt*v*math.Sin(phi),
		s[StateZ] + dt*u[ControlVerticalVel],
		phi + dt*u[ControlAngularVel],
		s[StatePitch] + dt*u[ControlPitchRate],
	}
}

// TransitionJacobian returns ∂f/∂x for Propagate at (s, u, dt). The
// matrix is the identity except for the heading cross-partials of the
// planar position; z, heading and pitch evolve linearly and
// independently of the other states.
func TransitionJacobian(s Vec, u Control, dt float64) Mat {
	v := u[ControlForwardVel]
	phi := s[StateHeading]

	f := identity()
	f[StateX*StateDim+StateHeading] = -dt * v * math.Sin(phi)
	f[StateY*StateDim+StateHeading] = dt * v * math.Cos(phi)
	return f
}
