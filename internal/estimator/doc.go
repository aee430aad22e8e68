// Package estimator implements the pose estimation core for a rover
// wheel test bench: a five-state extended Kalman filter over a planar
// unicycle model with altitude and terrain pitch.
//
// The state vector is [x, y, z, heading, pitch]. Controls are
// [forward velocity, vertical velocity, angular velocity, pitch rate].
// Measurements observe the full state directly (H = I).
//
// The filter is a pure value object: no I/O, no locking. One
// estimation channel owns exclusive access to its Filter; independent
// rovers get independent instances.
package estimator
