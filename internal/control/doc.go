// Package control provides the actuation sources for plants.
//
//   - [PID]: Proportional-Integral-Derivative controller with anti-windup
//     clamping and a moving-average derivative filter
//   - [Manual]: operator-set actuation
//   - [LQR]: full-state feedback (cart-pendulum stabiliser)
//
// # Usage
//
//	pid := control.NewPID(control.WithIntegralLimits(-50, 50))
//	out := pid.Compute(setpoint-measured, dynamo.Gains{Kp: 2, Ki: 0.5, Kd: 0.1}, dt)
//	// out.Output is unclamped; the plant clamps it to its actuator range
//
// Gains are supplied on every call and may change between calls.
package control
