// Package physics provides the plant models of the control lab.
//
// Each model is an immutable parameter struct with a pure state transition
// Step(state, actuation, dt) -> state':
//
//   - [Tank]: water heater tub (temperature)
//   - [CartPole]: inverted pendulum on a cart (angle, position)
//   - [Drone]: vertical thrust body (altitude, mass)
//
// Step never fails. Out-of-range actuation is clamped to the actuator limits,
// and physical bound violations (a fallen pole, a crashed drone) set the
// state's Terminal flag. A terminal state is returned unchanged by Step.
//
// # Determinism
//
// The cart-pendulum draws its disturbance noise from an injected
// [dynamo.RandomSource]; with a seeded source two runs are identical:
//
//	cp := physics.NewCartPole()
//	cp.Noise = noise.NewUniform(42)
//	s := cp.Spawn(cp.Noise)
//	for i := 0; i < 1000; i++ {
//	    s = cp.Step(s, force, 0.01)
//	}
package physics
