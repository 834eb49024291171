// Package dynamo provides the shared types of the control lab.
//
// The package defines the contracts between the numerical core and its
// collaborators:
//
//   - [Plant]: a controllable system advanced one fixed physics step at a time
//   - [Snapshot]: read-only state handed to renderers, charts and stores
//   - [Operable], [Configurable], [Triggerable]: control inputs (mode, gains,
//     scenario parameters, one-shot events)
//   - [RandomSource]: pluggable noise so runs can be seeded
//
// # Example
//
//	plant, _ := rig.New(cfg)
//	s := sim.New(plant, sim.Config{Dt: 0.01}, sim.NewManualScheduler())
//	s.Start()
//
// # Thread Safety
//
// Plants are NOT thread-safe. A single simulation loop owns each plant and
// is its only writer; observers only ever see cloned snapshots.
package dynamo
