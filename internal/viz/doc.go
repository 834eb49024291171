// Package viz is the terminal live view for a single rig.
//
// A bubbletea program owns a [sim.Simulator] driven by a ManualScheduler:
// every tea.Tick fires the pending frame, so the fixed-step loop, operator
// input and rendering all run on the UI goroutine. The view draws a braille
// schematic of the plant, a stats panel and an asciigraph history chart.
//
// # Key Bindings
//
//	Space - Start/stop
//	R     - Reset
//	M     - Toggle auto/manual
//	Tab   - Select parameter, Up/Down to tune it
//	←/→   - Adjust manual actuation
//	1-9   - Trigger plant events (new setpoint, nudge, add mass)
//	+/-   - Time scale
//	T     - Cycle color themes
//	?     - Help overlay
package viz
