// Package analysis characterises recorded closed-loop runs.
//
//   - [StepResponse]: overshoot, rise time, settling time and steady-state error
//   - [DominantFrequency]: strongest oscillation in an error signal, for spotting ringing
//   - [NewPhasePortrait]: two snapshot fields plotted against each other
//   - [Sparkline]: one-line block chart of a series
//
// A typical post-run report:
//
//	series := analysis.SeriesFrom(samples)
//	resp := analysis.StepResponse(series.Time, series.Measured, series.Setpoint[0])
//	fmt.Println(resp)
package analysis
