// Package scenario holds the time-indexed setpoint profiles and disturbance
// generators. Every function is pure in its arguments.
package scenario

import (
	"fmt"
	"math"
	"strings"
)

type Mode int

const (
	ModeConstant Mode = iota
	ModeSine
	ModeBox
)

var modeNames = []string{"constant", "sine", "box"}

func (m Mode) String() string {
	if int(m) < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modeNames[m]
}

func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if strings.EqualFold(s, name) {
			return Mode(i), nil
		}
	}
	if strings.EqualFold(s, "square") {
		return ModeBox, nil
	}
	return ModeConstant, fmt.Errorf("unknown setpoint mode: %s", s)
}

// Sine returns base + amplitude*sin(2π·freq·t).
func Sine(t, base, amplitude, freq float64) float64 {
	return base + amplitude*math.Sin(2*math.Pi*freq*t)
}

// Box is a square wave of period 1/freq: +amplitude for the first half-period,
// -amplitude for the second.
func Box(t, base, amplitude, freq float64) float64 {
	if freq <= 0 {
		return base
	}
	if firstHalf(t, freq) {
		return base + amplitude
	}
	return base - amplitude
}

// Nudge produces alternating signed impulses of the given amplitude, active for
// impulseDuration at the start of each half-period.
func Nudge(t, amplitude, freq, impulseDuration float64) float64 {
	if freq <= 0 || amplitude == 0 || impulseDuration <= 0 {
		return 0
	}
	half := 0.5 / freq
	n := math.Floor(t / half)
	if t-n*half >= impulseDuration {
		return 0
	}
	if math.Mod(n, 2) == 0 {
		return amplitude
	}
	return -amplitude
}

// Tilt is the floor angle in radians: amplitudeRad*sin(2π·freq·t).
func Tilt(t, amplitudeRad, freq float64) float64 {
	return Sine(t, 0, amplitudeRad, freq)
}

func firstHalf(t, freq float64) bool {
	period := 1 / freq
	phase := math.Mod(t, period)
	if phase < 0 {
		phase += period
	}
	return phase < period/2
}

// Setpoint is a parameterised setpoint profile.
type Setpoint struct {
	Mode      Mode
	Base      float64
	Amplitude float64
	Frequency float64
}

func (s Setpoint) At(t float64) float64 {
	switch s.Mode {
	case ModeSine:
		if s.Frequency <= 0 {
			return s.Base
		}
		return Sine(t, s.Base, s.Amplitude, s.Frequency)
	case ModeBox:
		return Box(t, s.Base, s.Amplitude, s.Frequency)
	default:
		return s.Base
	}
}

// Disturbance combines impulsive nudges with a tilting floor.
type Disturbance struct {
	NudgeAmplitude  float64
	NudgeFrequency  float64
	ImpulseDuration float64
	TiltAmplitude   float64
	TiltFrequency   float64
}

func (d Disturbance) Force(t float64) float64 {
	return Nudge(t, d.NudgeAmplitude, d.NudgeFrequency, d.ImpulseDuration)
}

func (d Disturbance) Tilt(t float64) float64 {
	if d.TiltFrequency <= 0 {
		return 0
	}
	return Tilt(t, d.TiltAmplitude, d.TiltFrequency)
}
