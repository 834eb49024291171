package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// PowerSpectrum returns |X_k|² for the FFT of the mean-removed signal,
// k = 0..n/2. The DC bin is therefore ~0.
func PowerSpectrum(signal []float64) []float64 {
	if len(signal) < 2 {
		return nil
	}
	centered := make([]float64, len(signal))
	copy(centered, signal)
	floats.AddConst(-stat.Mean(signal, nil), centered)

	coeff := fft.FFTReal(centered)

	power := make([]float64, len(coeff)/2+1)
	for i := range power {
		a := cmplx.Abs(coeff[i])
		power[i] = a * a
	}
	return power
}

// DominantFrequency is the frequency in Hz of the strongest non-DC component of
// a signal sampled every dt seconds. It returns 0 for flat or too-short input.
func DominantFrequency(signal []float64, dt float64) float64 {
	power := PowerSpectrum(signal)
	if len(power) < 2 || dt <= 0 {
		return 0
	}
	idx := floats.MaxIdx(power[1:]) + 1
	if power[idx] == 0 {
		return 0
	}
	return float64(idx) / (float64(len(signal)) * dt)
}
