package analysis

import (
	"math"
	"math/cmplx"
)

// FFT is a radix-2 transform; len(data) must be a power of two.
func FFT(data []float64) []complex128 {
	n := len(data)
	if n <= 1 {
		result := make([]complex128, n)
		for i := range data {
			result[i] = complex(data[i], 0)
		}
		return result
	}
	if n&(n-1) != 0 {
		panic("analysis: fft length must be a power of two")
	}

	even := make([]float64, n/2)
	odd := make([]float64, n/2)
	for i := 0; i < n/2; i++ {
		even[i] = data[2*i]
		odd[i] = data[2*i+1]
	}
	feven, fodd := FFT(even), FFT(odd)

	result := make([]complex128, n)
	for k := 0; k < n/2; k++ {
		w := cmplx.Exp(complex(0, -2*math.Pi*float64(k)/float64(n)))
		result[k] = feven[k] + w*fodd[k]
		result[k+n/2] = feven[k] - w*fodd[k]
	}
	return result
}

// Pad copies data into a zero-filled slice whose length is the next power
// of two.
func Pad(data []float64) []float64 {
	n := 1
	for n < len(data) {
		n *= 2
	}
	out := make([]float64, n)
	copy(out, data)
	return out
}

// PowerSpectrum returns the magnitude of the first half of the transform of
// series after removing its mean and padding it.
func PowerSpectrum(series []float64) []float64 {
	if len(series) == 0 {
		return nil
	}
	mean := 0.0
	for _, v := range series {
		mean += v
	}
	mean /= float64(len(series))
	centred := make([]float64, len(series))
	for i, v := range series {
		centred[i] = v - mean
	}

	fft := FFT(Pad(centred))
	ps := make([]float64, len(fft)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(fft[i])
	}
	return ps
}

// Dominant returns the strongest non-zero frequency in hertz of a series
// sampled every dt seconds. ok is false when the series is flat or too
// short.
func Dominant(series []float64, dt float64) (freq float64, ok bool) {
	if len(series) < 4 || dt <= 0 {
		return 0, false
	}
	ps := PowerSpectrum(series)
	best, idx := 0.0, 0
	for i := 1; i < len(ps); i++ {
		if ps[i] > best {
			best, idx = ps[i], i
		}
	}
	if idx == 0 || best < 1e-9 {
		return 0, false
	}
	n := 2 * len(ps)
	return float64(idx) / (float64(n) * dt), true
}
