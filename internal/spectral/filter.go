package spectral

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
)

// MatchedFilter convolves xs with a unit-area Gaussian kernel of the given
// FWHM using FFTs. The signal is zero-padded, so callers should subtract the
// background first. A non-positive FWHM returns a copy of xs.
func MatchedFilter(xs []float64, fwhm float64) []float64 {
	out := make([]float64, len(xs))
	if fwhm <= 0 || len(xs) == 0 {
		copy(out, xs)
		return out
	}

	sigma := fwhm / SigmaToFWHM
	half := int(math.Ceil(4 * sigma))
	n := nextPow2(len(xs) + 2*half + 1)

	signal := make([]float64, n)
	for i, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		signal[i] = x
	}

	// Kernel centred on index 0 with wrap-around, so the convolution is
	// not shifted.
	kernel := make([]float64, n)
	sum := 0.0
	for d := -half; d <= half; d++ {
		v := Gaussian(float64(d), 1, 0, sigma)
		kernel[(d+n)%n] = v
		sum += v
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	fs := fft.FFTReal(signal)
	fk := fft.FFTReal(kernel)
	for i := range fs {
		fs[i] *= fk[i]
	}
	conv := fft.IFFT(fs)
	for i := range out {
		out[i] = real(conv[i])
	}
	return out
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
