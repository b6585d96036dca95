package spectral

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestGaussian_HalfMaximum(t *testing.T) {
	fwhm := 5.0
	sigma := fwhm / SigmaToFWHM
	got := Gaussian(10+fwhm/2, 8, 10, sigma)
	if math.Abs(got-4) > 1e-12 {
		t.Errorf("Gaussian at half width = %v, want 4", got)
	}
	if Gaussian(10, 8, 10, sigma) != 8 {
		t.Error("Gaussian at centre should equal the amplitude")
	}
}

func TestCollapse(t *testing.T) {
	img := mat.NewDense(3, 2, []float64{
		1, 10,
		3, math.NaN(),
		5, 20,
	})
	mask := []bool{
		false, true,
		false, false,
		false, true,
	}

	tests := []struct {
		name string
		mask []bool
		want []float64
	}{
		{"no mask", nil, []float64{3, 15}},
		{"masked column", mask, []float64{3, math.NaN()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Collapse(img, tt.mask)
			for i := range tt.want {
				if math.IsNaN(tt.want[i]) {
					if !math.IsNaN(got[i]) {
						t.Errorf("col %d = %v, want NaN", i, got[i])
					}
					continue
				}
				if got[i] != tt.want[i] {
					t.Errorf("col %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestMedianAndRobustSigma(t *testing.T) {
	if got := Median([]float64{5, 1, math.NaN(), 3}); got != 3 {
		t.Errorf("Median() = %v, want 3", got)
	}
	if got := Median(nil); !math.IsNaN(got) {
		t.Errorf("Median(nil) = %v, want NaN", got)
	}
	// MAD of {1,2,3,4,100} about 3 is 1; the outlier does not move it.
	got := RobustSigma([]float64{1, 2, 3, 4, 100})
	if math.Abs(got-1.4826) > 1e-12 {
		t.Errorf("RobustSigma() = %v, want 1.4826", got)
	}
}

func TestMatchedFilter(t *testing.T) {
	xs := make([]float64, 100)
	xs[40] = 10

	out := MatchedFilter(xs, 4)
	best := 0
	sum := 0.0
	for i, v := range out {
		if v > out[best] {
			best = i
		}
		sum += v
	}
	if best != 40 {
		t.Errorf("filtered peak at %d, want 40", best)
	}
	if math.Abs(sum-10) > 1e-9 {
		t.Errorf("filtered area = %v, want 10", sum)
	}

	same := MatchedFilter(xs, 0)
	if same[40] != 10 || &same[0] == &xs[0] {
		t.Error("zero FWHM should return an unmodified copy")
	}
}

func TestFindPeaks_SubPixel(t *testing.T) {
	const (
		fwhm = 5.0
		bg   = 10.0
	)
	sigma := fwhm / SigmaToFWHM
	centres := []float64{60.3, 131.75, 190.1}
	amps := []float64{1000, 400, 2500}

	profile := make([]float64, 256)
	for i := range profile {
		profile[i] = bg
		for k, c := range centres {
			profile[i] += Gaussian(float64(i), amps[k], c, sigma)
		}
	}

	peaks := FindPeaks(profile, DefaultPeakOptions(fwhm))
	if len(peaks) != len(centres) {
		t.Fatalf("FindPeaks() found %d peaks, want %d: %+v", len(peaks), len(centres), peaks)
	}
	for i, p := range peaks {
		if math.Abs(p.Position-centres[i]) > 1e-6 {
			t.Errorf("peak %d at %.9f, want %v", i, p.Position, centres[i])
		}
		if p.Index != int(math.Round(centres[i])) {
			t.Errorf("peak %d raw index = %d, want %d", i, p.Index, int(math.Round(centres[i])))
		}
	}
}

func TestFindPeaks_Flat(t *testing.T) {
	profile := make([]float64, 64)
	for i := range profile {
		profile[i] = 3
	}
	if peaks := FindPeaks(profile, DefaultPeakOptions(3)); len(peaks) != 0 {
		t.Errorf("FindPeaks(flat) = %+v, want none", peaks)
	}
	if peaks := FindPeaks([]float64{1, 2}, DefaultPeakOptions(3)); peaks != nil {
		t.Errorf("FindPeaks(short) = %+v, want nil", peaks)
	}
}

func TestFindPeaks_Separation(t *testing.T) {
	sigma := 2 / SigmaToFWHM
	profile := make([]float64, 128)
	for i := range profile {
		profile[i] = Gaussian(float64(i), 100, 50, sigma) + Gaussian(float64(i), 60, 55, sigma)
	}
	opts := DefaultPeakOptions(2)
	opts.MinSeparation = 10
	peaks := FindPeaks(profile, opts)
	if len(peaks) != 1 {
		t.Fatalf("FindPeaks() = %+v, want only the taller peak", peaks)
	}
	if math.Abs(peaks[0].Position-50) > 1e-3 {
		t.Errorf("kept peak at %v, want 50", peaks[0].Position)
	}
}
