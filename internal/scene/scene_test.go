package scene

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/nvandessel/wavecal/internal/spectral"
	"github.com/nvandessel/wavecal/internal/wcs"
)

func truthTransform(t *testing.T) wcs.Transform {
	t.Helper()
	tr, err := wcs.FromHeader(wcs.Header{
		"CTYPE1": "AWAV-GRA", "CUNIT1": "Angstrom",
		"CRPIX1": 719.8, "CRVAL1": 5500.0, "CDELT1": 3.418,
		"PV1_0": 5.0e5, "PV1_1": 1, "PV1_2": 30.0, "PV1_3": 1.765, "PV1_4": -1.077e6,
	})
	if err != nil {
		t.Fatalf("truth transform: %v", err)
	}
	return tr
}

func approxParams(t *testing.T) wcs.Params {
	t.Helper()
	p, err := wcs.ParseHeader(wcs.Header{
		"CTYPE1": "AWAV", "CUNIT1": "Angstrom",
		"CRPIX1": 650.0, "CRVAL1": 5500.0, "CDELT1": 3.07,
	})
	if err != nil {
		t.Fatalf("approx params: %v", err)
	}
	return p
}

func request(t *testing.T, height int, noise bool) Request {
	t.Helper()
	return NewRequest(1024, height, truthTransform(t), approxParams(t), 5, noise, "ArII")
}

func TestGenerate_LinesFollowGroundTruth(t *testing.T) {
	tr := truthTransform(t)
	s, err := Generate(request(t, 8, false))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	lines := s.Lines()
	if len(lines) < 10 {
		t.Fatalf("Generate() injected %d lines, want at least 10", len(lines))
	}

	for _, l := range lines {
		lam, _, err := tr.PixelToWorld([]float64{l.Column}, []float64{4})
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(lam[0]-l.Wavelength) > 1e-9 {
			t.Errorf("truth(%v) = %v, want %v", l.Column, lam[0], l.Wavelength)
		}
		if l.Column < 0 || l.Column > 1023 {
			t.Errorf("line %v listed off detector at column %v", l.Wavelength, l.Column)
		}
	}
}

func TestGenerate_DetectedPeaksRecoverRestWavelengths(t *testing.T) {
	tr := truthTransform(t)
	s, err := Generate(request(t, 4, false))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	const fwhm = 5.0
	peaks := spectral.FindPeaks(spectral.Collapse(s.Flux(), s.Mask()), spectral.DefaultPeakOptions(fwhm))
	lines := s.Lines()

	for i, l := range lines {
		isolated := true
		for j, o := range lines {
			if i != j && math.Abs(o.Column-l.Column) < 3*fwhm {
				isolated = false
			}
		}
		if !isolated {
			continue
		}

		best := math.Inf(1)
		var at float64
		for _, p := range peaks {
			if d := math.Abs(p.Position - l.Column); d < best {
				best, at = d, p.Position
			}
		}
		if best > fwhm {
			t.Errorf("line %v: nearest peak %v px away", l.Wavelength, best)
			continue
		}
		lam, _, _ := tr.PixelToWorld([]float64{at}, []float64{0})
		lo, _, _ := tr.PixelToWorld([]float64{l.Column - fwhm}, []float64{0})
		hi, _, _ := tr.PixelToWorld([]float64{l.Column + fwhm}, []float64{0})
		if lam[0] < lo[0] || lam[0] > hi[0] {
			t.Errorf("line %v recovered at %v, outside [%v, %v]", l.Wavelength, lam[0], lo[0], hi[0])
		}
	}
}

func TestGenerate_ApproxAttached(t *testing.T) {
	s, err := Generate(request(t, 2, false))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if s.Approx() != approxParams(t) {
		t.Errorf("Approx() = %+v", s.Approx())
	}
	lam, _, err := s.WCS().PixelToWorld([]float64{649}, []float64{0})
	if err != nil {
		t.Fatal(err)
	}
	if lam[0] != 5500 {
		t.Errorf("approximate WCS at its reference pixel = %v, want 5500", lam[0])
	}
	if s.Noisy() || s.Seed() != 0 {
		t.Error("noiseless scene reports noise")
	}
	if r, c := s.Flux().Dims(); r != 2 || c != 1024 {
		t.Errorf("Flux().Dims() = %d, %d", r, c)
	}
}

// opaqueTransform hides the Params of the transform it wraps.
type opaqueTransform struct{ wcs.Transform }

func TestGenerate_SpectralUnits(t *testing.T) {
	nm, err := wcs.FromHeader(wcs.Header{
		"CTYPE1": "AWAV-GRA", "CUNIT1": "nm",
		"CRPIX1": 719.8, "CRVAL1": 550.0, "CDELT1": 0.3418,
		"PV1_0": 5.0e5, "PV1_1": 1, "PV1_2": 30.0, "PV1_3": 1.765, "PV1_4": -1.077e6,
	})
	if err != nil {
		t.Fatal(err)
	}
	ref, err := Generate(request(t, 2, false))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		truth   wcs.Transform
		unit    string
		wantErr error
	}{
		{"unit from params", nm, "", nil},
		{"explicit unit", opaqueTransform{nm}, "nm", nil},
		{"opaque defaults to angstrom", opaqueTransform{nm}, "", ErrNoLines},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewRequest(1024, 2, tt.truth, approxParams(t), 5, false, "ArII")
			req.Unit = tt.unit
			s, err := Generate(req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Generate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if len(s.Lines()) != len(ref.Lines()) {
				t.Fatalf("injected %d lines, want %d as in Angstrom", len(s.Lines()), len(ref.Lines()))
			}
			for i, l := range s.Lines() {
				if math.Abs(l.Column-ref.Lines()[i].Column) > 1e-6 {
					t.Errorf("line %v at column %v, want %v", l.Wavelength, l.Column, ref.Lines()[i].Column)
				}
			}
		})
	}
}

func TestGenerate_Reproducible(t *testing.T) {
	a, err := Generate(request(t, 3, false))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Generate(request(t, 3, false))
	if err != nil {
		t.Fatal(err)
	}
	if !equalImages(a, b) {
		t.Error("noiseless scenes differ between runs")
	}

	req := request(t, 3, true)
	req.Seed = 42
	n1, err := Generate(req)
	if err != nil {
		t.Fatal(err)
	}
	n2, err := Generate(req)
	if err != nil {
		t.Fatal(err)
	}
	if !equalImages(n1, n2) {
		t.Error("noisy scenes with the same seed differ")
	}
	req.Seed = 43
	n3, err := Generate(req)
	if err != nil {
		t.Fatal(err)
	}
	if equalImages(n1, n3) {
		t.Error("noisy scenes with different seeds are identical")
	}

	// The noise component is zero-mean around the noiseless image.
	sum := 0.0
	for r := 0; r < 3; r++ {
		for c := 0; c < 1024; c++ {
			sum += n1.Flux().At(r, c) - a.Flux().At(r, c)
		}
	}
	if mean := sum / (3 * 1024); math.Abs(mean) > 5 {
		t.Errorf("mean noise = %v counts, want near zero", mean)
	}
	if n1.Uncertainty().At(0, 0) <= 0 || a.Uncertainty().At(0, 0) != 0 {
		t.Error("uncertainty should be positive only for noisy scenes")
	}
}

func TestGenerate_Saturation(t *testing.T) {
	req := request(t, 2, false)
	req.Saturation = 1000
	s, err := Generate(req)
	if err != nil {
		t.Fatal(err)
	}
	masked := 0
	mask := s.Mask()
	for k, m := range mask {
		v := s.Flux().At(k/1024, k%1024)
		if v > 1000 {
			t.Fatalf("pixel %d = %v exceeds saturation", k, v)
		}
		if m {
			masked++
		}
	}
	if masked == 0 {
		t.Error("no saturated pixels masked")
	}
}

func TestGenerate_InvalidRequests(t *testing.T) {
	base := request(t, 2, false)
	tests := []struct {
		name   string
		mutate func(*Request)
		want   error
	}{
		{"zero width", func(r *Request) { r.Width = 0 }, ErrInvalidRequest},
		{"no truth", func(r *Request) { r.Truth = nil }, ErrInvalidRequest},
		{"zero fwhm", func(r *Request) { r.LineFWHM = 0 }, ErrInvalidRequest},
		{"no line lists", func(r *Request) { r.LineLists = nil }, ErrInvalidRequest},
		{"negative read noise", func(r *Request) { r.ReadNoise = -1 }, ErrInvalidRequest},
		{"unknown list", func(r *Request) { r.LineLists = []string{"Xx"} }, nil},
		{"bad approx", func(r *Request) { r.Approx.Spectral.Step = 0 }, wcs.ErrInvalidParameters},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.mutate(&req)
			_, err := Generate(req)
			if err == nil {
				t.Fatal("Generate() error = nil")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Generate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestArrowRoundTrip(t *testing.T) {
	req := request(t, 3, true)
	req.Seed = 7
	s, err := Generate(req)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := s.WriteArrow(&buf); err != nil {
		t.Fatalf("WriteArrow() error = %v", err)
	}
	got, err := ReadArrow(&buf)
	if err != nil {
		t.Fatalf("ReadArrow() error = %v", err)
	}

	if !equalImages(s, got) {
		t.Error("flux differs after round trip")
	}
	if got.Approx() != s.Approx() {
		t.Errorf("Approx() = %+v, want %+v", got.Approx(), s.Approx())
	}
	if got.Seed() != 7 || !got.Noisy() || got.LineFWHM() != 5 {
		t.Errorf("metadata = seed %d noisy %v fwhm %v", got.Seed(), got.Noisy(), got.LineFWHM())
	}
	if len(got.Lines()) != len(s.Lines()) || got.Lines()[0] != s.Lines()[0] {
		t.Error("injected lines differ after round trip")
	}
	if got.Uncertainty().At(1, 10) != s.Uncertainty().At(1, 10) {
		t.Error("uncertainty differs after round trip")
	}
}

func TestReadArrow_Garbage(t *testing.T) {
	_, err := ReadArrow(bytes.NewReader([]byte("not arrow")))
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("ReadArrow() error = %v, want ErrCorrupt", err)
	}
}

func TestGenerateTrace(t *testing.T) {
	img, err := GenerateTrace(TraceRequest{
		Width: 200, Height: 60, Coeffs: []float64{25, 10, -4},
		Sigma: 2, Amplitude: 100, Background: 1,
	})
	if err != nil {
		t.Fatalf("GenerateTrace() error = %v", err)
	}
	truth := img.Truth()
	if truth[0] != 25 || math.Abs(truth[199]-31) > 1e-12 {
		t.Errorf("truth endpoints = %v, %v", truth[0], truth[199])
	}
	// The brightest row of column 0 is the rounded centre.
	best := 0
	for r := 0; r < 60; r++ {
		if img.Flux().At(r, 0) > img.Flux().At(best, 0) {
			best = r
		}
	}
	if best != 25 {
		t.Errorf("brightest row = %d, want 25", best)
	}

	if _, err := GenerateTrace(TraceRequest{Width: 10, Height: 10}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("GenerateTrace(empty) error = %v", err)
	}
}

func equalImages(a, b *Scene) bool {
	ar, ac := a.Flux().Dims()
	br, bc := b.Flux().Dims()
	if ar != br || ac != bc {
		return false
	}
	for r := 0; r < ar; r++ {
		for c := 0; c < ac; c++ {
			if a.Flux().At(r, c) != b.Flux().At(r, c) {
				return false
			}
		}
	}
	return true
}
