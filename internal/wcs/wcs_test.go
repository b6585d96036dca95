package wcs

import (
	"errors"
	"math"
	"testing"
)

func truthHeader() Header {
	return Header{
		"CTYPE1": "AWAV-GRA",
		"CUNIT1": "Angstrom",
		"CRPIX1": 719.8,
		"CRVAL1": 5500.0,
		"CDELT1": 3.418,
		"PV1_0":  5.0e5,
		"PV1_1":  1,
		"PV1_2":  30.0,
		"PV1_3":  1.765,
		"PV1_4":  -1.077e6,
		"CTYPE2": "PIXEL",
		"CUNIT2": "pix",
		"CRPIX2": 1,
		"CRVAL2": 0,
		"CDELT2": 1,
	}
}

func approxHeader() Header {
	return Header{
		"CTYPE1": "AWAV",
		"CUNIT1": "Angstrom",
		"CRPIX1": 650.0,
		"CRVAL1": 5500.0,
		"CDELT1": 3.07,
		"CTYPE2": "PIXEL",
		"CUNIT2": "pix",
		"CRPIX2": 1,
		"CRVAL2": 0,
		"CDELT2": 1,
	}
}

func mustTransform(t *testing.T, h Header) Transform {
	t.Helper()
	tr, err := FromHeader(h)
	if err != nil {
		t.Fatalf("FromHeader() error = %v", err)
	}
	return tr
}

func TestParseHeader(t *testing.T) {
	p, err := ParseHeader(truthHeader())
	if err != nil {
		t.Fatalf("ParseHeader() error = %v", err)
	}
	if !p.IsGrating() {
		t.Error("IsGrating() = false, want true")
	}
	if p.Spectral.RefPixel != 719.8 || p.Spectral.RefValue != 5500 || p.Spectral.Step != 3.418 {
		t.Errorf("spectral axis = %+v", p.Spectral)
	}
	if p.Grating.Density != 5e5 || p.Grating.Order != 1 || p.Grating.IncidenceAngle != 30 {
		t.Errorf("grating constants = %+v", p.Grating)
	}
	if p.Grating.RefractiveIndex != 1.765 || p.Grating.RefractionDerivative != -1.077e6 {
		t.Errorf("refraction terms = %+v", p.Grating)
	}
	if p.Spatial.RefPixel != 1 || p.Spatial.RefValue != 0 || p.Spatial.Step != 1 {
		t.Errorf("spatial axis = %+v", p.Spatial)
	}
}

func TestParseHeader_Defaults(t *testing.T) {
	p, err := ParseHeader(Header{"ctype1": "WAVE", "crpix1": 1, "crval1": "4000", "cdelt1": 2})
	if err != nil {
		t.Fatalf("ParseHeader() error = %v", err)
	}
	if p.Spectral.Unit != "Angstrom" {
		t.Errorf("CUNIT1 default = %q, want Angstrom", p.Spectral.Unit)
	}
	if p.Spectral.RefValue != 4000 {
		t.Errorf("CRVAL1 = %v, want 4000 parsed from string", p.Spectral.RefValue)
	}
	if p.Spatial.Type != "PIXEL" || p.Spatial.Step != 1 {
		t.Errorf("spatial default = %+v", p.Spatial)
	}
}

func TestParseHeader_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(Header)
	}{
		{"unknown keyword", func(h Header) { h["NAXIS1"] = 1024 }},
		{"missing CTYPE1", func(h Header) { delete(h, "CTYPE1") }},
		{"missing CRPIX1", func(h Header) { delete(h, "CRPIX1") }},
		{"non-numeric CDELT1", func(h Header) { h["CDELT1"] = "wide" }},
		{"CTYPE1 not a string", func(h Header) { h["CTYPE1"] = 7 }},
		{"missing grating density", func(h Header) { delete(h, "PV1_0") }},
		{"fractional order", func(h Header) { h["PV1_1"] = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := truthHeader()
			tt.mutate(h)
			_, err := ParseHeader(h)
			if !errors.Is(err, ErrHeader) {
				t.Errorf("ParseHeader() error = %v, want ErrHeader", err)
			}
		})
	}
}

func TestNew_InvalidParameters(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(Header)
		want   error
	}{
		{"zero grating density", func(h Header) { h["PV1_0"] = 0.0 }, ErrInvalidParameters},
		{"negative grating density", func(h Header) { h["PV1_0"] = -5.0e5 }, ErrInvalidParameters},
		{"zero order", func(h Header) { h["PV1_1"] = 0 }, ErrInvalidParameters},
		{"zero dispersion", func(h Header) { h["CDELT1"] = 0.0 }, ErrInvalidParameters},
		{"zero spatial step", func(h Header) { h["CDELT2"] = 0 }, ErrInvalidParameters},
		{"reference not diffracted", func(h Header) { h["CRVAL1"] = 50000.0 }, ErrInvalidParameters},
		{"unsupported algorithm", func(h Header) { h["CTYPE1"] = "AWAV-TAB" }, ErrUnsupportedType},
		{"unsupported type", func(h Header) { h["CTYPE1"] = "FREQ" }, ErrUnsupportedType},
		{"unsupported unit", func(h Header) { h["CUNIT1"] = "furlong" }, ErrUnsupportedUnit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := truthHeader()
			tt.mutate(h)
			_, err := FromHeader(h)
			if !errors.Is(err, tt.want) {
				t.Errorf("FromHeader() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPixelToWorld_ReferencePixelIsExact(t *testing.T) {
	for name, h := range map[string]Header{"grating": truthHeader(), "linear": approxHeader()} {
		t.Run(name, func(t *testing.T) {
			tr := mustTransform(t, h)
			p := tr.(Describer).Params()
			x := []float64{p.Spectral.RefPixel - 1}
			y := []float64{p.Spatial.RefPixel - 1}
			spectral, spatial, err := tr.PixelToWorld(x, y)
			if err != nil {
				t.Fatalf("PixelToWorld() error = %v", err)
			}
			if spectral[0] != p.Spectral.RefValue {
				t.Errorf("spectral at reference = %.17g, want exactly %.17g", spectral[0], p.Spectral.RefValue)
			}
			if spatial[0] != p.Spatial.RefValue {
				t.Errorf("spatial at reference = %.17g, want exactly %.17g", spatial[0], p.Spatial.RefValue)
			}
		})
	}
}

func TestGrating_LocalDispersionMatchesCDELT(t *testing.T) {
	g := mustTransform(t, truthHeader()).(*Grating)
	const h = 1e-3
	ref := 719.8 - 1
	d := (g.Wavelength(ref+h) - g.Wavelength(ref-h)) / (2 * h)
	if math.Abs(d-3.418)/3.418 > 1e-6 {
		t.Errorf("dλ/dx at reference = %v, want 3.418", d)
	}
}

func TestGrating_KnownValues(t *testing.T) {
	g := mustTransform(t, truthHeader()).(*Grating)
	tests := []struct {
		x    float64
		want float64
	}{
		{0, 3775.4427859650523},
		{300, 4341.083120277903},
		{900, 6179.454911982484},
		{1023, 6713.450322335961},
	}
	for _, tt := range tests {
		got := g.Wavelength(tt.x)
		if math.Abs(got-tt.want) > 1e-7 {
			t.Errorf("Wavelength(%v) = %.10f, want %.10f", tt.x, got, tt.want)
		}
	}
}

func TestGrating_IsNonlinear(t *testing.T) {
	g := mustTransform(t, truthHeader()).(*Grating)
	left := g.Wavelength(1) - g.Wavelength(0)
	right := g.Wavelength(1023) - g.Wavelength(1022)
	if right/left < 2 {
		t.Errorf("dispersion ratio right/left = %v, expected strongly non-linear solution", right/left)
	}
	prev := g.Wavelength(0)
	for x := 1.0; x < 1024; x++ {
		cur := g.Wavelength(x)
		if cur <= prev {
			t.Fatalf("Wavelength not increasing at x=%v: %v <= %v", x, cur, prev)
		}
		prev = cur
	}
}

func TestWorldToPixel_RoundTrip(t *testing.T) {
	for name, h := range map[string]Header{"grating": truthHeader(), "linear": approxHeader()} {
		t.Run(name, func(t *testing.T) {
			tr := mustTransform(t, h)
			x := []float64{0, 17.25, 511.5, 718.8, 1023}
			y := []float64{0, 3, 100.5, 255, 511}
			spectral, spatial, err := tr.PixelToWorld(x, y)
			if err != nil {
				t.Fatalf("PixelToWorld() error = %v", err)
			}
			bx, by, err := tr.(Inverter).WorldToPixel(spectral, spatial)
			if err != nil {
				t.Fatalf("WorldToPixel() error = %v", err)
			}
			for i := range x {
				if math.Abs(bx[i]-x[i]) > 1e-8 || math.Abs(by[i]-y[i]) > 1e-12 {
					t.Errorf("round trip %d: (%v,%v) -> (%v,%v)", i, x[i], y[i], bx[i], by[i])
				}
			}
		})
	}
}

func TestGrating_WorldToPixelOutOfDomain(t *testing.T) {
	g := mustTransform(t, truthHeader()).(*Grating)
	x, _, err := g.WorldToPixel([]float64{5500, 1e6}, []float64{0, 0})
	if !errors.Is(err, ErrOutOfDomain) {
		t.Fatalf("WorldToPixel() error = %v, want ErrOutOfDomain", err)
	}
	if math.Abs(x[0]-718.8) > 1e-9 {
		t.Errorf("in-domain pixel = %v, want 718.8", x[0])
	}
	if !math.IsNaN(x[1]) {
		t.Errorf("out-of-domain pixel = %v, want NaN", x[1])
	}
}

func TestGrating_UnitsAreConsistent(t *testing.T) {
	nm := truthHeader()
	nm["CUNIT1"] = "nm"
	nm["CRVAL1"] = 550.0
	nm["CDELT1"] = 0.3418
	a := mustTransform(t, truthHeader()).(*Grating)
	b := mustTransform(t, nm).(*Grating)
	for _, x := range []float64{0, 250, 700, 1000} {
		wa, wb := a.Wavelength(x), b.Wavelength(x)*10
		if math.Abs(wa-wb)/wa > 1e-12 {
			t.Errorf("x=%v: %v Å vs %v Å", x, wa, wb)
		}
	}
}

func TestPixelToWorld_ShapeMismatch(t *testing.T) {
	tr := mustTransform(t, approxHeader())
	if _, _, err := tr.PixelToWorld([]float64{1, 2}, []float64{1}); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("PixelToWorld() error = %v, want ErrShapeMismatch", err)
	}
}

func TestHeader_RoundTrip(t *testing.T) {
	for name, h := range map[string]Header{"grating": truthHeader(), "linear": approxHeader()} {
		t.Run(name, func(t *testing.T) {
			p, err := ParseHeader(h)
			if err != nil {
				t.Fatalf("ParseHeader() error = %v", err)
			}
			back, err := ParseHeader(p.Header())
			if err != nil {
				t.Fatalf("ParseHeader(Header()) error = %v", err)
			}
			if back != p {
				t.Errorf("round trip = %+v, want %+v", back, p)
			}
		})
	}
}

func TestHeader_Strings(t *testing.T) {
	p, err := ParseHeader(truthHeader())
	if err != nil {
		t.Fatalf("ParseHeader() error = %v", err)
	}
	s := p.Header().Strings()
	if s["CDELT1"] != "3.418" || s["PV1_1"] != "1" || s["CTYPE1"] != "AWAV-GRA" {
		t.Errorf("Strings() = %v", s)
	}
	back := Header{}
	for k, v := range s {
		back[k] = v
	}
	p2, err := ParseHeader(back)
	if err != nil {
		t.Fatalf("ParseHeader(strings) error = %v", err)
	}
	if p2 != p {
		t.Errorf("string round trip = %+v, want %+v", p2, p)
	}
}

func TestPolynomial(t *testing.T) {
	spatial := Axis{Type: "PIXEL", RefPixel: 1, RefValue: 0, Step: 1}
	p, err := NewPolynomial(100, 50, []float64{5000, 10, 0.5}, spatial)
	if err != nil {
		t.Fatalf("NewPolynomial() error = %v", err)
	}
	if p.Degree() != 2 {
		t.Errorf("Degree() = %d, want 2", p.Degree())
	}
	got := p.Wavelength(150) // u = 1
	if got != 5010.5 {
		t.Errorf("Wavelength(150) = %v, want 5010.5", got)
	}
	if _, err := NewPolynomial(0, 0, []float64{1}, spatial); !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("zero scale error = %v, want ErrInvalidParameters", err)
	}
}

func TestGrid(t *testing.T) {
	x, y := Grid(3, 2)
	wantX := []float64{0, 1, 2, 0, 1, 2}
	wantY := []float64{0, 0, 0, 1, 1, 1}
	for i := range wantX {
		if x[i] != wantX[i] || y[i] != wantY[i] {
			t.Fatalf("Grid(3,2)[%d] = (%v,%v), want (%v,%v)", i, x[i], y[i], wantX[i], wantY[i])
		}
	}
}

func TestFromAngstrom(t *testing.T) {
	tests := []struct {
		unit    string
		want    float64
		wantErr bool
	}{
		{"", 5500, false},
		{"Angstrom", 5500, false},
		{"nm", 550, false},
		{"um", 0.55, false},
		{"m", 5.5e-7, false},
		{"furlong", 0, true},
	}
	for _, tt := range tests {
		got, err := FromAngstrom([]float64{5500}, tt.unit)
		if (err != nil) != tt.wantErr {
			t.Fatalf("FromAngstrom(%q) error = %v, wantErr %v", tt.unit, err, tt.wantErr)
		}
		if tt.wantErr {
			if !errors.Is(err, ErrUnsupportedUnit) {
				t.Errorf("FromAngstrom(%q) error = %v, want ErrUnsupportedUnit", tt.unit, err)
			}
			continue
		}
		if math.Abs(got[0]-tt.want) > 1e-12*tt.want {
			t.Errorf("FromAngstrom(%q) = %v, want %v", tt.unit, got[0], tt.want)
		}
	}
}

func TestUnitOf(t *testing.T) {
	nm := truthHeader()
	nm["CUNIT1"] = "nm"
	nm["CRVAL1"] = 550.0
	nm["CDELT1"] = 0.3418
	poly, err := NewPolynomial(0, 1, []float64{5500, 1}, Axis{RefPixel: 1, Step: 1})
	if err != nil {
		t.Fatal(err)
	}

	if got := UnitOf(mustTransform(t, nm)); got != "nm" {
		t.Errorf("UnitOf(nm grating) = %q", got)
	}
	if got := UnitOf(mustTransform(t, approxHeader())); got != "Angstrom" {
		t.Errorf("UnitOf(linear) = %q", got)
	}
	if got := UnitOf(poly); got != "Angstrom" {
		t.Errorf("UnitOf(polynomial) = %q, want the Angstrom default", got)
	}
}
