package linelist

import (
	"errors"
	"sort"
	"testing"
)

func TestNames(t *testing.T) {
	names := Names()
	want := []string{"ArI", "ArII", "HeI", "HgI", "NeI"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestGet(t *testing.T) {
	c, err := Get("ArII")
	if err != nil {
		t.Fatalf("Get(ArII) error = %v", err)
	}
	if len(c.Lines) == 0 {
		t.Fatal("ArII catalog is empty")
	}
	for _, l := range c.Lines {
		if l.Ion != "ArII" {
			t.Errorf("line %v has ion %q, want ArII", l.Wavelength, l.Ion)
		}
		if l.Intensity <= 0 {
			t.Errorf("line %v has non-positive intensity", l.Wavelength)
		}
	}
}

func TestGet_Unknown(t *testing.T) {
	if _, err := Get("Unobtainium"); !errors.Is(err, ErrUnknownList) {
		t.Errorf("Get() error = %v, want ErrUnknownList", err)
	}
	if _, err := Load("ArII", "nope"); !errors.Is(err, ErrUnknownList) {
		t.Errorf("Load() error = %v, want ErrUnknownList", err)
	}
}

func TestLoad_MergesSorted(t *testing.T) {
	lines, err := Load("NeI", "HgI")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	ne, _ := Get("NeI")
	hg, _ := Get("HgI")
	if len(lines) != len(ne.Lines)+len(hg.Lines) {
		t.Errorf("Load() returned %d lines, want %d", len(lines), len(ne.Lines)+len(hg.Lines))
	}
	if !sort.SliceIsSorted(lines, func(i, j int) bool { return lines[i].Wavelength < lines[j].Wavelength }) {
		t.Error("Load() result is not sorted by wavelength")
	}
}

func TestBetween(t *testing.T) {
	lines := []Line{{Wavelength: 4000}, {Wavelength: 5000}, {Wavelength: 6000}}
	got := Between(lines, 5500, 4500)
	if len(got) != 1 || got[0].Wavelength != 5000 {
		t.Errorf("Between() = %v, want [5000]", got)
	}
	if w := Wavelengths(lines); len(w) != 3 || w[2] != 6000 {
		t.Errorf("Wavelengths() = %v", w)
	}
}
