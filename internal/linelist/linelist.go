// Package linelist provides embedded emission-line catalogs for arc lamps.
package linelist

import (
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalogs/*.yaml
var catalogFS embed.FS

// ErrUnknownList is returned for a catalog name with no embedded file.
var ErrUnknownList = errors.New("linelist: unknown line list")

// Line is a single emission line.
type Line struct {
	Ion        string  `json:"ion" yaml:"ion"`
	Wavelength float64 `json:"wavelength" yaml:"wavelength"` // Angstrom, air
	Intensity  float64 `json:"intensity" yaml:"intensity"`   // relative
}

// Catalog is one embedded line list.
type Catalog struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Unit        string `yaml:"unit"`
	Lines       []Line `yaml:"lines"`
}

// Names returns the embedded catalog names, sorted.
func Names() []string {
	entries, err := catalogFS.ReadDir("catalogs")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	sort.Strings(names)
	return names
}

// Get returns a single catalog by exact name (e.g. "ArII").
func Get(name string) (*Catalog, error) {
	data, err := catalogFS.ReadFile("catalogs/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownList, name, strings.Join(Names(), ", "))
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", name, err)
	}
	for i := range c.Lines {
		c.Lines[i].Ion = c.Name
	}
	return &c, nil
}

// Load merges the named catalogs into one list sorted by wavelength.
func Load(names ...string) ([]Line, error) {
	var lines []Line
	for _, name := range names {
		c, err := Get(name)
		if err != nil {
			return nil, err
		}
		lines = append(lines, c.Lines...)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Wavelength < lines[j].Wavelength })
	return lines, nil
}

// Between returns the lines with lo <= wavelength <= hi.
func Between(lines []Line, lo, hi float64) []Line {
	if lo > hi {
		lo, hi = hi, lo
	}
	var out []Line
	for _, l := range lines {
		if l.Wavelength >= lo && l.Wavelength <= hi {
			out = append(out, l)
		}
	}
	return out
}

// Wavelengths extracts the wavelength column.
func Wavelengths(lines []Line) []float64 {
	out := make([]float64, len(lines))
	for i, l := range lines {
		out[i] = l.Wavelength
	}
	return out
}
