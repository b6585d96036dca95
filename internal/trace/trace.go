// Package trace locates a spectrum's spatial centre along the dispersion
// axis of a two-dimensional image. Rows are the spatial (cross-dispersion)
// axis and columns the dispersion axis.
package trace

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Sentinel errors for the trace package.
var (
	ErrFullyMasked   = errors.New("trace: image is fully masked")
	ErrInvalidBins   = errors.New("trace: invalid bin count")
	ErrInvalidWindow = errors.New("trace: invalid window")
	ErrWindowMasked  = errors.New("trace: every pixel in the window is masked")
	ErrEmpty         = errors.New("trace: empty trace")
)

// Trace is a per-column spatial position. Positions outside [0, rows-1]
// are masked.
type Trace struct {
	pos  []float64
	mask []bool
	rows int
}

// NewTrace traces the middle row of img.
func NewTrace(img mat.Matrix) *Trace {
	rows, _ := img.Dims()
	return NewFlat(img, float64(rows)/2)
}

// NewFlat returns a trace fixed at row pos.
func NewFlat(img mat.Matrix, pos float64) *Trace {
	rows, cols := img.Dims()
	t := &Trace{pos: make([]float64, cols), mask: make([]bool, cols), rows: rows}
	for i := range t.pos {
		t.pos[i] = pos
	}
	t.bound()
	return t
}

// NewArray wraps explicit positions. A longer array is truncated to the
// image width; a shorter one is padded with its last value, masked.
func NewArray(img mat.Matrix, positions []float64) (*Trace, error) {
	if len(positions) == 0 {
		return nil, ErrEmpty
	}
	rows, cols := img.Dims()
	t := &Trace{pos: make([]float64, cols), mask: make([]bool, cols), rows: rows}
	last := positions[len(positions)-1]
	for i := range t.pos {
		if i < len(positions) {
			t.pos[i] = positions[i]
			continue
		}
		t.pos[i] = last
		t.mask[i] = true
	}
	t.bound()
	return t, nil
}

func (t *Trace) bound() {
	hi := float64(t.rows - 1)
	for i, p := range t.pos {
		if math.IsNaN(p) || p < 0 || p > hi {
			t.mask[i] = true
		}
	}
}

// Len returns the number of columns.
func (t *Trace) Len() int { return len(t.pos) }

// At returns the position at column i and whether it is valid.
func (t *Trace) At(i int) (float64, bool) { return t.pos[i], !t.mask[i] }

// Positions returns the trace with masked columns as NaN.
func (t *Trace) Positions() []float64 {
	out := make([]float64, len(t.pos))
	for i, p := range t.pos {
		out[i] = p
		if t.mask[i] {
			out[i] = math.NaN()
		}
	}
	return out
}

// Shift moves the trace by delta rows in place and re-masks positions that
// leave the image.
func (t *Trace) Shift(delta float64) {
	for i := range t.pos {
		t.pos[i] += delta
	}
	t.bound()
}

// Add returns a copy shifted by +delta.
func (t *Trace) Add(delta float64) *Trace {
	c := &Trace{
		pos:  append([]float64(nil), t.pos...),
		mask: append([]bool(nil), t.mask...),
		rows: t.rows,
	}
	c.Shift(delta)
	return c
}

// Sub returns a copy shifted by -delta.
func (t *Trace) Sub(delta float64) *Trace { return t.Add(-delta) }

func (t *Trace) String() string {
	valid := 0
	for _, m := range t.mask {
		if !m {
			valid++
		}
	}
	return fmt.Sprintf("trace(%d columns, %d valid)", len(t.pos), valid)
}
