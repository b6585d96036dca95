package scene

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"gonum.org/v1/gonum/mat"

	"github.com/nvandessel/wavecal/internal/wcs"
)

// Schema metadata keys. Approximate WCS keywords are stored as
// "wcs.<KEYWORD>".
const (
	metaWidth    = "wavecal.width"
	metaHeight   = "wavecal.height"
	metaLineFWHM = "wavecal.line_fwhm"
	metaNoisy    = "wavecal.noisy"
	metaSeed     = "wavecal.seed"
	metaLines    = "wavecal.lines"
	metaWCS      = "wcs."
)

var pixelFields = []arrow.Field{
	{Name: "row", Type: arrow.PrimitiveTypes.Int32},
	{Name: "col", Type: arrow.PrimitiveTypes.Int32},
	{Name: "flux", Type: arrow.PrimitiveTypes.Float64},
	{Name: "uncertainty", Type: arrow.PrimitiveTypes.Float64},
	{Name: "mask", Type: arrow.FixedWidthTypes.Boolean},
}

// WriteArrow serializes the scene as an Arrow IPC stream holding one record
// with a row per pixel. Geometry, line metadata and the approximate WCS
// travel in the schema metadata.
func (s *Scene) WriteArrow(w io.Writer) error {
	lines, err := json.Marshal(s.lines)
	if err != nil {
		return fmt.Errorf("encoding lines: %w", err)
	}
	keys := []string{metaWidth, metaHeight, metaLineFWHM, metaNoisy, metaSeed, metaLines}
	values := []string{
		strconv.Itoa(s.width),
		strconv.Itoa(s.height),
		strconv.FormatFloat(s.lineFWHM, 'g', -1, 64),
		strconv.FormatBool(s.noisy),
		strconv.FormatUint(s.seed, 10),
		string(lines),
	}
	hdr := s.approx.Header().Strings()
	for _, k := range s.approx.Header().Keys() {
		keys = append(keys, metaWCS+k)
		values = append(values, hdr[k])
	}
	md := arrow.NewMetadata(keys, values)
	schema := arrow.NewSchema(pixelFields, &md)

	mem := memory.NewGoAllocator()
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	n := s.width * s.height
	rows := make([]int32, 0, n)
	cols := make([]int32, 0, n)
	flux := make([]float64, 0, n)
	unc := make([]float64, 0, n)
	for r := 0; r < s.height; r++ {
		for c := 0; c < s.width; c++ {
			rows = append(rows, int32(r))
			cols = append(cols, int32(c))
			flux = append(flux, s.flux.At(r, c))
			unc = append(unc, s.uncertainty.At(r, c))
		}
	}
	b.Field(0).(*array.Int32Builder).AppendValues(rows, nil)
	b.Field(1).(*array.Int32Builder).AppendValues(cols, nil)
	b.Field(2).(*array.Float64Builder).AppendValues(flux, nil)
	b.Field(3).(*array.Float64Builder).AppendValues(unc, nil)
	b.Field(4).(*array.BooleanBuilder).AppendValues(s.mask, nil)

	rec := b.NewRecord()
	defer rec.Release()

	wr := ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err := wr.Write(rec); err != nil {
		wr.Close()
		return fmt.Errorf("writing arrow record: %w", err)
	}
	return wr.Close()
}

// ReadArrow reconstructs a scene written by WriteArrow.
func ReadArrow(r io.Reader) (*Scene, error) {
	mem := memory.NewGoAllocator()
	rdr, err := ipc.NewReader(r, ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer rdr.Release()

	md := rdr.Schema().Metadata()
	get := func(key string) (string, error) {
		i := md.FindKey(key)
		if i < 0 {
			return "", fmt.Errorf("%w: missing metadata %q", ErrCorrupt, key)
		}
		return md.Values()[i], nil
	}

	s := &Scene{}
	var v string
	if v, err = get(metaWidth); err == nil {
		s.width, err = strconv.Atoi(v)
	}
	if err == nil {
		if v, err = get(metaHeight); err == nil {
			s.height, err = strconv.Atoi(v)
		}
	}
	if err == nil {
		if v, err = get(metaLineFWHM); err == nil {
			s.lineFWHM, err = strconv.ParseFloat(v, 64)
		}
	}
	if err == nil {
		if v, err = get(metaNoisy); err == nil {
			s.noisy, err = strconv.ParseBool(v)
		}
	}
	if err == nil {
		if v, err = get(metaSeed); err == nil {
			s.seed, err = strconv.ParseUint(v, 10, 64)
		}
	}
	if err == nil {
		if v, err = get(metaLines); err == nil {
			err = json.Unmarshal([]byte(v), &s.lines)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if s.width <= 0 || s.height <= 0 {
		return nil, fmt.Errorf("%w: geometry %dx%d", ErrCorrupt, s.width, s.height)
	}

	hdr := wcs.Header{}
	for i, k := range md.Keys() {
		if name, ok := strings.CutPrefix(k, metaWCS); ok {
			hdr[name] = md.Values()[i]
		}
	}
	if s.approx, err = wcs.ParseHeader(hdr); err != nil {
		return nil, err
	}
	if s.approxTransform, err = wcs.New(s.approx); err != nil {
		return nil, err
	}

	n := s.width * s.height
	s.flux = mat.NewDense(s.height, s.width, nil)
	s.uncertainty = mat.NewDense(s.height, s.width, nil)
	s.mask = make([]bool, n)
	seen := 0
	for rdr.Next() {
		rec := rdr.Record()
		rowCol, ok1 := rec.Column(0).(*array.Int32)
		colCol, ok2 := rec.Column(1).(*array.Int32)
		fluxCol, ok3 := rec.Column(2).(*array.Float64)
		uncCol, ok4 := rec.Column(3).(*array.Float64)
		maskCol, ok5 := rec.Column(4).(*array.Boolean)
		if !(ok1 && ok2 && ok3 && ok4 && ok5) {
			return nil, fmt.Errorf("%w: unexpected column types", ErrCorrupt)
		}
		for i := 0; i < int(rec.NumRows()); i++ {
			row, col := int(rowCol.Value(i)), int(colCol.Value(i))
			if row < 0 || row >= s.height || col < 0 || col >= s.width {
				return nil, fmt.Errorf("%w: pixel (%d, %d) outside %dx%d", ErrCorrupt, col, row, s.width, s.height)
			}
			s.flux.Set(row, col, fluxCol.Value(i))
			s.uncertainty.Set(row, col, uncCol.Value(i))
			s.mask[row*s.width+col] = maskCol.Value(i)
			seen++
		}
	}
	if err := rdr.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if seen != n {
		return nil, fmt.Errorf("%w: %d pixels, want %d", ErrCorrupt, seen, n)
	}
	return s, nil
}
