package harness

import (
	"fmt"
	"math"

	"github.com/nvandessel/wavecal/internal/constants"
	"github.com/nvandessel/wavecal/internal/wcs"
)

// Well-known extras keys.
const (
	KeyTruth   = string(constants.HintTruth)
	KeyGrating = string(constants.HintGrating)
	KeyDegree  = string(constants.HintDegree)
)

// Extras holds auxiliary keyword inputs passed to a model beyond its primary
// data. A nil Extras is never handed to a model: see NormalizeExtras.
type Extras map[string]any

// NormalizeExtras returns e, or an empty mapping when e is nil. It is the
// single recognized default and is applied once at the TestModel boundary.
func NormalizeExtras(e Extras) Extras {
	if e == nil {
		return Extras{}
	}
	return e
}

// ExtrasFrom converts a dynamically typed value (decoded JSON, YAML) into
// Extras. nil becomes an empty mapping; anything that is not a string-keyed
// mapping is ErrMalformedExtras.
func ExtrasFrom(v any) (Extras, error) {
	switch t := v.(type) {
	case nil:
		return Extras{}, nil
	case Extras:
		return NormalizeExtras(t), nil
	case map[string]any:
		return Extras(t), nil
	default:
		return nil, fmt.Errorf("%w: want a mapping, got %T", ErrMalformedExtras, v)
	}
}

// Transform returns the transform stored under key. Params and Header values
// are built into transforms.
func (e Extras) Transform(key string) (wcs.Transform, bool, error) {
	v, ok := e[key]
	if !ok || v == nil {
		return nil, false, nil
	}
	switch t := v.(type) {
	case wcs.Transform:
		return t, true, nil
	case wcs.Params, *wcs.Params, wcs.Header, map[string]any:
		p, _, err := e.Params(key)
		if err != nil {
			return nil, true, err
		}
		tr, err := wcs.New(p)
		if err != nil {
			return nil, true, err
		}
		return tr, true, nil
	default:
		return nil, true, fmt.Errorf("%w: %s holds %T, want a transform", ErrMalformedExtras, key, v)
	}
}

// Params returns the dispersion parameters stored under key. A transform
// that can describe itself is accepted too.
func (e Extras) Params(key string) (wcs.Params, bool, error) {
	v, ok := e[key]
	if !ok || v == nil {
		return wcs.Params{}, false, nil
	}
	switch t := v.(type) {
	case wcs.Params:
		return t, true, nil
	case *wcs.Params:
		return *t, true, nil
	case wcs.Header:
		p, err := wcs.ParseHeader(t)
		return p, true, err
	case map[string]any:
		p, err := wcs.ParseHeader(wcs.Header(t))
		return p, true, err
	case wcs.Describer:
		return t.Params(), true, nil
	default:
		return wcs.Params{}, true, fmt.Errorf("%w: %s holds %T, want dispersion parameters", ErrMalformedExtras, key, v)
	}
}

// Int returns the integer stored under key. Integral floats are accepted.
func (e Extras) Int(key string) (int, bool, error) {
	v, ok := e[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch t := v.(type) {
	case int:
		return t, true, nil
	case int64:
		return int(t), true, nil
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) {
			return int(t), true, nil
		}
	}
	return 0, true, fmt.Errorf("%w: %s holds %v (%T), want an integer", ErrMalformedExtras, key, v, v)
}

// Float returns the number stored under key.
func (e Extras) Float(key string) (float64, bool, error) {
	v, ok := e[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch t := v.(type) {
	case float64:
		return t, true, nil
	case int:
		return float64(t), true, nil
	case int64:
		return float64(t), true, nil
	}
	return 0, true, fmt.Errorf("%w: %s holds %v (%T), want a number", ErrMalformedExtras, key, v, v)
}
