package wcs

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Header is a FITS-style keyword map describing a two-axis transform. It is
// the external schema accepted for both ground-truth and approximate
// transforms, and decodes directly from YAML.
type Header map[string]any

// Recognised header keywords.
const (
	KeyCType1 = "CTYPE1"
	KeyCUnit1 = "CUNIT1"
	KeyCRPix1 = "CRPIX1"
	KeyCRVal1 = "CRVAL1"
	KeyCDelt1 = "CDELT1"
	KeyPV1_0  = "PV1_0"
	KeyPV1_1  = "PV1_1"
	KeyPV1_2  = "PV1_2"
	KeyPV1_3  = "PV1_3"
	KeyPV1_4  = "PV1_4"
	KeyPV1_5  = "PV1_5"
	KeyPV1_6  = "PV1_6"
	KeyCType2 = "CTYPE2"
	KeyCUnit2 = "CUNIT2"
	KeyCRPix2 = "CRPIX2"
	KeyCRVal2 = "CRVAL2"
	KeyCDelt2 = "CDELT2"
)

var knownKeys = map[string]bool{
	KeyCType1: true, KeyCUnit1: true, KeyCRPix1: true, KeyCRVal1: true, KeyCDelt1: true,
	KeyPV1_0: true, KeyPV1_1: true, KeyPV1_2: true, KeyPV1_3: true, KeyPV1_4: true,
	KeyPV1_5: true, KeyPV1_6: true,
	KeyCType2: true, KeyCUnit2: true, KeyCRPix2: true, KeyCRVal2: true, KeyCDelt2: true,
}

// Keys returns the header keywords in sorted order.
func (h Header) Keys() []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParseHeader converts a keyword map into Params. Keyword matching is
// case-insensitive. The spatial axis defaults to a 1:1 PIXEL axis and the
// optional grating terms default to PV1_3=1, PV1_4=PV1_5=PV1_6=0.
func ParseHeader(h Header) (Params, error) {
	norm := make(Header, len(h))
	for k, v := range h {
		key := strings.ToUpper(strings.TrimSpace(k))
		if !knownKeys[key] {
			return Params{}, fmt.Errorf("%w: unknown keyword %q", ErrHeader, k)
		}
		norm[key] = v
	}

	p := Params{
		Spatial: Axis{Type: "PIXEL", Unit: "pix", RefPixel: 1, RefValue: 0, Step: 1},
		Grating: GratingConstants{RefractiveIndex: 1},
	}

	var err error
	if p.Spectral.Type, err = norm.requiredString(KeyCType1); err != nil {
		return Params{}, err
	}
	if p.Spectral.Unit, err = norm.optionalString(KeyCUnit1, "Angstrom"); err != nil {
		return Params{}, err
	}
	for key, dst := range map[string]*float64{
		KeyCRPix1: &p.Spectral.RefPixel,
		KeyCRVal1: &p.Spectral.RefValue,
		KeyCDelt1: &p.Spectral.Step,
	} {
		if *dst, err = norm.requiredFloat(key); err != nil {
			return Params{}, err
		}
	}

	if p.Spatial.Type, err = norm.optionalString(KeyCType2, p.Spatial.Type); err != nil {
		return Params{}, err
	}
	if p.Spatial.Unit, err = norm.optionalString(KeyCUnit2, p.Spatial.Unit); err != nil {
		return Params{}, err
	}
	for key, dst := range map[string]*float64{
		KeyCRPix2: &p.Spatial.RefPixel,
		KeyCRVal2: &p.Spatial.RefValue,
		KeyCDelt2: &p.Spatial.Step,
	} {
		if *dst, err = norm.optionalFloat(key, *dst); err != nil {
			return Params{}, err
		}
	}

	if p.IsGrating() {
		for _, key := range []string{KeyPV1_0, KeyPV1_1, KeyPV1_2} {
			if _, ok := norm[key]; !ok {
				return Params{}, fmt.Errorf("%w: %s is required for %s", ErrHeader, key, p.Spectral.Type)
			}
		}
		order, err := norm.requiredFloat(KeyPV1_1)
		if err != nil {
			return Params{}, err
		}
		if order != math.Trunc(order) {
			return Params{}, fmt.Errorf("%w: PV1_1 (order) must be an integer, got %g", ErrHeader, order)
		}
		p.Grating.Order = int(order)
		for key, dst := range map[string]*float64{
			KeyPV1_0: &p.Grating.Density,
			KeyPV1_2: &p.Grating.IncidenceAngle,
			KeyPV1_3: &p.Grating.RefractiveIndex,
			KeyPV1_4: &p.Grating.RefractionDerivative,
			KeyPV1_5: &p.Grating.OutOfPlaneAngle,
			KeyPV1_6: &p.Grating.CameraAngle,
		} {
			if *dst, err = norm.optionalFloat(key, *dst); err != nil {
				return Params{}, err
			}
		}
	}

	return p, nil
}

// Header renders Params back into keyword form. Grating terms are only
// emitted for grating transforms.
func (p Params) Header() Header {
	h := Header{
		KeyCType1: p.Spectral.Type,
		KeyCUnit1: p.Spectral.Unit,
		KeyCRPix1: p.Spectral.RefPixel,
		KeyCRVal1: p.Spectral.RefValue,
		KeyCDelt1: p.Spectral.Step,
		KeyCType2: p.Spatial.Type,
		KeyCUnit2: p.Spatial.Unit,
		KeyCRPix2: p.Spatial.RefPixel,
		KeyCRVal2: p.Spatial.RefValue,
		KeyCDelt2: p.Spatial.Step,
	}
	if p.IsGrating() {
		h[KeyPV1_0] = p.Grating.Density
		h[KeyPV1_1] = p.Grating.Order
		h[KeyPV1_2] = p.Grating.IncidenceAngle
		h[KeyPV1_3] = p.Grating.RefractiveIndex
		h[KeyPV1_4] = p.Grating.RefractionDerivative
		h[KeyPV1_5] = p.Grating.OutOfPlaneAngle
		h[KeyPV1_6] = p.Grating.CameraAngle
	}
	return h
}

// Strings renders every value as a string, for string-only metadata stores.
func (h Header) Strings() map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		switch t := v.(type) {
		case float64:
			out[k] = strconv.FormatFloat(t, 'g', -1, 64)
		default:
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}

func (h Header) requiredString(key string) (string, error) {
	v, ok := h[key]
	if !ok {
		return "", fmt.Errorf("%w: %s is required", ErrHeader, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string, got %T", ErrHeader, key, v)
	}
	return s, nil
}

func (h Header) optionalString(key, def string) (string, error) {
	if _, ok := h[key]; !ok {
		return def, nil
	}
	return h.requiredString(key)
}

func (h Header) requiredFloat(key string) (float64, error) {
	v, ok := h[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s is required", ErrHeader, key)
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrHeader, key, err)
	}
	return f, nil
}

func (h Header) optionalFloat(key string, def float64) (float64, error) {
	if _, ok := h[key]; !ok {
		return def, nil
	}
	return h.requiredFloat(key)
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case uint64:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", t)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("must be numeric, got %T", v)
	}
}
