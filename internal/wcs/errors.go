package wcs

import "errors"

// Sentinel errors for the wcs package.
// Use errors.Is to check: errors.Is(err, wcs.ErrInvalidParameters)
var (
	ErrInvalidParameters = errors.New("wcs: physically inconsistent dispersion parameters")
	ErrUnsupportedType   = errors.New("wcs: unsupported axis type")
	ErrUnsupportedUnit   = errors.New("wcs: unsupported axis unit")
	ErrShapeMismatch     = errors.New("wcs: coordinate arrays differ in length")
	ErrOutOfDomain       = errors.New("wcs: world coordinate outside the transform domain")
	ErrHeader            = errors.New("wcs: malformed header")
)
