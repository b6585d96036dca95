package scene

import "errors"

// Sentinel errors for the scene package.
var (
	ErrInvalidRequest = errors.New("scene: invalid generation request")
	ErrNonMonotonic   = errors.New("scene: ground-truth wavelengths are not monotonic along a row")
	ErrNoLines        = errors.New("scene: no catalog line falls on the detector")
	ErrCorrupt        = errors.New("scene: malformed serialized scene")
)
