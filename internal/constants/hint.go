package constants

// Hint names an extras entry a scenario asks the harness to supply to a
// calibrator.
type Hint string

const (
	// HintTruth passes the ground-truth transform under extras["truth"]. It is
	// meant for self-consistency checks, not for blind calibration.
	HintTruth Hint = "truth"

	// HintGrating passes the instrument's grating constants under
	// extras["grating"]; the reference pixel and dispersion stay unknown.
	HintGrating Hint = "grating"

	// HintDegree passes a polynomial degree under extras["degree"].
	HintDegree Hint = "degree"
)

// Valid returns true if the hint is a recognized value.
func (h Hint) Valid() bool {
	switch h {
	case HintTruth, HintGrating, HintDegree:
		return true
	}
	return false
}

// String returns the string representation of the hint.
func (h Hint) String() string {
	return string(h)
}
