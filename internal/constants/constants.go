// Package constants provides named constants used throughout the wavecal codebase.
// This centralizes magic numbers for better maintainability and documentation.
package constants

// Synthetic scene defaults
const (
	// DefaultBackground is the constant sky/bias level added to every pixel, in counts.
	DefaultBackground = 10.0

	// DefaultPeakFlux is the peak height, in counts, of the strongest injected line.
	// Weaker lines scale by their catalog intensity relative to the strongest.
	DefaultPeakFlux = 5000.0

	// DefaultReadNoise is the Gaussian read noise sigma in counts, applied only
	// when noise is enabled.
	DefaultReadNoise = 5.0

	// DefaultLineFWHM is the line-spread full width at half maximum in pixels.
	DefaultLineFWHM = 5.0

	// RenderHalfWidthSigmas bounds line rendering to this many sigmas either side
	// of the centre; beyond it a Gaussian is below double precision of the peak.
	RenderHalfWidthSigmas = 10.0
)

// Validation tolerances
const (
	// DefaultRelTolerance is the relative tolerance of the full-grid comparison.
	DefaultRelTolerance = 1e-6

	// DefaultAbsTolerance is the absolute tolerance of the full-grid comparison,
	// in the spectral unit of the ground truth.
	DefaultAbsTolerance = 0.0

	// DefaultTraceTolerance is the per-column absolute tolerance, in pixels, of
	// the trace comparison.
	DefaultTraceTolerance = 0.05
)

// Line identification constants used by the reference calibrators.
const (
	// DetectionSigma is the matched-filter detection threshold in robust sigmas.
	DetectionSigma = 5.0

	// IsolationFWHMs drops catalog lines with a neighbour closer than this many
	// line widths, since blended peaks bias the centroid.
	IsolationFWHMs = 3.0

	// MaxIdentifyPeaks caps how many of the brightest peaks seed identification
	// hypotheses.
	MaxIdentifyPeaks = 12

	// DispersionSlack is the allowed fractional deviation of a hypothesis slope
	// from the approximate dispersion.
	DispersionSlack = 0.3

	// MatchRadiusFWHMs is the maximum distance, in line widths, between a
	// predicted and a detected line for them to count as a match.
	MatchRadiusFWHMs = 0.5

	// DefaultPolynomialDegree is the degree used by the linear calibrator when the
	// extras do not name one.
	DefaultPolynomialDegree = 3
)

// Trace fitting defaults
const (
	// DefaultTraceBins is the number of dispersion bins used by Kosmos tracing.
	DefaultTraceBins = 20

	// MinTraceBins is the smallest bin count Kosmos tracing accepts.
	MinTraceBins = 4
)

// Run ledger
const (
	// DataDirName is the per-project directory holding the run database.
	DataDirName = ".wavecal"

	// DatabaseFileName is the SQLite run ledger file inside DataDirName.
	DatabaseFileName = "wavecal.db"

	// DefaultHistoryLimit is how many runs history commands list by default.
	DefaultHistoryLimit = 20
)
