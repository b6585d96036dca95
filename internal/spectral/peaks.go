package spectral

import (
	"math"
	"sort"
)

// Peak is a detected emission feature.
type Peak struct {
	Index    int     // pixel of the raw maximum
	Position float64 // sub-pixel centre
	Height   float64 // background-subtracted raw maximum
}

// PeakOptions tunes FindPeaks.
type PeakOptions struct {
	// FWHM of the expected line profile in pixels; drives the matched
	// filter and the local search window.
	FWHM float64
	// Sigma is the detection threshold in units of the robust noise level.
	Sigma float64
	// MinRelHeight is the detection floor as a fraction of the tallest
	// filtered feature; it keeps noiseless data from reporting ripples.
	MinRelHeight float64
	// MinSeparation suppresses weaker peaks closer than this many pixels.
	MinSeparation float64
}

// DefaultPeakOptions returns sensible options for a given line FWHM.
func DefaultPeakOptions(fwhm float64) PeakOptions {
	return PeakOptions{
		FWHM:          fwhm,
		Sigma:         5,
		MinRelHeight:  0.01,
		MinSeparation: fwhm,
	}
}

// FindPeaks detects emission peaks in a one-dimensional profile and refines
// each to sub-pixel precision by fitting a parabola to the logarithm of the
// three samples around the raw maximum, which is exact for a point-sampled
// Gaussian. Peaks are returned in ascending position.
func FindPeaks(profile []float64, opts PeakOptions) []Peak {
	n := len(profile)
	if n < 3 {
		return nil
	}

	bg := Median(profile)
	resid := make([]float64, n)
	for i, v := range profile {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		resid[i] = v - bg
	}

	filtered := MatchedFilter(resid, opts.FWHM)
	maxF := 0.0
	for _, v := range filtered {
		if v > maxF {
			maxF = v
		}
	}
	threshold := math.Max(opts.Sigma*RobustSigma(filtered), opts.MinRelHeight*maxF)
	if maxF <= 0 {
		return nil
	}

	window := int(math.Ceil(opts.FWHM / 2))
	if window < 1 {
		window = 1
	}

	var candidates []Peak
	for i := 1; i < n-1; i++ {
		f := filtered[i]
		if f <= threshold || f < filtered[i-1] || f <= filtered[i+1] {
			continue
		}
		j := argmaxWindow(resid, i-window, i+window)
		if j <= 0 || j >= n-1 {
			continue
		}
		candidates = append(candidates, Peak{
			Index:    j,
			Position: refine(resid, j),
			Height:   resid[j],
		})
	}

	return suppress(candidates, opts.MinSeparation)
}

func argmaxWindow(xs []float64, lo, hi int) int {
	if lo < 0 {
		lo = 0
	}
	if hi > len(xs)-1 {
		hi = len(xs) - 1
	}
	best := lo
	for i := lo + 1; i <= hi; i++ {
		if xs[i] > xs[best] {
			best = i
		}
	}
	return best
}

// refine returns the vertex of the parabola through the log samples at
// j-1, j, j+1, falling back to a linear-space parabola when any sample is
// non-positive.
func refine(xs []float64, j int) float64 {
	a, b, c := xs[j-1], xs[j], xs[j+1]
	if a > 0 && b > 0 && c > 0 {
		a, b, c = math.Log(a), math.Log(b), math.Log(c)
	}
	den := a - 2*b + c
	if den >= 0 {
		return float64(j)
	}
	off := 0.5 * (a - c) / den
	if math.Abs(off) > 1 {
		return float64(j)
	}
	return float64(j) + off
}

// suppress keeps the tallest peak within each minSep neighbourhood.
func suppress(peaks []Peak, minSep float64) []Peak {
	sort.Slice(peaks, func(i, j int) bool { return peaks[i].Height > peaks[j].Height })
	var kept []Peak
	for _, p := range peaks {
		ok := true
		for _, k := range kept {
			if math.Abs(p.Position-k.Position) < minSep {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, p)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].Position < kept[j].Position })
	return kept
}
