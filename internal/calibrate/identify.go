package calibrate

import (
	"context"
	"math"
	"sort"

	"github.com/nvandessel/wavecal/internal/constants"
	"github.com/nvandessel/wavecal/internal/spectral"
)

// refLine is a catalog line expressed in the feature space of a model:
// pixel = a + b*feature.
type refLine struct {
	wavelength float64
	feature    float64
}

// pairing links a detected peak to a reference line.
type pairing struct {
	peak int
	line int
}

type linearFit struct {
	a, b  float64
	pairs []pairing
	cost  float64
}

// isolated drops lines with a neighbour closer than minSep in wavelength;
// blended peaks bias the centroid.
func isolated(wavelengths []float64, minSep float64) []float64 {
	sorted := append([]float64(nil), wavelengths...)
	sort.Float64s(sorted)
	var out []float64
	for i, w := range sorted {
		if i > 0 && w-sorted[i-1] < minSep {
			continue
		}
		if i < len(sorted)-1 && sorted[i+1]-w < minSep {
			continue
		}
		out = append(out, w)
	}
	return out
}

// brightest returns the positions of the n tallest peaks.
func brightest(peaks []spectral.Peak, n int) []float64 {
	byHeight := append([]spectral.Peak(nil), peaks...)
	sort.Slice(byHeight, func(i, j int) bool { return byHeight[i].Height > byHeight[j].Height })
	if len(byHeight) > n {
		byHeight = byHeight[:n]
	}
	out := make([]float64, len(byHeight))
	for i, p := range byHeight {
		out[i] = p.Position
	}
	sort.Float64s(out)
	return out
}

// identify searches pair hypotheses: every pair of bright peaks against
// every pair of reference lines defines a line pixel = a + b*feature. The
// hypothesis matching the most peaks within radius wins, ties going to the
// smaller summed residual. Slopes outside [bMin, bMax] are skipped.
func identify(ctx context.Context, positions []float64, seeds []float64, refs []refLine, bMin, bMax, radius float64) (linearFit, error) {
	var best linearFit
	for i := 0; i < len(seeds); i++ {
		if err := ctx.Err(); err != nil {
			return linearFit{}, err
		}
		for j := i + 1; j < len(seeds); j++ {
			for k := range refs {
				for l := range refs {
					if k == l {
						continue
					}
					du := refs[l].feature - refs[k].feature
					if du == 0 {
						continue
					}
					b := (seeds[j] - seeds[i]) / du
					if b < bMin || b > bMax {
						continue
					}
					a := seeds[i] - b*refs[k].feature
					pairs, cost := match(positions, refs, a, b, radius)
					if len(pairs) > len(best.pairs) || (len(pairs) == len(best.pairs) && cost < best.cost) {
						best = linearFit{a: a, b: b, pairs: pairs, cost: cost}
					}
				}
			}
		}
	}
	return best, nil
}

// match pairs each reference line with the nearest detected peak within
// radius of its predicted pixel. A peak is claimed by at most one line.
func match(positions []float64, refs []refLine, a, b, radius float64) ([]pairing, float64) {
	type claim struct {
		line int
		dist float64
	}
	claims := make(map[int]claim)
	for li, r := range refs {
		pred := a + b*r.feature
		pi := nearest(positions, pred)
		if pi < 0 {
			continue
		}
		d := math.Abs(positions[pi] - pred)
		if d > radius {
			continue
		}
		if c, ok := claims[pi]; !ok || d < c.dist {
			claims[pi] = claim{line: li, dist: d}
		}
	}
	pairs := make([]pairing, 0, len(claims))
	cost := 0.0
	for pi, c := range claims {
		pairs = append(pairs, pairing{peak: pi, line: c.line})
		cost += c.dist
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].peak < pairs[j].peak })
	return pairs, cost
}

// nearest returns the index of the sorted position closest to x, or -1.
func nearest(sorted []float64, x float64) int {
	if len(sorted) == 0 {
		return -1
	}
	i := sort.SearchFloat64s(sorted, x)
	switch {
	case i == 0:
		return 0
	case i == len(sorted):
		return len(sorted) - 1
	case x-sorted[i-1] <= sorted[i]-x:
		return i - 1
	default:
		return i
	}
}

// refineLinear alternates least-squares fits of pixel = a + b*feature with
// re-matching until the pairing stops changing.
func refineLinear(positions []float64, refs []refLine, fit linearFit, radius float64) linearFit {
	for range 10 {
		if len(fit.pairs) < 2 {
			return fit
		}
		xs := make([]float64, len(fit.pairs))
		ys := make([]float64, len(fit.pairs))
		for i, p := range fit.pairs {
			xs[i] = refs[p.line].feature
			ys[i] = positions[p.peak]
		}
		a, b := leastSquaresLine(xs, ys)
		pairs, cost := match(positions, refs, a, b, radius)
		same := samePairs(pairs, fit.pairs)
		fit = linearFit{a: a, b: b, pairs: pairs, cost: cost}
		if same {
			break
		}
	}
	return fit
}

func samePairs(x, y []pairing) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

// detect collapses the scene along the spatial axis and returns sorted peak
// positions, plus the brightest few as identification seeds.
func detect(profile []float64, fwhm float64) (positions, seeds []float64) {
	opts := spectral.DefaultPeakOptions(fwhm)
	opts.Sigma = constants.DetectionSigma
	peaks := spectral.FindPeaks(profile, opts)
	positions = make([]float64, len(peaks))
	for i, p := range peaks {
		positions[i] = p.Position
	}
	return positions, brightest(peaks, constants.MaxIdentifyPeaks)
}
