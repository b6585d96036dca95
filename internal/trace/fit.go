package trace

import (
	"math"

	"gonum.org/v1/gonum/optimize"
)

// gaussConst is amplitude * exp(-(y-mean)^2 / (2 stddev^2)) + offset.
type gaussConst struct {
	amplitude, mean, stddev, offset float64
}

// fitGaussConst least-squares fits a Gaussian plus constant to (ys, zs),
// skipping NaN samples. On optimizer failure it returns the best point
// reached, or init when none is usable.
func fitGaussConst(ys, zs []float64, init gaussConst) gaussConst {
	f := func(x []float64) float64 {
		s := 0.0
		for i, y := range ys {
			if math.IsNaN(zs[i]) {
				continue
			}
			d := (y - x[1]) / x[2]
			r := x[0]*math.Exp(-0.5*d*d) + x[3] - zs[i]
			s += r * r
		}
		return s
	}
	grad := func(g, x []float64) {
		for k := range g {
			g[k] = 0
		}
		for i, y := range ys {
			if math.IsNaN(zs[i]) {
				continue
			}
			d := (y - x[1]) / x[2]
			e := math.Exp(-0.5 * d * d)
			r := x[0]*e + x[3] - zs[i]
			g[0] += 2 * r * e
			g[1] += 2 * r * x[0] * e * d / x[2]
			g[2] += 2 * r * x[0] * e * d * d / x[2]
			g[3] += 2 * r
		}
	}

	p := optimize.Problem{Func: f, Grad: grad}
	x0 := []float64{init.amplitude, init.mean, init.stddev, init.offset}
	res, err := optimize.Minimize(p, x0, nil, &optimize.LBFGS{})
	if res == nil || !finite(res.X) || res.X[2] == 0 {
		return init
	}
	if err != nil && res.F > f(x0) {
		return init
	}
	return gaussConst{amplitude: res.X[0], mean: res.X[1], stddev: math.Abs(res.X[2]), offset: res.X[3]}
}

func finite(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
