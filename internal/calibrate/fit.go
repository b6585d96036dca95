package calibrate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// leastSquaresLine fits y = a + b*x.
func leastSquaresLine(xs, ys []float64) (a, b float64) {
	return stat.LinearRegression(xs, ys, nil, false)
}

// polyfit fits y = sum c_k u^k with u = (x-center)/scale by least squares.
func polyfit(xs, ys []float64, degree int, center, scale float64) ([]float64, error) {
	n := len(xs)
	if n < degree+1 {
		return nil, fmt.Errorf("%d points cannot constrain a degree %d polynomial", n, degree)
	}
	a := mat.NewDense(n, degree+1, nil)
	for i, x := range xs {
		u := (x - center) / scale
		v := 1.0
		for k := 0; k <= degree; k++ {
			a.Set(i, k, v)
			v *= u
		}
	}
	var c mat.VecDense
	if err := c.SolveVec(a, mat.NewVecDense(n, append([]float64(nil), ys...))); err != nil {
		return nil, fmt.Errorf("polynomial fit: %w", err)
	}
	return mat.Col(nil, 0, &c), nil
}

// rms returns the root mean square of xs.
func rms(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return floats.Norm(xs, 2) / math.Sqrt(float64(len(xs)))
}
