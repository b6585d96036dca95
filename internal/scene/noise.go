package scene

import (
	"math"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// addNoise replaces every pixel with a Poisson draw of its expected counts
// plus Gaussian read noise, and fills unc with the matching 1-sigma error.
// It returns the seed used.
func addNoise(flux, unc *mat.Dense, readNoise float64, seed uint64) uint64 {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano()) | 1
	}
	src := rand.NewSource(seed)
	read := distuv.Normal{Mu: 0, Sigma: readNoise, Src: src}

	rows, _ := flux.Dims()
	for r := 0; r < rows; r++ {
		row := flux.RawRowView(r)
		urow := unc.RawRowView(r)
		for c, expected := range row {
			signal := math.Max(expected, 0)
			v := distuv.Poisson{Lambda: signal, Src: src}.Rand()
			if readNoise > 0 {
				v += read.Rand()
			}
			row[c] = v
			urow[c] = math.Sqrt(signal + readNoise*readNoise)
		}
	}
	return seed
}
