// Package noise adds photon noise to rendered images.
package noise

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// AddPoisson replaces every pixel v of img with a Poisson draw of mean
// v + sky, minus sky. The image keeps its sky-subtracted normalization.
// Pixels whose mean is not positive are left unchanged.
func AddPoisson(img *mat.Dense, sky float64, src rand.Source) {
	p := distuv.Poisson{Src: src}
	r, c := img.Dims()
	for i := range r {
		for j := range c {
			lambda := img.At(i, j) + sky
			if lambda <= 0 {
				continue
			}
			p.Lambda = lambda
			img.Set(i, j, p.Rand()-sky)
		}
	}
}
