// Package engine holds the numeric core of reclustering: the cosine distance
// matrix and a DBSCAN pass over it.
package engine

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNoVectors means the matrix would be empty.
	ErrNoVectors = errors.New("no vectors")
	// ErrMixedDimensions means the vectors do not share one length.
	ErrMixedDimensions = errors.New("vectors have different dimensions")
	// ErrZeroVector means a vector has zero norm, so its cosine is undefined.
	ErrZeroVector = errors.New("zero-norm vector")
)

// CosineDistanceMatrix returns d[i][j] = 1 - clip(cos(v_i, v_j), -1, 1).
// The result is symmetric with a zero diagonal and values in [0, 2].
func CosineDistanceMatrix(vectors [][]float32) ([][]float64, error) {
	n := len(vectors)
	if n == 0 {
		return nil, ErrNoVectors
	}
	dim := len(vectors[0])
	norms := make([]float64, n)
	for i, v := range vectors {
		if len(v) != dim || dim == 0 {
			return nil, fmt.Errorf("%w: row %d has %d, row 0 has %d", ErrMixedDimensions, i, len(v), dim)
		}
		var sum float64
		for _, x := range v {
			sum += float64(x) * float64(x)
		}
		if sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
			return nil, fmt.Errorf("%w: row %d", ErrZeroVector, i)
		}
		norms[i] = math.Sqrt(sum)
	}

	d := make([][]float64, n)
	for i := range d {
		d[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			var dot float64
			for k := 0; k < dim; k++ {
				dot += float64(vectors[i][k]) * float64(vectors[j][k])
			}
			sim := dot / (norms[i] * norms[j])
			sim = math.Max(-1, math.Min(1, sim))
			d[i][j] = 1 - sim
			d[j][i] = d[i][j]
		}
	}
	return d, nil
}

// Centroid is the arithmetic mean of the member rows.
func Centroid(vectors [][]float32, members []int) []float32 {
	if len(members) == 0 {
		return nil
	}
	sum := make([]float64, len(vectors[members[0]]))
	for _, m := range members {
		for k, x := range vectors[m] {
			sum[k] += float64(x)
		}
	}
	out := make([]float32, len(sum))
	for k, s := range sum {
		out[k] = float32(s / float64(len(members)))
	}
	return out
}
