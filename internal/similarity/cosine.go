package similarity

import (
	"errors"

	"gonum.org/v1/gonum/blas/gonum"
)

var blas = gonum.Implementation{}

// ErrDimensionMismatch is returned when two vectors differ in length.
var ErrDimensionMismatch = errors.New("similarity: vector dimension mismatch")

// Cosine returns the cosine similarity of a and b. Zero vectors yield 0.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}
	if len(a) == 0 {
		return 0, nil
	}
	na := blas.Snrm2(len(a), a, 1)
	nb := blas.Snrm2(len(b), b, 1)
	if na == 0 || nb == 0 {
		return 0, nil
	}
	dot := blas.Sdot(len(a), a, 1, b, 1)
	return clampUnit(float64(dot) / (float64(na) * float64(nb))), nil
}

// normalizeInPlace scales v to unit length; zero vectors are left untouched.
func normalizeInPlace(v []float32) {
	n := blas.Snrm2(len(v), v, 1)
	if n == 0 {
		return
	}
	blas.Sscal(len(v), 1/n, v, 1)
}

// dotUnit is the cosine similarity of two unit vectors.
func dotUnit(a, b []float32) float64 {
	return clampUnit(float64(blas.Sdot(len(a), a, 1, b, 1)))
}

// clampUnit guards against float rounding pushing values outside [-1, 1].
func clampUnit(v float64) float64 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}
