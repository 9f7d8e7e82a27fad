package geom

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// ErrNoConvergence is returned when the symmetric eigen solver fails to
// factorize a matrix.
var ErrNoConvergence = errors.New("geom: eigen decomposition did not converge")

// SymMat3 is a 3x3 symmetric matrix. It is only ever built as a sum of
// outer products, so it is positive semi-definite by construction.
type SymMat3 struct {
	m [3][3]float64
}

// AddOuter accumulates v ⊗ v into the matrix.
func (s *SymMat3) AddOuter(v Vec3) {
	for i := 0; i < 3; i++ {
		vi := v.Component(i)
		for j := 0; j < 3; j++ {
			s.m[i][j] += vi * v.Component(j)
		}
	}
}

// At returns element (i, j).
func (s SymMat3) At(i, j int) float64 {
	return s.m[i][j]
}

// Scaled returns a copy of the matrix multiplied by f.
func (s SymMat3) Scaled(f float64) SymMat3 {
	var out SymMat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.m[i][j] = s.m[i][j] * f
		}
	}
	return out
}

// Trace returns the sum of the diagonal elements.
func (s SymMat3) Trace() float64 {
	return s.m[0][0] + s.m[1][1] + s.m[2][2]
}

// Eigen3 holds the eigen decomposition of a SymMat3.
// Values are sorted descending (Values[0] ≥ Values[1] ≥ Values[2]) and
// Vectors[i] is the unit eigenvector for Values[i].
type Eigen3 struct {
	Values  [3]float64
	Vectors [3]Vec3
}

// EigenSym3 decomposes s with gonum's symmetric eigen solver.
//
// gonum returns eigenvalues in ascending order; they are re-sorted here so
// that callers can rely on λ1 ≥ λ2 ≥ λ3. Zero and rank-deficient matrices
// (events with zero or one contributing particle) decompose without error:
// the zero matrix yields three zero eigenvalues and the identity basis.
func EigenSym3(s SymMat3) (Eigen3, error) {
	data := make([]float64, 0, 9)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			data = append(data, s.m[i][j])
		}
	}
	sym := mat.NewSymDense(3, data)

	var es mat.EigenSym
	if ok := es.Factorize(sym, true); !ok {
		return Eigen3{}, ErrNoConvergence
	}
	values := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	order := []int{0, 1, 2}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] > values[order[b]]
	})

	var out Eigen3
	for k, idx := range order {
		out.Values[k] = values[idx]
		out.Vectors[k] = Vec3{vecs.At(0, idx), vecs.At(1, idx), vecs.At(2, idx)}
	}
	return out, nil
}
