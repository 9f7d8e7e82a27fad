package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDotAndNorms(t *testing.T) {
	t.Parallel()

	a := Vec3{1, 2, 3}
	b := Vec3{-2, 0.5, 4}

	assert.Equal(t, 1*-2+2*0.5+3*4.0, Dot3(a, b))
	assert.Equal(t, 14.0, Norm2(a))
	assert.InDelta(t, math.Sqrt(14), Norm(a), 1e-12)
	assert.Equal(t, Vec3{-1, 2.5, 7}, Add(a, b))
	assert.Equal(t, Vec3{3, 1.5, -1}, Sub(a, b))
	assert.Equal(t, Vec3{2, 4, 6}, Scale(a, 2))
	assert.InDelta(t, 5.0, Distance(Vec3{0, 0, 0}, Vec3{3, 4, 0}), 1e-12)
	assert.Equal(t, 0.0, a.Component(7))
}

func TestEigenSym3_SortedDescending(t *testing.T) {
	t.Parallel()

	var s SymMat3
	s.AddOuter(Vec3{3, 0, 0})
	s.AddOuter(Vec3{0, 2, 0})
	s.AddOuter(Vec3{0, 0, 1})

	eig, err := EigenSym3(s)
	require.NoError(t, err)

	assert.InDelta(t, 9.0, eig.Values[0], 1e-9)
	assert.InDelta(t, 4.0, eig.Values[1], 1e-9)
	assert.InDelta(t, 1.0, eig.Values[2], 1e-9)

	// Principal eigenvector aligns with X.
	assert.InDelta(t, 1.0, math.Abs(eig.Vectors[0].X), 1e-9)
	assert.InDelta(t, 1.0, math.Abs(eig.Vectors[2].Z), 1e-9)
}

func TestEigenSym3_OffDiagonal(t *testing.T) {
	t.Parallel()

	var s SymMat3
	s.AddOuter(Vec3{1, 1, 0})
	s.AddOuter(Vec3{1, -1, 0})
	s.AddOuter(Vec3{0, 0, 0.5})

	eig, err := EigenSym3(s)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, eig.Values[0], eig.Values[1])
	assert.GreaterOrEqual(t, eig.Values[1], eig.Values[2])
	assert.InDelta(t, s.Trace(), eig.Values[0]+eig.Values[1]+eig.Values[2], 1e-9)
	assert.InDelta(t, 0.25, eig.Values[2], 1e-9)
}

func TestEigenSym3_Degenerate(t *testing.T) {
	t.Parallel()

	t.Run("zero matrix", func(t *testing.T) {
		t.Parallel()
		eig, err := EigenSym3(SymMat3{})
		require.NoError(t, err)
		for _, v := range eig.Values {
			assert.InDelta(t, 0.0, v, 1e-12)
		}
	})

	t.Run("single outer product", func(t *testing.T) {
		t.Parallel()
		var s SymMat3
		s.AddOuter(Vec3{0, 0, 2})
		eig, err := EigenSym3(s.Scaled(1.0 / 4.0))
		require.NoError(t, err)
		assert.InDelta(t, 1.0, eig.Values[0], 1e-12)
		assert.InDelta(t, 0.0, eig.Values[1], 1e-12)
		assert.InDelta(t, 0.0, eig.Values[2], 1e-12)
	})
}

func TestSymMat3_AddOuterIsSymmetric(t *testing.T) {
	t.Parallel()

	var s SymMat3
	s.AddOuter(Vec3{1, 2, 3})
	s.AddOuter(Vec3{-4, 0.5, 2})
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.Equal(t, s.At(i, j), s.At(j, i))
		}
	}
	assert.Equal(t, 14.0+16.25+4.0, s.Trace())
}
