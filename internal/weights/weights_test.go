package weights

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/eventsel/internal/geom"
)

var twoRefs = []Reference{
	{Vertex: geom.Vec3{}, Weight: 2.0},
	{Vertex: geom.Vec3{X: 10, Y: 10, Z: 10}, Weight: 5.0},
}

func TestBruteForce_Nearest(t *testing.T) {
	t.Parallel()

	bf, err := NewBruteForce(twoRefs)
	require.NoError(t, err)

	d, w := bf.LookupNearest(geom.Vec3{X: 0.1})
	assert.InDelta(t, 0.1, d, 1e-12)
	assert.Equal(t, 2.0, w)

	d, w = bf.LookupNearest(geom.Vec3{X: 9, Y: 9, Z: 9})
	assert.InDelta(t, math.Sqrt(3), d, 1e-12)
	assert.Equal(t, 5.0, w)
}

func TestBruteForce_TieKeepsFirst(t *testing.T) {
	t.Parallel()

	bf, err := NewBruteForce([]Reference{
		{Vertex: geom.Vec3{X: -1}, Weight: 7},
		{Vertex: geom.Vec3{X: 1}, Weight: 9},
	})
	require.NoError(t, err)

	_, w := bf.LookupNearest(geom.Vec3{})
	assert.Equal(t, 7.0, w)
}

func TestAssign_ScalesBySampleRatio(t *testing.T) {
	t.Parallel()

	bf, err := NewBruteForce(twoRefs)
	require.NoError(t, err)

	got, err := Assign([]geom.Vec3{{X: 0.1}}, bf, len(twoRefs))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 4.0, got[0])

	got, err = Assign([]geom.Vec3{{X: 0.1}, {X: 11, Y: 10, Z: 10}, {Z: -1}, {Y: 9}}, bf, len(twoRefs))
	require.NoError(t, err)
	assert.Equal(t, []float64{1.0, 2.5, 1.0, 1.0}, got)
}

func TestAssign_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewBruteForce(nil)
	assert.True(t, errors.Is(err, ErrEmptyReference))

	_, err = NewKDTree([]Reference{})
	assert.True(t, errors.Is(err, ErrEmptyReference))

	bf, err := NewBruteForce(twoRefs)
	require.NoError(t, err)
	_, err = Assign([]geom.Vec3{{}}, bf, 0)
	assert.True(t, errors.Is(err, ErrEmptyReference))

	_, err = Assign([]geom.Vec3{{}}, nil, 2)
	assert.Error(t, err)

	got, err := Assign(nil, bf, 2)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSelfWeighted(t *testing.T) {
	t.Parallel()

	got := SelfWeighted(5)
	require.Len(t, got, 5)
	for _, w := range got {
		assert.Equal(t, 1.0, w)
	}
	assert.Empty(t, SelfWeighted(0))
}

func TestKDTree_MatchesBruteForce(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	refs := make([]Reference, 2000)
	for i := range refs {
		refs[i] = Reference{
			Vertex: geom.Vec3{X: rng.Float64() * 700, Y: rng.Float64()*1200 - 600, Z: rng.Float64() * 1400},
			Weight: rng.Float64() * 10,
		}
	}
	original := append([]Reference(nil), refs...)

	bf, err := NewBruteForce(refs)
	require.NoError(t, err)
	kd, err := NewKDTree(refs)
	require.NoError(t, err)
	assert.Equal(t, original, refs, "building the tree must not reorder the reference")

	for i := 0; i < 300; i++ {
		q := geom.Vec3{X: rng.Float64() * 700, Y: rng.Float64()*1200 - 600, Z: rng.Float64() * 1400}
		bd, bw := bf.LookupNearest(q)
		kdd, kw := kd.LookupNearest(q)
		require.InDelta(t, bd, kdd, 1e-9, "query %d", i)
		require.Equal(t, bw, kw, "query %d", i)
	}
}

func TestNewLookup(t *testing.T) {
	t.Parallel()

	l, err := NewLookup(MethodKDTree, twoRefs)
	require.NoError(t, err)
	_, w := l.LookupNearest(geom.Vec3{X: 0.1})
	assert.Equal(t, 2.0, w)

	l, err = NewLookup("", twoRefs)
	require.NoError(t, err)
	assert.IsType(t, &BruteForce{}, l)

	_, err = NewLookup("octree", twoRefs)
	assert.Error(t, err)
}

func TestParseMethod(t *testing.T) {
	t.Parallel()

	m, err := ParseMethod("")
	require.NoError(t, err)
	assert.Equal(t, MethodBruteForce, m)

	m, err = ParseMethod("kdtree")
	require.NoError(t, err)
	assert.Equal(t, MethodKDTree, m)

	_, err = ParseMethod("ball")
	assert.Error(t, err)
}
