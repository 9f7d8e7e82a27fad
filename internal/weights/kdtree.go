package weights

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/banshee-data/eventsel/internal/geom"
)

// refPoint adapts a Reference to kdtree.Comparable.
type refPoint struct {
	pos    [3]float64
	weight float64
}

func (p refPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(refPoint)
	return p.pos[d] - q.pos[d]
}

func (p refPoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance.
func (p refPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(refPoint)
	var sum float64
	for i := range p.pos {
		d := p.pos[i] - q.pos[i]
		sum += d * d
	}
	return sum
}

type refPoints []refPoint

func (p refPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p refPoints) Len() int                              { return len(p) }
func (p refPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }
func (p refPoints) Pivot(d kdtree.Dim) int {
	return refPlane{refPoints: p, dim: d}.Pivot()
}

// refPlane sorts reference points along one dimension for median pivoting.
type refPlane struct {
	refPoints
	dim kdtree.Dim
}

func (p refPlane) Less(i, j int) bool {
	return p.refPoints[i].pos[p.dim] < p.refPoints[j].pos[p.dim]
}
func (p refPlane) Swap(i, j int) {
	p.refPoints[i], p.refPoints[j] = p.refPoints[j], p.refPoints[i]
}
func (p refPlane) Pivot() int {
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}
func (p refPlane) Slice(start, end int) kdtree.SortSlicer {
	p.refPoints = p.refPoints[start:end]
	return p
}

// KDTree answers nearest-vertex queries with gonum's k-d tree. Results
// match BruteForce except for the choice between equidistant entries.
type KDTree struct {
	tree *kdtree.Tree
}

// NewKDTree builds a KDTree over a copy of refs; the caller's slice is
// never reordered.
func NewKDTree(refs []Reference) (*KDTree, error) {
	if len(refs) == 0 {
		return nil, ErrEmptyReference
	}
	pts := make(refPoints, len(refs))
	for i, r := range refs {
		pts[i] = refPoint{pos: [3]float64{r.Vertex.X, r.Vertex.Y, r.Vertex.Z}, weight: r.Weight}
	}
	return &KDTree{tree: kdtree.New(pts, false)}, nil
}

// LookupNearest implements NearestLookup.
func (k *KDTree) LookupNearest(p geom.Vec3) (float64, float64) {
	q := refPoint{pos: [3]float64{p.X, p.Y, p.Z}}
	got, d2 := k.tree.Nearest(q)
	if got == nil {
		return math.Inf(1), 0
	}
	return math.Sqrt(d2), got.(refPoint).weight
}
