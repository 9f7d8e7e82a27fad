package rootio

import (
	"fmt"

	"go-hep.org/x/hep/groot/rtree"

	"github.com/banshee-data/eventsel/internal/geom"
	"github.com/banshee-data/eventsel/internal/sample"
	"github.com/banshee-data/eventsel/internal/weights"
)

type referenceVars struct {
	x, y, z float32
	weight  float64
}

func (v *referenceVars) readVars() []rtree.ReadVar {
	return []rtree.ReadVar{
		{Name: brRefX, Value: &v.x},
		{Name: brRefY, Value: &v.y},
		{Name: brRefZ, Value: &v.z},
		{Name: brRefWeight, Value: &v.weight},
	}
}

// ReadReference loads the reference sample of spec in entry order.
func ReadReference(spec sample.Spec) ([]weights.Reference, error) {
	treeName := spec.ReferenceTree
	if treeName == "" {
		treeName = DefaultReferenceTree
	}
	f, t, err := openTree(spec.ReferencePath, treeName)
	if err != nil {
		return nil, &sample.SchemaError{Sample: spec.Label, Field: treeName, Err: err}
	}
	defer f.Close()

	var v referenceVars
	rvars := v.readVars()
	for _, rv := range rvars {
		if t.Branch(rv.Name) == nil {
			return nil, &sample.SchemaError{Sample: spec.Label, Field: rv.Name}
		}
	}

	r, err := rtree.NewReader(t, rvars)
	if err != nil {
		return nil, fmt.Errorf("create reference reader: %w", err)
	}
	defer r.Close()

	refs := make([]weights.Reference, 0, t.Entries())
	err = r.Read(func(rtree.RCtx) error {
		refs = append(refs, weights.Reference{
			Vertex: geom.Vec3{X: float64(v.x), Y: float64(v.y), Z: float64(v.z)},
			Weight: v.weight,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read reference %s: %w", spec.ReferencePath, err)
	}
	return refs, nil
}
