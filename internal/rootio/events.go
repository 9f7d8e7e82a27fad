package rootio

import (
	"context"
	"fmt"

	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/riofs"
	"go-hep.org/x/hep/groot/rtree"

	"github.com/banshee-data/eventsel/internal/geom"
	"github.com/banshee-data/eventsel/internal/particle"
	"github.com/banshee-data/eventsel/internal/sample"
	"github.com/banshee-data/eventsel/internal/units"
)

// eventVars holds one entry of the event tree.
type eventVars struct {
	nPFP     int32
	isTrack  []int32
	isShower []int32

	nTracks   int32
	trkPlanes int32
	trkBest   []int32
	trkMom    []float32
	trkDirX   []float32
	trkDirY   []float32
	trkDirZ   []float32
	trkPIDA   []float32

	nHits    int32
	hitTrack []int32
	hitPlane []int32
	hitDEdx  []float32
	hitX     []float32
	hitY     []float32
	hitZ     []float32

	nShowers  int32
	shwPlanes int32
	shwBest   []int32
	shwEnergy []float32
	shwDirX   []float32
	shwDirY   []float32
	shwDirZ   []float32

	vtx [3]float32

	// momUnit is the unit of trkMom; empty means DefaultMomentumUnit.
	momUnit string
}

// readVars binds every event branch to v.
func (v *eventVars) readVars(vertex []string) []rtree.ReadVar {
	return []rtree.ReadVar{
		{Name: brNumPFP, Value: &v.nPFP},
		{Name: brIsTrack, Value: &v.isTrack},
		{Name: brIsShower, Value: &v.isShower},
		{Name: brNumTracks, Value: &v.nTracks},
		{Name: brTrkPlanes, Value: &v.trkPlanes},
		{Name: brTrkBest, Value: &v.trkBest},
		{Name: brTrkMom, Value: &v.trkMom},
		{Name: brTrkDirX, Value: &v.trkDirX},
		{Name: brTrkDirY, Value: &v.trkDirY},
		{Name: brTrkDirZ, Value: &v.trkDirZ},
		{Name: brTrkPIDA, Value: &v.trkPIDA},
		{Name: brNumHits, Value: &v.nHits},
		{Name: brHitTrack, Value: &v.hitTrack},
		{Name: brHitPlane, Value: &v.hitPlane},
		{Name: brHitDEdx, Value: &v.hitDEdx},
		{Name: brHitX, Value: &v.hitX},
		{Name: brHitY, Value: &v.hitY},
		{Name: brHitZ, Value: &v.hitZ},
		{Name: brNumShowers, Value: &v.nShowers},
		{Name: brShwPlanes, Value: &v.shwPlanes},
		{Name: brShwBest, Value: &v.shwBest},
		{Name: brShwEnergy, Value: &v.shwEnergy},
		{Name: brShwDirX, Value: &v.shwDirX},
		{Name: brShwDirY, Value: &v.shwDirY},
		{Name: brShwDirZ, Value: &v.shwDirZ},
		{Name: vertex[0], Value: &v.vtx[0]},
		{Name: vertex[1], Value: &v.vtx[1]},
		{Name: vertex[2], Value: &v.vtx[2]},
	}
}

func flag(flags []int32, j int) bool {
	return j < len(flags) && flags[j] == 1
}

func at(vals []float32, j int) float64 {
	if j < 0 || j >= len(vals) {
		return 0
	}
	return float64(vals[j])
}

func atInt(vals []int32, j int) int {
	if j < 0 || j >= len(vals) {
		return -1
	}
	return int(vals[j])
}

// decode converts the current entry to an Event with one particle per
// slot. Unflagged slots become KindNone placeholders. Out-of-range indices
// degrade to zero values rather than failing the event.
func (v *eventVars) decode() particle.Event {
	ev := particle.Event{
		Vertex: geom.Vec3{X: float64(v.vtx[0]), Y: float64(v.vtx[1]), Z: float64(v.vtx[2])},
	}

	unit := v.momUnit
	if unit == "" {
		unit = DefaultMomentumUnit
	}
	nTrk, nShw := int(v.nTracks), int(v.nShowers)
	slots := max(nTrk, nShw)
	trackAt := make(map[int]int, nTrk)
	for j := 0; j < slots; j++ {
		switch {
		case flag(v.isTrack, j) && j < nTrk:
			p := particle.Particle{
				Kind:      particle.KindTrack,
				Direction: geom.Vec3{X: at(v.trkDirX, j), Y: at(v.trkDirY, j), Z: at(v.trkDirZ, j)},
				Momentum:  units.ToMeV(at(v.trkMom, j), unit),
				BestPlane: atInt(v.trkBest, j),
			}
			for plane := 0; plane < particle.NumPlanes; plane++ {
				p.PID[plane] = at(v.trkPIDA, particle.NumPlanes*j+plane)
			}
			trackAt[j] = len(ev.Particles)
			ev.Particles = append(ev.Particles, p)
		case flag(v.isShower, j) && j < nShw:
			p := particle.Particle{
				Kind:      particle.KindShower,
				Direction: geom.Vec3{X: at(v.shwDirX, j), Y: at(v.shwDirY, j), Z: at(v.shwDirZ, j)},
				BestPlane: atInt(v.shwBest, j),
			}
			for plane := 0; plane < particle.NumPlanes; plane++ {
				p.PlaneEnergy[plane] = at(v.shwEnergy, particle.NumPlanes*j+plane)
			}
			ev.Particles = append(ev.Particles, p)
		default:
			ev.Particles = append(ev.Particles, particle.Particle{Kind: particle.KindNone, BestPlane: -1})
		}
	}

	for k := 0; k < int(v.nHits) && k < len(v.hitDEdx); k++ {
		idx, ok := trackAt[atInt(v.hitTrack, k)]
		plane := atInt(v.hitPlane, k)
		if !ok || plane < 0 || plane >= particle.NumPlanes {
			continue
		}
		p := &ev.Particles[idx]
		p.Hits[plane] = append(p.Hits[plane], particle.Hit{
			Pos:  geom.Vec3{X: at(v.hitX, k), Y: at(v.hitY, k), Z: at(v.hitZ, k)},
			DEdx: float64(v.hitDEdx[k]),
		})
	}
	return ev
}

// EventReader reads events from a ROOT event tree.
type EventReader struct {
	f       *riofs.File
	tree    rtree.Tree
	vertex  []string
	momUnit string
}

// OpenEvents opens the event tree of spec. Without explicit vertex fields
// the vertex branches follow the sample's policy (see VertexBranchesFor).
// A missing tree or branch is a *sample.SchemaError.
func OpenEvents(spec sample.Spec) (*EventReader, error) {
	treeName := spec.Tree
	if treeName == "" {
		treeName = DefaultEventTree
	}
	vertex := spec.VertexFields
	if len(vertex) == 0 {
		policy, err := spec.Policy()
		if err != nil {
			return nil, err
		}
		vertex = VertexBranchesFor(policy)
	}
	if len(vertex) != 3 {
		return nil, fmt.Errorf("sample %q: need 3 vertex branches, got %d", spec.Label, len(vertex))
	}
	unit := spec.MomentumUnit
	if unit == "" {
		unit = DefaultMomentumUnit
	}
	if !units.IsValid(unit) {
		return nil, fmt.Errorf("sample %q: momentum unit %q must be one of: %s", spec.Label, unit, units.GetValidUnitsString())
	}

	f, t, err := openTree(spec.InputPath, treeName)
	if err != nil {
		return nil, &sample.SchemaError{Sample: spec.Label, Field: treeName, Err: err}
	}

	var schema eventVars
	for _, rv := range schema.readVars(vertex) {
		if t.Branch(rv.Name) == nil {
			f.Close()
			return nil, &sample.SchemaError{Sample: spec.Label, Field: rv.Name}
		}
	}
	return &EventReader{f: f, tree: t, vertex: vertex, momUnit: unit}, nil
}

func openTree(path, name string) (*riofs.File, rtree.Tree, error) {
	f, err := groot.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	obj, err := riofs.Dir(f).Get(name)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("get tree %q from %s: %w", name, path, err)
	}
	t, ok := obj.(rtree.Tree)
	if !ok {
		f.Close()
		return nil, nil, fmt.Errorf("%s:%s is a %T, not a tree", path, name, obj)
	}
	return f, t, nil
}

// NumEvents returns the number of entries in the tree.
func (r *EventReader) NumEvents() int { return int(r.tree.Entries()) }

// Scan decodes every entry in order and passes it to fn.
func (r *EventReader) Scan(ctx context.Context, fn func(index int, ev particle.Event) error) error {
	v := eventVars{momUnit: r.momUnit}
	rr, err := rtree.NewReader(r.tree, v.readVars(r.vertex))
	if err != nil {
		return fmt.Errorf("create tree reader: %w", err)
	}
	defer rr.Close()

	return rr.Read(func(rctx rtree.RCtx) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(int(rctx.Entry), v.decode())
	})
}

// Close closes the underlying file.
func (r *EventReader) Close() error { return r.f.Close() }
