package rootio

import (
	"go-hep.org/x/hep/groot/rtree"

	"github.com/banshee-data/eventsel/internal/particle"
	"github.com/banshee-data/eventsel/internal/units"
	"github.com/banshee-data/eventsel/internal/weights"
)

func (v *eventVars) writeVars(vertex []string) []rtree.WriteVar {
	return []rtree.WriteVar{
		{Name: brNumPFP, Value: &v.nPFP},
		{Name: brIsTrack, Value: &v.isTrack, Count: brNumPFP},
		{Name: brIsShower, Value: &v.isShower, Count: brNumPFP},
		{Name: brNumTracks, Value: &v.nTracks},
		{Name: brTrkPlanes, Value: &v.trkPlanes},
		{Name: brTrkBest, Value: &v.trkBest, Count: brNumTracks},
		{Name: brTrkMom, Value: &v.trkMom, Count: brNumTracks},
		{Name: brTrkDirX, Value: &v.trkDirX, Count: brNumTracks},
		{Name: brTrkDirY, Value: &v.trkDirY, Count: brNumTracks},
		{Name: brTrkDirZ, Value: &v.trkDirZ, Count: brNumTracks},
		{Name: brTrkPIDA, Value: &v.trkPIDA, Count: brTrkPlanes},
		{Name: brNumHits, Value: &v.nHits},
		{Name: brHitTrack, Value: &v.hitTrack, Count: brNumHits},
		{Name: brHitPlane, Value: &v.hitPlane, Count: brNumHits},
		{Name: brHitDEdx, Value: &v.hitDEdx, Count: brNumHits},
		{Name: brHitX, Value: &v.hitX, Count: brNumHits},
		{Name: brHitY, Value: &v.hitY, Count: brNumHits},
		{Name: brHitZ, Value: &v.hitZ, Count: brNumHits},
		{Name: brNumShowers, Value: &v.nShowers},
		{Name: brShwPlanes, Value: &v.shwPlanes},
		{Name: brShwBest, Value: &v.shwBest, Count: brNumShowers},
		{Name: brShwEnergy, Value: &v.shwEnergy, Count: brShwPlanes},
		{Name: brShwDirX, Value: &v.shwDirX, Count: brNumShowers},
		{Name: brShwDirY, Value: &v.shwDirY, Count: brNumShowers},
		{Name: brShwDirZ, Value: &v.shwDirZ, Count: brNumShowers},
		{Name: vertex[0], Value: &v.vtx[0]},
		{Name: vertex[1], Value: &v.vtx[1]},
		{Name: vertex[2], Value: &v.vtx[2]},
	}
}

// encode lays ev out with one slot per particle, in input order.
func (v *eventVars) encode(ev particle.Event) {
	n := len(ev.Particles)
	*v = eventVars{
		nPFP:      int32(n),
		isTrack:   make([]int32, n),
		isShower:  make([]int32, n),
		nTracks:   int32(n),
		trkPlanes: int32(particle.NumPlanes * n),
		trkBest:   make([]int32, n),
		trkMom:    make([]float32, n),
		trkDirX:   make([]float32, n),
		trkDirY:   make([]float32, n),
		trkDirZ:   make([]float32, n),
		trkPIDA:   make([]float32, particle.NumPlanes*n),
		hitTrack:  []int32{},
		hitPlane:  []int32{},
		hitDEdx:   []float32{},
		hitX:      []float32{},
		hitY:      []float32{},
		hitZ:      []float32{},
		nShowers:  int32(n),
		shwPlanes: int32(particle.NumPlanes * n),
		shwBest:   make([]int32, n),
		shwEnergy: make([]float32, particle.NumPlanes*n),
		shwDirX:   make([]float32, n),
		shwDirY:   make([]float32, n),
		shwDirZ:   make([]float32, n),
		vtx:       [3]float32{float32(ev.Vertex.X), float32(ev.Vertex.Y), float32(ev.Vertex.Z)},
	}

	for j, p := range ev.Particles {
		switch p.Kind {
		case particle.KindTrack:
			v.isTrack[j] = 1
			v.trkBest[j] = int32(p.BestPlane)
			v.trkMom[j] = float32(units.FromMeV(p.Momentum, DefaultMomentumUnit))
			v.trkDirX[j] = float32(p.Direction.X)
			v.trkDirY[j] = float32(p.Direction.Y)
			v.trkDirZ[j] = float32(p.Direction.Z)
			for plane := 0; plane < particle.NumPlanes; plane++ {
				v.trkPIDA[particle.NumPlanes*j+plane] = float32(p.PID[plane])
				for _, h := range p.Hits[plane] {
					v.hitTrack = append(v.hitTrack, int32(j))
					v.hitPlane = append(v.hitPlane, int32(plane))
					v.hitDEdx = append(v.hitDEdx, float32(h.DEdx))
					v.hitX = append(v.hitX, float32(h.Pos.X))
					v.hitY = append(v.hitY, float32(h.Pos.Y))
					v.hitZ = append(v.hitZ, float32(h.Pos.Z))
				}
			}
		case particle.KindShower:
			v.isShower[j] = 1
			v.shwBest[j] = int32(p.BestPlane)
			v.shwDirX[j] = float32(p.Direction.X)
			v.shwDirY[j] = float32(p.Direction.Y)
			v.shwDirZ[j] = float32(p.Direction.Z)
			for plane := 0; plane < particle.NumPlanes; plane++ {
				v.shwEnergy[particle.NumPlanes*j+plane] = float32(p.PlaneEnergy[plane])
			}
		}
	}
	v.nHits = int32(len(v.hitDEdx))
}

// WriteEvents writes events to a new ROOT file as an event tree, with
// momenta in DefaultMomentumUnit. vertex names the three vertex branches;
// nil selects DefaultVertexBranches.
func WriteEvents(path, tree string, vertex []string, events []particle.Event) error {
	if tree == "" {
		tree = DefaultEventTree
	}
	if len(vertex) == 0 {
		vertex = DefaultVertexBranches
	}
	var v eventVars
	return writeTree(path, tree, "reconstructed events", v.writeVars(vertex), len(events), func(i int) {
		v.encode(events[i])
	})
}

// WriteReference writes refs to a new ROOT file as a reference tree.
func WriteReference(path, tree string, refs []weights.Reference) error {
	if tree == "" {
		tree = DefaultReferenceTree
	}
	var v referenceVars
	wvars := []rtree.WriteVar{
		{Name: brRefX, Value: &v.x},
		{Name: brRefY, Value: &v.y},
		{Name: brRefZ, Value: &v.z},
		{Name: brRefWeight, Value: &v.weight},
	}
	return writeTree(path, tree, "reference sample", wvars, len(refs), func(i int) {
		v.x = float32(refs[i].Vertex.X)
		v.y = float32(refs[i].Vertex.Y)
		v.z = float32(refs[i].Vertex.Z)
		v.weight = refs[i].Weight
	})
}
