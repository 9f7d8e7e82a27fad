package rootio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-hep.org/x/hep/groot/rtree"

	"github.com/banshee-data/eventsel/internal/features"
	"github.com/banshee-data/eventsel/internal/geom"
	"github.com/banshee-data/eventsel/internal/particle"
	"github.com/banshee-data/eventsel/internal/sample"
	"github.com/banshee-data/eventsel/internal/testutil"
	"github.com/banshee-data/eventsel/internal/units"
	"github.com/banshee-data/eventsel/internal/weights"
)

// float32 storage keeps about seven significant digits.
var approx = cmpopts.EquateApprox(1e-6, 1e-6)

func readAll(t *testing.T, r sample.EventReader) ([]int, []particle.Event) {
	t.Helper()
	var idx []int
	var evs []particle.Event
	require.NoError(t, r.Scan(context.Background(), func(i int, ev particle.Event) error {
		idx = append(idx, i)
		evs = append(evs, ev)
		return nil
	}))
	return idx, evs
}

func TestEventsRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nnbar_ana.root")
	want := []particle.Event{
		testutil.MixedEvent(geom.Vec3{X: 12.5, Y: -40, Z: 300}),
		testutil.ProtonShowerEvent(),
		{Vertex: geom.Vec3{X: 1, Y: 2, Z: 3}},
	}
	require.NoError(t, WriteEvents(path, "", nil, want))

	r, err := OpenEvents(sample.Spec{Label: "nnbar", InputPath: path})
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, 3, r.NumEvents())

	idx, got := readAll(t, r)
	assert.Equal(t, []int{0, 1, 2}, idx)
	if diff := cmp.Diff(want, got, approx, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	// Momentum is stored in GeV and read back in MeV.
	assert.InDelta(t, 1000.0, got[1].Particles[0].Momentum, 1e-3)
}

func TestEventsCustomVertexBranches(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "atm.root")
	vtx := []string{"vx", "vy", "vz"}
	require.NoError(t, WriteEvents(path, "anatree", vtx, []particle.Event{testutil.ProtonShowerEvent()}))

	r, err := OpenEvents(sample.Spec{Label: "atm", InputPath: path, Tree: "anatree", VertexFields: vtx})
	require.NoError(t, err)
	defer r.Close()
	_, got := readAll(t, r)
	require.Len(t, got, 1)
	assert.InDelta(t, 0.1, got[0].Vertex.X, 1e-6)

	// The default vertex names are absent from this file.
	_, err = OpenEvents(sample.Spec{Label: "atm", InputPath: path, Tree: "anatree"})
	var se *sample.SchemaError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, "nuvtxx_truth", se.Field)
	assert.Equal(t, "atm", se.Sample)

	_, err = OpenEvents(sample.Spec{Label: "nnbar", InputPath: path, Tree: "anatree"})
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, "nuvtxx", se.Field)

	_, err = OpenEvents(sample.Spec{Label: "cosmics", InputPath: path, Tree: "anatree"})
	assert.Error(t, err)
}

func TestDefaultVertexBranchesFollowPolicy(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "atm.root")
	require.NoError(t, WriteEvents(path, "", TruthVertexBranches, []particle.Event{testutil.ProtonShowerEvent()}))

	r, err := OpenEvents(sample.Spec{Label: "atm", InputPath: path})
	require.NoError(t, err)
	defer r.Close()
	_, got := readAll(t, r)
	require.Len(t, got, 1)
	assert.InDelta(t, 0.1, got[0].Vertex.X, 1e-6)

	assert.Equal(t, TruthVertexBranches, VertexBranchesFor(sample.PolicyReference))
	assert.Equal(t, DefaultVertexBranches, VertexBranchesFor(sample.PolicySelfWeighted))
}

func TestOpenEvents_MomentumUnit(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nnbar.root")
	require.NoError(t, WriteEvents(path, "", nil, []particle.Event{testutil.ProtonShowerEvent()}))

	// Stored as 1 (GeV); read as MeV it stays 1.
	r, err := OpenEvents(sample.Spec{Label: "nnbar", InputPath: path, MomentumUnit: units.MeV})
	require.NoError(t, err)
	defer r.Close()
	_, got := readAll(t, r)
	require.Len(t, got, 1)
	assert.InDelta(t, 1.0, got[0].Particles[0].Momentum, 1e-6)

	_, err = OpenEvents(sample.Spec{Label: "nnbar", InputPath: path, MomentumUnit: "keV"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MeV, GeV")
}

func TestOpenEvents_SchemaErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	_, err := OpenEvents(sample.Spec{Label: "atm", InputPath: filepath.Join(dir, "absent.root")})
	var se *sample.SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, DefaultEventTree, se.Field)

	// A tree carrying only the slot count.
	path := filepath.Join(dir, "partial.root")
	var n int32
	require.NoError(t, writeTree(path, DefaultEventTree, "partial", []rtree.WriteVar{{Name: brNumPFP, Value: &n}}, 2, func(i int) {
		n = int32(i)
	}))
	_, err = OpenEvents(sample.Spec{Label: "atm", InputPath: path})
	require.True(t, errors.As(err, &se))
	assert.Equal(t, brIsTrack, se.Field)

	_, err = OpenEvents(sample.Spec{Label: "atm", InputPath: path, VertexFields: []string{"x", "y"}})
	assert.Error(t, err)
}

func TestDecode_SlotIndexSpace(t *testing.T) {
	t.Parallel()

	v := eventVars{
		nPFP:      4,
		isTrack:   []int32{1, 0, 1, 0},
		isShower:  []int32{0, 1, 1, 0},
		nTracks:   1,
		trkBest:   []int32{2},
		trkMom:    []float32{0.5},
		trkDirZ:   []float32{1},
		trkPIDA:   []float32{0, 0, 12},
		nHits:     3,
		hitTrack:  []int32{0, 0, 3},
		hitPlane:  []int32{2, 7, 2},
		hitDEdx:   []float32{2, 3, 4},
		hitX:      []float32{0, 0, 0},
		hitY:      []float32{0, 0, 0},
		hitZ:      []float32{0, 1, 2},
		nShowers:  3,
		shwBest:   []int32{2, 2, 2},
		shwEnergy: []float32{0, 0, 0, 0, 0, 80, 0, 0, 60},
		shwDirY:   []float32{0, 1, 1},
	}
	ev := v.decode()

	// Slot 0 is a track, slot 1 a shower, slot 2 is flagged as both but
	// beyond ntracks so it is a shower. Slots 3 and beyond are past both
	// counts and do not exist.
	require.Len(t, ev.Particles, 3)
	assert.Equal(t, particle.KindTrack, ev.Particles[0].Kind)
	assert.Equal(t, particle.KindShower, ev.Particles[1].Kind)
	assert.Equal(t, particle.KindShower, ev.Particles[2].Kind)
	assert.InDelta(t, 500.0, ev.Particles[0].Momentum, 1e-9)
	assert.Equal(t, 80.0, ev.Particles[1].PlaneEnergy[2])
	assert.Equal(t, 60.0, ev.Particles[2].PlaneEnergy[2])

	// Hits on an invalid plane or belonging to no track are skipped.
	require.Len(t, ev.Particles[0].Hits[2], 1)
	assert.Equal(t, 2.0, ev.Particles[0].Hits[2][0].DEdx)
}

func TestDecode_UnflaggedSlotKeepsPosition(t *testing.T) {
	t.Parallel()

	// Slot 0 is a 100 MeV shower along x; slot 1 is flagged neither.
	v := eventVars{
		nPFP:      2,
		isTrack:   []int32{0, 0},
		isShower:  []int32{1, 0},
		nShowers:  2,
		shwBest:   []int32{2, 2},
		shwEnergy: []float32{0, 0, 100, 0, 0, 0},
		shwDirX:   []float32{1, 0},
		shwDirY:   []float32{0, 0},
		shwDirZ:   []float32{0, 0},
	}
	ev := v.decode()
	require.Len(t, ev.Particles, 2)
	assert.Equal(t, particle.KindNone, ev.Particles[1].Kind)
	assert.False(t, particle.Valid(&ev.Particles[1]))

	strict := features.NewExtractor(features.FoxWolframStrict).Extract(ev)
	assert.Equal(t, 1, strict.NumParticles)
	assert.InDelta(t, 1.0, strict.FW0, 1e-9)
	assert.InDelta(t, 1.0, strict.FW2, 1e-9)

	// The legacy sum reuses the cached shower term at the unflagged slot.
	legacy := features.NewExtractor(features.FoxWolframLegacy).Extract(ev)
	assert.Equal(t, 1, legacy.NumParticles)
	assert.InDelta(t, 100.0, legacy.VisibleEnergy, 1e-9)
	assert.InDelta(t, 2.0, legacy.FW0, 1e-9)
	assert.InDelta(t, 2.0, legacy.FW1, 1e-9)
	assert.InDelta(t, 2.0, legacy.FW2, 1e-9)
}

func TestDecode_ShortArraysDegrade(t *testing.T) {
	t.Parallel()

	v := eventVars{
		isTrack: []int32{1},
		nTracks: 1,
	}
	ev := v.decode()
	require.Len(t, ev.Particles, 1)
	p := ev.Particles[0]
	assert.Equal(t, -1, p.BestPlane)
	assert.Equal(t, 0.0, p.Momentum)
	assert.Equal(t, particle.SpeciesMuon, particle.Classify(&p))
}

func TestReferenceRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ref.root")
	refs := []weights.Reference{
		{Vertex: geom.Vec3{}, Weight: 2},
		{Vertex: geom.Vec3{X: 10, Y: 10, Z: 10}, Weight: 5.25},
	}
	require.NoError(t, WriteReference(path, "", refs))

	got, err := ReadReference(sample.Spec{Label: "atm", ReferencePath: path})
	require.NoError(t, err)
	assert.Equal(t, refs, got)

	_, err = ReadReference(sample.Spec{Label: "atm", ReferencePath: path, ReferenceTree: "nope"})
	var se *sample.SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "nope", se.Field)

	// An event file has no reference branches.
	evPath := filepath.Join(t.TempDir(), "ev.root")
	require.NoError(t, WriteEvents(evPath, DefaultReferenceTree, nil, nil))
	_, err = ReadReference(sample.Spec{Label: "atm", ReferencePath: evPath})
	require.True(t, errors.As(err, &se))
	assert.Equal(t, brRefX, se.Field)
}

func TestTableWriter(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	table := sample.Table{
		{Index: 0, Features: features.Record{NumParticles: 4, NumTracks: 2, NumShowers: 2, NumMuons: 1, NumProtons: 1,
			VisibleEnergy: 812.25, TotalMomentum: 431.5, Sphericity: 0.375, FW0: 1, FW1: 0.25, FW2: 0.5}, Weight: 1.25},
		{Index: 3, Features: features.Record{NumParticles: 2, InvariantMass: 938.272}, Weight: 0.5},
	}
	w := NewTableWriter(dir, "atm")
	require.NoError(t, w.WriteTable(sample.StageNoCut, table))
	require.NoError(t, w.WriteTable(sample.StageCut, table[:1]))
	require.NoError(t, w.Close())

	assert.Equal(t, filepath.Join(dir, "atm_featurevars_nocut.root"), FeaturesPath(dir, "atm", sample.StageNoCut))
	assert.Equal(t, filepath.Join(dir, "atm_weights_cut.root"), WeightsPath(dir, "atm", sample.StageCut))

	recs, err := ReadFeatures(FeaturesPath(dir, "atm", sample.StageNoCut))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	for i := range table {
		if diff := cmp.Diff(table[i].Features, recs[i], approx); diff != "" {
			t.Errorf("row %d (-want +got):\n%s", i, diff)
		}
	}

	ws, err := ReadWeights(WeightsPath(dir, "atm", sample.StageNoCut))
	require.NoError(t, err)
	assert.Equal(t, []float64{1.25, 0.5}, ws)

	ws, err = ReadWeights(WeightsPath(dir, "atm", sample.StageCut))
	require.NoError(t, err)
	assert.Equal(t, []float64{1.25}, ws)
}

func TestFeatureVars_CountsSaturate(t *testing.T) {
	t.Parallel()

	var v featureVars
	v.set(features.Record{NumParticles: 40000, NumTracks: 32767, NumShowers: 7233, NumMuons: 100000})
	got := v.record()
	assert.Equal(t, 32767, got.NumParticles)
	assert.Equal(t, 32767, got.NumTracks)
	assert.Equal(t, 7233, got.NumShowers)
	assert.Equal(t, 32767, got.NumMuons)
	assert.Equal(t, 0, got.NumProtons)
}

func TestBackend(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	out := filepath.Join(dir, "out", "nested")

	in := filepath.Join(dir, "in.root")
	ref := filepath.Join(dir, "ref.root")
	require.NoError(t, WriteEvents(in, "", TruthVertexBranches, []particle.Event{testutil.ProtonShowerEvent()}))
	require.NoError(t, WriteReference(ref, "", []weights.Reference{{Weight: 2}}))

	b := NewBackend(out)
	ctx := context.Background()
	spec := sample.Spec{Label: "atm", InputPath: in, ReferencePath: ref}

	r, err := b.OpenEvents(ctx, spec)
	require.NoError(t, err)
	assert.Equal(t, 1, r.NumEvents())
	require.NoError(t, r.Close())

	refs, err := b.LoadReference(ctx, spec)
	require.NoError(t, err)
	assert.Len(t, refs, 1)

	w, err := b.OpenWriter(ctx, spec)
	require.NoError(t, err)
	require.NoError(t, w.WriteTable(sample.StageNoCut, sample.Table{{Weight: 1}}))
	_, err = os.Stat(WeightsPath(out, "atm", sample.StageNoCut))
	assert.NoError(t, err)
}
