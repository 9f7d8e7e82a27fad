package rootio

import (
	"fmt"
	"math"
	"path/filepath"

	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rtree"

	"github.com/banshee-data/eventsel/internal/features"
	"github.com/banshee-data/eventsel/internal/sample"
)

// FeaturesPath returns <dir>/<label>_featurevars_<stage>.root.
func FeaturesPath(dir, label string, stage sample.Stage) string {
	return filepath.Join(dir, fmt.Sprintf("%s_featurevars_%s.root", label, stage))
}

// WeightsPath returns <dir>/<label>_weights_<stage>.root.
func WeightsPath(dir, label string, stage sample.Stage) string {
	return filepath.Join(dir, fmt.Sprintf("%s_weights_%s.root", label, stage))
}

// featureVars is one entry of the feats tree.
type featureVars struct {
	numParticles, numShowers, numTracks, numP, numMu int16

	trkEng, shwrEng, visEng, totMom, invMass float32
	sphericity, aplanarity, fw0, fw1, fw2    float32
}

// count16 narrows a multiplicity to the int16 branch type, saturating at
// math.MaxInt16.
func count16(n int) int16 {
	if n > math.MaxInt16 {
		return math.MaxInt16
	}
	return int16(n)
}

func (v *featureVars) set(r features.Record) {
	v.numParticles = count16(r.NumParticles)
	v.numShowers = count16(r.NumShowers)
	v.numTracks = count16(r.NumTracks)
	v.numP = count16(r.NumProtons)
	v.numMu = count16(r.NumMuons)
	v.trkEng = float32(r.TrackEnergy)
	v.shwrEng = float32(r.ShowerEnergy)
	v.visEng = float32(r.VisibleEnergy)
	v.totMom = float32(r.TotalMomentum)
	v.invMass = float32(r.InvariantMass)
	v.sphericity = float32(r.Sphericity)
	v.aplanarity = float32(r.Aplanarity)
	v.fw0 = float32(r.FW0)
	v.fw1 = float32(r.FW1)
	v.fw2 = float32(r.FW2)
}

func (v *featureVars) record() features.Record {
	return features.Record{
		NumParticles:  int(v.numParticles),
		NumShowers:    int(v.numShowers),
		NumTracks:     int(v.numTracks),
		NumProtons:    int(v.numP),
		NumMuons:      int(v.numMu),
		TrackEnergy:   float64(v.trkEng),
		ShowerEnergy:  float64(v.shwrEng),
		VisibleEnergy: float64(v.visEng),
		TotalMomentum: float64(v.totMom),
		InvariantMass: float64(v.invMass),
		Sphericity:    float64(v.sphericity),
		Aplanarity:    float64(v.aplanarity),
		FW0:           float64(v.fw0),
		FW1:           float64(v.fw1),
		FW2:           float64(v.fw2),
	}
}

func (v *featureVars) writeVars() []rtree.WriteVar {
	return []rtree.WriteVar{
		{Name: "num_particles", Value: &v.numParticles},
		{Name: "num_showers", Value: &v.numShowers},
		{Name: "num_tracks", Value: &v.numTracks},
		{Name: "num_p", Value: &v.numP},
		{Name: "num_mu", Value: &v.numMu},
		{Name: "trk_eng", Value: &v.trkEng},
		{Name: "shwr_eng", Value: &v.shwrEng},
		{Name: "visible_energy", Value: &v.visEng},
		{Name: "tot_momentum", Value: &v.totMom},
		{Name: "invariant_mass", Value: &v.invMass},
		{Name: "sphericity", Value: &v.sphericity},
		{Name: "aplanarity", Value: &v.aplanarity},
		{Name: "FW0", Value: &v.fw0},
		{Name: "FW1", Value: &v.fw1},
		{Name: "FW2", Value: &v.fw2},
	}
}

func (v *featureVars) readVars() []rtree.ReadVar {
	wvars := v.writeVars()
	rvars := make([]rtree.ReadVar, len(wvars))
	for i, wv := range wvars {
		rvars[i] = rtree.ReadVar{Name: wv.Name, Value: wv.Value}
	}
	return rvars
}

// TableWriter writes a sample's tables as ROOT files under Dir.
type TableWriter struct {
	Dir   string
	Label string
}

// NewTableWriter returns a writer for label's outputs in dir.
func NewTableWriter(dir, label string) *TableWriter {
	return &TableWriter{Dir: dir, Label: label}
}

// WriteTable writes the features and weights files of stage. Existing
// files are replaced.
func (w *TableWriter) WriteTable(stage sample.Stage, table sample.Table) error {
	if err := w.writeFeatures(stage, table); err != nil {
		return err
	}
	return w.writeWeights(stage, table)
}

func (w *TableWriter) writeFeatures(stage sample.Stage, table sample.Table) error {
	var v featureVars
	title := fmt.Sprintf("%s feature vars, %s", w.Label, stageTitle(stage))
	return writeTree(FeaturesPath(w.Dir, w.Label, stage), FeaturesTree, title, v.writeVars(), len(table), func(i int) {
		v.set(table[i].Features)
	})
}

func (w *TableWriter) writeWeights(stage sample.Stage, table sample.Table) error {
	var weight float64
	wvars := []rtree.WriteVar{{Name: brWeight, Value: &weight}}
	title := fmt.Sprintf("%s normalized weights, %s", w.Label, stageTitle(stage))
	return writeTree(WeightsPath(w.Dir, w.Label, stage), WeightsTree, title, wvars, len(table), func(i int) {
		weight = table[i].Weight
	})
}

// Close is a no-op; every WriteTable call closes its files.
func (w *TableWriter) Close() error { return nil }

func stageTitle(stage sample.Stage) string {
	if stage == sample.StageCut {
		return "pre-cuts applied"
	}
	return "no cuts applied"
}

// writeTree creates path with a single tree of n entries. fill sets the
// bound variables for entry i.
func writeTree(path, name, title string, wvars []rtree.WriteVar, n int, fill func(i int)) error {
	f, err := groot.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	tw, err := rtree.NewWriter(f, name, wvars, rtree.WithTitle(title))
	if err != nil {
		f.Close()
		return fmt.Errorf("create tree %s in %s: %w", name, path, err)
	}
	for i := 0; i < n; i++ {
		fill(i)
		if _, err := tw.Write(); err != nil {
			tw.Close()
			f.Close()
			return fmt.Errorf("write entry %d of %s: %w", i, path, err)
		}
	}
	if err := tw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("close tree in %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// ReadFeatures reads a feats tree back into records, in entry order.
func ReadFeatures(path string) ([]features.Record, error) {
	f, t, err := openTree(path, FeaturesTree)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var v featureVars
	r, err := rtree.NewReader(t, v.readVars())
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var out []features.Record
	err = r.Read(func(rtree.RCtx) error {
		out = append(out, v.record())
		return nil
	})
	return out, err
}

// ReadWeights reads a weight tree back, in entry order.
func ReadWeights(path string) ([]float64, error) {
	f, t, err := openTree(path, WeightsTree)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var weight float64
	r, err := rtree.NewReader(t, []rtree.ReadVar{{Name: brWeight, Value: &weight}})
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var out []float64
	err = r.Read(func(rtree.RCtx) error {
		out = append(out, weight)
		return nil
	})
	return out, err
}
