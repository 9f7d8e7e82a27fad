package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/eventsel/internal/features"
	"github.com/banshee-data/eventsel/internal/geom"
	"github.com/banshee-data/eventsel/internal/particle"
	"github.com/banshee-data/eventsel/internal/sample"
	"github.com/banshee-data/eventsel/internal/selection"
	"github.com/banshee-data/eventsel/internal/weights"
)

// Backend is the storage collaborator of a run.
type Backend interface {
	OpenEvents(ctx context.Context, spec sample.Spec) (sample.EventReader, error)
	LoadReference(ctx context.Context, spec sample.Spec) ([]weights.Reference, error)
	OpenWriter(ctx context.Context, spec sample.Spec) (sample.TableWriter, error)
}

// Options configures RunSample and Run.
type Options struct {
	Workers int // per-sample worker pool size; <= 0 means NumCPU
	Mode    features.FoxWolframMode
	Lookup  weights.Method
	Cuts    selection.Cuts
}

// DefaultOptions returns the standard options.
func DefaultOptions() Options {
	return Options{
		Workers: runtime.NumCPU(),
		Mode:    features.FoxWolframStrict,
		Lookup:  weights.MethodBruteForce,
		Cuts:    selection.DefaultCuts(),
	}
}

func (o Options) workers() int {
	if o.Workers <= 0 {
		return runtime.NumCPU()
	}
	return o.Workers
}

// Result is the outcome of one sample.
type Result struct {
	Label         string
	Policy        sample.Policy
	ReferenceSize int
	Scale         float64 // referenceSize/events for reference samples, 1 otherwise
	NoCut         sample.Table
	Cut           sample.Table
	Summary       selection.Summary
}

// RunSample processes one sample end to end.
//
// Algorithm:
//  1. Resolve the weighting policy from the label. Reference-bearing
//     samples load their reference and fail fast if it is empty.
//  2. Scan events; every event is handed to the worker pool, which
//     extracts its features and keeps its vertex.
//  3. Weight the table: weights.Assign over the vertices (nearest weight
//     scaled by referenceSize/events) for reference samples, or
//     weights.SelfWeighted. Write the nocut table.
//  4. Apply the cuts (renormalising reference samples) and write the cut
//     table.
func RunSample(ctx context.Context, b Backend, spec sample.Spec, opts Options) (*Result, error) {
	policy, err := spec.Policy()
	if err != nil {
		return nil, err
	}
	res := &Result{Label: spec.Label, Policy: policy, Scale: 1}

	var lookup weights.NearestLookup
	if policy == sample.PolicyReference {
		refs, err := b.LoadReference(ctx, spec)
		if err != nil {
			return nil, fmt.Errorf("sample %q: load reference: %w", spec.Label, err)
		}
		if len(refs) == 0 {
			return nil, fmt.Errorf("sample %q: %w", spec.Label, weights.ErrEmptyReference)
		}
		if lookup, err = weights.NewLookup(opts.Lookup, refs); err != nil {
			return nil, fmt.Errorf("sample %q: %w", spec.Label, err)
		}
		res.ReferenceSize = len(refs)
		diagf("%s: reference loaded, %d entries, lookup=%s", spec.Label, len(refs), opts.Lookup)
	}

	table, vertices, err := extract(ctx, b, spec, opts)
	if err != nil {
		return nil, err
	}

	var ws []float64
	if policy == sample.PolicyReference {
		if ws, err = weights.Assign(vertices, lookup, res.ReferenceSize); err != nil {
			return nil, fmt.Errorf("sample %q: assign weights: %w", spec.Label, err)
		}
		res.Scale = weights.SampleScale(res.ReferenceSize, len(table))
	} else {
		ws = weights.SelfWeighted(len(table))
	}
	for i := range table {
		table[i].Weight = ws[i]
		rec := &table[i].Features
		tracef("%s: event %d: particles=%d E=%.1f p=%.1f S=%.3f w=%.4g",
			spec.Label, table[i].Index, rec.NumParticles, rec.VisibleEnergy, rec.TotalMomentum, rec.Sphericity, ws[i])
	}
	res.NoCut = table

	w, err := b.OpenWriter(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("sample %q: open writer: %w", spec.Label, err)
	}
	if err := w.WriteTable(sample.StageNoCut, table); err != nil {
		w.Close()
		return nil, fmt.Errorf("sample %q: write %s: %w", spec.Label, sample.StageNoCut, err)
	}
	diagf("%s: wrote %s table, %d rows, scale=%.6g", spec.Label, sample.StageNoCut, len(table), res.Scale)

	res.Cut, res.Summary = selection.Apply(table, opts.Cuts, policy == sample.PolicyReference)
	if err := w.WriteTable(sample.StageCut, res.Cut); err != nil {
		w.Close()
		return nil, fmt.Errorf("sample %q: write %s: %w", spec.Label, sample.StageCut, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("sample %q: close writer: %w", spec.Label, err)
	}

	opsf("%s: %s", spec.Label, res.Summary)
	return res, nil
}

// extract runs the per-event stage and returns the unweighted rows in scan
// order together with each row's vertex.
func extract(ctx context.Context, b Backend, spec sample.Spec, opts Options) (sample.Table, []geom.Vec3, error) {
	r, err := b.OpenEvents(ctx, spec)
	if err != nil {
		return nil, nil, fmt.Errorf("sample %q: open events: %w", spec.Label, err)
	}
	defer r.Close()

	x := features.NewExtractor(opts.Mode)
	rows := make(sample.Table, r.NumEvents())
	vertices := make([]geom.Vec3, len(rows))
	count := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())

	scanErr := r.Scan(gctx, func(index int, ev particle.Event) error {
		if count >= len(rows) {
			return fmt.Errorf("reader returned more than the %d events it declared", len(rows))
		}
		pos := count
		count++
		g.Go(func() error {
			rows[pos] = sample.Row{Index: index, Features: x.Extract(ev)}
			vertices[pos] = ev.Vertex
			return nil
		})
		return nil
	})
	waitErr := g.Wait()
	if scanErr != nil {
		return nil, nil, fmt.Errorf("sample %q: scan events: %w", spec.Label, scanErr)
	}
	if waitErr != nil {
		return nil, nil, fmt.Errorf("sample %q: %w", spec.Label, waitErr)
	}
	diagf("%s: extracted %d events with %d workers", spec.Label, count, opts.workers())
	return rows[:count], vertices[:count], nil
}

// Run processes every sample as an isolated pipeline, concurrently. The
// first failure cancels the remaining samples and is returned. Results are
// in the order of specs.
func Run(ctx context.Context, b Backend, specs []sample.Spec, opts Options) ([]*Result, error) {
	if len(specs) == 0 {
		return nil, errors.New("no samples configured")
	}
	results := make([]*Result, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		i, spec := i, spec
		g.Go(func() error {
			res, err := RunSample(gctx, b, spec, opts)
			if err != nil {
				opsf("%s: failed: %v", spec.Label, err)
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
