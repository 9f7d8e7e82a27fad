package store

import (
	"context"
	"fmt"

	"github.com/banshee-data/eventsel/internal/particle"
	"github.com/banshee-data/eventsel/internal/sample"
	"github.com/banshee-data/eventsel/internal/weights"
)

// Backend serves samples and records outputs through a Store. Within the
// database a sample's events are keyed by its input path (falling back to
// its label) and its reference by the reference path.
type Backend struct {
	Store *Store
}

// NewBackend wraps s.
func NewBackend(s *Store) *Backend {
	return &Backend{Store: s}
}

// EventsName is the events.sample key used for spec.
func EventsName(spec sample.Spec) string {
	if spec.InputPath != "" {
		return spec.InputPath
	}
	return spec.Label
}

// OpenEvents returns a reader over the sample's stored events.
func (b *Backend) OpenEvents(ctx context.Context, spec sample.Spec) (sample.EventReader, error) {
	name := EventsName(spec)
	n, err := b.Store.CountEvents(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("count events of %s: %w", name, err)
	}
	return &eventReader{store: b.Store, name: name, n: n}, nil
}

// LoadReference loads the sample's reference vertices.
func (b *Backend) LoadReference(ctx context.Context, spec sample.Spec) ([]weights.Reference, error) {
	return b.Store.LoadReference(ctx, spec.ReferencePath)
}

// OpenWriter begins an analysis run for the sample. The run is marked
// complete on Close once both stages have been written, failed otherwise.
func (b *Backend) OpenWriter(ctx context.Context, spec sample.Spec) (sample.TableWriter, error) {
	policy, err := spec.Policy()
	if err != nil {
		return nil, err
	}
	id, err := b.Store.BeginRun(ctx, spec.Label, policy)
	if err != nil {
		return nil, err
	}
	return &RunWriter{ctx: ctx, store: b.Store, RunID: id, kept: -1, total: -1}, nil
}

type eventReader struct {
	store *Store
	name  string
	n     int
}

func (r *eventReader) NumEvents() int { return r.n }

func (r *eventReader) Scan(ctx context.Context, fn func(index int, ev particle.Event) error) error {
	return r.store.ScanEvents(ctx, r.name, fn)
}

func (r *eventReader) Close() error { return nil }

// RunWriter writes feature and weight tables under one analysis run.
type RunWriter struct {
	ctx   context.Context
	store *Store
	RunID string

	total int
	kept  int
}

// WriteTable stores features and weights for stage.
func (w *RunWriter) WriteTable(stage sample.Stage, table sample.Table) error {
	if err := w.store.WriteFeatures(w.ctx, w.RunID, stage, table); err != nil {
		return err
	}
	if err := w.store.WriteWeights(w.ctx, w.RunID, stage, table); err != nil {
		return err
	}
	switch stage {
	case sample.StageNoCut:
		w.total = len(table)
	case sample.StageCut:
		w.kept = len(table)
	}
	return nil
}

// Close finalises the run row.
func (w *RunWriter) Close() error {
	status := RunComplete
	var runErr error
	if w.total < 0 || w.kept < 0 {
		status = RunFailed
		runErr = fmt.Errorf("run closed before both stages were written")
	}
	// The run context may already be cancelled when a sibling sample failed.
	return w.store.FinishRun(context.WithoutCancel(w.ctx), w.RunID, status, max(w.total, 0), max(w.kept, 0), runErr)
}
