package rootio

import (
	"context"
	"fmt"
	"os"

	"github.com/banshee-data/eventsel/internal/sample"
	"github.com/banshee-data/eventsel/internal/weights"
)

// Backend reads samples from ROOT files and writes outputs to OutputDir.
type Backend struct {
	OutputDir string
}

// NewBackend returns a Backend writing to dir.
func NewBackend(dir string) *Backend {
	return &Backend{OutputDir: dir}
}

// OpenEvents opens spec's event tree.
func (b *Backend) OpenEvents(_ context.Context, spec sample.Spec) (sample.EventReader, error) {
	return OpenEvents(spec)
}

// LoadReference reads spec's reference tree.
func (b *Backend) LoadReference(_ context.Context, spec sample.Spec) ([]weights.Reference, error) {
	return ReadReference(spec)
}

// OpenWriter returns a writer for spec's output files, creating OutputDir
// if needed.
func (b *Backend) OpenWriter(_ context.Context, spec sample.Spec) (sample.TableWriter, error) {
	if err := os.MkdirAll(b.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return NewTableWriter(b.OutputDir, spec.Label), nil
}
