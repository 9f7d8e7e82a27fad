// Package pipeline runs the per-sample analysis: feature extraction and
// nearest-neighbour weighting over every event, then the pre-selection.
//
// Each sample is an isolated pipeline. Within a sample, per-event work is
// fanned out to a bounded worker pool; the selection stage is a barrier
// over the complete table. The package owns no physics: it delegates to
// internal/features, internal/weights and internal/selection, and reaches
// storage only through the Backend interface.
package pipeline
