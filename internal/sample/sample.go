// Package sample defines sample identity and the record-level contracts
// between the numeric core and the storage collaborators.
//
// Storage adapters (internal/store, internal/rootio) implement EventReader
// and TableWriter; the pipeline only talks to these interfaces.
package sample

import (
	"context"
	"fmt"
	"strings"

	"github.com/banshee-data/eventsel/internal/features"
	"github.com/banshee-data/eventsel/internal/particle"
)

// Policy selects how a sample's events are weighted.
type Policy uint8

const (
	// PolicyReference weights events by nearest-neighbour matching against
	// an external reference sample and renormalises after the cuts.
	PolicyReference Policy = iota + 1
	// PolicySelfWeighted gives every event weight 1 and skips both
	// renormalisations.
	PolicySelfWeighted
)

func (p Policy) String() string {
	switch p {
	case PolicyReference:
		return "reference"
	case PolicySelfWeighted:
		return "self-weighted"
	}
	return "unknown"
}

// Canonical sample labels.
const (
	LabelBackground = "background"
	LabelSignal     = "signal"
)

// labelAliases maps accepted labels to their canonical form. "atm" and
// "nnbar" are the identifiers used by the legacy analysis files.
var labelAliases = map[string]string{
	LabelBackground: LabelBackground,
	"atm":           LabelBackground,
	LabelSignal:     LabelSignal,
	"nnbar":         LabelSignal,
}

// PolicyForLabel returns the weighting policy for a sample label.
func PolicyForLabel(label string) (Policy, error) {
	switch labelAliases[strings.ToLower(strings.TrimSpace(label))] {
	case LabelBackground:
		return PolicyReference, nil
	case LabelSignal:
		return PolicySelfWeighted, nil
	}
	return 0, fmt.Errorf("unknown sample_label %q (want background/atm or signal/nnbar)", label)
}

// Spec describes one sample to process.
type Spec struct {
	Label         string   // sample_label, also used to name outputs
	InputPath     string   // event records
	Tree          string   // event tree/table name within the input
	ReferencePath string   // reference_sample_path (reference-bearing samples)
	ReferenceTree string   // reference tree/table name
	VertexFields  []string // three vertex field names, X/Y/Z order
	MomentumUnit  string   // unit of stored track momenta; empty uses the reader's default
}

// Policy returns the weighting policy implied by the label.
func (s Spec) Policy() (Policy, error) {
	return PolicyForLabel(s.Label)
}

// Stage identifies which table of a sample is being written.
type Stage string

const (
	StageNoCut Stage = "nocut"
	StageCut   Stage = "cut"
)

// Row pairs one event's features with its weight. Index is the event's
// position in the input sample, used to join features and weights.
type Row struct {
	Index    int
	Features features.Record
	Weight   float64
}

// Table is the ordered per-sample collection of rows.
type Table []Row

// Weights returns the weight column of the table.
func (t Table) Weights() []float64 {
	out := make([]float64, len(t))
	for i := range t {
		out[i] = t[i].Weight
	}
	return out
}

// EventReader reads the events of one sample.
type EventReader interface {
	// NumEvents returns the number of events in the sample.
	NumEvents() int
	// Scan calls fn for every event in input order. The Event passed to fn
	// is owned by fn. Scan stops at the first error returned by fn.
	Scan(ctx context.Context, fn func(index int, ev particle.Event) error) error
	Close() error
}

// TableWriter persists the feature and weight tables of one sample.
type TableWriter interface {
	WriteTable(stage Stage, table Table) error
	Close() error
}

// SchemaError reports a required input field that is missing or unusable.
// It is fatal for the whole run.
type SchemaError struct {
	Sample string
	Field  string
	Err    error
}

func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("sample %q: input schema: field %q", e.Sample, e.Field)
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg + " missing"
}

func (e *SchemaError) Unwrap() error { return e.Err }
