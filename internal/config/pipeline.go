package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/eventsel/internal/features"
	"github.com/banshee-data/eventsel/internal/sample"
	"github.com/banshee-data/eventsel/internal/selection"
	"github.com/banshee-data/eventsel/internal/units"
	"github.com/banshee-data/eventsel/internal/weights"
)

// DefaultConfigPath is the path to the canonical pipeline defaults file.
const DefaultConfigPath = "config/pipeline.defaults.json"

// Storage backends.
const (
	StorageROOT   = "root"
	StorageSQLite = "sqlite"
)

// PipelineConfig is the root configuration of a feature/weight/selection
// run. Pointer fields distinguish "unset" from zero; the Get* methods
// supply defaults for unset fields, so partial configs are safe.
type PipelineConfig struct {
	Storage          *string `json:"storage,omitempty" yaml:"storage,omitempty"`
	DatabasePath     *string `json:"database_path,omitempty" yaml:"database_path,omitempty"`
	OutputDir        *string `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`
	Workers          *int    `json:"workers,omitempty" yaml:"workers,omitempty"`
	NearestNeighbour *string `json:"nearest_neighbour,omitempty" yaml:"nearest_neighbour,omitempty"`
	FoxWolframMode   *string `json:"fox_wolfram_mode,omitempty" yaml:"fox_wolfram_mode,omitempty"`

	Cuts    *CutsConfig    `json:"cuts,omitempty" yaml:"cuts,omitempty"`
	Samples []SampleConfig `json:"samples,omitempty" yaml:"samples,omitempty"`
}

// CutsConfig overrides the selection thresholds.
type CutsConfig struct {
	MinParticles     *int     `json:"min_particles,omitempty" yaml:"min_particles,omitempty"`
	MaxMomentum      *float64 `json:"max_momentum,omitempty" yaml:"max_momentum,omitempty"`
	MaxVisibleEnergy *float64 `json:"max_visible_energy,omitempty" yaml:"max_visible_energy,omitempty"`
}

// SampleConfig describes one input sample.
type SampleConfig struct {
	SampleLabel         string   `json:"sample_label" yaml:"sample_label"`
	InputPath           string   `json:"input_path" yaml:"input_path"`
	Tree                string   `json:"tree,omitempty" yaml:"tree,omitempty"`
	ReferenceSamplePath string   `json:"reference_sample_path,omitempty" yaml:"reference_sample_path,omitempty"`
	ReferenceTree       string   `json:"reference_tree,omitempty" yaml:"reference_tree,omitempty"`
	VertexBranches      []string `json:"vertex_branches,omitempty" yaml:"vertex_branches,omitempty"`
	MomentumUnit        string   `json:"momentum_unit,omitempty" yaml:"momentum_unit,omitempty"`
}

// Helper functions to create pointers
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrFloat64(v float64) *float64 { return &v }

// EmptyPipelineConfig returns a PipelineConfig with all fields unset.
func EmptyPipelineConfig() *PipelineConfig {
	return &PipelineConfig{}
}

// DefaultPipelineConfig returns a config with every scalar field set to
// its default. It carries no samples.
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		Storage:          ptrString(StorageROOT),
		OutputDir:        ptrString("."),
		Workers:          ptrInt(runtime.NumCPU()),
		NearestNeighbour: ptrString(string(weights.MethodBruteForce)),
		FoxWolframMode:   ptrString(features.FoxWolframStrict.String()),
		Cuts: &CutsConfig{
			MinParticles:     ptrInt(selection.DefaultMinParticles),
			MaxMomentum:      ptrFloat64(selection.DefaultMaxMomentum),
			MaxVisibleEnergy: ptrFloat64(selection.DefaultMaxVisibleEnergy),
		},
	}
}

// LoadPipelineConfig loads a PipelineConfig from a JSON or YAML file.
// The file is validated to ensure it has a known extension and is under the
// max file size.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyPipelineConfig()
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", ext, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent
// directories. Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *PipelineConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadPipelineConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *PipelineConfig) Validate() error {
	switch c.GetStorage() {
	case StorageROOT, StorageSQLite:
	default:
		return fmt.Errorf("storage must be %q or %q, got %q", StorageROOT, StorageSQLite, c.GetStorage())
	}
	if c.GetStorage() == StorageSQLite && c.GetDatabasePath() == "" {
		return fmt.Errorf("database_path is required for sqlite storage")
	}

	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}

	if _, err := weights.ParseMethod(c.GetNearestNeighbour()); err != nil {
		return err
	}
	if _, err := features.ParseFoxWolframMode(c.GetFoxWolframMode()); err != nil {
		return err
	}

	if c.Cuts != nil {
		if c.Cuts.MinParticles != nil && *c.Cuts.MinParticles < 0 {
			return fmt.Errorf("cuts.min_particles must be non-negative, got %d", *c.Cuts.MinParticles)
		}
		if c.Cuts.MaxMomentum != nil && *c.Cuts.MaxMomentum <= 0 {
			return fmt.Errorf("cuts.max_momentum must be positive, got %f", *c.Cuts.MaxMomentum)
		}
		if c.Cuts.MaxVisibleEnergy != nil && *c.Cuts.MaxVisibleEnergy <= 0 {
			return fmt.Errorf("cuts.max_visible_energy must be positive, got %f", *c.Cuts.MaxVisibleEnergy)
		}
	}

	seen := make(map[string]bool, len(c.Samples))
	for i, s := range c.Samples {
		policy, err := sample.PolicyForLabel(s.SampleLabel)
		if err != nil {
			return fmt.Errorf("samples[%d]: %w", i, err)
		}
		if seen[s.SampleLabel] {
			return fmt.Errorf("samples[%d]: duplicate sample_label %q", i, s.SampleLabel)
		}
		seen[s.SampleLabel] = true
		if s.InputPath == "" && c.GetStorage() == StorageROOT {
			return fmt.Errorf("samples[%d] (%s): input_path is required", i, s.SampleLabel)
		}
		if policy == sample.PolicyReference && s.ReferenceSamplePath == "" {
			return fmt.Errorf("samples[%d] (%s): reference_sample_path is required for a reference-bearing sample", i, s.SampleLabel)
		}
		if len(s.VertexBranches) != 0 && len(s.VertexBranches) != 3 {
			return fmt.Errorf("samples[%d] (%s): vertex_branches needs exactly 3 names, got %d", i, s.SampleLabel, len(s.VertexBranches))
		}
		if s.MomentumUnit != "" && !units.IsValid(s.MomentumUnit) {
			return fmt.Errorf("samples[%d] (%s): momentum_unit %q must be one of: %s", i, s.SampleLabel, s.MomentumUnit, units.GetValidUnitsString())
		}
	}

	return nil
}

// GetStorage returns the storage backend or the default ("root").
func (c *PipelineConfig) GetStorage() string {
	if c.Storage == nil || *c.Storage == "" {
		return StorageROOT
	}
	return *c.Storage
}

// GetDatabasePath returns the SQLite database path, empty if unset.
func (c *PipelineConfig) GetDatabasePath() string {
	if c.DatabasePath == nil {
		return ""
	}
	return *c.DatabasePath
}

// GetOutputDir returns the ROOT output directory or the default (".").
func (c *PipelineConfig) GetOutputDir() string {
	if c.OutputDir == nil || *c.OutputDir == "" {
		return "."
	}
	return *c.OutputDir
}

// GetWorkers returns the worker count or the default (NumCPU).
func (c *PipelineConfig) GetWorkers() int {
	if c.Workers == nil {
		return runtime.NumCPU()
	}
	return *c.Workers
}

// GetNearestNeighbour returns the nearest-neighbour method name or the default.
func (c *PipelineConfig) GetNearestNeighbour() string {
	if c.NearestNeighbour == nil {
		return string(weights.MethodBruteForce)
	}
	return *c.NearestNeighbour
}

// GetFoxWolframMode returns the Fox-Wolfram mode name or the default.
func (c *PipelineConfig) GetFoxWolframMode() string {
	if c.FoxWolframMode == nil {
		return features.FoxWolframStrict.String()
	}
	return *c.FoxWolframMode
}

// GetCuts returns the selection thresholds with defaults for unset fields.
func (c *PipelineConfig) GetCuts() selection.Cuts {
	cuts := selection.DefaultCuts()
	if c.Cuts == nil {
		return cuts
	}
	if c.Cuts.MinParticles != nil {
		cuts.MinParticles = *c.Cuts.MinParticles
	}
	if c.Cuts.MaxMomentum != nil {
		cuts.MaxMomentum = *c.Cuts.MaxMomentum
	}
	if c.Cuts.MaxVisibleEnergy != nil {
		cuts.MaxVisibleEnergy = *c.Cuts.MaxVisibleEnergy
	}
	return cuts
}

// LookupMethod returns the validated nearest-neighbour method.
func (c *PipelineConfig) LookupMethod() weights.Method {
	m, err := weights.ParseMethod(c.GetNearestNeighbour())
	if err != nil {
		return weights.MethodBruteForce
	}
	return m
}

// Mode returns the validated Fox-Wolfram mode.
func (c *PipelineConfig) Mode() features.FoxWolframMode {
	m, err := features.ParseFoxWolframMode(c.GetFoxWolframMode())
	if err != nil {
		return features.FoxWolframStrict
	}
	return m
}

// SampleSpecs converts the configured samples to sample.Specs.
func (c *PipelineConfig) SampleSpecs() []sample.Spec {
	specs := make([]sample.Spec, 0, len(c.Samples))
	for _, s := range c.Samples {
		specs = append(specs, sample.Spec{
			Label:         s.SampleLabel,
			InputPath:     s.InputPath,
			Tree:          s.Tree,
			ReferencePath: s.ReferenceSamplePath,
			ReferenceTree: s.ReferenceTree,
			VertexFields:  s.VertexBranches,
			MomentumUnit:  s.MomentumUnit,
		})
	}
	return specs
}
