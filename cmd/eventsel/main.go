// Command eventsel extracts event-shape features, assigns nearest-neighbour
// weights and applies the pre-selection to every configured sample.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/eventsel/internal/config"
	"github.com/banshee-data/eventsel/internal/pipeline"
	"github.com/banshee-data/eventsel/internal/rootio"
	"github.com/banshee-data/eventsel/internal/store"
	"github.com/banshee-data/eventsel/internal/version"
)

// errVersion stops the run after printing the version.
var errVersion = errors.New("version requested")

type options struct {
	configPath string
	workers    int
	verbose    bool
	trace      bool
	version    bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("eventsel", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", config.DefaultConfigPath, "pipeline config file (.json, .yaml or .yml)")
	fs.IntVar(&o.workers, "workers", 0, "per-sample worker count (0 uses the config value)")
	fs.BoolVar(&o.verbose, "verbose", false, "enable diagnostic logging")
	fs.BoolVar(&o.trace, "trace", false, "enable per-event trace logging")
	fs.BoolVar(&o.version, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.workers < 0 {
		return o, fmt.Errorf("-workers must be non-negative, got %d", o.workers)
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if o.version {
		fmt.Fprintln(stdout, version.String("eventsel"))
		return errVersion
	}

	var diag, trace io.Writer
	if o.verbose {
		diag = stderr
	}
	if o.trace {
		trace = stderr
	}
	pipeline.SetLogWriters(stderr, diag, trace)

	cfg, err := config.LoadPipelineConfig(o.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	specs := cfg.SampleSpecs()
	if len(specs) == 0 {
		return fmt.Errorf("config %s defines no samples", o.configPath)
	}

	opts := pipeline.Options{
		Workers: cfg.GetWorkers(),
		Mode:    cfg.Mode(),
		Lookup:  cfg.LookupMethod(),
		Cuts:    cfg.GetCuts(),
	}
	if o.workers > 0 {
		opts.Workers = o.workers
	}

	var backend pipeline.Backend
	switch cfg.GetStorage() {
	case config.StorageSQLite:
		s, err := store.Open(cfg.GetDatabasePath())
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()
		backend = store.NewBackend(s)
	default:
		backend = rootio.NewBackend(cfg.GetOutputDir())
	}

	log.Printf("running %d samples: storage=%s workers=%d lookup=%s fox_wolfram=%s",
		len(specs), cfg.GetStorage(), opts.Workers, opts.Lookup, opts.Mode)
	results, err := pipeline.Run(ctx, backend, specs, opts)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Fprintf(stdout, "%-10s %-13s events=%d kept=%d cut=%d scale=%.6g\n",
			r.Label, r.Policy, r.Summary.Total, r.Summary.Kept, r.Summary.Cut, r.Summary.Scale)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	switch {
	case err == nil, errors.Is(err, errVersion):
	case errors.Is(err, flag.ErrHelp):
		os.Exit(2)
	default:
		log.Fatalf("eventsel: %v", err)
	}
}
