package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/flowgraph/actorflow/internal/config"
	"github.com/flowgraph/actorflow/pkg/validation"
)

var errUsage = errors.New("usage")

// options holds the command-line configuration shared by every command.
type options struct {
	ConfigFile  string
	EnvFiles    []string
	MetricsAddr string
	Store       string
	DSN         string
	Samples     int
	Every       int
	Transceiver bool
	Verbosity   int
	Format      string

	fs *pflag.FlagSet
}

// newOptions binds the flags of command name to a fresh FlagSet.
func newOptions(name string, stderr io.Writer) *options {
	opts := &options{}
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	opts.fs = fs

	fs.StringVarP(&opts.ConfigFile, "config", "c", "", "YAML run configuration file.")
	fs.StringSliceVar(&opts.EnvFiles, "env-file", []string{".env"}, "Dotenv files with ACTORFLOW_* overrides. Missing files are skipped.")
	fs.StringVar(&opts.MetricsAddr, "metrics-addr", "", "Serve /metrics and /healthz on this address, e.g. :9090.")
	fs.StringVar(&opts.Store, "store", "", "Telemetry store driver: none, memory, sqlite or postgres.")
	fs.StringVar(&opts.DSN, "dsn", "", "Telemetry store data source name.")
	fs.IntVar(&opts.Samples, "samples", 0, "Number of values the source emits.")
	fs.IntVar(&opts.Every, "every", 0, "Keep one value out of every N.")
	fs.BoolVar(&opts.Transceiver, "transceiver", false, "Route the pipeline through a loopback TCP transceiver.")
	fs.IntVarP(&opts.Verbosity, "v", "v", 0, "Log verbosity (0-3).")
	if name == "dot" {
		fs.StringVar(&opts.Format, "format", "dot", "Diagram format: dot or mermaid.")
	}
	return opts
}

// parse parses args and loads the configuration they point at. Flags that
// were set explicitly override every other source.
func (opts *options) parse(args []string) (*config.Config, error) {
	if err := opts.fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	if opts.fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected arguments %v", errUsage, opts.fs.Args())
	}

	cfg, err := config.NewLoader().WithEnvFiles(opts.EnvFiles...).Load(opts.ConfigFile)
	if err != nil {
		return nil, err
	}

	changed := opts.fs.Changed
	if changed("metrics-addr") {
		cfg.Metrics.Addr = opts.MetricsAddr
	}
	if changed("store") {
		cfg.Store.Driver = opts.Store
	}
	if changed("dsn") {
		cfg.Store.DSN = opts.DSN
	}
	if changed("samples") {
		cfg.Run.Samples = opts.Samples
	}
	if changed("every") {
		cfg.Run.Every = opts.Every
	}
	if changed("transceiver") {
		cfg.Transceiver.Enabled = opts.Transceiver
	}
	if changed("v") {
		cfg.Log.Verbosity = opts.Verbosity
	}
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	return cfg, nil
}

func validateConfig(cfg *config.Config) error {
	return validation.Struct(cfg)
}
