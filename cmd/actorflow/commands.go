package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/go-logr/logr"
	"go.uber.org/multierr"

	"github.com/flowgraph/actorflow/internal/adapters/repository/memory"
	"github.com/flowgraph/actorflow/internal/adapters/repository/postgres"
	"github.com/flowgraph/actorflow/internal/adapters/repository/sqlite"
	"github.com/flowgraph/actorflow/internal/config"
	"github.com/flowgraph/actorflow/internal/core/channel"
	"github.com/flowgraph/actorflow/internal/core/telemetry"
	"github.com/flowgraph/actorflow/pkg/actorflow"
)

// runCommand executes the demo pipeline and prints a per-actor report.
func runCommand(args []string, stdout, stderr io.Writer) error {
	opts := newOptions("run", stderr)
	cfg, err := opts.parse(args)
	if err != nil {
		return err
	}
	log, flush := newLogger(cfg.Log, stderr)
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Run.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Run.Timeout)
		defer cancel()
	}

	channel.SetDefaultRuntimeConfig(channel.RuntimeConfig{BoundedCapacity: cfg.Run.Capacity})
	defer channel.SetDefaultRuntimeConfig(channel.RuntimeConfig{})

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	p, err := newPipeline(ctx, cfg, log, store)
	if err != nil {
		return err
	}

	defer p.close()

	mon := actorflow.NewMonitor(ctx)
	if cfg.Metrics.Addr != "" {
		srv, err := listenMetrics(ctx, cfg.Metrics.Addr, log)
		if err != nil {
			return multierr.Append(err, mon.Await())
		}
		mon.Go(srv.serve)
	}
	for _, serve := range p.serve {
		mon.Go(serve)
	}
	for _, m := range p.models {
		if err := m.Start(mon.Context()); err != nil {
			return multierr.Append(err, mon.Await())
		}
		mon.Push(m)
	}
	for _, m := range p.models {
		<-m.Done()
	}
	runErr := mon.Await()

	writeReport(stdout, p.models)
	fmt.Fprintf(stdout, "collected %d values\n", p.sink.Len())
	if p.recorder != nil {
		samples, err := store.List(context.WithoutCancel(ctx), telemetry.Filter{RunID: p.recorder.RunID()})
		if err != nil {
			return multierr.Append(runErr, err)
		}
		fmt.Fprintf(stdout, "recorded %d samples to %s store (run %s)\n", len(samples), cfg.Store.Driver, p.recorder.RunID())
	}
	return runErr
}

func writeReport(w io.Writer, models []*actorflow.Model) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tACTOR\tSTATE\tCYCLES\tERRORS\tRESULT")
	for _, m := range models {
		for _, r := range m.Report() {
			result := "ok"
			if r.Err != nil {
				result = r.Err.Error()
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", m.Name(), r.Name, r.State, r.Cycles, r.ClientErrors, result)
		}
	}
	tw.Flush()
}

// dotCommand renders the pipeline without running it.
func dotCommand(args []string, stdout, stderr io.Writer) error {
	opts := newOptions("dot", stderr)
	cfg, err := opts.parse(args)
	if err != nil {
		return err
	}
	render := (*actorflow.Model).WriteDOT
	switch opts.Format {
	case "dot":
	case "mermaid":
		render = (*actorflow.Model).WriteMermaid
	default:
		return fmt.Errorf("%w: unknown format %q", errUsage, opts.Format)
	}

	p, err := newPipeline(context.Background(), cfg, logr.Discard(), memory.NewStore(memory.Config{}))
	if err != nil {
		return err
	}
	defer p.close()
	for _, m := range p.models {
		if err := render(m, stdout); err != nil {
			return err
		}
	}
	return nil
}

// configCommand prints the effective configuration as YAML.
func configCommand(args []string, stdout, stderr io.Writer) error {
	cfg, err := newOptions("config", stderr).parse(args)
	if err != nil {
		return err
	}
	return config.Write(stdout, cfg)
}

// openStore opens the telemetry store selected by cfg; nil for "none".
func openStore(ctx context.Context, cfg config.StoreConfig) (telemetry.Store, error) {
	switch cfg.Driver {
	case config.DriverNone:
		return nil, nil
	case config.DriverMemory:
		return memory.NewStore(memory.Config{}), nil
	case config.DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverPostgres:
		s, err := postgres.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("%w: unknown store driver %q", config.ErrInvalidConfig, cfg.Driver)
}
