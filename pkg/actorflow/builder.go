package actorflow

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/flowgraph/actorflow/internal/core/graph"
	"github.com/flowgraph/actorflow/pkg/validation"
)

// BuilderConfig holds configuration for a Builder
type BuilderConfig struct {
	// Name labels the model. Defaults to "model".
	Name string `json:"name" validate:"actor_name"`
	// Logger receives lifecycle and per-cycle logs. Defaults to discard.
	Logger logr.Logger `json:"-"`
	// Handlers receive lifecycle events of the built model.
	Handlers []EventHandler `json:"-"`
}

// Builder assembles actors and subsystems into a Model.
// PRINCIPLES:
// - Wiring is type-checked by Connect, structure is checked by Build
// - Build reports every violation, never only the first
type Builder struct {
	cfg        BuilderConfig
	nodes      []*Actor
	seen       mapset.Set[*Actor]
	violations []error
	// flow is shared by the actors of a subsystem's inner model.
	flow *inflight
}

// NewBuilder creates a builder from config.
func NewBuilder(cfg BuilderConfig) *Builder {
	if cfg.Name == "" {
		cfg.Name = "model"
	}
	if cfg.Logger.GetSink() == nil {
		cfg.Logger = logr.Discard()
	}
	b := &Builder{cfg: cfg, seen: mapset.NewThreadUnsafeSet[*Actor]()}
	if err := validation.Struct(cfg); err != nil {
		b.violations = append(b.violations, fmt.Errorf("%w: builder %s: %v", ErrInvalidConfig, cfg.Name, err))
	}
	return b
}

// Add registers nodes with the graph.
func (b *Builder) Add(nodes ...Node) *Builder {
	for _, n := range nodes {
		a := n.actor()
		if !b.seen.Add(a) {
			b.violations = append(b.violations, fmt.Errorf("%w: %s added twice", ErrDuplicateNode, a.Name()))
			continue
		}
		b.nodes = append(b.nodes, a)
	}
	return b
}

// Build validates the wiring and returns a runnable Model. On failure the
// returned error aggregates every violation; use multierr.Errors to list
// them and errors.Is to test for a rule.
func (b *Builder) Build() (*Model, error) {
	g, err := b.describe()
	if err != nil {
		return nil, err
	}

	m := newModel(g, b.cfg)
	m.flow = b.flow
	for _, a := range b.nodes {
		a.frozen.Store(true)
		a.log = m.log.WithValues("actor", a.Name(), "id", a.ID())
		a.events = m.events
		a.flow = b.flow
		m.actors = append(m.actors, a)
	}
	m.log.V(1).Info("model built", "actors", len(g.Nodes), "links", len(g.Edges))
	return m, nil
}

// describe snapshots the wiring into a graph and checks it.
func (b *Builder) describe() (*graph.Graph, error) {
	g := graph.New(uuid.NewString(), b.cfg.Name)
	errs := multierr.Combine(b.violations...)

	for _, a := range b.nodes {
		if a.frozen.Load() {
			errs = multierr.Append(errs, fmt.Errorf("%w: %s already belongs to a model", ErrPortsFrozen, a.Name()))
		}
		errs = multierr.Append(errs, multierr.Combine(a.violations...))
		errs = multierr.Append(errs, g.AddNode(a.describe()))
	}

	links := mapset.NewThreadUnsafeSet[*link]()
	for _, a := range b.nodes {
		for _, out := range a.outputs {
			for _, l := range out.bindings() {
				if links.Add(l) {
					errs = multierr.Append(errs, g.AddEdge(l.edge()))
				}
			}
		}
		for _, in := range a.inputs {
			for _, l := range in.bindings() {
				if links.Add(l) {
					errs = multierr.Append(errs, g.AddEdge(l.edge()))
				}
			}
		}
	}

	errs = multierr.Append(errs, g.Validate())
	if errs != nil {
		return nil, errs
	}
	return g, nil
}
