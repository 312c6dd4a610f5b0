package actorflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/flowgraph/actorflow/internal/core/channel"
	"github.com/flowgraph/actorflow/internal/core/graph"
	"github.com/flowgraph/actorflow/pkg/port"
)

// SubSystemConfig holds configuration for a SubSystem
type SubSystemConfig struct {
	// Name labels both the outer actor and the inner model.
	Name string `json:"name" validate:"actor_name"`
	// Limit caps the cycles of the outer actor. Zero means no limit.
	Limit int `json:"limit" validate:"gte=0"`
	// Logger receives the logs of the inner model.
	Logger logr.Logger `json:"-"`
	// Handlers receive lifecycle events of the inner model.
	Handlers []EventHandler `json:"-"`
}

// ExposeConfig selects how an exposed output is drained.
type ExposeConfig struct {
	// Drain publishes whatever the inner graph has queued so far without
	// waiting for it to settle, for inner graphs that are not driven by
	// the exposed inputs alone. The default waits each outer cycle until
	// the inner graph has processed the values forwarded in that cycle,
	// keeping it in lockstep with the outer graph.
	Drain bool `json:"drain"`
}

// Blueprint adds the inner nodes of a subsystem and exposes its boundary
// ports. It runs once per instance, so Clone builds an independent copy.
type Blueprint func(s *SubSystem) error

// SubSystem hosts a whole validated graph behind a single actor.
// PRINCIPLES:
// - The inner graph is validated on its own, independently of the outer one
// - Exposed ports map 1:1 onto inner actor ports
// - Inner wiring stays opaque to the outer graph
type SubSystem struct {
	cfg       SubSystemConfig
	blueprint Blueprint
	inner     *Builder
	model     *Model
	outer     *Actor
	gw        *gateway
}

// NewSubSystem runs blueprint and validates the resulting inner graph.
func NewSubSystem(cfg SubSystemConfig, blueprint Blueprint) (*SubSystem, error) {
	if blueprint == nil {
		return nil, fmt.Errorf("%w: subsystem %s has no blueprint", ErrInvalidConfig, cfg.Name)
	}
	if cfg.Logger.GetSink() == nil {
		cfg.Logger = logr.Discard()
	}

	s := &SubSystem{cfg: cfg, blueprint: blueprint}
	s.gw = &gateway{sub: s, sizes: make(map[port.Key]int)}
	s.outer = NewActor(s.gw, ActorConfig{Name: cfg.Name, Limit: cfg.Limit})
	s.outer.kind = graph.NodeTypeSubSystem
	s.outer.sub = s
	s.inner = NewBuilder(BuilderConfig{
		Name:     s.outer.Name(),
		Logger:   cfg.Logger.WithName(s.outer.Name()),
		Handlers: cfg.Handlers,
	})
	s.inner.flow = newInflight()

	if err := blueprint(s); err != nil {
		return nil, fmt.Errorf("subsystem %s: blueprint: %w", s.outer.Name(), err)
	}
	m, err := s.inner.Build()
	if err != nil {
		return nil, fmt.Errorf("subsystem %s: %w", s.outer.Name(), err)
	}
	s.model = m
	return s, nil
}

func (s *SubSystem) actor() *Actor { return s.outer }

// Add registers inner nodes. Only valid inside the blueprint.
func (s *SubSystem) Add(nodes ...Node) *SubSystem {
	s.inner.Add(nodes...)
	return s
}

// Actor returns the outer actor to add to an enclosing Builder.
func (s *SubSystem) Actor() *Actor { return s.outer }

// Name returns the subsystem name.
func (s *SubSystem) Name() string { return s.outer.Name() }

// Model returns the inner model.
func (s *SubSystem) Model() *Model { return s.model }

// Clone builds an independent, identically wired copy named name.
func (s *SubSystem) Clone(name string) (*SubSystem, error) {
	cfg := s.cfg
	cfg.Name = name
	return NewSubSystem(cfg, s.blueprint)
}

// ExposeInput makes the inner input in reachable as an input of the
// subsystem's outer actor, and returns that outer input.
func ExposeInput[U port.UID[T], T any](s *SubSystem, in *Input[U, T]) *Input[U, T] {
	ch := channel.NewUnbounded[port.Data[T]]()
	in.exposed = true
	if in.ch == nil {
		in.ch = ch
		in.tracked = true
	}
	s.gw.recordSize(in.owner, in.key())

	var pending port.Data[T]
	outer := AddInput[U, T](s.outer, func(d port.Data[T]) error {
		pending = d
		return nil
	}, InputConfig{Optional: in.cfg.Optional})

	flow := s.inner.flow
	s.gw.forwards = append(s.gw.forwards, func(ctx context.Context) error {
		if !pending.Valid() {
			return nil
		}
		d := pending
		pending = port.Data[T]{}
		flow.add(1)
		if err := ch.Send(ctx, d); err != nil {
			flow.add(-1)
			return err
		}
		return nil
	})
	s.gw.inputs = append(s.gw.inputs, func() { ch.Close() })
	return outer
}

// ExposeOutput makes the inner output out reachable as an output of the
// subsystem's outer actor, and returns that outer output. Each outer cycle
// publishes every value queued on it, in order.
func ExposeOutput[U port.UID[T], T any](s *SubSystem, out *Output[U, T], cfg ExposeConfig) *Output[U, T] {
	ch := channel.NewUnbounded[port.Data[T]]()
	out.exposed = true
	out.attach(ch, false)
	s.gw.recordSize(out.owner, out.key())
	if !cfg.Drain {
		s.gw.lockstep = true
	}

	gw := s.gw
	write := func() (port.Data[T], bool, error) {
		d, err := ch.TryReceive()
		switch {
		case err == nil:
			return d, true, nil
		case errors.Is(err, channel.ErrChannelEmpty):
			return d, false, nil
		case errors.Is(err, channel.ErrChannelClosed):
			if gw.draining {
				return d, false, nil
			}
			return d, false, ErrDone
		}
		return d, false, Unrecoverable(err)
	}
	s.gw.outputs = append(s.gw.outputs, func() { ch.Drop() })

	outer := AddOutput[U, T](s.outer, write, OutputConfig{})
	outer.repeat = true
	return outer
}

// gateway is the client of a subsystem's outer actor. Each outer cycle it
// forwards the envelopes read this cycle onto the inner inputs, waits for
// the inner graph to settle unless every output drains, and the outer
// outputs then publish what the inner outputs queued.
type gateway struct {
	sub      *SubSystem
	forwards []func(ctx context.Context) error
	inputs   []func()
	outputs  []func()
	sizes    map[port.Key]int
	lockstep bool
	draining bool
}

// Start runs the inner model alongside the outer actor.
func (g *gateway) Start(ctx context.Context) error {
	return g.sub.model.Start(ctx)
}

func (g *gateway) Update(ctx context.Context) error {
	for _, forward := range g.forwards {
		err := forward(ctx)
		switch {
		case err == nil:
		case errors.Is(err, channel.ErrReceiverGone):
			return ErrDone
		default:
			return Unrecoverable(err)
		}
	}
	if !g.lockstep {
		return nil
	}
	return g.sub.model.flow.wait(ctx, g.sub.model.Done())
}

// drain closes the inner inputs and waits until the inner graph has
// processed everything forwarded to it, leaving the results queued on the
// inner outputs for a last publish.
func (g *gateway) drain(ctx context.Context) error {
	g.draining = true
	for _, c := range g.inputs {
		c()
	}
	if !g.sub.model.started.Load() {
		return nil
	}
	return g.sub.model.flow.wait(ctx, g.sub.model.Done())
}

// Stop closes the inner boundary and joins the inner model; its failure
// becomes the outer actor's.
func (g *gateway) Stop() error {
	for _, c := range g.inputs {
		c()
	}
	for _, c := range g.outputs {
		c()
	}
	if !g.sub.model.started.Load() {
		return nil
	}
	return g.sub.model.Wait()
}

// Size reports the sizes asserted by the inner clients behind exposed ports.
func (g *gateway) Size(k port.Key) (int, bool) {
	n, ok := g.sizes[k]
	return n, ok
}

func (g *gateway) recordSize(a *Actor, k port.Key) {
	if s, ok := a.client.(Sizer); ok {
		if n, ok := s.Size(k); ok {
			g.sizes[k] = n
		}
	}
}
