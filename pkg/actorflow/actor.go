package actorflow

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/flowgraph/actorflow/internal/core/channel"
	"github.com/flowgraph/actorflow/internal/core/graph"
	imetrics "github.com/flowgraph/actorflow/internal/infrastructure/metrics"
	"github.com/flowgraph/actorflow/pkg/validation"
)

// State is the position of an actor in its read-update-write loop.
type State int32

const (
	StateIdle State = iota
	StateReading
	StateUpdating
	StateWriting
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReading:
		return "reading"
	case StateUpdating:
		return "updating"
	case StateWriting:
		return "writing"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// ActorConfig holds configuration for an Actor
type ActorConfig struct {
	// Name labels the actor in logs, metrics and diagrams. Defaults to the
	// client's type name.
	Name string `json:"name" validate:"actor_name"`
	// Limit stops the actor after that many cycles. Zero means no limit;
	// actors without inputs must set one, or Unlimited when their client
	// ends the stream itself by returning ErrDone.
	Limit int `json:"limit" validate:"gte=-1"`
}

// Unlimited is the cycle limit of a source actor that stops on its own,
// e.g. when a network stream ends.
const Unlimited = -1

// Node is anything a Builder accepts: an *Actor or a *SubSystem.
type Node interface {
	actor() *Actor
}

// Actor is the unit of execution: one client, an ordered set of typed
// inputs and outputs, and one goroutine once its model starts.
// PRINCIPLES:
// - Actors share no mutable state, only channels
// - Ports are declared before build and frozen afterwards
type Actor struct {
	id     uuid.UUID
	cfg    ActorConfig
	client Client
	kind   graph.NodeType
	sub    *SubSystem

	inputs   []inputPort
	outputs  []outputPort
	inIndex  map[reflect.Type]inputPort
	outIndex map[reflect.Type]outputPort

	violations []error
	frozen     atomic.Bool

	state        atomic.Int32
	cycles       atomic.Int64
	clientErrors atomic.Int64

	mu     sync.Mutex
	err    error
	log    logr.Logger
	events *streamer
	flow   *inflight
}

// ActorStats holds the counters of one actor.
type ActorStats struct {
	Cycles       int64 `json:"cycles"`
	ClientErrors int64 `json:"client_errors"`
}

// NewActor hosts client in a new actor. Configuration problems are reported
// by Builder.Build together with every other structural violation.
func NewActor(client Client, cfg ActorConfig) *Actor {
	if cfg.Name == "" {
		cfg.Name = clientName(client)
	}
	a := &Actor{
		id:       uuid.New(),
		cfg:      cfg,
		client:   client,
		kind:     graph.NodeTypeActor,
		inIndex:  make(map[reflect.Type]inputPort),
		outIndex: make(map[reflect.Type]outputPort),
		log:      logr.Discard(),
	}
	if client == nil {
		a.violate(fmt.Errorf("%w: actor %s has no client", ErrInvalidConfig, cfg.Name))
	}
	if err := validation.Struct(cfg); err != nil {
		a.violate(fmt.Errorf("%w: actor %s: %v", ErrInvalidConfig, cfg.Name, err))
	}
	return a
}

func clientName(c Client) string {
	t := reflect.TypeOf(c)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return "actor"
	}
	name := t.Name()
	// Instantiated generic types are named like "Collector[pkg/path.Signal,int]".
	if i := strings.IndexByte(name, '['); i > 0 {
		name = name[:i]
	}
	return name
}

func (a *Actor) actor() *Actor { return a }

// ID returns the unique identifier of the actor.
func (a *Actor) ID() string { return a.id.String() }

// Name returns the configured name.
func (a *Actor) Name() string { return a.cfg.Name }

// Limit returns the cycle limit, zero or Unlimited if there is none.
func (a *Actor) Limit() int { return a.cfg.Limit }

// Client returns the hosted client.
func (a *Actor) Client() Client { return a.client }

// State returns the current loop state.
func (a *Actor) State() State { return State(a.state.Load()) }

// Stats returns the actor counters.
func (a *Actor) Stats() ActorStats {
	return ActorStats{Cycles: a.cycles.Load(), ClientErrors: a.clientErrors.Load()}
}

// Err returns the error the actor stopped with, if any.
func (a *Actor) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

func (a *Actor) violate(err error) {
	a.violations = append(a.violations, err)
}

func (a *Actor) setState(s State) { a.state.Store(int32(s)) }

// describe snapshots the actor as a graph node.
func (a *Actor) describe() *graph.Node {
	n := &graph.Node{
		ID:    a.ID(),
		Type:  a.kind,
		Name:  a.cfg.Name,
		Limit: a.cfg.Limit,
	}
	sizer, _ := a.client.(Sizer)
	for _, in := range a.inputs {
		n.Inputs = append(n.Inputs, in.describe(sizer))
	}
	for _, out := range a.outputs {
		n.Outputs = append(n.Outputs, out.describe(sizer))
	}
	if a.sub != nil && a.sub.model != nil {
		n.Inner = a.sub.model.Graph()
	}
	return n
}

// run drives the loop until a stop condition, then releases every channel
// endpoint so that termination propagates to neighbours.
func (a *Actor) run(ctx context.Context) (err error) {
	imetrics.ActorStarted()
	a.log.V(1).Info("actor started", "inputs", len(a.inputs), "outputs", len(a.outputs), "limit", a.cfg.Limit)
	a.emit(Event{Type: EventActorStart})

	defer func() {
		if d, ok := a.client.(drainer); ok && ctx.Err() == nil {
			err = multierr.Append(err, a.drain(ctx, d))
		}
		a.shutdown()
		if s, ok := a.client.(Stopper); ok {
			if serr := s.Stop(); serr != nil {
				err = multierr.Append(err, fmt.Errorf("actor %s: stop: %w", a.cfg.Name, serr))
			}
		}
		a.finish(err)
	}()

	if s, ok := a.client.(Starter); ok {
		if err := s.Start(ctx); err != nil {
			return fmt.Errorf("actor %s: start: %w", a.cfg.Name, err)
		}
	}
	if err := a.bootstrap(ctx); err != nil {
		return err
	}

	for a.cfg.Limit <= 0 || a.cycles.Load() < int64(a.cfg.Limit) {
		if err := ctx.Err(); err != nil {
			return err
		}
		stop, err := a.cycle(ctx)
		if stop || err != nil {
			return err
		}
	}
	a.log.V(1).Info("cycle limit reached")
	return nil
}

// bootstrap publishes every bootstrap output once, priming feedback loops.
func (a *Actor) bootstrap(ctx context.Context) error {
	for _, out := range a.outputs {
		if !out.bootstrap() {
			continue
		}
		if stop, err := a.publish(ctx, out); stop || err != nil {
			return err
		}
	}
	return nil
}

// cycle runs one read-update-write pass. It reports stop when the actor
// must leave the loop; err is the reason when it is a failure.
func (a *Actor) cycle(ctx context.Context) (bool, error) {
	a.setState(StateReading)
	failed := false
	closed, took := 0, 0
	// Values taken this cycle are done once its writes are published.
	defer func() { a.flow.add(-took) }()
	for _, in := range a.inputs {
		n, err := in.receive(ctx)
		took += n
		if err == nil {
			continue
		}
		if errors.Is(err, channel.ErrChannelClosed) {
			if !in.optional() {
				a.log.V(1).Info("required input closed", "signal", in.key().String())
				return true, nil
			}
			closed++
			continue
		}
		var fault *clientFault
		if !errors.As(err, &fault) {
			return true, err
		}
		if stop, ferr := a.fault(fault); stop {
			return true, ferr
		}
		failed = true
	}
	if len(a.inputs) > 0 && closed == len(a.inputs) {
		a.log.V(1).Info("all inputs closed")
		return true, nil
	}

	a.setState(StateUpdating)
	if !failed {
		if err := a.client.Update(ctx); err != nil {
			if stop, ferr := a.fault(&clientFault{stage: "update", err: err}); stop {
				return true, ferr
			}
			failed = true
		}
	}

	a.setState(StateWriting)
	if !failed {
		for _, out := range a.outputs {
			if stop, err := a.publish(ctx, out); stop || err != nil {
				return true, err
			}
		}
	}

	a.cycles.Inc()
	imetrics.IncActorCycles(a.cfg.Name)
	a.setState(StateIdle)

	if a.consumersGone() {
		a.log.V(1).Info("every consumer is gone")
		return true, nil
	}
	return false, nil
}

// drainer is implemented by clients that still hold values after their
// last cycle. Once drain returns, every output's write yields the remaining
// values and then reports nothing more.
type drainer interface {
	drain(ctx context.Context) error
}

// drain publishes what d still holds before the outputs close.
func (a *Actor) drain(ctx context.Context, d drainer) error {
	if err := d.drain(ctx); err != nil {
		return fmt.Errorf("actor %s: drain: %w", a.cfg.Name, err)
	}
	a.setState(StateWriting)
	for _, out := range a.outputs {
		if _, err := a.publish(ctx, out); err != nil {
			return err
		}
	}
	return nil
}

func (a *Actor) publish(ctx context.Context, out outputPort) (bool, error) {
	err := out.publish(ctx)
	if err == nil {
		return false, nil
	}
	var fault *clientFault
	if errors.As(err, &fault) {
		return a.fault(fault)
	}
	return true, err
}

// fault classifies a client error. Recoverable errors are counted and the
// loop continues.
func (a *Actor) fault(f *clientFault) (bool, error) {
	switch {
	case errors.Is(f.err, ErrDone):
		a.log.V(1).Info("client done", "stage", f.stage)
		return true, nil
	case errors.Is(f.err, ErrUnrecoverable):
		return true, fmt.Errorf("actor %s: %s: %w", a.cfg.Name, f.stage, f.err)
	}
	a.clientErrors.Inc()
	imetrics.IncClientErrors(a.cfg.Name, f.stage)
	a.log.V(1).Info("client error", "stage", f.stage, "cycle", a.cycles.Load(), "err", f.err.Error())
	a.emit(Event{Type: EventClientError, Stage: f.stage, Err: f.err})
	return false, nil
}

// consumersGone reports whether the actor had consumers and lost them all.
func (a *Actor) consumersGone() bool {
	wired, live := 0, 0
	for _, out := range a.outputs {
		w, l := out.consumers()
		wired += w
		live += l
	}
	return wired > 0 && live == 0
}

func (a *Actor) shutdown() {
	for _, out := range a.outputs {
		out.close()
	}
	for _, in := range a.inputs {
		in.drop()
	}
}

func (a *Actor) finish(err error) {
	a.mu.Lock()
	a.err = err
	a.mu.Unlock()
	a.setState(StateStopped)
	imetrics.ActorStopped()

	if err != nil {
		a.log.Error(err, "actor failed", "cycles", a.cycles.Load())
	} else {
		a.log.V(1).Info("actor stopped", "cycles", a.cycles.Load(), "clientErrors", a.clientErrors.Load())
	}
	a.emit(Event{Type: EventActorStop, Err: err})
}

func (a *Actor) emit(e Event) {
	if a.events == nil {
		return
	}
	e.Actor = a.cfg.Name
	e.ActorID = a.ID()
	e.Cycle = a.cycles.Load()
	a.events.emit(e)
}
