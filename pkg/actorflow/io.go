package actorflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/flowgraph/actorflow/internal/core/channel"
	"github.com/flowgraph/actorflow/internal/core/graph"
	"github.com/flowgraph/actorflow/pkg/port"
	"github.com/flowgraph/actorflow/pkg/validation"
)

// InputConfig holds configuration for an input port
type InputConfig struct {
	// Optional inputs never suspend the actor: each cycle takes at most one
	// value if one is queued. They may also be left unconnected.
	Optional bool `json:"optional"`
}

// OutputConfig holds configuration for an output port
type OutputConfig struct {
	// Sink marks an output that may be left unconsumed.
	Sink bool `json:"sink"`
	// Bootstrap publishes one value before the first read, so that a
	// feedback loop through this output starts primed.
	Bootstrap bool `json:"bootstrap"`
}

// LinkKind selects the channel created by Connect.
type LinkKind int

const (
	// Bounded links apply backpressure to their producer.
	Bounded LinkKind = iota
	// Unbounded links never suspend their producer.
	Unbounded
	// Feedback links close a cycle. They are unbounded, and the consumer
	// input becomes optional unless the producer output bootstraps.
	Feedback
)

func (k LinkKind) String() string {
	switch k {
	case Bounded:
		return string(graph.EdgeTypeBounded)
	case Unbounded:
		return string(graph.EdgeTypeUnbounded)
	case Feedback:
		return string(graph.EdgeTypeFeedback)
	}
	return fmt.Sprintf("LinkKind(%d)", int(k))
}

// LinkConfig holds configuration for a link
type LinkConfig struct {
	Kind LinkKind `json:"kind" validate:"gte=0,lte=2"`
	// Capacity of a bounded link. Zero takes the runtime default.
	Capacity int `json:"capacity" validate:"gte=0"`
}

// link records one Connect call for the builder.
type link struct {
	id       string
	kind     LinkKind
	capacity int
	from, to *Actor
	key      port.Key
	signal   string
}

func (l *link) edge() *graph.Edge {
	return &graph.Edge{
		ID:         l.id,
		Source:     l.from.ID(),
		Target:     l.to.ID(),
		SourceName: l.from.Name(),
		TargetName: l.to.Name(),
		Signal:     l.signal,
		Name:       l.key.Name,
		Type:       graph.EdgeType(l.kind.String()),
		Capacity:   l.capacity,
	}
}

type inputPort interface {
	key() port.Key
	optional() bool
	describe(Sizer) graph.Port
	bindings() []*link
	receive(ctx context.Context) (int, error)
	drop()
}

type outputPort interface {
	key() port.Key
	bootstrap() bool
	describe(Sizer) graph.Port
	bindings() []*link
	consumers() (wired, live int)
	publish(ctx context.Context) error
	close()
}

// Input is a typed input port of an actor, for signal U carrying T.
type Input[U port.UID[T], T any] struct {
	owner    *Actor
	read     ReadFunc[T]
	cfg      InputConfig
	ch       *channel.Channel[port.Data[T]]
	links    []*link
	feedback bool
	exposed  bool
	// tracked inputs report the values they take to the owner's inflight
	// count.
	tracked bool
}

// Output is a typed output port of an actor, for signal U carrying T.
type Output[U port.UID[T], T any] struct {
	owner   *Actor
	write   WriteFunc[T]
	cfg     OutputConfig
	chans   []consumer[T]
	links   []*link
	wired   int
	exposed bool
	// repeat publishes every value write yields in one cycle, until it
	// reports nothing more. Subsystem outputs use it to drain their queue.
	repeat bool
}

// consumer is one fan-out endpoint of an output.
type consumer[T any] struct {
	ch      *channel.Channel[port.Data[T]]
	tracked bool
}

// AddInput declares an input for signal U on a. Each value that arrives is
// handed to read; a nil read discards values.
func AddInput[U port.UID[T], T any](a *Actor, read ReadFunc[T], cfg InputConfig) *Input[U, T] {
	in := &Input[U, T]{owner: a, read: read, cfg: cfg}
	if a.frozen.Load() {
		a.violate(fmt.Errorf("%w: input %s declared on %s after build", ErrPortsFrozen, in.key(), a.Name()))
		return in
	}
	a.inputs = append(a.inputs, in)
	a.inIndex[port.TypeOf[U]()] = in
	return in
}

// AddOutput declares an output for signal U on a. write is called once per
// cycle while the output has at least one consumer.
func AddOutput[U port.UID[T], T any](a *Actor, write WriteFunc[T], cfg OutputConfig) *Output[U, T] {
	out := &Output[U, T]{owner: a, write: write, cfg: cfg}
	if write == nil {
		a.violate(fmt.Errorf("%w: output %s on %s has no write func", ErrInvalidConfig, out.key(), a.Name()))
	}
	if !port.Isolated[T]() {
		a.violate(fmt.Errorf("%w: output %s on %s carries %T, which aliases memory; implement port.Cloner or use port.Vec",
			ErrInvalidConfig, out.key(), a.Name(), *new(T)))
	}
	if a.frozen.Load() {
		a.violate(fmt.Errorf("%w: output %s declared on %s after build", ErrPortsFrozen, out.key(), a.Name()))
		return out
	}
	a.outputs = append(a.outputs, out)
	a.outIndex[port.TypeOf[U]()] = out
	return out
}

// Connect links out to in through a new channel. The signature requires
// both ports to carry the same signal, so a mismatched link does not
// compile. Violations such as binding in twice are reported by Build.
func Connect[U port.UID[T], T any](out *Output[U, T], in *Input[U, T], cfg LinkConfig) {
	l := &link{
		id:     uuid.NewString(),
		kind:   cfg.Kind,
		from:   out.owner,
		to:     in.owner,
		key:    in.key(),
		signal: signalOf[U](),
	}
	if err := validation.Struct(cfg); err != nil {
		out.owner.violate(fmt.Errorf("%w: link %s -> %s: %v", ErrInvalidConfig, out.owner.Name(), in.owner.Name(), err))
		return
	}
	if out.owner.frozen.Load() || in.owner.frozen.Load() {
		out.owner.violate(fmt.Errorf("%w: link %s -> %s made after build", ErrPortsFrozen, out.owner.Name(), in.owner.Name()))
		return
	}

	if cfg.Kind == Bounded {
		l.capacity = cfg.Capacity
		if l.capacity <= 0 {
			l.capacity = channel.BoundedCapacity()
		}
	}
	ch := channel.New[port.Data[T]](channel.Config{Capacity: l.capacity})
	if cfg.Kind == Feedback && !out.cfg.Bootstrap {
		in.feedback = true
	}

	tracked := cfg.Kind != Feedback
	out.attach(ch, tracked)
	out.links = append(out.links, l)
	in.links = append(in.links, l)
	if in.ch == nil {
		in.ch = ch
		in.tracked = tracked
	}
}

// InputOf returns the input for signal U declared on n. It is how callers
// reach the ports of a cloned SubSystem.
func InputOf[U port.UID[T], T any](n Node) (*Input[U, T], bool) {
	in, ok := n.actor().inIndex[port.TypeOf[U]()].(*Input[U, T])
	return in, ok
}

// OutputOf returns the output for signal U declared on n.
func OutputOf[U port.UID[T], T any](n Node) (*Output[U, T], bool) {
	out, ok := n.actor().outIndex[port.TypeOf[U]()].(*Output[U, T])
	return out, ok
}

func signalOf[U any]() string {
	return port.TypeOf[U]().String()
}

// Key returns the signal key of the port.
func (in *Input[U, T]) Key() port.Key { return in.key() }

// Actor returns the actor declaring the port.
func (in *Input[U, T]) Actor() *Actor { return in.owner }

func (in *Input[U, T]) key() port.Key { return port.KeyOf[U]() }

func (in *Input[U, T]) optional() bool { return in.cfg.Optional || in.feedback }

func (in *Input[U, T]) bindings() []*link { return in.links }

func (in *Input[U, T]) describe(s Sizer) graph.Port {
	return graph.Port{
		Signal:   signalOf[U](),
		Name:     in.key().Name,
		ID:       in.key().ID,
		Size:     sizeOf(s, in.key()),
		Optional: in.optional(),
		Exposed:  in.exposed,
	}
}

// receive takes the next value, suspending only for required inputs, and
// hands it to the read func. It returns how many tracked values it took.
// An unconnected input reports closed.
func (in *Input[U, T]) receive(ctx context.Context) (int, error) {
	if in.ch == nil {
		return 0, channel.ErrChannelClosed
	}
	var d port.Data[T]
	var err error
	if in.optional() {
		d, err = in.ch.TryReceive()
		if errors.Is(err, channel.ErrChannelEmpty) {
			return 0, nil
		}
	} else {
		d, err = in.ch.Receive(ctx)
	}
	if err != nil {
		return 0, err
	}
	took := 0
	if in.tracked {
		took = 1
	}
	if in.read == nil {
		return took, nil
	}
	if err := in.read(d); err != nil {
		return took, &clientFault{stage: "read", err: err}
	}
	return took, nil
}

func (in *Input[U, T]) drop() {
	if in.ch == nil {
		return
	}
	if n := in.ch.Drop(); in.tracked {
		in.owner.flow.add(-n)
	}
}

// Key returns the signal key of the port.
func (out *Output[U, T]) Key() port.Key { return out.key() }

// Actor returns the actor declaring the port.
func (out *Output[U, T]) Actor() *Actor { return out.owner }

func (out *Output[U, T]) key() port.Key { return port.KeyOf[U]() }

func (out *Output[U, T]) bootstrap() bool { return out.cfg.Bootstrap }

func (out *Output[U, T]) bindings() []*link { return out.links }

func (out *Output[U, T]) describe(s Sizer) graph.Port {
	return graph.Port{
		Signal:    signalOf[U](),
		Name:      out.key().Name,
		ID:        out.key().ID,
		Size:      sizeOf(s, out.key()),
		Sink:      out.cfg.Sink,
		Bootstrap: out.cfg.Bootstrap,
		Exposed:   out.exposed,
	}
}

func (out *Output[U, T]) attach(ch *channel.Channel[port.Data[T]], tracked bool) {
	out.chans = append(out.chans, consumer[T]{ch: ch, tracked: tracked})
	out.wired++
}

func (out *Output[U, T]) consumers() (int, int) { return out.wired, len(out.chans) }

// publish calls the write func and fans the envelope out to every live
// consumer. Consumers that dropped their endpoint are pruned.
func (out *Output[U, T]) publish(ctx context.Context) error {
	for len(out.chans) > 0 && out.write != nil {
		d, ok, err := out.write()
		if err != nil {
			return &clientFault{stage: "write", err: err}
		}
		if !ok || !d.Valid() {
			return nil
		}
		if err := out.fanOut(ctx, d); err != nil {
			return err
		}
		if !out.repeat {
			return nil
		}
	}
	return nil
}

func (out *Output[U, T]) fanOut(ctx context.Context, d port.Data[T]) error {
	flow := out.owner.flow
	live := make([]consumer[T], 0, len(out.chans))
	for i, c := range out.chans {
		if c.tracked {
			flow.add(1)
		}
		err := c.ch.Send(ctx, d)
		if err != nil && c.tracked {
			flow.add(-1)
		}
		switch {
		case err == nil:
			live = append(live, c)
		case errors.Is(err, channel.ErrReceiverGone):
			out.owner.log.V(1).Info("consumer gone", "signal", out.key().String())
		default:
			out.chans = append(live, out.chans[i:]...)
			return err
		}
	}
	out.chans = live
	return nil
}

func (out *Output[U, T]) close() {
	for _, c := range out.chans {
		c.ch.Close()
	}
}

func sizeOf(s Sizer, k port.Key) int {
	if s == nil {
		return 0
	}
	if n, ok := s.Size(k); ok {
		return n
	}
	return 0
}
