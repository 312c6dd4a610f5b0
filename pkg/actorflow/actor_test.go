package actorflow

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph/actorflow/pkg/port"
)

func TestSignalTypesAreDistinct(t *testing.T) {
	_, ok := any(count{}).(port.UID[int])
	assert.True(t, ok)
	_, ok = any(count{}).(port.UID[string])
	assert.False(t, ok)
	_, ok = any(samples{}).(port.UID[port.Vec[float64]])
	assert.True(t, ok)

	a := NewActor(ClientFunc(func(context.Context) error { return nil }), ActorConfig{Name: "a"})
	in := AddInput[count](a, nil, InputConfig{})
	out := AddOutput[doubled](a, func() (port.Data[int], bool, error) { return port.Data[int]{}, false, nil }, OutputConfig{})
	assert.Equal(t, port.Key{Name: "count", ID: 1}, in.Key())
	assert.Equal(t, port.Key{Name: "doubled", ID: 2}, out.Key())

	found, ok := InputOf[count](a)
	require.True(t, ok)
	assert.Same(t, in, found)
	_, ok = InputOf[doubled](a)
	assert.False(t, ok)
	_, ok = OutputOf[doubled](a)
	assert.True(t, ok)
}

func TestTerminationPropagation(t *testing.T) {
	const k = 25
	p := newPipeline(k, double, LinkConfig{})
	m := p.build(t)

	require.NoError(t, runWithin(t, m, 5*time.Second))

	want := make([]int, k)
	for i := range want {
		want[i] = 2 * (i + 1)
	}
	if diff := cmp.Diff(want, p.out.values()); diff != "" {
		t.Errorf("sink values mismatch (-want +got):\n%s", diff)
	}

	for _, a := range []*Actor{p.src, p.mid, p.sink} {
		assert.Equal(t, StateStopped, a.State(), a.Name())
		assert.NoError(t, a.Err())
	}
	for _, r := range m.Report() {
		assert.Equal(t, int64(k), r.Cycles, r.Name)
		assert.Equal(t, "stopped", r.State)
	}
}

func TestFIFOAcrossLinkKinds(t *testing.T) {
	for _, link := range []LinkConfig{{}, {Capacity: 4}, {Kind: Unbounded}} {
		t.Run(link.Kind.String(), func(t *testing.T) {
			p := newPipeline(200, increment, link)
			require.NoError(t, runWithin(t, p.build(t), 5*time.Second))

			got := p.out.values()
			require.Len(t, got, 200)
			for i, v := range got {
				assert.Equal(t, i+2, v)
			}
		})
	}
}

// loop wires a(limit) -> b and b -> a over a feedback link.
type loopClient struct {
	seen []int
	last int
	n    int
}

func (l *loopClient) readEcho(d port.Data[int]) error {
	l.last = d.Value()
	l.seen = append(l.seen, l.last)
	return nil
}

func (l *loopClient) Update(context.Context) error {
	l.n = l.last + 1
	return nil
}

func (l *loopClient) write() (port.Data[int], bool, error) { return port.NewData(l.n), true, nil }

func newLoop(t *testing.T, limit int, bootstrap bool) (*Model, *loopClient, *Actor, *Actor) {
	t.Helper()
	ac := &loopClient{}
	bc := &mapper{fn: double}

	a := NewActor(ac, ActorConfig{Name: "a", Limit: limit})
	b := NewActor(bc, ActorConfig{Name: "b"})
	Connect(AddOutput[count](a, ac.write, OutputConfig{}), AddInput[count](b, bc.read, InputConfig{}), LinkConfig{})
	Connect(
		AddOutput[echo](b, bc.write, OutputConfig{Bootstrap: bootstrap}),
		AddInput[echo](a, ac.readEcho, InputConfig{}),
		LinkConfig{Kind: Feedback},
	)

	m, err := NewBuilder(BuilderConfig{Name: "loop"}).Add(a, b).Build()
	require.NoError(t, err)
	return m, ac, a, b
}

func TestFeedbackLoopDoesNotDeadlock(t *testing.T) {
	m, _, a, b := newLoop(t, 5, false)

	require.NoError(t, runWithin(t, m, 5*time.Second))
	assert.Equal(t, int64(5), a.Stats().Cycles)
	assert.GreaterOrEqual(t, b.Stats().Cycles, int64(1))
	assert.LessOrEqual(t, b.Stats().Cycles, int64(5))
}

func TestFeedbackLoopWithBootstrapRunsInLockstep(t *testing.T) {
	m, ac, a, _ := newLoop(t, 5, true)

	edges := m.Graph().Edges
	require.Len(t, edges, 2)
	assert.True(t, edges[1].IsFeedback())

	require.NoError(t, runWithin(t, m, 5*time.Second))
	assert.Equal(t, int64(5), a.Stats().Cycles)
	// b bootstraps 0, then doubles every value a derives from its echo.
	assert.Equal(t, []int{0, 2, 6, 14, 30}, ac.seen)
}

func TestRecoverableClientErrorsSuppressWrites(t *testing.T) {
	boom := errors.New("sensor glitch")
	p := newPipeline(6, func(v int) (int, error) {
		if v%2 == 1 {
			return 0, boom
		}
		return v, nil
	}, LinkConfig{})
	h := NewCountingHandler()
	m, err := NewBuilder(BuilderConfig{Name: "glitchy", Handlers: []EventHandler{h}}).Add(p.src, p.mid, p.sink).Build()
	require.NoError(t, err)

	require.NoError(t, runWithin(t, m, 5*time.Second))
	assert.Equal(t, []int{2, 4, 6}, p.out.values())
	assert.Equal(t, ActorStats{Cycles: 6, ClientErrors: 3}, p.mid.Stats())
	assert.Equal(t, 3, h.Count(EventClientError))
	assert.Equal(t, 3, h.Count(EventActorStart))
	assert.Equal(t, 3, h.Count(EventActorStop))
	assert.Equal(t, 1, h.Count(EventModelStart))
	assert.Equal(t, 1, h.Count(EventModelStop))
	assert.Empty(t, h.Failures())
}

func TestUnrecoverableErrorStopsActorOnly(t *testing.T) {
	fatal := errors.New("solver diverged")
	p := newPipeline(10, func(v int) (int, error) {
		if v == 4 {
			return 0, Unrecoverable(fatal)
		}
		return v, nil
	}, LinkConfig{})
	m := p.build(t)

	err := runWithin(t, m, 5*time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnrecoverable)
	assert.ErrorIs(t, err, fatal)
	assert.Contains(t, err.Error(), "actor middle: update")

	assert.Equal(t, []int{1, 2, 3}, p.out.values())
	assert.NoError(t, p.src.Err())
	assert.NoError(t, p.sink.Err())
	assert.ErrorIs(t, p.mid.Err(), fatal)
}

func TestClientDoneStopsGracefully(t *testing.T) {
	c := &counter{failAt: map[int]error{4: ErrDone}}
	col := &collector[int]{}
	src := NewActor(c, ActorConfig{Name: "finite", Limit: 1000})
	sink := NewActor(col, ActorConfig{Name: "sink"})
	Connect(AddOutput[count](src, c.write, OutputConfig{}), AddInput[count](sink, col.read, InputConfig{}), LinkConfig{})

	m, err := NewBuilder(BuilderConfig{}).Add(src, sink).Build()
	require.NoError(t, err)
	assert.Equal(t, "model", m.Name())

	require.NoError(t, runWithin(t, m, 5*time.Second))
	assert.Equal(t, []int{1, 2, 3}, col.values())
}

func TestFanOutSharesOneImmutableEnvelope(t *testing.T) {
	var n float64
	src := NewActor(ClientFunc(func(context.Context) error { n++; return nil }), ActorConfig{Name: "src", Limit: 20})
	out := AddOutput[samples](src, func() (port.Data[port.Vec[float64]], bool, error) {
		return port.NewData(port.Vec[float64]{n, n, n}), true, nil
	}, OutputConfig{})

	mutator := &collector[port.Vec[float64]]{}
	observer := &collector[port.Vec[float64]]{}
	mut := NewActor(ClientFunc(func(context.Context) error { return nil }), ActorConfig{Name: "mutator"})
	obs := NewActor(observer, ActorConfig{Name: "observer"})
	Connect(out, AddInput[samples](mut, func(d port.Data[port.Vec[float64]]) error {
		v := d.Value()
		for i := range v {
			v[i] = -1
		}
		return mutator.read(d)
	}, InputConfig{}), LinkConfig{Kind: Unbounded})
	Connect(out, AddInput[samples](obs, observer.read, InputConfig{}), LinkConfig{Kind: Unbounded})

	m, err := NewBuilder(BuilderConfig{Name: "fanout"}).Add(src, mut, obs).Build()
	require.NoError(t, err)
	require.NoError(t, runWithin(t, m, 5*time.Second))

	got := observer.values()
	require.Len(t, got, 20)
	for i, v := range got {
		x := float64(i + 1)
		assert.Equal(t, port.Vec[float64]{x, x, x}, v)
		assert.True(t, observer.data[i].Shares(mutator.data[i]), "fan-out consumers share one payload")
	}
}

func TestConsumerGoneStopsProducer(t *testing.T) {
	c := &counter{}
	src := NewActor(c, ActorConfig{Name: "src", Limit: 1_000_000})
	sink := NewActor(ClientFunc(func(context.Context) error { return nil }), ActorConfig{Name: "short", Limit: 3})
	Connect(AddOutput[count](src, c.write, OutputConfig{}), AddInput[count](sink, nil, InputConfig{}), LinkConfig{})

	m, err := NewBuilder(BuilderConfig{}).Add(src, sink).Build()
	require.NoError(t, err)
	require.NoError(t, runWithin(t, m, 5*time.Second))
	assert.Less(t, src.Stats().Cycles, int64(1_000_000))
	assert.Equal(t, int64(3), sink.Stats().Cycles)
}

func TestUnconnectedOptionalInputsStopActor(t *testing.T) {
	reads := 0
	a := NewActor(ClientFunc(func(context.Context) error { return nil }), ActorConfig{Name: "poller", Limit: 10})
	AddInput[count](a, func(port.Data[int]) error { reads++; return nil }, InputConfig{Optional: true})

	m, err := NewBuilder(BuilderConfig{}).Add(a).Build()
	require.NoError(t, err)
	require.NoError(t, runWithin(t, m, 5*time.Second))
	// An unconnected optional input counts as closed; all inputs closed stops the actor.
	assert.Equal(t, int64(0), a.Stats().Cycles)
	assert.Zero(t, reads)
}

func TestStarterAndStopperHooks(t *testing.T) {
	h := &hooked{}
	a := NewActor(h, ActorConfig{Name: "hooked", Limit: 2})
	m, err := NewBuilder(BuilderConfig{}).Add(a).Build()
	require.NoError(t, err)
	require.NoError(t, runWithin(t, m, 5*time.Second))
	assert.Equal(t, []string{"start", "update", "update", "stop"}, h.calls)

	h2 := &hooked{stopErr: errors.New("flush failed")}
	a2 := NewActor(h2, ActorConfig{Name: "leaky", Limit: 1})
	m2, err := NewBuilder(BuilderConfig{}).Add(a2).Build()
	require.NoError(t, err)
	err = runWithin(t, m2, 5*time.Second)
	assert.ErrorContains(t, err, "actor leaky: stop: flush failed")
}

type hooked struct {
	calls   []string
	stopErr error
}

func (h *hooked) Start(context.Context) error {
	h.calls = append(h.calls, "start")
	return nil
}

func (h *hooked) Update(context.Context) error {
	h.calls = append(h.calls, "update")
	return nil
}

func (h *hooked) Stop() error {
	h.calls = append(h.calls, "stop")
	return h.stopErr
}

func TestModelLifecycle(t *testing.T) {
	p := newPipeline(3, double, LinkConfig{})
	m := p.build(t)

	assert.ErrorIs(t, m.Wait(), ErrNotStarted)
	require.NoError(t, m.Start(context.Background()))
	assert.ErrorIs(t, m.Start(context.Background()), ErrAlreadyStarted)
	require.NoError(t, m.Wait())

	select {
	case <-m.Done():
	default:
		t.Fatal("done channel not closed after Wait")
	}
	assert.Len(t, m.Actors(), 3)
	assert.NotEmpty(t, m.ID())
}

func TestContextCancellationStopsModel(t *testing.T) {
	c := &counter{}
	src := NewActor(c, ActorConfig{Name: "endless", Limit: 1 << 30})
	sink := NewActor(ClientFunc(func(context.Context) error { return nil }), ActorConfig{Name: "sink"})
	Connect(AddOutput[count](src, c.write, OutputConfig{}), AddInput[count](sink, nil, InputConfig{}), LinkConfig{})
	m, err := NewBuilder(BuilderConfig{}).Add(src, sink).Build()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.Start(ctx))
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-m.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("model ignored cancellation")
	}
	assert.ErrorIs(t, m.Wait(), context.Canceled)
}

func ExampleConnect() {
	c := &counter{}
	col := &collector[int]{}
	src := NewActor(c, ActorConfig{Name: "source", Limit: 3})
	sink := NewActor(col, ActorConfig{Name: "sink"})
	Connect(AddOutput[count](src, c.write, OutputConfig{}), AddInput[count](sink, col.read, InputConfig{}), LinkConfig{})

	m, err := NewBuilder(BuilderConfig{Name: "example"}).Add(src, sink).Build()
	if err != nil {
		fmt.Println(err)
		return
	}
	if err := m.Run(context.Background()); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(col.values())
	// Output: [1 2 3]
}
