package actorflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph/actorflow/pkg/port"
)

type count struct{ port.Tag[int] }

func (count) PortID() uint32 { return 1 }

type doubled struct{ port.Tag[int] }

func (doubled) PortID() uint32 { return 2 }

type echo struct{ port.Tag[int] }

func (echo) PortID() uint32 { return 3 }

type samples struct{ port.Tag[port.Vec[float64]] }

func (samples) PortID() uint32 { return 4 }

// counter emits 1, 2, 3, ... on count.
type counter struct {
	n      int
	failAt map[int]error
}

func (c *counter) Update(context.Context) error {
	c.n++
	return c.failAt[c.n]
}

func (c *counter) write() (port.Data[int], bool, error) {
	return port.NewData(c.n), true, nil
}

// mapper applies fn to every value it reads.
type mapper struct {
	in, out int
	fn      func(int) (int, error)
}

func (m *mapper) read(d port.Data[int]) error {
	m.in = d.Value()
	return nil
}

func (m *mapper) Update(context.Context) error {
	v, err := m.fn(m.in)
	m.out = v
	return err
}

func (m *mapper) write() (port.Data[int], bool, error) {
	return port.NewData(m.out), true, nil
}

// collector records every value it reads.
type collector[T any] struct {
	mu   sync.Mutex
	got  []T
	data []port.Data[T]
}

func (c *collector[T]) read(d port.Data[T]) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, d.Value())
	c.data = append(c.data, d)
	return nil
}

func (c *collector[T]) Update(context.Context) error { return nil }

func (c *collector[T]) values() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.got...)
}

func double(v int) (int, error) { return 2 * v, nil }

func increment(v int) (int, error) { return v + 1, nil }

// pipeline wires counter(limit) -> mapper(fn) -> collector.
type pipeline struct {
	src, mid, sink *Actor
	out            *collector[int]
}

func newPipeline(limit int, fn func(int) (int, error), link LinkConfig) *pipeline {
	c := &counter{}
	m := &mapper{fn: fn}
	col := &collector[int]{}

	p := &pipeline{
		src:  NewActor(c, ActorConfig{Name: "source", Limit: limit}),
		mid:  NewActor(m, ActorConfig{Name: "middle"}),
		sink: NewActor(col, ActorConfig{Name: "sink"}),
		out:  col,
	}
	Connect(AddOutput[count](p.src, c.write, OutputConfig{}), AddInput[count](p.mid, m.read, InputConfig{}), link)
	Connect(AddOutput[doubled](p.mid, m.write, OutputConfig{}), AddInput[doubled](p.sink, col.read, InputConfig{}), link)
	return p
}

func (p *pipeline) build(t *testing.T) *Model {
	t.Helper()
	m, err := NewBuilder(BuilderConfig{Name: "pipeline", Logger: testr.New(t)}).Add(p.src, p.mid, p.sink).Build()
	require.NoError(t, err)
	return m
}

func runWithin(t *testing.T, m *Model, d time.Duration) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	err := m.Run(ctx)
	require.False(t, errors.Is(err, context.DeadlineExceeded), "model did not terminate on its own")
	return err
}
