package clients

import (
	"context"

	"github.com/flowgraph/actorflow/pkg/actorflow"
	"github.com/flowgraph/actorflow/pkg/port"
)

// Map reads I on signal UI, applies fn and publishes the result on UO.
type Map[UI port.UID[I], UO port.UID[O], I, O any] struct {
	*actorflow.Actor
	In  *actorflow.Input[UI, I]
	Out *actorflow.Output[UO, O]

	fn  func(I) (O, error)
	in  I
	out O
}

// NewMap creates a transform actor. Only the two signals need naming; the
// payload types follow from fn:
//
//	clients.NewMap[Raw, Scaled](func(v float64) (float64, error) { return 2 * v, nil }, cfg)
func NewMap[UI port.UID[I], UO port.UID[O], I, O any](fn func(I) (O, error), cfg actorflow.ActorConfig) *Map[UI, UO, I, O] {
	m := &Map[UI, UO, I, O]{fn: fn}
	m.Actor = actorflow.NewActor(m, cfg)
	m.In = actorflow.AddInput[UI](m.Actor, m.read, actorflow.InputConfig{})
	m.Out = actorflow.AddOutput[UO](m.Actor, m.write, actorflow.OutputConfig{})
	return m
}

func (m *Map[UI, UO, I, O]) read(d port.Data[I]) error {
	m.in = d.Value()
	return nil
}

// Update applies the transform to the value read this cycle.
func (m *Map[UI, UO, I, O]) Update(context.Context) error {
	v, err := m.fn(m.in)
	if err != nil {
		return err
	}
	m.out = v
	return nil
}

func (m *Map[UI, UO, I, O]) write() (port.Data[O], bool, error) {
	return port.NewData(m.out), true, nil
}

// SamplerConfig holds configuration for a Sampler
type SamplerConfig struct {
	Name string `json:"name"`
	// Every forwards one value out of Every. Values below 2 forward all.
	Every int `json:"every"`
	// Offset is the index of the first forwarded value.
	Offset int `json:"offset"`
}

// Sampler down-samples signal UI onto UO. Between samples its output
// publishes nothing, so downstream actors run at the reduced rate.
type Sampler[UI port.UID[T], UO port.UID[T], T any] struct {
	*actorflow.Actor
	In  *actorflow.Input[UI, T]
	Out *actorflow.Output[UO, T]

	cfg   SamplerConfig
	seen  int
	value port.Data[T]
	emit  bool
}

// NewSampler creates a down-sampling actor.
func NewSampler[UI port.UID[T], UO port.UID[T], T any](cfg SamplerConfig) *Sampler[UI, UO, T] {
	if cfg.Every < 1 {
		cfg.Every = 1
	}
	s := &Sampler[UI, UO, T]{cfg: cfg}
	s.Actor = actorflow.NewActor(s, actorflow.ActorConfig{Name: cfg.Name})
	s.In = actorflow.AddInput[UI](s.Actor, s.read, actorflow.InputConfig{})
	s.Out = actorflow.AddOutput[UO](s.Actor, s.write, actorflow.OutputConfig{})
	return s
}

func (s *Sampler[UI, UO, T]) read(d port.Data[T]) error {
	s.value = d
	return nil
}

// Update decides whether the value read this cycle is forwarded.
func (s *Sampler[UI, UO, T]) Update(context.Context) error {
	i := s.seen - s.cfg.Offset
	s.seen++
	s.emit = i >= 0 && i%s.cfg.Every == 0
	return nil
}

// write forwards the received handle unchanged, so the payload is shared
// rather than copied.
func (s *Sampler[UI, UO, T]) write() (port.Data[T], bool, error) {
	if !s.emit {
		return port.Data[T]{}, false, nil
	}
	return s.value, true, nil
}
