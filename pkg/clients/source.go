package clients

import (
	"context"

	"github.com/flowgraph/actorflow/pkg/actorflow"
	"github.com/flowgraph/actorflow/pkg/port"
)

// SourceConfig holds configuration for a Source
type SourceConfig struct {
	Name string `json:"name"`
	// Limit is the number of values to emit. Zero runs until the generator
	// returns actorflow.ErrDone or the model is cancelled.
	Limit int `json:"limit"`
}

// Source emits gen(0), gen(1), ... on signal U, one value per cycle.
type Source[U port.UID[T], T any] struct {
	*actorflow.Actor
	Out *actorflow.Output[U, T]

	gen   func(i int) (T, error)
	index int
	value T
}

// NewSource creates a source actor driven by gen.
func NewSource[U port.UID[T], T any](gen func(i int) (T, error), cfg SourceConfig) *Source[U, T] {
	limit := cfg.Limit
	if limit == 0 {
		limit = actorflow.Unlimited
	}
	s := &Source[U, T]{gen: gen}
	s.Actor = actorflow.NewActor(s, actorflow.ActorConfig{Name: cfg.Name, Limit: limit})
	s.Out = actorflow.AddOutput[U](s.Actor, s.write, actorflow.OutputConfig{})
	return s
}

// Update computes the next value.
func (s *Source[U, T]) Update(context.Context) error {
	v, err := s.gen(s.index)
	s.index++
	if err != nil {
		return err
	}
	s.value = v
	return nil
}

func (s *Source[U, T]) write() (port.Data[T], bool, error) {
	return port.NewData(s.value), true, nil
}
