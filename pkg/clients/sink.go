package clients

import (
	"context"
	"sync"

	"github.com/go-logr/logr"

	"github.com/flowgraph/actorflow/pkg/actorflow"
	"github.com/flowgraph/actorflow/pkg/port"
)

// CollectorConfig holds configuration for a Collector
type CollectorConfig struct {
	Name string `json:"name"`
	// Max stops the collector after that many values. Zero collects until
	// the producer closes.
	Max int `json:"max"`
}

// Collector gathers every value of signal U. It is safe to inspect while
// the model runs.
type Collector[U port.UID[T], T any] struct {
	*actorflow.Actor
	In *actorflow.Input[U, T]

	mu     sync.Mutex
	values []T
}

// NewCollector creates a collecting sink.
func NewCollector[U port.UID[T], T any](cfg CollectorConfig) *Collector[U, T] {
	c := &Collector[U, T]{}
	c.Actor = actorflow.NewActor(c, actorflow.ActorConfig{Name: cfg.Name, Limit: cfg.Max})
	c.In = actorflow.AddInput[U](c.Actor, c.read, actorflow.InputConfig{})
	return c
}

func (c *Collector[U, T]) read(d port.Data[T]) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = append(c.values, d.Value())
	return nil
}

// Update is a no-op; values are gathered as they are read.
func (c *Collector[U, T]) Update(context.Context) error { return nil }

// Values returns a snapshot of the collected values.
func (c *Collector[U, T]) Values() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.values...)
}

// Len returns the number of collected values.
func (c *Collector[U, T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.values)
}

// LogSinkConfig holds configuration for a LogSink
type LogSinkConfig struct {
	Name   string      `json:"name"`
	Logger logr.Logger `json:"-"`
	// Verbosity is the logr V-level of each value line.
	Verbosity int `json:"verbosity" validate:"gte=0"`
}

// LogSink logs every value of signal U.
type LogSink[U port.UID[T], T any] struct {
	*actorflow.Actor
	In *actorflow.Input[U, T]

	log   logr.Logger
	key   port.Key
	seq   uint64
	value T
}

// NewLogSink creates a logging sink.
func NewLogSink[U port.UID[T], T any](cfg LogSinkConfig) *LogSink[U, T] {
	log := cfg.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	s := &LogSink[U, T]{key: port.KeyOf[U]()}
	s.Actor = actorflow.NewActor(s, actorflow.ActorConfig{Name: cfg.Name})
	s.log = log.WithName(s.Actor.Name()).V(cfg.Verbosity)
	s.In = actorflow.AddInput[U](s.Actor, s.read, actorflow.InputConfig{})
	return s
}

func (s *LogSink[U, T]) read(d port.Data[T]) error {
	s.value = d.Value()
	return nil
}

// Update logs the value read this cycle.
func (s *LogSink[U, T]) Update(context.Context) error {
	s.seq++
	s.log.Info("value", "signal", s.key.String(), "seq", s.seq, "value", s.value)
	return nil
}
