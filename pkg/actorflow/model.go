package actorflow

import (
	"context"
	"sync"

	"github.com/go-logr/logr"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/flowgraph/actorflow/internal/core/graph"
)

// Re-export graph description types for callers inspecting a model
type (
	Graph     = graph.Graph
	GraphNode = graph.Node
	GraphEdge = graph.Edge
	EdgeType  = graph.EdgeType
)

// Model is a validated graph ready to run.
// PRINCIPLES:
// - One goroutine per actor, no shared mutable state between them
// - No sibling cancellation: a failing actor stops, and its neighbours stop
//   when its channels close
type Model struct {
	graph   *graph.Graph
	actors  []*Actor
	log     logr.Logger
	events  *streamer
	started atomic.Bool
	wg      sync.WaitGroup
	done    chan struct{}
	flow    *inflight
}

// ActorReport is the outcome of one actor after a run.
type ActorReport struct {
	Name         string `json:"name"`
	ID           string `json:"id"`
	State        string `json:"state"`
	Cycles       int64  `json:"cycles"`
	ClientErrors int64  `json:"client_errors"`
	Err          error  `json:"-"`
}

func newModel(g *graph.Graph, cfg BuilderConfig) *Model {
	return &Model{
		graph:  g,
		log:    cfg.Logger.WithValues("model", cfg.Name),
		events: newStreamer(cfg.Name, cfg.Handlers),
		done:   make(chan struct{}),
	}
}

// ID returns the unique identifier of the model.
func (m *Model) ID() string { return m.graph.ID }

// Name returns the model name.
func (m *Model) Name() string { return m.graph.Name }

// Graph returns the structural description of the model.
func (m *Model) Graph() *Graph { return m.graph }

// Actors returns the actors of the model in the order they were added.
func (m *Model) Actors() []*Actor { return append([]*Actor(nil), m.actors...) }

// Start spawns one goroutine per actor and returns immediately. ctx is
// observed between cycles and while an actor is suspended on a channel.
func (m *Model) Start(ctx context.Context) error {
	if !m.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	m.log.Info("model starting", "actors", len(m.actors))
	m.events.emit(Event{Type: EventModelStart})

	for _, a := range m.actors {
		m.wg.Add(1)
		go func(a *Actor) {
			defer m.wg.Done()
			_ = a.run(ctx)
		}(a)
	}
	go func() {
		m.wg.Wait()
		err := m.err()
		if err != nil {
			m.log.Error(err, "model stopped with errors")
		} else {
			m.log.Info("model stopped")
		}
		m.events.emit(Event{Type: EventModelStop, Err: err})
		close(m.done)
	}()
	return nil
}

// Wait blocks until every actor has stopped and returns their aggregate
// error, nil when all stopped cleanly.
func (m *Model) Wait() error {
	if !m.started.Load() {
		return ErrNotStarted
	}
	<-m.done
	return m.err()
}

// Run starts the model and waits for it.
func (m *Model) Run(ctx context.Context) error {
	if err := m.Start(ctx); err != nil {
		return err
	}
	return m.Wait()
}

// Done is closed once every actor has stopped.
func (m *Model) Done() <-chan struct{} { return m.done }

// Report lists the outcome of every actor.
func (m *Model) Report() []ActorReport {
	out := make([]ActorReport, 0, len(m.actors))
	for _, a := range m.actors {
		s := a.Stats()
		out = append(out, ActorReport{
			Name:         a.Name(),
			ID:           a.ID(),
			State:        a.State().String(),
			Cycles:       s.Cycles,
			ClientErrors: s.ClientErrors,
			Err:          a.Err(),
		})
	}
	return out
}

func (m *Model) err() error {
	var errs error
	for _, a := range m.actors {
		errs = multierr.Append(errs, a.Err())
	}
	return errs
}
