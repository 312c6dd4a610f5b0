package actorflow

import (
	"context"
	"sync"
)

// inflight counts the values a subsystem's inner graph still has to
// process: values queued on forward links plus values an actor took this
// cycle and has not finished with. Feedback links are not counted, so a
// primed loop does not keep the graph busy. A nil *inflight counts nothing.
type inflight struct {
	mu   sync.Mutex
	n    int
	idle chan struct{}
}

func newInflight() *inflight {
	return &inflight{idle: make(chan struct{})}
}

func (f *inflight) add(d int) {
	if f == nil || d == 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n += d
	if f.n == 0 {
		close(f.idle)
		f.idle = make(chan struct{})
	}
}

func (f *inflight) pending() int {
	if f == nil {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n
}

// wait blocks until nothing is in flight, done is closed or ctx ends.
func (f *inflight) wait(ctx context.Context, done <-chan struct{}) error {
	if f == nil {
		return nil
	}
	for {
		f.mu.Lock()
		if f.n == 0 {
			f.mu.Unlock()
			return nil
		}
		idle := f.idle
		f.mu.Unlock()

		select {
		case <-idle:
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
