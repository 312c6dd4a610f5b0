// Package memory provides an in-memory telemetry store.
package memory

import (
	"context"
	"sync"

	"github.com/flowgraph/actorflow/internal/core/telemetry"
)

// Config holds configuration for Store
type Config struct {
	// MaxSamples bounds the number of retained samples. Zero means unlimited.
	MaxSamples int `validate:"gte=0"`
	// Evict drops the oldest samples when full instead of rejecting appends.
	Evict bool
}

// Store implements telemetry.Store with thread-safe in-memory storage
// PRINCIPLES:
// - KISS: Simple append-only slice with proper concurrency
// - SRP: Single responsibility for in-memory sample storage
// - DIP: Implements telemetry.Store interface
type Store struct {
	mu      sync.RWMutex
	samples []*telemetry.Sample
	config  Config
	closed  bool
	evicted int
}

var _ telemetry.Store = (*Store)(nil)

// NewStore creates a new in-memory store
func NewStore(config Config) *Store {
	if config.MaxSamples < 0 {
		config.MaxSamples = 0
	}
	return &Store{config: config}
}

// Append stores copies of samples. Either every sample is stored or none is.
func (s *Store) Append(_ context.Context, samples ...*telemetry.Sample) error {
	for _, sample := range samples {
		if err := sample.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return telemetry.ErrStoreClosed
	}
	if limit := s.config.MaxSamples; limit > 0 {
		over := len(s.samples) + len(samples) - limit
		if over > 0 {
			if !s.config.Evict || len(samples) > limit {
				return telemetry.ErrStoreFull
			}
			for i := 0; i < over; i++ {
				s.samples[i] = nil
			}
			s.samples = s.samples[over:]
			s.evicted += over
		}
	}
	for _, sample := range samples {
		s.samples = append(s.samples, clone(sample))
	}
	return nil
}

// List returns matching samples in insertion order
func (s *Store) List(_ context.Context, filter telemetry.Filter) ([]*telemetry.Sample, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, telemetry.ErrStoreClosed
	}

	var out []*telemetry.Sample
	skipped := 0
	for _, sample := range s.samples {
		if !filter.Match(sample) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, clone(sample))
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// Delete removes every sample of runID
func (s *Store) Delete(_ context.Context, runID string) (int, error) {
	if runID == "" {
		return 0, telemetry.ErrInvalidRunID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, telemetry.ErrStoreClosed
	}

	kept := s.samples[:0]
	removed := 0
	for _, sample := range s.samples {
		if sample.RunID == runID {
			removed++
			continue
		}
		kept = append(kept, sample)
	}
	for i := len(kept); i < len(s.samples); i++ {
		s.samples[i] = nil
	}
	s.samples = kept
	if removed == 0 {
		return 0, telemetry.ErrRunNotFound
	}
	return removed, nil
}

// Close releases the samples. Further calls fail with ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.samples = nil
	return nil
}

// Stats returns storage statistics
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{Samples: len(s.samples), Evicted: s.evicted, MaxSamples: s.config.MaxSamples}
}

// Stats provides store statistics
type Stats struct {
	Samples    int `json:"samples"`
	Evicted    int `json:"evicted"`
	MaxSamples int `json:"max_samples"`
}

func clone(s *telemetry.Sample) *telemetry.Sample {
	c := *s
	if s.Payload != nil {
		c.Payload = append([]byte(nil), s.Payload...)
	}
	return &c
}
