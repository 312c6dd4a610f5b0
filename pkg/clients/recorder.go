package clients

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flowgraph/actorflow/internal/core/telemetry"
	"github.com/flowgraph/actorflow/pkg/actorflow"
	"github.com/flowgraph/actorflow/pkg/port"
	"github.com/flowgraph/actorflow/pkg/serialization"
	"github.com/flowgraph/actorflow/pkg/validation"
)

// RecorderConfig holds configuration for a Recorder
type RecorderConfig struct {
	Name string `json:"name"`
	// RunID groups the samples of one run. Defaults to a random UUID.
	RunID string `json:"run_id"`
	// BatchSize buffers that many samples per store append. Defaults to 1.
	BatchSize  int                       `json:"batch_size" validate:"gte=0,lte=10000"`
	Store      telemetry.Store           `json:"-"`
	Serializer *serialization.Serializer `json:"-"`
}

// Recorder persists every value of signal U as a telemetry sample.
// PRINCIPLES:
// - DIP: depends on telemetry.Store, not on a storage backend
// - Buffered samples are flushed when the actor stops
type Recorder[U port.UID[T], T any] struct {
	*actorflow.Actor
	In *actorflow.Input[U, T]

	cfg     RecorderConfig
	key     port.Key
	seq     uint64
	value   port.Data[T]
	pending []*telemetry.Sample
	ctx     context.Context
}

// NewRecorder creates a recording sink.
func NewRecorder[U port.UID[T], T any](cfg RecorderConfig) *Recorder[U, T] {
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 1
	}
	if cfg.Serializer == nil {
		cfg.Serializer = serialization.DefaultSerializer()
	}
	r := &Recorder[U, T]{cfg: cfg, key: port.KeyOf[U]()}
	r.Actor = actorflow.NewActor(r, actorflow.ActorConfig{Name: cfg.Name})
	r.In = actorflow.AddInput[U](r.Actor, r.read, actorflow.InputConfig{})
	return r
}

// RunID returns the run the samples are recorded under.
func (r *Recorder[U, T]) RunID() string { return r.cfg.RunID }

// Start checks the configuration before the first cycle.
func (r *Recorder[U, T]) Start(ctx context.Context) error {
	if r.cfg.Store == nil {
		return fmt.Errorf("%w: recorder %s has no store", actorflow.ErrInvalidConfig, r.Name())
	}
	if err := validation.Struct(r.cfg); err != nil {
		return fmt.Errorf("%w: recorder %s: %v", actorflow.ErrInvalidConfig, r.Name(), err)
	}
	r.ctx = ctx
	return nil
}

func (r *Recorder[U, T]) read(d port.Data[T]) error {
	r.value = d
	return nil
}

// Update encodes the value read this cycle and appends it once the batch
// is full. A closed store stops the actor.
func (r *Recorder[U, T]) Update(ctx context.Context) error {
	payload, err := r.cfg.Serializer.Serialize(r.value.Value())
	if err != nil {
		return fmt.Errorf("encode %s: %w", r.key, err)
	}
	r.seq++
	r.pending = append(r.pending, &telemetry.Sample{
		RunID:     r.cfg.RunID,
		Actor:     r.Name(),
		Signal:    r.key.Name,
		PortID:    r.key.ID,
		Seq:       r.seq,
		Encoding:  r.cfg.Serializer.Name(),
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
	if len(r.pending) < r.cfg.BatchSize {
		return nil
	}
	return r.flush(ctx)
}

// Stop flushes buffered samples.
func (r *Recorder[U, T]) Stop() error {
	ctx := context.Background()
	if r.ctx != nil {
		ctx = context.WithoutCancel(r.ctx)
	}
	return r.flush(ctx)
}

func (r *Recorder[U, T]) flush(ctx context.Context) error {
	if len(r.pending) == 0 || r.cfg.Store == nil {
		return nil
	}
	batch := r.pending
	r.pending = nil
	if err := r.cfg.Store.Append(ctx, batch...); err != nil {
		if errors.Is(err, telemetry.ErrStoreClosed) {
			return actorflow.Unrecoverable(err)
		}
		return fmt.Errorf("append %d samples: %w", len(batch), err)
	}
	return nil
}

// Decode reads the payload of a sample recorded by a Recorder of signal U.
func Decode[T any](s *serialization.Serializer, sample *telemetry.Sample) (T, error) {
	var v T
	if s == nil {
		s = serialization.DefaultSerializer()
	}
	if sample.Encoding != "" && sample.Encoding != s.Name() {
		return v, fmt.Errorf("%w: sample encoded as %s, decoder is %s",
			serialization.ErrUnknownFormat, sample.Encoding, s.Name())
	}
	err := s.Deserialize(sample.Payload, &v)
	return v, err
}
