// Package transceiver carries one signal between two processes. A
// Transmitter is a sink actor that writes every value it reads to a TCP
// connection; a Receiver is a source actor that publishes the values
// arriving on its listener. Values travel as length-prefixed frames
// addressed by the signal's numeric port id.
package transceiver

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/atomic"

	"github.com/flowgraph/actorflow/internal/infrastructure/metrics"
	"github.com/flowgraph/actorflow/pkg/actorflow"
	"github.com/flowgraph/actorflow/pkg/port"
	"github.com/flowgraph/actorflow/pkg/serialization"
	"github.com/flowgraph/actorflow/pkg/validation"
)

// TransmitterConfig holds configuration for a Transmitter
type TransmitterConfig struct {
	Name        string                    `json:"name"`
	Addr        string                    `json:"addr" validate:"required,hostname_port"`
	DialTimeout time.Duration             `json:"dial_timeout"`
	Serializer  *serialization.Serializer `json:"-"`
}

// Transmitter sends every value of signal U to a remote Receiver.
type Transmitter[U port.UID[T], T any] struct {
	*actorflow.Actor
	In *actorflow.Input[U, T]

	cfg   TransmitterConfig
	key   port.Key
	conn  net.Conn
	w     *bufio.Writer
	seq   atomic.Uint64
	value port.Data[T]
}

// NewTransmitter creates a transmitting sink. It dials when its model
// starts.
func NewTransmitter[U port.UID[T], T any](cfg TransmitterConfig) *Transmitter[U, T] {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.Serializer == nil {
		cfg.Serializer = serialization.DefaultSerializer()
	}
	t := &Transmitter[U, T]{cfg: cfg, key: port.KeyOf[U]()}
	t.Actor = actorflow.NewActor(t, actorflow.ActorConfig{Name: cfg.Name})
	t.In = actorflow.AddInput[U](t.Actor, t.read, actorflow.InputConfig{})
	return t
}

// Start dials the receiver.
func (t *Transmitter[U, T]) Start(ctx context.Context) error {
	if err := validation.Struct(t.cfg); err != nil {
		return fmt.Errorf("%w: transmitter %s: %v", actorflow.ErrInvalidConfig, t.Name(), err)
	}
	d := net.Dialer{Timeout: t.cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", t.cfg.Addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", t.cfg.Addr, err)
	}
	t.conn = conn
	t.w = bufio.NewWriter(conn)
	return nil
}

func (t *Transmitter[U, T]) read(d port.Data[T]) error {
	t.value = d
	return nil
}

// Update sends the value read this cycle. A broken connection stops the
// actor.
func (t *Transmitter[U, T]) Update(context.Context) error {
	if t.conn == nil {
		return actorflow.Unrecoverable(ErrNotConnected)
	}
	payload, err := t.cfg.Serializer.Serialize(t.value.Value())
	if err != nil {
		return fmt.Errorf("encode %s: %w", t.key, err)
	}
	seq := t.seq.Inc()
	if err := serialization.WriteFrame(t.w, serialization.Frame{PortID: t.key.ID, Seq: seq, Payload: payload}); err != nil {
		return actorflow.Unrecoverable(fmt.Errorf("send %s: %w", t.key, err))
	}
	if err := t.w.Flush(); err != nil {
		return actorflow.Unrecoverable(fmt.Errorf("send %s: %w", t.key, err))
	}
	metrics.IncTransceiverFrames("sent")
	return nil
}

// Stop closes the connection, which ends the remote receiver's stream.
func (t *Transmitter[U, T]) Stop() error {
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}

// Sent returns the number of frames sent. It is safe to call while the
// model runs.
func (t *Transmitter[U, T]) Sent() uint64 { return t.seq.Load() }
