package transceiver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/go-logr/logr"
	"go.uber.org/atomic"

	"github.com/flowgraph/actorflow/internal/core/channel"
	"github.com/flowgraph/actorflow/internal/infrastructure/metrics"
	"github.com/flowgraph/actorflow/pkg/actorflow"
	"github.com/flowgraph/actorflow/pkg/port"
	"github.com/flowgraph/actorflow/pkg/serialization"
)

// ReceiverConfig holds configuration for a Receiver
type ReceiverConfig struct {
	Name string `json:"name"`
	// Buffer bounds the frames queued between the connection and the actor.
	// Defaults to 64.
	Buffer     int                       `json:"buffer" validate:"gte=0"`
	Serializer *serialization.Serializer `json:"-"`
	Logger     logr.Logger               `json:"-"`
}

// Receiver publishes on signal U the values sent by one remote Transmitter.
// PRINCIPLES:
// - Serve owns the network side and runs under an actorflow.Monitor
// - The actor side only ever sees decoded values
// - A frame for another port is counted as a client error and skipped
type Receiver[U port.UID[T], T any] struct {
	*actorflow.Actor
	Out *actorflow.Output[U, T]

	cfg      ReceiverConfig
	key      port.Key
	ln       net.Listener
	frames   *channel.Channel[serialization.Frame]
	log      logr.Logger
	serving  atomic.Bool
	stopping atomic.Bool
	connMu   sync.Mutex
	conn     net.Conn

	value    T
	received atomic.Uint64
}

// Listen opens a TCP listener on addr and creates a receiver on it.
// Use "127.0.0.1:0" for an ephemeral port and Addr to learn it.
func Listen[U port.UID[T], T any](ctx context.Context, addr string, cfg ReceiverConfig) (*Receiver[U, T], error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return NewReceiver[U](ln, cfg), nil
}

// NewReceiver creates a receiving source on an open listener.
func NewReceiver[U port.UID[T], T any](ln net.Listener, cfg ReceiverConfig) *Receiver[U, T] {
	if cfg.Buffer == 0 {
		cfg.Buffer = 64
	}
	if cfg.Serializer == nil {
		cfg.Serializer = serialization.DefaultSerializer()
	}
	log := cfg.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	r := &Receiver[U, T]{
		cfg:    cfg,
		key:    port.KeyOf[U](),
		ln:     ln,
		frames: channel.New[serialization.Frame](channel.Config{Capacity: cfg.Buffer}),
	}
	r.Actor = actorflow.NewActor(r, actorflow.ActorConfig{Name: cfg.Name, Limit: actorflow.Unlimited})
	r.log = log.WithValues("receiver", r.Name(), "signal", r.key.String())
	r.Out = actorflow.AddOutput[U](r.Actor, r.write, actorflow.OutputConfig{})
	return r
}

// Addr returns the listener address.
func (r *Receiver[U, T]) Addr() net.Addr { return r.ln.Addr() }

// Serve accepts one transmitter and queues its frames until the connection
// ends, ctx is done or the actor stops. Run it with Monitor.Go.
func (r *Receiver[U, T]) Serve(ctx context.Context) error {
	if !r.serving.CompareAndSwap(false, true) {
		return ErrAlreadyServed
	}
	defer r.frames.Close()
	defer r.ln.Close()

	stop := context.AfterFunc(ctx, r.interrupt)
	defer stop()

	conn, err := r.ln.Accept()
	if err != nil {
		return r.settle(ctx, fmt.Errorf("accept: %w", err))
	}
	r.connMu.Lock()
	r.conn = conn
	r.connMu.Unlock()
	defer conn.Close()
	r.log.V(1).Info("transmitter connected", "remote", conn.RemoteAddr().String())

	br := bufio.NewReader(conn)
	for {
		f, err := serialization.ReadFrame(br)
		if errors.Is(err, io.EOF) {
			r.log.V(1).Info("transmitter disconnected")
			return nil
		}
		if err != nil {
			return r.settle(ctx, fmt.Errorf("read frame: %w", err))
		}
		metrics.IncTransceiverFrames("received")
		if err := r.frames.Send(ctx, f); err != nil {
			if errors.Is(err, channel.ErrReceiverGone) {
				return nil
			}
			return err
		}
	}
}

// interrupt unblocks Serve by closing the listener and the connection.
func (r *Receiver[U, T]) interrupt() {
	r.ln.Close()
	r.connMu.Lock()
	defer r.connMu.Unlock()
	if r.conn != nil {
		r.conn.Close()
	}
}

// settle turns the error caused by an interrupt into the interrupt's reason.
func (r *Receiver[U, T]) settle(ctx context.Context, err error) error {
	if r.stopping.Load() {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Update waits for the next frame and decodes it. The end of the stream
// stops the actor cleanly.
func (r *Receiver[U, T]) Update(ctx context.Context) error {
	f, err := r.frames.Receive(ctx)
	if errors.Is(err, channel.ErrChannelClosed) {
		return actorflow.ErrDone
	}
	if err != nil {
		return actorflow.Unrecoverable(err)
	}
	if f.PortID != r.key.ID {
		return fmt.Errorf("%w: got port %d, want %s", ErrPortMismatch, f.PortID, r.key)
	}
	var v T
	if err := r.cfg.Serializer.Deserialize(f.Payload, &v); err != nil {
		return fmt.Errorf("decode frame %d: %w", f.Seq, err)
	}
	r.value = v
	r.received.Inc()
	return nil
}

func (r *Receiver[U, T]) write() (port.Data[T], bool, error) {
	return port.NewData(r.value), true, nil
}

// Stop releases the network side.
func (r *Receiver[U, T]) Stop() error {
	r.stopping.Store(true)
	r.frames.Drop()
	r.interrupt()
	return nil
}

// Received returns the number of values decoded.
func (r *Receiver[U, T]) Received() uint64 { return r.received.Load() }
