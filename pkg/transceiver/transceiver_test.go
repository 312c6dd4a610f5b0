package transceiver

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph/actorflow/pkg/actorflow"
	"github.com/flowgraph/actorflow/pkg/clients"
	"github.com/flowgraph/actorflow/pkg/port"
	"github.com/flowgraph/actorflow/pkg/serialization"
)

type trace struct{ port.Tag[port.Vec[float64]] }

func (trace) PortID() uint32 { return 21 }

type other struct{ port.Tag[port.Vec[float64]] }

func (other) PortID() uint32 { return 22 }

func build(t *testing.T, name string, nodes ...actorflow.Node) *actorflow.Model {
	t.Helper()
	m, err := actorflow.NewBuilder(actorflow.BuilderConfig{Name: name, Logger: testr.New(t)}).Add(nodes...).Build()
	require.NoError(t, err)
	return m
}

func awaitDone(t *testing.T, m *actorflow.Model) {
	t.Helper()
	select {
	case <-m.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("model %s did not terminate", m.Name())
	}
}

func TestLoopback(t *testing.T) {
	ctx := context.Background()
	rx, err := Listen[trace](ctx, "127.0.0.1:0", ReceiverConfig{Name: "rx", Buffer: 2, Logger: testr.New(t)})
	require.NoError(t, err)
	sink := clients.NewCollector[trace](clients.CollectorConfig{Name: "sink"})
	actorflow.Connect(rx.Out, sink.In, actorflow.LinkConfig{})
	downstream := build(t, "downstream", rx, sink)

	src := clients.NewSource[trace](func(i int) (port.Vec[float64], error) {
		return port.Vec[float64]{float64(i), -float64(i)}, nil
	}, clients.SourceConfig{Name: "src", Limit: 25})
	tx := NewTransmitter[trace](TransmitterConfig{Name: "tx", Addr: rx.Addr().String()})
	actorflow.Connect(src.Out, tx.In, actorflow.LinkConfig{})
	upstream := build(t, "upstream", src, tx)

	mon := actorflow.NewMonitor(ctx)
	mon.Go(rx.Serve)
	require.NoError(t, downstream.Start(mon.Context()))
	mon.Push(downstream)
	require.NoError(t, upstream.Start(mon.Context()))
	mon.Push(upstream)

	awaitDone(t, upstream)
	awaitDone(t, downstream)
	require.NoError(t, mon.Await())

	got := sink.Values()
	require.Len(t, got, 25)
	assert.Equal(t, port.Vec[float64]{24, -24}, got[24])
	assert.Equal(t, uint64(25), tx.Sent())
	assert.Equal(t, uint64(25), rx.Received())
}

func TestTransmitterSentWhileRunning(t *testing.T) {
	ctx := context.Background()
	rx, err := Listen[trace](ctx, "127.0.0.1:0", ReceiverConfig{Name: "rx"})
	require.NoError(t, err)
	sink := clients.NewCollector[trace](clients.CollectorConfig{Name: "sink"})
	actorflow.Connect(rx.Out, sink.In, actorflow.LinkConfig{})
	downstream := build(t, "downstream", rx, sink)

	src := clients.NewSource[trace](func(i int) (port.Vec[float64], error) {
		return port.Vec[float64]{float64(i)}, nil
	}, clients.SourceConfig{Name: "src", Limit: 200})
	tx := NewTransmitter[trace](TransmitterConfig{Name: "tx", Addr: rx.Addr().String()})
	actorflow.Connect(src.Out, tx.In, actorflow.LinkConfig{})
	upstream := build(t, "upstream", src, tx)

	mon := actorflow.NewMonitor(ctx)
	mon.Go(rx.Serve)
	require.NoError(t, downstream.Start(mon.Context()))
	mon.Push(downstream)
	require.NoError(t, upstream.Start(mon.Context()))
	mon.Push(upstream)

	// Sent is polled from another goroutine while frames go out.
	var last uint64
	for polling := true; polling; {
		select {
		case <-upstream.Done():
			polling = false
		case <-time.After(100 * time.Microsecond):
		}
		n := tx.Sent()
		require.GreaterOrEqual(t, n, last)
		last = n
	}

	awaitDone(t, downstream)
	require.NoError(t, mon.Await())
	assert.Equal(t, uint64(200), tx.Sent())
	assert.Len(t, sink.Values(), 200)
}

func TestReceiverRejectsForeignPort(t *testing.T) {
	ctx := context.Background()
	rx, err := Listen[trace](ctx, "127.0.0.1:0", ReceiverConfig{Name: "rx"})
	require.NoError(t, err)
	sink := clients.NewCollector[trace](clients.CollectorConfig{Name: "sink"})
	actorflow.Connect(rx.Out, sink.In, actorflow.LinkConfig{})
	m := build(t, "rx", rx, sink)

	mon := actorflow.NewMonitor(ctx)
	mon.Go(rx.Serve)
	require.NoError(t, m.Start(mon.Context()))
	mon.Push(m)

	conn, err := net.Dial("tcp", rx.Addr().String())
	require.NoError(t, err)
	s := serialization.DefaultSerializer()
	for i, id := range []uint32{port.KeyOf[other]().ID, port.KeyOf[trace]().ID} {
		payload, err := s.Serialize(port.Vec[float64]{float64(i)})
		require.NoError(t, err)
		require.NoError(t, serialization.WriteFrame(conn, serialization.Frame{PortID: id, Seq: uint64(i + 1), Payload: payload}))
	}
	require.NoError(t, conn.Close())

	awaitDone(t, m)
	require.NoError(t, mon.Await())
	assert.Equal(t, []port.Vec[float64]{{1}}, sink.Values())
	assert.Equal(t, int64(1), rx.Stats().ClientErrors)
}

func TestReceiverStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rx, err := Listen[trace](ctx, "127.0.0.1:0", ReceiverConfig{Name: "rx"})
	require.NoError(t, err)
	sink := clients.NewCollector[trace](clients.CollectorConfig{Name: "sink"})
	actorflow.Connect(rx.Out, sink.In, actorflow.LinkConfig{})
	m := build(t, "rx", rx, sink)

	mon := actorflow.NewMonitor(ctx)
	mon.Go(rx.Serve)
	require.NoError(t, m.Start(mon.Context()))

	cancel()
	awaitDone(t, m)
	assert.True(t, errors.Is(m.Wait(), context.Canceled))
	assert.NoError(t, mon.Await())
	assert.ErrorIs(t, rx.Serve(context.Background()), ErrAlreadyServed)
}

func TestTransmitterDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	src := clients.NewSource[trace](func(int) (port.Vec[float64], error) { return nil, nil }, clients.SourceConfig{Name: "src", Limit: 3})
	tx := NewTransmitter[trace](TransmitterConfig{Name: "tx", Addr: addr, DialTimeout: time.Second})
	actorflow.Connect(src.Out, tx.In, actorflow.LinkConfig{})
	m := build(t, "tx", src, tx)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = m.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial "+addr)
}

func TestTransmitterInvalidAddr(t *testing.T) {
	src := clients.NewSource[trace](func(int) (port.Vec[float64], error) { return nil, nil }, clients.SourceConfig{Name: "src", Limit: 1})
	tx := NewTransmitter[trace](TransmitterConfig{Name: "tx", Addr: "not an address"})
	actorflow.Connect(src.Out, tx.In, actorflow.LinkConfig{})
	m := build(t, "tx", src, tx)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.ErrorIs(t, m.Run(ctx), actorflow.ErrInvalidConfig)
}
