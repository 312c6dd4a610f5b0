package main

import (
	"context"
	"fmt"
	"math"

	"github.com/go-logr/logr"

	"github.com/flowgraph/actorflow/internal/config"
	"github.com/flowgraph/actorflow/internal/core/telemetry"
	"github.com/flowgraph/actorflow/pkg/actorflow"
	"github.com/flowgraph/actorflow/pkg/clients"
	"github.com/flowgraph/actorflow/pkg/port"
	"github.com/flowgraph/actorflow/pkg/serialization"
	"github.com/flowgraph/actorflow/pkg/transceiver"
)

// Signals of the demo pipeline.
type (
	// Wave is the raw multi-channel waveform.
	Wave struct{ port.Tag[port.Vec[float64]] }
	// Sampled is the down-sampled waveform.
	Sampled struct{ port.Tag[port.Vec[float64]] }
	// Scaled is the waveform after gain.
	Scaled struct{ port.Tag[port.Vec[float64]] }
	// Amplified is the clipped output of the gain stage.
	Amplified struct{ port.Tag[port.Vec[float64]] }
)

func (Wave) PortID() uint32      { return 1 }
func (Sampled) PortID() uint32   { return 2 }
func (Scaled) PortID() uint32    { return 3 }
func (Amplified) PortID() uint32 { return 4 }

// pipeline is the assembled demo: one model, or an upstream and a
// downstream model joined by a loopback transceiver.
type pipeline struct {
	models   []*actorflow.Model
	serve    []func(ctx context.Context) error
	release  []func()
	recorder *clients.Recorder[Amplified, port.Vec[float64]]
	sink     *clients.Collector[Amplified, port.Vec[float64]]
}

// wave returns sample i of a width-channel sine wave, one phase per channel.
func wave(width int) func(i int) (port.Vec[float64], error) {
	return func(i int) (port.Vec[float64], error) {
		v := make(port.Vec[float64], width)
		for k := range v {
			v[k] = math.Sin(0.1*float64(i) + 2*math.Pi*float64(k)/float64(width))
		}
		return v, nil
	}
}

// gainStage builds the subsystem scale -> clip.
func gainStage(cfg config.RunConfig, log logr.Logger) (*actorflow.SubSystem, error) {
	return actorflow.NewSubSystem(actorflow.SubSystemConfig{Name: "gain", Logger: log}, func(s *actorflow.SubSystem) error {
		scale := clients.NewMap[Sampled, Scaled](func(v port.Vec[float64]) (port.Vec[float64], error) {
			for i := range v {
				v[i] *= cfg.Gain
			}
			return v, nil
		}, actorflow.ActorConfig{Name: "scale"})
		clip := clients.NewMap[Scaled, Amplified](func(v port.Vec[float64]) (port.Vec[float64], error) {
			if cfg.Clip > 0 {
				for i := range v {
					v[i] = math.Max(-cfg.Clip, math.Min(cfg.Clip, v[i]))
				}
			}
			return v, nil
		}, actorflow.ActorConfig{Name: "clip"})
		actorflow.Connect(scale.Out, clip.In, actorflow.LinkConfig{})

		s.Add(scale, clip)
		actorflow.ExposeInput(s, scale.In)
		actorflow.ExposeOutput(s, clip.Out, actorflow.ExposeConfig{})
		return nil
	})
}

// newPipeline assembles source -> sampler -> gain -> (recorder, log sink,
// collector). With the transceiver enabled the sampled signal crosses a
// loopback TCP link between two models.
func newPipeline(ctx context.Context, cfg *config.Config, log logr.Logger, store telemetry.Store) (*pipeline, error) {
	p := &pipeline{}
	run := cfg.Run

	src := clients.NewSource[Wave](wave(run.Width), clients.SourceConfig{Name: "source", Limit: run.Samples})
	sampler := clients.NewSampler[Wave, Sampled](clients.SamplerConfig{Name: "sampler", Every: run.Every})
	actorflow.Connect(src.Out, sampler.In, actorflow.LinkConfig{})

	gain, err := gainStage(run, log)
	if err != nil {
		return nil, err
	}
	gainIn, _ := actorflow.InputOf[Sampled](gain)
	gainOut, _ := actorflow.OutputOf[Amplified](gain)

	p.sink = clients.NewCollector[Amplified](clients.CollectorConfig{Name: "collector"})
	logSink := clients.NewLogSink[Amplified](clients.LogSinkConfig{Name: "trace", Logger: log, Verbosity: 2})
	actorflow.Connect(gainOut, p.sink.In, actorflow.LinkConfig{})
	actorflow.Connect(gainOut, logSink.In, actorflow.LinkConfig{})
	downstream := []actorflow.Node{gain, p.sink, logSink}

	if store != nil {
		codec, err := serialization.CodecByName(cfg.Store.Codec)
		if err != nil {
			return nil, err
		}
		compression, err := serialization.ParseCompression(cfg.Store.Compression)
		if err != nil {
			return nil, err
		}
		p.recorder = clients.NewRecorder[Amplified](clients.RecorderConfig{
			Name:       "recorder",
			BatchSize:  cfg.Store.BatchSize,
			Store:      store,
			Serializer: serialization.NewSerializer(serialization.Config{Codec: codec, Compression: compression}),
		})
		actorflow.Connect(gainOut, p.recorder.In, actorflow.LinkConfig{})
		downstream = append(downstream, p.recorder)
	}

	upstream := []actorflow.Node{src, sampler}
	if !cfg.Transceiver.Enabled {
		actorflow.Connect(sampler.Out, gainIn, actorflow.LinkConfig{})
		m, err := buildModel(run.Name, log, append(upstream, downstream...)...)
		if err != nil {
			return nil, err
		}
		p.models = append(p.models, m)
		return p, nil
	}

	rx, err := transceiver.Listen[Sampled](ctx, cfg.Transceiver.Addr, transceiver.ReceiverConfig{Name: "receiver", Logger: log})
	if err != nil {
		return nil, err
	}
	p.release = append(p.release, func() { rx.Stop() })
	tx := transceiver.NewTransmitter[Sampled](transceiver.TransmitterConfig{Name: "transmitter", Addr: rx.Addr().String()})
	actorflow.Connect(sampler.Out, tx.In, actorflow.LinkConfig{})
	actorflow.Connect(rx.Out, gainIn, actorflow.LinkConfig{})

	down, err := buildModel(run.Name+"-downstream", log, append([]actorflow.Node{rx}, downstream...)...)
	if err != nil {
		p.close()
		return nil, err
	}
	up, err := buildModel(run.Name+"-upstream", log, append(upstream, tx)...)
	if err != nil {
		p.close()
		return nil, err
	}
	p.models = append(p.models, down, up)
	p.serve = append(p.serve, rx.Serve)
	return p, nil
}

func buildModel(name string, log logr.Logger, nodes ...actorflow.Node) (*actorflow.Model, error) {
	m, err := actorflow.NewBuilder(actorflow.BuilderConfig{Name: name, Logger: log}).Add(nodes...).Build()
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", name, err)
	}
	return m, nil
}

// close releases resources held by a pipeline that will not run.
func (p *pipeline) close() {
	for _, release := range p.release {
		release()
	}
}
