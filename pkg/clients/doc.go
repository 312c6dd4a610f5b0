// Package clients provides ready-made actor clients for common dataflow
// roles: generating values, transforming them, down-sampling, collecting,
// logging and recording them to a telemetry store.
//
// Every client embeds the *actorflow.Actor hosting it, so it can be handed
// straight to a Builder or a SubSystem, and exposes its typed ports as
// fields:
//
//	src := clients.NewSource[Position](func(i int) (float64, error) {
//		return float64(i), nil
//	}, clients.SourceConfig{Name: "position", Limit: 100})
//	sink := clients.NewCollector[Position](clients.CollectorConfig{Name: "sink"})
//	actorflow.Connect(src.Out, sink.In, actorflow.LinkConfig{})
package clients
