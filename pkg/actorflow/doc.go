// Package actorflow is a typed actor/dataflow runtime. Actors host one
// client each, exchange port.Data envelopes over channels, and run one
// goroutine apiece once a Builder has validated their wiring into a Model.
//
// Signals are declared as types embedding port.Tag:
//
//	type Celsius struct{ port.Tag[float64] }
//
//	func (Celsius) PortID() uint32 { return 1 }
//
// and wired with compile-time checked helpers:
//
//	src := actorflow.NewActor(sensor, actorflow.ActorConfig{Name: "sensor", Limit: 100})
//	out := actorflow.AddOutput[Celsius](src, sensor.WriteCelsius, actorflow.OutputConfig{})
//	log := actorflow.NewActor(logger, actorflow.ActorConfig{Name: "log"})
//	in := actorflow.AddInput[Celsius](log, logger.ReadCelsius, actorflow.InputConfig{})
//	actorflow.Connect(out, in, actorflow.LinkConfig{})
//
//	model, err := actorflow.NewBuilder(actorflow.BuilderConfig{Name: "demo"}).Add(src, log).Build()
//	if err != nil {
//		// err lists every structural violation
//	}
//	err = model.Run(ctx)
//
// Connecting a Celsius output to an input of any other signal does not
// compile. Termination flows forward: a stopping actor closes its output
// channels, and downstream actors stop once a required input is closed and
// drained.
package actorflow
