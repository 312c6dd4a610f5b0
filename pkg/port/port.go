// Package port defines the compile-time signal tags that name every value
// flowing through an actor graph, and the shared data envelope that carries
// those values between a producer and its consumers.
//
// A signal is declared once as its own Go type embedding Tag with the
// signal's payload type:
//
//	type Temperature struct{ port.Tag[float64] }
//
//	func (Temperature) PortID() uint32 { return 12 }
//
// Temperature now satisfies UID[float64] and nothing else. Wiring helpers in
// package actorflow are generic over (U UID[T], T), so connecting a
// Temperature output to a Pressure input, or declaring a Temperature port with
// a payload other than float64, does not compile.
//
// Data shares one payload between every consumer of an output and copies
// only payloads implementing Cloner. A payload that aliases memory (a slice,
// a map, a struct holding either) must therefore implement Cloner, or be a
// Vec, or a consumer mutating it corrupts what its peers read. Outputs whose
// payload is a bare slice or map are rejected when the graph is built; see
// Isolated.
package port

import (
	"reflect"
	"strconv"
)

// Tag binds a signal type to its payload type T. Embed it, by value, in the
// signal type. Embedding two tags makes the marker method ambiguous, so the
// signal satisfies no UID at all.
type Tag[T any] struct{}

func (Tag[T]) payload(T) {}

// UID is satisfied only by signal types embedding Tag[T].
// PortID is the numeric identifier used for cross-process addressing; it
// plays no role in in-process wiring, where the Go type is the identity.
type UID[T any] interface {
	payload(T)
	PortID() uint32
}

// Identified is the untyped view of a signal, enough to build its Key.
type Identified interface {
	PortID() uint32
}

// Key is the runtime description of a signal, used by diagnostics,
// diagrams and the network transceiver.
type Key struct {
	Name string `json:"name"`
	ID   uint32 `json:"id"`
}

// String renders the key as name#id.
func (k Key) String() string {
	return k.Name + "#" + strconv.FormatUint(uint64(k.ID), 10)
}

// KeyOf returns the Key of signal U.
func KeyOf[U Identified]() Key {
	var u U
	return Key{Name: NameOf[U](), ID: u.PortID()}
}

// NameOf returns the readable name of signal U.
func NameOf[U any]() string {
	t := TypeOf[U]()
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

// TypeOf returns the reflect.Type of signal U. Actors index their ports by it.
func TypeOf[U any]() reflect.Type {
	return reflect.TypeOf((*U)(nil)).Elem()
}
