package port

import "reflect"

// Cloner is implemented by payload types whose values alias memory (slices,
// maps). Data clones such payloads when they are published and again every
// time a consumer reads them.
type Cloner[T any] interface {
	Clone() T
}

// Data is the envelope for one published value. It is a handle: copies of a
// Data share the same payload, which is never mutated after NewData returns.
// The payload is released by the garbage collector once the producer and
// every consumer have dropped their handles.
//
// The zero Data carries nothing; Valid reports false for it.
type Data[T any] struct {
	e *envelope[T]
}

type envelope[T any] struct {
	v T
}

// NewData publishes v.
func NewData[T any](v T) Data[T] {
	return Data[T]{e: &envelope[T]{v: cloneOf(v)}}
}

// Valid reports whether d carries a payload.
func (d Data[T]) Valid() bool {
	return d.e != nil
}

// Value returns the payload, or the zero T for an empty Data. Cloner payloads
// are returned as a fresh copy, so mutating the result never affects other
// holders of the same envelope.
func (d Data[T]) Value() T {
	if d.e == nil {
		var zero T
		return zero
	}
	return cloneOf(d.e.v)
}

// Derive publishes f applied to a copy of the payload. d itself is left
// untouched.
func (d Data[T]) Derive(f func(T) T) Data[T] {
	return NewData(f(d.Value()))
}

// Shares reports whether d and o are handles on the same payload.
func (d Data[T]) Shares(o Data[T]) bool {
	return d.e != nil && d.e == o.e
}

// Isolated reports whether values of T can be held by several consumers
// without aliasing: T implements Cloner, or T is not a slice or map. The
// fields of struct payloads are not inspected.
func Isolated[T any]() bool {
	var zero T
	if _, ok := any(zero).(Cloner[T]); ok {
		return true
	}
	switch reflect.TypeOf((*T)(nil)).Elem().Kind() {
	case reflect.Slice, reflect.Map:
		return false
	}
	return true
}

func cloneOf[T any](v T) T {
	if c, ok := any(v).(Cloner[T]); ok {
		return c.Clone()
	}
	return v
}

// Vec is the payload type for vector-valued signals. It clones on publish and
// on read.
type Vec[E any] []E

// Clone returns an independent copy of v.
func (v Vec[E]) Clone() Vec[E] {
	if v == nil {
		return nil
	}
	out := make(Vec[E], len(v))
	copy(out, v)
	return out
}

// Len returns the number of elements.
func (v Vec[E]) Len() int { return len(v) }
