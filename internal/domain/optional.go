package domain

import "encoding/json"

// Opt holds a value that may be absent. The zero value is absent, so callers
// have to go through Get to reach the value.
type Opt[T any] struct {
	value T
	ok    bool
}

func Some[T any](v T) Opt[T] { return Opt[T]{value: v, ok: true} }

func None[T any]() Opt[T] { return Opt[T]{} }

// FromPtr maps a nullable column or JSON field to an Opt.
func FromPtr[T any](p *T) Opt[T] {
	if p == nil {
		return Opt[T]{}
	}
	return Some(*p)
}

func (o Opt[T]) Get() (T, bool) { return o.value, o.ok }

func (o Opt[T]) IsSome() bool { return o.ok }

func (o Opt[T]) OrElse(fallback T) T {
	if !o.ok {
		return fallback
	}
	return o.value
}

// Ptr returns nil when absent. Used for SQL parameters.
func (o Opt[T]) Ptr() *T {
	if !o.ok {
		return nil
	}
	v := o.value
	return &v
}

func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

func (o *Opt[T]) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*o = Opt[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}
