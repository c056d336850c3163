package runtime

import (
	swiss "github.com/dolthub/swiss"
)

// ObjectBox is the mutable string->value map attached to values that carry
// per-instance attributes (§3). Backed by dolthub/swiss (replaced with
// mna/swiss), matching the hash-map library the teacher uses for its own
// map-shaped values (lang/machine/map.go), rather than a bare Go map, to
// keep the pack's dependency actually exercised.
type ObjectBox struct {
	m *swiss.Map[string, Value]
}

// NewObjectBox returns an empty box, lazily backed (no allocation happens
// until the first Set).
func NewObjectBox() *ObjectBox {
	return &ObjectBox{}
}

func (b *ObjectBox) ensure() {
	if b.m == nil {
		b.m = swiss.NewMap[string, Value](uint32(8))
	}
}

// Get looks up name.
func (b *ObjectBox) Get(name string) (Value, bool) {
	if b.m == nil {
		return nil, false
	}
	return b.m.Get(name)
}

// Set assigns name := v, creating the backing map on first use.
func (b *ObjectBox) Set(name string, v Value) {
	b.ensure()
	b.m.Put(name, v)
}

// Delete removes name, if present.
func (b *ObjectBox) Delete(name string) {
	if b.m == nil {
		return
	}
	b.m.Delete(name)
}

// Len reports the number of attributes currently stored.
func (b *ObjectBox) Len() int {
	if b.m == nil {
		return 0
	}
	return b.m.Count()
}

// Each iterates all (name, value) pairs; iteration order is unspecified,
// matching swiss.Map's own iteration contract.
func (b *ObjectBox) Each(fn func(name string, v Value) bool) {
	if b.m == nil {
		return
	}
	b.m.Iter(fn)
}
