// Package runtime implements the tagged runtime value universe: scalars
// with attached attribute bags, structs/enums/mixins/objects, functions and
// closures, and the isa/type-predicate system. Grounded on the teacher's
// lang/machine/value.go and lang/types/value.go Go idiom (a small sealed
// interface plus one struct per kind) generalized to this spec's value set.
package runtime

import "fmt"

// Value is the tagged sum every runtime value satisfies. It intentionally
// has no methods beyond identification: behavior (attribute lookup,
// operator dispatch, isa checks) lives in free functions in this package
// so that it can consult the VM's builtins table, mirroring the teacher's
// separation of types.Value (data) from machine-level dispatch (behavior).
type Value interface {
	// Kind names this value's runtime type for error messages and the Kind
	// opcode-level dispatch; it is not the same as the user-visible type
	// name (structs/enums report their declared name instead).
	Kind() string
	String() string
}

// HasAttrs is implemented by values that expose attribute lookup beyond
// their own ObjectBox (Struct/Enum/Mixin attribute maps,
// falling through mixin chains).
type HasAttrs interface {
	Value
	// GetAttr looks up name, returning (nil, false) if absent. Implementers
	// are responsible for the mixin-chain fallthrough described in §3/§4.5.
	GetAttr(name string) (Value, bool)
}

// HasSetField is implemented by values whose attribute writes always
// target a per-instance box (scalars, Objects) rather than a shared type
// definition table.
type HasSetField interface {
	Value
	SetAttr(name string, v Value)
}

// Box returns the ObjectBox attached to v, allocating one lazily on first
// use if v supports attributes but has none yet. Returns nil for values
// that carry no attribute box at all (Type carriers use their own
// attribute map, not an ObjectBox).
func Box(v Value) *ObjectBox {
	type boxed interface{ box() *ObjectBox }
	if b, ok := v.(boxed); ok {
		return b.box()
	}
	return nil
}

// ---- Scalars ----

// Integer is a 64-bit signed integer value with an attached, lazily
// allocated attribute box (integers may carry per-instance attributes,
// per §3's "dynamic attribute bags on scalars" design note).
type Integer struct {
	V    int64
	Attr *ObjectBox
}

func NewInteger(v int64) *Integer { return &Integer{V: v} }

func (i *Integer) Kind() string   { return "Int" }
func (i *Integer) String() string { return fmt.Sprintf("%d", i.V) }
func (i *Integer) box() *ObjectBox {
	if i.Attr == nil {
		i.Attr = NewObjectBox()
	}
	return i.Attr
}
func (i *Integer) GetAttr(name string) (Value, bool) {
	if i.Attr == nil {
		return nil, false
	}
	return i.Attr.Get(name)
}
func (i *Integer) SetAttr(name string, v Value) { i.box().Set(name, v) }

// Float is a 64-bit floating point value.
type Float struct {
	V    float64
	Attr *ObjectBox
}

func NewFloat(v float64) *Float { return &Float{V: v} }

func (f *Float) Kind() string   { return "Float" }
func (f *Float) String() string { return fmt.Sprintf("%g", f.V) }
func (f *Float) box() *ObjectBox {
	if f.Attr == nil {
		f.Attr = NewObjectBox()
	}
	return f.Attr
}
func (f *Float) GetAttr(name string) (Value, bool) {
	if f.Attr == nil {
		return nil, false
	}
	return f.Attr.Get(name)
}
func (f *Float) SetAttr(name string, v Value) { f.box().Set(name, v) }

// String is a string value.
type String struct {
	V    string
	Attr *ObjectBox
}

func NewString(v string) *String { return &String{V: v} }

func (s *String) Kind() string   { return "String" }
func (s *String) String() string { return s.V }
func (s *String) box() *ObjectBox {
	if s.Attr == nil {
		s.Attr = NewObjectBox()
	}
	return s.Attr
}
func (s *String) GetAttr(name string) (Value, bool) {
	if s.Attr == nil {
		return nil, false
	}
	return s.Attr.Get(name)
}
func (s *String) SetAttr(name string, v Value) { s.box().Set(name, v) }

// Boolean is a boolean value.
type Boolean struct {
	V    bool
	Attr *ObjectBox
}

func NewBoolean(v bool) *Boolean { return &Boolean{V: v} }

func (b *Boolean) Kind() string   { return "Bool" }
func (b *Boolean) String() string { return fmt.Sprintf("%t", b.V) }
func (b *Boolean) box() *ObjectBox {
	if b.Attr == nil {
		b.Attr = NewObjectBox()
	}
	return b.Attr
}
func (b *Boolean) GetAttr(name string) (Value, bool) {
	if b.Attr == nil {
		return nil, false
	}
	return b.Attr.Get(name)
}
func (b *Boolean) SetAttr(name string, v Value) { b.box().Set(name, v) }

// ---- Container ----

// List is an ordered, mutable, indexable container.
type List struct {
	Items []Value
	Attr  *ObjectBox
}

func NewList(items ...Value) *List { return &List{Items: items} }

func (l *List) Kind() string   { return "List" }
func (l *List) String() string { return fmt.Sprintf("<list len=%d>", len(l.Items)) }
func (l *List) box() *ObjectBox {
	if l.Attr == nil {
		l.Attr = NewObjectBox()
	}
	return l.Attr
}
func (l *List) GetAttr(name string) (Value, bool) {
	if name == "length" {
		return &NativeFunction{Name: "length", Fn: func(args []Value) (Value, error) {
			return NewInteger(int64(len(l.Items))), nil
		}}, true
	}
	if l.Attr == nil {
		return nil, false
	}
	return l.Attr.Get(name)
}
func (l *List) SetAttr(name string, v Value) { l.box().Set(name, v) }

// ---- Opaque ----

// Opaque wraps an arbitrary native host object, compared by identity.
// Native values may optionally provide a Release func. The VM never calls
// it: not on a guard exit, not when the last reference goes, not at
// teardown.
type Opaque struct {
	TypeName string
	Native   interface{}
	Release  func()
	Attr     *ObjectBox
}

func (o *Opaque) Kind() string   { return "Opaque" }
func (o *Opaque) String() string { return fmt.Sprintf("<opaque %s>", o.TypeName) }
func (o *Opaque) box() *ObjectBox {
	if o.Attr == nil {
		o.Attr = NewObjectBox()
	}
	return o.Attr
}
func (o *Opaque) GetAttr(name string) (Value, bool) {
	if o.Attr == nil {
		return nil, false
	}
	return o.Attr.Get(name)
}
func (o *Opaque) SetAttr(name string, v Value) { o.box().Set(name, v) }
