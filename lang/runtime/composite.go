package runtime

import "fmt"

// Struct is a user-declared type carrier: {name, attribute_map,
// included_mixins}. Shared by reference; all Objects instantiated from it
// point back at the same handle.
type Struct struct {
	Name            string
	Attrs           *ObjectBox
	IncludedMixins  []*Mixin
}

func NewStruct(name string) *Struct {
	return &Struct{Name: name, Attrs: NewObjectBox()}
}

func (s *Struct) Kind() string   { return "Struct" }
func (s *Struct) String() string { return fmt.Sprintf("<struct %s>", s.Name) }

// GetAttr looks up name in the struct's own map, then each included mixin
// in insertion order (mixin inclusion is transitive since a Mixin's
// GetAttr recurses into its own included mixins).
func (s *Struct) GetAttr(name string) (Value, bool) {
	if v, ok := s.Attrs.Get(name); ok {
		return v, true
	}
	for _, m := range s.IncludedMixins {
		if v, ok := m.GetAttr(name); ok {
			return v, true
		}
	}
	return nil, false
}

func (s *Struct) SetAttr(name string, v Value) { s.Attrs.Set(name, v) }

// IncludeMixin appends m to the struct's mixin chain, preserving insertion
// order.
func (s *Struct) IncludeMixin(m *Mixin) { s.IncludedMixins = append(s.IncludedMixins, m) }

// IncludesMixin reports whether m is transitively included by s,
// used by the Mixin(m) isa predicate.
func (s *Struct) IncludesMixin(m *Mixin) bool {
	for _, inc := range s.IncludedMixins {
		if inc == m || inc.IncludesMixin(m) {
			return true
		}
	}
	return false
}

// Mixin is a reusable attribute bundle, isomorphic to Struct but not
// directly instantiable.
type Mixin struct {
	Name           string
	Attrs          *ObjectBox
	IncludedMixins []*Mixin
}

func NewMixin(name string) *Mixin { return &Mixin{Name: name, Attrs: NewObjectBox()} }

func (m *Mixin) Kind() string   { return "Mixin" }
func (m *Mixin) String() string { return fmt.Sprintf("<mixin %s>", m.Name) }

func (m *Mixin) GetAttr(name string) (Value, bool) {
	if v, ok := m.Attrs.Get(name); ok {
		return v, true
	}
	for _, inc := range m.IncludedMixins {
		if v, ok := inc.GetAttr(name); ok {
			return v, true
		}
	}
	return nil, false
}

func (m *Mixin) SetAttr(name string, v Value) { m.Attrs.Set(name, v) }
func (m *Mixin) IncludeMixin(other *Mixin)     { m.IncludedMixins = append(m.IncludedMixins, other) }

func (m *Mixin) IncludesMixin(target *Mixin) bool {
	for _, inc := range m.IncludedMixins {
		if inc == target || inc.IncludesMixin(target) {
			return true
		}
	}
	return false
}

// Object is an instance of a Struct: {struct_ref, attribute_box}.
type Object struct {
	StructRef *Struct
	Attrs     *ObjectBox
}

func NewObject(s *Struct) *Object { return &Object{StructRef: s, Attrs: NewObjectBox()} }

func (o *Object) Kind() string   { return "Object" }
func (o *Object) String() string { return fmt.Sprintf("<%s instance>", o.StructRef.Name) }

// GetAttr reads the per-instance box first, then falls through to the
// defining Struct's attribute map and mixin chain.
func (o *Object) GetAttr(name string) (Value, bool) {
	if v, ok := o.Attrs.Get(name); ok {
		return v, true
	}
	return o.StructRef.GetAttr(name)
}

// SetAttr always targets the per-instance box, never the shared Struct.
func (o *Object) SetAttr(name string, v Value) { o.Attrs.Set(name, v) }

// EnumCase is one named variant of an Enum, optionally carrying a typed
// payload. PayloadType is nil for a payload-less case.
type EnumCase struct {
	Name        string
	PayloadType Isa // nil if the case carries no payload
	Index       int
}

// Enum is a user-declared tagged union: {name, cases, attribute_map,
// included_mixins}. Cases have stable small-integer indices assigned at
// declaration order.
type Enum struct {
	Name           string
	Cases          []*EnumCase
	caseByName     map[string]*EnumCase
	Attrs          *ObjectBox
	IncludedMixins []*Mixin
}

func NewEnum(name string) *Enum {
	return &Enum{Name: name, Attrs: NewObjectBox(), caseByName: map[string]*EnumCase{}}
}

func (e *Enum) Kind() string   { return "Enum" }
func (e *Enum) String() string { return fmt.Sprintf("<enum %s>", e.Name) }

// AddCase appends a new case, assigning it the next declaration-order
// index.
func (e *Enum) AddCase(name string, payload Isa) *EnumCase {
	c := &EnumCase{Name: name, PayloadType: payload, Index: len(e.Cases)}
	e.Cases = append(e.Cases, c)
	e.caseByName[name] = c
	return c
}

// CaseByName looks up a declared case by name.
func (e *Enum) CaseByName(name string) (*EnumCase, bool) {
	c, ok := e.caseByName[name]
	return c, ok
}

func (e *Enum) GetAttr(name string) (Value, bool) {
	if v, ok := e.Attrs.Get(name); ok {
		return v, true
	}
	for _, m := range e.IncludedMixins {
		if v, ok := m.GetAttr(name); ok {
			return v, true
		}
	}
	return nil, false
}

func (e *Enum) SetAttr(name string, v Value)  { e.Attrs.Set(name, v) }
func (e *Enum) IncludeMixin(m *Mixin)         { e.IncludedMixins = append(e.IncludedMixins, m) }

func (e *Enum) IncludesMixin(m *Mixin) bool {
	for _, inc := range e.IncludedMixins {
		if inc == m || inc.IncludesMixin(m) {
			return true
		}
	}
	return false
}

// EnumValue is an instance of an Enum: case index + optional payload +
// reference to the defining Enum.
type EnumValue struct {
	Enum    *Enum
	Case    *EnumCase
	Payload Value // nil if the case carries no payload
}

func NewEnumValue(e *Enum, c *EnumCase, payload Value) *EnumValue {
	return &EnumValue{Enum: e, Case: c, Payload: payload}
}

func (v *EnumValue) Kind() string { return "EnumValue" }
func (v *EnumValue) String() string {
	if v.Payload != nil {
		return fmt.Sprintf("%s::%s(%s)", v.Enum.Name, v.Case.Name, v.Payload.String())
	}
	return fmt.Sprintf("%s::%s", v.Enum.Name, v.Case.Name)
}

// Equal implements EnumValue equality per §3: same defining Enum AND same
// case index AND recursive equality of payloads.
func (v *EnumValue) Equal(other *EnumValue, eq func(a, b Value) bool) bool {
	if v.Enum != other.Enum || v.Case.Index != other.Case.Index {
		return false
	}
	if v.Payload == nil || other.Payload == nil {
		return v.Payload == nil && other.Payload == nil
	}
	return eq(v.Payload, other.Payload)
}
