package runtime

import "strings"

// Isa is a type predicate: anything that can answer "does this value
// satisfy me". Builtin types, user Structs/Enums, Mixins, and the
// Union/Intersection combinators all implement it, per §4.6's isa(value,
// predicate) algorithm.
type Isa interface {
	Check(v Value) bool
	String() string
}

// BuiltinType is a predicate over one of the fixed builtin type ids
// (Any, Int, List, String, Bool, Maybe, Float, Unimplemented,
// RuntimeError, Unit, Result), matched by Kind().
type BuiltinType struct {
	ID   uint8
	Name string
}

const (
	BuiltinAny            uint8 = 1
	BuiltinInt            uint8 = 2
	BuiltinList           uint8 = 3
	BuiltinString         uint8 = 4
	BuiltinBool           uint8 = 5
	BuiltinMaybe          uint8 = 6
	BuiltinFloat          uint8 = 7
	BuiltinUnimplemented  uint8 = 8
	BuiltinRuntimeError   uint8 = 9
	BuiltinUnit           uint8 = 10
	BuiltinResult         uint8 = 11
)

var builtinNames = map[uint8]string{
	BuiltinAny:           "Any",
	BuiltinInt:           "Int",
	BuiltinList:          "List",
	BuiltinString:        "String",
	BuiltinBool:          "Bool",
	BuiltinMaybe:         "Maybe",
	BuiltinFloat:         "Float",
	BuiltinUnimplemented: "Unimplemented",
	BuiltinRuntimeError:  "RuntimeError",
	BuiltinUnit:          "Unit",
	BuiltinResult:        "Result",
}

// NewBuiltinType resolves a builtin_type_id to its predicate, as pushed by
// the PushBuiltinTy opcode.
func NewBuiltinType(id uint8) *BuiltinType {
	return &BuiltinType{ID: id, Name: builtinNames[id]}
}

func (t *BuiltinType) String() string { return t.Name }

// Check reports whether v's Kind matches this builtin, with Any always
// matching. Maybe and Result match only values of their own native
// carrier kind; there are no parametrized generic forms.
func (t *BuiltinType) Check(v Value) bool {
	if t.ID == BuiltinAny {
		return true
	}
	return v.Kind() == t.Name
}

// StructType is the isa predicate for a user-declared struct: satisfied
// only by Objects whose StructRef is exactly this Struct.
type StructType struct{ Struct *Struct }

func (t *StructType) String() string { return t.Struct.Name }
func (t *StructType) Check(v Value) bool {
	obj, ok := v.(*Object)
	return ok && obj.StructRef == t.Struct
}

// EnumType is the isa predicate for a user-declared enum: satisfied by any
// EnumValue belonging to this Enum, regardless of case.
type EnumType struct{ Enum *Enum }

func (t *EnumType) String() string { return t.Enum.Name }
func (t *EnumType) Check(v Value) bool {
	ev, ok := v.(*EnumValue)
	return ok && ev.Enum == t.Enum
}

// MixinType is the isa predicate for a mixin: satisfied by any Object
// whose defining Struct (transitively) includes this Mixin, or any
// EnumValue whose Enum does, or a Mixin value that is or includes this
// Mixin directly.
type MixinType struct{ Mixin *Mixin }

func (t *MixinType) String() string { return t.Mixin.Name }
func (t *MixinType) Check(v Value) bool {
	switch val := v.(type) {
	case *Object:
		return val.StructRef != nil && val.StructRef.IncludesMixin(t.Mixin)
	case *EnumValue:
		return val.Enum.IncludesMixin(t.Mixin)
	case *Mixin:
		return val == t.Mixin || val.IncludesMixin(t.Mixin)
	default:
		return false
	}
}

// UnionType is satisfied by any value matching at least one member.
// Construction flattens nested unions and dedupes by String() identity;
// if Any is among the members, NewUnion collapses the whole union to Any
// per §4.6 ("Any | T == Any").
type UnionType struct{ Members []Isa }

// NewUnion builds a union predicate from the given members, flattening
// nested unions and deduplicating.
func NewUnion(members ...Isa) Isa {
	var flat []Isa
	seen := map[string]bool{}
	var walk func(Isa)
	walk = func(m Isa) {
		if u, ok := m.(*UnionType); ok {
			for _, sub := range u.Members {
				walk(sub)
			}
			return
		}
		if bt, ok := m.(*BuiltinType); ok && bt.ID == BuiltinAny {
			flat = []Isa{bt}
			return
		}
		key := m.String()
		if !seen[key] {
			seen[key] = true
			flat = append(flat, m)
		}
	}
	for _, m := range members {
		walk(m)
		if len(flat) == 1 {
			if bt, ok := flat[0].(*BuiltinType); ok && bt.ID == BuiltinAny {
				return bt
			}
		}
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return &UnionType{Members: flat}
}

func (t *UnionType) String() string {
	parts := make([]string, len(t.Members))
	for i, m := range t.Members {
		parts[i] = m.String()
	}
	return strings.Join(parts, " | ")
}

func (t *UnionType) Check(v Value) bool {
	for _, m := range t.Members {
		if m.Check(v) {
			return true
		}
	}
	return false
}

// IntersectionType is satisfied by a value matching every member. Structs
// and Enums are single-inheritance type carriers, so in practice this
// combinator is only useful to intersect Mixin predicates against a
// Struct/Enum predicate.
type IntersectionType struct{ Members []Isa }

func NewIntersection(members ...Isa) Isa {
	return &IntersectionType{Members: members}
}

func (t *IntersectionType) String() string {
	parts := make([]string, len(t.Members))
	for i, m := range t.Members {
		parts[i] = m.String()
	}
	return strings.Join(parts, " & ")
}

func (t *IntersectionType) Check(v Value) bool {
	for _, m := range t.Members {
		if !m.Check(v) {
			return false
		}
	}
	return true
}
