package runtime

import (
	"fmt"

	"github.com/mna/aria/lang/isa"
)

// Function attribute flags, ground-truthed against opcodes-lib's
// function_attribs: whether the function is a bound method, whether it
// carries a method-attribute type slot, and whether its last parameter
// binds a trailing vararg list.
const (
	FuncIsMethod        uint8 = 0x1
	FuncMethodAttribute uint8 = 0x2
	FuncAcceptsVararg   uint8 = 0x4
)

// Function is a compiled function template: its code object, declared
// arity, and attribute flags. It is not itself callable until paired with
// its captured uplevels, which BuildFunction does at closure-creation
// time (see Closure).
type Function struct {
	Name       string
	Code       *isa.CodeObject
	Attrs      uint8
	ModuleName string
	// ModuleRef is the owning module, set by the loader once it exists
	// (opaque here to avoid a dependency from runtime onto the vm package;
	// the vm package type-asserts it back to *vm.Module).
	ModuleRef interface{}
	Attr      *ObjectBox
}

func (f *Function) Kind() string   { return "Function" }
func (f *Function) String() string { return fmt.Sprintf("<function %s>", f.Name) }
func (f *Function) box() *ObjectBox {
	if f.Attr == nil {
		f.Attr = NewObjectBox()
	}
	return f.Attr
}
func (f *Function) GetAttr(name string) (Value, bool) {
	if f.Attr == nil {
		return nil, false
	}
	return f.Attr.Get(name)
}
func (f *Function) SetAttr(name string, v Value) { f.box().Set(name, v) }

func (f *Function) IsMethod() bool      { return f.Attrs&FuncIsMethod != 0 }
func (f *Function) HasMethodType() bool { return f.Attrs&FuncMethodAttribute != 0 }
func (f *Function) AcceptsVararg() bool { return f.Attrs&FuncAcceptsVararg != 0 }

// Closure is a Function paired with the uplevel slots it captured from
// its enclosing scope at the point BuildFunction ran. Each uplevel is
// captured by value at closure-creation time (single-level-only capture,
// §4.5): a nested function may not reach past its immediate parent's
// locals.
type Closure struct {
	Fn       *Function
	Uplevels map[uint8]Value
}

func NewClosure(fn *Function) *Closure {
	return &Closure{Fn: fn, Uplevels: map[uint8]Value{}}
}

func (c *Closure) Kind() string   { return c.Fn.Kind() }
func (c *Closure) String() string { return c.Fn.String() }
func (c *Closure) GetAttr(name string) (Value, bool) { return c.Fn.GetAttr(name) }
func (c *Closure) SetAttr(name string, v Value)      { c.Fn.SetAttr(name, v) }

// BoundMethod is a Closure bound to a receiver (an Object, EnumValue, or
// Mixin instance), produced automatically on attribute lookup when the
// looked-up Function has FuncIsMethod set.
type BoundMethod struct {
	Receiver Value
	Fn       *Closure
}

func (m *BoundMethod) Kind() string   { return m.Fn.Kind() }
func (m *BoundMethod) String() string { return fmt.Sprintf("<bound method %s>", m.Fn.Fn.Name) }

// NativeFunction wraps a Go-implemented builtin callable (the Maybe /
// Result / Unit / RuntimeError / Unimplemented operation set and any
// dylib-injected native functions), exposed to the VM uniformly alongside
// user-declared Closures.
type NativeFunction struct {
	Name string
	Fn   func(args []Value) (Value, error)
}

func (n *NativeFunction) Kind() string   { return "Function" }
func (n *NativeFunction) String() string { return fmt.Sprintf("<native function %s>", n.Name) }

// Callable is satisfied by every value the CALL opcode may invoke.
type Callable interface {
	Value
	callMarker()
}

func (c *Closure) callMarker()         {}
func (m *BoundMethod) callMarker()     {}
func (n *NativeFunction) callMarker() {}
