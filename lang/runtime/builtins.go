package runtime

import "fmt"

// Unit is the single-valued builtin type, returned by statements and
// functions with no meaningful result. It carries no attribute box of its
// own since it is always the same immutable singleton.
type Unit struct{}

var TheUnit = &Unit{}

func (u *Unit) Kind() string   { return "Unit" }
func (u *Unit) String() string { return "unit" }

// Unimplemented is the builtin sentinel used as a placeholder return
// value for stubbed-out native functions (mirroring a dylib symbol that
// has not been bound yet). Comparisons against Unimplemented are always
// false except identity.
type Unimplemented struct{}

var TheUnimplemented = &Unimplemented{}

func (u *Unimplemented) Kind() string   { return "Unimplemented" }
func (u *Unimplemented) String() string { return "unimplemented" }

// RuntimeError is the builtin carrier for a thrown/caught error value: a
// message plus an optional wrapped native Go error (for errors raised by
// the VM itself rather than by user code), matching VmError's
// prettyprint-able shape exposed to guest code as a normal Value.
type RuntimeError struct {
	Message string
	Wrapped error
	Attr    *ObjectBox
}

func NewRuntimeError(message string) *RuntimeError { return &RuntimeError{Message: message} }

func WrapRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Message: err.Error(), Wrapped: err}
}

func (e *RuntimeError) Kind() string   { return "RuntimeError" }
func (e *RuntimeError) String() string { return fmt.Sprintf("RuntimeError(%s)", e.Message) }
func (e *RuntimeError) Error() string  { return e.Message }
func (e *RuntimeError) Unwrap() error  { return e.Wrapped }
func (e *RuntimeError) box() *ObjectBox {
	if e.Attr == nil {
		e.Attr = NewObjectBox()
	}
	return e.Attr
}
func (e *RuntimeError) GetAttr(name string) (Value, bool) {
	if name == "message" {
		return NewString(e.Message), true
	}
	if e.Attr == nil {
		return nil, false
	}
	return e.Attr.Get(name)
}
func (e *RuntimeError) SetAttr(name string, v Value) { e.box().Set(name, v) }

// Maybe is the builtin Some/None carrier. A nil Inner denotes None.
type Maybe struct {
	Inner Value
	Attr  *ObjectBox
}

func Some(v Value) *Maybe { return &Maybe{Inner: v} }
func None() *Maybe         { return &Maybe{} }

func (m *Maybe) Kind() string { return "Maybe" }
func (m *Maybe) String() string {
	if m.Inner == nil {
		return "None"
	}
	return fmt.Sprintf("Some(%s)", m.Inner.String())
}
func (m *Maybe) IsSome() bool { return m.Inner != nil }
func (m *Maybe) box() *ObjectBox {
	if m.Attr == nil {
		m.Attr = NewObjectBox()
	}
	return m.Attr
}
func (m *Maybe) GetAttr(name string) (Value, bool) {
	if m.Attr == nil {
		return nil, false
	}
	return m.Attr.Get(name)
}
func (m *Maybe) SetAttr(name string, v Value) { m.box().Set(name, v) }

// Result is the builtin Ok/Err carrier. Exactly one of Ok/Err is set.
type Result struct {
	Ok   Value
	Err  Value
	Attr *ObjectBox
}

func OkResult(v Value) *Result  { return &Result{Ok: v} }
func ErrResult(v Value) *Result { return &Result{Err: v} }

func (r *Result) Kind() string { return "Result" }
func (r *Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("Err(%s)", r.Err.String())
	}
	return fmt.Sprintf("Ok(%s)", r.Ok.String())
}
func (r *Result) IsOk() bool { return r.Err == nil }
func (r *Result) box() *ObjectBox {
	if r.Attr == nil {
		r.Attr = NewObjectBox()
	}
	return r.Attr
}
func (r *Result) GetAttr(name string) (Value, bool) {
	if r.Attr == nil {
		return nil, false
	}
	return r.Attr.Get(name)
}
func (r *Result) SetAttr(name string, v Value) { r.box().Set(name, v) }
