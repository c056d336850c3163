package compiler

import (
	"fmt"

	"github.com/mna/aria/lang/ir"
	"github.com/mna/aria/lang/isa"
	"github.com/mna/aria/lang/source"
)

// Kind discriminates the four links of a compilation scope chain: a
// module's top-level scope, a nested block inside it, a function's own
// root scope, and a nested block inside a function.
type Kind int

// Scope kinds, innermost-to-outermost relationship expressed by Parent.
const (
	ModuleRoot Kind = iota
	ModuleChild
	FunctionRoot
	FunctionChild
)

func (k Kind) String() string {
	switch k {
	case ModuleRoot:
		return "module-root"
	case ModuleChild:
		return "module-child"
	case FunctionRoot:
		return "function-root"
	case FunctionChild:
		return "function-child"
	default:
		return "unknown-scope"
	}
}

// binding is where a name resolves to: a frame-relative local slot inside
// a function, or a constant-pool string index used as the key into a
// module's named-global box.
type binding struct {
	local    bool
	slot     uint8
	constIdx uint16
}

// funcState is shared by every scope belonging to the same function body
// (its root scope and every nested block scope within it). It tracks
// local-slot allocation and the uplevel-capture table the enclosing
// FuncDecl lowering needs to emit the StoreUplevel sequence after
// BuildFunction.
type funcState struct {
	parentFn *funcState // the lexically enclosing function's state, nil if declared at module level

	nextSlot uint8

	// uplevelInfo records, in capture order, the parent-function local slot
	// each uplevel entry copies from; its index is the operand ReadUplevel
	// uses inside this function's body. uplevelIndexOf dedupes repeat
	// captures of the same parent slot.
	uplevelInfo    []uint8
	uplevelIndexOf map[uint8]uint8
}

func (fs *funcState) allocSlot() uint8 {
	slot := fs.nextSlot
	fs.nextSlot++
	return slot
}

// ErrUndefinedName is returned by Read/Write when name has no binding
// reachable from the scope.
type ErrUndefinedName struct{ Name string }

func (e ErrUndefinedName) Error() string { return fmt.Sprintf("compiler: undefined name %q", e.Name) }

// ErrCannotWriteUplevel is returned by Write when name resolves to a local
// of an enclosing function: the bytecode has no WriteUplevel, since
// closures capture by value-copy at construction time, never by
// reference (§9 design note).
type ErrCannotWriteUplevel struct{ Name string }

func (e ErrCannotWriteUplevel) Error() string {
	return fmt.Sprintf("compiler: cannot assign to %q captured from an enclosing function", e.Name)
}

// ErrNestedClosureDisallowed is returned when a name resolves to a local
// two or more function scopes removed: a closure may only capture from
// its direct lexical parent function.
type ErrNestedClosureDisallowed struct{ Name string }

func (e ErrNestedClosureDisallowed) Error() string {
	return fmt.Sprintf("compiler: %q is not in the immediately enclosing function (NestedClosureDisallowed)", e.Name)
}

// Scope is one link of the ModuleRoot|ModuleChild|FunctionRoot|
// FunctionChild chain described by the compilation-scopes design: module
// scopes allocate constant-pool indices for names, function scopes
// allocate frame-relative local slots, and reads crossing a function-root
// boundary into a lexical parent function trigger uplevel resolution.
type Scope struct {
	Kind   Kind
	Parent *Scope
	pool   *isa.ConstantPool
	fn     *funcState // nil for module-level scopes
	names  map[string]binding
}

// NewModuleScope creates the root scope of a module being compiled, its
// names interned into pool.
func NewModuleScope(pool *isa.ConstantPool) *Scope {
	return &Scope{Kind: ModuleRoot, pool: pool, names: map[string]binding{}}
}

// NewChildScope opens a nested block scope (if/while/for/match/try body)
// under s, inheriting its function identity (or lack thereof).
func (s *Scope) NewChildScope() *Scope {
	kind := ModuleChild
	if s.fn != nil {
		kind = FunctionChild
	}
	return &Scope{Kind: kind, Parent: s, pool: s.pool, fn: s.fn, names: map[string]binding{}}
}

// NewFunctionScope opens a fresh function's root scope nested lexically
// under s. The new function's direct lexical parent function (for uplevel
// resolution) is s's own enclosing function, or nil if s is module-level.
func (s *Scope) NewFunctionScope() *Scope {
	fs := &funcState{parentFn: s.fn, uplevelIndexOf: map[uint8]uint8{}}
	return &Scope{Kind: FunctionRoot, Parent: s, pool: s.pool, fn: fs, names: map[string]binding{}}
}

// Define allocates a fresh binding for name in s: a local slot if s
// belongs to a function, or a constant-pool string index if s is a
// module-level scope. It returns the operand TypedefLocal/TypedefNamed
// must carry (the caller is responsible for pushing the declared type
// value and emitting that opcode; Define only records the binding).
func (s *Scope) Define(name string) (idx uint32, isLocal bool, err error) {
	if s.fn == nil {
		cidx, err := s.pool.InsertString(name)
		if err != nil {
			return 0, false, err
		}
		s.names[name] = binding{local: false, constIdx: cidx}
		return uint32(cidx), false, nil
	}
	slot := s.fn.allocSlot()
	s.names[name] = binding{local: true, slot: slot}
	return uint32(slot), true, nil
}

// lookup walks s and its parents for name, returning the scope that holds
// the binding.
func (s *Scope) lookup(name string) (*Scope, binding, bool) {
	for cur := s; cur != nil; cur = cur.Parent {
		if b, ok := cur.names[name]; ok {
			return cur, b, true
		}
	}
	return nil, binding{}, false
}

// EmitRead resolves name and emits the ReadLocal/ReadNamed/ReadUplevel
// sequence to push its current value.
func (s *Scope) EmitRead(b *ir.Builder, src source.Pointer, name string) error {
	foundScope, bnd, ok := s.lookup(name)
	if !ok {
		return ErrUndefinedName{Name: name}
	}
	if !bnd.local {
		b.Emit(isa.ReadNamed, uint32(bnd.constIdx), src)
		return nil
	}
	curFn, foundFn := s.fn, foundScope.fn
	if curFn == foundFn {
		b.Emit(isa.ReadLocal, uint32(bnd.slot), src)
		return nil
	}
	if curFn == nil || curFn.parentFn != foundFn {
		return ErrNestedClosureDisallowed{Name: name}
	}
	idx, already := curFn.uplevelIndexOf[bnd.slot]
	if !already {
		idx = uint8(len(curFn.uplevelInfo))
		curFn.uplevelIndexOf[bnd.slot] = idx
		curFn.uplevelInfo = append(curFn.uplevelInfo, bnd.slot)
	}
	b.Emit(isa.ReadUplevel, uint32(idx), src)
	return nil
}

// EmitWrite resolves name and emits WriteLocal/WriteNamed against its
// binding. A name bound in an enclosing function's locals cannot be
// written through a closure (ErrCannotWriteUplevel): only module-level
// globals remain writable regardless of nesting depth.
func (s *Scope) EmitWrite(b *ir.Builder, src source.Pointer, name string) error {
	foundScope, bnd, ok := s.lookup(name)
	if !ok {
		return ErrUndefinedName{Name: name}
	}
	if !bnd.local {
		b.Emit(isa.WriteNamed, uint32(bnd.constIdx), src)
		return nil
	}
	if s.fn != foundScope.fn {
		return ErrCannotWriteUplevel{Name: name}
	}
	b.Emit(isa.WriteLocal, uint32(bnd.slot), src)
	return nil
}

// UplevelInfo returns, for a FunctionRoot scope, the parent-slot sequence
// an enclosing FuncDecl lowering must replay as StoreUplevel operations
// immediately after BuildFunction. Empty for a scope that captures
// nothing (including any non-FunctionRoot scope).
func (s *Scope) UplevelInfo() []uint8 {
	if s.Kind != FunctionRoot || s.fn == nil {
		return nil
	}
	return s.fn.uplevelInfo
}

// FrameSize returns the number of local slots a function's frame must
// allocate, i.e. one past the highest slot Define has handed out
// (parameters and uplevel-captured locals, if any were modeled as
// locals, included).
func (s *Scope) FrameSize() int {
	root := s
	for root.fn == nil && root.Parent != nil {
		root = root.Parent
	}
	if root.fn == nil {
		return 0
	}
	return int(root.fn.nextSlot)
}
