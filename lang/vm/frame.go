// Package vm implements the stack-based bytecode interpreter: call frames,
// the fetch/decode/dispatch loop, call dispatch with arity and vararg
// binding, guard/try exception unwinding, and the module/plugin loaders.
// Grounded on the teacher's lang/machine package (Frame/Thread/run shape),
// generalized from Starlark-flavored semantics to this runtime's
// stack/frame/closure model.
package vm

import (
	"fmt"

	"github.com/mna/aria/lang/isa"
	"github.com/mna/aria/lang/runtime"
	"github.com/mna/aria/lang/source"
)

// controlKind distinguishes the two control-block shapes a frame may push:
// a guard (a marker only: it runs no cleanup and catches nothing, and
// unwinding simply discards it) and a try (catch a thrown value at a given
// handler address).
type controlKind uint8

const (
	controlGuard controlKind = iota
	controlTry
)

// controlBlock is one entry of a frame's control-block stack, pushed by
// GuardEnter/TryEnter and popped by GuardExit/TryExit or by unwinding on a
// Throw.
type controlBlock struct {
	kind       controlKind
	handlerPC  int // byte offset of the catch handler, controlTry only
	stackDepth int // operand stack depth to restore to on unwind
}

// Frame is one activation record: its locals (with optional declared
// types, for TypedefLocal's runtime type check), operand stack, control
// blocks, decoded instruction stream, and program counter (an index into
// Instructions, not a byte offset).
type Frame struct {
	Closure      *runtime.Closure
	Code         *isa.CodeObject
	Instructions []isa.Instruction
	Offsets      []int
	offsetIndex  map[int]int

	Locals     []runtime.Value
	LocalTypes []runtime.Isa
	Uplevels   []runtime.Value

	Stack []runtime.Value
	sp    int

	Controls []controlBlock

	PC int

	Caller *Frame
}

// NewFrame decodes code's body once and allocates a fresh locals/stack
// space sized per its FrameSize, matching the teacher's single
// space-slice-split-in-two allocation in machine.run.
func NewFrame(closure *runtime.Closure, caller *Frame) (*Frame, error) {
	code := closure.Fn.Code
	instructions, offsets, err := isa.DecodeAll(code.Body)
	if err != nil {
		return nil, err
	}
	offsetIndex := make(map[int]int, len(offsets))
	for i, off := range offsets {
		offsetIndex[off] = i
	}

	nlocals := int(code.RequiredArgc) + int(code.OptionalArgc)
	if code.HasVararg {
		nlocals++
	}
	if code.FrameSize > nlocals {
		nlocals = code.FrameSize
	}

	return &Frame{
		Closure:      closure,
		Code:         code,
		Instructions: instructions,
		Offsets:      offsets,
		offsetIndex:  offsetIndex,
		Locals:       make([]runtime.Value, nlocals),
		LocalTypes:   make([]runtime.Isa, nlocals),
		Stack:        make([]runtime.Value, 0, 16),
		Caller:       caller,
	}, nil
}

// jumpTo repositions PC at the instruction beginning at byte offset addr.
func (f *Frame) jumpTo(addr uint32) error {
	idx, ok := f.offsetIndex[int(addr)]
	if !ok {
		return fmt.Errorf("vm: jump target %d is not an instruction boundary", addr)
	}
	f.PC = idx
	return nil
}

func (f *Frame) push(v runtime.Value) { f.Stack = append(f.Stack, v) }

func (f *Frame) pop() (runtime.Value, error) {
	n := len(f.Stack)
	if n == 0 {
		return nil, fmt.Errorf("vm: pop from empty stack")
	}
	v := f.Stack[n-1]
	f.Stack = f.Stack[:n-1]
	return v, nil
}

func (f *Frame) peek() (runtime.Value, error) {
	n := len(f.Stack)
	if n == 0 {
		return nil, fmt.Errorf("vm: peek on empty stack")
	}
	return f.Stack[n-1], nil
}

// SourcePointer resolves the current instruction's source location via
// the code object's line table.
func (f *Frame) SourcePointer() source.Pointer {
	if f.Code.Lines == nil || f.PC >= len(f.Offsets) {
		return source.Unknown
	}
	return f.Code.Lines.Lookup(uint32(f.Offsets[f.PC]))
}
