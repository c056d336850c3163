package vm

import (
	"github.com/mna/aria/lang/runtime"
)

// Call dispatches c with args, following the same arity/vararg rules for
// every Callable kind the CALL opcode may encounter.
func (th *Thread) Call(c runtime.Callable, args []runtime.Value) (runtime.Value, error) {
	switch fn := c.(type) {
	case *runtime.Closure:
		return th.callClosure(fn, args)
	case *runtime.BoundMethod:
		return th.callClosure(fn.Fn, append([]runtime.Value{fn.Receiver}, args...))
	case *runtime.NativeFunction:
		return fn.Fn(args)
	default:
		return nil, newError(ReasonUnexpectedVmState, unknownLoc(), "value is not callable: %s", c.Kind())
	}
}

func (th *Thread) callClosure(closure *runtime.Closure, args []runtime.Value) (runtime.Value, error) {
	code := closure.Fn.Code
	required := int(code.RequiredArgc)
	optional := int(code.OptionalArgc)
	maxPositional := required + optional

	if len(args) < required || (!code.HasVararg && len(args) > maxPositional) {
		return nil, newError(ReasonMismatchedArgumentCount, code.Loc,
			"expected %d to %d arguments, got %d", required, maxPositional, len(args))
	}

	fr, err := NewFrame(closure, th.currentFrame())
	if err != nil {
		return nil, err
	}

	n := len(args)
	if n > maxPositional {
		n = maxPositional
	}
	copy(fr.Locals, args[:n])
	if code.HasVararg {
		var rest []runtime.Value
		if len(args) > maxPositional {
			rest = append(rest, args[maxPositional:]...)
		}
		fr.Locals[maxPositional] = runtime.NewList(rest...)
	}

	var maxSlot int
	for slot := range closure.Uplevels {
		if int(slot)+1 > maxSlot {
			maxSlot = int(slot) + 1
		}
	}
	fr.Uplevels = make([]runtime.Value, maxSlot)
	for slot, v := range closure.Uplevels {
		fr.Uplevels[slot] = v
	}

	th.pushFrame(fr)
	defer th.popFrame()
	return th.run(fr)
}

// BuildClosure constructs a Closure from a compiled Function template,
// capturing the current frame's locals named by uplevelSlots (parent-slot
// -> child-slot), per the single-level-only uplevel capture rule: each
// uplevel is copied by value at closure-creation time, never shared by
// reference with the enclosing frame.
func BuildClosure(fn *runtime.Function, parent *Frame, uplevelSlots map[uint8]uint8) *runtime.Closure {
	c := runtime.NewClosure(fn)
	for parentSlot, childSlot := range uplevelSlots {
		if int(parentSlot) < len(parent.Locals) {
			c.Uplevels[childSlot] = parent.Locals[parentSlot]
		}
	}
	return c
}

func isMethod(fn *runtime.Function) bool { return fn.Attrs&runtime.FuncIsMethod != 0 }
