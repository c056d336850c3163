package vm

import (
	"fmt"

	"github.com/mna/aria/lang/isa"
	"github.com/mna/aria/lang/runtime"
)

// thrownValue is a sentinel used internally to thread a thrown value up
// through run's dispatch loop to the nearest matching TryEnter handler
// within the same frame; a throw that escapes every handler in the
// current frame propagates to the caller as a Go error.
type thrownValue struct {
	value runtime.Value
}

func (t *thrownValue) Error() string { return "uncaught: " + t.value.String() }

// run executes fr's instruction stream to completion, returning its
// result value or the error that aborted it (including an uncaught
// thrownValue, returned to the caller as the *thrownValue error itself).
func (th *Thread) run(fr *Frame) (runtime.Value, error) {
	if th.MaxSteps > 0 {
		th.maxSteps = uint64(th.MaxSteps)
	}
	for {
		th.steps++
		if th.maxSteps != 0 && th.steps >= th.maxSteps {
			return nil, newError(ReasonUnexpectedVmState, fr.SourcePointer(), "thread exceeded max steps")
		}
		if th.cancelled.Load() {
			return nil, newError(ReasonUnexpectedVmState, fr.SourcePointer(), "thread cancelled")
		}

		if fr.PC >= len(fr.Instructions) {
			return nil, newError(ReasonUnexpectedVmState, fr.SourcePointer(), "fell off the end of the instruction stream")
		}
		ins := fr.Instructions[fr.PC]
		fr.PC++

		if th.Trace {
			fmt.Fprintf(th.stderrW(), "%s: %s\n", fr.Code.Name, ins.String())
		}

		result, done, err := th.dispatch(fr, ins)
		if err != nil {
			if tv, ok := err.(*thrownValue); ok {
				caught, handlerErr := fr.handleThrow(tv.value)
				if handlerErr != nil {
					return nil, handlerErr
				}
				if caught {
					continue
				}
			}
			return nil, err
		}
		if done {
			return result, nil
		}
	}
}

// handleThrow pops the innermost try control block and jumps to its
// handler, unwinding the operand stack to the depth recorded when the
// block was entered and pushing the thrown value for the handler to
// read. Returns caught=false if no try block remains in this frame (the
// throw must propagate to the caller).
func (f *Frame) handleThrow(v runtime.Value) (bool, error) {
	for len(f.Controls) > 0 {
		cb := f.Controls[len(f.Controls)-1]
		f.Controls = f.Controls[:len(f.Controls)-1]
		if cb.kind != controlTry {
			continue
		}
		if cb.stackDepth <= len(f.Stack) {
			f.Stack = f.Stack[:cb.stackDepth]
		}
		f.push(v)
		if err := f.jumpTo(uint32(cb.handlerPC)); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// dispatch executes one instruction. done is true when the frame's
// execution is complete (RETURN or HALT), in which case result is the
// frame's return value.
func (th *Thread) dispatch(fr *Frame, ins isa.Instruction) (result runtime.Value, done bool, err error) {
	mod, ok := fr.Closure.Fn.ModuleRef.(*Module)
	if !ok {
		return nil, false, newError(ReasonUnexpectedVmState, fr.SourcePointer(), "frame's function has no owning module")
	}

	switch ins.Op {
	case isa.Nop:
		// no-op

	case isa.Push:
		v, err := mod.constant(uint16(ins.Arg0))
		if err != nil {
			return nil, false, err
		}
		fr.push(v)
	case isa.Push0:
		fr.push(runtime.NewInteger(0))
	case isa.Push1:
		fr.push(runtime.NewInteger(1))
	case isa.PushTrue:
		fr.push(runtime.NewBoolean(true))
	case isa.PushFalse:
		fr.push(runtime.NewBoolean(false))
	case isa.PushBuiltinTy:
		fr.push(runtime.NewBuiltinType(uint8(ins.Arg0)))
	case isa.PushRuntimeValue:
		v, err := th.pushRuntimeValue(uint8(ins.Arg0))
		if err != nil {
			return nil, false, err
		}
		fr.push(v)

	case isa.Pop:
		if _, err := fr.pop(); err != nil {
			return nil, false, err
		}
	case isa.Dup:
		v, err := fr.peek()
		if err != nil {
			return nil, false, err
		}
		fr.push(v)
	case isa.Swap:
		n := len(fr.Stack)
		if n < 2 {
			return nil, false, newError(ReasonEmptyStack, fr.SourcePointer(), "swap needs 2 operands")
		}
		fr.Stack[n-1], fr.Stack[n-2] = fr.Stack[n-2], fr.Stack[n-1]
	case isa.Copy:
		n := len(fr.Stack)
		idx := n - 1 - int(ins.Arg0)
		if idx < 0 {
			return nil, false, newError(ReasonEmptyStack, fr.SourcePointer(), "copy out of range")
		}
		fr.push(fr.Stack[idx])

	case isa.Add, isa.Sub, isa.Mul, isa.Div, isa.Rem, isa.Shl, isa.Shr, isa.BitwiseAnd, isa.BitwiseOr, isa.Xor:
		if err := th.binArith(fr, ins.Op); err != nil {
			return nil, false, err
		}
	case isa.Neg:
		a, err := fr.pop()
		if err != nil {
			return nil, false, err
		}
		v, err := runtime.UnaryOp("neg", a, th.Invoke)
		if err != nil {
			return nil, false, err
		}
		fr.push(v)
	case isa.Not:
		a, err := fr.pop()
		if err != nil {
			return nil, false, err
		}
		fr.push(runtime.NewBoolean(!truthy(a)))

	case isa.ReadLocal:
		if int(ins.Arg0) >= len(fr.Locals) {
			return nil, false, newError(ReasonUplevelOutOfBounds, fr.SourcePointer(), "local slot %d out of range", ins.Arg0)
		}
		fr.push(fr.Locals[ins.Arg0])
	case isa.WriteLocal:
		v, err := fr.pop()
		if err != nil {
			return nil, false, err
		}
		if err := fr.setLocalTyped(int(ins.Arg0), v); err != nil {
			return nil, false, err
		}
	case isa.TypedefLocal:
		ty, err := fr.pop()
		if err != nil {
			return nil, false, err
		}
		isaTy, ok := ty.(runtime.Isa)
		if !ok {
			return nil, false, newError(ReasonUnexpectedType, fr.SourcePointer(), "TYPEDEF_LOCAL operand is not a type")
		}
		if int(ins.Arg0) < len(fr.LocalTypes) {
			fr.LocalTypes[ins.Arg0] = isaTy
		}
	case isa.ReadUplevel:
		if int(ins.Arg0) >= len(fr.Uplevels) {
			return nil, false, newError(ReasonUplevelOutOfBounds, fr.SourcePointer(), "uplevel slot %d out of range", ins.Arg0)
		}
		fr.push(fr.Uplevels[ins.Arg0])

	case isa.ReadNamed:
		name, err := mod.constantString(uint16(ins.Arg0))
		if err != nil {
			return nil, false, err
		}
		v, ok := mod.Globals.Get(name)
		if !ok {
			return nil, false, newError(ReasonNoSuchIdentifier, fr.SourcePointer(), "no such identifier %q", name)
		}
		fr.push(v)
	case isa.WriteNamed:
		name, err := mod.constantString(uint16(ins.Arg0))
		if err != nil {
			return nil, false, err
		}
		v, err := fr.pop()
		if err != nil {
			return nil, false, err
		}
		mod.Globals.Set(name, v)
	case isa.TypedefNamed:
		// module-level type declarations are tracked the same way as locals
		// would be, but globals carry no static type-check slot today; the
		// type expression is still evaluated for its side effects and then
		// discarded.
		if _, err := fr.pop(); err != nil {
			return nil, false, err
		}

	case isa.ReadIndex:
		idx, err := fr.pop()
		if err != nil {
			return nil, false, err
		}
		recv, err := fr.pop()
		if err != nil {
			return nil, false, err
		}
		v, err := readIndex(recv, idx)
		if err != nil {
			return nil, false, err
		}
		fr.push(v)
	case isa.WriteIndex:
		v, err := fr.pop()
		if err != nil {
			return nil, false, err
		}
		idx, err := fr.pop()
		if err != nil {
			return nil, false, err
		}
		recv, err := fr.pop()
		if err != nil {
			return nil, false, err
		}
		if err := writeIndex(recv, idx, v); err != nil {
			return nil, false, err
		}

	case isa.ReadAttribute:
		name, err := mod.constantString(uint16(ins.Arg0))
		if err != nil {
			return nil, false, err
		}
		recv, err := fr.pop()
		if err != nil {
			return nil, false, err
		}
		v, err := th.readAttribute(recv, name)
		if err != nil {
			return nil, false, err
		}
		fr.push(v)
	case isa.WriteAttribute:
		name, err := mod.constantString(uint16(ins.Arg0))
		if err != nil {
			return nil, false, err
		}
		v, err := fr.pop()
		if err != nil {
			return nil, false, err
		}
		recv, err := fr.pop()
		if err != nil {
			return nil, false, err
		}
		setter, ok := recv.(runtime.HasSetField)
		if !ok {
			return nil, false, newError(ReasonUnexpectedType, fr.SourcePointer(), "value of kind %s has no settable attributes", recv.Kind())
		}
		setter.SetAttr(name, v)

	case isa.Eq:
		b, err := fr.pop()
		if err != nil {
			return nil, false, err
		}
		a, err := fr.pop()
		if err != nil {
			return nil, false, err
		}
		fr.push(runtime.NewBoolean(runtime.Equals(a, b, th.Invoke)))
	case isa.Lt, isa.Gt, isa.Lte, isa.Gte:
		if err := th.binRel(fr, ins.Op); err != nil {
			return nil, false, err
		}
	case isa.Isa:
		pred, err := fr.pop()
		if err != nil {
			return nil, false, err
		}
		v, err := fr.pop()
		if err != nil {
			return nil, false, err
		}
		p, ok := pred.(runtime.Isa)
		if !ok {
			return nil, false, newError(ReasonUnexpectedType, fr.SourcePointer(), "ISA operand is not a type predicate")
		}
		fr.push(runtime.NewBoolean(p.Check(v)))
	case isa.LogicalAnd:
		b, err := fr.pop()
		if err != nil {
			return nil, false, err
		}
		a, err := fr.pop()
		if err != nil {
			return nil, false, err
		}
		fr.push(runtime.NewBoolean(truthy(a) && truthy(b)))
	case isa.LogicalOr:
		b, err := fr.pop()
		if err != nil {
			return nil, false, err
		}
		a, err := fr.pop()
		if err != nil {
			return nil, false, err
		}
		fr.push(runtime.NewBoolean(truthy(a) || truthy(b)))

	case isa.Jump:
		if err := fr.jumpTo(ins.Arg0); err != nil {
			return nil, false, err
		}
	case isa.JumpTrue:
		v, err := fr.pop()
		if err != nil {
			return nil, false, err
		}
		if truthy(v) {
			if err := fr.jumpTo(ins.Arg0); err != nil {
				return nil, false, err
			}
		}
	case isa.JumpFalse:
		v, err := fr.pop()
		if err != nil {
			return nil, false, err
		}
		if !truthy(v) {
			if err := fr.jumpTo(ins.Arg0); err != nil {
				return nil, false, err
			}
		}
	case isa.JumpIfArgSupplied:
		argIdx := int(ins.Arg0)
		supplied := argIdx < len(fr.Locals) && fr.Locals[argIdx] != nil
		if supplied {
			if err := fr.jumpTo(ins.Arg1); err != nil {
				return nil, false, err
			}
		}

	case isa.GuardEnter:
		fr.Controls = append(fr.Controls, controlBlock{kind: controlGuard, stackDepth: len(fr.Stack)})
	case isa.GuardExit:
		if len(fr.Controls) > 0 {
			fr.Controls = fr.Controls[:len(fr.Controls)-1]
		}
	case isa.TryEnter:
		fr.Controls = append(fr.Controls, controlBlock{kind: controlTry, handlerPC: int(ins.Arg0), stackDepth: len(fr.Stack)})
	case isa.TryExit:
		if len(fr.Controls) > 0 {
			fr.Controls = fr.Controls[:len(fr.Controls)-1]
		}
	case isa.Throw:
		v, err := fr.pop()
		if err != nil {
			return nil, false, err
		}
		return nil, false, &thrownValue{value: v}

	case isa.Call:
		argc := int(ins.Arg0)
		if len(fr.Stack) < argc+1 {
			return nil, false, newError(ReasonEmptyStack, fr.SourcePointer(), "call needs %d operands", argc+1)
		}
		args := make([]runtime.Value, argc)
		copy(args, fr.Stack[len(fr.Stack)-argc:])
		fr.Stack = fr.Stack[:len(fr.Stack)-argc]
		callee, err := fr.pop()
		if err != nil {
			return nil, false, err
		}
		c, ok := callee.(runtime.Callable)
		if !ok {
			return nil, false, newError(ReasonUnexpectedType, fr.SourcePointer(), "value of kind %s is not callable", callee.Kind())
		}
		v, err := th.Call(c, args)
		if err != nil {
			return nil, false, err
		}
		fr.push(v)
	case isa.Return:
		v, err := fr.pop()
		if err != nil {
			v = runtime.TheUnit
		}
		return v, true, nil

	case isa.BuildList:
		n := int(ins.Arg0)
		if len(fr.Stack) < n {
			return nil, false, newError(ReasonEmptyStack, fr.SourcePointer(), "build_list needs %d operands", n)
		}
		items := make([]runtime.Value, n)
		copy(items, fr.Stack[len(fr.Stack)-n:])
		fr.Stack = fr.Stack[:len(fr.Stack)-n]
		fr.push(runtime.NewList(items...))

	case isa.BuildFunction:
		if int(ins.Arg0) >= len(fr.Code.NestedFuncs) {
			return nil, false, newError(ReasonUnexpectedVmState, fr.SourcePointer(), "nested function index %d out of range", ins.Arg0)
		}
		code := fr.Code.NestedFuncs[ins.Arg0]
		fn := &runtime.Function{Name: code.Name, Code: code, Attrs: code.Attrs, ModuleName: fr.Closure.Fn.ModuleName, ModuleRef: fr.Closure.Fn.ModuleRef}
		fr.push(runtime.NewClosure(fn))
	case isa.StoreUplevel:
		v, err := fr.peek()
		if err != nil {
			return nil, false, err
		}
		closure, ok := v.(*runtime.Closure)
		if !ok {
			return nil, false, newError(ReasonInvalidBinding, fr.SourcePointer(), "STORE_UPLEVEL target is not a closure")
		}
		if int(ins.Arg0) >= len(fr.Locals) {
			return nil, false, newError(ReasonUplevelOutOfBounds, fr.SourcePointer(), "uplevel source slot %d out of range", ins.Arg0)
		}
		closure.Uplevels[uint8(len(closure.Uplevels))] = fr.Locals[ins.Arg0]

	case isa.BuildStruct:
		name, err := fr.pop()
		if err != nil {
			return nil, false, err
		}
		fr.push(runtime.NewStruct(name.String()))
	case isa.BuildEnum:
		name, err := fr.pop()
		if err != nil {
			return nil, false, err
		}
		fr.push(runtime.NewEnum(name.String()))
	case isa.BuildMixin:
		name, err := fr.pop()
		if err != nil {
			return nil, false, err
		}
		fr.push(runtime.NewMixin(name.String()))
	case isa.BindMethod:
		fn, err := fr.pop()
		if err != nil {
			return nil, false, err
		}
		name, err := mod.constantString(uint16(ins.Arg1))
		if err != nil {
			return nil, false, err
		}
		target, err := fr.peek()
		if err != nil {
			return nil, false, err
		}
		ha, ok := target.(runtime.HasSetField)
		if !ok {
			return nil, false, newError(ReasonInvalidBinding, fr.SourcePointer(), "BIND_METHOD target has no attribute map")
		}
		ha.SetAttr(name, fn)
	case isa.BindCase:
		name, err := mod.constantString(uint16(ins.Arg1))
		if err != nil {
			return nil, false, err
		}
		var payload runtime.Isa
		if ins.Arg0 != 0 {
			v, err := fr.pop()
			if err != nil {
				return nil, false, err
			}
			t, ok := v.(runtime.Isa)
			if !ok {
				return nil, false, newError(ReasonUnexpectedType, fr.SourcePointer(), "BIND_CASE payload operand is not a type")
			}
			payload = t
		}
		target, err := fr.peek()
		if err != nil {
			return nil, false, err
		}
		en, ok := target.(*runtime.Enum)
		if !ok {
			return nil, false, newError(ReasonInvalidBinding, fr.SourcePointer(), "BIND_CASE target is not an enum")
		}
		en.AddCase(name, payload)
	case isa.IncludeMixin:
		m, err := fr.pop()
		if err != nil {
			return nil, false, err
		}
		mix, ok := m.(*runtime.Mixin)
		if !ok {
			return nil, false, newError(ReasonUnexpectedType, fr.SourcePointer(), "INCLUDE_MIXIN operand is not a mixin")
		}
		target, err := fr.peek()
		if err != nil {
			return nil, false, err
		}
		switch t := target.(type) {
		case *runtime.Struct:
			t.IncludeMixin(mix)
		case *runtime.Enum:
			t.IncludeMixin(mix)
		case *runtime.Mixin:
			t.IncludeMixin(mix)
		default:
			return nil, false, newError(ReasonInvalidBinding, fr.SourcePointer(), "INCLUDE_MIXIN target cannot include mixins")
		}
	case isa.NewEnumVal:
		en, err := fr.pop()
		if err != nil {
			return nil, false, err
		}
		e, ok := en.(*runtime.Enum)
		if !ok {
			return nil, false, newError(ReasonUnexpectedType, fr.SourcePointer(), "NEW_ENUM_VAL target is not an enum")
		}
		name, err := mod.constantString(uint16(ins.Arg0))
		if err != nil {
			return nil, false, err
		}
		c, ok := e.CaseByName(name)
		if !ok {
			return nil, false, newError(ReasonNoSuchCase, fr.SourcePointer(), "enum %s has no case %q", e.Name, name)
		}
		var payload runtime.Value
		if c.PayloadType != nil {
			payload, err = fr.pop()
			if err != nil {
				return nil, false, err
			}
		}
		fr.push(runtime.NewEnumValue(e, c, payload))
	case isa.EnumCheckIsCase:
		v, err := fr.pop()
		if err != nil {
			return nil, false, err
		}
		ev, ok := v.(*runtime.EnumValue)
		if !ok {
			return nil, false, newError(ReasonUnexpectedType, fr.SourcePointer(), "ENUM_CHECK_IS_CASE operand is not an enum value")
		}
		name, err := mod.constantString(uint16(ins.Arg0))
		if err != nil {
			return nil, false, err
		}
		fr.push(runtime.NewBoolean(ev.Case.Name == name))
	case isa.EnumExtractPayload:
		v, err := fr.pop()
		if err != nil {
			return nil, false, err
		}
		ev, ok := v.(*runtime.EnumValue)
		if !ok {
			return nil, false, newError(ReasonUnexpectedType, fr.SourcePointer(), "ENUM_EXTRACT_PAYLOAD operand is not an enum value")
		}
		if ev.Payload == nil {
			return nil, false, newError(ReasonEnumWithoutPayload, fr.SourcePointer(), "case %s has no payload", ev.Case.Name)
		}
		fr.push(ev.Payload)

	case isa.Assert:
		v, err := fr.pop()
		if err != nil {
			return nil, false, err
		}
		if !truthy(v) {
			msg, _ := mod.constantString(uint16(ins.Arg0))
			return nil, false, newError(ReasonAssertFailed, fr.SourcePointer(), "%s", msg)
		}
	case isa.Halt:
		return runtime.TheUnit, true, nil

	case isa.Import, isa.LiftModule, isa.LoadDylib:
		// module-graph wiring is not done at the instruction level: nothing
		// in this module resolves import paths for the dispatch loop, and
		// ModuleLoader/PluginRegistry are not driven from here, so these
		// opcodes always fail with an explicit error.
		return nil, false, newError(ReasonUnexpectedVmState, fr.SourcePointer(), "opcode %s requires program-level module linking", ins.Op)

	default:
		return nil, false, newError(ReasonUnknownOpcode, fr.SourcePointer(), "unknown opcode %s", ins.Op).withOpcode(ins.Op)
	}

	return nil, false, nil
}

func (fr *Frame) setLocalTyped(slot int, v runtime.Value) error {
	if slot >= len(fr.Locals) {
		return newError(ReasonUplevelOutOfBounds, fr.SourcePointer(), "local slot %d out of range", slot)
	}
	if slot < len(fr.LocalTypes) {
		if ty := fr.LocalTypes[slot]; ty != nil && !ty.Check(v) {
			return newError(ReasonUnexpectedType, fr.SourcePointer(), "value of kind %s does not satisfy declared type %s", v.Kind(), ty.String())
		}
	}
	fr.Locals[slot] = v
	return nil
}

func (th *Thread) binArith(fr *Frame, op isa.Opcode) error {
	b, err := fr.pop()
	if err != nil {
		return err
	}
	a, err := fr.pop()
	if err != nil {
		return err
	}
	name := arithName(op)
	v, err := runtime.BinArith(name, a, b, th.Invoke)
	if err != nil {
		return newError(ReasonOperationFailed, fr.SourcePointer(), "%v", err)
	}
	fr.push(v)
	return nil
}

func arithName(op isa.Opcode) string {
	switch op {
	case isa.Add:
		return "add"
	case isa.Sub:
		return "sub"
	case isa.Mul:
		return "mul"
	case isa.Div:
		return "div"
	case isa.Rem:
		return "rem"
	case isa.Shl:
		return "lshift"
	case isa.Shr:
		return "rshift"
	case isa.BitwiseAnd:
		return "bwand"
	case isa.BitwiseOr:
		return "bwor"
	case isa.Xor:
		return "xor"
	}
	return ""
}

func (th *Thread) binRel(fr *Frame, op isa.Opcode) error {
	b, err := fr.pop()
	if err != nil {
		return err
	}
	a, err := fr.pop()
	if err != nil {
		return err
	}
	name, opposite := relNames(op)
	v, err := runtime.BinRel(name, opposite, a, b, th.Invoke)
	if err != nil {
		return newError(ReasonOperationFailed, fr.SourcePointer(), "%v", err)
	}
	fr.push(v)
	return nil
}

func relNames(op isa.Opcode) (name, opposite string) {
	switch op {
	case isa.Lt:
		return "lt", "gt"
	case isa.Gt:
		return "gt", "lt"
	case isa.Lte:
		return "lteq", "gteq"
	case isa.Gte:
		return "gteq", "lteq"
	}
	return "", ""
}

func truthy(v runtime.Value) bool {
	switch b := v.(type) {
	case *runtime.Boolean:
		return b.V
	case nil:
		return false
	default:
		return true
	}
}

func readIndex(recv, idx runtime.Value) (runtime.Value, error) {
	list, ok := recv.(*runtime.List)
	if !ok {
		return nil, newError(ReasonUnexpectedType, unknownLoc(), "value of kind %s is not indexable", recv.Kind())
	}
	i, ok := idx.(*runtime.Integer)
	if !ok {
		return nil, newError(ReasonUnexpectedType, unknownLoc(), "index is not an Int")
	}
	n := int64(len(list.Items))
	pos := i.V
	if pos < 0 {
		pos += n
	}
	if pos < 0 || pos >= n {
		return nil, newError(ReasonIndexOutOfBounds, unknownLoc(), "index %d out of bounds", i.V)
	}
	return list.Items[pos], nil
}

func writeIndex(recv, idx, v runtime.Value) error {
	list, ok := recv.(*runtime.List)
	if !ok {
		return newError(ReasonUnexpectedType, unknownLoc(), "value of kind %s is not indexable", recv.Kind())
	}
	i, ok := idx.(*runtime.Integer)
	if !ok {
		return newError(ReasonUnexpectedType, unknownLoc(), "index is not an Int")
	}
	n := int64(len(list.Items))
	pos := i.V
	if pos < 0 {
		pos += n
	}
	if pos < 0 || pos >= n {
		return newError(ReasonIndexOutOfBounds, unknownLoc(), "index %d out of bounds", i.V)
	}
	list.Items[pos] = v
	return nil
}

// readAttribute performs attribute lookup with auto-binding: if the
// resolved attribute is a user-declared *runtime.Function flagged as a
// method, it is wrapped in a BoundMethod against recv before being
// returned.
func (th *Thread) readAttribute(recv runtime.Value, name string) (runtime.Value, error) {
	ha, ok := recv.(runtime.HasAttrs)
	if !ok {
		return nil, newError(ReasonUnexpectedType, unknownLoc(), "value of kind %s has no attributes", recv.Kind())
	}
	v, ok := ha.GetAttr(name)
	if !ok {
		return nil, newError(ReasonNoSuchIdentifier, unknownLoc(), "no such attribute %q on %s", name, recv.Kind())
	}
	if c, ok := v.(*runtime.Closure); ok && isMethod(c.Fn) {
		return &runtime.BoundMethod{Receiver: recv, Fn: c}, nil
	}
	return v, nil
}

func (th *Thread) pushRuntimeValue(id uint8) (runtime.Value, error) {
	switch id {
	case 1: // RUNTIME_VALUE_THIS_MODULE
		fr := th.currentFrame()
		if fr == nil {
			return nil, newError(ReasonUnexpectedVmState, unknownLoc(), "no active frame for this-module lookup")
		}
		return runtime.NewString(fr.Closure.Fn.ModuleName), nil
	default:
		return nil, newError(ReasonUnexpectedVmState, unknownLoc(), "unknown runtime value id %d", id)
	}
}
