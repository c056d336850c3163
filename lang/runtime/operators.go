package runtime

import "fmt"

// UnexpectedType is returned when an operator dispatch exhausts every
// fallback without finding an implementation, mirroring
// VmErrorReason::UnexpectedType.
type UnexpectedType struct {
	Op string
}

func (e *UnexpectedType) Error() string { return fmt.Sprintf("unexpected type for operator %s", e.Op) }

// lookupOpImpl finds the operator overload a value provides via an
// _op_impl_<name> style attribute lookup. Builtin scalars
// implement their operators natively (fastArith/fastRel below); Objects,
// Enums and Mixins reach overloadable only through their attribute maps.
func lookupOpImpl(v Value, name string) (Callable, bool) {
	ha, ok := v.(HasAttrs)
	if !ok {
		return nil, false
	}
	attr, ok := ha.GetAttr("_op_impl_" + name)
	if !ok {
		return nil, false
	}
	c, ok := attr.(Callable)
	return c, ok
}

func callUnary(c Callable, recv Value, invoke func(Callable, []Value) (Value, error)) (Value, error) {
	return invoke(c, []Value{recv})
}

func callBinary(c Callable, a, b Value, invoke func(Callable, []Value) (Value, error)) (Value, error) {
	return invoke(c, []Value{a, b})
}

// Invoke is supplied by the VM (or tests) to perform an actual call of a
// resolved Callable, since runtime has no notion of a call stack.
type Invoke func(c Callable, args []Value) (Value, error)

// BinArith dispatches one of the r-prefixed-fallback arithmetic/bitwise/
// shift operators (add, sub, mul, div, rem, lshift, rshift, bwand, bwor,
// xor), matching bin_op_impl!: try lhs's fast native path, then lhs's
// _op_impl_<name>, then rhs's _op_impl_r<name>.
func BinArith(name string, a, b Value, invoke Invoke) (Value, error) {
	if v, ok, err := fastArith(name, a, b); ok || err != nil {
		return v, err
	}
	if impl, ok := lookupOpImpl(a, name); ok {
		return callBinary(impl, a, b, invoke)
	}
	if impl, ok := lookupOpImpl(b, "r"+name); ok {
		return callBinary(impl, b, a, invoke)
	}
	return nil, &UnexpectedType{Op: name}
}

// BinRel dispatches one of the opposite-operator-fallback relational
// operators (lt, gt, lteq, gteq), matching rel_op_impl!: try lhs's fast
// native path, then lhs's _op_impl_<name>, then rhs's
// _op_impl_<opposite>(b, a) — NOT an r-prefixed name.
func BinRel(name, opposite string, a, b Value, invoke Invoke) (Value, error) {
	if v, ok, err := fastRel(name, a, b); ok || err != nil {
		return v, err
	}
	if impl, ok := lookupOpImpl(a, name); ok {
		return callBinary(impl, a, b, invoke)
	}
	if impl, ok := lookupOpImpl(b, opposite); ok {
		return callBinary(impl, b, a, invoke)
	}
	return nil, &UnexpectedType{Op: name}
}

// UnaryOp dispatches a unary operator (presently only neg): a single
// lookup on the operand with no reverse fallback.
func UnaryOp(name string, a Value, invoke Invoke) (Value, error) {
	if v, ok, err := fastUnary(name, a); ok || err != nil {
		return v, err
	}
	if impl, ok := lookupOpImpl(a, name); ok {
		return callUnary(impl, a, invoke)
	}
	return nil, &UnexpectedType{Op: name}
}

// fastArith implements the native Int/Float fast paths; ok is false when
// neither operand is a builtin numeric and the caller should fall back to
// overload lookup.
func fastArith(name string, a, b Value) (Value, bool, error) {
	ai, aIsInt := a.(*Integer)
	bi, bIsInt := b.(*Integer)
	af, aIsFloat := a.(*Float)
	bf, bIsFloat := b.(*Float)

	switch {
	case aIsInt && bIsInt:
		return fastIntArith(name, ai.V, bi.V)
	case (aIsInt || aIsFloat) && (bIsInt || bIsFloat):
		var x, y float64
		if aIsInt {
			x = float64(ai.V)
		} else {
			x = af.V
		}
		if bIsInt {
			y = float64(bi.V)
		} else {
			y = bf.V
		}
		return fastFloatArith(name, x, y)
	default:
		return nil, false, nil
	}
}

func fastIntArith(name string, x, y int64) (Value, bool, error) {
	switch name {
	case "add":
		return NewInteger(x + y), true, nil
	case "sub":
		return NewInteger(x - y), true, nil
	case "mul":
		return NewInteger(x * y), true, nil
	case "div":
		if y == 0 {
			return nil, true, fmt.Errorf("division by zero")
		}
		return NewInteger(x / y), true, nil
	case "rem":
		if y == 0 {
			return nil, true, fmt.Errorf("division by zero")
		}
		return NewInteger(x % y), true, nil
	case "lshift":
		return NewInteger(x << uint(y)), true, nil
	case "rshift":
		return NewInteger(x >> uint(y)), true, nil
	case "bwand":
		return NewInteger(x & y), true, nil
	case "bwor":
		return NewInteger(x | y), true, nil
	case "xor":
		return NewInteger(x ^ y), true, nil
	default:
		return nil, false, nil
	}
}

func fastFloatArith(name string, x, y float64) (Value, bool, error) {
	switch name {
	case "add":
		return NewFloat(x + y), true, nil
	case "sub":
		return NewFloat(x - y), true, nil
	case "mul":
		return NewFloat(x * y), true, nil
	case "div":
		if y == 0 {
			return nil, true, fmt.Errorf("division by zero")
		}
		return NewFloat(x / y), true, nil
	default:
		// rem/shift/bitwise are integer-only; fall back to overload lookup.
		return nil, false, nil
	}
}

func fastRel(name string, a, b Value) (Value, bool, error) {
	x, okx := numericValue(a)
	y, oky := numericValue(b)
	if !okx || !oky {
		if as, ok1 := a.(*String); ok1 {
			if bs, ok2 := b.(*String); ok2 {
				return NewBoolean(stringCompare(name, as.V, bs.V)), true, nil
			}
		}
		return nil, false, nil
	}
	var r bool
	switch name {
	case "lt":
		r = x < y
	case "gt":
		r = x > y
	case "lteq":
		r = x <= y
	case "gteq":
		r = x >= y
	default:
		return nil, false, nil
	}
	return NewBoolean(r), true, nil
}

func stringCompare(name, x, y string) bool {
	switch name {
	case "lt":
		return x < y
	case "gt":
		return x > y
	case "lteq":
		return x <= y
	case "gteq":
		return x >= y
	}
	return false
}

func numericValue(v Value) (float64, bool) {
	switch n := v.(type) {
	case *Integer:
		return float64(n.V), true
	case *Float:
		return n.V, true
	default:
		return 0, false
	}
}

func fastUnary(name string, a Value) (Value, bool, error) {
	if name != "neg" {
		return nil, false, nil
	}
	switch n := a.(type) {
	case *Integer:
		return NewInteger(-n.V), true, nil
	case *Float:
		return NewFloat(-n.V), true, nil
	default:
		return nil, false, nil
	}
}

// Equals implements RuntimeValue::equals, which never errors: try lhs's
// _op_impl_equals, fall back to builtinEquals on a failed lookup, and
// finally try rhs's _op_impl_equals if lhs and rhs are of different
// native Go types.
func Equals(a, b Value, invoke Invoke) bool {
	if impl, ok := lookupOpImpl(a, "equals"); ok {
		v, err := callBinary(impl, a, b, invoke)
		if err == nil {
			if bo, ok := v.(*Boolean); ok {
				return bo.V
			}
		}
	}
	if sameKind(a, b) {
		return builtinEquals(a, b, invoke)
	}
	if impl, ok := lookupOpImpl(b, "equals"); ok {
		v, err := callBinary(impl, b, a, invoke)
		if err == nil {
			if bo, ok := v.(*Boolean); ok {
				return bo.V
			}
		}
	}
	return builtinEquals(a, b, invoke)
}

func sameKind(a, b Value) bool {
	return fmt.Sprintf("%T", a) == fmt.Sprintf("%T", b)
}

// builtinEquals is the structural fallback for values without a custom
// _op_impl_equals: scalars compare by value, Lists compare elementwise
// (recursively, via Equals), EnumValues compare by case + payload,
// Objects and everything else compare by identity.
func builtinEquals(a, b Value, invoke Invoke) bool {
	switch av := a.(type) {
	case *Integer:
		bv, ok := b.(*Integer)
		return ok && av.V == bv.V
	case *Float:
		bv, ok := b.(*Float)
		return ok && av.V == bv.V
	case *String:
		bv, ok := b.(*String)
		return ok && av.V == bv.V
	case *Boolean:
		bv, ok := b.(*Boolean)
		return ok && av.V == bv.V
	case *List:
		bv, ok := b.(*List)
		if !ok || len(av.Items) != len(bv.Items) {
			return false
		}
		for i := range av.Items {
			if !Equals(av.Items[i], bv.Items[i], invoke) {
				return false
			}
		}
		return true
	case *EnumValue:
		bv, ok := b.(*EnumValue)
		if !ok {
			return false
		}
		return av.Equal(bv, func(x, y Value) bool { return Equals(x, y, invoke) })
	default:
		return a == b
	}
}
