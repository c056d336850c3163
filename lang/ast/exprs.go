package ast

import (
	"fmt"

	"github.com/mna/aria/lang/source"
)

// Unwrap strips surrounding no-op wrapping; aria's grammar has no ParenExpr
// of its own (parentheses only group, they don't produce a node), so this
// currently just returns e. Kept for parity with call sites that mirror
// the teacher's IsAssignable-style helpers below.
func Unwrap(e Expr) Expr { return e }

// IsAssignable reports whether e is a valid assignment/declaration target:
// an identifier, an attribute access, or an index expression.
func IsAssignable(e Expr) bool {
	switch e.(type) {
	case *Ident, *AttrExpr, *IndexExpr:
		return true
	default:
		return false
	}
}

type (
	// Ident represents an identifier reference.
	Ident struct {
		Name string
		Loc  source.Pointer
	}

	// IntLit represents an integer literal.
	IntLit struct {
		Value int64
		Loc   source.Pointer
	}

	// FloatLit represents a floating-point literal.
	FloatLit struct {
		Value float64
		Loc   source.Pointer
	}

	// StringLit represents a string literal.
	StringLit struct {
		Value string
		Loc   source.Pointer
	}

	// BoolLit represents the true/false literals.
	BoolLit struct {
		Value bool
		Loc   source.Pointer
	}

	// UnitLit represents the unit value literal, ().
	UnitLit struct {
		Loc source.Pointer
	}

	// ListExpr represents a list literal, e.g. [1, 2, 3].
	ListExpr struct {
		Items []Expr
		Loc   source.Pointer
	}

	// BinaryExpr represents an arithmetic, bitwise, relational, or equality
	// binary operator expression. Op is one of the primitive operator names
	// used to look up _op_impl_<op> (add, sub, mul, div, rem, shl, shr,
	// bwand, bwor, xor, eq, lt, gt, lte, gte).
	BinaryExpr struct {
		Op    string
		Left  Expr
		Right Expr
		Loc   source.Pointer
	}

	// LogicalExpr represents a short-circuiting && or || expression.
	LogicalExpr struct {
		Op    string // "&&" or "||"
		Left  Expr
		Right Expr
		Loc   source.Pointer
	}

	// UnaryExpr represents a unary operator expression (negation or
	// boolean not).
	UnaryExpr struct {
		Op  string // "neg" or "not"
		X   Expr
		Loc source.Pointer
	}

	// CallExpr represents a function or bound-method call, e.g. f(x, y).
	CallExpr struct {
		Fn   Expr
		Args []Expr
		Loc  source.Pointer
	}

	// IndexExpr represents an index expression, e.g. x[y].
	IndexExpr struct {
		X     Expr
		Index Expr
		Loc   source.Pointer
	}

	// AttrExpr represents an attribute access, e.g. x.y.
	AttrExpr struct {
		X    Expr
		Name string
		Loc  source.Pointer
	}

	// EnumConstructExpr represents an enum case construction, e.g.
	// E::Some(7).
	EnumConstructExpr struct {
		Enum Expr
		Case string
		Args []Expr
		Loc  source.Pointer
	}

	// IsaExpr represents an `x isa T` type-predicate expression.
	IsaExpr struct {
		X    Expr
		Type Expr
		Loc  source.Pointer
	}

	// TryUnwrapExpr represents a postfix `x?` expression. It compiles to a
	// call of x's `unwrap` attribute and evaluates to that call's result; it
	// does not return early from the enclosing function.
	TryUnwrapExpr struct {
		X   Expr
		Loc source.Pointer
	}

	// TypeRefExpr names a builtin, struct, enum, or mixin type by name in a
	// type-annotation position (parameter types, val types, isa checks).
	TypeRefExpr struct {
		Name string
		Loc  source.Pointer
	}

	// UnionTypeExpr represents a `T1 | T2 | ...` type annotation.
	UnionTypeExpr struct {
		Members []Expr
		Loc     source.Pointer
	}
)

func (*Ident) expr()             {}
func (*IntLit) expr()            {}
func (*FloatLit) expr()          {}
func (*StringLit) expr()         {}
func (*BoolLit) expr()           {}
func (*UnitLit) expr()           {}
func (*ListExpr) expr()          {}
func (*BinaryExpr) expr()        {}
func (*LogicalExpr) expr()       {}
func (*UnaryExpr) expr()         {}
func (*CallExpr) expr()          {}
func (*IndexExpr) expr()         {}
func (*AttrExpr) expr()          {}
func (*EnumConstructExpr) expr() {}
func (*IsaExpr) expr()           {}
func (*TryUnwrapExpr) expr()     {}
func (*TypeRefExpr) expr()       {}
func (*UnionTypeExpr) expr()     {}

func (n *Ident) Span() source.Pointer             { return n.Loc }
func (n *IntLit) Span() source.Pointer            { return n.Loc }
func (n *FloatLit) Span() source.Pointer          { return n.Loc }
func (n *StringLit) Span() source.Pointer         { return n.Loc }
func (n *BoolLit) Span() source.Pointer           { return n.Loc }
func (n *UnitLit) Span() source.Pointer           { return n.Loc }
func (n *ListExpr) Span() source.Pointer          { return n.Loc }
func (n *BinaryExpr) Span() source.Pointer        { return n.Loc }
func (n *LogicalExpr) Span() source.Pointer       { return n.Loc }
func (n *UnaryExpr) Span() source.Pointer         { return n.Loc }
func (n *CallExpr) Span() source.Pointer          { return n.Loc }
func (n *IndexExpr) Span() source.Pointer         { return n.Loc }
func (n *AttrExpr) Span() source.Pointer          { return n.Loc }
func (n *EnumConstructExpr) Span() source.Pointer { return n.Loc }
func (n *IsaExpr) Span() source.Pointer           { return n.Loc }
func (n *TryUnwrapExpr) Span() source.Pointer     { return n.Loc }
func (n *TypeRefExpr) Span() source.Pointer       { return n.Loc }
func (n *UnionTypeExpr) Span() source.Pointer     { return n.Loc }

func (n *Ident) Format(f fmt.State, verb rune)     { format(f, verb, n, "ident "+n.Name, nil) }
func (n *IntLit) Format(f fmt.State, verb rune)    { format(f, verb, n, fmt.Sprintf("int %d", n.Value), nil) }
func (n *FloatLit) Format(f fmt.State, verb rune)  { format(f, verb, n, fmt.Sprintf("float %v", n.Value), nil) }
func (n *StringLit) Format(f fmt.State, verb rune) { format(f, verb, n, fmt.Sprintf("string %q", n.Value), nil) }
func (n *BoolLit) Format(f fmt.State, verb rune)   { format(f, verb, n, fmt.Sprintf("bool %v", n.Value), nil) }
func (n *UnitLit) Format(f fmt.State, verb rune)   { format(f, verb, n, "unit", nil) }
func (n *ListExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "list", map[string]int{"items": len(n.Items)})
}
func (n *BinaryExpr) Format(f fmt.State, verb rune)  { format(f, verb, n, "binop "+n.Op, nil) }
func (n *LogicalExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "logical "+n.Op, nil) }
func (n *UnaryExpr) Format(f fmt.State, verb rune)   { format(f, verb, n, "unop "+n.Op, nil) }
func (n *CallExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "call", map[string]int{"args": len(n.Args)})
}
func (n *IndexExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "index", nil) }
func (n *AttrExpr) Format(f fmt.State, verb rune)  { format(f, verb, n, "attr "+n.Name, nil) }
func (n *EnumConstructExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "enum-construct "+n.Case, map[string]int{"args": len(n.Args)})
}
func (n *IsaExpr) Format(f fmt.State, verb rune)       { format(f, verb, n, "isa", nil) }
func (n *TryUnwrapExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "try-unwrap", nil) }
func (n *TypeRefExpr) Format(f fmt.State, verb rune)   { format(f, verb, n, "type "+n.Name, nil) }
func (n *UnionTypeExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "union-type", map[string]int{"members": len(n.Members)})
}

func (n *Ident) Walk(v Visitor)     { leaf(v, n) }
func (n *IntLit) Walk(v Visitor)    { leaf(v, n) }
func (n *FloatLit) Walk(v Visitor)  { leaf(v, n) }
func (n *StringLit) Walk(v Visitor) { leaf(v, n) }
func (n *BoolLit) Walk(v Visitor)   { leaf(v, n) }
func (n *UnitLit) Walk(v Visitor)   { leaf(v, n) }
func (n *TypeRefExpr) Walk(v Visitor) { leaf(v, n) }

func (n *ListExpr) Walk(v Visitor) {
	if v = v.Visit(n, VisitEnter); v == nil {
		return
	}
	for _, it := range n.Items {
		Walk(v, it)
	}
	v.Visit(n, VisitExit)
}

func (n *BinaryExpr) Walk(v Visitor) {
	if v = v.Visit(n, VisitEnter); v == nil {
		return
	}
	Walk(v, n.Left)
	Walk(v, n.Right)
	v.Visit(n, VisitExit)
}

func (n *LogicalExpr) Walk(v Visitor) {
	if v = v.Visit(n, VisitEnter); v == nil {
		return
	}
	Walk(v, n.Left)
	Walk(v, n.Right)
	v.Visit(n, VisitExit)
}

func (n *UnaryExpr) Walk(v Visitor) {
	if v = v.Visit(n, VisitEnter); v == nil {
		return
	}
	Walk(v, n.X)
	v.Visit(n, VisitExit)
}

func (n *CallExpr) Walk(v Visitor) {
	if v = v.Visit(n, VisitEnter); v == nil {
		return
	}
	Walk(v, n.Fn)
	for _, a := range n.Args {
		Walk(v, a)
	}
	v.Visit(n, VisitExit)
}

func (n *IndexExpr) Walk(v Visitor) {
	if v = v.Visit(n, VisitEnter); v == nil {
		return
	}
	Walk(v, n.X)
	Walk(v, n.Index)
	v.Visit(n, VisitExit)
}

func (n *AttrExpr) Walk(v Visitor) {
	if v = v.Visit(n, VisitEnter); v == nil {
		return
	}
	Walk(v, n.X)
	v.Visit(n, VisitExit)
}

func (n *EnumConstructExpr) Walk(v Visitor) {
	if v = v.Visit(n, VisitEnter); v == nil {
		return
	}
	Walk(v, n.Enum)
	for _, a := range n.Args {
		Walk(v, a)
	}
	v.Visit(n, VisitExit)
}

func (n *IsaExpr) Walk(v Visitor) {
	if v = v.Visit(n, VisitEnter); v == nil {
		return
	}
	Walk(v, n.X)
	Walk(v, n.Type)
	v.Visit(n, VisitExit)
}

func (n *TryUnwrapExpr) Walk(v Visitor) {
	if v = v.Visit(n, VisitEnter); v == nil {
		return
	}
	Walk(v, n.X)
	v.Visit(n, VisitExit)
}

func (n *UnionTypeExpr) Walk(v Visitor) {
	if v = v.Visit(n, VisitEnter); v == nil {
		return
	}
	for _, m := range n.Members {
		Walk(v, m)
	}
	v.Visit(n, VisitExit)
}

// leaf visits a childless node: enter then immediately exit, matching Walk's
// enter/exit contract for nodes with no descendants to recurse into.
func leaf(v Visitor, n Node) {
	if v = v.Visit(n, VisitEnter); v == nil {
		return
	}
	v.Visit(n, VisitExit)
}
