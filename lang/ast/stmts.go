package ast

import (
	"fmt"

	"github.com/mna/aria/lang/source"
)

type (
	// ExprStmt represents an expression evaluated for its side effect.
	ExprStmt struct {
		X   Expr
		Loc source.Pointer
	}

	// ValStmt represents a local (or module-level) binding declaration,
	// e.g. val x = 2 + 3, or val x: Int = 2 + 3 when Type is set.
	ValStmt struct {
		Name  string
		Type  Expr // optional type annotation, nil if untyped
		Value Expr
		Loc   source.Pointer
	}

	// AssignStmt represents an assignment to an existing binding, index, or
	// attribute target. Op is "=" for a plain assignment or one of the
	// augmented forms ("+=", "-=", ...); augmented assignment is rewritten
	// to `x = x op y` during lowering, never at parse time.
	AssignStmt struct {
		Target Expr
		Op     string
		Value  Expr
		Loc    source.Pointer
	}

	// IfClause is one `if`/`elif` condition-body pair.
	IfClause struct {
		Cond Expr
		Body *Block
	}

	// IfStmt represents an if/elif/.../else chain.
	IfStmt struct {
		Clauses []IfClause
		Else    *Block // nil if no else
		Loc     source.Pointer
	}

	// WhileStmt represents a while loop.
	WhileStmt struct {
		Cond Expr
		Body *Block
		Loc  source.Pointer
	}

	// ForStmt represents a for-in loop over an iterable, binding Var to
	// each element.
	ForStmt struct {
		Var  string
		Iter Expr
		Body *Block
		Loc  source.Pointer
	}

	// MatchCase is one `case Name[(binding)] [if guard] => body` rule of a
	// match statement.
	MatchCase struct {
		Case    string
		Binding string // "" if the case pattern binds no payload
		Guard   Expr   // optional, nil if absent
		Body    *Block
	}

	// MatchStmt represents a match statement over an enum-valued scrutinee.
	MatchStmt struct {
		Scrutinee Expr
		Cases     []MatchCase
		Else      *Block // optional catch-all arm, nil if absent
		Loc       source.Pointer
	}

	// TryStmt represents a try/catch block.
	TryStmt struct {
		Body     *Block
		CatchVar string
		Catch    *Block
		Loc      source.Pointer
	}

	// GuardStmt represents a guard block: Guard is evaluated and its value
	// discarded before the body runs between GuardEnter and GuardExit. No
	// guard_exit attribute is looked up or invoked, neither when the body
	// finishes nor when an exception unwinds through it.
	GuardStmt struct {
		Guard Expr
		Body  *Block
		Loc   source.Pointer
	}

	// ThrowStmt throws Value as an exception.
	ThrowStmt struct {
		Value Expr
		Loc   source.Pointer
	}

	// ReturnStmt returns Value (nil means returning the unit value).
	ReturnStmt struct {
		Value Expr
		Loc   source.Pointer
	}

	// BreakStmt exits the nearest enclosing loop.
	BreakStmt struct{ Loc source.Pointer }

	// ContinueStmt jumps to the nearest enclosing loop's condition.
	ContinueStmt struct{ Loc source.Pointer }

	// ImportStmt imports a dotted module path. Star marks `import * from p`.
	ImportStmt struct {
		Path string
		Star bool
		Loc  source.Pointer
	}

	// Param is one function parameter: a name, optional type annotation,
	// and optional default value (Optional is true when Default is set).
	Param struct {
		Name     string
		Type     Expr
		Optional bool
		Default  Expr
	}

	// FuncDecl represents a function or method declaration.
	FuncDecl struct {
		Name              string
		Params            []Param
		Vararg            bool
		IsMethod          bool // bound to an instance receiver (first param is implicit self)
		IsTypeMethod      bool // bound to the type itself rather than an instance
		Body              *Block
		Loc               source.Pointer
	}

	// FieldDecl declares a struct/mixin attribute slot with its type.
	FieldDecl struct {
		Name string
		Type Expr
		Loc  source.Pointer
	}

	// IncludeDecl includes a mixin's members into the enclosing struct,
	// enum, or mixin declaration.
	IncludeDecl struct {
		MixinName string
		Loc       source.Pointer
	}

	// StructDecl declares a struct type. Methods is a dedicated slice (as
	// opposed to a single untyped Members list) because lowering needs to
	// bind each one with BindMethod distinctly from fields and includes.
	StructDecl struct {
		Name     string
		Fields   []*FieldDecl
		Methods  []*FuncDecl
		Includes []*IncludeDecl
		Loc      source.Pointer
	}

	// EnumCaseDecl declares one case of an enum, with an optional payload
	// type (nil for a payload-less case).
	EnumCaseDecl struct {
		Name    string
		Payload Expr
		Loc     source.Pointer
	}

	// EnumDecl declares an enum type. The compiler additionally synthesizes
	// an is_<case> helper method for each case, and an unwrap_<case> helper
	// method for each case that carries a payload (§4.4).
	EnumDecl struct {
		Name     string
		Cases    []*EnumCaseDecl
		Methods  []*FuncDecl
		Includes []*IncludeDecl
		Loc      source.Pointer
	}

	// MixinDecl declares a mixin type: a named bundle of methods and fields
	// that structs/enums can include.
	MixinDecl struct {
		Name    string
		Fields  []*FieldDecl
		Methods []*FuncDecl
		Loc     source.Pointer
	}
)

func (*ExprStmt) stmtNode()     {}
func (*ValStmt) stmtNode()      {}
func (*AssignStmt) stmtNode()   {}
func (*IfStmt) stmtNode()       {}
func (*WhileStmt) stmtNode()    {}
func (*ForStmt) stmtNode()      {}
func (*MatchStmt) stmtNode()    {}
func (*TryStmt) stmtNode()      {}
func (*GuardStmt) stmtNode()    {}
func (*ThrowStmt) stmtNode()    {}
func (*ReturnStmt) stmtNode()   {}
func (*BreakStmt) stmtNode()    {}
func (*ContinueStmt) stmtNode() {}
func (*ImportStmt) stmtNode()   {}
func (*FuncDecl) stmtNode()     {}
func (*StructDecl) stmtNode()   {}
func (*EnumDecl) stmtNode()     {}
func (*MixinDecl) stmtNode()    {}

func (n *ExprStmt) BlockEnding() bool     { return false }
func (n *ValStmt) BlockEnding() bool      { return false }
func (n *AssignStmt) BlockEnding() bool   { return false }
func (n *IfStmt) BlockEnding() bool       { return false }
func (n *WhileStmt) BlockEnding() bool    { return false }
func (n *ForStmt) BlockEnding() bool      { return false }
func (n *MatchStmt) BlockEnding() bool    { return false }
func (n *TryStmt) BlockEnding() bool      { return false }
func (n *GuardStmt) BlockEnding() bool    { return false }
func (n *ThrowStmt) BlockEnding() bool    { return true }
func (n *ReturnStmt) BlockEnding() bool   { return true }
func (n *BreakStmt) BlockEnding() bool    { return true }
func (n *ContinueStmt) BlockEnding() bool { return true }
func (n *ImportStmt) BlockEnding() bool   { return false }
func (n *FuncDecl) BlockEnding() bool     { return false }
func (n *StructDecl) BlockEnding() bool   { return false }
func (n *EnumDecl) BlockEnding() bool     { return false }
func (n *MixinDecl) BlockEnding() bool    { return false }

func (n *ExprStmt) Span() source.Pointer     { return n.Loc }
func (n *ValStmt) Span() source.Pointer      { return n.Loc }
func (n *AssignStmt) Span() source.Pointer   { return n.Loc }
func (n *IfStmt) Span() source.Pointer       { return n.Loc }
func (n *WhileStmt) Span() source.Pointer    { return n.Loc }
func (n *ForStmt) Span() source.Pointer      { return n.Loc }
func (n *MatchStmt) Span() source.Pointer    { return n.Loc }
func (n *TryStmt) Span() source.Pointer      { return n.Loc }
func (n *GuardStmt) Span() source.Pointer    { return n.Loc }
func (n *ThrowStmt) Span() source.Pointer    { return n.Loc }
func (n *ReturnStmt) Span() source.Pointer   { return n.Loc }
func (n *BreakStmt) Span() source.Pointer    { return n.Loc }
func (n *ContinueStmt) Span() source.Pointer { return n.Loc }
func (n *ImportStmt) Span() source.Pointer   { return n.Loc }
func (n *FuncDecl) Span() source.Pointer     { return n.Loc }
func (n *FieldDecl) Span() source.Pointer    { return n.Loc }
func (n *IncludeDecl) Span() source.Pointer  { return n.Loc }
func (n *StructDecl) Span() source.Pointer   { return n.Loc }
func (n *EnumCaseDecl) Span() source.Pointer { return n.Loc }
func (n *EnumDecl) Span() source.Pointer     { return n.Loc }
func (n *MixinDecl) Span() source.Pointer    { return n.Loc }

func (n *ExprStmt) Format(f fmt.State, verb rune)   { format(f, verb, n, "expr-stmt", nil) }
func (n *ValStmt) Format(f fmt.State, verb rune)    { format(f, verb, n, "val "+n.Name, nil) }
func (n *AssignStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "assign "+n.Op, nil) }
func (n *IfStmt) Format(f fmt.State, verb rune) {
	format(f, verb, n, "if", map[string]int{"clauses": len(n.Clauses)})
}
func (n *WhileStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "while", nil) }
func (n *ForStmt) Format(f fmt.State, verb rune)   { format(f, verb, n, "for "+n.Var, nil) }
func (n *MatchStmt) Format(f fmt.State, verb rune) {
	format(f, verb, n, "match", map[string]int{"cases": len(n.Cases)})
}
func (n *TryStmt) Format(f fmt.State, verb rune)      { format(f, verb, n, "try", nil) }
func (n *GuardStmt) Format(f fmt.State, verb rune)    { format(f, verb, n, "guard", nil) }
func (n *ThrowStmt) Format(f fmt.State, verb rune)    { format(f, verb, n, "throw", nil) }
func (n *ReturnStmt) Format(f fmt.State, verb rune)   { format(f, verb, n, "return", nil) }
func (n *BreakStmt) Format(f fmt.State, verb rune)    { format(f, verb, n, "break", nil) }
func (n *ContinueStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "continue", nil) }
func (n *ImportStmt) Format(f fmt.State, verb rune)   { format(f, verb, n, "import "+n.Path, nil) }
func (n *FuncDecl) Format(f fmt.State, verb rune) {
	format(f, verb, n, "func "+n.Name, map[string]int{"params": len(n.Params)})
}
func (n *FieldDecl) Format(f fmt.State, verb rune)   { format(f, verb, n, "field "+n.Name, nil) }
func (n *IncludeDecl) Format(f fmt.State, verb rune) { format(f, verb, n, "include "+n.MixinName, nil) }
func (n *StructDecl) Format(f fmt.State, verb rune) {
	format(f, verb, n, "struct "+n.Name, map[string]int{"fields": len(n.Fields), "methods": len(n.Methods)})
}
func (n *EnumCaseDecl) Format(f fmt.State, verb rune) { format(f, verb, n, "case "+n.Name, nil) }
func (n *EnumDecl) Format(f fmt.State, verb rune) {
	format(f, verb, n, "enum "+n.Name, map[string]int{"cases": len(n.Cases), "methods": len(n.Methods)})
}
func (n *MixinDecl) Format(f fmt.State, verb rune) {
	format(f, verb, n, "mixin "+n.Name, map[string]int{"fields": len(n.Fields), "methods": len(n.Methods)})
}

func (n *ExprStmt) Walk(v Visitor) {
	if v = v.Visit(n, VisitEnter); v == nil {
		return
	}
	Walk(v, n.X)
	v.Visit(n, VisitExit)
}

func (n *ValStmt) Walk(v Visitor) {
	if v = v.Visit(n, VisitEnter); v == nil {
		return
	}
	if n.Type != nil {
		Walk(v, n.Type)
	}
	Walk(v, n.Value)
	v.Visit(n, VisitExit)
}

func (n *AssignStmt) Walk(v Visitor) {
	if v = v.Visit(n, VisitEnter); v == nil {
		return
	}
	Walk(v, n.Target)
	Walk(v, n.Value)
	v.Visit(n, VisitExit)
}

func (n *IfStmt) Walk(v Visitor) {
	if v = v.Visit(n, VisitEnter); v == nil {
		return
	}
	for _, c := range n.Clauses {
		Walk(v, c.Cond)
		Walk(v, c.Body)
	}
	if n.Else != nil {
		Walk(v, n.Else)
	}
	v.Visit(n, VisitExit)
}

func (n *WhileStmt) Walk(v Visitor) {
	if v = v.Visit(n, VisitEnter); v == nil {
		return
	}
	Walk(v, n.Cond)
	Walk(v, n.Body)
	v.Visit(n, VisitExit)
}

func (n *ForStmt) Walk(v Visitor) {
	if v = v.Visit(n, VisitEnter); v == nil {
		return
	}
	Walk(v, n.Iter)
	Walk(v, n.Body)
	v.Visit(n, VisitExit)
}

func (n *MatchStmt) Walk(v Visitor) {
	if v = v.Visit(n, VisitEnter); v == nil {
		return
	}
	Walk(v, n.Scrutinee)
	for _, c := range n.Cases {
		if c.Guard != nil {
			Walk(v, c.Guard)
		}
		Walk(v, c.Body)
	}
	if n.Else != nil {
		Walk(v, n.Else)
	}
	v.Visit(n, VisitExit)
}

func (n *TryStmt) Walk(v Visitor) {
	if v = v.Visit(n, VisitEnter); v == nil {
		return
	}
	Walk(v, n.Body)
	Walk(v, n.Catch)
	v.Visit(n, VisitExit)
}

func (n *GuardStmt) Walk(v Visitor) {
	if v = v.Visit(n, VisitEnter); v == nil {
		return
	}
	Walk(v, n.Guard)
	Walk(v, n.Body)
	v.Visit(n, VisitExit)
}

func (n *ThrowStmt) Walk(v Visitor) {
	if v = v.Visit(n, VisitEnter); v == nil {
		return
	}
	Walk(v, n.Value)
	v.Visit(n, VisitExit)
}

func (n *ReturnStmt) Walk(v Visitor) {
	if v = v.Visit(n, VisitEnter); v == nil {
		return
	}
	if n.Value != nil {
		Walk(v, n.Value)
	}
	v.Visit(n, VisitExit)
}

func (n *BreakStmt) Walk(v Visitor)    { leaf(v, n) }
func (n *ContinueStmt) Walk(v Visitor) { leaf(v, n) }
func (n *ImportStmt) Walk(v Visitor)   { leaf(v, n) }

func (n *FuncDecl) Walk(v Visitor) {
	if v = v.Visit(n, VisitEnter); v == nil {
		return
	}
	for _, p := range n.Params {
		if p.Type != nil {
			Walk(v, p.Type)
		}
		if p.Default != nil {
			Walk(v, p.Default)
		}
	}
	Walk(v, n.Body)
	v.Visit(n, VisitExit)
}

func (n *FieldDecl) Walk(v Visitor) {
	if v = v.Visit(n, VisitEnter); v == nil {
		return
	}
	if n.Type != nil {
		Walk(v, n.Type)
	}
	v.Visit(n, VisitExit)
}

func (n *IncludeDecl) Walk(v Visitor) { leaf(v, n) }

func (n *StructDecl) Walk(v Visitor) {
	if v = v.Visit(n, VisitEnter); v == nil {
		return
	}
	for _, f := range n.Fields {
		Walk(v, f)
	}
	for _, m := range n.Methods {
		Walk(v, m)
	}
	for _, i := range n.Includes {
		Walk(v, i)
	}
	v.Visit(n, VisitExit)
}

func (n *EnumCaseDecl) Walk(v Visitor) {
	if v = v.Visit(n, VisitEnter); v == nil {
		return
	}
	if n.Payload != nil {
		Walk(v, n.Payload)
	}
	v.Visit(n, VisitExit)
}

func (n *EnumDecl) Walk(v Visitor) {
	if v = v.Visit(n, VisitEnter); v == nil {
		return
	}
	for _, c := range n.Cases {
		Walk(v, c)
	}
	for _, m := range n.Methods {
		Walk(v, m)
	}
	for _, i := range n.Includes {
		Walk(v, i)
	}
	v.Visit(n, VisitExit)
}

func (n *MixinDecl) Walk(v Visitor) {
	if v = v.Visit(n, VisitEnter); v == nil {
		return
	}
	for _, f := range n.Fields {
		Walk(v, f)
	}
	for _, m := range n.Methods {
		Walk(v, m)
	}
	v.Visit(n, VisitExit)
}
