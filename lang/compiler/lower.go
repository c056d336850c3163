package compiler

import (
	"fmt"

	"github.com/mna/aria/lang/ast"
	"github.com/mna/aria/lang/ir"
	"github.com/mna/aria/lang/isa"
	"github.com/mna/aria/lang/runtime"
	"github.com/mna/aria/lang/source"
)

// builtinIDs maps a type-annotation name to its PushBuiltinTy operand, the
// only names the fixed ISA can turn into a runtime.Isa predicate without a
// prior binding: a bare struct/enum/mixin name has no opcode that wraps a
// plain value as a predicate (there is no "make struct-type", "make
// union" instruction in the ground-truthed ISA), so any non-builtin type
// annotation lowers to Any. See DESIGN.md's lowering section for this
// limitation.
var builtinIDs = map[string]uint8{
	"Any":           runtime.BuiltinAny,
	"Int":           runtime.BuiltinInt,
	"List":          runtime.BuiltinList,
	"String":        runtime.BuiltinString,
	"Bool":          runtime.BuiltinBool,
	"Maybe":         runtime.BuiltinMaybe,
	"Float":         runtime.BuiltinFloat,
	"Unimplemented": runtime.BuiltinUnimplemented,
	"RuntimeError":  runtime.BuiltinRuntimeError,
	"Unit":          runtime.BuiltinUnit,
	"Result":        runtime.BuiltinResult,
}

// arithOps maps a BinaryExpr.Op to the arithmetic/bitwise opcode it lowers
// to directly (the fast-path opcodes; operator-overload fallback is the
// VM's job via runtime.BinArith/BinRel, not the compiler's).
var arithOps = map[string]isa.Opcode{
	"add": isa.Add, "sub": isa.Sub, "mul": isa.Mul, "div": isa.Div, "rem": isa.Rem,
	"shl": isa.Shl, "shr": isa.Shr, "bwand": isa.BitwiseAnd, "bwor": isa.BitwiseOr, "xor": isa.Xor,
}

var relOps = map[string]isa.Opcode{
	"eq": isa.Eq, "lt": isa.Lt, "gt": isa.Gt, "lte": isa.Lte, "gte": isa.Gte,
}

// Lowerer compiles a sequence of aria Modules into their bytecode form,
// threading a single constant pool across every module compiled with it
// (matching the VM-level module-loader's memoized-module, shared-program
// model; each module still gets its own CodeObject).
type Lowerer struct {
	Pool *isa.ConstantPool
}

// NewLowerer creates a Lowerer with a fresh constant pool.
func NewLowerer() *Lowerer { return &Lowerer{Pool: &isa.ConstantPool{}} }

// fnCtx threads the pieces AST->IR lowering needs per the compile(params)
// contract: module, scope, builder, control_flow_targets, options. Go's
// lack of a literal "options" bag is stood in for by the Lowerer itself.
type fnCtx struct {
	lw      *Lowerer
	b       *ir.Builder
	scope   *Scope
	nested  *[]*isa.CodeObject
	breakTo *ir.Block
	contTo  *ir.Block
}

func (c *fnCtx) child(scope *Scope) *fnCtx {
	n := *c
	n.scope = scope
	return &n
}

// LowerModule compiles mod's top-level statements into its module-entry
// CodeObject (§4.5's synthetic code object executed once at load time).
func (lw *Lowerer) LowerModule(mod *ast.Module) (*isa.CodeObject, error) {
	scope := NewModuleScope(lw.Pool)
	b := ir.NewBuilder(mod.Name)
	var nested []*isa.CodeObject
	c := &fnCtx{lw: lw, b: b, scope: scope, nested: &nested}

	if mod.Block != nil {
		if err := c.lowerBlock(mod.Block); err != nil {
			return nil, err
		}
	}
	if !b.CurrentBlock().Terminal() {
		b.Emit(isa.Halt, 0, mod.Loc)
	}

	ir.RunOptimizePasses(b, lw.Pool)
	body, lines, err := ir.Linearize(b)
	if err != nil {
		return nil, err
	}
	return &isa.CodeObject{
		Name: mod.Name, Body: body, FrameSize: scope.FrameSize(),
		Lines: lines, NestedFuncs: nested, Loc: mod.Loc,
	}, nil
}

func (c *fnCtx) lowerBlock(blk *ast.Block) error {
	for _, s := range blk.Stmts {
		if err := c.lowerStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (c *fnCtx) lowerStmt(s ast.Stmt) error {
	switch n := s.(type) {
	case *ast.ExprStmt:
		if err := c.lowerExpr(n.X); err != nil {
			return err
		}
		c.b.Emit(isa.Pop, 0, n.Loc)
		return nil

	case *ast.ValStmt:
		if err := c.lowerExpr(n.Value); err != nil {
			return err
		}
		idx, isLocal, err := c.scope.Define(n.Name)
		if err != nil {
			return err
		}
		if err := c.pushType(n.Type, n.Loc); err != nil {
			return err
		}
		if isLocal {
			c.b.Emit(isa.TypedefLocal, idx, n.Loc)
			c.b.Emit(isa.WriteLocal, idx, n.Loc)
		} else {
			c.b.Emit(isa.TypedefNamed, idx, n.Loc)
			c.b.Emit(isa.WriteNamed, idx, n.Loc)
		}
		return nil

	case *ast.AssignStmt:
		return c.lowerAssign(n)

	case *ast.IfStmt:
		return c.lowerIf(n)
	case *ast.WhileStmt:
		return c.lowerWhile(n)
	case *ast.ForStmt:
		return c.lowerFor(n)
	case *ast.MatchStmt:
		return c.lowerMatch(n)
	case *ast.TryStmt:
		return c.lowerTry(n)
	case *ast.GuardStmt:
		return c.lowerGuard(n)

	case *ast.ThrowStmt:
		if err := c.lowerExpr(n.Value); err != nil {
			return err
		}
		c.b.Emit(isa.Throw, 0, n.Loc)
		return nil

	case *ast.ReturnStmt:
		if n.Value != nil {
			if err := c.lowerExpr(n.Value); err != nil {
				return err
			}
		} else {
			c.b.Emit(isa.PushRuntimeValue, 0, n.Loc) // unused sentinel; Return falls back to Unit when stack is empty
			c.b.Emit(isa.Pop, 0, n.Loc)
		}
		c.b.Emit(isa.Return, 0, n.Loc)
		return nil

	case *ast.BreakStmt:
		if c.breakTo == nil {
			return fmt.Errorf("compiler: break outside a loop")
		}
		c.b.EmitJump(isa.Jump, c.breakTo, n.Loc)
		return nil
	case *ast.ContinueStmt:
		if c.contTo == nil {
			return fmt.Errorf("compiler: continue outside a loop")
		}
		c.b.EmitJump(isa.Jump, c.contTo, n.Loc)
		return nil

	case *ast.ImportStmt:
		idx, err := c.lw.Pool.InsertString(n.Path)
		if err != nil {
			return err
		}
		c.b.Emit(isa.Import, uint32(idx), n.Loc)
		if n.Star {
			c.b.Emit(isa.LiftModule, 0, n.Loc)
		}
		return nil

	case *ast.FuncDecl:
		return c.lowerFuncDecl(n)
	case *ast.StructDecl:
		return c.lowerStructDecl(n)
	case *ast.EnumDecl:
		return c.lowerEnumDecl(n)
	case *ast.MixinDecl:
		return c.lowerMixinDecl(n)

	default:
		return fmt.Errorf("compiler: unhandled statement %T", s)
	}
}

// pushType emits the type value a following TypedefLocal/TypedefNamed
// consumes. A nil annotation (untyped val/param) pushes Any, matching the
// optimizer's "TypedefLocal preceded by PushBuiltinTy(Any) is an untyped
// slot write" recognition.
func (c *fnCtx) pushType(t ast.Expr, src source.Pointer) error {
	if t == nil {
		c.b.Emit(isa.PushBuiltinTy, uint32(runtime.BuiltinAny), src)
		return nil
	}
	switch tt := t.(type) {
	case *ast.TypeRefExpr:
		id, ok := builtinIDs[tt.Name]
		if !ok {
			// named struct/enum/mixin type: no opcode wraps a plain value as
			// an Isa predicate, so fall back to Any (documented limitation).
			id = runtime.BuiltinAny
		}
		c.b.Emit(isa.PushBuiltinTy, uint32(id), src)
		return nil
	case *ast.UnionTypeExpr:
		// same limitation: no "build union" opcode exists, fall back to Any.
		c.b.Emit(isa.PushBuiltinTy, uint32(runtime.BuiltinAny), src)
		return nil
	default:
		return fmt.Errorf("compiler: %T is not a valid type annotation", t)
	}
}

func (c *fnCtx) lowerAssign(n *ast.AssignStmt) error {
	value := n.Value
	if n.Op != "=" {
		op, ok := map[string]string{
			"+=": "add", "-=": "sub", "*=": "mul", "/=": "div", "%=": "rem",
			"&=": "bwand", "|=": "bwor", "^=": "xor", "<<=": "shl", ">>=": "shr",
		}[n.Op]
		if !ok {
			return fmt.Errorf("compiler: unknown assignment operator %q", n.Op)
		}
		// x op= y rewrites syntactically to x = x op y before lowering (§4.4).
		value = &ast.BinaryExpr{Op: op, Left: n.Target, Right: n.Value, Loc: n.Loc}
	}

	switch target := n.Target.(type) {
	case *ast.Ident:
		if err := c.lowerExpr(value); err != nil {
			return err
		}
		return c.scope.EmitWrite(c.b, n.Loc, target.Name)
	case *ast.IndexExpr:
		if err := c.lowerExpr(target.X); err != nil {
			return err
		}
		if err := c.lowerExpr(target.Index); err != nil {
			return err
		}
		if err := c.lowerExpr(value); err != nil {
			return err
		}
		c.b.Emit(isa.WriteIndex, 0, n.Loc)
		return nil
	case *ast.AttrExpr:
		if err := c.lowerExpr(target.X); err != nil {
			return err
		}
		if err := c.lowerExpr(value); err != nil {
			return err
		}
		idx, err := c.lw.Pool.InsertString(target.Name)
		if err != nil {
			return err
		}
		c.b.Emit(isa.WriteAttribute, uint32(idx), n.Loc)
		return nil
	default:
		return fmt.Errorf("compiler: %T is not assignable", n.Target)
	}
}

func (c *fnCtx) lowerIf(n *ast.IfStmt) error {
	done := c.b.AppendBlock("if_done")
	if len(n.Clauses) == 1 && n.Else == nil {
		// trivial if: single JumpFalse(done) guards the body.
		cl := n.Clauses[0]
		if err := c.lowerExpr(cl.Cond); err != nil {
			return err
		}
		c.b.EmitJump(isa.JumpFalse, done, n.Loc)
		if err := c.lowerChildBlock(cl.Body); err != nil {
			return err
		}
		if !c.b.CurrentBlock().Terminal() {
			c.b.EmitJump(isa.Jump, done, n.Loc)
		}
		c.b.SetCurrentBlock(done)
		return nil
	}

	for i, cl := range n.Clauses {
		then := c.b.AppendBlock("if_then")
		var next *ir.Block
		if i == len(n.Clauses)-1 && n.Else == nil {
			next = done
		} else {
			next = c.b.AppendBlock("if_next")
		}
		if err := c.lowerExpr(cl.Cond); err != nil {
			return err
		}
		c.b.EmitJump(isa.JumpTrue, then, n.Loc)
		c.b.EmitJump(isa.Jump, next, n.Loc)

		c.b.SetCurrentBlock(then)
		if err := c.lowerChildBlock(cl.Body); err != nil {
			return err
		}
		if !c.b.CurrentBlock().Terminal() {
			c.b.EmitJump(isa.Jump, done, n.Loc)
		}
		c.b.SetCurrentBlock(next)
	}
	if n.Else != nil {
		if err := c.lowerChildBlock(n.Else); err != nil {
			return err
		}
		if !c.b.CurrentBlock().Terminal() {
			c.b.EmitJump(isa.Jump, done, n.Loc)
		}
		c.b.SetCurrentBlock(done)
	}
	return nil
}

func (c *fnCtx) lowerChildBlock(blk *ast.Block) error {
	child := c.child(c.scope.NewChildScope())
	return child.lowerBlock(blk)
}

func (c *fnCtx) lowerWhile(n *ast.WhileStmt) error {
	cond := c.b.AppendBlock("while_cond")
	body := c.b.AppendBlock("while_body")
	exit := c.b.AppendBlock("while_exit")

	c.b.EmitJump(isa.Jump, cond, n.Loc)
	c.b.SetCurrentBlock(cond)
	if err := c.lowerExpr(n.Cond); err != nil {
		return err
	}
	c.b.EmitJump(isa.JumpTrue, body, n.Loc)
	c.b.EmitJump(isa.Jump, exit, n.Loc)

	c.b.SetCurrentBlock(body)
	loopCtx := c.child(c.scope.NewChildScope())
	loopCtx.breakTo, loopCtx.contTo = exit, cond
	if err := loopCtx.lowerBlock(n.Body); err != nil {
		return err
	}
	if !c.b.CurrentBlock().Terminal() {
		c.b.EmitJump(isa.Jump, cond, n.Loc)
	}
	c.b.SetCurrentBlock(exit)
	return nil
}

// lowerFor iterates a List by index, since the fixed ISA has no iterator-
// protocol call convention of its own: idx and the iterable are held in
// hidden locals, the loop tests idx against the iterable's "length"
// attribute, and each iteration reads List[idx] into the loop variable.
func (c *fnCtx) lowerFor(n *ast.ForStmt) error {
	outer := c.child(c.scope.NewChildScope())
	idxIdx, _, err := outer.scope.Define("__for_idx")
	if err != nil {
		return err
	}
	if err := outer.pushType(nil, n.Loc); err != nil {
		return err
	}
	c.b.Emit(isa.TypedefLocal, idxIdx, n.Loc)
	c.b.Emit(isa.Push0, 0, n.Loc)
	c.b.Emit(isa.WriteLocal, idxIdx, n.Loc)

	iterIdx, _, err := outer.scope.Define("__for_iter")
	if err != nil {
		return err
	}
	if err := outer.pushType(nil, n.Loc); err != nil {
		return err
	}
	c.b.Emit(isa.TypedefLocal, iterIdx, n.Loc)
	if err := c.lowerExpr(n.Iter); err != nil {
		return err
	}
	c.b.Emit(isa.WriteLocal, iterIdx, n.Loc)

	lengthName, err := c.lw.Pool.InsertString("length")
	if err != nil {
		return err
	}

	cond := c.b.AppendBlock("for_cond")
	body := c.b.AppendBlock("for_body")
	incr := c.b.AppendBlock("for_incr")
	exit := c.b.AppendBlock("for_exit")

	c.b.EmitJump(isa.Jump, cond, n.Loc)
	c.b.SetCurrentBlock(cond)
	c.b.Emit(isa.ReadLocal, idxIdx, n.Loc)
	c.b.Emit(isa.ReadLocal, iterIdx, n.Loc)
	c.b.Emit(isa.ReadAttribute, uint32(lengthName), n.Loc)
	c.b.Emit(isa.Call, 0, n.Loc)
	c.b.Emit(isa.Lt, 0, n.Loc)
	c.b.EmitJump(isa.JumpTrue, body, n.Loc)
	c.b.EmitJump(isa.Jump, exit, n.Loc)

	c.b.SetCurrentBlock(body)
	bodyCtx := outer.child(outer.scope.NewChildScope())
	bodyCtx.breakTo, bodyCtx.contTo = exit, incr
	varIdx, _, err := bodyCtx.scope.Define(n.Var)
	if err != nil {
		return err
	}
	if err := bodyCtx.pushType(nil, n.Loc); err != nil {
		return err
	}
	c.b.Emit(isa.TypedefLocal, varIdx, n.Loc)
	c.b.Emit(isa.ReadLocal, iterIdx, n.Loc)
	c.b.Emit(isa.ReadLocal, idxIdx, n.Loc)
	c.b.Emit(isa.ReadIndex, 0, n.Loc)
	c.b.Emit(isa.WriteLocal, varIdx, n.Loc)
	if err := bodyCtx.lowerBlock(n.Body); err != nil {
		return err
	}
	if !c.b.CurrentBlock().Terminal() {
		c.b.EmitJump(isa.Jump, incr, n.Loc)
	}

	c.b.SetCurrentBlock(incr)
	c.b.Emit(isa.ReadLocal, idxIdx, n.Loc)
	c.b.Emit(isa.Push1, 0, n.Loc)
	c.b.Emit(isa.Add, 0, n.Loc)
	c.b.Emit(isa.WriteLocal, idxIdx, n.Loc)
	c.b.EmitJump(isa.Jump, cond, n.Loc)

	c.b.SetCurrentBlock(exit)
	return nil
}

func (c *fnCtx) lowerMatch(n *ast.MatchStmt) error {
	outer := c.child(c.scope.NewChildScope())
	ctrlIdx, _, err := outer.scope.Define("__match_control_expr")
	if err != nil {
		return err
	}
	if err := outer.lowerExpr(n.Scrutinee); err != nil {
		return err
	}
	if err := outer.pushType(nil, n.Loc); err != nil {
		return err
	}
	c.b.Emit(isa.TypedefLocal, ctrlIdx, n.Loc)
	c.b.Emit(isa.WriteLocal, ctrlIdx, n.Loc)

	done := c.b.AppendBlock("match_done")
	for _, mc := range n.Cases {
		caseNameIdx, err := c.lw.Pool.InsertString(mc.Case)
		if err != nil {
			return err
		}
		body := c.b.AppendBlock("match_body")
		next := c.b.AppendBlock("match_next")

		c.b.Emit(isa.ReadLocal, ctrlIdx, n.Loc)
		c.b.Emit(isa.EnumCheckIsCase, uint32(caseNameIdx), n.Loc)
		c.b.EmitJump(isa.JumpTrue, body, n.Loc)
		c.b.EmitJump(isa.Jump, next, n.Loc)

		c.b.SetCurrentBlock(body)
		caseCtx := outer.child(outer.scope.NewChildScope())
		if mc.Binding != "" {
			bindIdx, _, err := caseCtx.scope.Define(mc.Binding)
			if err != nil {
				return err
			}
			if err := caseCtx.pushType(nil, n.Loc); err != nil {
				return err
			}
			c.b.Emit(isa.TypedefLocal, bindIdx, n.Loc)
			c.b.Emit(isa.ReadLocal, ctrlIdx, n.Loc)
			c.b.Emit(isa.EnumExtractPayload, 0, n.Loc)
			c.b.Emit(isa.WriteLocal, bindIdx, n.Loc)
		}
		if mc.Guard != nil {
			guardFail := c.b.AppendBlock("match_guard_fail")
			if err := caseCtx.lowerExpr(mc.Guard); err != nil {
				return err
			}
			// false falls to the next case; true falls through into the body.
			c.b.EmitJump(isa.JumpFalse, guardFail, n.Loc)
			if err := caseCtx.lowerBlock(mc.Body); err != nil {
				return err
			}
			if !c.b.CurrentBlock().Terminal() {
				c.b.EmitJump(isa.Jump, done, n.Loc)
			}
			c.b.SetCurrentBlock(guardFail)
			c.b.EmitJump(isa.Jump, next, n.Loc)
		} else {
			if err := caseCtx.lowerBlock(mc.Body); err != nil {
				return err
			}
			if !c.b.CurrentBlock().Terminal() {
				c.b.EmitJump(isa.Jump, done, n.Loc)
			}
		}
		c.b.SetCurrentBlock(next)
	}
	if n.Else != nil {
		if err := outer.lowerChildBlock(n.Else); err != nil {
			return err
		}
	}
	if !c.b.CurrentBlock().Terminal() {
		c.b.EmitJump(isa.Jump, done, n.Loc)
	}
	c.b.SetCurrentBlock(done)
	return nil
}

func (c *fnCtx) lowerTry(n *ast.TryStmt) error {
	handler := c.b.AppendBlock("try_handler")
	done := c.b.AppendBlock("try_done")

	c.b.EmitJump(isa.TryEnter, handler, n.Loc)
	if err := c.lowerChildBlock(n.Body); err != nil {
		return err
	}
	if !c.b.CurrentBlock().Terminal() {
		c.b.Emit(isa.TryExit, 0, n.Loc)
		c.b.EmitJump(isa.Jump, done, n.Loc)
	}

	c.b.SetCurrentBlock(handler)
	catchCtx := c.child(c.scope.NewChildScope())
	if n.CatchVar != "" {
		idx, isLocal, err := catchCtx.scope.Define(n.CatchVar)
		if err != nil {
			return err
		}
		if err := catchCtx.pushType(nil, n.Loc); err != nil {
			return err
		}
		if isLocal {
			c.b.Emit(isa.TypedefLocal, idx, n.Loc)
			c.b.Emit(isa.WriteLocal, idx, n.Loc)
		} else {
			c.b.Emit(isa.TypedefNamed, idx, n.Loc)
			c.b.Emit(isa.WriteNamed, idx, n.Loc)
		}
	} else {
		c.b.Emit(isa.Pop, 0, n.Loc)
	}
	if err := catchCtx.lowerBlock(n.Catch); err != nil {
		return err
	}
	if !c.b.CurrentBlock().Terminal() {
		c.b.EmitJump(isa.Jump, done, n.Loc)
	}
	c.b.SetCurrentBlock(done)
	return nil
}

// lowerGuard compiles a guard block. The VM's GuardEnter/GuardExit
// currently only push/pop a control-stack marker (they do not yet invoke
// a guard_exit callable on scope exit, unlike the full spec semantics);
// the guard expression is still evaluated for its side effects and
// discarded, matching the only behavior the VM implements today. See
// DESIGN.md.
func (c *fnCtx) lowerGuard(n *ast.GuardStmt) error {
	if err := c.lowerExpr(n.Guard); err != nil {
		return err
	}
	c.b.Emit(isa.Pop, 0, n.Loc)
	c.b.Emit(isa.GuardEnter, 0, n.Loc)
	if err := c.lowerChildBlock(n.Body); err != nil {
		return err
	}
	c.b.Emit(isa.GuardExit, 0, n.Loc)
	return nil
}

func (c *fnCtx) lowerExpr(e ast.Expr) error {
	switch n := e.(type) {
	case *ast.Ident:
		return c.scope.EmitRead(c.b, n.Loc, n.Name)
	case *ast.IntLit:
		idx, err := c.lw.Pool.InsertInt(n.Value)
		if err != nil {
			return err
		}
		c.emitConstPush(idx, n.Value, n.Loc)
		return nil
	case *ast.FloatLit:
		idx, err := c.lw.Pool.InsertFloat(n.Value)
		if err != nil {
			return err
		}
		c.b.Emit(isa.Push, uint32(idx), n.Loc)
		return nil
	case *ast.StringLit:
		idx, err := c.lw.Pool.InsertString(n.Value)
		if err != nil {
			return err
		}
		c.b.Emit(isa.Push, uint32(idx), n.Loc)
		return nil
	case *ast.BoolLit:
		if n.Value {
			c.b.Emit(isa.PushTrue, 0, n.Loc)
		} else {
			c.b.Emit(isa.PushFalse, 0, n.Loc)
		}
		return nil
	case *ast.UnitLit:
		c.b.Emit(isa.PushRuntimeValue, 0, n.Loc)
		return nil
	case *ast.ListExpr:
		for _, it := range n.Items {
			if err := c.lowerExpr(it); err != nil {
				return err
			}
		}
		c.b.Emit(isa.BuildList, uint32(len(n.Items)), n.Loc)
		return nil
	case *ast.BinaryExpr:
		// left then right, so the stack holds [left, right] (right on top)
		// at the opcode, matching the VM's pop-right-then-pop-left
		// convention (§4.4).
		if err := c.lowerExpr(n.Left); err != nil {
			return err
		}
		if err := c.lowerExpr(n.Right); err != nil {
			return err
		}
		if op, ok := arithOps[n.Op]; ok {
			c.b.Emit(op, 0, n.Loc)
			return nil
		}
		if op, ok := relOps[n.Op]; ok {
			c.b.Emit(op, 0, n.Loc)
			return nil
		}
		return fmt.Errorf("compiler: unknown binary operator %q", n.Op)
	case *ast.LogicalExpr:
		return c.lowerLogical(n)
	case *ast.UnaryExpr:
		if err := c.lowerExpr(n.X); err != nil {
			return err
		}
		switch n.Op {
		case "neg":
			c.b.Emit(isa.Neg, 0, n.Loc)
		case "not":
			c.b.Emit(isa.Not, 0, n.Loc)
		default:
			return fmt.Errorf("compiler: unknown unary operator %q", n.Op)
		}
		return nil
	case *ast.CallExpr:
		if err := c.lowerExpr(n.Fn); err != nil {
			return err
		}
		for _, a := range n.Args {
			if err := c.lowerExpr(a); err != nil {
				return err
			}
		}
		c.b.Emit(isa.Call, uint32(len(n.Args)), n.Loc)
		return nil
	case *ast.IndexExpr:
		if err := c.lowerExpr(n.X); err != nil {
			return err
		}
		if err := c.lowerExpr(n.Index); err != nil {
			return err
		}
		c.b.Emit(isa.ReadIndex, 0, n.Loc)
		return nil
	case *ast.AttrExpr:
		if err := c.lowerExpr(n.X); err != nil {
			return err
		}
		idx, err := c.lw.Pool.InsertString(n.Name)
		if err != nil {
			return err
		}
		c.b.Emit(isa.ReadAttribute, uint32(idx), n.Loc)
		return nil
	case *ast.EnumConstructExpr:
		if len(n.Args) > 1 {
			return fmt.Errorf("compiler: enum case %q takes at most one payload value", n.Case)
		}
		if len(n.Args) == 1 {
			if err := c.lowerExpr(n.Args[0]); err != nil {
				return err
			}
		}
		if err := c.lowerExpr(n.Enum); err != nil {
			return err
		}
		idx, err := c.lw.Pool.InsertString(n.Case)
		if err != nil {
			return err
		}
		c.b.Emit(isa.NewEnumVal, uint32(idx), n.Loc)
		return nil
	case *ast.IsaExpr:
		if err := c.lowerExpr(n.X); err != nil {
			return err
		}
		if err := c.pushType(n.Type, n.Loc); err != nil {
			return err
		}
		c.b.Emit(isa.Isa, 0, n.Loc)
		return nil
	case *ast.TryUnwrapExpr:
		// sugar for `.unwrap()`: the fixed ISA has no dedicated propagation
		// opcode, so `x?` lowers to a plain attribute call rather than an
		// early-return control transfer. See DESIGN.md.
		if err := c.lowerExpr(n.X); err != nil {
			return err
		}
		idx, err := c.lw.Pool.InsertString("unwrap")
		if err != nil {
			return err
		}
		c.b.Emit(isa.ReadAttribute, uint32(idx), n.Loc)
		c.b.Emit(isa.Call, 0, n.Loc)
		return nil
	default:
		return fmt.Errorf("compiler: unhandled expression %T", e)
	}
}

// emitConstPush prefers the dedicated zero/one fast opcodes the ISA
// provides (Push0/Push1), falling back to a constant-pool Push otherwise.
func (c *fnCtx) emitConstPush(idx uint16, v int64, src source.Pointer) {
	switch v {
	case 0:
		c.b.Emit(isa.Push0, 0, src)
	case 1:
		c.b.Emit(isa.Push1, 0, src)
	default:
		c.b.Emit(isa.Push, uint32(idx), src)
	}
}

func (c *fnCtx) lowerLogical(n *ast.LogicalExpr) error {
	rhs := c.b.AppendBlock("logical_rhs")
	done := c.b.AppendBlock("logical_done")

	if err := c.lowerExpr(n.Left); err != nil {
		return err
	}
	switch n.Op {
	case "&&":
		c.b.EmitJump(isa.JumpTrue, rhs, n.Loc)
		c.b.Emit(isa.PushFalse, 0, n.Loc)
		c.b.EmitJump(isa.Jump, done, n.Loc)
	case "||":
		c.b.EmitJump(isa.JumpFalse, rhs, n.Loc)
		c.b.Emit(isa.PushTrue, 0, n.Loc)
		c.b.EmitJump(isa.Jump, done, n.Loc)
	default:
		return fmt.Errorf("compiler: unknown logical operator %q", n.Op)
	}

	c.b.SetCurrentBlock(rhs)
	if err := c.lowerExpr(n.Right); err != nil {
		return err
	}
	c.b.EmitJump(isa.Jump, done, n.Loc)
	c.b.SetCurrentBlock(done)
	return nil
}

// lowerFuncDecl compiles fd's body into its own CodeObject, appends it to
// the enclosing function's NestedFuncs table, and emits
// BuildFunction+StoreUplevel*+declare-write in the outer scope.
func (c *fnCtx) lowerFuncDecl(fd *ast.FuncDecl) error {
	code, uplevels, err := c.lw.compileFunction(c.scope, fd)
	if err != nil {
		return err
	}
	nestedIdx := len(*c.nested)
	*c.nested = append(*c.nested, code)

	c.b.Emit(isa.BuildFunction, uint32(nestedIdx), fd.Loc)
	for _, parentSlot := range uplevels {
		c.b.Emit(isa.StoreUplevel, uint32(parentSlot), fd.Loc)
	}

	idx, isLocal, err := c.scope.Define(fd.Name)
	if err != nil {
		return err
	}
	if err := c.pushType(nil, fd.Loc); err != nil {
		return err
	}
	if isLocal {
		c.b.Emit(isa.TypedefLocal, idx, fd.Loc)
	} else {
		c.b.Emit(isa.TypedefNamed, idx, fd.Loc)
	}
	return c.scope.EmitWrite(c.b, fd.Loc, fd.Name)
}

// compileFunction compiles fd as a standalone CodeObject, nested
// lexically under parent (used both for real declarations and for the
// synthetic is_<case>/unwrap_<case> enum helpers).
func (lw *Lowerer) compileFunction(parent *Scope, fd *ast.FuncDecl) (*isa.CodeObject, []uint8, error) {
	scope := parent.NewFunctionScope()
	b := ir.NewBuilder(fd.Name)
	var nested []*isa.CodeObject
	c := &fnCtx{lw: lw, b: b, scope: scope, nested: &nested}

	// The trailing parameter is the vararg collector when fd.Vararg is set:
	// its local slot sits at RequiredArgc+OptionalArgc and the VM (see
	// callClosure) fills it directly with the rest-argument list, so it
	// takes no TypedefLocal/default-value treatment and never counts toward
	// required or optional arity.
	params := fd.Params
	if fd.Vararg && len(params) > 0 {
		params = params[:len(params)-1]
	}

	required := 0
	for _, p := range params {
		slot, _, err := scope.Define(p.Name)
		if err != nil {
			return nil, nil, err
		}
		if err := c.pushType(p.Type, fd.Loc); err != nil {
			return nil, nil, err
		}
		b.Emit(isa.TypedefLocal, slot, fd.Loc)
		if p.Optional {
			skip := b.AppendBlock("param_default_skip")
			b.EmitJumpIfArgSupplied(slot, skip, fd.Loc)
			if err := c.lowerExpr(p.Default); err != nil {
				return nil, nil, err
			}
			b.Emit(isa.WriteLocal, slot, fd.Loc)
			b.SetCurrentBlock(skip)
		} else {
			required++
		}
	}
	if fd.Vararg && len(fd.Params) > 0 {
		if _, _, err := scope.Define(fd.Params[len(fd.Params)-1].Name); err != nil {
			return nil, nil, err
		}
	}

	if err := c.lowerBlock(fd.Body); err != nil {
		return nil, nil, err
	}
	if !b.CurrentBlock().Terminal() {
		b.Emit(isa.Return, 0, fd.Loc)
	}

	ir.RunOptimizePasses(b, lw.Pool)
	body, lines, err := ir.Linearize(b)
	if err != nil {
		return nil, nil, err
	}

	var attrs uint8
	if fd.IsMethod {
		attrs |= runtime.FuncIsMethod
	}
	if fd.IsTypeMethod {
		attrs |= runtime.FuncMethodAttribute
	}
	if fd.Vararg {
		attrs |= runtime.FuncAcceptsVararg
	}

	code := &isa.CodeObject{
		Name: fd.Name, Body: body, RequiredArgc: required, OptionalArgc: len(params) - required,
		HasVararg: fd.Vararg, FrameSize: scope.FrameSize(), Attrs: attrs, Loc: fd.Loc,
		Lines: lines, NestedFuncs: nested,
	}
	return code, scope.UplevelInfo(), nil
}

func (c *fnCtx) lowerStructDecl(n *ast.StructDecl) error {
	nameIdx, err := c.lw.Pool.InsertString(n.Name)
	if err != nil {
		return err
	}
	c.b.Emit(isa.Push, uint32(nameIdx), n.Loc)
	c.b.Emit(isa.BuildStruct, 0, n.Loc)

	// Field declarations carry no bytecode of their own: the ISA has no
	// opcode to record a per-field type predicate on a struct/mixin value
	// (TypedefLocal/TypedefNamed only cover frame locals and module
	// globals), so a field's declared type is compile-time-only shape
	// information until an instance actually writes the attribute via
	// WriteAttribute. See DESIGN.md.
	//
	// BindMethod/IncludeMixin peek their target rather than popping it, so
	// the single BuildStruct result stays on the stack across every member
	// without needing to be Dup'd again between them.
	for _, m := range n.Methods {
		if err := c.bindMethod(m); err != nil {
			return err
		}
	}
	for _, inc := range n.Includes {
		if err := c.includeMixin(inc); err != nil {
			return err
		}
	}

	idx, isLocal, err := c.scope.Define(n.Name)
	if err != nil {
		return err
	}
	if err := c.pushType(nil, n.Loc); err != nil {
		return err
	}
	if isLocal {
		c.b.Emit(isa.TypedefLocal, idx, n.Loc)
	} else {
		c.b.Emit(isa.TypedefNamed, idx, n.Loc)
	}
	return c.scope.EmitWrite(c.b, n.Loc, n.Name)
}

// bindMethod compiles m and binds it onto the struct/enum/mixin value
// currently on top of the stack. BindMethod peeks rather than pops that
// target, so it is left in place afterward for the next member.
func (c *fnCtx) bindMethod(m *ast.FuncDecl) error {
	code, uplevels, err := c.lw.compileFunction(c.scope, m)
	if err != nil {
		return err
	}
	nestedIdx := len(*c.nested)
	*c.nested = append(*c.nested, code)
	c.b.Emit(isa.BuildFunction, uint32(nestedIdx), m.Loc)
	for _, parentSlot := range uplevels {
		c.b.Emit(isa.StoreUplevel, uint32(parentSlot), m.Loc)
	}
	nameIdx, err := c.lw.Pool.InsertString(m.Name)
	if err != nil {
		return err
	}
	c.b.EmitU8U16(isa.BindMethod, 0, uint32(nameIdx), m.Loc)
	return nil
}

func (c *fnCtx) includeMixin(inc *ast.IncludeDecl) error {
	if err := c.scope.EmitRead(c.b, inc.Loc, inc.MixinName); err != nil {
		return err
	}
	c.b.Emit(isa.IncludeMixin, 0, inc.Loc)
	return nil
}

func (c *fnCtx) lowerMixinDecl(n *ast.MixinDecl) error {
	nameIdx, err := c.lw.Pool.InsertString(n.Name)
	if err != nil {
		return err
	}
	c.b.Emit(isa.Push, uint32(nameIdx), n.Loc)
	c.b.Emit(isa.BuildMixin, 0, n.Loc)

	// See the matching note in lowerStructDecl: field declarations have no
	// runtime type-tracking opcode to target and compile to nothing here;
	// BindMethod peeks rather than pops its target, so no Dup is needed
	// between methods.
	for _, m := range n.Methods {
		if err := c.bindMethod(m); err != nil {
			return err
		}
	}

	idx, isLocal, err := c.scope.Define(n.Name)
	if err != nil {
		return err
	}
	if err := c.pushType(nil, n.Loc); err != nil {
		return err
	}
	if isLocal {
		c.b.Emit(isa.TypedefLocal, idx, n.Loc)
	} else {
		c.b.Emit(isa.TypedefNamed, idx, n.Loc)
	}
	return c.scope.EmitWrite(c.b, n.Loc, n.Name)
}

func (c *fnCtx) lowerEnumDecl(n *ast.EnumDecl) error {
	nameIdx, err := c.lw.Pool.InsertString(n.Name)
	if err != nil {
		return err
	}
	c.b.Emit(isa.Push, uint32(nameIdx), n.Loc)
	c.b.Emit(isa.BuildEnum, 0, n.Loc)

	// BindCase, like BindMethod, peeks its target rather than popping it, so
	// the single BuildEnum result stays on the stack across every case,
	// method, and include below without needing a fresh Dup each time.
	for _, cs := range n.Cases {
		hasPayload := cs.Payload != nil
		if hasPayload {
			if err := c.pushType(cs.Payload, cs.Loc); err != nil {
				return err
			}
		}
		caseNameIdx, err := c.lw.Pool.InsertString(cs.Name)
		if err != nil {
			return err
		}
		arg0 := uint32(0)
		if hasPayload {
			arg0 = 1
		}
		c.b.EmitU8U16(isa.BindCase, arg0, uint32(caseNameIdx), cs.Loc)
	}
	for _, m := range n.Methods {
		if err := c.bindMethod(m); err != nil {
			return err
		}
	}
	for _, inc := range n.Includes {
		if err := c.includeMixin(inc); err != nil {
			return err
		}
	}
	for _, cs := range n.Cases {
		if err := c.synthesizeEnumHelpers(n, cs); err != nil {
			return err
		}
	}

	idx, isLocal, err := c.scope.Define(n.Name)
	if err != nil {
		return err
	}
	if err := c.pushType(nil, n.Loc); err != nil {
		return err
	}
	if isLocal {
		c.b.Emit(isa.TypedefLocal, idx, n.Loc)
	} else {
		c.b.Emit(isa.TypedefNamed, idx, n.Loc)
	}
	return c.scope.EmitWrite(c.b, n.Loc, n.Name)
}

// synthesizeEnumHelpers builds and binds the is_<case> (and, for a
// payload-carrying case, unwrap_<case>) methods the spec requires every
// enum declaration to generate (§4.4). These read directly off
// EnumCheckIsCase/EnumExtractPayload, opcodes with no AST expression form
// of their own, so the two bodies are built by hand rather than through
// an equivalent source-level FuncDecl.
func (c *fnCtx) synthesizeEnumHelpers(n *ast.EnumDecl, cs *ast.EnumCaseDecl) error {
	isCode, err := c.buildEnumHelperMethod("is_"+cs.Name, cs.Loc, func(b *ir.Builder, selfSlot uint32) error {
		nameIdx, err := c.lw.Pool.InsertString(cs.Name)
		if err != nil {
			return err
		}
		b.Emit(isa.ReadLocal, selfSlot, cs.Loc)
		b.Emit(isa.EnumCheckIsCase, uint32(nameIdx), cs.Loc)
		b.Emit(isa.Return, 0, cs.Loc)
		return nil
	})
	if err != nil {
		return err
	}
	if err := c.bindSynthesizedMethod(isCode, "is_"+cs.Name, cs.Loc); err != nil {
		return err
	}

	if cs.Payload == nil {
		return nil
	}
	unwrapCode, err := c.buildEnumHelperMethod("unwrap_"+cs.Name, cs.Loc, func(b *ir.Builder, selfSlot uint32) error {
		b.Emit(isa.ReadLocal, selfSlot, cs.Loc)
		b.Emit(isa.EnumExtractPayload, 0, cs.Loc)
		b.Emit(isa.Return, 0, cs.Loc)
		return nil
	})
	if err != nil {
		return err
	}
	return c.bindSynthesizedMethod(unwrapCode, "unwrap_"+cs.Name, cs.Loc)
}

// buildEnumHelperMethod compiles a single-parameter ("self") method body
// built directly in IR, with no nested functions or closures possible.
func (c *fnCtx) buildEnumHelperMethod(name string, loc source.Pointer, emit func(b *ir.Builder, selfSlot uint32) error) (*isa.CodeObject, error) {
	scope := c.scope.NewFunctionScope()
	b := ir.NewBuilder(name)
	selfSlot, _, err := scope.Define("self")
	if err != nil {
		return nil, err
	}
	if err := emit(b, selfSlot); err != nil {
		return nil, err
	}
	ir.RunOptimizePasses(b, c.lw.Pool)
	body, lines, err := ir.Linearize(b)
	if err != nil {
		return nil, err
	}
	return &isa.CodeObject{
		Name: name, Body: body, RequiredArgc: 1, FrameSize: scope.FrameSize(),
		Attrs: runtime.FuncIsMethod, Loc: loc, Lines: lines,
	}, nil
}

// bindSynthesizedMethod appends code to the enclosing function's
// NestedFuncs table and emits BuildFunction+BindMethod against the
// enum value already on top of the stack (see bindMethod, which this
// mirrors for non-AST-sourced bodies; BindMethod peeks its target, so no
// Dup is needed here either).
func (c *fnCtx) bindSynthesizedMethod(code *isa.CodeObject, name string, loc source.Pointer) error {
	nestedIdx := len(*c.nested)
	*c.nested = append(*c.nested, code)
	c.b.Emit(isa.BuildFunction, uint32(nestedIdx), loc)
	nameIdx, err := c.lw.Pool.InsertString(name)
	if err != nil {
		return err
	}
	c.b.EmitU8U16(isa.BindMethod, 0, uint32(nameIdx), loc)
	return nil
}
