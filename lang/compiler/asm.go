package compiler

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mna/aria/lang/isa"
)

// This file implements a human-readable/writable textual form of a compiled
// program, for testing the VM and the bytecode tooling without going
// through the lexer/parser/lowering pipeline. A disassembler is also
// implemented (Dasm), round-tripping with Asm.
//
// The assembly format looks like this (section keywords must appear in the
// order shown; indentation is cosmetic and ignored by the scanner, which
// only splits each line into whitespace-separated fields):
//
//	module:
//		constants:              # optional, list of constants
//			int    1234
//			float  1.34
//			string "abc"
//		entry:                  # required, the module's top-level code object
//			reqargs: 0 optargs: 0 frame: 2 attrs: 0
//			code:                 # required, list of instructions
//				PUSH_0              # 000
//				POP                 # 001
//				HALT                # 002
//			nested:               # optional, list of nested function declarations
//				function:
//					reqargs: 1 optargs: 0 frame: 1 attrs: 1 vararg: false
//					code:
//						READ_LOCAL 0
//						RETURN
//					endfunction
//			endnested
//		endentry
//
// Jump-carrying opcodes (JUMP, JUMP_TRUE, JUMP_FALSE, the jump half of
// JUMP_IF_ARG_SUPPLIED, ENTER_TRY) take the *index* of the target
// instruction within its own code: block as their textual operand; Asm
// translates indices to byte offsets, Dasm does the reverse.

// Program is the in-memory form of an assembled module: its constant pool
// plus its entry code object, with nested functions attached recursively
// through isa.CodeObject.NestedFuncs.
type Program struct {
	Pool  *isa.ConstantPool
	Entry *isa.CodeObject
}

var sections = map[string]bool{
	"module:":     true,
	"constants:":  true,
	"entry:":      true,
	"endentry":    true,
	"code:":       true,
	"nested:":     true,
	"endnested":   true,
	"function:":   true,
	"endfunction": true,
}

// Asm parses a module's assembler textual form.
func Asm(b []byte) (*Program, error) {
	a := &asm{s: bufio.NewScanner(bytes.NewReader(b)), pool: &isa.ConstantPool{}}

	fields := a.next()
	if len(fields) == 0 || !strings.EqualFold(fields[0], "module:") {
		return nil, errors.New("expected module section")
	}

	fields = a.next()
	fields = a.constants(fields)

	if a.err == nil && (len(fields) == 0 || !strings.EqualFold(fields[0], "entry:")) {
		a.err = errors.New("expected entry section")
	}
	var entry *isa.CodeObject
	if a.err == nil {
		fields = a.next()
		entry, fields = a.function(fields, "endentry")
	}
	if a.err == nil && (len(fields) == 0 || !strings.EqualFold(fields[0], "endentry")) {
		a.err = errors.New("expected endentry")
	}
	if a.err == nil {
		fields = a.next()
		if len(fields) > 0 {
			a.err = fmt.Errorf("unexpected trailing section: %s", fields[0])
		}
	}
	if a.err != nil {
		return nil, a.err
	}
	return &Program{Pool: a.pool, Entry: entry}, nil
}

type asm struct {
	s       *bufio.Scanner
	rawLine string
	pool    *isa.ConstantPool
	err     error
}

var rxConstLineString = regexp.MustCompile(`^\s*string\s+(.+)$`)

func (a *asm) constants(fields []string) []string {
	if a.err != nil || len(fields) == 0 || !strings.EqualFold(fields[0], "constants:") {
		return fields
	}
	for fields = a.next(); len(fields) > 0 && !sections[fields[0]]; fields = a.next() {
		switch fields[0] {
		case "int":
			if len(fields) != 2 {
				a.err = fmt.Errorf("invalid int constant: expected 1 value, got %d fields", len(fields)-1)
				return fields
			}
			if _, err := a.pool.InsertInt(a.int(fields[1])); err != nil {
				a.err = err
				return fields
			}
		case "float":
			if len(fields) != 2 {
				a.err = fmt.Errorf("invalid float constant: expected 1 value, got %d fields", len(fields)-1)
				return fields
			}
			f, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				a.err = fmt.Errorf("invalid float: %s: %w", fields[1], err)
				return fields
			}
			if _, err := a.pool.InsertFloat(f); err != nil {
				a.err = err
				return fields
			}
		case "string":
			strVal := rxConstLineString.FindStringSubmatch(a.rawLine)
			if strVal == nil {
				a.err = fmt.Errorf("invalid string constant: %s", a.rawLine)
				return fields
			}
			qs, err := strconv.QuotedPrefix(strVal[1])
			if err != nil {
				a.err = fmt.Errorf("invalid string: %q: %w", strVal[1], err)
				return fields
			}
			s, err := strconv.Unquote(qs)
			if err != nil {
				a.err = fmt.Errorf("invalid string: %q: %w", qs, err)
				return fields
			}
			if _, err := a.pool.InsertString(s); err != nil {
				a.err = err
				return fields
			}
		default:
			a.err = fmt.Errorf("invalid constant type: %s", fields[0])
			return fields
		}
	}
	return fields
}

// function parses one code object's body (reqargs/optargs/frame/attrs,
// code:, nested:) up to and not including the closing keyword end, which
// the caller is responsible for checking for.
func (a *asm) function(fields []string, end string) (*isa.CodeObject, []string) {
	if a.err != nil {
		return nil, fields
	}
	if len(fields) == 0 || fields[0] != "reqargs:" {
		a.err = fmt.Errorf("expected reqargs/optargs/frame/attrs line, got %q", strings.Join(fields, " "))
		return nil, fields
	}

	co := &isa.CodeObject{}
	vararg := false
	for i := 0; i+1 < len(fields); i += 2 {
		key := strings.TrimSuffix(fields[i], ":")
		val := fields[i+1]
		switch key {
		case "reqargs":
			co.RequiredArgc = int(a.int(val))
		case "optargs":
			co.OptionalArgc = int(a.int(val))
		case "frame":
			co.FrameSize = int(a.int(val))
		case "attrs":
			co.Attrs = uint8(a.uint(val))
		case "vararg":
			vararg = val == "true"
		default:
			a.err = fmt.Errorf("unknown function attribute: %s", key)
			return nil, fields
		}
	}
	co.HasVararg = vararg

	fields = a.next()
	fields, co.Body = a.code(fields)
	fields = a.nested(fields, co)

	if a.err == nil && (len(fields) == 0 || fields[0] != end) {
		a.err = fmt.Errorf("expected %s, got %q", end, strings.Join(fields, " "))
	}
	return co, fields
}

func (a *asm) nested(fields []string, parent *isa.CodeObject) []string {
	if a.err != nil || len(fields) == 0 || !strings.EqualFold(fields[0], "nested:") {
		return fields
	}
	for fields = a.next(); a.err == nil && len(fields) > 0 && strings.EqualFold(fields[0], "function:"); {
		var child *isa.CodeObject
		fields = a.next()
		child, fields = a.function(fields, "endfunction")
		if a.err != nil {
			return fields
		}
		parent.NestedFuncs = append(parent.NestedFuncs, child)
		fields = a.next()
	}
	if a.err == nil && (len(fields) == 0 || !strings.EqualFold(fields[0], "endnested")) {
		a.err = fmt.Errorf("expected endnested, got %q", strings.Join(fields, " "))
		return fields
	}
	return a.next()
}

// code parses the code: section, translating in-section instruction
// indices used by jump operands into absolute byte offsets.
func (a *asm) code(fields []string) ([]string, []byte) {
	if a.err != nil {
		return fields, nil
	}
	if len(fields) == 0 || !strings.EqualFold(fields[0], "code:") {
		a.err = fmt.Errorf("expected code section, got %q", strings.Join(fields, " "))
		return fields, nil
	}

	var insns []isa.Instruction
	var addr []int
	off := 0
	for fields = a.next(); len(fields) > 0 && !sections[fields[0]]; fields = a.next() {
		op, ok := isa.Lookup(strings.ToUpper(fields[0]))
		if !ok {
			a.err = fmt.Errorf("invalid opcode: %s", fields[0])
			return fields, nil
		}
		shape, _ := op.Shape()
		ins := isa.Instruction{Op: op}
		switch shape {
		case isa.NoOperand:
			if len(fields) != 1 {
				a.err = fmt.Errorf("expected no operand for %s, got %d fields", fields[0], len(fields)-1)
				return fields, nil
			}
		case isa.U8Operand, isa.U16Operand, isa.U32Operand:
			if len(fields) != 2 {
				a.err = fmt.Errorf("expected 1 operand for %s, got %d fields", fields[0], len(fields)-1)
				return fields, nil
			}
			ins.Arg0 = uint32(a.uint(fields[1]))
		case isa.U8U16Operand:
			if len(fields) != 3 {
				a.err = fmt.Errorf("expected 2 operands for %s, got %d fields", fields[0], len(fields)-1)
				return fields, nil
			}
			ins.Arg0 = uint32(a.uint(fields[1]))
			ins.Arg1 = uint32(a.uint(fields[2]))
		}
		insns = append(insns, ins)
		addr = append(addr, off)
		off += op.ByteSize()
	}
	if a.err != nil {
		return fields, nil
	}

	var body []byte
	for i, ins := range insns {
		if isJumpTarget(ins.Op) {
			idx, target := jumpOperand(ins)
			if int(target) >= len(addr) {
				a.err = fmt.Errorf("invalid jump index %d: instruction %s at index %d", target, ins.Op, i)
				return fields, nil
			}
			setJumpOperand(&ins, idx, uint32(addr[target]))
		}
		var err error
		body, err = isa.Encode(body, ins)
		if err != nil {
			a.err = err
			return fields, nil
		}
	}
	return fields, body
}

// isJumpTarget reports whether op carries an in-section instruction index
// that code() must translate to a byte offset. This is exactly the
// op.IsJump() set (TryEnter and JumpIfArgSupplied included, since both
// carry a jump operand), kept as a separate name for the call site.
func isJumpTarget(op isa.Opcode) bool { return op.IsJump() }

// jumpOperand returns which field (0 or 1) holds op's jump target and its
// current (pre-translation) value: Arg0 for the single-operand jumps and
// ENTER_TRY, Arg1 for JUMP_IF_ARG_SUPPLIED (whose Arg0 is the literal arg
// index, not part of the jump).
func jumpOperand(ins isa.Instruction) (field int, value uint32) {
	if ins.Op == isa.JumpIfArgSupplied {
		return 1, ins.Arg1
	}
	return 0, ins.Arg0
}

func setJumpOperand(ins *isa.Instruction, field int, addr uint32) {
	if field == 1 {
		ins.Arg1 = addr
	} else {
		ins.Arg0 = addr
	}
}

func (a *asm) int(s string) int64 {
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		a.err = fmt.Errorf("invalid integer: %s: %w", s, err)
	}
	return i
}

func (a *asm) uint(s string) uint64 {
	u, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		a.err = fmt.Errorf("invalid unsigned integer: %s: %w", s, err)
	}
	return u
}

// next returns the fields for the next non-empty, non-comment-only line, so
// that fields[0] will contain the line's section keyword if it is one.
func (a *asm) next() []string {
	a.rawLine = ""
	if a.err != nil {
		return nil
	}
	for a.s.Scan() {
		line := a.s.Text()
		fields := strings.Fields(line)
		if len(fields) != 0 && !strings.HasPrefix(fields[0], "#") {
			for i, fld := range fields {
				if strings.HasPrefix(fld, "#") {
					fields = fields[:i]
					break
				}
			}
			a.rawLine = line
			return fields
		}
	}
	a.err = a.s.Err()
	return nil
}

// Dasm writes p to its assembler textual form.
func Dasm(p *Program) ([]byte, error) {
	d := &dasm{buf: new(bytes.Buffer)}
	d.write("module:\n")
	d.constants(p.Pool)
	d.write("\tentry:\n")
	d.function(p.Entry, 2)
	d.write("\tendentry\n")
	return d.buf.Bytes(), d.err
}

type dasm struct {
	buf *bytes.Buffer
	err error
}

func (d *dasm) constants(pool *isa.ConstantPool) {
	if d.err != nil || pool == nil || pool.Len() == 0 {
		return
	}
	d.write("\tconstants:\n")
	for i, c := range pool.All() {
		switch c.Kind {
		case isa.ConstInteger:
			d.writef("\t\tint\t%d\t# %03d\n", c.Int, i)
		case isa.ConstFloat:
			d.writef("\t\tfloat\t%g\t# %03d\n", c.Float, i)
		case isa.ConstString:
			d.writef("\t\tstring\t%q\t# %03d\n", c.Str, i)
		default:
			d.err = fmt.Errorf("dasm: unsupported constant kind %v at index %d (code-object constants are not a dasm-supported pool entry)", c.Kind, i)
			return
		}
	}
}

func (d *dasm) function(co *isa.CodeObject, indent int) {
	if d.err != nil {
		return
	}
	tabs := strings.Repeat("\t", indent)
	d.writef("%sreqargs: %d optargs: %d frame: %d attrs: %d vararg: %t\n",
		tabs, co.RequiredArgc, co.OptionalArgc, co.FrameSize, co.Attrs, co.HasVararg)

	insns, offsets, err := isa.DecodeAll(co.Body)
	if err != nil {
		d.err = err
		return
	}
	addrToIndex := make(map[int]int, len(offsets))
	for i, off := range offsets {
		addrToIndex[off] = i
	}

	d.writef("%scode:\n", tabs)
	for i, ins := range insns {
		if isJumpTarget(ins.Op) {
			field, addr := jumpOperand(ins)
			idx, ok := addrToIndex[int(addr)]
			if !ok {
				d.err = fmt.Errorf("invalid jump address %d in instruction %d (%s)", addr, i, ins.Op)
				return
			}
			setJumpOperand(&ins, field, uint32(idx))
		}
		shape, _ := ins.Op.Shape()
		switch shape {
		case isa.NoOperand:
			d.writef("%s\t%s\t# %03d\n", tabs, ins.Op.Name(), i)
		case isa.U8U16Operand:
			d.writef("%s\t%s %d %d\t# %03d\n", tabs, ins.Op.Name(), ins.Arg0, ins.Arg1, i)
		default:
			d.writef("%s\t%s %d\t# %03d\n", tabs, ins.Op.Name(), ins.Arg0, i)
		}
	}

	if len(co.NestedFuncs) > 0 {
		d.writef("%snested:\n", tabs)
		for _, nf := range co.NestedFuncs {
			d.writef("%s\tfunction:\n", tabs)
			d.function(nf, indent+2)
			d.writef("%s\tendfunction\n", tabs)
		}
		d.writef("%sendnested\n", tabs)
	}
}

func (d *dasm) writef(s string, args ...any) { d.write(fmt.Sprintf(s, args...)) }

func (d *dasm) write(s string) {
	if d.err != nil {
		return
	}
	_, d.err = d.buf.WriteString(s)
}
