package isa

import (
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/mna/aria/lang/source"
)

// ConstantKind discriminates the constant pool's tagged union.
type ConstantKind int

const (
	ConstInteger ConstantKind = iota
	ConstFloat
	ConstString
	ConstCodeObject
)

// Constant is one entry of a module's constant pool: {Integer(i64),
// Float(f64), String, CompiledCodeObject}.
type Constant struct {
	Kind   ConstantKind
	Int    int64
	Float  float64
	Str    string
	Code   *CodeObject
}

// CodeObject is the compiled, immutable form of a function body: byte
// array, arity, frame size, line table. Shared by reference among all
// closures instantiated from it.
type CodeObject struct {
	Name           string
	Body           []byte
	RequiredArgc   int
	OptionalArgc   int
	HasVararg      bool
	FrameSize      int // number of local slots the frame must allocate
	Attrs          uint8 // function_attribs bitset (is-method, method-attribute-type, accepts-vararg)
	Loc            source.Pointer
	Lines          *LineTable
	// NestedFuncs holds the CodeObjects of every function literal declared
	// directly inside this one, addressed by BuildFunction's u8 operand
	// (the number of function literals declared directly in one body is
	// bounded to 256, matching the opcode's fixed one-byte operand).
	NestedFuncs []*CodeObject
}

// ConstantPool is a module's deduplicated table of literals, addressed by
// 16-bit index. Append-only during compilation; the zero value is ready
// for use.
type ConstantPool struct {
	entries []Constant
	ints    map[int64]uint16
	floats  map[float64]uint16
	strs    map[string]uint16
	// code objects are never deduplicated: two textually identical function
	// bodies are still distinct declarations.
}

// MaxConstants is the maximum number of entries a single module's constant
// pool may hold (a 16-bit index space).
const MaxConstants = 65536

// ErrTooManyConstants is returned by Insert* once the pool is full.
var ErrTooManyConstants = fmt.Errorf("isa: too many constants (max %d)", MaxConstants)

func (p *ConstantPool) ensureMaps() {
	if p.ints == nil {
		p.ints = make(map[int64]uint16)
	}
	if p.floats == nil {
		p.floats = make(map[float64]uint16)
	}
	if p.strs == nil {
		p.strs = make(map[string]uint16)
	}
}

func (p *ConstantPool) append(c Constant) (uint16, error) {
	if len(p.entries) >= MaxConstants {
		return 0, ErrTooManyConstants
	}
	idx := uint16(len(p.entries))
	p.entries = append(p.entries, c)
	return idx, nil
}

// InsertInt inserts (or reuses) an Integer constant. Deduplicating: the
// same int64 value always returns the same index.
func (p *ConstantPool) InsertInt(v int64) (uint16, error) {
	p.ensureMaps()
	if idx, ok := p.ints[v]; ok {
		return idx, nil
	}
	idx, err := p.append(Constant{Kind: ConstInteger, Int: v})
	if err != nil {
		return 0, err
	}
	p.ints[v] = idx
	return idx, nil
}

// InsertFloat inserts (or reuses) a Float constant.
func (p *ConstantPool) InsertFloat(v float64) (uint16, error) {
	p.ensureMaps()
	if idx, ok := p.floats[v]; ok {
		return idx, nil
	}
	idx, err := p.append(Constant{Kind: ConstFloat, Float: v})
	if err != nil {
		return 0, err
	}
	p.floats[v] = idx
	return idx, nil
}

// InsertString inserts (or reuses) a String constant.
func (p *ConstantPool) InsertString(v string) (uint16, error) {
	p.ensureMaps()
	if idx, ok := p.strs[v]; ok {
		return idx, nil
	}
	idx, err := p.append(Constant{Kind: ConstString, Str: v})
	if err != nil {
		return 0, err
	}
	p.strs[v] = idx
	return idx, nil
}

// InsertCode inserts a CompiledCodeObject constant. Never deduplicated.
func (p *ConstantPool) InsertCode(co *CodeObject) (uint16, error) {
	return p.append(Constant{Kind: ConstCodeObject, Code: co})
}

// Get retrieves the constant at idx. The second return is false if idx is
// out of range, which callers must treat as bytecode corruption (a fatal
// VM error), not a silent no-op.
func (p *ConstantPool) Get(idx uint16) (Constant, bool) {
	if int(idx) >= len(p.entries) {
		return Constant{}, false
	}
	return p.entries[idx], true
}

// Len returns the number of entries currently in the pool.
func (p *ConstantPool) Len() int { return len(p.entries) }

// All returns the pool's entries in index order, for disassembly. The
// returned slice must not be mutated.
func (p *ConstantPool) All() []Constant {
	return slices.Clone(p.entries)
}
