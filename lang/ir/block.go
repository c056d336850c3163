// Package ir implements the basic-block intermediate representation that
// sits between AST lowering and linear bytecode: a function builder that
// accumulates blocks of (opcode, source pointer) entries with symbolic
// block references for jump targets, a suite of peephole and dataflow
// optimizer passes, and a linearization step that resolves block
// references to absolute byte offsets.
//
// Grounded on the reference compiler's func_builder.rs for pass order and
// semantics; the Go shape (value-returning builder methods operating on
// *Block rather than Rc<BasicBlock>) follows the teacher's
// lang/compiler/compiler.go block/fcomp/visit pattern.
package ir

import (
	"github.com/mna/aria/lang/isa"
	"github.com/mna/aria/lang/source"
)

// Entry is one (IR opcode, source pointer) pair recorded in a block.
// Target is non-nil exactly when Op is a jump-carrying opcode; Arg0/Arg1
// carry every other operand (local slot, constant index, attribute byte,
// etc). For JumpIfArgSupplied, Arg0 holds the arg index and Target holds
// the jump block (the operand that would otherwise be arg1 in the flat
// ISA). BindMethod/BindCase are the only non-jump opcodes that need both
// Arg0 and Arg1 at once (a u8 flag and a u16 constant-pool index).
type Entry struct {
	Op     isa.Opcode
	Arg0   uint32
	Arg1   uint32
	Target *Block
	Src    source.Pointer
}

// IsTerminal reports whether this entry ends its block.
func (e Entry) IsTerminal() bool { return e.Op.IsTerminal() }

// Block is a basic block: a straight-line sequence of entries ending
// implicitly at the first terminal opcode (Jump, Return, Throw, Halt).
type Block struct {
	ID      int
	Name    string
	Entries []Entry

	// set during linearization
	addr     uint32
	ordinal  int // position in final block order, -1 until linearized
	reserved bool
}

func newBlock(id int, name string) *Block {
	return &Block{ID: id, Name: name, ordinal: -1}
}

// Terminal reports whether the block currently ends in a terminal opcode.
// A block under construction (e.g. the one a lowering routine is still
// appending to) may not yet be terminated; the builder is responsible for
// ensuring every reachable block is terminated before linearization.
func (b *Block) Terminal() bool {
	if len(b.Entries) == 0 {
		return false
	}
	return b.Entries[len(b.Entries)-1].IsTerminal()
}

// Builder accumulates blocks for a single function body (or a module's
// top-level entry code object). Blocks are reachable from Entry; blocks
// not reachable by any jump are later pruned by the orphan-removal pass.
type Builder struct {
	Name    string
	blocks  []*Block
	entry   *Block
	current *Block
	nextID  int
}

// NewBuilder creates a function builder with a single entry block already
// current.
func NewBuilder(name string) *Builder {
	b := &Builder{Name: name}
	b.entry = b.AppendBlock(uniqueName(b, "entry"))
	b.current = b.entry
	return b
}

func uniqueName(b *Builder, base string) string {
	// Mirrors the teacher's lang/resolver/naming.go block-letter scheme:
	// root block is named plainly, subsequent blocks get a short letter
	// suffix rather than a numeric counter, to match the pack's naming
	// idiom for generated block names.
	if len(b.blocks) == 0 {
		return base
	}
	letter := byte('a' + (len(b.blocks)-1)%26)
	return base + "_" + string(letter)
}

// AppendBlock creates a new block and appends it at the end of the
// builder's block list (it is not made current; callers typically use
// SetCurrentBlock after arranging the desired control flow).
func (b *Builder) AppendBlock(name string) *Block {
	blk := newBlock(b.nextID, name)
	b.nextID++
	b.blocks = append(b.blocks, blk)
	return blk
}

// InsertBlockAfter creates a new block and inserts it immediately after
// ref in insertion order (which governs fallthrough address assignment
// during linearization when a block has no explicit jump).
func (b *Builder) InsertBlockAfter(ref *Block, name string) *Block {
	blk := newBlock(b.nextID, name)
	b.nextID++
	for i, existing := range b.blocks {
		if existing == ref {
			b.blocks = append(b.blocks[:i+1], append([]*Block{blk}, b.blocks[i+1:]...)...)
			return blk
		}
	}
	b.blocks = append(b.blocks, blk)
	return blk
}

// SetCurrentBlock redirects subsequent Emit calls to blk.
func (b *Builder) SetCurrentBlock(blk *Block) { b.current = blk }

// CurrentBlock returns the block Emit appends to.
func (b *Builder) CurrentBlock() *Block { return b.current }

// EntryBlock returns the function's entry block.
func (b *Builder) EntryBlock() *Block { return b.entry }

// Blocks returns all blocks in insertion order. The returned slice is
// owned by the builder; callers in the optimizer mutate it directly
// in place (e.g. orphan removal) rather than through a copy.
func (b *Builder) Blocks() []*Block { return b.blocks }

// SetBlocks replaces the builder's block list wholesale (used by the
// orphan-removal pass).
func (b *Builder) SetBlocks(blocks []*Block) { b.blocks = blocks }

// Emit appends a non-jump entry to the current block.
func (b *Builder) Emit(op isa.Opcode, arg0 uint32, src source.Pointer) {
	b.current.Entries = append(b.current.Entries, Entry{Op: op, Arg0: arg0, Src: src})
}

// EmitJump appends a jump-carrying entry targeting target.
func (b *Builder) EmitJump(op isa.Opcode, target *Block, src source.Pointer) {
	b.current.Entries = append(b.current.Entries, Entry{Op: op, Target: target, Src: src})
}

// EmitJumpIfArgSupplied appends the two-operand JumpIfArgSupplied entry.
func (b *Builder) EmitJumpIfArgSupplied(argIdx uint32, target *Block, src source.Pointer) {
	b.current.Entries = append(b.current.Entries, Entry{Op: isa.JumpIfArgSupplied, Arg0: argIdx, Target: target, Src: src})
}

// EmitU8U16 appends a non-jump two-operand entry (BindMethod, BindCase):
// arg0 is a byte-sized flag, arg1 a constant-pool index.
func (b *Builder) EmitU8U16(op isa.Opcode, arg0, arg1 uint32, src source.Pointer) {
	b.current.Entries = append(b.current.Entries, Entry{Op: op, Arg0: arg0, Arg1: arg1, Src: src})
}
