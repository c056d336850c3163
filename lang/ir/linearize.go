package ir

import (
	"fmt"

	"github.com/mna/aria/lang/isa"
)

// MaxBodySize is the largest linearized-body size that compiles; a larger
// body fails with FunctionBodyTooLarge. A body of exactly 65535 bytes is
// accepted. See DESIGN.md decision 1.
const MaxBodySize = 65535

// ErrFunctionBodyTooLarge is returned by Linearize when the function's
// total encoded size exceeds MaxBodySize.
type ErrFunctionBodyTooLarge struct {
	Name string
	Size int
}

func (e ErrFunctionBodyTooLarge) Error() string {
	return fmt.Sprintf("ir: function %q body too large (%d bytes, max %d)", e.Name, e.Size, MaxBodySize)
}

// Linearize walks b's blocks in insertion order, computing each block's
// byte address and resolving jump operands to absolute byte offsets, then
// emits the flat byte stream and accompanying line table. Orphan removal
// and the optimizer passes must already have run; Linearize does not
// re-run them.
func Linearize(b *Builder) ([]byte, *isa.LineTable, error) {
	blocks := b.Blocks()

	addr := make(map[*Block]uint32, len(blocks))
	var pc uint32
	for _, blk := range blocks {
		addr[blk] = pc
		for _, e := range blk.Entries {
			pc += uint32(e.Op.ByteSize())
		}
	}
	if pc > MaxBodySize {
		return nil, nil, ErrFunctionBodyTooLarge{Name: b.Name, Size: int(pc)}
	}

	code := make([]byte, 0, pc)
	lines := isa.NewLineTableBuilder()
	for _, blk := range blocks {
		for _, e := range blk.Entries {
			offset := uint32(len(code))
			ins := isa.Instruction{Op: e.Op}
			switch {
			case e.Op == isa.JumpIfArgSupplied:
				ins.Arg0 = e.Arg0
				ins.Arg1 = uint32(addr[e.Target])
			case e.Target != nil:
				ins.Arg0 = uint32(addr[e.Target])
			case e.Op == isa.BindMethod || e.Op == isa.BindCase:
				ins.Arg0 = e.Arg0
				ins.Arg1 = e.Arg1
			default:
				ins.Arg0 = e.Arg0
			}
			var err error
			code, err = isa.Encode(code, ins)
			if err != nil {
				return nil, nil, err
			}
			lines.Add(offset, e.Src)
		}
	}
	return code, lines, nil
}
