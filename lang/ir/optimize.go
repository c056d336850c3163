package ir

import (
	"github.com/mna/aria/lang/isa"
)

// pushLikeOpcodes are the single-value stack pushes eligible for the
// push/pop elimination pass.
var pushLikeOpcodes = map[isa.Opcode]bool{
	isa.Push:             true,
	isa.Push0:            true,
	isa.Push1:            true,
	isa.PushTrue:         true,
	isa.PushFalse:        true,
	isa.PushBuiltinTy:    true,
	isa.PushRuntimeValue: true,
}

// RunOptimizePasses runs the full optimizer over every block of b to a
// fixed point, then removes orphaned blocks and unused locals. pool
// resolves ReadNamed constant indices for the true/false constant-fold
// pass. Mirrors func_builder.rs's run_optimize_passes: orphan removal and
// unused-local elimination run once, after the per-block passes (including
// cross-block jump threading) have stabilized.
func RunOptimizePasses(b *Builder, pool *isa.ConstantPool) {
	for {
		changed := false
		for {
			innerChanged := false
			for _, blk := range b.Blocks() {
				if optimizeBlockOnce(blk, pool) {
					innerChanged = true
				}
			}
			if threadJumps(b) {
				innerChanged = true
			}
			if !innerChanged {
				break
			}
			changed = true
		}

		removeOrphanBlocks(b)
		if removeUnusedLocals(b) {
			changed = true
		}
		if !changed {
			break
		}
	}
}

// optimizeBlockOnce applies the per-block passes 1-8 once, in order, with
// Nop removal also run before push/pop elimination. Jump threading
// (pass 9) spans blocks and runs separately in threadJumps. Returns
// whether anything changed.
func optimizeBlockOnce(blk *Block, pool *isa.ConstantPool) bool {
	changed := false
	changed = constantFoldTrueFalse(blk, pool) || changed
	changed = redundantConditionalJump(blk) || changed
	changed = redundantRead(blk, isa.ReadLocal) || changed
	changed = redundantRead(blk, isa.ReadNamed) || changed
	changed = storeLoadSequence(blk) || changed
	changed = removeAfterTerminal(blk) || changed
	changed = removeNops(blk) || changed
	changed = pushPopElimination(blk) || changed
	changed = removeNops(blk) || changed
	return changed
}

// 1. Constant fold true/false: ReadNamed("true") -> PushTrue;
// ReadNamed("false") -> PushFalse.
func constantFoldTrueFalse(blk *Block, pool *isa.ConstantPool) bool {
	changed := false
	for i := range blk.Entries {
		e := &blk.Entries[i]
		if e.Op != isa.ReadNamed {
			continue
		}
		c, ok := pool.Get(uint16(e.Arg0))
		if !ok || c.Kind != isa.ConstString {
			continue
		}
		switch c.Str {
		case "true":
			e.Op = isa.PushTrue
			e.Arg0 = 0
			changed = true
		case "false":
			e.Op = isa.PushFalse
			e.Arg0 = 0
			changed = true
		}
	}
	return changed
}

// 2. Redundant conditional jump:
//   PushTrue; JumpTrue(T)  -> Jump(T)
//   PushTrue; JumpFalse(T) -> Nop
//   PushFalse; JumpTrue(T)  -> Nop
//   PushFalse; JumpFalse(T) -> Jump(T)
func redundantConditionalJump(blk *Block) bool {
	changed := false
	for i := 0; i+1 < len(blk.Entries); i++ {
		push := blk.Entries[i]
		cond := blk.Entries[i+1]
		if push.Op != isa.PushTrue && push.Op != isa.PushFalse {
			continue
		}
		if cond.Op != isa.JumpTrue && cond.Op != isa.JumpFalse {
			continue
		}
		taken := (push.Op == isa.PushTrue && cond.Op == isa.JumpTrue) ||
			(push.Op == isa.PushFalse && cond.Op == isa.JumpFalse)
		blk.Entries[i].Op = isa.Nop
		if taken {
			blk.Entries[i+1] = Entry{Op: isa.Jump, Target: cond.Target, Src: cond.Src}
		} else {
			blk.Entries[i+1].Op = isa.Nop
			blk.Entries[i+1].Target = nil
		}
		changed = true
	}
	return changed
}

// 3/4. Redundant local/named read: successive reads of the same slot/name
// collapse into the first read followed by Dup, Dup, ... Operates on
// whichever opcode matches readOp (ReadLocal or ReadNamed).
func redundantRead(blk *Block, readOp isa.Opcode) bool {
	changed := false
	var active bool
	var activeArg uint32
	for i := range blk.Entries {
		e := &blk.Entries[i]
		if e.Op == readOp {
			if active && e.Arg0 == activeArg {
				e.Op = isa.Dup
				e.Arg0 = 0
				changed = true
				continue
			}
			active = true
			activeArg = e.Arg0
			continue
		}
		if e.Op == isa.Dup && active {
			// a Dup produced by a previous pass run keeps the chain alive
			continue
		}
		active = false
	}
	return changed
}

// 5. Store-load sequence: WriteLocal(n); ReadLocal(n) -> Dup; WriteLocal(n).
func storeLoadSequence(blk *Block) bool {
	changed := false
	for i := 0; i+1 < len(blk.Entries); i++ {
		w := blk.Entries[i]
		r := blk.Entries[i+1]
		if w.Op != isa.WriteLocal || r.Op != isa.ReadLocal || w.Arg0 != r.Arg0 {
			continue
		}
		blk.Entries[i] = Entry{Op: isa.Dup, Src: w.Src}
		blk.Entries[i+1] = Entry{Op: isa.WriteLocal, Arg0: w.Arg0, Src: r.Src}
		changed = true
	}
	return changed
}

// 6. Dead code after terminal: truncate the block at its first terminal
// opcode.
func removeAfterTerminal(blk *Block) bool {
	for i, e := range blk.Entries {
		if e.IsTerminal() && i+1 < len(blk.Entries) {
			blk.Entries = blk.Entries[:i+1]
			return true
		}
	}
	return false
}

// 7. Push/pop elimination: Push*; Pop -> Nop; Nop.
func pushPopElimination(blk *Block) bool {
	changed := false
	for i := 0; i+1 < len(blk.Entries); i++ {
		if pushLikeOpcodes[blk.Entries[i].Op] && blk.Entries[i+1].Op == isa.Pop {
			blk.Entries[i] = Entry{Op: isa.Nop}
			blk.Entries[i+1] = Entry{Op: isa.Nop}
			changed = true
		}
	}
	return changed
}

// 8. Nop removal: erase all Nops.
func removeNops(blk *Block) bool {
	out := blk.Entries[:0]
	changed := false
	for _, e := range blk.Entries {
		if e.Op == isa.Nop {
			changed = true
			continue
		}
		out = append(out, e)
	}
	blk.Entries = out
	return changed
}

// 9. Jump-to-jump threading (cross-block): if a block ends in Jump(T) and T
// begins with Jump(T'), rewrite to Jump(T'). Repeated by the caller until
// stable.
func threadJumps(b *Builder) bool {
	changed := false
	for _, blk := range b.Blocks() {
		if len(blk.Entries) == 0 {
			continue
		}
		last := &blk.Entries[len(blk.Entries)-1]
		if last.Op != isa.Jump || last.Target == nil {
			continue
		}
		target := last.Target
		if len(target.Entries) == 0 || target == blk {
			continue
		}
		first := target.Entries[0]
		if first.Op == isa.Jump && first.Target != nil && first.Target != target {
			last.Target = first.Target
			changed = true
		}
	}
	return changed
}

// removeOrphanBlocks computes the set of blocks reachable from the entry
// block by following jump targets recorded in any entry, anywhere, and
// deletes everything else. The entry block is never orphaned.
func removeOrphanBlocks(b *Builder) {
	reachable := map[*Block]bool{b.EntryBlock(): true}
	for _, blk := range b.Blocks() {
		for _, e := range blk.Entries {
			if e.Target != nil {
				reachable[e.Target] = true
			}
		}
	}
	kept := b.Blocks()[:0]
	for _, blk := range b.Blocks() {
		if reachable[blk] {
			kept = append(kept, blk)
		}
	}
	b.SetBlocks(kept)
}

// localAccess tracks the read and write sets of local slots across a
// function body, used to detect and eliminate unused locals.
type localAccess struct {
	reads  map[uint32]bool
	writes map[uint32]bool
}

func calculateLocalsAccess(b *Builder) localAccess {
	acc := localAccess{reads: map[uint32]bool{}, writes: map[uint32]bool{}}
	for _, blk := range b.Blocks() {
		for i, e := range blk.Entries {
			switch e.Op {
			case isa.ReadLocal, isa.StoreUplevel:
				acc.reads[e.Arg0] = true
			case isa.WriteLocal:
				acc.writes[e.Arg0] = true
			case isa.TypedefLocal:
				// A TypedefLocal preceded by PushBuiltinTy(Any) is an untyped
				// slot declaration and counts as writes-only; so does the very
				// first entry of a block (nothing precedes it to type-check).
				// Otherwise the type expression's side effects must be kept,
				// so it counts as both a read and a write (conservatively kept
				// alive).
				if i == 0 {
					acc.writes[e.Arg0] = true
					continue
				}
				prev := blk.Entries[i-1]
				if prev.Op == isa.PushBuiltinTy && prev.Arg0 == 1 /* Any */ {
					acc.writes[e.Arg0] = true
				} else {
					acc.writes[e.Arg0] = true
					acc.reads[e.Arg0] = true
				}
			}
		}
	}
	return acc
}

// unused returns the set of local slots written but never read.
func (a localAccess) unused() map[uint32]bool {
	out := map[uint32]bool{}
	for slot := range a.writes {
		if !a.reads[slot] {
			out[slot] = true
		}
	}
	return out
}

// removeUnusedLocals rewrites WriteLocal/TypedefLocal of unused slots to
// Pop, preserving any side-effecting expression that produced the value.
// Returns whether any rewrite happened.
func removeUnusedLocals(b *Builder) bool {
	acc := calculateLocalsAccess(b)
	unused := acc.unused()
	if len(unused) == 0 {
		return false
	}
	changed := false
	for _, blk := range b.Blocks() {
		for i := range blk.Entries {
			e := &blk.Entries[i]
			if (e.Op == isa.WriteLocal || e.Op == isa.TypedefLocal) && unused[e.Arg0] {
				*e = Entry{Op: isa.Pop, Src: e.Src}
				changed = true
			}
			if e.Op == isa.ReadLocal && unused[e.Arg0] {
				// Invariant: a dropped local must never still be read; if this
				// fires it means calculateLocalsAccess and the eliminator
				// disagree about liveness, which is an internal compiler bug.
				panic("ir: read of a local eliminated as unused")
			}
		}
	}
	return changed
}
