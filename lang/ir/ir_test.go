package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/aria/lang/ir"
	"github.com/mna/aria/lang/isa"
	"github.com/mna/aria/lang/source"
)

func TestArithmeticAndLocalsLinearize(t *testing.T) {
	var pool isa.ConstantPool
	two, err := pool.InsertInt(2)
	require.NoError(t, err)
	three, err := pool.InsertInt(3)
	require.NoError(t, err)
	five, err := pool.InsertInt(5)
	require.NoError(t, err)

	b := ir.NewBuilder("main")
	b.Emit(isa.Push, uint32(two), source.Unknown)
	b.Emit(isa.Push, uint32(three), source.Unknown)
	b.Emit(isa.Add, 0, source.Unknown)
	b.Emit(isa.WriteLocal, 0, source.Unknown)
	b.Emit(isa.ReadLocal, 0, source.Unknown)
	b.Emit(isa.Push, uint32(five), source.Unknown)
	b.Emit(isa.Eq, 0, source.Unknown)
	b.Emit(isa.Assert, 0, source.Unknown)
	b.Emit(isa.Return, 0, source.Unknown)

	ir.RunOptimizePasses(b, &pool)
	code, lines, err := ir.Linearize(b)
	require.NoError(t, err)
	assert.NotNil(t, lines)

	insns, _, err := isa.DecodeAll(code)
	require.NoError(t, err)
	var ops []isa.Opcode
	for _, in := range insns {
		ops = append(ops, in.Op)
	}
	assert.Equal(t, []isa.Opcode{
		isa.Push, isa.Push, isa.Add, isa.WriteLocal, isa.ReadLocal,
		isa.Push, isa.Eq, isa.Assert, isa.Return,
	}, ops)
}

func TestConstantFoldTrueFalse(t *testing.T) {
	var pool isa.ConstantPool
	trueIdx, err := pool.InsertString("true")
	require.NoError(t, err)

	b := ir.NewBuilder("f")
	b.Emit(isa.ReadNamed, uint32(trueIdx), source.Unknown)
	b.Emit(isa.Return, 0, source.Unknown)

	ir.RunOptimizePasses(b, &pool)
	code, _, err := ir.Linearize(b)
	require.NoError(t, err)
	insns, _, err := isa.DecodeAll(code)
	require.NoError(t, err)
	require.Len(t, insns, 2)
	assert.Equal(t, isa.PushTrue, insns[0].Op)
}

func TestRedundantConditionalJump(t *testing.T) {
	var pool isa.ConstantPool
	b := ir.NewBuilder("f")
	target := b.AppendBlock("target")
	b.EmitJump(isa.JumpTrue, target, source.Unknown)
	// insert PushTrue before the jump by re-emitting from scratch.
	blk := b.EntryBlock()
	blk.Entries = nil
	b.SetCurrentBlock(blk)
	b.Emit(isa.PushTrue, 0, source.Unknown)
	b.EmitJump(isa.JumpTrue, target, source.Unknown)
	b.SetCurrentBlock(target)
	b.Emit(isa.Return, 0, source.Unknown)

	ir.RunOptimizePasses(b, &pool)
	code, _, err := ir.Linearize(b)
	require.NoError(t, err)
	insns, _, err := isa.DecodeAll(code)
	require.NoError(t, err)
	require.Len(t, insns, 2)
	assert.Equal(t, isa.Jump, insns[0].Op)
}

func TestPushPopElimination(t *testing.T) {
	var pool isa.ConstantPool
	b := ir.NewBuilder("f")
	b.Emit(isa.Push0, 0, source.Unknown)
	b.Emit(isa.Pop, 0, source.Unknown)
	b.Emit(isa.Return, 0, source.Unknown)

	ir.RunOptimizePasses(b, &pool)
	code, _, err := ir.Linearize(b)
	require.NoError(t, err)
	insns, _, err := isa.DecodeAll(code)
	require.NoError(t, err)
	require.Len(t, insns, 1)
	assert.Equal(t, isa.Return, insns[0].Op)
}

func TestOrphanBlockRemoval(t *testing.T) {
	var pool isa.ConstantPool
	b := ir.NewBuilder("f")
	orphan := b.AppendBlock("dead")
	b.Emit(isa.Return, 0, source.Unknown)
	b.SetCurrentBlock(orphan)
	b.Emit(isa.Push0, 0, source.Unknown)
	b.Emit(isa.Return, 0, source.Unknown)

	ir.RunOptimizePasses(b, &pool)
	assert.Len(t, b.Blocks(), 1, "the unreferenced block must be pruned")
}

func TestUnusedLocalElimination(t *testing.T) {
	var pool isa.ConstantPool
	b := ir.NewBuilder("f")
	b.Emit(isa.Push0, 0, source.Unknown)
	b.Emit(isa.WriteLocal, 0, source.Unknown) // written, never read
	b.Emit(isa.Return, 0, source.Unknown)

	ir.RunOptimizePasses(b, &pool)
	code, _, err := ir.Linearize(b)
	require.NoError(t, err)
	insns, _, err := isa.DecodeAll(code)
	require.NoError(t, err)
	var ops []isa.Opcode
	for _, in := range insns {
		ops = append(ops, in.Op)
	}
	assert.Equal(t, []isa.Opcode{isa.Return}, ops, "Push0;WriteLocal collapses to Pop, then Push0;Pop collapses away entirely on the follow-up per-block pass")
}

func TestIdempotentOptimization(t *testing.T) {
	var pool isa.ConstantPool
	five, _ := pool.InsertInt(5)
	b := ir.NewBuilder("f")
	b.Emit(isa.ReadLocal, 0, source.Unknown)
	b.Emit(isa.ReadLocal, 0, source.Unknown)
	b.Emit(isa.ReadLocal, 0, source.Unknown)
	b.Emit(isa.Push, uint32(five), source.Unknown)
	b.Emit(isa.Return, 0, source.Unknown)

	ir.RunOptimizePasses(b, &pool)
	first, _, err := ir.Linearize(b)
	require.NoError(t, err)

	ir.RunOptimizePasses(b, &pool)
	second, _, err := ir.Linearize(b)
	require.NoError(t, err)

	assert.Equal(t, first, second, "running the optimizer twice must yield the same output as once")
}
