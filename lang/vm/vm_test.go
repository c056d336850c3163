package vm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/aria/lang/ir"
	"github.com/mna/aria/lang/isa"
	"github.com/mna/aria/lang/runtime"
	"github.com/mna/aria/lang/source"
	"github.com/mna/aria/lang/vm"
)

// buildCode compiles a builder's entries to a CodeObject ready to run,
// mirroring the compiler's final lowering step (optimize, then
// linearize).
func buildCode(t *testing.T, pool *isa.ConstantPool, b *ir.Builder, frameSize int) *isa.CodeObject {
	t.Helper()
	ir.RunOptimizePasses(b, pool)
	body, lines, err := ir.Linearize(b)
	require.NoError(t, err)
	return &isa.CodeObject{Name: b.Name, Body: body, FrameSize: frameSize, Lines: lines}
}

func TestArithmeticAndLocalsEndToEnd(t *testing.T) {
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
	b.Emit(isa.Return, 0, source.Unknown)

	code := buildCode(t, &pool, b, 1)
	mod := vm.NewModule("main", &pool, code)
	fn := &runtime.Function{Name: "main", Code: code, ModuleRef: mod}
	closure := runtime.NewClosure(fn)

	th := vm.NewThread(context.Background())
	result, err := th.Call(closure, nil)
	require.NoError(t, err)
	assert.True(t, result.(*runtime.Boolean).V)
}

func TestCallWithArguments(t *testing.T) {
	var pool isa.ConstantPool
	b := ir.NewBuilder("double")
	b.Emit(isa.ReadLocal, 0, source.Unknown)
	b.Emit(isa.ReadLocal, 0, source.Unknown)
	b.Emit(isa.Add, 0, source.Unknown)
	b.Emit(isa.Return, 0, source.Unknown)

	code := buildCode(t, &pool, b, 1)
	code.RequiredArgc = 1
	mod := vm.NewModule("m", &pool, code)
	fn := &runtime.Function{Name: "double", Code: code, ModuleRef: mod}
	closure := runtime.NewClosure(fn)

	th := vm.NewThread(context.Background())
	result, err := th.Call(closure, []runtime.Value{runtime.NewInteger(21)})
	require.NoError(t, err)
	assert.Equal(t, int64(42), result.(*runtime.Integer).V)
}

func TestMismatchedArgumentCount(t *testing.T) {
	var pool isa.ConstantPool
	b := ir.NewBuilder("needs_one")
	b.Emit(isa.Return, 0, source.Unknown)
	code := buildCode(t, &pool, b, 0)
	code.RequiredArgc = 1
	mod := vm.NewModule("m", &pool, code)
	fn := &runtime.Function{Name: "needs_one", Code: code, ModuleRef: mod}
	closure := runtime.NewClosure(fn)

	th := vm.NewThread(context.Background())
	_, err := th.Call(closure, nil)
	assert.Error(t, err)
}

func TestThrowCaughtByTryEnter(t *testing.T) {
	var pool isa.ConstantPool
	msg, err := pool.InsertString("boom")
	require.NoError(t, err)

	b := ir.NewBuilder("f")
	handler := b.AppendBlock("handler")
	entry := b.EntryBlock()
	b.SetCurrentBlock(entry)
	b.Emit(isa.TryEnter, 0, source.Unknown) // target patched below
	b.Emit(isa.Push, uint32(msg), source.Unknown)
	b.Emit(isa.Throw, 0, source.Unknown)
	b.SetCurrentBlock(handler)
	b.Emit(isa.TryExit, 0, source.Unknown)
	b.Emit(isa.Return, 0, source.Unknown) // returns the caught value

	// wire the TryEnter's implicit jump target manually since Emit(TryEnter)
	// doesn't take a Target the way EmitJump does.
	entry.Entries[0].Target = handler

	// Linearize resolves isa.TryEnter's jump-style Target the same as any
	// other jump opcode.
	ir.RunOptimizePasses(b, &pool)
	body, lines, err := ir.Linearize(b)
	require.NoError(t, err)
	code := &isa.CodeObject{Name: "f", Body: body, FrameSize: 1, Lines: lines}

	mod := vm.NewModule("m", &pool, code)
	fn := &runtime.Function{Name: "f", Code: code, ModuleRef: mod}
	closure := runtime.NewClosure(fn)

	th := vm.NewThread(context.Background())
	result, err := th.Call(closure, nil)
	require.NoError(t, err)
	assert.Equal(t, "boom", result.(*runtime.String).V)
}
