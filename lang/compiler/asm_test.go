package compiler_test

import (
	"testing"

	"github.com/mna/aria/lang/compiler"
	"github.com/mna/aria/lang/isa"
	"github.com/stretchr/testify/require"
)

func TestAsmErrors(t *testing.T) {
	cases := []struct {
		desc string
		in   string
		err  string
	}{
		{"empty", ``, "expected module section"},
		{"not module", `entry:`, "expected module section"},
		{"missing entry", `module:`, "expected entry section"},
		{"missing reqargs line", `
			module:
			entry:
				code:
				endentry
		`, "expected reqargs"},
		{"missing code section", `
			module:
			entry:
				reqargs: 0 optargs: 0 frame: 0 attrs: 0 vararg: false
				endentry
		`, "expected code section"},
		{"invalid opcode", `
			module:
			entry:
				reqargs: 0 optargs: 0 frame: 0 attrs: 0 vararg: false
				code:
					FROB
				endentry
		`, "invalid opcode: FROB"},
		{"missing operand", `
			module:
			entry:
				reqargs: 0 optargs: 0 frame: 1 attrs: 0 vararg: false
				code:
					READ_LOCAL
				endentry
		`, "expected 1 operand for READ_LOCAL"},
		{"extra operand", `
			module:
			entry:
				reqargs: 0 optargs: 0 frame: 0 attrs: 0 vararg: false
				code:
					HALT 1
				endentry
		`, "expected no operand for HALT"},
		{"invalid jump index", `
			module:
			entry:
				reqargs: 0 optargs: 0 frame: 0 attrs: 0 vararg: false
				code:
					JUMP 5
				endentry
		`, "invalid jump index"},
		{"missing endentry", `
			module:
			entry:
				reqargs: 0 optargs: 0 frame: 0 attrs: 0 vararg: false
				code:
					HALT
		`, "expected endentry"},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := compiler.Asm([]byte(tc.in))
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.err)
		})
	}
}

func TestAsmMinimal(t *testing.T) {
	src := `
		module:
		entry:
			reqargs: 0 optargs: 0 frame: 1 attrs: 0 vararg: false
			code:
				PUSH_0
				WRITE_LOCAL 0
				HALT
		endentry
	`
	prog, err := compiler.Asm([]byte(src))
	require.NoError(t, err)
	require.NotNil(t, prog.Entry)
	require.Equal(t, 1, prog.Entry.FrameSize)

	insns, _, err := isa.DecodeAll(prog.Entry.Body)
	require.NoError(t, err)
	require.Len(t, insns, 3)
	require.Equal(t, isa.Push0, insns[0].Op)
	require.Equal(t, isa.WriteLocal, insns[1].Op)
	require.Equal(t, uint32(0), insns[1].Arg0)
	require.Equal(t, isa.Halt, insns[2].Op)
}

func TestAsmJumpTranslation(t *testing.T) {
	src := `
		module:
		entry:
			reqargs: 0 optargs: 0 frame: 0 attrs: 0 vararg: false
			code:
				PUSH_TRUE
				JUMP_TRUE 3
				PUSH_0
				POP
				HALT
		endentry
	`
	prog, err := compiler.Asm([]byte(src))
	require.NoError(t, err)

	insns, offsets, err := isa.DecodeAll(prog.Entry.Body)
	require.NoError(t, err)
	require.Len(t, insns, 5)
	require.Equal(t, isa.JumpTrue, insns[1].Op)
	require.Equal(t, uint32(offsets[3]), insns[1].Arg0)
}

func TestAsmConstants(t *testing.T) {
	src := `
		module:
			constants:
				int    1234
				float  1.5
				string "hello world"
		entry:
			reqargs: 0 optargs: 0 frame: 0 attrs: 0 vararg: false
			code:
				HALT
		endentry
	`
	prog, err := compiler.Asm([]byte(src))
	require.NoError(t, err)
	require.Equal(t, 3, prog.Pool.Len())

	c0, ok := prog.Pool.Get(0)
	require.True(t, ok)
	require.Equal(t, isa.ConstInteger, c0.Kind)
	require.Equal(t, int64(1234), c0.Int)

	c2, ok := prog.Pool.Get(2)
	require.True(t, ok)
	require.Equal(t, isa.ConstString, c2.Kind)
	require.Equal(t, "hello world", c2.Str)
}

func TestAsmNestedFunction(t *testing.T) {
	src := `
		module:
		entry:
			reqargs: 0 optargs: 0 frame: 0 attrs: 0 vararg: false
			code:
				BUILD_FUNC 0
				POP
				HALT
			nested:
				function:
					reqargs: 1 optargs: 0 frame: 1 attrs: 1 vararg: false
					code:
						READ_LOCAL 0
						RETURN
				endfunction
			endnested
		endentry
	`
	prog, err := compiler.Asm([]byte(src))
	require.NoError(t, err)
	require.Len(t, prog.Entry.NestedFuncs, 1)
	nf := prog.Entry.NestedFuncs[0]
	require.Equal(t, 1, nf.RequiredArgc)
	require.Equal(t, uint8(1), nf.Attrs)
}

func TestDasmRoundTrip(t *testing.T) {
	pool := &isa.ConstantPool{}
	_, err := pool.InsertInt(42)
	require.NoError(t, err)
	_, err = pool.InsertString("ok")
	require.NoError(t, err)

	var body []byte
	body, err = isa.Encode(body, isa.Instruction{Op: isa.Push0})
	require.NoError(t, err)
	body, err = isa.Encode(body, isa.Instruction{Op: isa.JumpTrue, Arg0: 0})
	require.NoError(t, err)
	body, err = isa.Encode(body, isa.Instruction{Op: isa.Halt})
	require.NoError(t, err)

	entry := &isa.CodeObject{RequiredArgc: 0, OptionalArgc: 0, FrameSize: 0, Body: body}
	prog := &compiler.Program{Pool: pool, Entry: entry}

	text, err := compiler.Dasm(prog)
	require.NoError(t, err)

	reparsed, err := compiler.Asm(text)
	require.NoError(t, err)
	require.Equal(t, 2, reparsed.Pool.Len())

	insns, _, err := isa.DecodeAll(reparsed.Entry.Body)
	require.NoError(t, err)
	require.Len(t, insns, 3)
	require.Equal(t, isa.Push0, insns[0].Op)
	require.Equal(t, isa.JumpTrue, insns[1].Op)
	require.Equal(t, isa.Halt, insns[2].Op)
}
