package isa_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/aria/lang/isa"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []isa.Instruction{
		{Op: isa.Nop},
		{Op: isa.Push, Arg0: 0x1234},
		{Op: isa.PushBuiltinTy, Arg0: 7},
		{Op: isa.ReadLocal, Arg0: 255},
		{Op: isa.BuildList, Arg0: 0xdeadbeef},
		{Op: isa.JumpIfArgSupplied, Arg0: 3, Arg1: 0x00ff},
		{Op: isa.BindMethod, Arg0: 1, Arg1: 42},
		{Op: isa.Halt},
	}

	var buf []byte
	offsets := make([]int, len(cases))
	for i, ins := range cases {
		offsets[i] = len(buf)
		var err error
		buf, err = isa.Encode(buf, ins)
		require.NoError(t, err)
	}

	got, gotOffsets, err := isa.DecodeAll(buf)
	require.NoError(t, err)
	require.Equal(t, offsets, gotOffsets)
	require.Len(t, got, len(cases))
	for i, want := range cases {
		assert.Equal(t, want, got[i])
	}
}

func TestByteSizeMatchesEncodedLength(t *testing.T) {
	ins := isa.Instruction{Op: isa.Call, Arg0: 3}
	buf, err := isa.Encode(nil, ins)
	require.NoError(t, err)
	assert.Equal(t, isa.Call.ByteSize(), len(buf))
}

func TestDecodeUnknownOpcode(t *testing.T) {
	_, _, err := isa.Decode([]byte{199}, 0)
	require.Error(t, err)
	var unk isa.ErrUnknownOpcode
	require.ErrorAs(t, err, &unk)
	assert.EqualValues(t, 199, unk.Byte)
}

func TestDecodeIncompleteInstruction(t *testing.T) {
	// PUSH needs a u16 operand; give it only one byte.
	_, _, err := isa.Decode([]byte{byte(isa.Push), 0x01}, 0)
	require.Error(t, err)
	var incomplete isa.ErrIncompleteInstruction
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, isa.Push, incomplete.Op)
}

func TestTerminalOpcodes(t *testing.T) {
	assert.True(t, isa.Jump.IsTerminal())
	assert.True(t, isa.Return.IsTerminal())
	assert.True(t, isa.Throw.IsTerminal())
	assert.True(t, isa.Halt.IsTerminal())
	assert.False(t, isa.JumpTrue.IsTerminal())
	assert.False(t, isa.Add.IsTerminal())
}
