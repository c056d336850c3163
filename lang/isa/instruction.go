package isa

import (
	"encoding/binary"
	"fmt"
)

// Instruction is a decoded bytecode instruction. Arg0 holds the primary
// operand (zero-extended from whatever width the opcode uses); Arg1 holds
// the secondary operand for the few two-operand opcodes
// (JumpIfArgSupplied, BindMethod, BindCase).
type Instruction struct {
	Op   Opcode
	Arg0 uint32
	Arg1 uint32
}

func (ins Instruction) String() string {
	shape, _ := ins.Op.Shape()
	switch shape {
	case NoOperand:
		return ins.Op.Name()
	case U8U16Operand:
		return fmt.Sprintf("%s %d @%d", ins.Op.Name(), ins.Arg0, ins.Arg1)
	default:
		return fmt.Sprintf("%s %d", ins.Op.Name(), ins.Arg0)
	}
}

// Encode appends the wire encoding of ins to buf and returns the extended
// slice.
func Encode(buf []byte, ins Instruction) ([]byte, error) {
	shape, ok := ins.Op.Shape()
	if !ok {
		return nil, fmt.Errorf("isa: encode: unknown opcode %d", uint8(ins.Op))
	}
	buf = append(buf, byte(ins.Op))
	switch shape {
	case NoOperand:
	case U8Operand:
		buf = append(buf, byte(ins.Arg0))
	case U16Operand:
		var tmp [2]byte
		binary.LittleEndian.PutUint16(tmp[:], uint16(ins.Arg0))
		buf = append(buf, tmp[:]...)
	case U32Operand:
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], ins.Arg0)
		buf = append(buf, tmp[:]...)
	case U8U16Operand:
		buf = append(buf, byte(ins.Arg0))
		var tmp [2]byte
		binary.LittleEndian.PutUint16(tmp[:], uint16(ins.Arg1))
		buf = append(buf, tmp[:]...)
	default:
		return nil, fmt.Errorf("isa: encode: unhandled operand shape for %s", ins.Op)
	}
	return buf, nil
}

// ErrUnknownOpcode is returned by Decode when the leading byte does not
// name a recognized opcode. It is a fatal, VM-halting condition per the
// error taxonomy (VmErrorReason.UnknownOpcode).
type ErrUnknownOpcode struct{ Byte byte }

func (e ErrUnknownOpcode) Error() string {
	return fmt.Sprintf("isa: %d is not a known opcode", e.Byte)
}

// ErrIncompleteInstruction is returned by Decode when the stream ends
// mid-operand. Fatal (VmErrorReason.IncompleteInstruction).
type ErrIncompleteInstruction struct{ Op Opcode }

func (e ErrIncompleteInstruction) Error() string {
	return fmt.Sprintf("isa: instruction %s cannot be fully decoded", e.Op)
}

// Decode reads one instruction starting at code[pc] and returns it along
// with the number of bytes consumed.
func Decode(code []byte, pc int) (Instruction, int, error) {
	if pc >= len(code) {
		return Instruction{}, 0, fmt.Errorf("isa: decode: pc %d out of range", pc)
	}
	op := Opcode(code[pc])
	shape, ok := op.Shape()
	if !ok {
		return Instruction{}, 0, ErrUnknownOpcode{Byte: code[pc]}
	}
	size := op.ByteSize()
	if pc+size > len(code) {
		return Instruction{}, 0, ErrIncompleteInstruction{Op: op}
	}
	ins := Instruction{Op: op}
	switch shape {
	case NoOperand:
	case U8Operand:
		ins.Arg0 = uint32(code[pc+1])
	case U16Operand:
		ins.Arg0 = uint32(binary.LittleEndian.Uint16(code[pc+1 : pc+3]))
	case U32Operand:
		ins.Arg0 = binary.LittleEndian.Uint32(code[pc+1 : pc+5])
	case U8U16Operand:
		ins.Arg0 = uint32(code[pc+1])
		ins.Arg1 = uint32(binary.LittleEndian.Uint16(code[pc+2 : pc+4]))
	}
	return ins, size, nil
}

// DecodeAll decodes an entire body into its instruction sequence along with
// the byte offset each instruction started at. Used by the disassembler and
// by tests; the VM itself decodes one instruction at a time from its
// program counter.
func DecodeAll(code []byte) ([]Instruction, []int, error) {
	var insns []Instruction
	var offsets []int
	pc := 0
	for pc < len(code) {
		ins, n, err := Decode(code, pc)
		if err != nil {
			return nil, nil, err
		}
		insns = append(insns, ins)
		offsets = append(offsets, pc)
		pc += n
	}
	return insns, offsets, nil
}
