package compiler

import (
	"encoding/binary"
	"fmt"
)

// Bytecode pairs a flat instruction stream with the constants pool it
// indexes into. The compiler and VM do not use it: they exchange
// runtime.CodeObject values.
type Bytecode struct {
	Instructions Instructions
	Constants    []any
}

type Opcode byte

type Instructions []byte

// Opcodes. JMP and JMP_IF_FALSE take a big-endian uint16 target (3 bytes
// wide); every other opcode takes no operand or a single one-byte operand.
const (
	HALT Opcode = iota
	CONST
	ADD
	SUB
	MUL
	DIV
	COMPARE
	JMP_IF_FALSE
	JMP
	GET_GLOBAL
	SET_GLOBAL
	POP
	GET_LOCAL
	SET_LOCAL
	SCOPE_EXIT
	CALL
	RETURN
	GET_CELL
	SET_CELL
	LOAD_CELL
	MAKE_FUNCTION
)

// Comparison modes, the operand to COMPARE.
const (
	CmpEQ byte = iota
	CmpNEQ
	CmpLT
	CmpLTE
	CmpGT
	CmpGTE
)

// OpCodeDefinition names an opcode and the width, in bytes, of each of its
// operands.
type OpCodeDefinition struct {
	Name          string
	OperandWidths []int
}

// Per the data-model invariants, constant/local/cell indices and argument
// counts all fit in one byte; only jump targets need the full instruction
// stream's 16-bit address space.
var definitions = map[Opcode]*OpCodeDefinition{
	HALT:          {Name: "HALT", OperandWidths: []int{}},
	CONST:         {Name: "CONST", OperandWidths: []int{1}},
	ADD:           {Name: "ADD", OperandWidths: []int{}},
	SUB:           {Name: "SUB", OperandWidths: []int{}},
	MUL:           {Name: "MUL", OperandWidths: []int{}},
	DIV:           {Name: "DIV", OperandWidths: []int{}},
	COMPARE:       {Name: "COMPARE", OperandWidths: []int{1}},
	JMP_IF_FALSE:  {Name: "JMP_IF_FALSE", OperandWidths: []int{2}},
	JMP:           {Name: "JMP", OperandWidths: []int{2}},
	GET_GLOBAL:    {Name: "GET_GLOBAL", OperandWidths: []int{1}},
	SET_GLOBAL:    {Name: "SET_GLOBAL", OperandWidths: []int{1}},
	POP:           {Name: "POP", OperandWidths: []int{}},
	GET_LOCAL:     {Name: "GET_LOCAL", OperandWidths: []int{1}},
	SET_LOCAL:     {Name: "SET_LOCAL", OperandWidths: []int{1}},
	SCOPE_EXIT:    {Name: "SCOPE_EXIT", OperandWidths: []int{1}},
	CALL:          {Name: "CALL", OperandWidths: []int{1}},
	RETURN:        {Name: "RETURN", OperandWidths: []int{}},
	GET_CELL:      {Name: "GET_CELL", OperandWidths: []int{1}},
	SET_CELL:      {Name: "SET_CELL", OperandWidths: []int{1}},
	LOAD_CELL:     {Name: "LOAD_CELL", OperandWidths: []int{1}},
	MAKE_FUNCTION: {Name: "MAKE_FUNCTION", OperandWidths: []int{1}},
}

func Get(op Opcode) (*OpCodeDefinition, error) {
	def, ok := definitions[op]
	if !ok {
		return nil, fmt.Errorf("opcode %d undefined", op)
	}
	return def, nil
}

// Make encodes an opcode and its operands into a single instruction, using
// the operand widths from definitions: jump targets are written as 2-byte
// big-endian values, every other operand as a single byte.
func Make(op Opcode, operands ...int) []byte {
	def, err := Get(op)
	if err != nil {
		return []byte{}
	}

	length := 1
	for _, w := range def.OperandWidths {
		length += w
	}
	instruction := make([]byte, length)
	instruction[0] = byte(op)

	offset := 1
	for i, operand := range operands {
		width := def.OperandWidths[i]
		switch width {
		case 1:
			instruction[offset] = byte(operand)
		case 2:
			binary.BigEndian.PutUint16(instruction[offset:], uint16(operand))
		}
		offset += width
	}
	return instruction
}

// ReadOperands decodes the operands of the instruction at ins[0:], returning
// them along with the total width consumed (not including the opcode byte).
func ReadOperands(def *OpCodeDefinition, ins Instructions) ([]int, int) {
	operands := make([]int, len(def.OperandWidths))
	offset := 0
	for i, width := range def.OperandWidths {
		switch width {
		case 1:
			operands[i] = int(ins[offset])
		case 2:
			operands[i] = int(binary.BigEndian.Uint16(ins[offset:]))
		}
		offset += width
	}
	return operands, offset
}
