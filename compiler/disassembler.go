package compiler

import (
	"fmt"
	"strings"

	"eva/runtime"
)

// Disassemble renders code and every CodeObject reachable through its
// constant pool (nested function bodies) as human-readable text, grounded on
// the teacher's DiassembleBytecode method generalized to Eva's opcode set.
func Disassemble(code *runtime.CodeObject) string {
	var b strings.Builder
	disassembleOne(&b, code)
	return b.String()
}

func disassembleOne(b *strings.Builder, code *runtime.CodeObject) {
	fmt.Fprintf(b, "----- Disassembly: %s -----\n", code.Name)

	ins := Instructions(code.Instructions)
	offset := 0
	for offset < len(ins) {
		op := Opcode(ins[offset])
		def, err := Get(op)
		if err != nil {
			fmt.Fprintf(b, "%04x ERROR: %s\n", offset, err)
			offset++
			continue
		}

		operands, width := ReadOperands(def, ins[offset+1:])
		raw := ins[offset : offset+1+width]

		hexBytes := make([]string, len(raw))
		for i, by := range raw {
			hexBytes[i] = fmt.Sprintf("%02x", by)
		}

		fmt.Fprintf(b, "%04x  %-24s  %s%s\n", offset, strings.Join(hexBytes, " "), def.Name, formatOperands(code, op, operands))
		offset += 1 + width
	}
	b.WriteString("\n")

	for _, c := range code.Constants {
		if nested, ok := c.Obj.(*runtime.CodeObject); ok {
			disassembleOne(b, nested)
		}
	}
}

// formatOperands decodes operands into a trailing human-readable comment:
// jump targets as 4-hex-digit absolute offsets, constant-pool/cell/global
// indices resolved to their underlying name or value where that's known at
// disassembly time.
func formatOperands(code *runtime.CodeObject, op Opcode, operands []int) string {
	if len(operands) == 0 {
		return ""
	}
	switch op {
	case JMP, JMP_IF_FALSE:
		return fmt.Sprintf(" %04x", operands[0])
	case CONST:
		idx := operands[0]
		if idx >= 0 && idx < len(code.Constants) {
			return fmt.Sprintf(" %d (%s)", idx, code.Constants[idx].String())
		}
		return fmt.Sprintf(" %d", idx)
	case GET_CELL, SET_CELL, LOAD_CELL:
		idx := operands[0]
		if idx >= 0 && idx < len(code.CellNames) {
			return fmt.Sprintf(" %d (%s)", idx, code.CellNames[idx])
		}
		return fmt.Sprintf(" %d", idx)
	case COMPARE:
		return fmt.Sprintf(" %d (%s)", operands[0], compareModeName(byte(operands[0])))
	default:
		parts := make([]string, len(operands))
		for i, o := range operands {
			parts[i] = fmt.Sprintf("%d", o)
		}
		return " " + strings.Join(parts, " ")
	}
}

func compareModeName(mode byte) string {
	switch mode {
	case CmpEQ:
		return "=="
	case CmpNEQ:
		return "!="
	case CmpLT:
		return "<"
	case CmpLTE:
		return "<="
	case CmpGT:
		return ">"
	case CmpGTE:
		return ">="
	default:
		return "?"
	}
}
