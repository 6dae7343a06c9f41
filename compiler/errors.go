package compiler

import "fmt"

// CompileError reports a form the compiler cannot emit bytecode for: an
// unsupported special form, or an operand that doesn't fit the byte budget
// (more than 255 constants or locals in one function).
type CompileError struct {
	Reason string
}

func (e CompileError) Error() string {
	return fmt.Sprintf("💥 Eva compile error: %s", e.Reason)
}
