package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"eva/compiler"
)

// DisasmCmd compiles a source file and prints the bytecode of every
// CodeObject it produces, grounded on informatter-nilan's cmd_emit_bytecode.go
// / DiassembleBytecode, generalized to Eva's full opcode set.
type DisasmCmd struct{}

func (*DisasmCmd) Name() string     { return "disasm" }
func (*DisasmCmd) Synopsis() string { return "Compile a file and print its disassembled bytecode" }
func (*DisasmCmd) Usage() string {
	return `disasm <file>:
  Compile Eva source and print the disassembly of every CodeObject produced.
`
}
func (*DisasmCmd) SetFlags(f *flag.FlagSet) {}

func (*DisasmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "💥 file not provided\n")
		return subcommands.ExitUsageError
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 failed to read file: %v\n", err)
		return subcommands.ExitFailure
	}

	forms, err := parseProgram(string(data))
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return subcommands.ExitFailure
	}

	globals := NewGlobalsWithNatives()
	comp := compiler.New(globals)
	if _, err := comp.Compile(forms); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return subcommands.ExitFailure
	}

	for _, code := range comp.CodeObjects() {
		fmt.Print(compiler.Disassemble(code))
	}
	return subcommands.ExitSuccess
}
