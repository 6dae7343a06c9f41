// Package cmd implements Eva's google/subcommands-based CLI: `run`, `repl`,
// and `disasm`, grounded on informatter-nilan's cmd_run.go /
// cmd_repl_compiled.go / cmd_emit_bytecode.go, adapted from Nilan's
// interpreter pipeline to Eva's lexer/ast/scope/compiler/vm pipeline.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"eva/ast"
	"eva/compiler"
	"eva/lexer"
	"eva/parser"
	"eva/runtime"
	"eva/vm"
)

// RunCmd executes an Eva source file to completion.
type RunCmd struct{}

func (*RunCmd) Name() string     { return "run" }
func (*RunCmd) Synopsis() string { return "Execute an Eva source file" }
func (*RunCmd) Usage() string {
	return `run <file>:
  Execute Eva code from a source file.
`
}
func (*RunCmd) SetFlags(f *flag.FlagSet) {}

func (*RunCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	result, err := Exec(string(data))
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return subcommands.ExitFailure
	}
	fmt.Println(result.String())
	return subcommands.ExitSuccess
}

// Exec is the Host API surface spec.md §6 requires: compile and run source,
// wrapping it in an implicit top-level `begin`, against a fresh VM with the
// native standard library registered.
func Exec(source string) (runtime.Value, error) {
	forms, err := parseProgram(source)
	if err != nil {
		return runtime.Value{}, err
	}

	globals := NewGlobalsWithNatives()
	comp := compiler.New(globals)
	code, err := comp.Compile(forms)
	if err != nil {
		return runtime.Value{}, err
	}

	machine := vm.New(globals)
	return machine.Exec(code)
}

func parseProgram(source string) ([]ast.Node, error) {
	lex := lexer.New(source)
	tokens, err := lex.Scan()
	if err != nil {
		return nil, err
	}
	forms, errs := parser.Make(tokens).Parse()
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return forms, nil
}
