package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/subcommands"

	"eva/compiler"
	"eva/lexer"
	"eva/parser"
	"eva/runtime"
	"eva/token"
	"eva/vm"
)

// ReplCmd starts an interactive Eva session, grounded on
// informatter-nilan's cmd_repl_compiled.go loop shape (accumulate input
// until it's ready to parse, compile, run, keep the globals across forms),
// with chzyer/readline in place of the teacher's bufio.Scanner for history
// and line editing.
type ReplCmd struct {
	disassemble bool
}

func (*ReplCmd) Name() string     { return "repl" }
func (*ReplCmd) Synopsis() string { return "Start an interactive Eva session" }
func (*ReplCmd) Usage() string {
	return `repl:
  Start an interactive Eva REPL. Type :help to list native functions,
  exit or Ctrl-D to quit.
`
}

func (cmd *ReplCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&cmd.disassemble, "disasm", false, "print the disassembly of each compiled form")
}

func (cmd *ReplCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rl, err := readline.New("eva> ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 failed to start readline: %v\n", err)
		return subcommands.ExitFailure
	}
	defer rl.Close()

	globals := NewGlobalsWithNatives()
	machine := vm.New(globals)

	var buffer strings.Builder
	for {
		if buffer.Len() == 0 {
			rl.SetPrompt("eva> ")
		} else {
			rl.SetPrompt("...  ")
		}

		line, err := rl.Readline()
		if err != nil { // io.EOF (Ctrl-D) or readline.ErrInterrupt (Ctrl-C)
			return subcommands.ExitSuccess
		}
		if buffer.Len() == 0 {
			switch strings.TrimSpace(line) {
			case "exit":
				return subcommands.ExitSuccess
			case ":help":
				for _, doc := range globals.NativeDocs() {
					fmt.Println(doc)
				}
				continue
			}
		}

		if buffer.Len() > 0 {
			buffer.WriteString("\n")
		}
		buffer.WriteString(line)
		source := buffer.String()

		tokens, lexErr := lexer.New(source).Scan()
		if lexErr != nil {
			fmt.Fprintln(os.Stderr, lexErr.Error())
			buffer.Reset()
			continue
		}
		if !parensBalanced(tokens) {
			continue
		}

		forms, parseErrs := parser.Make(tokens).Parse()
		if len(parseErrs) > 0 {
			for _, pErr := range parseErrs {
				fmt.Fprintln(os.Stderr, pErr)
			}
			buffer.Reset()
			continue
		}

		comp := compiler.New(globals)
		code, compErr := comp.Compile(forms)
		if compErr != nil {
			fmt.Fprintln(os.Stderr, compErr.Error())
			buffer.Reset()
			continue
		}

		if cmd.disassemble {
			for _, c := range comp.CodeObjects() {
				fmt.Print(compiler.Disassemble(c))
			}
		}

		result, runErr := machine.Exec(code)
		if runErr != nil {
			fmt.Fprintln(os.Stderr, runErr.Error())
			buffer.Reset()
			continue
		}
		printResult(result)
		buffer.Reset()
	}
}

func printResult(v runtime.Value) {
	fmt.Println(v.String())
}

// parensBalanced reports whether the accumulated input has no unmatched '('
// — the REPL keeps reading lines until it does, so a multi-line `(def ...)`
// doesn't get submitted a form at a time.
func parensBalanced(tokens []token.Token) bool {
	depth := 0
	for _, tok := range tokens {
		switch tok.TokenType {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
		}
	}
	return depth <= 0
}
