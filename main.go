package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/joho/godotenv"

	"eva/cmd"
)

func main() {
	godotenv.Load()

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&cmd.RunCmd{}, "")
	subcommands.Register(&cmd.ReplCmd{}, "")
	subcommands.Register(&cmd.DisasmCmd{}, "")

	expr := flag.String("e", "", "evaluate an Eva expression")
	file := flag.String("f", "", "run an Eva source file")
	flag.Parse()

	// The flat -e/-f surface spec.md §6 requires directly, without going
	// through a subcommand; anything else falls through to subcommands.
	switch {
	case *expr != "":
		runSource(*expr)
		return
	case *file != "":
		data, err := os.ReadFile(*file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "💥 failed to read file: %v\n", err)
			os.Exit(1)
		}
		runSource(string(data))
		return
	}

	os.Exit(int(subcommands.Execute(context.Background())))
}

func runSource(source string) {
	result, err := cmd.Exec(source)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	fmt.Println(result.String())
}
