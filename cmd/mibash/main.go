// Command mibash is a thin entry point around the executor package. The
// interactive REPL, tokenizer, and parser that would normally build an
// ast.Node tree are out of scope for this repository (see spec.md §1); this
// binary exists to exercise the executor end to end and to host the
// self-reexec subshell/background trampoline every Subshell and Background
// node relies on.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tinyshell/mibash/ast"
	"github.com/tinyshell/mibash/executor"
)

func main() {
	// A re-exec'd subshell/background child never reaches cobra at all: it
	// is detected and dispatched before any flag parsing, exactly as the
	// hidden "forkmount"-style arguments are detected first in the
	// container-setup tooling this pattern is grounded on.
	if executor.IsTrampolineInvocation(os.Args) {
		os.Exit(executor.RunTrampoline())
	}

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mibash",
		Short:         "Executor for a POSIX-style shell command tree",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(execCmd())
	return root
}

// execCmd runs one external command (argv[0] argv[1:]) through the
// executor as a bare SIMPLE node, the smallest useful demonstration of the
// executor without a parser: `mibash exec -- echo hello`.
func execCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exec -- <command> [args...]",
		Short: "Run a single command through the executor",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := executor.New()
			e.Process(&ast.Command{Argv: args})
			if e.Status != "0" {
				code := 1
				fmt.Sscanf(strings.TrimSpace(e.Status), "%d", &code)
				os.Exit(code)
			}
			return nil
		},
	}
}
