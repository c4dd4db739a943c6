package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

// Exit codes.
const (
	ExitSuccess      = 0
	ExitUsageError   = 2
	ExitAuthError    = 3
	ExitRuntimeError = 4
)

// newRootCmd builds the command tree for the subcommands. The review and
// listing flows never pass through cobra; see run.
func newRootCmd(d *Dispatcher) *cobra.Command {
	root := &cobra.Command{
		Use:           "review",
		Short:         "LLM pull request reviewer",
		Long:          "review lists GitHub pull requests and reviews them with an LLM, posting structured feedback.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(d.Stdout)
	root.SetErr(d.Stderr)
	root.AddCommand(newConfigCmd(d.Stdout, d.Stderr))
	return root
}

// Run executes the CLI with args (without the program name) and returns an
// exit code.
func Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return run(ctx, NewDispatcher(), args)
}

// run routes a leading "config" to cobra. Everything else goes to the
// dispatcher, whose grammar (an --out with an optional value, ignored
// unknown tokens) cobra's flag and subcommand lookup would misread.
func run(ctx context.Context, d *Dispatcher, args []string) int {
	if len(args) == 0 || args[0] != "config" {
		return d.Dispatch(ctx, Parse(args))
	}
	root := newRootCmd(d)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		printError(d.Stderr, err)
		return ExitUsageError
	}
	return ExitSuccess
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
}
