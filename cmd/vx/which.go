package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var whichCmd = &cobra.Command{
	Use:   "which <tool>",
	Short: "Print the resolved binary path for a tool",
	Args:  cobra.ExactArgs(1),
	RunE:  runWhich,
}

// runWhich implements spec §6's "which <tool>": resolves (installing if
// necessary) but never executes.
func runWhich(cmd *cobra.Command, args []string) error {
	configureLogging()
	tool, constraint := splitToolSpec(args[0])

	c, err := newCore(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	graph, err := c.resolve(context.Background(), tool, c.constraintFor(tool, constraint), nil)
	c.console.Wait()
	if err != nil {
		printError(err)
		os.Exit(exitCodeFor(err))
	}

	node, _ := graph.Resolved(tool)
	if node.System {
		fmt.Fprintf(cmd.OutOrStdout(), "%s (system)\n", tool)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), node.ExecutablePath)
	return nil
}
