package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var installForce bool

var installCmd = &cobra.Command{
	Use:   "install <tool>[@<version>]",
	Short: "Force-install a tool version",
	Args:  cobra.ExactArgs(1),
	RunE:  runInstall,
}

func init() {
	installCmd.Flags().BoolVar(&installForce, "force", false, "remove and reinstall even if already present")
}

// runInstall implements spec §6's "install <tool>[@<version>]" and the
// Open Questions decision that --force means remove-and-reinstall.
func runInstall(cmd *cobra.Command, args []string) error {
	configureLogging()
	tool, constraint := splitToolSpec(args[0])

	c, err := newCore(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if installForce {
		c.resolver.DisableCache(true)
		c.resolver.ForceReinstall(tool)
	}

	ctx := context.Background()
	graph, err := c.resolve(ctx, tool, c.constraintFor(tool, constraint), args)
	c.console.Wait()
	if err != nil {
		printError(err)
		os.Exit(exitCodeFor(err))
	}

	node, _ := graph.Resolved(tool)
	fmt.Fprintf(cmd.OutOrStdout(), "%s@%s installed at %s\n", tool, node.Version, node.InstallDir)
	return nil
}
