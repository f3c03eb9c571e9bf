package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var versionsCmd = &cobra.Command{
	Use:   "versions <tool>",
	Short: "List versions available for a tool",
	Args:  cobra.ExactArgs(1),
	RunE:  runVersions,
}

// runVersions implements spec §6's "versions <tool>": enumerates the
// runtime's upstream, newest first, without installing anything.
func runVersions(cmd *cobra.Command, args []string) error {
	configureLogging()
	tool := args[0]

	c, err := newCore(cmd.OutOrStdout())
	if err != nil {
		return err
	}

	rt, err := c.registry.Lookup(tool)
	if err != nil {
		printError(err)
		return nil
	}

	infos, err := rt.FetchVersions(context.Background())
	if err != nil {
		printError(err)
		return nil
	}

	for _, info := range infos {
		line := info.Version
		if info.LTS {
			line += " (lts)"
		}
		if info.Prerelease {
			line += " (prerelease)"
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}
