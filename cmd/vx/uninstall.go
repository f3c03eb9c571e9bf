package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var uninstallAll bool

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <tool>[@<version>]",
	Short: "Remove an installed tool version",
	Args:  cobra.ExactArgs(1),
	RunE:  runUninstall,
}

func init() {
	uninstallCmd.Flags().BoolVar(&uninstallAll, "all", false, "remove every installed version of the tool")
}

// runUninstall implements spec §6's "uninstall <tool>[@<version>]" and
// "--all removes every version". The store is append-only while a
// sentinel is present (spec §5); uninstall is the one place allowed to
// remove a completed install directory wholesale.
func runUninstall(cmd *cobra.Command, args []string) error {
	configureLogging()
	tool, constraint := splitToolSpec(args[0])

	c, err := newCore(cmd.OutOrStdout())
	if err != nil {
		return err
	}

	toolDir := filepath.Join(c.paths.Root(), "store", tool)
	if uninstallAll {
		if err := os.RemoveAll(toolDir); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed every installed version of %s\n", tool)
		return nil
	}

	if constraint == "" {
		return fmt.Errorf("uninstall requires either <tool>@<version> or --all")
	}
	versionDir := c.paths.Store(tool, constraint)
	if _, statErr := os.Stat(versionDir); statErr != nil {
		return fmt.Errorf("%s@%s is not installed", tool, constraint)
	}
	if err := os.RemoveAll(versionDir); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %s@%s\n", tool, constraint)
	return nil
}
