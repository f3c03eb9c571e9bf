package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/vxdev/vx/internal/installer"
)

var listCmd = &cobra.Command{
	Use:   "list [<tool>]",
	Short: "List installed tool versions and their status",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runList,
}

// runList implements spec §6's "list [<tool>]": every (tool, version)
// directory under the store with a valid sentinel is "installed"; a
// store directory without one is listed as "incomplete". In-progress
// work under tmp/ is not listed, since only the store is scanned.
func runList(cmd *cobra.Command, args []string) error {
	c, err := newCore(cmd.OutOrStdout())
	if err != nil {
		return err
	}

	storeRoot := filepath.Join(c.paths.Root(), "store")
	tools, err := os.ReadDir(storeRoot)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(cmd.OutOrStdout(), "no tools installed")
			return nil
		}
		return err
	}

	var want string
	if len(args) == 1 {
		want = args[0]
	}

	printed := 0
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		if t.IsDir() {
			names = append(names, t.Name())
		}
	}
	sort.Strings(names)

	for _, tool := range names {
		if want != "" && tool != want {
			continue
		}
		versions, err := os.ReadDir(filepath.Join(storeRoot, tool))
		if err != nil {
			continue
		}
		vnames := make([]string, 0, len(versions))
		for _, v := range versions {
			if v.IsDir() {
				vnames = append(vnames, v.Name())
			}
		}
		sort.Strings(vnames)
		for _, v := range vnames {
			dir := filepath.Join(storeRoot, tool, v)
			status := "installed"
			if !installer.HasValidSentinel(dir) {
				status = "incomplete"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", tool, v, status)
			printed++
		}
	}
	if printed == 0 {
		if want != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "%s is not installed\n", want)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "no tools installed")
		}
	}
	return nil
}
