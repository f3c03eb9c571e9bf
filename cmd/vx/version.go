package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// buildVersion is overridden at release-build time via
// -ldflags "-X main.buildVersion=...". Packaging/release is out of
// scope (spec §1); this is just the hook a real release pipeline
// would set.
var buildVersion = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print vx's own version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "vx "+buildVersion)
	},
}
