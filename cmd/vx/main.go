package main

import "os"

// knownSubcommands are vx's own verbs; anything else in args[0] (after
// vx's leading global flags) is a tool name to resolve and exec, not a
// cobra subcommand — so it must never be routed through cobra's normal
// flag-aware command matching, which would otherwise try (and fail) to
// interpret a tool's own flags as vx's.
var knownSubcommands = map[string]bool{
	"install":    true,
	"uninstall":  true,
	"list":       true,
	"which":      true,
	"versions":   true,
	"version":    true,
	"help":       true,
	"completion": true,
}

func main() {
	args := os.Args[1:]
	rest := splitGlobalFlags(args)

	if len(rest) == 0 || knownSubcommands[rest[0]] || rest[0] == "-h" || rest[0] == "--help" {
		if err := rootCmd.Execute(); err != nil {
			printError(err)
			os.Exit(1)
		}
		return
	}

	// Not a known verb: dispatch straight to "run this tool" without
	// cobra ever seeing toolArgs, so a tool's own "-h"/"--version"/"--"
	// flags pass through untouched.
	if err := runDispatch(rootCmd, rest); err != nil {
		printError(err)
		os.Exit(1)
	}
}
