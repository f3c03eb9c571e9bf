package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vxdev/vx/internal/executor"
)

// globalBoolFlags are the persistent flags recognized before the tool
// name in "vx [flags] <tool> [args...]". Because rootCmd disables
// cobra's own flag parsing (so a tool's own "--verbose" isn't swallowed
// by vx), this list is consulted by hand against only the leading run of
// "-"-prefixed tokens.
var globalBoolFlags = map[string]*bool{
	"--use-system-path": &flagUseSystemPath,
	"--verbose":         &flagVerbose,
	"-v":                &flagVerbose,
	"--debug":           &flagDebug,
	"--no-color":        &flagNoColor,
	"--version":         &flagVersion,
}

// splitGlobalFlags consumes a leading run of recognized global flags and
// returns the remaining args starting at the tool name.
func splitGlobalFlags(args []string) []string {
	i := 0
	for i < len(args) {
		if ptr, ok := globalBoolFlags[args[i]]; ok {
			*ptr = true
			i++
			continue
		}
		break
	}
	return args[i:]
}

// runDispatch implements spec §2's main control-flow path and §6's
// "<tool> [args...]" CLI surface: resolve the requested tool (installing
// whatever the dependency graph needs), then exec it with an isolated
// environment.
func runDispatch(cmd *cobra.Command, args []string) error {
	args = splitGlobalFlags(args)
	configureLogging()

	if flagVersion {
		fmt.Fprintln(cmd.OutOrStdout(), "vx "+buildVersion)
		return nil
	}

	if len(args) == 0 {
		return cmd.Help()
	}

	toolSpec, toolArgs := args[0], args[1:]
	tool, constraint := splitToolSpec(toolSpec)

	c, err := newCore(os.Stderr)
	if err != nil {
		return err
	}

	ctx := context.Background()
	graph, err := c.resolve(ctx, tool, c.constraintFor(tool, constraint), toolArgs)
	if err != nil {
		printError(err)
		os.Exit(exitCodeFor(err))
	}
	c.console.Wait()

	opts := executor.Options{
		UseSystemPath: flagUseSystemPath,
		ProjectEnv:    c.manifest.Env,
	}
	code, err := executor.Run(ctx, graph, toolArgs, opts)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	os.Exit(code)
	return nil
}
