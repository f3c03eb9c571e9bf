// Package main is vx's CLI front-end: a thin cobra binding over the
// core packages in internal/. It parses flags into request types, wires
// a Registry/Installer/Resolver/Executor, and renders a Console Reporter
// — the CLI is the only layer allowed to talk to a terminal (spec §1
// "Out of scope: CLI argument parser, TUI/progress rendering"),
// structured the way tomei's cmd/tomei/root.go wires its own rootCmd.
package main

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	vxerrors "github.com/vxdev/vx/internal/errors"
)

var (
	flagUseSystemPath bool
	flagVerbose       bool
	flagDebug         bool
	flagNoColor       bool
	flagVersion       bool
)

// unknownToolExitCode is the dedicated exit code spec §6 reserves so
// callers can tell "tool not found" apart from a tool's own failure.
const unknownToolExitCode = 127

var rootCmd = &cobra.Command{
	Use:   "vx",
	Short: "vx resolves, installs, and runs developer tools",
	Long: `vx is a universal developer-tool manager.

Given "vx <tool> <args...>", vx transparently resolves which version of
<tool> this project wants, installs it on demand into a user-local
store, and executes it in an isolated environment so the host PATH and
other projects never interfere.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.ArbitraryArgs,
	// main() decides before cobra ever runs whether args[0] is one of
	// vx's own verbs or a tool name to dispatch; RunE only fires for the
	// "no arguments at all" case cobra itself reaches (show help).
	RunE: runDispatch,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagUseSystemPath, "use-system-path", false, "append the host PATH after the assembled environment")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "show resolution and install progress detail")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colored output")
	rootCmd.Flags().BoolVar(&flagVersion, "version", false, "print vx's own version and exit")

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(whichCmd)
	rootCmd.AddCommand(versionsCmd)
	rootCmd.AddCommand(versionCmd)
}

func configureLogging() {
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelInfo
	}
	if flagDebug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))

	if flagNoColor {
		color.NoColor = true
	}
}

// exitCodeFor maps a returned error to the process exit code spec §6
// requires: the dedicated unknownToolExitCode for an unresolved tool
// name, 1 for every other surfaced failure.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	var verErr *vxerrors.VersionError
	if stderrors.As(err, &verErr) && verErr.Base.Code == vxerrors.CodeUnknownTool {
		return unknownToolExitCode
	}
	return 1
}

func printError(err error) {
	f := vxerrors.NewFormatter(os.Stderr, flagNoColor || color.NoColor)
	out := f.Format(err)
	if out == "" {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return
	}
	fmt.Fprint(os.Stderr, out)
}
