// Package executor implements spec §4.8: given a resolved dependency
// graph and the target node to run, it assembles an isolated environment
// from every node's contributed env (target-last precedence, PATH
// prepended in dependency order), spawns the target binary with stdio
// inherited, forwards termination signals to it, and propagates its exit
// code. Grounded on tomei's internal/installer/command Executor (cmd.Env
// assembly, CommandContext) generalized from shell-template commands to
// a resolved binary plus argv.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	vxerrors "github.com/vxdev/vx/internal/errors"
	"github.com/vxdev/vx/internal/resolver"
)

// DefaultExcludelist names environment variables stripped from the
// parent process's environment before runtime envs are layered on, so a
// host toolchain already on PATH (e.g. a system Node install) cannot leak
// into the isolated child (spec §4.8 step 2 "excluding variables that
// would leak host toolchains").
var DefaultExcludelist = []string{
	"GOROOT", "GOPATH", "GEM_HOME", "GEM_PATH", "NVM_DIR", "NVM_BIN",
	"PYENV_ROOT", "PYENV_VERSION", "RBENV_ROOT", "JAVA_HOME",
}

// Options configures one Executor invocation.
type Options struct {
	// UseSystemPath appends the parent process's PATH after the
	// assembled PATH (spec §4.8 step 3); omitted by default so only
	// managed toolchains are visible.
	UseSystemPath bool
	// Excludelist overrides DefaultExcludelist.
	Excludelist []string
	// ProjectEnv is the project's `[env]` table, applied last (spec §4.9).
	ProjectEnv map[string]string
	// Cwd is the child's working directory; empty means inherit.
	Cwd string
	// Stdin/Stdout/Stderr default to the parent's when nil.
	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File
}

// AssembleEnv implements spec §4.8 step 2-3: a minimal excludelist-
// filtered base environment, each graph node's contributed env merged in
// topological (dependency-then-target) order, project env last, and an
// optional system PATH fallback.
func AssembleEnv(g *resolver.Graph, opts Options) []string {
	excluded := opts.Excludelist
	if excluded == nil {
		excluded = DefaultExcludelist
	}
	excludeSet := make(map[string]bool, len(excluded))
	for _, k := range excluded {
		excludeSet[k] = true
	}

	base := map[string]string{}
	var systemPath string
	for _, kv := range os.Environ() {
		k, v, ok := splitEnv(kv)
		if !ok || excludeSet[k] {
			continue
		}
		if k == "PATH" {
			systemPath = v
			continue
		}
		base[k] = v
	}

	var pathPrepends []string
	for _, node := range g.EnvChain() {
		for k, v := range node.Env {
			if k == "PATH" {
				pathPrepends = append([]string{v}, pathPrepends...)
				continue
			}
			base[k] = v
		}
	}
	for k, v := range opts.ProjectEnv {
		base[k] = v
	}

	assembledPath := strings.Join(pathPrepends, string(os.PathListSeparator))
	if opts.UseSystemPath && systemPath != "" {
		if assembledPath != "" {
			assembledPath += string(os.PathListSeparator) + systemPath
		} else {
			assembledPath = systemPath
		}
	}
	base["PATH"] = assembledPath

	env := make([]string, 0, len(base))
	for k, v := range base {
		env = append(env, k+"="+v)
	}
	return env
}

func splitEnv(kv string) (key, value string, ok bool) {
	i := strings.IndexByte(kv, '=')
	if i < 0 {
		return "", "", false
	}
	return kv[:i], kv[i+1:], true
}

// Run implements spec §4.8: re-verifies platform support was already
// confirmed by the resolver (the target is expected to carry a real
// ExecutablePath), assembles the environment, spawns the target with argv
// and stdio inherited, forwards SIGINT/SIGTERM to the child, and returns
// its exit code.
func Run(ctx context.Context, g *resolver.Graph, argv []string, opts Options) (int, error) {
	target, ok := g.TargetNode()
	if !ok {
		return 0, vxerrors.New(vxerrors.CategoryExecution, "resolution graph has no target node")
	}
	if target.System {
		return runSystem(ctx, target.Name, argv, opts)
	}
	if target.ExecutablePath == "" {
		return 0, vxerrors.New(vxerrors.CategoryExecution, fmt.Sprintf("%s has no resolved executable path", target.Name))
	}
	if _, err := os.Stat(target.ExecutablePath); err != nil {
		return 0, vxerrors.Wrap(vxerrors.CategoryExecution, fmt.Sprintf("executable for %s missing at %s", target.Name, target.ExecutablePath), err)
	}

	env := AssembleEnv(g, opts)
	return spawn(ctx, target.ExecutablePath, argv, env, opts)
}

// runSystem dispatches a "system"-constrained tool by name, relying on
// the (system-PATH-augmented) assembled environment to locate it via
// exec.LookPath semantics baked into exec.CommandContext.
func runSystem(ctx context.Context, name string, argv []string, opts Options) (int, error) {
	o := opts
	o.UseSystemPath = true
	// A lone system node still needs an empty graph's env assembly; build
	// one inline rather than requiring callers to special-case it.
	env := AssembleEnv(&resolver.Graph{}, o)
	return spawn(ctx, name, argv, env, opts)
}

func spawn(ctx context.Context, path string, argv []string, env []string, opts Options) (int, error) {
	cmd := exec.CommandContext(ctx, path, argv...)
	cmd.Env = env
	cmd.Dir = opts.Cwd
	cmd.Stdin = firstNonNil(opts.Stdin, os.Stdin)
	cmd.Stdout = firstNonNil(opts.Stdout, os.Stdout)
	cmd.Stderr = firstNonNil(opts.Stderr, os.Stderr)

	if err := cmd.Start(); err != nil {
		return 0, vxerrors.Wrap(vxerrors.CategoryExecution, "start "+filepath.Base(path), err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var once sync.Once
	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigCh:
				once.Do(func() { slog.Debug("forwarding signal to child", "signal", sig, "pid", cmd.Process.Pid) })
				_ = cmd.Process.Signal(sig)
			case <-done:
				return
			}
		}
	}()

	err := cmd.Wait()
	close(done)

	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if ok := asExitError(err, &exitErr); ok {
		return exitErr.ExitCode(), nil
	}
	return 1, vxerrors.Wrap(vxerrors.CategoryExecution, "await "+filepath.Base(path), err)
}

func asExitError(err error, target **exec.ExitError) bool {
	if ee, ok := err.(*exec.ExitError); ok {
		*target = ee
		return true
	}
	return false
}

func firstNonNil(f *os.File, fallback *os.File) *os.File {
	if f != nil {
		return f
	}
	return fallback
}
