package executor

import (
	"bytes"
	"context"
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vxdev/vx/internal/resolver"
)

func scriptGraph(t *testing.T, target string, env map[string]string) *resolver.Graph {
	t.Helper()
	return &resolver.Graph{
		Order:  []string{target},
		Target: target,
		Nodes: map[string]resolver.ResolvedRuntime{
			target: {
				Name:           target,
				Version:        "1.0.0",
				ExecutablePath: mustShell(t),
				Env:            env,
			},
		},
	}
}

// mustShell returns a path to /bin/sh (or an equivalent), skipping the
// test on platforms without one.
func mustShell(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
	return "/bin/sh"
}

func TestRunPropagatesExitCode(t *testing.T) {
	g := scriptGraph(t, "tool", nil)
	code, err := Run(context.Background(), g, []string{"-c", "exit 7"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 7, code)
}

func TestRunAssemblesContributedEnv(t *testing.T) {
	g := scriptGraph(t, "tool", map[string]string{"TOOL_HOME": "/opt/tool", "PATH": "/opt/tool/bin"})
	var out bytes.Buffer
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	code, err := Run(context.Background(), g, []string{"-c", "echo $TOOL_HOME; echo $PATH"}, Options{Stdout: w})
	require.NoError(t, w.Close())
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	_, _ = out.ReadFrom(r)
	assert.Contains(t, out.String(), "/opt/tool\n")
	assert.Contains(t, out.String(), "/opt/tool/bin")
}

func TestAssembleEnvOmitsSystemPathByDefault(t *testing.T) {
	g := scriptGraph(t, "tool", map[string]string{"PATH": "/opt/tool/bin"})
	env := AssembleEnv(g, Options{})
	assert.Contains(t, env, "PATH=/opt/tool/bin")
}

func TestAssembleEnvAppendsSystemPathWhenRequested(t *testing.T) {
	t.Setenv("PATH", "/usr/bin")
	g := scriptGraph(t, "tool", map[string]string{"PATH": "/opt/tool/bin"})
	env := AssembleEnv(g, Options{UseSystemPath: true})
	assert.Contains(t, env, "PATH=/opt/tool/bin"+string(os.PathListSeparator)+"/usr/bin")
}

func TestAssembleEnvProjectEnvWinsLast(t *testing.T) {
	g := scriptGraph(t, "tool", map[string]string{"FOO": "from-runtime"})
	env := AssembleEnv(g, Options{ProjectEnv: map[string]string{"FOO": "from-project"}})
	assert.Contains(t, env, "FOO=from-project")
}

func TestAssembleEnvStripsExcludedVars(t *testing.T) {
	t.Setenv("GOROOT", "/usr/local/go")
	g := scriptGraph(t, "tool", nil)
	env := AssembleEnv(g, Options{})
	for _, kv := range env {
		assert.NotContains(t, kv, "GOROOT=")
	}
}
