package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewUsesEnvRoot(t *testing.T) {
	t.Setenv(EnvRoot, "/tmp/vx-test-root")
	p, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Root() != "/tmp/vx-test-root" {
		t.Fatalf("Root() = %q, want /tmp/vx-test-root", p.Root())
	}
}

func TestWithRootOverridesEnv(t *testing.T) {
	t.Setenv(EnvRoot, "/tmp/ignored")
	p, err := New(WithRoot("/tmp/vx-explicit"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Root() != "/tmp/vx-explicit" {
		t.Fatalf("Root() = %q, want /tmp/vx-explicit", p.Root())
	}
}

func TestStoreLayout(t *testing.T) {
	p, err := New(WithRoot("/root-dir"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got, want := p.Store("nodejs", "20.10.0"), filepath.Join("/root-dir", "store", "nodejs", "20.10.0"); got != want {
		t.Fatalf("Store() = %q, want %q", got, want)
	}
	if got, want := p.NpmTools("typescript", "5.0.0"), filepath.Join("/root-dir", "npm-tools", "typescript", "5.0.0", "env"); got != want {
		t.Fatalf("NpmTools() = %q, want %q", got, want)
	}
}

func TestHasSentinel(t *testing.T) {
	dir := t.TempDir()
	p, _ := New(WithRoot(dir))
	if p.HasSentinel(dir) {
		t.Fatal("expected no sentinel in empty dir")
	}
	if err := os.WriteFile(p.SentinelPath(dir), []byte("{}"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if !p.HasSentinel(dir) {
		t.Fatal("expected sentinel to be found after writing it")
	}
}

func TestCandidatesOrder(t *testing.T) {
	p, _ := New(WithRoot("/root-dir"))
	cands := p.Candidates("node", "20.10.0")
	if len(cands) != 4 || cands[len(cands)-1].Kind != "system" {
		t.Fatalf("Candidates() = %+v, want system last", cands)
	}
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir available")
	}
	got, err := Expand("~/x")
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if got != filepath.Join(home, "x") {
		t.Fatalf("Expand(~/x) = %q, want %q", got, filepath.Join(home, "x"))
	}
}
