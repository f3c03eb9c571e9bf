package registry

import (
	"context"
	"testing"

	"github.com/vxdev/vx/internal/platform"
	"github.com/vxdev/vx/internal/runtime"
	"github.com/vxdev/vx/internal/version"
)

type fakeRuntime struct {
	name    string
	aliases []string
}

func (f *fakeRuntime) Name() string                                { return f.name }
func (f *fakeRuntime) Aliases() []string                           { return f.aliases }
func (f *fakeRuntime) SupportsPlatform(platform.Platform) bool     { return true }
func (f *fakeRuntime) Capabilities() runtime.Capabilities {
	return runtime.Capabilities{
		EnumerateVersions: true,
		ResolveConstraint: true,
		BuildDownloadURL:  true,
		DescribeLayout:    true,
	}
}
func (f *fakeRuntime) FetchVersions(context.Context) ([]version.Info, error) { return nil, nil }
func (f *fakeRuntime) ResolveConstraint(context.Context, version.Constraint) (version.Version, error) {
	return version.Version{}, nil
}
func (f *fakeRuntime) DownloadSpec(version.Version, platform.Platform) (runtime.DownloadSpec, error) {
	return runtime.DownloadSpec{}, nil
}
func (f *fakeRuntime) InstallLayout(version.Version, platform.Platform) (runtime.InstallLayout, error) {
	return runtime.InstallLayout{}, nil
}
func (f *fakeRuntime) Dependencies(version.Version) []runtime.Spec { return nil }
func (f *fakeRuntime) ContributeEnv(version.Version, string) map[string]string {
	return nil
}

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	rt := &fakeRuntime{name: "node", aliases: []string{"nodejs"}}
	if err := r.Register(rt); err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, err := r.Lookup("NodeJS")
	if err != nil {
		t.Fatalf("Lookup(alias, case-insensitive): %v", err)
	}
	if got.Name() != "node" {
		t.Fatalf("Lookup() = %q, want node", got.Name())
	}
}

func TestLookupUnknown(t *testing.T) {
	r := New()
	if _, err := r.Lookup("nope"); err == nil {
		t.Fatal("expected error for unknown tool")
	}
}

func TestRegisterRejectsDuplicateName(t *testing.T) {
	r := New()
	if err := r.Register(&fakeRuntime{name: "node"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&fakeRuntime{name: "node"}); err == nil {
		t.Fatal("expected error registering duplicate name at equal priority")
	}
}

func TestRegisterHigherPriorityWins(t *testing.T) {
	r := New()
	if err := r.Register(&fakeRuntime{name: "node"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.RegisterWithPriority(&fakeRuntime{name: "node"}, runtime.PriorityHigh); err != nil {
		t.Fatal("same name at higher priority should replace the incumbent")
	}
}

func TestRegisterRejectsIncompleteCapabilities(t *testing.T) {
	r := New()
	rt := &fakeRuntime{name: "broken"}
	// Zero out a required capability by wrapping.
	incomplete := &capOverride{fakeRuntime: rt, caps: runtime.Capabilities{EnumerateVersions: true}}
	if err := r.Register(incomplete); err == nil {
		t.Fatal("expected error for runtime missing required capabilities")
	}
}

type capOverride struct {
	*fakeRuntime
	caps runtime.Capabilities
}

func (c *capOverride) Capabilities() runtime.Capabilities { return c.caps }

func TestNamesSorted(t *testing.T) {
	r := New()
	_ = r.Register(&fakeRuntime{name: "zig"})
	_ = r.Register(&fakeRuntime{name: "node"})
	names := r.Names()
	if len(names) != 2 || names[0] != "node" || names[1] != "zig" {
		t.Fatalf("Names() = %v, want sorted [node zig]", names)
	}
}
