package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadBasicManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "vx.toml", `
[tools]
node = "20.10.0"
go = "^1.22"

[scripts]
lint = "golangci-lint run"

[env]
NODE_ENV = "development"

[defaults]
auto_install = true
checksum_policy = "required"
retry_count = 5
`)

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "20.10.0", m.Tools["node"])
	assert.Equal(t, "^1.22", m.Tools["go"])
	assert.Equal(t, "golangci-lint run", m.Scripts["lint"])
	assert.Equal(t, "development", m.Env["NODE_ENV"])
	assert.Equal(t, 5, m.Defaults.RetryCount)
}

func TestLoadToleratesUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "vx.toml", `
unknown_top_level = "future feature"

[tools]
node = "latest"

[tools.extra_nested]
not_a_real_tool = true
`)

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "latest", m.Tools["node"])
}

func TestLoadAppliesDefaultDefaultsWhenOmitted(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "vx.toml", `
[tools]
node = "20"
`)
	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultDefaults(), m.Defaults)
}

func TestLoadExtendsLocalPathMergesWithChildWinning(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "base.toml", `
[tools]
node = "18"
go = "1.21"

[env]
SHARED = "base"
`)
	childPath := writeManifest(t, dir, "vx.toml", `
extends = "base.toml"

[tools]
node = "20"

[env]
CHILD_ONLY = "child"
`)

	m, err := Load(childPath)
	require.NoError(t, err)
	assert.Equal(t, "20", m.Tools["node"], "child overrides parent")
	assert.Equal(t, "1.21", m.Tools["go"], "parent value survives when child doesn't override")
	assert.Equal(t, "base", m.Env["SHARED"])
	assert.Equal(t, "child", m.Env["CHILD_ONLY"])
}

func TestLoadExtendsCycleFails(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "a.toml", `extends = "b.toml"`)
	bPath := writeManifest(t, dir, "b.toml", `extends = "a.toml"`)

	_, err := Load(bPath)
	require.Error(t, err)
}

func TestFindWalksUpToNearestManifest(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "vx.toml", "[tools]\n")
	sub := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	found := Find(sub)
	require.NotEmpty(t, found)
	abs, err := filepath.Abs(filepath.Join(root, "vx.toml"))
	require.NoError(t, err)
	assert.Equal(t, abs, found)
}

func TestFindReturnsEmptyWhenNoneExists(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, Find(dir))
}
