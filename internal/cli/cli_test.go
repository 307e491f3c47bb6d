package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"indian-airlines-ivr/internal/manifest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestShow(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		out, err := run(t, "show")
		require.NoError(t, err)

		m, err := manifest.Load(strings.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, "indian-airlines-ivr", m.Name)
		assert.Len(t, m.Requires, 8)
	})

	t.Run("json", func(t *testing.T) {
		out, err := run(t, "show", "--format", "json")
		require.NoError(t, err)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(out), &body))
		assert.Equal(t, "1.0.0", body["version"])
	})

	t.Run("go.mod", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "go.mod", "module example.com/ivr // version: 2.0.0\n\ngo 1.24\n")
		out, err := run(t, "show", "-f", path)
		require.NoError(t, err)
		assert.Contains(t, out, "name: example.com/ivr")
		assert.Contains(t, out, "version: 2.0.0")
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := run(t, "show", "--format", "toml")
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()

	t.Run("embedded manifest", func(t *testing.T) {
		out, err := run(t, "validate", "--releases", "1.24,1.23")
		require.NoError(t, err)
		assert.Contains(t, out, "OK indian-airlines-ivr 1.0.0")
	})

	t.Run("invalid manifest lists every issue", func(t *testing.T) {
		path := writeFile(t, dir, "bad.yaml", "name: ivr\nversion: one\nruntime: \">=9.0\"\nrequires:\n  - twilio==9.0.0\n  - twilio==9.0.0\n  - openai\n")
		out, err := run(t, "validate", path, "--releases", "1.24,1.23")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errInvalidManifest))
		for _, code := range []string{"version.format", "requires.duplicate", "requires.pin", "runtime.unsatisfiable"} {
			assert.Contains(t, out, code)
		}
	})

	t.Run("go.mod", func(t *testing.T) {
		path := writeFile(t, dir, "mod/go.mod", "module example.com/ivr\n\ngo 1.23\n\nrequire github.com/spf13/cobra v1.8.1\n")
		out, err := run(t, "validate", path, "--releases", "1.24,1.23")
		require.NoError(t, err)
		assert.Contains(t, out, "OK example.com/ivr 0.0.0")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := run(t, "validate", filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestPackages(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "internal/cli/root.go", "package cli\n")
	writeFile(t, root, "internal/cli/root_test.go", "package cli\n")
	writeFile(t, root, "vendor/x/x.go", "package x\n")
	writeFile(t, root, ".git/hooks/h.go", "package hooks\n")

	out, err := run(t, "packages", root)
	require.NoError(t, err)
	assert.Equal(t, ".\ninternal/cli\n", out)

	_, err = run(t, "packages", filepath.Join(root, "main.go"))
	assert.Error(t, err)
}

func TestDrift(t *testing.T) {
	path := writeFile(t, t.TempDir(), "manifest.yaml",
		"name: ivr\nversion: 1.0.0\nruntime: \">=1.23\"\nrequires:\n  - example.com/never-linked@v1.0.0\n")

	out, err := run(t, "drift", "-f", path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errDrift))
	assert.Contains(t, out, "missing")
	assert.Contains(t, out, "example.com/never-linked")

	empty := writeFile(t, t.TempDir(), "manifest.yaml", "name: ivr\nversion: 1.0.0\nruntime: \">=1.23\"\nrequires: []\n")
	out, err = run(t, "drift", "-f", empty)
	require.NoError(t, err)
	assert.Contains(t, out, "OK 0 pin(s) match")

	_, err = run(t, "drift", "-b", filepath.Join(t.TempDir(), "missing-binary"))
	assert.Error(t, err)
}

func TestToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")
	out, err := run(t, "token", "--subject", "ops@example.com")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "."), 3)

	t.Setenv("JWT_SECRET", "")
	_, err = run(t, "token", "--subject", "ops@example.com")
	assert.Error(t, err)

	_, err = run(t, "token")
	assert.Error(t, err)
}
