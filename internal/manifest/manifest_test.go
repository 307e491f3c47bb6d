package manifest

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	m, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "indian-airlines-ivr", m.Name)
	assert.Equal(t, "1.0.0", m.Version)
	assert.True(t, m.Discover)
	assert.Equal(t, ">=1.24", m.Runtime)
	assert.NotEmpty(t, m.Requires)

	r, ok := m.Requirement("github.com/twilio/twilio-go")
	require.True(t, ok)
	assert.Equal(t, "v1.25.1", r.Version)
}

func TestLoad_JSON(t *testing.T) {
	m, err := Load(strings.NewReader(`{
		"name": "ivr",
		"version": "2.1.0",
		"requires": ["redis==5.0.1", {"module": "openai", "version": "1.3.0"}],
		"runtime": ">=3.8"
	}`))
	require.NoError(t, err)
	assert.Equal(t, "ivr", m.Name)
	require.Len(t, m.Requires, 2)
	assert.Equal(t, "redis", m.Requires[0].Module)
	assert.Equal(t, "openai", m.Requires[1].Module)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(strings.NewReader("   \n"))
	assert.True(t, errors.Is(err, ErrEmptyManifest))

	_, err = Load(strings.NewReader("name: ivr\nunknown: true\n"))
	assert.True(t, errors.Is(err, ErrDecodeFailed))

	_, err = Load(strings.NewReader("requires: 12\n"))
	assert.True(t, errors.Is(err, ErrDecodeFailed))
}

func TestLoad_RejectsUnknownRequirementField(t *testing.T) {
	_, err := Load(strings.NewReader("name: ivr\nversion: 1.0.0\nruntime: '>=1.23'\nrequires:\n  - module: example.com/x\n    verison: 1.0.0\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecodeFailed))
	assert.Contains(t, err.Error(), `unknown field "verison"`)

	m, err := Load(strings.NewReader("name: ivr\nversion: 1.0.0\nruntime: '>=1.23'\nrequires:\n  - module: example.com/x\n    extras: [a]\n    version: 1.0.0\n"))
	require.NoError(t, err)
	assert.Equal(t, []Requirement{{Module: "example.com/x", Extras: []string{"a"}, Version: "1.0.0"}}, m.Requires)
}

func TestLoad_KeepsUnparseableRequirementForValidation(t *testing.T) {
	m, err := Load(strings.NewReader("name: ivr\nversion: 1.0.0\nrequires: [\"uvicorn[standard==1.0.0\"]\nruntime: '>=1.23'\n"))
	require.NoError(t, err)
	require.Len(t, m.Requires, 1)
	assert.False(t, m.Requires[0].Exact())
	assert.Equal(t, "uvicorn[standard==1.0.0", m.Requires[0].String())
	assert.Equal(t, []string{"requires.syntax"}, codes(Validate(m, testReleases)))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: ivr\nversion: 1.0.0\nruntime: '>=1.23'\n"), 0o600))

	m, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ivr", m.Name)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	m, err := Default()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, m.Encode(&buf))
	assert.Contains(t, buf.String(), "name: indian-airlines-ivr")
	assert.Contains(t, buf.String(), "- github.com/gin-gonic/gin@v1.9.1")

	again, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, m.Requires, again.Requires)
}
