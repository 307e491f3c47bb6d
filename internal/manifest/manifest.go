// Package manifest describes the build and installation manifest of the
// service: its name, version, package layout, pinned dependencies and the
// minimum runtime it needs. Manifests are read from YAML (or JSON) documents
// or derived from a go.mod file, and checked with Validate.
package manifest

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed manifest.yaml
var defaultManifest []byte

var (
	ErrEmptyManifest = errors.New("manifest document is empty")
	ErrDecodeFailed  = errors.New("failed to decode manifest")
)

// Manifest is the declarative description of a distributable package.
type Manifest struct {
	Name     string        `yaml:"name" json:"name" validate:"required,pkgname"`
	Version  string        `yaml:"version" json:"version" validate:"required,exactsemver"`
	Packages []string      `yaml:"packages,omitempty" json:"packages,omitempty" validate:"dive,required"`
	Discover bool          `yaml:"discover,omitempty" json:"discover,omitempty"`
	Requires []Requirement `yaml:"requires" json:"requires"`
	Runtime  string        `yaml:"runtime" json:"runtime" validate:"required"`
}

// Load decodes a manifest document. JSON documents are accepted since they
// are valid YAML.
func Load(r io.Reader) (Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to read manifest: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Manifest{}, ErrEmptyManifest
	}

	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	return m, nil
}

// LoadFile reads the manifest at path.
func LoadFile(path string) (Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to open manifest %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Default returns the manifest compiled into the binary.
func Default() (Manifest, error) {
	return Load(bytes.NewReader(defaultManifest))
}

// Encode writes m as YAML.
func (m Manifest) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return enc.Close()
}

// Requirement returns the pin for module, if declared.
func (m Manifest) Requirement(module string) (Requirement, bool) {
	key := normalizeName(module)
	for _, r := range m.Requires {
		if normalizeName(r.Module) == key {
			return r, true
		}
	}
	return Requirement{}, false
}
