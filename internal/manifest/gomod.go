package manifest

import (
	"fmt"
	"strings"

	"golang.org/x/mod/modfile"
)

const versionCommentPrefix = "version:"

// FromGoMod builds a manifest from a go.mod file. The module path becomes
// the name, the go directive the runtime lower bound and every direct
// requirement a pin. The package version is read from a "// version: X.Y.Z"
// comment on the module line and defaults to 0.0.0.
func FromGoMod(filename string, data []byte) (Manifest, error) {
	f, err := modfile.Parse(filename, data, nil)
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	if f.Module == nil {
		return Manifest{}, fmt.Errorf("%w: %s has no module directive", ErrDecodeFailed, filename)
	}

	m := Manifest{
		Name:     f.Module.Mod.Path,
		Version:  "0.0.0",
		Discover: true,
	}
	for _, c := range f.Module.Syntax.Comments.Suffix {
		text := strings.TrimSpace(strings.TrimPrefix(c.Token, "//"))
		if strings.HasPrefix(text, versionCommentPrefix) {
			m.Version = strings.TrimSpace(strings.TrimPrefix(text, versionCommentPrefix))
		}
	}
	if f.Go != nil {
		m.Runtime = ">=" + f.Go.Version
	}
	for _, r := range f.Require {
		if r.Indirect {
			continue
		}
		m.Requires = append(m.Requires, Requirement{Module: r.Mod.Path, Version: r.Mod.Version})
	}
	return m, nil
}
