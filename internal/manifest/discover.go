package manifest

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// Discover lists the importable packages below root in fsys: every
// directory holding at least one non-test .go file. vendor and testdata
// directories, and directories starting with "." or "_", are skipped along
// with everything beneath them, mirroring what the go tool ignores.
func Discover(fsys fs.FS, root string) ([]string, error) {
	if root == "" {
		root = "."
	}
	found := make(map[string]struct{})
	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && skipDir(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		name := d.Name()
		if path.Ext(name) != ".go" || strings.HasSuffix(name, "_test.go") || skipDir(name) {
			return nil
		}
		dir := path.Dir(p)
		rel := strings.TrimPrefix(strings.TrimPrefix(dir, root), "/")
		if rel == "" {
			rel = "."
		}
		found[rel] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to discover packages under %s: %w", root, err)
	}

	pkgs := make([]string, 0, len(found))
	for p := range found {
		pkgs = append(pkgs, p)
	}
	sort.Strings(pkgs)
	return pkgs, nil
}

func skipDir(name string) bool {
	return name == "vendor" || name == "testdata" ||
		strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}
