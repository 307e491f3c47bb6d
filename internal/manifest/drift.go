package manifest

import (
	"runtime/debug"
	"sort"
)

const (
	DriftMissing  = "missing"
	DriftMismatch = "mismatch"
)

// DriftEntry is a declared pin that the running binary does not honour.
type DriftEntry struct {
	Module   string `json:"module"`
	Declared string `json:"declared"`
	Linked   string `json:"linked,omitempty"`
	Status   string `json:"status"`
}

// Drift compares the pins in m with the modules linked into a binary.
// Modules replaced by a local directory carry no version and are not
// compared.
func Drift(m Manifest, linked []*debug.Module) []DriftEntry {
	versions := make(map[string]string, len(linked))
	for _, mod := range linked {
		if mod == nil {
			continue
		}
		v := mod.Version
		if mod.Replace != nil {
			v = mod.Replace.Version
		}
		versions[mod.Path] = v
	}

	var drift []DriftEntry
	for _, r := range m.Requires {
		if r.err != nil || r.Module == "" {
			continue
		}
		declared := canonicalVersion(r.Version)
		v, ok := versions[r.Module]
		switch {
		case !ok:
			drift = append(drift, DriftEntry{Module: r.Module, Declared: declared, Status: DriftMissing})
		case v == "":
		case v != declared:
			drift = append(drift, DriftEntry{Module: r.Module, Declared: declared, Linked: v, Status: DriftMismatch})
		}
	}
	sort.Slice(drift, func(i, j int) bool { return drift[i].Module < drift[j].Module })
	return drift
}

// LinkedModules returns the dependencies recorded in the running binary's
// build information.
func LinkedModules() []*debug.Module {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}
	return info.Deps
}
