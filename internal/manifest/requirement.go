package manifest

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidRequirement = errors.New("invalid requirement")
	ErrNotPinned          = errors.New("requirement is not pinned to an exact version")
)

var rangeOperators = []string{">=", "<=", "!=", "~=", "^", ">", "<", "*"}

// requirementKeys are the fields of the mapping form of a requirement.
var requirementKeys = map[string]bool{"module": true, "extras": true, "version": true}

var separatorRun = regexp.MustCompile(`[-_.]+`)

// Requirement is a dependency pinned to a single version. It is written
// either as "module@v1.2.3" or as "name[extra,...]==1.2.3".
type Requirement struct {
	Module  string   `json:"module"`
	Extras  []string `json:"extras,omitempty"`
	Version string   `json:"version"`

	// raw and err are only set when the entry could not be parsed, so that
	// Validate can report it alongside every other issue.
	raw string
	err error
}

// ParseRequirement parses a pinned dependency and rejects anything that does
// not name one exact version.
func ParseRequirement(s string) (Requirement, error) {
	r, err := parseRequirement(s)
	if err != nil {
		return Requirement{}, err
	}
	if !r.Exact() {
		return Requirement{}, fmt.Errorf("%w: %q", ErrNotPinned, s)
	}
	return r, nil
}

func parseRequirement(s string) (Requirement, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Requirement{}, fmt.Errorf("%w: empty entry", ErrInvalidRequirement)
	}

	var name, version string
	switch {
	case strings.Contains(s, "=="):
		i := strings.Index(s, "==")
		name, version = s[:i], s[i+2:]
	case strings.Contains(s, "@"):
		i := strings.LastIndex(s, "@")
		name, version = s[:i], s[i+1:]
	default:
		for _, op := range rangeOperators {
			if strings.Contains(s, op) {
				return Requirement{}, fmt.Errorf("%w: %q", ErrNotPinned, s)
			}
		}
		return Requirement{}, fmt.Errorf("%w: %q has no version", ErrNotPinned, s)
	}
	name = strings.TrimSpace(name)
	version = strings.TrimSpace(version)

	var extras []string
	if i := strings.IndexByte(name, '['); i >= 0 {
		if !strings.HasSuffix(name, "]") {
			return Requirement{}, fmt.Errorf("%w: unterminated extras in %q", ErrInvalidRequirement, s)
		}
		for _, e := range strings.Split(name[i+1:len(name)-1], ",") {
			e = strings.TrimSpace(e)
			if e == "" {
				return Requirement{}, fmt.Errorf("%w: empty extra in %q", ErrInvalidRequirement, s)
			}
			extras = append(extras, e)
		}
		name = strings.TrimSpace(name[:i])
	}

	if name == "" {
		return Requirement{}, fmt.Errorf("%w: missing name in %q", ErrInvalidRequirement, s)
	}
	if strings.ContainsAny(name, " \t<>=!~@[]") {
		return Requirement{}, fmt.Errorf("%w: malformed name %q", ErrInvalidRequirement, name)
	}
	if version == "" {
		return Requirement{}, fmt.Errorf("%w: %q has no version", ErrNotPinned, s)
	}

	return Requirement{Module: name, Extras: extras, Version: version}, nil
}

// Exact reports whether the requirement names a single, complete semantic
// version. Pseudo-versions and pre-releases count as exact.
func (r Requirement) Exact() bool {
	return r.err == nil && isExactSemver(r.Version)
}

// String renders the requirement in module@version form.
func (r Requirement) String() string {
	if r.err != nil {
		return r.raw
	}
	var b strings.Builder
	b.WriteString(r.Module)
	if len(r.Extras) > 0 {
		b.WriteString("[" + strings.Join(r.Extras, ",") + "]")
	}
	b.WriteString("@")
	b.WriteString(canonicalVersion(r.Version))
	return b.String()
}

func (r *Requirement) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		parsed, err := parseRequirement(node.Value)
		if err != nil {
			*r = Requirement{raw: node.Value, err: err}
			return nil
		}
		*r = parsed
		return nil
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i]
			if !requirementKeys[key.Value] {
				return fmt.Errorf("%w: line %d: unknown field %q", ErrInvalidRequirement, key.Line, key.Value)
			}
		}
		var fields struct {
			Module  string   `yaml:"module"`
			Extras  []string `yaml:"extras"`
			Version string   `yaml:"version"`
		}
		if err := node.Decode(&fields); err != nil {
			return err
		}
		*r = Requirement{Module: fields.Module, Extras: fields.Extras, Version: fields.Version}
		return nil
	default:
		return fmt.Errorf("%w: line %d: expected string or mapping", ErrInvalidRequirement, node.Line)
	}
}

func (r Requirement) MarshalYAML() (interface{}, error) {
	return r.String(), nil
}

// normalizeName folds case and treats runs of "-", "_" and "." as equal, so
// "Foo_Bar" and "foo-bar" name the same dependency.
func normalizeName(name string) string {
	return separatorRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

func canonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

func isExactSemver(v string) bool {
	sv := canonicalVersion(v)
	if !semver.IsValid(sv) {
		return false
	}
	if i := strings.IndexByte(sv, '+'); i >= 0 {
		sv = sv[:i]
	}
	return semver.Canonical(sv) == sv
}
