package manifest

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

var ErrInvalidConstraint = errors.New("invalid runtime constraint")

// Operators are matched longest first.
var constraintOperators = []string{">=", "<=", "==", "!=", ">", "<"}

// maxPatch stands in for the newest patch of a release line.
const maxPatch = 1<<31 - 1

var runtimeVersionPattern = regexp.MustCompile(`^(?:go)?(\d+)(?:\.(\d+))?(?:\.(\d+))?([a-z]+\d*)?$`)

// Clause is a single comparison such as ">=1.22".
type Clause struct {
	Op      string
	Version string
}

// Constraint is a conjunction of clauses. The zero value allows every
// version.
type Constraint struct {
	Clauses []Clause
}

// ParseConstraint parses a comma separated list of clauses. A clause without
// an operator is read as a lower bound, which is how the go directive of a
// go.mod file behaves.
func ParseConstraint(s string) (Constraint, error) {
	var c Constraint
	if strings.TrimSpace(s) == "" {
		return c, nil
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return Constraint{}, fmt.Errorf("%w: empty clause in %q", ErrInvalidConstraint, s)
		}
		op := ">="
		for _, candidate := range constraintOperators {
			if strings.HasPrefix(part, candidate) {
				op = candidate
				part = strings.TrimSpace(part[len(candidate):])
				break
			}
		}
		if _, ok := runtimeSemver(part); !ok {
			return Constraint{}, fmt.Errorf("%w: malformed version %q", ErrInvalidConstraint, part)
		}
		c.Clauses = append(c.Clauses, Clause{Op: op, Version: part})
	}
	return c, nil
}

// Allows reports whether version satisfies every clause. Unparseable
// versions are never allowed.
func (c Constraint) Allows(version string) bool {
	v, ok := runtimeSemver(version)
	if !ok {
		return false
	}
	for _, clause := range c.Clauses {
		bound, _ := runtimeSemver(clause.Version)
		cmp := semver.Compare(v, bound)
		var pass bool
		switch clause.Op {
		case ">=":
			pass = cmp >= 0
		case ">":
			pass = cmp > 0
		case "<=":
			pass = cmp <= 0
		case "<":
			pass = cmp < 0
		case "==":
			pass = cmp == 0
		case "!=":
			pass = cmp != 0
		}
		if !pass {
			return false
		}
	}
	return true
}

// AllowsAny reports whether at least one of releases satisfies c, see
// AllowsRelease.
func (c Constraint) AllowsAny(releases []string) bool {
	for _, r := range releases {
		if c.AllowsRelease(r) {
			return true
		}
	}
	return false
}

// AllowsRelease reports whether release satisfies c. A release written as
// MAJOR.MINOR stands for its whole line: it satisfies c when some patch of
// the line does, so ">=1.24.3" admits "1.24".
func (c Constraint) AllowsRelease(release string) bool {
	m := runtimeVersionPattern.FindStringSubmatch(strings.TrimSpace(release))
	if m == nil || m[2] == "" || m[3] != "" || m[4] != "" {
		return c.Allows(release)
	}
	line := m[1] + "." + m[2]

	// The patches satisfying c form intervals with single points removed,
	// so checking the line's bounds and every clause bound with its
	// neighbours finds a satisfying patch if one exists.
	candidates := []int{0, maxPatch}
	for _, clause := range c.Clauses {
		b := runtimeVersionPattern.FindStringSubmatch(clause.Version)
		if b == nil || b[1] != m[1] || b[2] != m[2] {
			continue
		}
		patch := 0
		if b[3] != "" {
			p, err := strconv.Atoi(b[3])
			if err != nil {
				continue
			}
			patch = p
		}
		candidates = append(candidates, patch, patch+1)
		if patch > 0 {
			candidates = append(candidates, patch-1)
		}
	}
	for _, patch := range candidates {
		if c.Allows(line + "." + strconv.Itoa(patch)) {
			return true
		}
	}
	return false
}

func (c Constraint) String() string {
	parts := make([]string, len(c.Clauses))
	for i, clause := range c.Clauses {
		parts[i] = clause.Op + clause.Version
	}
	return strings.Join(parts, ",")
}

// MaintainedReleases returns the two newest minor release lines up to and
// including current, e.g. "go1.24.3" gives ["1.24", "1.23"]. Development
// builds return nil.
func MaintainedReleases(current string) []string {
	m := runtimeVersionPattern.FindStringSubmatch(strings.TrimSpace(current))
	if m == nil || m[2] == "" {
		return nil
	}
	major, minor := m[1], m[2]
	n, err := strconv.Atoi(minor)
	if err != nil {
		return nil
	}
	releases := []string{major + "." + minor}
	if n > 0 {
		releases = append(releases, major+"."+strconv.Itoa(n-1))
	}
	return releases
}

// runtimeSemver maps a runtime version ("go1.22", "1.22.3", "3.8",
// "go1.23rc1") onto a semver string that x/mod/semver can compare.
func runtimeSemver(s string) (string, bool) {
	m := runtimeVersionPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", false
	}
	parts := []string{m[1], "0", "0"}
	if m[2] != "" {
		parts[1] = m[2]
	}
	if m[3] != "" {
		parts[2] = m[3]
	}
	v := "v" + strings.Join(parts, ".")
	if m[4] != "" {
		v += "-" + m[4]
	}
	return v, semver.IsValid(v)
}
