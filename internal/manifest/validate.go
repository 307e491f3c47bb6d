package manifest

import (
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidName          = errors.New("invalid package name")
	ErrInvalidVersion       = errors.New("invalid package version")
	ErrDuplicateRequirement = errors.New("duplicate requirement")
	ErrRuntimeUnsatisfiable = errors.New("runtime constraint is not satisfiable by a maintained release")
	ErrPackagesConflict     = errors.New("explicit packages and discovery are mutually exclusive")
	ErrMissingField         = errors.New("required field is missing")
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9._~/-]*[A-Za-z0-9])?$`)

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("pkgname", func(fl validator.FieldLevel) bool {
		return namePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("exactsemver", func(fl validator.FieldLevel) bool {
		return isExactSemver(fl.Field().String())
	})
	return v
}

// Issue is one violated rule.
type Issue struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`

	err error
}

// ValidationError collects every issue found in a manifest.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		msgs[i] = issue.Field + ": " + issue.Message
	}
	return fmt.Sprintf("manifest has %d issue(s): %s", len(e.Issues), strings.Join(msgs, "; "))
}

// Unwrap exposes the sentinel behind each issue to errors.Is.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Issues))
	for _, issue := range e.Issues {
		if issue.err != nil {
			errs = append(errs, issue.err)
		}
	}
	return errs
}

// Validate checks m against every manifest rule and returns a
// *ValidationError listing all of them, or nil. releases is the list of
// maintained runtime releases the runtime constraint must admit; when empty
// the releases derived from the running toolchain are used.
func Validate(m Manifest, releases []string) error {
	if len(releases) == 0 {
		releases = MaintainedReleases(runtime.Version())
	}

	var issues []Issue
	add := func(field, code string, err error, format string, args ...interface{}) {
		issues = append(issues, Issue{Field: field, Code: code, Message: fmt.Sprintf(format, args...), err: err})
	}

	if err := structValidator.Struct(m); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("failed to validate manifest: %w", err)
		}
		for _, fe := range fieldErrs {
			field := strings.ToLower(fe.StructField())
			switch fe.Tag() {
			case "required":
				if strings.HasPrefix(fe.StructField(), "Packages") {
					add("packages", "packages.format", ErrMissingField, "package entries must not be empty")
					continue
				}
				add(field, field+".required", ErrMissingField, "%s is required", field)
			case "pkgname":
				add(field, field+".format", ErrInvalidName, "%q is not a well-formed package name", fe.Value())
			case "exactsemver":
				add(field, field+".format", ErrInvalidVersion, "%q is not a MAJOR.MINOR.PATCH version", fe.Value())
			default:
				add(field, field+"."+fe.Tag(), ErrMissingField, "%s failed %s", field, fe.Tag())
			}
		}
	}

	seen := make(map[string]int, len(m.Requires))
	for i, r := range m.Requires {
		field := fmt.Sprintf("requires[%d]", i)
		if r.err != nil {
			code := "requires.syntax"
			if errors.Is(r.err, ErrNotPinned) {
				code = "requires.pin"
			}
			add(field, code, r.err, "%v", r.err)
			continue
		}
		if r.Module == "" || !namePattern.MatchString(r.Module) {
			add(field, "requires.syntax", ErrInvalidRequirement, "%q is not a well-formed dependency name", r.Module)
		} else {
			key := normalizeName(r.Module)
			if first, dup := seen[key]; dup {
				add(field, "requires.duplicate", ErrDuplicateRequirement, "%s is already declared at requires[%d]", r.Module, first)
			} else {
				seen[key] = i
			}
		}
		if !r.Exact() {
			add(field, "requires.pin", ErrNotPinned, "%s: %q is not an exact version", r.Module, r.Version)
		}
	}

	if m.Runtime != "" {
		c, err := ParseConstraint(m.Runtime)
		switch {
		case err != nil:
			add("runtime", "runtime.format", ErrInvalidConstraint, "%v", err)
		case len(releases) == 0:
			add("runtime", "runtime.unsatisfiable", ErrRuntimeUnsatisfiable, "no maintained releases are known to check %q against", m.Runtime)
		case !c.AllowsAny(releases):
			add("runtime", "runtime.unsatisfiable", ErrRuntimeUnsatisfiable, "%q admits none of the maintained releases %s", m.Runtime, strings.Join(releases, ", "))
		}
	}

	if m.Discover && len(m.Packages) > 0 {
		add("packages", "packages.conflict", ErrPackagesConflict, "set either packages or discover, not both")
	}

	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: issues}
}

// Issues returns the issues carried by err, if it is a *ValidationError.
func Issues(err error) []Issue {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Issues
	}
	return nil
}
