package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"indian-airlines-ivr/internal/manifest"
	"indian-airlines-ivr/internal/metrics"
	"indian-airlines-ivr/internal/observability"
)

const reportCacheKey = "ivr:manifest:report"

const (
	FormatManifest = "manifest"
	FormatGoMod    = "go.mod"
)

var (
	ErrEmptyDocument    = errors.New("document is empty")
	ErrDocumentTooLarge = errors.New("document exceeds the upload limit")
	ErrUnparseable      = errors.New("document could not be parsed")
)

// Config controls where the deployed manifest comes from and how it is
// checked.
type Config struct {
	// ManifestPath overrides the embedded manifest when set.
	ManifestPath string
	// Source is walked for package discovery. Nil disables discovery.
	Source fs.FS
	// Releases are the maintained runtime releases. Empty means the ones
	// derived from the running toolchain.
	Releases         []string
	CacheTTL         time.Duration
	MaxDocumentBytes int64
}

type ManifestProcessor struct {
	manifest         manifest.Manifest
	source           fs.FS
	releases         []string
	cacheTTL         time.Duration
	maxDocumentBytes int64
	cache            ReportCache
	linked           func() []*debug.Module
	now              func() time.Time
	logger           *observability.Logger
}

// New loads the deployed manifest and returns a processor for it. cache may
// be nil.
func New(cfg Config, cache ReportCache, logger *observability.Logger) (*ManifestProcessor, error) {
	var (
		m   manifest.Manifest
		err error
	)
	if cfg.ManifestPath != "" {
		m, err = manifest.LoadFile(cfg.ManifestPath)
	} else {
		m, err = manifest.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load deployed manifest: %w", err)
	}

	return &ManifestProcessor{
		manifest:         m,
		source:           cfg.Source,
		releases:         cfg.Releases,
		cacheTTL:         cfg.CacheTTL,
		maxDocumentBytes: cfg.MaxDocumentBytes,
		cache:            cache,
		linked:           manifest.LinkedModules,
		now:              time.Now,
		logger:           logger,
	}, nil
}

// ManifestView is the deployed manifest together with the packages found by
// discovery.
type ManifestView struct {
	manifest.Manifest
	DiscoveredPackages []string `json:"discovered_packages,omitempty"`
}

// Report is the validation and drift report of the deployed manifest.
type Report struct {
	Name        string                `json:"name"`
	Version     string                `json:"version"`
	Valid       bool                  `json:"valid"`
	Issues      []manifest.Issue      `json:"issues"`
	Drift       []manifest.DriftEntry `json:"drift"`
	Releases    []string              `json:"releases"`
	GeneratedAt time.Time             `json:"generated_at"`
	Cached      bool                  `json:"cached"`
}

// ValidationResult is the outcome of checking an uploaded document.
type ValidationResult struct {
	Valid   bool             `json:"valid"`
	Format  string           `json:"format"`
	Name    string           `json:"name,omitempty"`
	Version string           `json:"version,omitempty"`
	Issues  []manifest.Issue `json:"issues"`
}

// Version is the version of the deployed manifest.
func (p *ManifestProcessor) Version() string {
	return p.manifest.Version
}

// GetManifest returns the deployed manifest. When discovery is requested and
// a source tree is configured the discovered packages are included.
func (p *ManifestProcessor) GetManifest(ctx context.Context) (ManifestView, error) {
	view := ManifestView{Manifest: p.manifest}
	if !p.manifest.Discover || p.source == nil {
		return view, nil
	}

	pkgs, err := manifest.Discover(p.source, ".")
	if err != nil {
		p.logger.Error(ctx, "failed to discover packages", err)
		return ManifestView{}, fmt.Errorf("failed to discover packages: %w", err)
	}
	view.DiscoveredPackages = pkgs
	return view, nil
}

// Report validates the deployed manifest and compares its pins with the
// modules linked into the running binary.
func (p *ManifestProcessor) Report(ctx context.Context) (Report, error) {
	if p.cache != nil && p.cacheTTL > 0 {
		var cached Report
		found, err := p.cache.GetJSON(ctx, reportCacheKey, &cached)
		if err != nil {
			p.logger.Error(ctx, "failed to read cached manifest report", err)
		} else if found {
			cached.Cached = true
			return cached, nil
		}
	}

	releases := p.releases
	if len(releases) == 0 {
		releases = manifest.MaintainedReleases(runtime.Version())
	}

	err := manifest.Validate(p.manifest, releases)
	issues := manifest.Issues(err)
	if err != nil && issues == nil {
		return Report{}, fmt.Errorf("failed to validate manifest: %w", err)
	}

	report := Report{
		Name:        p.manifest.Name,
		Version:     p.manifest.Version,
		Valid:       len(issues) == 0,
		Issues:      nonNilIssues(issues),
		Drift:       manifest.Drift(p.manifest, p.linked()),
		Releases:    releases,
		GeneratedAt: p.now().UTC(),
	}
	if report.Drift == nil {
		report.Drift = []manifest.DriftEntry{}
	}
	metrics.SetManifestReport(len(report.Issues), len(report.Drift))

	ctx = observability.WithFields(ctx,
		observability.Field{Key: "issues", Value: len(report.Issues)},
		observability.Field{Key: "drift", Value: len(report.Drift)},
	)
	if !report.Valid || len(report.Drift) > 0 {
		p.logger.Warn(ctx, "deployed manifest has issues or drift")
	} else {
		p.logger.Debug(ctx, "deployed manifest is valid")
	}

	if p.cache != nil && p.cacheTTL > 0 {
		if err := p.cache.SetJSON(ctx, reportCacheKey, report, p.cacheTTL); err != nil {
			p.logger.Error(ctx, "failed to cache manifest report", err)
		}
	}
	return report, nil
}

// InvalidateReport drops the cached report.
func (p *ManifestProcessor) InvalidateReport(ctx context.Context) error {
	if p.cache == nil {
		return nil
	}
	if err := p.cache.Del(ctx, reportCacheKey); err != nil {
		return fmt.Errorf("failed to invalidate manifest report: %w", err)
	}
	return nil
}

// ValidateDocument checks an uploaded manifest. A file named go.mod is read
// as a module file, anything else as a YAML or JSON manifest. Rule
// violations are reported in the result, not as an error.
func (p *ManifestProcessor) ValidateDocument(ctx context.Context, filename string, data []byte) (ValidationResult, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return ValidationResult{}, ErrEmptyDocument
	}
	if p.maxDocumentBytes > 0 && int64(len(data)) > p.maxDocumentBytes {
		return ValidationResult{}, ErrDocumentTooLarge
	}

	ctx = observability.WithFields(ctx, observability.Field{Key: "filename", Value: filename})

	format := FormatManifest
	var (
		m   manifest.Manifest
		err error
	)
	if path.Base(strings.ReplaceAll(filename, "\\", "/")) == "go.mod" {
		format = FormatGoMod
		m, err = manifest.FromGoMod("go.mod", data)
	} else {
		m, err = manifest.Load(bytes.NewReader(data))
	}
	if err != nil {
		if errors.Is(err, manifest.ErrEmptyManifest) {
			return ValidationResult{}, ErrEmptyDocument
		}
		p.logger.Warn(ctx, fmt.Sprintf("rejected unparseable %s document: %v", format, err))
		return ValidationResult{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	err = manifest.Validate(m, p.releases)
	issues := manifest.Issues(err)
	if err != nil && issues == nil {
		return ValidationResult{}, fmt.Errorf("failed to validate document: %w", err)
	}

	return ValidationResult{
		Valid:   len(issues) == 0,
		Format:  format,
		Name:    m.Name,
		Version: m.Version,
		Issues:  nonNilIssues(issues),
	}, nil
}

func nonNilIssues(issues []manifest.Issue) []manifest.Issue {
	if issues == nil {
		return []manifest.Issue{}
	}
	return issues
}
