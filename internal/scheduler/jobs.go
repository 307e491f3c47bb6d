package scheduler

import (
	"context"
	"fmt"
	"time"

	"indian-airlines-ivr/internal/manifest/processor"
	"indian-airlines-ivr/internal/readiness"
)

// ReportSource is the part of the manifest processor the refresh job needs.
type ReportSource interface {
	InvalidateReport(ctx context.Context) error
	Report(ctx context.Context) (processor.Report, error)
}

// ReadinessSource is the part of the readiness manager the probe job needs.
type ReadinessSource interface {
	Ready(ctx context.Context) readiness.Report
}

// ReportRefreshJob recomputes the manifest report so the cache and the
// manifest gauges never go stale.
type ReportRefreshJob struct {
	source   ReportSource
	interval time.Duration
}

func NewReportRefreshJob(source ReportSource, interval time.Duration) *ReportRefreshJob {
	return &ReportRefreshJob{source: source, interval: interval}
}

func (j *ReportRefreshJob) Name() string { return "manifest-report-refresh" }

func (j *ReportRefreshJob) Schedule() time.Duration { return j.interval }

func (j *ReportRefreshJob) Run(ctx context.Context) error {
	// A cache that cannot be cleared still gets overwritten by Report.
	invalidateErr := j.source.InvalidateReport(ctx)
	if _, err := j.source.Report(ctx); err != nil {
		return fmt.Errorf("failed to compute manifest report: %w", err)
	}
	return invalidateErr
}

// ReadinessProbeJob runs the dependency checks so their gauges stay current
// when nobody polls /ready.
type ReadinessProbeJob struct {
	source   ReadinessSource
	interval time.Duration
}

func NewReadinessProbeJob(source ReadinessSource, interval time.Duration) *ReadinessProbeJob {
	return &ReadinessProbeJob{source: source, interval: interval}
}

func (j *ReadinessProbeJob) Name() string { return "readiness-probe" }

func (j *ReadinessProbeJob) Schedule() time.Duration { return j.interval }

func (j *ReadinessProbeJob) Run(ctx context.Context) error {
	report := j.source.Ready(ctx)
	if !report.Ready {
		return fmt.Errorf("dependencies not ready: status %s", report.Status)
	}
	return nil
}
