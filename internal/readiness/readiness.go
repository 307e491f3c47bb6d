// Package readiness aggregates dependency checks into the readiness report
// served on /ready.
package readiness

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"indian-airlines-ivr/internal/metrics"
	"indian-airlines-ivr/internal/observability"

	"golang.org/x/sync/errgroup"
)

// Status represents the health of one dependency or of the whole service.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

const cacheKey = "ivr:readiness"

// CheckResult represents the result of a dependency check
type CheckResult struct {
	Status    Status `json:"status"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// Healthy builds a passing result.
func Healthy(message string) CheckResult {
	return CheckResult{Status: StatusHealthy, Message: message}
}

// Degraded builds a result that does not block readiness.
func Degraded(message string) CheckResult {
	return CheckResult{Status: StatusDegraded, Message: message}
}

// Unhealthy builds a failing result.
func Unhealthy(message string, err error) CheckResult {
	r := CheckResult{Status: StatusUnhealthy, Message: message}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// NotConfigured is reported by checkers whose client was not set up.
func NotConfigured() CheckResult {
	return Degraded("not configured")
}

// Checker defines the interface for dependency checks
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Cache stores the last report between probes.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Report represents the readiness check response
type Report struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Cached    bool                   `json:"cached"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Config tunes the manager.
type Config struct {
	Version      string
	CheckTimeout time.Duration
	CacheTTL     time.Duration
}

// Manager runs the registered checkers
type Manager struct {
	cfg      Config
	cache    Cache
	logger   *observability.Logger
	mu       sync.RWMutex
	checkers []Checker
	now      func() time.Time
}

// NewManager creates a manager. cache may be nil.
func NewManager(cfg Config, cache Cache, logger *observability.Logger) *Manager {
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = 3 * time.Second
	}
	return &Manager{
		cfg:    cfg,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// Register adds checkers to the manager
func (m *Manager) Register(checkers ...Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, checkers...)
}

// Ready returns the readiness report, from cache when a fresh one exists.
func (m *Manager) Ready(ctx context.Context) Report {
	if m.cache != nil && m.cfg.CacheTTL > 0 {
		var cached Report
		found, err := m.cache.GetJSON(ctx, cacheKey, &cached)
		if err != nil {
			m.logger.Error(ctx, "failed to read cached readiness report", err)
		} else if found {
			cached.Cached = true
			return cached
		}
	}

	report := m.run(ctx)

	if m.cache != nil && m.cfg.CacheTTL > 0 {
		if err := m.cache.SetJSON(ctx, cacheKey, report, m.cfg.CacheTTL); err != nil {
			m.logger.Error(ctx, "failed to cache readiness report", err)
		}
	}
	return report
}

// Invalidate drops the cached report so the next probe runs every check.
func (m *Manager) Invalidate(ctx context.Context) error {
	if m.cache == nil {
		return nil
	}
	if err := m.cache.Del(ctx, cacheKey); err != nil {
		return fmt.Errorf("failed to invalidate readiness cache: %w", err)
	}
	return nil
}

// Checkers returns the registered checker names, sorted.
func (m *Manager) Checkers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, len(m.checkers))
	for i, c := range m.checkers {
		names[i] = c.Name()
	}
	sort.Strings(names)
	return names
}

func (m *Manager) run(ctx context.Context) Report {
	m.mu.RLock()
	checkers := append([]Checker(nil), m.checkers...)
	m.mu.RUnlock()

	report := Report{
		Ready:     true,
		Status:    StatusHealthy,
		Version:   m.cfg.Version,
		Timestamp: m.now().UTC(),
		Checks:    make(map[string]CheckResult, len(checkers)),
	}

	results := make([]CheckResult, len(checkers))
	g, gctx := errgroup.WithContext(ctx)
	for i, checker := range checkers {
		i, checker := i, checker
		g.Go(func() error {
			results[i] = m.runOne(gctx, checker)
			return nil
		})
	}
	_ = g.Wait()

	for i, checker := range checkers {
		result := results[i]
		report.Checks[checker.Name()] = result
		switch result.Status {
		case StatusUnhealthy:
			report.Ready = false
			report.Status = StatusUnhealthy
		case StatusDegraded:
			if report.Status == StatusHealthy {
				report.Status = StatusDegraded
			}
		}
	}
	return report
}

func (m *Manager) runOne(ctx context.Context, checker Checker) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.CheckTimeout)
	defer cancel()
	ctx = observability.WithFields(ctx, observability.Field{Key: "dependency", Value: checker.Name()})

	done := make(chan CheckResult, 1)
	start := time.Now()
	go func() {
		done <- checker.Check(ctx)
	}()

	var result CheckResult
	select {
	case result = <-done:
	case <-ctx.Done():
		result = Unhealthy("check timed out", ctx.Err())
	}

	latency := time.Since(start)
	result.LatencyMS = latency.Milliseconds()
	metrics.ObserveDependencyCheck(checker.Name(), latency)
	metrics.SetDependencyStatus(checker.Name(), string(result.Status))

	if result.Status == StatusUnhealthy {
		m.logger.Warn(ctx, fmt.Sprintf("dependency %s is unhealthy: %s", checker.Name(), result.Message))
	}
	return result
}
