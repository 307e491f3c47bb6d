// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ivr_http_requests_total",
		Help: "HTTP requests by method, route and status code",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ivr_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	dependencyStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ivr_dependency_status",
		Help: "Dependency check status (one series per status, active status is 1)",
	}, []string{"dependency", "status"})

	dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ivr_dependency_check_duration_seconds",
		Help:    "Duration of dependency readiness checks",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"dependency"})

	manifestIssues = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ivr_manifest_issues",
		Help: "Number of validation issues in the deployed manifest",
	})

	manifestDrift = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ivr_manifest_drift",
		Help: "Number of declared pins not honoured by the running binary",
	})

	rateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ivr_rate_limited_total",
		Help: "Requests rejected by the rate limiter, by backend",
	}, []string{"backend"})

	jobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ivr_scheduled_job_runs_total",
		Help: "Scheduled job executions by job and result",
	}, []string{"job", "result"})
)

var dependencyStatuses = []string{"healthy", "degraded", "unhealthy"}

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(method, route string, status int, latency time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(latency.Seconds())
}

// SetDependencyStatus records the latest check status of a dependency.
func SetDependencyStatus(dependency, status string) {
	for _, s := range dependencyStatuses {
		value := 0.0
		if s == status {
			value = 1.0
		}
		dependencyStatus.WithLabelValues(dependency, s).Set(value)
	}
}

// ObserveDependencyCheck records how long a dependency check took.
func ObserveDependencyCheck(dependency string, latency time.Duration) {
	dependencyLatency.WithLabelValues(dependency).Observe(latency.Seconds())
}

// SetManifestReport records the size of the latest manifest report.
func SetManifestReport(issues, drift int) {
	manifestIssues.Set(float64(issues))
	manifestDrift.Set(float64(drift))
}

// IncRateLimited counts a request rejected by the given limiter backend.
func IncRateLimited(backend string) {
	rateLimited.WithLabelValues(backend).Inc()
}

// IncJobRun counts one execution of a scheduled job.
func IncJobRun(job string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	jobRuns.WithLabelValues(job, result).Inc()
}
