package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/snapshot-lifecycle-api/internal/models"
)

// Enforcement run outcomes used as metric labels.
const (
	RunResultCompleted    = "completed"
	RunResultCancelled    = "cancelled"
	RunResultConflict     = "conflict"
	RunResultPrecondition = "precondition"
	RunResultFailed       = "failed"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic and lifecycle work.
// Every method is safe on a nil receiver.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	dryRuns            *prometheus.CounterVec
	dryRunDuration     prometheus.Observer
	evaluatedSnapshots *prometheus.CounterVec
	enforcementRuns    *prometheus.CounterVec
	enforcementLatency prometheus.Observer
	snapshotsDeleted   prometheus.Counter
	bytesReclaimed     prometheus.Counter
	deletionFailures   prometheus.Counter
	scheduledJobs      *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	dryRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lifecycle_dry_runs_total",
		Help: "Dry runs by outcome",
	}, []string{"result"})

	dryRunDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "lifecycle_dry_run_duration_seconds",
		Help:    "Duration of dry runs including data loading",
		Buckets: prometheus.DefBuckets,
	})

	evaluatedSnapshots := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lifecycle_evaluated_snapshots_total",
		Help: "Snapshots evaluated by the retention engine, by resulting action",
	}, []string{"action"})

	enforcementRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lifecycle_enforcement_runs_total",
		Help: "Enforcement runs by trigger and outcome",
	}, []string{"trigger", "result"})

	enforcementLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "lifecycle_enforcement_duration_seconds",
		Help:    "Duration of enforcement runs that acquired the lease",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
	})

	snapshotsDeleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lifecycle_snapshots_deleted_total",
		Help: "Snapshots deleted by enforcement",
	})

	bytesReclaimed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lifecycle_bytes_reclaimed_total",
		Help: "Bytes reclaimed by enforcement",
	})

	deletionFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lifecycle_deletion_failures_total",
		Help: "Snapshot deletions that failed and aborted a run",
	})

	scheduledJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lifecycle_scheduled_jobs_total",
		Help: "Scheduler enqueue attempts by outcome",
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, dryRuns, dryRunDuration, evaluatedSnapshots, enforcementRuns,
		enforcementLatency, snapshotsDeleted, bytesReclaimed, deletionFailures, scheduledJobs, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		dryRuns:            dryRuns,
		dryRunDuration:     dryRunDuration,
		evaluatedSnapshots: evaluatedSnapshots,
		enforcementRuns:    enforcementRuns,
		enforcementLatency: enforcementLatency,
		snapshotsDeleted:   snapshotsDeleted,
		bytesReclaimed:     bytesReclaimed,
		deletionFailures:   deletionFailures,
		scheduledJobs:      scheduledJobs,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveDryRun records one dry run and the action mix it produced. result is nil on failure.
func (m *MetricsService) ObserveDryRun(result *models.DryRunResult, duration time.Duration) {
	if m == nil {
		return
	}
	m.dryRunDuration.Observe(duration.Seconds())
	if result == nil {
		m.dryRuns.WithLabelValues("failed").Inc()
		return
	}
	m.dryRuns.WithLabelValues("ok").Inc()
	m.observeSummary(result.DryRunSummary)
}

func (m *MetricsService) observeSummary(summary models.DryRunSummary) {
	m.evaluatedSnapshots.WithLabelValues(string(models.ActionKeep)).Add(float64(summary.KeepCount))
	m.evaluatedSnapshots.WithLabelValues(string(models.ActionCanDelete)).Add(float64(summary.CanDeleteCount))
	m.evaluatedSnapshots.WithLabelValues(string(models.ActionMustDelete)).Add(float64(summary.MustDeleteCount))
	m.evaluatedSnapshots.WithLabelValues(string(models.ActionHold)).Add(float64(summary.HoldCount))
}

// ObserveEnforcement records the outcome of an enforcement attempt. report is nil when the run never
// acquired the lease or loaded its policy.
func (m *MetricsService) ObserveEnforcement(trigger models.EnforcementTrigger, result string, report *models.EnforcementReport) {
	if m == nil {
		return
	}
	m.enforcementRuns.WithLabelValues(string(trigger), result).Inc()
	if report == nil {
		return
	}
	if !report.FinishedAt.IsZero() {
		m.enforcementLatency.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
	}
	m.observeSummary(report.Evaluated)
}

// RecordDeletion counts one committed snapshot deletion.
func (m *MetricsService) RecordDeletion(sizeBytes int64) {
	if m == nil {
		return
	}
	m.snapshotsDeleted.Inc()
	if sizeBytes > 0 {
		m.bytesReclaimed.Add(float64(sizeBytes))
	}
}

// RecordDeletionFailure counts a deletion that aborted its run.
func (m *MetricsService) RecordDeletionFailure() {
	if m == nil {
		return
	}
	m.deletionFailures.Inc()
}

// RecordScheduledJob counts a scheduler enqueue attempt.
func (m *MetricsService) RecordScheduledJob(result string) {
	if m == nil {
		return
	}
	m.scheduledJobs.WithLabelValues(result).Inc()
}
