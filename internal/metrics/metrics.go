package metrics

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/boundary-pipeline/internal/domain"
)

const namespace = "boundary_pipeline"

// Metrics - метрики конвейера в отдельном реестре. В режиме CLI
// сбрасываются в textfile для node_exporter, в API отдаются по /metrics.
type Metrics struct {
	registry *prometheus.Registry

	JobsTotal             *prometheus.CounterVec
	JobDuration           *prometheus.HistogramVec
	DiagnosticsTotal      *prometheus.CounterVec
	UnmatchedFeatures     prometheus.Counter
	TopologyConstructions prometheus.Counter
	FilesWritten          *prometheus.CounterVec
	RunTimestamp          prometheus.Gauge
	RunFailed             prometheus.Gauge
	RunDuration           prometheus.Gauge
	RunUnits              prometheus.Gauge
	RunJobs               *prometheus.GaugeVec
	RunDiagnostics        *prometheus.GaugeVec
}

// RunSource отдает сводку последнего запуска (кеш в Redis)
type RunSource interface {
	LatestRun(ctx context.Context) (*domain.RunSummary, error)
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		JobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Total number of finished jobs by kind and status",
		}, []string{"kind", "status"}),
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Job duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 300},
		}, []string{"kind"}),
		DiagnosticsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnostics_total",
			Help:      "Diagnostics recorded by kind",
		}, []string{"kind"}),
		UnmatchedFeatures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unmatched_features_total",
			Help:      "Features not assigned to any group",
		}),
		TopologyConstructions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "topology_constructions_total",
			Help:      "Number of topology constructions (one per converted source file)",
		}),
		FilesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_written_total",
			Help:      "Output files written by job kind",
		}, []string{"kind"}),
		RunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
		RunFailed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_failed",
			Help:      "1 if any job of the last run failed",
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Duration of the last run",
		}),
		RunUnits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_units",
			Help:      "Analysis units built by the last run",
		}),
		RunJobs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_jobs",
			Help:      "Jobs of the last run by kind and status",
		}, []string{"kind", "status"}),
		RunDiagnostics: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_diagnostics",
			Help:      "Diagnostics of the last run by kind",
		}, []string{"kind"}),
	}

	m.registry.MustRegister(
		m.JobsTotal,
		m.JobDuration,
		m.DiagnosticsTotal,
		m.UnmatchedFeatures,
		m.TopologyConstructions,
		m.FilesWritten,
		m.RunTimestamp,
		m.RunFailed,
		m.RunDuration,
		m.RunUnits,
		m.RunJobs,
		m.RunDiagnostics,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry возвращает реестр для регистрации дополнительных коллекторов
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveJob реализует worker.Observer
func (m *Metrics) ObserveJob(res *domain.JobResult) {
	kind := string(res.Kind)
	m.JobsTotal.WithLabelValues(kind, string(res.Status)).Inc()
	m.JobDuration.WithLabelValues(kind).Observe(res.Duration.Seconds())
	if res.Written > 0 {
		m.FilesWritten.WithLabelValues(kind).Add(float64(res.Written))
	}
}

// ObserveDiagnostic вызывается для каждой записанной диагностики
func (m *Metrics) ObserveDiagnostic(d *domain.Diagnostic) {
	m.DiagnosticsTotal.WithLabelValues(string(d.Kind)).Inc()
	if d.Kind == domain.DiagnosticUnmatched {
		m.UnmatchedFeatures.Add(float64(d.Count))
	}
}

func (m *Metrics) ObserveConstruction() {
	m.TopologyConstructions.Inc()
}

func (m *Metrics) ObserveRun(s *domain.RunSummary) {
	m.RunTimestamp.Set(float64(s.FinishedAt.Unix()))
	m.RunDuration.Set(s.FinishedAt.Sub(s.StartedAt).Seconds())
	if s.Failed() {
		m.RunFailed.Set(1)
	} else {
		m.RunFailed.Set(0)
	}
	m.RunUnits.Set(float64(s.Units))

	m.RunJobs.Reset()
	for _, st := range s.Stages {
		kind := string(st.Kind)
		m.RunJobs.WithLabelValues(kind, string(domain.JobStatusDone)).Set(float64(st.Succeeded))
		m.RunJobs.WithLabelValues(kind, string(domain.JobStatusSkipped)).Set(float64(st.Skipped))
		m.RunJobs.WithLabelValues(kind, string(domain.JobStatusFailed)).Set(float64(st.Failed))
	}
	m.RunDiagnostics.Reset()
	for kind, n := range s.Diagnostics {
		m.RunDiagnostics.WithLabelValues(string(kind)).Set(float64(n))
	}
}

// Handler отдает метрики в формате Prometheus
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RunHandler перед каждым scrape обновляет last_run_* из source. Счетчики
// заданий живут только в процессе CLI, поэтому API отдает сводку запуска.
func (m *Metrics) RunHandler(source RunSource, timeout time.Duration, logger *zap.Logger) http.Handler {
	next := m.Handler()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		summary, err := source.LatestRun(ctx)
		cancel()
		switch {
		case err != nil:
			logger.Debug("Latest run unavailable for metrics", zap.Error(err))
		case summary != nil:
			m.ObserveRun(summary)
		}
		next.ServeHTTP(w, r)
	})
}

// WriteToTextfile атомарно записывает метрики для textfile collector
func (m *Metrics) WriteToTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
