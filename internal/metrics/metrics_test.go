package metrics_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boundary-pipeline/internal/domain"
	"github.com/boundary-pipeline/internal/metrics"
)

func TestObserveJobAndTextfile(t *testing.T) {
	m := metrics.New()

	unmatched := domain.NewDiagnostic("partition:uf", domain.DiagnosticUnmatched, "", "unmatched features")
	unmatched.Count = 7
	m.ObserveJob(&domain.JobResult{
		JobID:       "partition:uf",
		Kind:        domain.JobKindPartition,
		Status:      domain.JobStatusDone,
		Written:     3,
		Diagnostics: []*domain.Diagnostic{unmatched},
		Duration:    120 * time.Millisecond,
	})
	m.ObserveDiagnostic(unmatched)
	m.ObserveJob(&domain.JobResult{
		JobID:  "simplify:uf/35_q0.json",
		Kind:   domain.JobKindSimplify,
		Status: domain.JobStatusFailed,
		Err:    errors.New("boom"),
	})
	m.ObserveConstruction()

	started := time.Now().Add(-time.Minute)
	m.ObserveRun(&domain.RunSummary{
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
		Stages:     []domain.StageSummary{{Kind: domain.JobKindSimplify, Failed: 1}},
	})

	path := filepath.Join(t.TempDir(), "textfile", "pipeline.prom")
	require.NoError(t, m.WriteToTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, `boundary_pipeline_jobs_total{kind="partition",status="done"} 1`)
	assert.Contains(t, text, `boundary_pipeline_jobs_total{kind="simplify",status="failed"} 1`)
	assert.Contains(t, text, `boundary_pipeline_unmatched_features_total 7`)
	assert.Contains(t, text, `boundary_pipeline_topology_constructions_total 1`)
	assert.Contains(t, text, `boundary_pipeline_files_written_total{kind="partition"} 3`)
	assert.Contains(t, text, `boundary_pipeline_last_run_failed 1`)
	assert.Contains(t, text, `boundary_pipeline_last_run_duration_seconds 60`)
}

func TestWriteToTextfileEmptyPath(t *testing.T) {
	assert.NoError(t, metrics.New().WriteToTextfile(""))
}

func TestHandler(t *testing.T) {
	m := metrics.New()
	m.ObserveConstruction()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "boundary_pipeline_topology_constructions_total 1"))
}

type staticRunSource struct {
	summary *domain.RunSummary
	err     error
}

func (s staticRunSource) LatestRun(_ context.Context) (*domain.RunSummary, error) {
	return s.summary, s.err
}

func TestRunHandlerServesLatestRun(t *testing.T) {
	started := time.Unix(1700000000, 0)
	source := staticRunSource{summary: &domain.RunSummary{
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
		Units:      5570,
		Stages: []domain.StageSummary{
			{Kind: domain.JobKindPartition, Total: 2, Succeeded: 2},
			{Kind: domain.JobKindSimplify, Total: 6, Succeeded: 4, Skipped: 1, Failed: 1},
		},
		Diagnostics: map[domain.DiagnosticKind]int{domain.DiagnosticTimeout: 1},
	}}

	rec := httptest.NewRecorder()
	metrics.New().RunHandler(source, time.Second, zap.NewNop()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `boundary_pipeline_last_run_timestamp_seconds 1.70000009e+09`)
	assert.Contains(t, body, `boundary_pipeline_last_run_duration_seconds 90`)
	assert.Contains(t, body, `boundary_pipeline_last_run_failed 1`)
	assert.Contains(t, body, `boundary_pipeline_last_run_units 5570`)
	assert.Contains(t, body, `boundary_pipeline_last_run_jobs{kind="partition",status="done"} 2`)
	assert.Contains(t, body, `boundary_pipeline_last_run_jobs{kind="simplify",status="failed"} 1`)
	assert.Contains(t, body, `boundary_pipeline_last_run_diagnostics{kind="timeout"} 1`)
}

func TestRunHandlerWithoutRun(t *testing.T) {
	source := staticRunSource{err: errors.New("run not found")}

	rec := httptest.NewRecorder()
	metrics.New().RunHandler(source, time.Second, zap.NewNop()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `boundary_pipeline_last_run_units 0`)
}
