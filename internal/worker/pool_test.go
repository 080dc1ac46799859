package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boundary-pipeline/internal/domain"
	"github.com/boundary-pipeline/internal/worker"
)

type fakeJob struct {
	id   string
	size int64
	run  func(ctx context.Context) domain.JobResult
}

func (j *fakeJob) ID() string { return j.id }

func (j *fakeJob) Kind() domain.JobKind { return domain.JobKindSimplify }

func (j *fakeJob) Size() int64 { return j.size }

func (j *fakeJob) Run(ctx context.Context) domain.JobResult { return j.run(ctx) }

func ok(ctx context.Context) domain.JobResult {
	return domain.JobResult{Status: domain.JobStatusDone, Written: 1}
}

func TestPool_IsolatesFailures(t *testing.T) {
	jobs := make([]worker.Job, 0, 5)
	for i := 1; i <= 5; i++ {
		job := &fakeJob{id: fmt.Sprintf("file-%d", i), run: ok}
		if i == 3 {
			job.run = func(ctx context.Context) domain.JobResult {
				err := errors.New("found non-noded intersection")
				return domain.JobResult{
					Status:      domain.JobStatusFailed,
					Err:         err,
					Diagnostics: []*domain.Diagnostic{domain.NewDiagnostic("file-3", domain.DiagnosticGeometry, "file-3", err.Error())},
				}
			}
		}
		jobs = append(jobs, job)
	}

	var progress []int
	pool := worker.NewPool(worker.PoolConfig{
		Size: 2,
		OnProgress: func(done, total int, res *domain.JobResult) {
			assert.Equal(t, 5, total)
			progress = append(progress, done)
		},
	}, zap.NewNop())

	rep := pool.Run(context.Background(), jobs)

	assert.Equal(t, 5, rep.Total)
	assert.Equal(t, 5, rep.Done)
	assert.Equal(t, 4, rep.Succeeded)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, "found non-noded intersection", rep.Results[2].Error)
	assert.Equal(t, "file-3", rep.Results[2].JobID)
	require.Len(t, rep.Diagnostics(), 1)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, progress)
}

func TestPool_RecoversPanic(t *testing.T) {
	jobs := []worker.Job{
		&fakeJob{id: "boom", run: func(ctx context.Context) domain.JobResult { panic("nil geometry") }},
		&fakeJob{id: "fine", run: ok},
	}
	rep := worker.NewPool(worker.PoolConfig{Size: 2}, zap.NewNop()).Run(context.Background(), jobs)

	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, 1, rep.Succeeded)
	require.Len(t, rep.Results[0].Diagnostics, 1)
	assert.Equal(t, domain.DiagnosticPanic, rep.Results[0].Diagnostics[0].Kind)
	assert.Contains(t, rep.Results[0].Error, "nil geometry")
}

func TestPool_JobTimeout(t *testing.T) {
	slow := &fakeJob{id: "slow", run: func(ctx context.Context) domain.JobResult {
		<-ctx.Done()
		return domain.JobResult{Status: domain.JobStatusFailed, Err: ctx.Err()}
	}}
	rep := worker.NewPool(worker.PoolConfig{Size: 1, JobTimeout: 20 * time.Millisecond}, zap.NewNop()).
		Run(context.Background(), []worker.Job{slow})

	assert.Equal(t, 1, rep.Failed)
	assert.ErrorIs(t, rep.Results[0].Err, context.DeadlineExceeded)
}

func TestPool_BoundedConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	var mu sync.Mutex
	run := func(ctx context.Context) domain.JobResult {
		n := running.Add(1)
		mu.Lock()
		if n > peak.Load() {
			peak.Store(n)
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return domain.JobResult{Status: domain.JobStatusSkipped, Skipped: 4}
	}
	jobs := make([]worker.Job, 0, 12)
	for i := 0; i < 12; i++ {
		jobs = append(jobs, &fakeJob{id: fmt.Sprint(i), run: run})
	}

	rep := worker.NewPool(worker.PoolConfig{Size: 3}, zap.NewNop()).Run(context.Background(), jobs)
	assert.Equal(t, 12, rep.Skipped)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestPool_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var called atomic.Bool
	job := &fakeJob{id: "x", run: func(ctx context.Context) domain.JobResult {
		called.Store(true)
		return domain.JobResult{}
	}}
	rep := worker.NewPool(worker.PoolConfig{Size: 1}, zap.NewNop()).Run(ctx, []worker.Job{job})

	assert.False(t, called.Load())
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, 1, rep.Done)
}

func TestSortBySize(t *testing.T) {
	jobs := []worker.Job{
		&fakeJob{id: "big", size: 300},
		&fakeJob{id: "small", size: 10},
		&fakeJob{id: "mid", size: 100},
	}
	worker.SortBySize(jobs)
	assert.Equal(t, "small", jobs[0].ID())
	assert.Equal(t, "mid", jobs[1].ID())
	assert.Equal(t, "big", jobs[2].ID())
}

func TestFormatProgress(t *testing.T) {
	assert.Equal(t, "3/4 [75%]", worker.FormatProgress(3, 4))
	assert.Equal(t, "1/3 [33%]", worker.FormatProgress(1, 3))
	assert.Equal(t, "0/0 [100%]", worker.FormatProgress(0, 0))
}
