package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/boundary-pipeline/internal/domain"
)

// Job - независимая единица работы. Задание не зависит от порядка
// выполнения и от побочных эффектов других заданий.
type Job interface {
	ID() string
	Kind() domain.JobKind
	Run(ctx context.Context) domain.JobResult
}

// Sized реализуют задания, знающие размер входного файла
type Sized interface {
	Size() int64
}

// Progress вызывается после завершения каждого задания (не при старте)
type Progress func(done, total int, res *domain.JobResult)

// Observer получает каждый результат, например для метрик
type Observer interface {
	ObserveJob(res *domain.JobResult)
}

type PoolConfig struct {
	Size       int
	JobTimeout time.Duration
	OnProgress Progress
	Observer   Observer
}

// Pool выполняет задания ограниченным числом горутин
type Pool struct {
	cfg    PoolConfig
	logger *zap.Logger
	mu     sync.Mutex
}

func NewPool(cfg PoolConfig, logger *zap.Logger) *Pool {
	if cfg.Size <= 0 {
		cfg.Size = 1
	}
	return &Pool{cfg: cfg, logger: logger}
}

// Report - агрегированный итог пула
type Report struct {
	Total     int
	Done      int
	Succeeded int
	Skipped   int
	Failed    int
	Results   []domain.JobResult
	Duration  time.Duration
}

// Diagnostics собирает диагностику всех заданий
func (r *Report) Diagnostics() []*domain.Diagnostic {
	var out []*domain.Diagnostic
	for i := range r.Results {
		out = append(out, r.Results[i].Diagnostics...)
	}
	return out
}

// Run выполняет все задания. Сбой одного задания не останавливает остальные.
func (p *Pool) Run(ctx context.Context, jobs []Job) *Report {
	start := time.Now()
	total := len(jobs)
	rep := &Report{Total: total, Results: make([]domain.JobResult, total)}

	var done atomic.Int64
	var g errgroup.Group
	g.SetLimit(p.cfg.Size)

	for i, job := range jobs {
		g.Go(func() error {
			res := p.runOne(ctx, job)
			rep.Results[i] = res
			n := int(done.Add(1))
			p.report(n, total, &rep.Results[i])
			return nil
		})
	}
	_ = g.Wait()

	rep.Done = int(done.Load())
	for i := range rep.Results {
		switch rep.Results[i].Status {
		case domain.JobStatusFailed:
			rep.Failed++
		case domain.JobStatusSkipped:
			rep.Skipped++
		default:
			rep.Succeeded++
		}
	}
	rep.Duration = time.Since(start)
	return rep
}

// report сериализует колбэки, чтобы строки прогресса не перемешивались
func (p *Pool) report(done, total int, res *domain.JobResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cfg.Observer != nil {
		p.cfg.Observer.ObserveJob(res)
	}
	if p.cfg.OnProgress != nil {
		p.cfg.OnProgress(done, total, res)
	}
}

func (p *Pool) runOne(ctx context.Context, job Job) (res domain.JobResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Job panicked", zap.String("job", job.ID()), zap.Any("panic", r))
			res = domain.JobResult{
				JobID:  job.ID(),
				Kind:   job.Kind(),
				Status: domain.JobStatusFailed,
				Err:    fmt.Errorf("job %s panicked: %v", job.ID(), r),
				Diagnostics: []*domain.Diagnostic{
					domain.NewDiagnostic(job.ID(), domain.DiagnosticPanic, "", fmt.Sprintf("%v\n%s", r, debug.Stack())),
				},
			}
		}
		if res.Err != nil && res.Error == "" {
			res.Error = res.Err.Error()
		}
		res.Duration = time.Since(start)
	}()

	if err := ctx.Err(); err != nil {
		return domain.JobResult{JobID: job.ID(), Kind: job.Kind(), Status: domain.JobStatusFailed, Err: err}
	}

	jctx := ctx
	if p.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		jctx, cancel = context.WithTimeout(ctx, p.cfg.JobTimeout)
		defer cancel()
	}

	res = job.Run(jctx)
	if res.JobID == "" {
		res.JobID = job.ID()
	}
	if res.Kind == "" {
		res.Kind = job.Kind()
	}
	if res.Status == "" {
		res.Status = domain.JobStatusDone
	}
	return res
}

// SortBySize упорядочивает задания по возрастанию размера входа: ошибки на
// маленьких файлах видны раньше, воркеры заканчивают равномернее.
func SortBySize(jobs []Job) {
	size := func(j Job) int64 {
		if s, ok := j.(Sized); ok {
			return s.Size()
		}
		return 0
	}
	sort.SliceStable(jobs, func(a, b int) bool { return size(jobs[a]) < size(jobs[b]) })
}

// FormatProgress печатает done/total [pct%]
func FormatProgress(done, total int) string {
	pct := 100
	if total > 0 {
		pct = done * 100 / total
	}
	return fmt.Sprintf("%d/%d [%d%%]", done, total, pct)
}

// LogProgress возвращает Progress, пишущий строку прогресса в журнал
func LogProgress(logger *zap.Logger, label string) Progress {
	return func(done, total int, res *domain.JobResult) {
		fields := []zap.Field{
			zap.String("progress", FormatProgress(done, total)),
			zap.String("job", res.JobID),
			zap.String("status", string(res.Status)),
		}
		if res.Failed() {
			logger.Warn(label, append(fields, zap.String("error", res.Error))...)
			return
		}
		logger.Info(label, fields...)
	}
}
