package domain

import "time"

// JobKind - тип задания планировщика
type JobKind string

const (
	JobKindPartition JobKind = "partition"
	JobKindSimplify  JobKind = "simplify"
)

// JobStatus - итог выполнения задания
type JobStatus string

const (
	JobStatusDone    JobStatus = "done"
	JobStatusSkipped JobStatus = "skipped"
	JobStatusFailed  JobStatus = "failed"
)

// JobResult возвращается заданием планировщику вместо мутации общего состояния
type JobResult struct {
	JobID       string        `json:"job_id"`
	Kind        JobKind       `json:"kind"`
	Status      JobStatus     `json:"status"`
	Err         error         `json:"-"`
	Error       string        `json:"error,omitempty"`
	Written     int           `json:"written"`
	Skipped     int           `json:"skipped"`
	Diagnostics []*Diagnostic `json:"diagnostics,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// Failed сообщает, завершилось ли задание ошибкой
func (r *JobResult) Failed() bool {
	return r.Status == JobStatusFailed
}
