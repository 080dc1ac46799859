package domain

import (
	"time"

	"github.com/google/uuid"
)

// StageSummary - итог одного пула заданий (partition или simplify)
type StageSummary struct {
	Kind      JobKind       `json:"kind"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// RunSummary - сводка запуска конвейера
type RunSummary struct {
	RunID       uuid.UUID              `json:"run_id"`
	BaseDir     string                 `json:"base_dir"`
	StartedAt   time.Time              `json:"started_at"`
	FinishedAt  time.Time              `json:"finished_at"`
	Units       int                    `json:"units"`
	Stages      []StageSummary         `json:"stages"`
	Diagnostics map[DiagnosticKind]int `json:"diagnostics"`
}

// Failed сообщает, завершилось ли ошибкой хотя бы одно задание
func (s *RunSummary) Failed() bool {
	for _, st := range s.Stages {
		if st.Failed > 0 {
			return true
		}
	}
	return false
}
