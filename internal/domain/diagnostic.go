package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

// DiagnosticKind - категория диагностической записи
type DiagnosticKind string

const (
	DiagnosticGeometry   DiagnosticKind = "geometry"
	DiagnosticUnmatched  DiagnosticKind = "unmatched_features"
	DiagnosticFilesystem DiagnosticKind = "filesystem"
	DiagnosticConfig     DiagnosticKind = "config"
	DiagnosticTimeout    DiagnosticKind = "timeout"
	DiagnosticPanic      DiagnosticKind = "panic"
	DiagnosticJobFailed  DiagnosticKind = "job_failed"
)

// Stream names
const (
	StreamDiagnostics = "stream:pipeline:diagnostics"
)

// Diagnostic - запись о локальном сбое задания, не прерывающем батч
type Diagnostic struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	RunID       uuid.UUID      `json:"run_id" db:"run_id"`
	JobID       string         `json:"job_id" db:"job_id"`
	Kind        DiagnosticKind `json:"kind" db:"kind"`
	File        string         `json:"file,omitempty" db:"file"`
	Message     string         `json:"message" db:"message"`
	Coordinates []orb.Point    `json:"coordinates,omitempty" db:"-"` // jsonb-колонка, кодируется в postgres.insertArgs
	Count       int            `json:"count,omitempty" db:"count"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
}

// NewDiagnostic создает запись с новым ID и текущим временем
func NewDiagnostic(jobID string, kind DiagnosticKind, file, message string) *Diagnostic {
	return &Diagnostic{
		ID:        uuid.New(),
		JobID:     jobID,
		Kind:      kind,
		File:      file,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}

// StreamMessage - сообщение из Redis Stream
type StreamMessage struct {
	ID   string
	Data string
}
