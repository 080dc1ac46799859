package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/boundary-pipeline/internal/domain"
	"github.com/boundary-pipeline/internal/domain/repository"
)

const defaultDiagnosticsLimit = 500

// schema повторяет migrations/001_pipeline_diagnostics.up.sql
var schema = []string{
	`CREATE TABLE IF NOT EXISTS pipeline_diagnostics (
		id          UUID PRIMARY KEY,
		run_id      UUID NOT NULL,
		job_id      TEXT NOT NULL,
		kind        TEXT NOT NULL,
		file        TEXT NOT NULL DEFAULT '',
		message     TEXT NOT NULL,
		coordinates JSONB,
		count       INTEGER NOT NULL DEFAULT 0,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pipeline_diagnostics_run ON pipeline_diagnostics(run_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_pipeline_diagnostics_kind ON pipeline_diagnostics(kind)`,
}

const insertDiagnostic = `
	INSERT INTO pipeline_diagnostics (id, run_id, job_id, kind, file, message, coordinates, count, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9)
	ON CONFLICT (id) DO NOTHING`

type diagnosticRow struct {
	ID          uuid.UUID `db:"id"`
	RunID       uuid.UUID `db:"run_id"`
	JobID       string    `db:"job_id"`
	Kind        string    `db:"kind"`
	File        string    `db:"file"`
	Message     string    `db:"message"`
	Coordinates *string   `db:"coordinates"`
	Count       int       `db:"count"`
	CreatedAt   time.Time `db:"created_at"`
}

type diagnosticsRepository struct {
	db *DB
}

func NewDiagnosticsRepository(db *DB) repository.DiagnosticsRepository {
	return &diagnosticsRepository{db: db}
}

// EnsureSchema создает таблицу диагностики при первом запуске
func (db *DB) EnsureSchema(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure diagnostics schema (stmt %d): %w", i, err)
		}
	}
	db.logger.Debug("Diagnostics schema ready")
	return nil
}

func (r *diagnosticsRepository) Record(ctx context.Context, d *domain.Diagnostic) error {
	args, err := insertArgs(d)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, insertDiagnostic, args...); err != nil {
		return fmt.Errorf("failed to insert diagnostic %s: %w", d.ID, err)
	}
	return nil
}

func (r *diagnosticsRepository) RecordBatch(ctx context.Context, items []*domain.Diagnostic) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, insertDiagnostic)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range items {
		args, err := insertArgs(d)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert diagnostic %s: %w", d.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit diagnostics: %w", err)
	}
	r.db.logger.Debug("Diagnostics archived", zap.Int("count", len(items)))
	return nil
}

func (r *diagnosticsRepository) ListByRun(ctx context.Context, runID uuid.UUID, limit int) ([]*domain.Diagnostic, error) {
	if limit <= 0 {
		limit = defaultDiagnosticsLimit
	}

	query := `
		SELECT id, run_id, job_id, kind, file, message, coordinates::text AS coordinates, count, created_at
		FROM pipeline_diagnostics
		WHERE run_id = $1
		ORDER BY created_at, id
		LIMIT $2`

	var rows []diagnosticRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, runID, limit); err != nil {
		return nil, fmt.Errorf("failed to list diagnostics for run %s: %w", runID, err)
	}

	out := make([]*domain.Diagnostic, 0, len(rows))
	for _, row := range rows {
		d := &domain.Diagnostic{
			ID:        row.ID,
			RunID:     row.RunID,
			JobID:     row.JobID,
			Kind:      domain.DiagnosticKind(row.Kind),
			File:      row.File,
			Message:   row.Message,
			Count:     row.Count,
			CreatedAt: row.CreatedAt.UTC(),
		}
		if row.Coordinates != nil && *row.Coordinates != "" {
			var pts []orb.Point
			if err := json.Unmarshal([]byte(*row.Coordinates), &pts); err != nil {
				r.db.logger.Warn("Invalid diagnostic coordinates",
					zap.String("id", row.ID.String()), zap.Error(err))
			}
			d.Coordinates = pts
		}
		out = append(out, d)
	}
	return out, nil
}

func insertArgs(d *domain.Diagnostic) ([]interface{}, error) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	var coords *string
	if len(d.Coordinates) > 0 {
		b, err := json.Marshal(d.Coordinates)
		if err != nil {
			return nil, fmt.Errorf("failed to encode coordinates: %w", err)
		}
		s := string(b)
		coords = &s
	}
	return []interface{}{d.ID, d.RunID, d.JobID, string(d.Kind), d.File, d.Message, coords, d.Count, d.CreatedAt}, nil
}
