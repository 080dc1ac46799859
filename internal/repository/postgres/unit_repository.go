package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/boundary-pipeline/internal/domain"
	"github.com/boundary-pipeline/internal/domain/repository"
)

type unitRepository struct {
	db      *DB
	table   string
	level   string
	columns map[string]string
}

// NewUnitRepository читает единицы анализа из таблицы. columns сопоставляет
// уровень с колонкой таблицы; ID единицы берется из колонки уровня level,
// а если она не задана, из колонки id.
func NewUnitRepository(db *DB, table, level string, columns map[string]string) repository.UnitSource {
	if len(columns) == 0 {
		columns = make(map[string]string, len(domain.AdminLevels))
		for _, l := range domain.AdminLevels {
			columns[l] = l
		}
	}
	return &unitRepository{db: db, table: table, level: level, columns: columns}
}

func (r *unitRepository) query() (string, []string, error) {
	table, err := quoteIdent(r.table)
	if err != nil {
		return "", nil, err
	}

	levels := make([]string, 0, len(r.columns))
	for l := range r.columns {
		levels = append(levels, l)
	}
	sort.Strings(levels)

	idCol := "id"
	if c, ok := r.columns[r.level]; ok {
		idCol = c
	}
	qid, err := quoteIdent(idCol)
	if err != nil {
		return "", nil, err
	}

	cols := []string{qid + "::text"}
	for _, l := range levels {
		c, err := quoteIdent(r.columns[l])
		if err != nil {
			return "", nil, err
		}
		cols = append(cols, c+"::text")
	}

	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY 1", strings.Join(cols, ", "), table)
	return q, levels, nil
}

func (r *unitRepository) LoadUnits(ctx context.Context) ([]*domain.AnalysisUnit, error) {
	q, levels, err := r.query()
	if err != nil {
		return nil, fmt.Errorf("build unit query: %w", err)
	}

	rows, err := r.db.QueryxContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query analysis units from %s: %w", r.table, err)
	}
	defer rows.Close()

	var units []*domain.AnalysisUnit
	values := make([]sql.NullString, len(levels)+1)
	dest := make([]interface{}, len(values))
	for i := range values {
		dest[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan analysis unit: %w", err)
		}
		id := strings.TrimSpace(values[0].String)
		if !values[0].Valid || id == "" {
			continue
		}
		u := domain.NewAnalysisUnit(id)
		u.Set(r.level, id)
		for i, l := range levels {
			v := values[i+1]
			if !v.Valid || strings.TrimSpace(v.String) == "" {
				continue
			}
			u.Set(l, strings.TrimSpace(v.String))
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analysis units: %w", err)
	}

	r.db.logger.Info("Analysis units loaded",
		zap.String("table", r.table),
		zap.String("level", r.level),
		zap.Int("count", len(units)))
	return units, nil
}
