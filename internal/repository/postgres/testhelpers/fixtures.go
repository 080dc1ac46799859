package testhelpers

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
)

// LoadFixtures loads SQL fixture files into the database
func LoadFixtures(db *sql.DB, fixturesPath string, files []string) error {
	for _, file := range files {
		path := filepath.Join(fixturesPath, file)
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read fixture %s: %w", file, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("load fixture %s: %w", file, err)
		}
	}

	return nil
}

// InsertUnit вставляет строку analysis_units; пустые значения пишутся как NULL
func InsertUnit(ctx context.Context, db *sql.DB, id string, columns map[string]string) error {
	nullable := func(col string) interface{} {
		if v, ok := columns[col]; ok && v != "" {
			return v
		}
		return nil
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO analysis_units (id, municipio, microrregiao, mesorregiao, uf, macrorregiao, distrito, subdistrito)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`,
		id,
		nullable("municipio"), nullable("microrregiao"), nullable("mesorregiao"),
		nullable("uf"), nullable("macrorregiao"), nullable("distrito"), nullable("subdistrito"))
	if err != nil {
		return fmt.Errorf("insert unit %s: %w", id, err)
	}
	return nil
}
