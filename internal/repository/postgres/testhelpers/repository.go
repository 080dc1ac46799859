package testhelpers

import (
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/boundary-pipeline/internal/domain/repository"
	"github.com/boundary-pipeline/internal/repository/postgres"
)

// NewDBForTest creates a postgres.DB with test database and logger
func NewDBForTest(db *sqlx.DB, logger *zap.Logger) *postgres.DB {
	return postgres.NewDBForTest(db, logger)
}

// NewDiagnosticsRepositoryForTest creates a diagnostics repository with test database and logger
func NewDiagnosticsRepositoryForTest(db *sqlx.DB, logger *zap.Logger) repository.DiagnosticsRepository {
	return postgres.NewDiagnosticsRepository(NewDBForTest(db, logger))
}

// NewUnitRepositoryForTest creates a unit source over analysis_units
func NewUnitRepositoryForTest(db *sqlx.DB, logger *zap.Logger, level string, columns map[string]string) repository.UnitSource {
	return postgres.NewUnitRepository(NewDBForTest(db, logger), "analysis_units", level, columns)
}
