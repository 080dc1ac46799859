package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/suite"

	"github.com/boundary-pipeline/internal/domain"
	"github.com/boundary-pipeline/internal/domain/repository"
	"github.com/boundary-pipeline/internal/repository/postgres/testhelpers"
)

// DiagnosticsRepositoryTestSuite тестирует архив диагностики на реальной БД
type DiagnosticsRepositoryTestSuite struct {
	suite.Suite
	testDB *testhelpers.TestDB
	repo   repository.DiagnosticsRepository
	ctx    context.Context
}

func (s *DiagnosticsRepositoryTestSuite) SetupSuite() {
	s.testDB = testhelpers.SetupTestDB(s.T())

	err := testhelpers.ApplyMigrations(context.Background(), s.testDB.DB.DB, "../../../migrations")
	s.Require().NoError(err, "Failed to apply migrations")

	s.repo = testhelpers.NewDiagnosticsRepositoryForTest(s.testDB.DB, s.testDB.Logger)
}

func (s *DiagnosticsRepositoryTestSuite) TearDownSuite() {
	if s.testDB != nil {
		s.testDB.Close()
	}
}

func (s *DiagnosticsRepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.Require().NoError(s.testDB.Cleanup(s.ctx))
}

func (s *DiagnosticsRepositoryTestSuite) TestRecordAndList() {
	runID := uuid.New()
	d := domain.NewDiagnostic("topology:uf/35_q0.json", domain.DiagnosticGeometry, "uf/35_q0.json",
		"found self-intersection between LINESTRING (0 0, 1 1) and LINESTRING (0 1, 1 0) at 0.5 0.5")
	d.RunID = runID
	d.Coordinates = []orb.Point{{0, 0}, {1, 1}, {0, 1}, {1, 0}, {0.5, 0.5}}

	s.Require().NoError(s.repo.Record(s.ctx, d))

	items, err := s.repo.ListByRun(s.ctx, runID, 10)
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.Equal(d.ID, items[0].ID)
	s.Equal(domain.DiagnosticGeometry, items[0].Kind)
	s.Equal(d.Coordinates, items[0].Coordinates)
	s.WithinDuration(d.CreatedAt, items[0].CreatedAt, time.Second)
}

func (s *DiagnosticsRepositoryTestSuite) TestRecordBatchIsIdempotent() {
	runID := uuid.New()
	batch := make([]*domain.Diagnostic, 0, 3)
	for i := 0; i < 3; i++ {
		d := domain.NewDiagnostic("partition:municipio", domain.DiagnosticUnmatched, "", "unmatched features")
		d.RunID = runID
		d.Count = i + 1
		batch = append(batch, d)
	}

	s.Require().NoError(s.repo.RecordBatch(s.ctx, batch))
	// повторная доставка из стрима не дублирует записи
	s.Require().NoError(s.repo.RecordBatch(s.ctx, batch))

	items, err := s.repo.ListByRun(s.ctx, runID, 0)
	s.Require().NoError(err)
	s.Len(items, 3)

	other, err := s.repo.ListByRun(s.ctx, uuid.New(), 0)
	s.Require().NoError(err)
	s.Empty(other)
}

func (s *DiagnosticsRepositoryTestSuite) TestListRespectsLimit() {
	runID := uuid.New()
	for i := 0; i < 5; i++ {
		d := domain.NewDiagnostic("job", domain.DiagnosticTimeout, "", "deadline exceeded")
		d.RunID = runID
		s.Require().NoError(s.repo.Record(s.ctx, d))
	}

	items, err := s.repo.ListByRun(s.ctx, runID, 2)
	s.Require().NoError(err)
	s.Len(items, 2)
}

func TestDiagnosticsRepositorySuite(t *testing.T) {
	suite.Run(t, new(DiagnosticsRepositoryTestSuite))
}
