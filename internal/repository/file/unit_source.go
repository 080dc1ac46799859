package file

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/boundary-pipeline/internal/domain"
	"github.com/boundary-pipeline/internal/domain/repository"
	"github.com/boundary-pipeline/internal/pkg/utils"
)

// flexID принимает id как число или строку
type flexID string

func (id *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = flexID(s)
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return fmt.Errorf("invalid id %s: %w", string(b), err)
	}
	s, _ := utils.NormalizeID(n)
	*id = flexID(s)
	return nil
}

// localidade - вложенная запись API localidades IBGE
type localidade struct {
	ID           flexID      `json:"id"`
	Nome         string      `json:"nome"`
	Subdistrito  *localidade `json:"subdistrito"`
	Distrito     *localidade `json:"distrito"`
	Municipio    *localidade `json:"municipio"`
	Microrregiao *localidade `json:"microrregiao"`
	Mesorregiao  *localidade `json:"mesorregiao"`
	UF           *localidade `json:"UF"`
	Regiao       *localidade `json:"regiao"`
}

type unitSource struct {
	path      string
	baseLevel string
	logger    *zap.Logger
}

// NewUnitSource читает список единиц анализа из JSON-файла localidades.
// baseLevel - уровень записей верхнего уровня (например subdistrito).
func NewUnitSource(path, baseLevel string, logger *zap.Logger) repository.UnitSource {
	return &unitSource{path: path, baseLevel: baseLevel, logger: logger}
}

func (s *unitSource) LoadUnits(ctx context.Context) ([]*domain.AnalysisUnit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read analysis units %s: %w", s.path, err)
	}

	var records []localidade
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode analysis units %s: %w", s.path, err)
	}

	units := make([]*domain.AnalysisUnit, 0, len(records))
	for i := range records {
		rec := &records[i]
		if rec.ID == "" {
			continue
		}
		u := domain.NewAnalysisUnit(string(rec.ID))
		collectAncestors(u, rec, s.baseLevel)
		units = append(units, u)
	}

	s.logger.Info("Analysis units loaded",
		zap.String("path", s.path),
		zap.String("level", s.baseLevel),
		zap.Int("count", len(units)))
	return units, nil
}

// collectAncestors раскладывает вложенную цепочку предков в колонки
func collectAncestors(u *domain.AnalysisUnit, rec *localidade, level string) {
	if rec == nil || rec.ID == "" {
		return
	}
	if _, exists := u.Get(level); !exists {
		u.Set(level, string(rec.ID))
	}

	next := []struct {
		rec   *localidade
		level string
	}{
		{rec.Subdistrito, domain.LevelSubdistrito},
		{rec.Distrito, domain.LevelDistrito},
		{rec.Municipio, domain.LevelMunicipio},
		{rec.Microrregiao, domain.LevelMicrorregiao},
		{rec.Mesorregiao, domain.LevelMesorregiao},
		{rec.UF, domain.LevelUF},
		{rec.Regiao, domain.LevelMacrorregiao},
	}
	for _, n := range next {
		collectAncestors(u, n.rec, n.level)
	}
}
