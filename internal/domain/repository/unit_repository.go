package repository

import (
	"context"

	"github.com/boundary-pipeline/internal/domain"
)

// UnitSource возвращает базовый список единиц анализа с уже разрешенной
// цепочкой предков (из вложенной записи источника)
type UnitSource interface {
	// LoadUnits загружает единицы анализа самого мелкого уровня
	LoadUnits(ctx context.Context) ([]*domain.AnalysisUnit, error)
}

// TableSource читает табличные справочники (CSV, XLSX)
type TableSource interface {
	// ReadTable читает таблицу целиком; os.ErrNotExist если файла нет
	ReadTable(ctx context.Context, path string) (*domain.Table, error)
}
