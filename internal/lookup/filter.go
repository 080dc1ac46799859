package lookup

import (
	"fmt"

	"github.com/boundary-pipeline/internal/domain"
)

// ApplyFilter оставляет в таблице только единицы, чья колонка cfg.JoinColumn
// встречается в колонке cfg.Column таблицы фильтра. Исходная таблица не меняется.
func ApplyFilter(table *domain.LookupTable, filter *domain.Table, cfg domain.FilterConfig) (*domain.LookupTable, error) {
	col := filter.ColumnIndex(cfg.Column)
	if col < 0 {
		return nil, fmt.Errorf("filter %s: column %q not found", cfg.Name, cfg.Column)
	}

	allowed := make(map[string]struct{}, len(filter.Rows))
	for _, row := range filter.Rows {
		if col < len(row) {
			if v := NormalizeCode(row[col]); v != "" {
				allowed[v] = struct{}{}
			}
		}
	}

	return table.Filter(func(u *domain.AnalysisUnit) bool {
		v, ok := u.Get(cfg.JoinColumn)
		if !ok {
			return false
		}
		_, keep := allowed[v]
		return keep
	}), nil
}
