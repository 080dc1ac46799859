package lookup

import (
	"fmt"

	"github.com/boundary-pipeline/internal/domain"
)

// ClusterStats - счетчики присоединения кластерной таблицы
type ClusterStats struct {
	Columns   []string
	Matched   int
	Unmatched int
}

// clusterIndex - таблица кластеров, приведенная к виду ключ -> колонка -> значение
type clusterIndex struct {
	columns []string
	rows    map[string]map[string]string
}

// JoinClusters присоединяет колонки кластеров по cfg.UnitColumn = cfg.KeyColumn.
// Несовпавшие единицы получают пустую строку, чтобы сравнение строк было тотальным.
func JoinClusters(units []*domain.AnalysisUnit, table *domain.Table, cfg domain.ClusterSourceConfig) (ClusterStats, error) {
	idx, err := buildClusterIndex(table, cfg)
	if err != nil {
		return ClusterStats{}, err
	}

	stats := ClusterStats{Columns: idx.columns}
	for _, u := range units {
		key, _ := u.Get(cfg.UnitColumn)
		row, ok := idx.rows[key]
		if ok && key != "" {
			stats.Matched++
		} else {
			stats.Unmatched++
		}
		for _, col := range idx.columns {
			v := ""
			if ok {
				v = row[col]
			}
			u.Set(col, v)
		}
	}
	return stats, nil
}

func buildClusterIndex(table *domain.Table, cfg domain.ClusterSourceConfig) (*clusterIndex, error) {
	header := table.Header
	if len(cfg.Header) > 0 {
		header = cfg.Header
	}
	t := &domain.Table{Header: header, Rows: table.Rows}

	keyIdx := t.ColumnIndex(cfg.KeyColumn)
	if keyIdx < 0 {
		return nil, fmt.Errorf("cluster source %s: key column %q not found", cfg.Name, cfg.KeyColumn)
	}

	if cfg.Pivot != nil {
		return pivotIndex(t, keyIdx, cfg)
	}

	idx := &clusterIndex{rows: make(map[string]map[string]string)}
	type colRef struct {
		pos    int
		target string
	}
	var refs []colRef
	for i, h := range t.Header {
		if i == keyIdx {
			continue
		}
		target := h
		if len(cfg.Columns) > 0 {
			var ok bool
			if target, ok = cfg.Columns[h]; !ok {
				continue
			}
		}
		refs = append(refs, colRef{pos: i, target: target})
		idx.columns = append(idx.columns, target)
	}

	for _, row := range t.Rows {
		if keyIdx >= len(row) {
			continue
		}
		key := NormalizeCode(row[keyIdx])
		if key == "" {
			continue
		}
		if _, dup := idx.rows[key]; dup {
			continue
		}
		values := make(map[string]string, len(refs))
		for _, ref := range refs {
			if ref.pos < len(row) {
				values[ref.target] = NormalizeCode(row[ref.pos])
			}
		}
		idx.rows[key] = values
	}
	return idx, nil
}

// pivotIndex разворачивает (ключ, тип связи, значение) в колонку на тип связи
func pivotIndex(t *domain.Table, keyIdx int, cfg domain.ClusterSourceConfig) (*clusterIndex, error) {
	colIdx := t.ColumnIndex(cfg.Pivot.Columns)
	valIdx := t.ColumnIndex(cfg.Pivot.Values)
	if colIdx < 0 || valIdx < 0 {
		return nil, fmt.Errorf("cluster source %s: pivot columns %q/%q not found",
			cfg.Name, cfg.Pivot.Columns, cfg.Pivot.Values)
	}

	idx := &clusterIndex{rows: make(map[string]map[string]string)}
	seenCol := make(map[string]struct{})
	for _, row := range t.Rows {
		if keyIdx >= len(row) || colIdx >= len(row) || valIdx >= len(row) {
			continue
		}
		key := NormalizeCode(row[keyIdx])
		rel := row[colIdx]
		if key == "" || rel == "" {
			continue
		}
		target := rel
		if len(cfg.Columns) > 0 {
			var ok bool
			if target, ok = cfg.Columns[rel]; !ok {
				continue
			}
		}
		if _, ok := seenCol[target]; !ok {
			seenCol[target] = struct{}{}
			idx.columns = append(idx.columns, target)
		}
		values, ok := idx.rows[key]
		if !ok {
			values = make(map[string]string)
			idx.rows[key] = values
		}
		if _, dup := values[target]; !dup {
			values[target] = NormalizeCode(row[valIdx])
		}
	}
	return idx, nil
}
