package lookup

import (
	"fmt"

	"github.com/boundary-pipeline/internal/domain"
)

// JoinStats - счетчики внешнего join
type JoinStats struct {
	Matched   int
	Survivors int
	Orphans   int
}

// OuterJoin присоединяет подтаблицу к единицам по cfg.ParentColumn = cfg.KeyColumn.
// Единица без подъединиц сохраняется с неразрешенной колонкой cfg.Level;
// подъединица без родителя сохраняется и помечается Orphan.
func OuterJoin(units []*domain.AnalysisUnit, sub *domain.Table, cfg domain.SubUnitSourceConfig) ([]*domain.AnalysisUnit, JoinStats, error) {
	var stats JoinStats

	keyIdx := sub.ColumnIndex(cfg.KeyColumn)
	if keyIdx < 0 {
		return nil, stats, fmt.Errorf("sub-unit source %s: key column %q not found", cfg.Name, cfg.KeyColumn)
	}
	idIdx := sub.ColumnIndex(cfg.IDColumn)
	if idIdx < 0 {
		return nil, stats, fmt.Errorf("sub-unit source %s: id column %q not found", cfg.Name, cfg.IDColumn)
	}

	children := make(map[string][]string)
	order := make([]string, 0)
	for _, row := range sub.Rows {
		if keyIdx >= len(row) || idIdx >= len(row) {
			continue
		}
		key := NormalizeCode(row[keyIdx])
		id := NormalizeCode(row[idIdx])
		if key == "" || id == "" {
			continue
		}
		if _, seen := children[key]; !seen {
			order = append(order, key)
		}
		children[key] = append(children[key], id)
	}

	parents := make(map[string]struct{}, len(units))
	out := make([]*domain.AnalysisUnit, 0, len(units)+len(sub.Rows))
	for _, u := range units {
		key, _ := u.Get(cfg.ParentColumn)
		parents[key] = struct{}{}

		ids, ok := children[key]
		if !ok || key == "" {
			out = append(out, u)
			stats.Survivors++
			continue
		}
		for _, id := range ids {
			child := u.Clone()
			child.ID = id
			child.Set(cfg.Level, id)
			out = append(out, child)
			stats.Matched++
		}
	}

	for _, key := range order {
		if _, ok := parents[key]; ok {
			continue
		}
		for _, id := range children[key] {
			orphan := domain.NewAnalysisUnit(id)
			orphan.Set(cfg.Level, id)
			orphan.Set(cfg.ParentColumn, key)
			orphan.Orphan = true
			out = append(out, orphan)
			stats.Orphans++
		}
	}

	return out, stats, nil
}
