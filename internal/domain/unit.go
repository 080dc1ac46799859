package domain

import "sort"

// Уровни вложенности (containment levels) в порядке от крупного к мелкому
const (
	LevelMacrorregiao    = "macrorregiao"
	LevelUF              = "uf"
	LevelMesorregiao     = "mesorregiao"
	LevelMicrorregiao    = "microrregiao"
	LevelMunicipio       = "municipio"
	LevelDistrito        = "distrito"
	LevelSubdistrito     = "subdistrito"
	LevelSetorCensitario = "setor_censitario"
)

// AdminLevels - административные уровни, упорядоченные по вложенности
var AdminLevels = []string{
	LevelMacrorregiao,
	LevelUF,
	LevelMesorregiao,
	LevelMicrorregiao,
	LevelMunicipio,
	LevelDistrito,
	LevelSubdistrito,
	LevelSetorCensitario,
}

// AnalysisUnit - единица анализа на самом мелком уровне с идентификаторами
// всех предков и кластеров. Отсутствующая колонка означает "не разрешено".
type AnalysisUnit struct {
	ID      string            `json:"id"`
	Columns map[string]string `json:"columns"`
	// Orphan - строка из подтаблицы без родителя во внешнем join
	Orphan bool `json:"orphan,omitempty"`
}

// NewAnalysisUnit создает единицу с пустым набором колонок
func NewAnalysisUnit(id string) *AnalysisUnit {
	return &AnalysisUnit{ID: id, Columns: make(map[string]string)}
}

// Get возвращает значение колонки; false если колонка не разрешена
func (u *AnalysisUnit) Get(column string) (string, bool) {
	v, ok := u.Columns[column]
	return v, ok
}

// Set устанавливает значение колонки
func (u *AnalysisUnit) Set(column, value string) {
	if u.Columns == nil {
		u.Columns = make(map[string]string)
	}
	u.Columns[column] = value
}

// Clone возвращает глубокую копию
func (u *AnalysisUnit) Clone() *AnalysisUnit {
	cp := &AnalysisUnit{ID: u.ID, Orphan: u.Orphan, Columns: make(map[string]string, len(u.Columns))}
	for k, v := range u.Columns {
		cp.Columns[k] = v
	}
	return cp
}

// LookupTable - таблица соответствия единиц анализа. После сборки
// только читается и разделяется между всеми заданиями партиционирования.
type LookupTable struct {
	Units   []*AnalysisUnit
	columns map[string]struct{}
}

// NewLookupTable создает таблицу и индексирует известные колонки
func NewLookupTable(units []*AnalysisUnit) *LookupTable {
	t := &LookupTable{Units: units, columns: make(map[string]struct{})}
	for _, u := range units {
		for c := range u.Columns {
			t.columns[c] = struct{}{}
		}
	}
	return t
}

// HasColumn проверяет, присутствует ли колонка хотя бы в одной строке
func (t *LookupTable) HasColumn(column string) bool {
	_, ok := t.columns[column]
	return ok
}

// Columns возвращает отсортированный список колонок
func (t *LookupTable) Columns() []string {
	out := make([]string, 0, len(t.columns))
	for c := range t.columns {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Len возвращает количество строк
func (t *LookupTable) Len() int {
	return len(t.Units)
}

// GroupBy группирует единицы по значению колонки. Пустые и неразрешенные
// значения не образуют группу.
func (t *LookupTable) GroupBy(column string) map[string][]*AnalysisUnit {
	groups := make(map[string][]*AnalysisUnit)
	for _, u := range t.Units {
		v, ok := u.Get(column)
		if !ok || v == "" {
			continue
		}
		groups[v] = append(groups[v], u)
	}
	return groups
}

// Filter возвращает новую таблицу из строк, удовлетворяющих предикату
func (t *LookupTable) Filter(keep func(*AnalysisUnit) bool) *LookupTable {
	units := make([]*AnalysisUnit, 0, len(t.Units))
	for _, u := range t.Units {
		if keep(u) {
			units = append(units, u)
		}
	}
	return NewLookupTable(units)
}

// DistinctValues возвращает уникальные непустые значения колонки в группе
func DistinctValues(units []*AnalysisUnit, column string) map[string]struct{} {
	set := make(map[string]struct{}, len(units))
	for _, u := range units {
		if v, ok := u.Get(column); ok && v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

// Table - сырая табличная ссылка (CSV/XLSX/SQL) с заголовком
type Table struct {
	Header []string
	Rows   [][]string
}

// ColumnIndex возвращает индекс колонки по имени или -1
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}
