package domain

// LayerConfig описывает тематический слой: какие уровни его разбивают
// и по какой колонке таблицы соответствия сопоставляются идентификаторы.
type LayerConfig struct {
	Name  string `mapstructure:"name" validate:"required,pathsegment"`
	Scope string `mapstructure:"scope" validate:"required,pathsegment"`
	// IdentifierProperty - свойство feature, используемое для join/filter
	IdentifierProperty string `mapstructure:"identifier" validate:"required"`
	// NameProperty - необязательное свойство с человекочитаемым именем
	NameProperty string `mapstructure:"namer"`
	// JoinColumn - колонка таблицы соответствия, значения которой равны идентификатору
	JoinColumn string   `mapstructure:"join_column" validate:"required"`
	Levels     []string `mapstructure:"levels" validate:"required,min=1,dive,pathsegment"`
	// Fallback задается, когда идентификатор слоя мельче, чем есть в таблице
	Fallback *FallbackRule  `mapstructure:"fallback"`
	Filters  []FilterConfig `mapstructure:"filters" validate:"dive"`
	// SourceQualities - порядок поиска исходного файла (<layer>_q4.json, <layer>_q0.json)
	SourceQualities []string `mapstructure:"source_qualities" validate:"dive,required"`
}

// FallbackRule - объявленное правило: идентификатор feature усекается до
// Length символов и сравнивается с колонкой Column.
type FallbackRule struct {
	Column string `mapstructure:"column" validate:"required"`
	Length int    `mapstructure:"length" validate:"required,gt=0"`
}

// Apply усекает идентификатор согласно правилу
func (r *FallbackRule) Apply(id string) (string, bool) {
	if len(id) < r.Length {
		return "", false
	}
	return id[:r.Length], true
}

// FilterConfig - именованный подфильтр: оставляет только единицы, чья
// колонка JoinColumn встречается в колонке Column таблицы Path.
type FilterConfig struct {
	Name       string `mapstructure:"name" validate:"required,pathsegment"`
	Path       string `mapstructure:"path" validate:"required"`
	Column     string `mapstructure:"column" validate:"required"`
	JoinColumn string `mapstructure:"join_column" validate:"required"`
}

// LevelConfig связывает уровень с колонкой группировки. Уровни без
// явной записи группируются по колонке с тем же именем.
type LevelConfig struct {
	Name   string `mapstructure:"name" validate:"required,pathsegment"`
	Column string `mapstructure:"column" validate:"required"`
}

// DerivationRule - позиционное правило: Target = первые Length символов Source
type DerivationRule struct {
	Target string `mapstructure:"target" validate:"required"`
	Source string `mapstructure:"source" validate:"required"`
	Length int    `mapstructure:"length" validate:"required,gt=0"`
}

// DefaultDerivationRules - коды УФ и макрорегиона закодированы в коде муниципалитета
var DefaultDerivationRules = []DerivationRule{
	{Target: LevelUF, Source: LevelMunicipio, Length: 2},
	{Target: LevelMacrorregiao, Source: LevelMunicipio, Length: 1},
}

// ClusterSourceConfig - внешняя таблица принадлежности к кластерам
type ClusterSourceConfig struct {
	Name     string `mapstructure:"name" validate:"required"`
	Path     string `mapstructure:"path" validate:"required"`
	Optional bool   `mapstructure:"optional"`
	// KeyColumn - колонка таблицы с кодом единицы; UnitColumn - колонка lookup-таблицы
	KeyColumn  string `mapstructure:"key_column" validate:"required"`
	UnitColumn string `mapstructure:"unit_column" validate:"required"`
	// Columns переименовывает колонки источника в колонки таблицы соответствия
	Columns map[string]string `mapstructure:"columns"`
	// Header заменяет заголовок источника (позиционно), как переименование колонок REGIC
	Header []string     `mapstructure:"header"`
	Pivot  *PivotConfig `mapstructure:"pivot"`
}

// PivotConfig разворачивает длинную таблицу (ключ, тип, значение) в широкую
type PivotConfig struct {
	Columns string `mapstructure:"columns" validate:"required"`
	Values  string `mapstructure:"values" validate:"required"`
}

// SubUnitSourceConfig - подтаблица для внешнего join (district, sub-partition)
type SubUnitSourceConfig struct {
	Name string `mapstructure:"name" validate:"required"`
	Path string `mapstructure:"path" validate:"required"`
	// KeyColumn в подтаблице ссылается на ParentColumn в lookup-таблице
	KeyColumn    string `mapstructure:"key_column" validate:"required"`
	ParentColumn string `mapstructure:"parent_column" validate:"required"`
	// IDColumn - собственный код подъединицы, становится колонкой Level
	IDColumn string `mapstructure:"id_column" validate:"required"`
	Level    string `mapstructure:"level" validate:"required"`
	Optional bool   `mapstructure:"optional"`
}
