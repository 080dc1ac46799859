package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/boundary-pipeline/internal/domain"
	"github.com/boundary-pipeline/internal/pkg/validator"
)

const (
	UnitSourceFile     = "file"
	UnitSourcePostgres = "postgres"
)

// DefaultSourceQualities - порядок поиска базовой коллекции слоя
var DefaultSourceQualities = []string{"q4", "q0"}

// UnitSourceConfig - откуда читается список единиц анализа
type UnitSourceConfig struct {
	Type string `mapstructure:"type" validate:"required,oneof=file postgres"`
	// Path - JSON локалидадес IBGE для type=file
	Path string `mapstructure:"path" validate:"required_if=Type file"`
	// Table и Columns (уровень -> колонка) для type=postgres
	Table   string            `mapstructure:"table" validate:"required_if=Type postgres"`
	Columns map[string]string `mapstructure:"columns"`
	// Level - уровень, к которому относятся ID единиц
	Level string `mapstructure:"level"`
}

// PipelineDefinition - описание слоев, уровней и справочников (pipeline.yaml)
type PipelineDefinition struct {
	UnitSource UnitSourceConfig             `mapstructure:"unit_source"`
	Rules      []domain.DerivationRule      `mapstructure:"rules" validate:"dive"`
	SubUnits   []domain.SubUnitSourceConfig `mapstructure:"sub_units" validate:"dive"`
	Clusters   []domain.ClusterSourceConfig `mapstructure:"clusters" validate:"dive"`
	Levels     []domain.LevelConfig         `mapstructure:"levels" validate:"dive"`
	Layers     []domain.LayerConfig         `mapstructure:"layers" validate:"required,min=1,dive"`
}

// LoadPipeline читает YAML-описание конвейера отдельным экземпляром viper
func LoadPipeline(path string) (*PipelineDefinition, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read pipeline definition %s: %w", path, err)
	}

	var def PipelineDefinition
	if err := v.Unmarshal(&def); err != nil {
		return nil, fmt.Errorf("failed to decode pipeline definition: %w", err)
	}
	def.applyDefaults()

	if err := validator.Validate(&def); err != nil {
		return nil, fmt.Errorf("invalid pipeline definition: %w", err)
	}
	if err := def.checkUnique(); err != nil {
		return nil, err
	}
	return &def, nil
}

func (d *PipelineDefinition) applyDefaults() {
	if d.UnitSource.Level == "" {
		d.UnitSource.Level = domain.LevelMunicipio
	}
	if d.Rules == nil {
		d.Rules = domain.DefaultDerivationRules
	}
	for i := range d.Layers {
		if len(d.Layers[i].SourceQualities) == 0 {
			d.Layers[i].SourceQualities = DefaultSourceQualities
		}
	}
}

// checkUnique - пара (уровень, слой, фильтр) должна давать уникальный путь
func (d *PipelineDefinition) checkUnique() error {
	layers := make(map[string]struct{}, len(d.Layers))
	for _, l := range d.Layers {
		if _, dup := layers[l.Name]; dup {
			return fmt.Errorf("invalid pipeline definition: duplicate layer %q", l.Name)
		}
		layers[l.Name] = struct{}{}

		filters := make(map[string]struct{}, len(l.Filters))
		for _, f := range l.Filters {
			if _, dup := filters[f.Name]; dup {
				return fmt.Errorf("invalid pipeline definition: duplicate filter %q in layer %q", f.Name, l.Name)
			}
			filters[f.Name] = struct{}{}
		}
	}
	return nil
}

// LevelColumn возвращает колонку группировки уровня; по умолчанию имя уровня
func (d *PipelineDefinition) LevelColumn(level string) string {
	for _, l := range d.Levels {
		if l.Name == level {
			return l.Column
		}
	}
	return level
}

// ResolvePaths делает пути справочников относительными к базовому каталогу
func (d *PipelineDefinition) ResolvePaths(p *PipelineConfig) {
	d.UnitSource.Path = p.Resolve(d.UnitSource.Path)
	for i := range d.SubUnits {
		d.SubUnits[i].Path = p.Resolve(d.SubUnits[i].Path)
	}
	for i := range d.Clusters {
		d.Clusters[i].Path = p.Resolve(d.Clusters[i].Path)
	}
	for i := range d.Layers {
		for j := range d.Layers[i].Filters {
			d.Layers[i].Filters[j].Path = p.Resolve(d.Layers[i].Filters[j].Path)
		}
	}
}
