package domain

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
)

const (
	GeoJSONDir  = "geojson"
	TopoJSONDir = "topojson"
)

// PartitionKey однозначно определяет путь выходного файла
type PartitionKey struct {
	Layer   string
	Level   string
	GroupID string
	Filter  string
}

// Path - чистая функция ключа: <base>/geojson/<level>/<layer>[/<filter>]/<group>_q0.json
func (k PartitionKey) Path(base string) string {
	parts := []string{base, GeoJSONDir, k.Level, k.Layer}
	if k.Filter != "" {
		parts = append(parts, k.Filter)
	}
	parts = append(parts, k.GroupID+"_q0.json")
	return filepath.Join(parts...)
}

func (k PartitionKey) String() string {
	if k.Filter != "" {
		return fmt.Sprintf("%s/%s/%s/%s", k.Level, k.Layer, k.Filter, k.GroupID)
	}
	return fmt.Sprintf("%s/%s/%s", k.Level, k.Layer, k.GroupID)
}

// SourcePath - путь базовой коллекции слоя: <base>/geojson/<scope>/<layer>_<quality>.json
func SourcePath(base, scope, layer, quality string) string {
	return filepath.Join(base, GeoJSONDir, scope, fmt.Sprintf("%s_%s.json", layer, quality))
}

// QualityLevel - индекс качества и epsilon упрощения. q0 - исходник без упрощения.
type QualityLevel struct {
	Index   int     `json:"index"`
	Epsilon float64 `json:"epsilon"`
}

func (q QualityLevel) Name() string {
	return "q" + strconv.Itoa(q.Index)
}

// QualityLadder строит linspace(0, maxEpsilon, levels) в обратном порядке:
// q1 - самый грубый, qN - epsilon 0.
func QualityLadder(levels int, maxEpsilon float64) []QualityLevel {
	if levels <= 0 {
		return nil
	}
	ladder := make([]QualityLevel, levels)
	for i := 0; i < levels; i++ {
		var eps float64
		if levels > 1 {
			eps = maxEpsilon * float64(levels-1-i) / float64(levels-1)
		}
		ladder[i] = QualityLevel{Index: i + 1, Epsilon: eps}
	}
	return ladder
}

// ValidLadder проверяет, что epsilon не возрастает с ростом индекса
func ValidLadder(ladder []QualityLevel) bool {
	for i := 1; i < len(ladder); i++ {
		if ladder[i].Epsilon > ladder[i-1].Epsilon || ladder[i].Index <= ladder[i-1].Index {
			return false
		}
	}
	return true
}

var qualitySuffix = regexp.MustCompile(`_q0(\.[A-Za-z0-9]+)?$`)

// HasBaseQuality сообщает, закодировано ли в имени файла немодифицированное качество q0
func HasBaseQuality(path string) bool {
	return qualitySuffix.MatchString(filepath.Base(path))
}

// QualityPath заменяет суффикс _q0 на _q{index}. Для путей без _q0 возвращает path.
func QualityPath(path string, index int) string {
	dir, name := filepath.Split(path)
	if !qualitySuffix.MatchString(name) {
		return path
	}
	loc := qualitySuffix.FindStringSubmatchIndex(name)
	ext := ""
	if loc[2] >= 0 {
		ext = name[loc[2]:loc[3]]
	}
	return dir + name[:loc[0]] + "_q" + strconv.Itoa(index) + ext
}
