package lookup

import (
	"regexp"
	"strings"

	"github.com/boundary-pipeline/internal/domain"
)

// ApplyRule применяет позиционное правило "первые K символов" к значению
func ApplyRule(rule domain.DerivationRule, value string) (string, bool) {
	if rule.Length <= 0 || len(value) < rule.Length {
		return "", false
	}
	return value[:rule.Length], true
}

// ApplyRules выводит колонки Target из колонок Source для всех единиц.
// Единица без Source оставляет Target неразрешенным.
func ApplyRules(units []*domain.AnalysisUnit, rules []domain.DerivationRule) {
	for _, u := range units {
		for _, rule := range rules {
			src, ok := u.Get(rule.Source)
			if !ok || src == "" {
				continue
			}
			if v, ok := ApplyRule(rule, src); ok {
				u.Set(rule.Target, v)
			}
		}
	}
}

var floatCode = regexp.MustCompile(`^-?\d+\.0+$`)

// NormalizeCode убирает артефакты табличных форматов ("2927408.0" -> "2927408")
func NormalizeCode(v string) string {
	v = strings.TrimSpace(v)
	if floatCode.MatchString(v) {
		return v[:strings.IndexByte(v, '.')]
	}
	return v
}
