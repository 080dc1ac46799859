package utils

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// NormalizeID приводит значение идентификатора к строке для сравнения.
// Числовые коды из JSON (float64) печатаются без экспоненты и дробной части.
func NormalizeID(v interface{}) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(val)
		return s, s != ""
	case json.Number:
		return NormalizeID(string(val))
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return "", false
		}
		if val == math.Trunc(val) {
			return strconv.FormatFloat(val, 'f', 0, 64), true
		}
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case float32:
		return NormalizeID(float64(val))
	case int:
		return strconv.Itoa(val), true
	case int32:
		return strconv.FormatInt(int64(val), 10), true
	case int64:
		return strconv.FormatInt(val, 10), true
	default:
		return "", false
	}
}

// ParseBool разбирает флаг в стиле командной строки: true, 1, t, y, yes.
func ParseBool(s string, def bool) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return def
	}
	switch s {
	case "true", "1", "t", "y", "yes":
		return true
	default:
		return false
	}
}
