package diagnostics

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/boundary-pipeline/internal/domain"
)

// Intersection - пересечение отрезков для ручной правки исходного шейпфайла
type Intersection struct {
	File  string
	LineA [2]orb.Point
	LineB [2]orb.Point
	At    orb.Point
}

const num = `(-?\d+(?:\.\d+)?(?:[eE][-+]?\d+)?)`

var intersectionRe = regexp.MustCompile(
	`LINESTRING \(` + num + ` ` + num + `, ` + num + ` ` + num + `\) and ` +
		`LINESTRING \(` + num + ` ` + num + `, ` + num + ` ` + num + `\) at ` + num + ` ` + num)

// ParseIntersections читает журнал диагностики JSONL и извлекает пересечения.
// Координаты берутся из поля coordinates, иначе из текста сообщения.
func ParseIntersections(r io.Reader) ([]Intersection, error) {
	var out []Intersection
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var d domain.Diagnostic
		if err := json.Unmarshal([]byte(line), &d); err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		if d.Kind != domain.DiagnosticGeometry || !strings.Contains(d.Message, "intersection between") {
			continue
		}
		if len(d.Coordinates) == 5 {
			c := d.Coordinates
			out = append(out, Intersection{
				File:  d.File,
				LineA: [2]orb.Point{c[0], c[1]},
				LineB: [2]orb.Point{c[2], c[3]},
				At:    c[4],
			})
			continue
		}
		if it, ok := parseMessage(d.Message); ok {
			it.File = d.File
			out = append(out, it)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseMessage(msg string) (Intersection, bool) {
	m := intersectionRe.FindStringSubmatch(msg)
	if m == nil {
		return Intersection{}, false
	}
	v := make([]float64, 10)
	for i := range v {
		f, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return Intersection{}, false
		}
		v[i] = f
	}
	return Intersection{
		LineA: [2]orb.Point{{v[0], v[1]}, {v[2], v[3]}},
		LineB: [2]orb.Point{{v[4], v[5]}, {v[6], v[7]}},
		At:    orb.Point{v[8], v[9]},
	}, true
}

var intersectionHeader = []string{
	"affected_file",
	"line_a_point_a_long", "line_a_point_a_lat",
	"line_a_point_b_long", "line_a_point_b_lat",
	"line_b_point_a_long", "line_b_point_a_lat",
	"line_b_point_b_long", "line_b_point_b_lat",
	"intersect_long", "intersect_lat",
}

// WriteIntersectionsCSV печатает пересечения таблицей
func WriteIntersectionsCSV(w io.Writer, rows []Intersection) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(intersectionHeader); err != nil {
		return err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for _, r := range rows {
		rec := []string{
			r.File,
			f(r.LineA[0][0]), f(r.LineA[0][1]),
			f(r.LineA[1][0]), f(r.LineA[1][1]),
			f(r.LineB[0][0]), f(r.LineB[0][1]),
			f(r.LineB[1][0]), f(r.LineB[1][1]),
			f(r.At[0]), f(r.At[1]),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
