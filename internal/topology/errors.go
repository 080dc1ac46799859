package topology

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

var (
	ErrInvalidRing          = errors.New("invalid ring")
	ErrSelfIntersection     = errors.New("self-intersection")
	ErrNonNodedIntersection = errors.New("non-noded intersection")
	ErrUnsupportedGeometry  = errors.New("unsupported geometry")
)

// GeometryError - ошибка построения топологии с координатами для ручного исправления
type GeometryError struct {
	Err     error
	File    string
	Feature int
	// Segments - пересекающиеся отрезки, At - точка пересечения
	Segments [][2]orb.Point
	At       *orb.Point
	Detail   string
}

func (e *GeometryError) Error() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		b.WriteString(": ")
	}
	switch {
	case len(e.Segments) == 2 && e.At != nil:
		fmt.Fprintf(&b, "found %s between %s and %s at %s",
			e.Err, wktSegment(e.Segments[0]), wktSegment(e.Segments[1]), wktCoord(*e.At))
	default:
		b.WriteString(e.Err.Error())
		if e.Detail != "" {
			b.WriteString(": ")
			b.WriteString(e.Detail)
		}
	}
	if e.Feature >= 0 {
		fmt.Fprintf(&b, " (feature %d)", e.Feature)
	}
	return b.String()
}

func (e *GeometryError) Unwrap() error {
	return e.Err
}

// Coordinates возвращает все координаты, относящиеся к ошибке
func (e *GeometryError) Coordinates() []orb.Point {
	var pts []orb.Point
	for _, s := range e.Segments {
		pts = append(pts, s[0], s[1])
	}
	if e.At != nil {
		pts = append(pts, *e.At)
	}
	return pts
}

func wktCoord(p orb.Point) string {
	return strconv.FormatFloat(p[0], 'f', -1, 64) + " " + strconv.FormatFloat(p[1], 'f', -1, 64)
}

func wktSegment(s [2]orb.Point) string {
	return "LINESTRING (" + wktCoord(s[0]) + ", " + wktCoord(s[1]) + ")"
}
