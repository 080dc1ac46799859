package topology

import (
	"context"
	"math"
	"sort"

	"github.com/paulmach/orb"
)

type segment struct {
	a, b       orb.Point
	ring       int
	minX, maxX float64
	minY, maxY float64
}

// validate ищет собственные пересечения отрезков колец заметающей прямой
// по X. Касания в вершинах и наложения общих границ не считаются ошибкой.
func (b *builder) validate(ctx context.Context) error {
	var segs []segment
	for ri, l := range b.lines {
		if !l.closed {
			continue
		}
		for i := 0; i+1 < len(l.pts); i++ {
			p, q := l.pts[i], l.pts[i+1]
			segs = append(segs, segment{
				a: p, b: q, ring: ri,
				minX: math.Min(p[0], q[0]), maxX: math.Max(p[0], q[0]),
				minY: math.Min(p[1], q[1]), maxY: math.Max(p[1], q[1]),
			})
		}
	}
	sort.Slice(segs, func(i, j int) bool { return segs[i].minX < segs[j].minX })

	active := make([]segment, 0, 64)
	for n, s := range segs {
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		kept := active[:0]
		for _, o := range active {
			if o.maxX >= s.minX {
				kept = append(kept, o)
			}
		}
		active = kept

		for _, o := range active {
			if o.maxY < s.minY || o.minY > s.maxY {
				continue
			}
			at, ok := properIntersection(o.a, o.b, s.a, s.b)
			if !ok {
				continue
			}
			kind := ErrNonNodedIntersection
			if o.ring == s.ring {
				kind = ErrSelfIntersection
			}
			return &GeometryError{
				Err:      kind,
				File:     b.opts.File,
				Feature:  b.lines[s.ring].feature,
				Segments: [][2]orb.Point{{o.a, o.b}, {s.a, s.b}},
				At:       &at,
			}
		}
		active = append(active, s)
	}
	return nil
}

func orient(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

// properIntersection возвращает точку пересечения внутренних частей отрезков
func properIntersection(a, b, c, d orb.Point) (orb.Point, bool) {
	d1, d2 := orient(a, b, c), orient(a, b, d)
	d3, d4 := orient(c, d, a), orient(c, d, b)
	if !((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) {
		return orb.Point{}, false
	}
	if !((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return orb.Point{}, false
	}
	t := d3 / (d3 - d4)
	return orb.Point{a[0] + t*(b[0]-a[0]), a[1] + t*(b[1]-a[1])}, true
}
