package topology

import (
	"context"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Options управляет построением топологии
type Options struct {
	// File попадает в сообщения об ошибках
	File string
	// Validate включает поиск самопересечений и неузловых пересечений
	Validate bool
}

// line - кольцо или линия исходной геометрии до разрезания на дуги
type line struct {
	pts     orb.LineString
	closed  bool
	feature int
}

type builder struct {
	opts  Options
	lines []*line
	arcs  []orb.LineString
	index map[string]int
	bound orb.Bound
	empty bool
}

// Build строит общую топологию: кольца соседних полигонов разрезаются в
// узлах, совпадающие участки хранятся одной дугой.
func Build(ctx context.Context, fc *geojson.FeatureCollection, opts Options) (*Topology, error) {
	b := &builder{
		opts:  opts,
		index: make(map[string]int),
		empty: true,
	}

	objects := make([]*Object, 0, len(fc.Features))
	for i, f := range fc.Features {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		obj, err := b.object(f.Geometry, i)
		if err != nil {
			return nil, err
		}
		obj.ID = f.ID
		if len(f.Properties) > 0 {
			obj.Properties = map[string]interface{}(f.Properties)
		}
		objects = append(objects, obj)
	}

	if opts.Validate {
		if err := b.validate(ctx); err != nil {
			return nil, err
		}
	}

	junctions := b.junctions()
	lineArcs := make([][]int, len(b.lines))
	for i, l := range b.lines {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		lineArcs[i] = b.cut(l, junctions)
	}

	for _, obj := range objects {
		resolve(obj, lineArcs)
	}

	topo := &Topology{Arcs: b.arcs, Objects: objects}
	if !b.empty {
		topo.BBox = b.bound
	}
	return topo, nil
}

func (b *builder) extend(p orb.Point) {
	if b.empty {
		b.bound = orb.Bound{Min: p, Max: p}
		b.empty = false
		return
	}
	b.bound = b.bound.Extend(p)
}

func (b *builder) object(g orb.Geometry, feature int) (*Object, error) {
	switch g := g.(type) {
	case nil:
		return &Object{Type: "GeometryCollection"}, nil
	case orb.Point:
		b.extend(g)
		return &Object{Type: "Point", Coordinates: g}, nil
	case orb.MultiPoint:
		for _, p := range g {
			b.extend(p)
		}
		return &Object{Type: "MultiPoint", Coordinates: g}, nil
	case orb.LineString:
		idx, err := b.addLine(g, feature)
		if err != nil {
			return nil, err
		}
		return &Object{Type: "LineString", lines: idx}, nil
	case orb.MultiLineString:
		idx := make([]int, 0, len(g))
		for _, ls := range g {
			i, err := b.addLine(ls, feature)
			if err != nil {
				return nil, err
			}
			idx = append(idx, i)
		}
		return &Object{Type: "MultiLineString", lines: idx}, nil
	case orb.Polygon:
		idx, err := b.addPolygon(g, feature)
		if err != nil {
			return nil, err
		}
		return &Object{Type: "Polygon", lines: idx}, nil
	case orb.MultiPolygon:
		idx := make([][]int, 0, len(g))
		for _, p := range g {
			rings, err := b.addPolygon(p, feature)
			if err != nil {
				return nil, err
			}
			idx = append(idx, rings)
		}
		return &Object{Type: "MultiPolygon", lines: idx}, nil
	case orb.Collection:
		obj := &Object{Type: "GeometryCollection"}
		for _, sub := range g {
			child, err := b.object(sub, feature)
			if err != nil {
				return nil, err
			}
			obj.Geometries = append(obj.Geometries, child)
		}
		return obj, nil
	default:
		return nil, &GeometryError{
			Err:     ErrUnsupportedGeometry,
			File:    b.opts.File,
			Feature: feature,
			Detail:  g.GeoJSONType(),
		}
	}
}

func (b *builder) addLine(ls orb.LineString, feature int) (int, error) {
	pts := dedupe(ls)
	if len(pts) < 2 {
		return 0, &GeometryError{
			Err:     ErrUnsupportedGeometry,
			File:    b.opts.File,
			Feature: feature,
			Detail:  fmt.Sprintf("linestring with %d distinct points", len(pts)),
		}
	}
	for _, p := range pts {
		b.extend(p)
	}
	b.lines = append(b.lines, &line{pts: pts, feature: feature})
	return len(b.lines) - 1, nil
}

func (b *builder) addPolygon(p orb.Polygon, feature int) ([]int, error) {
	idx := make([]int, 0, len(p))
	for _, r := range p {
		pts := dedupe(orb.LineString(r))
		if len(pts) < 4 || pts[0] != pts[len(pts)-1] {
			gerr := &GeometryError{
				Err:     ErrInvalidRing,
				File:    b.opts.File,
				Feature: feature,
				Detail:  fmt.Sprintf("ring with %d points", len(pts)),
			}
			if len(pts) > 0 {
				first := pts[0]
				gerr.At = &first
			}
			return nil, gerr
		}
		for _, pt := range pts {
			b.extend(pt)
		}
		b.lines = append(b.lines, &line{pts: pts, closed: true, feature: feature})
		idx = append(idx, len(b.lines)-1)
	}
	return idx, nil
}

// dedupe копирует линию без повторяющихся подряд точек
func dedupe(ls orb.LineString) orb.LineString {
	out := make(orb.LineString, 0, len(ls))
	for i, p := range ls {
		if i > 0 && p == out[len(out)-1] {
			continue
		}
		out = append(out, p)
	}
	return out
}

type neighbours struct {
	prev, next orb.Point
}

// junctions находит узлы: точки, в которых соседние вершины расходятся,
// и концы незамкнутых линий.
func (b *builder) junctions() map[orb.Point]struct{} {
	junctions := make(map[orb.Point]struct{})
	seen := make(map[orb.Point]neighbours)

	visit := func(p, prev, next orb.Point) {
		if _, ok := junctions[p]; ok {
			return
		}
		n, ok := seen[p]
		if !ok {
			seen[p] = neighbours{prev: prev, next: next}
			return
		}
		if (n.prev == prev && n.next == next) || (n.prev == next && n.next == prev) {
			return
		}
		junctions[p] = struct{}{}
	}

	for _, l := range b.lines {
		pts := l.pts
		if l.closed {
			m := len(pts) - 1
			for i := 0; i < m; i++ {
				visit(pts[i], pts[(i+m-1)%m], pts[(i+1)%m])
			}
			continue
		}
		junctions[pts[0]] = struct{}{}
		junctions[pts[len(pts)-1]] = struct{}{}
		for i := 1; i < len(pts)-1; i++ {
			visit(pts[i], pts[i-1], pts[i+1])
		}
	}
	return junctions
}

// cut разрезает линию в узлах и возвращает ссылки на дуги
func (b *builder) cut(l *line, junctions map[orb.Point]struct{}) []int {
	pts := l.pts
	if l.closed {
		m := len(pts) - 1
		start := -1
		for i := 0; i < m; i++ {
			if _, ok := junctions[pts[i]]; ok {
				start = i
				break
			}
		}
		if start < 0 {
			return []int{b.arc(canonicalRing(pts))}
		}
		rotated := make(orb.LineString, 0, len(pts))
		for k := 0; k < m; k++ {
			rotated = append(rotated, pts[(start+k)%m])
		}
		pts = append(rotated, rotated[0])
	}

	var refs []int
	from := 0
	for i := 1; i < len(pts)-1; i++ {
		if _, ok := junctions[pts[i]]; ok {
			refs = append(refs, b.arc(clone(pts[from:i+1])))
			from = i
		}
	}
	return append(refs, b.arc(clone(pts[from:])))
}

// arc возвращает индекс существующей дуги (в прямом или обратном
// направлении) либо регистрирует новую.
func (b *builder) arc(pts orb.LineString) int {
	k := key(pts, false)
	if i, ok := b.index[k]; ok {
		return i
	}
	if i, ok := b.index[key(pts, true)]; ok {
		return ^i
	}
	b.index[k] = len(b.arcs)
	b.arcs = append(b.arcs, pts)
	return len(b.arcs) - 1
}

// canonicalRing поворачивает замкнутое кольцо без узлов так, чтобы оно
// начиналось с минимальной точки. Обращенное каноническое кольцо начинается
// с той же точки.
func canonicalRing(pts orb.LineString) orb.LineString {
	m := len(pts) - 1
	lo := 0
	for i := 1; i < m; i++ {
		if less(pts[i], pts[lo]) {
			lo = i
		}
	}
	out := make(orb.LineString, 0, len(pts))
	for k := 0; k < m; k++ {
		out = append(out, pts[(lo+k)%m])
	}
	return append(out, out[0])
}

func less(a, b orb.Point) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	return a[1] < b[1]
}

func clone(pts orb.LineString) orb.LineString {
	return append(orb.LineString(nil), pts...)
}

func key(pts orb.LineString, reverse bool) string {
	buf := make([]byte, 0, len(pts)*16)
	put := func(f float64) {
		u := math.Float64bits(f)
		for s := 0; s < 64; s += 8 {
			buf = append(buf, byte(u>>s))
		}
	}
	for i := range pts {
		p := pts[i]
		if reverse {
			p = pts[len(pts)-1-i]
		}
		put(p[0])
		put(p[1])
	}
	return string(buf)
}

// resolve заменяет индексы колец и линий на ссылки на дуги
func resolve(obj *Object, lineArcs [][]int) {
	switch idx := obj.lines.(type) {
	case int:
		obj.Arcs = lineArcs[idx]
	case []int:
		arcs := make([][]int, len(idx))
		for i, l := range idx {
			arcs[i] = lineArcs[l]
		}
		obj.Arcs = arcs
	case [][]int:
		arcs := make([][][]int, len(idx))
		for i, poly := range idx {
			arcs[i] = make([][]int, len(poly))
			for j, l := range poly {
				arcs[i][j] = lineArcs[l]
			}
		}
		obj.Arcs = arcs
	}
	obj.lines = nil
	for _, child := range obj.Geometries {
		resolve(child, lineArcs)
	}
}
