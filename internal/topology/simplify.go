package topology

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"
)

// Simplify возвращает вариант топологии с упрощенными дугами. Объекты и
// индексы дуг общие с исходной топологией, поэтому соседние полигоны
// упрощаются одинаково. Концы дуг (узлы) не сдвигаются.
func (t *Topology) Simplify(epsilon float64) *Topology {
	dp := simplify.DouglasPeucker(epsilon)
	arcs := make([]orb.LineString, len(t.Arcs))
	for i, a := range t.Arcs {
		if isClosed(a) {
			arcs[i] = simplifyRing(dp, a)
			continue
		}
		arcs[i] = dp.LineString(clone(a))
	}
	return &Topology{Arcs: arcs, Objects: t.Objects, BBox: t.BBox}
}

func isClosed(a orb.LineString) bool {
	return len(a) > 3 && a[0] == a[len(a)-1]
}

// simplifyRing режет замкнутую дугу в опорных вершинах, не зависящих от
// epsilon: самой дальней от начала и самой дальней от хорды между ними.
// Кольцо сохраняет не меньше четырех точек.
func simplifyRing(dp *simplify.DouglasPeuckerSimplifier, a orb.LineString) orb.LineString {
	last := len(a) - 1
	far := 0
	var best float64
	for i := 1; i < last; i++ {
		if d := planar.DistanceSquared(a[0], a[i]); d > best {
			best, far = d, i
		}
	}
	side := 0
	best = 0
	for i := 1; i < last; i++ {
		if i == far {
			continue
		}
		if d := planar.DistanceFromSegmentSquared(a[0], a[far], a[i]); d > best {
			best, side = d, i
		}
	}

	anchors := []int{0, last}
	for _, i := range []int{far, side} {
		if i > 0 {
			anchors = append(anchors, i)
		}
	}
	sort.Ints(anchors)

	out := orb.LineString{a[0]}
	for i := 1; i < len(anchors); i++ {
		from, to := anchors[i-1], anchors[i]
		if from == to {
			continue
		}
		piece := dp.LineString(clone(a[from : to+1]))
		out = append(out, piece[1:]...)
	}
	return out
}
