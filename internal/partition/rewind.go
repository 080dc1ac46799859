package partition

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// rewindFeatures возвращает копии feature с кольцами по RFC 7946:
// внешние против часовой стрелки, дыры по часовой.
func rewindFeatures(features []*geojson.Feature) []*geojson.Feature {
	out := make([]*geojson.Feature, len(features))
	for i, f := range features {
		cp := *f
		if f.Geometry != nil {
			cp.Geometry = Rewind(orb.Clone(f.Geometry))
		}
		out[i] = &cp
	}
	return out
}

// Rewind меняет ориентацию колец полигонов на месте
func Rewind(g orb.Geometry) orb.Geometry {
	switch g := g.(type) {
	case orb.Polygon:
		rewindPolygon(g)
	case orb.MultiPolygon:
		for _, p := range g {
			rewindPolygon(p)
		}
	case orb.Collection:
		for _, sub := range g {
			Rewind(sub)
		}
	}
	return g
}

func rewindPolygon(p orb.Polygon) {
	for i, r := range p {
		want := orb.CCW
		if i > 0 {
			want = orb.CW
		}
		if o := r.Orientation(); o != 0 && o != want {
			r.Reverse()
		}
	}
}
