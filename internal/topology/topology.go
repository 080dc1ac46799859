package topology

import (
	"encoding/json"

	"github.com/paulmach/orb"
)

// ObjectName - имя единственного объекта топологии
const ObjectName = "data"

// Object - геометрия TopoJSON. Полигоны и линии ссылаются на дуги индексами,
// отрицательный индекс ~i означает дугу i в обратном направлении.
type Object struct {
	Type        string                 `json:"type"`
	ID          interface{}            `json:"id,omitempty"`
	Properties  map[string]interface{} `json:"properties,omitempty"`
	Arcs        interface{}            `json:"arcs,omitempty"`
	Coordinates interface{}            `json:"coordinates,omitempty"`
	Geometries  []*Object              `json:"geometries,omitempty"`

	// индексы колец/линий до разрезания на дуги
	lines interface{}
}

// Topology - общая топология: дуги хранятся один раз и разделяются соседями
type Topology struct {
	Arcs    []orb.LineString
	Objects []*Object
	BBox    orb.Bound
}

type topologyJSON struct {
	Type    string             `json:"type"`
	BBox    []float64          `json:"bbox,omitempty"`
	Objects map[string]*Object `json:"objects"`
	Arcs    []orb.LineString   `json:"arcs"`
}

// MarshalJSON кодирует топологию в TopoJSON без квантования
func (t *Topology) MarshalJSON() ([]byte, error) {
	arcs := t.Arcs
	if arcs == nil {
		arcs = []orb.LineString{}
	}
	geoms := t.Objects
	if geoms == nil {
		geoms = []*Object{}
	}
	out := topologyJSON{
		Type: "Topology",
		Objects: map[string]*Object{
			ObjectName: {Type: "GeometryCollection", Geometries: geoms},
		},
		Arcs: arcs,
	}
	if len(t.Objects) > 0 && !t.BBox.IsEmpty() {
		out.BBox = []float64{t.BBox.Min[0], t.BBox.Min[1], t.BBox.Max[0], t.BBox.Max[1]}
	}
	return json.Marshal(out)
}

// VertexCount возвращает суммарное число вершин всех дуг
func (t *Topology) VertexCount() int {
	n := 0
	for _, a := range t.Arcs {
		n += len(a)
	}
	return n
}
