package world

import (
	"sort"

	"github.com/dhconnelly/rtreego"

	"github.com/talgya/crowdsense/internal/geom"
)

// ObjectIndex is a read-only 3D R-tree over the environment objects.
type ObjectIndex struct {
	tree    *rtreego.Rtree
	objects []ObjectState
}

type indexedObject struct {
	pos  int
	rect rtreego.Rect
}

func (o indexedObject) Bounds() rtreego.Rect {
	return o.rect
}

// NewObjectIndex bulk-loads objs into a new index.
func NewObjectIndex(objs []ObjectState) *ObjectIndex {
	x := &ObjectIndex{objects: append([]ObjectState(nil), objs...)}
	spatials := make([]rtreego.Spatial, 0, len(objs))
	for i, o := range x.objects {
		rect, err := boxRect(o.Box)
		if err != nil {
			continue
		}
		spatials = append(spatials, indexedObject{pos: i, rect: rect})
	}
	x.tree = rtreego.NewTree(3, 4, 16, spatials...)
	return x
}

// Within returns every object whose box intersects the cube of half-size
// reach around p, ordered by ID.
func (x *ObjectIndex) Within(p geom.Vec3, reach float64) []ObjectState {
	if x == nil || len(x.objects) == 0 {
		return nil
	}
	query, err := boxRect(geom.BoxAround(p, geom.V(reach, reach, reach)))
	if err != nil {
		return nil
	}
	hits := x.tree.SearchIntersect(query)
	out := make([]ObjectState, 0, len(hits))
	for _, h := range hits {
		out = append(out, x.objects[h.(indexedObject).pos])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// All returns every indexed object.
func (x *ObjectIndex) All() []ObjectState {
	if x == nil {
		return nil
	}
	return x.objects
}

// Len returns the number of indexed objects.
func (x *ObjectIndex) Len() int {
	if x == nil {
		return 0
	}
	return len(x.objects)
}

func boxRect(b geom.AABB) (rtreego.Rect, error) {
	b = b.Normalized()
	return rtreego.NewRectFromPoints(
		rtreego.Point{b.Min.X, b.Min.Y, b.Min.Z},
		rtreego.Point{b.Max.X, b.Max.Y, b.Max.Z},
	)
}
