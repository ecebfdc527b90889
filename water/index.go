package water

import (
	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

// rtreego rejects rectangles with a zero side.
const minExtent = 1e-9

// Index is an R-tree over polygon bounding boxes.
type Index struct {
	rtree *rtreego.Rtree
	size  int
}

type indexedPolygon struct {
	polygon *Polygon
}

func (p *indexedPolygon) Bounds() rtreego.Rect {
	return rect(p.polygon.Bound, 0)
}

func rect(b orb.Bound, pad float64) rtreego.Rect {
	point := rtreego.Point{b.Min[0] - pad, b.Min[1] - pad}
	lengths := []float64{
		max(b.Max[0]-b.Min[0]+2*pad, minExtent),
		max(b.Max[1]-b.Min[1]+2*pad, minExtent),
	}
	r, _ := rtreego.NewRect(point, lengths)
	return r
}

func NewIndex(polys []*Polygon) *Index {
	idx := &Index{rtree: rtreego.NewTree(2, 25, 50)}
	for _, p := range polys {
		if p == nil {
			continue
		}
		idx.rtree.Insert(&indexedPolygon{polygon: p})
		idx.size++
	}
	return idx
}

func (idx *Index) Size() int {
	return idx.size
}

// Candidates returns every polygon whose bounding box intersects, contains or
// lies within b, edges included. The result may hold a few extra polygons
// that merely come within minExtent of b.
func (idx *Index) Candidates(b orb.Bound) []*Polygon {
	spatials := idx.rtree.SearchIntersect(rect(b, minExtent))
	out := make([]*Polygon, 0, len(spatials))
	for _, s := range spatials {
		out = append(out, s.(*indexedPolygon).polygon)
	}
	return out
}
