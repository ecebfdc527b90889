// Package water turns vector water polygons into per-tile watermasks.
package water

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Polygon is a water body: Shape[0] is the outer ring, the remaining rings are
// holes. Bound is the outer ring's bounding box, computed once at load time.
type Polygon struct {
	Shape orb.Polygon
	Bound orb.Bound
}

// NewPolygon builds a polygon from an outer ring and its holes. Rings with fewer
// than three points are ignored; a degenerate outer ring yields nil.
func NewPolygon(outer orb.Ring, holes ...orb.Ring) *Polygon {
	if len(outer) < 3 {
		return nil
	}
	shape := orb.Polygon{outer}
	for _, h := range holes {
		if len(h) >= 3 {
			shape = append(shape, h)
		}
	}
	return &Polygon{Shape: shape, Bound: outer.Bound()}
}

// Contains reports whether pt lies inside the outer ring and outside every hole.
func (p *Polygon) Contains(pt orb.Point) bool {
	return p.Bound.Contains(pt) && planar.PolygonContains(p.Shape, pt)
}

// GeometryError reports a polygon record without any ring.
type GeometryError struct {
	Source string
	Record int
	Reason string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("water: %s record %d: %s", e.Source, e.Record, e.Reason)
}

// Load reads polygons from a shapefile (.shp) or a GeoJSON feature collection
// (.geojson, .json).
func Load(path string, workers int) ([]*Polygon, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return LoadShapefile(path, workers)
	case ".geojson", ".json":
		return LoadGeoJSON(path, workers)
	}
	return nil, fmt.Errorf("water: unsupported polygon source %s", path)
}

// LoadShapefile reads every polygon record of a shapefile. Records of other shape
// types are dropped. Following the shapefile convention, the first clockwise
// ring of a record is its outer boundary and all other rings are holes. A record
// without a clockwise ring falls back to its first ring.
func LoadShapefile(path string, workers int) ([]*Polygon, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("water: open %s: %w", path, err)
	}
	defer r.Close()

	var records [][]orb.Ring
	dropped := 0
	for r.Next() {
		_, shape := r.Shape()
		switch p := shape.(type) {
		case *shp.Polygon:
			records = append(records, partRings(p.Parts, p.Points))
		case *shp.PolygonZ:
			records = append(records, partRings(p.Parts, p.Points))
		case *shp.PolygonM:
			records = append(records, partRings(p.Parts, p.Points))
		default:
			dropped++
		}
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("water: read %s: %w", path, err)
	}
	log.Debugf("read %d polygon records from %s, dropped %d other shapes", len(records), path, dropped)

	return convert(path, len(records), workers, func(i int) (*Polygon, error) {
		return fromShapefileRings(records[i])
	})
}

// partRings splits a record's point list at its part offsets. Parts pointing
// outside the point list are skipped.
func partRings(parts []int32, points []shp.Point) []orb.Ring {
	rings := make([]orb.Ring, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start > end || int(end) > len(points) {
			continue
		}
		ring := make(orb.Ring, 0, end-start)
		for _, pt := range points[start:end] {
			ring = append(ring, orb.Point{pt.X, pt.Y})
		}
		rings = append(rings, ring)
	}
	return rings
}

func fromShapefileRings(rings []orb.Ring) (*Polygon, error) {
	if len(rings) == 0 {
		return nil, fmt.Errorf("polygon without rings")
	}
	outer := 0
	for i, r := range rings {
		if len(r) >= 3 && r.Orientation() == orb.CW {
			outer = i
			break
		}
	}
	holes := make([]orb.Ring, 0, len(rings)-1)
	holes = append(holes, rings[:outer]...)
	holes = append(holes, rings[outer+1:]...)
	return NewPolygon(rings[outer], holes...), nil
}

// LoadGeoJSON reads Polygon and MultiPolygon features; other geometries are
// dropped. Ring 0 of each polygon is its outer boundary.
func LoadGeoJSON(path string, workers int) ([]*Polygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("water: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("water: unmarshal %s: %w", path, err)
	}

	var shapes []orb.Polygon
	for _, f := range fc.Features {
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			shapes = append(shapes, g)
		case orb.MultiPolygon:
			shapes = append(shapes, g...)
		}
	}
	log.Debugf("read %d polygons from %d features in %s", len(shapes), len(fc.Features), path)

	return convert(path, len(shapes), workers, func(i int) (*Polygon, error) {
		if len(shapes[i]) == 0 {
			return nil, fmt.Errorf("polygon without rings")
		}
		return NewPolygon(shapes[i][0], shapes[i][1:]...), nil
	})
}

// convert runs build for every record on up to workers goroutines and collects
// the non-nil polygons. The first failing record aborts the load.
func convert(source string, n, workers int, build func(i int) (*Polygon, error)) ([]*Polygon, error) {
	out := make([]*Polygon, n)
	var g errgroup.Group
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i := 0; i < n; i++ {
		g.Go(func() error {
			p, err := build(i)
			if err != nil {
				return &GeometryError{Source: source, Record: i, Reason: err.Error()}
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	polys := out[:0]
	for _, p := range out {
		if p != nil {
			polys = append(polys, p)
		}
	}
	return polys, nil
}
