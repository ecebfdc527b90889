package water

import "github.com/paulmach/orb"

// Projection maps stitched-grid pixel coordinates to longitude/latitude.
//
// The stitched grid starts AnchorX tiles east of the antimeridian and AnchorY
// tiles south of the north pole of a world that is GridWidth by GridHeight
// pixels in equirectangular projection.
type Projection struct {
	AnchorX, AnchorY      uint32
	TileWidth, TileHeight uint32
	GridWidth, GridHeight float64
}

// DefaultProjection is the projection of the 1000x1000 heightmap tile set.
func DefaultProjection(tileWidth, tileHeight uint32) Projection {
	return Projection{
		AnchorX:    23,
		AnchorY:    3,
		TileWidth:  tileWidth,
		TileHeight: tileHeight,
		GridWidth:  54000,
		GridHeight: 27000,
	}
}

// ToLatLong returns the position of a grid pixel as an (x=lon, y=lat) point.
func (p Projection) ToLatLong(gx, gy uint32) orb.Point {
	x := float64(uint64(gx) + uint64(p.AnchorX)*uint64(p.TileWidth))
	y := float64(uint64(gy) + uint64(p.AnchorY)*uint64(p.TileHeight))
	return orb.Point{x*360/p.GridWidth - 180, 90 - y/p.GridHeight*180}
}

// TileBound is the lon/lat rectangle spanned by tile (tx, ty), from its
// south-west corner to its north-east corner.
func (p Projection) TileBound(tx, ty uint32) orb.Bound {
	x0, y0 := tx*p.TileWidth, ty*p.TileHeight
	sw := p.ToLatLong(x0, y0+p.TileHeight)
	ne := p.ToLatLong(x0+p.TileWidth, y0)
	return orb.Bound{Min: sw, Max: ne}
}
