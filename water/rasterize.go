package water

import (
	"github.com/bits-and-blooms/bitset"
	log "github.com/sirupsen/logrus"

	"Fast-MapStitcher/internal/pool"
	"Fast-MapStitcher/mapdat"
)

// Rasterizer samples water polygons at the projected pixel positions of every tile.
type Rasterizer struct {
	Projection Projection
	// Pool runs one task per tile. A nil Pool uses a temporary GOMAXPROCS pool.
	Pool *pool.WorkerPool
	// Progress, if set, is called once per finished tile from worker goroutines.
	Progress func()
}

// Rasterize builds the watermask of every tile in [0, maxX] x [0, maxY].
func (r *Rasterizer) Rasterize(polys []*Polygon, maxX, maxY uint32) mapdat.WatermaskTable {
	p := r.Pool
	if p == nil {
		p = pool.New(0)
		defer p.Close()
	}

	idx := NewIndex(polys)
	keys := make([]mapdat.TileKey, 0, (int(maxX)+1)*(int(maxY)+1))
	for y := uint32(0); y <= maxY; y++ {
		for x := uint32(0); x <= maxX; x++ {
			keys = append(keys, mapdat.TileKey{X: x, Y: y})
		}
	}
	log.Infof("rasterizing %d polygons into %d tiles", idx.Size(), len(keys))

	masks := make([]*bitset.BitSet, len(keys))
	p.ForEach(len(keys), func(i int) {
		masks[i] = r.RasterizeTile(idx, keys[i].X, keys[i].Y)
		if r.Progress != nil {
			r.Progress()
		}
	})

	table := make(mapdat.WatermaskTable, len(keys))
	for i, k := range keys {
		table[k] = masks[i]
	}
	return table
}

// RasterizeTile returns the watermask of tile (tx, ty): bit lx + ly*TileWidth is
// set when the projected pixel lies in any polygon.
func (r *Rasterizer) RasterizeTile(idx *Index, tx, ty uint32) *bitset.BitSet {
	w, h := r.Projection.TileWidth, r.Projection.TileHeight
	mask := bitset.New(uint(w) * uint(h))
	candidates := idx.Candidates(r.Projection.TileBound(tx, ty))
	log.Debugf("tile %dx%d: %d candidate polygons", tx, ty, len(candidates))
	if len(candidates) == 0 {
		return mask
	}

	x0, y0 := tx*w, ty*h
	for ly := uint32(0); ly < h; ly++ {
		for lx := uint32(0); lx < w; lx++ {
			pt := r.Projection.ToLatLong(x0+lx, y0+ly)
			for _, c := range candidates {
				if c.Contains(pt) {
					mask.Set(uint(lx) + uint(ly)*uint(w))
					break
				}
			}
		}
	}
	return mask
}
