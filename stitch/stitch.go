// Package stitch composites same-sized elevation tiles and their watermasks
// into one world map.
package stitch

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
	log "github.com/sirupsen/logrus"

	"Fast-MapStitcher/internal/pool"
	"Fast-MapStitcher/mapdat"
	"Fast-MapStitcher/terrarium"
)

// Tile is one decoded elevation tile at grid position (X, Y).
type Tile struct {
	X, Y   uint32
	Raster *terrarium.Raster
}

func (t Tile) Key() mapdat.TileKey {
	return mapdat.TileKey{X: t.X, Y: t.Y}
}

// GridInfo describes the tile grid spanned by a tile set.
type GridInfo struct {
	MaxX, MaxY            uint32
	TileWidth, TileHeight uint32
}

func (g GridInfo) Width() int {
	return (int(g.MaxX) + 1) * int(g.TileWidth)
}

func (g GridInfo) Height() int {
	return (int(g.MaxY) + 1) * int(g.TileHeight)
}

// Grid returns the grid extent of tiles. Every raster must have the size of the
// first one; a mismatch or an empty set panics.
func Grid(tiles []Tile) GridInfo {
	if len(tiles) == 0 {
		panic("stitch: no tiles")
	}
	g := GridInfo{TileWidth: tiles[0].Raster.Width(), TileHeight: tiles[0].Raster.Height()}
	for _, t := range tiles {
		if t.Raster.Width() != g.TileWidth || t.Raster.Height() != g.TileHeight {
			panic(fmt.Sprintf("stitch: tile %dx%d is %dx%d pixels, expected %dx%d",
				t.X, t.Y, t.Raster.Width(), t.Raster.Height(), g.TileWidth, g.TileHeight))
		}
		g.MaxX = max(g.MaxX, t.X)
		g.MaxY = max(g.MaxY, t.Y)
	}
	return g
}

// Complete checks that tiles cover every grid cell from (0, 0) to the
// largest coordinates exactly once.
func Complete(tiles []Tile) error {
	if len(tiles) == 0 {
		return fmt.Errorf("stitch: no tiles")
	}
	var maxX, maxY uint32
	seen := make(map[mapdat.TileKey]bool, len(tiles))
	for _, t := range tiles {
		if seen[t.Key()] {
			return fmt.Errorf("stitch: duplicate tile %s", t.Key())
		}
		seen[t.Key()] = true
		maxX, maxY = max(maxX, t.X), max(maxY, t.Y)
	}
	for y := uint32(0); y <= maxY; y++ {
		for x := uint32(0); x <= maxX; x++ {
			if !seen[mapdat.TileKey{X: x, Y: y}] {
				return fmt.Errorf("stitch: missing tile %dx%d in a %dx%d grid", x, y, maxX+1, maxY+1)
			}
		}
	}
	return nil
}

// Stitcher copies tiles into the world map on a worker pool.
type Stitcher struct {
	// Pool runs one task per tile. A nil Pool uses a temporary GOMAXPROCS pool.
	Pool *pool.WorkerPool
	// Progress, if set, is called once per copied tile from worker goroutines.
	Progress func()
}

// Stitch copies on p without progress reporting.
func Stitch(tiles []Tile, table mapdat.WatermaskTable, p *pool.WorkerPool) *mapdat.Map {
	s := &Stitcher{Pool: p}
	return s.Stitch(tiles, table)
}

// Stitch writes every tile and its watermask into a new map. Tiles must form
// a complete grid; each one owns a disjoint block of the output so they are
// copied in parallel. A tile without a watermask in table panics.
func (s *Stitcher) Stitch(tiles []Tile, table mapdat.WatermaskTable) *mapdat.Map {
	g := Grid(tiles)
	for _, t := range tiles {
		mask, ok := table[t.Key()]
		if !ok {
			panic(fmt.Sprintf("stitch: no watermask for tile %s", t.Key()))
		}
		if mask.Len() != uint(g.TileWidth)*uint(g.TileHeight) {
			panic(fmt.Sprintf("stitch: watermask for tile %s has %d bits, expected %d",
				t.Key(), mask.Len(), g.TileWidth*g.TileHeight))
		}
	}
	p := s.Pool
	if p == nil {
		p = pool.New(0)
		defer p.Close()
	}

	m := mapdat.NewMap(g.Width(), g.Height())
	log.Infof("stitching %d tiles into a %dx%d map", len(tiles), m.Width, m.Height)
	p.ForEach(len(tiles), func(i int) {
		copyTile(m, g, tiles[i], table[tiles[i].Key()])
		if s.Progress != nil {
			s.Progress()
		}
	})
	return m
}

func copyTile(m *mapdat.Map, g GridInfo, t Tile, mask *bitset.BitSet) {
	w, h := int(g.TileWidth), int(g.TileHeight)
	x0, y0 := int(t.X)*w, int(t.Y)*h
	for y := 0; y < h; y++ {
		row := x0 + (y0+y)*m.Width
		for x := 0; x < w; x++ {
			m.HeightMap[row+x] = mapdat.Height(t.Raster.At(uint32(x), uint32(y)))
			if mask.Test(uint(x + y*w)) {
				m.SetWaterAtomic(row + x)
			}
		}
	}
}
