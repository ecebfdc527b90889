// Package mapdat holds the composited world map, the per-tile watermask table and
// their compressed on-disk envelope.
package mapdat

import (
	"sync/atomic"

	"github.com/bits-and-blooms/bitset"
)

// Height of a point (metres)
type Height int16

// Add returns h+o with int16 wrap-around.
func (h Height) Add(o Height) Height {
	return h + o
}

// Div returns h/n truncated toward zero.
func (h Height) Div(n int) Height {
	return Height(int(h) / n)
}

// Map is the stitched world: one height and one water flag per pixel.
type Map struct {
	Width     int
	Height    int
	HeightMap []Height
	IsWater   *bitset.BitSet
}

// Pixel is a read-only view of a single map cell.
type Pixel struct {
	Height  Height
	IsWater bool
}

// NewMap allocates a zeroed map of w*h pixels.
func NewMap(w, h int) *Map {
	n := w * h
	return &Map{
		Width:     w,
		Height:    h,
		HeightMap: make([]Height, n),
		IsWater:   bitset.New(uint(n)),
	}
}

// Index returns the buffer index of (x, y), clamping both coordinates into the map.
func (m *Map) Index(x, y int) int {
	if m.Width <= 0 || m.Height <= 0 {
		panic("mapdat: index into an empty map")
	}
	x = clamp(x, m.Width-1)
	y = clamp(y, m.Height-1)
	return x + y*m.Width
}

// Get returns the pixel at (x, y). Out of range coordinates are clamped to the
// nearest edge row or column. Get panics on a map without pixels.
func (m *Map) Get(x, y int) Pixel {
	i := m.Index(x, y)
	return Pixel{
		Height:  m.HeightMap[i],
		IsWater: m.IsWater.Test(uint(i)),
	}
}

// SetWaterAtomic marks pixel i as water. Neighbouring tiles may share a backing
// word of the bit set, so the bit is OR-ed in atomically.
func (m *Map) SetWaterAtomic(i int) {
	words := m.IsWater.Bytes()
	atomic.OrUint64(&words[i>>6], 1<<(uint(i)&63))
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
