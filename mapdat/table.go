package mapdat

import (
	"fmt"
	"sort"

	"github.com/bits-and-blooms/bitset"
)

// TileKey addresses a tile in the global grid.
type TileKey struct {
	X, Y uint32
}

func (k TileKey) String() string {
	return fmt.Sprintf("%dx%d", k.X, k.Y)
}

// WatermaskTable maps each tile of the grid to its watermask. Bit x+y*tileWidth is
// set when the tile pixel (x, y) is water.
type WatermaskTable map[TileKey]*bitset.BitSet

// Keys returns the table keys ordered by row, then column.
func (t WatermaskTable) Keys() []TileKey {
	keys := make([]TileKey, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Y != keys[j].Y {
			return keys[i].Y < keys[j].Y
		}
		return keys[i].X < keys[j].X
	})
	return keys
}

// Equal reports whether both tables hold the same tiles with identical masks.
func (t WatermaskTable) Equal(o WatermaskTable) bool {
	if len(t) != len(o) {
		return false
	}
	for k, mask := range t {
		other, ok := o[k]
		if !ok || !mask.Equal(other) {
			return false
		}
	}
	return true
}
