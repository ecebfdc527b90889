package mapdat

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/bits-and-blooms/bitset"
)

// ErrCorrupt is returned when an envelope does not describe a well-formed value.
var ErrCorrupt = errors.New("mapdat: corrupt envelope")

// EncodeMap lays a map out as width, height, heights and the water bit sequence.
// Integers are little-endian, sequences are prefixed by their u64 length.
func EncodeMap(m *Map) []byte {
	words := m.IsWater.Bytes()
	buf := make([]byte, 0, 24+2*len(m.HeightMap)+16+8*len(words))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(m.Width))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(m.Height))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(m.HeightMap)))
	for _, h := range m.HeightMap {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(h))
	}
	return appendBits(buf, m.IsWater)
}

// DecodeMap is the inverse of EncodeMap. It rejects trailing bytes, maps without
// pixels and any map whose sequences disagree with its dimensions.
func DecodeMap(data []byte) (*Map, error) {
	d := decoder{buf: data}
	w := d.dim()
	h := d.dim()
	n := d.length(2)
	if d.err == nil && (w == 0 || h == 0) {
		d.fail("empty %dx%d map", w, h)
	}
	if d.err == nil && w*h != n {
		d.fail("height map holds %d samples for a %dx%d map", n, w, h)
	}
	heights := make([]Height, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		heights = append(heights, Height(d.u16()))
	}
	water := d.bits()
	if d.err == nil && water.Len() != uint(n) {
		d.fail("water mask holds %d bits for %d pixels", water.Len(), n)
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return &Map{Width: w, Height: h, HeightMap: heights, IsWater: water}, nil
}

// EncodeTable lays the table out as an entry count followed by (x, y, mask)
// entries in row-major tile order.
func EncodeTable(t WatermaskTable) []byte {
	buf := binary.LittleEndian.AppendUint64(nil, uint64(len(t)))
	for _, k := range t.Keys() {
		buf = binary.LittleEndian.AppendUint32(buf, k.X)
		buf = binary.LittleEndian.AppendUint32(buf, k.Y)
		buf = appendBits(buf, t[k])
	}
	return buf
}

// DecodeTable is the inverse of EncodeTable.
func DecodeTable(data []byte) (WatermaskTable, error) {
	d := decoder{buf: data}
	n := d.length(24)
	t := make(WatermaskTable, n)
	for i := 0; i < n && d.err == nil; i++ {
		k := TileKey{X: d.u32(), Y: d.u32()}
		mask := d.bits()
		if _, dup := t[k]; dup && d.err == nil {
			d.fail("duplicate tile %s", k)
		}
		t[k] = mask
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return t, nil
}

func appendBits(buf []byte, b *bitset.BitSet) []byte {
	words := b.Bytes()
	n := wordsFor(b.Len())
	buf = binary.LittleEndian.AppendUint64(buf, uint64(b.Len()))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(n))
	for _, w := range words[:n] {
		buf = binary.LittleEndian.AppendUint64(buf, w)
	}
	return buf
}

func wordsFor(bits uint) int {
	return int((bits + 63) / 64)
}

type decoder struct {
	buf []byte
	off int
	err error
}

func (d *decoder) fail(format string, args ...any) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
	}
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if len(d.buf)-d.off < n {
		d.fail("need %d bytes at offset %d, have %d", n, d.off, len(d.buf)-d.off)
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) u16() uint16 {
	if b := d.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (d *decoder) u32() uint32 {
	if b := d.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (d *decoder) u64() uint64 {
	if b := d.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

// dim reads a u64 map dimension.
func (d *decoder) dim() int {
	v := d.u64()
	if d.err == nil && v > math.MaxInt32 {
		d.fail("impossible dimension %d at offset %d", v, d.off-8)
		return 0
	}
	return int(v)
}

// length reads a u64 count and checks that count elements of elemSize bytes
// could still fit in the remaining input.
func (d *decoder) length(elemSize int) int {
	v := d.u64()
	if d.err != nil {
		return 0
	}
	if v > uint64(len(d.buf)-d.off)/uint64(elemSize) {
		d.fail("impossible length %d at offset %d", v, d.off-8)
		return 0
	}
	return int(v)
}

func (d *decoder) bits() *bitset.BitSet {
	n := d.u64()
	words := d.length(8)
	if d.err != nil {
		return bitset.New(0)
	}
	if uint64(words) != (n+63)/64 {
		d.fail("bit sequence of %d bits stored in %d words", n, words)
		return bitset.New(0)
	}
	set := make([]uint64, words)
	for i := range set {
		set[i] = d.u64()
	}
	if rem := n % 64; words > 0 && rem != 0 && set[words-1]>>rem != 0 {
		d.fail("bits set past the end of a %d bit sequence", n)
	}
	return bitset.FromWithLength(uint(n), set)
}

func (d *decoder) finish() error {
	if d.err == nil && d.off != len(d.buf) {
		d.fail("%d trailing bytes", len(d.buf)-d.off)
	}
	return d.err
}
