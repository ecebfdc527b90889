// Package terrarium reads and writes Terrarium elevation rasters: a header followed
// by independently filtered, XZ-compressed chunks patched into a zeroed grid.
package terrarium

import "fmt"

// Kind is the width and signedness of raster samples.
type Kind uint8

// Sample kinds as stored in the header selector byte.
const (
	KindUint8 Kind = iota
	KindInt8
	KindInt16
)

func (k Kind) String() string {
	switch k {
	case KindUint8:
		return "u8"
	case KindInt8:
		return "i8"
	case KindInt16:
		return "i16"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Size is the encoded size of one sample in bytes.
func (k Kind) Size() int {
	if k == KindInt16 {
		return 2
	}
	return 1
}

func (k Kind) valid() bool {
	return k <= KindInt16
}

// maxSamples bounds a single allocation.
const maxSamples = 1 << 31

// Raster is a grid of samples of one fixed kind. Exactly one of the backing
// slices is in use, selected by kind for the lifetime of the raster.
type Raster struct {
	kind   Kind
	width  uint32
	height uint32
	u8     []uint8
	i8     []int8
	i16    []int16
}

// NewRaster allocates a zeroed raster.
func NewRaster(kind Kind, width, height uint32) *Raster {
	n := int(width) * int(height)
	r := &Raster{kind: kind, width: width, height: height}
	switch kind {
	case KindUint8:
		r.u8 = make([]uint8, n)
	case KindInt8:
		r.i8 = make([]int8, n)
	case KindInt16:
		r.i16 = make([]int16, n)
	default:
		panic(fmt.Sprintf("terrarium: NewRaster with invalid kind %d", kind))
	}
	return r
}

func checkSize(width, height uint32) error {
	if uint64(width)*uint64(height) > maxSamples {
		return &SizeError{Width: width, Height: height}
	}
	return nil
}

// Kind returns the sample kind chosen at construction.
func (r *Raster) Kind() Kind { return r.kind }

func (r *Raster) Width() uint32 { return r.width }

func (r *Raster) Height() uint32 { return r.height }

func (r *Raster) index(x, y uint32) int {
	return int(x) + int(y)*int(r.width)
}

// At returns the sample at (x, y) widened to int32.
func (r *Raster) At(x, y uint32) int32 {
	i := r.index(x, y)
	switch r.kind {
	case KindUint8:
		return int32(r.u8[i])
	case KindInt8:
		return int32(r.i8[i])
	default:
		return int32(r.i16[i])
	}
}

// Set stores v at (x, y), truncating it to the raster's sample kind.
func (r *Raster) Set(x, y uint32, v int32) {
	i := r.index(x, y)
	switch r.kind {
	case KindUint8:
		r.u8[i] = uint8(v)
	case KindInt8:
		r.i8[i] = int8(v)
	default:
		r.i16[i] = int16(v)
	}
}

// MinMax returns the smallest and largest sample.
func (r *Raster) MinMax() (lo, hi int32) {
	if r.width == 0 || r.height == 0 {
		return 0, 0
	}
	lo, hi = r.At(0, 0), r.At(0, 0)
	for y := uint32(0); y < r.height; y++ {
		for x := uint32(0); x < r.width; x++ {
			v := r.At(x, y)
			lo = min(lo, v)
			hi = max(hi, v)
		}
	}
	return lo, hi
}

// DataView places a raster inside a larger coordinate space.
type DataView struct {
	X, Y, Width, Height uint32
}

// CopyRegion copies the part of src that overlaps dst. srcView and dstView give
// the position and extent of each raster in a shared coordinate space; pixels of
// src falling outside dst are dropped and never indexed.
func CopyRegion(src *Raster, srcView DataView, dst *Raster, dstView DataView) error {
	if src.kind != dst.kind {
		return &KindMismatchError{Src: src.kind, Dst: dst.kind, Op: "copy"}
	}

	sx, sy := int64(srcView.X), int64(srcView.Y)
	dx, dy := int64(dstView.X), int64(dstView.Y)
	srcW := min(int64(srcView.Width), int64(src.width))
	srcH := min(int64(srcView.Height), int64(src.height))
	dstW := min(int64(dstView.Width), int64(dst.width))
	dstH := min(int64(dstView.Height), int64(dst.height))

	minX := max(0, dx-sx)
	minY := max(0, dy-sy)
	maxX := min(srcW, dx+dstW-sx)
	maxY := min(srcH, dy+dstH-sy)
	if minX >= maxX || minY >= maxY {
		return nil
	}

	for ly := minY; ly < maxY; ly++ {
		from := int(minX + ly*int64(src.width))
		to := int(minX+sx-dx) + int(ly+sy-dy)*int(dst.width)
		n := int(maxX - minX)
		switch src.kind {
		case KindUint8:
			copy(dst.u8[to:to+n], src.u8[from:from+n])
		case KindInt8:
			copy(dst.i8[to:to+n], src.i8[from:from+n])
		default:
			copy(dst.i16[to:to+n], src.i16[from:from+n])
		}
	}
	return nil
}
