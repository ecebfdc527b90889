package terrarium

import (
	"fmt"
	"strings"
)

// Filter is a PNG-style predictor applied to each chunk before compression.
type Filter uint8

const (
	FilterNone Filter = iota
	FilterLeft
	FilterUp
	FilterAverage
	FilterPaeth
)

var filterNames = [...]string{"none", "left", "up", "average", "paeth"}

func (f Filter) String() string {
	if int(f) < len(filterNames) {
		return filterNames[f]
	}
	return fmt.Sprintf("Filter(%d)", uint8(f))
}

// ParseFilter resolves a filter by its case-insensitive name.
func ParseFilter(name string) (Filter, error) {
	for i, n := range filterNames {
		if strings.EqualFold(n, name) {
			return Filter(i), nil
		}
	}
	return FilterNone, fmt.Errorf("terrarium: unknown filter %q", name)
}

// filterFromID maps a stored filter id; ids past Paeth decode as None.
func filterFromID(id uint8) Filter {
	if id > uint8(FilterPaeth) {
		return FilterNone
	}
	return Filter(id)
}

// predict returns the predictor for a sample given its left (a), upper (b) and
// upper-left (c) neighbours.
func (f Filter) predict(a, b, c int32) int32 {
	switch f {
	case FilterLeft:
		return a
	case FilterUp:
		return b
	case FilterAverage:
		return (a + b) / 2
	case FilterPaeth:
		p := a + b - c
		da, db, dc := abs(a-p), abs(b-p), abs(c-p)
		if da <= db && da <= dc {
			return a
		} else if db <= dc {
			return b
		}
		return c
	}
	return 0
}

// Apply reconstructs a filtered value x from its neighbours.
func (f Filter) Apply(x, a, b, c int32) int32 {
	return x + f.predict(a, b, c)
}

// Reconstruct undoes the filter over the whole of src, writing into dst. The
// neighbours are read back from dst, so each sample is predicted from already
// reconstructed values; neighbours outside the raster are zero.
func (f Filter) Reconstruct(src, dst *Raster) error {
	if err := sameShape(src, dst, "reconstruct"); err != nil {
		return err
	}
	for y := uint32(0); y < src.height; y++ {
		for x := uint32(0); x < src.width; x++ {
			a, b, c := neighbours(dst, x, y)
			dst.Set(x, y, f.Apply(src.At(x, y), a, b, c))
		}
	}
	return nil
}

// Predict is the encoder side of Reconstruct: dst receives the residual of each
// sample of src against the predictor built from src's own neighbours.
func (f Filter) Predict(src, dst *Raster) error {
	if err := sameShape(src, dst, "predict"); err != nil {
		return err
	}
	for y := uint32(0); y < src.height; y++ {
		for x := uint32(0); x < src.width; x++ {
			a, b, c := neighbours(src, x, y)
			dst.Set(x, y, src.At(x, y)-f.predict(a, b, c))
		}
	}
	return nil
}

func neighbours(r *Raster, x, y uint32) (a, b, c int32) {
	if x > 0 {
		a = r.At(x-1, y)
	}
	if y > 0 {
		b = r.At(x, y-1)
	}
	if x > 0 && y > 0 {
		c = r.At(x-1, y-1)
	}
	return a, b, c
}

func sameShape(src, dst *Raster, op string) error {
	if src.kind != dst.kind {
		return &KindMismatchError{Src: src.kind, Dst: dst.kind, Op: op}
	}
	if src.width != dst.width || src.height != dst.height {
		return fmt.Errorf("terrarium: %s: %dx%d into %dx%d", op, src.width, src.height, dst.width, dst.height)
	}
	return nil
}

func abs(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
