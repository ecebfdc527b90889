package terrarium

import (
	"errors"
	"testing"
)

func TestCopyRegionKindMismatch(t *testing.T) {
	src := NewRaster(KindInt8, 2, 2)
	dst := NewRaster(KindInt16, 2, 2)
	err := CopyRegion(src, DataView{Width: 2, Height: 2}, dst, DataView{Width: 2, Height: 2})
	var me *KindMismatchError
	if !errors.As(err, &me) {
		t.Fatalf("err = %v, want KindMismatchError", err)
	}
	if me.Src != KindInt8 || me.Dst != KindInt16 {
		t.Errorf("mismatch = %v into %v", me.Src, me.Dst)
	}
}

func TestReconstructKindMismatch(t *testing.T) {
	err := FilterPaeth.Reconstruct(NewRaster(KindUint8, 1, 1), NewRaster(KindInt8, 1, 1))
	var me *KindMismatchError
	if !errors.As(err, &me) {
		t.Fatalf("err = %v, want KindMismatchError", err)
	}
}

func TestEncoderRejectsOtherKind(t *testing.T) {
	enc := NewEncoder(nil, KindInt16, 2, 2)
	err := enc.WriteChunk(NewRaster(KindUint8, 2, 2), 0, 0, FilterNone)
	var me *KindMismatchError
	if !errors.As(err, &me) {
		t.Fatalf("err = %v, want KindMismatchError", err)
	}
}

func TestSetTruncatesToKind(t *testing.T) {
	tests := []struct {
		kind Kind
		in   int32
		want int32
	}{
		{KindUint8, 300, 44},
		{KindUint8, -1, 255},
		{KindInt8, 200, -56},
		{KindInt16, 40000, -25536},
		{KindInt16, -1234, -1234},
	}
	for _, tt := range tests {
		r := NewRaster(tt.kind, 1, 1)
		r.Set(0, 0, tt.in)
		if got := r.At(0, 0); got != tt.want {
			t.Errorf("%v: Set(%d) then At = %d, want %d", tt.kind, tt.in, got, tt.want)
		}
	}
}

func TestParseFilter(t *testing.T) {
	for _, f := range []Filter{FilterNone, FilterLeft, FilterUp, FilterAverage, FilterPaeth} {
		got, err := ParseFilter(f.String())
		if err != nil || got != f {
			t.Errorf("ParseFilter(%q) = %v, %v", f.String(), got, err)
		}
	}
	if got, err := ParseFilter("PAETH"); err != nil || got != FilterPaeth {
		t.Errorf("ParseFilter(PAETH) = %v, %v", got, err)
	}
	if _, err := ParseFilter("sub"); err == nil {
		t.Error("ParseFilter(sub) succeeded")
	}
}
