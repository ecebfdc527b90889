package mapdat

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCodecFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "water.dat.zst")
	table := sampleTable()

	if err := MultiThreaded.WriteTable(path, table); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	// A stream produced by the multi-threaded encoder must decode with any codec.
	got, err := SingleThreaded.ReadTable(path)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if !got.Equal(table) {
		t.Fatal("table differs after file round trip")
	}
}

func TestWriteTruncatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.mapdat")
	big := NewMap(200, 200)
	for i := range big.HeightMap {
		big.HeightMap[i] = Height(i)
	}
	if err := WriteMap(path, big); err != nil {
		t.Fatalf("WriteMap big: %v", err)
	}
	small := NewMap(2, 2)
	small.HeightMap[3] = 42
	if err := WriteMap(path, small); err != nil {
		t.Fatalf("WriteMap small: %v", err)
	}
	got, err := ReadMap(path)
	if err != nil {
		t.Fatalf("ReadMap: %v", err)
	}
	if got.Width != 2 || got.Get(1, 1).Height != 42 {
		t.Errorf("got %dx%d with corner %d", got.Width, got.Height, got.Get(1, 1).Height)
	}
}

func TestReadTruncatedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.mapdat")
	if err := WriteMap(path, NewMap(64, 64)); err != nil {
		t.Fatalf("WriteMap: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, raw[:len(raw)/2], 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadMap(path); err == nil {
		t.Fatal("ReadMap of a truncated file succeeded")
	}
}

func TestReadMissingFile(t *testing.T) {
	if _, err := ReadMap(filepath.Join(t.TempDir(), "absent")); !os.IsNotExist(err) {
		t.Errorf("err = %v, want not-exist", err)
	}
}
