package main

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"Fast-MapStitcher/mapdat"
	"Fast-MapStitcher/stitch"
	"Fast-MapStitcher/terrarium"
)

func TestParseTileName(t *testing.T) {
	tests := []struct {
		name string
		x, y uint32
		ok   bool
	}{
		{"0x0.heightmap", 0, 0, true},
		{"12x7.heightmap", 12, 7, true},
		{"12x7.png", 0, 0, false},
		{"12-7.heightmap", 0, 0, false},
		{"ax7.heightmap", 0, 0, false},
		{"1x.heightmap", 0, 0, false},
		{"99999999999x1.heightmap", 0, 0, false},
	}
	for _, tt := range tests {
		x, y, ok := parseTileName(tt.name, ".heightmap")
		if x != tt.x || y != tt.y || ok != tt.ok {
			t.Errorf("parseTileName(%q) = %d, %d, %v, want %d, %d, %v", tt.name, x, y, ok, tt.x, tt.y, tt.ok)
		}
	}
}

// writeTiles writes a cols x rows grid of w x h int16 tiles whose samples are
// their global pixel index.
func writeTiles(t *testing.T, dir string, cols, rows, w, h uint32) {
	t.Helper()
	for ty := uint32(0); ty < rows; ty++ {
		for tx := uint32(0); tx < cols; tx++ {
			r := terrarium.NewRaster(terrarium.KindInt16, w, h)
			for y := uint32(0); y < h; y++ {
				for x := uint32(0); x < w; x++ {
					r.Set(x, y, int32((tx*w+x)+(ty*h+y)*cols*w))
				}
			}
			f, err := os.Create(filepath.Join(dir, tileFileName(tx, ty, ".heightmap")))
			if err != nil {
				t.Fatal(err)
			}
			if err := terrarium.Encode(f, r, 3, terrarium.FilterPaeth); err != nil {
				t.Fatal(err)
			}
			if err := f.Close(); err != nil {
				t.Fatal(err)
			}
		}
	}
}

func TestDiscoverTiles(t *testing.T) {
	dir := t.TempDir()
	writeTiles(t, dir, 2, 2, 2, 2)
	if err := os.WriteFile(filepath.Join(dir, "README"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "5x5.heightmap"), os.ModePerm); err != nil {
		t.Fatal(err)
	}

	files, err := discoverTiles(dir, ".heightmap")
	if err != nil {
		t.Fatal(err)
	}
	want := []TileFile{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}}
	if len(files) != len(want) {
		t.Fatalf("found %d tiles, want %d", len(files), len(want))
	}
	for i, f := range files {
		if f.X != want[i].X || f.Y != want[i].Y {
			t.Errorf("files[%d] = %dx%d, want %dx%d", i, f.X, f.Y, want[i].X, want[i].Y)
		}
	}
	if maxX, maxY := tileExtent(files); maxX != 1 || maxY != 1 {
		t.Errorf("tileExtent = %d, %d", maxX, maxY)
	}

	if _, err := discoverTiles(t.TempDir(), ".heightmap"); err == nil {
		t.Error("expected an error for an empty directory")
	}
}

const waterCollection = `{"type": "FeatureCollection", "features": [
  {"type": "Feature", "properties": {}, "geometry": {"type": "Polygon",
    "coordinates": [[[-100,-50],[100,-50],[100,50],[-100,50],[-100,-50]],[[-10,-10],[10,-10],[10,10],[-10,10],[-10,-10]]]}}
]}`

// setupBuild configures a 2x1 grid of 4x4 tiles covering the whole world:
// lon = gx*45-180, lat = 90-gy*45.
func setupBuild(t *testing.T) string {
	t.Helper()
	viper.Reset()
	setDefaults()
	dir := t.TempDir()

	tiles := filepath.Join(dir, "heightmap")
	if err := os.Mkdir(tiles, os.ModePerm); err != nil {
		t.Fatal(err)
	}
	writeTiles(t, tiles, 2, 1, 4, 4)
	polys := filepath.Join(dir, "water.geojson")
	if err := os.WriteFile(polys, []byte(waterCollection), 0o644); err != nil {
		t.Fatal(err)
	}

	viper.Set("tiles.dir", tiles)
	viper.Set("polygons.file", polys)
	viper.Set("cache.file", filepath.Join(dir, "output", "cache.zst"))
	viper.Set("output.file", filepath.Join(dir, "output", "map.mapdat"))
	viper.Set("export.file", filepath.Join(dir, "output", "map.mbtiles"))
	viper.Set("task.workers", 2)
	viper.Set("projection.anchor_x", 0)
	viper.Set("projection.anchor_y", 0)
	viper.Set("projection.grid_width", 8)
	viper.Set("projection.grid_height", 4)
	t.Cleanup(viper.Reset)
	return dir
}

func expectWater(gx, gy int) bool {
	return gx >= 2 && gx <= 6 && gy >= 1 && gy <= 3 && !(gx == 4 && gy == 2)
}

func runBuild(t *testing.T) *Task {
	t.Helper()
	task, err := NewTask()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(task.Close)
	if err := task.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
	return task
}

func TestBuild(t *testing.T) {
	dir := setupBuild(t)
	runBuild(t)

	m, err := mapdat.ReadMap(filepath.Join(dir, "output", "map.mapdat"))
	if err != nil {
		t.Fatal(err)
	}
	if m.Width != 8 || m.Height != 4 {
		t.Fatalf("map is %dx%d, want 8x4", m.Width, m.Height)
	}
	for gy := 0; gy < 4; gy++ {
		for gx := 0; gx < 8; gx++ {
			px := m.Get(gx, gy)
			if px.Height != mapdat.Height(gx+gy*8) {
				t.Errorf("height at (%d,%d) = %d, want %d", gx, gy, px.Height, gx+gy*8)
			}
			if px.IsWater != expectWater(gx, gy) {
				t.Errorf("water at (%d,%d) = %v, want %v", gx, gy, px.IsWater, expectWater(gx, gy))
			}
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "output", "cache.zst")); err != nil {
		t.Errorf("watermask cache not written: %v", err)
	}

	// A second run is served from the cache even without the polygons.
	if err := os.Remove(viper.GetString("polygons.file")); err != nil {
		t.Fatal(err)
	}
	runBuild(t)
}

func TestBuildIncompleteGrid(t *testing.T) {
	dir := setupBuild(t)
	if err := os.Remove(filepath.Join(dir, "heightmap", "0x0.heightmap")); err != nil {
		t.Fatal(err)
	}
	task, err := NewTask()
	if err != nil {
		t.Fatal(err)
	}
	defer task.Close()
	if err := task.Build(); err == nil {
		t.Error("expected an error for a grid without tile 0x0")
	}
}

func TestRasterizeOnly(t *testing.T) {
	dir := setupBuild(t)
	task, err := NewTask()
	if err != nil {
		t.Fatal(err)
	}
	defer task.Close()
	if err := task.Rasterize(); err != nil {
		t.Fatal(err)
	}
	cache, _, err := newCache("file")
	if err != nil {
		t.Fatal(err)
	}
	table, err := cache.Load()
	if err != nil {
		t.Fatalf("cache not written: %v", err)
	}
	if len(table) != 2 {
		t.Errorf("cached table has %d tiles, want 2", len(table))
	}
	if _, err := os.Stat(filepath.Join(dir, "output", "map.mapdat")); !os.IsNotExist(err) {
		t.Error("rasterize wrote a map")
	}
}

func TestExportMBTiles(t *testing.T) {
	dir := setupBuild(t)
	viper.Set("export.format", "mbtiles")
	viper.Set("export.savepipe", 1)
	task := runBuild(t)

	db, err := sql.Open("sqlite3", filepath.Join(dir, "output", "map.mbtiles"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	task.db.Close()
	task.db = nil

	var id string
	if err := db.QueryRow("select value from metadata where name = 'id'").Scan(&id); err != nil {
		t.Fatal(err)
	}
	if id != task.ID {
		t.Errorf("metadata id = %s, want %s", id, task.ID)
	}

	rows, err := db.Query("select tile_column, tile_row, tile_data from tiles order by tile_column")
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	count := 0
	for rows.Next() {
		var col, row int
		var data []byte
		if err := rows.Scan(&col, &row, &data); err != nil {
			t.Fatal(err)
		}
		region, err := unpackTile(data)
		if err != nil {
			t.Fatalf("tile %d: %v", col, err)
		}
		if row != 0 || region.Width != 4 || region.Height != 4 {
			t.Errorf("tile %d: row %d, %dx%d", col, row, region.Width, region.Height)
		}
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				gx := col*4 + x
				if got := region.Get(x, y); got.Height != mapdat.Height(gx+y*8) || got.IsWater != expectWater(gx, y) {
					t.Errorf("tile %d pixel (%d,%d) = %+v", col, x, y, got)
				}
			}
		}
		count++
	}
	if err := rows.Err(); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("exported %d tiles, want 2", count)
	}
}

func TestPackAndInspect(t *testing.T) {
	dir := t.TempDir()
	m := mapdat.NewMap(5, 3)
	for i := range m.HeightMap {
		m.HeightMap[i] = mapdat.Height(i*100 - 700)
	}
	m.IsWater.Set(4)
	in := filepath.Join(dir, "map.mapdat")
	if err := mapdat.WriteMap(in, m); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "packed", "map.heightmap")
	if err := pack(in, out, 2, "up"); err != nil {
		t.Fatalf("pack: %v", err)
	}
	r, err := terrarium.DecodeFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if r.Kind() != terrarium.KindInt16 || r.Width() != 5 || r.Height() != 3 {
		t.Fatalf("packed raster is %s %dx%d", r.Kind(), r.Width(), r.Height())
	}
	for y := 0; y < 3; y++ {
		for x := 0; x < 5; x++ {
			if got, want := r.At(uint32(x), uint32(y)), int32(m.HeightMap[x+y*5]); got != want {
				t.Errorf("sample (%d,%d) = %d, want %d", x, y, got, want)
			}
		}
	}

	if lo, hi := heightRange(m); lo != -700 || hi != 700 {
		t.Errorf("heightRange = %d..%d, want -700..700", lo, hi)
	}
	if got := waterRatio(m); got != 1.0/15 {
		t.Errorf("waterRatio = %v", got)
	}
	if err := inspect(in); err != nil {
		t.Errorf("inspect map: %v", err)
	}
	if err := inspect(out); err != nil {
		t.Errorf("inspect raster: %v", err)
	}
	if err := pack(in, out, 2, "bogus"); err == nil {
		t.Error("expected an error for an unknown filter")
	}
}

func TestPackTileMatchesStitchGrid(t *testing.T) {
	m := mapdat.NewMap(6, 4)
	for i := range m.HeightMap {
		m.HeightMap[i] = mapdat.Height(i)
	}
	m.IsWater.Set(uint(5 + 3*6))
	g := stitch.GridInfo{MaxX: 1, MaxY: 1, TileWidth: 3, TileHeight: 2}

	data, err := packTile(m, g, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	region, err := unpackTile(data)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			if got, want := region.Get(x, y), m.Get(3+x, 2+y); got != want {
				t.Errorf("pixel (%d,%d) = %+v, want %+v", x, y, got, want)
			}
		}
	}
}

func TestNewCacheBackends(t *testing.T) {
	viper.Reset()
	setDefaults()
	t.Cleanup(viper.Reset)
	if _, _, err := newCache("memcached"); err == nil {
		t.Error("expected an error for an unknown backend")
	}
	cache, release, err := newCache("redis")
	if err != nil {
		t.Fatal(err)
	}
	defer release()
	if cache.Backend == nil {
		t.Error("redis backend not set")
	}
}

func TestPackFilterUsage(t *testing.T) {
	usage := packCmd.Flags().Lookup("filter").Usage
	for _, f := range []terrarium.Filter{terrarium.FilterNone, terrarium.FilterLeft, terrarium.FilterUp, terrarium.FilterAverage, terrarium.FilterPaeth} {
		if !strings.Contains(usage, f.String()) {
			t.Errorf("filter usage %q does not list %s", usage, f)
		}
	}
	if strings.Contains(usage, "sub") {
		t.Errorf("filter usage %q lists a name ParseFilter rejects", usage)
	}
}
