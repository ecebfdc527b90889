package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// TileFile is an elevation tile on disk, named "{x}x{y}{ext}".
type TileFile struct {
	X, Y uint32
	Path string
}

func tileFileName(x, y uint32, ext string) string {
	return fmt.Sprintf("%dx%d%s", x, y, ext)
}

// parseTileName returns the grid position encoded in name.
func parseTileName(name, ext string) (x, y uint32, ok bool) {
	base, found := strings.CutSuffix(name, ext)
	if !found {
		return 0, 0, false
	}
	xs, ys, found := strings.Cut(base, "x")
	if !found {
		return 0, 0, false
	}
	px, err := strconv.ParseUint(xs, 10, 32)
	if err != nil {
		return 0, 0, false
	}
	py, err := strconv.ParseUint(ys, 10, 32)
	if err != nil {
		return 0, 0, false
	}
	return uint32(px), uint32(py), true
}

// discoverTiles lists the tiles of dir ordered by row, then column. Files
// that do not follow the naming scheme are skipped.
func discoverTiles(dir, ext string) ([]TileFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list tiles: %w", err)
	}
	var files []TileFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		x, y, ok := parseTileName(e.Name(), ext)
		if !ok {
			log.Debugf("skip %s, not a tile", e.Name())
			continue
		}
		files = append(files, TileFile{X: x, Y: y, Path: filepath.Join(dir, e.Name())})
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s tiles in %s", ext, dir)
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].Y != files[j].Y {
			return files[i].Y < files[j].Y
		}
		return files[i].X < files[j].X
	})
	return files, nil
}

func tileExtent(files []TileFile) (maxX, maxY uint32) {
	for _, f := range files {
		maxX, maxY = max(maxX, f.X), max(maxY, f.Y)
	}
	return maxX, maxY
}
