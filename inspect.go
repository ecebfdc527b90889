package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"Fast-MapStitcher/mapdat"
	"Fast-MapStitcher/terrarium"
)

// inspect logs the shape and value range of a .mapdat map or a Terrarium tile.
func inspect(path string) error {
	if strings.EqualFold(filepath.Ext(path), ".mapdat") {
		m, err := mapdat.ReadMap(path)
		if err != nil {
			return err
		}
		lo, hi := heightRange(m)
		log.Infof("%s: map %dx%d, heights %d..%d, water %.2f%%",
			path, m.Width, m.Height, lo, hi, waterRatio(m)*100)
		return nil
	}

	r, err := terrarium.DecodeFile(path)
	if err != nil {
		return err
	}
	lo, hi := r.MinMax()
	log.Infof("%s: %s raster %dx%d, samples %d..%d", path, r.Kind(), r.Width(), r.Height(), lo, hi)
	return nil
}

func heightRange(m *mapdat.Map) (lo, hi mapdat.Height) {
	for i, h := range m.HeightMap {
		if i == 0 || h < lo {
			lo = h
		}
		if i == 0 || h > hi {
			hi = h
		}
	}
	return lo, hi
}

func waterRatio(m *mapdat.Map) float64 {
	if len(m.HeightMap) == 0 {
		return 0
	}
	return float64(m.IsWater.Count()) / float64(len(m.HeightMap))
}

// pack re-encodes the heights of a stitched map as an int16 Terrarium raster.
func pack(in, out string, chunk uint32, filterName string) error {
	filter, err := terrarium.ParseFilter(filterName)
	if err != nil {
		return err
	}
	m, err := mapdat.ReadMap(in)
	if err != nil {
		return err
	}

	r := terrarium.NewRaster(terrarium.KindInt16, uint32(m.Width), uint32(m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			r.Set(uint32(x), uint32(y), int32(m.HeightMap[x+y*m.Width]))
		}
	}

	if err := os.MkdirAll(filepath.Dir(out), os.ModePerm); err != nil {
		return err
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := terrarium.Encode(f, r, chunk, filter); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", out, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Infof("packed %dx%d map into %s, %d px chunks, %s filter", m.Width, m.Height, out, chunk, filter)
	return nil
}
