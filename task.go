package main

import (
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cheggaaa/pb/v3"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"Fast-MapStitcher/internal/pool"
	"Fast-MapStitcher/mapdat"
	"Fast-MapStitcher/stitch"
	"Fast-MapStitcher/terrarium"
	"Fast-MapStitcher/water"
)

//Task 拼接任务
type Task struct {
	ID           string
	TilesDir     string
	TileExt      string
	Polygons     string
	File         string
	workerCount  int
	pool         *pool.WorkerPool
	cache        *water.Cache
	closeCache   func()
	codec        mapdat.Codec
	outformat    string
	exportFile   string
	conn         string
	savePipeSize int
	db           *sql.DB
	wg           sync.WaitGroup
	savingpipe   chan ExportTile
	saveErrs     atomic.Int64
}

//NewTask 创建拼接任务
func NewTask() (*Task, error) {
	task := &Task{
		ID:           uuid.New().String(),
		TilesDir:     viper.GetString("tiles.dir"),
		TileExt:      viper.GetString("tiles.ext"),
		Polygons:     viper.GetString("polygons.file"),
		File:         viper.GetString("output.file"),
		workerCount:  viper.GetInt("task.workers"),
		codec:        mapdat.Codec{Concurrency: viper.GetInt("output.concurrency")},
		outformat:    viper.GetString("export.format"),
		exportFile:   viper.GetString("export.file"),
		conn:         viper.GetString("export.conn"),
		savePipeSize: max(viper.GetInt("export.savepipe"), 1),
	}
	cache, closeCache, err := newCache(viper.GetString("cache.backend"))
	if err != nil {
		return nil, err
	}
	task.cache, task.closeCache = cache, closeCache
	task.pool = pool.New(task.workerCount)
	task.workerCount = task.pool.Workers()
	log.Infof("task %s created, %d workers, cache %v", task.ID, task.workerCount, cache.Backend)
	return task, nil
}

func (task *Task) Close() {
	task.pool.Close()
	task.closeCache()
	if task.db != nil {
		_ = task.db.Close()
	}
}

func newBar(total int, prefix string) *pb.ProgressBar {
	bar := pb.New(total)
	bar.Set("prefix", prefix)
	return bar.Start()
}

// decodeTiles decodes every tile file in parallel; the first failure aborts.
func (task *Task) decodeTiles(files []TileFile) ([]stitch.Tile, error) {
	bar := newBar(len(files), "decode ")
	defer bar.Finish()

	tiles := make([]stitch.Tile, len(files))
	var g errgroup.Group
	g.SetLimit(task.workerCount)
	for i, f := range files {
		g.Go(func() error {
			r, err := terrarium.DecodeFile(f.Path)
			if err != nil {
				return fmt.Errorf("decode tile %dx%d: %w", f.X, f.Y, err)
			}
			log.Debugf("decoded %s, %s %dx%d", f.Path, r.Kind(), r.Width(), r.Height())
			tiles[i] = stitch.Tile{X: f.X, Y: f.Y, Raster: r}
			bar.Increment()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tiles, nil
}

// watermasks returns the per-tile water masks for the grid, from the cache
// when it holds a usable table.
func (task *Task) watermasks(g stitch.GridInfo) (mapdat.WatermaskTable, error) {
	tileCount := (int(g.MaxX) + 1) * (int(g.MaxY) + 1)
	var bar *pb.ProgressBar
	r := &water.Rasterizer{
		Projection: projection(g.TileWidth, g.TileHeight),
		Pool:       task.pool,
	}
	r.Progress = func() {
		bar.Increment()
	}
	load := func() ([]*water.Polygon, error) {
		log.Infof("loading water polygons from %s", task.Polygons)
		polys, err := water.Load(task.Polygons, task.workerCount)
		if err != nil {
			return nil, err
		}
		log.Infof("loaded %d water polygons", len(polys))
		bar = newBar(tileCount, "rasterize ")
		return polys, nil
	}
	table, err := r.CachedRasterize(task.cache, load, g.MaxX, g.MaxY)
	if bar != nil {
		bar.Finish()
	}
	return table, err
}

//Rasterize 仅生成水域掩膜缓存
func (task *Task) Rasterize() error {
	files, err := discoverTiles(task.TilesDir, task.TileExt)
	if err != nil {
		return err
	}
	first, err := terrarium.DecodeFile(files[0].Path)
	if err != nil {
		return fmt.Errorf("decode tile %dx%d: %w", files[0].X, files[0].Y, err)
	}
	maxX, maxY := tileExtent(files)
	_, err = task.watermasks(stitch.GridInfo{
		MaxX: maxX, MaxY: maxY,
		TileWidth: first.Width(), TileHeight: first.Height(),
	})
	return err
}

//Build 执行完整拼接流程
func (task *Task) Build() error {
	files, err := discoverTiles(task.TilesDir, task.TileExt)
	if err != nil {
		return err
	}
	log.Infof("task %s: found %d tiles in %s", task.ID, len(files), task.TilesDir)
	tiles, err := task.decodeTiles(files)
	if err != nil {
		return err
	}
	if err := stitch.Complete(tiles); err != nil {
		return err
	}
	g := stitch.Grid(tiles)

	table, err := task.watermasks(g)
	if err != nil {
		return err
	}

	bar := newBar(len(tiles), "stitch ")
	s := &stitch.Stitcher{Pool: task.pool, Progress: func() { bar.Increment() }}
	m := s.Stitch(tiles, table)
	bar.Finish()
	if err := task.codec.WriteMap(task.File, m); err != nil {
		return fmt.Errorf("write map: %w", err)
	}
	log.Infof("wrote %dx%d map to %s", m.Width, m.Height, task.File)

	if task.outformat != "" {
		return task.Export(m, g)
	}
	return nil
}
