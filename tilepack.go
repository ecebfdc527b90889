package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"

	"Fast-MapStitcher/mapdat"
	"Fast-MapStitcher/stitch"
)

//ExportVersion 导出格式版本号
const ExportVersion = "1.0"

//ExportTile 导出瓦片
type ExportTile struct {
	X   uint32
	Y   uint32
	Row uint32
	C   []byte
}

// packTile cuts tile (x, y) out of m and returns it as a compressed map
// envelope of the tile's size.
func packTile(m *mapdat.Map, g stitch.GridInfo, x, y uint32) ([]byte, error) {
	w, h := int(g.TileWidth), int(g.TileHeight)
	region := mapdat.NewMap(w, h)
	x0, y0 := int(x)*w, int(y)*h
	for ly := 0; ly < h; ly++ {
		row := x0 + (y0+ly)*m.Width
		copy(region.HeightMap[ly*w:(ly+1)*w], m.HeightMap[row:row+w])
		for lx := 0; lx < w; lx++ {
			if m.IsWater.Test(uint(row + lx)) {
				region.IsWater.Set(uint(lx + ly*w))
			}
		}
	}
	return mapdat.SingleThreaded.Compress(mapdat.EncodeMap(region))
}

func unpackTile(data []byte) (*mapdat.Map, error) {
	raw, err := mapdat.SingleThreaded.Decompress(data)
	if err != nil {
		return nil, err
	}
	return mapdat.DecodeMap(raw)
}

//MetaItems 输出
func (task *Task) MetaItems(g stitch.GridInfo) map[string]string {
	p := projection(g.TileWidth, g.TileHeight)
	sw := p.ToLatLong(0, uint32(g.Height()))
	ne := p.ToLatLong(uint32(g.Width()), 0)
	return map[string]string{
		"id":          task.ID,
		"name":        filepath.Base(task.File),
		"description": "stitched heightmap and watermask",
		"format":      "mapdat",
		"version":     ExportVersion,
		"bounds":      fmt.Sprintf(`%f,%f,%f,%f`, sw.Lon(), sw.Lat(), ne.Lon(), ne.Lat()),
		"tile_width":  strconv.Itoa(int(g.TileWidth)),
		"tile_height": strconv.Itoa(int(g.TileHeight)),
		"columns":     strconv.Itoa(int(g.MaxX) + 1),
		"rows":        strconv.Itoa(int(g.MaxY) + 1),
	}
}

func (task *Task) SetupMBTileTables(g stitch.GridInfo) error {
	if err := os.MkdirAll(filepath.Dir(task.exportFile), os.ModePerm); err != nil {
		return err
	}
	db, err := sql.Open("sqlite3", task.exportFile)
	if err != nil {
		return err
	}
	task.db = db
	db.SetMaxOpenConns(1)

	err = optimizeConnection(db)
	if err != nil {
		return err
	}
	_, err = db.Exec("create table if not exists tiles (zoom_level integer, tile_column integer, tile_row integer, tile_data blob);")
	if err != nil {
		return err
	}
	_, err = db.Exec("create table if not exists metadata (name text, value text);")
	if err != nil {
		return err
	}
	_, _ = db.Exec("create unique index if not exists name on metadata (name);")
	_, _ = db.Exec("create unique index if not exists tile_index on tiles(zoom_level, tile_column, tile_row);")
	for name, value := range task.MetaItems(g) {
		_, err := db.Exec("insert or replace into metadata (name, value) values (?, ?)", name, value)
		if err != nil {
			return err
		}
	}
	return nil
}

func (task *Task) SetupMysqlTables(g stitch.GridInfo) error {
	db, err := sql.Open("mysql", task.conn)
	if err != nil {
		return err
	}
	task.db = db
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	_, err = db.Exec("create table if not exists tiles (zoom_level integer, tile_column integer, tile_row integer, tile_data mediumblob, unique index tile_index (zoom_level, tile_column, tile_row));")
	if err != nil {
		return err
	}
	_, err = db.Exec("create table if not exists metadata (name VARCHAR(50), value mediumtext, unique index name (name));")
	if err != nil {
		return err
	}
	for name, value := range task.MetaItems(g) {
		_, err := db.Exec("replace into metadata (name, value) values (?, ?)", name, value)
		if err != nil {
			return err
		}
	}
	return nil
}

//savePipe 保存瓦片管道
func (task *Task) savePipe() {
	defer task.wg.Done()
	var batch []ExportTile
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := saveToMBTile(batch, task.db, task.outformat); err != nil {
			task.saveErrs.Add(int64(len(batch)))
			log.Errorf("save tile to %s db error ~ %s", task.outformat, err)
		} else {
			log.Debugf("save batch complete count %d", len(batch))
		}
		batch = batch[:0]
	}
	for tile := range task.savingpipe {
		batch = append(batch, tile)
		if len(batch) == task.savePipeSize {
			flush()
		}
	}
	flush()
}

//Export 将拼接结果按瓦片写入 mbtiles 或 mysql
func (task *Task) Export(m *mapdat.Map, g stitch.GridInfo) error {
	var err error
	switch task.outformat {
	case "mbtiles":
		err = task.SetupMBTileTables(g)
	case "mysql":
		err = task.SetupMysqlTables(g)
	default:
		return fmt.Errorf("unknown export format %q", task.outformat)
	}
	if err != nil {
		log.Errorf("Database connect and prepare error")
		return err
	}

	cols, rows := int(g.MaxX)+1, int(g.MaxY)+1
	bar := newBar(cols*rows, "export ")
	task.savingpipe = make(chan ExportTile, task.savePipeSize)
	task.wg.Add(1)
	go task.savePipe()

	task.pool.ForEach(cols*rows, func(i int) {
		x, y := uint32(i%cols), uint32(i/cols)
		data, err := packTile(m, g, x, y)
		if err != nil {
			task.saveErrs.Add(1)
			log.Errorf("pack tile %dx%d error ~ %s", x, y, err)
			return
		}
		task.savingpipe <- ExportTile{X: x, Y: y, Row: g.MaxY - y, C: data}
		bar.Increment()
	})
	close(task.savingpipe)
	task.wg.Wait()
	bar.Finish()

	if n := task.saveErrs.Load(); n > 0 {
		return fmt.Errorf("export: %d tiles not saved", n)
	}
	log.Infof("exported %d tiles to %s", cols*rows, task.outformat)
	return nil
}
