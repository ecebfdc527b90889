package main

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"Fast-MapStitcher/water"
)

func setDefaults() {
	viper.SetDefault("app.version", "v 0.1.0")
	viper.SetDefault("log.file", "mapstitcher.log")
	viper.SetDefault("log.level", "debug")
	viper.SetDefault("tiles.dir", "data/heightmap")
	viper.SetDefault("tiles.ext", ".heightmap")
	viper.SetDefault("polygons.file", "data/water_polygons/water_polygons.shp")
	viper.SetDefault("cache.backend", "file")
	viper.SetDefault("cache.file", "output/water_polygons_rasterised.dat.zst")
	viper.SetDefault("cache.redis", "127.0.0.1:6379")
	viper.SetDefault("cache.key", "mapstitcher:watermask")
	viper.SetDefault("output.file", "output/map.mapdat")
	viper.SetDefault("output.concurrency", 1)
	viper.SetDefault("task.workers", 0)
	viper.SetDefault("projection.anchor_x", 23)
	viper.SetDefault("projection.anchor_y", 3)
	viper.SetDefault("projection.grid_width", 54000)
	viper.SetDefault("projection.grid_height", 27000)
	viper.SetDefault("export.format", "")
	viper.SetDefault("export.file", "output/map.mbtiles")
	viper.SetDefault("export.conn", "")
	viper.SetDefault("export.savepipe", 8)
	viper.SetDefault("pack.chunk", 256)
	viper.SetDefault("pack.filter", "paeth")
}

//initConf 初始化配置
func initConf(cfgFile string) {
	setDefaults()
	viper.SetEnvPrefix("MAPSTITCHER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match
	if cfgFile == "" {
		return
	}
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		log.Warnf("config file(%s) not exist", cfgFile)
		return
	}
	viper.SetConfigType("toml")
	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		log.Warnf("read config file(%s) error, details: %s", viper.ConfigFileUsed(), err)
	}
}

func projection(tileWidth, tileHeight uint32) water.Projection {
	return water.Projection{
		AnchorX:    viper.GetUint32("projection.anchor_x"),
		AnchorY:    viper.GetUint32("projection.anchor_y"),
		TileWidth:  tileWidth,
		TileHeight: tileHeight,
		GridWidth:  viper.GetFloat64("projection.grid_width"),
		GridHeight: viper.GetFloat64("projection.grid_height"),
	}
}
