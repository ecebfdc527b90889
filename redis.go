package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"Fast-MapStitcher/mapdat"
	"Fast-MapStitcher/water"
)

// newCache builds the watermask cache for backend ("file" or "redis") and a
// func releasing its resources.
func newCache(backend string) (*water.Cache, func(), error) {
	switch backend {
	case "", "file":
		store := water.FileStore{Path: viper.GetString("cache.file")}
		return &water.Cache{Backend: store, Codec: mapdat.MultiThreaded}, func() {}, nil
	case "redis":
		pool := water.NewRedisPool(viper.GetString("cache.redis"))
		store := water.RedisStore{Pool: pool, Key: viper.GetString("cache.key")}
		closePool := func() {
			if err := pool.Close(); err != nil {
				log.Errorf("redis pool close failure")
			}
		}
		return &water.Cache{Backend: store, Codec: mapdat.MultiThreaded}, closePool, nil
	}
	return nil, nil, fmt.Errorf("unknown cache backend %q", backend)
}
