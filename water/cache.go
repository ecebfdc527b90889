package water

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gomodule/redigo/redis"
	log "github.com/sirupsen/logrus"

	"Fast-MapStitcher/mapdat"
)

// CacheStore holds the compressed bytes of one rasterized watermask table.
type CacheStore interface {
	Read() ([]byte, error)
	Write(data []byte) error
}

// FileStore keeps the cache in a single file.
type FileStore struct {
	Path string
}

func (s FileStore) Read() ([]byte, error) {
	return os.ReadFile(s.Path)
}

func (s FileStore) Write(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), os.ModePerm); err != nil {
		return err
	}
	return os.WriteFile(s.Path, data, 0o644)
}

func (s FileStore) String() string {
	return s.Path
}

// RedisStore keeps the cache under a single key.
type RedisStore struct {
	Pool *redis.Pool
	Key  string
}

// NewRedisPool dials addr over tcp for every new pooled connection.
func NewRedisPool(addr string) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     16,
		MaxActive:   32,
		IdleTimeout: 120 * time.Second,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", addr)
		},
	}
}

func (s RedisStore) Read() ([]byte, error) {
	conn := s.Pool.Get()
	defer closeConn(conn)
	return redis.Bytes(conn.Do("get", s.Key))
}

func (s RedisStore) Write(data []byte) error {
	conn := s.Pool.Get()
	defer closeConn(conn)
	_, err := redis.String(conn.Do("set", s.Key, data))
	return err
}

func (s RedisStore) String() string {
	return "redis key " + s.Key
}

func closeConn(conn redis.Conn) {
	if err := conn.Close(); err != nil {
		log.Errorf("redis connection close failure")
	}
}

// Cache persists a rasterized watermask table between runs. It carries no
// fingerprint of the polygons it was built from: a structurally valid table is
// always served.
type Cache struct {
	Backend CacheStore
	Codec mapdat.Codec
}

// Load reads the cached table. Every failure, including a missing entry, is
// returned as is; callers treat any error as a miss.
func (c *Cache) Load() (mapdat.WatermaskTable, error) {
	raw, err := c.Backend.Read()
	if err != nil {
		return nil, err
	}
	data, err := c.Codec.Decompress(raw)
	if err != nil {
		return nil, err
	}
	return mapdat.DecodeTable(data)
}

// Store replaces the cached table.
func (c *Cache) Store(t mapdat.WatermaskTable) error {
	data, err := c.Codec.Compress(mapdat.EncodeTable(t))
	if err != nil {
		return err
	}
	return c.Backend.Write(data)
}

// ErrShape is returned for a cached table that does not cover the requested
// tile grid.
var ErrShape = errors.New("water: cached table does not match the tile grid")

// CachedRasterize returns the cached watermask table when it loads and fits the
// grid. Otherwise it loads the polygons, rasterizes them and stores the result.
// A failed store is logged and returned along with the computed table.
func (r *Rasterizer) CachedRasterize(c *Cache, load func() ([]*Polygon, error), maxX, maxY uint32) (mapdat.WatermaskTable, error) {
	table, err := c.Load()
	if err == nil {
		err = r.checkShape(table, maxX, maxY)
	}
	if err == nil {
		log.Infof("found cached rasterized polygons in %v, using those", c.Backend)
		return table, nil
	}
	log.Warnf("cache miss: %s, rasterizing polygons", err)

	polys, err := load()
	if err != nil {
		return nil, err
	}
	table = r.Rasterize(polys, maxX, maxY)

	if err := c.Store(table); err != nil {
		log.Errorf("store watermask cache error ~ %s", err)
		return table, fmt.Errorf("water: store cache: %w", err)
	}
	return table, nil
}

func (r *Rasterizer) checkShape(t mapdat.WatermaskTable, maxX, maxY uint32) error {
	bits := uint(r.Projection.TileWidth) * uint(r.Projection.TileHeight)
	if uint64(len(t)) != (uint64(maxX)+1)*(uint64(maxY)+1) {
		return fmt.Errorf("%w: %d tiles", ErrShape, len(t))
	}
	for k, mask := range t {
		if k.X > maxX || k.Y > maxY || mask.Len() != bits {
			return fmt.Errorf("%w: tile %s", ErrShape, k)
		}
	}
	return nil
}
