package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/cityobj/internal/catalog"
)

const redisKeyPrefix = "cityobj:catalog:"

// RedisCatalogCache stores built catalogs as JSON values with a TTL. It
// implements catalog.Cache and suits several serve replicas sharing one
// cache.
type RedisCatalogCache struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

// OpenRedis parses a redis:// URL and pings the server.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, eris.Wrap(err, "redis: parse url")
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "redis: ping")
	}
	return rdb, nil
}

// NewRedisCatalogCache creates a cache over rdb.
func NewRedisCatalogCache(rdb redis.UniversalClient, ttl time.Duration) *RedisCatalogCache {
	return &RedisCatalogCache{rdb: rdb, ttl: ttl}
}

// Close closes the client.
func (c *RedisCatalogCache) Close() error {
	return c.rdb.Close()
}

type cachedEntry struct {
	Name  string    `json:"name"`
	Tag   string    `json:"tag"`
	Kind  string    `json:"kind"`
	Point []float64 `json:"point,omitempty"` // lon, lat
}

func redisKey(region string) string {
	return redisKeyPrefix + region
}

// Get implements catalog.Cache.
func (c *RedisCatalogCache) Get(ctx context.Context, region string) ([]catalog.Entry, bool, error) {
	data, err := c.rdb.Get(ctx, redisKey(region)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "redis: get catalog")
	}

	var cached []cachedEntry
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false, eris.Wrap(err, "redis: decode catalog")
	}
	out := make([]catalog.Entry, len(cached))
	for i, ce := range cached {
		out[i] = catalog.Entry{Name: ce.Name, Tag: ce.Tag, Kind: ce.Kind}
		if len(ce.Point) == 2 {
			out[i].Geometry = geom.NewPointFlat(geom.XY, ce.Point).SetSRID(4326)
		}
	}
	return out, true, nil
}

// Put implements catalog.Cache.
func (c *RedisCatalogCache) Put(ctx context.Context, region string, entries []catalog.Entry) error {
	data, err := encodeEntries(entries)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, redisKey(region), data, c.ttl).Err(); err != nil {
		return eris.Wrap(err, "redis: set catalog")
	}
	zap.L().Debug("redis: cached catalog", zap.String("region", region), zap.Int("entries", len(entries)))
	return nil
}

func encodeEntries(entries []catalog.Entry) ([]byte, error) {
	cached := make([]cachedEntry, len(entries))
	for i, e := range entries {
		cached[i] = cachedEntry{Name: e.Name, Tag: e.Tag, Kind: e.Kind}
		if e.Geometry != nil {
			cached[i].Point = []float64{e.Geometry.X(), e.Geometry.Y()}
		}
	}
	data, err := json.Marshal(cached)
	return data, eris.Wrap(err, "redis: encode catalog")
}
