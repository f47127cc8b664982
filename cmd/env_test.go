package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cityobj/internal/catalog"
	"github.com/sells-group/cityobj/internal/config"
	"github.com/sells-group/cityobj/internal/extract"
	"github.com/sells-group/cityobj/internal/shapefile"
	"github.com/sells-group/cityobj/internal/store"
)

func testConfig() *config.Config {
	c := &config.Config{}
	c.Overpass.BaseURL = "http://localhost:1/api/interpreter"
	c.Overpass.TimeoutSecs = 5
	c.Catalog.Provider = "overpass"
	c.Catalog.QueryTimeoutSecs = 5
	c.Catalog.Concurrency = 2
	c.Catalog.CacheTTLHours = 1
	c.Extract.Provider = "rules"
	c.Resolve.SimilarityThreshold = 0.7
	c.Resolve.Concurrency = 2
	return c
}

func TestPipelineEnv_Close_Nil(t *testing.T) {
	pe := &pipelineEnv{}
	assert.NotPanics(t, func() {
		pe.Close()
	})
}

func TestInitPipeline_Defaults(t *testing.T) {
	cfg = testConfig()

	env, err := initPipeline(context.Background())
	require.NoError(t, err)
	defer env.Close()

	assert.NotNil(t, env.Pipeline)
	assert.NotNil(t, env.Builder)
	assert.NotNil(t, env.Recognizer)
	assert.Nil(t, env.Cache)
	assert.IsType(t, &extract.RuleExtractor{}, env.Extractor)
	assert.Equal(t, catalog.DefaultGroups(), env.Builder.Groups())
	require.NotNil(t, env.Metrics)
	require.NotNil(t, env.Registry)

	families, err := env.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestInitPipeline_WithCache(t *testing.T) {
	cfg = testConfig()
	cfg.Catalog.CachePath = filepath.Join(t.TempDir(), "cache.db")

	env, err := initPipeline(context.Background())
	require.NoError(t, err)
	require.NotNil(t, env.Cache)
	env.Close()

	_, err = os.Stat(cfg.Catalog.CachePath)
	assert.NoError(t, err)
}

func TestInitPipeline_InvalidConfig(t *testing.T) {
	cfg = testConfig()
	cfg.Catalog.Provider = "shapefile"

	env, err := initPipeline(context.Background())
	assert.Nil(t, env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shapefile_dir")
}

func TestInitPipeline_MissingDictionary(t *testing.T) {
	cfg = testConfig()
	cfg.Resolve.DictionaryPath = filepath.Join(t.TempDir(), "missing.yaml")

	env, err := initPipeline(context.Background())
	assert.Nil(t, env)
	assert.Error(t, err)
}

func TestInitProvider(t *testing.T) {
	cfg = testConfig()
	assert.IsType(t, &catalog.GuardedProvider{}, initProvider(nil))

	cfg.Catalog.Provider = "shapefile"
	cfg.Catalog.ShapefileDir = t.TempDir()
	assert.IsType(t, &shapefile.Provider{}, initProvider(nil))
}

func TestInitExtractor(t *testing.T) {
	cfg = testConfig()
	assert.IsType(t, &extract.RuleExtractor{}, initExtractor())

	cfg.Extract.Provider = "anthropic"
	cfg.Anthropic.Key = "sk-ant-test"
	cfg.Anthropic.Model = "claude-haiku-4-5-20251001"
	assert.IsType(t, &extract.LLMExtractor{}, initExtractor())
}

func TestInitCache_Disabled(t *testing.T) {
	cfg = testConfig()
	c, err := initCache(context.Background())
	require.NoError(t, err)
	assert.Nil(t, c)

	cfg.Catalog.CacheDriver = "redis"
	c, err = initCache(context.Background())
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestInitCache_RedisBadURL(t *testing.T) {
	cfg = testConfig()
	cfg.Catalog.CacheDriver = "redis"
	cfg.Catalog.RedisURL = "http://not-redis"

	_, err := initCache(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis: parse url")
}

func TestInitCache_PrunesExpiredRegions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	stale, err := store.NewCatalogCache(path, -time.Hour)
	require.NoError(t, err)
	require.NoError(t, stale.Migrate(ctx))
	require.NoError(t, stale.Put(ctx, "337422", []catalog.Entry{{Name: "Летний сад", Tag: "leisure", Kind: "garden"}}))
	require.NoError(t, stale.Close())

	cfg = testConfig()
	cfg.Catalog.CachePath = path
	c, err := initCache(ctx)
	require.NoError(t, err)
	require.NotNil(t, c)
	require.NoError(t, c.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	var regions, entries int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM catalog_regions`).Scan(&regions))
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM catalog_entries`).Scan(&entries))
	assert.Zero(t, regions)
	assert.Zero(t, entries)
}
