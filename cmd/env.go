package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cityobj/internal/catalog"
	"github.com/sells-group/cityobj/internal/extract"
	"github.com/sells-group/cityobj/internal/metrics"
	"github.com/sells-group/cityobj/internal/numbered"
	"github.com/sells-group/cityobj/internal/pipeline"
	"github.com/sells-group/cityobj/internal/resilience"
	"github.com/sells-group/cityobj/internal/resolve"
	"github.com/sells-group/cityobj/internal/shapefile"
	"github.com/sells-group/cityobj/internal/store"
	anthropicpkg "github.com/sells-group/cityobj/pkg/anthropic"
	"github.com/sells-group/cityobj/pkg/overpass"
)

// pipelineEnv holds the components needed by the resolve, catalog, extract
// and serve commands.
type pipelineEnv struct {
	Pipeline   *pipeline.Pipeline
	Builder    *catalog.Builder
	Extractor  extract.FactExtractor
	Recognizer *numbered.Recognizer
	Cache      closingCache // nil when caching is disabled
	Metrics    *metrics.Metrics
	Registry   *prometheus.Registry
}

// closingCache is a catalog cache that holds a connection.
type closingCache interface {
	catalog.Cache
	Close() error
}

// Close releases resources held by the environment.
func (pe *pipelineEnv) Close() {
	if pe.Cache != nil {
		_ = pe.Cache.Close()
	}
}

// initPipeline builds every component from cfg. Callers should defer
// env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	provider := initProvider(m)

	opts := []catalog.Option{
		catalog.WithQueryTimeout(time.Duration(cfg.Catalog.QueryTimeoutSecs) * time.Second),
		catalog.WithConcurrency(cfg.Catalog.Concurrency),
	}

	env := &pipelineEnv{Metrics: m, Registry: reg}
	cache, err := initCache(ctx)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		env.Cache = cache
		opts = append(opts, catalog.WithCache(cache))
	}

	dict := numbered.DefaultDictionary()
	if cfg.Resolve.DictionaryPath != "" {
		d, err := numbered.LoadDictionary(cfg.Resolve.DictionaryPath)
		if err != nil {
			env.Close()
			return nil, err
		}
		dict = d
	}
	rec, err := numbered.NewRecognizer(dict)
	if err != nil {
		env.Close()
		return nil, err
	}

	env.Builder = catalog.NewBuilder(provider, opts...)
	env.Recognizer = rec
	env.Extractor = initExtractor()
	env.Pipeline = pipeline.New(
		env.Extractor,
		rec,
		env.Builder,
		resolve.NewNormalizer(cfg.Resolve.SimilarityThreshold),
		pipeline.WithConcurrency(cfg.Resolve.Concurrency),
		pipeline.WithObserver(m),
	)

	zap.L().Debug("pipeline initialized",
		zap.String("catalog_provider", cfg.Catalog.Provider),
		zap.String("extract_provider", cfg.Extract.Provider),
		zap.Bool("cache", env.Cache != nil),
	)
	return env, nil
}

// initCache opens the configured catalog cache, or returns nil when none
// is configured.
func initCache(ctx context.Context) (closingCache, error) {
	ttl := time.Duration(cfg.Catalog.CacheTTLHours) * time.Hour
	switch cfg.Catalog.CacheDriver {
	case "redis":
		if cfg.Catalog.RedisURL == "" {
			return nil, nil
		}
		rdb, err := store.OpenRedis(ctx, cfg.Catalog.RedisURL)
		if err != nil {
			return nil, err
		}
		return store.NewRedisCatalogCache(rdb, ttl), nil
	default:
		if cfg.Catalog.CachePath == "" {
			return nil, nil
		}
		cache, err := store.NewCatalogCache(cfg.Catalog.CachePath, ttl)
		if err != nil {
			return nil, err
		}
		if err := cache.Migrate(ctx); err != nil {
			_ = cache.Close()
			return nil, eris.Wrap(err, "migrate catalog cache")
		}
		if n, err := cache.DeleteExpired(ctx); err != nil {
			zap.L().Warn("prune catalog cache failed", zap.Error(err))
		} else if n > 0 {
			zap.L().Info("pruned expired catalog regions", zap.Int("regions", n))
		}
		return cache, nil
	}
}

// initProvider returns the configured catalog provider. Overpass calls go
// through a circuit breaker whose state is reported to m when m is non-nil.
func initProvider(m *metrics.Metrics) catalog.Provider {
	if cfg.Catalog.Provider == "shapefile" {
		return shapefile.NewProvider(cfg.Catalog.ShapefileDir)
	}
	client := overpass.NewClient(
		overpass.WithBaseURL(cfg.Overpass.BaseURL),
		overpass.WithUserAgent(cfg.Overpass.UserAgent),
		overpass.WithRateLimit(cfg.Overpass.RatePerSec, cfg.Overpass.Burst),
	)
	breaker := resilience.NewBreaker(resilience.Config{
		FailureThreshold: cfg.Catalog.BreakerFailures,
		ResetTimeout:     time.Duration(cfg.Catalog.BreakerResetSecs) * time.Second,
		OnStateChange: func(from, to resilience.State) {
			zap.L().Warn("overpass circuit state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if m != nil {
				m.SetBreakerState(to)
			}
		},
	})
	return catalog.NewGuardedProvider(
		catalog.NewOverpassProvider(client, time.Duration(cfg.Overpass.TimeoutSecs)*time.Second),
		breaker,
	)
}

func initExtractor() extract.FactExtractor {
	if cfg.Extract.Provider == "anthropic" {
		client := anthropicpkg.NewClient(cfg.Anthropic.Key)
		return extract.NewLLMExtractor(client, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens)
	}
	return extract.NewRuleExtractor()
}
