package catalog

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Feature is a tagged geometry returned by a Provider.
type Feature struct {
	ID       string
	Name     string
	Tags     map[string]string
	Geometry geom.T
}

// Provider fetches the features of one tag group within a region.
type Provider interface {
	Fetch(ctx context.Context, regionID string, group TagGroup) ([]Feature, error)
}

// Cache stores built catalogs by region.
type Cache interface {
	Get(ctx context.Context, regionID string) ([]Entry, bool, error)
	Put(ctx context.Context, regionID string, entries []Entry) error
}

const (
	defaultQueryTimeout = 240 * time.Second
	defaultConcurrency  = 4
)

// Builder assembles a Catalog from a Provider.
type Builder struct {
	provider     Provider
	groups       []TagGroup
	queryTimeout time.Duration
	concurrency  int
	cache        Cache
}

// Option configures a Builder.
type Option func(*Builder)

// WithGroups overrides DefaultGroups.
func WithGroups(groups []TagGroup) Option {
	return func(b *Builder) { b.groups = groups }
}

// WithQueryTimeout bounds each group query.
func WithQueryTimeout(d time.Duration) Option {
	return func(b *Builder) {
		if d > 0 {
			b.queryTimeout = d
		}
	}
}

// WithConcurrency limits how many group queries run at once.
func WithConcurrency(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithCache consults c before querying and fills it after a build.
func WithCache(c Cache) Option {
	return func(b *Builder) { b.cache = c }
}

// NewBuilder creates a Builder over p.
func NewBuilder(p Provider, opts ...Option) *Builder {
	b := &Builder{
		provider:     p,
		groups:       DefaultGroups(),
		queryTimeout: defaultQueryTimeout,
		concurrency:  defaultConcurrency,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Groups returns the tag groups the builder queries.
func (b *Builder) Groups() []TagGroup {
	return append([]TagGroup(nil), b.groups...)
}

// Build queries every tag group for regionID and concatenates the results in
// group order. Any failed group fails the whole build; nothing is retried.
func (b *Builder) Build(ctx context.Context, regionID string) (*Catalog, error) {
	log := zap.L().With(zap.String("component", "catalog"), zap.String("region", regionID))

	if b.cache != nil {
		entries, ok, err := b.cache.Get(ctx, regionID)
		if err != nil {
			log.Warn("catalog: cache read failed", zap.Error(err))
		} else if ok {
			log.Info("catalog: loaded from cache", zap.Int("entries", len(entries)))
			return New(entries), nil
		}
	}

	start := time.Now()
	results := make([][]Entry, len(b.groups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, group := range b.groups {
		g.Go(func() error {
			qctx, cancel := context.WithTimeout(gctx, b.queryTimeout)
			defer cancel()

			features, err := b.provider.Fetch(qctx, regionID, group)
			if err != nil {
				return eris.Wrapf(err, "catalog: fetch %s", group.Key)
			}
			results[i] = toEntries(group, features)
			log.Debug("catalog: group fetched",
				zap.String("group", group.Key),
				zap.Int("features", len(features)),
				zap.Int("entries", len(results[i])),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var entries []Entry
	for _, r := range results {
		entries = append(entries, r...)
	}

	log.Info("catalog: built",
		zap.Int("entries", len(entries)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if b.cache != nil {
		if err := b.cache.Put(ctx, regionID, entries); err != nil {
			log.Warn("catalog: cache write failed", zap.Error(err))
		}
	}
	return New(entries), nil
}

// toEntries converts named features into entries, in provider order.
func toEntries(group TagGroup, features []Feature) []Entry {
	out := make([]Entry, 0, len(features))
	for _, f := range features {
		if f.Name == "" {
			continue
		}
		out = append(out, Entry{
			Name:     f.Name,
			Geometry: Centroid(f.Geometry),
			Tag:      group.Key,
			Kind:     f.Tags[group.Key],
		})
	}
	return out
}
