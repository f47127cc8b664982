// Package pipeline resolves the urban objects mentioned in each row of a
// table to named, geolocated catalog entries.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/cityobj/internal/catalog"
	"github.com/sells-group/cityobj/internal/extract"
	"github.com/sells-group/cityobj/internal/numbered"
	"github.com/sells-group/cityobj/internal/resolve"
	"github.com/sells-group/cityobj/internal/table"
)

// Output column names appended to the input columns.
const (
	ColumnObject   = "other_geo_obj"
	ColumnGeometry = "geometry"
	ColumnTag      = "geo_obj_tag"
)

const defaultConcurrency = 8

// Record is one input row.
type Record struct {
	Index  int
	Fields []string
	Text   *string // nil when the text cell is empty
}

// ResolvedRow is one (row, candidate) pair after expansion. Object is ""
// when the row has no resolved candidate; Geometry is nil until attached.
type ResolvedRow struct {
	Record
	Object   string
	Geometry *geom.Point
	Tag      string
}

// CatalogBuilder builds the reference catalog for a region.
type CatalogBuilder interface {
	Build(ctx context.Context, regionID string) (*catalog.Catalog, error)
}

// Pipeline wires extraction, recognition, catalog building and fuzzy
// normalization together. A Pipeline is safe for concurrent Runs.
type Pipeline struct {
	extractor   extract.FactExtractor
	recognizer  *numbered.Recognizer
	builder     CatalogBuilder
	normalizer  *resolve.Normalizer
	concurrency int
	observer    Observer
}

// Observer is notified after every Run, successful or not.
type Observer interface {
	ObserveRun(s Summary, elapsed time.Duration, err error)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithConcurrency bounds per-row extraction and normalization parallelism.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithObserver reports run summaries to o.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		p.observer = o
	}
}

// New creates a Pipeline.
func New(ex extract.FactExtractor, rec *numbered.Recognizer, builder CatalogBuilder, norm *resolve.Normalizer, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor:   ex,
		recognizer:  rec,
		builder:     builder,
		normalizer:  norm,
		concurrency: defaultConcurrency,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Summary counts what a run did.
type Summary struct {
	Rows        int
	Candidates  int
	Unresolved  int
	Resolved    int
	CatalogSize int
}

// Run resolves the objects mentioned in textColumn of every row against the
// catalog for regionID and returns only rows whose object has a geometry.
// Catalog building runs alongside extraction; if it fails, Run returns the
// error and no rows.
func (p *Pipeline) Run(ctx context.Context, tbl *table.Table, textColumn, regionID string) (_ []ResolvedRow, err error) {
	log := zap.L().With(zap.String("component", "pipeline"), zap.String("region", regionID))
	start := time.Now()

	var s Summary
	if p.observer != nil {
		defer func() { p.observer.ObserveRun(s, time.Since(start), err) }()
	}

	col, err := tbl.ColumnIndex(textColumn)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: text column")
	}
	records := Records(tbl, col)

	free := make([][]string, len(records))
	nums := make([][]string, len(records))
	var cat *catalog.Catalog

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := p.builder.Build(gctx, regionID)
		if err != nil {
			return eris.Wrap(err, "pipeline: build catalog")
		}
		cat = c
		return nil
	})
	g.Go(func() error {
		return p.forEach(gctx, len(records), func(ctx context.Context, i int) {
			free[i] = extract.Candidates(ctx, p.extractor, records[i].Text)
			if records[i].Text != nil {
				nums[i] = p.recognizer.Phrases(*records[i].Text)
			}
		})
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	idx := resolve.NewIndex(cat.Names())
	lists := make([][]string, len(records))
	if err := p.forEach(ctx, len(records), func(_ context.Context, i int) {
		lists[i] = p.normalizer.Normalize(Merge(free[i], nums[i]), idx)
	}); err != nil {
		return nil, err
	}

	rows := Explode(records, lists)
	Attach(rows, cat)
	out := FilterResolved(rows)

	s = Summary{Rows: len(records), Resolved: len(out), CatalogSize: cat.Len()}
	for _, l := range lists {
		s.Candidates += len(l)
		for _, name := range l {
			if name == "" {
				s.Unresolved++
			}
		}
	}
	log.Info("pipeline: run complete",
		zap.Int("rows", s.Rows),
		zap.Int("catalog_entries", s.CatalogSize),
		zap.Int("candidates", s.Candidates),
		zap.Int("unresolved", s.Unresolved),
		zap.Int("resolved_rows", s.Resolved),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

// forEach runs fn for 0..n-1 with bounded parallelism. It stops scheduling
// work once ctx is done and returns the context error.
func (p *Pipeline) forEach(ctx context.Context, n int, fn func(ctx context.Context, i int)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i := range n {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(gctx, i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "pipeline: per-row work cancelled")
	}
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "pipeline: per-row work cancelled")
	}
	return nil
}
