package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"

	"github.com/sells-group/cityobj/internal/pipeline"
)

const defaultBatchSize = 5000

// NewPostgres opens a connection pool and verifies it with a ping.
func NewPostgres(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 4
	cfg.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return pool, nil
}

// ResultSink writes resolved rows into a PostGIS table.
type ResultSink struct {
	pool      Pool
	schema    string
	table     string
	batchSize int
}

// NewResultSink creates a sink writing to schema.table.
func NewResultSink(pool Pool, schema, table string) *ResultSink {
	if schema == "" {
		schema = "public"
	}
	return &ResultSink{pool: pool, schema: schema, table: table, batchSize: defaultBatchSize}
}

var sinkColumns = []string{"run_id", "region", "row_index", "fields", "other_geo_obj", "geo_obj_tag", "geom"}

func (s *ResultSink) qualified() string {
	return pgx.Identifier{s.schema, s.table}.Sanitize()
}

// Migrate creates the PostGIS extension and the result table.
func (s *ResultSink) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS postgis`); err != nil {
		return eris.Wrap(err, "postgres: create postgis extension")
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id            BIGSERIAL PRIMARY KEY,
	run_id        UUID NOT NULL,
	region        TEXT NOT NULL,
	row_index     INTEGER NOT NULL,
	fields        JSONB NOT NULL,
	other_geo_obj TEXT NOT NULL,
	geo_obj_tag   TEXT NOT NULL,
	geom          geometry(Point, 4326),
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`, s.qualified())
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return eris.Wrapf(err, "postgres: create table %s", s.qualified())
	}
	return nil
}

// Write copies rows into the result table in batches and returns the
// number of rows written. columns names the input fields of each row.
func (s *ResultSink) Write(ctx context.Context, runID uuid.UUID, region string, columns []string, rows []pipeline.ResolvedRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	values := make([][]any, 0, len(rows))
	for _, r := range rows {
		v, err := sinkValues(runID, region, columns, r)
		if err != nil {
			return 0, err
		}
		values = append(values, v)
	}

	log := zap.L().With(
		zap.String("component", "store.sink"),
		zap.String("table", s.schema+"."+s.table),
		zap.Int("total_rows", len(values)),
	)

	var total int64
	for i := 0; i < len(values); i += s.batchSize {
		end := min(i+s.batchSize, len(values))
		n, err := s.pool.CopyFrom(ctx, pgx.Identifier{s.schema, s.table}, sinkColumns, pgx.CopyFromRows(values[i:end]))
		if err != nil {
			return total, eris.Wrapf(err, "postgres: COPY into %s.%s (batch %d-%d)", s.schema, s.table, i, end)
		}
		total += n
		log.Debug("batch loaded", zap.Int("batch_start", i), zap.Int("batch_end", end), zap.Int64("batch_rows", n))
	}
	return total, nil
}

func sinkValues(runID uuid.UUID, region string, columns []string, r pipeline.ResolvedRow) ([]any, error) {
	fields := make(map[string]string, len(columns))
	for i, c := range columns {
		if i < len(r.Fields) {
			fields[c] = r.Fields[i]
		} else {
			fields[c] = ""
		}
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: encode fields")
	}

	var geomBytes []byte
	if r.Geometry != nil {
		if geomBytes, err = ewkb.Marshal(r.Geometry, ewkb.NDR); err != nil {
			return nil, eris.Wrapf(err, "postgres: encode geometry for row %d", r.Index)
		}
	}
	return []any{runID, region, r.Index, fieldsJSON, r.Object, r.Tag, geomBytes}, nil
}
