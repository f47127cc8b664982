package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/cityobj/internal/catalog"
)

// CatalogCache stores built catalogs in SQLite with a time-to-live. It
// implements catalog.Cache.
type CatalogCache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewCatalogCache opens a SQLite database at dsn and configures WAL mode.
func NewCatalogCache(dsn string, ttl time.Duration) (*CatalogCache, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &CatalogCache{db: db, ttl: ttl, now: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS catalog_regions (
	region     TEXT PRIMARY KEY,
	entries    INTEGER NOT NULL,
	fetched_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS catalog_entries (
	region   TEXT NOT NULL,
	position INTEGER NOT NULL,
	name     TEXT NOT NULL,
	tag      TEXT NOT NULL,
	kind     TEXT NOT NULL,
	geom     BLOB,
	PRIMARY KEY (region, position)
);

CREATE INDEX IF NOT EXISTS idx_catalog_regions_expires_at ON catalog_regions(expires_at);
`

// Migrate creates the cache tables.
func (c *CatalogCache) Migrate(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (c *CatalogCache) Close() error {
	return c.db.Close()
}

// Get returns the cached entries for region in catalog order. ok is false
// when nothing is cached or the cached copy has expired.
func (c *CatalogCache) Get(ctx context.Context, region string) ([]catalog.Entry, bool, error) {
	var expiresAt int64
	err := c.db.QueryRowContext(ctx,
		`SELECT expires_at FROM catalog_regions WHERE region = ?`, region,
	).Scan(&expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: get catalog region")
	}
	if expiresAt <= c.now().Unix() {
		return nil, false, nil
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT name, tag, kind, geom FROM catalog_entries WHERE region = ? ORDER BY position`, region,
	)
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: query catalog entries")
	}
	defer rows.Close() //nolint:errcheck

	var out []catalog.Entry
	for rows.Next() {
		var e catalog.Entry
		var blob []byte
		if err := rows.Scan(&e.Name, &e.Tag, &e.Kind, &blob); err != nil {
			return nil, false, eris.Wrap(err, "sqlite: scan catalog entry")
		}
		if len(blob) > 0 {
			pt, err := decodePoint(blob)
			if err != nil {
				return nil, false, err
			}
			e.Geometry = pt
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, false, eris.Wrap(err, "sqlite: iterate catalog entries")
	}
	return out, true, nil
}

// Put replaces the cached entries for region.
func (c *CatalogCache) Put(ctx context.Context, region string, entries []catalog.Entry) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_entries WHERE region = ?`, region); err != nil {
		return eris.Wrap(err, "sqlite: clear catalog entries")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO catalog_entries (region, position, name, tag, kind, geom) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	for i, e := range entries {
		var blob []byte
		if e.Geometry != nil {
			if blob, err = ewkb.Marshal(e.Geometry, ewkb.NDR); err != nil {
				return eris.Wrapf(err, "sqlite: encode geometry for %q", e.Name)
			}
		}
		if _, err := stmt.ExecContext(ctx, region, i, e.Name, e.Tag, e.Kind, blob); err != nil {
			return eris.Wrap(err, "sqlite: insert catalog entry")
		}
	}

	now := c.now()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO catalog_regions (region, entries, fetched_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(region) DO UPDATE SET entries = excluded.entries, fetched_at = excluded.fetched_at, expires_at = excluded.expires_at`,
		region, len(entries), now.Unix(), now.Add(c.ttl).Unix(),
	); err != nil {
		return eris.Wrap(err, "sqlite: upsert catalog region")
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: commit")
	}
	zap.L().Debug("sqlite: cached catalog", zap.String("region", region), zap.Int("entries", len(entries)))
	return nil
}

// DeleteExpired drops expired regions and their entries.
func (c *CatalogCache) DeleteExpired(ctx context.Context) (int, error) {
	now := c.now().Unix()
	if _, err := c.db.ExecContext(ctx,
		`DELETE FROM catalog_entries WHERE region IN (SELECT region FROM catalog_regions WHERE expires_at <= ?)`, now,
	); err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired entries")
	}
	res, err := c.db.ExecContext(ctx, `DELETE FROM catalog_regions WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired regions")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func decodePoint(blob []byte) (*geom.Point, error) {
	g, err := ewkb.Unmarshal(blob)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: decode geometry")
	}
	pt, ok := g.(*geom.Point)
	if !ok {
		return nil, eris.Errorf("sqlite: cached geometry is %T, want point", g)
	}
	return pt, nil
}
