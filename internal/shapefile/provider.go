// Package shapefile serves catalog tag groups from local OSM shapefile
// extracts, one <region>.shp per region.
package shapefile

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cityobj/internal/catalog"
)

// Provider implements catalog.Provider over a directory of shapefiles. Each
// file must carry a "name" attribute plus one attribute per tag group key.
type Provider struct {
	dir string
}

// NewProvider creates a Provider reading from dir.
func NewProvider(dir string) *Provider {
	return &Provider{dir: dir}
}

// Path returns the shapefile path for regionID.
func (p *Provider) Path(regionID string) (string, error) {
	base := filepath.Base(strings.TrimSpace(regionID))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "", eris.Errorf("shapefile: invalid region %q", regionID)
	}
	return filepath.Join(p.dir, base+".shp"), nil
}

// Fetch implements catalog.Provider.
func (p *Provider) Fetch(ctx context.Context, regionID string, group catalog.TagGroup) ([]catalog.Feature, error) {
	path, err := p.Path(regionID)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, eris.Wrapf(err, "shapefile: stat %s", path)
	}

	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: open %s", path)
	}
	defer func() { _ = reader.Close() }()

	fieldIdx := make(map[string]int)
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}
	nameIdx, ok := fieldIdx["name"]
	if !ok {
		return nil, eris.Errorf("shapefile: %s has no name attribute", path)
	}
	keyIdx, ok := fieldIdx[strings.ToLower(group.Key)]
	if !ok {
		// The extract has no column for this group: nothing to match.
		return nil, nil
	}

	var out []catalog.Feature
	var skipped int
	for reader.Next() {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "shapefile: read canceled")
		}

		n, shape := reader.Shape()
		value := attribute(reader, keyIdx)
		if !group.Has(value) {
			continue
		}

		g := toGeom(shape)
		if g == nil {
			skipped++
		}
		name := attribute(reader, nameIdx)
		out = append(out, catalog.Feature{
			ID:       strconv.Itoa(n),
			Name:     name,
			Tags:     map[string]string{group.Key: value, "name": name},
			Geometry: g,
		})
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "shapefile: read %s", path)
	}

	if skipped > 0 {
		zap.L().Debug("shapefile: records without usable geometry",
			zap.String("group", group.Key),
			zap.Int("skipped", skipped),
		)
	}
	return out, nil
}

func attribute(r *shp.Reader, idx int) string {
	return strings.TrimSpace(strings.TrimRight(r.Attribute(idx), "\x00"))
}
