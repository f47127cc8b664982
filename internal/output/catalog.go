package output

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/cityobj/internal/catalog"
)

// CatalogFeatures converts catalog entries to GeoJSON features with name,
// tag and kind properties. Entries without geometry keep a null geometry.
func CatalogFeatures(cat *catalog.Catalog) *geojson.FeatureCollection {
	entries := cat.Entries()
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(entries))}
	for _, e := range entries {
		f := &geojson.Feature{Properties: map[string]interface{}{
			"name": e.Name,
			"tag":  e.Tag,
			"kind": e.Kind,
		}}
		if e.Geometry != nil {
			f.Geometry = e.Geometry
		}
		fc.Features = append(fc.Features, f)
	}
	return fc
}

// WriteCatalog writes the catalog as a GeoJSON FeatureCollection.
func WriteCatalog(w io.Writer, cat *catalog.Catalog) error {
	data, err := CatalogFeatures(cat).MarshalJSON()
	if err != nil {
		return eris.Wrap(err, "output: encode catalog")
	}
	_, err = w.Write(append(data, '\n'))
	return eris.Wrap(err, "output: write catalog")
}
