package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/cityobj/internal/catalog"
)

func TestWriteCatalog(t *testing.T) {
	cat := catalog.New([]catalog.Entry{
		{Name: "Школа № 6", Geometry: geom.NewPointFlat(geom.XY, []float64{30.31, 59.93}), Tag: "amenity", Kind: "school"},
		{Name: "Сквер без точки", Tag: "leisure", Kind: "park"},
	})

	var buf bytes.Buffer
	require.NoError(t, WriteCatalog(&buf, cat))

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry   *struct{ Coordinates []float64 } `json:"geometry"`
			Properties map[string]string              `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "Школа № 6", fc.Features[0].Properties["name"])
	assert.Equal(t, "amenity", fc.Features[0].Properties["tag"])
	assert.Equal(t, "school", fc.Features[0].Properties["kind"])
	require.NotNil(t, fc.Features[0].Geometry)
	assert.Equal(t, []float64{30.31, 59.93}, fc.Features[0].Geometry.Coordinates)
	assert.Nil(t, fc.Features[1].Geometry)
}

func TestWriteCatalog_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCatalog(&buf, catalog.New(nil)))
	assert.Contains(t, buf.String(), `"features":[]`)
}
