package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/cityobj/internal/output"
	"github.com/sells-group/cityobj/internal/pipeline"
)

func sampleRows() []pipeline.ResolvedRow {
	return []pipeline.ResolvedRow{{
		Record:   pipeline.Record{Index: 0, Fields: []string{"1", "школа № 6 работает хорошо"}},
		Object:   "школа № 6",
		Geometry: geom.NewPointFlat(geom.XY, []float64{30.31, 59.93}),
		Tag:      "amenity",
	}}
}

func TestOutputFormat(t *testing.T) {
	f, err := outputFormat("", "")
	require.NoError(t, err)
	assert.Equal(t, output.FormatCSV, f)

	f, err = outputFormat("", "out.geojson")
	require.NoError(t, err)
	assert.Equal(t, output.FormatGeoJSON, f)

	f, err = outputFormat("json", "out.geojson")
	require.NoError(t, err)
	assert.Equal(t, output.FormatJSON, f)

	_, err = outputFormat("parquet", "")
	assert.Error(t, err)
}

func TestWriteRows_Stdout(t *testing.T) {
	var buf bytes.Buffer
	err := writeRows(&buf, "", output.FormatCSV, []string{"id", "text"}, sampleRows())
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "id,text,other_geo_obj,geometry,geo_obj_tag")
	assert.Contains(t, buf.String(), "POINT (30.31 59.93)")
}

func TestWriteRows_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.geojson")
	var stdout bytes.Buffer

	err := writeRows(&stdout, path, output.FormatGeoJSON, []string{"id", "text"}, sampleRows())
	require.NoError(t, err)
	assert.Empty(t, stdout.String())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"FeatureCollection"`)
	assert.Contains(t, string(data), "школа № 6")
}

func TestWriteRows_BadPath(t *testing.T) {
	err := writeRows(nil, filepath.Join(t.TempDir(), "missing", "out.csv"), output.FormatCSV, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create output file")
}
