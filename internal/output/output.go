// Package output renders resolved rows as CSV, JSON, GeoJSON or XLSX.
package output

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkt"

	"github.com/sells-group/cityobj/internal/pipeline"
)

// Format names an output encoding.
type Format string

// Supported formats.
const (
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatGeoJSON Format = "geojson"
	FormatXLSX    Format = "xlsx"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatGeoJSON, FormatXLSX:
		return f, nil
	}
	return "", eris.Errorf("output: unknown format %q (valid: csv, json, geojson, xlsx)", s)
}

// FormatFromPath infers the format from a file extension, defaulting to CSV.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".geojson":
		return FormatGeoJSON
	case ".xlsx":
		return FormatXLSX
	}
	return FormatCSV
}

// Columns returns the input columns followed by the resolution columns.
func Columns(input []string) []string {
	out := append([]string(nil), input...)
	return append(out, pipeline.ColumnObject, pipeline.ColumnGeometry, pipeline.ColumnTag)
}

// Write encodes rows in format f. columns are the input table's columns.
func Write(w io.Writer, f Format, columns []string, rows []pipeline.ResolvedRow) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, columns, rows)
	case FormatJSON:
		return WriteJSON(w, columns, rows)
	case FormatGeoJSON:
		return WriteGeoJSON(w, columns, rows)
	case FormatXLSX:
		return WriteXLSX(w, columns, rows)
	}
	return eris.Errorf("output: unknown format %q", f)
}

// Cells returns a row's values in Columns order, geometry as WKT.
func Cells(columns []string, row pipeline.ResolvedRow) ([]string, error) {
	out := make([]string, 0, len(columns)+3)
	for i := range columns {
		if i < len(row.Fields) {
			out = append(out, row.Fields[i])
		} else {
			out = append(out, "")
		}
	}

	var geomText string
	if row.Geometry != nil {
		s, err := wkt.Marshal(row.Geometry)
		if err != nil {
			return nil, eris.Wrap(err, "output: encode wkt")
		}
		geomText = s
	}
	return append(out, row.Object, geomText, row.Tag), nil
}

// WriteCSV writes a header and one record per row.
func WriteCSV(w io.Writer, columns []string, rows []pipeline.ResolvedRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns(columns)); err != nil {
		return eris.Wrap(err, "output: write csv header")
	}
	for _, r := range rows {
		cells, err := Cells(columns, r)
		if err != nil {
			return err
		}
		if err := cw.Write(cells); err != nil {
			return eris.Wrap(err, "output: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "output: flush csv")
}

// Records returns rows as column-keyed maps with geometry as WKT.
func Records(columns []string, rows []pipeline.ResolvedRow) ([]map[string]string, error) {
	cols := Columns(columns)
	out := make([]map[string]string, 0, len(rows))
	for _, r := range rows {
		cells, err := Cells(columns, r)
		if err != nil {
			return nil, err
		}
		rec := make(map[string]string, len(cols))
		for i, c := range cols {
			rec[c] = cells[i]
		}
		out = append(out, rec)
	}
	return out, nil
}

// WriteJSON writes a JSON array of Records.
func WriteJSON(w io.Writer, columns []string, rows []pipeline.ResolvedRow) error {
	recs, err := Records(columns, rows)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(recs), "output: encode json")
}

// FeatureCollection converts rows to GeoJSON features. The input fields plus
// the object name and tag become properties.
func FeatureCollection(columns []string, rows []pipeline.ResolvedRow) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(rows))}
	for _, r := range rows {
		props := make(map[string]interface{}, len(columns)+2)
		for i, c := range columns {
			if i < len(r.Fields) {
				props[c] = r.Fields[i]
			}
		}
		props[pipeline.ColumnObject] = r.Object
		props[pipeline.ColumnTag] = r.Tag

		f := &geojson.Feature{Properties: props}
		if r.Geometry != nil {
			f.Geometry = r.Geometry
		}
		fc.Features = append(fc.Features, f)
	}
	return fc
}

// WriteGeoJSON writes a FeatureCollection.
func WriteGeoJSON(w io.Writer, columns []string, rows []pipeline.ResolvedRow) error {
	data, err := FeatureCollection(columns, rows).MarshalJSON()
	if err != nil {
		return eris.Wrap(err, "output: encode geojson")
	}
	_, err = w.Write(append(data, '\n'))
	return eris.Wrap(err, "output: write geojson")
}

// WriteXLSX writes a single "resolved" worksheet.
func WriteXLSX(w io.Writer, columns []string, rows []pipeline.ResolvedRow) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("resolved")
	if err != nil {
		return eris.Wrap(err, "output: add sheet")
	}

	addRow := func(cells []string) {
		row := sheet.AddRow()
		for _, c := range cells {
			row.AddCell().SetString(c)
		}
	}

	addRow(Columns(columns))
	for _, r := range rows {
		cells, err := Cells(columns, r)
		if err != nil {
			return err
		}
		addRow(cells)
	}
	return eris.Wrap(f.Write(w), "output: write xlsx")
}
