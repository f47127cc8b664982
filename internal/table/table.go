// Package table loads the tabular input of a resolve run: a header row
// followed by string cells, from CSV or XLSX.
package table

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Table is a header plus rows of string cells. Rows may be shorter than the
// header; missing cells read as empty.
type Table struct {
	Columns []string
	Rows    [][]string
}

// New creates a table, trimming a UTF-8 BOM from the first column name.
func New(columns []string, rows [][]string) *Table {
	cols := append([]string(nil), columns...)
	if len(cols) > 0 {
		cols[0] = strings.TrimPrefix(cols[0], "\ufeff")
	}
	return &Table{Columns: cols, Rows: rows}
}

// FromRecords builds a table from keyed records. Columns are taken in the
// given order; keys missing from a record become empty cells.
func FromRecords(columns []string, records []map[string]string) *Table {
	rows := make([][]string, len(records))
	for i, rec := range records {
		row := make([]string, len(columns))
		for j, c := range columns {
			row[j] = rec[c]
		}
		rows[i] = row
	}
	return New(columns, rows)
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of the named column.
func (t *Table) ColumnIndex(name string) (int, error) {
	for i, c := range t.Columns {
		if c == name {
			return i, nil
		}
	}
	return -1, eris.Errorf("table: column %q not found (have %s)", name, strings.Join(t.Columns, ", "))
}

// Cell returns the cell at row, col or "" when the row is short.
func (t *Table) Cell(row, col int) string {
	r := t.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// Record returns row as a column-keyed map.
func (t *Table) Record(row int) map[string]string {
	out := make(map[string]string, len(t.Columns))
	for i, c := range t.Columns {
		out[c] = t.Cell(row, i)
	}
	return out
}

// ReadFile loads a .csv, .tsv or .xlsx file.
func ReadFile(ctx context.Context, path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadXLSX(path, XLSXOptions{})
	case ".csv", ".tsv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "table: open %s", path)
		}
		defer f.Close() //nolint:errcheck

		opts := CSVOptions{}
		if strings.EqualFold(filepath.Ext(path), ".tsv") {
			opts.Delimiter = '\t'
		}
		return ReadCSV(ctx, f, opts)
	default:
		return nil, eris.Errorf("table: unsupported input %s (want .csv, .tsv or .xlsx)", path)
	}
}
