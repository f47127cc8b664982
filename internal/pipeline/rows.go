package pipeline

import (
	"github.com/sells-group/cityobj/internal/catalog"
	"github.com/sells-group/cityobj/internal/table"
)

// Records turns table rows into records, reading text from column col.
// Empty text cells are absent.
func Records(tbl *table.Table, col int) []Record {
	out := make([]Record, tbl.Len())
	for i := range tbl.Rows {
		out[i] = Record{Index: i, Fields: tbl.Rows[i]}
		if text := tbl.Cell(i, col); text != "" {
			out[i].Text = &text
		}
	}
	return out
}

// Merge concatenates free-form candidates and numbered phrases, free-form
// first. A nil free list counts as empty.
func Merge(free, numbered []string) []string {
	out := make([]string, 0, len(free)+len(numbered))
	out = append(out, free...)
	return append(out, numbered...)
}

// Explode emits one row per entry of lists[i] for each record i, and a single
// row with no object for records whose list is empty. Empty entries stay as
// rows with no object.
func Explode(records []Record, lists [][]string) []ResolvedRow {
	var out []ResolvedRow
	for i, rec := range records {
		if i >= len(lists) || len(lists[i]) == 0 {
			out = append(out, ResolvedRow{Record: rec})
			continue
		}
		for _, name := range lists[i] {
			out = append(out, ResolvedRow{Record: rec, Object: name})
		}
	}
	return out
}

// Attach sets geometry and tag on each row from the first catalog entry
// with exactly the row's object name.
func Attach(rows []ResolvedRow, cat *catalog.Catalog) {
	for i := range rows {
		e, ok := cat.Lookup(rows[i].Object)
		if !ok {
			continue
		}
		rows[i].Geometry = e.Geometry
		rows[i].Tag = e.Tag
	}
}

// FilterResolved keeps rows that have a geometry, in order.
func FilterResolved(rows []ResolvedRow) []ResolvedRow {
	out := make([]ResolvedRow, 0, len(rows))
	for _, r := range rows {
		if r.Geometry != nil {
			out = append(out, r)
		}
	}
	return out
}
