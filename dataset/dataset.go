package dataset

import "errors"

// Row maps column names to raw cell values. Absent columns resolve to the
// empty string, which downstream treats as "no value for this field", never
// as an error.
type Row map[string]string

// The literal token some upstream exports write into cells that had no
// value. Value treats it the same as an empty cell.
const undefinedToken = "undefined"

// Value resolves a column for this row. ok is false when the cell is absent,
// empty, or holds the undefined token.
func (r Row) Value(column string) (string, bool) {
	v, present := r[column]
	if !present || v == "" || v == undefinedToken {
		return "", false
	}
	return v, true
}

// Table is the uniform row/column structure every decoder produces: an
// ordered list of distinct non-empty column names and the surviving rows.
type Table struct {
	Columns []string
	Rows    []Row
}

// Decoder turns an input file into a Table. Configuration errors (unreadable
// file, empty sheet) surface here, before synthesis ever starts.
type Decoder interface {
	Decode(path string) (Table, error)
}

var ErrEmptySheet = errors.New("dataset has no data rows")
