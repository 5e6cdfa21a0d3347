package table

import (
	"fmt"
	"math"
	"sort"

	"github.com/biteenlab/biteen-utilities/utils"
)

// Table is a row-per-localization container of float64 columns.
type Table struct {
	n     int
	order []string
	cols  map[string][]float64
}

// New returns an empty table with n rows and no columns.
func New(n int) *Table {
	return &Table{n: n, cols: map[string][]float64{}}
}

// FromColumns builds a table from named columns, added in the order given by
// names. All columns must have the same length.
func FromColumns(names []string, data map[string][]float64) (*Table, error) {
	n := -1
	for _, name := range names {
		if _, ok := data[name]; !ok {
			return nil, fmt.Errorf("%w: column %q listed without data", utils.ErrInvalidParameter, name)
		}
		if n < 0 {
			n = len(data[name])
		}
	}
	if n < 0 {
		n = 0
	}
	t := New(n)
	for _, name := range names {
		if err := t.Set(name, data[name]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// MustFromColumns is FromColumns for literals in tests and fixtures.
func MustFromColumns(names []string, data map[string][]float64) *Table {
	t, err := FromColumns(names, data)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.n }

// Has reports whether the column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// Columns returns column names: canonical columns in canonical order, then
// extras in insertion order.
func (t *Table) Columns() []string {
	out := append([]string(nil), t.order...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, ci := canonicalRank[out[i]]
		rj, cj := canonicalRank[out[j]]
		switch {
		case ci && cj:
			return ri < rj
		case ci:
			return true
		default:
			return false
		}
	})
	return out
}

// Column returns a copy of the named column, or nil when absent.
func (t *Table) Column(name string) []float64 {
	c, ok := t.cols[name]
	if !ok {
		return nil
	}
	return append([]float64(nil), c...)
}

// view returns the backing slice; callers in this package must not mutate it.
func (t *Table) view(name string) []float64 {
	return t.cols[name]
}

// Value returns a single cell, NaN when the column is absent.
func (t *Table) Value(name string, row int) float64 {
	c, ok := t.cols[name]
	if !ok {
		return math.NaN()
	}
	return c[row]
}

// Set adds or replaces a column with a copy of values. The length must match
// the table's row count.
func (t *Table) Set(name string, values []float64) error {
	if name == "" {
		return fmt.Errorf("%w: empty column name", utils.ErrInvalidParameter)
	}
	if len(values) != t.n {
		return fmt.Errorf("%w: column %q has %d rows, table has %d",
			utils.ErrShapeMismatch, name, len(values), t.n)
	}
	if _, ok := t.cols[name]; !ok {
		t.order = append(t.order, name)
	}
	t.cols[name] = append([]float64(nil), values...)
	return nil
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	c := New(t.n)
	for _, name := range t.order {
		c.order = append(c.order, name)
		c.cols[name] = append([]float64(nil), t.cols[name]...)
	}
	return c
}

// Select returns a new table holding the given rows in the given order.
func (t *Table) Select(rows []int) *Table {
	c := New(len(rows))
	for _, name := range t.order {
		src := t.cols[name]
		dst := make([]float64, len(rows))
		for i, r := range rows {
			dst[i] = src[r]
		}
		c.order = append(c.order, name)
		c.cols[name] = dst
	}
	return c
}

// Drop returns a new table without the named columns.
func (t *Table) Drop(names ...string) *Table {
	skip := make(map[string]bool, len(names))
	for _, n := range names {
		skip[n] = true
	}
	c := New(t.n)
	for _, name := range t.order {
		if skip[name] {
			continue
		}
		c.order = append(c.order, name)
		c.cols[name] = append([]float64(nil), t.cols[name]...)
	}
	return c
}

// Rename returns a new table with columns renamed by mapper. Renaming two
// columns onto the same name is an error.
func (t *Table) Rename(mapper map[string]string) (*Table, error) {
	c := New(t.n)
	for _, name := range t.order {
		newName := name
		if m, ok := mapper[name]; ok {
			newName = m
		}
		if c.Has(newName) {
			return nil, fmt.Errorf("%w: rename produces duplicate column %q", utils.ErrInvalidParameter, newName)
		}
		c.order = append(c.order, newName)
		c.cols[newName] = append([]float64(nil), t.cols[name]...)
	}
	return c, nil
}

// Equal reports whether both tables have the same columns (as a set) and
// identical values, treating NaN as equal to NaN.
func (t *Table) Equal(o *Table) bool {
	if t.n != o.n || len(t.order) != len(o.order) {
		return false
	}
	for _, name := range t.order {
		oc, ok := o.cols[name]
		if !ok {
			return false
		}
		for i, v := range t.cols[name] {
			w := oc[i]
			if v != w && !(math.IsNaN(v) && math.IsNaN(w)) {
				return false
			}
		}
	}
	return true
}

// TrackIDs returns the distinct non-NaN track ids in first-appearance order.
func TrackIDs(t *Table) []float64 {
	return distinct(t.view(TrackID))
}

// GroupRows maps each distinct non-NaN value of column to its row indices,
// in row order. The returned ids follow first appearance.
func GroupRows(t *Table, column string) (ids []float64, rows map[float64][]int) {
	col := t.view(column)
	rows = make(map[float64][]int)
	for i, v := range col {
		if math.IsNaN(v) {
			continue
		}
		if _, seen := rows[v]; !seen {
			ids = append(ids, v)
		}
		rows[v] = append(rows[v], i)
	}
	return ids, rows
}

func distinct(col []float64) []float64 {
	seen := make(map[float64]bool)
	var out []float64
	for _, v := range col {
		if math.IsNaN(v) || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
