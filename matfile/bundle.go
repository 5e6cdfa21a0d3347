package matfile

import (
	"fmt"
	"sort"

	"github.com/biteenlab/biteen-utilities/utils"
)

// Matrix is a row-major 2D numeric array.
type Matrix struct {
	Rows int
	Cols int
	Data []float64
}

// NewMatrix wraps data as a rows x cols matrix.
func NewMatrix(rows, cols int, data []float64) (*Matrix, error) {
	if rows < 0 || cols < 0 || rows*cols != len(data) {
		return nil, fmt.Errorf("%w: %d values for a %dx%d matrix", utils.ErrShapeMismatch, len(data), rows, cols)
	}
	return &Matrix{Rows: rows, Cols: cols, Data: data}, nil
}

// RowVector wraps v as a 1xN matrix.
func RowVector(v []float64) *Matrix {
	return &Matrix{Rows: 1, Cols: len(v), Data: append([]float64(nil), v...)}
}

// At returns element (r, c).
func (m *Matrix) At(r, c int) float64 {
	return m.Data[r*m.Cols+c]
}

// Row returns a copy of row r.
func (m *Matrix) Row(r int) []float64 {
	return append([]float64(nil), m.Data[r*m.Cols:(r+1)*m.Cols]...)
}

// Vector returns the values of a 1xN or Nx1 matrix.
func (m *Matrix) Vector() ([]float64, error) {
	if m.Rows != 1 && m.Cols != 1 {
		return nil, fmt.Errorf("%w: %dx%d matrix is not a vector", utils.ErrShapeMismatch, m.Rows, m.Cols)
	}
	return append([]float64(nil), m.Data...), nil
}

// Group is a set of named matrices, the container's form of a struct.
type Group struct {
	Fields map[string]*Matrix
}

// NewGroup returns an empty group.
func NewGroup() *Group {
	return &Group{Fields: map[string]*Matrix{}}
}

// Names returns field names sorted.
func (g *Group) Names() []string {
	return sortedKeys(g.Fields)
}

// Bundle is one container: top-level matrices plus groups.
type Bundle struct {
	Matrices map[string]*Matrix
	Groups   map[string]*Group
}

// NewBundle returns an empty bundle.
func NewBundle() *Bundle {
	return &Bundle{Matrices: map[string]*Matrix{}, Groups: map[string]*Group{}}
}

// Has reports whether name is a top-level matrix or group.
func (b *Bundle) Has(name string) bool {
	_, m := b.Matrices[name]
	_, g := b.Groups[name]
	return m || g
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
