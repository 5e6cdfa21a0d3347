package formatter

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/biteenlab/biteen-utilities/table"
	"github.com/biteenlab/biteen-utilities/utils"
)

// WriteCSV writes t with a header row of canonical columns followed by extras.
// NaN cells are written empty.
func WriteCSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	cols := t.Columns()
	if err := cw.Write(cols); err != nil {
		return err
	}
	data := make([][]float64, len(cols))
	for i, c := range cols {
		data[i] = t.Column(c)
	}
	rec := make([]string, len(cols))
	for row := 0; row < t.Len(); row++ {
		for i := range cols {
			rec[i] = FormatFloat(data[i][row])
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes t to path atomically.
func WriteCSVFile(path string, t *table.Table) error {
	return utils.WriteAtomic(path, func(w io.Writer) error {
		return WriteCSV(w, t)
	})
}

// ReadCSV parses a delimited-text table. A leading unnamed column (a pandas
// index) is dropped; True/False read as 1/0; empty cells read as NaN.
func ReadCSV(r io.Reader) (*table.Table, error) {
	csvr := csv.NewReader(r)
	rec, err := csvr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrIOFailure, err)
	}
	if len(rec) == 0 {
		return table.New(0), nil
	}
	head := rec[0]
	start := 0
	if len(head) > 0 && strings.TrimSpace(head[0]) == "" {
		start = 1
	}
	names := make([]string, 0, len(head)-start)
	data := make(map[string][]float64, len(head)-start)
	for _, h := range head[start:] {
		h = strings.TrimSpace(h)
		if h == "" {
			return nil, fmt.Errorf("%w: empty column name in header", utils.ErrIOFailure)
		}
		if _, dup := data[h]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", utils.ErrIOFailure, h)
		}
		names = append(names, h)
		data[h] = make([]float64, 0, len(rec)-1)
	}
	for i, row := range rec[1:] {
		for j, cell := range row[start:] {
			v, err := ParseCell(cell)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %q: %v", utils.ErrIOFailure, i+1, names[j], err)
			}
			data[names[j]] = append(data[names[j]], v)
		}
	}
	return table.FromColumns(names, data)
}

// ReadCSVFile opens, parses and closes path.
func ReadCSVFile(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrIOFailure, err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// FormatFloat renders v with round-trip precision; NaN becomes "".
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ParseCell reads one numeric cell.
func ParseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return math.NaN(), nil
	case "true":
		return 1, nil
	case "false":
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
