package formatter

import (
	"encoding/json"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/biteenlab/biteen-utilities/table"
	"github.com/biteenlab/biteen-utilities/utils"
)

// BuildJSON serializes t as an array of row objects. NaN cells are omitted
// since JSON has no NaN.
func BuildJSON(t *table.Table) ([]byte, error) {
	cols := t.Columns()
	rows := make([]map[string]float64, t.Len())
	for i := range rows {
		rows[i] = make(map[string]float64, len(cols))
	}
	for _, c := range cols {
		for i, v := range t.Column(c) {
			if !math.IsNaN(v) {
				rows[i][c] = v
			}
		}
	}
	return json.Marshal(rows)
}

// WriteJSONFile writes t to path atomically as BuildJSON records.
func WriteJSONFile(path string, t *table.Table) error {
	b, err := BuildJSON(t)
	if err != nil {
		return err
	}
	return utils.WriteAtomic(path, func(w io.Writer) error {
		_, err := w.Write(b)
		return err
	})
}

// WriteFile picks the serializer from the extension of path: ".json" writes
// records, anything else CSV.
func WriteFile(path string, t *table.Table) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return WriteJSONFile(path, t)
	}
	return WriteCSVFile(path, t)
}
