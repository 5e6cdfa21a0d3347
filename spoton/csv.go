package spoton

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/biteenlab/biteen-utilities/config"
	"github.com/biteenlab/biteen-utilities/formatter"
	"github.com/biteenlab/biteen-utilities/table"
	"github.com/biteenlab/biteen-utilities/utils"
)

// Write exports t as Spot-On CSV. Columns with no Spot-On field are dropped
// according to the unmapped-column policy.
func Write(w io.Writer, t *table.Table, opts Options) error {
	warnings := utils.NewWarningAggregator()
	defer warnings.LogAll(config.FormatSpotOn, "export")
	return write(w, t, opts, warnings)
}

// WriteFile exports t to path atomically.
func WriteFile(path string, t *table.Table, opts Options) error {
	return utils.WriteAtomic(path, func(w io.Writer) error {
		return Write(w, t, opts)
	})
}

func write(w io.Writer, t *table.Table, opts Options, warnings *utils.WarningAggregator) error {
	r, err := opts.resolve()
	if err != nil {
		return err
	}
	if err := checkUnmapped(t, r, warnings); err != nil {
		return err
	}
	tracks, err := buildTracks(t, r, warnings)
	if err != nil {
		return err
	}

	order := r.mapping.Order
	if len(order) == 0 {
		return fmt.Errorf("%w: spoton mapping v%d has no field order", utils.ErrInvalidParameter, r.mapping.Version)
	}
	cols := make([]string, len(order))
	for i, f := range order {
		if f == timeField {
			continue
		}
		c, ok := r.mapping.ColumnFor(f)
		if !ok {
			return fmt.Errorf("%w: spoton field %q has no column", utils.ErrInvalidParameter, f)
		}
		cols[i] = c
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(order); err != nil {
		return err
	}
	rec := make([]string, len(order))
	for _, tr := range tracks {
		for k := range tr.Frames {
			for i, c := range cols {
				rec[i] = cell(c, tr, k)
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func cell(column string, tr Track, k int) string {
	switch column {
	case "":
		return formatter.FormatFloat(tr.TimeStamps[k])
	case table.X:
		return formatter.FormatFloat(tr.XY[k][0])
	case table.Y:
		return formatter.FormatFloat(tr.XY[k][1])
	case table.Frame:
		return strconv.Itoa(tr.Frames[k])
	case table.TrackID:
		return strconv.Itoa(tr.ID)
	}
	return ""
}

func checkUnmapped(t *table.Table, r resolved, warnings *utils.WarningAggregator) error {
	for _, c := range t.Columns() {
		if _, ok := r.mapping.FieldFor(c); ok {
			continue
		}
		switch r.policy {
		case config.PolicyError:
			return fmt.Errorf("%w: %w: %s", utils.ErrInvalidParameter, utils.ErrUnmappedColumn, c)
		case config.PolicyWarn:
			warnings.Add(utils.WarningDroppedColumn, c)
		}
	}
	return nil
}

// Read imports Spot-On CSV. Trajectory ids are kept as they are, coordinates
// are converted back to pixels and t is dropped in favour of frame. Fields
// without a canonical column are kept under the extra namespace.
func Read(rd io.Reader, opts Options) (*table.Table, error) {
	r, err := opts.resolve()
	if err != nil {
		return nil, err
	}
	raw, err := formatter.ReadCSV(rd)
	if err != nil {
		return nil, err
	}

	out := table.New(raw.Len())
	for _, f := range raw.Columns() {
		if f == timeField {
			continue
		}
		v := raw.Column(f)
		c, ok := r.mapping.ColumnFor(f)
		if !ok {
			c = table.ExtraName(f)
		}
		if c == table.X || c == table.Y {
			for i := range v {
				v[i] /= r.pixel
			}
		}
		if err := out.Set(c, v); err != nil {
			return nil, err
		}
	}
	if !out.Has(table.Frame) && raw.Has(timeField) {
		ts := raw.Column(timeField)
		for i := range ts {
			ts[i] = math.Round(ts[i] / r.interval)
		}
		if err := out.Set(table.Frame, ts); err != nil {
			return nil, err
		}
	}
	if err := table.TrackSchema.Check(out); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadFile imports the Spot-On CSV at path.
func ReadFile(path string, opts Options) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrIOFailure, err)
	}
	defer f.Close()
	return Read(f, opts)
}
