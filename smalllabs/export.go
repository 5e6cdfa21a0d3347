package smalllabs

import (
	"fmt"
	"math"
	"strings"

	"github.com/biteenlab/biteen-utilities/config"
	"github.com/biteenlab/biteen-utilities/matfile"
	"github.com/biteenlab/biteen-utilities/table"
	"github.com/biteenlab/biteen-utilities/utils"
)

// WriteFile converts t and writes it as a SMALL-LABS container at path.
func WriteFile(path string, t *table.Table, opts Options) error {
	b, err := ToBundle(t, opts)
	if err != nil {
		return err
	}
	return matfile.Write(path, b)
}

// ToBundle converts t into a SMALL-LABS container.
//
// Mapped columns and extra columns go to the "fits" group, so track_id and
// tracked survive even when no tracks matrix can be built. When frame, x, y,
// track_id and roi are all present a 6xM "tracks" matrix is written for the
// tracked rows (tracked=1 when that column exists, otherwise every row with a
// track id).
func ToBundle(t *table.Table, opts Options) (*matfile.Bundle, error) {
	warnings := utils.NewWarningAggregator()
	defer warnings.LogAll(config.FormatSmallLabs, "export")
	return toBundle(t, opts, warnings)
}

func toBundle(t *table.Table, opts Options, warnings *utils.WarningAggregator) (*matfile.Bundle, error) {
	mapping, policy, err := opts.resolve()
	if err != nil {
		return nil, err
	}

	fits := matfile.NewGroup()
	for _, col := range t.Columns() {
		field, ok := mapping.FieldFor(col)
		switch {
		case ok:
		case table.IsExtra(col):
			field = strings.TrimPrefix(col, table.ExtraPrefix)
		case mapping.IsDerived(col):
			continue
		default:
			switch policy {
			case config.PolicyError:
				return nil, fmt.Errorf("%w: %w: %s", utils.ErrInvalidParameter, utils.ErrUnmappedColumn, col)
			case config.PolicyWarn:
				warnings.Add(utils.WarningDroppedColumn, col)
			}
			continue
		}
		if _, dup := fits.Fields[field]; dup {
			return nil, fmt.Errorf("%w: two columns map to field %q", utils.ErrInvalidParameter, field)
		}
		fits.Fields[field] = matfile.RowVector(t.Column(col))
	}

	b := matfile.NewBundle()
	b.Groups[groupFits] = fits

	trackCols := []string{table.Frame, table.Y, table.X, table.TrackID, table.ROI}
	if (table.Schema{Required: trackCols}).Check(t) != nil {
		return b, nil
	}

	molids := t.Column(table.MoleculeID)
	if molids == nil {
		molids = make([]float64, t.Len())
		for i := range molids {
			molids[i] = float64(i)
		}
		molField, ok := mapping.FieldFor(table.MoleculeID)
		if !ok {
			molField = "molid"
		}
		fits.Fields[molField] = matfile.RowVector(molids)
		warnings.Add(utils.WarningSyntheticMolID, fmt.Sprintf("%d rows", t.Len()))
	} else if err := checkUnique(molids); err != nil {
		return nil, err
	}

	rows := trackedRows(t)
	data := make([]float64, tracksRows*len(rows))
	for c, r := range rows {
		for k, col := range trackCols {
			data[k*len(rows)+c] = t.Value(col, r)
		}
		data[tracksMolID*len(rows)+c] = molids[r]
	}
	tracks, err := matfile.NewMatrix(tracksRows, len(rows), data)
	if err != nil {
		return nil, err
	}
	b.Matrices[matrixTracks] = tracks
	return b, nil
}

func trackedRows(t *table.Table) []int {
	ids := t.Column(table.TrackID)
	flags := t.Column(table.Tracked)
	rows := make([]int, 0, len(ids))
	for i, id := range ids {
		if math.IsNaN(id) {
			continue
		}
		if flags != nil && flags[i] != 1 {
			continue
		}
		rows = append(rows, i)
	}
	return rows
}

func checkUnique(molids []float64) error {
	seen := make(map[float64]bool, len(molids))
	for _, m := range molids {
		if math.IsNaN(m) {
			continue
		}
		if seen[m] {
			return fmt.Errorf("%w: molecule id %g is not unique", utils.ErrInvalidParameter, m)
		}
		seen[m] = true
	}
	return nil
}
