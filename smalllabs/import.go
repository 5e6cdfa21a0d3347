package smalllabs

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/biteenlab/biteen-utilities/config"
	"github.com/biteenlab/biteen-utilities/matfile"
	"github.com/biteenlab/biteen-utilities/table"
	"github.com/biteenlab/biteen-utilities/utils"
)

// ReadFile reads a SMALL-LABS container into a table.
func ReadFile(path string, opts Options) (*table.Table, error) {
	b, err := matfile.Read(path)
	if err != nil {
		return nil, err
	}
	t, err := FromBundle(b, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// FromBundle converts a SMALL-LABS container into a table.
//
// Localizations come from the "fits" group, or from the 3xN "guesses" matrix
// (frame, row, col) when there are no fits. When a "tracks" matrix is present
// every localization whose molecule id appears in it takes that track's id
// and tracked=1. The rest keep the fits track_id and tracked fields when the
// container has them; otherwise they get fresh ids counting up from the
// largest tracked id, in row order, and tracked=0.
func FromBundle(b *matfile.Bundle, opts Options) (*table.Table, error) {
	mapping, _, err := opts.resolve()
	if err != nil {
		return nil, err
	}

	fields, n, err := localizationFields(b)
	if err != nil {
		return nil, err
	}
	if trk, ok := b.Matrices[matrixTrkFilt]; ok {
		v, err := trk.Vector()
		if err != nil {
			return nil, err
		}
		fields[matrixTrkFilt] = v
	}

	names := make([]string, 0, len(fields))
	for f := range fields {
		names = append(names, f)
	}
	sort.Strings(names)

	t := table.New(n)
	for _, f := range names {
		col, ok := mapping.ColumnFor(f)
		if !ok {
			col = table.ExtraName(f)
		}
		if err := t.Set(col, fields[f]); err != nil {
			return nil, fmt.Errorf("field %s: %w", f, err)
		}
	}

	if tracks, ok := b.Matrices[matrixTracks]; ok {
		if err := applyTracks(t, tracks); err != nil {
			return nil, err
		}
	}

	if err := table.LocalizationSchema.Check(t); err != nil {
		return nil, err
	}
	return t, nil
}

// localizationFields returns the per-localization vectors keyed by legacy
// field name and their common length.
func localizationFields(b *matfile.Bundle) (map[string][]float64, int, error) {
	fields := map[string][]float64{}
	n := -1
	add := func(name string, v []float64) error {
		if n >= 0 && len(v) != n {
			return fmt.Errorf("%w: field %s has %d values, expected %d", utils.ErrShapeMismatch, name, len(v), n)
		}
		n = len(v)
		fields[name] = v
		return nil
	}

	if fits, ok := b.Groups[groupFits]; ok {
		for _, name := range fits.Names() {
			v, err := fits.Fields[name].Vector()
			if err != nil {
				return nil, 0, fmt.Errorf("fits/%s: %w", name, err)
			}
			if err := add(name, v); err != nil {
				return nil, 0, err
			}
		}
	} else if g, ok := b.Matrices[matrixGuesses]; ok {
		if g.Rows < 3 {
			return nil, 0, fmt.Errorf("%w: guesses has %d rows, expected 3", utils.ErrShapeMismatch, g.Rows)
		}
		for i, name := range []string{"frame", "row", "col"} {
			if err := add(name, g.Row(i)); err != nil {
				return nil, 0, err
			}
		}
		if r, ok := b.Matrices[matrixROINum]; ok {
			v, err := r.Vector()
			if err != nil {
				return nil, 0, err
			}
			if err := add(matrixROINum, v); err != nil {
				return nil, 0, err
			}
		}
	} else {
		return nil, 0, fmt.Errorf("%w: container has neither %s nor %s", utils.ErrMissingRequiredField, groupFits, matrixGuesses)
	}
	if n < 0 {
		n = 0
	}
	return fields, n, nil
}

func applyTracks(t *table.Table, tracks *matfile.Matrix) error {
	if tracks.Cols > 0 && tracks.Rows != tracksRows {
		return fmt.Errorf("%w: tracks has %d rows, expected %d", utils.ErrShapeMismatch, tracks.Rows, tracksRows)
	}

	trackOf := make(map[float64]float64, tracks.Cols)
	maxID := 0.0
	for c := 0; c < tracks.Cols; c++ {
		id := tracks.At(tracksTrackID, c)
		trackOf[tracks.At(tracksMolID, c)] = id
		if c == 0 || id > maxID {
			maxID = id
		}
	}

	var molids []float64
	if tracks.Cols > 0 {
		if !t.Has(table.MoleculeID) {
			return fmt.Errorf("%w: tracks present but fits carry no molid", utils.ErrMissingRequiredField)
		}
		molids = t.Column(table.MoleculeID)
	}

	// Tables written by this package carry their own track_id and tracked
	// fields; SMALL-LABS output does not.
	stored := t.Column(table.TrackID)
	storedFlags := t.Column(table.Tracked)

	ids := make([]float64, t.Len())
	tracked := make([]float64, t.Len())
	next := maxID
	untracked := 0
	for i := range ids {
		if molids != nil && !math.IsNaN(molids[i]) {
			if id, ok := trackOf[molids[i]]; ok {
				ids[i] = id
				tracked[i] = 1
				continue
			}
		}
		if stored != nil {
			ids[i] = stored[i]
			if storedFlags != nil {
				tracked[i] = storedFlags[i]
			}
			continue
		}
		next++
		ids[i] = next
		untracked++
	}
	if untracked > 0 {
		log.Debug().Str("component", config.FormatSmallLabs).Int("untracked", untracked).
			Msg("assigned single-localization track ids")
	}

	if err := t.Set(table.TrackID, ids); err != nil {
		return err
	}
	return t.Set(table.Tracked, tracked)
}
