package tracks

import (
	"fmt"

	"github.com/biteenlab/biteen-utilities/table"
	"github.com/biteenlab/biteen-utilities/utils"
)

// FilterByLength keeps the rows of tracks with at least k localizations.
// Shorter tracks are dropped whole; row order and columns are preserved.
// k = 1 returns every row.
func FilterByLength(t *table.Table, k int) (*table.Table, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: minimum track length %d, must be >= 1", utils.ErrInvalidParameter, k)
	}
	return FilterByLengthRange(t, k, 0)
}

// FilterByLengthRange keeps tracks with min <= length <= max. max = 0 means
// no upper bound.
func FilterByLengthRange(t *table.Table, min, max int) (*table.Table, error) {
	if min < 1 {
		return nil, fmt.Errorf("%w: minimum track length %d, must be >= 1", utils.ErrInvalidParameter, min)
	}
	if max != 0 && max < min {
		return nil, fmt.Errorf("%w: maximum track length %d below minimum %d", utils.ErrInvalidParameter, max, min)
	}
	if min == 1 && max == 0 {
		return t.Clone(), nil
	}
	if err := (table.Schema{Required: []string{table.TrackID}}).Check(t); err != nil {
		return nil, err
	}

	_, groups := table.GroupRows(t, table.TrackID)
	ids := t.Column(table.TrackID)
	keep := make([]int, 0, t.Len())
	for row, id := range ids {
		rows, ok := groups[id]
		if !ok {
			continue
		}
		n := len(rows)
		if n >= min && (max == 0 || n <= max) {
			keep = append(keep, row)
		}
	}
	return t.Select(keep), nil
}
