package tracks

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/biteenlab/biteen-utilities/table"
	"github.com/biteenlab/biteen-utilities/utils"
)

// StepColumn is the column JoinStepSizes adds.
const StepColumn = "d_med"

// StepOptions selects the columns used for step sizes.
type StepOptions struct {
	TrackColumn string
	FrameColumn string
	XColumn     string
	YColumn     string
	// ConsecutiveFramesOnly ignores steps that span a gap in frames.
	ConsecutiveFramesOnly bool
}

func (o StepOptions) withDefaults() StepOptions {
	if o.TrackColumn == "" {
		o.TrackColumn = table.TrackID
	}
	if o.FrameColumn == "" {
		o.FrameColumn = table.Frame
	}
	if o.XColumn == "" {
		o.XColumn = table.X
	}
	if o.YColumn == "" {
		o.YColumn = table.Y
	}
	return o
}

// StepSizes holds one median step per track. IDs follow first appearance in
// the input; every id has an entry in Median, NaN when undefined.
type StepSizes struct {
	IDs    []float64
	Median map[float64]float64
}

// MedianStepSize computes, for each track, the median Euclidean displacement
// between consecutive localizations ordered by frame. Tracks with fewer than
// two localizations (or no usable steps) get NaN.
func MedianStepSize(t *table.Table, opts StepOptions) (StepSizes, error) {
	opts = opts.withDefaults()
	schema := table.Schema{Required: []string{opts.TrackColumn, opts.FrameColumn, opts.XColumn, opts.YColumn}}
	if err := schema.Check(t); err != nil {
		return StepSizes{}, err
	}

	ids, groups := table.GroupRows(t, opts.TrackColumn)
	out := StepSizes{IDs: ids, Median: make(map[float64]float64, len(ids))}
	for _, id := range ids {
		steps, err := trackSteps(t, groups[id], id, opts)
		if err != nil {
			return StepSizes{}, err
		}
		out.Median[id] = median(steps)
	}
	return out, nil
}

// trackSteps returns the displacements of one track in frame order.
func trackSteps(t *table.Table, rows []int, id float64, opts StepOptions) ([]float64, error) {
	rows = sortedByFrame(t, rows, opts.FrameColumn)
	steps := make([]float64, 0, len(rows))
	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1], rows[i]
		f0, f1 := t.Value(opts.FrameColumn, prev), t.Value(opts.FrameColumn, cur)
		if f0 == f1 {
			return nil, fmt.Errorf("%w: %w: track %g has frame %g twice", utils.ErrInvalidParameter, utils.ErrTrackOrder, id, f0)
		}
		if opts.ConsecutiveFramesOnly && f1-f0 != 1 {
			continue
		}
		a := []float64{t.Value(opts.XColumn, prev), t.Value(opts.YColumn, prev)}
		b := []float64{t.Value(opts.XColumn, cur), t.Value(opts.YColumn, cur)}
		steps = append(steps, floats.Distance(a, b, 2))
	}
	return steps, nil
}

func sortedByFrame(t *table.Table, rows []int, frameCol string) []int {
	out := append([]int(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		return t.Value(frameCol, out[i]) < t.Value(frameCol, out[j])
	})
	return out
}

// median averages the middle pair for even counts; empty input gives NaN.
func median(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	s := append([]float64(nil), x...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return stat.Mean(s[mid-1:mid+1], nil)
}

// Table returns the per-track mapping as a two-column table.
func (s StepSizes) Table() *table.Table {
	meds := make([]float64, len(s.IDs))
	for i, id := range s.IDs {
		meds[i] = s.Median[id]
	}
	return table.MustFromColumns(
		[]string{table.TrackID, StepColumn},
		map[string][]float64{table.TrackID: s.IDs, StepColumn: meds},
	)
}

// JoinStepSizes returns a copy of t with the track's median step on every
// row. Rows without a track id get NaN.
func JoinStepSizes(t *table.Table, s StepSizes, trackColumn string) (*table.Table, error) {
	if trackColumn == "" {
		trackColumn = table.TrackID
	}
	if err := (table.Schema{Required: []string{trackColumn}}).Check(t); err != nil {
		return nil, err
	}
	col := make([]float64, t.Len())
	for i, id := range t.Column(trackColumn) {
		v, ok := s.Median[id]
		if !ok {
			v = math.NaN()
		}
		col[i] = v
	}
	out := t.Clone()
	if err := out.Set(StepColumn, col); err != nil {
		return nil, err
	}
	return out, nil
}
