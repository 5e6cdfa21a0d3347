package tracks

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/biteenlab/biteen-utilities/table"
)

// Summary describes one track.
type Summary struct {
	TrackID    float64
	Count      int
	FirstFrame float64
	LastFrame  float64
	MeanStep   float64
	MedianStep float64
}

// Summarize returns one Summary per track in first-appearance order.
func Summarize(t *table.Table, opts StepOptions) ([]Summary, error) {
	opts = opts.withDefaults()
	if err := (table.Schema{Required: []string{opts.TrackColumn, opts.FrameColumn, opts.XColumn, opts.YColumn}}).Check(t); err != nil {
		return nil, err
	}

	ids, groups := table.GroupRows(t, opts.TrackColumn)
	out := make([]Summary, 0, len(ids))
	for _, id := range ids {
		rows := sortedByFrame(t, groups[id], opts.FrameColumn)
		steps, err := trackSteps(t, rows, id, opts)
		if err != nil {
			return nil, err
		}
		s := Summary{
			TrackID:    id,
			Count:      len(rows),
			FirstFrame: t.Value(opts.FrameColumn, rows[0]),
			LastFrame:  t.Value(opts.FrameColumn, rows[len(rows)-1]),
			MeanStep:   math.NaN(),
			MedianStep: median(steps),
		}
		if len(steps) > 0 {
			s.MeanStep = stat.Mean(steps, nil)
		}
		out = append(out, s)
	}
	return out, nil
}

// Summary table columns besides track_id and d_med.
const (
	CountColumn      = "n_locs"
	FirstFrameColumn = "first_frame"
	LastFrameColumn  = "last_frame"
	MeanStepColumn   = "d_mean"
)

// SummaryTable lays summaries out one row per track.
func SummaryTable(sums []Summary) *table.Table {
	cols := map[string][]float64{
		table.TrackID:    make([]float64, len(sums)),
		CountColumn:      make([]float64, len(sums)),
		FirstFrameColumn: make([]float64, len(sums)),
		LastFrameColumn:  make([]float64, len(sums)),
		MeanStepColumn:   make([]float64, len(sums)),
		StepColumn:       make([]float64, len(sums)),
	}
	for i, s := range sums {
		cols[table.TrackID][i] = s.TrackID
		cols[CountColumn][i] = float64(s.Count)
		cols[FirstFrameColumn][i] = s.FirstFrame
		cols[LastFrameColumn][i] = s.LastFrame
		cols[MeanStepColumn][i] = s.MeanStep
		cols[StepColumn][i] = s.MedianStep
	}
	return table.MustFromColumns(
		[]string{table.TrackID, CountColumn, FirstFrameColumn, LastFrameColumn, MeanStepColumn, StepColumn},
		cols,
	)
}
