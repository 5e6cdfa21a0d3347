package segmentation

import (
	"fmt"
	"math"
	"sort"

	"github.com/biteenlab/biteen-utilities/table"
	"github.com/biteenlab/biteen-utilities/utils"
)

// PixelCount is the region size column written by Regions.
const PixelCount = "pixel_count"

// Tag returns a copy of t with a label column holding the label under each
// localization, sampled at the nearest pixel. Multi-frame stacks are
// indexed by the frame column. Localizations outside the array get 0.
func Tag(t *table.Table, l *Labels) (*table.Table, error) {
	warnings := utils.NewWarningAggregator()
	defer warnings.LogAll("segmentation", "tag")
	return tag(t, l, warnings)
}

func tag(t *table.Table, l *Labels, warnings *utils.WarningAggregator) (*table.Table, error) {
	required := table.Schema{Required: []string{table.X, table.Y}}
	if l.Frames > 1 {
		required.Required = append(required.Required, table.Frame)
	}
	if err := required.Check(t); err != nil {
		return nil, err
	}

	x, y := t.Column(table.X), t.Column(table.Y)
	frames := t.Column(table.Frame)
	labels := make([]float64, t.Len())
	for i := range labels {
		f := 0
		if l.Frames > 1 {
			f = int(math.Round(frames[i]))
		}
		r, c := math.Round(y[i]), math.Round(x[i])
		if math.IsNaN(r) || math.IsNaN(c) || !l.inside(f, int(r), int(c)) {
			warnings.Add(utils.WarningOutsideLabels, fmt.Sprintf("row %d", i))
			continue
		}
		labels[i] = float64(l.At(f, int(r), int(c)))
	}

	out := t.Clone()
	if err := out.Set(table.Label, labels); err != nil {
		return nil, err
	}
	return out, nil
}

type region struct {
	count      int
	sumX, sumY float64
}

// Regions describes every labelled region: its label, frame, centroid (x is
// the column, y the row) and pixel count, ordered by frame then label.
func Regions(l *Labels) (*table.Table, error) {
	var labelCol, frameCol, xCol, yCol, countCol []float64
	for f := 0; f < l.Frames; f++ {
		regions := map[int32]*region{}
		for r := 0; r < l.Rows; r++ {
			for c := 0; c < l.Cols; c++ {
				v := l.At(f, r, c)
				if v == 0 {
					continue
				}
				reg := regions[v]
				if reg == nil {
					reg = &region{}
					regions[v] = reg
				}
				reg.count++
				reg.sumX += float64(c)
				reg.sumY += float64(r)
			}
		}
		ids := make([]int32, 0, len(regions))
		for id := range regions {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			reg := regions[id]
			labelCol = append(labelCol, float64(id))
			frameCol = append(frameCol, float64(f))
			xCol = append(xCol, reg.sumX/float64(reg.count))
			yCol = append(yCol, reg.sumY/float64(reg.count))
			countCol = append(countCol, float64(reg.count))
		}
	}

	return table.FromColumns(
		[]string{table.Label, table.Frame, table.X, table.Y, PixelCount},
		map[string][]float64{
			table.Label: labelCol,
			table.Frame: frameCol,
			table.X:     xCol,
			table.Y:     yCol,
			PixelCount:  countCol,
		},
	)
}
