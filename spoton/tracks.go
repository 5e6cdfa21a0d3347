package spoton

import (
	"fmt"
	"math"

	"github.com/biteenlab/biteen-utilities/config"
	"github.com/biteenlab/biteen-utilities/table"
	"github.com/biteenlab/biteen-utilities/utils"
)

// timeField is the only Spot-On field with no canonical column; it is
// rebuilt from frame on export.
const timeField = "t"

// Options sets units and numbering. Zero values fall back to config.Config.
type Options struct {
	PixelSizeUM    float64
	FrameIntervalS float64
	// IDBase is the first trajectory id; nil uses the configured base.
	IDBase         *int
	UnmappedPolicy string
	Mapping        *config.FieldMapping
}

type resolved struct {
	pixel    float64
	interval float64
	base     int
	policy   string
	mapping  config.FieldMapping
}

func (o Options) resolve() (resolved, error) {
	conv := config.Config.Conversion
	r := resolved{
		pixel:    o.PixelSizeUM,
		interval: o.FrameIntervalS,
		base:     conv.TrajectoryIDBase,
		policy:   o.UnmappedPolicy,
	}
	if r.pixel == 0 {
		r.pixel = conv.PixelSizeUM
	}
	if r.interval == 0 {
		r.interval = conv.FrameIntervalS
	}
	if o.IDBase != nil {
		r.base = *o.IDBase
	}
	if r.policy == "" {
		r.policy = conv.UnmappedPolicy
	}
	if r.pixel <= 0 || r.interval <= 0 || r.base < 0 {
		return r, fmt.Errorf("%w: pixel size %g, frame interval %g, id base %d", utils.ErrInvalidParameter, r.pixel, r.interval, r.base)
	}
	if o.Mapping != nil {
		r.mapping = *o.Mapping
		return r, nil
	}
	m, err := config.Config.Mapping(config.FormatSpotOn)
	if err != nil {
		return r, err
	}
	r.mapping = m
	return r, nil
}

// Track is one trajectory in the structured form Spot-On works on.
type Track struct {
	ID         int
	XY         [][2]float64
	TimeStamps []float64
	Frames     []int
}

// Tracks groups t into trajectories renumbered from the id base in order of
// first appearance. Coordinates are scaled to µm and timestamps are
// frame × frame interval. Rows without a track id are skipped.
func Tracks(t *table.Table, opts Options) ([]Track, error) {
	warnings := utils.NewWarningAggregator()
	defer warnings.LogAll(config.FormatSpotOn, "tracks")
	r, err := opts.resolve()
	if err != nil {
		return nil, err
	}
	return buildTracks(t, r, warnings)
}

func buildTracks(t *table.Table, r resolved, warnings *utils.WarningAggregator) ([]Track, error) {
	if err := table.TrackSchema.Check(t); err != nil {
		return nil, err
	}

	ids, rows := table.GroupRows(t, table.TrackID)
	if skipped := t.Len() - countRows(rows); skipped > 0 {
		warnings.Add(utils.WarningNoTrackID, fmt.Sprintf("%d rows", skipped))
	}

	x, y, frame := t.Column(table.X), t.Column(table.Y), t.Column(table.Frame)
	out := make([]Track, 0, len(ids))
	for i, id := range ids {
		tr := Track{ID: r.base + i}
		for _, row := range rows[id] {
			f := frame[row]
			if math.IsNaN(f) {
				return nil, fmt.Errorf("%w: track %g row %d has no frame", utils.ErrInvalidParameter, id, row)
			}
			if f != math.Trunc(f) {
				warnings.Add(utils.WarningNonIntegerFrame, fmt.Sprintf("row %d", row))
			}
			fi := int(f)
			tr.XY = append(tr.XY, [2]float64{x[row] * r.pixel, y[row] * r.pixel})
			tr.Frames = append(tr.Frames, fi)
			tr.TimeStamps = append(tr.TimeStamps, float64(fi)*r.interval)
		}
		out = append(out, tr)
	}
	return out, nil
}

func countRows(rows map[float64][]int) int {
	n := 0
	for _, r := range rows {
		n += len(r)
	}
	return n
}
