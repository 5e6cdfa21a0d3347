package smalllabs

import (
	"github.com/biteenlab/biteen-utilities/config"
)

// Container names used by SMALL-LABS.
const (
	groupFits     = "fits"
	matrixGuesses = "guesses"
	matrixTracks  = "tracks"
	matrixROINum  = "roinum"
	matrixTrkFilt = "trk_filt"
)

// Rows of the 6xM tracks matrix.
const (
	tracksFrame = iota
	tracksRow
	tracksCol
	tracksTrackID
	tracksROI
	tracksMolID
	tracksRows
)

// Options controls field mapping and the unmapped-column policy. Zero values
// fall back to config.Config.
type Options struct {
	Mapping        *config.FieldMapping
	UnmappedPolicy string
}

func (o Options) resolve() (config.FieldMapping, string, error) {
	policy := o.UnmappedPolicy
	if policy == "" {
		policy = config.Config.Conversion.UnmappedPolicy
	}
	if o.Mapping != nil {
		return *o.Mapping, policy, nil
	}
	m, err := config.Config.Mapping(config.FormatSmallLabs)
	return m, policy, err
}
