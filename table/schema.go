package table

import (
	"fmt"
	"strings"

	"github.com/biteenlab/biteen-utilities/utils"
)

// Canonical column names.
const (
	TrackID     = "track_id"
	Frame       = "frame"
	X           = "x"
	Y           = "y"
	Intensity   = "intensity"
	Width       = "width"
	Background  = "background"
	Uncertainty = "uncertainty"
	ROI         = "roi"
	MoleculeID  = "molecule_id"
	Tracked     = "tracked"
	Label       = "label"
)

// ExtraPrefix namespaces columns carried over from unmapped legacy fields.
const ExtraPrefix = "extra."

// Canonical lists the canonical columns in output order.
var Canonical = []string{
	TrackID, Frame, X, Y, Intensity, Width, Background, Uncertainty,
	ROI, MoleculeID, Tracked, Label,
}

var canonicalRank = func() map[string]int {
	m := make(map[string]int, len(Canonical))
	for i, c := range Canonical {
		m[c] = i
	}
	return m
}()

// IsCanonical reports whether name is a canonical column.
func IsCanonical(name string) bool {
	_, ok := canonicalRank[name]
	return ok
}

// IsExtra reports whether name lives in the extra namespace.
func IsExtra(name string) bool {
	return strings.HasPrefix(name, ExtraPrefix)
}

// ExtraName returns the extra-namespace column name for a legacy field.
func ExtraName(field string) string {
	return ExtraPrefix + field
}

// Schema is a column-presence contract checked at adapter boundaries.
type Schema struct {
	Required []string
	Optional []string
}

// Common contracts.
var (
	// LocalizationSchema is the minimum for any localization table.
	LocalizationSchema = Schema{
		Required: []string{Frame, X, Y},
		Optional: []string{TrackID, Intensity, Width, Background, Uncertainty},
	}
	// TrackSchema adds the track identifier.
	TrackSchema = Schema{
		Required: []string{TrackID, Frame, X, Y},
		Optional: []string{Intensity, Width, Background, Uncertainty},
	}
)

// Check fails with ErrMissingRequiredField naming every absent required column.
func (s Schema) Check(t *Table) error {
	var missing []string
	for _, c := range s.Required {
		if t == nil || !t.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", utils.ErrMissingRequiredField, strings.Join(missing, ", "))
	}
	return nil
}

// Missing returns the optional columns t does not carry.
func (s Schema) Missing(t *Table) []string {
	var out []string
	for _, c := range s.Optional {
		if !t.Has(c) {
			out = append(out, c)
		}
	}
	return out
}
