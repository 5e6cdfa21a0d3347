package utils

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// Warning type constants
const (
	// Export warnings
	WarningDroppedColumn   = "dropped_column"
	WarningSyntheticMolID  = "synthetic_molid"
	WarningNoTrackID       = "no_track_id"
	WarningOutsideLabels   = "outside_labels"
	WarningNonIntegerFrame = "non_integer_frame"
)

type warningInfo struct {
	count    int
	examples []string
}

// WarningAggregator collects warnings during one conversion and logs a
// consolidated summary per warning type.
type WarningAggregator struct {
	warnings map[string]*warningInfo
}

// NewWarningAggregator creates a new warning aggregator
func NewWarningAggregator() *WarningAggregator {
	return &WarningAggregator{
		warnings: make(map[string]*warningInfo),
	}
}

// Add records a warning occurrence with an example identifier
func (w *WarningAggregator) Add(warningType, example string) {
	if w.warnings[warningType] == nil {
		w.warnings[warningType] = &warningInfo{
			examples: make([]string, 0, 3),
		}
	}

	info := w.warnings[warningType]
	info.count++

	// Store up to 3 examples
	if len(info.examples) < 3 {
		info.examples = append(info.examples, example)
	}
}

// Count returns how many times warningType was recorded.
func (w *WarningAggregator) Count(warningType string) int {
	if info := w.warnings[warningType]; info != nil {
		return info.count
	}
	return 0
}

// Examples returns the recorded examples for warningType.
func (w *WarningAggregator) Examples(warningType string) []string {
	if info := w.warnings[warningType]; info != nil {
		return append([]string(nil), info.examples...)
	}
	return nil
}

// Empty reports whether no warnings were recorded.
func (w *WarningAggregator) Empty() bool {
	return len(w.warnings) == 0
}

// LogAll outputs all collected warnings, one line per type, in a stable order.
func (w *WarningAggregator) LogAll(component, source string) {
	types := make([]string, 0, len(w.warnings))
	for t := range w.warnings {
		types = append(types, t)
	}
	sort.Strings(types)

	for _, warningType := range types {
		info := w.warnings[warningType]
		log.Warn().
			Str("component", component).
			Str("source", source).
			Str("warning", warningType).
			Int("count", info.count).
			Str("examples", strings.Join(info.examples, ", ")).
			Msg(w.formatWarningMessage(warningType))
	}
}

func (w *WarningAggregator) formatWarningMessage(warningType string) string {
	var description, action string

	switch warningType {
	case WarningDroppedColumn:
		description = "columns with no field in the target format"
		action = "Writing output without them"
	case WarningSyntheticMolID:
		description = "tables without molecule_id"
		action = "Using row index as molid"
	case WarningNoTrackID:
		description = "localizations with no track_id"
		action = "Skipping them"
	case WarningOutsideLabels:
		description = "localizations outside the label array"
		action = "Tagging them as background"
	case WarningNonIntegerFrame:
		description = "non-integer frame values"
		action = "Truncating to integer frames"
	default:
		description = "unknown issue"
		action = "Continuing with fallback behavior"
	}

	return fmt.Sprintf("%s. %s", description, action)
}
