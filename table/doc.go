/*
Package table defines the canonical row-per-localization table shared by every
adapter.

A Table is a set of equally long float64 columns keyed by name. A row is one
localization: a single emitter detected in one frame. Rows that share a
track_id form a track. Missing values are NaN.

# Columns

Canonical columns come first, in this order:

	track_id, frame, x, y, intensity, width, background, uncertainty,
	roi, molecule_id, tracked, label

Everything else is an extra and keeps insertion order. Fields imported from a
legacy container that have no canonical column are stored as "extra.<field>"
so they survive a re-export.

# Presence

Columns appear and disappear across file formats. Adapters state what they
need with a Schema and call Check at their boundary:

	if err := table.LocalizationSchema.Check(t); err != nil {
	    return nil, err // wraps utils.ErrMissingRequiredField
	}
*/
package table
