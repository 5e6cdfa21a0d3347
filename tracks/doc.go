// Package tracks computes per-track aggregates over a canonical table.
//
// Every operation is a stateless single pass that returns new values and
// leaves its input untouched. A track is the set of rows sharing a track_id,
// ordered by frame; rows with a NaN track_id belong to no track.
package tracks
