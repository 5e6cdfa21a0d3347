// Package formatter serializes canonical tables.
//
// This package is organized into:
// - csv.go: delimited text, schema preserving, both directions
// - json.go: JSON records for downstream tools, and WriteFile choosing
//   between the two by file extension
//
// Numbers are written with the shortest representation that parses back to
// the same float64, so a write/read cycle never rounds.
package formatter
