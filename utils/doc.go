// Package utils provides shared helpers for the biteen-utilities converters.
//
// It contains:
//   - Error kinds returned by every adapter
//   - Destination path rules and atomic file writes
//   - Warning aggregation for lossy conversions
package utils
