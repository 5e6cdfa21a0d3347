// Package spoton reads and writes the flat trajectory CSV consumed by the
// Spot-On diffusion analysis tool: one row per localization with fields
// x,y (µm), t (s), frame and trajectory.
package spoton
