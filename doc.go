// Package biteen converts single-molecule localization data and microscopy
// images between the formats used in the lab's analysis pipeline.
//
// The file-level entry points here mirror the command line tool: each takes
// a source file (or a folder plus glob pattern for batches) and Options
// that decide where the output goes. The format adapters live in their own
// packages (smalllabs, spoton, formatter, imageio, segmentation) and can be
// used directly on in-memory tables.
package biteen
