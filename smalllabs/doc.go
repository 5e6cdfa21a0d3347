// Package smalllabs converts between canonical tables and the SMALL-LABS
// fitting software's .mat containers.
//
// Field names follow the versioned "smalllabs" mapping in package config
// (x <-> col, y <-> row, intensity <-> sum, ...). Import keeps fields the
// mapping does not know as "extra.<field>" columns, and export writes them
// back under their original names, so a file read and re-written by this
// package keeps every field. Export drops canonical or user columns that have
// no field, following the configured unmapped-column policy.
package smalllabs
