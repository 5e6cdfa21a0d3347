/*
Package matfile reads and writes the structured named-field containers used by
the legacy fitting software.

A container is an HDF5 file (the storage behind MATLAB v7.3 .mat files) with
top-level numeric matrices and groups of named numeric fields:

	fits/            group, one 1xN dataset per field (frame, row, col, ...)
	tracks           6xM matrix
	PhaseMask        rows x cols label matrix

Matrices are row-major, matching what h5py shows for a MATLAB-written file.
Every value is read as float64 whatever its stored integer or float type.
Containers are read or written whole and never modified in place.
*/
package matfile
