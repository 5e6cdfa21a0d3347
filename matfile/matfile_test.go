package matfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biteenlab/biteen-utilities/utils"
)

func TestWriteRead_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cell_fits.mat")

	tracks, err := NewMatrix(2, 3, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	b := NewBundle()
	b.Matrices["tracks"] = tracks
	fits := NewGroup()
	fits.Fields["frame"] = RowVector([]float64{0, 1, 2})
	fits.Fields["col"] = RowVector([]float64{10.25, 11.5, 12.125})
	b.Groups["fits"] = fits

	require.NoError(t, Write(path, b))

	got, err := Read(path)
	require.NoError(t, err)

	assert.True(t, got.Has("tracks"))
	assert.True(t, got.Has("fits"))
	assert.Equal(t, tracks, got.Matrices["tracks"])
	assert.Equal(t, []string{"col", "frame"}, got.Groups["fits"].Names())

	col, err := got.Groups["fits"].Fields["col"].Vector()
	require.NoError(t, err)
	assert.Equal(t, []float64{10.25, 11.5, 12.125}, col)
	assert.Equal(t, []float64{4, 5, 6}, got.Matrices["tracks"].Row(1))
	assert.Equal(t, 6.0, got.Matrices["tracks"].At(1, 2))
}

func TestWrite_EmptyMatrix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.mat")
	b := NewBundle()
	b.Matrices["tracks"] = &Matrix{Rows: 6, Cols: 0}

	require.NoError(t, Write(path, b))
	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, 6, got.Matrices["tracks"].Rows)
	assert.Equal(t, 0, got.Matrices["tracks"].Cols)
}

func TestWrite_BadShapeLeavesNoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.mat")
	b := NewBundle()
	b.Matrices["m"] = &Matrix{Rows: 2, Cols: 2, Data: []float64{1}}

	err := Write(path, b)
	assert.ErrorIs(t, err, utils.ErrShapeMismatch)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRead_Failures(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.mat")
	require.NoError(t, os.WriteFile(garbage, []byte("not an hdf5 file"), 0o644))

	_, err := Read(filepath.Join(dir, "missing.mat"))
	assert.ErrorIs(t, err, utils.ErrIOFailure)

	_, err = Read(garbage)
	assert.ErrorIs(t, err, utils.ErrIOFailure)
}

func TestMatrix_Shapes(t *testing.T) {
	_, err := NewMatrix(2, 2, []float64{1, 2, 3})
	assert.ErrorIs(t, err, utils.ErrShapeMismatch)

	col := &Matrix{Rows: 3, Cols: 1, Data: []float64{1, 2, 3}}
	v, err := col.Vector()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, v)

	sq := &Matrix{Rows: 2, Cols: 2, Data: []float64{1, 2, 3, 4}}
	_, err = sq.Vector()
	assert.ErrorIs(t, err, utils.ErrShapeMismatch)
}
