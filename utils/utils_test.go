package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDestPath(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")

	tests := []struct {
		name        string
		src         string
		explicit    string
		folder      string
		ext         string
		stripSuffix string
		want        string
	}{
		{"explicit wins", "/data/a_fits.mat", "/tmp/x.csv", out, ".csv", "", "/tmp/x.csv"},
		{"replace extension", "/data/a_fits.mat", "", "", ".csv", "", "/data/a_fits.csv"},
		{"folder destination", "/data/movie.nd2", "", out, ".tif", "", filepath.Join(out, "movie.tif")},
		{"strip suffix", "/data/cell1_seg.npy", "", "", "_PhaseMask.mat", "_seg.npy", "/data/cell1_PhaseMask.mat"},
		{"suffix absent", "/data/cell1.npy", "", "", ".mat", "_seg.npy", "/data/cell1.mat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DestPath(tt.src, tt.explicit, tt.folder, tt.ext, tt.stripSuffix)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.True(t, info.IsDir(), "destination folder is created")
}

func TestGlob_Sorted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"c_fits.mat", "a_fits.mat", "b.csv", "b_fits.mat"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	files, err := Glob(dir, "*_fits.mat")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a_fits.mat"),
		filepath.Join(dir, "b_fits.mat"),
		filepath.Join(dir, "c_fits.mat"),
	}, files)

	_, err = Glob(dir, "[")
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	require.NoError(t, WriteAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "first")
		return err
	}))

	err := WriteAtomic(path, func(w io.Writer) error {
		io.WriteString(w, "partial")
		return errors.New("disk full")
	})
	assert.ErrorIs(t, err, ErrIOFailure)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first", string(b), "failed write keeps the previous file")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestWrapIO(t *testing.T) {
	assert.NoError(t, WrapIO(nil))

	plain := WrapIO(errors.New("boom"))
	assert.ErrorIs(t, plain, ErrIOFailure)

	shaped := fmt.Errorf("%w: 2x3 vs 3", ErrShapeMismatch)
	got := WrapIO(shaped)
	assert.Same(t, shaped, got)
	assert.False(t, errors.Is(got, ErrIOFailure))
}

func TestWarningAggregator(t *testing.T) {
	w := NewWarningAggregator()
	assert.True(t, w.Empty())

	for _, col := range []string{"a", "b", "c", "d"} {
		w.Add(WarningDroppedColumn, col)
	}
	w.Add(WarningSyntheticMolID, "cell1.csv")

	assert.False(t, w.Empty())
	assert.Equal(t, 4, w.Count(WarningDroppedColumn))
	assert.Equal(t, []string{"a", "b", "c"}, w.Examples(WarningDroppedColumn), "keeps at most three examples")
	assert.Equal(t, 1, w.Count(WarningSyntheticMolID))
	assert.Equal(t, 0, w.Count(WarningNoTrackID))
	assert.Nil(t, w.Examples(WarningNoTrackID))

	assert.Equal(t, "non-integer frame values. Truncating to integer frames",
		w.formatWarningMessage(WarningNonIntegerFrame))
	assert.Equal(t, "unknown issue. Continuing with fallback behavior", w.formatWarningMessage("other"))

	w.LogAll("test", "cell1.csv")
}
