package biteen

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biteenlab/biteen-utilities/formatter"
	"github.com/biteenlab/biteen-utilities/imageio"
	"github.com/biteenlab/biteen-utilities/locdb"
	"github.com/biteenlab/biteen-utilities/matfile"
	"github.com/biteenlab/biteen-utilities/segmentation"
	"github.com/biteenlab/biteen-utilities/smalllabs"
	"github.com/biteenlab/biteen-utilities/table"
	"github.com/biteenlab/biteen-utilities/tracks"
	"github.com/biteenlab/biteen-utilities/utils"
)

// fits has a 3-localization track, a 1-localization track and one
// localization SMALL-LABS did not link.
func fits() *table.Table {
	return table.MustFromColumns(
		[]string{table.TrackID, table.Frame, table.X, table.Y, table.ROI, table.MoleculeID, table.Tracked},
		map[string][]float64{
			table.TrackID:    {1, 1, 2, 1, 3},
			table.Frame:      {0, 1, 0, 2, 4},
			table.X:          {0, 3, 10, 3, 20},
			table.Y:          {0, 4, 10, 5, 20},
			table.ROI:        {1, 1, 1, 1, 1},
			table.MoleculeID: {1, 2, 3, 4, 5},
			table.Tracked:    {1, 1, 1, 1, 0},
		},
	)
}

func writeFits(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, smalllabs.WriteFile(path, fits(), smalllabs.Options{}))
	return path
}

func TestSmallLabsFileToCSV(t *testing.T) {
	dir := t.TempDir()
	src := writeFits(t, dir, "cell1_fits.mat")

	dst, err := SmallLabsFileToCSV(src, Options{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cell1_fits.csv"), dst)

	got, err := formatter.ReadCSVFile(dst)
	require.NoError(t, err)
	assert.True(t, fits().Equal(got))
}

func TestSmallLabsFileToCSV_ExplicitDest(t *testing.T) {
	dir := t.TempDir()
	src := writeFits(t, dir, "cell1_fits.mat")
	want := filepath.Join(dir, "renamed.csv")

	dst, err := SmallLabsFileToCSV(src, Options{Dest: want})
	require.NoError(t, err)
	assert.Equal(t, want, dst)
	assert.FileExists(t, want)
}

func TestSmallLabsFolderToCSV_ContinuesPastFailures(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "csv")
	writeFits(t, dir, "a_fits.mat")
	writeFits(t, dir, "c_fits.mat")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b_fits.mat"), []byte("junk"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	dsts, err := SmallLabsFolderToCSV(dir, Options{DestFolder: out})
	assert.ErrorIs(t, err, utils.ErrIOFailure)
	assert.Equal(t, []string{filepath.Join(out, "a_fits.csv"), filepath.Join(out, "c_fits.csv")}, dsts)

	_, statErr := os.Stat(filepath.Join(out, "b_fits.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestBatch_RejectsExplicitDest(t *testing.T) {
	_, err := SmallLabsFolderToCSV(t.TempDir(), Options{Dest: "x.csv"})
	assert.ErrorIs(t, err, utils.ErrInvalidParameter)
}

func TestCSVToSmallLabs(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "cell1.csv")
	require.NoError(t, formatter.WriteCSVFile(src, fits()))

	dst, err := CSVToSmallLabs(src, Options{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cell1_fits.mat"), dst)

	got, err := smalllabs.ReadFile(dst, smalllabs.Options{})
	require.NoError(t, err)
	assert.True(t, fits().Equal(got))
}

func TestConvertImage(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "movie.npy")
	s := &imageio.Stack{Axes: "TYX", Shape: []int{2, 2, 2}, Data: []uint16{1, 2, 3, 4, 5, 6, 7, 8}}
	require.NoError(t, imageio.WriteFile(src, s))

	dst, err := ConvertImage(src, Options{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "movie.tif"), dst)

	got, err := imageio.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, s, got)

	_, err = ConvertImage(src, Options{Ext: ".npy"})
	assert.ErrorIs(t, err, utils.ErrInvalidParameter, "refuses to overwrite the source")
}

func TestConvertImageBatch(t *testing.T) {
	dir := t.TempDir()
	s := &imageio.Stack{Axes: "YX", Shape: []int{1, 2}, Data: []uint16{1, 2}}
	for _, name := range []string{"a.npy", "b.npy"} {
		require.NoError(t, imageio.WriteFile(filepath.Join(dir, name), s))
	}

	dsts, err := ConvertImageBatch(dir, Options{Pattern: "*.npy", Ext: ".tiff"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.tiff"), filepath.Join(dir, "b.tiff")}, dsts)
}

func TestCellposeToPhaseMask(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "masks")
	l := segmentation.NewLabels(1, 2, 3)
	l.Set(0, 1, 2, 5)
	require.NoError(t, segmentation.WriteNPY(filepath.Join(dir, "cell1_seg.npy"), l))

	dsts, err := CellposeToPhaseMaskBatch(dir, Options{DestFolder: out})
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(out, "cell1_PhaseMask.mat")}, dsts)

	b, err := matfile.Read(dsts[0])
	require.NoError(t, err)
	assert.Equal(t, 5.0, b.Matrices[segmentation.PhaseMaskName].At(1, 2))
}

func TestCellposeToPhaseMask_ReferenceSizeMismatch(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "cell1_seg.npy")
	require.NoError(t, segmentation.WriteNPY(src, segmentation.NewLabels(1, 4, 5)))
	movie := filepath.Join(dir, "movie.npy")
	require.NoError(t, imageio.WriteFile(movie, &imageio.Stack{Axes: "YX", Shape: []int{10, 10}, Data: make([]uint16, 100)}))

	_, err := CellposeToPhaseMask(src, Options{Reference: movie})
	assert.ErrorIs(t, err, utils.ErrShapeMismatch)
	assert.NoFileExists(t, filepath.Join(dir, "cell1_PhaseMask.mat"))
}

// writeMask writes a 4x5 mask with cell 3 at row 1, column 2 and returns
// its path.
func writeMask(t *testing.T, dir string) string {
	t.Helper()
	l := segmentation.NewLabels(1, 4, 5)
	l.Set(0, 1, 2, 3)
	path := filepath.Join(dir, "cell1_seg.npy")
	require.NoError(t, segmentation.WriteNPY(path, l))
	return path
}

func TestTagCSV(t *testing.T) {
	dir := t.TempDir()
	maskPath := writeMask(t, dir)
	src := filepath.Join(dir, "locs.csv")
	locs := table.MustFromColumns([]string{table.Frame, table.X, table.Y}, map[string][]float64{
		table.Frame: {0, 1, 1},
		table.X:     {2.2, 0, 40},
		table.Y:     {0.9, 0, 40},
	})
	require.NoError(t, formatter.WriteCSVFile(src, locs))

	movie := filepath.Join(dir, "movie.npy")
	require.NoError(t, imageio.WriteFile(movie, &imageio.Stack{Axes: "TYX", Shape: []int{2, 4, 5}, Data: make([]uint16, 40)}))
	small := filepath.Join(dir, "small.npy")
	require.NoError(t, imageio.WriteFile(small, &imageio.Stack{Axes: "TYX", Shape: []int{2, 10, 10}, Data: make([]uint16, 200)}))

	dst, err := TagCSV(src, maskPath, Options{Reference: movie})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "locs_tagged.csv"), dst)

	got, err := formatter.ReadCSVFile(dst)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 0, 0}, got.Column(table.Label))

	_, err = TagCSV(src, maskPath, Options{Reference: small, Dest: filepath.Join(dir, "other.csv")})
	assert.ErrorIs(t, err, utils.ErrShapeMismatch)
	assert.NoFileExists(t, filepath.Join(dir, "other.csv"))
}

func TestMaskRegionsCSV(t *testing.T) {
	dir := t.TempDir()
	maskPath := writeMask(t, dir)

	dst, err := MaskRegionsCSV(maskPath, Options{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cell1_regions.csv"), dst)

	got, err := formatter.ReadCSVFile(dst)
	require.NoError(t, err)
	assert.Equal(t, []float64{3}, got.Column(table.Label))
	assert.Equal(t, []float64{2}, got.Column(table.X))
	assert.Equal(t, []float64{1}, got.Column(table.Y))
	assert.Equal(t, []float64{1}, got.Column(segmentation.PixelCount))
}

func TestSmallLabsToSpotOn_LinkedOnly(t *testing.T) {
	dir := t.TempDir()
	src := writeFits(t, dir, "cell1_fits.mat")

	dst, err := SmallLabsToSpotOn(src, Options{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cell1_fits_spoton.csv"), dst)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, "x,y,t,frame,trajectory", lines[0])
	assert.Len(t, lines, 5, "header plus the four linked localizations")
}

func TestFilterCSV(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "locs.csv")
	require.NoError(t, formatter.WriteCSVFile(src, fits()))

	dst, err := FilterCSV(src, 2, 0, Options{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "locs_filtered.csv"), dst)

	got, err := formatter.ReadCSVFile(dst)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1}, got.Column(table.TrackID))
	assert.Equal(t, []float64{3, 3, 3}, got.Column(tracks.StepColumn))

	_, err = FilterCSV(src, 0, 0, Options{})
	assert.ErrorIs(t, err, utils.ErrInvalidParameter)
}

func TestTrackSummaryCSV(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "locs.csv")
	require.NoError(t, formatter.WriteCSVFile(src, fits()))

	dst, err := TrackSummaryCSV(src, Options{})
	require.NoError(t, err)

	got, err := formatter.ReadCSVFile(dst)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, got.Column(table.TrackID))
	assert.Equal(t, []float64{3, 1, 1}, got.Column(tracks.CountColumn))
}

func TestTrackSummaryCSV_JSON(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "locs.csv")
	require.NoError(t, formatter.WriteCSVFile(src, fits()))

	dst, err := TrackSummaryCSV(src, Options{Ext: "_tracks.json"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "locs_tracks.json"), dst)

	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	var rows []map[string]float64
	require.NoError(t, json.Unmarshal(b, &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, 3.0, rows[0][tracks.CountColumn])
}

func TestSmallLabsFolderToDB(t *testing.T) {
	dir := t.TempDir()
	writeFits(t, dir, "a_fits.mat")
	writeFits(t, dir, "b_fits.mat")
	dbPath := filepath.Join(dir, "locs.db")

	ids, err := SmallLabsFolderToDB(dir, dbPath, Options{})
	require.NoError(t, err)
	require.Len(t, ids, 2)

	db, err := locdb.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()

	list, err := db.Datasets()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a_fits.mat", list[0].Name)

	got, err := db.Load(ids[1])
	require.NoError(t, err)
	assert.True(t, fits().Equal(got))
}
