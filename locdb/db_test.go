package locdb

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biteenlab/biteen-utilities/table"
	"github.com/biteenlab/biteen-utilities/utils"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "locs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func locs() *table.Table {
	return table.MustFromColumns(
		[]string{table.TrackID, table.Frame, table.X, table.Y, "extra.widthr", "d_med"},
		map[string][]float64{
			table.TrackID:  {1, 1, math.NaN()},
			table.Frame:    {0, 1, 2},
			table.X:        {0.1, 1.0 / 3.0, 1e300},
			table.Y:        {-2, 0, 5},
			"extra.widthr": {math.NaN(), math.NaN(), math.NaN()},
			"d_med":        {3, 3, math.NaN()},
		},
	)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	src := locs()

	id, err := db.Save("cell1", src)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	got, err := db.Load(id)
	require.NoError(t, err)
	assert.Equal(t, src.Columns(), got.Columns())
	for _, c := range src.Columns() {
		if diff := cmp.Diff(src.Column(c), got.Column(c), cmpopts.EquateNaNs()); diff != "" {
			t.Errorf("column %s mismatch (-want +got):\n%s", c, diff)
		}
	}
}

func TestSave_EmptyTable(t *testing.T) {
	db := openTestDB(t)
	id, err := db.Save("empty", table.New(0))
	require.NoError(t, err)

	got, err := db.Load(id)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
	assert.Empty(t, got.Columns())
}

func TestDatasets_And_Delete(t *testing.T) {
	db := openTestDB(t)

	first, err := db.Save("cell1", locs())
	require.NoError(t, err)
	second, err := db.Save("cell2", locs().Select([]int{0}))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	list, err := db.Datasets()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "cell1", list[0].Name)
	assert.Equal(t, 3, list[0].Rows)
	assert.Equal(t, 6, list[0].Columns)
	assert.Equal(t, 1, list[1].Rows)
	assert.False(t, list[1].Created.IsZero())

	require.NoError(t, db.Delete(first))
	_, err = db.Load(first)
	assert.ErrorIs(t, err, utils.ErrInvalidParameter)
	assert.ErrorIs(t, db.Delete(first), utils.ErrInvalidParameter)

	list, err = db.Datasets()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, second, list[0].ID)
}

func TestReopen_KeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locs.db")
	db, err := Open(path)
	require.NoError(t, err)
	id, err := db.Save("cell1", locs())
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	got, err := db.Load(id)
	require.NoError(t, err)
	assert.True(t, locs().Equal(got))
}
