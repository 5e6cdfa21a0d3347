package imageio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/biteenlab/biteen-utilities/npyfile"
	"github.com/biteenlab/biteen-utilities/utils"
)

func ramp(axes string, shape ...int) *Stack {
	n := 1
	for _, d := range shape {
		n *= d
	}
	data := make([]uint16, n)
	for i := range data {
		data[i] = uint16(i * 257)
	}
	return &Stack{Axes: axes, Shape: shape, Data: data}
}

func TestStack_Validate(t *testing.T) {
	tests := []struct {
		name  string
		stack *Stack
		want  error
	}{
		{"ok", ramp("TYX", 2, 3, 4), nil},
		{"axes rank", &Stack{Axes: "YX", Shape: []int{1, 2, 2}, Data: make([]uint16, 4)}, utils.ErrShapeMismatch},
		{"data size", &Stack{Axes: "YX", Shape: []int{2, 2}, Data: make([]uint16, 3)}, utils.ErrShapeMismatch},
		{"not spatial last", &Stack{Axes: "YXT", Shape: []int{2, 2, 1}, Data: make([]uint16, 4)}, utils.ErrInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.stack.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestStack_Squeeze(t *testing.T) {
	s := ramp("TCYX", 3, 1, 2, 2).Squeeze()
	assert.Equal(t, "TYX", s.Axes)
	assert.Equal(t, []int{3, 2, 2}, s.Shape)
	assert.Equal(t, 3, s.Planes())

	one := ramp("TYX", 1, 1, 1).Squeeze()
	assert.Equal(t, "YX", one.Axes, "spatial axes are never dropped")
}

func TestTIFF_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		stack *Stack
	}{
		{"movie", ramp("TYX", 3, 4, 5)},
		{"single frame movie", ramp("TYX", 1, 2, 2)},
		{"plane", ramp("YX", 6, 7)},
		{"z stack", ramp("ZYX", 2, 3, 3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "movie.tif")
			require.NoError(t, WriteFile(path, tt.stack))

			got, err := ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.stack, got)
		})
	}
}

func TestTIFF_FirstPageReadableByStandardDecoder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movie.tiff")
	s := ramp("TYX", 2, 3, 4)
	require.NoError(t, WriteFile(path, s))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := tiff.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())
	assert.Equal(t, 3, img.Bounds().Dy())
	r, _, _, _ := img.At(1, 0).RGBA()
	assert.Equal(t, uint32(257), r)
}

func TestTIFF_RejectsExtraAxes(t *testing.T) {
	tests := []struct {
		name  string
		stack *Stack
	}{
		{"channels", ramp("CYX", 2, 2, 2)},
		{"time and channels", ramp("TCYX", 2, 2, 2, 2)},
		{"time and z", ramp("TZYX", 2, 3, 2, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.tif")
			err := WriteFile(path, tt.stack)
			assert.ErrorIs(t, err, utils.ErrUnsupportedDimensionality)

			_, statErr := os.Stat(path)
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestTIFF_SingletonChannelAccepted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.tif")
	require.NoError(t, WriteFile(path, ramp("TCYX", 2, 1, 2, 2)))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ramp("TYX", 2, 2, 2), got)
}

func TestTIFF_NotATIFF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.tif")
	require.NoError(t, os.WriteFile(path, []byte("PK\x03\x04 certainly not a tiff"), 0o644))

	_, err := ReadFile(path)
	assert.ErrorIs(t, err, utils.ErrIOFailure)
}

func TestNPY_RoundTripAndAxes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movie.npy")
	s := ramp("TCYX", 2, 1, 2, 3)
	require.NoError(t, WriteFile(path, s))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, s, got)

	u8 := filepath.Join(t.TempDir(), "bytes.npy")
	require.NoError(t, npyfile.WriteFile(u8, &npyfile.Array{Shape: []int{1, 2}, DType: "u1", Data: []float64{3, 250}}))
	got, err = ReadFile(u8)
	require.NoError(t, err)
	assert.Equal(t, []uint16{3, 250}, got.Data)

	f8 := filepath.Join(t.TempDir(), "float.npy")
	require.NoError(t, npyfile.WriteFile(f8, &npyfile.Array{Shape: []int{1, 1}, DType: "f8", Data: []float64{0.5}}))
	_, err = ReadFile(f8)
	assert.ErrorIs(t, err, utils.ErrInvalidParameter)
}

func TestConvert_NPYToTIFFAndBack(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "movie.npy")
	tif := filepath.Join(dir, "movie.tif")
	back := filepath.Join(dir, "back.npy")
	s := ramp("TYX", 4, 3, 3)

	require.NoError(t, WriteFile(src, s))
	require.NoError(t, Convert(src, tif))
	require.NoError(t, Convert(tif, back))

	got, err := ReadFile(back)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestConvert_UnknownExtension(t *testing.T) {
	dir := t.TempDir()
	err := Convert(filepath.Join(dir, "movie.czi"), filepath.Join(dir, "movie.tif"))
	assert.ErrorIs(t, err, utils.ErrIOFailure)
}

// memCodec stands in for a proprietary reader.
type memCodec struct{ stack *Stack }

func (m memCodec) Read(string) (*Stack, error) { return m.stack, nil }
func (m memCodec) Write(string, *Stack) error { return nil }

func TestRegister_PluggableReader(t *testing.T) {
	Register("ND2", memCodec{stack: ramp("TCYX", 2, 2, 2, 2)})
	t.Cleanup(func() {
		codecsMu.Lock()
		delete(codecs, ".nd2")
		codecsMu.Unlock()
	})

	dir := t.TempDir()
	err := Convert(filepath.Join(dir, "cell.nd2"), filepath.Join(dir, "cell.tif"))
	assert.ErrorIs(t, err, utils.ErrUnsupportedDimensionality, "two channels cannot go to tiff")

	require.NoError(t, Convert(filepath.Join(dir, "cell.nd2"), filepath.Join(dir, "cell.npy")))
	got, err := ReadFile(filepath.Join(dir, "cell.npy"))
	require.NoError(t, err)
	assert.Equal(t, "TCYX", got.Axes)
}
