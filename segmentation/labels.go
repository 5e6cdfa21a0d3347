// Package segmentation works with integer label arrays produced by cell
// segmentation (Cellpose masks): 0 is background, every other value one
// cell.
package segmentation

import (
	"fmt"
	"math"
	"strings"

	"github.com/biteenlab/biteen-utilities/imageio"
	"github.com/biteenlab/biteen-utilities/matfile"
	"github.com/biteenlab/biteen-utilities/npyfile"
	"github.com/biteenlab/biteen-utilities/utils"
)

// PhaseMaskName is the matrix SMALL-LABS reads cell masks from.
const PhaseMaskName = "PhaseMask"

// Labels is a stack of label planes in row-major order. A single 2D mask has
// Frames = 1.
type Labels struct {
	Frames, Rows, Cols int
	Data               []int32
}

// NewLabels allocates an all-background stack.
func NewLabels(frames, rows, cols int) *Labels {
	return &Labels{Frames: frames, Rows: rows, Cols: cols, Data: make([]int32, frames*rows*cols)}
}

// At returns the label at (frame, row, col).
func (l *Labels) At(frame, row, col int) int32 {
	return l.Data[(frame*l.Rows+row)*l.Cols+col]
}

// Set writes the label at (frame, row, col).
func (l *Labels) Set(frame, row, col int, v int32) {
	l.Data[(frame*l.Rows+row)*l.Cols+col] = v
}

func (l *Labels) inside(frame, row, col int) bool {
	return frame >= 0 && frame < l.Frames && row >= 0 && row < l.Rows && col >= 0 && col < l.Cols
}

// CheckShape fails with ErrShapeMismatch unless each plane is rows x cols.
func CheckShape(l *Labels, rows, cols int) error {
	if l.Rows != rows || l.Cols != cols {
		return fmt.Errorf("%w: labels are %dx%d, images are %dx%d", utils.ErrShapeMismatch, l.Rows, l.Cols, rows, cols)
	}
	return nil
}

// FromArray converts a 2D or 3D integer array.
func FromArray(a *npyfile.Array) (*Labels, error) {
	var l *Labels
	switch len(a.Shape) {
	case 2:
		l = NewLabels(1, a.Shape[0], a.Shape[1])
	case 3:
		l = NewLabels(a.Shape[0], a.Shape[1], a.Shape[2])
	default:
		return nil, fmt.Errorf("%w: label array has %d dimensions", utils.ErrUnsupportedDimensionality, len(a.Shape))
	}
	if strings.HasPrefix(a.DType, "f") {
		return nil, fmt.Errorf("%w: label array has float dtype %s", utils.ErrInvalidParameter, a.DType)
	}
	for i, v := range a.Data {
		if v < math.MinInt32 || v > math.MaxInt32 {
			return nil, fmt.Errorf("%w: label %g at index %d does not fit in int32", utils.ErrInvalidParameter, v, i)
		}
		l.Data[i] = int32(v)
	}
	return l, nil
}

// Array converts l for writing; single planes become 2D arrays.
func (l *Labels) Array() *npyfile.Array {
	shape := []int{l.Frames, l.Rows, l.Cols}
	if l.Frames == 1 {
		shape = shape[1:]
	}
	data := make([]float64, len(l.Data))
	for i, v := range l.Data {
		data[i] = float64(v)
	}
	return &npyfile.Array{Shape: shape, DType: "i4", Data: data}
}

// ReadNPY reads a label array from an .npy file.
func ReadNPY(path string) (*Labels, error) {
	a, err := npyfile.ReadFile(path)
	if err != nil {
		return nil, err
	}
	l, err := FromArray(a)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// ReadNPYFor reads a mask drawn on ref. Every mask plane must have the
// movie's frame size, and a multi-plane mask one plane per movie frame.
func ReadNPYFor(path string, ref *imageio.Stack) (*Labels, error) {
	if ref == nil {
		return nil, fmt.Errorf("%w: no reference image", utils.ErrInvalidParameter)
	}
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	l, err := ReadNPY(path)
	if err != nil {
		return nil, err
	}
	if err := CheckShape(l, ref.Rows(), ref.Cols()); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if l.Frames > 1 && l.Frames != ref.Dim('T') {
		return nil, fmt.Errorf("%s: %w: %d mask planes for %d frames", path, utils.ErrShapeMismatch, l.Frames, ref.Dim('T'))
	}
	return l, nil
}

// WriteNPY writes l as an int32 .npy file.
func WriteNPY(path string, l *Labels) error {
	return npyfile.WriteFile(path, l.Array())
}

// ToPhaseMask writes a single-plane mask as the PhaseMask matrix of a
// SMALL-LABS container.
func ToPhaseMask(l *Labels, path string) error {
	if l.Frames != 1 {
		return fmt.Errorf("%w: phase mask needs one plane, got %d", utils.ErrUnsupportedDimensionality, l.Frames)
	}
	data := make([]float64, len(l.Data))
	for i, v := range l.Data {
		data[i] = float64(v)
	}
	m, err := matfile.NewMatrix(l.Rows, l.Cols, data)
	if err != nil {
		return err
	}
	b := matfile.NewBundle()
	b.Matrices[PhaseMaskName] = m
	return matfile.Write(path, b)
}
