// Package imageio converts microscopy movies between container formats.
//
// Readers and writers are Codecs registered by file extension. NumPy and
// multi-page TIFF are built in; proprietary movie formats such as Nikon ND2
// are added by registering a Codec for their extension.
package imageio

import (
	"fmt"
	"strings"

	"github.com/biteenlab/biteen-utilities/utils"
)

// Axis letters.
const (
	AxisTime    = 'T'
	AxisChannel = 'C'
	AxisZ       = 'Z'
	AxisY       = 'Y'
	AxisX       = 'X'
)

// Stack is an image stack of 16-bit samples in row-major order. Axes names
// each dimension of Shape and always ends in "YX".
type Stack struct {
	Axes  string
	Shape []int
	Data  []uint16
}

// NewStack validates and wraps data.
func NewStack(axes string, shape []int, data []uint16) (*Stack, error) {
	s := &Stack{Axes: axes, Shape: shape, Data: data}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks that axes, shape and data agree.
func (s *Stack) Validate() error {
	if len(s.Axes) != len(s.Shape) {
		return fmt.Errorf("%w: axes %q for shape %v", utils.ErrShapeMismatch, s.Axes, s.Shape)
	}
	if !strings.HasSuffix(s.Axes, "YX") {
		return fmt.Errorf("%w: axes %q must end in YX", utils.ErrInvalidParameter, s.Axes)
	}
	n := 1
	for _, d := range s.Shape {
		if d < 0 {
			return fmt.Errorf("%w: negative dimension in %v", utils.ErrShapeMismatch, s.Shape)
		}
		n *= d
	}
	if n != len(s.Data) {
		return fmt.Errorf("%w: %d samples for shape %v", utils.ErrShapeMismatch, len(s.Data), s.Shape)
	}
	return nil
}

// Rows is the Y extent.
func (s *Stack) Rows() int { return s.Shape[len(s.Shape)-2] }

// Cols is the X extent.
func (s *Stack) Cols() int { return s.Shape[len(s.Shape)-1] }

// Planes returns the number of YX planes.
func (s *Stack) Planes() int {
	n := 1
	for _, d := range s.Shape[:len(s.Shape)-2] {
		n *= d
	}
	return n
}

// Plane returns the i-th YX plane without copying.
func (s *Stack) Plane(i int) []uint16 {
	size := s.Rows() * s.Cols()
	return s.Data[i*size : (i+1)*size]
}

// Dim returns the extent of axis, or 1 when the stack has no such axis.
func (s *Stack) Dim(axis byte) int {
	if i := strings.IndexByte(s.Axes, axis); i >= 0 {
		return s.Shape[i]
	}
	return 1
}

// Squeeze drops non-spatial axes of extent 1. The data is shared.
func (s *Stack) Squeeze() *Stack {
	out := &Stack{Data: s.Data}
	n := len(s.Axes)
	for i := 0; i < n; i++ {
		if i < n-2 && s.Shape[i] == 1 {
			continue
		}
		out.Axes += string(s.Axes[i])
		out.Shape = append(out.Shape, s.Shape[i])
	}
	return out
}

// axesForRank names the dimensions of an array that carries no axis
// metadata.
func axesForRank(rank int) (string, error) {
	switch rank {
	case 2:
		return "YX", nil
	case 3:
		return "TYX", nil
	case 4:
		return "TCYX", nil
	}
	return "", fmt.Errorf("%w: %d-dimensional image", utils.ErrUnsupportedDimensionality, rank)
}
