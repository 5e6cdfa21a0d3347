// Package npyfile reads and writes NumPy .npy arrays of arbitrary rank.
//
// Reading goes through github.com/sbinet/npyio, which handles dtype and
// byte-order decoding. Its writer takes the shape from the Go value, so
// arrays whose rank is only known at run time are written with a version
// 1.0 header built here.
package npyfile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/sbinet/npyio"

	"github.com/biteenlab/biteen-utilities/utils"
)

// Array is an n-dimensional array in C (row-major) order. DType is the
// NumPy kind and item size without byte order, e.g. "u2" or "i4".
type Array struct {
	Shape []int
	DType string
	Data  []float64
}

// Size returns the element count implied by Shape.
func (a *Array) Size() int {
	n := 1
	for _, d := range a.Shape {
		n *= d
	}
	return n
}

// ReadFile reads the .npy file at path.
func ReadFile(path string) (*Array, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrIOFailure, err)
	}
	defer f.Close()
	a, err := Read(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

// Read decodes an .npy stream. Fortran-ordered arrays are transposed into C
// order.
func Read(r io.Reader) (*Array, error) {
	nr, err := npyio.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrIOFailure, err)
	}
	descr := nr.Header.Descr
	kind := strings.TrimLeft(descr.Type, "<>|=")

	var data []float64
	switch kind {
	case "b1":
		data, err = readAs[bool](nr, func(v bool) float64 {
			if v {
				return 1
			}
			return 0
		})
	case "u1":
		data, err = readAs(nr, func(v uint8) float64 { return float64(v) })
	case "i1":
		data, err = readAs(nr, func(v int8) float64 { return float64(v) })
	case "u2":
		data, err = readAs(nr, func(v uint16) float64 { return float64(v) })
	case "i2":
		data, err = readAs(nr, func(v int16) float64 { return float64(v) })
	case "u4":
		data, err = readAs(nr, func(v uint32) float64 { return float64(v) })
	case "i4":
		data, err = readAs(nr, func(v int32) float64 { return float64(v) })
	case "u8":
		data, err = readAs(nr, func(v uint64) float64 { return float64(v) })
	case "i8":
		data, err = readAs(nr, func(v int64) float64 { return float64(v) })
	case "f4":
		data, err = readAs(nr, func(v float32) float64 { return float64(v) })
	case "f8":
		data, err = readAs(nr, func(v float64) float64 { return v })
	default:
		return nil, fmt.Errorf("%w: unsupported dtype %q", utils.ErrIOFailure, descr.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrIOFailure, err)
	}

	a := &Array{Shape: append([]int(nil), descr.Shape...), DType: kind, Data: data}
	if len(data) != a.Size() {
		return nil, fmt.Errorf("%w: %d values for shape %v", utils.ErrShapeMismatch, len(data), a.Shape)
	}
	if descr.Fortran {
		a.Data = fortranToC(data, a.Shape)
	}
	return a, nil
}

func readAs[T any](nr *npyio.Reader, conv func(T) float64) ([]float64, error) {
	var raw []T
	if err := nr.Read(&raw); err != nil {
		return nil, err
	}
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = conv(v)
	}
	return out, nil
}

// fortranToC reorders column-major data into row-major data.
func fortranToC(data []float64, shape []int) []float64 {
	if len(shape) < 2 {
		return data
	}
	out := make([]float64, len(data))
	idx := make([]int, len(shape))
	for c := range out {
		// c walks C order; find the matching Fortran offset.
		f, stride := 0, 1
		for k := 0; k < len(shape); k++ {
			f += idx[k] * stride
			stride *= shape[k]
		}
		out[c] = data[f]
		for k := len(shape) - 1; k >= 0; k-- {
			idx[k]++
			if idx[k] < shape[k] {
				break
			}
			idx[k] = 0
		}
	}
	return out
}

// WriteFile writes a to path atomically.
func WriteFile(path string, a *Array) error {
	return utils.WriteAtomic(path, func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		if err := Write(bw, a); err != nil {
			return err
		}
		return bw.Flush()
	})
}

// Write encodes a little-endian in its DType.
func Write(w io.Writer, a *Array) error {
	if len(a.Data) != a.Size() {
		return fmt.Errorf("%w: %d values for shape %v", utils.ErrShapeMismatch, len(a.Data), a.Shape)
	}
	descr, enc, err := encoder(a.DType)
	if err != nil {
		return err
	}
	if _, err := w.Write(header(descr, a.Shape)); err != nil {
		return err
	}
	buf := make([]byte, 0, 8)
	for _, v := range a.Data {
		buf = enc(buf[:0], v)
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

func encoder(dtype string) (string, func([]byte, float64) []byte, error) {
	le := binary.LittleEndian
	switch dtype {
	case "u1":
		return "|u1", func(b []byte, v float64) []byte { return append(b, uint8(v)) }, nil
	case "u2":
		return "<u2", func(b []byte, v float64) []byte { return le.AppendUint16(b, uint16(v)) }, nil
	case "i2":
		return "<i2", func(b []byte, v float64) []byte { return le.AppendUint16(b, uint16(int16(v))) }, nil
	case "i4":
		return "<i4", func(b []byte, v float64) []byte { return le.AppendUint32(b, uint32(int32(v))) }, nil
	case "u4":
		return "<u4", func(b []byte, v float64) []byte { return le.AppendUint32(b, uint32(v)) }, nil
	case "i8":
		return "<i8", func(b []byte, v float64) []byte { return le.AppendUint64(b, uint64(int64(v))) }, nil
	case "f8":
		return "<f8", func(b []byte, v float64) []byte { return le.AppendUint64(b, math.Float64bits(v)) }, nil
	}
	return "", nil, fmt.Errorf("%w: cannot write dtype %q", utils.ErrInvalidParameter, dtype)
}

// header builds a version 1.0 header padded so the data starts on a
// 64-byte boundary.
func header(descr string, shape []int) []byte {
	dims := make([]string, len(shape))
	for i, d := range shape {
		dims[i] = strconv.Itoa(d)
	}
	tuple := strings.Join(dims, ", ")
	if len(shape) == 1 {
		tuple += ","
	}
	dict := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': (%s), }", descr, tuple)

	const prefix = 10 // magic, version, header length
	pad := 64 - (prefix+len(dict)+1)%64
	if pad == 64 {
		pad = 0
	}
	dict += strings.Repeat(" ", pad) + "\n"

	var b bytes.Buffer
	b.WriteString("\x93NUMPY")
	b.Write([]byte{1, 0})
	binary.Write(&b, binary.LittleEndian, uint16(len(dict)))
	b.WriteString(dict)
	return b.Bytes()
}
