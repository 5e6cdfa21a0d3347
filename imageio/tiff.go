package imageio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/image/tiff"

	"github.com/biteenlab/biteen-utilities/utils"
)

// TIFF tags and field types used by the page walker and writer.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagDescription     = 270
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279

	typeASCII = 2
	typeShort = 3
	typeLong  = 4

	maxPages = 1 << 20
)

const axesPrefix = "axes="

type tiffCodec struct{}

// Read decodes every page of a grayscale TIFF. golang.org/x/image/tiff only
// decodes the first image directory, so each page is decoded through a
// reader that points the header at that page's directory.
func (tiffCodec) Read(path string) (*Stack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrIOFailure, err)
	}
	defer f.Close()

	order, ifds, desc, err := walkIFDs(f)
	if err != nil {
		return nil, err
	}

	var rows, cols int
	var data []uint16
	for i, off := range ifds {
		img, err := tiff.Decode(&pageReader{r: f, order: order, ifd: off})
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", utils.ErrIOFailure, i, err)
		}
		b := img.Bounds()
		if i == 0 {
			rows, cols = b.Dy(), b.Dx()
			data = make([]uint16, 0, len(ifds)*rows*cols)
		} else if b.Dy() != rows || b.Dx() != cols {
			return nil, fmt.Errorf("%w: page %d is %dx%d, page 0 is %dx%d", utils.ErrShapeMismatch, i, b.Dy(), b.Dx(), rows, cols)
		}
		data = appendGray16(data, img)
	}

	axes := "TYX"
	if len(ifds) == 1 {
		axes = "YX"
	}
	if a, ok := strings.CutPrefix(desc, axesPrefix); ok && (len(a) == 2 || len(a) == 3) && strings.HasSuffix(a, "YX") {
		axes = a
	}
	shape := []int{rows, cols}
	if len(axes) == 3 {
		shape = []int{len(ifds), rows, cols}
	} else if len(ifds) != 1 {
		return nil, fmt.Errorf("%w: description says %s but file has %d pages", utils.ErrShapeMismatch, axes, len(ifds))
	}
	return NewStack(axes, shape, data)
}

func appendGray16(dst []uint16, img image.Image) []uint16 {
	b := img.Bounds()
	switch m := img.(type) {
	case *image.Gray16:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				dst = append(dst, m.Gray16At(x, y).Y)
			}
		}
	case *image.Gray:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				dst = append(dst, uint16(m.GrayAt(x, y).Y))
			}
		}
	default:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				dst = append(dst, color.Gray16Model.Convert(img.At(x, y)).(color.Gray16).Y)
			}
		}
	}
	return dst
}

// walkIFDs returns the byte order, the offset of every image directory and
// the first page's ImageDescription.
func walkIFDs(r io.ReaderAt) (binary.ByteOrder, []uint32, string, error) {
	var hdr [8]byte
	if _, err := r.ReadAt(hdr[:], 0); err != nil {
		return nil, nil, "", fmt.Errorf("%w: tiff header: %v", utils.ErrIOFailure, err)
	}
	var order binary.ByteOrder
	switch string(hdr[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, nil, "", fmt.Errorf("%w: not a tiff file", utils.ErrIOFailure)
	}
	if order.Uint16(hdr[2:4]) != 42 {
		return nil, nil, "", fmt.Errorf("%w: not a classic tiff file", utils.ErrIOFailure)
	}

	var ifds []uint32
	var desc string
	seen := map[uint32]bool{}
	for off := order.Uint32(hdr[4:8]); off != 0; {
		if seen[off] || len(ifds) >= maxPages {
			return nil, nil, "", fmt.Errorf("%w: image directory chain loops", utils.ErrIOFailure)
		}
		seen[off] = true
		ifds = append(ifds, off)

		var cnt [2]byte
		if _, err := r.ReadAt(cnt[:], int64(off)); err != nil {
			return nil, nil, "", fmt.Errorf("%w: directory at %d: %v", utils.ErrIOFailure, off, err)
		}
		n := int64(order.Uint16(cnt[:]))
		entries := make([]byte, n*12+4)
		if _, err := r.ReadAt(entries, int64(off)+2); err != nil {
			return nil, nil, "", fmt.Errorf("%w: directory at %d: %v", utils.ErrIOFailure, off, err)
		}
		if len(ifds) == 1 {
			desc = description(r, order, entries[:n*12])
		}
		off = order.Uint32(entries[n*12:])
	}
	if len(ifds) == 0 {
		return nil, nil, "", fmt.Errorf("%w: tiff has no images", utils.ErrIOFailure)
	}
	return order, ifds, desc, nil
}

func description(r io.ReaderAt, order binary.ByteOrder, entries []byte) string {
	for e := 0; e+12 <= len(entries); e += 12 {
		ent := entries[e : e+12]
		if order.Uint16(ent[0:2]) != tagDescription || order.Uint16(ent[2:4]) != typeASCII {
			continue
		}
		count := order.Uint32(ent[4:8])
		var buf []byte
		if count <= 4 {
			buf = ent[8 : 8+count]
		} else {
			buf = make([]byte, count)
			if _, err := r.ReadAt(buf, int64(order.Uint32(ent[8:12]))); err != nil {
				return ""
			}
		}
		return strings.TrimRight(string(buf), "\x00")
	}
	return ""
}

// pageReader presents a TIFF file whose header points at one chosen image
// directory.
type pageReader struct {
	r     io.ReaderAt
	order binary.ByteOrder
	ifd   uint32
	pos   int64
}

func (p *pageReader) ReadAt(b []byte, off int64) (int, error) {
	n, err := p.r.ReadAt(b, off)
	var patch [4]byte
	p.order.PutUint32(patch[:], p.ifd)
	for i := int64(4); i < 8; i++ {
		if j := i - off; j >= 0 && j < int64(n) {
			b[j] = patch[i-4]
		}
	}
	return n, err
}

func (p *pageReader) Read(b []byte) (int, error) {
	n, err := p.ReadAt(b, p.pos)
	p.pos += int64(n)
	return n, err
}

// Write stores a stack with at most one non-spatial axis as one 16-bit
// grayscale page per plane.
func (tiffCodec) Write(path string, s *Stack) error {
	if s.Dim(AxisChannel) > 1 {
		return fmt.Errorf("%w: tiff cannot hold %d channels", utils.ErrUnsupportedDimensionality, s.Dim(AxisChannel))
	}
	out := s
	if len(out.Axes) > 3 {
		out = s.Squeeze()
	}
	if len(out.Axes) > 3 {
		return fmt.Errorf("%w: tiff holds one non-spatial axis, stack is %s", utils.ErrUnsupportedDimensionality, s.Axes)
	}
	return utils.WriteAtomic(path, func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		if err := writeTIFF(bw, out); err != nil {
			return err
		}
		return bw.Flush()
	})
}

type ifdEntry struct {
	tag, typ     uint16
	count, value uint32
}

// writeTIFF lays out a little-endian classic TIFF: header, description,
// then strip data followed by its directory for each page.
func writeTIFF(w io.Writer, s *Stack) error {
	rows, cols, planes := s.Rows(), s.Cols(), s.Planes()
	if planes == 0 {
		return fmt.Errorf("%w: stack has no planes", utils.ErrInvalidParameter)
	}
	desc := append([]byte(axesPrefix+s.Axes), 0)
	if len(desc)%2 == 1 {
		desc = append(desc, 0)
	}

	const nEntries = 10
	stripBytes := uint64(rows * cols * 2)
	ifdBytes := uint64(2 + nEntries*12 + 4)
	if 8+uint64(len(desc))+uint64(planes)*(stripBytes+ifdBytes) > math.MaxUint32 {
		return fmt.Errorf("%w: stack too large for classic tiff", utils.ErrInvalidParameter)
	}

	le := binary.LittleEndian
	descOff := uint32(8)
	off := descOff + uint32(len(desc))
	firstIFD := off + uint32(stripBytes)

	hdr := []byte{'I', 'I', 42, 0}
	hdr = le.AppendUint32(hdr, firstIFD)
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	if _, err := w.Write(desc); err != nil {
		return err
	}

	buf := make([]byte, 0, stripBytes)
	for p := 0; p < planes; p++ {
		stripOff := off
		ifdOff := stripOff + uint32(stripBytes)
		next := uint32(0)
		if p < planes-1 {
			next = ifdOff + uint32(ifdBytes) + uint32(stripBytes)
		}

		buf = buf[:0]
		for _, v := range s.Plane(p) {
			buf = le.AppendUint16(buf, v)
		}
		if _, err := w.Write(buf); err != nil {
			return err
		}

		entries := []ifdEntry{
			{tagImageWidth, typeLong, 1, uint32(cols)},
			{tagImageLength, typeLong, 1, uint32(rows)},
			{tagBitsPerSample, typeShort, 1, 16},
			{tagCompression, typeShort, 1, 1},
			{tagPhotometric, typeShort, 1, 1},
			{tagDescription, typeASCII, uint32(len(desc)), descOff},
			{tagStripOffsets, typeLong, 1, stripOff},
			{tagSamplesPerPixel, typeShort, 1, 1},
			{tagRowsPerStrip, typeLong, 1, uint32(rows)},
			{tagStripByteCounts, typeLong, 1, uint32(stripBytes)},
		}
		ifd := le.AppendUint16(nil, nEntries)
		for _, e := range entries {
			ifd = le.AppendUint16(ifd, e.tag)
			ifd = le.AppendUint16(ifd, e.typ)
			ifd = le.AppendUint32(ifd, e.count)
			ifd = le.AppendUint32(ifd, e.value)
		}
		ifd = le.AppendUint32(ifd, next)
		if _, err := w.Write(ifd); err != nil {
			return err
		}
		off = ifdOff + uint32(ifdBytes)
	}
	return nil
}
