package overlay

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/biteenlab/biteen-utilities/imageio"
	"github.com/biteenlab/biteen-utilities/utils"
)

type layer struct {
	name    string
	stack   *imageio.Stack
	points  []Point
	visible bool
}

// PlotSink renders one PNG per frame into a directory when closed. Images
// are contrast-stretched to their own range. Plot y grows upward, so
// frames appear mirrored top to bottom against an image viewer.
type PlotSink struct {
	dir    string
	size   vg.Length
	layers []*layer
	files  []string
}

// NewPlotSink renders into dir, created on Close if missing.
func NewPlotSink(dir string) *PlotSink {
	return &PlotSink{dir: dir, size: 6 * vg.Inch}
}

func (p *PlotSink) find(name string) *layer {
	for _, l := range p.layers {
		if l.name == name {
			return l
		}
	}
	return nil
}

func (p *PlotSink) add(l *layer) error {
	if p.find(l.name) != nil {
		return fmt.Errorf("%w: layer %q already exists", utils.ErrInvalidParameter, l.name)
	}
	p.layers = append(p.layers, l)
	return nil
}

// AddImage adds a visible image layer.
func (p *PlotSink) AddImage(name string, s *imageio.Stack) error {
	return p.add(&layer{name: name, stack: s, visible: true})
}

// AddTracks adds a visible points layer.
func (p *PlotSink) AddTracks(name string, pts []Point) error {
	return p.add(&layer{name: name, points: pts, visible: true})
}

// SetVisible toggles a layer.
func (p *PlotSink) SetVisible(name string, visible bool) error {
	l := p.find(name)
	if l == nil {
		return fmt.Errorf("%w: no layer %q", utils.ErrInvalidParameter, name)
	}
	l.visible = visible
	return nil
}

// Files lists the PNGs written by Close.
func (p *PlotSink) Files() []string {
	return append([]string(nil), p.files...)
}

// Close renders every frame that has a visible layer.
func (p *PlotSink) Close() error {
	n := p.frames()
	if n == 0 {
		return nil
	}
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrIOFailure, err)
	}
	colors := generateColors(len(p.layers))
	for f := 0; f < n; f++ {
		pl := plot.New()
		pl.Title.Text = fmt.Sprintf("Frame %d", f)
		pl.X.Label.Text = "x (px)"
		pl.Y.Label.Text = "y (px)"

		for i, l := range p.layers {
			if !l.visible {
				continue
			}
			if err := l.draw(pl, f, colors[i]); err != nil {
				return fmt.Errorf("layer %s frame %d: %w", l.name, f, err)
			}
		}

		path := filepath.Join(p.dir, fmt.Sprintf("frame_%04d.png", f))
		if err := pl.Save(p.size, p.size, path); err != nil {
			return fmt.Errorf("%w: %v", utils.ErrIOFailure, err)
		}
		p.files = append(p.files, path)
	}
	log.Info().Str("component", "overlay").Str("dir", p.dir).Int("frames", n).Msg("rendered overlay")
	return nil
}

// frames is the number of frames spanned by visible layers.
func (p *PlotSink) frames() int {
	n := 0
	for _, l := range p.layers {
		if !l.visible {
			continue
		}
		if l.stack != nil && l.stack.Planes() > n {
			n = l.stack.Planes()
		}
		for _, pt := range l.points {
			if math.IsNaN(pt.Frame) || pt.Frame < 0 {
				continue
			}
			if f := int(pt.Frame) + 1; f > n {
				n = f
			}
		}
	}
	return n
}

func (l *layer) draw(pl *plot.Plot, frame int, c color.Color) error {
	if l.stack != nil {
		plane := frame
		if l.stack.Planes() == 1 {
			plane = 0
		}
		if plane >= l.stack.Planes() {
			return nil
		}
		img := grayPlane(l.stack, plane)
		pl.Add(plotter.NewImage(img, 0, 0, float64(l.stack.Cols()), float64(l.stack.Rows())))
		return nil
	}

	var xys plotter.XYs
	for _, pt := range l.points {
		if int(pt.Frame) == frame && pt.Frame == math.Trunc(pt.Frame) {
			xys = append(xys, plotter.XY{X: pt.X, Y: pt.Y})
		}
	}
	if len(xys) == 0 {
		return nil
	}
	sc, err := plotter.NewScatter(xys)
	if err != nil {
		return err
	}
	sc.GlyphStyle.Color = c
	sc.GlyphStyle.Radius = vg.Points(2)
	sc.GlyphStyle.Shape = draw.CircleGlyph{}
	pl.Add(sc)
	pl.Legend.Add(l.name, sc)
	return nil
}

// grayPlane converts one plane to an image whose first row is the plane's
// last, stretched to the plane's intensity range.
func grayPlane(s *imageio.Stack, i int) *image.Gray16 {
	data := s.Plane(i)
	lo, hi := uint16(math.MaxUint16), uint16(0)
	for _, v := range data {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	scale := 1.0
	if hi > lo {
		scale = float64(math.MaxUint16) / float64(hi-lo)
	}

	rows, cols := s.Rows(), s.Cols()
	img := image.NewGray16(image.Rect(0, 0, cols, rows))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := float64(data[r*cols+c]-lo) * scale
			img.SetGray16(c, rows-1-r, color.Gray16{Y: uint16(v)})
		}
	}
	return img
}

// generateColors creates a palette of distinct colors for layers.
func generateColors(n int) []color.Color {
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		r, g, b := hslToRGB(float64(i)/float64(n), 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	return uint8(hueToRGB(p, q, h+1.0/3.0) * 255), uint8(hueToRGB(p, q, h) * 255), uint8(hueToRGB(p, q, h-1.0/3.0) * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 0.5:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
