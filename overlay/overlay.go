// Package overlay shows localizations and tracks on top of image stacks.
//
// A Session is an explicitly opened handle on a Sink, the layer-based
// display that does the drawing. PlotSink renders frames to PNG files.
package overlay

import (
	"fmt"
	"math"
	"sync"

	"github.com/biteenlab/biteen-utilities/imageio"
	"github.com/biteenlab/biteen-utilities/table"
	"github.com/biteenlab/biteen-utilities/utils"
)

// Point is one localization in pixel coordinates. TrackID is NaN for
// untracked localizations.
type Point struct {
	X, Y, Frame, TrackID float64
}

// Points converts a localization table. x, y and frame are required.
func Points(t *table.Table) ([]Point, error) {
	if err := table.LocalizationSchema.Check(t); err != nil {
		return nil, err
	}
	x, y, frame := t.Column(table.X), t.Column(table.Y), t.Column(table.Frame)
	ids := t.Column(table.TrackID)
	pts := make([]Point, t.Len())
	for i := range pts {
		pts[i] = Point{X: x[i], Y: y[i], Frame: frame[i], TrackID: math.NaN()}
		if ids != nil {
			pts[i].TrackID = ids[i]
		}
	}
	return pts, nil
}

// Sink is a display made of named layers that can be shown or hidden
// independently.
type Sink interface {
	AddImage(name string, s *imageio.Stack) error
	AddTracks(name string, pts []Point) error
	SetVisible(name string, visible bool) error
	Close() error
}

// Session guards a Sink between Open and Close.
type Session struct {
	mu     sync.Mutex
	sink   Sink
	closed bool
}

// Open starts a session on sink.
func Open(sink Sink) (*Session, error) {
	if sink == nil {
		return nil, fmt.Errorf("%w: nil sink", utils.ErrInvalidParameter)
	}
	return &Session{sink: sink}, nil
}

func (s *Session) do(op string, fn func(Sink) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%w: %s on closed session", utils.ErrInvalidParameter, op)
	}
	return fn(s.sink)
}

// AddImage adds an image layer.
func (s *Session) AddImage(name string, st *imageio.Stack) error {
	if st == nil {
		return fmt.Errorf("%w: nil stack", utils.ErrInvalidParameter)
	}
	if err := st.Validate(); err != nil {
		return err
	}
	return s.do("add image", func(k Sink) error { return k.AddImage(name, st) })
}

// AddMovie reads path with the registered codec and adds it as an image
// layer.
func (s *Session) AddMovie(name, path string) error {
	st, err := imageio.ReadFile(path)
	if err != nil {
		return err
	}
	return s.AddImage(name, st)
}

// AddTracks adds a points layer.
func (s *Session) AddTracks(name string, pts []Point) error {
	return s.do("add tracks", func(k Sink) error { return k.AddTracks(name, pts) })
}

// AddTable adds the localizations of t as a points layer.
func (s *Session) AddTable(name string, t *table.Table) error {
	pts, err := Points(t)
	if err != nil {
		return err
	}
	return s.AddTracks(name, pts)
}

// SetVisible shows or hides a layer.
func (s *Session) SetVisible(name string, visible bool) error {
	return s.do("set visible", func(k Sink) error { return k.SetVisible(name, visible) })
}

// Close closes the sink. Any later call fails.
func (s *Session) Close() error {
	err := s.do("close", func(k Sink) error { return k.Close() })
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return err
}
