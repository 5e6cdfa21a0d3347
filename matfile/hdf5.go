package matfile

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/hdf5"

	"github.com/biteenlab/biteen-utilities/utils"
)

// Read loads the container at path. Non-numeric datasets and MATLAB
// bookkeeping groups ("#refs#", "#subsystem#") are skipped.
func Read(path string) (*Bundle, error) {
	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", utils.ErrIOFailure, path, err)
	}
	defer f.Close()

	b := NewBundle()
	n, err := f.NumObjects()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", utils.ErrIOFailure, path, err)
	}
	for i := uint(0); i < n; i++ {
		name, err := f.ObjectNameByIndex(i)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", utils.ErrIOFailure, path, err)
		}
		if strings.HasPrefix(name, "#") {
			continue
		}
		typ, err := f.ObjectTypeByIndex(i)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", utils.ErrIOFailure, path, err)
		}
		switch typ {
		case hdf5.H5G_GROUP:
			g, err := readGroup(f, name)
			if err != nil {
				return nil, fmt.Errorf("%w: %s/%s: %v", utils.ErrIOFailure, path, name, err)
			}
			b.Groups[name] = g
		case hdf5.H5G_DATASET:
			m, err := readMatrix(&f.CommonFG, name)
			if err != nil {
				log.Debug().Str("component", "matfile").Str("dataset", name).Err(err).Msg("skipping dataset")
				continue
			}
			b.Matrices[name] = m
		}
	}
	return b, nil
}

func readGroup(f *hdf5.File, name string) (*Group, error) {
	hg, err := f.OpenGroup(name)
	if err != nil {
		return nil, err
	}
	defer hg.Close()

	g := NewGroup()
	n, err := hg.NumObjects()
	if err != nil {
		return nil, err
	}
	for i := uint(0); i < n; i++ {
		field, err := hg.ObjectNameByIndex(i)
		if err != nil {
			return nil, err
		}
		typ, err := hg.ObjectTypeByIndex(i)
		if err != nil {
			return nil, err
		}
		if typ != hdf5.H5G_DATASET {
			continue
		}
		m, err := readMatrix(&hg.CommonFG, field)
		if err != nil {
			log.Debug().Str("component", "matfile").Str("dataset", name+"/"+field).Err(err).Msg("skipping dataset")
			continue
		}
		g.Fields[field] = m
	}
	return g, nil
}

func readMatrix(fg *hdf5.CommonFG, name string) (*Matrix, error) {
	ds, err := fg.OpenDataset(name)
	if err != nil {
		return nil, err
	}
	defer ds.Close()

	space := ds.Space()
	defer space.Close()
	dims, _, err := space.SimpleExtentDims()
	if err != nil {
		return nil, err
	}

	rows, cols := 1, 1
	switch len(dims) {
	case 0:
	case 1:
		cols = int(dims[0])
	case 2:
		rows, cols = int(dims[0]), int(dims[1])
	default:
		return nil, fmt.Errorf("%w: dataset %s has %d dimensions", utils.ErrUnsupportedDimensionality, name, len(dims))
	}

	data := make([]float64, rows*cols)
	if len(data) > 0 {
		if err := ds.Read(&data); err != nil {
			return nil, err
		}
	}
	return &Matrix{Rows: rows, Cols: cols, Data: data}, nil
}

// Write stores b at path. The file is built under a temporary name and
// renamed into place, so a failure leaves nothing at path.
func Write(path string, b *Bundle) error {
	return utils.CommitAtomic(path, func(tmp string) error {
		return write(tmp, b)
	})
}

func write(path string, b *Bundle) error {
	f, err := hdf5.CreateFile(path, hdf5.F_ACC_TRUNC)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, name := range sortedKeys(b.Matrices) {
		if err := writeMatrix(&f.CommonFG, name, b.Matrices[name]); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	for _, name := range sortedKeys(b.Groups) {
		hg, err := f.CreateGroup(name)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		g := b.Groups[name]
		for _, field := range g.Names() {
			if err := writeMatrix(&hg.CommonFG, field, g.Fields[field]); err != nil {
				hg.Close()
				return fmt.Errorf("%s/%s: %w", name, field, err)
			}
		}
		if err := hg.Close(); err != nil {
			return err
		}
	}
	return nil
}

func writeMatrix(fg *hdf5.CommonFG, name string, m *Matrix) error {
	if len(m.Data) != m.Rows*m.Cols {
		return fmt.Errorf("%w: %d values for a %dx%d matrix", utils.ErrShapeMismatch, len(m.Data), m.Rows, m.Cols)
	}
	space, err := hdf5.CreateSimpleDataspace([]uint{uint(m.Rows), uint(m.Cols)}, nil)
	if err != nil {
		return err
	}
	defer space.Close()

	ds, err := fg.CreateDataset(name, hdf5.T_NATIVE_DOUBLE, space)
	if err != nil {
		return err
	}
	defer ds.Close()

	if len(m.Data) == 0 {
		return nil
	}
	data := m.Data
	return ds.Write(&data)
}
